package notify

import (
	"context"
	"strings"

	"hospitality-commands/internal/common/logger"
)

// Notifier performs one best-effort delivery. A nil error means the
// transport accepted the message; nothing is retried.
type Notifier interface {
	Name() string
	Send(ctx context.Context, recipient, body string) error
}

// Router sends email addresses through the email notifier and everything
// else through the default transport.
type Router struct {
	primary Notifier
	email   Notifier
}

func NewRouter(primary, email Notifier) *Router {
	return &Router{primary: primary, email: email}
}

func (r *Router) Name() string { return "router" }

func (r *Router) Send(ctx context.Context, recipient, body string) error {
	return r.route(recipient).Send(ctx, recipient, body)
}

// Transport reports which notifier a recipient would go through.
func (r *Router) Transport(recipient string) string {
	return r.route(recipient).Name()
}

func (r *Router) route(recipient string) Notifier {
	if r.email != nil && strings.Contains(recipient, "@") {
		return r.email
	}
	return r.primary
}

// LogNotifier writes outbound messages to the log instead of sending them.
type LogNotifier struct {
	logger logger.Logger
}

func NewLogNotifier(log logger.Logger) *LogNotifier {
	return &LogNotifier{logger: log.With(map[string]interface{}{"transport": "log"})}
}

func (n *LogNotifier) Name() string { return "log" }

func (n *LogNotifier) Send(ctx context.Context, recipient, body string) error {
	n.logger.Info("outbound message", map[string]interface{}{
		"recipient": recipient,
		"body":      body,
	})
	return nil
}

package render

import (
	"fmt"
	"sort"
	"strings"

	apperrors "hospitality-commands/internal/common/errors"
	"hospitality-commands/internal/models"
)

// binding maps an intent kind to its template and to the intent field
// that fills each placeholder.
type binding struct {
	template TemplateName
	fields   map[string]string
}

var intentBindings = map[models.IntentKind]binding{
	models.IntentBlockRoom: {
		template: TemplateConfirmation,
		fields:   map[string]string{"room": "room", "start": "from", "end": "to"},
	},
	models.IntentSetPrice: {
		template: TemplatePriceUpdate,
		fields:   map[string]string{"room": "room", "price": "price", "date": "date"},
	},
}

// Message is a rendered template.
type Message struct {
	Template TemplateName
	Subject  string
	Body     string
}

// Renderer is stateless; the zero value is ready to use.
type Renderer struct{}

func NewRenderer() *Renderer {
	return &Renderer{}
}

func (r *Renderer) RenderIntent(intent models.Intent) (*Message, error) {
	if intent == nil {
		return nil, apperrors.NewTemplateRenderFailedError("", "nil intent")
	}
	b, ok := intentBindings[intent.Kind()]
	if !ok {
		return nil, apperrors.NewTemplateRenderFailedError("", fmt.Sprintf("no template for kind %s", intent.Kind()))
	}

	fields := intent.Fields()
	values := make(map[string]string, len(b.fields))
	for placeholder, field := range b.fields {
		if v, ok := fields[field]; ok {
			values[placeholder] = v
		}
	}
	return r.Render(b.template, values)
}

// RenderFailure fills the error template with the failure's user-safe text.
// Internal details never reach the message.
func (r *Renderer) RenderFailure(err error) (*Message, error) {
	message := apperrors.UnintelligibleMessage
	if stdErr := apperrors.Normalize(err); stdErr != nil {
		message = stdErr.UserMessage()
	}
	return r.Render(TemplateError, map[string]string{"message": message})
}

// Render substitutes every placeholder in one pass. A placeholder without a
// value is a TEMPLATE_RENDER_FAILED error; extra values are ignored.
func (r *Renderer) Render(name TemplateName, values map[string]string) (*Message, error) {
	t, ok := catalog[name]
	if !ok {
		return nil, apperrors.NewTemplateRenderFailedError(string(name), "unknown template")
	}

	var missing []string
	for _, p := range t.Placeholders {
		if _, ok := values[p]; !ok {
			missing = append(missing, p)
		}
	}
	if len(missing) > 0 {
		sort.Strings(missing)
		return nil, apperrors.NewTemplateRenderFailedError(string(name),
			"missing placeholders: "+strings.Join(missing, ", "))
	}

	body := placeholderPattern.ReplaceAllStringFunc(t.Pattern, func(token string) string {
		key := token[2 : len(token)-2]
		return values[key]
	})

	return &Message{Template: name, Subject: t.Subject, Body: body}, nil
}

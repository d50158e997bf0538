// internal/workers/interpret-command/models.go
package interpretcommand

type Input struct {
	Sender string `json:"sender"`
	Body   string `json:"body"`
}

type Output struct {
	CommandID string            `json:"commandId"`
	Command   string            `json:"command"`
	Payload   map[string]string `json:"payload"`
	Source    string            `json:"source"`
	Status    string            `json:"status"`
	Ack       string            `json:"ack"`
	Reply     string            `json:"reply,omitempty"`
	Delivered bool              `json:"delivered"`
}

// internal/models/intent.go
package models

type IntentKind string

const (
	IntentBlockRoom IntentKind = "block_room"
	IntentSetPrice  IntentKind = "set_price"
)

// AllRooms is the room value a price update carries when no room is named.
const AllRooms = "all"

// Intent is a validated command. Field values are raw text; nothing here
// parses dates or amounts.
type Intent interface {
	Kind() IntentKind
	Fields() map[string]string
}

type BlockRoom struct {
	Room string `json:"room"`
	From string `json:"from"`
	To   string `json:"to"`
}

func (BlockRoom) Kind() IntentKind { return IntentBlockRoom }

func (b BlockRoom) Fields() map[string]string {
	return map[string]string{"room": b.Room, "from": b.From, "to": b.To}
}

type SetPrice struct {
	Room  string `json:"room"`
	Price string `json:"price"`
	Date  string `json:"date"`
}

func (SetPrice) Kind() IntentKind { return IntentSetPrice }

func (s SetPrice) Fields() map[string]string {
	return map[string]string{"room": s.Room, "price": s.Price, "date": s.Date}
}

type Source string

const (
	SourcePattern  Source = "pattern"
	SourceFallback Source = "fallback"
)

type Interpretation struct {
	Intent Intent
	Source Source
}

// Payload flattens the interpretation into the same shape the fallback
// model is asked to produce, plus the source.
func (i *Interpretation) Payload() map[string]interface{} {
	out := map[string]interface{}{
		"command": string(i.Intent.Kind()),
		"source":  string(i.Source),
	}
	for k, v := range i.Intent.Fields() {
		out[k] = v
	}
	return out
}

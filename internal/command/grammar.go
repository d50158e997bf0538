package command

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	apperrors "hospitality-commands/internal/common/errors"
	"hospitality-commands/internal/common/validation"
	"hospitality-commands/internal/models"
)

// DiscriminatorField names the kind of a candidate intent.
const DiscriminatorField = "command"

type kindSpec struct {
	fields []string
	schema *validation.Schema
	build  func(v map[string]string) models.Intent
}

// Grammar is the single validation gate for candidates coming from the
// pattern matcher and from the generative fallback. It is immutable after
// construction.
type Grammar struct {
	kinds map[models.IntentKind]kindSpec
}

func NewGrammar() *Grammar {
	return &Grammar{
		kinds: map[models.IntentKind]kindSpec{
			models.IntentBlockRoom: {
				fields: []string{"room", "from", "to"},
				schema: validation.MustCompile(kindSchema(models.IntentBlockRoom, "room", "from", "to")),
				build: func(v map[string]string) models.Intent {
					return models.BlockRoom{Room: v["room"], From: v["from"], To: v["to"]}
				},
			},
			models.IntentSetPrice: {
				fields: []string{"room", "price", "date"},
				schema: validation.MustCompile(kindSchema(models.IntentSetPrice, "room", "price", "date")),
				build: func(v map[string]string) models.Intent {
					return models.SetPrice{Room: v["room"], Price: v["price"], Date: v["date"]}
				},
			},
		},
	}
}

// kindSchema requires every field to be a non-blank string or a number and
// rejects anything not named.
func kindSchema(kind models.IntentKind, fields ...string) map[string]interface{} {
	props := map[string]interface{}{
		DiscriminatorField: map[string]interface{}{"type": "string", "enum": []interface{}{string(kind)}},
	}
	required := []interface{}{DiscriminatorField}
	for _, f := range fields {
		props[f] = map[string]interface{}{
			"type":    []interface{}{"string", "number"},
			"pattern": `\S`,
		}
		required = append(required, f)
	}
	return map[string]interface{}{
		"type":                 "object",
		"properties":           props,
		"required":             required,
		"additionalProperties": false,
	}
}

// RequiredFields returns the ordered field names of kind, or nil if the
// kind is unknown.
func (g *Grammar) RequiredFields(kind models.IntentKind) []string {
	def, ok := g.kinds[kind]
	if !ok {
		return nil
	}
	out := make([]string, len(def.fields))
	copy(out, def.fields)
	return out
}

func (g *Grammar) Kinds() []models.IntentKind {
	return []models.IntentKind{models.IntentBlockRoom, models.IntentSetPrice}
}

// Validate turns a candidate mapping into an Intent. Any problem is a
// MALFORMED_INTENT error naming the offending field.
func (g *Grammar) Validate(candidate map[string]interface{}) (models.Intent, error) {
	if len(candidate) == 0 {
		return nil, apperrors.NewMalformedIntentError("empty candidate").
			WithMetadata("field", DiscriminatorField)
	}

	rawKind, ok := candidate[DiscriminatorField].(string)
	if !ok {
		return nil, apperrors.NewMalformedIntentError(fmt.Sprintf("%s: missing or not a string", DiscriminatorField)).
			WithMetadata("field", DiscriminatorField)
	}

	kind := models.IntentKind(strings.ToLower(strings.TrimSpace(rawKind)))
	def, ok := g.kinds[kind]
	if !ok {
		return nil, apperrors.NewMalformedIntentError(fmt.Sprintf("%s: unknown kind %q", DiscriminatorField, rawKind)).
			WithMetadata("field", DiscriminatorField)
	}

	normalized := make(map[string]interface{}, len(candidate))
	for k, v := range candidate {
		normalized[k] = v
	}
	normalized[DiscriminatorField] = string(kind)

	result := def.schema.Validate(normalized)
	if !result.Valid {
		err := apperrors.NewMalformedIntentError(strings.Join(result.GetErrorMessages(), "; ")).
			WithMetadata("kind", string(kind))
		if len(result.Errors) > 0 {
			err.WithMetadata("field", result.Errors[0].Field)
		}
		return nil, err
	}

	values := make(map[string]string, len(def.fields))
	for _, f := range def.fields {
		values[f] = fieldText(candidate[f])
	}
	return def.build(values), nil
}

func fieldText(v interface{}) string {
	switch t := v.(type) {
	case string:
		return strings.TrimSpace(t)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case json.Number:
		return t.String()
	case int:
		return strconv.Itoa(t)
	case int64:
		return strconv.FormatInt(t, 10)
	default:
		return fmt.Sprint(t)
	}
}

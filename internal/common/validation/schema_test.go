package validation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func roomSchema() *Schema {
	return MustCompile(map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"room":  map[string]interface{}{"type": "string", "minLength": 1},
			"floor": map[string]interface{}{"type": "number"},
		},
		"required":             []interface{}{"room"},
		"additionalProperties": false,
	})
}

func TestSchema_Validate(t *testing.T) {
	tests := []struct {
		name      string
		doc       map[string]interface{}
		valid     bool
		field     string
		errorCode string
	}{
		{
			name:  "valid document",
			doc:   map[string]interface{}{"room": "204", "floor": float64(2)},
			valid: true,
		},
		{
			name:      "missing required",
			doc:       map[string]interface{}{"floor": float64(2)},
			field:     "room",
			errorCode: CodeRequiredFieldMissing,
		},
		{
			name:      "extra field",
			doc:       map[string]interface{}{"room": "204", "wing": "east"},
			field:     "wing",
			errorCode: CodeExtraField,
		},
		{
			name:      "wrong type",
			doc:       map[string]interface{}{"room": true},
			field:     "room",
			errorCode: CodeInvalidType,
		},
		{
			name:      "empty string",
			doc:       map[string]interface{}{"room": ""},
			field:     "room",
			errorCode: CodeMinLengthViolation,
		},
	}

	schema := roomSchema()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := schema.Validate(tt.doc)
			assert.Equal(t, tt.valid, result.Valid)
			if tt.valid {
				assert.Empty(t, result.Errors)
				return
			}
			require.NotEmpty(t, result.Errors)
			assert.True(t, result.HasErrors(tt.field), "errors: %v", result.GetErrorMessages())
			assert.True(t, result.HasCode(tt.errorCode), "errors: %v", result.Errors)
		})
	}
}

func TestCompile_InvalidSchema(t *testing.T) {
	_, err := Compile(map[string]interface{}{"type": 12})
	assert.Error(t, err)
}

func TestMapCode_Fallback(t *testing.T) {
	assert.Equal(t, "NUMBER_GTE", mapCode("number_gte"))
}

package validation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSchema = `{
	"type": "object",
	"required": ["intake"],
	"properties": {
		"intake": {
			"type": "object",
			"properties": {
				"budget": {"type": "string"},
				"selectedSymptoms": {"type": "array", "items": {"type": "string"}}
			}
		},
		"step": {"type": "integer", "minimum": 0, "maximum": 6}
	}
}`

func TestSchema_Validate(t *testing.T) {
	schema := MustCompile(testSchema)

	tests := []struct {
		name       string
		doc        map[string]interface{}
		wantValid  bool
		wantFields []string
	}{
		{
			name:      "valid document",
			doc:       map[string]interface{}{"intake": map[string]interface{}{"budget": "$50"}, "step": 2},
			wantValid: true,
		},
		{
			name:       "missing intake",
			doc:        map[string]interface{}{},
			wantValid:  false,
			wantFields: []string{"(root)"},
		},
		{
			name:       "wrong nested type",
			doc:        map[string]interface{}{"intake": map[string]interface{}{"selectedSymptoms": "Pain"}},
			wantValid:  false,
			wantFields: []string{"intake.selectedSymptoms"},
		},
		{
			name:       "step out of range",
			doc:        map[string]interface{}{"intake": map[string]interface{}{}, "step": 9},
			wantValid:  false,
			wantFields: []string{"step"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := schema.Validate(tt.doc)
			require.NoError(t, err)
			assert.Equal(t, tt.wantValid, res.Valid)
			for _, f := range tt.wantFields {
				assert.True(t, res.HasErrors(f), "expected error on %s, got %v", f, res.GetErrorMessages())
			}
		})
	}
}

func TestSchema_ValidateJSON(t *testing.T) {
	schema := MustCompile(testSchema)

	res, err := schema.ValidateJSON(`{"intake": {"budget": 50}}`)
	require.NoError(t, err)
	assert.False(t, res.Valid)
	assert.Contains(t, res.Summary(), "intake.budget")

	_, err = schema.ValidateJSON(`{not json`)
	assert.Error(t, err)
}

func TestCompile_InvalidSchema(t *testing.T) {
	_, err := Compile(`{"type": 12}`)
	assert.Error(t, err)
	assert.Panics(t, func() { MustCompile(`not json`) })
}

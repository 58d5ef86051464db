package parse

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type payload struct {
	EditType   string  `json:"editType"`
	Confidence float64 `json:"confidence"`
}

func TestIntoDirectJSON(t *testing.T) {
	var p payload
	err := Into(`{"editType":"FIX","confidence":0.9}`, &p)
	require.NoError(t, err)
	assert.Equal(t, "FIX", p.EditType)
	assert.Equal(t, 0.9, p.Confidence)
}

func TestIntoFencedBlock(t *testing.T) {
	text := "Here is the analysis:\n```json\n{\"editType\":\"UPDATE\",\"confidence\":0.7}\n```\nDone."

	var p payload
	err := Into(text, &p)
	require.NoError(t, err)
	assert.Equal(t, "UPDATE", p.EditType)
}

func TestIntoBalancedObject(t *testing.T) {
	text := `The model says {"editType":"ENHANCE","confidence":0.8} which seems right.`

	var p payload
	err := Into(text, &p)
	require.NoError(t, err)
	assert.Equal(t, "ENHANCE", p.EditType)
}

func TestIntoBalancedObjectIgnoresBracesInStrings(t *testing.T) {
	text := `prefix {"editType":"FIX","confidence":0.5,"note":"uses {braces} inside"} suffix`

	var p struct {
		EditType string `json:"editType"`
		Note     string `json:"note"`
	}
	err := Into(text, &p)
	require.NoError(t, err)
	assert.Equal(t, "uses {braces} inside", p.Note)
}

func TestIntoNoJSON(t *testing.T) {
	var p payload
	err := Into("there is no structured content here", &p)
	assert.ErrorIs(t, err, ErrNoJSON)
}

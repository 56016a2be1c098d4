package relations

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ramsey-B/fern/pkg/models"
)

func TestCaptureNestedDrainsAndGuards(t *testing.T) {
	root := models.NewRecord("id")
	attrs := map[string]any{
		"status":     "open",
		"line_items": []map[string]any{{"sku": "A"}},
		"customer":   map[string]any{"name": "Ada"},
	}

	nested := CaptureNested(root, attrs, []string{"line_items", "customer"})

	assert.Equal(t, []string{"line_items", "customer"}, nested.Keys())
	assert.Equal(t, 2, nested.Len())

	// drained from the raw attribute map
	assert.NotContains(t, attrs, "line_items")
	assert.NotContains(t, attrs, "customer")
	assert.Contains(t, attrs, "status")

	// guarded so a later fill never writes them as columns
	root.Fill(map[string]any{"line_items": "sneaky", "status": "open"})
	assert.Nil(t, root.Get("line_items"))
	assert.Equal(t, "open", root.Get("status"))
}

func TestCaptureNestedSkipsAbsentKeys(t *testing.T) {
	root := models.NewRecord("id")
	attrs := map[string]any{"status": "open"}

	nested := CaptureNested(root, attrs, []string{"line_items"})

	assert.Zero(t, nested.Len())
	assert.Nil(t, nested.Payload("line_items"))
}

func TestCaptureNestedOrderFollowsDeclaration(t *testing.T) {
	root := models.NewRecord("id")
	attrs := map[string]any{
		"tags":       []map[string]any{},
		"line_items": []map[string]any{},
		"customer":   map[string]any{},
	}

	nested := CaptureNested(root, attrs, []string{"customer", "line_items", "tags"})

	assert.Equal(t, []string{"customer", "line_items", "tags"}, nested.Keys())
}

func TestPluralPayloadNormalization(t *testing.T) {
	// decoded JSON shape
	seq, ok := pluralPayload([]any{map[string]any{"sku": "A"}, map[string]any{"sku": "B"}})
	require.True(t, ok)
	require.Len(t, seq, 2)
	assert.Equal(t, "A", seq[0]["sku"])

	// in-code shape
	seq, ok = pluralPayload([]map[string]any{{"sku": "C"}})
	require.True(t, ok)
	assert.Equal(t, "C", seq[0]["sku"])

	_, ok = pluralPayload(map[string]any{"sku": "A"})
	assert.False(t, ok)

	_, ok = pluralPayload([]any{"not a mapping"})
	assert.False(t, ok)
}

func TestSingularPayloadNormalization(t *testing.T) {
	payload, ok := singularPayload(map[string]any{"name": "Ada"})
	require.True(t, ok)
	assert.Equal(t, "Ada", payload["name"])

	_, ok = singularPayload([]map[string]any{{"name": "Ada"}})
	assert.False(t, ok)
}

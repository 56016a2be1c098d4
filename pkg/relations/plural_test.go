package relations

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPluralPrunesRecordsAbsentFromKeySet(t *testing.T) {
	store := newFakeStore()
	store.seed("1", map[string]any{"qty": 1})
	store.seed("2", map[string]any{"qty": 2})
	store.seed("3", map[string]any{"qty": 3})
	rel := &fakeHasMany{store: store}
	root := persistedRoot()

	reconciler := NewPluralReconciler(NewDestroyPolicy(""), testLogger())
	err := reconciler.Reconcile(context.Background(), root, "line_items", rel, []map[string]any{
		{"id": "2", "qty": 20},
	})

	require.NoError(t, err)
	assert.Equal(t, []string{"2"}, store.keys())
	assert.Equal(t, 20, store.records["2"]["qty"])
	assert.Equal(t, 2, store.deletes)
}

func TestPluralEmptyKeySetReplacesCollection(t *testing.T) {
	store := newFakeStore()
	store.seed("1", map[string]any{"sku": "old-a"})
	store.seed("2", map[string]any{"sku": "old-b"})
	rel := &fakeHasMany{store: store}
	root := persistedRoot()

	reconciler := NewPluralReconciler(NewDestroyPolicy(""), testLogger())
	err := reconciler.Reconcile(context.Background(), root, "line_items", rel, []map[string]any{
		{"sku": "new-a"},
		{"sku": "new-b"},
	})

	require.NoError(t, err)
	assert.Equal(t, 2, store.deletes, "all pre-existing records must be pruned")
	assert.Equal(t, 2, store.creates)
	assert.Len(t, store.records, 2)
	for _, key := range store.keys() {
		assert.Contains(t, []any{"new-a", "new-b"}, store.records[key]["sku"])
	}
}

func TestPluralCreatesAgainstEmptyCollection(t *testing.T) {
	store := newFakeStore()
	rel := &fakeHasMany{store: store}
	root := persistedRoot()

	reconciler := NewPluralReconciler(NewDestroyPolicy(""), testLogger())
	err := reconciler.Reconcile(context.Background(), root, "line_items", rel, []map[string]any{
		{"sku": "A", "qty": 2},
		{"sku": "B", "qty": 1},
	})

	require.NoError(t, err)
	assert.Zero(t, store.deletes, "nothing to prune on an empty collection")
	assert.Equal(t, 2, store.creates)
}

func TestPluralUpdateAndDestroyMix(t *testing.T) {
	store := newFakeStore()
	store.seed("10", map[string]any{"qty": 1})
	store.seed("11", map[string]any{"qty": 2})
	rel := &fakeHasMany{store: store}
	root := persistedRoot()

	reconciler := NewPluralReconciler(NewDestroyPolicy(""), testLogger())
	err := reconciler.Reconcile(context.Background(), root, "line_items", rel, []map[string]any{
		{"id": "10", "qty": 5},
		{"_destroy": true, "id": "11"},
	})

	require.NoError(t, err)
	assert.Equal(t, []string{"10"}, store.keys())
	assert.Equal(t, 5, store.records["10"]["qty"])
}

func TestPluralMissingKeyFailsLoudly(t *testing.T) {
	store := newFakeStore()
	store.seed("1", map[string]any{"qty": 1})
	rel := &fakeHasMany{store: store}
	root := persistedRoot()

	reconciler := NewPluralReconciler(NewDestroyPolicy(""), testLogger())
	err := reconciler.Reconcile(context.Background(), root, "line_items", rel, []map[string]any{
		{"id": "1", "qty": 2},
		{"id": "404", "qty": 9},
	})

	require.Error(t, err)
	assert.True(t, IsKind(err, ErrRecordNotFound))
}

func TestPluralKeyComparisonAcrossNumericTypes(t *testing.T) {
	store := newFakeStore()
	store.seed("7", map[string]any{"qty": 1})
	rel := &fakeHasMany{store: store}
	root := persistedRoot()

	reconciler := NewPluralReconciler(NewDestroyPolicy(""), testLogger())
	// JSON decoding hands keys over as float64
	err := reconciler.Reconcile(context.Background(), root, "line_items", rel, []map[string]any{
		{"id": float64(7), "qty": 3},
	})

	require.NoError(t, err)
	assert.Equal(t, []string{"7"}, store.keys())
	assert.Zero(t, store.deletes)
}

func TestPluralPruneFailureAbortsApply(t *testing.T) {
	store := newFakeStore()
	store.seed("1", map[string]any{"qty": 1})
	boom := errors.New("deadlock detected")
	store.failOn("delete", boom)
	rel := &fakeHasMany{store: store}
	root := persistedRoot()

	reconciler := NewPluralReconciler(NewDestroyPolicy(""), testLogger())
	err := reconciler.Reconcile(context.Background(), root, "line_items", rel, []map[string]any{
		{"sku": "new"},
	})

	require.Error(t, err)
	assert.True(t, IsKind(err, ErrPersistence))
	assert.Zero(t, store.creates, "apply phase must not run after a failed prune")
}

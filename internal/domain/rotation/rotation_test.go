package rotation

import (
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func order(n int32) sql.NullInt32 {
	return sql.NullInt32{Int32: n, Valid: true}
}

func ptr[T any](v T) *T {
	return &v
}

func TestNextAssigneeCyclesIndefinitely(t *testing.T) {
	t.Parallel()

	pool := []Candidate[string]{
		{ID: "C", RotationOrder: order(2)},
		{ID: "A", RotationOrder: order(0)},
		{ID: "B", RotationOrder: order(1)},
	}

	var previous *string
	var visited []string
	for i := 0; i < 9; i++ {
		next, ok := NextAssignee(pool, previous)
		require.True(t, ok)
		visited = append(visited, next)
		previous = ptr(next)
	}

	assert.Equal(t, []string{"A", "B", "C", "A", "B", "C", "A", "B", "C"}, visited)
}

func TestNextAssignee(t *testing.T) {
	t.Parallel()

	pool := []Candidate[string]{
		{ID: "A", RotationOrder: order(0)},
		{ID: "B", RotationOrder: order(1)},
		{ID: "C", RotationOrder: order(2)},
	}

	testCases := []struct {
		name     string
		pool     []Candidate[string]
		previous *string
		expected string
		ok       bool
	}{
		{name: "Empty pool", pool: nil, previous: nil, expected: "", ok: false},
		{name: "Empty pool with previous", pool: []Candidate[string]{}, previous: ptr("A"), expected: "", ok: false},
		{name: "No previous starts at first", pool: pool, previous: nil, expected: "A", ok: true},
		{name: "Middle advances", pool: pool, previous: ptr("B"), expected: "C", ok: true},
		{name: "Last wraps to first", pool: pool, previous: ptr("C"), expected: "A", ok: true},
		{name: "Unknown previous resets", pool: pool, previous: ptr("unknown-id"), expected: "A", ok: true},
		{
			name:     "Single member always returned",
			pool:     []Candidate[string]{{ID: "solo"}},
			previous: ptr("solo"),
			expected: "solo",
			ok:       true,
		},
	}

	for _, tc := range testCases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			got, ok := NextAssignee(tc.pool, tc.previous)
			assert.Equal(t, tc.ok, ok)
			assert.Equal(t, tc.expected, got)
		})
	}
}

func TestSortedNullOrderAndTies(t *testing.T) {
	t.Parallel()

	pool := []Candidate[int]{
		{ID: 1, RotationOrder: order(1)},
		{ID: 2}, // null sorts as 0
		{ID: 3, RotationOrder: order(0)},
		{ID: 4, RotationOrder: order(-1)},
		{ID: 5, RotationOrder: order(1)},
	}

	sorted := Sorted(pool)

	ids := make([]int, 0, len(sorted))
	for _, c := range sorted {
		ids = append(ids, c.ID)
	}
	assert.Equal(t, []int{4, 2, 3, 1, 5}, ids, "ties keep insertion order")
	assert.Equal(t, 1, pool[0].ID, "input is not reordered")
}

func TestNextAssigneeAfterReorder(t *testing.T) {
	t.Parallel()

	// B was last; the pool gets reordered so B is now first.
	pool := []Candidate[string]{
		{ID: "A", RotationOrder: order(5)},
		{ID: "B", RotationOrder: order(1)},
		{ID: "C", RotationOrder: order(3)},
	}

	next, ok := NextAssignee(pool, ptr("B"))
	require.True(t, ok)
	assert.Equal(t, "C", next)
}

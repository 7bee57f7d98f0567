// Package rotation picks the next assignee of a recurring obligation by
// round-robin over an ordered pool.
package rotation

import (
	"database/sql"
	"sort"
)

// Candidate is one member of an assignment pool. A missing RotationOrder sorts as 0.
type Candidate[ID comparable] struct {
	ID            ID
	RotationOrder sql.NullInt32
}

// Sorted returns a copy of pool ordered by RotationOrder; ties keep pool order.
func Sorted[ID comparable](pool []Candidate[ID]) []Candidate[ID] {
	sorted := make([]Candidate[ID], len(pool))
	copy(sorted, pool)
	sort.SliceStable(sorted, func(i, j int) bool {
		return orderOf(sorted[i]) < orderOf(sorted[j])
	})
	return sorted
}

// NextAssignee returns who is up after previous. With no previous assignee,
// or one that is no longer in the pool, rotation restarts at the first
// member. The boolean is false only for an empty pool.
func NextAssignee[ID comparable](pool []Candidate[ID], previous *ID) (ID, bool) {
	var zero ID
	if len(pool) == 0 {
		return zero, false
	}

	sorted := Sorted(pool)
	if previous == nil {
		return sorted[0].ID, true
	}

	for i, c := range sorted {
		if c.ID == *previous {
			return sorted[(i+1)%len(sorted)].ID, true
		}
	}
	return sorted[0].ID, true
}

func orderOf[ID comparable](c Candidate[ID]) int32 {
	if !c.RotationOrder.Valid {
		return 0
	}
	return c.RotationOrder.Int32
}

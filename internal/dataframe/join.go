package dataframe

import (
	xxhash "github.com/cespare/xxhash/v2"

	"github.com/vsianalytics/lakeetl/internal/errors"
)

// JoinType selects the join semantics.
type JoinType int

const (
	// InnerJoin keeps only rows with a match on both sides
	InnerJoin JoinType = iota
	// LeftJoin keeps every left row; unmatched rows gain nulls on the right
	LeftJoin
)

// JoinOptions configures a join between two DataFrames.
type JoinOptions struct {
	Type     JoinType
	LeftKey  string
	RightKey string
}

// Join hash-joins this DataFrame with right on the configured keys. Left row
// order is preserved; a left row matching multiple right rows is repeated for
// each match (first occurrence order). Null keys never match. Right-side
// columns whose names collide with left columns are dropped; callers that
// want the right side's version must Drop the stale left column first.
func (df *DataFrame) Join(right *DataFrame, options *JoinOptions) (*DataFrame, error) {
	if options == nil {
		return nil, errors.NewInvalidInputError("Join", "options must not be nil")
	}

	leftCol, ok := df.Column(options.LeftKey)
	if !ok {
		return nil, errors.NewColumnNotFoundError("Join", options.LeftKey)
	}
	rightCol, ok := right.Column(options.RightKey)
	if !ok {
		return nil, errors.NewColumnNotFoundError("Join", options.RightKey)
	}

	// Build the hash table over the smaller, right-hand side.
	buckets := make(map[uint64][]int, right.Len())
	rightKeys := make([]string, right.Len())
	for i := 0; i < right.Len(); i++ {
		if rightCol.IsNull(i) {
			continue
		}
		rightKeys[i] = rightCol.GetAsString(i)
		h := hashKey(rightKeys[i])
		buckets[h] = append(buckets[h], i)
	}

	var leftIdx, rightIdx []int
	for i := 0; i < df.Len(); i++ {
		matched := false
		if !leftCol.IsNull(i) {
			key := leftCol.GetAsString(i)
			for _, j := range buckets[hashKey(key)] {
				if rightKeys[j] == key {
					leftIdx = append(leftIdx, i)
					rightIdx = append(rightIdx, j)
					matched = true
				}
			}
		}
		if !matched && options.Type == LeftJoin {
			leftIdx = append(leftIdx, i)
			rightIdx = append(rightIdx, -1)
		}
	}

	result := df.Take(leftIdx)

	rightRows := right.Take(rightIdx)
	for _, name := range rightRows.Columns() {
		if name == options.RightKey || result.HasColumn(name) {
			continue
		}
		col, _ := rightRows.Column(name)
		result = result.WithColumn(col)
	}

	return result, nil
}

// UnmatchedLeftRows reports how many left rows would fail to find a match,
// so callers can surface join-integrity warnings before filling defaults.
func (df *DataFrame) UnmatchedLeftRows(right *DataFrame, leftKey, rightKey string) (int, error) {
	leftCol, ok := df.Column(leftKey)
	if !ok {
		return 0, errors.NewColumnNotFoundError("Join", leftKey)
	}
	rightCol, ok := right.Column(rightKey)
	if !ok {
		return 0, errors.NewColumnNotFoundError("Join", rightKey)
	}

	known := make(map[string]struct{}, right.Len())
	for i := 0; i < right.Len(); i++ {
		if !rightCol.IsNull(i) {
			known[rightCol.GetAsString(i)] = struct{}{}
		}
	}

	unmatched := 0
	for i := 0; i < df.Len(); i++ {
		if leftCol.IsNull(i) {
			unmatched++
			continue
		}
		if _, ok := known[leftCol.GetAsString(i)]; !ok {
			unmatched++
		}
	}
	return unmatched, nil
}

func hashKey(key string) uint64 {
	return xxhash.Sum64String(key)
}

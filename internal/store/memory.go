package store

import (
	"context"
	"fmt"
	"reflect"
	"sort"
	"sync"
	"time"
)

// Memory is an in-memory Store used by tests and local development. It keeps
// whole rows per collection and evaluates filters and ordering in Go.
type Memory struct {
	mu          sync.RWMutex
	collections map[string][]Row

	// FailInsert, when set, is returned by the next InsertMany call. Tests
	// use it to simulate uniqueness violations and outages.
	FailInsert error
	// FailUpdate, when set, is returned by the next UpdateByKey call.
	FailUpdate error
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{collections: make(map[string][]Row)}
}

func (m *Memory) InsertMany(_ context.Context, collection string, rows []Row) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.FailInsert != nil {
		err := m.FailInsert
		m.FailInsert = nil
		return err
	}

	for _, row := range rows {
		m.collections[collection] = append(m.collections[collection], cloneRow(row))
	}
	return nil
}

func (m *Memory) Select(_ context.Context, collection string, q Query) ([]Row, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var matched []Row
	for _, row := range m.collections[collection] {
		if matchesAll(row, q.Filters) {
			matched = append(matched, cloneRow(row))
		}
	}

	for i := len(q.OrderBy) - 1; i >= 0; i-- {
		o := q.OrderBy[i]
		sort.SliceStable(matched, func(a, b int) bool {
			less := lessValue(matched[a][o.Column], matched[b][o.Column])
			if o.Desc {
				return lessValue(matched[b][o.Column], matched[a][o.Column])
			}
			return less
		})
	}

	if q.Limit > 0 && len(matched) > q.Limit {
		matched = matched[:q.Limit]
	}

	if len(q.Columns) > 0 {
		for i, row := range matched {
			projected := make(Row, len(q.Columns))
			for _, c := range q.Columns {
				projected[c] = row[c]
			}
			matched[i] = projected
		}
	}

	return matched, nil
}

func (m *Memory) UpdateByKey(_ context.Context, collection, keyColumn string, keyValue any, set Row) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.FailUpdate != nil {
		err := m.FailUpdate
		m.FailUpdate = nil
		return 0, err
	}

	var updated int64
	for _, row := range m.collections[collection] {
		if equalValue(row[keyColumn], keyValue) {
			for c, v := range set {
				row[c] = v
			}
			updated++
		}
	}
	return updated, nil
}

func (m *Memory) DeleteByKey(_ context.Context, collection, keyColumn string, keyValue any) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	rows := m.collections[collection]
	kept := rows[:0]
	var deleted int64
	for _, row := range rows {
		if equalValue(row[keyColumn], keyValue) {
			deleted++
			continue
		}
		kept = append(kept, row)
	}
	m.collections[collection] = kept
	return deleted, nil
}

func (m *Memory) Count(_ context.Context, collection string, filters []Filter) (int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var count int64
	for _, row := range m.collections[collection] {
		if matchesAll(row, filters) {
			count++
		}
	}
	return count, nil
}

// Len returns the number of rows in a collection. Test helper.
func (m *Memory) Len(collection string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.collections[collection])
}

func matchesAll(row Row, filters []Filter) bool {
	for _, f := range filters {
		switch f.Op {
		case OpIn:
			values := reflect.ValueOf(f.Value)
			if values.Kind() != reflect.Slice {
				return false
			}
			found := false
			for i := 0; i < values.Len(); i++ {
				if equalValue(row[f.Column], values.Index(i).Interface()) {
					found = true
					break
				}
			}
			if !found {
				return false
			}
		default: // OpEq
			if !equalValue(row[f.Column], f.Value) {
				return false
			}
		}
	}
	return true
}

func equalValue(a, b any) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	// Compare UUIDs and similar stringer types by text so callers can filter
	// with either form.
	if fmt.Sprintf("%v", a) == fmt.Sprintf("%v", b) {
		return true
	}
	return reflect.DeepEqual(a, b)
}

func lessValue(a, b any) bool {
	switch av := a.(type) {
	case time.Time:
		if bv, ok := b.(time.Time); ok {
			return av.Before(bv)
		}
	case int64:
		if bv, ok := b.(int64); ok {
			return av < bv
		}
	case int:
		if bv, ok := b.(int); ok {
			return av < bv
		}
	case float64:
		if bv, ok := b.(float64); ok {
			return av < bv
		}
	case string:
		if bv, ok := b.(string); ok {
			return av < bv
		}
	}
	return fmt.Sprintf("%v", a) < fmt.Sprintf("%v", b)
}

func cloneRow(row Row) Row {
	clone := make(Row, len(row))
	for c, v := range row {
		clone[c] = v
	}
	return clone
}

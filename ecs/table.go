package ecs

import (
	"iter"
	"reflect"
	"sort"
	"sync"

	"github.com/kamstrup/intmap"
)

const initialColumnCapacity = 256

// ComponentTable stores components keyed by (entity id, component kind)
// Each kind owns a column; a separate index counts the components attached to each entity so that
// EntityCount stays O(1). All methods are safe for concurrent use
type ComponentTable struct {
	mu       sync.RWMutex
	columns  map[reflect.Type]*intmap.Map[EntityId, any]
	attached *intmap.Map[EntityId, int]
}

// NewComponentTable creates an empty table
func NewComponentTable() *ComponentTable {
	return &ComponentTable{
		columns:  make(map[reflect.Type]*intmap.Map[EntityId, any]),
		attached: intmap.New[EntityId, int](initialColumnCapacity),
	}
}

// Get returns the component of the given kind attached to id, or nil
func (t *ComponentTable) Get(id EntityId, kind reflect.Type) any {
	t.mu.RLock()
	defer t.mu.RUnlock()

	column, ok := t.columns[kind]
	if !ok {
		return nil
	}
	c, _ := column.Get(id)
	return c
}

// Has reports whether id has a component of the given kind
func (t *ComponentTable) Has(id EntityId, kind reflect.Type) bool {
	t.mu.RLock()
	defer t.mu.RUnlock()

	column, ok := t.columns[kind]
	return ok && column.Has(id)
}

// Put attaches component to id, replacing any component of the same kind
// Values are boxed into a pointer; pointers are stored as given
func (t *ComponentTable) Put(id EntityId, component any) {
	boxed, kind := boxComponent(component)
	if boxed == nil {
		return
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	t.putLocked(id, kind, boxed)
}

// PutAll attaches every component to id under one write lock, so readers see either none or all of them
func (t *ComponentTable) PutAll(id EntityId, components []any) {
	boxed := make([]any, 0, len(components))
	kinds := make([]reflect.Type, 0, len(components))
	for _, c := range components {
		b, kind := boxComponent(c)
		if b == nil {
			continue
		}
		boxed = append(boxed, b)
		kinds = append(kinds, kind)
	}
	if len(boxed) == 0 {
		return
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	for i, b := range boxed {
		t.putLocked(id, kinds[i], b)
	}
}

func (t *ComponentTable) putLocked(id EntityId, kind reflect.Type, boxed any) {
	column, ok := t.columns[kind]
	if !ok {
		column = intmap.New[EntityId, any](initialColumnCapacity)
		t.columns[kind] = column
	}
	if !column.Has(id) {
		n, _ := t.attached.Get(id)
		t.attached.Put(id, n+1)
	}
	column.Put(id, boxed)
}

// Remove detaches the component of the given kind from id. Removing a missing kind is a no-op
func (t *ComponentTable) Remove(id EntityId, kind reflect.Type) {
	t.mu.Lock()
	defer t.mu.Unlock()

	column, ok := t.columns[kind]
	if !ok || !column.Del(id) {
		return
	}
	t.detachOne(id)
}

// RemoveAll detaches every component of id. Costs one probe per known kind
func (t *ComponentTable) RemoveAll(id EntityId) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if !t.attached.Has(id) {
		return
	}
	for _, column := range t.columns {
		column.Del(id)
	}
	t.attached.Del(id)
}

func (t *ComponentTable) detachOne(id EntityId) {
	n, _ := t.attached.Get(id)
	if n <= 1 {
		t.attached.Del(id)
		return
	}
	t.attached.Put(id, n-1)
}

// CountWithKind returns how many entities have a component of the given kind
func (t *ComponentTable) CountWithKind(kind reflect.Type) int {
	t.mu.RLock()
	defer t.mu.RUnlock()

	column, ok := t.columns[kind]
	if !ok {
		return 0
	}
	return column.Len()
}

// EntityCount returns how many entities have at least one component
func (t *ComponentTable) EntityCount() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.attached.Len()
}

// ComponentsOf returns every component attached to id, ordered by kind name
func (t *ComponentTable) ComponentsOf(id EntityId) []any {
	t.mu.RLock()
	defer t.mu.RUnlock()

	kinds := t.kindsOfLocked(id)
	components := make([]any, 0, len(kinds))
	for _, kind := range kinds {
		c, _ := t.columns[kind].Get(id)
		components = append(components, c)
	}
	return components
}

// KindsOf returns the kinds attached to id, ordered by kind name
func (t *ComponentTable) KindsOf(id EntityId) []reflect.Type {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.kindsOfLocked(id)
}

func (t *ComponentTable) kindsOfLocked(id EntityId) []reflect.Type {
	if !t.attached.Has(id) {
		return nil
	}
	kinds := make([]reflect.Type, 0, 4)
	for kind, column := range t.columns {
		if column.Has(id) {
			kinds = append(kinds, kind)
		}
	}
	sort.Sort(byTypeName(kinds))
	return kinds
}

// Kinds returns every kind that currently has at least one component, with its count
func (t *ComponentTable) Kinds() map[reflect.Type]int {
	t.mu.RLock()
	defer t.mu.RUnlock()

	kinds := make(map[reflect.Type]int, len(t.columns))
	for kind, column := range t.columns {
		if n := column.Len(); n > 0 {
			kinds[kind] = n
		}
	}
	return kinds
}

// EntitiesWith returns a sequence of every id that has all of the given kinds. With no kinds it yields every
// id that has at least one component
//
// Each iteration snapshots the candidate ids from the smallest matching column, then re-checks every
// candidate against the live table just before yielding it. Entities destroyed or created while the
// sequence is being consumed may or may not appear
func (t *ComponentTable) EntitiesWith(kinds ...reflect.Type) iter.Seq[EntityId] {
	kinds = append([]reflect.Type(nil), kinds...)

	return func(yield func(EntityId) bool) {
		for _, id := range t.candidates(kinds) {
			if !t.hasAll(id, kinds) {
				continue
			}
			if !yield(id) {
				return
			}
		}
	}
}

func (t *ComponentTable) candidates(kinds []reflect.Type) []EntityId {
	t.mu.RLock()
	defer t.mu.RUnlock()

	if len(kinds) == 0 {
		ids := make([]EntityId, 0, t.attached.Len())
		t.attached.ForEach(func(id EntityId, _ int) bool {
			ids = append(ids, id)
			return true
		})
		return ids
	}

	var smallest *intmap.Map[EntityId, any]
	for _, kind := range kinds {
		column, ok := t.columns[kind]
		if !ok || column.Len() == 0 {
			return nil
		}
		if smallest == nil || column.Len() < smallest.Len() {
			smallest = column
		}
	}

	ids := make([]EntityId, 0, smallest.Len())
	smallest.ForEach(func(id EntityId, _ any) bool {
		ids = append(ids, id)
		return true
	})
	return ids
}

func (t *ComponentTable) hasAll(id EntityId, kinds []reflect.Type) bool {
	t.mu.RLock()
	defer t.mu.RUnlock()

	if len(kinds) == 0 {
		return t.attached.Has(id)
	}
	for _, kind := range kinds {
		column, ok := t.columns[kind]
		if !ok || !column.Has(id) {
			return false
		}
	}
	return true
}

// Clear removes every component. Used at pool teardown
func (t *ComponentTable) Clear() {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.columns = make(map[reflect.Type]*intmap.Map[EntityId, any])
	t.attached.Clear()
}

package ecs

import (
	"reflect"
	"sort"
	"sync"
)

// ComponentRegistry maps component kinds to stable names
// Names are used by prefab templates and statistics; the pool itself accepts any component kind
type ComponentRegistry struct {
	mu     sync.RWMutex
	byName map[string]reflect.Type
	names  map[reflect.Type]string
}

// NewComponentRegistry creates a new component registry
func NewComponentRegistry() *ComponentRegistry {
	return &ComponentRegistry{
		byName: make(map[string]reflect.Type),
		names:  make(map[reflect.Type]string),
	}
}

// RegisterComponent registers T under its type name
func RegisterComponent[T any](r *ComponentRegistry) {
	RegisterNamedComponent[T](r, reflect.TypeFor[T]().Name())
}

// RegisterNamedComponent registers T under an explicit name, replacing any previous binding for that name
func RegisterNamedComponent[T any](r *ComponentRegistry, name string) {
	t := reflect.TypeFor[T]()
	mustBeComponentKind(t)

	r.mu.Lock()
	defer r.mu.Unlock()
	if old, ok := r.byName[name]; ok {
		delete(r.names, old)
	}
	r.byName[name] = t
	r.names[t] = name
}

// Lookup returns the kind registered under name
func (r *ComponentRegistry) Lookup(name string) (reflect.Type, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.byName[name]
	return t, ok
}

// New allocates a zero component of the kind registered under name and returns a pointer to it
func (r *ComponentRegistry) New(name string) (any, bool) {
	t, ok := r.Lookup(name)
	if !ok {
		return nil, false
	}
	return reflect.New(t).Interface(), true
}

// Name returns the registered name of kind, falling back to the type's string form
func (r *ComponentRegistry) Name(kind reflect.Type) string {
	if r != nil {
		r.mu.RLock()
		name, ok := r.names[kind]
		r.mu.RUnlock()
		if ok {
			return name
		}
	}
	return kind.String()
}

// Names returns every registered name in sorted order
func (r *ComponentRegistry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.byName))
	for name := range r.byName {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// KindOf returns the kind of component T
func KindOf[T any]() reflect.Type {
	return reflect.TypeFor[T]()
}

// kindOf returns the kind of a component value, dereferencing pointers
func kindOf(component any) reflect.Type {
	t := reflect.TypeOf(component)
	if t == nil {
		return nil
	}
	if t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	return t
}

// mustBeComponentKind panics for kinds that cannot be stored as components
// Components can be structs or primitives, but not pointers, maps, channels, or functions
func mustBeComponentKind(t reflect.Type) {
	switch t.Kind() {
	case reflect.Ptr, reflect.Map, reflect.Chan, reflect.Func, reflect.Interface:
		panic("components cannot be pointers, maps, channels, functions or interfaces: " + t.String())
	}
}

// boxComponent returns the component as a pointer to its kind, so fields stay mutable in place
// Pointers are stored as given; values are copied into a fresh allocation
func boxComponent(component any) (any, reflect.Type) {
	v := reflect.ValueOf(component)
	if !v.IsValid() {
		return nil, nil
	}
	if v.Kind() == reflect.Ptr {
		if v.IsNil() {
			return nil, nil
		}
		mustBeComponentKind(v.Elem().Type())
		return component, v.Elem().Type()
	}
	mustBeComponentKind(v.Type())
	ptr := reflect.New(v.Type())
	ptr.Elem().Set(v)
	return ptr.Interface(), v.Type()
}

// cloneComponent returns a shallow copy of a component as a new pointer
func cloneComponent(component any) any {
	v := reflect.ValueOf(component)
	if !v.IsValid() {
		return nil
	}
	if v.Kind() == reflect.Ptr {
		if v.IsNil() {
			return nil
		}
		v = v.Elem()
	}
	ptr := reflect.New(v.Type())
	ptr.Elem().Set(v)
	return ptr.Interface()
}

type byTypeName []reflect.Type

func (a byTypeName) Len() int           { return len(a) }
func (a byTypeName) Swap(i, j int)      { a[i], a[j] = a[j], a[i] }
func (a byTypeName) Less(i, j int) bool { return a[i].String() < a[j].String() }

// ComponentReader is implemented by anything that can look up a component by entity and kind
type ComponentReader interface {
	GetComponent(EntityId, reflect.Type) any
}

// ReadComponent returns the component of kind T attached to entityId, or nil
func ReadComponent[T any](reader ComponentReader, entityId EntityId) *T {
	c, _ := reader.GetComponent(entityId, reflect.TypeFor[T]()).(*T)
	return c
}

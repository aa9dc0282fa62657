package ecs

import (
	"iter"
	"reflect"
	"unsafe"
)

// View represents a query for entities with a specific combination of components
// The type T should be a struct with embedded pointer fields for each component type
// Named fields can be marked as optional using the `ecs:"optional"` struct tag
type View[T any] struct {
	pool        *Pool
	types       []reflect.Type
	optional    []bool
	fieldOffset []uintptr
	required    []reflect.Type
}

// NewView creates a new view for the given struct type over pool
// Embedded fields are always required
func NewView[T any](pool *Pool) *View[T] {
	structType := reflect.TypeFor[T]()

	if structType.Kind() != reflect.Struct {
		panic("View type parameter must be a struct")
	}

	v := &View[T]{
		pool:        pool,
		types:       make([]reflect.Type, 0, structType.NumField()),
		optional:    make([]bool, 0, structType.NumField()),
		fieldOffset: make([]uintptr, 0, structType.NumField()),
	}

	for i := 0; i < structType.NumField(); i++ {
		field := structType.Field(i)
		if field.Type.Kind() != reflect.Ptr {
			panic("View struct fields must be pointer types")
		}

		componentType := field.Type.Elem()
		v.types = append(v.types, componentType)
		v.fieldOffset = append(v.fieldOffset, field.Offset)

		isOptional := false
		if !field.Anonymous {
			if tag := field.Tag.Get("ecs"); tag != "" {
				if tag != "optional" {
					panic("invalid ecs tag value: \"" + tag + "\" (only \"optional\" is supported)")
				}
				isOptional = true
			}
		}
		v.optional = append(v.optional, isOptional)
		if !isOptional {
			v.required = append(v.required, componentType)
		}
	}

	return v
}

// Fill populates the provided struct pointer with component data for the given entity
// Returns false if the entity is missing any required components
// Optional components are set to nil if not present
func (v *View[T]) Fill(id EntityId, ptr *T) bool {
	structPtr := unsafe.Pointer(ptr)

	for i, componentType := range v.types {
		component := v.pool.table.Get(id, componentType)
		fieldPtr := unsafe.Pointer(uintptr(structPtr) + v.fieldOffset[i])

		if component == nil {
			if !v.optional[i] {
				return false
			}
			*(*unsafe.Pointer)(fieldPtr) = nil
			continue
		}

		// Components are stored as pointers, so the interface data word is the component address
		*(*unsafe.Pointer)(fieldPtr) = (*iface)(unsafe.Pointer(&component)).data
	}

	return true
}

// Get returns a populated view struct for the given entity, or nil if the entity
// doesn't have all the required components
func (v *View[T]) Get(id EntityId) *T {
	var result T
	if !v.Fill(id, &result) {
		return nil
	}
	return &result
}

// GetRef returns a populated view struct for the entity behind h, or nil if h is inactive
func (v *View[T]) GetRef(h *Handle) *T {
	if !h.IsActive() {
		return nil
	}
	return v.Get(h.Id())
}

// Iter returns an iterator over all entities that have all the required components for this view
func (v *View[T]) Iter() iter.Seq2[*Handle, T] {
	return func(yield func(*Handle, T) bool) {
		var result T
		for h := range v.pool.GetEntitiesWith(v.required...) {
			if !v.Fill(h.Id(), &result) {
				continue
			}
			if !yield(h, result) {
				return
			}
		}
	}
}

// Values returns an iterator over just the view structs
func (v *View[T]) Values() iter.Seq[T] {
	return func(yield func(T) bool) {
		for _, value := range v.Iter() {
			if !yield(value) {
				return
			}
		}
	}
}

// Count returns the number of entities matching the view's required components
func (v *View[T]) Count() int {
	return v.pool.GetCountOfEntitiesWith(v.required...)
}

// Spawn creates a new entity with components extracted from the view struct
func (v *View[T]) Spawn(data T) *Handle {
	structPtr := unsafe.Pointer(&data)

	components := make([]any, 0, len(v.types))
	for i, componentType := range v.types {
		fieldPtr := unsafe.Pointer(uintptr(structPtr) + v.fieldOffset[i])
		componentPtr := *(*unsafe.Pointer)(fieldPtr)

		if componentPtr == nil {
			if !v.optional[i] {
				panic("required component is nil in View.Spawn")
			}
			continue
		}

		components = append(components, reflect.NewAt(componentType, componentPtr).Elem().Interface())
	}

	return v.pool.Create(components...)
}

package ecs

import (
	"strconv"
	"sync/atomic"
)

// EntityId is a process-unique entity identifier. Ids are never reused once destroyed
type EntityId uint64

// NullId denotes "no entity"
const NullId EntityId = 0

func (e EntityId) String() string {
	return strconv.FormatUint(uint64(e), 10)
}

// Handle is a stable, invalidatable reference to one entity
// Once invalidated a handle never becomes active again
type Handle struct {
	id       EntityId
	inactive atomic.Bool
}

// NullHandle refers to no entity and is always inactive
var NullHandle = newNullHandle()

func newNullHandle() *Handle {
	h := &Handle{id: NullId}
	h.inactive.Store(true)
	return h
}

// NewHandle creates an active handle for id. Hosts use it as their default handle-creation strategy
func NewHandle(id EntityId) *Handle {
	if id == NullId {
		return NullHandle
	}
	return &Handle{id: id}
}

// Id returns the referenced entity id, or NullId for the null handle
func (h *Handle) Id() EntityId {
	if h == nil {
		return NullId
	}
	return h.id
}

// IsActive reports whether the entity behind the handle is still alive
func (h *Handle) IsActive() bool {
	return h != nil && !h.inactive.Load()
}

// Invalidate marks the handle inactive. Returns true only for the call that performed the transition
func (h *Handle) Invalidate() bool {
	if h == nil {
		return false
	}
	return h.inactive.CompareAndSwap(false, true)
}

// IsNull reports whether h is nil or the null handle
func (h *Handle) IsNull() bool {
	return h == nil || h == NullHandle
}

func (h *Handle) String() string {
	if h.IsNull() {
		return "EntityRef{NULL}"
	}
	if !h.IsActive() {
		return "EntityRef{" + h.id.String() + ", invalid}"
	}
	return "EntityRef{" + h.id.String() + "}"
}

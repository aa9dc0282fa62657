package ecs

import "strconv"

// Signal is a lifecycle notification sent through the host's event system
type Signal uint8

const (
	// SignalOnAdded is sent after a built entity's components are installed
	SignalOnAdded Signal = iota + 1
	// SignalOnActivated follows SignalOnAdded once the entity is registered in its pool
	SignalOnActivated
	// SignalBeforeDeactivate is the first signal sent by Pool.Destroy
	SignalBeforeDeactivate
	// SignalBeforeRemove is sent after SignalBeforeDeactivate, while components are still readable
	SignalBeforeRemove
)

func (s Signal) String() string {
	switch s {
	case SignalOnAdded:
		return "OnAdded"
	case SignalOnActivated:
		return "OnActivated"
	case SignalBeforeDeactivate:
		return "BeforeDeactivate"
	case SignalBeforeRemove:
		return "BeforeRemove"
	default:
		return "Signal(" + strconv.Itoa(int(s)) + ")"
	}
}

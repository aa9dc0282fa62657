package ecs

import "unsafe"

// iface represents the internal memory layout of an interface{}
// View uses it to read a stored component pointer without reflection
type iface struct {
	typ  unsafe.Pointer
	data unsafe.Pointer
}

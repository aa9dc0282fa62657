package ecs

// Vec3 is a world-space position
type Vec3 struct {
	X, Y, Z float32
}

// Quat is a rotation quaternion
type Quat struct {
	X, Y, Z, W float32
}

// IdentityQuat is the rotation that leaves orientation unchanged
var IdentityQuat = Quat{W: 1}

// Location places an entity in the world. The builder synthesizes one when a position or rotation is
// supplied without a staged Location
type Location struct {
	Position Vec3
	Rotation Quat
}

// PrefabOrigin records the prefab an entity was built from
type PrefabOrigin struct {
	Name string
}

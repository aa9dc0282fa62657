package main

import "github.com/plus3/entitypool/ecs"

// Clock is kept as a singleton in the global pool
type Clock struct {
	Frames  int64
	Elapsed float64
}

type ClockSystem struct {
	Clock ecs.Singleton[Clock]
}

func (s *ClockSystem) Execute(frame *ecs.UpdateFrame) {
	if c := s.Clock.Get(); c != nil {
		c.Frames++
		c.Elapsed += frame.DeltaTime
	}
}

// DriftSystem moves every located entity along its velocity
type DriftSystem struct {
	Entities ecs.Query[struct {
		*ecs.Location
		*Velocity
	}]
	Moved int64
}

func (s *DriftSystem) Execute(frame *ecs.UpdateFrame) {
	dt := float32(frame.DeltaTime)
	for item := range s.Entities.Values() {
		item.Location.Position.X += item.Velocity.DX * dt
		item.Location.Position.Y += item.Velocity.DY * dt
		item.Location.Position.Z += item.Velocity.DZ * dt
		s.Moved++
	}
}

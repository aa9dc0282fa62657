package ecs

// UpdateFrame is passed to every system during one Scheduler pass
// Structural changes queued on Commands are applied to Pool after the last system runs
type UpdateFrame struct {
	DeltaTime float64
	Commands  *Commands
	Pool      *Pool
}

func newUpdateFrame(dt float64, pool *Pool) *UpdateFrame {
	return &UpdateFrame{
		DeltaTime: dt,
		Commands:  NewCommands(),
		Pool:      pool,
	}
}

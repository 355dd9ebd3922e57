package spawn

import "time"

// State represents the lifecycle of a worker process.
type State string

// Worker states.
const (
	StateRunning  State = "running"  // Process alive
	StateStopping State = "stopping" // Stop requested
	StateExited   State = "exited"   // Process reaped
)

// Info is a snapshot of a worker.
type Info struct {
	ID        string
	AppRoot   string
	User      string
	Group     string
	PID       int
	State     State
	StartedAt time.Time
	ExitCode  *int
}

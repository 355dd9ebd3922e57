package pipewatch

// State is the lifecycle phase of a Watcher.
type State string

// Watcher states. Transitions only move forward.
const (
	StateConstructed State = "constructed" // not started; the goroutine may already wait for Start
	StateArmed       State = "armed"       // Start called, read loop not entered yet
	StateRunning     State = "running"     // read loop active
	StateTerminated  State = "terminated"  // read loop exited
)

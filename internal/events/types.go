package events

// Event type constants for kelindar/event.
const (
	TypeWorkerSpawned uint32 = iota + 1
	TypeSpawnFailed
	TypeWorkerExited
)

// Event interface required by kelindar/event.
type Event interface {
	Type() uint32
}

// WorkerSpawnedEvent is published when the pool caches a new worker.
type WorkerSpawnedEvent struct {
	WorkerID  string `json:"worker_id" example:"7f0c6b1e-3d0a-4c89-9a57-2f5ad7e0b0c1" doc:"Worker identifier"`
	AppRoot   string `json:"app_root" example:"/srv/blog" doc:"Application root"`
	User      string `json:"user,omitempty" example:"www" doc:"User the worker runs as"`
	Group     string `json:"group,omitempty" example:"www" doc:"Group the worker runs as"`
	PID       int    `json:"pid" example:"4242" doc:"Worker process ID"`
	ElapsedMs int64  `json:"elapsed_ms" example:"120" doc:"Spawn duration in milliseconds"`
	Timestamp string `json:"timestamp" example:"2025-01-27T10:30:00Z" doc:"Event timestamp"`
}

// Type returns the event type identifier for WorkerSpawnedEvent.
func (e WorkerSpawnedEvent) Type() uint32 { return TypeWorkerSpawned }

// SpawnFailedEvent is published when spawning a worker fails.
type SpawnFailedEvent struct {
	AppRoot   string `json:"app_root" example:"/srv/blog" doc:"Application root"`
	User      string `json:"user,omitempty" example:"www" doc:"Requested user"`
	Group     string `json:"group,omitempty" example:"www" doc:"Requested group"`
	Error     string `json:"error" example:"fork/exec ruby: no such file or directory" doc:"Spawn error"`
	Timestamp string `json:"timestamp" example:"2025-01-27T10:30:00Z" doc:"Event timestamp"`
}

// Type returns the event type identifier for SpawnFailedEvent.
func (e SpawnFailedEvent) Type() uint32 { return TypeSpawnFailed }

// WorkerExitedEvent is published when a worker process has exited and its
// output has been drained.
type WorkerExitedEvent struct {
	WorkerID   string   `json:"worker_id" example:"7f0c6b1e-3d0a-4c89-9a57-2f5ad7e0b0c1" doc:"Worker identifier"`
	AppRoot    string   `json:"app_root" example:"/srv/blog" doc:"Application root"`
	PID        int      `json:"pid" example:"4242" doc:"Worker process ID"`
	ExitCode   int      `json:"exit_code" example:"0" doc:"Exit code, 128+N when killed by signal N"`
	ReadErrors []string `json:"read_errors,omitempty" doc:"Output streams that failed with a read error"`
	Timestamp  string   `json:"timestamp" example:"2025-01-27T10:30:00Z" doc:"Event timestamp"`
}

// Type returns the event type identifier for WorkerExitedEvent.
func (e WorkerExitedEvent) Type() uint32 { return TypeWorkerExited }

package models

import "time"

// Health check models
type HealthData struct {
	Status  string `json:"status" example:"ok" doc:"Health status"`
	Message string `json:"message" example:"API is healthy" doc:"Health message"`
	Workers int    `json:"workers" example:"3" doc:"Number of cached workers"`
}

type HealthResponse struct {
	Body HealthData
}

// Version models
type VersionData struct {
	Version   string `json:"version" example:"dev" doc:"Application version"`
	GitCommit string `json:"git_commit" example:"abc1234" doc:"Git commit hash"`
	BuildDate string `json:"build_date" example:"2025-01-27T10:30:00Z" doc:"Build timestamp"`
	BuildID   string `json:"build_id" example:"42" doc:"Build identifier"`
	GoVersion string `json:"go_version" example:"go1.24.0" doc:"Go compiler version"`
	Compiler  string `json:"compiler" example:"gc" doc:"Go compiler"`
	Platform  string `json:"platform" example:"linux/amd64" doc:"Target platform"`
}

type VersionResponse struct {
	Body VersionData
}

// StreamData describes one output stream watcher of a worker.
type StreamData struct {
	Name  string `json:"name" example:"stdout" doc:"Stream name"`
	State string `json:"state" example:"running" doc:"Watcher state: constructed, armed, running, terminated"`
	Error string `json:"error,omitempty" doc:"Read error that stopped the watcher"`
}

// WorkerData describes a cached worker.
type WorkerData struct {
	ID        string       `json:"id" example:"7f0c6b1e-3d0a-4c89-9a57-2f5ad7e0b0c1" doc:"Worker identifier"`
	AppRoot   string       `json:"app_root" example:"/srv/blog" doc:"Application root"`
	User      string       `json:"user,omitempty" example:"www" doc:"User the worker runs as"`
	Group     string       `json:"group,omitempty" example:"www" doc:"Group the worker runs as"`
	PID       int          `json:"pid" example:"4242" doc:"Process ID"`
	State     string       `json:"state" example:"running" doc:"Worker state: running, stopping, exited"`
	StartedAt time.Time    `json:"started_at" doc:"Spawn time"`
	ExitCode  *int         `json:"exit_code,omitempty" doc:"Exit code once the worker has exited"`
	Streams   []StreamData `json:"streams" doc:"Output stream watchers"`
}

// App list models
type AppListData struct {
	Apps  []WorkerData `json:"apps" doc:"Cached workers ordered by application root"`
	Count int          `json:"count" example:"1" doc:"Number of cached workers"`
}

type AppListResponse struct {
	Body AppListData
}

// Spawn models
type SpawnRequestData struct {
	AppRoot string `json:"app_root" minLength:"1" pattern:"^/" example:"/srv/blog" doc:"Absolute application root"`
	User    string `json:"user,omitempty" example:"www" doc:"User to run the worker as"`
	Group   string `json:"group,omitempty" example:"www" doc:"Group to run the worker as"`
}

type SpawnRequest struct {
	Body SpawnRequestData
}

type WorkerResponse struct {
	Body WorkerData
}

// Output models
type OutputRequest struct {
	AppRoot string `query:"app_root" required:"true" minLength:"1" example:"/srv/blog" doc:"Application root of a cached worker"`
}

type OutputData struct {
	AppRoot string `json:"app_root" example:"/srv/blog" doc:"Application root"`
	PID     int    `json:"pid" example:"4242" doc:"Process ID"`
	Output  string `json:"output" doc:"Most recent raw worker output"`
}

type OutputResponse struct {
	Body OutputData
}

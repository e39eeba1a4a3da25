package types

// Server lifecycle states reported in ServerStatus.State.
const (
	StatePending  = "pending"
	StateFetching = "fetching"
	StateFilling  = "filling"
	StateStarting = "starting"
	StateRunning  = "running"
	StateReady    = "ready"
	StateExited   = "exited"
	StateFailed   = "failed"
)

// ServerStatus summarizes the launched inference server process for /status.
type ServerStatus struct {
	// Lifecycle state: pending, fetching, filling, starting, running,
	// ready, exited, failed.
	// example: running
	State string `json:"state" example:"running"`
	// Process id of the server, 0 before launch.
	// example: 4172
	PID int `json:"pid,omitempty" example:"4172"`
	// Unix timestamp of the launch, 0 before launch.
	// example: 1724659200
	StartedAt int64 `json:"started_at,omitempty" example:"1724659200"`
	// Exit code once the server has exited; meaningful only with state "exited".
	// example: 0
	ExitCode int `json:"exit_code,omitempty" example:"0"`
}

// StatusResponse is the full deployment snapshot returned by GET /status.
type StatusResponse struct {
	// Unique id minted for this deployment run.
	// example: 6f1c24da-9c7e-4f2b-8f18-3e1d6a6c2b90
	DeploymentID string `json:"deployment_id" example:"6f1c24da-9c7e-4f2b-8f18-3e1d6a6c2b90"`
	// Resolved deployment parameters.
	Params DeploymentParams `json:"params"`
	// Auxiliary assets and their on-disk state.
	Assets []AssetStatus `json:"assets"`
	// Launched server process state.
	Server ServerStatus `json:"server"`
	// Pipeline error, empty when healthy.
	Error string `json:"error,omitempty"`
}

// ErrorResponse is a consistent JSON error payload.
type ErrorResponse struct {
	// Error message.
	// example: not ready
	Error string `json:"error" example:"not ready"`
	// HTTP status code.
	// example: 503
	Code int `json:"code" example:"503"`
}

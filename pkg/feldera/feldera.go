// Package feldera defines the part of the Feldera REST API the plugin uses:
// the ad-hoc query endpoint and pipeline management. Implementations live in
// the client package; handlers depend on these interfaces so tests can
// substitute fakes.
package feldera

import "context"

// QueryExecutor runs ad-hoc SQL against a running pipeline.
type QueryExecutor interface {
	Query(ctx context.Context, pipeline string, sql string) (*QueryResult, error)
}

// PipelineManager reads and changes pipeline definitions.
type PipelineManager interface {
	ListPipelines(ctx context.Context) ([]Pipeline, error)
	GetPipeline(ctx context.Context, name string) (*Pipeline, error)
	PutPipeline(ctx context.Context, spec PipelineSpec) (*Pipeline, error)
	StartPipeline(ctx context.Context, name string) error
}

// Client is the full API surface used by the plugin and the CLI.
type Client interface {
	QueryExecutor
	PipelineManager
}

// Program statuses reported by Feldera while compiling a pipeline.
const (
	ProgramStatusPending       = "Pending"
	ProgramStatusCompilingSQL  = "CompilingSql"
	ProgramStatusSQLCompiled   = "SqlCompiled"
	ProgramStatusCompilingRust = "CompilingRust"
	ProgramStatusSuccess       = "Success"
	ProgramStatusSQLError      = "SqlError"
	ProgramStatusRustError     = "RustError"
	ProgramStatusSystemError   = "SystemError"
)

// Deployment statuses of a pipeline.
const (
	DeploymentStatusStopped      = "Stopped"
	DeploymentStatusProvisioning = "Provisioning"
	DeploymentStatusInitializing = "Initializing"
	DeploymentStatusPaused       = "Paused"
	DeploymentStatusRunning      = "Running"
	DeploymentStatusFailed       = "Failed"
)

// Pipeline is the descriptor returned by the pipeline endpoints.
type Pipeline struct {
	Name             string `json:"name"`
	Description      string `json:"description,omitempty"`
	ProgramCode      string `json:"program_code,omitempty"`
	ProgramStatus    string `json:"program_status,omitempty"`
	DeploymentStatus string `json:"deployment_status,omitempty"`
}

// IsRunning reports whether the pipeline accepts ad-hoc queries.
func (p Pipeline) IsRunning() bool {
	return p.DeploymentStatus == DeploymentStatusRunning
}

// IsCompiled reports whether the program finished compiling successfully.
func (p Pipeline) IsCompiled() bool {
	return p.ProgramStatus == ProgramStatusSuccess
}

// HasProgramError reports whether compilation failed.
func (p Pipeline) HasProgramError() bool {
	switch p.ProgramStatus {
	case ProgramStatusSQLError, ProgramStatusRustError, ProgramStatusSystemError:
		return true
	}
	return false
}

// PipelineSpec is the body of a create-or-replace request.
type PipelineSpec struct {
	Name          string         `json:"name"`
	Description   string         `json:"description"`
	ProgramCode   string         `json:"program_code"`
	RuntimeConfig map[string]any `json:"runtime_config"`
	ProgramConfig map[string]any `json:"program_config"`
}

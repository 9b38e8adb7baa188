package testutil

import (
	"context"
	"net/http"
	"sync"

	"feldera-grafana-plugin/pkg/feldera"
)

// FakeClient is an in-memory feldera.Client. Queries return Result or Err;
// pipeline calls work on the Pipeline map.
type FakeClient struct {
	Result   *feldera.QueryResult
	Err      error
	Pipeline map[string]feldera.Pipeline

	mu      sync.Mutex
	queries []string
	started []string
}

var _ feldera.Client = (*FakeClient)(nil)

// NewFakeClient returns a fake that knows the given pipelines.
func NewFakeClient(pipelines ...feldera.Pipeline) *FakeClient {
	f := &FakeClient{Pipeline: map[string]feldera.Pipeline{}}
	for _, p := range pipelines {
		f.Pipeline[p.Name] = p
	}
	return f
}

func (f *FakeClient) Query(_ context.Context, pipeline string, sql string) (*feldera.QueryResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.queries = append(f.queries, sql)
	if f.Err != nil {
		return nil, f.Err
	}
	if f.Result == nil {
		return &feldera.QueryResult{}, nil
	}
	return f.Result, nil
}

func (f *FakeClient) ListPipelines(context.Context) ([]feldera.Pipeline, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.Err != nil {
		return nil, f.Err
	}
	pipelines := make([]feldera.Pipeline, 0, len(f.Pipeline))
	for _, p := range f.Pipeline {
		pipelines = append(pipelines, p)
	}
	return pipelines, nil
}

func (f *FakeClient) GetPipeline(_ context.Context, name string) (*feldera.Pipeline, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.Err != nil {
		return nil, f.Err
	}
	p, ok := f.Pipeline[name]
	if !ok {
		return nil, &feldera.APIError{StatusCode: http.StatusNotFound, Status: "404 Not Found", Body: "unknown pipeline " + name}
	}
	return &p, nil
}

// PutPipeline stores the pipeline as compiled and stopped.
func (f *FakeClient) PutPipeline(_ context.Context, spec feldera.PipelineSpec) (*feldera.Pipeline, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.Err != nil {
		return nil, f.Err
	}
	p := feldera.Pipeline{
		Name:             spec.Name,
		Description:      spec.Description,
		ProgramCode:      spec.ProgramCode,
		ProgramStatus:    feldera.ProgramStatusSuccess,
		DeploymentStatus: feldera.DeploymentStatusStopped,
	}
	f.Pipeline[spec.Name] = p
	return &p, nil
}

// StartPipeline marks the pipeline as running.
func (f *FakeClient) StartPipeline(_ context.Context, name string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.Err != nil {
		return f.Err
	}
	p, ok := f.Pipeline[name]
	if !ok {
		return &feldera.APIError{StatusCode: http.StatusNotFound, Status: "404 Not Found"}
	}
	p.DeploymentStatus = feldera.DeploymentStatusRunning
	f.Pipeline[name] = p
	f.started = append(f.started, name)
	return nil
}

// Queries returns the SQL received so far.
func (f *FakeClient) Queries() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.queries...)
}

// Started returns the names of pipelines started so far.
func (f *FakeClient) Started() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.started...)
}

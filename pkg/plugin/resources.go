package plugin

import (
	"encoding/json"
	"net/http"
	"runtime/debug"
	"sort"

	"feldera-grafana-plugin/pkg/feldera"
	"feldera-grafana-plugin/pkg/metrics"
	"feldera-grafana-plugin/pkg/models"
	"feldera-grafana-plugin/pkg/query"

	"github.com/go-chi/chi/v5"
	"github.com/grafana/grafana-plugin-sdk-go/backend/log"
	"github.com/samber/lo"
)

// pipelineSummary is a pipeline as listed to the query editor.
type pipelineSummary struct {
	Name             string `json:"name"`
	Description      string `json:"description,omitempty"`
	ProgramStatus    string `json:"programStatus,omitempty"`
	DeploymentStatus string `json:"deploymentStatus,omitempty"`
}

func summarize(p feldera.Pipeline, _ int) pipelineSummary {
	return pipelineSummary{
		Name:             p.Name,
		Description:      p.Description,
		ProgramStatus:    p.ProgramStatus,
		DeploymentStatus: p.DeploymentStatus,
	}
}

func (d *Datasource) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(recoverer)
	r.Get("/pipelines", d.getPipelines)
	r.Get("/pipelines/{name}", d.getPipeline)
	r.Get("/macros", getMacros)
	r.Get("/config-fields", getConfigFields)
	r.Get("/stats", getStats)
	return r
}

func (d *Datasource) getPipelines(w http.ResponseWriter, r *http.Request) {
	pipelines, err := d.client.ListPipelines(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}

	summaries := lo.Map(pipelines, summarize)
	sort.Slice(summaries, func(i, j int) bool { return summaries[i].Name < summaries[j].Name })
	writeJSON(w, http.StatusOK, summaries)
}

func (d *Datasource) getPipeline(w http.ResponseWriter, r *http.Request) {
	pipeline, err := d.client.GetPipeline(r.Context(), chi.URLParam(r, "name"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, summarize(*pipeline, 0))
}

func getMacros(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, query.MacroNames())
}

func getConfigFields(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, models.ConfigFields())
}

// queryStats is the in-process query statistics of the plugin.
type queryStats struct {
	Queries         uint64  `json:"queries"`
	Errors          uint64  `json:"errors"`
	AverageMillis   float64 `json:"averageMs"`
	InFlight        int32   `json:"inFlight"`
	LastQueryAtUnix int64   `json:"lastQueryAt,omitempty"`
}

func getStats(w http.ResponseWriter, _ *http.Request) {
	m := metrics.GetMetrics()
	stats := queryStats{
		Queries:       m.QueryCount,
		Errors:        m.ErrorCount,
		AverageMillis: float64(m.AverageQueryTime.Microseconds()) / 1000,
		InFlight:      m.ConcurrentQueries,
	}
	if !m.LastQueryTime.IsZero() {
		stats.LastQueryAtUnix = m.LastQueryTime.UnixMilli()
	}
	writeJSON(w, http.StatusOK, stats)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.DefaultLogger.Error("Failed to write resource response", "error", err)
	}
}

// writeError answers with the Feldera status for API errors and 502 otherwise.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	log.DefaultLogger.FromContext(r.Context()).Error("Resource request failed", "path", r.URL.Path, "error", err)

	status := http.StatusBadGateway
	if apiErr, ok := feldera.AsAPIError(err); ok && (apiErr.IsNotFound() || apiErr.IsUnauthorized()) {
		status = apiErr.StatusCode
	}
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

func recoverer(next http.Handler) http.Handler {
	fn := func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				if rec == http.ErrAbortHandler {
					panic(rec)
				}
				log.DefaultLogger.Error("Panic in resource handler", "panic", rec, "stack", string(debug.Stack()))
				w.WriteHeader(http.StatusInternalServerError)
			}
		}()
		next.ServeHTTP(w, r)
	}
	return http.HandlerFunc(fn)
}

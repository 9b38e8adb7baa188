package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"feldera-grafana-plugin/pkg/feldera"
	"feldera-grafana-plugin/pkg/ratelimit"
	"feldera-grafana-plugin/pkg/utils"

	"github.com/avast/retry-go/v4"
	"github.com/google/uuid"
	"github.com/grafana/grafana-plugin-sdk-go/backend/log"
)

// maxErrorBody caps how much of an error response is kept.
const maxErrorBody = 64 << 10

// HTTPClient talks to the Feldera REST API.
type HTTPClient struct {
	baseURL    *url.URL
	apiKey     string
	userAgent  string
	httpClient *http.Client
	limiter    *ratelimit.RateLimiter
	attempts   uint
	retryDelay time.Duration
}

var _ feldera.Client = (*HTTPClient)(nil)

// New creates an HTTPClient from config.
func New(config ClientConfig) (*HTTPClient, error) {
	base, err := url.Parse(strings.TrimRight(config.BaseURL, "/"))
	if err != nil {
		return nil, &ClientError{Msg: fmt.Sprintf("invalid base URL %q", config.BaseURL), Err: err}
	}
	if base.Scheme != "http" && base.Scheme != "https" || base.Host == "" {
		return nil, &ClientError{Msg: fmt.Sprintf("base URL %q must be an absolute http(s) URL", config.BaseURL)}
	}

	var limiter *ratelimit.RateLimiter
	if config.RequestsPerSecond > 0 {
		limiter = ratelimit.NewRateLimiter(config.RequestsPerSecond, config.RequestsPerSecond)
	}

	return &HTTPClient{
		baseURL:    base,
		apiKey:     config.APIKey,
		userAgent:  config.UserAgent,
		httpClient: &http.Client{Timeout: config.Timeout},
		limiter:    limiter,
		attempts:   uint(max(config.RetryCount, 1)),
		retryDelay: config.RetryDelay,
	}, nil
}

// Query runs sql against the pipeline's ad-hoc query endpoint.
func (c *HTTPClient) Query(ctx context.Context, pipeline string, sql string) (*feldera.QueryResult, error) {
	params := url.Values{}
	params.Set("sql", sql)
	params.Set("format", "json")

	resp, err := c.do(ctx, apiRequest{
		method:     http.MethodGet,
		path:       pipelinePath(pipeline, "query"),
		query:      params,
		idempotent: true,
	})
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	result, err := feldera.DecodeNDJSON(resp.Body)
	if err != nil {
		return nil, &ClientError{Msg: "failed to decode query response", Err: err}
	}
	return result, nil
}

// ListPipelines returns every pipeline known to the instance.
func (c *HTTPClient) ListPipelines(ctx context.Context) ([]feldera.Pipeline, error) {
	var pipelines []feldera.Pipeline
	err := c.doJSON(ctx, apiRequest{method: http.MethodGet, path: "/v0/pipelines", idempotent: true}, &pipelines)
	if err != nil {
		return nil, err
	}
	return pipelines, nil
}

// GetPipeline returns the descriptor of one pipeline.
func (c *HTTPClient) GetPipeline(ctx context.Context, name string) (*feldera.Pipeline, error) {
	var pipeline feldera.Pipeline
	err := c.doJSON(ctx, apiRequest{method: http.MethodGet, path: pipelinePath(name), idempotent: true}, &pipeline)
	if err != nil {
		return nil, err
	}
	return &pipeline, nil
}

// PutPipeline creates the pipeline or replaces its definition.
func (c *HTTPClient) PutPipeline(ctx context.Context, spec feldera.PipelineSpec) (*feldera.Pipeline, error) {
	body, err := json.Marshal(spec)
	if err != nil {
		return nil, &ClientError{Msg: "failed to encode pipeline", Err: err}
	}

	var pipeline feldera.Pipeline
	err = c.doJSON(ctx, apiRequest{
		method:     http.MethodPut,
		path:       pipelinePath(spec.Name),
		body:       body,
		idempotent: true,
	}, &pipeline)
	if err != nil {
		return nil, err
	}
	return &pipeline, nil
}

// StartPipeline asks Feldera to deploy and run the pipeline.
func (c *HTTPClient) StartPipeline(ctx context.Context, name string) error {
	resp, err := c.do(ctx, apiRequest{method: http.MethodPost, path: pipelinePath(name, "start")})
	if err != nil {
		return err
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return resp.Body.Close()
}

type apiRequest struct {
	method     string
	path       string
	query      url.Values
	body       []byte
	idempotent bool
}

func (c *HTTPClient) doJSON(ctx context.Context, req apiRequest, out any) error {
	resp, err := c.do(ctx, req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &ClientError{Msg: fmt.Sprintf("failed to decode %s %s response", req.method, req.path), Err: err}
	}
	return nil
}

// do sends the request, retrying idempotent ones on transport errors and
// retryable statuses. A returned response has a 2xx status and an unread body.
func (c *HTTPClient) do(ctx context.Context, req apiRequest) (*http.Response, error) {
	requestID := uuid.NewString()
	logger := log.DefaultLogger.FromContext(ctx).With("method", req.method, "path", req.path, "requestId", requestID)

	attempts := uint(1)
	if req.idempotent {
		attempts = c.attempts
	}

	return retry.DoWithData(
		func() (*http.Response, error) {
			if err := c.limiter.Wait(ctx); err != nil {
				return nil, retry.Unrecoverable(err)
			}
			return c.send(ctx, req, requestID)
		},
		retry.Context(ctx),
		retry.Attempts(attempts),
		retry.Delay(c.retryDelay),
		retry.DelayType(retry.FixedDelay),
		retry.LastErrorOnly(true),
		retry.RetryIf(isRetryable),
		retry.OnRetry(func(n uint, err error) {
			logger.Warn("Retrying Feldera request", "attempt", n+1, "error", err)
		}),
	)
}

func (c *HTTPClient) send(ctx context.Context, req apiRequest, requestID string) (*http.Response, error) {
	u := c.baseURL.JoinPath(req.path)
	if len(req.query) > 0 {
		u.RawQuery = req.query.Encode()
	}

	var body io.Reader
	if req.body != nil {
		body = bytes.NewReader(req.body)
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.method, u.String(), body)
	if err != nil {
		return nil, retry.Unrecoverable(&ClientError{Msg: "failed to build request", Err: err})
	}
	httpReq.Header.Set("Accept", "application/json")
	httpReq.Header.Set("User-Agent", c.userAgent)
	httpReq.Header.Set(utils.RequestIDHeader, requestID)
	if req.body != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	if c.apiKey != "" {
		httpReq.Header.Set(utils.AuthorizationHeader, "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, &ClientError{Msg: fmt.Sprintf("%s %s failed", req.method, req.path), Err: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		defer resp.Body.Close()
		return nil, newAPIError(resp)
	}
	return resp, nil
}

// newAPIError reads an error response. Feldera error bodies are JSON objects
// with a "message" field; anything else is kept as text.
func newAPIError(resp *http.Response) *feldera.APIError {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))

	msg := strings.TrimSpace(string(raw))
	var body struct {
		Message string `json:"message"`
	}
	if json.Unmarshal(raw, &body) == nil && body.Message != "" {
		msg = body.Message
	}

	return &feldera.APIError{
		StatusCode: resp.StatusCode,
		Status:     resp.Status,
		Body:       utils.MaskSecrets(msg),
	}
}

func isRetryable(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	if apiErr, ok := feldera.AsAPIError(err); ok {
		return apiErr.IsRetryable()
	}
	var clientErr *ClientError
	return errors.As(err, &clientErr)
}

func pipelinePath(name string, rest ...string) string {
	return "/" + strings.Join(append([]string{"v0", "pipelines", url.PathEscape(name)}, rest...), "/")
}

// CloseIdleConnections releases pooled connections to Feldera.
func (c *HTTPClient) CloseIdleConnections() {
	c.httpClient.CloseIdleConnections()
}

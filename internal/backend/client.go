// Package backend is a thin JSON client for the StudyAI retrieval/generation
// service. Every failure is normalized to a *ConnectionError carrying one
// human-readable message.
package backend

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

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// DefaultBaseURL is where a locally started backend listens.
const DefaultBaseURL = "http://localhost:8000"

// DefaultTimeout covers a retrieval plus generation round-trip.
const DefaultTimeout = 60 * time.Second

// ConnectionError reports that the backend was unreachable or answered with
// a non-2xx status.
type ConnectionError struct {
	Status  int    // HTTP status, 0 when no response was received
	Message string // normalized, user-facing
	Err     error
}

func (e *ConnectionError) Error() string { return e.Message }

func (e *ConnectionError) Unwrap() error { return e.Err }

// Client talks to the backend over HTTP.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *zap.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithTimeout overrides DefaultTimeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.httpClient.Timeout = d }
}

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithLogger attaches a logger for request tracing.
func WithLogger(l *zap.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// NewClient creates a client for the backend at baseURL.
func NewClient(baseURL string, opts ...Option) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	c := &Client{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		httpClient: &http.Client{Timeout: DefaultTimeout},
		logger:     zap.NewNop(),
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// CreateSession asks the backend to open a session for studentName.
func (c *Client) CreateSession(ctx context.Context, studentName, subject string) (*CreateSessionResponse, error) {
	var out CreateSessionResponse
	req := CreateSessionRequest{StudentName: studentName, Subject: subject}
	if err := c.do(ctx, http.MethodPost, "/session/create", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Ask submits a question within a session.
func (c *Client) Ask(ctx context.Context, req AskRequest) (*AskResponse, error) {
	var out AskResponse
	if err := c.do(ctx, http.MethodPost, "/ask", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// GenerateQuiz requests a multiple-choice quiz on topic.
func (c *Client) GenerateQuiz(ctx context.Context, req QuizRequest) (*QuizResponse, error) {
	var out QuizResponse
	if err := c.do(ctx, http.MethodPost, "/generate-quiz", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Insights fetches learning analytics for one session.
func (c *Client) Insights(ctx context.Context, sessionID string) (*Insights, error) {
	var out Insights
	if err := c.do(ctx, http.MethodGet, "/insights/"+url.PathEscape(sessionID), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ReportConfusion records how confusing a topic was, on the backend's scale.
func (c *Client) ReportConfusion(ctx context.Context, req ConfusionRequest) error {
	return c.do(ctx, http.MethodPost, "/confusion", req, nil)
}

// GlobalInsights fetches topic frequencies across all sessions.
func (c *Client) GlobalInsights(ctx context.Context) (*GlobalInsights, error) {
	var out GlobalInsights
	if err := c.do(ctx, http.MethodGet, "/global-insights", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Health returns nil when the backend reports status "ok".
func (c *Client) Health(ctx context.Context) error {
	var out struct {
		Status string `json:"status"`
	}
	if err := c.do(ctx, http.MethodGet, "/health", nil, &out); err != nil {
		return err
	}
	if out.Status != "ok" {
		return &ConnectionError{Message: fmt.Sprintf("backend unhealthy: %q", out.Status)}
	}
	return nil
}

// do performs one JSON round-trip. in may be nil for GET requests and out
// may be nil when the response body is ignored.
func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		body = bytes.NewReader(data)
	}

	httpReq, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	if in != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	httpReq.Header.Set("Accept", "application/json")
	reqID := uuid.NewString()
	httpReq.Header.Set("X-Request-ID", reqID)

	start := time.Now()
	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		c.logger.Warn("backend request failed",
			zap.String("method", method), zap.String("path", path),
			zap.String("request_id", reqID), zap.Error(err))
		return &ConnectionError{Message: transportMessage(err), Err: err}
	}
	defer resp.Body.Close()

	c.logger.Debug("backend request",
		zap.String("method", method), zap.String("path", path),
		zap.String("request_id", reqID), zap.Int("status", resp.StatusCode),
		zap.Duration("elapsed", time.Since(start)))

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return &ConnectionError{Status: resp.StatusCode, Message: transportMessage(err), Err: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &ConnectionError{
			Status:  resp.StatusCode,
			Message: statusMessage(resp.StatusCode, data),
		}
	}

	if out == nil || len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return &ConnectionError{
			Status:  resp.StatusCode,
			Message: "unexpected response from backend",
			Err:     err,
		}
	}
	return nil
}

// statusMessage prefers the backend's "detail" field, as FastAPI errors carry it.
func statusMessage(status int, body []byte) string {
	var e struct {
		Detail json.RawMessage `json:"detail"`
	}
	if json.Unmarshal(body, &e) == nil && len(e.Detail) > 0 {
		var s string
		if json.Unmarshal(e.Detail, &s) == nil && s != "" {
			return s
		}
		if string(e.Detail) != "null" {
			return string(e.Detail)
		}
	}
	return fmt.Sprintf("Request failed with status code %d", status)
}

func transportMessage(err error) string {
	var ue *url.Error
	if errors.As(err, &ue) && ue.Timeout() {
		return "timeout exceeded"
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return "timeout exceeded"
	}
	if msg := err.Error(); msg != "" {
		return msg
	}
	return "Network error"
}

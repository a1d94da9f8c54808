// Package api is the HTTP client for the LiftLog backend. It distinguishes
// connectivity loss (the request never got an answer) from rejection (the
// backend answered with an error status); callers queue the former and
// surface the latter.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/meltforce/liftlog/internal/models"
	"github.com/meltforce/liftlog/internal/queue"
)

// WorkoutLogEndpoint is the backend's commit endpoint path.
const WorkoutLogEndpoint = "/api/v1/workout-logs"

// ErrConnectivity wraps transport-level failures: timeouts, refused
// connections, DNS errors. Any response from the server, whatever its
// status, is not a connectivity failure.
var ErrConnectivity = errors.New("backend unreachable")

// RejectedError is a non-2xx answer from the backend: the request arrived
// and was refused (validation, auth), so retrying it unchanged is pointless.
type RejectedError struct {
	StatusCode int
	Body       string
}

func (e *RejectedError) Error() string {
	return fmt.Sprintf("backend rejected request (status %d): %s", e.StatusCode, e.Body)
}

// Client sends requests to the LiftLog backend over HTTP.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// NewClient creates a client targeting the given base URL.
func NewClient(baseURL, apiKey string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// PostWorkoutLog commits a finished session. On success it returns any
// newly-achieved personal records reported by the backend.
func (c *Client) PostWorkoutLog(ctx context.Context, reqBody models.WorkoutLogRequest) (*models.WorkoutLogResponse, error) {
	data, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("marshaling workout log: %w", err)
	}

	body, err := c.do(ctx, http.MethodPost, WorkoutLogEndpoint, data)
	if err != nil {
		return nil, err
	}

	var resp models.WorkoutLogResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("decoding workout log response: %w", err)
	}
	return &resp, nil
}

// Replay re-issues a queued entry. Implements queue.Replayer.
func (c *Client) Replay(ctx context.Context, e queue.Entry) error {
	_, err := c.do(ctx, e.Method, e.Endpoint, e.Payload)
	return err
}

// Ping probes the backend's health endpoint. Used by the host's
// connectivity monitor, never by the engine itself.
func (c *Client) Ping(ctx context.Context) error {
	_, err := c.do(ctx, http.MethodGet, "/healthz", nil)
	return err
}

func (c *Client) do(ctx context.Context, method, endpoint string, payload []byte) ([]byte, error) {
	var body io.Reader
	if payload != nil {
		body = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+endpoint, body)
	if err != nil {
		return nil, fmt.Errorf("building request: %w", err)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.apiKey != "" {
		req.Header.Set("X-API-Key", c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConnectivity, err)
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(resp.Body)
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &RejectedError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(respBody))}
	}
	return respBody, nil
}

package sdk

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

// Client wraps calls to the transcription backend
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

func NewClient(baseURL, apiKey string) *Client {
	return &Client{
		baseURL:    baseURL,
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: 120 * time.Second},
	}
}

// StartRun starts a new transcription run
func (c *Client) StartRun(ctx context.Context, req *StartRunRequest) (*Run, error) {
	path := "/api/runs"

	var out ApiResponse[Run]
	if err := c.doJSON(ctx, http.MethodPost, path, req, &out); err != nil {
		return nil, err
	}

	if out.Status == StatusError {
		return nil, fmt.Errorf("failed to start run (%s): %v", out.Message, out.Error)
	}

	return &out.Data, nil
}

// ListRuns lists all active transcription runs
func (c *Client) ListRuns(ctx context.Context) ([]Run, error) {
	path := "/api/runs"

	var out ApiResponse[[]Run]
	if err := c.doJSON(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}

	return out.Data, nil
}

// GetRun retrieves the state of a run by its audio path
func (c *Client) GetRun(ctx context.Context, audioPath string) (*Run, error) {
	path := fmt.Sprintf("/api/runs/status?audio=%s", url.QueryEscape(audioPath))

	var out ApiResponse[Run]
	if err := c.doJSON(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}

	if out.Status == StatusError {
		return nil, fmt.Errorf("failed to get run (%s): %v", out.Message, out.Error)
	}

	return &out.Data, nil
}

// CancelRun stops an active run for the given audio path
func (c *Client) CancelRun(ctx context.Context, audioPath string) error {
	path := fmt.Sprintf("/api/runs/cancel?audio=%s", url.QueryEscape(audioPath))

	return c.doJSON(ctx, http.MethodPost, path, nil, nil)
}

// ListCheckpoints lists recoverable checkpoint files
func (c *Client) ListCheckpoints(ctx context.Context) (*RecoveryListResponse, error) {
	path := "/api/recovery/checkpoints"

	var out ApiResponse[RecoveryListResponse]
	if err := c.doJSON(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}

	return &out.Data, nil
}

// PromoteCheckpoint reconstructs and claims a checkpoint by manifest ID
func (c *Client) PromoteCheckpoint(ctx context.Context, id string) (*PromoteResponse, error) {
	path := fmt.Sprintf("/api/recovery/checkpoints/%s/promote", url.PathEscape(id))

	var out ApiResponse[PromoteResponse]
	if err := c.doJSON(ctx, http.MethodPost, path, nil, &out); err != nil {
		return nil, err
	}

	if out.Status == StatusError {
		return nil, fmt.Errorf("failed to promote checkpoint (%s): %v", out.Message, out.Error)
	}

	return &out.Data, nil
}

// DiscardCheckpoint archives a checkpoint by manifest ID
func (c *Client) DiscardCheckpoint(ctx context.Context, id string) error {
	path := fmt.Sprintf("/api/recovery/checkpoints/%s/discard", url.PathEscape(id))

	return c.doJSON(ctx, http.MethodPost, path, nil, nil)
}

// ListEntries lists the transcript library catalog
func (c *Client) ListEntries(ctx context.Context) (*LibraryListResponse, error) {
	path := "/api/library/entries"

	var out ApiResponse[LibraryListResponse]
	if err := c.doJSON(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}

	return &out.Data, nil
}

// SearchEntries searches the transcript library catalog
func (c *Client) SearchEntries(ctx context.Context, query string) (*LibraryListResponse, error) {
	path := fmt.Sprintf("/api/library/entries/search?q=%s", url.QueryEscape(query))

	var out ApiResponse[LibraryListResponse]
	if err := c.doJSON(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}

	return &out.Data, nil
}

// doJSON is a helper to perform JSON requests to the backend
func (c *Client) doJSON(ctx context.Context, method, path string, in any, out any) error {
	// Create request body if input is provided
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return err
		}
		body = bytes.NewBuffer(b)
	}

	// Create the request
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-API-KEY", c.apiKey)

	// Perform the request
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		// On error, read body and return error
		b, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("[BACKEND]: backend '%s %s' failed: %d: %s", method, path, resp.StatusCode, string(b))
	}

	// If no output expected, return early
	if out == nil {
		return nil
	}

	// Decode the response body into the output struct
	dec := json.NewDecoder(resp.Body)
	return dec.Decode(out)
}

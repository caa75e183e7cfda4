// client/client.go
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"codebundle/internal/archive"
	"codebundle/internal/errors"
	"codebundle/internal/history"
	"codebundle/internal/manifest"
	"codebundle/internal/validation"
)

// Client talks to a codebundle server
type Client struct {
	baseURL    string
	httpClient *http.Client
}

func New(baseURL string) *Client {
	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: time.Second * 30,
		},
	}
}

func (c *Client) Archive(ctx context.Context, req validation.ArchiveRequest) (*archive.WriteResult, error) {
	var res archive.WriteResult
	if err := c.do(ctx, http.MethodPost, "/api/archive", req, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

func (c *Client) Restore(ctx context.Context, req validation.RestoreRequest) (*archive.RestoreResult, error) {
	var res archive.RestoreResult
	if err := c.do(ctx, http.MethodPost, "/api/restore", req, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

func (c *Client) Manifest(ctx context.Context, req validation.ManifestRequest) (*manifest.Result, error) {
	var res manifest.Result
	if err := c.do(ctx, http.MethodPost, "/api/manifest", req, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

// ListRuns returns up to limit runs, newest first; 0 returns all
func (c *Client) ListRuns(ctx context.Context, limit int) ([]*history.Run, error) {
	path := "/api/runs"
	if limit > 0 {
		path += "?limit=" + strconv.Itoa(limit)
	}

	var runs []*history.Run
	if err := c.do(ctx, http.MethodGet, path, nil, &runs); err != nil {
		return nil, err
	}
	return runs, nil
}

func (c *Client) GetRun(ctx context.Context, id string) (*history.Run, error) {
	var run history.Run
	if err := c.do(ctx, http.MethodGet, "/api/runs/"+url.PathEscape(id), nil, &run); err != nil {
		return nil, err
	}
	return &run, nil
}

func (c *Client) Health(ctx context.Context) error {
	var status map[string]string
	if err := c.do(ctx, http.MethodGet, "/health", nil, &status); err != nil {
		return err
	}
	if status["status"] != "healthy" {
		return fmt.Errorf("server unhealthy: %q", status["status"])
	}
	return nil
}

// do sends body as JSON and decodes a 200 response into out. Error bodies
// come back as *errors.Error.
func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var r io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		r = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, r)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		var payload struct {
			Error *errors.Error `json:"error"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil || payload.Error == nil {
			return fmt.Errorf("unexpected status: %s", resp.Status)
		}
		payload.Error.Code = resp.StatusCode
		return payload.Error
	}

	return json.NewDecoder(resp.Body).Decode(out)
}

package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"clipforge/internal/api"
)

// apiClient is a thin HTTP client over the daemon API.
type apiClient struct {
	base   string
	token  string
	client *http.Client
}

func newAPIClient(base, token string) *apiClient {
	return &apiClient{
		base:  base,
		token: token,
		client: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

func (c *apiClient) Health() (api.HealthResponse, error) {
	var out api.HealthResponse
	err := c.do(http.MethodGet, "/api/health", nil, http.StatusOK, &out)
	return out, err
}

func (c *apiClient) ListProjects(status string) ([]api.ProjectResponse, error) {
	path := "/api/projects"
	if status != "" {
		path += "?status=" + url.QueryEscape(status)
	}
	var out api.ProjectsResponse
	if err := c.do(http.MethodGet, path, nil, http.StatusOK, &out); err != nil {
		return nil, err
	}
	return out.Projects, nil
}

func (c *apiClient) CreateProject(title, sourceURL string) (api.ProjectResponse, error) {
	var out api.ProjectResponse
	req := api.CreateProjectRequest{Title: title, SourceURL: sourceURL}
	err := c.do(http.MethodPost, "/api/projects", req, http.StatusCreated, &out)
	return out, err
}

func (c *apiClient) GetProject(id string) (api.ProjectResponse, error) {
	var out api.ProjectResponse
	err := c.do(http.MethodGet, "/api/projects/"+url.PathEscape(id), nil, http.StatusOK, &out)
	return out, err
}

func (c *apiClient) StartExport(id string, settings *api.StartExportRequest) (api.ExportStatusResponse, error) {
	var out api.ExportStatusResponse
	var body any
	if settings != nil {
		body = settings
	}
	err := c.do(http.MethodPost, "/api/projects/"+url.PathEscape(id)+"/export", body, http.StatusAccepted, &out)
	return out, err
}

func (c *apiClient) ExportStatus(id string) (api.ExportStatusResponse, error) {
	var out api.ExportStatusResponse
	err := c.do(http.MethodGet, "/api/projects/"+url.PathEscape(id)+"/export", nil, http.StatusOK, &out)
	return out, err
}

func (c *apiClient) CancelExport(id string) (api.ExportStatusResponse, error) {
	var out api.ExportStatusResponse
	err := c.do(http.MethodDelete, "/api/projects/"+url.PathEscape(id)+"/export", nil, http.StatusAccepted, &out)
	return out, err
}

func (c *apiClient) TailLogs(offset int64, limit, waitMS int) (api.LogTailResponse, error) {
	query := url.Values{}
	query.Set("offset", strconv.FormatInt(offset, 10))
	if limit > 0 {
		query.Set("limit", strconv.Itoa(limit))
	}
	if waitMS > 0 {
		query.Set("wait_ms", strconv.Itoa(waitMS))
	}
	var out api.LogTailResponse
	err := c.do(http.MethodGet, "/api/logs?"+query.Encode(), nil, http.StatusOK, &out)
	return out, err
}

func (c *apiClient) TestNotification() (api.NotifyTestResponse, error) {
	var out api.NotifyTestResponse
	err := c.do(http.MethodPost, "/api/notify/test", nil, http.StatusOK, &out)
	return out, err
}

func (c *apiClient) do(method, path string, body any, wantStatus int, out any) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequest(method, c.base+path, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return wrapConnectError(err, c.base)
	}
	defer resp.Body.Close()

	if resp.StatusCode != wantStatus {
		return decodeAPIError(resp)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func decodeAPIError(resp *http.Response) error {
	payload, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<16))
	var apiErr api.ErrorResponse
	if err := json.Unmarshal(payload, &apiErr); err == nil && apiErr.Error != "" {
		return fmt.Errorf("daemon: %s (%s)", apiErr.Error, resp.Status)
	}
	return fmt.Errorf("daemon returned %s", resp.Status)
}

func wrapConnectError(err error, base string) error {
	if strings.Contains(err.Error(), "connection refused") {
		return fmt.Errorf("connect to daemon at %s: is clipforged running?", base)
	}
	return fmt.Errorf("connect to daemon: %w", err)
}

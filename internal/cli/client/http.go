// Package client implements the digest commands that talk to a running
// digestd over HTTP.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

const (
	envAPIKey = "DIGEST_API_KEY"
	envAPIURL = "DIGEST_API_URL"

	defaultAPIURL = "http://localhost:8080"
)

type APIClient struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// NewAPIClientWithCmd resolves the server and key from flags, then the
// environment, then the defaults. An empty key is allowed for servers
// running without auth.
func NewAPIClientWithCmd(cmd *cobra.Command) *APIClient {
	_ = godotenv.Load()

	var apiKey, baseURL string
	if cmd != nil {
		apiKey, _ = cmd.Flags().GetString("api-key")
		baseURL, _ = cmd.Flags().GetString("api-url")
	}
	if apiKey == "" {
		apiKey = os.Getenv(envAPIKey)
	}
	if baseURL == "" {
		baseURL = os.Getenv(envAPIURL)
	}
	if baseURL == "" {
		baseURL = defaultAPIURL
	}
	return NewAPIClientWithConfig(apiKey, baseURL)
}

// NewAPIClientWithConfig creates an APIClient with explicit settings
func NewAPIClientWithConfig(apiKey, baseURL string) *APIClient {
	return &APIClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout: 5 * time.Minute,
		},
	}
}

// APIResponse represents the standard API response format.
type APIResponse struct {
	Data  json.RawMessage `json:"data,omitempty"`
	Error string          `json:"error,omitempty"`
	Code  string          `json:"code,omitempty"`
}

// APIError is a non-2xx answer. Code is the server's domain error code, if
// it sent one.
type APIError struct {
	StatusCode int
	Code       string
	Message    string
}

func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("API error (%d %s): %s", e.StatusCode, e.Code, e.Message)
	}
	return fmt.Sprintf("API error (%d): %s", e.StatusCode, e.Message)
}

// Job mirrors the server's import job
type Job struct {
	ID          string  `json:"id"`
	UploadID    string  `json:"upload_id"`
	Status      string  `json:"status"`
	UseLLM      bool    `json:"use_llm"`
	Force       bool    `json:"force"`
	Retries     int32   `json:"retries"`
	Error       string  `json:"error,omitempty"`
	RowsCreated int     `json:"rows_created"`
	CreatedAt   string  `json:"created_at"`
	ProcessedAt *string `json:"processed_at,omitempty"`
}

// Done reports whether the job reached a final state
func (j *Job) Done() bool {
	return j.Status == "completed" || j.Status == "failed"
}

// HistoryPage mirrors one page of project history
type HistoryPage struct {
	Items   []json.RawMessage `json:"items"`
	Cursor  string            `json:"cursor,omitempty"`
	HasMore bool              `json:"has_more"`
}

// ReportOptions are the form fields sent with a report upload
type ReportOptions struct {
	UseLLM    bool
	Force     bool
	CreatedBy string
	CWLabel   string
	Category  string
}

// SubmitReport uploads a report for asynchronous import
func (c *APIClient) SubmitReport(ctx context.Context, filename string, data []byte, opts ReportOptions, onProgress ProgressFunc) (*Job, error) {
	fields := map[string]string{
		"use_llm":    strconv.FormatBool(opts.UseLLM),
		"force":      strconv.FormatBool(opts.Force),
		"created_by": opts.CreatedBy,
	}
	var job Job
	if err := c.upload(ctx, "/reports", filename, data, fields, onProgress, &job); err != nil {
		return nil, err
	}
	return &job, nil
}

// ExtractReport runs a server-side extraction without persisting. The
// result is returned as the server encoded it.
func (c *APIClient) ExtractReport(ctx context.Context, filename string, data []byte, opts ReportOptions) (json.RawMessage, error) {
	fields := map[string]string{
		"use_llm":  strconv.FormatBool(opts.UseLLM),
		"cw":       opts.CWLabel,
		"category": opts.Category,
	}
	var out json.RawMessage
	if err := c.upload(ctx, "/reports/extract", filename, data, fields, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// GetJob fetches an import job
func (c *APIClient) GetJob(ctx context.Context, id string) (*Job, error) {
	var job Job
	if err := c.get(ctx, "/jobs/"+url.PathEscape(id), &job); err != nil {
		return nil, err
	}
	return &job, nil
}

// WaitJob polls a job until it is completed or failed
func (c *APIClient) WaitJob(ctx context.Context, id string, interval time.Duration) (*Job, error) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		job, err := c.GetJob(ctx, id)
		if err != nil {
			return nil, err
		}
		if job.Done() {
			return job, nil
		}
		select {
		case <-ctx.Done():
			return job, ctx.Err()
		case <-ticker.C:
		}
	}
}

// ProjectHistory fetches one page of a project's history
func (c *APIClient) ProjectHistory(ctx context.Context, code, cursor string, limit int) (*HistoryPage, error) {
	q := url.Values{}
	if cursor != "" {
		q.Set("cursor", cursor)
	}
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}
	path := "/projects/" + url.PathEscape(code) + "/history"
	if len(q) > 0 {
		path += "?" + q.Encode()
	}

	var page HistoryPage
	if err := c.get(ctx, path, &page); err != nil {
		return nil, err
	}
	return &page, nil
}

func (c *APIClient) get(ctx context.Context, path string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	return c.do(req, out)
}

func (c *APIClient) upload(ctx context.Context, path, filename string, data []byte, fields map[string]string, onProgress ProgressFunc, out interface{}) error {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", filepath.Base(filename))
	if err != nil {
		return fmt.Errorf("failed to build upload: %w", err)
	}
	if _, err := fw.Write(data); err != nil {
		return fmt.Errorf("failed to build upload: %w", err)
	}
	for k, v := range fields {
		if v == "" {
			continue
		}
		if err := mw.WriteField(k, v); err != nil {
			return fmt.Errorf("failed to build upload: %w", err)
		}
	}
	if err := mw.Close(); err != nil {
		return fmt.Errorf("failed to build upload: %w", err)
	}

	size := int64(buf.Len())
	var body io.Reader = &buf
	if onProgress != nil {
		body = &progressReader{reader: &buf, total: size, onProgress: onProgress}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.ContentLength = size
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return c.do(req, out)
}

func (c *APIClient) do(req *http.Request, out interface{}) error {
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}

	var apiResp APIResponse
	if err := json.Unmarshal(respBody, &apiResp); err != nil {
		if resp.StatusCode >= 400 {
			return &APIError{StatusCode: resp.StatusCode, Message: strings.TrimSpace(string(respBody))}
		}
		return fmt.Errorf("failed to parse response: %w", err)
	}

	if resp.StatusCode >= 400 {
		return &APIError{StatusCode: resp.StatusCode, Code: apiResp.Code, Message: apiResp.Error}
	}

	if out != nil && len(apiResp.Data) > 0 {
		if err := json.Unmarshal(apiResp.Data, out); err != nil {
			return fmt.Errorf("failed to parse response data: %w", err)
		}
	}
	return nil
}

// ProgressFunc is a callback for reporting upload progress.
type ProgressFunc func(current, total int64)

// progressReader wraps an io.Reader and reports progress.
type progressReader struct {
	reader     io.Reader
	total      int64
	current    int64
	onProgress ProgressFunc
}

func (pr *progressReader) Read(p []byte) (int, error) {
	n, err := pr.reader.Read(p)
	pr.current += int64(n)
	if pr.onProgress != nil {
		pr.onProgress(pr.current, pr.total)
	}
	return n, err
}

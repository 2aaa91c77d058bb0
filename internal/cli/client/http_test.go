package client

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProgressReader_ReportsProgress(t *testing.T) {
	data := []byte("hello world this is test data")

	var progressCalls []struct{ current, total int64 }
	pr := &progressReader{
		reader: bytes.NewReader(data),
		total:  int64(len(data)),
		onProgress: func(current, total int64) {
			progressCalls = append(progressCalls, struct{ current, total int64 }{current, total})
		},
	}

	result, err := io.ReadAll(pr)
	require.NoError(t, err)
	assert.Equal(t, data, result)
	require.NotEmpty(t, progressCalls)

	lastCall := progressCalls[len(progressCalls)-1]
	assert.Equal(t, int64(len(data)), lastCall.current)
	assert.Equal(t, int64(len(data)), lastCall.total)
}

func TestProgressReader_NilCallback(t *testing.T) {
	data := []byte("hello world")
	pr := &progressReader{reader: bytes.NewReader(data), total: int64(len(data))}

	result, err := io.ReadAll(pr)
	require.NoError(t, err)
	assert.Equal(t, data, result)
}

func writeData(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]interface{}{"data": v})
}

func TestSubmitReport(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/reports", r.URL.Path)
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))

		require.NoError(t, r.ParseMultipartForm(1<<20))
		file, header, err := r.FormFile("file")
		require.NoError(t, err)
		defer file.Close()
		body, _ := io.ReadAll(file)

		assert.Equal(t, "2025_CW07_DEV.txt", header.Filename)
		assert.Equal(t, "Alpha\n", string(body))
		assert.Equal(t, "true", r.FormValue("use_llm"))
		assert.Equal(t, "false", r.FormValue("force"))
		assert.Equal(t, "", r.FormValue("created_by"))

		writeData(w, http.StatusAccepted, Job{ID: "job-1", UploadID: "up-1", Status: "pending"})
	}))
	defer srv.Close()

	var lastProgress int64
	api := NewAPIClientWithConfig("secret", srv.URL+"/")
	job, err := api.SubmitReport(context.Background(), "/tmp/reports/2025_CW07_DEV.txt", []byte("Alpha\n"),
		ReportOptions{UseLLM: true}, func(current, _ int64) { lastProgress = current })
	require.NoError(t, err)
	assert.Equal(t, "job-1", job.ID)
	assert.False(t, job.Done())
	assert.Positive(t, lastProgress)
}

func TestAPIErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/jobs/plain" {
			http.Error(w, "gateway down", http.StatusBadGateway)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"error":"import job not found","code":"NOT_FOUND"}`))
	}))
	defer srv.Close()

	api := NewAPIClientWithConfig("", srv.URL)

	_, err := api.GetJob(context.Background(), "missing")
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusNotFound, apiErr.StatusCode)
	assert.Equal(t, "import job not found", apiErr.Message)
	assert.Equal(t, "NOT_FOUND", apiErr.Code)
	assert.Contains(t, apiErr.Error(), "404 NOT_FOUND")

	_, err = api.GetJob(context.Background(), "plain")
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusBadGateway, apiErr.StatusCode)
	assert.Equal(t, "gateway down", apiErr.Message)
}

func TestWaitJob(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		status := "processing"
		if atomic.AddInt32(&calls, 1) >= 3 {
			status = "completed"
		}
		writeData(w, http.StatusOK, Job{ID: "job-1", Status: status, RowsCreated: 3})
	}))
	defer srv.Close()

	job, err := NewAPIClientWithConfig("", srv.URL).WaitJob(context.Background(), "job-1", 5*time.Millisecond)
	require.NoError(t, err)
	assert.Equal(t, "completed", job.Status)
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
}

func TestWaitJob_ContextCancelled(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeData(w, http.StatusOK, Job{ID: "job-1", Status: "pending"})
	}))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()

	_, err := NewAPIClientWithConfig("", srv.URL).WaitJob(ctx, "job-1", 5*time.Millisecond)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestProjectHistory(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/projects/P%2F1/history", r.URL.EscapedPath())
		assert.Equal(t, "abc", r.URL.Query().Get("cursor"))
		assert.Equal(t, "5", r.URL.Query().Get("limit"))
		writeData(w, http.StatusOK, map[string]interface{}{
			"items":    []map[string]string{{"id": "h1"}},
			"cursor":   "next",
			"has_more": true,
		})
	}))
	defer srv.Close()

	page, err := NewAPIClientWithConfig("", srv.URL).ProjectHistory(context.Background(), "P/1", "abc", 5)
	require.NoError(t, err)
	assert.True(t, page.HasMore)
	assert.Equal(t, "next", page.Cursor)
	require.Len(t, page.Items, 1)
	assert.JSONEq(t, `{"id":"h1"}`, string(page.Items[0]))
}

package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/cloo-solutions/statusdigest/internal/api/middleware"
	"github.com/cloo-solutions/statusdigest/internal/domain"
	"github.com/cloo-solutions/statusdigest/internal/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

const sampleReport = "Solar Park Alpha\n- Grid connection approved.\n"

func multipartRequest(t *testing.T, url, filename string, content []byte, fields map[string]string) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	if filename != "" {
		fw, err := mw.CreateFormFile("file", filename)
		require.NoError(t, err)
		_, err = fw.Write(content)
		require.NoError(t, err)
	}
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, url, &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

type envelope[T any] struct {
	Data  T      `json:"data"`
	Error string `json:"error"`
}

func TestReportHandler_Submit(t *testing.T) {
	jobs := new(MockReportSubmitter)
	handler := NewReportHandler(jobs, nil)

	created := time.Date(2025, 2, 12, 9, 0, 0, 0, time.UTC)
	jobs.On("Submit", mock.Anything, service.SubmitInput{
		Filename:  "2025_CW07_DEV.txt",
		Data:      []byte(sampleReport),
		UseLLM:    true,
		Force:     false,
		CreatedBy: "ops",
	}).Return(&domain.ImportJob{
		ID:        "job-1",
		UploadID:  "upload-1",
		UseLLM:    true,
		Status:    domain.ImportJobStatusPending,
		CreatedAt: created,
	}, nil)

	req := multipartRequest(t, "/reports", "2025_CW07_DEV.txt", []byte(sampleReport), map[string]string{"use_llm": "true"})
	req = req.WithContext(contextWithPrincipal(req, "ops"))
	w := httptest.NewRecorder()

	handler.Submit(w, req)

	assert.Equal(t, http.StatusAccepted, w.Code)
	assert.Equal(t, "upload-1", w.Header().Get("X-Upload-ID"))
	var resp envelope[JobResponse]
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "job-1", resp.Data.ID)
	assert.Equal(t, "pending", resp.Data.Status)
	assert.Equal(t, "2025-02-12T09:00:00Z", resp.Data.CreatedAt)
	assert.Nil(t, resp.Data.ProcessedAt)
	jobs.AssertExpectations(t)
}

func TestReportHandler_Submit_ExplicitCreatedBy(t *testing.T) {
	jobs := new(MockReportSubmitter)
	handler := NewReportHandler(jobs, nil)

	jobs.On("Submit", mock.Anything, mock.MatchedBy(func(in service.SubmitInput) bool {
		return in.CreatedBy == "alice" && in.Force && !in.UseLLM
	})).Return(&domain.ImportJob{ID: "job-2", UploadID: "u", Status: domain.ImportJobStatusPending}, nil)

	req := multipartRequest(t, "/reports", "2025_CW07_DEV.txt", []byte(sampleReport), map[string]string{"force": "1", "created_by": "alice"})
	w := httptest.NewRecorder()

	handler.Submit(w, req)

	assert.Equal(t, http.StatusAccepted, w.Code)
	jobs.AssertExpectations(t)
}

func TestReportHandler_Submit_Rejects(t *testing.T) {
	tests := []struct {
		name     string
		filename string
		content  []byte
		fields   map[string]string
		contains string
	}{
		{"missing file", "", nil, nil, "file is required"},
		{"unsupported type", "report.pdf", []byte("x"), nil, "unsupported document type"},
		{"empty file", "2025_CW07_DEV.txt", []byte{}, nil, "file is empty"},
		{"bad boolean", "2025_CW07_DEV.txt", []byte(sampleReport), map[string]string{"use_llm": "maybe"}, "use_llm must be a boolean"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			jobs := new(MockReportSubmitter)
			handler := NewReportHandler(jobs, nil)

			w := httptest.NewRecorder()
			handler.Submit(w, multipartRequest(t, "/reports", tt.filename, tt.content, tt.fields))

			assert.Equal(t, http.StatusBadRequest, w.Code)
			assert.Contains(t, w.Body.String(), tt.contains)
			jobs.AssertNotCalled(t, "Submit", mock.Anything, mock.Anything)
		})
	}
}

func TestReportHandler_Submit_ServiceErrors(t *testing.T) {
	jobs := new(MockReportSubmitter)
	handler := NewReportHandler(jobs, nil)
	jobs.On("Submit", mock.Anything, mock.Anything).Return(nil, domain.ErrInvalidFilename)

	w := httptest.NewRecorder()
	handler.Submit(w, multipartRequest(t, "/reports", "notes.txt", []byte(sampleReport), nil))

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "invalid report filename")
}

func TestReportHandler_Extract(t *testing.T) {
	extractor := new(MockRowExtractor)
	handler := NewReportHandler(nil, extractor)

	rows := []domain.ExtractedRow{{ProjectName: "Solar Park Alpha", Summary: "Grid connection approved."}}
	extractor.On("Extract", mock.Anything, mock.Anything, "CW07", domain.Category("Development"), false).Return(rows, nil)

	w := httptest.NewRecorder()
	handler.Extract(w, multipartRequest(t, "/reports/extract", "2025_CW07_DEV.txt", []byte(sampleReport), nil))

	assert.Equal(t, http.StatusOK, w.Code)
	var resp envelope[ExtractResponse]
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "CW07", resp.Data.CWLabel)
	assert.Equal(t, "Development", resp.Data.Category)
	require.Len(t, resp.Data.Rows, 1)
	assert.Equal(t, "Solar Park Alpha", resp.Data.Rows[0].ProjectName)
	extractor.AssertExpectations(t)
}

func TestReportHandler_Extract_Overrides(t *testing.T) {
	extractor := new(MockRowExtractor)
	handler := NewReportHandler(nil, extractor)

	extractor.On("Extract", mock.Anything, mock.Anything, "CW03", domain.Category("EPC"), true).Return(nil, nil)

	w := httptest.NewRecorder()
	handler.Extract(w, multipartRequest(t, "/reports/extract", "weekly.md", []byte("# Solar Park Alpha\n\nOn track.\n"),
		map[string]string{"cw": "3", "category": "EPC", "use_llm": "true"}))

	assert.Equal(t, http.StatusOK, w.Code)
	var resp envelope[ExtractResponse]
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.NotNil(t, resp.Data.Rows)
	assert.Empty(t, resp.Data.Rows)
	extractor.AssertExpectations(t)
}

func TestReportHandler_Extract_LLMNotConfigured(t *testing.T) {
	extractor := new(MockRowExtractor)
	handler := NewReportHandler(nil, extractor)

	extractor.On("Extract", mock.Anything, mock.Anything, "CW07", mock.Anything, true).Return(nil, domain.ErrLLMNotConfigured)

	w := httptest.NewRecorder()
	handler.Extract(w, multipartRequest(t, "/reports/extract", "2025_CW07_DEV.txt", []byte(sampleReport), map[string]string{"use_llm": "true"}))

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestReportHandler_Extract_UnparseableFilename(t *testing.T) {
	extractor := new(MockRowExtractor)
	handler := NewReportHandler(nil, extractor)

	w := httptest.NewRecorder()
	handler.Extract(w, multipartRequest(t, "/reports/extract", "weekly.txt", []byte(sampleReport), nil))

	assert.Equal(t, http.StatusBadRequest, w.Code)
	extractor.AssertNotCalled(t, "Extract", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func contextWithPrincipal(r *http.Request, principal string) context.Context {
	return context.WithValue(r.Context(), middleware.PrincipalKey, principal)
}

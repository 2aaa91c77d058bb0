package handlers

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strconv"
	"time"

	"github.com/cloo-solutions/statusdigest/internal/api"
	"github.com/cloo-solutions/statusdigest/internal/api/middleware"
	"github.com/cloo-solutions/statusdigest/internal/document"
	"github.com/cloo-solutions/statusdigest/internal/domain"
	"github.com/cloo-solutions/statusdigest/internal/extract"
	"github.com/cloo-solutions/statusdigest/internal/service"
)

const multipartMemory = 8 << 20

type ReportSubmitter interface {
	Submit(ctx context.Context, input service.SubmitInput) (*domain.ImportJob, error)
}

type RowExtractor interface {
	Extract(ctx context.Context, blocks []domain.Block, cwLabel string, category domain.Category, useLLM bool) ([]domain.ExtractedRow, error)
}

type ReportHandler struct {
	jobs      ReportSubmitter
	extractor RowExtractor
}

func NewReportHandler(jobs ReportSubmitter, extractor RowExtractor) *ReportHandler {
	return &ReportHandler{jobs: jobs, extractor: extractor}
}

type JobResponse struct {
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

func jobToResponse(j *domain.ImportJob) *JobResponse {
	resp := &JobResponse{
		ID:          j.ID,
		UploadID:    j.UploadID,
		Status:      string(j.Status),
		UseLLM:      j.UseLLM,
		Force:       j.Force,
		Retries:     j.Retries,
		Error:       j.Error,
		RowsCreated: j.RowsCreated,
		CreatedAt:   j.CreatedAt.UTC().Format(time.RFC3339),
	}
	if j.ProcessedAt != nil {
		ts := j.ProcessedAt.UTC().Format(time.RFC3339)
		resp.ProcessedAt = &ts
	}
	return resp
}

type ExtractResponse struct {
	Filename string                `json:"filename"`
	CWLabel  string                `json:"cw_label"`
	Category string                `json:"category"`
	UseLLM   bool                  `json:"use_llm"`
	Rows     []domain.ExtractedRow `json:"rows"`
}

// Submit stages the uploaded report and queues it for import
func (h *ReportHandler) Submit(w http.ResponseWriter, r *http.Request) {
	filename, data, ok := readUpload(w, r)
	if !ok {
		return
	}

	useLLM, err := formBool(r, "use_llm")
	if err != nil {
		api.Error(w, http.StatusBadRequest, "use_llm must be a boolean")
		return
	}
	force, err := formBool(r, "force")
	if err != nil {
		api.Error(w, http.StatusBadRequest, "force must be a boolean")
		return
	}

	createdBy := r.FormValue("created_by")
	if createdBy == "" {
		createdBy = middleware.GetPrincipal(r.Context())
	}

	job, err := h.jobs.Submit(r.Context(), service.SubmitInput{
		Filename:  filename,
		Data:      data,
		UseLLM:    useLLM,
		Force:     force,
		CreatedBy: createdBy,
	})
	if err != nil {
		api.HandleError(w, err)
		return
	}

	w.Header().Set("X-Upload-ID", job.UploadID)
	api.Success(w, http.StatusAccepted, jobToResponse(job))
}

// Extract runs extraction on the uploaded report and returns the rows
// without persisting anything
func (h *ReportHandler) Extract(w http.ResponseWriter, r *http.Request) {
	filename, data, ok := readUpload(w, r)
	if !ok {
		return
	}

	useLLM, err := formBool(r, "use_llm")
	if err != nil {
		api.Error(w, http.StatusBadRequest, "use_llm must be a boolean")
		return
	}

	meta, err := extract.ResolveMeta(filename, r.FormValue("cw"), r.FormValue("category"))
	if err != nil {
		api.HandleError(w, err)
		return
	}

	blocks, err := document.Extract(filename, data)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	rows, err := h.extractor.Extract(r.Context(), blocks, meta.CWLabel, meta.Category, useLLM)
	if err != nil {
		api.HandleError(w, err)
		return
	}
	if rows == nil {
		rows = []domain.ExtractedRow{}
	}

	api.Success(w, http.StatusOK, &ExtractResponse{
		Filename: filename,
		CWLabel:  meta.CWLabel,
		Category: string(meta.Category),
		UseLLM:   useLLM,
		Rows:     rows,
	})
}

func readUpload(w http.ResponseWriter, r *http.Request) (string, []byte, bool) {
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			api.HandleError(w, domain.ErrUploadTooLarge.WithCause(fmt.Errorf("limit is %d bytes", maxErr.Limit)))
			return "", nil, false
		}
		api.Error(w, http.StatusBadRequest, "invalid multipart form")
		return "", nil, false
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		api.Error(w, http.StatusBadRequest, "file is required")
		return "", nil, false
	}
	defer file.Close()

	filename := filepath.Base(header.Filename)
	if !document.Supported(filename) {
		api.Error(w, http.StatusBadRequest, "unsupported document type")
		return "", nil, false
	}

	data, err := io.ReadAll(file)
	if err != nil {
		api.Error(w, http.StatusBadRequest, "failed to read file")
		return "", nil, false
	}
	if len(data) == 0 {
		api.Error(w, http.StatusBadRequest, "file is empty")
		return "", nil, false
	}
	return filename, data, true
}

func formBool(r *http.Request, key string) (bool, error) {
	v := r.FormValue(key)
	if v == "" {
		return false, nil
	}
	return strconv.ParseBool(v)
}

package handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/cloo-solutions/statusdigest/internal/api"
	"github.com/cloo-solutions/statusdigest/internal/domain"
	"github.com/cloo-solutions/statusdigest/internal/pagination"
	"github.com/cloo-solutions/statusdigest/internal/service"
	"github.com/go-chi/chi/v5"
)

type ProjectService interface {
	List(ctx context.Context) ([]*domain.Project, error)
	Reload(ctx context.Context) (domain.KnowledgeBase, error)
	ListHistory(ctx context.Context, input service.ListHistoryInput) (*service.HistoryPage, error)
}

type ProjectHandler struct {
	svc ProjectService
}

func NewProjectHandler(svc ProjectService) *ProjectHandler {
	return &ProjectHandler{svc: svc}
}

type ProjectResponse struct {
	Code    string `json:"code"`
	Name    string `json:"name"`
	Cluster string `json:"cluster,omitempty"`
	Active  bool   `json:"active"`
	Virtual bool   `json:"virtual"`
}

type ReloadResponse struct {
	Projects int `json:"projects"`
	Clusters int `json:"clusters"`
}

type HistoryResponse struct {
	ID             string  `json:"id"`
	ProjectCode    string  `json:"project_code"`
	ProjectName    string  `json:"project_name"`
	Category       *string `json:"category"`
	EntryType      string  `json:"entry_type"`
	LogDate        string  `json:"log_date"`
	CWLabel        string  `json:"cw_label"`
	Title          *string `json:"title"`
	Summary        string  `json:"summary"`
	NextActions    *string `json:"next_actions"`
	Owner          *string `json:"owner"`
	SourceUploadID string  `json:"source_upload_id"`
	CreatedBy      string  `json:"created_by"`
	CreatedAt      string  `json:"created_at"`
}

func historyToResponse(h *domain.ProjectHistory) HistoryResponse {
	resp := HistoryResponse{
		ID:             h.ID,
		ProjectCode:    h.ProjectCode,
		ProjectName:    h.ProjectName,
		EntryType:      h.EntryType,
		LogDate:        h.LogDate.Format("2006-01-02"),
		CWLabel:        h.CWLabel,
		Title:          h.Title,
		Summary:        h.Summary,
		NextActions:    h.NextActions,
		Owner:          h.Owner,
		SourceUploadID: h.SourceUploadID,
		CreatedBy:      h.CreatedBy,
		CreatedAt:      h.CreatedAt.UTC().Format(time.RFC3339),
	}
	if h.Category != nil {
		c := string(*h.Category)
		resp.Category = &c
	}
	return resp
}

func (h *ProjectHandler) List(w http.ResponseWriter, r *http.Request) {
	projects, err := h.svc.List(r.Context())
	if err != nil {
		api.HandleError(w, err)
		return
	}

	resp := make([]ProjectResponse, 0, len(projects))
	for _, p := range projects {
		resp = append(resp, ProjectResponse{
			Code:    p.Code,
			Name:    p.Name,
			Cluster: p.Cluster,
			Active:  p.Active,
			Virtual: p.IsVirtual(),
		})
	}
	api.Success(w, http.StatusOK, resp)
}

func (h *ProjectHandler) Reload(w http.ResponseWriter, r *http.Request) {
	kb, err := h.svc.Reload(r.Context())
	if err != nil {
		api.HandleError(w, err)
		return
	}
	api.Success(w, http.StatusOK, ReloadResponse{
		Projects: len(kb.Projects),
		Clusters: len(kb.ClusterNames),
	})
}

func (h *ProjectHandler) History(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			api.Error(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = n
	}

	page, err := h.svc.ListHistory(r.Context(), service.ListHistoryInput{
		ProjectCode: chi.URLParam(r, "code"),
		Cursor:      r.URL.Query().Get("cursor"),
		Limit:       limit,
	})
	if err != nil {
		if errors.Is(err, pagination.ErrInvalidCursor) {
			api.Error(w, http.StatusBadRequest, "invalid cursor")
			return
		}
		api.HandleError(w, err)
		return
	}

	items := make([]HistoryResponse, 0, len(page.Items))
	for _, item := range page.Items {
		items = append(items, historyToResponse(item))
	}
	api.Success(w, http.StatusOK, pagination.PageResult[HistoryResponse]{
		Items:   items,
		Cursor:  page.NextCursor,
		HasMore: page.HasMore,
	})
}

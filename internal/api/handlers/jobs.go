package handlers

import (
	"context"
	"net/http"

	"github.com/cloo-solutions/statusdigest/internal/api"
	"github.com/cloo-solutions/statusdigest/internal/domain"
	"github.com/go-chi/chi/v5"
)

type JobGetter interface {
	Get(ctx context.Context, id string) (*domain.ImportJob, error)
}

type JobHandler struct {
	svc JobGetter
}

func NewJobHandler(svc JobGetter) *JobHandler {
	return &JobHandler{svc: svc}
}

func (h *JobHandler) Get(w http.ResponseWriter, r *http.Request) {
	job, err := h.svc.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		api.HandleError(w, err)
		return
	}
	api.Success(w, http.StatusOK, jobToResponse(job))
}

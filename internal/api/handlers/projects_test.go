package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/cloo-solutions/statusdigest/internal/domain"
	"github.com/cloo-solutions/statusdigest/internal/pagination"
	"github.com/cloo-solutions/statusdigest/internal/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestProjectHandler_List(t *testing.T) {
	svc := new(MockProjectService)
	handler := NewProjectHandler(svc)

	svc.On("List", mock.Anything).Return([]*domain.Project{
		{Code: "P001", Name: "Solar Park Alpha", Cluster: "Iberia", Active: true},
		{Code: "VIRT_20250212_e869fb71", Name: "Unknown Site", Active: true},
	}, nil)

	w := httptest.NewRecorder()
	handler.List(w, httptest.NewRequest(http.MethodGet, "/projects", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	var resp envelope[[]ProjectResponse]
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp.Data, 2)
	assert.False(t, resp.Data[0].Virtual)
	assert.Equal(t, "Iberia", resp.Data[0].Cluster)
	assert.True(t, resp.Data[1].Virtual)
}

func TestProjectHandler_List_Empty(t *testing.T) {
	svc := new(MockProjectService)
	handler := NewProjectHandler(svc)
	svc.On("List", mock.Anything).Return([]*domain.Project{}, nil)

	w := httptest.NewRecorder()
	handler.List(w, httptest.NewRequest(http.MethodGet, "/projects", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"data":[]}`, w.Body.String())
}

func TestProjectHandler_Reload(t *testing.T) {
	svc := new(MockProjectService)
	handler := NewProjectHandler(svc)

	kb := domain.NewKnowledgeBase([]domain.KnowledgeEntry{
		{Code: "P1", Name: "Alpha", Cluster: "North", Active: true},
		{Code: "P2", Name: "Beta", Cluster: "North", Active: true},
		{Code: "P3", Name: "Gamma", Active: true},
	})
	svc.On("Reload", mock.Anything).Return(kb, nil)

	w := httptest.NewRecorder()
	handler.Reload(w, httptest.NewRequest(http.MethodPost, "/projects/reload", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"data":{"projects":3,"clusters":1}}`, w.Body.String())
}

func TestProjectHandler_Reload_NoDatabase(t *testing.T) {
	svc := new(MockProjectService)
	handler := NewProjectHandler(svc)
	svc.On("Reload", mock.Anything).Return(domain.KnowledgeBase{}, domain.ErrDatabaseNotConfigured)

	w := httptest.NewRecorder()
	handler.Reload(w, httptest.NewRequest(http.MethodPost, "/projects/reload", nil))

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestProjectHandler_History(t *testing.T) {
	svc := new(MockProjectService)
	handler := NewProjectHandler(svc)

	cat := domain.Category("Development")
	logDate := time.Date(2025, 2, 12, 0, 0, 0, 0, time.UTC)
	svc.On("ListHistory", mock.Anything, service.ListHistoryInput{
		ProjectCode: "P001",
		Cursor:      "abc",
		Limit:       5,
	}).Return(&service.HistoryPage{
		Items: []*domain.ProjectHistory{{
			ID:             "h1",
			ProjectCode:    "P001",
			ProjectName:    "Solar Park Alpha",
			Category:       &cat,
			EntryType:      domain.EntryTypeReport,
			LogDate:        logDate,
			CWLabel:        "CW07",
			Summary:        "Grid connection approved.",
			SourceUploadID: "upload-1",
			CreatedBy:      "system",
			CreatedAt:      logDate,
		}},
		NextCursor: "next",
		HasMore:    true,
	}, nil)

	req := withURLParam(httptest.NewRequest(http.MethodGet, "/projects/P001/history?cursor=abc&limit=5", nil), "code", "P001")
	w := httptest.NewRecorder()
	handler.History(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	var resp envelope[pagination.PageResult[HistoryResponse]]
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(t, resp.Data.HasMore)
	assert.Equal(t, "next", resp.Data.Cursor)
	require.Len(t, resp.Data.Items, 1)
	item := resp.Data.Items[0]
	assert.Equal(t, "2025-02-12", item.LogDate)
	require.NotNil(t, item.Category)
	assert.Equal(t, "Development", *item.Category)
	assert.Nil(t, item.Title)
}

func TestProjectHandler_History_Errors(t *testing.T) {
	tests := []struct {
		name   string
		query  string
		err    error
		status int
	}{
		{"bad limit", "?limit=zero", nil, http.StatusBadRequest},
		{"negative limit", "?limit=-1", nil, http.StatusBadRequest},
		{"bad cursor", "?cursor=%25%25", pagination.ErrInvalidCursor, http.StatusBadRequest},
		{"unknown project", "", domain.ErrProjectNotFound, http.StatusNotFound},
		{"storage failure", "", errors.New("conn reset"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := new(MockProjectService)
			handler := NewProjectHandler(svc)
			if tt.err != nil {
				svc.On("ListHistory", mock.Anything, mock.Anything).Return(nil, tt.err)
			}

			req := withURLParam(httptest.NewRequest(http.MethodGet, "/projects/P001/history"+tt.query, nil), "code", "P001")
			w := httptest.NewRecorder()
			handler.History(w, req)

			assert.Equal(t, tt.status, w.Code)
			if tt.err == nil {
				svc.AssertNotCalled(t, "ListHistory", mock.Anything, mock.Anything)
			}
		})
	}
}

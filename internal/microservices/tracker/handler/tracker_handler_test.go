package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"restaurant-pos/internal/domain"
	"restaurant-pos/internal/microservices/tracker/models"
)

type stubService struct {
	view     models.TableView
	found    bool
	err      error
	limit    int
	timeline []models.TableEvent
}

func (s *stubService) Apply(context.Context, models.TableEvent) error { return nil }

func (s *stubService) GetTableView(context.Context, string) (models.TableView, bool, error) {
	return s.view, s.found, s.err
}

func (s *stubService) GetTableTimeline(_ context.Context, _ string, limit, _ int) ([]models.TableEvent, error) {
	s.limit = limit
	return s.timeline, s.err
}

func serve(svc *stubService, path string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	Router(New(svc)).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec
}

func TestGetStatus(t *testing.T) {
	svc := &stubService{view: models.TableView{TableID: "T1", Status: domain.TablePaying}, found: true}
	rec := serve(svc, "/api/v1/tracking/tables/T1/status")
	require.Equal(t, http.StatusOK, rec.Code)

	var v models.TableView
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v))
	assert.Equal(t, domain.TablePaying, v.Status)

	assert.Equal(t, http.StatusNotFound, serve(&stubService{}, "/api/v1/tracking/tables/T2/status").Code)
	assert.Equal(t, http.StatusInternalServerError, serve(&stubService{err: errors.New("boom")}, "/api/v1/tracking/tables/T2/status").Code)
}

func TestGetTimelineClampsLimit(t *testing.T) {
	svc := &stubService{timeline: []models.TableEvent{{TableID: "T1", EventType: "bind"}}}
	rec := serve(svc, "/api/v1/tracking/tables/T1/timeline?limit=100000")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, maxTimelineLimit, svc.limit)

	serve(svc, "/api/v1/tracking/tables/T1/timeline")
	assert.Equal(t, 50, svc.limit)
}

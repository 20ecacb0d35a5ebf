package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"restaurant-pos/internal/common/clock"
	"restaurant-pos/internal/domain"
	"restaurant-pos/internal/metrics"
	"restaurant-pos/internal/pos/auth"
	"restaurant-pos/internal/pos/navguard"
	"restaurant-pos/internal/pos/terminal"
	"restaurant-pos/internal/repository"
)

type testServer struct {
	router http.Handler
	term   *terminal.Terminal
	loc    *navguard.Location
	store  *repository.Store
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	ctx := context.Background()
	store := repository.NewMemoryStore()
	require.NoError(t, store.Items.Create(ctx, domain.Item{ID: "A", Name: "Pizza", CategoryID: "food", Price: decimal.RequireFromString("10.00"), Active: true}))
	require.NoError(t, store.Items.Create(ctx, domain.Item{ID: "B", Name: "Cola", CategoryID: "drinks", Price: decimal.RequireFromString("5.00"), Active: true}))
	require.NoError(t, store.Tables.Create(ctx, domain.Table{ID: "T1", Name: "Window", Number: 1, Status: domain.TableAvailable}))

	clk := clock.NewFake(time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC))
	m := metrics.New()
	loc := navguard.NewLocation("/sale/table")
	term := terminal.New(terminal.Config{}, terminal.Deps{Store: store, Metrics: m, Location: loc, Clock: clk})
	require.NoError(t, term.RefreshTables(ctx))
	sess := auth.New(auth.Config{}, term, nil, nil, m, clk)

	h := New(term, sess, loc, store, nil)
	return &testServer{router: Router(h, m.Handler()), term: term, loc: loc, store: store}
}

func (s *testServer) do(t *testing.T, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder, v any) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), v))
}

func TestAddLinesOccupiesTable(t *testing.T) {
	s := newTestServer(t)

	require.Equal(t, http.StatusOK, s.do(t, http.MethodPost, "/api/v1/tables/T1/select", "").Code)
	s.do(t, http.MethodPost, "/api/v1/order/lines", `{"item_id":"A"}`)
	s.do(t, http.MethodPost, "/api/v1/order/lines", `{"item_id":"A"}`)
	rec := s.do(t, http.MethodPost, "/api/v1/order/lines", `{"item_id":"B"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp domain.OrderResponse
	decodeBody(t, rec, &resp)
	assert.True(t, resp.Dirty)
	assert.Len(t, resp.Order.Lines, 2)
	assert.True(t, resp.Totals.Subtotal.Equal(decimal.RequireFromString("25.00")))

	var list []domain.Table
	decodeBody(t, s.do(t, http.MethodGet, "/api/v1/tables", ""), &list)
	require.Len(t, list, 1)
	assert.Equal(t, domain.TableOccupied, list[0].Status)
}

func TestNavigationBlockAndConfirm(t *testing.T) {
	s := newTestServer(t)
	s.do(t, http.MethodPost, "/api/v1/tables/T1/select", "")
	s.do(t, http.MethodPost, "/api/v1/order/lines", `{"item_id":"A"}`)

	var nav domain.NavigateResponse
	decodeBody(t, s.do(t, http.MethodPost, "/api/v1/navigation/check", `{"current":"/sale/table","target":"/settings"}`), &nav)
	assert.False(t, nav.Allowed)

	var intent navguard.Intent
	decodeBody(t, s.do(t, http.MethodGet, "/api/v1/navigation/intent", ""), &intent)
	assert.True(t, intent.Pending)
	assert.Equal(t, "/settings", intent.TargetPath)

	rec := s.do(t, http.MethodPost, "/api/v1/navigation/confirm", "")
	require.Equal(t, http.StatusOK, rec.Code)
	decodeBody(t, rec, &nav)
	assert.Equal(t, "/settings", nav.Target)
	assert.Equal(t, "/settings", s.loc.Current())
	assert.False(t, s.term.IsDirty())

	tb, err := s.term.Table("T1")
	require.NoError(t, err)
	assert.Equal(t, domain.TableAvailable, tb.Status)
}

func TestConfirmWithoutIntentConflicts(t *testing.T) {
	s := newTestServer(t)
	rec := s.do(t, http.MethodPost, "/api/v1/navigation/confirm", "")
	assert.Equal(t, http.StatusConflict, rec.Code)

	var problem map[string]any
	decodeBody(t, rec, &problem)
	assert.Equal(t, "no_pending_intent", problem["type"])
}

func TestHistoryAndUnload(t *testing.T) {
	s := newTestServer(t)
	s.do(t, http.MethodPost, "/api/v1/order/lines", `{"item_id":"A"}`)

	var hist map[string][]string
	decodeBody(t, s.do(t, http.MethodGet, "/api/v1/navigation/history", ""), &hist)
	assert.Equal(t, []string{"/sale/table"}, hist["push"])

	var unload domain.UnloadResponse
	decodeBody(t, s.do(t, http.MethodGet, "/api/v1/navigation/unload", ""), &unload)
	assert.True(t, unload.Prompt)

	var back map[string]any
	decodeBody(t, s.do(t, http.MethodPost, "/api/v1/navigation/back", `{"target":"/home"}`), &back)
	assert.Equal(t, "absorbed", back["result"])
	assert.Equal(t, false, back["allowed"])
}

func TestReportedSaleRouteArmsBackGuard(t *testing.T) {
	s := newTestServer(t)
	s.loc.Set("/")
	require.Equal(t, http.StatusOK, s.do(t, http.MethodPost, "/api/v1/tables/T1/select", "").Code)
	s.do(t, http.MethodPost, "/api/v1/order/lines", `{"item_id":"A"}`)

	var hist map[string][]string
	decodeBody(t, s.do(t, http.MethodGet, "/api/v1/navigation/history", ""), &hist)
	assert.Empty(t, hist["push"], "home is not guarded")

	var unload domain.UnloadResponse
	decodeBody(t, s.do(t, http.MethodGet, "/api/v1/navigation/unload?current=/sale/table", ""), &unload)
	assert.True(t, unload.Prompt)

	decodeBody(t, s.do(t, http.MethodGet, "/api/v1/navigation/history", ""), &hist)
	assert.Equal(t, []string{"/sale/table"}, hist["push"])

	var back map[string]any
	decodeBody(t, s.do(t, http.MethodPost, "/api/v1/navigation/back", `{"target":"/home"}`), &back)
	assert.Equal(t, "absorbed", back["result"])
	assert.Equal(t, "/sale/table", s.loc.Current())
	assert.True(t, s.term.IsDirty())
}

func TestRouterWithoutSession(t *testing.T) {
	s := newTestServer(t)
	h := New(s.term, nil, s.loc, s.store, nil)
	router := Router(h, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/order/lines", strings.NewReader(`{"item_id":"A"}`))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/session/", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestFinalizeEndpoint(t *testing.T) {
	s := newTestServer(t)
	s.do(t, http.MethodPost, "/api/v1/order/lines", `{"item_id":"B"}`)

	rec := s.do(t, http.MethodPost, "/api/v1/order/finalize", `{"method":"cash","tendered":"10.00"}`)
	require.Equal(t, http.StatusCreated, rec.Code)

	var resp domain.FinalizeResponse
	decodeBody(t, rec, &resp)
	assert.NotEmpty(t, resp.SaleID)
	assert.True(t, resp.Change.Equal(decimal.RequireFromString("5.00")))
}

func TestFinalizeReportsUnsavedSale(t *testing.T) {
	s := newTestServer(t)
	s.store.Sales.(*repository.MemorySales).Err = errors.New("db down")
	s.do(t, http.MethodPost, "/api/v1/order/lines", `{"item_id":"A"}`)

	rec := s.do(t, http.MethodPost, "/api/v1/order/finalize", `{"method":"card"}`)
	require.Equal(t, http.StatusCreated, rec.Code)

	var resp domain.FinalizeResponse
	decodeBody(t, rec, &resp)
	assert.NotEmpty(t, resp.SaleID)
	assert.True(t, resp.RemoteWriteFailed)
	require.Len(t, resp.Warnings, 1)
	assert.Contains(t, resp.Warnings[0], "db down")
	assert.False(t, s.term.IsDirty(), "sale stays closed locally")
}

func TestFinalizeValidation(t *testing.T) {
	s := newTestServer(t)
	assert.Equal(t, http.StatusUnprocessableEntity, s.do(t, http.MethodPost, "/api/v1/order/finalize", `{"method":"card"}`).Code)
	assert.Equal(t, http.StatusBadRequest, s.do(t, http.MethodPost, "/api/v1/order/finalize", `{"method":"barter"}`).Code)
	assert.Equal(t, http.StatusBadRequest, s.do(t, http.MethodPost, "/api/v1/order/finalize", `{`).Code)
}

func TestLineErrors(t *testing.T) {
	s := newTestServer(t)
	assert.Equal(t, http.StatusNotFound, s.do(t, http.MethodPost, "/api/v1/order/lines", `{"item_id":"ghost"}`).Code)
	assert.Equal(t, http.StatusBadRequest, s.do(t, http.MethodPost, "/api/v1/order/lines", `{}`).Code)

	s.do(t, http.MethodPost, "/api/v1/order/lines", `{"item_id":"A"}`)
	assert.Equal(t, http.StatusUnprocessableEntity, s.do(t, http.MethodPatch, "/api/v1/order/lines/A", `{"quantity":-2}`).Code)
	assert.Equal(t, http.StatusOK, s.do(t, http.MethodPatch, "/api/v1/order/lines/A", `{"quantity":3}`).Code)
	assert.Equal(t, 3, s.term.Order().Lines[0].Quantity)
}

func TestDeleteOccupiedTableConflicts(t *testing.T) {
	s := newTestServer(t)
	s.do(t, http.MethodPost, "/api/v1/tables/T1/select", "")
	s.do(t, http.MethodPost, "/api/v1/order/lines", `{"item_id":"A"}`)

	assert.Equal(t, http.StatusConflict, s.do(t, http.MethodDelete, "/api/v1/tables/T1", "").Code)

	rec := s.do(t, http.MethodPost, "/api/v1/tables/T1/free", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var tb domain.Table
	decodeBody(t, rec, &tb)
	assert.Equal(t, domain.TableAvailable, tb.Status)

	assert.Equal(t, http.StatusNoContent, s.do(t, http.MethodDelete, "/api/v1/tables/T1", "").Code)
}

func TestSessionEndpoints(t *testing.T) {
	s := newTestServer(t)
	assert.Equal(t, http.StatusUnauthorized, s.do(t, http.MethodGet, "/api/v1/session", "").Code)

	require.Equal(t, http.StatusOK, s.do(t, http.MethodPost, "/api/v1/session/sign-in", `{"user_id":"u1","session_duration_minutes":5}`).Code)
	assert.Equal(t, http.StatusOK, s.do(t, http.MethodGet, "/api/v1/session", "").Code)
	assert.Equal(t, http.StatusOK, s.do(t, http.MethodPost, "/api/v1/session/extend", "").Code)

	s.do(t, http.MethodPost, "/api/v1/order/lines", `{"item_id":"A"}`)
	assert.Equal(t, http.StatusConflict, s.do(t, http.MethodPost, "/api/v1/session/sign-out", "").Code)

	require.Equal(t, http.StatusOK, s.do(t, http.MethodPost, "/api/v1/navigation/confirm", "").Code)
	assert.Equal(t, http.StatusUnauthorized, s.do(t, http.MethodGet, "/api/v1/session", "").Code)
	assert.Equal(t, auth.DefaultLogoutPath, s.loc.Current())
}

func TestCatalogAndMetrics(t *testing.T) {
	s := newTestServer(t)

	var items []domain.Item
	decodeBody(t, s.do(t, http.MethodGet, "/api/v1/items?category_id=drinks", ""), &items)
	require.Len(t, items, 1)
	assert.Equal(t, "B", items[0].ID)
	assert.Equal(t, http.StatusNotFound, s.do(t, http.MethodGet, "/api/v1/items/ghost", "").Code)

	rec := s.do(t, http.MethodGet, "/metrics", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "pos_tables")
	assert.Equal(t, http.StatusOK, s.do(t, http.MethodGet, "/health", "").Code)
}

func TestForcedMode(t *testing.T) {
	s := newTestServer(t)
	var resp domain.OrderResponse
	decodeBody(t, s.do(t, http.MethodPut, "/api/v1/forced-mode", `{"enabled":true}`), &resp)
	assert.True(t, resp.ForcedMode)
}

package fixture

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"

	"platen/internal/ledger"
)

func newMemEngine(t *testing.T) (*Handler, *gin.Engine) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	h := NewHandler(NewMemStore(), nil)
	return h, NewEngine(h)
}

func doJSON(t *testing.T, engine *gin.Engine, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)
	return w
}

func decodeDetail(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	var payload struct {
		Detail string `json:"detail"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &payload); err != nil {
		t.Fatalf("decode detail from %q: %v", w.Body.String(), err)
	}
	return payload.Detail
}

func excludeItems(source string, ids ...string) exclusionsPayload {
	payload := exclusionsPayload{Period: "2026-03", Source: source, Items: []ledger.ExclusionItem{}}
	for _, id := range ids {
		payload.Items = append(payload.Items, ledger.ExclusionItem{Source: source, OrderID: id})
	}
	return payload
}

func TestEngine_OrdersHydration(t *testing.T) {
	_, engine := newMemEngine(t)

	w := doJSON(t, engine, http.MethodGet, "/api/orders?period=2026-03", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}

	var resp ledger.OrdersResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Period != "2026-03" {
		t.Errorf("period = %q, want 2026-03", resp.Period)
	}
	if len(resp.Sources) != 2 || resp.Sources[0].Source != "amazon" || resp.Sources[1].Source != "rakuten" {
		t.Fatalf("sources = %+v, want amazon then rakuten", resp.Sources)
	}
	if len(resp.Sources[0].Orders) != 6 {
		t.Errorf("amazon orders = %d, want 6", len(resp.Sources[0].Orders))
	}
	if resp.Sources[0].Prepared || resp.Sources[0].Completed {
		t.Errorf("fresh channel flags = %+v, want unprepared", resp.Sources[0])
	}
	if first := resp.Sources[0].Orders[0]; first.OrderID != "A-1" || first.Excluded {
		t.Errorf("first order = %+v, want included A-1", first)
	}
}

func TestEngine_ExclusionsFullReplace(t *testing.T) {
	_, engine := newMemEngine(t)

	if w := doJSON(t, engine, http.MethodPost, "/api/exclusions", excludeItems("amazon", "A-2", "A-4")); w.Code != http.StatusNoContent {
		t.Fatalf("first persist status = %d, body = %s", w.Code, w.Body.String())
	}

	// A second persist with a different set replaces, never merges.
	if w := doJSON(t, engine, http.MethodPost, "/api/exclusions", excludeItems("amazon", "A-2")); w.Code != http.StatusNoContent {
		t.Fatalf("second persist status = %d, body = %s", w.Code, w.Body.String())
	}

	w := doJSON(t, engine, http.MethodGet, "/api/orders?period=2026-03", nil)
	var resp ledger.OrdersResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	for _, order := range resp.Channel("amazon").Orders {
		want := order.OrderID == "A-2"
		if order.Excluded != want {
			t.Errorf("order %s excluded = %v, want %v", order.OrderID, order.Excluded, want)
		}
	}
}

func TestEngine_PrintLifecycle(t *testing.T) {
	_, engine := newMemEngine(t)

	// Running before any prepare is a conflict.
	w := doJSON(t, engine, http.MethodPost, "/api/print/run", printPayload{Period: "2026-03", Source: "amazon"})
	if w.Code != http.StatusConflict {
		t.Fatalf("premature run status = %d, want 409", w.Code)
	}
	if d := decodeDetail(t, w); !strings.Contains(d, "no prepared batch") {
		t.Errorf("detail = %q, want no prepared batch", d)
	}

	if w := doJSON(t, engine, http.MethodPost, "/api/exclusions", excludeItems("amazon", "A-2")); w.Code != http.StatusNoContent {
		t.Fatalf("persist status = %d", w.Code)
	}

	w = doJSON(t, engine, http.MethodPost, "/api/print/prepare", printPayload{Period: "2026-03", Source: "amazon"})
	if w.Code != http.StatusOK {
		t.Fatalf("prepare status = %d, body = %s", w.Code, w.Body.String())
	}
	var prep ledger.PrepareResult
	if err := json.Unmarshal(w.Body.Bytes(), &prep); err != nil {
		t.Fatalf("decode prepare: %v", err)
	}
	if prep.Count != 5 {
		t.Errorf("prepare count = %d, want 5", prep.Count)
	}
	if prep.PrintCommand == "" {
		t.Error("prepare print_command is empty")
	}
	if prep.ExcludedPDFsURL == "" {
		t.Error("prepare excluded_pdfs_url is empty despite exclusions")
	}

	w = doJSON(t, engine, http.MethodPost, "/api/print/run", printPayload{Period: "2026-03", Source: "amazon"})
	if w.Code != http.StatusOK {
		t.Fatalf("run status = %d, body = %s", w.Code, w.Body.String())
	}
	var run ledger.RunResult
	if err := json.Unmarshal(w.Body.Bytes(), &run); err != nil {
		t.Fatalf("decode run: %v", err)
	}
	// A-4 is seeded without a receipt artifact and stays included.
	if run.Count != 5 || run.MissingCount != 1 {
		t.Errorf("run = %+v, want count 5 missing 1", run)
	}

	w = doJSON(t, engine, http.MethodPost, "/api/print/complete", printPayload{Period: "2026-03", Source: "amazon"})
	if w.Code != http.StatusOK {
		t.Fatalf("complete status = %d, body = %s", w.Code, w.Body.String())
	}
	var done ledger.CompleteResult
	if err := json.Unmarshal(w.Body.Bytes(), &done); err != nil {
		t.Fatalf("decode complete: %v", err)
	}
	if done.Count != 5 {
		t.Errorf("complete count = %d, want 5", done.Count)
	}

	w = doJSON(t, engine, http.MethodGet, "/api/orders?period=2026-03", nil)
	var resp ledger.OrdersResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode orders: %v", err)
	}
	amazon := resp.Channel("amazon")
	if !amazon.Prepared || !amazon.Completed {
		t.Errorf("amazon flags = %+v, want prepared and completed", amazon)
	}
	if rakuten := resp.Channel("rakuten"); rakuten.Prepared || rakuten.Completed {
		t.Errorf("rakuten flags = %+v, want untouched", rakuten)
	}
}

func TestEngine_ValidationErrors(t *testing.T) {
	_, engine := newMemEngine(t)

	tests := []struct {
		name       string
		method     string
		path       string
		body       any
		wantStatus int
		wantDetail string
	}{
		{
			name:       "orders without period",
			method:     http.MethodGet,
			path:       "/api/orders",
			wantStatus: http.StatusBadRequest,
			wantDetail: "period is required",
		},
		{
			name:       "orders with malformed period",
			method:     http.MethodGet,
			path:       "/api/orders?period=2026-13",
			wantStatus: http.StatusBadRequest,
			wantDetail: "period",
		},
		{
			name:       "exclusions for unknown source",
			method:     http.MethodPost,
			path:       "/api/exclusions",
			body:       excludeItems("yahoo"),
			wantStatus: http.StatusBadRequest,
			wantDetail: "unknown source",
		},
		{
			name:       "exclusions for unknown order",
			method:     http.MethodPost,
			path:       "/api/exclusions",
			body:       excludeItems("amazon", "A-99"),
			wantStatus: http.StatusBadRequest,
			wantDetail: "unknown order",
		},
		{
			name:   "exclusions with mismatched item source",
			method: http.MethodPost,
			path:   "/api/exclusions",
			body: exclusionsPayload{
				Period: "2026-03",
				Source: "amazon",
				Items:  []ledger.ExclusionItem{{Source: "rakuten", OrderID: "R-1"}},
			},
			wantStatus: http.StatusBadRequest,
			wantDetail: "does not match",
		},
		{
			name:       "prepare without source",
			method:     http.MethodPost,
			path:       "/api/print/prepare",
			body:       printPayload{Period: "2026-03"},
			wantStatus: http.StatusBadRequest,
			wantDetail: "source is required",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := doJSON(t, engine, tt.method, tt.path, tt.body)
			if w.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d (body %s)", w.Code, tt.wantStatus, w.Body.String())
			}
			if d := decodeDetail(t, w); !strings.Contains(d, tt.wantDetail) {
				t.Errorf("detail = %q, want substring %q", d, tt.wantDetail)
			}
		})
	}

	req := httptest.NewRequest(http.MethodPost, "/api/print/prepare", strings.NewReader("{not json"))
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("malformed json status = %d, want 400", w.Code)
	}
	if d := decodeDetail(t, w); d != "invalid json" {
		t.Errorf("detail = %q, want invalid json", d)
	}
}

func TestEngine_ForcedFailuresAreOneShot(t *testing.T) {
	h, engine := newMemEngine(t)

	if err := h.FailNext("prepare"); err != nil {
		t.Fatalf("FailNext(prepare) error = %v", err)
	}
	if err := h.FailNext("no-such-op"); err == nil {
		t.Error("FailNext(no-such-op) succeeded, want error")
	}

	w := doJSON(t, engine, http.MethodPost, "/api/print/prepare", printPayload{Period: "2026-03", Source: "amazon"})
	if w.Code != http.StatusInternalServerError {
		t.Fatalf("armed prepare status = %d, want 500", w.Code)
	}
	if d := decodeDetail(t, w); d != "forced prepare failure" {
		t.Errorf("detail = %q, want forced prepare failure", d)
	}

	w = doJSON(t, engine, http.MethodPost, "/api/print/prepare", printPayload{Period: "2026-03", Source: "amazon"})
	if w.Code != http.StatusOK {
		t.Errorf("second prepare status = %d, want 200", w.Code)
	}
}

func TestSQLStore_PersistsAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "fixture.db")

	store, err := OpenSQL(path)
	if err != nil {
		t.Fatalf("OpenSQL() error = %v", err)
	}
	if err := store.ReplaceExclusions("2026-03", "amazon", []string{"A-2", "A-5"}); err != nil {
		t.Fatalf("ReplaceExclusions() error = %v", err)
	}
	count, excluded, err := store.PrepareBatch("2026-03", "amazon")
	if err != nil {
		t.Fatalf("PrepareBatch() error = %v", err)
	}
	if count != 4 || excluded != 2 {
		t.Errorf("prepare = (%d, %d), want (4, 2)", count, excluded)
	}
	if err := store.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	reopened, err := OpenSQL(path)
	if err != nil {
		t.Fatalf("reopen error = %v", err)
	}
	defer reopened.Close()

	channels, err := reopened.Channels("2026-03")
	if err != nil {
		t.Fatalf("Channels() error = %v", err)
	}
	var amazon *Channel
	for i := range channels {
		if channels[i].Source == "amazon" {
			amazon = &channels[i]
		}
	}
	if amazon == nil {
		t.Fatal("amazon channel missing after reopen")
	}
	if !amazon.Prepared || amazon.Completed {
		t.Errorf("amazon flags = %+v, want prepared only", amazon)
	}
	excludedIDs := map[string]bool{}
	for _, order := range amazon.Orders {
		if order.Excluded {
			excludedIDs[order.OrderID] = true
		}
	}
	if len(excludedIDs) != 2 || !excludedIDs["A-2"] || !excludedIDs["A-5"] {
		t.Errorf("excluded ids = %v, want A-2 and A-5", excludedIDs)
	}

	runCount, missing, err := reopened.RunBatch("2026-03", "amazon")
	if err != nil {
		t.Fatalf("RunBatch() error = %v", err)
	}
	if runCount != 4 || missing != 1 {
		t.Errorf("run = (%d, %d), want (4, 1)", runCount, missing)
	}
}

func TestGatewayClientAgainstFixture(t *testing.T) {
	_, engine := newMemEngine(t)
	server := httptest.NewServer(engine)
	t.Cleanup(server.Close)

	client, err := ledger.NewClient(server.URL, "", nil)
	if err != nil {
		t.Fatalf("NewClient() error = %v", err)
	}
	ctx := context.Background()

	health, err := client.FetchHealth(ctx)
	if err != nil {
		t.Fatalf("FetchHealth() error = %v", err)
	}
	if !health.Healthy() || health.Version != "fixture" {
		t.Errorf("health = %+v, want ok/fixture", health)
	}

	// The conflict from a premature run surfaces as a typed API error.
	_, err = client.RunBulkPrint(ctx, "2026-03", "amazon")
	var apiErr *ledger.APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("RunBulkPrint() error = %v, want APIError", err)
	}
	if apiErr.Status != http.StatusConflict || !strings.Contains(apiErr.Detail, "no prepared batch") {
		t.Errorf("APIError = %+v, want 409 with batch detail", apiErr)
	}

	if err := client.PersistExclusions(ctx, "2026-03", "amazon", []ledger.ExclusionItem{
		{Source: "amazon", OrderID: "A-2"},
	}); err != nil {
		t.Fatalf("PersistExclusions() error = %v", err)
	}

	prep, err := client.PreparePrint(ctx, "2026-03", "amazon")
	if err != nil {
		t.Fatalf("PreparePrint() error = %v", err)
	}
	if prep.Count != 5 || prep.ExcludedPDFsURL == "" {
		t.Errorf("prepare = %+v, want count 5 with excluded url", prep)
	}

	run, err := client.RunBulkPrint(ctx, "2026-03", "amazon")
	if err != nil {
		t.Fatalf("RunBulkPrint() error = %v", err)
	}
	if run.Count != 5 || run.MissingCount != 1 {
		t.Errorf("run = %+v, want count 5 missing 1", run)
	}

	done, err := client.CompletePrint(ctx, "2026-03", "amazon")
	if err != nil {
		t.Fatalf("CompletePrint() error = %v", err)
	}
	if done.Count != 5 {
		t.Errorf("complete count = %d, want 5", done.Count)
	}

	orders, err := client.FetchOrders(ctx, "2026-03")
	if err != nil {
		t.Fatalf("FetchOrders() error = %v", err)
	}
	amazon := orders.Channel("amazon")
	if amazon == nil || !amazon.Prepared || !amazon.Completed {
		t.Errorf("amazon = %+v, want prepared and completed", amazon)
	}
	var excludedIDs []string
	for _, order := range amazon.Orders {
		if order.Excluded {
			excludedIDs = append(excludedIDs, order.OrderID)
		}
	}
	if len(excludedIDs) != 1 || excludedIDs[0] != "A-2" {
		t.Errorf("excluded ids = %v, want [A-2]", excludedIDs)
	}
}

package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"

	"SemaforoBot/internal/domain/models"
	domrepo "SemaforoBot/internal/domain/repository"
	"SemaforoBot/internal/repository"
	"SemaforoBot/internal/usecase"
	"SemaforoBot/pkg/logger"
	"SemaforoBot/pkg/store"
)

type fakeSource struct {
	metrics map[string]*models.AssetMetrics
}

func (f *fakeSource) Fetch(_ context.Context, asset string, _ domrepo.Timeframe) (*models.AssetMetrics, error) {
	m, ok := f.metrics[asset]
	if !ok {
		return nil, models.ErrSourceUnavailable
	}
	return m, nil
}

func calmMetrics(asset string) *models.AssetMetrics {
	return &models.AssetMetrics{
		Asset:              asset,
		FundingRate:        0.0001,
		OpenInterest:       10_000_000_000,
		OIChange24hPct:     0.5,
		LiquidationsUSD24h: 50_000_000,
		LongShortRatio:     1.0,
		Price:              65000,
		Volume24h:          20_000_000_000,
		Volatility:         0.05,
		CapturedAt:         time.Now().UTC(),
	}
}

func newTestServer(t *testing.T) (*echo.Echo, *fakeSource) {
	t.Helper()

	log, err := logger.New(&logger.Config{Level: "error"})
	if err != nil {
		t.Fatalf("logger: %v", err)
	}

	mem := store.NewMemoryStore()
	trades := repository.NewStoreTradeRepo(mem)
	analysis := repository.NewStoreAnalysisRepo(mem)

	src := &fakeSource{metrics: map[string]*models.AssetMetrics{
		"BTC": calmMetrics("BTC"),
		"ETH": calmMetrics("ETH"),
		"SOL": calmMetrics("SOL"),
	}}

	params := usecase.NewParamsHolder(context.Background(), models.DefaultRiskParams(), analysis, log)
	analyzer := usecase.NewAnalyzer(src, analysis, repository.NopHistory{}, repository.NopPublisher{}, params, repository.NopMetrics{}, log)
	machine := usecase.NewMachine(trades, repository.NopHistory{}, repository.NopPublisher{}, params, repository.NopMetrics{}, log)
	trader := usecase.NewTrader(analyzer, machine, params)

	health := func(context.Context) map[string]bool {
		return map[string]bool{"store": true}
	}
	h := NewSemaforoHandler(log, analyzer, trader, machine, params, health)
	e := echo.New()
	h.RegisterRoutes(e)
	return e, src
}

func doJSON(t *testing.T, e *echo.Echo, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

type envelope struct {
	Status  int             `json:"status"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

func decodeData(t *testing.T, rec *httptest.ResponseRecorder, dest interface{}) {
	t.Helper()
	var env envelope
	if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
		t.Fatalf("decode envelope: %v (%s)", err, rec.Body.String())
	}
	if err := json.Unmarshal(env.Data, dest); err != nil {
		t.Fatalf("decode data: %v (%s)", err, env.Data)
	}
}

func TestAnalyzeEndpoint(t *testing.T) {
	e, _ := newTestServer(t)

	rec := doJSON(t, e, http.MethodPost, "/api/analyze", `{}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var state models.SemaphoreState
	decodeData(t, rec, &state)
	if state.Color != models.ColorGreen {
		t.Fatalf("expected green, got %s", state.Color)
	}
	if len(state.Assets) != 3 {
		t.Fatalf("expected 3 assets, got %d", len(state.Assets))
	}
}

func TestTradeLifecycleEndpoints(t *testing.T) {
	e, _ := newTestServer(t)

	rec := doJSON(t, e, http.MethodPost, "/api/trade", `{"asset":"BTC"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	var proposed models.Trade
	decodeData(t, rec, &proposed)
	if proposed.Status != models.StatusPendingConfirmation {
		t.Fatalf("expected pending_confirmation, got %s", proposed.Status)
	}
	if proposed.ID == "" {
		t.Fatal("expected trade id")
	}

	// Empty trade_id resolves to the latest pending proposal.
	rec = doJSON(t, e, http.MethodPost, "/api/confirm", `{}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("confirm: expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var confirmed models.Trade
	decodeData(t, rec, &confirmed)
	if confirmed.ID != proposed.ID || confirmed.Status != models.StatusActive {
		t.Fatalf("expected %s active, got %s %s", proposed.ID, confirmed.ID, confirmed.Status)
	}

	rec = doJSON(t, e, http.MethodGet, "/api/trades/active", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("active: expected 200, got %d", rec.Code)
	}
	var listing struct {
		Trades []models.Trade `json:"trades"`
		Count  int            `json:"count"`
	}
	decodeData(t, rec, &listing)
	if listing.Count != 1 || len(listing.Trades) != 1 {
		t.Fatalf("expected one active trade, got %+v", listing)
	}

	rec = doJSON(t, e, http.MethodPost, "/api/trades/"+proposed.ID+"/close", `{}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("close: expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var closed models.Trade
	decodeData(t, rec, &closed)
	if closed.Status != models.StatusClosed {
		t.Fatalf("expected closed, got %s", closed.Status)
	}

	rec = doJSON(t, e, http.MethodGet, "/api/trades/"+proposed.ID, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("get: expected 200, got %d", rec.Code)
	}
}

func TestRejectEndpoint(t *testing.T) {
	e, _ := newTestServer(t)

	rec := doJSON(t, e, http.MethodPost, "/api/trade", `{"asset":"ETH"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	var proposed models.Trade
	decodeData(t, rec, &proposed)

	rec = doJSON(t, e, http.MethodPost, "/api/reject", `{"trade_id":"`+proposed.ID+`"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("reject: expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var rejected models.Trade
	decodeData(t, rec, &rejected)
	if rejected.Status != models.StatusRejected {
		t.Fatalf("expected rejected, got %s", rejected.Status)
	}
}

func TestTradeValidation(t *testing.T) {
	e, _ := newTestServer(t)

	rec := doJSON(t, e, http.MethodPost, "/api/trade", `{"asset":"btc!"}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestUnknownTradeReturns404(t *testing.T) {
	e, _ := newTestServer(t)

	rec := doJSON(t, e, http.MethodGet, "/api/trades/nope", "")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d: %s", rec.Code, rec.Body.String())
	}
	if !strings.Contains(rec.Body.String(), "ERR_TRADE_NOT_FOUND") {
		t.Fatalf("expected ERR_TRADE_NOT_FOUND code, got %s", rec.Body.String())
	}
}

func TestConfigureEndpoint(t *testing.T) {
	e, _ := newTestServer(t)

	rec := doJSON(t, e, http.MethodPost, "/api/config", `{"max_trades":5,"green_max":25}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("config: expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var params models.RiskParams
	decodeData(t, rec, &params)
	if params.MaxTrades != 5 || params.GreenMax != 25 {
		t.Fatalf("expected override applied, got max_trades=%d green_max=%v", params.MaxTrades, params.GreenMax)
	}

	rec = doJSON(t, e, http.MethodGet, "/api/info", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("info: expected 200, got %d", rec.Code)
	}
	var info struct {
		MaxTrades int     `json:"max_trades"`
		GreenMax  float64 `json:"green_max"`
	}
	decodeData(t, rec, &info)
	if info.MaxTrades != 5 || info.GreenMax != 25 {
		t.Fatalf("expected info to reflect override, got %+v", info)
	}
}

func TestStatusEndpoint(t *testing.T) {
	e, _ := newTestServer(t)

	rec := doJSON(t, e, http.MethodGet, "/status", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var status struct {
		Status     string          `json:"status"`
		Components map[string]bool `json:"components"`
	}
	decodeData(t, rec, &status)
	if status.Status != "ok" {
		t.Fatalf("expected ok status, got %q", status.Status)
	}
	if up, present := status.Components["store"]; !present || !up {
		t.Fatalf("expected store component up, got %+v", status.Components)
	}
}

func TestStatusDegradedWhenComponentDown(t *testing.T) {
	log, err := logger.New(&logger.Config{Level: "error"})
	if err != nil {
		t.Fatalf("logger: %v", err)
	}
	health := func(context.Context) map[string]bool {
		return map[string]bool{"store": true, "history": false}
	}
	h := NewSemaforoHandler(log, nil, nil, nil, nil, health)
	e := echo.New()
	h.RegisterRoutes(e)

	rec := doJSON(t, e, http.MethodGet, "/status", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var status struct {
		Status     string          `json:"status"`
		Components map[string]bool `json:"components"`
	}
	decodeData(t, rec, &status)
	if status.Status != "degraded" {
		t.Fatalf("expected degraded status, got %q", status.Status)
	}
	if status.Components["history"] {
		t.Fatal("expected history component down")
	}
}

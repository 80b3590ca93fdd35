package api

import (
	"context"
	"errors"
	"time"

	"github.com/labstack/echo/v4"

	"SemaforoBot/internal/domain/models"
	"SemaforoBot/internal/usecase"
	xhttp "SemaforoBot/pkg/http"
	xlogger "SemaforoBot/pkg/logger"
)

// HealthFunc reports per-component readiness for the status endpoint.
type HealthFunc func(ctx context.Context) map[string]bool

// SemaforoHandler implements the Echo-based HTTP surface of the service.
type SemaforoHandler struct {
	logger   *xlogger.Logger
	analyzer *usecase.Analyzer
	trader   *usecase.Trader
	machine  *usecase.Machine
	params   *usecase.ParamsHolder
	health   HealthFunc
	started  time.Time
}

func NewSemaforoHandler(logger *xlogger.Logger, analyzer *usecase.Analyzer, trader *usecase.Trader, machine *usecase.Machine, params *usecase.ParamsHolder, health HealthFunc) *SemaforoHandler {
	return &SemaforoHandler{
		logger:   logger,
		analyzer: analyzer,
		trader:   trader,
		machine:  machine,
		params:   params,
		health:   health,
		started:  time.Now().UTC(),
	}
}

func (h *SemaforoHandler) RegisterRoutes(e *echo.Echo) {
	e.GET("/status", h.Status)
	e.GET("/api/info", h.Info)

	g := e.Group("/api")
	g.POST("/analyze", h.Analyze)
	g.POST("/trade", h.Trade)
	g.POST("/confirm", h.Confirm)
	g.POST("/reject", h.Reject)
	g.GET("/trades/active", h.ActiveTrades)
	g.GET("/trades/:id", h.GetTrade)
	g.POST("/trades/:id/close", h.CloseTrade)
	g.POST("/config", h.Configure)
}

func (h *SemaforoHandler) Analyze(c echo.Context) error {
	req := &models.AnalyzeRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	state, err := h.analyzer.Analyze(c.Request().Context(), req.Assets, req.ForceRefresh)
	if err != nil {
		h.logger.Error("analyze usecase error", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, domainError(err))
	}
	return xhttp.SuccessResponse(c, state)
}

func (h *SemaforoHandler) Trade(c echo.Context) error {
	req := &models.TradeRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	trade, err := h.trader.Enter(c.Request().Context(), req)
	if err != nil {
		h.logger.Error("trade usecase error",
			xlogger.String("asset", req.Asset), xlogger.Error(err))
		return xhttp.AppErrorResponse(c, domainError(err))
	}
	return xhttp.CreatedResponse(c, trade)
}

func (h *SemaforoHandler) Confirm(c echo.Context) error {
	req := &models.ConfirmRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	trade, err := h.machine.Confirm(c.Request().Context(), req.TradeID)
	if err != nil {
		h.logger.Warn("confirm failed",
			xlogger.String("trade_id", req.TradeID), xlogger.Error(err))
		return xhttp.AppErrorResponse(c, domainError(err))
	}
	return xhttp.SuccessResponse(c, trade)
}

func (h *SemaforoHandler) Reject(c echo.Context) error {
	req := &models.ConfirmRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	trade, err := h.machine.Reject(c.Request().Context(), req.TradeID)
	if err != nil {
		h.logger.Warn("reject failed",
			xlogger.String("trade_id", req.TradeID), xlogger.Error(err))
		return xhttp.AppErrorResponse(c, domainError(err))
	}
	return xhttp.SuccessResponse(c, trade)
}

func (h *SemaforoHandler) ActiveTrades(c echo.Context) error {
	trades, err := h.machine.ListActive(c.Request().Context())
	if err != nil {
		h.logger.Error("active trades error", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, domainError(err))
	}
	return xhttp.SuccessResponse(c, map[string]interface{}{
		"trades": trades,
		"count":  len(trades),
	})
}

func (h *SemaforoHandler) GetTrade(c echo.Context) error {
	trade, err := h.machine.Get(c.Request().Context(), c.Param("id"))
	if err != nil {
		return xhttp.AppErrorResponse(c, domainError(err))
	}
	return xhttp.SuccessResponse(c, trade)
}

func (h *SemaforoHandler) CloseTrade(c echo.Context) error {
	req := &models.CloseRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	trade, err := h.machine.Close(c.Request().Context(), c.Param("id"), req.Reason)
	if err != nil {
		h.logger.Warn("close failed",
			xlogger.String("trade_id", c.Param("id")), xlogger.Error(err))
		return xhttp.AppErrorResponse(c, domainError(err))
	}
	return xhttp.SuccessResponse(c, trade)
}

func (h *SemaforoHandler) Configure(c echo.Context) error {
	req := &models.ConfigRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	params, err := h.params.Apply(c.Request().Context(), req.Override())
	if err != nil {
		h.logger.Error("config update failed", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, domainError(err))
	}
	return xhttp.SuccessResponse(c, params)
}

func (h *SemaforoHandler) Status(c echo.Context) error {
	components := map[string]bool{}
	if h.health != nil {
		components = h.health(c.Request().Context())
	}
	status := "ok"
	for _, up := range components {
		if !up {
			status = "degraded"
			break
		}
	}
	return xhttp.SuccessResponse(c, map[string]interface{}{
		"status":     status,
		"components": components,
		"uptime":     time.Since(h.started).Round(time.Second).String(),
		"timestamp":  time.Now().UTC(),
	})
}

func (h *SemaforoHandler) Info(c echo.Context) error {
	p := h.params.Current()
	return xhttp.SuccessResponse(c, map[string]interface{}{
		"name":           "semaforo-bot",
		"assets":         p.DefaultAssets,
		"max_trades":     p.MaxTrades,
		"green_max":      p.GreenMax,
		"yellow_max":     p.YellowMax,
		"endpoints": []string{
			"POST /api/analyze",
			"POST /api/trade",
			"POST /api/confirm",
			"POST /api/reject",
			"GET /api/trades/active",
			"GET /api/trades/:id",
			"POST /api/trades/:id/close",
			"POST /api/config",
			"GET /status",
		},
	})
}

// domainError maps domain error kinds to transport errors with stable codes.
func domainError(err error) error {
	switch {
	case errors.Is(err, models.ErrInvalidMetrics):
		return xhttp.UnprocessableError("ERR_INVALID_METRICS", err.Error()).WithError(err)
	case errors.Is(err, models.ErrNoAssets):
		return xhttp.BadRequestError("ERR_NO_ASSETS", err.Error()).WithError(err)
	case errors.Is(err, models.ErrUnsafeConditions):
		return xhttp.ConflictError("ERR_UNSAFE_CONDITIONS", err.Error()).WithError(err)
	case errors.Is(err, models.ErrMaxTradesExceeded):
		return xhttp.ConflictError("ERR_MAX_TRADES_EXCEEDED", err.Error()).WithError(err)
	case errors.Is(err, models.ErrNotFound):
		return xhttp.NotFoundError("ERR_TRADE_NOT_FOUND", err.Error()).WithError(err)
	case errors.Is(err, models.ErrInvalidState):
		return xhttp.ConflictError("ERR_INVALID_STATE", err.Error()).WithError(err)
	case errors.Is(err, models.ErrStoreUnavailable):
		return xhttp.UnavailableError("ERR_STORE_UNAVAILABLE", err.Error()).WithError(err)
	case errors.Is(err, models.ErrSourceUnavailable):
		return xhttp.UnavailableError("ERR_SOURCE_UNAVAILABLE", err.Error()).WithError(err)
	default:
		return xhttp.InternalError(err.Error()).WithError(err)
	}
}

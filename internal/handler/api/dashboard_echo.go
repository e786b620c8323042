package api

import (
	"errors"

	models "StockLens/internal/domain/models"
	"StockLens/internal/presenter"
	"StockLens/internal/service/metrics"
	"StockLens/internal/service/ratelimit"
	xhttp "StockLens/pkg/http"
	xlogger "StockLens/pkg/logger"

	"github.com/labstack/echo/v4"
)

// Dashboard is the selection state the handlers drive.
type Dashboard interface {
	Snapshot() models.DashboardState
	Subscribe() (<-chan models.DashboardState, func())
	SelectCode(code string) error
	ClearInstrument() error
	SetHorizon(h models.Horizon) error
	Reload() error
}

type InstrumentsResponse struct {
	Instruments []models.InstrumentOption `json:"instruments"`
	Status      presenter.ResourceView    `json:"status"`
}

// DashboardEchoHandler serves the dashboard API.
type DashboardEchoHandler struct {
	logger *xlogger.Logger
	dash   Dashboard
	rl     *ratelimit.Limiter
	stream StreamConfig
}

func NewDashboardEchoHandler(logger *xlogger.Logger, dash Dashboard, rl *ratelimit.Limiter, stream StreamConfig) *DashboardEchoHandler {
	metrics.Register()
	if logger == nil {
		logger = xlogger.Nop()
	}
	return &DashboardEchoHandler{logger: logger, dash: dash, rl: rl, stream: stream.withDefaults()}
}

func (h *DashboardEchoHandler) RegisterRoutes(e *echo.Echo) {
	g := e.Group("/api")
	g.GET("/instruments", h.Instruments)
	g.GET("/horizons", h.Horizons)
	g.GET("/dashboard", h.View)
	g.GET("/dashboard/stream", h.Stream)

	sel := g.Group("/selection", h.rateLimit)
	sel.PUT("/instrument", h.SelectInstrument)
	sel.DELETE("/instrument", h.ClearInstrument)
	sel.PUT("/horizon", h.SelectHorizon)
	sel.POST("/reload", h.Reload)
}

func (h *DashboardEchoHandler) Instruments(c echo.Context) error {
	v := presenter.BuildView(h.dash.Snapshot())
	return xhttp.SuccessResponse(c, InstrumentsResponse{Instruments: v.Instruments, Status: v.Catalog})
}

func (h *DashboardEchoHandler) Horizons(c echo.Context) error {
	return xhttp.SuccessResponse(c, presenter.Horizons())
}

func (h *DashboardEchoHandler) View(c echo.Context) error {
	return xhttp.SuccessResponse(c, presenter.BuildView(h.dash.Snapshot()))
}

func (h *DashboardEchoHandler) SelectInstrument(c echo.Context) error {
	req := &models.SelectInstrumentRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	if err := h.dash.SelectCode(req.Code); err != nil {
		if errors.Is(err, models.ErrUnknownInstrument) {
			return xhttp.AppErrorResponse(c, xhttp.NotFoundErrorf("instrument %s not found", req.Code).WithParam("code", req.Code))
		}
		h.logger.Error("select instrument failed", xlogger.String("code", req.Code), xlogger.Error(err))
		return xhttp.AppErrorResponse(c, err)
	}
	metrics.SelectionChanges.WithLabelValues("select_instrument").Inc()
	return h.accepted(c)
}

func (h *DashboardEchoHandler) ClearInstrument(c echo.Context) error {
	if err := h.dash.ClearInstrument(); err != nil {
		h.logger.Error("clear instrument failed", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, err)
	}
	metrics.SelectionChanges.WithLabelValues("clear_instrument").Inc()
	return h.accepted(c)
}

func (h *DashboardEchoHandler) SelectHorizon(c echo.Context) error {
	req := &models.SelectHorizonRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	hz, err := models.ParseHorizon(req.Horizon)
	if err != nil {
		return xhttp.AppErrorResponse(c, xhttp.BadRequestError(err.Error()))
	}
	if err := h.dash.SetHorizon(hz); err != nil {
		h.logger.Error("select horizon failed", xlogger.String("horizon", req.Horizon), xlogger.Error(err))
		return xhttp.AppErrorResponse(c, err)
	}
	metrics.SelectionChanges.WithLabelValues("select_horizon").Inc()
	return h.accepted(c)
}

func (h *DashboardEchoHandler) Reload(c echo.Context) error {
	if err := h.dash.Reload(); err != nil {
		if errors.Is(err, models.ErrNoInstrument) {
			return xhttp.AppErrorResponse(c, xhttp.ConflictError("no instrument selected"))
		}
		h.logger.Error("reload failed", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, err)
	}
	metrics.SelectionChanges.WithLabelValues("reload").Inc()
	return h.accepted(c)
}

func (h *DashboardEchoHandler) accepted(c echo.Context) error {
	return xhttp.AcceptedResponse(c, presenter.BuildView(h.dash.Snapshot()))
}

func (h *DashboardEchoHandler) rateLimit(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		if h.rl != nil && !h.rl.Allow(c.RealIP()) {
			metrics.RateLimited.WithLabelValues(c.Path()).Inc()
			h.logger.Warn("selection rate limited", xlogger.String("remote", c.RealIP()), xlogger.String("route", c.Path()))
			return xhttp.AppErrorResponse(c, xhttp.TooManyRequestsError("rate limited"))
		}
		return next(c)
	}
}

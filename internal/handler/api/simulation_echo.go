package api

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"EnsembleView/internal/domain/models"
	domsvc "EnsembleView/internal/domain/service"
	icache "EnsembleView/internal/service/cache"
	"EnsembleView/internal/service/metrics"
	"EnsembleView/internal/service/ratelimit"
	"EnsembleView/internal/services/analytics"
	"EnsembleView/internal/services/projection"
	"EnsembleView/internal/state"
	"EnsembleView/internal/usecase"
	xhttp "EnsembleView/pkg/http"
	xlogger "EnsembleView/pkg/logger"

	"github.com/labstack/echo/v4"
)

const (
	defaultProjectionTTL = 30 * time.Second
	healthTimeout        = 2 * time.Second
)

type healthCheck struct {
	name  string
	check func(context.Context) error
}

// SimulationHandler serves the read views of the current run and the run
// control endpoints.
type SimulationHandler struct {
	log      *xlogger.Logger
	session  *usecase.Session
	calc     *analytics.Calculator
	proj     *projection.Projector
	settings domsvc.SettingsStore
	limiter  *ratelimit.Limiter
	cache    icache.BytesCache
	cacheTTL time.Duration
	checks   []healthCheck
}

func NewSimulationHandler(
	log *xlogger.Logger,
	session *usecase.Session,
	calc *analytics.Calculator,
	proj *projection.Projector,
	settings domsvc.SettingsStore,
	limiter *ratelimit.Limiter,
) *SimulationHandler {
	metrics.Register()
	return &SimulationHandler{
		log:      log,
		session:  session,
		calc:     calc,
		proj:     proj,
		settings: settings,
		limiter:  limiter,
		cacheTTL: defaultProjectionTTL,
	}
}

// SetCache enables caching of rendered projections.
func (h *SimulationHandler) SetCache(c icache.BytesCache, ttl time.Duration) {
	h.cache = c
	if ttl > 0 {
		h.cacheTTL = ttl
	}
}

// AddHealthCheck reports an optional dependency on /health. A failing check
// turns the response into 503 with status "degraded".
func (h *SimulationHandler) AddHealthCheck(name string, check func(context.Context) error) {
	h.checks = append(h.checks, healthCheck{name: name, check: check})
}

func (h *SimulationHandler) RegisterRoutes(e *echo.Echo) {
	e.GET("/health", h.Health)

	g := e.Group("/api", xhttp.RunTag(h.session.RunID))
	g.GET("/entities", h.Entities)
	g.GET("/entities/:ticker", h.Entity)
	g.GET("/entities/:ticker/prediction", h.Prediction)
	g.GET("/entities/:ticker/weights", h.Weights)
	g.GET("/entities/:ticker/logs", h.Logs)
	g.GET("/entities/:ticker/status", h.Status)
	g.GET("/summary", h.Summary)
	g.GET("/config", h.GetConfig)
	g.PUT("/config", h.ReplaceConfig)
	g.GET("/tickers", h.Tickers)

	run := g.Group("/run")
	if h.limiter != nil {
		run.Use(h.limiter.Middleware())
	}
	run.POST("/start", h.StartRun)
	run.POST("/reset", h.ResetRun)
}

func (h *SimulationHandler) Health(c echo.Context) error {
	body := map[string]interface{}{
		"status":    "ok",
		"connected": h.session.IsConnected(),
		"run_id":    h.session.RunID(),
	}
	code := http.StatusOK
	if len(h.checks) > 0 {
		ctx, cancel := context.WithTimeout(c.Request().Context(), healthTimeout)
		defer cancel()
		results := make(map[string]string, len(h.checks))
		for _, hc := range h.checks {
			if err := hc.check(ctx); err != nil {
				results[hc.name] = err.Error()
				body["status"] = "degraded"
				code = http.StatusServiceUnavailable
				continue
			}
			results[hc.name] = "ok"
		}
		body["checks"] = results
	}
	return xhttp.DataResponse(c, code, body)
}

func (h *SimulationHandler) Entities(c echo.Context) error {
	var rows []models.EntityView
	h.session.View(func(st *state.State) {
		rows = usecase.EntityViews(st, h.calc)
	})
	return xhttp.ListResponse(c, rows, len(rows))
}

func (h *SimulationHandler) Entity(c echo.Context) error {
	req := &models.EntityRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	var (
		view  models.EntityView
		known bool
	)
	h.session.View(func(st *state.State) {
		if known = st.Known(req.Ticker); known {
			view = usecase.EntityView(st, h.calc, req.Ticker)
		}
	})
	if !known {
		return xhttp.AppErrorResponse(c, unknownEntity(req.Ticker))
	}
	return xhttp.SuccessResponse(c, view)
}

func (h *SimulationHandler) Prediction(c echo.Context) error {
	start := time.Now()
	defer observe("prediction", start)

	req := &models.EntityRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	return h.projected(c, "prediction", req.Ticker, "", func(st *state.State) interface{} {
		return h.proj.Prediction(req.Ticker, st.Series(req.Ticker))
	})
}

func (h *SimulationHandler) Weights(c echo.Context) error {
	start := time.Now()
	defer observe("weights", start)

	req := &models.WeightsRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	proj := h.proj
	if req.Palette != proj.PaletteSize() {
		proj = proj.WithPalette(req.Palette)
	}
	variant := "p" + strconv.Itoa(proj.PaletteSize())
	return h.projected(c, "weights", req.Ticker, variant, func(st *state.State) interface{} {
		return proj.Weights(req.Ticker, st.Series(req.Ticker))
	})
}

// projected serves a projection from the cache when the entity has not
// changed since it was last rendered, and renders it under the read lock
// otherwise. The cache is never consulted while the lock is held, so a slow
// cache cannot stall dispatch.
func (h *SimulationHandler) projected(c echo.Context, kind, ticker, variant string, render func(st *state.State) interface{}) error {
	ctx := c.Request().Context()

	var (
		known bool
		runID string
		key   string
	)
	keyOf := func(st *state.State) {
		runID = st.RunID()
		if known = st.Known(ticker); known {
			key = icache.ProjectionKey(runID, ticker, kind, st.Revision(ticker), variant)
		}
	}

	if h.cache != nil {
		h.session.View(keyOf)
		if !known {
			return h.unknownProjection(c, kind, ticker)
		}
		if b, ok := h.cacheGet(ctx, kind, key); ok {
			xhttp.SetRunID(c, runID)
			return xhttp.SuccessResponse(c, json.RawMessage(b))
		}
	}

	// The entity may have moved on during the lookup; the key is taken again
	// together with the render so the two always agree.
	var out interface{}
	h.session.View(func(st *state.State) {
		keyOf(st)
		if known {
			out = render(st)
		}
	})
	if !known {
		return h.unknownProjection(c, kind, ticker)
	}
	xhttp.SetRunID(c, runID)
	if h.cache != nil {
		h.cacheSet(ctx, key, out)
	}
	return xhttp.SuccessResponse(c, out)
}

func (h *SimulationHandler) unknownProjection(c echo.Context, kind, ticker string) error {
	metrics.APIErrors.WithLabelValues(kind).Inc()
	return xhttp.AppErrorResponse(c, unknownEntity(ticker))
}

func (h *SimulationHandler) cacheGet(ctx context.Context, kind, key string) ([]byte, bool) {
	b, ok, err := h.cache.GetBytes(ctx, key)
	switch {
	case err != nil:
		h.log.Warn("projection cache get failed", xlogger.String("key", key), xlogger.Error(err))
		metrics.CacheLookups.WithLabelValues(kind, "error").Inc()
		return nil, false
	case ok:
		metrics.CacheLookups.WithLabelValues(kind, "hit").Inc()
		return b, true
	default:
		metrics.CacheLookups.WithLabelValues(kind, "miss").Inc()
		return nil, false
	}
}

func (h *SimulationHandler) cacheSet(ctx context.Context, key string, v interface{}) {
	b, err := json.Marshal(v)
	if err != nil {
		h.log.Warn("projection encode failed", xlogger.String("key", key), xlogger.Error(err))
		return
	}
	if err := h.cache.SetBytes(ctx, key, b, h.cacheTTL); err != nil {
		h.log.Warn("projection cache set failed", xlogger.String("key", key), xlogger.Error(err))
	}
}

// purgeRun drops cached projections of a run that is no longer current.
func (h *SimulationHandler) purgeRun(ctx context.Context, runID string) {
	p, ok := h.cache.(icache.RunPurger)
	if !ok || runID == h.session.RunID() {
		return
	}
	n, err := p.PurgeRun(ctx, runID)
	if err != nil {
		h.log.Warn("projection cache purge failed", xlogger.String("run_id", runID), xlogger.Error(err))
		return
	}
	h.log.Debug("projection cache purged", xlogger.String("run_id", runID), xlogger.Int("entries", n))
}

func (h *SimulationHandler) Logs(c echo.Context) error {
	req := &models.LogsRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	var (
		lines []string
		known bool
	)
	h.session.View(func(st *state.State) {
		if known = st.Known(req.Ticker); known {
			lines = st.Logs().Newest(req.Ticker, req.Limit)
		}
	})
	if !known {
		return xhttp.AppErrorResponse(c, unknownEntity(req.Ticker))
	}
	if lines == nil {
		lines = []string{}
	}
	return xhttp.ListResponse(c, lines, len(lines))
}

func (h *SimulationHandler) Status(c echo.Context) error {
	req := &models.EntityRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	var (
		status string
		known  bool
	)
	h.session.View(func(st *state.State) {
		if known = st.Known(req.Ticker); known {
			status, _ = st.Status().Get(req.Ticker)
		}
	})
	if !known {
		return xhttp.AppErrorResponse(c, unknownEntity(req.Ticker))
	}
	return xhttp.SuccessResponse(c, map[string]interface{}{
		"ticker":   req.Ticker,
		"status":   status,
		"error":    state.IsError(status),
		"complete": state.IsComplete(status),
	})
}

func (h *SimulationHandler) Summary(c echo.Context) error {
	var sum models.Summary
	h.session.View(func(st *state.State) {
		sum = h.calc.Summary(st, st.RunID())
	})
	return xhttp.SuccessResponse(c, sum)
}

func (h *SimulationHandler) StartRun(c echo.Context) error {
	req := &models.StartRunRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	prev := h.session.RunID()
	runID, err := h.session.StartRun(c.Request().Context(), req.Tickers)
	h.purgeRun(c.Request().Context(), prev)
	if err != nil {
		h.log.Error("start run failed", xlogger.Error(err))
		metrics.APIErrors.WithLabelValues("run_start").Inc()
		return xhttp.AppErrorResponse(c, xhttp.BadGatewayError("simulation backend unavailable").WithError(err))
	}
	xhttp.SetRunID(c, runID)
	return xhttp.CreatedResponse(c, map[string]string{"run_id": runID})
}

func (h *SimulationHandler) ResetRun(c echo.Context) error {
	prev := h.session.RunID()
	runID := h.session.Reset(c.Request().Context())
	h.purgeRun(c.Request().Context(), prev)
	xhttp.SetRunID(c, runID)
	return xhttp.SuccessResponse(c, map[string]string{"run_id": runID})
}

func (h *SimulationHandler) GetConfig(c echo.Context) error {
	if h.settings == nil {
		return xhttp.AppErrorResponse(c, xhttp.ServiceUnavailableError("settings store not configured"))
	}
	cfg, err := h.settings.Get(c.Request().Context())
	if err != nil {
		h.log.Error("get settings failed", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, xhttp.BadGatewayError("settings store unavailable").WithError(err))
	}
	return xhttp.SuccessResponse(c, cfg)
}

func (h *SimulationHandler) ReplaceConfig(c echo.Context) error {
	if h.settings == nil {
		return xhttp.AppErrorResponse(c, xhttp.ServiceUnavailableError("settings store not configured"))
	}
	req := &models.SettingsUpdate{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	cfg, err := h.settings.Replace(c.Request().Context(), *req)
	if err != nil {
		h.log.Error("replace settings failed", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, xhttp.BadGatewayError("settings store unavailable").WithError(err))
	}
	return xhttp.SuccessResponse(c, cfg)
}

func (h *SimulationHandler) Tickers(c echo.Context) error {
	if h.settings == nil {
		return xhttp.AppErrorResponse(c, xhttp.ServiceUnavailableError("settings store not configured"))
	}
	tickers, err := h.settings.Tickers(c.Request().Context())
	if err != nil {
		h.log.Error("list tickers failed", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, xhttp.BadGatewayError("settings store unavailable").WithError(err))
	}
	return xhttp.ListResponse(c, tickers, len(tickers))
}

func unknownEntity(ticker string) *xhttp.AppError {
	return xhttp.NotFoundErrorf("entity %q not found", ticker).WithParam("ticker", ticker)
}

func observe(endpoint string, start time.Time) {
	metrics.APILatency.WithLabelValues(endpoint).Observe(time.Since(start).Seconds())
}

package api

import (
	"time"

	models "RegimePull/internal/domain/models"
	svcmetrics "RegimePull/internal/service/metrics"
	"RegimePull/internal/service/ratelimit"
	"RegimePull/internal/services/features"
	"RegimePull/internal/usecase"
	xhttp "RegimePull/pkg/http"
	xlogger "RegimePull/pkg/logger"
	"RegimePull/pkg/util"

	"github.com/labstack/echo/v4"
)

// RegimeEchoHandler exposes the regime classification endpoints.
type RegimeEchoHandler struct {
	logger *xlogger.Logger
	svc    *usecase.ClassificationService
	rl     *ratelimit.Limiter
}

func NewRegimeEchoHandler(logger *xlogger.Logger, svc *usecase.ClassificationService) *RegimeEchoHandler {
	svcmetrics.Register()
	return &RegimeEchoHandler{logger: logger, svc: svc, rl: ratelimit.New()}
}

func (h *RegimeEchoHandler) RegisterRoutes(e *echo.Echo) {
	g := e.Group("/api")
	g.GET("/regime/current", h.Current)
	g.GET("/regime/series", h.Series)
	g.POST("/classify", h.Classify)
}

// Current returns the latest classification for a series.
func (h *RegimeEchoHandler) Current(c echo.Context) error {
	req := &models.CurrentRegimeRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	if !h.rl.Allow(c.RealIP()+":current", 10, 5) {
		return xhttp.AppErrorResponse(c, xhttp.NewAppError("ERR_RATE_LIMITED", "", "rate limited", 429))
	}

	res, err := h.svc.Current(c.Request().Context(), req.Series)
	if err != nil {
		h.logger.Error("regime current error", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, err)
	}
	c.Response().Header().Set(echo.HeaderCacheControl, "private, max-age=60")
	return xhttp.SuccessResponse(c, res)
}

// Series replays a window of stored observations and returns one result per
// week. With from/to absent it replays the latest n weeks.
func (h *RegimeEchoHandler) Series(c echo.Context) error {
	req := &models.RegimeWindowRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	if !h.rl.Allow(c.RealIP()+":series", 5, 2) {
		return xhttp.AppErrorResponse(c, xhttp.NewAppError("ERR_RATE_LIMITED", "", "rate limited", 429))
	}

	ctx := c.Request().Context()
	var (
		results []models.ClassificationResult
		err     error
	)
	if req.From != "" || req.To != "" {
		from, ok := util.ParseTime(req.From)
		if !ok {
			return xhttp.BadRequestResponse(c, xhttp.BadRequestErrorf("invalid from: %q", req.From))
		}
		to := util.ParseTimeDefault(req.To, time.Now().UTC())
		results, err = h.svc.Window(ctx, req.Series, from, to)
	} else {
		results, err = h.svc.WindowN(ctx, req.Series, req.N)
	}
	if err != nil {
		h.logger.Error("regime series error", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, err)
	}
	return xhttp.ListResponse(c, results, int64(len(results)))
}

// Classify runs one observation through the live per-series state machine.
func (h *RegimeEchoHandler) Classify(c echo.Context) error {
	req := &models.ClassifyRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	if !h.rl.Allow(c.RealIP()+":classify", 10, 5) {
		return xhttp.AppErrorResponse(c, xhttp.NewAppError("ERR_RATE_LIMITED", "", "rate limited", 429))
	}

	var week time.Time
	if req.Week != "" {
		parsed, ok := util.ParseTime(req.Week)
		if !ok {
			return xhttp.BadRequestResponse(c, xhttp.BadRequestErrorf("invalid week: %q", req.Week))
		}
		week = util.TruncateWeek(parsed)
	}
	obs := &models.FeatureObservation{
		Series: req.Series,
		Week:   week,
		Values: features.Coerce(req.Features),
	}

	res, err := h.svc.Classify(c.Request().Context(), obs)
	if err != nil {
		h.logger.Error("regime classify error", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, err)
	}
	return xhttp.SuccessResponse(c, res)
}

package api

import (
	"encoding/json"
	"net/http"
	"time"

	models "PolyCorr/internal/domain/models"
	"PolyCorr/internal/engine"
	svccache "PolyCorr/internal/service/cache"
	"PolyCorr/internal/usecase"
	xhttp "PolyCorr/pkg/http"
	xlogger "PolyCorr/pkg/logger"
	"PolyCorr/pkg/queue"

	"github.com/labstack/echo/v4"
)

const summaryCacheTTL = 15 * time.Second

// CorrelationsEchoHandler exposes the correlation engine over HTTP.
type CorrelationsEchoHandler struct {
	logger     *xlogger.Logger
	eng        *engine.Engine
	queue      queue.QueueService
	autoJob    *usecase.AutoDetectJob
	historical *usecase.HistoricalSweep
	summary    svccache.BytesCache
}

func NewCorrelationsEchoHandler(logger *xlogger.Logger, eng *engine.Engine, q queue.QueueService, autoJob *usecase.AutoDetectJob, historical *usecase.HistoricalSweep, summaryCache svccache.BytesCache) *CorrelationsEchoHandler {
	return &CorrelationsEchoHandler{
		logger:     logger,
		eng:        eng,
		queue:      q,
		autoJob:    autoJob,
		historical: historical,
		summary:    summaryCache,
	}
}

func (h *CorrelationsEchoHandler) RegisterRoutes(e *echo.Echo) {
	g := e.Group("/api")

	g.GET("/correlations", h.Recent)
	g.GET("/correlations/flagged", h.Flagged)
	g.GET("/correlations/severity", h.BySeverity)
	g.GET("/correlations/type", h.ByType)
	g.GET("/correlations/market/:id", h.ForMarket)
	g.GET("/correlations/wallet/:wallet", h.ForWallet)
	g.GET("/correlations/:id", h.Get)
	g.PUT("/correlations/:id/status", h.UpdateStatus)
	g.POST("/correlations/:id/flag", h.Flag)
	g.POST("/correlations/:id/dismiss", h.Dismiss)

	g.GET("/relations", h.Relations)
	g.GET("/relations/market/:id", h.MarketRelations)
	g.POST("/relations", h.AddRelation)
	g.DELETE("/relations", h.RemoveRelation)
	g.POST("/relations/autodetect", h.AutoDetect)
	g.POST("/analyze/historical", h.AnalyzeHistorical)

	g.GET("/stats", h.GetStats)
	g.GET("/summary", h.GetSummary)
}

func (h *CorrelationsEchoHandler) Recent(c echo.Context) error {
	req := &models.RecentCorrelationsRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	rows := h.eng.Ledger().Recent(req.Limit)
	return xhttp.ListResponse(c, rows, int64(len(rows)))
}

func (h *CorrelationsEchoHandler) Flagged(c echo.Context) error {
	rows := h.eng.Ledger().Flagged()
	return xhttp.ListResponse(c, rows, int64(len(rows)))
}

func (h *CorrelationsEchoHandler) BySeverity(c echo.Context) error {
	req := &models.SeverityCorrelationsRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	rows := h.eng.Ledger().BySeverity(models.Severity(req.Severity))
	return xhttp.ListResponse(c, rows, int64(len(rows)))
}

func (h *CorrelationsEchoHandler) ByType(c echo.Context) error {
	req := &models.TypeCorrelationsRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	rows := h.eng.Ledger().ByType(models.CorrelationType(req.Type))
	return xhttp.ListResponse(c, rows, int64(len(rows)))
}

func (h *CorrelationsEchoHandler) ForMarket(c echo.Context) error {
	req := &models.MarketCorrelationsRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	rows := h.eng.Ledger().ForMarket(req.MarketID)
	return xhttp.ListResponse(c, rows, int64(len(rows)))
}

func (h *CorrelationsEchoHandler) ForWallet(c echo.Context) error {
	req := &models.WalletCorrelationsRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	rows := h.eng.Ledger().ForWallet(req.Wallet)
	return xhttp.ListResponse(c, rows, int64(len(rows)))
}

func (h *CorrelationsEchoHandler) Get(c echo.Context) error {
	id := c.Param("id")
	if id == "" {
		return xhttp.BadRequestResponse(c, "missing correlation id")
	}
	found := h.eng.Ledger().Get(id)
	if found == nil {
		return xhttp.AppErrorResponse(c, xhttp.NotFoundErrorf("correlation %s not found", id))
	}
	return xhttp.SuccessResponse(c, found)
}

func (h *CorrelationsEchoHandler) UpdateStatus(c echo.Context) error {
	req := &models.UpdateStatusRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	if !h.eng.Ledger().UpdateStatus(req.ID, models.CorrelationStatus(req.Status)) {
		return xhttp.AppErrorResponse(c, xhttp.NotFoundErrorf("correlation %s not found", req.ID))
	}
	return xhttp.SuccessResponse(c, h.eng.Ledger().Get(req.ID))
}

func (h *CorrelationsEchoHandler) Flag(c echo.Context) error {
	id := c.Param("id")
	if !h.eng.Ledger().Flag(id) {
		return xhttp.AppErrorResponse(c, xhttp.NotFoundErrorf("correlation %s not found", id))
	}
	return xhttp.SuccessResponse(c, h.eng.Ledger().Get(id))
}

func (h *CorrelationsEchoHandler) Dismiss(c echo.Context) error {
	id := c.Param("id")
	if !h.eng.Ledger().Dismiss(id) {
		return xhttp.AppErrorResponse(c, xhttp.NotFoundErrorf("correlation %s not found", id))
	}
	return xhttp.SuccessResponse(c, h.eng.Ledger().Get(id))
}

func (h *CorrelationsEchoHandler) Relations(c echo.Context) error {
	rows := h.eng.Graph().AllRelations()
	return xhttp.ListResponse(c, rows, int64(len(rows)))
}

func (h *CorrelationsEchoHandler) MarketRelations(c echo.Context) error {
	req := &models.MarketRelationsRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	rows := h.eng.Graph().RelationsFor(req.MarketID)
	return xhttp.ListResponse(c, rows, int64(len(rows)))
}

func (h *CorrelationsEchoHandler) AddRelation(c echo.Context) error {
	req := &models.AddRelationRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	rel := h.eng.AddRelation(engine.RelationSpec{
		MarketIDA:    req.MarketIDA,
		MarketIDB:    req.MarketIDB,
		RelationType: models.RelationType(req.RelationType),
		Strength:     req.Strength,
		Category:     req.Category,
	})
	return xhttp.CreatedResponse(c, rel)
}

func (h *CorrelationsEchoHandler) RemoveRelation(c echo.Context) error {
	req := &models.RemoveRelationRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	if !h.eng.RemoveRelation(req.MarketIDA, req.MarketIDB) {
		return xhttp.AppErrorResponse(c, xhttp.NotFoundErrorf("no relation between %s and %s", req.MarketIDA, req.MarketIDB))
	}
	return xhttp.NoContentResponse(c)
}

// AutoDetect enqueues a relation sweep. Runs inline when no queue is
// configured so the endpoint works in single-node deployments.
func (h *CorrelationsEchoHandler) AutoDetect(c echo.Context) error {
	req := &models.AutoDetectRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	payload := usecase.AutoDetectPayload{MinSharedKeywords: req.MinSharedKeywords}

	if h.queue != nil {
		if err := h.queue.PublishMessage(c.Request().Context(), h.autoJob.Type(), payload); err != nil {
			h.logger.Error("enqueue autodetect failed", xlogger.Error(err))
			return xhttp.AppErrorResponse(c, xhttp.InternalError("failed to schedule sweep"))
		}
		return xhttp.DataResponse(c, http.StatusAccepted, map[string]string{"status": "scheduled"})
	}

	if err := h.autoJob.Handle(c.Request().Context(), payload); err != nil {
		h.logger.Error("autodetect sweep failed", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, xhttp.InternalError("sweep failed"))
	}
	return xhttp.SuccessResponse(c, map[string]string{"status": "completed"})
}

// AnalyzeHistorical replays stored trade windows for one market pair.
func (h *CorrelationsEchoHandler) AnalyzeHistorical(c echo.Context) error {
	marketA := c.QueryParam("market_a")
	marketB := c.QueryParam("market_b")
	if marketA == "" || marketB == "" {
		return xhttp.BadRequestResponse(c, "market_a and market_b are required")
	}
	since := xhttp.ParseTimeDefault(c.QueryParam("since"), time.Time{})

	res, err := h.historical.AnalyzePair(c.Request().Context(), marketA, marketB, since)
	if err != nil {
		h.logger.Error("historical analysis failed",
			xlogger.String("market_a", marketA),
			xlogger.String("market_b", marketB),
			xlogger.Error(err),
		)
		return xhttp.AppErrorResponse(c, xhttp.InternalError("historical analysis failed"))
	}
	return xhttp.SuccessResponse(c, res)
}

func (h *CorrelationsEchoHandler) GetStats(c echo.Context) error {
	return xhttp.SuccessResponse(c, h.eng.Stats())
}

// GetSummary serves the aggregate view from a short-lived cache since it
// walks every recorded finding.
func (h *CorrelationsEchoHandler) GetSummary(c echo.Context) error {
	const key = "summary"
	if h.summary != nil {
		if b, ok, err := h.summary.GetBytes(key); err == nil && ok {
			return c.JSONBlob(http.StatusOK, b)
		}
	}
	s := h.eng.Summary()
	if h.summary != nil {
		body := xhttp.APIResponse{
			Status:  http.StatusOK,
			Message: http.StatusText(http.StatusOK),
			Data:    s,
		}
		if b, err := json.Marshal(body); err == nil {
			_ = h.summary.SetBytes(key, b, summaryCacheTTL)
		}
	}
	return xhttp.SuccessResponse(c, s)
}

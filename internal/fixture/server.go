package fixture

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"

	"platen/internal/ledger"
)

// Ops that can be armed to fail via -fail.
const (
	OpHealth   = "health"
	OpOrders   = "orders"
	OpPersist  = "persist"
	OpPrepare  = "prepare"
	OpRun      = "run"
	OpComplete = "complete"
)

var knownOps = map[string]bool{
	OpHealth: true, OpOrders: true, OpPersist: true,
	OpPrepare: true, OpRun: true, OpComplete: true,
}

// Handler serves the ledger wire surface against a Store.
type Handler struct {
	store Store
	log   *slog.Logger

	mu     sync.Mutex
	forced map[string]bool
}

func NewHandler(store Store, log *slog.Logger) *Handler {
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	return &Handler{store: store, log: log, forced: make(map[string]bool)}
}

// FailNext arms op so its next call returns a canned 500. Unknown op
// names are rejected so a typo in -fail does not arm nothing silently.
func (h *Handler) FailNext(op string) error {
	if !knownOps[op] {
		return fmt.Errorf("unknown op %q", op)
	}
	h.mu.Lock()
	h.forced[op] = true
	h.mu.Unlock()
	return nil
}

// takeForced consumes an armed failure for op.
func (h *Handler) takeForced(op string) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.forced[op] {
		h.forced[op] = false
		return true
	}
	return false
}

// NewEngine builds the fixture router around h. The caller picks the gin
// mode; the binary runs in release mode, tests in test mode.
func NewEngine(h *Handler) *gin.Engine {
	engine := gin.New()
	engine.Use(gin.Recovery())

	api := engine.Group("/api")
	api.GET("/health", h.health)
	api.GET("/orders", h.orders)
	api.POST("/exclusions", h.exclusions)
	api.POST("/print/prepare", h.prepare)
	api.POST("/print/run", h.run)
	api.POST("/print/complete", h.complete)
	return engine
}

func detail(c *gin.Context, status int, msg string) {
	c.JSON(status, gin.H{"detail": msg})
}

// fail maps store errors onto wire statuses.
func (h *Handler) fail(c *gin.Context, op string, err error) {
	switch {
	case errors.Is(err, ErrUnknownSource), errors.Is(err, ErrUnknownOrder):
		detail(c, http.StatusBadRequest, err.Error())
	case errors.Is(err, ErrNoBatch):
		detail(c, http.StatusConflict, err.Error())
	default:
		h.log.Error("fixture store failure", "op", op, "error", err)
		detail(c, http.StatusInternalServerError, err.Error())
	}
}

func (h *Handler) forcedFailure(c *gin.Context, op string) bool {
	if !h.takeForced(op) {
		return false
	}
	h.log.Info("forced failure", "op", op)
	detail(c, http.StatusInternalServerError, fmt.Sprintf("forced %s failure", op))
	return true
}

func (h *Handler) health(c *gin.Context) {
	if h.forcedFailure(c, OpHealth) {
		return
	}
	c.JSON(http.StatusOK, ledger.HealthResponse{Status: "ok", Version: "fixture"})
}

func periodParam(c *gin.Context) (string, bool) {
	raw := c.Query("period")
	if raw == "" {
		detail(c, http.StatusBadRequest, "period is required")
		return "", false
	}
	period, err := ledger.ParsePeriod(raw)
	if err != nil {
		detail(c, http.StatusBadRequest, err.Error())
		return "", false
	}
	return string(period), true
}

func (h *Handler) orders(c *gin.Context) {
	if h.forcedFailure(c, OpOrders) {
		return
	}
	period, ok := periodParam(c)
	if !ok {
		return
	}

	channels, err := h.store.Channels(period)
	if err != nil {
		h.fail(c, OpOrders, err)
		return
	}

	resp := ledger.OrdersResponse{Period: ledger.Period(period)}
	for _, ch := range channels {
		resp.Sources = append(resp.Sources, ledger.ChannelOrders{
			Source:    ch.Source,
			Prepared:  ch.Prepared,
			Completed: ch.Completed,
			Orders:    ch.Orders,
		})
	}
	c.JSON(http.StatusOK, resp)
}

type exclusionsPayload struct {
	Period string                 `json:"period"`
	Source string                 `json:"source"`
	Items  []ledger.ExclusionItem `json:"items"`
}

type printPayload struct {
	Period string `json:"period"`
	Source string `json:"source"`
}

func scope(c *gin.Context, period, source string) bool {
	if _, err := ledger.ParsePeriod(period); err != nil {
		detail(c, http.StatusBadRequest, err.Error())
		return false
	}
	if source == "" {
		detail(c, http.StatusBadRequest, "source is required")
		return false
	}
	return true
}

func (h *Handler) exclusions(c *gin.Context) {
	if h.forcedFailure(c, OpPersist) {
		return
	}
	var req exclusionsPayload
	if err := c.ShouldBindJSON(&req); err != nil {
		detail(c, http.StatusBadRequest, "invalid json")
		return
	}
	if !scope(c, req.Period, req.Source) {
		return
	}

	orderIDs := make([]string, 0, len(req.Items))
	for _, item := range req.Items {
		if item.Source != req.Source {
			detail(c, http.StatusBadRequest,
				fmt.Sprintf("item source %s does not match request source %s", item.Source, req.Source))
			return
		}
		orderIDs = append(orderIDs, item.OrderID)
	}

	if err := h.store.ReplaceExclusions(req.Period, req.Source, orderIDs); err != nil {
		h.fail(c, OpPersist, err)
		return
	}
	h.log.Debug("exclusions replaced", "period", req.Period, "source", req.Source, "count", len(orderIDs))
	c.Status(http.StatusNoContent)
}

func (h *Handler) prepare(c *gin.Context) {
	if h.forcedFailure(c, OpPrepare) {
		return
	}
	var req printPayload
	if err := c.ShouldBindJSON(&req); err != nil {
		detail(c, http.StatusBadRequest, "invalid json")
		return
	}
	if !scope(c, req.Period, req.Source) {
		return
	}

	count, excluded, err := h.store.PrepareBatch(req.Period, req.Source)
	if err != nil {
		h.fail(c, OpPrepare, err)
		return
	}

	result := ledger.PrepareResult{
		Count:        count,
		PrintCommand: fmt.Sprintf("lpr receipts-%s-%s.pdf", req.Source, req.Period),
	}
	if excluded > 0 {
		result.ExcludedPDFsURL = fmt.Sprintf("/static/excluded-%s-%s.pdf", req.Source, req.Period)
	}
	h.log.Debug("batch prepared", "period", req.Period, "source", req.Source, "count", count)
	c.JSON(http.StatusOK, result)
}

func (h *Handler) run(c *gin.Context) {
	if h.forcedFailure(c, OpRun) {
		return
	}
	var req printPayload
	if err := c.ShouldBindJSON(&req); err != nil {
		detail(c, http.StatusBadRequest, "invalid json")
		return
	}
	if !scope(c, req.Period, req.Source) {
		return
	}

	count, missing, err := h.store.RunBatch(req.Period, req.Source)
	if err != nil {
		h.fail(c, OpRun, err)
		return
	}
	h.log.Debug("batch run", "period", req.Period, "source", req.Source, "count", count, "missing", missing)
	c.JSON(http.StatusOK, ledger.RunResult{Count: count, MissingCount: missing})
}

func (h *Handler) complete(c *gin.Context) {
	if h.forcedFailure(c, OpComplete) {
		return
	}
	var req printPayload
	if err := c.ShouldBindJSON(&req); err != nil {
		detail(c, http.StatusBadRequest, "invalid json")
		return
	}
	if !scope(c, req.Period, req.Source) {
		return
	}

	count, err := h.store.CompleteBatch(req.Period, req.Source)
	if err != nil {
		h.fail(c, OpComplete, err)
		return
	}
	h.log.Debug("batch completed", "period", req.Period, "source", req.Source, "count", count)
	c.JSON(http.StatusOK, ledger.CompleteResult{Count: count})
}

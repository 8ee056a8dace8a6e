// Package api implements the HTTP surface: synchronous and asynchronous
// optimization requests, catalog browsing, per-user owned/blacklist set
// management, and health/readiness probes.
package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"strconv"

	"github.com/stitts-dev/gearopt/internal/authmw"
	"github.com/stitts-dev/gearopt/internal/catalog"
	"github.com/stitts-dev/gearopt/internal/gear"
	"github.com/stitts-dev/gearopt/internal/gearerr"
	"github.com/stitts-dev/gearopt/internal/orchestrator"
	"github.com/stitts-dev/gearopt/internal/progresshub"
	"github.com/stitts-dev/gearopt/internal/store"
)

// Handler serves every route this package registers.
type Handler struct {
	orchestrator *orchestrator.Orchestrator
	hub          *progresshub.Hub
	catalogItems []gear.EquipmentPiece
	userSets     *store.UserSetRepository
	db           *store.DB
	redis        *redis.Client
	cacheTTL     time.Duration
	logger       *logrus.Logger
}

// New builds a Handler. userSets and db may be nil: the owned/blacklist and
// database-health routes degrade gracefully when persistence isn't wired.
func New(orch *orchestrator.Orchestrator, hub *progresshub.Hub, catalogItems []gear.EquipmentPiece, userSets *store.UserSetRepository, db *store.DB, redisClient *redis.Client, cacheTTL time.Duration, logger *logrus.Logger) *Handler {
	return &Handler{
		orchestrator: orch,
		hub:          hub,
		catalogItems: catalogItems,
		userSets:     userSets,
		db:           db,
		redis:        redisClient,
		cacheTTL:     cacheTTL,
		logger:       logger,
	}
}

// Register mounts every route onto router under the conventions the gear
// service exposes: a versioned API group, a websocket endpoint outside it,
// and bare health/ready probes.
func (h *Handler) Register(router *gin.Engine, jwtSecret string) {
	apiV1 := router.Group("/api/v1")
	{
		apiV1.POST("/optimize", h.Optimize)
		apiV1.POST("/optimize/async", h.OptimizeAsync)
		apiV1.POST("/optimize/validate", h.ValidateOptimize)
		apiV1.GET("/catalog/:slot", h.GetCatalogSlot)

		me := apiV1.Group("/me", authmw.RequireAuth(jwtSecret))
		{
			me.PUT("/owned/:item_id", h.AddOwned)
			me.DELETE("/owned/:item_id", h.RemoveOwned)
			me.PUT("/blacklist/:item_id", h.AddBlacklisted)
			me.DELETE("/blacklist/:item_id", h.RemoveBlacklisted)
		}
	}

	router.GET("/ws/optimize-progress/:sequence_id", h.hub.HandleWebSocket)

	router.GET("/health", h.GetHealth)
	router.GET("/ready", h.GetReady)
}

// loadAccountSets reads the authenticated user's owned/blacklisted sets, if
// a user is authenticated and persistence is wired; otherwise it returns
// empty sets so the request's own inline lists still apply.
func (h *Handler) loadAccountSets(c *gin.Context) (owned, blacklisted map[int64]bool) {
	if h.userSets == nil {
		return nil, nil
	}
	userID, ok := authmw.UserIDFromContext(c)
	if !ok {
		return nil, nil
	}
	owned, blacklisted, err := h.userSets.Constraints(c.Request.Context(), userID)
	if err != nil {
		h.logger.WithError(err).Warn("failed to load account owned/blacklist sets")
		return nil, nil
	}
	return owned, blacklisted
}

// Optimize runs a synchronous optimization request and returns the result
// directly in the response body.
func (h *Handler) Optimize(c *gin.Context) {
	var req OptimizeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request: " + err.Error()})
		return
	}

	accountOwned, accountBlacklisted := h.loadAccountSets(c)
	player, monster, constraints, objective := req.toDomain(accountOwned, accountBlacklisted)

	result, err := h.orchestrator.Optimize(c.Request.Context(), player, monster, orchestrator.Options{
		Constraints: constraints,
		Objective:   objective,
		CacheTTL:    h.cacheTTL,
	})
	if err != nil {
		code := http.StatusInternalServerError
		switch {
		case errors.Is(err, gearerr.ErrInvalidSlot), errors.Is(err, gearerr.ErrInvalidInput):
			code = http.StatusBadRequest
		case errors.Is(err, gearerr.ErrWorkerNotReady):
			code = http.StatusServiceUnavailable
		case errors.Is(err, gearerr.ErrCalculatorFailure):
			code = http.StatusBadGateway
		}
		c.JSON(code, ErrorResponse{Error: err.Error()})
		return
	}

	c.JSON(http.StatusOK, result)
}

// ValidateOptimize checks an optimize request's structural validity without
// running the pipeline: malformed JSON still gets a 400, but a recognized-
// but-inconsistent request (e.g. an unknown style) gets a 200 with
// Valid=false and the list of problems, so a client can surface every issue
// at once instead of round-tripping one bad field at a time against
// /optimize.
func (h *Handler) ValidateOptimize(c *gin.Context) {
	var req OptimizeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request: " + err.Error()})
		return
	}

	errs := req.Validate()
	c.JSON(http.StatusOK, ValidateResponse{Valid: len(errs) == 0, Errors: errs})
}

// OptimizeAsync returns a run id immediately and streams progress (and the
// eventual result) over the websocket hub under that id.
func (h *Handler) OptimizeAsync(c *gin.Context) {
	var req OptimizeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request: " + err.Error()})
		return
	}

	accountOwned, accountBlacklisted := h.loadAccountSets(c)
	player, monster, constraints, objective := req.toDomain(accountOwned, accountBlacklisted)

	runID := orchestrator.NewRunID()
	c.JSON(http.StatusAccepted, AsyncOptimizeResponse{RunID: runID})

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
		defer cancel()

		_, err := h.orchestrator.Optimize(ctx, player, monster, orchestrator.Options{
			Constraints: constraints,
			Objective:   objective,
			CacheTTL:    h.cacheTTL,
			RunID:       runID,
			Progress:    h.hub.Callback(runID),
		})
		if err != nil {
			h.logger.WithError(err).WithField("run_id", runID).Error("async optimization failed")
		}
	}()
}

// GetCatalogSlot returns every catalog item occupying the named slot.
func (h *Handler) GetCatalogSlot(c *gin.Context) {
	slot := gear.Slot(c.Param("slot"))
	items, err := catalog.FilterBySlot(slot, h.catalogItems)
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return
	}
	c.JSON(http.StatusOK, items)
}

func (h *Handler) itemIDParam(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("item_id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid item id"})
		return 0, false
	}
	return id, true
}

// AddOwned marks an item as owned by the authenticated user.
func (h *Handler) AddOwned(c *gin.Context) {
	h.mutateUserSet(c, func(userID string, itemID int64) error {
		return h.userSets.AddOwned(c.Request.Context(), userID, itemID)
	})
}

// RemoveOwned un-marks an item as owned.
func (h *Handler) RemoveOwned(c *gin.Context) {
	h.mutateUserSet(c, func(userID string, itemID int64) error {
		return h.userSets.RemoveOwned(c.Request.Context(), userID, itemID)
	})
}

// AddBlacklisted excludes an item from future optimizations for this user.
func (h *Handler) AddBlacklisted(c *gin.Context) {
	h.mutateUserSet(c, func(userID string, itemID int64) error {
		return h.userSets.AddBlacklisted(c.Request.Context(), userID, itemID)
	})
}

// RemoveBlacklisted re-allows a previously blacklisted item.
func (h *Handler) RemoveBlacklisted(c *gin.Context) {
	h.mutateUserSet(c, func(userID string, itemID int64) error {
		return h.userSets.RemoveBlacklisted(c.Request.Context(), userID, itemID)
	})
}

func (h *Handler) mutateUserSet(c *gin.Context, mutate func(userID string, itemID int64) error) {
	if h.userSets == nil {
		c.JSON(http.StatusServiceUnavailable, ErrorResponse{Error: "persistence not configured"})
		return
	}
	userID, ok := authmw.UserIDFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "authentication required"})
		return
	}
	itemID, ok := h.itemIDParam(c)
	if !ok {
		return
	}
	if err := mutate(userID, itemID); err != nil {
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: err.Error()})
		return
	}
	c.Status(http.StatusNoContent)
}

// GetHealth reports whether redis and (if configured) the database are
// reachable.
func (h *Handler) GetHealth(c *gin.Context) {
	status := "ok"
	checks := make(map[string]string)

	if err := h.redis.Ping(c.Request.Context()).Err(); err != nil {
		status = "unhealthy"
		checks["redis"] = "failed: " + err.Error()
	} else {
		checks["redis"] = "ok"
	}

	if h.db != nil {
		sqlDB, err := h.db.DB.DB()
		if err != nil || sqlDB.Ping() != nil {
			checks["database"] = "failed"
			if status == "ok" {
				status = "degraded"
			}
		} else {
			checks["database"] = "ok"
		}
	} else {
		checks["database"] = "not_configured"
	}

	code := http.StatusOK
	if status == "unhealthy" {
		code = http.StatusServiceUnavailable
	}
	c.JSON(code, gin.H{"status": status, "checks": checks})
}

// GetReady reports whether the service is ready to accept optimization
// requests: redis must be reachable since the orchestrator's result cache
// depends on it whenever it's configured.
func (h *Handler) GetReady(c *gin.Context) {
	if err := h.redis.Ping(c.Request.Context()).Err(); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "not_ready", "error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ready"})
}

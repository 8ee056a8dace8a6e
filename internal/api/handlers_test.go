package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stitts-dev/gearopt/internal/gear"
	"github.com/stitts-dev/gearopt/internal/orchestrator"
	"github.com/stitts-dev/gearopt/internal/progresshub"
)

type stubCalculator struct{}

func (stubCalculator) EvaluateDPS(ctx context.Context, player gear.Player, monster gear.Monster) (gear.Metrics, error) {
	total := 0
	for _, p := range player.Loadout.Slots {
		if p != nil {
			total += p.Bonuses.Strength
		}
	}
	return gear.Metrics{DPS: float64(total), HitChance: 0.5, MaxHit: total}, nil
}

type stubRequirements struct{}

func (stubRequirements) Meets(id int64, skills gear.Skills) bool { return true }

type stubPrices struct{}

func (stubPrices) EffectivePrice(id int64, owned bool) (int64, bool) { return 100, true }

func testCatalog() []gear.EquipmentPiece {
	return []gear.EquipmentPiece{
		{ID: 1, Name: "sword", Slot: gear.SlotWeapon, Bonuses: gear.Bonuses{Strength: 5}},
		{ID: 2, Name: "amulet", Slot: gear.SlotNeck, Bonuses: gear.Bonuses{Strength: 3}},
	}
}

func setupTestHandler(t *testing.T) (*Handler, *gin.Engine) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	srv, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(srv.Close)

	redisClient := redis.NewClient(&redis.Options{Addr: srv.Addr()})
	logger := logrus.New()
	logger.SetOutput(io.Discard)

	hub := progresshub.NewHub(logger)
	go hub.Run()

	orch := orchestrator.New(orchestrator.Deps{
		Catalog:      testCatalog(),
		Prices:       stubPrices{},
		Requirements: stubRequirements{},
		Calculator:   stubCalculator{},
	})

	handler := New(orch, hub, testCatalog(), nil, nil, redisClient, 0, logger)
	router := gin.New()
	handler.Register(router, "test-secret")
	return handler, router
}

func TestOptimizeHandlerReturnsResult(t *testing.T) {
	_, router := setupTestHandler(t)

	body, _ := json.Marshal(OptimizeRequest{
		Style:   "slash",
		Monster: MonsterRequest{Name: "goblin"},
	})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/optimize", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var result gear.OptimizerResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	assert.Greater(t, result.Metrics.DPS, 0.0)
}

func TestOptimizeHandlerRejectsInvalidBody(t *testing.T) {
	_, router := setupTestHandler(t)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/optimize", bytes.NewReader([]byte("not json")))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestOptimizeAsyncHandlerReturnsRunID(t *testing.T) {
	_, router := setupTestHandler(t)

	body, _ := json.Marshal(OptimizeRequest{Style: "slash", Monster: MonsterRequest{Name: "goblin"}})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/optimize/async", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusAccepted, rec.Code)

	var resp AsyncOptimizeResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.NotEmpty(t, resp.RunID)
}

func TestValidateOptimizeAcceptsWellFormedRequest(t *testing.T) {
	_, router := setupTestHandler(t)

	body, _ := json.Marshal(OptimizeRequest{Style: "slash", Monster: MonsterRequest{Name: "goblin"}})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/optimize/validate", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var resp ValidateResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, resp.Valid)
	assert.Empty(t, resp.Errors)
}

func TestValidateOptimizeReportsUnrecognizedStyle(t *testing.T) {
	_, router := setupTestHandler(t)

	body, _ := json.Marshal(OptimizeRequest{Style: "whirlwind", Monster: MonsterRequest{Name: "goblin"}})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/optimize/validate", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var resp ValidateResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.False(t, resp.Valid)
	assert.NotEmpty(t, resp.Errors)
}

func TestValidateOptimizeRejectsInvalidBody(t *testing.T) {
	_, router := setupTestHandler(t)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/optimize/validate", bytes.NewReader([]byte("not json")))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGetCatalogSlotReturnsMatchingItems(t *testing.T) {
	_, router := setupTestHandler(t)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/catalog/weapon", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var items []gear.EquipmentPiece
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &items))
	require.Len(t, items, 1)
	assert.Equal(t, int64(1), items[0].ID)
}

func TestOwnedItemRouteRequiresAuth(t *testing.T) {
	_, router := setupTestHandler(t)

	req := httptest.NewRequest(http.MethodPut, "/api/v1/me/owned/1", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestGetHealthReportsRedisOK(t *testing.T) {
	_, router := setupTestHandler(t)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "ok", body["status"])
}

func TestGetReadyReportsReady(t *testing.T) {
	_, router := setupTestHandler(t)

	req := httptest.NewRequest(http.MethodGet, "/ready", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
}

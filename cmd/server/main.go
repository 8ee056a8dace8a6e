package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/stitts-dev/gearopt/internal/api"
	"github.com/stitts-dev/gearopt/internal/combatsim"
	"github.com/stitts-dev/gearopt/internal/config"
	"github.com/stitts-dev/gearopt/internal/corsmw"
	"github.com/stitts-dev/gearopt/internal/gear"
	"github.com/stitts-dev/gearopt/internal/gearlog"
	"github.com/stitts-dev/gearopt/internal/orchestrator"
	"github.com/stitts-dev/gearopt/internal/priceclient"
	"github.com/stitts-dev/gearopt/internal/pricestore"
	"github.com/stitts-dev/gearopt/internal/progresshub"
	"github.com/stitts-dev/gearopt/internal/reqstore"
	"github.com/stitts-dev/gearopt/internal/resultcache"
	"github.com/stitts-dev/gearopt/internal/scheduler"
	"github.com/stitts-dev/gearopt/internal/store"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		logrus.Fatalf("failed to load config: %v", err)
	}

	log := gearlog.InitLogger("", cfg.IsDevelopment())
	gearlog.WithService("gear-optimizer").WithFields(logrus.Fields{
		"environment": cfg.Env,
		"port":        cfg.Port,
	}).Info("starting gear optimization service")

	if cfg.IsDevelopment() {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	db, err := store.NewConnection(cfg.DatabaseURL, cfg.IsDevelopment())
	if err != nil {
		gearlog.WithService("gear-optimizer").Fatalf("failed to connect to database: %v", err)
	}
	defer db.Close()

	if err := db.AutoMigrate(); err != nil {
		gearlog.WithService("gear-optimizer").Fatalf("failed to migrate database: %v", err)
	}

	redisOpts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		gearlog.WithService("gear-optimizer").Fatalf("failed to parse redis url: %v", err)
	}
	redisClient := redis.NewClient(redisOpts)
	ctx := context.Background()
	if err := redisClient.Ping(ctx).Err(); err != nil {
		gearlog.WithService("gear-optimizer").Fatalf("failed to connect to redis: %v", err)
	}
	defer redisClient.Close()

	catalogRepo := store.NewCatalogRepository(db)
	priceRepo := store.NewPriceRepository(db)
	reqRepo := store.NewRequirementRepository(db)
	userSets := store.NewUserSetRepository(db)

	catalogItems, err := catalogRepo.LoadAll(ctx)
	if err != nil {
		gearlog.WithService("gear-optimizer").Fatalf("failed to load catalog: %v", err)
	}
	gearlog.WithService("gear-optimizer").WithField("item_count", len(catalogItems)).Info("catalog loaded")

	requirements := reqstore.New()
	reqs, err := reqRepo.LoadAll(ctx)
	if err != nil {
		gearlog.WithService("gear-optimizer").Fatalf("failed to load skill requirements: %v", err)
	}
	requirements.Load(reqs)

	prices := pricestore.New()
	if snapshot, err := priceRepo.LoadSnapshot(ctx); err != nil {
		gearlog.WithService("gear-optimizer").WithError(err).Warn("failed to warm-start price snapshot")
	} else {
		prices.Load(snapshot)
	}

	priceFeed := priceclient.New(cfg.PriceSourceURL, cfg.PriceFetchTimeout, cfg.CircuitBreakerThreshold)
	priceLoader := pricestore.NewLoader(prices, priceFeed)

	if !cfg.SkipInitialPriceFetch {
		result := priceLoader.FetchAndLoad(ctx)
		if !result.Success {
			gearlog.WithService("gear-optimizer").WithField("error", result.Error).Warn("initial price fetch failed, continuing with unknown prices")
		} else if err := priceRepo.SaveSnapshot(ctx, snapshotQuotes(prices, catalogItems)); err != nil {
			gearlog.WithService("gear-optimizer").WithError(err).Warn("failed to persist initial price snapshot")
		}
	}

	if cfg.EnableScheduler {
		priceScheduler := scheduler.New(priceLoader, cfg.PriceFetchInterval, log)
		if err := priceScheduler.Start(); err != nil {
			gearlog.WithService("gear-optimizer").WithError(err).Warn("failed to start price scheduler")
		} else {
			defer priceScheduler.Stop()
		}
	}

	hub := progresshub.NewHub(log)
	go hub.Run()

	resultCache := resultcache.New(redisClient, log)

	calculator := combatsim.New()
	orch := orchestrator.New(orchestrator.Deps{
		Catalog:      catalogItems,
		Prices:       prices,
		Requirements: requirements,
		Calculator:   calculator,
		Cache:        resultCache,
	})

	router := gin.New()
	router.Use(gin.Logger(), gin.Recovery())
	router.Use(corsmw.CORS(cfg.CorsOrigins))

	handler := api.New(orch, hub, catalogItems, userSets, db, redisClient, cfg.ResultCacheTTL, log)
	handler.Register(router, cfg.JWTSecret)

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%s", cfg.Port),
		Handler: router,
	}

	go func() {
		gearlog.WithService("gear-optimizer").WithField("port", cfg.Port).Info("gear optimization service started")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			gearlog.WithService("gear-optimizer").Fatalf("failed to start server: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	gearlog.WithService("gear-optimizer").Info("shutting down gear optimization service")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		gearlog.WithService("gear-optimizer").Fatalf("forced to shutdown: %v", err)
	}

	gearlog.WithService("gear-optimizer").Info("gear optimization service exited")
}

// snapshotQuotes re-reads the catalog's known items back out of the price
// store so the freshly-fetched feed can be persisted, since pricestore.Store
// only exposes single-id lookups.
func snapshotQuotes(prices *pricestore.Store, items []gear.EquipmentPiece) map[int64]pricestore.PriceQuote {
	quotes := make(map[int64]pricestore.PriceQuote, len(items))
	for _, item := range items {
		price, known := prices.GetPrice(item.ID)
		if !known {
			continue
		}
		p := price
		quotes[item.ID] = pricestore.PriceQuote{Price: &p, Tradeable: true}
	}
	return quotes
}

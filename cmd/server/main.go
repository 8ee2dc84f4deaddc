package main

import (
	"context"
	"database/sql"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-chi/chi/v5"
	_ "github.com/lib/pq"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	endorsementhandler "goodcompany/internal/endorsement/handler"
	endorsementmetrics "goodcompany/internal/endorsement/metrics"
	endorsementservice "goodcompany/internal/endorsement/service"
	endorsementstore "goodcompany/internal/endorsement/store"
	linkhandler "goodcompany/internal/link/handler"
	linkmetrics "goodcompany/internal/link/metrics"
	linkservice "goodcompany/internal/link/service"
	linkstore "goodcompany/internal/link/store"
	"goodcompany/internal/platform/config"
	"goodcompany/internal/platform/httpserver"
	"goodcompany/internal/platform/jwtauth"
	"goodcompany/internal/platform/logger"
	"goodcompany/internal/platform/metrics"
	"goodcompany/internal/platform/middleware"
	platformredis "goodcompany/internal/platform/redis"
	profilecache "goodcompany/internal/profile/cache"
	profilehandler "goodcompany/internal/profile/handler"
	profileservice "goodcompany/internal/profile/service"
	profilestore "goodcompany/internal/profile/store"
	"goodcompany/internal/score"
	"goodcompany/internal/transport/http/shared"
	"goodcompany/internal/trust"
	"goodcompany/internal/verification/adapters"
	verificationhandler "goodcompany/internal/verification/handler"
	verificationmetrics "goodcompany/internal/verification/metrics"
	verificationservice "goodcompany/internal/verification/service"
	verificationstore "goodcompany/internal/verification/store"
	"goodcompany/pkg/platform/audit"
	auditkafka "goodcompany/pkg/platform/audit/kafka"
	auditpublisher "goodcompany/pkg/platform/audit/publisher"
	auditmemory "goodcompany/pkg/platform/audit/store/memory"
	auditpostgres "goodcompany/pkg/platform/audit/store/postgres"
)

// main wires storage, cache, audit, and the four trust services, then runs
// the HTTP server until a shutdown signal. Business logic lives in the
// internal service packages.
func main() {
	cfg := config.FromEnv()
	log := logger.New()

	httpMetrics := metrics.New()

	var (
		stores     trust.Stores
		tx         trust.Tx
		auditStore audit.Store = auditmemory.NewInMemoryStore()
		db         *sql.DB
	)
	if cfg.Postgres.DSN != "" {
		var err error
		db, err = sql.Open("postgres", cfg.Postgres.DSN)
		if err != nil {
			log.Error("failed to open postgres", "error", err.Error())
			os.Exit(1)
		}
		if err := db.Ping(); err != nil {
			log.Error("failed to reach postgres", "error", err.Error())
			os.Exit(1)
		}
		defer db.Close()
		stores = trust.Stores{
			Profiles:      profilestore.NewPostgres(db),
			Endorsements:  endorsementstore.NewPostgres(db),
			Verifications: verificationstore.NewPostgres(db),
			Links:         linkstore.NewPostgres(db),
		}
		tx = newTrustPostgresTx(db)
		auditStore = auditpostgres.New(db)
		log.Info("storage backend", "kind", "postgres")
	} else {
		stores = trust.Stores{
			Profiles:      profilestore.NewMemory(),
			Endorsements:  endorsementstore.NewMemory(),
			Verifications: verificationstore.NewMemory(),
			Links:         linkstore.NewMemory(),
		}
		tx = trust.NewShardedTx(stores, 0)
		log.Info("storage backend", "kind", "memory")
	}

	redisClient, err := platformredis.New(cfg.Redis)
	if err != nil {
		log.Error("failed to connect to redis", "error", err.Error())
		os.Exit(1)
	}
	var viewCache *profilecache.ViewCache
	if redisClient != nil {
		defer redisClient.Close()
		viewCache = profilecache.NewViewCache(redisClient.Client, cfg.Trust.ViewCacheTTL)
		log.Info("profile view cache enabled", "ttl", cfg.Trust.ViewCacheTTL.String())
	}

	publisherOpts := []auditpublisher.Option{
		auditpublisher.WithLogger(log),
		auditpublisher.WithMetrics(auditpublisher.NewMetrics()),
		auditpublisher.WithAsyncBuffer(256),
	}
	if len(cfg.Kafka.Brokers) > 0 {
		sink, err := auditkafka.NewSink(cfg.Kafka.Brokers, cfg.Kafka.Topic)
		if err != nil {
			log.Error("failed to connect to kafka", "error", err.Error())
			os.Exit(1)
		}
		defer sink.Close()
		publisherOpts = append(publisherOpts, auditpublisher.WithSink(sink))
		log.Info("audit kafka sink enabled", "topic", cfg.Kafka.Topic)
	}
	auditor := auditpublisher.NewPublisher(auditStore, publisherOpts...)
	defer auditor.Close()

	engine := score.NewEngine(scorePolicy(cfg.Trust))
	jwtService := jwtauth.NewService(cfg.Server.JWTSigningKey, "goodcompany")

	profileOpts := []profileservice.Option{
		profileservice.WithLogger(log),
		profileservice.WithAuditPublisher(auditor),
	}
	endorsementOpts := []endorsementservice.Option{
		endorsementservice.WithLogger(log),
		endorsementservice.WithAuditPublisher(auditor),
		endorsementservice.WithMetrics(endorsementmetrics.New()),
	}
	linkOpts := []linkservice.Option{
		linkservice.WithLogger(log),
		linkservice.WithAuditPublisher(auditor),
		linkservice.WithMetrics(linkmetrics.New()),
	}
	verificationOpts := []verificationservice.Option{
		verificationservice.WithLogger(log),
		verificationservice.WithAuditPublisher(auditor),
		verificationservice.WithMetrics(verificationmetrics.New()),
	}
	if viewCache != nil {
		profileOpts = append(profileOpts, profileservice.WithViewCache(viewCache))
		endorsementOpts = append(endorsementOpts, endorsementservice.WithViewCache(viewCache))
		linkOpts = append(linkOpts, linkservice.WithViewCache(viewCache))
		verificationOpts = append(verificationOpts, verificationservice.WithViewCache(viewCache))
	}

	profiles := profileservice.NewService(tx, stores, profileOpts...)
	endorsements := endorsementservice.NewService(tx, stores, engine, endorsementOpts...)

	linkCfg := linkservice.DefaultConfig()
	linkCfg.VerifyThreshold = cfg.Trust.VerifyThreshold
	linkCfg.ReportThreshold = cfg.Trust.ReportThreshold
	links := linkservice.NewService(stores.Links, stores.Profiles, linkCfg, linkOpts...)

	verificationCfg := verificationservice.DefaultConfig()
	verificationCfg.MaxArtifactBytes = cfg.Trust.MaxArtifactBytes
	verificationCfg.DecisionTimeout = cfg.Trust.DecisionTimeout
	verifications := verificationservice.NewService(
		tx, stores, engine,
		adapters.NewMemoryArtifactStore(),
		adapters.NewAutoMatcher(),
		verificationCfg,
		verificationOpts...,
	)

	router := chi.NewRouter()
	router.Use(middleware.ClientMetadata)
	router.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		shared.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	router.Handle("/metrics", promhttp.Handler())

	profilehandler.New(profiles, log, httpMetrics, jwtService).Register(router)
	endorsementhandler.New(endorsements, log, httpMetrics, jwtService).Register(router)
	linkhandler.New(links, log, httpMetrics, jwtService).Register(router)
	verificationhandler.New(verifications, log, httpMetrics, jwtService, cfg.Trust.MaxArtifactBytes).Register(router)

	srv := httpserver.New(cfg.Server.Addr, router)

	go func() {
		log.Info("starting goodcompany server", "addr", cfg.Server.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("server error", "error", err.Error())
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownGrace)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Error("graceful shutdown failed", "error", err.Error())
		os.Exit(1)
	}
	log.Info("server stopped")
}

// scorePolicy folds the configured overrides into the default scoring table.
func scorePolicy(t config.Trust) score.Policy {
	policy := score.DefaultPolicy()
	if t.ScoreWeights != nil {
		policy.Weights = t.ScoreWeights
	}
	policy.DefaultWeight = t.ScoreDefaultWeight
	policy.VerifiedBonus = t.ScoreVerifiedBonus
	policy.UnverifiedCeiling = t.ScoreUnverifiedCeiling
	return policy
}

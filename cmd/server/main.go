package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	audithandler "arbiter/internal/audit/handler"
	"arbiter/internal/audit/ledger"
	auditservice "arbiter/internal/audit/service"
	"arbiter/internal/broadcast"
	"arbiter/internal/broadcast/redispub"
	"arbiter/internal/broadcast/ws"
	httpapi "arbiter/internal/http"
	jwttoken "arbiter/internal/jwt_token"
	"arbiter/internal/moderation/engine"
	"arbiter/internal/moderation/executor"
	moderationhandler "arbiter/internal/moderation/handler"
	moderationmetrics "arbiter/internal/moderation/metrics"
	"arbiter/internal/moderation/oracle"
	"arbiter/internal/moderation/pipeline"
	moderationservice "arbiter/internal/moderation/service"
	decisionstore "arbiter/internal/moderation/store"
	"arbiter/internal/platform/config"
	"arbiter/internal/platform/httpserver"
	"arbiter/internal/platform/logger"
	"arbiter/internal/platform/redis"
	policyhandler "arbiter/internal/policy/handler"
	policyservice "arbiter/internal/policy/service"
	policystore "arbiter/internal/policy/store"
	roomhandler "arbiter/internal/room/handler"
	roomservice "arbiter/internal/room/service"
	roomstore "arbiter/internal/room/store"
)

// main wires the moderation console together: in-memory stores, the oracle
// clients, the decision pipeline, HTTP transport, and the event fanout.
func main() {
	cfg := config.FromEnv()
	log := logger.New()
	ctx := context.Background()

	// Event fanout: always the WebSocket hub, plus Redis when configured.
	hub := ws.NewHub(cfg.BroadcastBuffer, log)
	sinks := broadcast.Fanout{hub}

	redisClient, err := redis.New(cfg.Redis)
	if err != nil {
		log.Error("redis unavailable", "error", err)
		os.Exit(1)
	}
	if redisClient != nil {
		sinks = append(sinks, redispub.New(redisClient.Client, cfg.Redis.Channel, log))
		defer redisClient.Close()
		log.Info("redis broadcast mirror enabled", "channel", cfg.Redis.Channel)
	}

	// Policies.
	policies := policystore.NewInMemory()
	if err := policyservice.Seed(ctx, policies); err != nil {
		log.Error("seed default policies", "error", err)
		os.Exit(1)
	}

	// Audit trail.
	trail := ledger.NewAppendOnly()
	auditor := auditservice.New(trail, sinks, log)
	registry := policyservice.New(policies, auditor, log)

	// Moderation pipeline.
	var classifier oracle.Classifier = oracle.Disabled{}
	var scorer oracle.Scorer = oracle.Disabled{}
	if cfg.OpenAI.APIKey != "" {
		client := oracle.NewOpenAI(oracle.OpenAIConfig{
			APIKey:  cfg.OpenAI.APIKey,
			Model:   cfg.OpenAI.Model,
			BaseURL: cfg.OpenAI.BaseURL,
			Timeout: cfg.OpenAI.Timeout,
		})
		classifier, scorer = client, client
		log.Info("oracle configured", "model", cfg.OpenAI.Model)
	} else {
		log.Warn("no model credentials configured, pipeline will fail safe on all content")
	}

	modMetrics := moderationmetrics.New()
	decisions := decisionstore.NewInMemory()
	exec := executor.New(decisions, auditor, sinks, log)
	pipe := pipeline.New(classifier, scorer, engine.NewDecider(policies), exec, modMetrics, log)
	moderator := moderationservice.New(
		pipe, decisions, auditor, sinks,
		modMetrics, log,
		cfg.MaxConcurrentModerations,
	)

	// Rooms and webhooks.
	rooms := roomservice.New(roomstore.NewRooms(), roomstore.NewParticipants(), moderator, sinks, log)

	// Transport.
	jwtService := jwttoken.NewJWTService(cfg.AdminJWTKey, "arbiter")
	router := httpapi.New(httpapi.Handlers{
		Moderation: moderationhandler.New(moderator, log),
		Policy:     policyhandler.New(registry, log),
		Audit:      audithandler.New(auditor, log),
		Room:       roomhandler.New(rooms, log),
	}, httpapi.Options{
		TokenValidator: jwtService,
		EventStream:    hub,
		Logger:         log,
	})

	srv := httpserver.New(cfg.Addr, router)

	runCtx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, gCtx := errgroup.WithContext(runCtx)
	g.Go(func() error {
		log.Info("starting arbiter", "addr", cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gCtx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		log.Error("server error", "error", err)
		os.Exit(1)
	}
	log.Info("arbiter stopped")
}

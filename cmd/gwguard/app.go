package main

import (
	"net/http"

	"github.com/vyrodovalexey/avgwguard/internal/admission"
	"github.com/vyrodovalexey/avgwguard/internal/auth/ethsig"
	"github.com/vyrodovalexey/avgwguard/internal/config"
	"github.com/vyrodovalexey/avgwguard/internal/health"
	"github.com/vyrodovalexey/avgwguard/internal/observability"
	"github.com/vyrodovalexey/avgwguard/internal/server"
)

// application holds all application components.
type application struct {
	server           *server.Server
	store            *admission.RedisStore
	verifier         *ethsig.Verifier
	healthChecker    *health.Checker
	metrics          *observability.Metrics
	admissionMetrics *admission.Metrics
	tracer           *observability.Tracer
	metricsServer    *http.Server
	config           *config.Config
}

// initApplication initializes all application components.
func initApplication(cfg *config.Config, logger observability.Logger) *application {
	metrics := observability.NewMetrics("gwguard")
	metrics.SetBuildInfo(version, commit, buildTime)

	tracer := initTracer(cfg, logger)

	// Admission and signature metrics share the application registry so
	// everything shows up on the one /metrics endpoint.
	admissionMetrics := admission.NewMetricsWithRegisterer("gwguard", metrics.Registry())
	admissionMetrics.Init()
	sigMetrics := ethsig.NewMetricsWithRegisterer("gwguard", metrics.Registry())
	sigMetrics.Init()

	store, err := admission.NewRedisStore(&cfg.Redis, cfg.Admission.Table,
		admission.WithRedisLogger(logger),
		admission.WithRedisMetrics(admissionMetrics),
	)
	if err != nil {
		// Reads fail open but writes must not silently no-op, so an
		// unreachable store at boot is fatal.
		logger.Fatal("failed to connect to admission store", observability.Error(err))
	}

	verifier := ethsig.NewVerifier(
		ethsig.WithVerifierLogger(logger),
		ethsig.WithVerifierMetrics(sigMetrics),
	)

	healthChecker := health.NewChecker(version, health.WithCheckerLogger(logger))
	healthChecker.RegisterCheck("redis", health.PingCheck(store.Ping))

	srv, err := server.New(cfg, store, verifier,
		server.WithLogger(logger),
		server.WithMetrics(metrics),
		server.WithAdmissionMetrics(admissionMetrics),
	)
	if err != nil {
		logger.Fatal("failed to create server", observability.Error(err))
	}

	return &application{
		server:           srv,
		store:            store,
		verifier:         verifier,
		healthChecker:    healthChecker,
		metrics:          metrics,
		admissionMetrics: admissionMetrics,
		tracer:           tracer,
		config:           cfg,
	}
}

// initTracer initializes the tracer.
func initTracer(cfg *config.Config, logger observability.Logger) *observability.Tracer {
	tracer, err := observability.NewTracer(observability.TracerConfig{
		ServiceName:  cfg.Tracing.ServiceName,
		OTLPEndpoint: cfg.Tracing.Endpoint,
		SamplingRate: cfg.Tracing.SampleRate,
		Enabled:      cfg.Tracing.Enabled,
	})
	if err != nil {
		logger.Fatal("failed to initialize tracer", observability.Error(err))
	}

	return tracer
}

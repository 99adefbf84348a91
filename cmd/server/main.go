package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/avvvet/officebuddy/internal/audit"
	"github.com/avvvet/officebuddy/internal/backend"
	"github.com/avvvet/officebuddy/internal/catalog"
	"github.com/avvvet/officebuddy/internal/compressor"
	"github.com/avvvet/officebuddy/internal/config"
	"github.com/avvvet/officebuddy/internal/handlers"
	"github.com/avvvet/officebuddy/internal/llm"
	"github.com/avvvet/officebuddy/internal/logging"
	"github.com/avvvet/officebuddy/internal/memory"
	"github.com/avvvet/officebuddy/internal/metrics"
	"github.com/avvvet/officebuddy/internal/orchestrator"
	"github.com/avvvet/officebuddy/internal/router"
	"github.com/avvvet/officebuddy/internal/specialist"
	"github.com/avvvet/officebuddy/internal/transport"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

func main() {
	// Load .env file if it exists (for development)
	envErr := godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		bootLogger := logging.New("info", true)
		bootLogger.Fatal().Err(err).Msg("❌ failed to load config")
	}
	logger := logging.New(cfg.LogLevel, cfg.LogPretty).With().Str("service", cfg.ServiceName).Logger()
	if envErr != nil {
		logger.Debug().Msg("No .env file found, using environment variables")
	}

	logger.Info().Msg("🚀 Starting OfficeBuddy orchestration service...")
	logger.Info().
		Str("nats", cfg.NatsURL).
		Str("model", cfg.AnthropicModel).
		Str("backend", cfg.BackendBaseURL).
		Msg("📋 configuration loaded")

	cat, err := loadCatalog(cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("❌ failed to load operation catalog")
	}
	logger.Info().Int("domains", len(cat.Domains())).Int("operations", cat.OperationCount()).Msg("📚 catalog loaded")

	provider, err := buildProvider(cfg, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("❌ failed to initialize LLM provider")
	}

	// Session store
	var (
		store      memory.Store
		redisStore *memory.RedisStore
	)
	if cfg.InMemorySessions() {
		logger.Warn().Msg("⚠️ REDIS_URL not set, sessions are kept in memory")
		store = memory.NewInMemoryStore()
	} else {
		logger.Info().Msg("🔌 Connecting to Redis...")
		redisStore, err = memory.NewRedisStore(cfg.RedisURL, cfg.SessionTTL)
		if err != nil {
			logger.Fatal().Err(err).Msg("❌ failed to connect to Redis")
		}
		store = redisStore
		logger.Info().Msg("✅ Redis connected")
	}
	memoryManager := memory.NewManager(store, logger)

	specialists, err := specialist.Build(cat)
	if err != nil {
		logger.Fatal().Err(err).Msg("❌ failed to build specialists")
	}

	comp := compressor.New(provider, cfg.ContextKeepRecent, logger)
	caller := backend.NewClient(cfg.BackendBaseURL, cfg.BackendTimeout, logger)
	planner := specialist.NewPlanner(provider, cat, caller, comp, logger)
	intentRouter := router.New(provider, cat, specialist.Names(), cfg.RoutingThreshold, logger)

	logger.Info().Msg("📡 Connecting to NATS...")
	natsConn, err := transport.Connect(cfg, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("❌ failed to connect to NATS")
	}

	// Audit sinks: Redis stream when sessions live in Redis, NATS when a subject is set
	var sinks audit.MultiSink
	if redisStore != nil && cfg.AuditStream != "" {
		sinks = append(sinks, audit.NewRedisStreamSink(redisStore.Client(), cfg.AuditStream, cfg.AuditStreamMaxLen))
	}
	if cfg.AuditSubject != "" {
		sinks = append(sinks, audit.NewNATSSink(natsConn, cfg.AuditSubject))
	}
	var (
		auditor     orchestrator.Auditor
		auditWriter *audit.Writer
	)
	if len(sinks) > 0 {
		auditWriter = audit.NewWriter(sinks, cfg.AuditBuffer, logger)
		auditor = auditWriter
		logger.Info().Int("sinks", len(sinks)).Msg("🧾 audit trail enabled")
	}

	orch := orchestrator.New(orchestrator.Deps{
		Memory:      memoryManager,
		Router:      intentRouter,
		Planner:     planner,
		Specialists: specialists,
		Provider:    provider,
		Audit:       auditor,
		Logger:      logger,
	})
	chatHandler := handlers.NewChatHandler(orch, logger)
	natsTransport := transport.NewNATSTransport(natsConn, cfg, chatHandler, logger)

	if err := natsTransport.Start(); err != nil {
		logger.Fatal().Err(err).Msg("❌ failed to start NATS transport")
	}

	metricsServer := startMetricsServer(cfg.MetricsAddr, redisStore, logger)

	pruneCtx, stopPrune := context.WithCancel(context.Background())
	go pruneSessions(pruneCtx, orch, cfg.SessionTTL, logger)

	logger.Info().
		Str("chat_subject", cfg.Subject("chat")).
		Strs("specialists", specialist.Names()).
		Msg("✅ OfficeBuddy is running!")

	// Wait for interrupt signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigChan
	logger.Info().Str("signal", sig.String()).Msg("🛑 Received signal")
	logger.Info().Msg("🔄 Shutting down gracefully...")
	stopPrune()

	// Drain audit records before the connections they publish on go away
	if auditWriter != nil {
		auditWriter.Close()
	}
	if err := natsTransport.Close(); err != nil {
		logger.Warn().Err(err).Msg("⚠️ Error closing NATS transport")
	}
	if metricsServer != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := metricsServer.Shutdown(ctx); err != nil {
			logger.Warn().Err(err).Msg("⚠️ Error stopping metrics server")
		}
		cancel()
	}

	logger.Info().Int("sessions", memoryManager.GetActiveSessionCount()).Msg("📊 Final session count")
	if err := memoryManager.Close(); err != nil {
		logger.Warn().Err(err).Msg("⚠️ Error closing memory manager")
	}

	logger.Info().Msg("👋 OfficeBuddy stopped")
}

func loadCatalog(cfg *config.Config) (*catalog.Catalog, error) {
	if cfg.CatalogPath == "" {
		return catalog.Default()
	}
	return catalog.Load(cfg.CatalogPath)
}

// buildProvider wraps the primary model with the fallback one when configured
func buildProvider(cfg *config.Config, logger zerolog.Logger) (llm.Provider, error) {
	logger.Info().Msg("🤖 Initializing Anthropic provider...")
	primary, err := llm.NewAnthropicProvider(cfg.AnthropicAPIKey, cfg.AnthropicModel, cfg.LLMTimeout, logger)
	if err != nil {
		return nil, err
	}
	if cfg.AnthropicFallbackModel == "" {
		return primary, nil
	}

	key := cfg.AnthropicFallbackAPIKey
	if key == "" {
		key = cfg.AnthropicAPIKey
	}
	secondary, err := llm.NewAnthropicProvider(key, cfg.AnthropicFallbackModel, cfg.LLMTimeout, logger)
	if err != nil {
		return nil, err
	}
	logger.Info().Str("fallback_model", cfg.AnthropicFallbackModel).Msg("🔁 fallback model enabled")
	fallback := llm.NewFallbackProvider(primary, secondary, logger)
	fallback.OnFallback = metrics.LLMFallbacks.Inc
	return fallback, nil
}

// pruneSessions releases cached state of sessions that expired in the store
func pruneSessions(ctx context.Context, orch *orchestrator.Orchestrator, every time.Duration, logger zerolog.Logger) {
	if every < time.Minute {
		every = time.Minute
	}
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := orch.Prune(ctx); err != nil {
				logger.Warn().Err(err).Msg("⚠️ session prune failed")
			}
		}
	}
}

func startMetricsServer(addr string, redisStore *memory.RedisStore, logger zerolog.Logger) *http.Server {
	if addr == "" {
		return nil
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		if redisStore != nil {
			if err := redisStore.Ping(r.Context()); err != nil {
				http.Error(w, "redis unavailable", http.StatusServiceUnavailable)
				return
			}
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error().Err(err).Msg("❌ metrics server failed")
		}
	}()
	logger.Info().Str("addr", addr).Msg("📈 metrics server listening")
	return srv
}

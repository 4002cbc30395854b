package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/superbrain-ai/superbrain/internal/config"
	"github.com/superbrain-ai/superbrain/internal/db"
	dbRedis "github.com/superbrain-ai/superbrain/internal/db/redis"
	"github.com/superbrain-ai/superbrain/internal/domain"
	logpkg "github.com/superbrain-ai/superbrain/internal/logger"
	"github.com/superbrain-ai/superbrain/internal/metrics"
	sessionrepo "github.com/superbrain-ai/superbrain/internal/repository/session"
	chiTransport "github.com/superbrain-ai/superbrain/internal/transport/chi"
	openaiCompl "github.com/superbrain-ai/superbrain/internal/transport/openai"
	chatuc "github.com/superbrain-ai/superbrain/internal/usecase/chat"
	completionuc "github.com/superbrain-ai/superbrain/internal/usecase/completion"
	"github.com/superbrain-ai/superbrain/internal/usecase/entitlement"
	healthuc "github.com/superbrain-ai/superbrain/internal/usecase/health"
	sessionuc "github.com/superbrain-ai/superbrain/internal/usecase/session"
	usageuc "github.com/superbrain-ai/superbrain/internal/usecase/usage"
	"github.com/superbrain-ai/superbrain/internal/version"
)

func main() {
	// Optional .env for local development; real env vars win.
	_ = godotenv.Load()

	// Load configuration based on ENV
	env := config.GetEnv()

	cfg, err := config.Load(env)
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	logger, err := logpkg.NewLogger(env, cfg.Logging.Level)
	if err != nil {
		panic("failed to create logger: " + err.Error())
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("Starting superbrain API server",
		zap.String("version", version.Version),
		zap.String("commit", version.Commit),
		zap.String("env", env),
		zap.Int("http_port", cfg.HTTP.Port),
		zap.String("db_driver", cfg.Database.Driver),
		zap.Int("free_limit", cfg.Entitlement.FreeLimit),
	)

	domain.KeyPrefix = cfg.Storage.KeyPrefix

	// Create the session store. The memory driver keeps all state in-process;
	// redis and valkey speak the same wire protocol and share one client.
	ctx := context.Background()
	var store db.Store
	if cfg.Database.Driver != "memory" {
		store, err = dbRedis.NewStore(dbRedis.Config{
			Addrs:    cfg.Database.Addrs,
			Username: cfg.Database.Username,
			Password: cfg.Database.Password,
			DB:       cfg.Database.DB,
		})
		if err != nil {
			logger.Fatal("Failed to create session store", zap.Error(err))
		}
		defer store.Close()

		if err := store.WaitForReady(ctx, time.Duration(cfg.Database.ReadinessTimeout)*time.Second); err != nil {
			logger.Fatal("Session store not ready", zap.Error(err))
		}
		logger.Info("Connected to session store", zap.Strings("addrs", cfg.Database.Addrs))
	}

	// Register metrics explicitly (no init())
	metrics.RegisterCompletionMetrics()
	metrics.RegisterHTTPMetrics()

	// Composition root
	completer := openaiCompl.NewCompleter(&openaiCompl.Config{
		APIKey:  cfg.Provider.APIKey,
		BaseURL: cfg.Provider.BaseURL,
		Model:   cfg.Provider.Model,
		Timeout: time.Duration(cfg.Provider.TimeoutSec) * time.Second,
		Logger:  logger,
	})
	logger.Info("Completion provider created", zap.String("model", completer.Model()))

	manager := sessionuc.NewManager(sessionuc.Config{
		TTL:           time.Duration(cfg.Sessions.TTLSec) * time.Second,
		HistoryLimit:  cfg.Sessions.HistoryLimit,
		SweepInterval: time.Duration(cfg.Sessions.SweepIntervalSec) * time.Second,
	}, logger)
	if store != nil {
		repo := sessionrepo.New(store, time.Duration(cfg.Sessions.TTLSec)*time.Second)
		manager.WithRepository(repo)
	}
	manager.StartSweeper()
	defer manager.Close()

	// The manager doubles as the write-behind recorder; without a store its
	// recorder methods are no-ops.
	tracker := entitlement.New(entitlement.Policy{
		FreeLimit:    cfg.Entitlement.FreeLimit,
		UnlockSecret: cfg.Entitlement.UnlockCode,
	}, logger).WithRecorder(manager)

	completions := completionuc.New(completer, tracker, logger)
	chatSvc := chatuc.New(completions, cfg.Chat.SystemInstruction, logger).WithRecorder(manager)
	usageSvc := usageuc.New(tracker)
	healthSvc := healthuc.New(store, completer, manager)

	server := chiTransport.NewServer(manager, completions, chatSvc, tracker, usageSvc, healthSvc, logger)
	router := chiTransport.NewRouter(server,
		jsonRecoverer(logger),
		chiMiddleware.RequestID,
		wideEventMiddleware(logger),
		chiTransport.BearerAuthMiddleware(cfg.Auth.APIKeys),
		metrics.Middleware(),
	)

	addr := fmt.Sprintf(":%d", cfg.HTTP.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.HTTP.ReadTimeoutSec) * time.Second,
		WriteTimeout: time.Duration(cfg.HTTP.WriteTimeoutSec) * time.Second,
	}

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	go func() {
		logger.Info("Starting HTTP server", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("HTTP server error", zap.Error(err))
		}
	}()

	<-quit
	logger.Info("Received shutdown signal")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.HTTP.ShutdownSec)*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Error during shutdown", zap.Error(err))
	}

	logger.Info("Server stopped gracefully")
}

// jsonRecoverer is a recovery middleware that returns JSON instead of a plain text stacktrace.
func jsonRecoverer(logger *zap.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rvr := recover(); rvr != nil {
					logger.Error("panic recovered",
						zap.Any("panic", rvr),
						zap.Stack("stacktrace"),
					)
					w.Header().Set("Content-Type", "application/json")
					w.WriteHeader(http.StatusInternalServerError)
					_ = json.NewEncoder(w).Encode(map[string]string{
						"code":    "internal_error",
						"message": "internal error",
					})
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}

// wideEventMiddleware emits a canonical log line per request and propagates X-Request-ID.
func wideEventMiddleware(logger *zap.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			// chi.middleware.RequestID already placed request_id in context
			requestID := chiMiddleware.GetReqID(r.Context())

			// Set X-Request-ID in response header
			if requestID != "" {
				w.Header().Set("X-Request-ID", requestID)
			}

			// Per-request logger with request_id
			reqLogger := logger.With(zap.String("request_id", requestID))
			ctx := logpkg.ContextWithLogger(r.Context(), reqLogger)

			ww := chiMiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r.WithContext(ctx))

			// Canonical log line — one line per request
			reqLogger.Info("http_request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Duration("latency", time.Since(start)),
				zap.String("ip", r.RemoteAddr),
				zap.String("session_id", ww.Header().Get("X-Session-ID")),
				zap.Int64("content_length", r.ContentLength),
				zap.String("user_agent", r.UserAgent()),
				zap.Int("response_bytes", ww.BytesWritten()),
			)
		})
	}
}

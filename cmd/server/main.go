package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/threadline/stylist/internal/ai"
	"github.com/threadline/stylist/internal/analytics"
	"github.com/threadline/stylist/internal/brain"
	"github.com/threadline/stylist/internal/config"
	"github.com/threadline/stylist/internal/db"
	"github.com/threadline/stylist/internal/eventlog"
	"github.com/threadline/stylist/internal/httpapi"
	"github.com/threadline/stylist/internal/httpapi/handlers"
	"github.com/threadline/stylist/internal/session"
	"github.com/threadline/stylist/internal/store/memstore"
	"github.com/threadline/stylist/internal/store/rabbitmq"
	"github.com/threadline/stylist/internal/store/redisstore"
	"github.com/threadline/stylist/internal/vision"
	"github.com/threadline/stylist/internal/whatsapp"
)

// sessionStore is what the manager and the analytics scan both need from a
// store driver.
type sessionStore interface {
	session.Store
	analytics.SessionScanner
}

func main() {
	cfg := config.Load()
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	// Session store: Redis when reachable, in-memory fallback for local dev.
	var store sessionStore
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	pingCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		logger.Warn("redis unreachable, using in-memory session store", "err", err)
		store = memstore.New()
	} else {
		store = redisstore.New(rdb)
	}
	cancel()

	// Event log database.
	gdb, err := db.Connect(cfg.DBDSN)
	if err != nil {
		logger.Error("event log database connect failed", "err", err)
		os.Exit(1)
	}
	repo := eventlog.NewRepo(gdb)

	// Event sink: direct DB writes, or RabbitMQ consumed by cmd/worker.
	var sink eventlog.Sink = eventlog.RepoSink{Repo: repo}
	if cfg.EventSink == "rabbitmq" {
		pub, err := rabbitmq.NewPublisher(cfg.RabbitURL, cfg.RabbitQueue)
		if err != nil {
			logger.Error("rabbitmq connect failed", "err", err)
			os.Exit(1)
		}
		defer pub.Close()
		sink = pub
	}
	dispatcher := eventlog.NewDispatcher(sink, logger, 256)
	defer dispatcher.Close()

	sessions := session.NewManager(store, dispatcher, logger, cfg.SessionTTL)

	// Completion provider, routed by name as sessions are single-provider.
	reg := ai.NewRegistry()
	reg.Register("groq", func(ctx context.Context, model string) (ai.Provider, error) {
		if model == "" {
			model = cfg.GroqModel
		}
		return ai.NewGroqProvider(cfg.GroqBaseURL, cfg.GroqAPIKey, model, cfg.GenerateTimeout), nil
	})
	provider, err := reg.Get(context.Background(), cfg.AIProvider, "")
	if err != nil {
		logger.Error("ai provider init failed", "provider", cfg.AIProvider, "err", err)
		os.Exit(1)
	}

	b := brain.New(sessions, provider, logger,
		cfg.HistoryWindow, cfg.MaxTokens, cfg.Temperature, cfg.GenerateTimeout)

	wa := whatsapp.NewClient(cfg.TwilioAccountSID, cfg.TwilioAuthToken, cfg.TwilioWhatsAppNumber)
	an := analytics.NewService(repo, store)
	vz := vision.NewAnalyzer(logger)

	h := handlers.NewHandler(cfg, logger, sessions, b, vz, wa, an)
	router := httpapi.NewRouter(h)

	srv := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: router,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		logger.Info("server started", "addr", cfg.HTTPAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server stopped", "err", err)
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutCtx, shutCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutCancel()
	if err := srv.Shutdown(shutCtx); err != nil {
		logger.Error("shutdown failed", "err", err)
	}
}

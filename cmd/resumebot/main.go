// Command resumebot runs the telegram bot that verifies uploaded resumes
// and vacancies and generates AI-backed application analyses.
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"resumebot/pkg/ai"
	"resumebot/pkg/analysis"
	"resumebot/pkg/bot"
	"resumebot/pkg/config"
	"resumebot/pkg/docstore"
	"resumebot/pkg/logx"
	"resumebot/pkg/persistence"
	"resumebot/pkg/scraper"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "resumebot: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	configPath := flag.String("config", "", "path to YAML config file (optional)")
	flag.Parse()

	logger := logx.NewLogger("main")

	cfg, err := config.Load(*configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	store, err := persistence.Open(cfg.Database.Path)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer func() { _ = store.Close() }()

	docs, err := docstore.New(cfg.Storage.Root)
	if err != nil {
		return fmt.Errorf("init document storage: %w", err)
	}

	provider, err := ai.NewProviderFromConfig(&cfg.AI)
	if err != nil {
		return fmt.Errorf("init AI provider: %w", err)
	}
	if cfg.Metrics.Enabled {
		provider = ai.WithMetrics(provider, ai.NewMetrics(prometheus.DefaultRegisterer))
	}
	client := ai.NewClient(provider, cfg.AI.MaxInputTokens)
	logger.Info("AI provider: %s (model %s)", client.ProviderName(), cfg.AI.Model)

	analyses := analysis.NewService(store, docs, client)
	pages := scraper.New(nil)

	conversation := bot.NewConversation(store, docs, client, analyses, pages, bot.Options{
		MaxFileSizeKB:  cfg.Telegram.MaxFileSizeKB,
		AllowedDocExts: cfg.Telegram.AllowedDocExts,
	})

	b, err := bot.New(cfg.Telegram.Token, conversation, cfg.Telegram.UpdateTimeout.Std())
	if err != nil {
		return fmt.Errorf("init telegram bot: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.Metrics.Enabled {
		startMetricsServer(ctx, cfg.Metrics.Addr, logger)
	}

	logger.Info("starting resumebot")
	if err := b.Run(ctx); err != nil {
		return fmt.Errorf("bot stopped: %w", err)
	}
	logger.Info("shutdown complete")
	return nil
}

func startMetricsServer(ctx context.Context, addr string, logger *logx.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		logger.Info("metrics listening on %s", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("metrics server: %v", err)
		}
	}()
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()
}

package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/mzhao28/agentchat/internal/config"
	"github.com/mzhao28/agentchat/internal/handler"
	faqmodel "github.com/mzhao28/agentchat/internal/model/faq"
	"github.com/mzhao28/agentchat/internal/service/agent"
	chatservice "github.com/mzhao28/agentchat/internal/service/chat"
	faqservice "github.com/mzhao28/agentchat/internal/service/faq"
	"github.com/mzhao28/agentchat/internal/service/ocr"
	"github.com/mzhao28/agentchat/internal/service/report"
	"github.com/mzhao28/agentchat/internal/service/session"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger, err := zap.NewProduction()
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	// Load .env file
	if err := godotenv.Load(); err != nil {
		logger.Warn("failed to load .env file, continuing with system environment", zap.Error(err))
	}

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("failed to load configuration", zap.Error(err))
	}

	// FAQ table: external file when configured, built-in seed otherwise.
	entries := faqmodel.Seed()
	if cfg.FAQ.Path != "" {
		entries, err = faqmodel.FromFile(cfg.FAQ.Path)
		if err != nil {
			logger.Fatal("failed to load faq table", zap.String("path", cfg.FAQ.Path), zap.Error(err))
		}
	}
	matcher := faqservice.NewMatcher(faqmodel.NewMemoryStore(entries), cfg.FAQ.Threshold)
	logger.Info("faq table loaded", zap.Int("entries", len(entries)))

	sessions := session.NewStore(cfg.Session.Capacity)

	// Agent engine is optional: without provider keys the FAQ path still works.
	var engine agent.Engine
	if cfg.Agent.Enabled() {
		engine = agent.NewService(cfg.Agent, logger)
		logger.Info("agent engine initialized", zap.Strings("allowedModels", cfg.Agent.AllowedModels))
	} else {
		logger.Warn("no provider credentials configured, agent path disabled")
	}

	chatSvc := chatservice.NewService(
		sessions,
		matcher,
		engine,
		report.NewPDFRenderer(cfg.Report.Dir),
		cfg.Agent.AllowedModels,
		logger,
	)

	ocrEngine := ocr.NewTesseract(cfg.OCR.Languages, logger)

	router := handler.NewRouter(chatSvc, ocrEngine, logger)

	startServer(ctx, cfg.Server, router, logger)
}

func startServer(ctx context.Context, serverCfg config.ServerConfig, router http.Handler, logger *zap.Logger) {
	srv := &http.Server{
		Addr:              serverCfg.Addr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	logger.Info("agentchat backend listening", zap.String("addr", serverCfg.Addr))
	if err := runServer(ctx, srv); err != nil {
		logger.Fatal("server error", zap.Error(err))
	}
}

func runServer(ctx context.Context, srv *http.Server) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		err := <-errCh
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

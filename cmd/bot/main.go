// Package main is the entry point for the Telegram video download bot.
package main

import (
	"context"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/driftbyte/fetchtube/internal/bot"
	"github.com/driftbyte/fetchtube/internal/config"
	"github.com/driftbyte/fetchtube/internal/cookies"
	"github.com/driftbyte/fetchtube/internal/delivery"
	"github.com/driftbyte/fetchtube/internal/downloader"
	"github.com/driftbyte/fetchtube/internal/gate"
	"github.com/driftbyte/fetchtube/internal/infra/cache"
	"github.com/driftbyte/fetchtube/internal/infra/fs"
	"github.com/driftbyte/fetchtube/internal/infra/sqlite"
	"github.com/driftbyte/fetchtube/internal/service"
	"github.com/driftbyte/fetchtube/internal/storage"
	transport "github.com/driftbyte/fetchtube/internal/transport/http"
	"github.com/driftbyte/fetchtube/pkg/logger"
	"github.com/driftbyte/fetchtube/pkg/safeclient"
)

// telegramClientTimeout bounds a single Bot API call, including large
// video uploads. It must stay above the long-poll timeout.
const telegramClientTimeout = 15 * time.Minute

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	logger.Setup(&logger.Config{Level: cfg.LogLevel, Production: cfg.IsProduction()})

	if err := run(cfg); err != nil {
		slog.Error("Fatal error", "error", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	for _, dir := range []string{cfg.DownloadDir, cfg.DataDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}

	cookiesPath := filepath.Join(cfg.DataDir, cfg.CookiesFile)
	cookieMgr := cookies.NewManager(cookiesPath)

	engine := downloader.New(&downloader.Config{
		YtDlpPath:    cfg.YtDlpPath,
		FFmpegPath:   cfg.FFmpegPath,
		DownloadDir:  cfg.DownloadDir,
		CookiesPath:  cookiesPath,
		MaxFileSize:  cfg.MaxFileSize,
		MaxDuration:  cfg.MaxDuration,
		Timeout:      cfg.DownloadTimeout,
		ProbeTimeout: cfg.ProbeTimeout,
	}, cache.Default())

	if err := engine.CheckBinary(); err != nil {
		return err
	}

	repo, err := sqlite.NewRepository(cfg.DataDir)
	if err != nil {
		return err
	}
	defer repo.Close()

	var archive storage.Archive
	if cfg.R2Enabled() {
		r2, err := storage.NewR2(ctx, cfg.R2AccountID, cfg.R2AccessKeyID, cfg.R2SecretAccessKey, cfg.R2BucketName)
		if err != nil {
			slog.Warn("R2 archive unavailable, archiving disabled", "error", err)
			archive = storage.NewDisabled()
		} else {
			archive = r2
		}
	} else {
		archive = storage.NewDisabled()
	}

	httpClient := safeclient.NewSafeHTTPClient(telegramClientTimeout)

	api, err := bot.Connect(cfg.BotToken, httpClient, cfg.BotDebug)
	if err != nil {
		return err
	}

	deliverer := delivery.New(bot.NewUploader(api), archive, cfg.Credit)
	svc := service.New(gate.New(), engine, deliverer, repo, cfg.ProgressInterval)

	b := bot.New(api, &bot.Config{
		Token:      cfg.BotToken,
		OwnerID:    cfg.OwnerID,
		Credit:     cfg.Credit,
		HTTPClient: httpClient,
		Debug:      cfg.BotDebug,
	}, svc, cookieMgr)

	sweeper := fs.NewSweeper(&fs.Config{
		DownloadDir:   cfg.DownloadDir,
		LocalMaxAge:   cfg.LocalMaxAge,
		Interval:      cfg.SweepInterval,
		Archive:       archive,
		ArchiveMaxAge: cfg.R2MaxFileAge,
	})
	sweeper.Start(ctx)
	defer sweeper.Stop()

	handlers := transport.NewHandlers(svc, cookieMgr, repo)
	server := transport.NewServer(net.JoinHostPort(cfg.Host, cfg.Port), transport.NewRouter(handlers))

	go func() {
		slog.Info("Health server starting", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("Health server error", "error", err)
		}
	}()

	slog.Info("Bot starting",
		"download_dir", cfg.DownloadDir,
		"archive", cfg.R2Enabled(),
	)

	// Blocks until a shutdown signal cancels the context.
	b.Run(ctx)

	slog.Info("Shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		slog.Error("Health server shutdown error", "error", err)
	}

	return nil
}

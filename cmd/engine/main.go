package main

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/jumpcut/jumpcut-engine/internal/api"
	"github.com/jumpcut/jumpcut-engine/internal/config"
	"github.com/jumpcut/jumpcut-engine/internal/db"
	"github.com/jumpcut/jumpcut-engine/internal/logging"
	"github.com/jumpcut/jumpcut-engine/internal/media"
	"github.com/jumpcut/jumpcut-engine/internal/metrics"
	"github.com/jumpcut/jumpcut-engine/internal/session"
	"github.com/jumpcut/jumpcut-engine/internal/streaming"
)

func main() {
	if err := run(); err != nil {
		log.Fatalf("fatal error: %v", err)
	}
}

func run() error {
	startTime := time.Now()

	cfg, err := config.New()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	if err := os.MkdirAll(cfg.DataDir(), 0755); err != nil {
		return fmt.Errorf("failed to create data dir: %w", err)
	}
	if err := os.MkdirAll(cfg.MediaDir(), 0755); err != nil {
		return fmt.Errorf("failed to create media dir: %w", err)
	}
	manifestDir := filepath.Join(cfg.DataDir(), "manifests")
	if err := os.MkdirAll(manifestDir, 0755); err != nil {
		return fmt.Errorf("failed to create manifest dir: %w", err)
	}

	logger := logging.NewLogger(cfg.LogLevel())
	logger.Info("starting jumpcut engine", "version", config.Version, "data_dir", cfg.DataDir())

	database, err := db.New(cfg.DBPath(), logger)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer database.Close()

	repo := session.NewRepository(database.Conn())

	deviceID, err := ensureDeviceID(repo)
	if err != nil {
		return fmt.Errorf("failed to ensure device ID: %w", err)
	}

	authToken, err := ensureAuthToken(repo)
	if err != nil {
		return fmt.Errorf("failed to ensure auth token: %w", err)
	}

	fmt.Println()
	fmt.Println("╔═══════════════════════════════════════════════════════════╗")
	fmt.Println("║                   JUMPCUT ENGINE v0.1.0                   ║")
	fmt.Println("╠═══════════════════════════════════════════════════════════╣")
	fmt.Printf("║  API URL:    http://127.0.0.1:%-27d ║\n", cfg.Port())
	fmt.Printf("║  Auth Token: %-45s ║\n", authToken)
	fmt.Printf("║  Device ID:  %-45s ║\n", deviceID[:16]+"...")
	fmt.Println("╚═══════════════════════════════════════════════════════════╝")
	fmt.Println()

	mediaServer := media.NewServer(cfg.MediaDir(), manifestDir, logger)

	var durationFn func(string) (float64, error)
	if probe := media.NewFFProbe(logger); probe.Available() {
		durationFn = probe.Duration
	}
	loader := media.NewFileLoader(mediaServer, durationFn, logger)

	var adapter *streaming.Adapter
	if cfg.ManifestBuilderURL() != "" {
		adapter = streaming.NewAdapter(streaming.Config{
			Enabled:      true,
			Client:       streaming.NewHTTPBuilderClient(cfg.ManifestBuilderURL(), logger),
			BuildTimeout: cfg.ManifestTimeout(),
			Logger:       logger,
		})
		logger.Info("unified streaming enabled", "builder_url", cfg.ManifestBuilderURL())
	} else {
		adapter = streaming.NewAdapter(streaming.Config{Logger: logger})
		logger.Info("unified streaming disabled, sequential playback only")
	}

	m := metrics.New()

	sessionSvc := session.NewService(repo, loader, adapter, session.Options{
		Ahead:   cfg.AheadWindow(),
		Behind:  cfg.BehindRetention(),
		Tick:    cfg.TickInterval(),
		Metrics: m,
	}, logger)

	apiServer := api.NewServer(api.ServerConfig{
		Port:           cfg.Port(),
		SessionService: sessionSvc,
		Repository:     repo,
		MediaServer:    mediaServer,
		Metrics:        m,
		Logger:         logger,
		StartTime:      startTime,
		DeviceID:       deviceID,
	})

	go func() {
		if err := apiServer.Start(); err != nil {
			logger.Error("HTTP server error", "error", err)
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("received shutdown signal", "signal", sig)

	logger.Info("initiating graceful shutdown")
	sessionSvc.Shutdown()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := apiServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("failed to shutdown HTTP server", "error", err)
	}

	logger.Info("shutdown complete")
	return nil
}

func ensureDeviceID(repo session.Repository) (string, error) {
	ctx := context.Background()

	existing, err := repo.GetConfig(ctx, "device_id")
	if err == nil && existing != "" {
		return existing, nil
	}

	idBytes := make([]byte, 16)
	if _, err := rand.Read(idBytes); err != nil {
		return "", err
	}
	deviceID := hex.EncodeToString(idBytes)

	if err := repo.SetConfig(ctx, "device_id", deviceID); err != nil {
		return "", err
	}

	return deviceID, nil
}

func ensureAuthToken(repo session.Repository) (string, error) {
	ctx := context.Background()

	existing, err := repo.GetConfig(ctx, "auth_token")
	if err == nil && existing != "" {
		return existing, nil
	}

	tokenBytes := make([]byte, 32)
	if _, err := rand.Read(tokenBytes); err != nil {
		return "", err
	}
	token := hex.EncodeToString(tokenBytes)

	if err := repo.SetConfig(ctx, "auth_token", token); err != nil {
		return "", err
	}

	return token, nil
}

// Package main runs the Dripmax launch orchestrator against stub providers.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/limbera/dripmax-app-sub001/internal/app"
	"github.com/limbera/dripmax-app-sub001/internal/capture"
	"github.com/limbera/dripmax-app-sub001/internal/config"
	"github.com/limbera/dripmax-app-sub001/internal/nav"
	"github.com/limbera/dripmax-app-sub001/internal/providers"
	"github.com/limbera/dripmax-app-sub001/internal/providers/stub"
	"github.com/limbera/dripmax-app-sub001/internal/state"
	"github.com/limbera/dripmax-app-sub001/internal/store"
)

var (
	configPath = flag.String("config", "config.yaml", "Path to config file")
	logLevel   = flag.String("log-level", "", "Log level (debug, info, warn, error)")
	scenario   = flag.String("scenario", "returning", "Launch scenario (fresh, returning, subscriber, correction, purchase, offline)")
)

// logRouter stands in for the host navigation stack. Every Replace call is
// what a real integration would hand to the UI layer.
type logRouter struct {
	log *slog.Logger
}

func (r *logRouter) Replace(ctx context.Context, route nav.Route) error {
	r.log.Info("Route replaced", "route", string(route))
	return nil
}

func main() {
	flag.Parse()

	// Load configuration
	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Override log level from flag if provided
	if *logLevel != "" {
		cfg.LogLevel = *logLevel
	}

	// Validate config
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Invalid config: %v\n", err)
		os.Exit(1)
	}

	// Setup logging
	var level slog.Level
	switch cfg.LogLevel {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	var logHandler slog.Handler
	if cfg.LogFormat == "text" {
		logHandler = slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})
	} else {
		logHandler = slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level})
	}
	logger := slog.New(logHandler)
	slog.SetDefault(logger)

	logger.Info("Dripmax launch simulator starting",
		"config", *configPath,
		"scenario", *scenario,
		"log_level", cfg.LogLevel,
	)

	// Ensure data directory exists (needed when using default ~/.dripmax/ path)
	if err := os.MkdirAll(filepath.Dir(cfg.StorePath), 0700); err != nil {
		logger.Error("Failed to create data directory", "error", err)
		os.Exit(1)
	}

	// Initialize store
	storeDB, err := store.NewSQLiteStore(cfg.StorePath)
	if err != nil {
		logger.Error("Failed to initialize store", "error", err)
		os.Exit(1)
	}
	defer storeDB.Close()

	// Set up signal handling for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	// Build providers for the requested scenario
	sess := &providers.Session{
		ID:        "sess-sim-1",
		UserID:    "user-sim-1",
		Email:     "sim@dripmax.app",
		ExpiresAt: time.Now().Add(24 * time.Hour),
	}

	var identity *stub.Identity
	var entitlement *stub.Entitlement
	switch *scenario {
	case "fresh":
		identity = stub.NewIdentity(storeDB.Sessions, nil)
		entitlement = stub.NewEntitlement(false, false)
	case "returning":
		identity = stub.NewIdentity(storeDB.Sessions, sess)
		entitlement = stub.NewEntitlement(false, false)
	case "subscriber":
		identity = stub.NewIdentity(storeDB.Sessions, sess)
		entitlement = stub.NewEntitlement(true, true)
	case "correction":
		// Cached answer says no subscription, server says yes. The optimistic
		// landing on onboarding gets corrected to home once the recheck lands.
		identity = stub.NewIdentity(storeDB.Sessions, sess)
		entitlement = stub.NewEntitlement(false, true)
		entitlement.CheckDelay = 500 * time.Millisecond
	case "purchase":
		identity = stub.NewIdentity(storeDB.Sessions, sess)
		entitlement = stub.NewEntitlement(false, false)
	case "offline":
		// Identity never settles, so the safety timeout is the only way out.
		identity = stub.NewIdentity(storeDB.Sessions, nil)
		identity.Hang = true
		entitlement = stub.NewEntitlement(false, false)
	default:
		fmt.Fprintf(os.Stderr, "Unknown scenario: %s\n", *scenario)
		os.Exit(1)
	}
	notifications := stub.NewNotifications()

	// Wire the lifecycle to the navigation coordinator
	pending := capture.NewPendingStore()
	lifecycle := app.NewLifecycle(cfg, storeDB, identity, entitlement, notifications)
	defer lifecycle.Stop()

	router := &logRouter{log: logger}
	coordinator := nav.NewCoordinator(cfg, router, lifecycle, pending, lifecycle.Monitor())
	lifecycle.OnStateChange(func(from, to state.State) {
		coordinator.HandleStateChange(ctx)
	})

	logger.Info("Launch orchestrator initialized",
		"store_path", cfg.StorePath,
		"state", lifecycle.CurrentState(),
	)

	coordinator.Arm(ctx)

	// Run bootstrap in background
	go func() {
		if err := lifecycle.Bootstrap(ctx); err != nil {
			logger.Error("Bootstrap error", "error", err)
		}
	}()

	// Wait for resolution (or the safety timeout) before running scenario steps
	settled := waitSettled(ctx, lifecycle, sigChan, cfg.SafetyTimeout+5*time.Second)
	if settled && *scenario == "purchase" {
		runPurchase(ctx, logger, lifecycle, pending)
	}

	status := lifecycle.Monitor().GetStatus()
	logger.Info("Launch complete",
		"state", status.State,
		"initialized", status.Initialized,
		"progress", status.Progress,
		"resolutions", status.Resolutions,
		"corrections", status.Corrections,
		"navigations", status.Navigations,
		"last_route", string(coordinator.LastRoute()),
	)
	logger.Info("Dripmax launch simulator stopped")
}

// waitSettled polls until the lifecycle reaches a terminal state and any
// entitlement recheck has drained, or a shutdown signal arrives.
func waitSettled(ctx context.Context, lifecycle *app.Lifecycle, sigChan chan os.Signal, timeout time.Duration) bool {
	deadline := time.NewTimer(timeout)
	defer deadline.Stop()
	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case sig := <-sigChan:
			slog.Info("Received shutdown signal", "signal", sig)
			return false
		case <-deadline.C:
			slog.Warn("Timed out waiting for launch to settle", "state", lifecycle.CurrentState())
			return false
		case <-ticker.C:
			if lifecycle.IsInitialized() && !lifecycle.RecheckInFlight() {
				return true
			}
		}
	}
}

// runPurchase simulates the paywall flow: the user captures an outfit photo,
// completes a purchase, and the coordinator routes into capture continuation.
func runPurchase(ctx context.Context, logger *slog.Logger, lifecycle *app.Lifecycle, pending *capture.PendingStore) {
	// Let the navigation debounce window pass before the purchase transition.
	time.Sleep(500 * time.Millisecond)

	pending.Set(capture.PendingImage{URI: "file:///tmp/outfit.jpg", CapturedAt: time.Now()})
	if err := lifecycle.MarkPurchaseCompleted(ctx); err != nil {
		logger.Error("Purchase transition rejected", "error", err)
		return
	}

	time.Sleep(500 * time.Millisecond)
	if img := pending.Take(); img != nil {
		logger.Info("Pending capture consumed", "uri", img.URI)
	}
}

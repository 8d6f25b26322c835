package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"keywatch/internal/config"
	"keywatch/internal/logger"
	"keywatch/internal/metrics"
	"keywatch/internal/repository/sqlite"
	"keywatch/internal/route"
	"keywatch/internal/service"
	"keywatch/internal/service/alert"
	"keywatch/internal/service/capture"
	"keywatch/internal/service/occupancy"
	"keywatch/internal/service/sound"
	"keywatch/internal/service/storage"
	"keywatch/internal/service/vision"
	"keywatch/internal/service/websocket"
	"keywatch/internal/service/zone"
)

const shutdownTimeout = 10 * time.Second

type App struct {
	config *config.Config
	logger *logger.Logger
}

type display interface {
	capture.Display[*vision.Frame]
	Close() error
}

// NewApp loads the configuration and opens the log files.
func NewApp() (*App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	log, err := logger.NewLogger(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	return &App{config: cfg, logger: log}, nil
}

// Run acquires the camera, audio device and journal database, then monitors
// until the preview window quits, the camera closes or a signal arrives.
// Every acquired resource is released on return.
func (a *App) Run(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg := a.config

	camera, err := vision.OpenCamera(cfg, a.logger)
	if err != nil {
		return fmt.Errorf("camera unavailable: %w", err)
	}
	defer camera.Close()

	player, err := sound.Open(cfg.AlertSound, a.logger)
	if err != nil {
		return fmt.Errorf("audio unavailable: %w", err)
	}
	defer player.Close()

	db, err := sqlite.New(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("failed to open alarm journal: %w", err)
	}
	defer db.Close()

	detector := vision.NewColorDetector(cfg)
	defer detector.Close()

	var view display = vision.Headless{}
	if !cfg.Headless {
		view = vision.NewWindow("Key Slots")
	}
	defer view.Close()

	monitor := occupancy.New(cfg.ZoneCount)
	geometry := zone.NewGeometry(cfg.ZoneCount, cfg.ZoneSpacing)
	countdown := capture.NewCountdown(cfg.CountdownPeriod, time.Now())
	controller := alert.NewController(monitor, player, cfg, a.logger)

	loop := capture.NewLoop[*vision.Frame](camera, detector, view, geometry, monitor, countdown, a.logger)

	alarmRepo := sqlite.NewAlarmRepository(db)
	buffer := storage.NewBufferService(cfg, a.logger, alarmRepo)
	hub := websocket.NewHubService(a.logger)
	met := metrics.New(loop.Stats)

	manager := service.NewManager(service.Deps[*vision.Frame]{
		Monitor:    monitor,
		Geometry:   geometry,
		Controller: controller,
		Countdown:  countdown,
		Stats:      loop.Stats,
		Hub:        hub,
		Buffer:     buffer,
		Metrics:    met,
		Encode:     vision.EncodeJPEG,
	}, cfg.StreamInterval, a.logger)
	loop.AddObserver(manager)

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Port),
		Handler: route.SetupRoutes(manager, hub, alarmRepo, met, cfg, a.logger),
	}

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	// The journal outlives the controller so the final silenced event is flushed.
	journalCtx, stopJournal := context.WithCancel(context.Background())
	defer stopJournal()

	var wg, controllerWG sync.WaitGroup

	controllerWG.Add(1)
	go func() {
		defer controllerWG.Done()
		controller.Run(runCtx)
	}()

	wg.Add(3)
	go func() {
		defer wg.Done()
		hub.Run(runCtx)
	}()
	go func() {
		defer wg.Done()
		buffer.Run(journalCtx)
	}()

	serverErr := make(chan error, 1)
	go func() {
		defer wg.Done()
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.logger.Error("HTTP server error: %v", err)
			serverErr <- err
			cancel()
		}
	}()

	a.logger.Info("🚀 Key slot monitor")
	a.logger.Info("📍 URL: http://localhost:%d", cfg.Port)
	a.logger.Info("📷 Camera: device %d, %d zones", cfg.CameraDevice, cfg.ZoneCount)
	a.logger.Info("🔔 Alert: %s every %s", cfg.AlertSound, cfg.AlertThreshold)

	loopErr := loop.Run(runCtx)

	a.logger.Info("Shutting down")
	cancel()
	controllerWG.Wait()
	stopJournal()

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancelShutdown()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		a.logger.Error("HTTP shutdown error: %v", err)
	}

	wg.Wait()
	a.logger.Info("Stopped")

	if loopErr != nil {
		return fmt.Errorf("capture loop: %w", loopErr)
	}
	select {
	case err := <-serverErr:
		return fmt.Errorf("http server: %w", err)
	default:
	}
	return nil
}

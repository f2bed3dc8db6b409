package main

import (
	"context"
	"database/sql"
	"errors"
	"io"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/charmbracelet/log"
	_ "github.com/mattn/go-sqlite3"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/wheelibin/lumalite/internal/config"
	"github.com/wheelibin/lumalite/internal/devices"
	"github.com/wheelibin/lumalite/internal/events"
	"github.com/wheelibin/lumalite/internal/lan"
	"github.com/wheelibin/lumalite/internal/lumalite"
	"github.com/wheelibin/lumalite/internal/preferences"
	"github.com/wheelibin/lumalite/internal/repos"
	"github.com/wheelibin/lumalite/internal/scenes"
	"github.com/wheelibin/lumalite/internal/schedule"
)

func main() {
	// read the config file
	cfg, err := config.InitialiseConfig()
	if err != nil {
		log.Fatal("Error reading config", "err", err)
	}

	logFile := &lumberjack.Logger{
		Filename: cfg.LogFile,
		MaxSize:  10,
		MaxAge:   3,
	}
	defer logFile.Close()

	logger := log.NewWithOptions(io.MultiWriter(os.Stderr, logFile), log.Options{
		Level:           cfg.Level(),
		ReportTimestamp: true,
		TimeFormat:      "2006/01/02 15:04:05",
	})
	logger.Info("lumalited starting")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("lumalited failed", "err", err)
		stop()
		os.Exit(1)
	}
	logger.Info("lumalited is closing")
}

func run(ctx context.Context, cfg *config.Config, logger *log.Logger) error {
	if dir := filepath.Dir(cfg.DBPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	db, err := sql.Open("sqlite3", cfg.DBPath)
	if err != nil {
		return err
	}
	defer db.Close()

	// create/wire up services
	settings, err := repos.NewSettingsRepo(logger, db)
	if err != nil {
		return err
	}
	publisher := events.NewPublisher(logger)
	defer publisher.Close()

	lanClient := lan.NewLanClient(logger, lan.DefaultOptions())
	deviceService := devices.NewDeviceService(logger, settings, lanClient, devices.NewCloudFactory(logger), cfg.APIBaseURL)
	sceneService := scenes.NewSceneService(logger, settings, deviceService, publisher)
	scheduler := schedule.NewScheduler(logger, settings, sceneService, publisher, schedule.SunTimesFromConfig(logger, cfg))
	sceneService.SetRescheduler(scheduler)
	prefs := preferences.NewService(logger, settings, publisher)

	// pick up api key and base url edits without a restart
	reloader := lumalite.NewReloader(logger, deviceService, prefs, cfg)
	config.Watch(logger, func(next *config.Config) { reloader.Apply(ctx, next) })

	app := lumalite.NewApp(logger, settings, deviceService, scheduler, publisher, cfg.APIKey)

	if cfg.EventsAddr != "" {
		server := serveEvents(logger, cfg.EventsAddr, publisher)
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			// open event streams only end once the publisher closes
			publisher.Close()
			if err := server.Shutdown(shutdownCtx); err != nil {
				logger.Error("Error stopping event stream", "err", err)
			}
		}()
	}

	if err := app.Initialise(ctx); err != nil {
		return err
	}

	// start the refresh loop, returns once a stop signal is received
	app.Run(ctx)
	return nil
}

func serveEvents(logger *log.Logger, addr string, publisher *events.Publisher) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/events", publisher)

	server := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		logger.Info("Serving events", "addr", addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("Error serving events", "err", err)
		}
	}()
	return server
}

package lumalite

import (
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/log"
	"github.com/samber/lo"

	"github.com/wheelibin/lumalite/internal/constants"
	"github.com/wheelibin/lumalite/internal/models"
)

type DeviceService interface {
	RefreshDevices(ctx context.Context) []models.Device
	RefreshDeviceStates(ctx context.Context) map[string]models.DeviceState
	Diagnostics() models.Diagnostics
	DeviceCount() int
	LastStateUpdateAt() *time.Time
}

type Scheduler interface {
	ScheduleAll(ctx context.Context)
	Stop()
}

type settingsStore interface {
	Load(ctx context.Context) models.Settings
	Save(ctx context.Context, patch models.SettingsPatch) (models.Settings, error)
}

type eventPublisher interface {
	Publish(topic string, payload any)
}

// Status is published after every refresh
type Status struct {
	models.Diagnostics
	DeviceCount       int        `json:"deviceCount"`
	LastStateUpdateAt *time.Time `json:"lastStateUpdateAt,omitempty"`
}

type App struct {
	logger    *log.Logger
	settings  settingsStore
	devices   DeviceService
	scheduler Scheduler
	events    eventPublisher
	// from the environment, used until a key is saved
	envAPIKey string
	now       func() time.Time

	refreshInterval      time.Duration
	stateRefreshInterval time.Duration
}

func NewApp(
	logger *log.Logger,
	settings settingsStore,
	devices DeviceService,
	scheduler Scheduler,
	events eventPublisher,
	envAPIKey string,
) *App {
	return &App{
		logger:               logger,
		settings:             settings,
		devices:              devices,
		scheduler:            scheduler,
		events:               events,
		envAPIKey:            envAPIKey,
		now:                  time.Now,
		refreshInterval:      constants.MainRefreshInterval,
		stateRefreshInterval: constants.StateRefreshInterval,
	}
}

// WithIntervals replaces the device and device state refresh intervals
func (a *App) WithIntervals(refresh time.Duration, stateRefresh time.Duration) *App {
	a.refreshInterval = refresh
	a.stateRefreshInterval = stateRefresh
	return a
}

// Initialise seeds the api key, discovers devices and arms the scene schedules
func (a *App) Initialise(ctx context.Context) error {
	a.logger.Debug("App.Initialise")

	if a.envAPIKey != "" && a.settings.Load(ctx).APIKey == "" {
		a.logger.Info("Using the api key from the environment")
		if _, err := a.settings.Save(ctx, models.SettingsPatch{APIKey: &a.envAPIKey}); err != nil {
			return fmt.Errorf("Error saving api key: %w", err)
		}
	}

	a.refreshDevices(ctx)
	a.scheduler.ScheduleAll(ctx)

	return nil
}

// Run refreshes devices and their state on an interval until ctx is done,
// then disarms the schedules
func (a *App) Run(ctx context.Context) {
	a.logger.Debug("App.Run")

	refreshTimer := time.NewTicker(a.refreshInterval)
	defer refreshTimer.Stop()
	stateTimer := time.NewTicker(a.stateRefreshInterval)
	defer stateTimer.Stop()

	for {
		select {
		case <-ctx.Done():
			a.logger.Info("App.Run: stop signal received")
			a.scheduler.Stop()
			return

		case <-refreshTimer.C:
			a.logger.Debug("App.Run: refreshing devices...")
			a.refreshDevices(ctx)

		case <-stateTimer.C:
			a.logger.Debug("App.Run: refreshing device states...")
			states := a.devices.RefreshDeviceStates(ctx)
			a.publish("states", states)
			a.publishStatus()
		}
	}
}

func (a *App) refreshDevices(ctx context.Context) {
	devices := a.devices.RefreshDevices(ctx)
	a.logger.Info("Refreshed devices", "count", len(devices), "provider", a.devices.Diagnostics().ProviderStatus)

	if _, err := a.settings.Save(ctx, models.SettingsPatch{LastRefreshAt: lo.ToPtr(a.now())}); err != nil {
		a.logger.Error("Error saving refresh time", "err", err)
	}

	a.publish("devices", devices)
	a.publishStatus()
}

func (a *App) publishStatus() {
	a.publish("diagnostics", Status{
		Diagnostics:       a.devices.Diagnostics(),
		DeviceCount:       a.devices.DeviceCount(),
		LastStateUpdateAt: a.devices.LastStateUpdateAt(),
	})
}

func (a *App) publish(topic string, payload any) {
	if a.events != nil {
		a.events.Publish(topic, payload)
	}
}

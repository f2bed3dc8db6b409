package lumalite_test

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/wheelibin/lumalite/internal/lumalite"
	"github.com/wheelibin/lumalite/internal/models"
	"github.com/wheelibin/lumalite/mocks"
)

var devices = []models.Device{{ID: "AA:BB", Name: "Lamp", Source: models.SourceHybrid}}

type appFixture struct {
	settings  *mocks.MockSettingsStore
	devices   *mocks.MockLumaliteDeviceService
	scheduler *mocks.MockLumaliteScheduler
	events    *mocks.MockEventPublisher
}

func newAppFixture(t *testing.T) *appFixture {
	f := &appFixture{
		settings:  mocks.NewMockSettingsStore(t),
		devices:   mocks.NewMockLumaliteDeviceService(t),
		scheduler: mocks.NewMockLumaliteScheduler(t),
		events:    mocks.NewMockEventPublisher(t),
	}
	f.devices.On("Diagnostics").Return(models.Diagnostics{ProviderStatus: models.ProviderHybrid}).Maybe()
	f.devices.On("DeviceCount").Return(1).Maybe()
	f.devices.On("LastStateUpdateAt").Return(nil).Maybe()
	return f
}

func (f *appFixture) app(envAPIKey string) *lumalite.App {
	logger := log.NewWithOptions(os.Stderr, log.Options{Level: log.FatalLevel})
	return lumalite.NewApp(logger, f.settings, f.devices, f.scheduler, f.events, envAPIKey)
}

func refreshTimeSaved(p models.SettingsPatch) bool {
	return p.LastRefreshAt != nil && p.APIKey == nil
}

func Test_Initialise(t *testing.T) {
	ctx := context.Background()

	t.Run("should seed the api key, refresh devices and arm the schedules", func(t *testing.T) {
		f := newAppFixture(t)
		f.settings.On("Load", mock.Anything).Return(models.DefaultSettings()).Once()
		f.settings.On("Save", mock.Anything, mock.MatchedBy(func(p models.SettingsPatch) bool {
			return p.APIKey != nil && *p.APIKey == "env-key"
		})).Return(models.Settings{APIKey: "env-key"}, nil).Once()
		f.devices.On("RefreshDevices", mock.Anything).Return(devices).Once()
		f.settings.On("Save", mock.Anything, mock.MatchedBy(refreshTimeSaved)).Return(models.Settings{}, nil).Once()
		f.events.On("Publish", "devices", devices).Once()
		f.events.On("Publish", "diagnostics", lumalite.Status{
			Diagnostics: models.Diagnostics{ProviderStatus: models.ProviderHybrid},
			DeviceCount: 1,
		}).Once()
		f.scheduler.On("ScheduleAll", mock.Anything).Once()

		err := f.app("env-key").Initialise(ctx)

		assert.NoError(t, err)
	})

	t.Run("should keep a stored api key", func(t *testing.T) {
		f := newAppFixture(t)
		stored := models.DefaultSettings()
		stored.APIKey = "stored-key"
		f.settings.On("Load", mock.Anything).Return(stored).Once()
		f.devices.On("RefreshDevices", mock.Anything).Return(devices).Once()
		f.settings.On("Save", mock.Anything, mock.MatchedBy(refreshTimeSaved)).Return(models.Settings{}, nil).Once()
		f.events.On("Publish", mock.Anything, mock.Anything)
		f.scheduler.On("ScheduleAll", mock.Anything).Once()

		err := f.app("env-key").Initialise(ctx)

		assert.NoError(t, err)
	})

	t.Run("should carry on when the refresh time can't be saved", func(t *testing.T) {
		f := newAppFixture(t)
		f.devices.On("RefreshDevices", mock.Anything).Return([]models.Device{}).Once()
		f.settings.On("Save", mock.Anything, mock.Anything).Return(models.Settings{}, errors.New("read only")).Once()
		f.events.On("Publish", mock.Anything, mock.Anything)
		f.scheduler.On("ScheduleAll", mock.Anything).Once()

		err := f.app("").Initialise(ctx)

		assert.NoError(t, err)
	})

	t.Run("should fail when the api key can't be saved", func(t *testing.T) {
		f := newAppFixture(t)
		f.settings.On("Load", mock.Anything).Return(models.DefaultSettings()).Once()
		f.settings.On("Save", mock.Anything, mock.Anything).Return(models.Settings{}, errors.New("read only")).Once()

		err := f.app("env-key").Initialise(ctx)

		assert.ErrorContains(t, err, "read only")
	})
}

func Test_Run(t *testing.T) {

	t.Run("should refresh on the intervals and stop the scheduler when done", func(t *testing.T) {
		f := newAppFixture(t)
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		states := map[string]models.DeviceState{"AA:BB": {}}
		refreshed := make(chan struct{}, 1)
		stateRefreshed := make(chan struct{}, 1)
		f.devices.On("RefreshDevices", mock.Anything).Return(devices).
			Run(func(args mock.Arguments) { signal(refreshed) })
		f.devices.On("RefreshDeviceStates", mock.Anything).Return(states).
			Run(func(args mock.Arguments) { signal(stateRefreshed) })
		f.settings.On("Save", mock.Anything, mock.MatchedBy(refreshTimeSaved)).Return(models.Settings{}, nil)
		f.events.On("Publish", "devices", devices)
		f.events.On("Publish", "states", states)
		f.events.On("Publish", "diagnostics", mock.Anything)
		f.scheduler.On("Stop").Once()

		app := f.app("").WithIntervals(10*time.Millisecond, 15*time.Millisecond)
		done := make(chan struct{})
		go func() {
			app.Run(ctx)
			close(done)
		}()

		wait(t, refreshed)
		wait(t, stateRefreshed)
		cancel()
		wait(t, done)
	})
}

func signal(ch chan struct{}) {
	select {
	case ch <- struct{}{}:
	default:
	}
}

func wait(t *testing.T, ch chan struct{}) {
	select {
	case <-ch:
	case <-time.After(2 * time.Second):
		require.FailNow(t, "timed out")
	}
}

package devices_test

import (
	"context"
	"errors"
	"os"
	"testing"

	"github.com/charmbracelet/log"
	"github.com/samber/lo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/wheelibin/lumalite/internal/constants"
	"github.com/wheelibin/lumalite/internal/devices"
	"github.com/wheelibin/lumalite/internal/lan"
	"github.com/wheelibin/lumalite/internal/models"
	"github.com/wheelibin/lumalite/mocks"
)

var lanLamp = models.Device{ID: "AA:BB:CC:DD", Name: "Lamp", Model: "H6008", SKU: "H6008", LanIP: "10.0.0.2", LanPort: 4003, Source: models.SourceLan}
var lanOnly = models.Device{ID: "11:22:33:44", Name: "Bulb", Model: "H6009", LanIP: "10.0.0.3", LanPort: 4003, Source: models.SourceLan}
var cloudLamp = models.Device{
	ID:    "aa:bb:cc:dd",
	Name:  "Desk lamp",
	Model: "H6008",
	SKU:   "H6008",
	Capabilities: []models.Capability{
		{Type: "devices.capabilities.toggle", Instance: "powerSwitch"},
		{Type: constants.CapabilityRange, Instance: constants.InstanceBrightness},
	},
}
var cloudOnly = models.Device{ID: "ff:ee", Name: "Strip", Model: "H6159", SKU: "H6159"}

type fixture struct {
	lan       *mocks.MockDevicesLanClient
	cloud     *mocks.MockDevicesCloudProvider
	settings  *mocks.MockSettingsStore
	current   *models.Settings
	factories *int
	service   *devices.DeviceService
}

func newFixture(t *testing.T, apiKey string) fixture {
	s := models.DefaultSettings()
	s.APIKey = apiKey

	f := fixture{
		lan:       mocks.NewMockDevicesLanClient(t),
		cloud:     mocks.NewMockDevicesCloudProvider(t),
		settings:  mocks.NewMockSettingsStore(t),
		current:   &s,
		factories: new(int),
	}
	f.settings.On("Load", mock.Anything).Return(func(context.Context) models.Settings { return *f.current }).Maybe()

	factory := func(apiKey string, baseURL string) devices.CloudProvider {
		*f.factories++
		return f.cloud
	}
	logger := log.NewWithOptions(os.Stderr, log.Options{Level: log.FatalLevel})
	f.service = devices.NewDeviceService(logger, f.settings, f.lan, factory, "https://example.test")
	return f
}

func (f fixture) refresh(t *testing.T, lanDevices []models.Device, cloudDevices []models.Device) {
	f.lan.On("Discover", mock.Anything).Return(lanDevices, nil).Once()
	if f.current.APIKey != "" {
		f.cloud.On("ListDevices", mock.Anything).Return(cloudDevices, nil).Once()
	}
	f.service.RefreshDevices(context.Background())
}

func Test_RefreshDevices(t *testing.T) {

	t.Run("should merge cloud and lan devices by normalized id", func(t *testing.T) {
		f := newFixture(t, "key")
		f.lan.On("Discover", mock.Anything).Return([]models.Device{lanLamp, lanOnly}, nil)
		f.cloud.On("ListDevices", mock.Anything).Return([]models.Device{cloudLamp, cloudOnly}, nil)

		result := f.service.RefreshDevices(context.Background())

		require.Len(t, result, 3)
		assert.Equal(t, "aa:bb:cc:dd", result[0].ID)
		assert.Equal(t, "Desk lamp", result[0].Name)
		assert.Equal(t, "10.0.0.2", result[0].LanIP)
		assert.Equal(t, 4003, result[0].LanPort)
		assert.Equal(t, models.SourceHybrid, result[0].Source)
		assert.Equal(t, cloudLamp.Capabilities, result[0].Capabilities)
		assert.Equal(t, models.SourceCloud, result[1].Source)
		assert.Equal(t, lanOnly, result[2])
		assert.Equal(t, models.ProviderHybrid, f.service.Diagnostics().ProviderStatus)
		assert.Equal(t, 3, f.service.DeviceCount())
	})

	t.Run("should report cloud when lan finds nothing", func(t *testing.T) {
		f := newFixture(t, "key")
		f.lan.On("Discover", mock.Anything).Return([]models.Device{}, nil)
		f.cloud.On("ListDevices", mock.Anything).Return([]models.Device{cloudOnly}, nil)

		result := f.service.RefreshDevices(context.Background())

		assert.Len(t, result, 1)
		assert.Equal(t, models.ProviderCloud, f.service.Diagnostics().ProviderStatus)
	})

	t.Run("should treat a lan discovery failure as no lan devices", func(t *testing.T) {
		f := newFixture(t, "key")
		f.lan.On("Discover", mock.Anything).Return(nil, errors.New("bind failed"))
		f.cloud.On("ListDevices", mock.Anything).Return([]models.Device{cloudOnly}, nil)

		result := f.service.RefreshDevices(context.Background())

		assert.Equal(t, []models.Device{{ID: "ff:ee", Name: "Strip", Model: "H6159", SKU: "H6159", Source: models.SourceCloud}}, result)
	})

	t.Run("should skip lan discovery when lan is disabled", func(t *testing.T) {
		f := newFixture(t, "key")
		f.current.LanEnabled = false
		f.cloud.On("ListDevices", mock.Anything).Return([]models.Device{cloudOnly}, nil)

		result := f.service.RefreshDevices(context.Background())

		assert.Len(t, result, 1)
		f.lan.AssertNotCalled(t, "Discover", mock.Anything)
	})

	tests := []struct {
		name       string
		apiKey     string
		lanDevices []models.Device
		cloudErr   error
		expected   models.ProviderStatus
		count      int
	}{
		{name: "no key with lan devices", apiKey: "", lanDevices: []models.Device{lanLamp}, expected: models.ProviderLan, count: 1},
		{name: "no key without lan devices", apiKey: "", lanDevices: []models.Device{}, expected: models.ProviderMissingKey, count: 0},
		{name: "cloud failure with lan devices", apiKey: "key", lanDevices: []models.Device{lanLamp}, cloudErr: errors.New("boom"), expected: models.ProviderLan, count: 1},
		{name: "cloud failure without lan devices", apiKey: "key", lanDevices: []models.Device{}, cloudErr: errors.New("boom"), expected: models.ProviderError, count: 0},
	}

	for _, c := range tests {
		t.Run("should never fail: "+c.name, func(t *testing.T) {
			f := newFixture(t, c.apiKey)
			f.lan.On("Discover", mock.Anything).Return(c.lanDevices, nil)
			if c.cloudErr != nil {
				f.cloud.On("ListDevices", mock.Anything).Return(nil, c.cloudErr)
			}

			result := f.service.RefreshDevices(context.Background())

			assert.Len(t, result, c.count)
			diagnostics := f.service.Diagnostics()
			assert.Equal(t, c.expected, diagnostics.ProviderStatus)
			if c.cloudErr != nil {
				assert.Equal(t, "boom", diagnostics.LastError)
				assert.NotNil(t, diagnostics.LastErrorAt)
			}
			if c.apiKey == "" {
				assert.Equal(t, 0, *f.factories, "no cloud client should be created without a key")
			}
		})
	}
}

func Test_ListDevices(t *testing.T) {

	t.Run("should refresh only when the cache is empty", func(t *testing.T) {
		f := newFixture(t, "")
		f.lan.On("Discover", mock.Anything).Return([]models.Device{lanLamp}, nil).Once()

		first := f.service.ListDevices(context.Background())
		second := f.service.ListDevices(context.Background())

		assert.Equal(t, first, second)
		f.lan.AssertNumberOfCalls(t, "Discover", 1)
	})
}

func Test_SetPower(t *testing.T) {

	t.Run("should use lan when the device has a local address", func(t *testing.T) {
		f := newFixture(t, "key")
		f.refresh(t, []models.Device{lanLamp}, []models.Device{cloudLamp})
		f.lan.On("SetPower", mock.Anything, "aa:bb:cc:dd", false).Return(nil)

		err := f.service.SetPower(context.Background(), "aa:bb:cc:dd", false)

		assert.NoError(t, err)
		f.cloud.AssertNotCalled(t, "ControlCapability", mock.Anything, mock.Anything, mock.Anything)
		assert.False(t, f.service.PowerSnapshot()["aa:bb:cc:dd"])
	})

	t.Run("should fall back to cloud with the resolved capability when lan fails", func(t *testing.T) {
		f := newFixture(t, "key")
		f.refresh(t, []models.Device{lanLamp}, []models.Device{cloudLamp})
		f.lan.On("SetPower", mock.Anything, "aa:bb:cc:dd", false).Return(errors.New("network unreachable"))
		f.cloud.On("ControlCapability", mock.Anything, "aa:bb:cc:dd", models.CapabilityValue{
			Type:     "devices.capabilities.toggle",
			Instance: "powerSwitch",
			Value:    0,
		}).Return(nil)

		err := f.service.SetPower(context.Background(), "aa:bb:cc:dd", false)

		assert.NoError(t, err)
		assert.Equal(t, map[string]bool{"aa:bb:cc:dd": false}, f.service.PowerSnapshot())
		assert.Equal(t, models.ProviderCloud, f.service.Diagnostics().ProviderStatus)
	})

	t.Run("should propagate the lan error when there is no api key", func(t *testing.T) {
		f := newFixture(t, "")
		f.refresh(t, []models.Device{lanLamp}, nil)
		lanErr := errors.New("network unreachable")
		f.lan.On("SetPower", mock.Anything, lanLamp.ID, true).Return(lanErr)

		err := f.service.SetPower(context.Background(), lanLamp.ID, true)

		assert.ErrorIs(t, err, lanErr)
		assert.Equal(t, 0, *f.factories)
	})

	t.Run("should leave the power state alone when both paths fail", func(t *testing.T) {
		f := newFixture(t, "key")
		f.refresh(t, []models.Device{lanLamp}, []models.Device{cloudLamp})
		f.lan.On("SetPower", mock.Anything, "aa:bb:cc:dd", false).Return(errors.New("lan"))
		f.cloud.On("ControlCapability", mock.Anything, "aa:bb:cc:dd", mock.Anything).Return(errors.New("cloud"))

		err := f.service.SetPower(context.Background(), "aa:bb:cc:dd", false)

		assert.EqualError(t, err, "cloud")
		assert.True(t, f.service.PowerSnapshot()["aa:bb:cc:dd"])
		assert.Equal(t, models.ProviderError, f.service.Diagnostics().ProviderStatus)
	})

	t.Run("should fail with missing key for a cloud only device", func(t *testing.T) {
		f := newFixture(t, "")

		err := f.service.SetPower(context.Background(), "ff:ee", true)

		assert.ErrorIs(t, err, devices.ErrMissingAPIKey)
		assert.Equal(t, models.ProviderMissingKey, f.service.Diagnostics().ProviderStatus)
	})
}

func Test_SetBrightness(t *testing.T) {

	t.Run("should clamp and send through cloud for a cloud device", func(t *testing.T) {
		f := newFixture(t, "key")
		f.refresh(t, []models.Device{}, []models.Device{cloudOnly})
		f.cloud.On("ControlCapability", mock.Anything, "ff:ee", models.CapabilityValue{
			Type:     constants.CapabilityRange,
			Instance: constants.InstanceBrightness,
			Value:    100,
		}).Return(nil)

		err := f.service.SetBrightness(context.Background(), "ff:ee", 180)

		assert.NoError(t, err)
	})
}

func Test_ControlCapability(t *testing.T) {

	t.Run("should route colour through lan", func(t *testing.T) {
		f := newFixture(t, "key")
		f.refresh(t, []models.Device{lanLamp}, []models.Device{cloudLamp})
		f.lan.On("SetColor", mock.Anything, "aa:bb:cc:dd", models.RGB{R: 255, G: 0, B: 16}).Return(nil)

		err := f.service.ControlCapability(context.Background(), "aa:bb:cc:dd", models.CapabilityValue{
			Type:     constants.CapabilityColorSetting,
			Instance: constants.InstanceColorRgb,
			Value:    0xff0010,
		})

		assert.NoError(t, err)
	})

	t.Run("should route colour temperature through lan", func(t *testing.T) {
		f := newFixture(t, "key")
		f.refresh(t, []models.Device{lanLamp}, []models.Device{cloudLamp})
		f.lan.On("SetColorTemperature", mock.Anything, "aa:bb:cc:dd", 2700).Return(nil)

		err := f.service.ControlCapability(context.Background(), "aa:bb:cc:dd", models.CapabilityValue{
			Type:     constants.CapabilityColorSetting,
			Instance: constants.InstanceColorTemperatureK,
			Value:    2700.0,
		})

		assert.NoError(t, err)
	})

	t.Run("should treat a true power value as on", func(t *testing.T) {
		f := newFixture(t, "key")
		f.refresh(t, []models.Device{lanLamp}, []models.Device{cloudLamp})
		f.lan.On("SetPower", mock.Anything, "aa:bb:cc:dd", true).Return(nil)

		err := f.service.ControlCapability(context.Background(), "aa:bb:cc:dd", models.CapabilityValue{
			Type:     constants.CapabilityOnOff,
			Instance: constants.InstancePowerSwitch,
			Value:    true,
		})

		assert.NoError(t, err)
	})

	t.Run("should send unknown capabilities straight to cloud", func(t *testing.T) {
		f := newFixture(t, "key")
		f.refresh(t, []models.Device{lanLamp}, []models.Device{cloudLamp})
		sceneCapability := models.CapabilityValue{
			Type:     "devices.capabilities.dynamic_scene",
			Instance: "lightScene",
			Value:    map[string]any{"id": 1},
		}
		f.cloud.On("ControlCapability", mock.Anything, "aa:bb:cc:dd", sceneCapability).Return(nil)

		err := f.service.ControlCapability(context.Background(), "aa:bb:cc:dd", sceneCapability)

		assert.NoError(t, err)
		assert.Empty(t, f.lan.Calls[1:], "only the discovery should reach the lan client")
	})
}

func Test_GetDeviceState(t *testing.T) {

	t.Run("should read the state over lan first", func(t *testing.T) {
		f := newFixture(t, "key")
		f.refresh(t, []models.Device{lanLamp}, []models.Device{cloudLamp})
		f.lan.On("GetStatus", mock.Anything, "aa:bb:cc:dd").Return(lan.Status{OnOff: lo.ToPtr(1), Brightness: lo.ToPtr(30)}, nil)

		state, err := f.service.GetDeviceState(context.Background(), "aa:bb:cc:dd")

		require.NoError(t, err)
		assert.True(t, *state.Power)
		assert.Equal(t, 30, *state.Brightness)
		assert.NotNil(t, f.service.LastStateUpdateAt())
	})

	t.Run("should fall back to cloud when lan times out", func(t *testing.T) {
		f := newFixture(t, "key")
		f.refresh(t, []models.Device{lanLamp}, []models.Device{cloudLamp})
		f.lan.On("GetStatus", mock.Anything, "aa:bb:cc:dd").Return(lan.Status{}, lan.ErrStatusTimeout)
		f.cloud.On("GetDeviceState", mock.Anything, "aa:bb:cc:dd", "H6008").Return(models.DeviceState{Power: lo.ToPtr(false)}, nil)

		state, err := f.service.GetDeviceState(context.Background(), "aa:bb:cc:dd")

		require.NoError(t, err)
		assert.False(t, *state.Power)
	})

	t.Run("should return an empty state for a device the cloud no longer knows", func(t *testing.T) {
		f := newFixture(t, "key")
		f.refresh(t, []models.Device{}, []models.Device{cloudOnly})
		f.cloud.On("GetDeviceState", mock.Anything, "ff:ee", "H6159").Return(models.DeviceState{}, errors.New("govee api error (code 400): devices not exist"))

		state, err := f.service.GetDeviceState(context.Background(), "ff:ee")

		assert.NoError(t, err)
		assert.Equal(t, models.DeviceState{}, state)
	})

	t.Run("should fail for an unknown device", func(t *testing.T) {
		f := newFixture(t, "key")

		_, err := f.service.GetDeviceState(context.Background(), "nope")

		assert.ErrorIs(t, err, devices.ErrDeviceNotFound)
	})

	t.Run("should fail without a sku", func(t *testing.T) {
		f := newFixture(t, "key")
		f.current.LanEnabled = false
		f.cloud.On("ListDevices", mock.Anything).Return([]models.Device{{ID: "ab"}}, nil)
		f.service.RefreshDevices(context.Background())

		_, err := f.service.GetDeviceState(context.Background(), "ab")

		assert.ErrorIs(t, err, devices.ErrSkuMissing)
	})
}

func Test_RefreshDeviceStates(t *testing.T) {

	t.Run("should update power state and skip failures", func(t *testing.T) {
		f := newFixture(t, "key")
		f.refresh(t, []models.Device{}, []models.Device{cloudLamp, cloudOnly})
		f.cloud.On("GetDeviceState", mock.Anything, "aa:bb:cc:dd", "H6008").Return(models.DeviceState{Power: lo.ToPtr(false)}, nil)
		f.cloud.On("GetDeviceState", mock.Anything, "ff:ee", "H6159").Return(models.DeviceState{}, errors.New("boom"))

		states := f.service.RefreshDeviceStates(context.Background())

		assert.Len(t, states, 1)
		assert.Equal(t, map[string]bool{"aa:bb:cc:dd": false, "ff:ee": true}, f.service.PowerSnapshot())
	})
}

func Test_SceneOptions(t *testing.T) {

	t.Run("should return an empty list when scenes are not supported", func(t *testing.T) {
		f := newFixture(t, "key")
		f.cloud.On("GetDynamicScenes", mock.Anything, "ff:ee", "H6159").Return(nil, errors.New("govee api error (code 400): devices not support this feature"))

		options, err := f.service.GetDynamicScenes(context.Background(), "ff:ee", "H6159")

		assert.NoError(t, err)
		assert.Empty(t, options)
		assert.NotNil(t, options)
	})

	t.Run("should propagate other errors", func(t *testing.T) {
		f := newFixture(t, "key")
		f.cloud.On("GetDiyScenes", mock.Anything, "ff:ee", "H6159").Return(nil, errors.New("boom"))

		_, err := f.service.GetDiyScenes(context.Background(), "ff:ee", "H6159")

		assert.EqualError(t, err, "boom")
	})

	t.Run("should cache fetched scenes in the settings", func(t *testing.T) {
		f := newFixture(t, "key")
		f.refresh(t, []models.Device{}, []models.Device{cloudOnly})
		dynamic := []models.SceneOption{{Name: "Sunrise", Type: "devices.capabilities.dynamic_scene", Instance: "lightScene", Value: 1}}
		f.cloud.On("GetDynamicScenes", mock.Anything, "ff:ee", "H6159").Return(dynamic, nil)
		f.cloud.On("GetDiyScenes", mock.Anything, "ff:ee", "H6159").Return([]models.SceneOption{}, nil)
		f.settings.On("Save", mock.Anything, mock.MatchedBy(func(p models.SettingsPatch) bool {
			entry, ok := p.DeviceScenesCache["ff:ee"]
			return ok && len(entry.Dynamic) == 1 && entry.FetchedAt != nil
		})).Return(models.Settings{}, nil)

		entry, err := f.service.FetchDeviceScenes(context.Background(), "ff:ee")

		require.NoError(t, err)
		assert.Equal(t, dynamic, entry.Dynamic)
		assert.Empty(t, entry.Diy)
	})

	t.Run("should refuse to fetch scenes for a device without a sku", func(t *testing.T) {
		f := newFixture(t, "key")
		f.refresh(t, []models.Device{lanOnly}, []models.Device{})

		_, err := f.service.FetchDeviceScenes(context.Background(), lanOnly.ID)

		assert.ErrorIs(t, err, devices.ErrSkuMissing)
	})
}

func Test_CloudClientCache(t *testing.T) {

	t.Run("should reuse the client until the key or base url changes", func(t *testing.T) {
		f := newFixture(t, "key-1")
		f.cloud.On("ListDevices", mock.Anything).Return([]models.Device{}, nil)

		require.NoError(t, f.service.TestConnection(context.Background()))
		require.NoError(t, f.service.TestConnection(context.Background()))
		assert.Equal(t, 1, *f.factories)

		f.current.APIKey = "key-2"
		require.NoError(t, f.service.TestConnection(context.Background()))
		assert.Equal(t, 2, *f.factories)

		f.service.SetBaseURL("https://other.test")
		require.NoError(t, f.service.TestConnection(context.Background()))
		assert.Equal(t, 3, *f.factories)
	})

	t.Run("should report a missing key from a connection test", func(t *testing.T) {
		f := newFixture(t, "")

		err := f.service.TestConnection(context.Background())

		assert.ErrorIs(t, err, devices.ErrMissingAPIKey)
	})
}

package scenes

import (
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	"github.com/samber/lo"

	"github.com/wheelibin/lumalite/internal/cloud"
	"github.com/wheelibin/lumalite/internal/concurrency"
	"github.com/wheelibin/lumalite/internal/constants"
	"github.com/wheelibin/lumalite/internal/models"
)

type deviceService interface {
	ListDevices(ctx context.Context) []models.Device
	ControlCapability(ctx context.Context, deviceID string, capability models.CapabilityValue) error
}

type settingsStore interface {
	Load(ctx context.Context) models.Settings
	Save(ctx context.Context, patch models.SettingsPatch) (models.Settings, error)
}

type rescheduler interface {
	ScheduleAll(ctx context.Context)
}

type eventPublisher interface {
	Publish(topic string, payload any)
}

// ApplyResult counts the devices that were sent at least one action and the actions
// skipped because the device doesn't support them
type ApplyResult struct {
	AppliedDevices int `json:"appliedDevices"`
	SkippedActions int `json:"skippedActions"`
}

type SceneService struct {
	logger      *log.Logger
	settings    settingsStore
	devices     deviceService
	rescheduler rescheduler
	events      eventPublisher
	sleep       func(time.Duration)
}

func NewSceneService(logger *log.Logger, settings settingsStore, devices deviceService, events eventPublisher) *SceneService {
	return &SceneService{
		logger:   logger,
		settings: settings,
		devices:  devices,
		events:   events,
		sleep:    time.Sleep,
	}
}

// SetRescheduler sets the scheduler to re-arm whenever the stored scenes change
func (s *SceneService) SetRescheduler(r rescheduler) {
	s.rescheduler = r
}

// WithSleep replaces the function used for the delays between commands and before retries
func (s *SceneService) WithSleep(sleep func(time.Duration)) *SceneService {
	s.sleep = sleep
	return s
}

type command struct {
	deviceID   string
	capability models.CapabilityValue
}

// ApplySceneByID sends every action of the scene to its target devices, one command at a time.
// An unknown scene applies nothing. A rate limited command is retried once, any other failure
// stops the scene and is returned.
func (s *SceneService) ApplySceneByID(ctx context.Context, sceneID string) (ApplyResult, error) {
	settings := s.settings.Load(ctx)
	scene, found := lo.Find(settings.Scenes, func(sc models.Scene) bool { return sc.ID == sceneID })
	if !found {
		s.logger.Warn("Scene not found", "scene", sceneID)
		return ApplyResult{}, nil
	}

	devices := s.devices.ListDevices(ctx)
	targets := ResolveTargets(scene, devices, settings)

	result := ApplyResult{}
	commands := []command{}
	for _, device := range devices {
		if _, ok := targets[device.ID]; !ok {
			continue
		}
		actions := scene.ActionsFor(device.ID)
		if len(actions) == 0 {
			continue
		}
		result.AppliedDevices++
		for _, action := range actions {
			capability := ActionToCapability(action)
			if !supports(device, capability.Instance) {
				result.SkippedActions++
				continue
			}
			commands = append(commands, command{deviceID: device.ID, capability: capability})
		}
	}

	s.logger.Info("Applying scene", "scene", scene.Name, "devices", result.AppliedDevices, "commands", len(commands), "skipped", result.SkippedActions)

	worker := concurrency.NewThrottledWorker(constants.SceneCommandDelay, s.send).WithSleep(s.sleep)
	if err := worker.Run(ctx, commands); err != nil {
		return ApplyResult{}, fmt.Errorf("Error applying scene (%s): %w", scene.Name, err)
	}

	if s.events != nil {
		s.events.Publish("scene.applied", map[string]any{"sceneId": scene.ID, "result": result})
	}
	return result, nil
}

func (s *SceneService) send(ctx context.Context, c command) error {
	err := s.devices.ControlCapability(ctx, c.deviceID, c.capability)
	if err == nil || !cloud.IsRateLimited(err) {
		return err
	}
	s.logger.Debug("Rate limited, retrying", "device", c.deviceID, "instance", c.capability.Instance)
	s.sleep(constants.SceneRateLimitBackoff)
	return s.devices.ControlCapability(ctx, c.deviceID, c.capability)
}

// ResolveTargets returns the set of device ids the scene applies to
func ResolveTargets(scene models.Scene, devices []models.Device, settings models.Settings) map[string]struct{} {
	targets := map[string]struct{}{}
	for _, target := range scene.Targets {
		switch target.Kind {
		case models.TargetDevice:
			if target.ID != "" {
				targets[target.ID] = struct{}{}
			}
		case models.TargetRoom:
			if target.ID == "" {
				continue
			}
			for _, d := range devices {
				if settings.Rooms[d.ID] == target.ID {
					targets[d.ID] = struct{}{}
				}
			}
		case models.TargetFavorites:
			for _, id := range settings.Favorites {
				targets[id] = struct{}{}
			}
		}
	}
	return targets
}

// supports reports false only when the device lists its capabilities and the instance is missing
func supports(device models.Device, instance string) bool {
	if len(device.Capabilities) == 0 {
		return true
	}
	return lo.ContainsBy(device.Capabilities, func(c models.Capability) bool { return c.Instance == instance })
}

// ActionToCapability translates a scene action into the capability request to send
func ActionToCapability(action models.SceneAction) models.CapabilityValue {
	if action.Kind == models.ActionDeviceScene && action.Capability != nil {
		return *action.Capability
	}

	powerOn := models.CapabilityValue{Type: constants.CapabilityOnOff, Instance: constants.InstancePowerSwitch, Value: 1}
	number := action.Value.Number

	switch action.CapabilityInstance {
	case constants.InstancePowerSwitch:
		if number != nil && *number == 0 {
			powerOn.Value = 0
		}
		return powerOn
	case constants.InstanceBrightness:
		value := constants.SceneDefaultBrightness
		if number != nil {
			value = int(*number)
		}
		return models.CapabilityValue{Type: constants.CapabilityRange, Instance: constants.InstanceBrightness, Value: value}
	case constants.InstanceColorRgb:
		value := models.RGB{R: 255, G: 255, B: 255}.ToInt()
		switch {
		case action.Value.Color != nil:
			value = action.Value.Color.ToInt()
		case number != nil:
			value = int(*number)
		}
		return models.CapabilityValue{Type: constants.CapabilityColorSetting, Instance: constants.InstanceColorRgb, Value: value}
	case constants.InstanceColorTemperatureK:
		value := constants.SceneDefaultKelvin
		if number != nil {
			value = int(*number)
		}
		return models.CapabilityValue{Type: constants.CapabilityColorSetting, Instance: constants.InstanceColorTemperatureK, Value: value}
	}
	return powerOn
}

func (s *SceneService) ListScenes(ctx context.Context) []models.Scene {
	return s.settings.Load(ctx).Scenes
}

// SaveScene adds the scene, or replaces the stored scene with the same id
func (s *SceneService) SaveScene(ctx context.Context, scene models.Scene) ([]models.Scene, error) {
	if scene.ID == "" {
		scene.ID = uuid.NewString()
	}
	scene.Schedules = lo.Map(scene.Schedules, func(sch models.SceneSchedule, _ int) models.SceneSchedule {
		if sch.ID == "" {
			sch.ID = uuid.NewString()
		}
		return sch
	})

	scenes := append([]models.Scene{}, s.settings.Load(ctx).Scenes...)
	_, index, found := lo.FindIndexOf(scenes, func(sc models.Scene) bool { return sc.ID == scene.ID })
	if found {
		scenes[index] = scene
	} else {
		scenes = append(scenes, scene)
	}
	return s.store(ctx, scenes)
}

func (s *SceneService) DeleteScene(ctx context.Context, sceneID string) ([]models.Scene, error) {
	// non nil, an empty list must still be saved
	scenes := []models.Scene{}
	for _, sc := range s.settings.Load(ctx).Scenes {
		if sc.ID != sceneID {
			scenes = append(scenes, sc)
		}
	}
	return s.store(ctx, scenes)
}

// DuplicateScene stores a copy of the scene under a new id, an unknown id changes nothing
func (s *SceneService) DuplicateScene(ctx context.Context, sceneID string) ([]models.Scene, error) {
	scenes := s.settings.Load(ctx).Scenes
	source, found := lo.Find(scenes, func(sc models.Scene) bool { return sc.ID == sceneID })
	if !found {
		return scenes, nil
	}

	duplicate := source
	duplicate.ID = uuid.NewString()
	duplicate.Name = source.Name + " Copy"
	// schedules are armed per id so the copy needs its own
	duplicate.Schedules = lo.Map(source.Schedules, func(sch models.SceneSchedule, _ int) models.SceneSchedule {
		sch.ID = uuid.NewString()
		return sch
	})

	return s.store(ctx, append(append([]models.Scene{}, scenes...), duplicate))
}

func (s *SceneService) store(ctx context.Context, scenes []models.Scene) ([]models.Scene, error) {
	next, err := s.settings.Save(ctx, models.SettingsPatch{Scenes: scenes})
	if err != nil {
		return nil, fmt.Errorf("Error saving scenes: %w", err)
	}
	if s.rescheduler != nil {
		s.rescheduler.ScheduleAll(ctx)
	}
	return next.Scenes, nil
}

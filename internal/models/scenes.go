package models

import (
	"bytes"
	"encoding/json"
	"fmt"
)

type TargetKind string

const (
	TargetDevice    TargetKind = "device"
	TargetRoom      TargetKind = "room"
	TargetFavorites TargetKind = "favorites"
)

type SceneTarget struct {
	Kind TargetKind `json:"kind"`
	ID   string     `json:"id,omitempty"`
}

type ActionKind string

const (
	ActionCapability  ActionKind = "capability"
	ActionDeviceScene ActionKind = "deviceScene"
)

type ActionMode string

const (
	ActionModeGlobal    ActionMode = "global"
	ActionModePerDevice ActionMode = "perDevice"
)

// ActionValue is either a plain number or an rgb colour
type ActionValue struct {
	Number *float64
	Color  *RGB
}

func NumberValue(v float64) ActionValue {
	return ActionValue{Number: &v}
}

func ColorValue(c RGB) ActionValue {
	return ActionValue{Color: &c}
}

func (v ActionValue) MarshalJSON() ([]byte, error) {
	switch {
	case v.Color != nil:
		return json.Marshal(v.Color)
	case v.Number != nil:
		return json.Marshal(*v.Number)
	default:
		return []byte("null"), nil
	}
}

func (v *ActionValue) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	switch {
	case bytes.Equal(data, []byte("null")):
		*v = ActionValue{}
	case bytes.Equal(data, []byte("true")):
		*v = NumberValue(1)
	case bytes.Equal(data, []byte("false")):
		*v = NumberValue(0)
	case len(data) > 0 && data[0] == '{':
		var c RGB
		if err := json.Unmarshal(data, &c); err != nil {
			return fmt.Errorf("invalid colour action value: %w", err)
		}
		*v = ColorValue(c)
	default:
		var n float64
		if err := json.Unmarshal(data, &n); err != nil {
			return fmt.Errorf("invalid action value: %w", err)
		}
		*v = NumberValue(n)
	}
	return nil
}

type SceneAction struct {
	Kind ActionKind `json:"kind,omitempty"`
	// set for capability actions
	CapabilityInstance string      `json:"capabilityInstance,omitempty"`
	Value              ActionValue `json:"value"`
	// set for deviceScene actions
	Capability *CapabilityValue `json:"capability,omitempty"`
}

type ScheduleType string

const (
	ScheduleOnce   ScheduleType = "once"
	ScheduleDaily  ScheduleType = "daily"
	ScheduleWeekly ScheduleType = "weekly"
)

type SceneSchedule struct {
	ID   string       `json:"id"`
	Type ScheduleType `json:"type"`
	// "HH:MM", or relative to the sun e.g. "sunset-30m"
	Time string `json:"time"`
	// "YYYY-MM-DD", once schedules only
	Date string `json:"date,omitempty"`
	// 0 = Sunday, weekly schedules only
	DayOfWeek *int `json:"dayOfWeek,omitempty"`
}

type Scene struct {
	ID               string                   `json:"id"`
	Name             string                   `json:"name"`
	Targets          []SceneTarget            `json:"targets"`
	Actions          []SceneAction            `json:"actions"`
	ActionMode       ActionMode               `json:"actionMode,omitempty"`
	PerDeviceActions map[string][]SceneAction `json:"perDeviceActions,omitempty"`
	Schedules        []SceneSchedule          `json:"schedules,omitempty"`
}

// ActionsFor returns the actions to apply to the given device
func (s Scene) ActionsFor(deviceID string) []SceneAction {
	if s.ActionMode == ActionModePerDevice {
		return s.PerDeviceActions[deviceID]
	}
	return s.Actions
}

package cloud

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/samber/lo"

	"github.com/wheelibin/lumalite/internal/constants"
	"github.com/wheelibin/lumalite/internal/models"
)

type baseResponse struct {
	Code    *int   `json:"code"`
	Message string `json:"message"`
	Msg     string `json:"msg"`
}

type capabilityItem struct {
	Type     string `json:"type"`
	Instance string `json:"instance"`
}

type deviceItem struct {
	Device       string           `json:"device"`
	DeviceID     string           `json:"deviceId"`
	SKU          string           `json:"sku"`
	Model        string           `json:"model"`
	DeviceName   string           `json:"deviceName"`
	Name         string           `json:"name"`
	Capabilities []capabilityItem `json:"capabilities"`
	// either a list of command names or a bool depending on api version
	Controllable json.RawMessage `json:"controllable"`
	SupportCmds  []string        `json:"supportCmds"`
	Online       *bool           `json:"online"`
}

func (d deviceItem) id() string {
	return firstNonEmpty(d.DeviceID, d.Device)
}

type devicesResponse struct {
	Data    json.RawMessage `json:"data"`
	Devices []deviceItem    `json:"devices"`
}

type sceneOptionItem struct {
	Name  string `json:"name"`
	Value any    `json:"value"`
}

type sceneCapabilityItem struct {
	Type       string `json:"type"`
	Instance   string `json:"instance"`
	Parameters *struct {
		Options []sceneOptionItem `json:"options"`
	} `json:"parameters"`
}

type scenesResponse struct {
	Payload *struct {
		Capabilities []sceneCapabilityItem `json:"capabilities"`
	} `json:"payload"`
}

type stateCapabilityItem struct {
	Type     string `json:"type"`
	Instance string `json:"instance"`
	State    *struct {
		Value json.RawMessage `json:"value"`
	} `json:"state"`
}

type stateResponse struct {
	Payload *struct {
		Capabilities []stateCapabilityItem `json:"capabilities"`
	} `json:"payload"`
}

// decodeDevices accepts both the flat list of the modern api and the
// {"data":{"devices":[...]}} shape of the legacy api
func decodeDevices(body []byte) ([]deviceItem, error) {
	var resp devicesResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("error parsing device list: %w", err)
	}

	trimmed := bytes.TrimSpace(resp.Data)
	switch {
	case len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")):
		return resp.Devices, nil
	case trimmed[0] == '[':
		var items []deviceItem
		if err := json.Unmarshal(trimmed, &items); err != nil {
			return nil, fmt.Errorf("error parsing device list: %w", err)
		}
		return items, nil
	default:
		var wrapped struct {
			Devices []deviceItem `json:"devices"`
		}
		if err := json.Unmarshal(trimmed, &wrapped); err != nil {
			return nil, fmt.Errorf("error parsing device list: %w", err)
		}
		return wrapped.Devices, nil
	}
}

func (d deviceItem) toDevice() models.Device {
	caps := lo.Map(d.Capabilities, func(c capabilityItem, _ int) models.Capability {
		return models.Capability{Type: c.Type, Instance: c.Instance}
	})

	supported := []string{}
	var controllable []string
	switch {
	case len(caps) > 0:
		supported = lo.Map(caps, func(c models.Capability, _ int) string { return c.Type })
	case json.Unmarshal(d.Controllable, &controllable) == nil && controllable != nil:
		supported = controllable
	case d.SupportCmds != nil:
		supported = d.SupportCmds
	}

	return models.Device{
		ID:                d.id(),
		Name:              firstNonEmpty(d.DeviceName, d.Name, d.SKU, "Unnamed"),
		Model:             firstNonEmpty(d.Model, d.SKU, "unknown"),
		SKU:               d.SKU,
		Capabilities:      caps,
		SupportedCommands: supported,
		Online:            d.Online,
	}
}

func decodeSceneOptions(body []byte) ([]models.SceneOption, error) {
	var resp scenesResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("error parsing scene options: %w", err)
	}
	options := []models.SceneOption{}
	if resp.Payload == nil {
		return options, nil
	}
	for _, c := range resp.Payload.Capabilities {
		if c.Parameters == nil {
			continue
		}
		for _, o := range c.Parameters.Options {
			options = append(options, models.SceneOption{
				Name:     firstNonEmpty(o.Name, "Scene"),
				Value:    o.Value,
				Type:     c.Type,
				Instance: c.Instance,
			})
		}
	}
	return options, nil
}

func decodeState(body []byte) (models.DeviceState, error) {
	var resp stateResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return models.DeviceState{}, fmt.Errorf("error parsing device state: %w", err)
	}
	state := models.DeviceState{}
	if resp.Payload == nil {
		return state, nil
	}

	for _, c := range resp.Payload.Capabilities {
		if c.State == nil || len(c.State.Value) == 0 {
			continue
		}
		raw := c.State.Value

		var (
			b bool
			n float64
		)
		isBool := json.Unmarshal(raw, &b) == nil
		isNumber := json.Unmarshal(raw, &n) == nil

		switch {
		case c.Type == constants.CapabilityOnline && isBool:
			state.Online = lo.ToPtr(b)
		case c.Type == constants.CapabilityOnOff && isNumber:
			state.Power = lo.ToPtr(n == 1)
		case c.Type == constants.CapabilityRange && c.Instance == constants.InstanceBrightness && isNumber:
			state.Brightness = lo.ToPtr(int(n))
		case c.Type == constants.CapabilityColorSetting && c.Instance == constants.InstanceColorRgb && isNumber:
			state.ColorRgb = lo.ToPtr(models.RGBFromInt(int(n)))
		case c.Type == constants.CapabilityColorSetting && c.Instance == constants.InstanceColorTemperatureK && isNumber:
			state.ColorTemperatureK = lo.ToPtr(int(n))
		}
	}
	return state, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

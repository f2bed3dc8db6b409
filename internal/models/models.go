package models

import (
	"strings"
	"time"
)

type DeviceSource string

const (
	SourceCloud  DeviceSource = "cloud"
	SourceLan    DeviceSource = "lan"
	SourceHybrid DeviceSource = "hybrid"
)

type Device struct {
	ID      string       `json:"id"`
	Name    string       `json:"name"`
	Model   string       `json:"model"`
	SKU     string       `json:"sku,omitempty"`
	LanIP   string       `json:"lanIp,omitempty"`
	LanPort int          `json:"lanPort,omitempty"`
	Source  DeviceSource `json:"source,omitempty"`

	Capabilities []Capability `json:"capabilities,omitempty"`
	// command names reported by the legacy cloud api
	SupportedCommands []string `json:"supportedCommands"`
	Online            *bool    `json:"online,omitempty"`
}

// HasLanAddress reports whether the device was seen by the last local discovery
func (d Device) HasLanAddress() bool {
	return d.LanIP != ""
}

// a controllable feature of a device, e.g. (devices.capabilities.range, brightness)
type Capability struct {
	Type     string `json:"type"`
	Instance string `json:"instance"`
}

// a capability together with the value to set it to
type CapabilityValue struct {
	Type     string `json:"type"`
	Instance string `json:"instance"`
	Value    any    `json:"value"`
}

type RGB struct {
	R int `json:"r"`
	G int `json:"g"`
	B int `json:"b"`
}

// ToInt packs the colour into the 0xRRGGBB form used by the cloud api
func (c RGB) ToInt() int {
	return (c.R << 16) + (c.G << 8) + c.B
}

func RGBFromInt(v int) RGB {
	return RGB{R: (v >> 16) & 0xff, G: (v >> 8) & 0xff, B: v & 0xff}
}

type DeviceState struct {
	Online            *bool `json:"online,omitempty"`
	Power             *bool `json:"power,omitempty"`
	Brightness        *int  `json:"brightness,omitempty"`
	ColorRgb          *RGB  `json:"colorRgb,omitempty"`
	ColorTemperatureK *int  `json:"colorTemperatureK,omitempty"`
}

type ProviderStatus string

const (
	ProviderMissingKey ProviderStatus = "missing-key"
	ProviderLan        ProviderStatus = "lan"
	ProviderCloud      ProviderStatus = "cloud"
	ProviderHybrid     ProviderStatus = "hybrid"
	ProviderError      ProviderStatus = "error"
)

type Diagnostics struct {
	ProviderStatus ProviderStatus `json:"providerStatus"`
	LastError      string         `json:"lastError,omitempty"`
	LastErrorAt    *time.Time     `json:"lastErrorAt,omitempty"`
}

// an opaque device native scene, replayable through the generic capability path
type SceneOption struct {
	Name     string `json:"name"`
	Value    any    `json:"value"`
	Type     string `json:"type"`
	Instance string `json:"instance"`
}

// Capability returns the option as a capability request
func (o SceneOption) Capability() CapabilityValue {
	return CapabilityValue{Type: o.Type, Instance: o.Instance, Value: o.Value}
}

type DeviceScenesCacheEntry struct {
	Dynamic   []SceneOption `json:"dynamic"`
	Diy       []SceneOption `json:"diy"`
	FetchedAt *time.Time    `json:"fetchedAt,omitempty"`
}

// NormalizeID returns the identity key used to match the same device across transports:
// lower cased with everything other than hex digits removed
func NormalizeID(id string) string {
	var sb strings.Builder
	for _, r := range strings.ToLower(id) {
		if (r >= '0' && r <= '9') || (r >= 'a' && r <= 'f') {
			sb.WriteRune(r)
		}
	}
	return sb.String()
}

// ResolveCapability finds the capability a device actually advertises for the requested one.
// Tries an exact match, then type only, then instance only, and otherwise returns the request unchanged.
func ResolveCapability(caps []Capability, capType string, instance string) Capability {
	for _, c := range caps {
		if c.Type == capType && c.Instance == instance {
			return c
		}
	}
	for _, c := range caps {
		if c.Type == capType {
			return c
		}
	}
	for _, c := range caps {
		if c.Instance == instance {
			return c
		}
	}
	return Capability{Type: capType, Instance: instance}
}

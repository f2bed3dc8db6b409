package models

import "time"

// Settings is the persisted user state shared by the orchestrator, scenes and scheduler
type Settings struct {
	APIKey            string                            `json:"apiKey,omitempty"`
	LanEnabled        bool                              `json:"lanEnabled"`
	Favorites         []string                          `json:"favorites"`
	Rooms             map[string]string                 `json:"rooms"`
	RoomNames         []string                          `json:"roomNames"`
	Scenes            []Scene                           `json:"myScenes"`
	DeviceScenesCache map[string]DeviceScenesCacheEntry `json:"deviceScenesCache"`
	LastRefreshAt     *time.Time                        `json:"lastRefreshAt,omitempty"`
}

func DefaultSettings() Settings {
	return Settings{
		LanEnabled:        true,
		Favorites:         []string{},
		Rooms:             map[string]string{},
		RoomNames:         []string{},
		Scenes:            []Scene{},
		DeviceScenesCache: map[string]DeviceScenesCacheEntry{},
	}
}

// SettingsPatch holds the fields to change in a save, nil fields are left as they are
type SettingsPatch struct {
	APIKey            *string
	LanEnabled        *bool
	Favorites         []string
	Rooms             map[string]string
	RoomNames         []string
	Scenes            []Scene
	DeviceScenesCache map[string]DeviceScenesCacheEntry
	LastRefreshAt     *time.Time
}

// Apply returns a copy of s with the patch merged in
func (p SettingsPatch) Apply(s Settings) Settings {
	if p.APIKey != nil {
		s.APIKey = *p.APIKey
	}
	if p.LanEnabled != nil {
		s.LanEnabled = *p.LanEnabled
	}
	if p.Favorites != nil {
		s.Favorites = p.Favorites
	}
	if p.Rooms != nil {
		s.Rooms = p.Rooms
	}
	if p.RoomNames != nil {
		s.RoomNames = p.RoomNames
	}
	if p.Scenes != nil {
		s.Scenes = p.Scenes
	}
	if p.DeviceScenesCache != nil {
		s.DeviceScenesCache = p.DeviceScenesCache
	}
	if p.LastRefreshAt != nil {
		s.LastRefreshAt = p.LastRefreshAt
	}
	return s
}

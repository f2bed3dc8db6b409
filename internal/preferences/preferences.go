package preferences

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/samber/lo"

	"github.com/wheelibin/lumalite/internal/models"
)

type settingsStore interface {
	Load(ctx context.Context) models.Settings
	Save(ctx context.Context, patch models.SettingsPatch) (models.Settings, error)
}

type eventPublisher interface {
	Publish(topic string, payload any)
}

// Preferences is the user's grouping of devices
type Preferences struct {
	Favorites []string          `json:"favorites"`
	Rooms     map[string]string `json:"rooms"`
	RoomNames []string          `json:"roomNames"`
}

// Service edits favorites, rooms and the other user settings
type Service struct {
	logger   *log.Logger
	settings settingsStore
	events   eventPublisher
}

func NewService(logger *log.Logger, settings settingsStore, events eventPublisher) *Service {
	return &Service{logger: logger, settings: settings, events: events}
}

func (s *Service) Get(ctx context.Context) Preferences {
	settings := s.settings.Load(ctx)
	return Preferences{
		Favorites: settings.Favorites,
		Rooms:     settings.Rooms,
		RoomNames: settings.RoomNames,
	}
}

// SetAPIKey stores the trimmed key, an empty key removes it
func (s *Service) SetAPIKey(ctx context.Context, apiKey string) (models.Settings, error) {
	return s.save(ctx, "apiKey", models.SettingsPatch{APIKey: lo.ToPtr(strings.TrimSpace(apiKey))})
}

func (s *Service) SetLanEnabled(ctx context.Context, enabled bool) (models.Settings, error) {
	return s.save(ctx, "lanEnabled", models.SettingsPatch{LanEnabled: &enabled})
}

// SetFavorite adds the device to, or removes it from, the favorites
func (s *Service) SetFavorite(ctx context.Context, deviceID string, favorite bool) (models.Settings, error) {
	current := s.settings.Load(ctx).Favorites
	favorites := lo.Without(current, deviceID)
	if favorite {
		if lo.Contains(current, deviceID) {
			favorites = current
		} else {
			favorites = append(favorites, deviceID)
		}
	}
	return s.save(ctx, "favorites", models.SettingsPatch{Favorites: favorites})
}

// SetRoom assigns the device to a room, a blank room name unassigns it
func (s *Service) SetRoom(ctx context.Context, deviceID string, room string) (models.Settings, error) {
	rooms := lo.Assign(s.settings.Load(ctx).Rooms)
	if room = strings.TrimSpace(room); room != "" {
		rooms[deviceID] = room
	} else {
		delete(rooms, deviceID)
	}
	return s.save(ctx, "rooms", models.SettingsPatch{Rooms: rooms})
}

// SetRoomList replaces the room names. Names are trimmed, blank and duplicate names dropped and
// the list sorted. Devices assigned to a room that is no longer listed are unassigned.
func (s *Service) SetRoomList(ctx context.Context, names []string) (models.Settings, error) {
	trimmed := lo.Map(names, func(name string, _ int) string { return strings.TrimSpace(name) })
	roomNames := lo.Without(lo.Uniq(trimmed), "")
	sort.Strings(roomNames)

	rooms := lo.Assign(s.settings.Load(ctx).Rooms)
	for deviceID, room := range rooms {
		if !lo.Contains(roomNames, room) {
			delete(rooms, deviceID)
		}
	}
	return s.save(ctx, "roomNames", models.SettingsPatch{RoomNames: roomNames, Rooms: rooms})
}

// RenameRoom renames a room and moves its devices with it, a blank new name changes nothing
func (s *Service) RenameRoom(ctx context.Context, from string, to string) (models.Settings, error) {
	to = strings.TrimSpace(to)
	settings := s.settings.Load(ctx)
	if to == "" {
		return settings, nil
	}

	roomNames := lo.Without(settings.RoomNames, from)
	if !lo.Contains(roomNames, to) {
		roomNames = append(roomNames, to)
	}
	sort.Strings(roomNames)

	rooms := lo.Assign(settings.Rooms)
	for deviceID, room := range rooms {
		if room == from {
			rooms[deviceID] = to
		}
	}
	return s.save(ctx, "roomNames", models.SettingsPatch{RoomNames: roomNames, Rooms: rooms})
}

// DeleteRoom removes the room and unassigns its devices
func (s *Service) DeleteRoom(ctx context.Context, name string) (models.Settings, error) {
	settings := s.settings.Load(ctx)
	rooms := lo.Assign(settings.Rooms)
	for deviceID, room := range rooms {
		if room == name {
			delete(rooms, deviceID)
		}
	}
	return s.save(ctx, "roomNames", models.SettingsPatch{RoomNames: lo.Without(settings.RoomNames, name), Rooms: rooms})
}

func (s *Service) save(ctx context.Context, name string, patch models.SettingsPatch) (models.Settings, error) {
	next, err := s.settings.Save(ctx, patch)
	if err != nil {
		return models.Settings{}, fmt.Errorf("Error saving preference (%s): %w", name, err)
	}
	s.logger.Debug("Saved preference", "name", name)
	if s.events != nil {
		s.events.Publish("preferences", Preferences{Favorites: next.Favorites, Rooms: next.Rooms, RoomNames: next.RoomNames})
	}
	return next, nil
}

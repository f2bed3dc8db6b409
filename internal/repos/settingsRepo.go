package repos

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/charmbracelet/log"

	"github.com/wheelibin/lumalite/internal/models"
)

const initSchema = `
  CREATE TABLE IF NOT EXISTS setting (
    key        TEXT PRIMARY KEY,
    value      TEXT NOT NULL,
    updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
  );
`

// SettingsRepo stores each top level settings field as a json encoded row
type SettingsRepo struct {
	logger *log.Logger
	db     *sql.DB
	// serializes read-modify-write saves
	mu sync.Mutex
}

func NewSettingsRepo(logger *log.Logger, db *sql.DB) (*SettingsRepo, error) {
	_, err := db.Exec(initSchema)
	if err != nil {
		return nil, fmt.Errorf("Error initialising settings schema: %w", err)
	}
	return &SettingsRepo{logger: logger, db: db}, nil
}

// Load never fails, defaults are returned for anything that can't be read
func (r *SettingsRepo) Load(ctx context.Context) models.Settings {
	s, err := r.read(ctx, r.db)
	if err != nil {
		r.logger.Error("Error loading settings, using defaults", "err", err)
		return models.DefaultSettings()
	}
	return s
}

// Save merges the patch into the stored settings and returns the result
func (r *SettingsRepo) Save(ctx context.Context, patch models.SettingsPatch) (models.Settings, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return models.Settings{}, fmt.Errorf("Error saving settings: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	current, err := r.read(ctx, tx)
	if err != nil {
		return models.Settings{}, err
	}
	next := patch.Apply(current)

	rows, err := toRows(next)
	if err != nil {
		return models.Settings{}, err
	}
	// fields cleared by the patch are omitted from the encoding, so start from an empty table
	if _, err := tx.ExecContext(ctx, "DELETE FROM setting"); err != nil {
		return models.Settings{}, fmt.Errorf("Error saving settings: %w", err)
	}
	for key, value := range rows {
		_, err := tx.ExecContext(ctx,
			"INSERT INTO setting (key, value) VALUES ($1, $2)",
			key, string(value),
		)
		if err != nil {
			return models.Settings{}, fmt.Errorf("Error saving setting (%s): %w", key, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return models.Settings{}, fmt.Errorf("Error saving settings: %w", err)
	}
	return next, nil
}

type queryer interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

func (r *SettingsRepo) read(ctx context.Context, q queryer) (models.Settings, error) {
	rows, err := q.QueryContext(ctx, "SELECT key, value FROM setting")
	if err != nil {
		return models.Settings{}, fmt.Errorf("Error reading settings: %w", err)
	}
	defer rows.Close()

	stored := map[string]json.RawMessage{}
	for rows.Next() {
		var key, value string
		if err := rows.Scan(&key, &value); err != nil {
			return models.Settings{}, fmt.Errorf("Error reading settings: %w", err)
		}
		stored[key] = json.RawMessage(value)
	}
	if err := rows.Err(); err != nil {
		return models.Settings{}, fmt.Errorf("Error reading settings: %w", err)
	}

	s := models.DefaultSettings()
	for key, value := range stored {
		// decode field by field so one bad row doesn't lose the rest
		b, _ := json.Marshal(map[string]json.RawMessage{key: value})
		if err := json.Unmarshal(b, &s); err != nil {
			r.logger.Warn("Ignoring unreadable setting", "key", key, "err", err)
		}
	}
	return withDefaults(s), nil
}

func toRows(s models.Settings) (map[string]json.RawMessage, error) {
	b, err := json.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("Error encoding settings: %w", err)
	}
	rows := map[string]json.RawMessage{}
	if err := json.Unmarshal(b, &rows); err != nil {
		return nil, fmt.Errorf("Error encoding settings: %w", err)
	}
	return rows, nil
}

// withDefaults replaces collections stored as null
func withDefaults(s models.Settings) models.Settings {
	d := models.DefaultSettings()
	if s.Favorites == nil {
		s.Favorites = d.Favorites
	}
	if s.Rooms == nil {
		s.Rooms = d.Rooms
	}
	if s.RoomNames == nil {
		s.RoomNames = d.RoomNames
	}
	if s.Scenes == nil {
		s.Scenes = d.Scenes
	}
	if s.DeviceScenesCache == nil {
		s.DeviceScenesCache = d.DeviceScenesCache
	}
	return s
}

package lumalite

import (
	"context"
	"sync"

	"github.com/charmbracelet/log"

	"github.com/wheelibin/lumalite/internal/config"
	"github.com/wheelibin/lumalite/internal/models"
)

type baseURLSetter interface {
	SetBaseURL(baseURL string)
}

type apiKeyStore interface {
	SetAPIKey(ctx context.Context, apiKey string) (models.Settings, error)
}

// Reloader applies config file changes that don't need a restart
type Reloader struct {
	logger  *log.Logger
	devices baseURLSetter
	prefs   apiKeyStore

	mu      sync.Mutex
	current config.Config
}

func NewReloader(logger *log.Logger, devices baseURLSetter, prefs apiKeyStore, cfg *config.Config) *Reloader {
	return &Reloader{logger: logger, devices: devices, prefs: prefs, current: *cfg}
}

// Apply picks up a changed api base url or api key. An api key removed from the file
// leaves the stored key alone.
func (r *Reloader) Apply(ctx context.Context, next *config.Config) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if next.APIBaseURL != r.current.APIBaseURL {
		r.logger.Info("Using new api base url", "url", next.APIBaseURL)
		r.devices.SetBaseURL(next.APIBaseURL)
	}

	if next.APIKey != "" && next.APIKey != r.current.APIKey {
		if _, err := r.prefs.SetAPIKey(ctx, next.APIKey); err != nil {
			r.logger.Error("Error saving api key from config", "err", err)
			// try again on the next change
			next.APIKey = r.current.APIKey
		} else {
			r.logger.Info("Using the api key from the config file")
		}
	}

	if next.DBPath != r.current.DBPath || next.EventsAddr != r.current.EventsAddr || next.GeoLocation != r.current.GeoLocation {
		r.logger.Warn("Some config changes only apply after a restart")
	}

	r.current = *next
}

package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"

	"github.com/wheelibin/lumalite/internal/constants"
)

type Config struct {
	// seeds the stored api key when none has been saved yet
	APIKey     string `mapstructure:"apiKey"`
	APIBaseURL string `mapstructure:"apiBaseUrl"`
	DBPath     string `mapstructure:"dbPath"`
	LogFile    string `mapstructure:"logFile"`
	LogLevel   string `mapstructure:"logLevel"`
	// "lat,lng", enables sunrise and sunset schedule times
	GeoLocation string `mapstructure:"geoLocation"`
	SunriseMin  string `mapstructure:"sunriseMin"`
	SunriseMax  string `mapstructure:"sunriseMax"`
	SunsetMin   string `mapstructure:"sunsetMin"`
	SunsetMax   string `mapstructure:"sunsetMax"`
	// address of the event stream, empty disables it
	EventsAddr string `mapstructure:"eventsAddr"`
}

// InitialiseConfig reads config.json from the standard locations and any extra paths given.
// A missing file is fine, every key has a default and can be set from the environment.
func InitialiseConfig(extraPaths ...string) (*Config, error) {
	viper.SetDefault("apiKey", "")
	viper.SetDefault("apiBaseUrl", constants.CloudDefaultBaseURL)
	viper.SetDefault("dbPath", "lumalite.db")
	viper.SetDefault("logFile", "logs/lumalite.log")
	viper.SetDefault("logLevel", "info")
	viper.SetDefault("geoLocation", "")
	viper.SetDefault("sunriseMin", "")
	viper.SetDefault("sunriseMax", "")
	viper.SetDefault("sunsetMin", "")
	viper.SetDefault("sunsetMax", "")
	viper.SetDefault("eventsAddr", "127.0.0.1:8765")

	viper.SetConfigName("config")
	viper.SetConfigType("json")
	viper.AddConfigPath("/etc/lumalite/")
	viper.AddConfigPath("$HOME/.config/lumalite/")
	viper.AddConfigPath(".")
	for _, p := range extraPaths {
		viper.AddConfigPath(p)
	}

	// LUMALITE_DBPATH etc.
	viper.SetEnvPrefix("lumalite")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()
	if err := viper.BindEnv("apiKey", "LUMALITE_APIKEY", "GOVEE_API_KEY"); err != nil {
		return nil, err
	}
	if err := viper.BindEnv("apiBaseUrl", "LUMALITE_APIBASEURL", "GOVEE_API_BASE_URL"); err != nil {
		return nil, err
	}

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("Error reading config file: %w", err)
		}
	}

	return decode()
}

// Watch calls onChange with the re-read config each time the config file is written.
// Nothing is watched when no config file was found.
func Watch(logger *log.Logger, onChange func(cfg *Config)) {
	if viper.ConfigFileUsed() == "" {
		logger.Debug("No config file to watch")
		return
	}
	viper.OnConfigChange(func(e fsnotify.Event) {
		logger.Info("Config file changed", "file", e.Name)
		cfg, err := decode()
		if err != nil {
			logger.Error("Ignoring config change", "err", err)
			return
		}
		onChange(cfg)
	})
	viper.WatchConfig()
}

func decode() (*Config, error) {
	cfg := &Config{}
	if err := viper.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("Error decoding config: %w", err)
	}
	return cfg, nil
}

// Level maps the configured log level to a logger level, unknown values mean info
func (c Config) Level() log.Level {
	switch strings.ToLower(strings.TrimSpace(c.LogLevel)) {
	case "debug":
		return log.DebugLevel
	case "warn", "warning":
		return log.WarnLevel
	case "error":
		return log.ErrorLevel
	case "fatal":
		return log.FatalLevel
	default:
		return log.InfoLevel
	}
}

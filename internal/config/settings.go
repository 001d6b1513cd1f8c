package config

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/viper"
)

// Settings holds all configuration options.
type Settings struct {
	API      APIConfig      `mapstructure:"api"`
	Download DownloadConfig `mapstructure:"download"`
	Images   ImagesConfig   `mapstructure:"images"`
	Storage  StorageConfig  `mapstructure:"storage"`
	Jobs     JobsConfig     `mapstructure:"jobs"`
	Server   ServerConfig   `mapstructure:"server"`
	Logging  LoggingConfig  `mapstructure:"logging"`
}

// APIConfig configures access to the remote catalog service.
type APIConfig struct {
	BaseURL        string        `mapstructure:"base_url"`
	ContentBaseURL string        `mapstructure:"content_base_url"`
	Locale         string        `mapstructure:"locale"`
	Timeout        time.Duration `mapstructure:"timeout"`
	RetryAttempts  int           `mapstructure:"retry_attempts"`
	RetryDelay     time.Duration `mapstructure:"retry_delay"`
	RetryExponent  float64       `mapstructure:"retry_exponent"`
}

// DownloadConfig bounds the two worker pools and per-job sizes.
// Unit fetches and image fetches run in separate pools because they have
// different latency and rate-limit profiles.
type DownloadConfig struct {
	UnitWorkers     int `mapstructure:"unit_workers"`
	ImageWorkers    int `mapstructure:"image_workers"`
	MaxItemsPerJob  int `mapstructure:"max_items_per_job"`
	MaxUnitsPerItem int `mapstructure:"max_units_per_item"`
}

// ImagesConfig controls image acquisition behavior.
type ImagesConfig struct {
	Enabled       bool          `mapstructure:"enabled"`
	RetryAttempts int           `mapstructure:"retry_attempts"`
	RetryDelay    time.Duration `mapstructure:"retry_delay"`

	// VectorUpscale is the rasterization scale factor applied to vector
	// images for downstream rendering fidelity.
	VectorUpscale float64 `mapstructure:"vector_upscale"`
}

// StorageConfig holds output locations.
type StorageConfig struct {
	OutputDir string `mapstructure:"output_dir"`
}

// JobsConfig bounds the in-memory job registry.
type JobsConfig struct {
	TTL      time.Duration `mapstructure:"ttl"`
	Capacity int           `mapstructure:"capacity"`
}

// ServerConfig configures the HTTP status/poll surface.
type ServerConfig struct {
	Addr string `mapstructure:"addr"`
}

// LoggingConfig configures the structured logger.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"` // "text" or "json"
}

// DefaultSettings returns settings with default values.
func DefaultSettings() *Settings {
	return &Settings{
		API: APIConfig{
			BaseURL:        "https://learn.microsoft.com/api/catalog/",
			ContentBaseURL: "https://learn.microsoft.com",
			Locale:         "en-us",
			Timeout:        30 * time.Second,
			RetryAttempts:  3,
			RetryDelay:     time.Second,
			RetryExponent:  2.0,
		},
		Download: DownloadConfig{
			UnitWorkers:     4,
			ImageWorkers:    8,
			MaxItemsPerJob:  25,
			MaxUnitsPerItem: 200,
		},
		Images: ImagesConfig{
			Enabled:       true,
			RetryAttempts: 2,
			RetryDelay:    500 * time.Millisecond,
			VectorUpscale: 2.0,
		},
		Storage: StorageConfig{
			OutputDir: "./downloads",
		},
		Jobs: JobsConfig{
			TTL:      time.Hour,
			Capacity: 256,
		},
		Server: ServerConfig{
			Addr: ":8080",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Load reads settings from a YAML file, falling back to defaults when the
// file does not exist. Unknown keys are ignored; missing keys keep their
// default values.
func Load(path string) (*Settings, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	settings := DefaultSettings()
	setDefaults(v, settings)

	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return settings, nil
		}
		return nil, err
	}

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("reading config %s: %w", path, err)
	}

	if err := v.Unmarshal(settings); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}

	if err := settings.Validate(); err != nil {
		return nil, err
	}
	return settings, nil
}

// Validate rejects values the download engine cannot run with.
func (s *Settings) Validate() error {
	if s.Download.UnitWorkers < 1 {
		return fmt.Errorf("download.unit_workers must be >= 1, got %d", s.Download.UnitWorkers)
	}
	if s.Download.ImageWorkers < 1 {
		return fmt.Errorf("download.image_workers must be >= 1, got %d", s.Download.ImageWorkers)
	}
	if s.API.RetryAttempts < 1 {
		return fmt.Errorf("api.retry_attempts must be >= 1, got %d", s.API.RetryAttempts)
	}
	if s.Images.VectorUpscale <= 0 {
		return fmt.Errorf("images.vector_upscale must be > 0, got %v", s.Images.VectorUpscale)
	}
	if s.Jobs.Capacity < 1 {
		return fmt.Errorf("jobs.capacity must be >= 1, got %d", s.Jobs.Capacity)
	}
	return nil
}

func setDefaults(v *viper.Viper, s *Settings) {
	v.SetDefault("api.base_url", s.API.BaseURL)
	v.SetDefault("api.content_base_url", s.API.ContentBaseURL)
	v.SetDefault("api.locale", s.API.Locale)
	v.SetDefault("api.timeout", s.API.Timeout)
	v.SetDefault("api.retry_attempts", s.API.RetryAttempts)
	v.SetDefault("api.retry_delay", s.API.RetryDelay)
	v.SetDefault("api.retry_exponent", s.API.RetryExponent)
	v.SetDefault("download.unit_workers", s.Download.UnitWorkers)
	v.SetDefault("download.image_workers", s.Download.ImageWorkers)
	v.SetDefault("download.max_items_per_job", s.Download.MaxItemsPerJob)
	v.SetDefault("download.max_units_per_item", s.Download.MaxUnitsPerItem)
	v.SetDefault("images.enabled", s.Images.Enabled)
	v.SetDefault("images.retry_attempts", s.Images.RetryAttempts)
	v.SetDefault("images.retry_delay", s.Images.RetryDelay)
	v.SetDefault("images.vector_upscale", s.Images.VectorUpscale)
	v.SetDefault("storage.output_dir", s.Storage.OutputDir)
	v.SetDefault("jobs.ttl", s.Jobs.TTL)
	v.SetDefault("jobs.capacity", s.Jobs.Capacity)
	v.SetDefault("server.addr", s.Server.Addr)
	v.SetDefault("logging.level", s.Logging.Level)
	v.SetDefault("logging.format", s.Logging.Format)
}

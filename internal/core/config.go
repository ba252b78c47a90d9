package core

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/jo-hoe/animal-pictures/internal/backend/imagesource"
	"github.com/jo-hoe/animal-pictures/internal/backend/thumbnail"
	"github.com/jo-hoe/animal-pictures/internal/common"
	"gopkg.in/yaml.v3"
)

const (
	defaultPort             = 8080
	defaultDatabaseType     = "sqlite"
	defaultConnectionString = "data/app.sqlite"
	defaultThumbnailWidth   = 240
	defaultCacheTTL         = 30 * time.Second
)

type Database struct {
	Type             string `yaml:"type"`
	ConnectionString string `yaml:"connectionString"`
}

type Cache struct {
	// RedisAddress enables the Redis stats cache when set (host:port).
	RedisAddress string        `yaml:"redisAddress"`
	TTL          time.Duration `yaml:"ttl"`
}

type ImageSourceConfig struct {
	Timeout        time.Duration     `yaml:"timeout"`
	ConnectTimeout time.Duration     `yaml:"connectTimeout"`
	UserAgent      string            `yaml:"userAgent"`
	URLs           map[string]string `yaml:"urls"`
}

type ServiceConfig struct {
	Port int `yaml:"port"`
	// BasePath is the URL prefix the app is mounted under. Empty means detect per request.
	BasePath       string            `yaml:"basePath"`
	ThumbnailWidth int               `yaml:"thumbnailWidth"`
	Database       Database          `yaml:"database"`
	Cache          Cache             `yaml:"cache"`
	ImageSource    ImageSourceConfig `yaml:"imageSource"`
}

// DefaultConfig returns the configuration used when no config file is present.
func DefaultConfig() *ServiceConfig {
	urls := make(map[string]string, len(imagesource.DefaultURLs))
	for animal, url := range imagesource.DefaultURLs {
		urls[animal.String()] = url
	}
	return &ServiceConfig{
		Port:           defaultPort,
		ThumbnailWidth: defaultThumbnailWidth,
		Database: Database{
			Type:             defaultDatabaseType,
			ConnectionString: defaultConnectionString,
		},
		Cache: Cache{
			TTL: defaultCacheTTL,
		},
		ImageSource: ImageSourceConfig{
			Timeout:        imagesource.DefaultTimeout,
			ConnectTimeout: imagesource.DefaultConnectTimeout,
			UserAgent:      imagesource.DefaultUserAgent,
			URLs:           urls,
		},
	}
}

// LoadConfig loads configuration from the specified YAML file on top of the defaults
func LoadConfig(configPath string) (*ServiceConfig, error) {
	// Read the config file
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", configPath, err)
	}

	// Parse YAML
	config := DefaultConfig()
	err = yaml.Unmarshal(data, config)
	if err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", configPath, err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration in %s: %w", configPath, err)
	}

	return config, nil
}

// ApplyEnv overrides config values from environment variables read through getenv.
func (config *ServiceConfig) ApplyEnv(getenv func(string) string) error {
	if v := getenv("APP_DB_PATH"); v != "" {
		config.Database.ConnectionString = v
	}
	if v := getenv("APP_BASE_PATH"); v != "" {
		config.BasePath = v
	}
	if v := getenv("REDIS_ADDRESS"); v != "" {
		config.Cache.RedisAddress = v
	}
	if v := getenv("PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid PORT %q: %w", v, err)
		}
		config.Port = port
	}
	return config.Validate()
}

// Validate checks the configuration and normalizes the base path.
func (config *ServiceConfig) Validate() error {
	config.BasePath = NormalizeBasePath(config.BasePath)

	if config.Port < 0 || config.Port > 65535 {
		return fmt.Errorf("port out of range: %d", config.Port)
	}
	if config.Database.Type == "" {
		return errors.New("database type must not be empty")
	}
	if config.ThumbnailWidth < 1 || config.ThumbnailWidth > thumbnail.MaxWidth {
		return fmt.Errorf("thumbnailWidth must be between 1 and %d, got %d", thumbnail.MaxWidth, config.ThumbnailWidth)
	}
	if config.Cache.RedisAddress != "" && config.Cache.TTL <= 0 {
		return fmt.Errorf("cache ttl must be positive, got %s", config.Cache.TTL)
	}

	source := config.ImageSource
	if source.Timeout <= 0 || source.ConnectTimeout <= 0 {
		return errors.New("image source timeouts must be positive")
	}
	if source.ConnectTimeout >= source.Timeout {
		return fmt.Errorf("image source connectTimeout (%s) must be shorter than timeout (%s)", source.ConnectTimeout, source.Timeout)
	}
	for name := range source.URLs {
		if !common.Animal(name).IsValid() {
			return fmt.Errorf("image source url configured for unsupported animal %q", name)
		}
	}
	for _, animal := range common.Animals {
		if source.URLs[animal.String()] == "" {
			return fmt.Errorf("image source url missing for %s", animal)
		}
	}
	return nil
}

// ImageSourceOptions converts the YAML section into client options.
func (config *ServiceConfig) ImageSourceOptions() imagesource.Options {
	urls := make(map[common.Animal]string, len(config.ImageSource.URLs))
	for name, url := range config.ImageSource.URLs {
		urls[common.Animal(name)] = url
	}
	return imagesource.Options{
		URLs:           urls,
		Timeout:        config.ImageSource.Timeout,
		ConnectTimeout: config.ImageSource.ConnectTimeout,
		UserAgent:      config.ImageSource.UserAgent,
	}
}

// NormalizeBasePath turns "", "/", "app/", "//app//" into "", "", "/app", "/app".
func NormalizeBasePath(basePath string) string {
	trimmed := strings.Trim(strings.TrimSpace(basePath), "/")
	if trimmed == "" {
		return ""
	}
	return "/" + trimmed
}

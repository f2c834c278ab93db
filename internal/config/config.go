// Package config loads application configuration from file and environment
// and owns global logger setup.
package config

import (
	"bufio"
	"os"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Regions  RegionsConfig  `yaml:"regions" mapstructure:"regions"`
	Download DownloadConfig `yaml:"download" mapstructure:"download"`
	Geocoder GeocoderConfig `yaml:"geocoder" mapstructure:"geocoder"`
	Store    StoreConfig    `yaml:"store" mapstructure:"store"`
	Server   ServerConfig   `yaml:"server" mapstructure:"server"`
	Log      LogConfig      `yaml:"log" mapstructure:"log"`
}

// RegionsConfig points at the regions descriptor file.
type RegionsConfig struct {
	File string `yaml:"file" mapstructure:"file"`
}

// DownloadConfig configures tile retrieval.
type DownloadConfig struct {
	Dir               string  `yaml:"dir" mapstructure:"dir"`
	Concurrency       int     `yaml:"concurrency" mapstructure:"concurrency"`
	MaxAttempts       int     `yaml:"max_attempts" mapstructure:"max_attempts"`
	TimeoutSecs       int     `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	RequestsPerSecond float64 `yaml:"requests_per_second" mapstructure:"requests_per_second"`
	UserAgent         string  `yaml:"user_agent" mapstructure:"user_agent"`

	// PointOnly disables footprint-based tile derivation.
	PointOnly bool `yaml:"point_only" mapstructure:"point_only"`
}

// GeocoderConfig configures the geocoding providers.
type GeocoderConfig struct {
	Buildings BuildingsConfig `yaml:"buildings" mapstructure:"buildings"`
	Nominatim NominatimConfig `yaml:"nominatim" mapstructure:"nominatim"`
}

// BuildingsConfig holds the buildings-API provider settings. The subscription
// key comes from the environment or from KeyFile; it is sent as a request
// header and never logged or written back out.
type BuildingsConfig struct {
	BaseURL     string `yaml:"base_url" mapstructure:"base_url"`
	GeometryURL string `yaml:"geometry_url" mapstructure:"geometry_url"`
	Key         string `yaml:"key" mapstructure:"key"`
	KeyFile     string `yaml:"key_file" mapstructure:"key_file"`
}

// NominatimConfig holds the fallback provider settings.
type NominatimConfig struct {
	BaseURL string `yaml:"base_url" mapstructure:"base_url"`
	Enabled bool   `yaml:"enabled" mapstructure:"enabled"`
}

// StoreConfig configures the manifest database.
type StoreConfig struct {
	Path string `yaml:"path" mapstructure:"path"`
}

// ServerConfig configures the HTTP server.
type ServerConfig struct {
	Port int `yaml:"port" mapstructure:"port"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from file and environment. cfgFile may be empty,
// in which case config.yaml in the working directory is used when present.
func Load(cfgFile string) (*Config, error) {
	v := viper.New()

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}

	// Environment
	v.SetEnvPrefix("TILEFETCH")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("regions.file", "regions.yaml")
	v.SetDefault("download.dir", "data")
	v.SetDefault("download.concurrency", 4)
	v.SetDefault("download.max_attempts", 4)
	v.SetDefault("download.timeout_secs", 300)
	v.SetDefault("download.requests_per_second", 10)
	v.SetDefault("download.user_agent", "tilefetch/1.0")
	v.SetDefault("download.point_only", false)
	// Empty defaults register the keys so environment overrides reach
	// Unmarshal.
	v.SetDefault("geocoder.buildings.base_url", "")
	v.SetDefault("geocoder.buildings.geometry_url", "")
	v.SetDefault("geocoder.buildings.key", "")
	v.SetDefault("geocoder.buildings.key_file", "")
	v.SetDefault("geocoder.nominatim.base_url", "https://nominatim.openstreetmap.org")
	v.SetDefault("geocoder.nominatim.enabled", true)
	v.SetDefault("store.path", "tilefetch.db")
	v.SetDefault("server.port", 8080)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	// Read config file (optional unless explicitly given)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok || cfgFile != "" {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	if err := cfg.resolveSecrets(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// resolveSecrets fills credentials that live outside the config file.
func (c *Config) resolveSecrets() error {
	if c.Geocoder.Buildings.Key != "" || c.Geocoder.Buildings.KeyFile == "" {
		return nil
	}
	key, err := readKeyFile(c.Geocoder.Buildings.KeyFile, "subscription_key")
	if err != nil {
		return err
	}
	c.Geocoder.Buildings.Key = key
	return nil
}

// readKeyFile reads a name=value secrets file and returns the named entry.
// Blank lines and #-comments are skipped.
func readKeyFile(path, name string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", eris.Wrapf(err, "config: open key file %s", path)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		k, val, found := strings.Cut(line, "=")
		if !found {
			continue
		}
		if strings.EqualFold(strings.TrimSpace(k), name) {
			return strings.TrimSpace(val), nil
		}
	}
	if err := scanner.Err(); err != nil {
		return "", eris.Wrapf(err, "config: read key file %s", path)
	}
	return "", eris.Errorf("config: key file %s has no %s entry", path, name)
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}

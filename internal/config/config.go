package config

import (
	"errors"
	"fmt"
	"net/url"
	"path/filepath"
	"strings"
	"time"

	"github.com/openmined/themesync/internal/utils"
	"github.com/spf13/viper"
)

const (
	BackendHTTP = "http"
	BackendS3   = "s3"

	// ConfigName is the config file name without extension.
	ConfigName            = "themesync"
	DefaultConfigFileName = ConfigName + ".yaml"
	EnvPrefix             = "THEMESYNC"

	DefaultDebounceDelay = time.Second
	DefaultMaxQueueSize  = 1000
	DefaultBatchSize     = 10
	DefaultMaxAssetSize  = int64(20 * 1024 * 1024)
)

var (
	ErrNoThemeDir      = errors.New("config: theme_dir missing")
	ErrInvalidBackend  = errors.New("config: backend must be http or s3")
	ErrInvalidStoreURL = errors.New("config: invalid store url")
	ErrNoThemeID       = errors.New("config: theme_id missing")
	ErrNoAccessToken   = errors.New("config: access_token missing")
	ErrNoBucket        = errors.New("config: s3.bucket missing")
	ErrNoRegion        = errors.New("config: s3.region missing")
	ErrInvalidLimits   = errors.New("config: limits must be positive")
)

type S3Config struct {
	Bucket    string `mapstructure:"bucket"`
	Region    string `mapstructure:"region"`
	Endpoint  string `mapstructure:"endpoint"`
	AccessKey string `mapstructure:"access_key"`
	SecretKey string `mapstructure:"secret_key"`
	Prefix    string `mapstructure:"prefix"`
}

type Config struct {
	ThemeDir    string   `mapstructure:"theme_dir"`
	Backend     string   `mapstructure:"backend"`
	StoreURL    string   `mapstructure:"store_url"`
	ThemeID     string   `mapstructure:"theme_id"`
	AccessToken string   `mapstructure:"access_token"`
	S3          S3Config `mapstructure:"s3"`
	Ignore      []string `mapstructure:"ignore"`

	DebounceDelay time.Duration `mapstructure:"debounce_delay"`
	MaxQueueSize  int           `mapstructure:"max_queue_size"`
	BatchSize     int           `mapstructure:"batch_size"`
	MaxAssetSize  int64         `mapstructure:"max_asset_size"`

	// Path is the config file in use, empty when none was found.
	Path string `mapstructure:"-"`
}

// SetDefaults registers every key on v. Keys unknown to viper are not
// picked up from the environment by Unmarshal, so empty ones are set too.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("theme_dir", ".")
	v.SetDefault("backend", BackendHTTP)
	v.SetDefault("store_url", "")
	v.SetDefault("theme_id", "")
	v.SetDefault("access_token", "")
	for _, key := range []string{"bucket", "region", "endpoint", "access_key", "secret_key", "prefix"} {
		v.SetDefault("s3."+key, "")
	}
	v.SetDefault("ignore", []string{})
	v.SetDefault("debounce_delay", DefaultDebounceDelay)
	v.SetDefault("max_queue_size", DefaultMaxQueueSize)
	v.SetDefault("batch_size", DefaultBatchSize)
	v.SetDefault("max_asset_size", DefaultMaxAssetSize)
}

// FromViper decodes the settings held by v.
func FromViper(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("config decode: %w", err)
	}
	cfg.Path = v.ConfigFileUsed()
	return &cfg, nil
}

// Validate checks the config and normalizes paths and names.
func (c *Config) Validate() error {
	if c.ThemeDir == "" {
		return ErrNoThemeDir
	}
	themeDir, err := utils.ResolvePath(c.ThemeDir)
	if err != nil {
		return fmt.Errorf("config: theme_dir: %w", err)
	}
	c.ThemeDir = themeDir

	if c.Path != "" {
		if path, err := utils.ResolvePath(c.Path); err == nil {
			c.Path = path
		}
	}

	c.Backend = strings.ToLower(strings.TrimSpace(c.Backend))
	switch c.Backend {
	case "", BackendHTTP:
		c.Backend = BackendHTTP
		if err := validateStoreURL(c.StoreURL); err != nil {
			return err
		}
		if c.ThemeID == "" {
			return ErrNoThemeID
		}
		if c.AccessToken == "" {
			return ErrNoAccessToken
		}
	case BackendS3:
		if c.S3.Bucket == "" {
			return ErrNoBucket
		}
		if c.S3.Region == "" {
			return ErrNoRegion
		}
	default:
		return fmt.Errorf("%w: %q", ErrInvalidBackend, c.Backend)
	}

	if c.DebounceDelay < 0 || c.MaxQueueSize < 0 || c.BatchSize < 0 || c.MaxAssetSize < 0 {
		return ErrInvalidLimits
	}

	return nil
}

func validateStoreURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		return fmt.Errorf("%w: %q", ErrInvalidStoreURL, raw)
	}
	return nil
}

// ConfigFileRelPath is the config file relative to the theme directory, so
// that watch never syncs it. Falls back to the default file name.
func (c *Config) ConfigFileRelPath() string {
	if c.Path == "" {
		return DefaultConfigFileName
	}
	rel, err := filepath.Rel(c.ThemeDir, c.Path)
	if err != nil || strings.HasPrefix(rel, "..") {
		return DefaultConfigFileName
	}
	return filepath.ToSlash(rel)
}

func (c *Config) String() string {
	return fmt.Sprintf("theme_dir=%s backend=%s store_url=%s theme_id=%s access_token=%s s3.bucket=%s",
		c.ThemeDir, c.Backend, c.StoreURL, c.ThemeID, utils.MaskSecret(c.AccessToken), c.S3.Bucket)
}

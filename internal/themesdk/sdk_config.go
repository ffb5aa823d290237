package themesdk

import (
	"net/url"
)

const (
	DefaultMaxAssetSize = int64(20 * 1024 * 1024)
)

// Config is the configuration for the theme store client
type Config struct {
	BaseURL     string // BaseURL is required
	ThemeID     string // ThemeID is required
	AccessToken string // AccessToken is required
	// MaxAssetSize is the upload ceiling in bytes; larger files are skipped.
	MaxAssetSize int64
}

func (c *Config) Validate() error {
	if c.BaseURL == "" {
		return ErrNoServerURL
	}
	if u, err := url.Parse(c.BaseURL); err != nil || u.Scheme == "" || u.Host == "" {
		return ErrInvalidServerURL
	}
	if c.ThemeID == "" {
		return ErrNoThemeID
	}
	if c.AccessToken == "" {
		return ErrNoAccessToken
	}
	return nil
}

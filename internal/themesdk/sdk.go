package themesdk

import (
	"log/slog"

	"github.com/imroc/req/v3"
)

// ThemeSDK is the client for one theme on a theme store
type ThemeSDK struct {
	client *req.Client
	config *Config
	Assets *AssetsAPI
}

// New creates a client from a validated config
func New(config *Config) (*ThemeSDK, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	client := HTTPClient.Clone().
		SetBaseURL(config.BaseURL).
		SetCommonBearerAuthToken(config.AccessToken).
		SetCommonPathParam("theme", config.ThemeID).
		SetCommonErrorResult(&APIError{})

	slog.Debug("theme sdk", "url", config.BaseURL, "theme", config.ThemeID)

	return &ThemeSDK{
		client: client,
		config: config,
		Assets: newAssetsAPI(client),
	}, nil
}

// Client exposes the underlying HTTP client, mainly for tests
func (s *ThemeSDK) Client() *req.Client {
	return s.client
}

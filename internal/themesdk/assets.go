package themesdk

import (
	"context"
	"fmt"
	"io"

	"github.com/imroc/req/v3"
)

const (
	v1Assets        = "/api/v1/themes/{theme}/assets"
	v1AssetsContent = "/api/v1/themes/{theme}/assets/content"
	v1Compile       = "/api/v1/themes/{theme}/compile"
)

type AssetsAPI struct {
	client *req.Client
}

func newAssetsAPI(client *req.Client) *AssetsAPI {
	return &AssetsAPI{
		client: client,
	}
}

// List returns every asset of the theme, directories included
func (a *AssetsAPI) List(ctx context.Context) (apiResp *ListResponse, err error) {
	resp, err := a.client.R().
		SetContext(ctx).
		SetSuccessResult(&apiResp).
		Get(v1Assets)

	if err := handleAPIError(resp, err, "assets list"); err != nil {
		return nil, err
	}

	if apiResp == nil {
		apiResp = &ListResponse{}
	}
	return apiResp, nil
}

// Download streams the content of key. The caller closes the body.
func (a *AssetsAPI) Download(ctx context.Context, key string) (io.ReadCloser, error) {
	resp, err := a.client.R().
		SetContext(ctx).
		DisableAutoReadResponse().
		SetQueryParam("key", key).
		Get(v1AssetsContent)

	if err != nil {
		return nil, fmt.Errorf("http request error: assets download %w", err)
	}

	if resp.IsErrorState() {
		defer resp.Body.Close()
		return nil, handleAPIError(resp, nil, "assets download")
	}

	return resp.Body, nil
}

// Upload puts the file at filePath under key
func (a *AssetsAPI) Upload(ctx context.Context, key string, filePath string) (apiResp *UploadResponse, err error) {
	resp, err := a.client.R().
		SetContext(ctx).
		SetQueryParam("key", key).
		// a retried multipart body would be empty
		SetRetryCount(0).
		SetFile("file", filePath).
		SetSuccessResult(&apiResp).
		Put(v1Assets)

	if err := handleAPIError(resp, err, "assets upload"); err != nil {
		return nil, err
	}

	return apiResp, nil
}

// Delete removes key from the theme
func (a *AssetsAPI) Delete(ctx context.Context, key string) (apiResp *DeleteResponse, err error) {
	resp, err := a.client.R().
		SetContext(ctx).
		SetQueryParam("key", key).
		SetSuccessResult(&apiResp).
		Delete(v1Assets)

	if err := handleAPIError(resp, err, "assets delete"); err != nil {
		return nil, err
	}

	return apiResp, nil
}

// Compile asks the store to rebuild the theme
func (a *AssetsAPI) Compile(ctx context.Context) (apiResp *CompileResponse, err error) {
	resp, err := a.client.R().
		SetContext(ctx).
		SetSuccessResult(&apiResp).
		Post(v1Compile)

	if err := handleAPIError(resp, err, "theme compile"); err != nil {
		return nil, err
	}

	return apiResp, nil
}

package themesdk

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/imroc/req/v3"
)

var (
	// sdk common
	ErrNoServerURL      = errors.New("sdk: server url missing")
	ErrInvalidServerURL = errors.New("sdk: invalid server url")
	ErrNoThemeID        = errors.New("sdk: theme id missing")
	ErrNoAccessToken    = errors.New("sdk: access token missing")

	// assets
	ErrAssetNotFound = errors.New("sdk: asset not found")
	ErrUnauthorized  = errors.New("sdk: unauthorized")
)

const (
	CodeInvalidRequest = "E_INVALID_REQUEST"
	CodeRateLimited    = "E_RATE_LIMITED"
	CodeInternalError  = "E_INTERNAL_ERROR"
	CodeAccessDenied   = "E_ACCESS_DENIED"
	CodeUnknownError   = "E_UNKNOWN_ERR"

	CodeAssetNotFound     = "E_ASSET_NOT_FOUND"
	CodeAssetInvalidKey   = "E_ASSET_INVALID_KEY"
	CodeAssetUploadFailed = "E_ASSET_UPLOAD_FAILED"
	CodeAssetDeleteFailed = "E_ASSET_DELETE_FAILED"
	CodeCompileFailed     = "E_COMPILE_FAILED"
)

// APIError is the error body returned by the theme store
type APIError struct {
	Code    string `json:"code"`
	Message string `json:"error"`
}

func NewAPIError(code, message string) *APIError {
	return &APIError{Code: code, Message: message}
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error: %s - %s", e.Code, e.Message)
}

// handleAPIError turns a failed request or an error response into an error
func handleAPIError(resp *req.Response, requestErr error, operation string) error {
	if requestErr != nil {
		return fmt.Errorf("http request error: %s %w", operation, requestErr)
	}

	if !resp.IsErrorState() {
		return nil
	}

	apiErr, _ := resp.ErrorResult().(*APIError)
	if apiErr == nil || apiErr.Code == "" {
		apiErr = decodeAPIError(resp)
	}

	switch {
	case resp.StatusCode == http.StatusNotFound || apiErr.Code == CodeAssetNotFound:
		return fmt.Errorf("%s: %w", operation, ErrAssetNotFound)
	case resp.StatusCode == http.StatusUnauthorized:
		return fmt.Errorf("%s: %w", operation, ErrUnauthorized)
	}

	return fmt.Errorf("%s %w", operation, apiErr)
}

// decodeAPIError reads the error body for responses that were not parsed
// into an ErrorResult, e.g. streamed downloads.
func decodeAPIError(resp *req.Response) *APIError {
	apiErr := &APIError{}
	if body, err := resp.ToBytes(); err == nil && len(body) > 0 {
		if err := jsonUnmarshal(body, apiErr); err == nil && apiErr.Code != "" {
			return apiErr
		}
		apiErr.Message = string(body)
	}

	apiErr.Code = codeForStatus(resp.StatusCode)
	if apiErr.Message == "" {
		apiErr.Message = http.StatusText(resp.StatusCode)
	}
	return apiErr
}

func codeForStatus(status int) string {
	switch {
	case status == http.StatusTooManyRequests:
		return CodeRateLimited
	case status == http.StatusForbidden:
		return CodeAccessDenied
	case status == http.StatusBadRequest:
		return CodeInvalidRequest
	case status >= 500:
		return CodeInternalError
	default:
		return CodeUnknownError
	}
}

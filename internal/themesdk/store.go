package themesdk

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/dustin/go-humanize"
	"github.com/openmined/themesync/internal/assets"
)

// AssetStore adapts the theme store API to the sync engine.
type AssetStore struct {
	sdk     *ThemeSDK
	maxSize int64
}

func NewAssetStore(sdk *ThemeSDK) *AssetStore {
	maxSize := sdk.config.MaxAssetSize
	if maxSize <= 0 {
		maxSize = DefaultMaxAssetSize
	}
	return &AssetStore{sdk: sdk, maxSize: maxSize}
}

func (s *AssetStore) ListAssets(ctx context.Context) ([]*assets.Asset, error) {
	resp, err := s.sdk.Assets.List(ctx)
	if err != nil {
		return nil, err
	}

	out := make([]*assets.Asset, 0, len(resp.Assets))
	for _, info := range resp.Assets {
		if info == nil || info.Key == "" {
			continue
		}
		kind := assets.KindFile
		if info.Kind == AssetKindDirectory {
			kind = assets.KindDirectory
		}
		out = append(out, &assets.Asset{
			Key:       info.Key,
			Kind:      kind,
			Size:      info.Size,
			UpdatedAt: info.UpdatedAt,
		})
	}
	return out, nil
}

func (s *AssetStore) GetAsset(ctx context.Context, key string) (io.ReadCloser, error) {
	body, err := s.sdk.Assets.Download(ctx, key)
	if errors.Is(err, ErrAssetNotFound) {
		return nil, fmt.Errorf("%w: %s", assets.ErrNotFound, key)
	}
	return body, err
}

// UploadAsset skips directories and files above the size ceiling.
func (s *AssetStore) UploadAsset(ctx context.Context, key string, localAbsPath string) (bool, error) {
	info, err := os.Stat(localAbsPath)
	if err != nil {
		return false, fmt.Errorf("stat %s: %w", localAbsPath, err)
	}

	if info.IsDir() {
		slog.Debug("asset upload skipped", "path", key, "reason", "directory")
		return false, nil
	}

	if info.Size() > s.maxSize {
		slog.Warn("asset upload skipped", "path", key, "reason", "too large",
			"size", humanize.IBytes(uint64(info.Size())), "limit", humanize.IBytes(uint64(s.maxSize)))
		return false, nil
	}

	if _, err := s.sdk.Assets.Upload(ctx, key, localAbsPath); err != nil {
		return false, err
	}
	return true, nil
}

// RemoveAsset treats an already missing asset as removed.
func (s *AssetStore) RemoveAsset(ctx context.Context, key string) error {
	_, err := s.sdk.Assets.Delete(ctx, key)
	if errors.Is(err, ErrAssetNotFound) {
		slog.Debug("asset already removed", "path", key)
		return nil
	}
	return err
}

func (s *AssetStore) CompileAssets(ctx context.Context) error {
	resp, err := s.sdk.Assets.Compile(ctx)
	if err != nil {
		return err
	}
	if resp != nil {
		slog.Debug("theme compile", "status", resp.Status, "build", resp.BuildID)
	}
	return nil
}

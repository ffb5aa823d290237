package blob

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path"
	"slices"
	"strings"
	"time"

	mapset "github.com/deckarep/golang-set/v2"
	"github.com/dustin/go-humanize"
	"github.com/goccy/go-json"
	"github.com/openmined/themesync/internal/assets"
	"github.com/openmined/themesync/internal/utils"
)

const (
	DefaultMaxAssetSize = int64(20 * 1024 * 1024)
	// compileMarker is written below the prefix to request a rebuild.
	compileMarker = ".themesync/compile-request"
)

type compileRequest struct {
	RequestedAt time.Time `json:"requested_at"`
}

// AssetStore keeps a theme under a prefix of an S3 bucket. S3 has no
// directories; they are derived from the object keys.
type AssetStore struct {
	client  *BlobClient
	prefix  string
	maxSize int64
	now     func() time.Time
}

func NewAssetStore(client *BlobClient) *AssetStore {
	maxSize := client.config.MaxAssetSize
	if maxSize <= 0 {
		maxSize = DefaultMaxAssetSize
	}
	return &AssetStore{
		client:  client,
		prefix:  client.config.prefix(),
		maxSize: maxSize,
		now:     time.Now,
	}
}

func (s *AssetStore) objectKey(key string) string {
	return s.prefix + key
}

func (s *AssetStore) ListAssets(ctx context.Context) ([]*assets.Asset, error) {
	objects, err := s.client.ListObjects(ctx, s.prefix)
	if err != nil {
		return nil, fmt.Errorf("list objects: %w", err)
	}

	dirs := mapset.NewThreadUnsafeSet[string]()
	out := make([]*assets.Asset, 0, len(objects))

	for _, obj := range objects {
		key := strings.TrimPrefix(obj.Key, s.prefix)
		if key == "" || strings.HasSuffix(key, "/") || key == compileMarker {
			continue
		}

		out = append(out, &assets.Asset{
			Key:       key,
			Kind:      assets.KindFile,
			Size:      obj.Size,
			UpdatedAt: obj.LastModified,
		})

		for dir := path.Dir(key); dir != "."; dir = path.Dir(dir) {
			dirs.Add(dir)
		}
	}

	dirList := dirs.ToSlice()
	slices.Sort(dirList)
	for _, dir := range dirList {
		out = append(out, &assets.Asset{Key: dir, Kind: assets.KindDirectory})
	}

	return out, nil
}

func (s *AssetStore) GetAsset(ctx context.Context, key string) (io.ReadCloser, error) {
	resp, err := s.client.GetObject(ctx, s.objectKey(key))
	if err != nil {
		return nil, err
	}
	return resp.Body, nil
}

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

	f, err := os.Open(localAbsPath)
	if err != nil {
		return false, fmt.Errorf("open %s: %w", localAbsPath, err)
	}
	defer f.Close()

	_, err = s.client.PutObject(ctx, &PutObjectParams{
		Key:         s.objectKey(key),
		Size:        info.Size(),
		ContentType: utils.DetectContentType(key),
		Body:        f,
	})
	if err != nil {
		return false, fmt.Errorf("put object: %w", err)
	}
	return true, nil
}

// RemoveAsset succeeds for missing keys, as S3 DeleteObject does.
func (s *AssetStore) RemoveAsset(ctx context.Context, key string) error {
	if err := s.client.DeleteObject(ctx, s.objectKey(key)); err != nil {
		return fmt.Errorf("delete object: %w", err)
	}
	return nil
}

// CompileAssets drops a compile request marker for whatever builds the theme
// from the bucket.
func (s *AssetStore) CompileAssets(ctx context.Context) error {
	body, err := json.Marshal(compileRequest{RequestedAt: s.now().UTC()})
	if err != nil {
		return err
	}

	_, err = s.client.PutObject(ctx, &PutObjectParams{
		Key:         s.objectKey(compileMarker),
		Size:        int64(len(body)),
		ContentType: "application/json",
		Body:        bytes.NewReader(body),
	})
	if err != nil {
		return fmt.Errorf("write compile request: %w", err)
	}

	slog.Debug("compile requested", "key", s.objectKey(compileMarker))
	return nil
}

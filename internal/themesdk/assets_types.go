package themesdk

import (
	"time"
)

const (
	AssetKindFile      = "file"
	AssetKindDirectory = "directory"
)

// AssetInfo is one entry of the theme listing
type AssetInfo struct {
	Key       string    `json:"key"`
	Kind      string    `json:"kind"`
	Size      int64     `json:"size"`
	Checksum  string    `json:"checksum,omitempty"`
	UpdatedAt time.Time `json:"updated_at"`
}

type ListResponse struct {
	Assets []*AssetInfo `json:"assets"`
}

type UploadResponse struct {
	Key      string `json:"key"`
	Size     int64  `json:"size"`
	Checksum string `json:"checksum,omitempty"`
}

type DeleteResponse struct {
	Key     string `json:"key"`
	Deleted bool   `json:"deleted"`
}

type CompileResponse struct {
	Status  string `json:"status"`
	BuildID string `json:"build_id,omitempty"`
}

// Package assets holds the types shared by the remote asset stores and the sync engine.
package assets

import (
	"errors"
	"time"
)

var (
	ErrNotFound = errors.New("asset not found")
)

// Kind tells a transferable file apart from a structural directory entry.
type Kind uint8

const (
	KindFile Kind = iota
	KindDirectory
)

func (k Kind) String() string {
	if k == KindDirectory {
		return "directory"
	}
	return "file"
}

// Asset describes one entry of a remote store listing.
// Keys are slash separated and relative to the theme root.
type Asset struct {
	Key       string
	Kind      Kind
	Size      int64
	UpdatedAt time.Time
}

func (a *Asset) IsDir() bool {
	return a.Kind == KindDirectory
}

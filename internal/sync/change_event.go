package sync

import (
	"fmt"
	"os"
	"strings"
)

// ChangeOp is what happened to a watched entry.
type ChangeOp uint8

const (
	OpCreated ChangeOp = iota
	OpModified
	OpDeleted
)

func (o ChangeOp) String() string {
	switch o {
	case OpCreated:
		return "created"
	case OpModified:
		return "modified"
	case OpDeleted:
		return "deleted"
	default:
		return "unknown"
	}
}

// EntryKind is the kind of the watched entry.
type EntryKind uint8

const (
	EntryFile EntryKind = iota
	EntryDirectory
)

func (k EntryKind) String() string {
	if k == EntryDirectory {
		return "directory"
	}
	return "file"
}

// ChangeEvent is a filesystem notification translated at the watcher
// boundary. Path is relative to the theme root and slash separated.
type ChangeEvent struct {
	Path string
	Op   ChangeOp
	Kind EntryKind
}

func (e ChangeEvent) String() string {
	return fmt.Sprintf("%s %s %s", e.Kind, e.Op, e.Path)
}

// entryIndex remembers the kind of every entry seen under the root. It is
// the "previous" side of the translation: without it a removal could not be
// told apart for files and directories, nor a creation from a write.
type entryIndex struct {
	entries map[string]EntryKind
}

func newEntryIndex() *entryIndex {
	return &entryIndex{entries: make(map[string]EntryKind)}
}

func (idx *entryIndex) seed(rel string, isDir bool) {
	if isDir {
		idx.entries[rel] = EntryDirectory
	} else {
		idx.entries[rel] = EntryFile
	}
}

// translate turns the current state of rel (nil info when it is gone) into
// a ChangeEvent. ok is false for notifications that carry no change, such as
// a directory whose metadata was touched.
func (idx *entryIndex) translate(rel string, info os.FileInfo) (ev ChangeEvent, ok bool) {
	prev, known := idx.entries[rel]

	switch {
	case info == nil:
		kind := EntryFile
		if known {
			kind = prev
		}
		delete(idx.entries, rel)
		if kind == EntryDirectory {
			idx.forgetChildren(rel)
		}
		return ChangeEvent{Path: rel, Op: OpDeleted, Kind: kind}, true

	case info.IsDir():
		idx.entries[rel] = EntryDirectory
		if known && prev == EntryDirectory {
			return ChangeEvent{}, false
		}
		return ChangeEvent{Path: rel, Op: OpCreated, Kind: EntryDirectory}, true

	default:
		idx.entries[rel] = EntryFile
		if known && prev == EntryFile {
			return ChangeEvent{Path: rel, Op: OpModified, Kind: EntryFile}, true
		}
		return ChangeEvent{Path: rel, Op: OpCreated, Kind: EntryFile}, true
	}
}

// forgetChildren drops the index entries below a removed directory. No
// events are produced for them; per-file removals arrive on their own.
func (idx *entryIndex) forgetChildren(dir string) {
	prefix := dir + "/"
	for p := range idx.entries {
		if strings.HasPrefix(p, prefix) {
			delete(idx.entries, p)
		}
	}
}

package sync

import (
	"bufio"
	"errors"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/openmined/themesync/internal/localfs"
	gitignore "github.com/sabhiram/go-gitignore"
)

const (
	IgnoreFileName = ".themesyncignore"
)

var defaultIgnoreLines = []string{
	// hidden entries, covers VCS metadata too
	".*",
	// dependency trees
	"node_modules/",
	"bower_components/",
	// editors
	"*.swp",
	"*~",
	"*.tmp",
	// OS-specific
	"Thumbs.db",
	"desktop.ini",
}

// sensitivePath matches settings or draft data that deploys must not
// overwrite unless forced. tree is the directory prefix for tree patterns.
type sensitivePath struct {
	pattern string
	tree    string
}

var sensitivePaths = []sensitivePath{
	{pattern: "config/settings_data.json"},
	{pattern: ".draft/**", tree: ".draft"},
}

// PathClassifier decides which relative paths are eligible for sync.
type PathClassifier struct {
	root     string
	realRoot string
	baseline *gitignore.GitIgnore
	excludes *gitignore.GitIgnore
}

// NewPathClassifier builds a classifier for the theme rooted at root. The
// exclude patterns use gitignore syntax and apply regardless of force.
func NewPathClassifier(root string, excludes []string) *PathClassifier {
	c := &PathClassifier{
		root:     root,
		baseline: gitignore.CompileIgnoreLines(defaultIgnoreLines...),
	}
	if root != "" {
		c.realRoot = root
		if resolved, err := filepath.EvalSymlinks(root); err == nil {
			c.realRoot = resolved
		}
	}

	var lines []string
	for _, line := range excludes {
		if line = strings.TrimSpace(line); line != "" && !strings.HasPrefix(line, "#") {
			lines = append(lines, line)
		}
	}
	if len(lines) > 0 {
		c.excludes = gitignore.CompileIgnoreLines(lines...)
	}
	return c
}

// IsEligible reports whether relPath may be transferred. force lifts the
// sensitive path rule only.
func (c *PathClassifier) IsEligible(relPath string, force bool) bool {
	if relPath == "" {
		return false
	}
	if !c.Contained(relPath) {
		return false
	}

	p := path.Clean(strings.ReplaceAll(relPath, "\\", "/"))
	tree, sensitive := matchSensitive(p)
	if sensitive && !force {
		return false
	}

	rest := p
	if tree != "" {
		rest = strings.TrimPrefix(p, tree+"/")
	}
	if c.baseline.MatchesPath(rest) {
		return false
	}

	if c.excludes != nil && c.excludes.MatchesPath(p) {
		return false
	}

	return true
}

// Contained reports whether relPath stays inside the root. Escapes are
// logged as security warnings.
func (c *PathClassifier) Contained(relPath string) bool {
	if reason := c.traversal(strings.ReplaceAll(relPath, "\\", "/")); reason != "" {
		slog.Warn("security", "reason", reason, "path", relPath)
		return false
	}
	return true
}

// traversal returns a non-empty reason when p reaches outside the root.
func (c *PathClassifier) traversal(p string) string {
	for _, seg := range strings.Split(p, "/") {
		if seg == ".." {
			return "path traversal attempt"
		}
	}

	if strings.HasPrefix(p, "/") || filepath.IsAbs(p) || hasVolume(p) {
		return "absolute path"
	}

	if c.root == "" {
		return ""
	}

	resolved := resolveExisting(filepath.Join(c.root, filepath.FromSlash(p)))
	rel, err := filepath.Rel(c.realRoot, resolved)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "path escapes root"
	}
	return ""
}

func matchSensitive(p string) (string, bool) {
	for _, s := range sensitivePaths {
		if ok, _ := doublestar.Match(s.pattern, p); ok {
			return s.tree, true
		}
	}
	return "", false
}

// hasVolume catches windows drive paths ("C:/...") on every platform.
func hasVolume(p string) bool {
	return len(p) >= 2 && p[1] == ':' &&
		((p[0] >= 'a' && p[0] <= 'z') || (p[0] >= 'A' && p[0] <= 'Z'))
}

// resolveExisting follows symlinks for the deepest existing ancestor of abs
// and re-attaches the part that does not exist yet.
func resolveExisting(abs string) string {
	var missing []string
	current := abs
	for {
		if resolved, err := filepath.EvalSymlinks(current); err == nil {
			return filepath.Join(append([]string{resolved}, missing...)...)
		}
		parent := filepath.Dir(current)
		if parent == current {
			return abs
		}
		missing = append([]string{filepath.Base(current)}, missing...)
		current = parent
	}
}

// LoadIgnoreFile reads the exclude patterns of the theme's ignore file. A
// missing file yields no patterns.
func LoadIgnoreFile(lfs *localfs.FS) ([]string, error) {
	f, err := lfs.Open(IgnoreFileName)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	} else if err != nil {
		return nil, err
	}
	defer f.Close()

	var lines []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		lines = append(lines, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}

	slog.Info("loaded ignore file", "path", IgnoreFileName, "rules", len(lines), "note", "changes apply on the next run")
	return lines, nil
}

package utils

import (
	"mime"
	"path"
	"strings"
)

// theme sources the mime table does not know
var themeTypes = map[string]string{
	".liquid": "text/x-liquid; charset=utf-8",
	".json":   "application/json",
	".yaml":   "text/plain; charset=utf-8",
	".yml":    "text/plain; charset=utf-8",
	".md":     "text/plain; charset=utf-8",
	".scss":   "text/x-scss; charset=utf-8",
}

// DetectContentType guesses the content type of an asset from its key.
func DetectContentType(key string) string {
	ext := strings.ToLower(path.Ext(key))
	if t, ok := themeTypes[ext]; ok {
		return t
	}
	if t := mime.TypeByExtension(ext); t != "" {
		return t
	}
	return "application/octet-stream"
}

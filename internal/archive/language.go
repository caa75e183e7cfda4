package archive

import (
	"path"
	"strings"
)

// FallbackLanguage is the Prism tag for unknown extensions
const FallbackLanguage = "clike"

var languages = map[string]string{
	".ts":         "typescript",
	".tsx":        "typescript",
	".js":         "javascript",
	".json":       "json",
	".html":       "markup",
	".xml":        "markup",
	".java":       "java",
	".properties": "properties",
	".css":        "css",
	".scss":       "css",
}

// Language picks the highlighting tag for a record path
func Language(p string) string {
	if lang, ok := languages[strings.ToLower(path.Ext(p))]; ok {
		return lang
	}
	return FallbackLanguage
}

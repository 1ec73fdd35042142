// Package language infers a file's language from its name extension at
// creation time. The mapping ships as an embedded YAML file so adding a
// language never touches code.
package language

import (
	"embed"
	"fmt"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed config/languages.yaml
var configFiles embed.FS

// DefaultLanguage is used when the extension is unknown or absent.
const DefaultLanguage = "plaintext"

type registryFile struct {
	Extensions map[string]string `yaml:"extensions"`
}

// Registry maps file extensions to language identifiers.
type Registry struct {
	extensions map[string]string
}

// NewRegistry loads the embedded extension mapping.
func NewRegistry() (*Registry, error) {
	data, err := configFiles.ReadFile("config/languages.yaml")
	if err != nil {
		return nil, fmt.Errorf("read language config: %w", err)
	}

	var file registryFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("unmarshal language config: %w", err)
	}
	if len(file.Extensions) == 0 {
		return nil, fmt.Errorf("language config has no extensions")
	}

	return &Registry{extensions: file.Extensions}, nil
}

// Detect returns the language for a file name, falling back to
// DefaultLanguage for unknown or missing extensions.
func (r *Registry) Detect(name string) string {
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(name), "."))
	if ext == "" {
		return DefaultLanguage
	}
	if lang, ok := r.extensions[ext]; ok {
		return lang
	}
	return DefaultLanguage
}

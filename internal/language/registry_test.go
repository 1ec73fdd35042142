package language

import "testing"

func TestDetect(t *testing.T) {
	registry, err := NewRegistry()
	if err != nil {
		t.Fatalf("NewRegistry() error = %v", err)
	}

	tests := []struct {
		name     string
		fileName string
		want     string
	}{
		{"python file", "app.py", "python"},
		{"go file", "main.go", "go"},
		{"javascript file", "index.js", "javascript"},
		{"typescript file", "index.ts", "typescript"},
		{"markdown file", "README.md", "markdown"},
		{"uppercase extension", "SCRIPT.PY", "python"},
		{"multiple dots", "archive.test.py", "python"},
		{"unknown extension", "binary.xyz123", DefaultLanguage},
		{"no extension", "Makefile2", DefaultLanguage},
		{"trailing dot", "strange.", DefaultLanguage},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := registry.Detect(tt.fileName); got != tt.want {
				t.Errorf("Detect(%q) = %q, want %q", tt.fileName, got, tt.want)
			}
		})
	}
}

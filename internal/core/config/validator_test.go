package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func hasError(errs []error, want string) bool {
	for _, err := range errs {
		if strings.Contains(err.Error(), want) {
			return true
		}
	}
	return false
}

func TestValidate(t *testing.T) {
	file := filepath.Join(t.TempDir(), "plain.txt")
	if err := os.WriteFile(file, nil, 0o644); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{
			name:   "dir and content url",
			mutate: func(c *Config) { c.Workspace.Dir = t.TempDir(); c.Workspace.ContentURL = "http://x" },
			want:   "mutually exclusive",
		},
		{
			name:   "bad tree url scheme",
			mutate: func(c *Config) { c.Workspace.TreeURL = "ftp://host/tree.json" },
			want:   "workspace.tree_url must be an http or https URL",
		},
		{
			name:   "reload without file",
			mutate: func(c *Config) { c.Tags.URL = "http://host/tags"; c.Tags.Reload = true },
			want:   "tags.reload requires tags.file",
		},
		{
			name:   "bad glob",
			mutate: func(c *Config) { c.Exclude.Files = []string{"[a-"} },
			want:   "exclude.files[0]",
		},
		{
			name:   "per file above total",
			mutate: func(c *Config) { c.Search.PerFile = 600 },
			want:   "search.per_file",
		},
		{
			name:   "sample ratio",
			mutate: func(c *Config) { c.Observability.SampleRatio = 2 },
			want:   "observability.sample_ratio",
		},
		{
			name:   "tracing without endpoint",
			mutate: func(c *Config) { c.Observability.Tracing = true },
			want:   "otlp_endpoint is required",
		},
		{
			name:   "workspace dir is a file",
			mutate: func(c *Config) { c.Workspace.Dir = file },
			want:   fmt.Sprintf("workspace.dir %q is not a directory", file),
		},
		{
			name:   "missing tags file",
			mutate: func(c *Config) { c.Tags.File = "/non/existent/tags" },
			want:   `tags.file "/non/existent/tags" does not exist`,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			errs := Validate(cfg)
			if !hasError(errs, tt.want) {
				t.Errorf("expected error containing %q, got %v", tt.want, errs)
			}
		})
	}
}

package catalog

import (
	"os"
	"path/filepath"
	"testing"
)

func writeCatalog(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "catalog.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("Failed to create test YAML file: %v", err)
	}
	return path
}

func TestLoaderLoad(t *testing.T) {
	path := writeCatalog(t, `---
topics:
  - id: "t1"
    title: Welcome
    posts: ["p1", "p2"]
  - id: "t2"
    posts:
      - p3
`)

	cfg, err := NewLoader(path).Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if len(cfg.Topics) != 2 {
		t.Fatalf("Load() returned %d topics, want 2", len(cfg.Topics))
	}

	posts, err := cfg.PostTopics()
	if err != nil {
		t.Fatalf("PostTopics() error = %v", err)
	}
	want := map[string]string{"p1": "t1", "p2": "t1", "p3": "t2"}
	if len(posts) != len(want) {
		t.Fatalf("PostTopics() = %v, want %v", posts, want)
	}
	for post, topic := range want {
		if posts[post] != topic {
			t.Errorf("post %s -> %s, want %s", post, posts[post], topic)
		}
	}
}

func TestLoaderLoadFileNotFound(t *testing.T) {
	_, err := NewLoader("/nonexistent/path/catalog.yaml").Load()
	if err == nil {
		t.Error("Load() with non-existent file should return error")
	}
}

func TestLoaderLoadInvalidYAML(t *testing.T) {
	path := writeCatalog(t, "topics: [unclosed")
	if _, err := NewLoader(path).Load(); err == nil {
		t.Error("Load() with invalid yaml should return error")
	}
}

func TestPostTopicsErrors(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
	}{
		{
			name: "post in two topics",
			cfg: Config{Topics: []Topic{
				{ID: "t1", Posts: []string{"p1"}},
				{ID: "t2", Posts: []string{"p1"}},
			}},
		},
		{
			name: "topic without id",
			cfg:  Config{Topics: []Topic{{Title: "orphan", Posts: []string{"p1"}}}},
		},
		{
			name: "empty catalog",
			cfg:  Config{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := tt.cfg.PostTopics(); err == nil {
				t.Error("PostTopics() should return error")
			}
		})
	}
}

func TestPostTopicsRepeatedInSameTopic(t *testing.T) {
	cfg := Config{Topics: []Topic{{ID: "t1", Posts: []string{"p1", " p1 ", ""}}}}
	posts, err := cfg.PostTopics()
	if err != nil {
		t.Fatalf("PostTopics() error = %v", err)
	}
	if len(posts) != 1 || posts["p1"] != "t1" {
		t.Errorf("PostTopics() = %v, want p1 -> t1", posts)
	}
}

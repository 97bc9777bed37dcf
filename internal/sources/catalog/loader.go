package catalog

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Loader handles loading and parsing of the topic/post catalog file
type Loader struct {
	filePath string
}

// NewLoader creates a new catalog loader
func NewLoader(filePath string) *Loader {
	return &Loader{
		filePath: filePath,
	}
}

// Load reads and parses the catalog file
func (l *Loader) Load() (*Config, error) {
	data, err := os.ReadFile(l.filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse catalog yaml: %w", err)
	}

	return &cfg, nil
}

// PostTopics flattens the catalog into a post -> topic map.
// A post listed under two topics is an error.
func (c *Config) PostTopics() (map[string]string, error) {
	posts := make(map[string]string)

	for _, topic := range c.Topics {
		topicID := strings.TrimSpace(topic.ID)
		if topicID == "" {
			return nil, fmt.Errorf("topic %q has no id", topic.Title)
		}
		for _, raw := range topic.Posts {
			postID := strings.TrimSpace(raw)
			if postID == "" {
				continue
			}
			if existing, ok := posts[postID]; ok && existing != topicID {
				return nil, fmt.Errorf("post %s listed in topics %s and %s", postID, existing, topicID)
			}
			posts[postID] = topicID
		}
	}

	if len(posts) == 0 {
		return nil, fmt.Errorf("no posts found in catalog")
	}

	return posts, nil
}

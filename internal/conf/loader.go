package conf

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Load reads and parses a yaml config file. ${VAR:default} placeholders
// are expanded from the environment, matching the kratos config resolver
// used by the server binary.
func Load(path string) (*Bootstrap, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	expanded := os.Expand(string(data), func(key string) string {
		name, def, _ := strings.Cut(key, ":")
		if v := os.Getenv("BOOKING_" + name); v != "" {
			return v
		}
		return def
	})

	var c Bootstrap
	if err := yaml.Unmarshal([]byte(expanded), &c); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &c, nil
}

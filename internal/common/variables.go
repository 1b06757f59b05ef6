package common

import (
	"fmt"
	"os"

	"github.com/pelletier/go-toml/v2"
)

// VariableFile represents one variable in the variables TOML file
// Format:
// [key_name]
// value = "some-value"
// description = "optional description"
type VariableFile struct {
	Value       string `toml:"value"`
	Description string `toml:"description"`
}

// LoadVariables reads a variables TOML file into a key/value map
func LoadVariables(path string) (map[string]string, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read variables file %s: %w", path, err)
	}

	var variables map[string]VariableFile
	if err := toml.Unmarshal(content, &variables); err != nil {
		return nil, fmt.Errorf("failed to parse variables file %s: %w", path, err)
	}

	kvMap := make(map[string]string, len(variables))
	for key, v := range variables {
		if key == "" || v.Value == "" {
			continue
		}
		kvMap[key] = v.Value
	}
	return kvMap, nil
}

// internal/util/util.go
package util

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/erilali/reactionpad/internal/logger"
	"gopkg.in/yaml.v3"
)

// DecodeFile decodes a JSON or YAML file into v, picking the format by extension.
// A missing file is reported with found=false and no error so callers can keep their defaults.
func DecodeFile(path string, v interface{}) (found bool, err error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, err
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, v); err != nil {
			return true, fmt.Errorf("parse %s: %w", path, err)
		}
	default:
		if err := json.Unmarshal(data, v); err != nil {
			return true, fmt.Errorf("parse %s: %w", path, err)
		}
	}
	return true, nil
}

// LoadLoggerConfig loads the logger configuration from a JSON or YAML file
func LoadLoggerConfig(filePath string) (logger.LogConfig, error) {
	config := logger.DefaultLogConfig()
	if _, err := DecodeFile(filePath, &config); err != nil {
		return logger.DefaultLogConfig(), err
	}
	return config, nil
}

// Package cfgfile decodes the YAML and JSON files that declare endpoints,
// searches and publishers.
package cfgfile

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Decode reads the kind file at path into out. .yaml, .yml and .json pick
// their decoder; a file without an extension is tried as YAML, then JSON.
func Decode(kind, path string, out any) error {
	path = strings.TrimSpace(path)
	if path == "" {
		return fmt.Errorf("%s file path is empty", kind)
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read %s file: %w", kind, err)
	}

	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(raw, out)
	case ".json":
		err = json.Unmarshal(raw, out)
	case "":
		if yerr := yaml.Unmarshal(raw, out); yerr != nil {
			if jerr := json.Unmarshal(raw, out); jerr != nil {
				err = errors.New("format not recognized (expected YAML or JSON)")
			}
		}
	default:
		return fmt.Errorf("%s file: unsupported extension %q", kind, ext)
	}
	if err != nil {
		return fmt.Errorf("decode %s file: %w", kind, err)
	}
	return nil
}

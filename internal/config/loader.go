package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// ConfigFileName is the name of the project file.
const ConfigFileName = "silverline.yaml"

// ConfigFileNameAlt is the alternate name of the project file.
const ConfigFileNameAlt = "silverline.yml"

// LoadFromDir loads the definitions from silverline.yaml or silverline.yml
// in dir. Returns nil, nil if no project file is found.
func LoadFromDir(dir string) (*Definitions, error) {
	path := FindConfigFile(dir)
	if path == "" {
		return nil, nil
	}
	return Load(path)
}

// Load reads the definitions from a YAML file.
func Load(path string) (*Definitions, error) {
	k := koanf.New(".")
	if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
		return nil, fmt.Errorf("error reading %s: %w", path, err)
	}
	return Unmarshal(k)
}

// Parse reads the definitions from YAML text.
func Parse(data []byte) (*Definitions, error) {
	m, err := yaml.Parser().Unmarshal(data)
	if err != nil {
		return nil, fmt.Errorf("invalid yaml: %w", err)
	}
	k := koanf.New(".")
	if err := k.Load(confmap.Provider(m, ""), nil); err != nil {
		return nil, err
	}
	return Unmarshal(k)
}

// Unmarshal decodes the definition keys of an already loaded koanf instance.
// The CLI uses it to read definitions from the same layered configuration as
// its runtime settings.
func Unmarshal(k *koanf.Koanf) (*Definitions, error) {
	var defs Definitions
	if err := k.Unmarshal("", &defs); err != nil {
		return nil, fmt.Errorf("unable to decode definitions: %w", err)
	}
	return &defs, nil
}

// FindConfigFile returns the project file in dir, or "" if there is none.
func FindConfigFile(dir string) string {
	for _, name := range []string{ConfigFileName, ConfigFileNameAlt} {
		path := filepath.Join(dir, name)
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

// FindProjectRoot walks up from startDir to the first directory holding a
// project file. Returns "" if none is found.
func FindProjectRoot(startDir string) string {
	dir := startDir
	for {
		if FindConfigFile(dir) != "" {
			return dir
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return ""
		}
		dir = parent
	}
}

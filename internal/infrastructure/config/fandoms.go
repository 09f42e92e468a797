package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// FandomsConfig holds dynamic fandom definitions (read/write).
type FandomsConfig struct {
	Fandoms map[string]FandomEntry `yaml:"fandoms,omitempty"`
}

// FandomEntry holds configuration for a specific fandom.
type FandomEntry struct {
	Collection  string `yaml:"collection"`
	Description string `yaml:"description,omitempty"`
}

// LoadFandoms loads the fandom registry from the .canon directory.
func LoadFandoms(basePath string) (*FandomsConfig, error) {
	fandomsFile := filepath.Join(basePath, DefaultConfigDir, DefaultFandomsFile)

	data, err := os.ReadFile(fandomsFile)
	if os.IsNotExist(err) {
		// Return empty config if file doesn't exist
		return &FandomsConfig{
			Fandoms: make(map[string]FandomEntry),
		}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading fandoms file: %w", err)
	}

	var cfg FandomsConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing fandoms file: %w", err)
	}

	if cfg.Fandoms == nil {
		cfg.Fandoms = make(map[string]FandomEntry)
	}

	return &cfg, nil
}

// Save writes the fandom registry to the fandoms file.
func (f *FandomsConfig) Save(basePath string) error {
	configDir := filepath.Join(basePath, DefaultConfigDir)
	fandomsFile := filepath.Join(configDir, DefaultFandomsFile)

	if err := os.MkdirAll(configDir, 0755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	data, err := yaml.Marshal(f)
	if err != nil {
		return fmt.Errorf("marshaling fandoms config: %w", err)
	}

	if err := os.WriteFile(fandomsFile, data, 0600); err != nil {
		return fmt.Errorf("writing fandoms file: %w", err)
	}

	return nil
}

// Add adds a fandom to the configuration.
func (f *FandomsConfig) Add(name string, entry FandomEntry) {
	if f.Fandoms == nil {
		f.Fandoms = make(map[string]FandomEntry)
	}
	f.Fandoms[name] = entry
}

// Remove removes a fandom from the configuration.
func (f *FandomsConfig) Remove(name string) {
	if f.Fandoms != nil {
		delete(f.Fandoms, name)
	}
}

// Get returns the configuration for a specific fandom.
func (f *FandomsConfig) Get(name string) (*FandomEntry, error) {
	if len(f.Fandoms) == 0 {
		return nil, errors.New("no fandoms configured")
	}

	entry, ok := f.Fandoms[name]
	if !ok {
		var b strings.Builder
		count := 0
		for k := range f.Fandoms {
			if count > 0 {
				b.WriteString(", ")
			}
			b.WriteString(k)
			count++
			if count >= 5 {
				b.WriteString(", ...")
				break
			}
		}
		return nil, fmt.Errorf("fandom %q not found (available: %s)", name, b.String())
	}

	return &entry, nil
}

// GetCollection returns the Qdrant collection name for a fandom.
func (f *FandomsConfig) GetCollection(name string) (string, error) {
	entry, err := f.Get(name)
	if err != nil {
		return "", err
	}
	return entry.Collection, nil
}

// Exists checks if a fandom exists in the configuration.
func (f *FandomsConfig) Exists(name string) bool {
	if f.Fandoms == nil {
		return false
	}
	_, ok := f.Fandoms[name]
	return ok
}

// FandomsExists checks if a fandoms registry file exists in the given path.
func FandomsExists(basePath string) bool {
	fandomsFile := filepath.Join(basePath, DefaultConfigDir, DefaultFandomsFile)
	_, err := os.Stat(fandomsFile)
	return err == nil
}

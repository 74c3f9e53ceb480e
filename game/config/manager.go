package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/wricardo/kalaha-game/game/engine"
	"github.com/wricardo/kalaha-game/game/service"
)

var (
	ErrConfigNotFound = service.ErrConfigNotFound
	ErrInvalidConfig  = service.ErrInvalidConfig
)

// DefaultConfigName is tried first when picking the default ruleset
const DefaultConfigName = "classic"

// extensions lists the supported file types in lookup order
var extensions = []string{".json", ".yaml", ".yml"}

// Manager handles ruleset loading and caching
type Manager struct {
	configDir     string
	defaultConfig *engine.GameConfig
	configs       map[string]*engine.GameConfig
	mu            sync.RWMutex
}

// NewManager creates a new configuration manager
func NewManager(configDir string) (*Manager, error) {
	if _, err := os.Stat(configDir); os.IsNotExist(err) {
		return nil, fmt.Errorf("config directory does not exist: %s", configDir)
	}

	m := &Manager{
		configDir: configDir,
		configs:   make(map[string]*engine.GameConfig),
	}

	if err := m.loadDefaultConfig(); err != nil {
		return nil, fmt.Errorf("failed to load default config: %w", err)
	}

	return m, nil
}

// LoadConfig loads a ruleset by ID, with or without its file extension
func (m *Manager) LoadConfig(name string) (*engine.GameConfig, error) {
	id, ext := splitName(name)
	if !validID(id) {
		return nil, fmt.Errorf("%w: %q", ErrConfigNotFound, name)
	}

	m.mu.RLock()
	if config, exists := m.configs[id]; exists {
		m.mu.RUnlock()
		return config, nil
	}
	m.mu.RUnlock()

	m.mu.Lock()
	defer m.mu.Unlock()

	// Double-check after acquiring write lock
	if config, exists := m.configs[id]; exists {
		return config, nil
	}

	candidates := extensions
	if ext != "" {
		candidates = []string{ext}
	}

	for _, candidate := range candidates {
		config, err := ParseFile(filepath.Join(m.configDir, id+candidate))
		if errors.Is(err, os.ErrNotExist) {
			continue
		}
		if err != nil {
			return nil, err
		}
		m.configs[id] = config
		return config, nil
	}

	return nil, fmt.Errorf("%w: %q", ErrConfigNotFound, name)
}

// ParseFile reads and validates one ruleset file. The format follows the
// file extension.
func ParseFile(path string) (*engine.GameConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", os.ErrNotExist, path)
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return Parse(data, filepath.Ext(path))
}

// Parse decodes and validates a ruleset in the format named by ext
func Parse(data []byte, ext string) (*engine.GameConfig, error) {
	var config engine.GameConfig
	switch strings.ToLower(ext) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &config); err != nil {
			return nil, fmt.Errorf("%w: failed to parse yaml: %v", ErrInvalidConfig, err)
		}
	case ".json", "":
		if err := json.Unmarshal(data, &config); err != nil {
			return nil, fmt.Errorf("%w: failed to parse json: %v", ErrInvalidConfig, err)
		}
	default:
		return nil, fmt.Errorf("%w: unsupported format %q", ErrInvalidConfig, ext)
	}

	if err := engine.ValidateGameConfig(&config); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	return &config, nil
}

// ListConfigs returns information about all available rulesets. Invalid
// files are skipped; when an ID exists in several formats the first one in
// lookup order wins.
func (m *Manager) ListConfigs() ([]*service.ConfigInfo, error) {
	entries, err := os.ReadDir(m.configDir)
	if err != nil {
		return nil, fmt.Errorf("failed to read config directory: %w", err)
	}

	configs := []*service.ConfigInfo{}
	seen := make(map[string]bool)

	for _, ext := range extensions {
		for _, entry := range entries {
			if entry.IsDir() || filepath.Ext(entry.Name()) != ext {
				continue
			}

			id := strings.TrimSuffix(entry.Name(), ext)
			if seen[id] {
				continue
			}

			config, err := m.LoadConfig(entry.Name())
			if err != nil {
				continue
			}
			seen[id] = true

			configs = append(configs, &service.ConfigInfo{
				Filename:       entry.Name(),
				ConfigID:       id,
				Name:           config.Name,
				Description:    config.Description,
				StartingStones: config.StartingStones,
				Format:         strings.TrimPrefix(ext, "."),
			})
		}
	}

	return configs, nil
}

// GetDefault returns the default configuration
func (m *Manager) GetDefault() *engine.GameConfig {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.defaultConfig
}

// SetDefault sets the default configuration by name
func (m *Manager) SetDefault(name string) error {
	config, err := m.LoadConfig(name)
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.defaultConfig = config
	return nil
}

// RefreshCache drops every cached ruleset and picks the default again
func (m *Manager) RefreshCache() error {
	m.mu.Lock()
	m.configs = make(map[string]*engine.GameConfig)
	m.mu.Unlock()

	return m.loadDefaultConfig()
}

// loadDefaultConfig picks classic, then the first valid file, then the built-in ruleset
func (m *Manager) loadDefaultConfig() error {
	config, err := m.LoadConfig(DefaultConfigName)
	if err != nil {
		configs, listErr := m.ListConfigs()
		if listErr != nil || len(configs) == 0 {
			config = engine.DefaultGameConfig()
		} else if config, err = m.LoadConfig(configs[0].ConfigID); err != nil {
			config = engine.DefaultGameConfig()
		}
	}

	m.mu.Lock()
	m.defaultConfig = config
	m.mu.Unlock()
	return nil
}

// SaveConfig writes a ruleset to disk. A .yaml or .yml suffix selects YAML,
// anything else is written as JSON.
func (m *Manager) SaveConfig(name string, config *engine.GameConfig) error {
	if err := engine.ValidateGameConfig(config); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}

	id, ext := splitName(name)
	if !validID(id) {
		return fmt.Errorf("%w: invalid config name %q", ErrInvalidConfig, name)
	}
	if ext == "" {
		ext = ".json"
	}

	var data []byte
	var err error
	switch ext {
	case ".yaml", ".yml":
		data, err = yaml.Marshal(config)
	default:
		data, err = json.MarshalIndent(config, "", "  ")
	}
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	configPath := filepath.Join(m.configDir, id+ext)
	if err := os.WriteFile(configPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	m.mu.Lock()
	m.configs[id] = config
	m.mu.Unlock()

	return nil
}

// splitName separates a supported extension from a config name
func splitName(name string) (id, ext string) {
	ext = strings.ToLower(filepath.Ext(name))
	for _, known := range extensions {
		if ext == known {
			return strings.TrimSuffix(name, filepath.Ext(name)), ext
		}
	}
	return name, ""
}

// validID rejects empty names and anything that could escape the config directory
func validID(id string) bool {
	return id != "" && id != "." && id != ".." && !strings.ContainsAny(id, `/\`)
}

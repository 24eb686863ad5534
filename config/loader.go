package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	"github.com/treemana/fakedns/listener"
	"github.com/treemana/fakedns/policy"
)

var ErrUnknownFormat = errors.New("unknown configuration format")

// Load reads path, decodes it by extension (.json, .yaml, .yml, .toml), fills in
// defaults and validates the result.
func Load(path string) (*Config, error) {

	// Step 1: read the file
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read configuration file: %w", err)
	}

	// Step 2: decode
	config, err := Parse(raw, filepath.Ext(path))
	if err != nil {
		return nil, err
	}

	// Step 3: apply defaults for missing values
	applyDefaults(config)

	// Step 4: validate
	if err = config.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return config, nil
}

// Parse decodes raw in the format named by ext, leading dot optional. No defaults are
// applied.
func Parse(raw []byte, ext string) (*Config, error) {
	var config Config

	switch strings.ToLower(strings.TrimPrefix(ext, ".")) {
	case "json":
		if err := json.Unmarshal(raw, &config); err != nil {
			return nil, fmt.Errorf("failed to parse JSON configuration: %w", err)
		}
	case "yaml", "yml":
		if err := yaml.Unmarshal(raw, &config); err != nil {
			return nil, fmt.Errorf("failed to parse YAML configuration: %w", err)
		}
	case "toml":
		if _, err := toml.Decode(string(raw), &config); err != nil {
			return nil, fmt.Errorf("failed to parse TOML configuration: %w", err)
		}
	default:
		return nil, fmt.Errorf("%w %q", ErrUnknownFormat, ext)
	}

	return &config, nil
}

func applyDefaults(config *Config) {
	// Logging defaults
	if !config.Log.STDOUT && config.Log.File == "" {
		config.Log.STDOUT = true
	}
	if config.Log.MaxAge == 0 {
		config.Log.MaxAge = defaultMaxAge
	}
	if config.Log.MaxSize == 0 {
		config.Log.MaxSize = defaultMaxSize
	}
	if config.Log.MaxBackups == 0 {
		config.Log.MaxBackups = defaultMaxBackups
	}

	// Listener defaults
	for i := range config.Listeners {
		l := &config.Listeners[i]
		if l.Name == "" {
			l.Name = listener.DefaultName
		}
		if l.Address == "" {
			l.Address = listener.DefaultAddress
		}
		if l.Port == 0 {
			l.Port = listener.DefaultPort
		}
		if l.Timeout == 0 {
			l.Timeout = listener.DefaultTimeout
		}
		if l.ResponseMX == "" {
			l.ResponseMX = policy.DefaultResponseMX
		}
		if l.ResponseTXT == "" {
			l.ResponseTXT = policy.DefaultResponseTXT
		}
	}
}

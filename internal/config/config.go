package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// EnvConfigPath overrides the config file location
const EnvConfigPath = "KRISHIMITRA_CONFIG"

// DefaultPath is used when neither a flag nor EnvConfigPath is set
const DefaultPath = "configs/config.yml"

// Config holds application configuration
type Config struct {
	Server struct {
		Port string `yaml:"port"`
		Mode string `yaml:"mode"` // gin mode: "release", "debug" or "test"
	} `yaml:"server"`

	Model struct {
		Path       string `yaml:"path"`        // classifier blob
		LabelsPath string `yaml:"labels_path"` // class code -> crop name
	} `yaml:"model"`

	History struct {
		Driver string `yaml:"driver"` // "csv", "sqlite" or "postgres"
		Path   string `yaml:"path"`   // file path or postgres URL
	} `yaml:"history"`

	Advisory struct {
		Default string            `yaml:"default"`
		Tips    map[string]string `yaml:"tips"`
	} `yaml:"advisory"`

	Log struct {
		Development bool   `yaml:"development"`
		Level       string `yaml:"level"`
	} `yaml:"log"`
}

// ResolvePath picks the config path: explicit flag, then environment, then
// DefaultPath.
func ResolvePath(flagValue string) string {
	if flagValue != "" {
		return flagValue
	}
	if env := os.Getenv(EnvConfigPath); env != "" {
		return env
	}
	return DefaultPath
}

// LoadConfig loads configuration from YAML file
func LoadConfig(configPath string) (*Config, error) {
	config := &Config{}

	file, err := os.Open(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}
	defer file.Close()

	decoder := yaml.NewDecoder(file)
	decoder.KnownFields(true)
	if err := decoder.Decode(config); err != nil {
		return nil, fmt.Errorf("failed to decode config file: %w", err)
	}

	config.applyDefaults()

	switch config.Server.Mode {
	case "release", "debug", "test":
	default:
		return nil, fmt.Errorf("unknown server mode %q", config.Server.Mode)
	}

	return config, nil
}

// Default returns the configuration used when no file is present.
func Default() *Config {
	config := &Config{}
	config.applyDefaults()
	return config
}

func (c *Config) applyDefaults() {
	if c.Server.Port == "" {
		c.Server.Port = "5000"
	}

	if c.Server.Mode == "" {
		c.Server.Mode = "release"
	}

	if c.Model.Path == "" {
		c.Model.Path = "./models/crop_model.json"
	}

	if c.Model.LabelsPath == "" {
		c.Model.LabelsPath = "./models/label_map.json"
	}

	if c.History.Driver == "" {
		c.History.Driver = "csv"
	}

	if c.History.Path == "" {
		c.History.Path = "./data/prediction_history.csv"
	}

	if c.Log.Level == "" {
		c.Log.Level = "info"
	}

	// Expand environment variables in paths and DSNs
	c.Model.Path = os.ExpandEnv(c.Model.Path)
	c.Model.LabelsPath = os.ExpandEnv(c.Model.LabelsPath)
	c.History.Path = os.ExpandEnv(c.History.Path)
}

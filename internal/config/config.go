package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// Config holds the application configuration
type Config struct {
	Client ClientConfig `json:"client"`
	Image  ImageConfig  `json:"image"`
	Scene  SceneConfig  `json:"scene"`
}

// ClientConfig holds configuration for the vision model backend
type ClientConfig struct {
	Backend     string  `json:"backend"`
	URL         string  `json:"url"`
	Model       string  `json:"model"`
	Temperature float64 `json:"temperature"`
}

// ImageConfig holds configuration for crop preparation
type ImageConfig struct {
	MinSize     int `json:"min_size"`
	SendQuality int `json:"send_quality"`
}

// SceneConfig holds the default dimensions of the original frames. The
// defaults match the KITTI tracking sequences the crops come from.
type SceneConfig struct {
	Width  int `json:"img_w"`
	Height int `json:"img_h"`
}

// Default returns a configuration with default values
func Default() *Config {
	return &Config{
		Client: ClientConfig{
			Backend:     "ollama",
			URL:         "http://localhost:11434",
			Model:       "qwen2.5vl",
			Temperature: 0,
		},
		Image: ImageConfig{
			MinSize:     224,
			SendQuality: 85,
		},
		Scene: SceneConfig{
			Width:  1242,
			Height: 375,
		},
	}
}

// LoadFromFile loads configuration from a JSON file
func LoadFromFile(filename string) (*Config, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config Config
	if err := json.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	return &config, nil
}

// SaveToFile saves configuration to a JSON file
func (c *Config) SaveToFile(filename string) error {
	// Create directory if it doesn't exist
	dir := filepath.Dir(filename)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(filename, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Client.Backend != "ollama" && c.Client.Backend != "llamacpp" {
		return fmt.Errorf("client.backend must be ollama or llamacpp")
	}

	if c.Client.URL == "" {
		return fmt.Errorf("client.url cannot be empty")
	}

	if c.Client.Model == "" {
		return fmt.Errorf("client.model cannot be empty")
	}

	if c.Client.Temperature < 0 || c.Client.Temperature > 2 {
		return fmt.Errorf("client.temperature must be between 0 and 2")
	}

	if c.Image.MinSize < 0 {
		return fmt.Errorf("image.min_size cannot be negative")
	}

	if c.Image.SendQuality < 1 || c.Image.SendQuality > 100 {
		return fmt.Errorf("image.send_quality must be between 1 and 100")
	}

	if c.Scene.Width < 1 || c.Scene.Height < 1 {
		return fmt.Errorf("scene dimensions must be positive")
	}

	return nil
}

// GetConfigPath returns the default configuration file path
func GetConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "./config.json"
	}
	return filepath.Join(home, ".config", "crop-selector", "config.json")
}

package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// StudioConfig is loaded from studio.yaml.
type StudioConfig struct {
	Version int `yaml:"version"`
	Project struct {
		ID          string `yaml:"id"`
		Name        string `yaml:"name"`
		Description string `yaml:"description"`
		File        string `yaml:"file"`
	} `yaml:"project"`
	Network struct {
		APIPort   int    `yaml:"api_port"`
		MQTTURL   string `yaml:"mqtt_url"`
		MQTTTopic string `yaml:"mqtt_topic"`
	} `yaml:"network"`
	Storage struct {
		Postgres     bool `yaml:"postgres"`
		RestoreLimit int  `yaml:"restore_limit"`
	} `yaml:"storage"`
	Plugins struct {
		Disabled []string `yaml:"disabled"`
	} `yaml:"plugins"`
}

// APIPort returns the configured API port, defaulting to 8080 if not set.
func (c *StudioConfig) APIPort() int {
	if c.Network.APIPort == 0 {
		return 8080
	}
	return c.Network.APIPort
}

// MQTTURL returns the broker URL. MQTT_URL overrides the file.
func (c *StudioConfig) MQTTURL() string {
	if url := os.Getenv("MQTT_URL"); url != "" {
		return url
	}
	if c.Network.MQTTURL != "" {
		return c.Network.MQTTURL
	}
	return "tcp://localhost:1883"
}

// MQTTTopic returns the command topic filter.
func (c *StudioConfig) MQTTTopic() string {
	if c.Network.MQTTTopic == "" {
		return "gimelstudio/nodes/+/commands"
	}
	return c.Network.MQTTTopic
}

// ProjectID returns the project ID used to scope persisted events.
func (c *StudioConfig) ProjectID() string {
	if c.Project.ID == "" {
		return "default"
	}
	return c.Project.ID
}

// PluginEnabled reports whether the named node type is not disabled.
func (c *StudioConfig) PluginEnabled(name string) bool {
	for _, d := range c.Plugins.Disabled {
		if d == name {
			return false
		}
	}
	return true
}

func LoadStudioConfig(path string) (*StudioConfig, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg StudioConfig
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return nil, err
	}

	if cfg.Version != 1 {
		return nil, fmt.Errorf("unsupported studio.yaml version: %d", cfg.Version)
	}

	return &cfg, nil
}

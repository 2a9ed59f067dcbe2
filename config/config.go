// Package config loads declarative ring descriptions from YAML and
// materializes them into a registry. Zones and nodes are applied in
// declaration order; the placement law is creation-order dependent, so
// the file order is part of the contract.
package config

import (
	"fmt"
	"os"

	"github.com/goccy/go-yaml"

	"slotring/registry"
)

// Node describes one placement target inside a zone. An empty ID lets
// the registry generate one. Meta is stored with the node untouched.
type Node struct {
	ID     string            `yaml:"id"`
	Weight float64           `yaml:"weight"`
	Meta   map[string]string `yaml:"meta"`
}

// Zone is a named fault domain and the nodes it hosts.
type Zone struct {
	Name  string `yaml:"name"`
	Nodes []Node `yaml:"nodes"`
}

// Config holds the construction parameters and the initial layout of a
// placement ring.
type Config struct {
	RingPower int    `yaml:"ring_power"`
	Replicas  int    `yaml:"replicas"`
	Zones     []Zone `yaml:"zones"`
}

// Load reads and parses the YAML file at path.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("config: %w", err)
	}
	return Parse(data)
}

// Parse parses a YAML document into a validated Config.
func Parse(data []byte) (Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("config: parse: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks the parts of the config the registry cannot check
// better itself: parameter ranges and obviously broken declarations.
// Duplicate names, duplicate IDs and capacity limits are enforced by
// the registry when the config is applied.
func (c Config) Validate() error {
	if c.RingPower < 1 || c.RingPower > 32 {
		return fmt.Errorf("config: ring_power must be in [1, 32], got %d", c.RingPower)
	}
	if c.Replicas < 0 {
		return fmt.Errorf("config: replicas must be >= 0, got %d", c.Replicas)
	}
	for _, zone := range c.Zones {
		if zone.Name == "" {
			return fmt.Errorf("config: zone with empty name")
		}
		for i, node := range zone.Nodes {
			if node.Weight <= 0 {
				return fmt.Errorf("config: zone %q node %d: weight must be positive, got %v", zone.Name, i, node.Weight)
			}
		}
	}
	return nil
}

// NewRegistry constructs a registry from the construction parameters
// and applies every declared zone and node, in order.
func (c Config) NewRegistry() (*registry.Registry, error) {
	reg, err := registry.New(c.RingPower, c.Replicas)
	if err != nil {
		return nil, err
	}
	for _, zone := range c.Zones {
		if err := reg.AddZone(zone.Name); err != nil {
			return nil, err
		}
		for _, node := range zone.Nodes {
			if _, err := reg.AddNode(zone.Name, node.Weight, node.ID, node.Meta); err != nil {
				return nil, err
			}
		}
	}
	return reg, nil
}

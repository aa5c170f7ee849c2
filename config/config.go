// Package config loads graphd's YAML configuration file: node graph
// topology, per-endpoint ring/arena sizing, and the control socket the
// monitor and loopback tools attach to.
package config

import (
	"fmt"
	"os"

	"github.com/c2h5oh/datasize"
	"gopkg.in/yaml.v3"
)

// Config is graphd's top-level configuration structure.
type Config struct {
	// Core configures the scheduler and its control surface.
	Core CoreConfig `yaml:"core"`
	// Graph lists the nodes to instantiate and link at startup.
	Graph []NodeConfig `yaml:"graph"`
}

// CoreConfig contains settings for the scheduler process itself.
type CoreConfig struct {
	// ControlSocket is the path of the control channel's unix domain
	// socket, analogous to PIPEWIRE_REMOTE.
	ControlSocket string `yaml:"control_socket"`
	// RingSize is the configured Shared Region ring size; the source
	// default is 4096 bytes. The core does not read it: its endpoints are
	// built with a fixed 4096-byte ring.
	RingSize datasize.ByteSize `yaml:"ring_size"`
	// ArenaSize is the configured buffer-pool arena size. The core does not
	// read it: each node's arena is twice its buffer count times its buffer
	// size.
	ArenaSize datasize.ByteSize `yaml:"arena_size"`
}

// NodeConfig describes one node to instantiate from the registry.
type NodeConfig struct {
	// Name is the node instance's unique name within the graph.
	Name string `yaml:"name"`
	// Type selects the registered constructor (node.Registry.Lookup).
	Type string `yaml:"type"`
	// BufferCount is the number of pool buffers the node's endpoint gets.
	BufferCount int `yaml:"buffer_count"`
	// BufferSize is the size of each pool buffer.
	BufferSize datasize.ByteSize `yaml:"buffer_size"`
}

// LoadConfig reads and parses the YAML configuration file at path,
// starting from DefaultConfig so omitted fields keep their defaults.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}

	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}
	return cfg, nil
}

// DefaultConfig returns graphd's built-in defaults, matching §3's stated
// source default of a 4096-byte ring.
func DefaultConfig() *Config {
	return &Config{
		Core: CoreConfig{
			ControlSocket: "/run/graphd/control.sock",
			RingSize:      4096 * datasize.B,
			ArenaSize:     4 * datasize.MB,
		},
		Graph: []NodeConfig{},
	}
}

// NodeNames returns every node instance name the configuration declares,
// in declaration order.
func (c *Config) NodeNames() []string {
	names := make([]string, len(c.Graph))
	for i, n := range c.Graph {
		names[i] = n.Name
	}
	return names
}

// Package config loads and validates the server configuration.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

const (
	DefaultPort        = 8000
	DefaultPublicHost  = "localhost"
	DefaultScratchRoot = "./cloned_sites_temp"
	DefaultDeployRoot  = "./deployments"
	DefaultWebRoot     = "./web"

	// DefaultBuildTimeout is in seconds. Zero means no timeout: a
	// deploy request stays open for as long as its build runs.
	DefaultBuildTimeout = 0
)

// DefaultBaseHostnames are the hostnames treated as the control plane
// rather than as tenant subdomains.
var DefaultBaseHostnames = []string{"localhost", "127.0.0.1", "deployer.com"}

// DefaultBuildCommands is the conventional frontend build, run
// sequentially in the cloned tree.
var DefaultBuildCommands = []string{"npm install", "npm run build"}

// Config is the full server configuration.
type Config struct {
	// Host is the address the server binds to.
	Host string `yaml:"host"`

	// Port is the single listening port all sites are multiplexed on.
	Port int `yaml:"port"`

	// PublicHost is the hostname used when minting tenant URLs
	// (http://<slug>.<public_host>:<port>/).
	PublicHost string `yaml:"public_host"`

	// BaseHostnames are served the control-plane page instead of a
	// tenant site.
	BaseHostnames []string `yaml:"base_hostnames"`

	// ScratchRoot holds in-flight clones, one subdirectory per slug.
	ScratchRoot string `yaml:"scratch_root"`

	// DeploymentsRoot holds published sites, one subdirectory per slug.
	DeploymentsRoot string `yaml:"deployments_root"`

	// WebRoot holds the control-plane static assets.
	WebRoot string `yaml:"web_root"`

	// BuildCommands run sequentially in a fresh clone. Each entry is a
	// shell-quoted command string.
	BuildCommands []string `yaml:"build_commands"`

	// BuildTimeout is the per-command build timeout in seconds.
	// Zero disables the timeout.
	BuildTimeout int `yaml:"build_timeout"`
}

// Default returns the configuration used when no config file exists.
func Default() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}

// Load reads and validates a YAML configuration file. Unset fields
// take their defaults; directory paths are resolved to absolute.
func Load(configPath string) (*Config, error) {
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse YAML config: %w", err)
	}

	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Port == 0 {
		c.Port = DefaultPort
	}
	if c.PublicHost == "" {
		c.PublicHost = DefaultPublicHost
	}
	if len(c.BaseHostnames) == 0 {
		c.BaseHostnames = append([]string{}, DefaultBaseHostnames...)
	}
	if c.ScratchRoot == "" {
		c.ScratchRoot = DefaultScratchRoot
	}
	if c.DeploymentsRoot == "" {
		c.DeploymentsRoot = DefaultDeployRoot
	}
	if c.WebRoot == "" {
		c.WebRoot = DefaultWebRoot
	}
	if len(c.BuildCommands) == 0 {
		c.BuildCommands = append([]string{}, DefaultBuildCommands...)
	}
}

// Validate checks field values and resolves directory roots to
// absolute paths.
func (c *Config) Validate() error {
	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("invalid port: %d", c.Port)
	}
	if c.BuildTimeout < 0 {
		return fmt.Errorf("build_timeout cannot be negative: %d", c.BuildTimeout)
	}
	for i, cmd := range c.BuildCommands {
		if cmd == "" {
			return fmt.Errorf("build_commands[%d] is empty", i)
		}
	}

	var err error
	if c.ScratchRoot, err = filepath.Abs(c.ScratchRoot); err != nil {
		return fmt.Errorf("failed to resolve scratch_root: %w", err)
	}
	if c.DeploymentsRoot, err = filepath.Abs(c.DeploymentsRoot); err != nil {
		return fmt.Errorf("failed to resolve deployments_root: %w", err)
	}
	if c.WebRoot, err = filepath.Abs(c.WebRoot); err != nil {
		return fmt.Errorf("failed to resolve web_root: %w", err)
	}

	return nil
}

// EnsureDirs creates the scratch and deployments roots if missing.
func (c *Config) EnsureDirs() error {
	for _, dir := range []string{c.ScratchRoot, c.DeploymentsRoot} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}
	return nil
}

// SiteURL returns the public URL for a deployed slug.
func (c *Config) SiteURL(slug string) string {
	return fmt.Sprintf("http://%s.%s:%d/", slug, c.PublicHost, c.Port)
}

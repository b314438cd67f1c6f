package reaktor

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

var (
	// ErrEmptyDirectory is returned when no working directory is configured
	ErrEmptyDirectory = errors.New("directory cannot be empty")
	// ErrWeakSecret is returned when the admin API is enabled with a short secret key
	ErrWeakSecret = errors.New("secret key must be at least 32 characters")
)

// Config is the runtime configuration shared by every nukleus of a reaktor.
type Config struct {
	// Directory is the root under which each nukleus gets its own working directory
	Directory string `yaml:"directory"`

	// WatchInterval is how often the streams directory is polled
	WatchInterval time.Duration `yaml:"watchInterval"`

	// HealthAddress is the listen address of the gRPC health service. Empty disables it.
	HealthAddress string `yaml:"healthAddress"`

	// AdminAddress is the listen address of the administrative HTTP API. Empty disables it.
	AdminAddress string `yaml:"adminAddress"`

	// SecretKey signs admin API tokens
	SecretKey string `yaml:"secretKey"`

	// Admins lists the client ids allowed to add and remove routes
	Admins []string `yaml:"admins"`

	// Grants maps client ids to the authorization bitmask placed in their tokens
	Grants map[string]uint64 `yaml:"grants"`
}

// DefaultConfig returns a configuration with defaults applied.
func DefaultConfig() *Config {
	c := &Config{}
	c.SetDefaults()
	return c
}

// LoadConfig reads a YAML configuration file and applies REAKTOR_* environment
// overrides and defaults. An empty path loads only the environment.
func LoadConfig(path string) (*Config, error) {
	c := &Config{}
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, c); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}
	if err := c.ApplyEnv(); err != nil {
		return nil, err
	}
	c.SetDefaults()
	return c, nil
}

// ApplyEnv overrides fields from REAKTOR_* environment variables.
func (c *Config) ApplyEnv() error {
	if v := os.Getenv("REAKTOR_DIRECTORY"); v != "" {
		c.Directory = v
	}
	if v := os.Getenv("REAKTOR_WATCH_INTERVAL"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("REAKTOR_WATCH_INTERVAL: %w", err)
		}
		c.WatchInterval = d
	}
	if v, ok := os.LookupEnv("REAKTOR_HEALTH_ADDRESS"); ok {
		c.HealthAddress = v
	}
	if v, ok := os.LookupEnv("REAKTOR_ADMIN_ADDRESS"); ok {
		c.AdminAddress = v
	}
	if v := os.Getenv("REAKTOR_SECRET_KEY"); v != "" {
		c.SecretKey = v
	}
	if v := os.Getenv("REAKTOR_ADMINS"); v != "" {
		c.Admins = splitList(v)
	}
	if v := os.Getenv("REAKTOR_GRANTS"); v != "" {
		grants, err := parseGrants(v)
		if err != nil {
			return fmt.Errorf("REAKTOR_GRANTS: %w", err)
		}
		c.Grants = grants
	}
	return nil
}

// parseGrants parses "client=mask,client=mask". Masks accept 0x and 0b prefixes.
func parseGrants(s string) (map[string]uint64, error) {
	grants := make(map[string]uint64)
	for _, part := range splitList(s) {
		client, mask, ok := strings.Cut(part, "=")
		if !ok || client == "" {
			return nil, fmt.Errorf("invalid grant %q", part)
		}
		bits, err := strconv.ParseUint(mask, 0, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid grant %q: %w", part, err)
		}
		grants[client] = bits
	}
	return grants, nil
}

func splitList(s string) []string {
	var items []string
	for _, item := range strings.Split(s, ",") {
		if item = strings.TrimSpace(item); item != "" {
			items = append(items, item)
		}
	}
	return items
}

// SetDefaults sets default values for unset configuration fields
func (c *Config) SetDefaults() {
	if c.Directory == "" {
		c.Directory = filepath.Join(os.TempDir(), "reaktor")
	}
	if c.WatchInterval <= 0 {
		c.WatchInterval = time.Second
	}
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Directory == "" {
		return ErrEmptyDirectory
	}
	if c.AdminAddress != "" && len(c.SecretKey) < 32 {
		return ErrWeakSecret
	}
	return nil
}

// IsAdmin reports whether clientID may administer routes.
func (c *Config) IsAdmin(clientID string) bool {
	return slices.Contains(c.Admins, clientID)
}

// Authorization returns the authorization bitmask granted to clientID.
func (c *Config) Authorization(clientID string) uint64 {
	return c.Grants[clientID]
}

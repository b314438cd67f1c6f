package acceptor

import (
	"errors"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/rmacdonaldsmith/reaktor-go/internal/logging"
)

// Config holds configuration for the Acceptor component
type Config struct {
	// Name of the owning nukleus, attached to metrics and logs
	Name string
	// HealthAddress is the listen address of the gRPC health service.
	// Empty disables the listener; health status is still tracked.
	HealthAddress string
	Logger        *slog.Logger
	Registerer    prometheus.Registerer
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Name == "" {
		return errors.New("nukleus name cannot be empty")
	}
	return nil
}

// SetDefaults sets default values for unset configuration fields
func (c *Config) SetDefaults() {
	if c.Logger == nil {
		c.Logger = logging.Logger("acceptor")
	}
}

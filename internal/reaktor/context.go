package reaktor

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"gopkg.in/yaml.v3"

	"github.com/rmacdonaldsmith/reaktor-go/internal/logging"
)

const (
	controlFileName = "control.yaml"
	streamsDirName  = "streams"
)

// Control is the content of a nukleus control file.
type Control struct {
	Name       string    `yaml:"name"`
	InstanceID string    `yaml:"instanceId"`
	PID        int       `yaml:"pid"`
	StartedAt  time.Time `yaml:"startedAt"`
}

// Context holds the resources shared by the collaborators of one nukleus.
// It is closed last, after every collaborator.
type Context struct {
	name       string
	config     *Config
	instanceID uuid.UUID
	logger     *slog.Logger
	registry   *prometheus.Registry
	concluded  bool
}

// NewContext creates the context of the nukleus called name.
func NewContext(name string, config *Config) *Context {
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	instanceID := uuid.New()
	return &Context{
		name:       name,
		config:     config,
		instanceID: instanceID,
		logger:     logging.Logger("context").With("nukleus", name, "instance", instanceID.String()),
		registry:   registry,
	}
}

// Name returns the nukleus name.
func (c *Context) Name() string { return c.name }

// Config returns the reaktor configuration.
func (c *Context) Config() *Config { return c.config }

// InstanceID identifies this run of the nukleus.
func (c *Context) InstanceID() uuid.UUID { return c.instanceID }

// Registry is the metrics registry of the nukleus.
func (c *Context) Registry() *prometheus.Registry { return c.registry }

// Logger returns the logger of a collaborator subsystem.
func (c *Context) Logger(subsystem string) *slog.Logger {
	return logging.Logger(subsystem).With("nukleus", c.name)
}

// WorkingDirectory is the directory owned by this nukleus.
func (c *Context) WorkingDirectory() string {
	return filepath.Join(c.config.Directory, c.name)
}

// StreamsDirectory holds one entry per route source.
func (c *Context) StreamsDirectory() string {
	return filepath.Join(c.WorkingDirectory(), streamsDirName)
}

// ControlFile is the path of the control file written by Conclude.
func (c *Context) ControlFile() string {
	return filepath.Join(c.WorkingDirectory(), controlFileName)
}

// Conclude creates the working directories and writes the control file.
func (c *Context) Conclude() error {
	if err := os.MkdirAll(c.StreamsDirectory(), 0o755); err != nil {
		return fmt.Errorf("create working directory: %w", err)
	}

	data, err := yaml.Marshal(Control{
		Name:       c.name,
		InstanceID: c.instanceID.String(),
		PID:        os.Getpid(),
		StartedAt:  time.Now().UTC(),
	})
	if err != nil {
		return fmt.Errorf("encode control file: %w", err)
	}
	if err := os.WriteFile(c.ControlFile(), data, 0o644); err != nil {
		return fmt.Errorf("write control file: %w", err)
	}

	c.concluded = true
	c.logger.Info("context concluded", "directory", c.WorkingDirectory())
	return nil
}

// ReadControl reads the control file at path.
func ReadControl(path string) (*Control, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var control Control
	if err := yaml.Unmarshal(data, &control); err != nil {
		return nil, fmt.Errorf("parse control file %s: %w", path, err)
	}
	return &control, nil
}

// Close removes the control file. The streams directory is left in place.
func (c *Context) Close() error {
	if !c.concluded {
		return nil
	}
	c.concluded = false
	if err := os.Remove(c.ControlFile()); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("remove control file: %w", err)
	}
	c.logger.Info("context closed")
	return nil
}

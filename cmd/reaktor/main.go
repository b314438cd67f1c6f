package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/rmacdonaldsmith/reaktor-go/internal/httpapi"
	"github.com/rmacdonaldsmith/reaktor-go/internal/logging"
	"github.com/rmacdonaldsmith/reaktor-go/internal/reaktor"
	"github.com/rmacdonaldsmith/reaktor-go/pkg/route"
)

const (
	// Application info
	appName    = "reaktor"
	appVersion = "0.1.0"
)

type options struct {
	name        string
	configPath  string
	envFile     string
	directory   string
	adminAddr   string
	healthAddr  string
	noAuth      bool
	showVersion bool
}

func parseFlags(args []string) (*options, error) {
	opts := &options{}
	flags := flag.NewFlagSet(appName, flag.ContinueOnError)
	flags.StringVar(&opts.name, "name", defaultName(), "Nukleus name")
	flags.StringVar(&opts.configPath, "config", os.Getenv("REAKTOR_CONFIG"), "Path to YAML configuration")
	flags.StringVar(&opts.envFile, "env-file", ".env", "Environment file loaded before configuration")
	flags.StringVar(&opts.directory, "directory", "", "Working directory root (overrides config)")
	flags.StringVar(&opts.adminAddr, "admin", "", "Admin HTTP API listen address (overrides config)")
	flags.StringVar(&opts.healthAddr, "health", "", "gRPC health listen address (overrides config)")
	flags.BoolVar(&opts.noAuth, "no-auth", false, "Serve read-only admin endpoints without authentication (development only)")
	flags.BoolVar(&opts.showVersion, "version", false, "Show version and exit")
	if err := flags.Parse(args); err != nil {
		return nil, err
	}
	return opts, nil
}

// defaultName derives a nukleus name from the hostname
func defaultName() string {
	hostname, err := os.Hostname()
	if err != nil {
		return "reaktor"
	}
	return fmt.Sprintf("reaktor-%s", hostname)
}

func loadConfig(opts *options) (*reaktor.Config, error) {
	if err := godotenv.Load(opts.envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load %s: %w", opts.envFile, err)
	}

	config, err := reaktor.LoadConfig(opts.configPath)
	if err != nil {
		return nil, err
	}
	if opts.directory != "" {
		config.Directory = opts.directory
	}
	if opts.adminAddr != "" {
		config.AdminAddress = opts.adminAddr
	}
	if opts.healthAddr != "" {
		config.HealthAddress = opts.healthAddr
	}
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return config, nil
}

// build assembles a nukleus serving every route kind with loopback streams
func build(name string, config *reaktor.Config, logger *slog.Logger) (*reaktor.Nukleus, error) {
	builder := reaktor.NewBuilder(config, name)
	for _, kind := range route.Kinds {
		if err := builder.StreamFactory(kind, loopbackBuilder(kind, logger)); err != nil {
			return nil, err
		}
	}
	return builder.Build()
}

func main() {
	opts, err := parseFlags(os.Args[1:])
	if err != nil {
		os.Exit(2)
	}

	if opts.showVersion {
		fmt.Printf("%s v%s\n", appName, appVersion)
		return
	}

	if err := run(opts); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(opts *options) error {
	logger := logging.Logger("main")

	config, err := loadConfig(opts)
	if err != nil {
		return err
	}

	logger.Info("starting", "version", appVersion, "nukleus", opts.name, "directory", config.Directory)

	n, err := build(opts.name, config, logging.Logger("streams"))
	if err != nil {
		return fmt.Errorf("build nukleus: %w", err)
	}
	defer func() {
		if err := n.Close(); err != nil {
			logger.Error("close nukleus", "error", err)
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := n.Start(ctx); err != nil {
		return err
	}

	var server *httpapi.Server
	if config.AdminAddress != "" {
		server = httpapi.NewServer(n, httpapi.Config{
			Address:   config.AdminAddress,
			SecretKey: config.SecretKey,
			NoAuth:    opts.noAuth,
		})
		if err := server.Start(); err != nil {
			return fmt.Errorf("start admin API: %w", err)
		}
	}

	logger.Info("started", "nukleus", n.Name(), "instance", n.Context().InstanceID())
	<-ctx.Done()
	logger.Info("shutting down", "nukleus", n.Name())

	if server != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := server.Stop(shutdownCtx); err != nil {
			logger.Warn("admin API shutdown", "error", err)
		}
	}
	return nil
}

package main

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/rmacdonaldsmith/reaktor-go/pkg/httpclient"
)

var (
	// Global flags
	serverURL string
	clientID  string
	token     string
	timeout   time.Duration

	// Global client instance
	client *httpclient.Client
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "reaktor-cli",
		Short: "reaktor route administration",
		Long: `reaktor-cli administers the route table of a running nukleus through its
admin HTTP API. It lists, adds and removes routes and shows how a stream from a
given source would resolve.`,
		PersistentPreRunE: initializeClient,
		SilenceUsage:      true,
	}

	rootCmd.PersistentFlags().StringVar(&serverURL, "server", envOr("REAKTOR_SERVER", "http://localhost:8081"), "Admin API URL")
	rootCmd.PersistentFlags().StringVar(&clientID, "client-id", os.Getenv("REAKTOR_CLIENT_ID"), "Client ID for authentication")
	rootCmd.PersistentFlags().StringVar(&token, "token", os.Getenv("REAKTOR_TOKEN"), "JWT token (if already authenticated)")
	rootCmd.PersistentFlags().DurationVar(&timeout, "timeout", 30*time.Second, "Request timeout")

	rootCmd.AddCommand(newAuthCommand())
	rootCmd.AddCommand(newRoutesCommand())
	rootCmd.AddCommand(newResolveCommand())
	rootCmd.AddCommand(newSourcesCommand())
	rootCmd.AddCommand(newHealthCommand())

	return rootCmd
}

func envOr(name, fallback string) string {
	if v := os.Getenv(name); v != "" {
		return v
	}
	return fallback
}

// initializeClient sets up the HTTP client with global configuration
func initializeClient(cmd *cobra.Command, args []string) error {
	// Skip client initialization for help commands
	if cmd.Name() == "help" || cmd.Parent() == nil {
		return nil
	}

	effectiveClientID := clientID
	if effectiveClientID == "" {
		if cmd.Name() == "auth" {
			return fmt.Errorf("client-id is required")
		}
		effectiveClientID = "anonymous"
	}

	var err error
	client, err = httpclient.NewClient(httpclient.Config{
		ServerURL: serverURL,
		ClientID:  effectiveClientID,
		Timeout:   timeout,
	})
	if err != nil {
		return fmt.Errorf("failed to create client: %w", err)
	}

	if token != "" {
		client.SetToken(token)
	}
	return nil
}

// requireAuthentication logs in with --client-id unless a token was given
func requireAuthentication(cmd *cobra.Command) error {
	if client == nil {
		return fmt.Errorf("client not initialized")
	}
	if client.IsAuthenticated() {
		return nil
	}
	if clientID == "" {
		return fmt.Errorf("not authenticated - provide --token or --client-id")
	}

	ctx, cancel := commandContext(cmd)
	defer cancel()
	if _, err := client.Authenticate(ctx); err != nil {
		return err
	}
	return nil
}

func out(cmd *cobra.Command) io.Writer {
	return cmd.OutOrStdout()
}

package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newHealthCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Check nukleus health",
		Long:  "Check the health status of the nukleus behind the admin API",
		Args:  cobra.NoArgs,
		RunE:  runHealth,
	}
}

func runHealth(cmd *cobra.Command, args []string) error {
	ctx, cancel := commandContext(cmd)
	defer cancel()

	health, err := client.GetHealth(ctx)
	if err != nil {
		return fmt.Errorf("failed to check health: %w", err)
	}

	w := out(cmd)
	if health.Healthy {
		fmt.Fprintf(w, "Nukleus %s is healthy\n", health.Nukleus)
	} else {
		fmt.Fprintf(w, "Nukleus %s is not healthy\n", health.Nukleus)
	}
	fmt.Fprintf(w, "Instance: %s\n", health.InstanceID)
	fmt.Fprintf(w, "Routes: %d\n", health.Routes)
	fmt.Fprintf(w, "Sources: %v\n", health.Sources)
	if health.Message != "" {
		fmt.Fprintf(w, "Message: %s\n", health.Message)
	}
	return nil
}

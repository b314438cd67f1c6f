package main

import (
	"context"

	"github.com/spf13/cobra"
)

// commandContext bounds a command's requests by --timeout
func commandContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithTimeout(ctx, timeout)
}

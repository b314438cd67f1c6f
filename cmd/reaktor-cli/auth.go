package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newAuthCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "auth",
		Short: "Authenticate with the admin API",
		Long: `Authenticate with the admin API using your client ID.
This prints a JWT token that can be passed to later commands with --token.`,
		Args: cobra.NoArgs,
		RunE: runAuth,
	}
}

func runAuth(cmd *cobra.Command, args []string) error {
	ctx, cancel := commandContext(cmd)
	defer cancel()

	resp, err := client.Authenticate(ctx)
	if err != nil {
		return err
	}

	w := out(cmd)
	fmt.Fprintf(w, "Authenticated as %s (admin: %t, authorization: %#x)\n", resp.ClientID, resp.IsAdmin, resp.Authorization)
	fmt.Fprintf(w, "Token: %s\n", resp.Token)
	fmt.Fprintf(w, "Expires: %s\n", resp.ExpiresAt.Format("2006-01-02 15:04:05 MST"))
	fmt.Fprintf(w, "\n  export REAKTOR_TOKEN=%q\n", resp.Token)
	return nil
}

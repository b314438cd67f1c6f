package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rmacdonaldsmith/reaktor-go/pkg/httpclient"
)

func newResolveCommand() *cobra.Command {
	var (
		source    string
		sourceRef int64
	)
	cmd := &cobra.Command{
		Use:   "resolve",
		Short: "Show the route a stream from a source resolves to",
		Long: `Resolve a stream from --source and --source-ref against the route table
using the authorization carried by your token.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := requireAuthentication(cmd); err != nil {
				return err
			}
			ctx, cancel := commandContext(cmd)
			defer cancel()

			rt, err := client.Resolve(ctx, source, sourceRef)
			if err != nil {
				return err
			}
			printRoutes(out(cmd), []httpclient.Route{*rt})
			return nil
		},
	}
	cmd.Flags().StringVar(&source, "source", "", "Source nukleus name")
	cmd.Flags().Int64Var(&sourceRef, "source-ref", 0, "Source reference")
	_ = cmd.MarkFlagRequired("source")
	return cmd
}

func newSourcesCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "sources",
		Short: "List the sources found in the streams directory",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := requireAuthentication(cmd); err != nil {
				return err
			}
			ctx, cancel := commandContext(cmd)
			defer cancel()

			sources, err := client.ListSources(ctx)
			if err != nil {
				return err
			}
			if len(sources) == 0 {
				fmt.Fprintln(out(cmd), "No sources")
			}
			for _, source := range sources {
				fmt.Fprintln(out(cmd), source)
			}
			return nil
		},
	}
}

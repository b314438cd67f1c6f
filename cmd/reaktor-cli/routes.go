package main

import (
	"encoding/base64"
	"fmt"
	"io"
	"strconv"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/rmacdonaldsmith/reaktor-go/pkg/httpclient"
)

func newRoutesCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "routes",
		Short: "List, add and remove routes",
	}

	cmd.AddCommand(newRoutesListCommand())
	cmd.AddCommand(newRoutesAddCommand())
	cmd.AddCommand(newRoutesRemoveCommand())
	return cmd
}

func newRoutesListCommand() *cobra.Command {
	var source string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List routes in resolution order",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := requireAuthentication(cmd); err != nil {
				return err
			}
			ctx, cancel := commandContext(cmd)
			defer cancel()

			var resp *httpclient.RoutesResponse
			var err error
			if source != "" {
				resp, err = client.ListSourceRoutes(ctx, source)
			} else {
				resp, err = client.ListRoutes(ctx)
			}
			if err != nil {
				return err
			}

			printRoutes(out(cmd), resp.Routes)
			return nil
		},
	}
	cmd.Flags().StringVar(&source, "source", "", "Only list routes from this source")
	return cmd
}

// routeFlags binds the flags describing a route
type routeFlags struct {
	kind          string
	source        string
	sourceRef     int64
	target        string
	targetRef     int64
	authorization string
	extension     string
}

func (f *routeFlags) bind(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.kind, "kind", "server", "Route kind (server, client, proxy, server-reply, client-reply)")
	cmd.Flags().StringVar(&f.source, "source", "", "Source nukleus name")
	cmd.Flags().Int64Var(&f.sourceRef, "source-ref", 0, "Source reference")
	cmd.Flags().StringVar(&f.target, "target", "", "Target nukleus name")
	cmd.Flags().Int64Var(&f.targetRef, "target-ref", 0, "Target reference")
	cmd.Flags().StringVar(&f.authorization, "authorization", "0", "Required authorization bits (0x, 0b prefixes accepted)")
	cmd.Flags().StringVar(&f.extension, "extension", "", "Extension bytes, base64 encoded")
}

func (f *routeFlags) route() (httpclient.Route, error) {
	authorization, err := strconv.ParseUint(f.authorization, 0, 64)
	if err != nil {
		return httpclient.Route{}, fmt.Errorf("invalid --authorization: %w", err)
	}
	var extension []byte
	if f.extension != "" {
		if extension, err = base64.StdEncoding.DecodeString(f.extension); err != nil {
			return httpclient.Route{}, fmt.Errorf("invalid --extension: %w", err)
		}
	}
	return httpclient.Route{
		Kind:          f.kind,
		Source:        f.source,
		SourceRef:     f.sourceRef,
		Target:        f.target,
		TargetRef:     f.targetRef,
		Authorization: authorization,
		Extension:     extension,
	}, nil
}

func newRoutesAddCommand() *cobra.Command {
	var flags routeFlags
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Add a route (admin only)",
		Long: `Add a route to the route table. When --source-ref is zero the nukleus
assigns a source reference and prints it.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := flags.route()
			if err != nil {
				return err
			}
			if err := requireAuthentication(cmd); err != nil {
				return err
			}
			ctx, cancel := commandContext(cmd)
			defer cancel()

			resp, err := client.AddRoute(ctx, rt)
			if err != nil {
				return err
			}
			fmt.Fprintf(out(cmd), "Routed %s -> %s (sourceRef %d)\n", rt.Source, rt.Target, resp.SourceRef)
			return nil
		},
	}
	flags.bind(cmd)
	_ = cmd.MarkFlagRequired("source")
	_ = cmd.MarkFlagRequired("target")
	return cmd
}

func newRoutesRemoveCommand() *cobra.Command {
	var flags routeFlags
	cmd := &cobra.Command{
		Use:   "remove",
		Short: "Remove routes (admin only)",
		Long: `Remove every route whose references and authorization equal the given
ones. An omitted --source or --target matches any name.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := flags.route()
			if err != nil {
				return err
			}
			if err := requireAuthentication(cmd); err != nil {
				return err
			}
			ctx, cancel := commandContext(cmd)
			defer cancel()

			if _, err := client.RemoveRoutes(ctx, rt); err != nil {
				return err
			}
			fmt.Fprintln(out(cmd), "Unrouted")
			return nil
		},
	}
	flags.bind(cmd)
	return cmd
}

func printRoutes(w io.Writer, routes []httpclient.Route) {
	if len(routes) == 0 {
		fmt.Fprintln(w, "No routes")
		return
	}

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "KIND\tSOURCE\tSOURCE REF\tTARGET\tTARGET REF\tAUTHORIZATION")
	for _, rt := range routes {
		fmt.Fprintf(tw, "%s\t%s\t%d\t%s\t%d\t%#x\n", rt.Kind, rt.Source, rt.SourceRef, rt.Target, rt.TargetRef, rt.Authorization)
	}
	tw.Flush()
}

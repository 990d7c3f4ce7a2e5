// Package main provides the melodyinfo binary entry point.
// Melodyinfo loads a model and reports what is inside it: documents,
// elements per class, registered resources, and viewpoints.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"sort"
	"strings"
	"syscall"

	"github.com/samber/lo"
	"github.com/spf13/cobra"

	"github.com/melodymodel/melody"
)

const (
	Version = "0.1.0"
	appName = "melodyinfo"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		if melody.IsParseAbort(err) {
			os.Exit(2)
		}
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	var (
		manifestPath string
		logLevel     string
	)

	cmd := &cobra.Command{
		Use:   "melodyinfo <model.aird>",
		Short: "Inspect a model",
		Long: `Melodyinfo loads a model from its entrypoint and prints a summary of
its contents.

Without a metamodel manifest only untyped documents can be loaded; pass
--manifest to resolve typed elements against their classes.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			configureLogging(logLevel)
			loader, err := openModel(cmd.Context(), manifestPath, args[0])
			if err != nil {
				return err
			}
			return printSummary(cmd, loader)
		},
	}

	cmd.PersistentFlags().StringVarP(&manifestPath, "manifest", "m", "", "Metamodel manifest path (YAML)")
	cmd.PersistentFlags().StringVar(&logLevel, "log-level", "warn", "Log level (debug, info, warn, error)")

	cmd.AddCommand(elementCmd(&manifestPath, &logLevel))
	cmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "%s version %s\n", appName, Version)
		},
	})

	return cmd
}

func elementCmd(manifestPath, logLevel *string) *cobra.Command {
	return &cobra.Command{
		Use:   "element <model.aird> <id>",
		Short: "Show one element by id or link",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			configureLogging(*logLevel)
			loader, err := openModel(cmd.Context(), *manifestPath, args[0])
			if err != nil {
				return err
			}
			elem, err := loader.FollowLink(args[1])
			if err != nil {
				return err
			}
			return printElement(cmd, elem)
		},
	}
}

func configureLogging(logLevel string) {
	level := slog.LevelWarn
	switch strings.ToLower(logLevel) {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "error":
		level = slog.LevelError
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)
}

func openModel(ctx context.Context, manifestPath, modelPath string) (*melody.Loader, error) {
	opts := melody.NewLoadOptions().WithLogger(slog.Default())
	if manifestPath != "" {
		table, err := melody.LoadManifestFile(manifestPath)
		if err != nil {
			return nil, err
		}
		opts = opts.WithNamespaces(table)
	}
	return melody.OpenWithOptions(ctx, modelPath, opts)
}

func printSummary(cmd *cobra.Command, loader *melody.Loader) error {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Model:     %s\n", loader.Entrypoint())
	fmt.Fprintf(out, "Documents: %d\n", len(loader.Documents()))
	for _, doc := range loader.Documents() {
		fmt.Fprintf(out, "  %s (%d roots)\n", doc, len(loader.Roots(doc)))
	}
	fmt.Fprintf(out, "Elements:  %d\n", loader.NumElements())
	fmt.Fprintf(out, "Corrupt:   %v\n", loader.Corrupt())

	counts := make(map[string]int)
	for elem := range loader.All() {
		counts[elem.Class().String()]++
	}
	if len(counts) > 0 {
		fmt.Fprintln(out, "Classes:")
		names := lo.Keys(counts)
		sort.Strings(names)
		for _, name := range names {
			fmt.Fprintf(out, "  %-30s %d\n", name, counts[name])
		}
	}

	if resources := loader.Resources(); len(resources) > 0 {
		fmt.Fprintf(out, "Resources: %s\n", strings.Join(resources, ", "))
	}
	if viewpoints := loader.Namespaces().Viewpoints(); len(viewpoints) > 0 {
		fmt.Fprintln(out, "Viewpoints:")
		names := lo.Keys(viewpoints)
		sort.Strings(names)
		for _, name := range names {
			fmt.Fprintf(out, "  %-30s %s\n", name, viewpoints[name])
		}
	}
	return nil
}

func printElement(cmd *cobra.Command, elem *melody.TypedElement) error {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Id:       %s\n", elem.ID())
	fmt.Fprintf(out, "Class:    %s\n", elem.Class())
	attrs := elem.Attributes()
	if len(attrs) > 0 {
		fmt.Fprintln(out, "Attributes:")
		names := lo.Keys(attrs)
		sort.Strings(names)
		for _, name := range names {
			fmt.Fprintf(out, "  %-20s %s\n", name, attrs[name])
		}
	}
	fmt.Fprintf(out, "Children: %d\n", len(elem.Children()))
	fmt.Fprintf(out, "Refs:     %d\n", len(elem.Refs()))
	return nil
}

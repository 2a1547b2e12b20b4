package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/goliatone/go-csvdoc/internal/config"
	"github.com/goliatone/go-csvdoc/pkg/httpapi"
)

const shutdownTimeout = 10 * time.Second

// errViolations signals a failed check without printing a second message.
var errViolations = errors.New("rule violations found")

func newRootCmd() *cobra.Command {
	var flags globalFlags
	root := &cobra.Command{
		Use:           "csvdoc",
		Short:         "Edit annotation CSV documents with undo history and persisted schemas",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	pf := root.PersistentFlags()
	pf.StringVarP(&flags.configPath, "config", "c", "", "path to a YAML config file")
	pf.StringVar(&flags.document, "document", "", "document name in the store")
	pf.StringVar(&flags.storeDriver, "store", "", "store driver: memory, badger or sqlite")
	pf.StringVar(&flags.storePath, "store-path", "", "badger directory or sqlite file")
	pf.StringVar(&flags.logLevel, "log-level", "", "debug, info, warn or error")
	pf.StringVar(&flags.logFormat, "log-format", "", "text or json")

	// withApp opens the session, runs fn and closes it, flushing both
	// partitions.
	withApp := func(fn func(cmd *cobra.Command, args []string, a *app) error) func(*cobra.Command, []string) error {
		return func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			a, err := openApp(ctx, cmd, flags)
			if err != nil {
				return err
			}
			runErr := fn(cmd, args, a)
			closeCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			return errors.Join(runErr, a.Close(closeCtx))
		}
	}

	root.AddCommand(
		newServeCmd(withApp),
		newImportCmd(withApp),
		newExportCmd(withApp),
		newCheckCmd(withApp),
		newColumnsCmd(withApp),
		newOptionsCmd(withApp),
		newConfigCmd(&flags),
	)
	return root
}

type runner func(fn func(cmd *cobra.Command, args []string, a *app) error) func(*cobra.Command, []string) error

func newServeCmd(withApp runner) *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the document API",
		Args:  cobra.NoArgs,
		RunE: withApp(func(cmd *cobra.Command, _ []string, a *app) error {
			if addr == "" {
				addr = a.cfg.HTTP.Addr
			}
			handler := httpapi.New(a.engine,
				httpapi.WithLogger(a.logger.With("component", "http")),
				httpapi.WithMaxUploadBytes(a.cfg.HTTP.MaxUploadBytes),
			)
			srv := &http.Server{
				Addr:              addr,
				Handler:           handler.Router(),
				ReadHeaderTimeout: 10 * time.Second,
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			errCh := make(chan error, 1)
			go func() {
				a.logger.Info("listening", "addr", addr, "document", a.cfg.Document)
				errCh <- srv.ListenAndServe()
			}()

			select {
			case err := <-errCh:
				if errors.Is(err, http.ErrServerClosed) {
					return nil
				}
				return err
			case <-ctx.Done():
			}
			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			a.logger.Info("shutting down")
			return srv.Shutdown(shutdownCtx)
		}),
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (overrides http.addr)")
	return cmd
}

func newImportCmd(withApp runner) *cobra.Command {
	return &cobra.Command{
		Use:   "import FILE",
		Short: "Load a CSV file, merging its headers with the stored schema",
		Args:  cobra.ExactArgs(1),
		RunE: withApp(func(cmd *cobra.Command, args []string, a *app) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			if err := a.engine.LoadFile(string(data)); err != nil {
				return fmt.Errorf("import %s: %w", args[0], err)
			}
			snap := a.engine.Snapshot()
			fmt.Fprintf(cmd.OutOrStdout(), "imported %d rows, %d columns\n", len(snap.Rows), len(snap.Headers))
			return nil
		}),
	}
}

func newExportCmd(withApp runner) *cobra.Command {
	var out string
	var dir string
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write the document as CSV",
		Args:  cobra.NoArgs,
		RunE: withApp(func(cmd *cobra.Command, _ []string, a *app) error {
			text := a.engine.ExportText()
			if out == "" && dir == "" {
				fmt.Fprintln(cmd.OutOrStdout(), text)
				return nil
			}
			path := out
			if path == "" {
				path = filepath.Join(dir, a.engine.ExportFilename(time.Now()))
			}
			if err := os.WriteFile(path, []byte(text), 0o644); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), path)
			return nil
		}),
	}
	cmd.Flags().StringVarP(&out, "output", "o", "", "output file")
	cmd.Flags().StringVar(&dir, "dir", "", "write into this directory using the dated export name")
	return cmd
}

func newCheckCmd(withApp runner) *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Run the configured column rules",
		Args:  cobra.NoArgs,
		RunE: withApp(func(cmd *cobra.Command, _ []string, a *app) error {
			violations, err := a.engine.Check(cmd.Context())
			if err != nil {
				return err
			}
			for _, v := range violations {
				fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\t%s\t%s\n", v.RowID, v.Column, v.Rule, v.Message)
			}
			if len(violations) > 0 {
				return fmt.Errorf("%w: %d", errViolations, len(violations))
			}
			return nil
		}),
	}
}

func newColumnsCmd(withApp runner) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "columns",
		Short: "Add, remove or list columns",
	}

	var constrained bool
	var options []string
	add := &cobra.Command{
		Use:   "add NAME",
		Short: "Append a column",
		Args:  cobra.ExactArgs(1),
		RunE: withApp(func(cmd *cobra.Command, args []string, a *app) error {
			return a.engine.AddColumn(args[0], constrained, options)
		}),
	}
	add.Flags().BoolVar(&constrained, "constrained", false, "restrict the column to a set of options")
	add.Flags().StringSliceVar(&options, "option", nil, "initial option (repeatable)")

	remove := &cobra.Command{
		Use:   "remove NAME",
		Short: "Remove a column and its values",
		Args:  cobra.ExactArgs(1),
		RunE: withApp(func(_ *cobra.Command, args []string, a *app) error {
			return a.engine.RemoveColumn(args[0])
		}),
	}

	list := &cobra.Command{
		Use:   "list",
		Short: "List columns with their options",
		Args:  cobra.NoArgs,
		RunE: withApp(func(cmd *cobra.Command, _ []string, a *app) error {
			snap := a.engine.Snapshot()
			widths := a.engine.Widths()
			for _, name := range snap.Headers {
				column := snap.Schema[name]
				kind := "text"
				if column.Constrained {
					kind = "options"
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\t%d\t%s\n", name, kind, widths[name], strings.Join(column.Options(), "|"))
			}
			return nil
		}),
	}

	cmd.AddCommand(add, remove, list)
	return cmd
}

func newOptionsCmd(withApp runner) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "options",
		Short: "Manage the options of a constrained column",
	}
	set := &cobra.Command{
		Use:   "set COLUMN OPTION...",
		Short: "Replace a column's options",
		Args:  cobra.MinimumNArgs(2),
		RunE: withApp(func(_ *cobra.Command, args []string, a *app) error {
			return a.engine.ReplaceColumnOptions(args[0], args[1:])
		}),
	}
	cmd.AddCommand(set)
	return cmd
}

// newConfigCmd prints the effective configuration without opening the store.
func newConfigCmd(flags *globalFlags) *cobra.Command {
	var trace bool
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Print the effective configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			layers, err := config.LoadLayers(flags.configPath, flags.overrides())
			if err != nil {
				return err
			}
			cfg := config.Merge(layers)
			if err := cfg.Validate(); err != nil {
				return err
			}
			if trace {
				for _, entry := range config.Trace(layers) {
					fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\t%v\n", entry.Path, entry.Layer, entry.Value)
				}
				return nil
			}
			enc := yaml.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent(2)
			if err := enc.Encode(cfg); err != nil {
				return err
			}
			return enc.Close()
		},
	}
	cmd.Flags().BoolVar(&trace, "trace", false, "show which layer supplied each setting")
	return cmd
}

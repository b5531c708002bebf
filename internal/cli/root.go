// Package cli implements the geobuild command-line interface.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/JonMunkholm/geobuild/internal/config"
	"github.com/JonMunkholm/geobuild/internal/core"
	_ "github.com/JonMunkholm/geobuild/internal/core/objects" // Register all object types
	"github.com/JonMunkholm/geobuild/internal/logging"
	"github.com/JonMunkholm/geobuild/internal/service"
	"github.com/JonMunkholm/geobuild/internal/store"
	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

// errRejected is returned when a build ran but failed validation. The
// report has already been printed, so Execute only sets the exit code.
var errRejected = errors.New("build rejected")

// globalFlags override configuration for a single invocation.
type globalFlags struct {
	dataDir  string
	backend  string
	logLevel string
}

// cmdContext holds common resources for CLI commands.
type cmdContext struct {
	Config  *config.Config
	Store   store.Store
	Service *service.Service
}

// Close releases resources held by cmdContext.
func (c *cmdContext) Close() {
	if c.Store != nil {
		c.Store.Close()
	}
}

// initContext loads configuration from the environment and applies the
// command-line overrides.
func initContext(g *globalFlags) (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if g.dataDir != "" {
		cfg.Build.DataDir = g.dataDir
	}
	if g.backend != "" {
		cfg.Store.Backend = g.backend
	}
	if g.logLevel != "" {
		cfg.Logging.Level = g.logLevel
	}
	slog.SetDefault(logging.New(os.Stderr, cfg.Logging.Level, cfg.Logging.Format))
	return cfg, nil
}

// initServiceContext also opens the store. withStore false skips it, which
// is what dry runs and previews want.
func initServiceContext(ctx context.Context, g *globalFlags, withStore bool) (*cmdContext, error) {
	cfg, err := initContext(g)
	if err != nil {
		return nil, err
	}

	c := &cmdContext{Config: cfg}
	if withStore {
		st, err := store.Open(ctx, cfg)
		if err != nil {
			return nil, fmt.Errorf("failed to open store: %w", err)
		}
		c.Store = st
	}
	c.Service = service.New(cfg.Build, c.Store)
	return c, nil
}

// NewRootCmd assembles the command tree.
func NewRootCmd() *cobra.Command {
	g := &globalFlags{}

	root := &cobra.Command{
		Use:   "geobuild",
		Short: "Build geoscience objects from CSV tables",
		Long: `geobuild turns CSV (or XLSX) tables into validated geoscience objects:
pointsets, line segments, downhole collections and downhole intervals.
Each build loads the tables, applies a column mapping, validates the
structure and, unless it is a dry run, stores the finished object.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().StringVar(&g.dataDir, "data-dir", "", "Directory relative file paths resolve under (overrides BUILD_DATA_DIR)")
	root.PersistentFlags().StringVar(&g.backend, "store", "", "Store backend: postgres, sqlite or none (overrides STORE_BACKEND)")
	root.PersistentFlags().StringVar(&g.logLevel, "log-level", "", "Log level: debug, info, warn or error")

	root.AddCommand(newBuildCmd(g))
	root.AddCommand(newPreviewCmd(g))
	root.AddCommand(newTypesCmd())
	root.AddCommand(newServeCmd(g))
	return root
}

// Execute runs the root command and returns the process exit code.
func Execute() int {
	root := NewRootCmd()
	err := root.Execute()
	switch {
	case err == nil:
		return 0
	case errors.Is(err, errRejected):
		return 2
	default:
		printError(root.ErrOrStderr(), err)
		return 1
	}
}

// printError prints err with its support code and suggested action.
func printError(w io.Writer, err error) {
	msg := core.MapError(err)
	red := color.New(color.FgRed, color.Bold)
	red.Fprintf(w, "error: ")
	fmt.Fprintf(w, "%s [%s]\n", msg.Message, msg.Code)
	if msg.Action != "" {
		fmt.Fprintf(w, "  %s\n", msg.Action)
	}
	fmt.Fprintf(w, "  detail: %v\n", err)
}

// shortID returns first 8 characters of an ID.
func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

// Package cli implements the poa command-line interface.
package cli

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/matzehuels/poa/pkg/buildinfo"
	"github.com/matzehuels/poa/pkg/cache"
	"github.com/matzehuels/poa/pkg/pipeline"
	"github.com/matzehuels/poa/pkg/store"
)

// =============================================================================
// Constants
// =============================================================================

const (
	// appName is the application name used for directories and display.
	appName = "poa"

	// redisPrefix scopes keys in a shared Redis database.
	redisPrefix = "poa:"
)

// Log levels exported for use in main.go.
const (
	LogDebug = log.DebugLevel
	LogInfo  = log.InfoLevel
)

// =============================================================================
// CLI - Central CLI State
// =============================================================================

// CLI holds shared state for all commands.
type CLI struct {
	Logger *log.Logger
	Out    io.Writer
}

// New creates a new CLI instance with a default logger.
func New(w io.Writer, level log.Level) *CLI {
	return &CLI{
		Logger: newLogger(w, level),
		Out:    os.Stdout,
	}
}

// SetLogLevel updates the logger's level.
func (c *CLI) SetLogLevel(level log.Level) {
	c.Logger.SetLevel(level)
}

// RootCommand creates the root cobra command with all subcommands registered.
func (c *CLI) RootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:   appName,
		Short: "poa builds multiple sequence alignments as partial-order graphs",
		Long: `poa aligns protein or nucleotide sequences into a partial-order alignment
graph, extracts consensus sequences with the heaviest-bundle algorithm, and
writes the result as PO, CLUSTAL, FASTA-PIR, JSON, DOT or SVG.`,
		Version:      buildinfo.Version,
		SilenceUsage: true,
	}

	root.SetVersionTemplate(buildinfo.Template())

	// Register all subcommands
	root.AddCommand(c.alignCommand())
	root.AddCommand(c.matrixCommand())
	root.AddCommand(c.bundlesCommand())
	root.AddCommand(c.renderCommand())
	root.AddCommand(c.serveCommand())
	root.AddCommand(c.cacheCommand())
	root.AddCommand(c.completionCommand())

	return root
}

// =============================================================================
// Runner Factory
// =============================================================================

// backendOpts selects the cache and store backends of a runner.
type backendOpts struct {
	noCache   bool
	redisAddr string
	storeDir  string
	mongoURI  string
}

func (o *backendOpts) register(cmd *cobra.Command) {
	cmd.Flags().BoolVar(&o.noCache, "no-cache", false, "disable the result cache")
	cmd.Flags().StringVar(&o.redisAddr, "redis", os.Getenv("POA_REDIS_ADDR"), "Redis address (host:port) for a shared cache instead of the local file cache")
	cmd.Flags().StringVar(&o.storeDir, "store", "", "directory to keep finished alignments in")
	cmd.Flags().StringVar(&o.mongoURI, "mongo", os.Getenv("POA_MONGO_URI"), "MongoDB URI to keep finished alignments in")
}

// newRunner creates a pipeline runner for CLI use. keyer may be nil.
func (c *CLI) newRunner(ctx context.Context, o backendOpts, keyer cache.Keyer) (*pipeline.Runner, error) {
	cc, err := c.newCache(ctx, o)
	if err != nil {
		return nil, err
	}
	r := pipeline.NewRunner(cc, keyer, c.Logger)
	if r.Store, err = openStore(ctx, o); err != nil {
		cc.Close()
		return nil, err
	}
	return r, nil
}

// openStore returns the configured record store, or nil when none is.
func openStore(ctx context.Context, o backendOpts) (store.Store, error) {
	switch {
	case o.mongoURI != "":
		s, err := store.NewMongoStore(ctx, store.MongoConfig{URI: o.mongoURI})
		if err != nil {
			return nil, err
		}
		return s, nil
	case o.storeDir != "":
		s, err := store.NewFileStore(o.storeDir)
		if err != nil {
			return nil, err
		}
		return s, nil
	}
	return nil, nil
}

func (c *CLI) newCache(ctx context.Context, o backendOpts) (cache.Cache, error) {
	if o.noCache {
		return cache.NewNullCache(), nil
	}
	if o.redisAddr != "" {
		rc, err := cache.NewRedisCache(ctx, cache.RedisConfig{Addr: o.redisAddr, Prefix: redisPrefix})
		if err != nil {
			return nil, err
		}
		return rc, nil
	}
	dir, err := cacheDir()
	if err != nil {
		c.Logger.Debug("no cache directory, caching disabled", "err", err)
		return cache.NewNullCache(), nil
	}
	fc, err := cache.NewFileCache(dir)
	if err != nil {
		return nil, err
	}
	return fc, nil
}

// =============================================================================
// Paths
// =============================================================================

// cacheDir returns the cache directory using XDG standard (~/.cache/poa/).
func cacheDir() (string, error) {
	if cacheHome := os.Getenv("XDG_CACHE_HOME"); cacheHome != "" {
		return filepath.Join(cacheHome, appName), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".cache", appName), nil
}

// =============================================================================
// Options Helpers
// =============================================================================

// parseFormats parses a comma-separated format string into a slice.
func parseFormats(s string) []string {
	if s == "" {
		return []string{pipeline.FormatClustal}
	}
	var out []string
	for _, f := range strings.Split(s, ",") {
		if f = strings.TrimSpace(f); f != "" {
			out = append(out, f)
		}
	}
	return out
}

// outputPath returns where an artifact is written: output itself for a
// single format, otherwise output's base name with the format as
// extension. An empty output means stdout.
func outputPath(output, format string, multiple bool) string {
	if output == "" || !multiple {
		return output
	}
	ext := filepath.Ext(output)
	if ext == ".zst" {
		base := strings.TrimSuffix(output, ext)
		return strings.TrimSuffix(base, filepath.Ext(base)) + "." + format + ext
	}
	return strings.TrimSuffix(output, ext) + "." + format
}

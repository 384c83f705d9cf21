package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/matzehuels/poa/pkg/cache"
)

// cacheCommand creates the cache management command.
func (c *CLI) cacheCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Manage cached alignments and stored records",
	}

	cmd.AddCommand(c.cacheClearCommand())
	cmd.AddCommand(c.cachePathCommand())
	cmd.AddCommand(c.cachePruneCommand())

	return cmd
}

// cacheClearCommand creates the "cache clear" subcommand.
func (c *CLI) cacheClearCommand() *cobra.Command {
	var redisAddr string
	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Clear all cached alignments and pair scores",
		RunE: func(cmd *cobra.Command, args []string) error {
			p := printer{w: os.Stderr}

			if redisAddr != "" {
				rc, err := cache.NewRedisCache(cmd.Context(), cache.RedisConfig{Addr: redisAddr, Prefix: redisPrefix})
				if err != nil {
					return err
				}
				defer rc.Close()
				n, err := rc.Clear(cmd.Context())
				if err != nil {
					return err
				}
				p.success("Cleared %d cached entries", n)
				p.detail("Redis: %s", redisAddr)
				return nil
			}

			dir, err := cacheDir()
			if err != nil {
				return fmt.Errorf("get cache dir: %w", err)
			}
			if _, err := os.Stat(dir); os.IsNotExist(err) {
				p.info("Cache is empty")
				return nil
			}
			fc, err := cache.NewFileCache(dir)
			if err != nil {
				return err
			}
			n, err := fc.Clear()
			if err != nil {
				return err
			}
			p.success("Cleared %d cached entries", n)
			p.detail("Directory: %s", dir)
			return nil
		},
	}
	cmd.Flags().StringVar(&redisAddr, "redis", os.Getenv("POA_REDIS_ADDR"), "clear this Redis cache instead of the local one")
	return cmd
}

// cachePathCommand creates the "cache path" subcommand.
func (c *CLI) cachePathCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "path",
		Short: "Print the cache directory path",
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, err := cacheDir()
			if err != nil {
				return fmt.Errorf("get cache dir: %w", err)
			}
			fmt.Fprintln(c.Out, dir)
			return nil
		},
	}
}

// cachePruneCommand creates the "cache prune" subcommand, which removes
// expired records from an alignment store.
func (c *CLI) cachePruneCommand() *cobra.Command {
	var o backendOpts
	cmd := &cobra.Command{
		Use:   "prune",
		Short: "Remove expired alignments from a record store",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openStore(cmd.Context(), o)
			if err != nil {
				return err
			}
			if s == nil {
				return fmt.Errorf("no store given: use --store or --mongo")
			}
			defer s.Close(cmd.Context())
			n, err := s.Cleanup(cmd.Context())
			if err != nil {
				return err
			}
			printer{w: os.Stderr}.success("Removed %d expired records", n)
			return nil
		},
	}
	cmd.Flags().StringVar(&o.storeDir, "store", "", "record store directory")
	cmd.Flags().StringVar(&o.mongoURI, "mongo", os.Getenv("POA_MONGO_URI"), "MongoDB URI of the record store")
	return cmd
}

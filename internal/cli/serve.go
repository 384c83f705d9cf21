package cli

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"

	"github.com/matzehuels/poa/internal/server"
	"github.com/matzehuels/poa/internal/telemetry"
	"github.com/matzehuels/poa/pkg/cache"
	"github.com/matzehuels/poa/pkg/store"
)

// serveCommand creates the serve command, which runs the HTTP API.
func (c *CLI) serveCommand() *cobra.Command {
	var (
		cfg     server.Config
		backend backendOpts
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the alignment HTTP API",
		Long: `Serve the alignment HTTP API.

Jobs are posted as JSON to /v1/align. Finished alignments are kept in the
record store (--store, --mongo, or in memory) and can be fetched from
/v1/alignments/{id} in any output format. Prometheus metrics are served
on /metrics.`,
		Example: `  poa serve --addr :8080 --redis localhost:6379 --mongo mongodb://localhost:27017`,
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			keyer := cache.NewScopedKeyer(cache.NewDefaultKeyer(), "api:")
			runner, err := c.newRunner(ctx, backend, keyer)
			if err != nil {
				return err
			}
			defer runner.Close()
			if runner.Store == nil {
				runner.Store = store.NewMemoryStore()
			}

			reg := prometheus.NewRegistry()
			reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
			telemetry.Register(reg)

			return server.New(cfg, runner, reg, c.Logger).Run(ctx)
		},
	}

	cmd.Flags().StringVar(&cfg.Addr, "addr", server.DefaultAddr, "listen address")
	cmd.Flags().DurationVar(&cfg.Timeout, "timeout", server.DefaultTimeout, "time limit per alignment job")
	cmd.Flags().Int64Var(&cfg.MaxBodyBytes, "max-body", server.DefaultMaxBodyBytes, "request body limit in bytes")
	cmd.Flags().Int64Var(&cfg.MaxAlloc, "max-alloc", server.DefaultMaxAlloc, "largest DP allocation a job may use")
	backend.register(cmd)
	return cmd
}

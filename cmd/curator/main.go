// Package main provides the curator binary: PDG partitioning and
// near-duplicate-aware corpus selection.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/pdg-curator/pkg/config"
	"github.com/pdg-curator/pkg/logger"
	"github.com/pdg-curator/pkg/logger/console"
	"github.com/pdg-curator/pkg/metrics"
	"github.com/pdg-curator/pkg/pipeline"
)

const (
	Version = "0.1.0"
	appName = "curator"
)

type globalFlags struct {
	configPath string
	envFile    string
	debug      bool
	metricsOut string
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		stop()
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	g := &globalFlags{}

	cmd := &cobra.Command{
		Use:           appName,
		Short:         "Partition program dependence graphs and select diverse source corpora",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringVarP(&g.configPath, "config", "c", "", "Config file path (YAML); defaults to CURATOR_* environment variables")
	cmd.PersistentFlags().StringVar(&g.envFile, "env-file", ".env", "Environment file loaded before reading CURATOR_* variables")
	cmd.PersistentFlags().BoolVar(&g.debug, "debug", false, "Enable debug logging")
	cmd.PersistentFlags().StringVar(&g.metricsOut, "metrics-out", "", "Write run metrics in Prometheus text format to this file")

	cmd.AddCommand(partitionCmd(g), selectCmd(g))
	cmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "%s version %s\n", appName, Version)
		},
	})
	return cmd
}

func partitionCmd(g *globalFlags) *cobra.Command {
	var (
		out       string
		threshold int
		maxDepth  int
		seed      uint64
	)

	cmd := &cobra.Command{
		Use:   "partition <pdg.json>",
		Short: "Recursively split a PDG into parts within an AST-size budget",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := setup(g)
			if err != nil {
				return err
			}
			flags := cmd.Flags()
			if flags.Changed("threshold") {
				cfg.Partition.SizeThreshold = threshold
			}
			if flags.Changed("max-depth") {
				cfg.Partition.MaxDepth = maxDepth
			}
			if flags.Changed("seed") {
				cfg.Partition.Seed = seed
			}
			if err := cfg.Validate(); err != nil {
				return err
			}

			m := metrics.New()
			if _, err := pipeline.RunPartition(cmd.Context(), cfg, args[0], out, m); err != nil {
				return err
			}
			return writeMetrics(g, m)
		},
	}

	cmd.Flags().StringVarP(&out, "output", "o", "parts.json", "Output file for the parts JSON")
	cmd.Flags().IntVar(&threshold, "threshold", 0, "Maximum total ast_size of a part")
	cmd.Flags().IntVar(&maxDepth, "max-depth", 0, "Maximum recursion depth")
	cmd.Flags().Uint64Var(&seed, "seed", 0, "Community detection seed")
	return cmd
}

func selectCmd(g *globalFlags) *cobra.Command {
	var (
		out        string
		scoresOut  string
		k          int
		workers    int
		blockSize  int
		extensions []string
	)

	cmd := &cobra.Command{
		Use:   "select <src_dir>",
		Short: "Select the K least redundant files of a source corpus",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := setup(g)
			if err != nil {
				return err
			}
			flags := cmd.Flags()
			if flags.Changed("top-k") {
				cfg.Selection.K = k
			}
			if flags.Changed("workers") {
				cfg.Selection.Workers = workers
			}
			if flags.Changed("block-size") {
				cfg.Selection.BlockSize = blockSize
			}
			if flags.Changed("ext") {
				cfg.Selection.Extensions = extensions
			}
			if err := cfg.Validate(); err != nil {
				return err
			}

			m := metrics.New()
			if _, err := pipeline.RunSelect(cmd.Context(), cfg, args[0], out, scoresOut, m); err != nil {
				return err
			}
			return writeMetrics(g, m)
		},
	}

	cmd.Flags().StringVarP(&out, "output", "o", "selected.txt", "Output file for the selected paths")
	cmd.Flags().StringVar(&scoresOut, "scores-out", "", "Optional CSV report of every file's redundancy score")
	cmd.Flags().IntVarP(&k, "top-k", "k", 0, "Number of files to select")
	cmd.Flags().IntVar(&workers, "workers", 0, "Worker pool size")
	cmd.Flags().IntVar(&blockSize, "block-size", 0, "Items per scoring block")
	cmd.Flags().StringSliceVar(&extensions, "ext", nil, "File extensions to include (e.g. .js,.mjs)")
	return cmd
}

// setup loads configuration and initializes logging. A config file takes
// precedence over the environment.
func setup(g *globalFlags) (*config.Config, error) {
	var cfg *config.Config
	if g.configPath != "" {
		loaded, err := config.LoadConfig(g.configPath)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	} else {
		if err := config.LoadEnv(g.envFile); err != nil {
			return nil, err
		}
		cfg = config.LoadConfigFromEnv()
	}
	if g.debug {
		cfg.Logging.Debug = true
	}

	logger.Init(console.NewConsoleLogger(console.ConsoleLoggerParams{Debug: cfg.Logging.Debug}))
	return cfg, nil
}

func writeMetrics(g *globalFlags, m *metrics.Metrics) error {
	if g.metricsOut == "" {
		return nil
	}
	if err := m.WriteTextfile(g.metricsOut); err != nil {
		return fmt.Errorf("failed to write metrics: %w", err)
	}
	return nil
}

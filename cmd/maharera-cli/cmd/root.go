package cmd

import (
	"fmt"
	"os"

	"maharera-api/internal/agents"
	"maharera-api/internal/config"
	"maharera-api/internal/maharera"
	"maharera-api/internal/telemetry"
	"maharera-api/lib/serviceutil"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

var (
	configPath string
	verbose    bool
)

var (
	registry   maharera.Registry
	aggregator agents.Aggregator
)

var rootCmd = &cobra.Command{
	Use:   "maharera-cli",
	Short: "maharera-cli queries the MahaRERA agent registry from the terminal.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		telemetry.InitSlog(verbose)

		cfg, err := config.Load(configPath)
		if err != nil {
			return fmt.Errorf("read config: %w", err)
		}

		tel := telemetry.SlogAPI{}
		opts, err := cfg.RegistryOptions(tel)
		if err != nil {
			return err
		}
		registry, err = maharera.NewRegistry(opts)
		if err != nil {
			return fmt.Errorf("init registry: %w", err)
		}
		aggregator = agents.NewAggregator(registry, cfg.AggregatorOptions(tel)...)
		return nil
	},
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "config.json5", "Path to the config file.")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging.")
}

func Execute() {
	if err := rootCmd.ExecuteContext(serviceutil.SignalContext()); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newTable() table.Writer {
	t := table.NewWriter()
	t.SetStyle(table.StyleRounded)
	t.SetOutputMirror(os.Stdout)
	return t
}

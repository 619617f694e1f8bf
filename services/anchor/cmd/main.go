package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/redbco/redb-docstore/pkg/anchor/adapter"
	"github.com/redbco/redb-docstore/pkg/config"
	"github.com/redbco/redb-docstore/pkg/logger"
	"github.com/redbco/redb-docstore/services/anchor/internal/database/mongodb"
	"github.com/redbco/redb-docstore/services/anchor/internal/engine"
)

var serviceVersion = "1.0.0"

var (
	configPath  string
	metricsAddr string
	logLevel    string
)

var rootCmd = &cobra.Command{
	Use:           "anchor",
	Short:         "Document database connection service",
	Long:          `Registers the MongoDB adapters, loads the configured connections and keeps them connected until stopped.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		if metricsAddr != "" {
			cfg.Anchor.MetricsAddr = metricsAddr
		}
		if logLevel != "" {
			cfg.Logging.Level = logLevel
		}

		log := logger.New("anchor", serviceVersion)
		if err := log.SetLevel(cfg.Logging.Level); err != nil {
			return err
		}
		defer log.Sync()

		e, err := engine.NewEngine(cfg)
		if err != nil {
			return err
		}
		e.SetLogger(log)

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		return e.Run(ctx)
	},
}

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate the configuration file",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		if err := cfg.Validate(mongodb.DriverNames()); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "configuration is valid")
		return nil
	},
}

var adaptersCmd = &cobra.Command{
	Use:   "adapters",
	Short: "List the available adapters",
	Run: func(cmd *cobra.Command, args []string) {
		for _, name := range mongodb.DriverNames() {
			fmt.Fprintln(cmd.OutOrStdout(), name)
		}
	},
}

var uriCmd = &cobra.Command{
	Use:   "uri <adapter>",
	Short: "Print the connection URI and cache key of a load entry",
	Long:  `Merges the common config with the flags and prints the derived URI, credentials masked, and registry key.`,
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		flags := cmd.Flags()
		var override adapter.Config
		override.DB, _ = flags.GetString("db")
		override.URL, _ = flags.GetString("url")
		override.Instance, _ = flags.GetString("instance")
		override.ConnectionName, _ = flags.GetString("connection-name")

		merged := adapter.Merge(cfg.Common, &override)
		uri, err := adapter.BuildURI(args[0], merged)
		if err != nil {
			return err
		}

		fmt.Fprintf(cmd.OutOrStdout(), "uri: %s\nkey: %s\n", adapter.HideCredentials(uri), adapter.Key(args[0], merged))
		return nil
	},
}

func loadConfig() (*config.Config, error) {
	if configPath == "" {
		return config.Default(), nil
	}
	return config.Load(configPath)
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to the YAML configuration file")
	rootCmd.Flags().StringVar(&metricsAddr, "metrics-addr", "", "Address of the metrics and health endpoint (overrides anchor.metrics_addr)")
	rootCmd.Flags().StringVar(&logLevel, "log-level", "", "Log level: debug, info, warn or error (overrides logging.level)")

	uriCmd.Flags().String("db", "", "Database name")
	uriCmd.Flags().String("url", "", "Connection URL")
	uriCmd.Flags().String("instance", "", "Instance selector")
	uriCmd.Flags().String("connection-name", "", "Explicit connection name")

	rootCmd.AddCommand(validateCmd, adaptersCmd, uriCmd)
}

func main() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

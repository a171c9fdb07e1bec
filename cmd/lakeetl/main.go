package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/vsianalytics/lakeetl/internal/version"
)

var (
	cfgFile string
	rootCmd = &cobra.Command{
		Use:   "lakeetl",
		Short: "NetSuite data lake ETL pipeline",
		Long: `lakeetl moves NetSuite exports through the data lake tiers:
landed JSON objects are consolidated into raw Parquet tables, repaired
into typed tables, cleaned, augmented with derived columns, and finally
curated for reporting.

Each stage reads the previous tier and writes the next, so stages can
be run independently or in sequence.`,
		PersistentPreRunE: initConfig,
	}
)

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: ./lakeetl.yaml)")
	rootCmd.PersistentFlags().String("lake-root", "", "root directory of the data lake")
	rootCmd.PersistentFlags().String("config-dir", "configs", "directory holding the JSON configuration documents")
	rootCmd.PersistentFlags().Int("workers", 0, "worker goroutines for batched reads (0 = default)")
	rootCmd.PersistentFlags().String("log-level", "info", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().String("log-format", "console", "log format (console, json)")
	rootCmd.PersistentFlags().String("start-date", "", "inclusive lower bound for transaction dates (YYYY-MM-DD)")
	rootCmd.PersistentFlags().String("end-date", "", "inclusive upper bound for transaction dates (YYYY-MM-DD, empty = today)")

	_ = viper.BindPFlag("lake_root", rootCmd.PersistentFlags().Lookup("lake-root"))
	_ = viper.BindPFlag("config_dir", rootCmd.PersistentFlags().Lookup("config-dir"))
	_ = viper.BindPFlag("workers", rootCmd.PersistentFlags().Lookup("workers"))
	_ = viper.BindPFlag("window_start", rootCmd.PersistentFlags().Lookup("start-date"))
	_ = viper.BindPFlag("window_end", rootCmd.PersistentFlags().Lookup("end-date"))
	_ = viper.BindPFlag("logging.level", rootCmd.PersistentFlags().Lookup("log-level"))
	_ = viper.BindPFlag("logging.format", rootCmd.PersistentFlags().Lookup("log-format"))

	rootCmd.AddCommand(consolidateCmd())
	rootCmd.AddCommand(repairCmd())
	rootCmd.AddCommand(cleanCmd())
	rootCmd.AddCommand(augmentCmd())
	rootCmd.AddCommand(curateCmd())
	rootCmd.AddCommand(reconcileCmd())
	rootCmd.AddCommand(runCmd())
	rootCmd.AddCommand(versionCmd())
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func initConfig(_ *cobra.Command, _ []string) error {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.AddConfigPath(".")
		viper.AddConfigPath("configs")
		viper.SetConfigName("lakeetl")
		viper.SetConfigType("yaml")
	}

	viper.SetEnvPrefix("LAKEETL")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return fmt.Errorf("failed to read config: %w", err)
		}
	}

	if err := setupLogging(); err != nil {
		return fmt.Errorf("failed to setup logging: %w", err)
	}

	return nil
}

func setupLogging() error {
	level := viper.GetString("logging.level")
	format := viper.GetString("logging.format")

	var slogLevel slog.Level
	switch level {
	case "debug":
		slogLevel = slog.LevelDebug
	case "info":
		slogLevel = slog.LevelInfo
	case "warn":
		slogLevel = slog.LevelWarn
	case "error":
		slogLevel = slog.LevelError
	default:
		return fmt.Errorf("invalid log level: %s", level)
	}

	opts := &slog.HandlerOptions{Level: slogLevel}

	var handler slog.Handler
	switch format {
	case "console":
		handler = slog.NewTextHandler(os.Stderr, opts)
	case "json":
		handler = slog.NewJSONHandler(os.Stderr, opts)
	default:
		return fmt.Errorf("invalid log format: %s", format)
	}

	slog.SetDefault(slog.New(handler))

	return nil
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, _ []string) {
			cmd.Print(version.Info().String())
		},
	}
}

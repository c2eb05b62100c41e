package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/faceless-truth/mcs-platform/internal/common"
	"github.com/faceless-truth/mcs-platform/internal/config"
)

var (
	cfgFile string
	version = "dev"
	rootCmd = &cobra.Command{
		Use:   "mcs",
		Short: "Bank statement review and classification platform",
		Long: `mcs ingests bank statements, classifies every transaction against the
entity's chart of accounts, and walks the result through human review
into an atomic ledger commit.`,
		PersistentPreRunE: initConfig,
	}
)

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: $HOME/.config/mcs/config.yaml)")
	rootCmd.PersistentFlags().String("log-level", "info", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().String("log-format", "console", "log format (console, json)")

	_ = viper.BindPFlag("logging.level", rootCmd.PersistentFlags().Lookup("log-level"))
	_ = viper.BindPFlag("logging.format", rootCmd.PersistentFlags().Lookup("log-format"))

	rootCmd.AddCommand(ingestCmd())
	rootCmd.AddCommand(jobsCmd())
	rootCmd.AddCommand(reviewCmd())
	rootCmd.AddCommand(accountsCmd())
	rootCmd.AddCommand(patternsCmd())
	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(migrateCmd())
	rootCmd.AddCommand(versionCmd())
}

func main() {
	ctx, cancel := context.WithCancel(context.Background())

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigChan
		slog.Info("Received interrupt signal, shutting down gracefully...")
		cancel()
	}()

	err := rootCmd.ExecuteContext(ctx)
	cancel()

	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func initConfig(_ *cobra.Command, _ []string) error {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			return fmt.Errorf("failed to get home directory: %w", err)
		}

		viper.AddConfigPath(fmt.Sprintf("%s/.config/mcs", home))
		viper.AddConfigPath(".")
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
	}

	viper.SetEnvPrefix("MCS")
	viper.AutomaticEnv()

	config.SetDefaults()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return fmt.Errorf("failed to read config: %w", err)
		}
		// Config file not found is OK, we'll use defaults
	}

	return setupLogging()
}

func setupLogging() error {
	var level slog.Level
	switch viper.GetString("logging.level") {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		return fmt.Errorf("invalid log level: %s", viper.GetString("logging.level"))
	}

	return common.SetupLogger(level, viper.GetString("logging.format"))
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Run: func(_ *cobra.Command, _ []string) {
			fmt.Printf("mcs %s\n", version)
		},
	}
}

package main

import (
	"fmt"
	"log/slog"
	"os"

	"usersvc/internal/config"
	"usersvc/internal/logging"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

func main() {
	if err := NewRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

// NewRootCmd creates the root command for the usersvc CLI.
func NewRootCmd() *cobra.Command {
	v := viper.New()

	cmd := &cobra.Command{
		Use:          "usersvc",
		Short:        "User account service: register, login and lookup",
		SilenceUsage: true,
	}

	// Global flag for config file path
	cmd.PersistentFlags().String("config", "", "config file path")

	cmd.AddCommand(NewServeCmd(v))
	cmd.AddCommand(NewVerifyTokenCmd(v))
	cmd.AddCommand(NewConsumeEventsCmd(v))
	return cmd
}

// setup loads configuration and builds the logger for a subcommand.
func setup(cmd *cobra.Command, v *viper.Viper) (*config.Config, *slog.Logger, error) {
	configFile, err := cmd.Flags().GetString("config")
	if err != nil {
		return nil, nil, err
	}
	cfg, err := config.Load(v, configFile)
	if err != nil {
		return nil, nil, fmt.Errorf("invalid configuration: %w", err)
	}
	logger, err := logging.New(cmd.ErrOrStderr(), cfg.LogFormat, cfg.LogLevel)
	if err != nil {
		return nil, nil, err
	}
	slog.SetDefault(logger)
	return cfg, logger, nil
}

// bindFlags binds config keys to the named flags so an explicitly set flag
// overrides the environment and config file.
func bindFlags(v *viper.Viper, flags *pflag.FlagSet, keys map[string]string) {
	for key, name := range keys {
		if f := flags.Lookup(name); f != nil {
			_ = v.BindPFlag(key, f)
		}
	}
}

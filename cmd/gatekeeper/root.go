package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/nerrad567/gatekeeper-core/internal/infrastructure/config"
)

// defaultConfigPath is used when neither --config nor GATEKEEPER_CONFIG is set.
const defaultConfigPath = "configs/config.yaml"

// configEnvVar names the environment variable holding the config path.
const configEnvVar = "GATEKEEPER_CONFIG"

// rootOptions are the flags shared by every subcommand.
type rootOptions struct {
	configPath string
}

// newRootCmd builds the command tree. A fresh tree per call keeps tests
// independent of each other's flags.
func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	root := &cobra.Command{
		Use:   "gatekeeper",
		Short: "Authorization and command audit engine for relay devices.",
		Long: `Gatekeeper decides whether a caller may open or close a relay device,
applies the command atomically with an append-only, hash-chained audit entry
and signals the relay over MQTT.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&opts.configPath, "config", "c", "",
		fmt.Sprintf("path to configuration file (default $%s or %s)", configEnvVar, defaultConfigPath))

	root.AddCommand(
		newServeCmd(opts),
		newMigrateCmd(opts),
		newTokenCmd(opts),
		newVersionCmd(),
	)
	return root
}

// resolveConfigPath applies flag, then environment, then default.
func (o *rootOptions) resolveConfigPath() string {
	if o.configPath != "" {
		return o.configPath
	}
	if path := os.Getenv(configEnvVar); path != "" {
		return path
	}
	return defaultConfigPath
}

// loadConfig reads and validates the configuration file.
func (o *rootOptions) loadConfig() (*config.Config, string, error) {
	path := o.resolveConfigPath()
	cfg, err := config.Load(path)
	if err != nil {
		return nil, path, fmt.Errorf("loading config: %w", err)
	}
	return cfg, path, nil
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information.",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "gatekeeper %s (commit %s, built %s)\n", version, commit, date)
		},
	}
}

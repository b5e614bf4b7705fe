// Package app implements the main application commands.
package app

import (
	"github.com/spf13/cobra"

	"github.com/farah699/Users-Permissions-Backend/internal/config"
	"github.com/farah699/Users-Permissions-Backend/internal/logger"
)

var (
	configPath string // directory holding main.toml and .env

	cfg config.Config

	rootCmd = &cobra.Command{
		Use:   "users-permissions",
		Short: "Users & Permissions is a role based access control service",
		Long: `Users & Permissions authenticates principals with short-lived access
tokens and server-side tracked refresh tokens, authorizes them through
roles and permissions and keeps an audit trail of every decision.`,
		Args:          cobra.OnlyValidArgs,
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
			var err error
			if cfg, err = config.ReadConfig(configPath); err != nil {
				return err
			}

			if devMode {
				cfg.DevMode = true
			}

			return logger.Init(cfg.Log)
		},
	}
)

func init() { //nolint: gochecknoinits
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "./etc/", "directory of main.toml")
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

package app

import (
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/farah699/Users-Permissions-Backend/internal/daemon"
)

func init() { //nolint: gochecknoinits
	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(seedCmd)
}

var (
	migrateCmd = &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the database schema",
		RunE: func(_ *cobra.Command, _ []string) error {
			gdb, err := daemon.OpenDB(&cfg)
			if err != nil {
				return err
			}

			defer closeDB(gdb)

			log.Info().Str("engine", cfg.DB.GormEngine).Msg("database migrated")

			return nil
		},
	}

	seedCmd = &cobra.Command{
		Use:   "seed",
		Short: "Create the permission catalog, the default roles and the bootstrap administrator",
		RunE: func(cmd *cobra.Command, _ []string) error {
			gdb, err := daemon.OpenDB(&cfg)
			if err != nil {
				return err
			}

			defer closeDB(gdb)

			res, err := daemon.Seed(cmd.Context(), gdb, cfg.Seed)
			if err != nil {
				return err
			}

			log.Info().
				Int("permissions", res.Permissions).
				Strs("roles", res.Roles).
				Str("admin", res.AdminEmail).
				Msg("seed finished")

			return nil
		},
	}
)

package app

import (
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"gorm.io/gorm"

	"github.com/farah699/Users-Permissions-Backend/internal/daemon"
	auditctrl "github.com/farah699/Users-Permissions-Backend/internal/db/controller/audit"
	"github.com/farah699/Users-Permissions-Backend/internal/db/controller/user"
)

func init() { //nolint: gochecknoinits
	auditPurgeCmd.Flags().DurationVar(&olderThan, "older-than", 0, "Delete records older than this (default Audit.Retention)")

	auditCmd.AddCommand(auditPurgeCmd)
	tokensCmd.AddCommand(tokensPurgeCmd)

	rootCmd.AddCommand(auditCmd)
	rootCmd.AddCommand(tokensCmd)
}

var (
	olderThan time.Duration

	auditCmd = &cobra.Command{
		Use:   "audit",
		Short: "Maintain the audit trail",
	}

	auditPurgeCmd = &cobra.Command{
		Use:   "purge",
		Short: "Delete audit records past their retention",
		RunE: func(cmd *cobra.Command, _ []string) error {
			retention := olderThan
			if retention <= 0 {
				retention = cfg.Audit.Retention
			}

			gdb, err := daemon.OpenDB(&cfg)
			if err != nil {
				return err
			}

			defer closeDB(gdb)

			cutoff := time.Now().UTC().Add(-retention)

			n, err := auditctrl.PurgeOlderThan(cmd.Context(), gdb, cutoff)
			if err != nil {
				return err
			}

			log.Info().Int64("deleted", n).Time("cutoff", cutoff).Msg("audit records purged")

			return nil
		},
	}

	tokensCmd = &cobra.Command{
		Use:   "tokens",
		Short: "Maintain outstanding refresh tokens",
	}

	tokensPurgeCmd = &cobra.Command{
		Use:   "purge",
		Short: "Delete expired refresh tokens",
		RunE: func(cmd *cobra.Command, _ []string) error {
			gdb, err := daemon.OpenDB(&cfg)
			if err != nil {
				return err
			}

			defer closeDB(gdb)

			n, err := user.PurgeExpiredRefreshTokens(cmd.Context(), gdb, time.Now().UTC())
			if err != nil {
				return err
			}

			log.Info().Int64("deleted", n).Msg("expired refresh tokens purged")

			return nil
		},
	}
)

func closeDB(gdb *gorm.DB) {
	sqlDB, err := gdb.DB()
	if err != nil {
		return
	}

	if err = sqlDB.Close(); err != nil {
		log.Error().Err(err).Msg("failed to close database")
	}
}

package app

import (
	"github.com/spf13/cobra"

	"github.com/farah699/Users-Permissions-Backend/internal/daemon"
)

func init() { //nolint: gochecknoinits
	startCmd.Flags().BoolVar(&devMode, "dev", false, "Enable dev mode")
	startCmd.Flags().BoolVar(&fastShutDown, "fast-shutdown", false, "Skip the health check grace period on shutdown")

	rootCmd.AddCommand(startCmd)
}

var (
	devMode      bool
	fastShutDown bool

	startCmd = &cobra.Command{
		Use:   "start",
		Short: "Start the Users & Permissions web service",
		RunE: func(_ *cobra.Command, _ []string) error {
			d, err := daemon.New(&cfg)
			if err != nil {
				return err
			}

			d.App().SetFastShutDown(fastShutDown)

			return d.Start()
		},
	}
)

package cmd

import (
	"errors"

	"github.com/spf13/cobra"

	"github.com/CengizhanKARAGOZ/lead-finder/internal/storage/postgres"
)

func newMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Applies pending database migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			appInstance, err := resolveApp(cmd.Context())
			if err != nil {
				return err
			}
			pool := appInstance.Pool()
			if pool == nil {
				return errors.New("migrate requires the postgres storage driver")
			}
			if err := postgres.Migrate(cmd.Context(), pool); err != nil {
				return err
			}
			appInstance.Logger().Info("migrations applied")
			return nil
		},
	}
}

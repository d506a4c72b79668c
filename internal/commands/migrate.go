package commands

import (
	"github.com/spf13/cobra"

	"github.com/accountbook/backend/internal/database"
	"github.com/accountbook/backend/internal/logger"
)

func newMigrateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create the ledger tables if they do not exist",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			db, err := database.InitDB(ctx)
			if err != nil {
				return err
			}
			defer db.Close()

			if err := database.Migrate(ctx, db); err != nil {
				return err
			}

			log := logger.WithComponent("migrate")
			log.Info().Msg("Schema is up to date")
			return nil
		},
	}
}

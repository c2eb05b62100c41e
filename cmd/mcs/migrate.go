package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/faceless-truth/mcs-platform/internal/cli"
	"github.com/faceless-truth/mcs-platform/internal/storage"
)

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending database migrations",
		RunE: func(cmd *cobra.Command, _ []string) error {
			application, cleanup, err := newApp(false)
			if err != nil {
				return err
			}
			defer cleanup()

			if err := application.storage.Migrate(cmd.Context()); err != nil {
				return fmt.Errorf("migration failed: %w", err)
			}

			fmt.Println(cli.FormatSuccess(fmt.Sprintf(
				"database is at schema version %d", storage.ExpectedSchemaVersion)))
			return nil
		},
	}
}

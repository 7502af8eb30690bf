package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mind-engage/mindengage-access/internal/db"
)

func newSchemaCmd() *cobra.Command {
	var driver string
	cmd := &cobra.Command{
		Use:   "schema",
		Short: "Print the database schema",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := db.Schema(db.Driver(driver))
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), s)
			return nil
		},
	}
	cmd.Flags().StringVar(&driver, "driver", string(db.DriverSQLite), "sqlite or postgres")
	return cmd
}

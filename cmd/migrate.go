package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"VidTube/server"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create tables or Mongo indexes",
	Long:  `Migrate the SQL schema (mysql, postgres, sqlite) or create the unique and lookup indexes (mongo).`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := context.WithTimeout(cmd.Context(), time.Minute)
		defer cancel()

		fmt.Printf("Migrating %s store...\n", cfg.Store.Driver)
		stores, err := server.OpenStores(ctx, cfg, true)
		if err != nil {
			return err
		}
		defer stores.Close()

		fmt.Println("Migration finished.")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}

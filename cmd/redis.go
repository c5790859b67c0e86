package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"VidTube/db"
)

var redisCmd = &cobra.Command{
	Use:   "redis",
	Short: "Test the Redis connection",
	Long:  `Connect to the Redis instance used for rate limiting and run a set/get/delete round trip.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if cfg.Redis.Host == "" {
			return fmt.Errorf("REDIS_HOST is not set, rate limiting is disabled")
		}
		fmt.Printf("Redis config: %s, DB: %d\n", cfg.Redis.Addr(), cfg.Redis.DB)

		ctx, cancel := context.WithTimeout(cmd.Context(), 10*time.Second)
		defer cancel()

		client, err := db.ConnectRedis(ctx, cfg.Redis)
		if err != nil {
			return err
		}
		defer client.Close()
		fmt.Println("Redis connection OK.")

		if err := db.TestRedis(ctx, client); err != nil {
			return fmt.Errorf("redis round trip failed: %w", err)
		}
		fmt.Println("Redis read/write OK.")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(redisCmd)
}

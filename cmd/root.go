package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"VidTube/config"
	"VidTube/logger"
	"VidTube/server"
)

var (
	envFile string
	cfg     *config.Config
)

var rootCmd = &cobra.Command{
	Use:   "vidtube",
	Short: "VidTube user and channel service.",
	Long:  `VidTube serves user accounts, sessions, channel profiles and watch history over HTTP.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		cfg = config.Load(envFile)
		return logger.InitLogger(logger.Config{
			Level:      logger.LogLevel(cfg.Log.Level),
			OutputPath: cfg.Log.OutputPath,
			MaxSize:    cfg.Log.MaxSize,
			MaxBackups: cfg.Log.MaxBackups,
			MaxAge:     cfg.Log.MaxAge,
			Compress:   cfg.Log.Compress,
			Production: cfg.IsProduction(),
		})
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		logger.Sync()
	},
	// Running the bare binary starts the server.
	RunE: runServe,
}

// Execute executes the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "path of the .env file to load")
}

func runServe(cmd *cobra.Command, args []string) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	logger.Info("Starting VidTube server...", logger.String("env", cfg.Server.Environment))
	return server.Start(cfg)
}

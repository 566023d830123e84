package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/JohnyZhand/CoraBooks/config"
)

var version = "dev"

var rootCmd = &cobra.Command{
	Version: version,
	Use:     "corabooks",
	Short:   "Book library server with direct-to-storage uploads",
	Long: `CoraBooks keeps a catalog of uploaded books. Clients upload files
straight to the object store using short-lived tickets and confirm them
with a commit call; stale uploads are reconciled by cleanup.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		configFiles, _ := cmd.Flags().GetStringSlice("config")

		cfg, err := config.Load(configFiles, cmd.Flags())
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}

		setupLogging(cfg.Log)

		cmd.SetContext(config.WithContext(cmd.Context(), cfg))
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringSlice("config", nil, "config file paths, later files override earlier ones (default: ./config.yaml)")
	rootCmd.PersistentFlags().String("db-type", "", "metadata backend: memory, sqlite, postgres, redis, mongo (env: CORABOOKS_DATABASE_TYPE)")
	rootCmd.PersistentFlags().String("db-dsn", "", "metadata backend connection string (env: CORABOOKS_DATABASE_DSN)")
	rootCmd.PersistentFlags().String("storage-backend", "", "object store: filesystem, s3 (env: CORABOOKS_STORAGE_BACKEND)")
	rootCmd.PersistentFlags().String("storage-path", "", "filesystem store directory (env: CORABOOKS_STORAGE_FILESYSTEM_PATH)")
	rootCmd.PersistentFlags().String("log-level", "", "log level: debug, info, warn, error (env: CORABOOKS_LOG_LEVEL)")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

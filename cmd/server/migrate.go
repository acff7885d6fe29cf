package main

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func migrateCmd() *cobra.Command {
	var envFile string
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply the schema of the configured store and exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := setup(envFile)
			if err != nil {
				return err
			}
			defer log.Sync() //nolint:errcheck

			st, err := openStore(cfg, log)
			if err != nil {
				return err
			}
			log.Info("schema up to date", zap.String("store", cfg.StoreDriver))
			return st.Close()
		},
	}
	cmd.Flags().StringVar(&envFile, "env-file", "", "dotenv file to load before the environment")
	return cmd
}

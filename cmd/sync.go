package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"geo-reminder/internal/storage"
)

var syncFrom string

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Move reminders from a local store into the configured storage for --user",
	RunE: func(cmd *cobra.Command, args []string) error {
		if cfg.UserID == "" {
			return fmt.Errorf("sync requires --user or GEOREMINDER_USER_ID")
		}
		if syncFrom == cfg.Storage {
			return fmt.Errorf("source and destination storage are both %q", syncFrom)
		}
		ctx := cmd.Context()

		localCfg := *cfg
		localCfg.Storage = syncFrom
		local, err := openStorage(ctx, &localCfg)
		if err != nil {
			return fmt.Errorf("failed to open local storage: %w", err)
		}
		defer local.Close()

		remote, err := openStorage(ctx, cfg)
		if err != nil {
			return fmt.Errorf("failed to open remote storage: %w", err)
		}
		defer remote.Close()

		n, err := storage.Sync(ctx, local, remote, cfg.UserID)
		logger.Info("sync finished", "copied", n, "from", syncFrom, "to", cfg.Storage, "user_id", cfg.UserID)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Synced %d reminder(s) for %s\n", n, cfg.UserID)
		return nil
	},
}

func init() {
	syncCmd.Flags().StringVar(&syncFrom, "from", "file", "local storage backend to move reminders from: file or sqlite")
}

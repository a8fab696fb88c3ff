package main

import (
	"log/slog"

	"github.com/spf13/cobra"
)

func newMigrateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending storage migrations and exit",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := loadRuntime()
			if err != nil {
				return err
			}
			s, err := openStore(cmd.Context(), log, cfg.Storage)
			if err != nil {
				return err
			}
			s.Close()
			log.Info("storage ready", slog.String("driver", cfg.Storage.Driver))
			return nil
		},
	}
}

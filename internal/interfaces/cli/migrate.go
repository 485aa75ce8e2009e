package cli

import (
	"github.com/spf13/cobra"

	"github.com/citekeep/citekeep/internal/infrastructure/database/postgres"
)

func newMigrateCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending database schema migrations",
		RunE: func(_ *cobra.Command, _ []string) error {
			cfg, err := loadConfig(opts)
			if err != nil {
				return err
			}
			log, err := newLogger(cfg)
			if err != nil {
				return err
			}
			return postgres.Migrate(cfg.Database, log)
		},
	}
}

package cli

import (
	"encoding/json"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/citekeep/citekeep/internal/application/dedup"
	"github.com/citekeep/citekeep/internal/domain/similarity"
	"github.com/citekeep/citekeep/internal/infrastructure/database/postgres"
	"github.com/citekeep/citekeep/internal/infrastructure/database/postgres/repositories"
	appErrors "github.com/citekeep/citekeep/pkg/errors"
)

func newDedupCommand(opts *RootOptions) *cobra.Command {
	var (
		projectID string
		threshold float64
		limit     int
	)

	cmd := &cobra.Command{
		Use:   "dedup",
		Short: "Run deduplication for a project and print the group report",
		RunE: func(cmd *cobra.Command, _ []string) error {
			project, err := uuid.Parse(projectID)
			if err != nil {
				return appErrors.InvalidParam("--project must be a UUID")
			}

			cfg, err := loadConfig(opts)
			if err != nil {
				return err
			}
			log, err := newLogger(cfg)
			if err != nil {
				return err
			}

			pool, err := postgres.NewPool(cmd.Context(), cfg.Database, log)
			if err != nil {
				return err
			}
			defer pool.Close()

			simFunc, err := similarity.ForMetric(similarity.Metric(cfg.Dedup.Metric))
			if err != nil {
				return err
			}
			engine := dedup.NewEngine(repositories.NewFactRepository(pool, log), simFunc, log)

			report, err := engine.Run(cmd.Context(), project, threshold, limit)
			if err != nil {
				return err
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(report)
		},
	}

	cmd.Flags().StringVar(&projectID, "project", "", "project UUID (required)")
	cmd.Flags().Float64Var(&threshold, "threshold", 0, "similarity threshold in (0, 1]; 0 uses the configured default")
	cmd.Flags().IntVar(&limit, "limit", 0, "maximum facts per run; 0 uses the configured default")
	_ = cmd.MarkFlagRequired("project")

	return cmd
}

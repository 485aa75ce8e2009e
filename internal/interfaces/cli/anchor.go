package cli

import (
	"encoding/json"
	"os"

	"github.com/spf13/cobra"

	"github.com/citekeep/citekeep/internal/domain/anchor"
	appErrors "github.com/citekeep/citekeep/pkg/errors"
)

// anchorResult is the printable outcome of an offline resolution.
type anchorResult struct {
	Tier      string `json:"tier"`
	StartChar *int   `json:"start_char,omitempty"`
	EndChar   *int   `json:"end_char,omitempty"`
}

// newAnchorCommand resolves a quote against a local text file without
// touching the database, useful for debugging anchor behavior.
func newAnchorCommand() *cobra.Command {
	var (
		contentPath string
		quote       string
		padding     int
		broadRatio  float64
	)

	cmd := &cobra.Command{
		Use:   "anchor",
		Short: "Resolve a quote against a local file and print the matched span",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if quote == "" {
				return appErrors.InvalidParam("--quote is required")
			}
			raw, err := os.ReadFile(contentPath)
			if err != nil {
				return appErrors.Wrap(err, appErrors.ErrCodeBadRequest, "cannot read content file")
			}

			resolver := anchor.NewResolver(anchor.Options{
				NormalizedEndPadding: padding,
				BroadMatchRatio:      broadRatio,
			})
			match := resolver.Resolve(string(raw), quote, nil)

			result := anchorResult{Tier: string(match.Tier)}
			if match.Span != nil {
				result.StartChar = &match.Span.Start
				result.EndChar = &match.Span.End
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(result)
		},
	}

	cmd.Flags().StringVar(&contentPath, "file", "", "path to the content file (required)")
	cmd.Flags().StringVar(&quote, "quote", "", "quote text to locate (required)")
	cmd.Flags().IntVar(&padding, "padding", 0, "end padding for normalized matches; 0 uses the default")
	cmd.Flags().Float64Var(&broadRatio, "broad-ratio", 0, "broad-match rejection ratio; 0 uses the default")
	_ = cmd.MarkFlagRequired("file")

	return cmd
}

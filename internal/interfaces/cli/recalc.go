package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/turtacn/NeedsFine/internal/application/analysis"
	"github.com/turtacn/NeedsFine/pkg/errors"
)

// NewRecalcCmd creates the recalc command.
func NewRecalcCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "recalc",
		Short: "Rescore every stored review with the current engine and lexicon",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withBackend(cmd, func(b Backend) error {
				res, err := b.Analysis().Recalculate(cmd.Context())
				if err != nil {
					return err
				}
				if perr := PrintResult(cmd, res, func() string { return formatRecalc(res) }); perr != nil {
					return perr
				}
				if !res.Success {
					return errors.New(errors.ErrCodeRecalculationFailed, res.Error)
				}
				return nil
			})
		},
	}
}

func formatRecalc(res *analysis.RecalcResult) string {
	s := fmt.Sprintf("rescored %d of %d reviews with logic %s\n", res.Count, res.Total, res.LogicVersion)
	if res.Error != "" {
		s += res.Error + "\n"
	}
	return s
}

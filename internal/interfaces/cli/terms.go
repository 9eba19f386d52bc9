package cli

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/turtacn/NeedsFine/internal/application/curation"
	"github.com/turtacn/NeedsFine/internal/domain/lexicon"
)

// NewTermsCmd creates the terms command for lexicon curation.
func NewTermsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "terms",
		Short: "Curate mined lexicon candidates",
	}
	cmd.AddCommand(newTermsListCmd(), newTermsApproveCmd(), newTermsRejectCmd())
	return cmd
}

func newTermsListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List pending candidates, most frequent first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withBackend(cmd, func(b Backend) error {
				candidates, err := b.Curation().ListCandidates(cmd.Context())
				if err != nil {
					return err
				}
				return PrintResult(cmd, candidates, func() string { return formatCandidates(candidates) })
			})
		},
	}
}

func newTermsApproveCmd() *cobra.Command {
	var aspect, polarity string
	cmd := &cobra.Command{
		Use:   "approve TERM",
		Short: "Promote a candidate into the lexicon",
		Long: "Promote a candidate. Without overrides the candidate's best aspect and\n" +
			"polarity are used.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return act(cmd, &curation.ActionInput{
				Term:             args[0],
				Action:           string(lexicon.ActionApprove),
				OverrideAspect:   aspect,
				OverridePolarity: polarity,
			})
		},
	}
	cmd.Flags().StringVar(&aspect, "aspect", "", "override aspect (taste, service, value, revisit, hygiene, ambience, wait, portion, overall)")
	cmd.Flags().StringVar(&polarity, "polarity", "", "override polarity (POS, NEG)")
	return cmd
}

func newTermsRejectCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "reject TERM",
		Short: "Discard a candidate",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return act(cmd, &curation.ActionInput{Term: args[0], Action: string(lexicon.ActionReject)})
		},
	}
}

func act(cmd *cobra.Command, in *curation.ActionInput) error {
	return withBackend(cmd, func(b Backend) error {
		res, err := b.Curation().Act(cmd.Context(), in)
		if err != nil {
			return err
		}
		return PrintResult(cmd, res, func() string { return res.Message + "\n" })
	})
}

func withBackend(cmd *cobra.Command, fn func(Backend) error) error {
	cliCtx, err := GetCLIContext(cmd)
	if err != nil {
		return err
	}
	b, err := cliCtx.Backend(cmd.Context())
	if err != nil {
		return err
	}
	defer b.Close()
	return fn(b)
}

func formatCandidates(candidates []*lexicon.Candidate) string {
	if len(candidates) == 0 {
		return "no pending candidates\n"
	}
	rows := make([][]string, 0, len(candidates))
	for _, c := range candidates {
		rows = append(rows, []string{
			c.Term,
			strconv.Itoa(c.TotalCount),
			string(c.BestAspect),
			string(c.BestPolarity),
			fmt.Sprintf("%.2f", c.Confidence),
			c.LastSeen.Format("2006-01-02"),
		})
	}
	return FormatTable([]string{"TERM", "COUNT", "ASPECT", "POLARITY", "CONFIDENCE", "LAST SEEN"}, rows)
}

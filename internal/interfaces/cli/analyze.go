package cli

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/turtacn/NeedsFine/internal/application/analysis"
	"github.com/turtacn/NeedsFine/internal/domain/scoring"
	"github.com/turtacn/NeedsFine/pkg/errors"
)

// noCues is the lexicon of an offline run: static rules only.
type noCues struct{}

func (noCues) Load(context.Context) []scoring.DynamicCue { return nil }

// NewAnalyzeCmd creates the analyze command.
func NewAnalyzeCmd() *cobra.Command {
	var (
		rating      string
		photo       bool
		debug       bool
		allEvidence bool
		withLexicon bool
		tags        []string
	)

	cmd := &cobra.Command{
		Use:   "analyze [text]",
		Short: "Score one review",
		Long: "Score a review given as an argument or on stdin. By default only the\n" +
			"static rules apply; --with-lexicon also loads the learned terms from\n" +
			"the database. Nothing is persisted or mined.",
		Example: `  needsfine analyze "국물이 진하고 친절해요" --rating 4.5
  echo "맛있어요" | needsfine analyze -o json`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cliCtx, err := GetCLIContext(cmd)
			if err != nil {
				return err
			}
			text, err := reviewText(cmd, args)
			if err != nil {
				return err
			}
			var userRating *float64
			if rating != "" {
				if userRating = scoring.ParseRating(rating); userRating == nil {
					return errors.InvalidParam(fmt.Sprintf("invalid rating %q", rating))
				}
			}

			svc, closeFn, err := analyzer(cmd.Context(), cliCtx, withLexicon)
			if err != nil {
				return err
			}
			defer closeFn()

			mode := analysis.EvidenceTop
			if allEvidence {
				mode = analysis.EvidenceAll
			}
			res, err := svc.Analyze(cmd.Context(), &analysis.AnalyzeInput{
				Text:         text,
				UserRating:   userRating,
				HasPhoto:     photo,
				Tags:         tags,
				Debug:        debug,
				EvidenceMode: mode,
			})
			if err != nil {
				return err
			}
			return PrintResult(cmd, res, func() string { return formatAnalysis(res) })
		},
	}

	f := cmd.Flags()
	f.StringVar(&rating, "rating", "", "user star rating, e.g. 4.5 or \"4.5점\"")
	f.BoolVar(&photo, "photo", false, "the review has photos")
	f.BoolVar(&debug, "debug", false, "include the scoring trace")
	f.BoolVar(&allEvidence, "all-evidence", false, "list every evidence hit instead of the strongest")
	f.BoolVar(&withLexicon, "with-lexicon", false, "load learned terms from the database")
	f.StringSliceVar(&tags, "tags", nil, "user-selected tags, e.g. 배달")
	return cmd
}

func reviewText(cmd *cobra.Command, args []string) (string, error) {
	if len(args) == 1 {
		return args[0], nil
	}
	b, err := io.ReadAll(io.LimitReader(cmd.InOrStdin(), 1<<20))
	if err != nil {
		return "", errors.Wrap(err, errors.ErrCodeBadRequest, "read review from stdin")
	}
	return strings.TrimRight(string(b), "\r\n"), nil
}

func analyzer(ctx context.Context, cliCtx *CLIContext, withLexicon bool) (analysis.Service, func(), error) {
	if withLexicon {
		b, err := cliCtx.Backend(ctx)
		if err != nil {
			return nil, nil, err
		}
		return b.Analysis(), func() { _ = b.Close() }, nil
	}
	engine, err := cliCtx.Config.EngineConfig()
	if err != nil {
		return nil, nil, err
	}
	// Analyze never touches the review store.
	return analysis.NewService(nil, noCues{}, engine, cliCtx.Logger), func() {}, nil
}

func formatAnalysis(res *analysis.AnalyzeResult) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Score:   %.1f\n", res.Score)
	fmt.Fprintf(&sb, "Trust:   %d%%\n", res.Trust)
	fmt.Fprintf(&sb, "Label:   %s\n", res.Label)
	fmt.Fprintf(&sb, "Mode:    %s\n", res.Mode)

	var mentioned []string
	for _, t := range res.Tags {
		if t.Mentioned {
			mentioned = append(mentioned, fmt.Sprintf("%s(%s)", t.Label, t.Polarity))
		}
	}
	if len(mentioned) > 0 {
		fmt.Fprintf(&sb, "Tags:    %s\n", strings.Join(mentioned, ", "))
	}
	if res.Message != "" {
		prefix := "Message"
		if res.IsWarning {
			prefix = "Warning"
		}
		fmt.Fprintf(&sb, "%s: %s\n", prefix, res.Message)
	}
	if sn := res.Evidence.StrongNegative; sn.Flag {
		fmt.Fprintf(&sb, "Strong negative: %s (ceiling %.1f) %s\n", sn.Category, sn.Ceiling, strings.Join(sn.Matched, ", "))
	}

	rows := make([][]string, 0, len(res.Evidence.Positive)+len(res.Evidence.Negative))
	for _, h := range res.Evidence.Positive {
		rows = append(rows, []string{"+", string(h.Aspect), h.Cue, fmt.Sprintf("%.2f", h.Weight)})
	}
	for _, h := range res.Evidence.Negative {
		rows = append(rows, []string{"-", string(h.Aspect), h.Cue, fmt.Sprintf("%.2f", h.Weight)})
	}
	if len(rows) > 0 {
		sb.WriteString("\n")
		sb.WriteString(FormatTable([]string{"", "ASPECT", "CUE", "WEIGHT"}, rows))
	}
	if res.Debug != nil {
		fmt.Fprintf(&sb, "\nPolicy: %s  caps: %s\n", res.Debug.Policy, strings.Join(res.Debug.AppliedCaps, ", "))
	}
	fmt.Fprintf(&sb, "\nlogic %s\n", res.LogicVersion)
	return sb.String()
}

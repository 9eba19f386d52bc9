package repositories

import (
	"context"
	"fmt"

	"github.com/turtacn/NeedsFine/internal/domain/lexicon"
	"github.com/turtacn/NeedsFine/internal/domain/scoring"
	"github.com/turtacn/NeedsFine/internal/infrastructure/database/postgres"
	"github.com/turtacn/NeedsFine/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/NeedsFine/pkg/errors"
)

const cueColumns = `term, aspect, polarity, weight, priority, source, confidence, occurrences, enabled, updated_at`

const upsertCueSQL = `
	INSERT INTO lexicon_terms (` + cueColumns + `)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	ON CONFLICT (term) DO UPDATE SET
		aspect = EXCLUDED.aspect,
		polarity = EXCLUDED.polarity,
		weight = EXCLUDED.weight,
		priority = EXCLUDED.priority,
		source = EXCLUDED.source,
		confidence = EXCLUDED.confidence,
		occurrences = EXCLUDED.occurrences,
		enabled = EXCLUDED.enabled,
		updated_at = EXCLUDED.updated_at
`

type postgresCueRepo struct {
	log      logging.Logger
	executor queryExecutor
}

// NewPostgresCueRepo returns the lexicon_terms backed cue store.
func NewPostgresCueRepo(conn *postgres.Connection, log logging.Logger) lexicon.CueRepository {
	if log == nil {
		log = logging.NewNopLogger()
	}
	return &postgresCueRepo{log: log.Named("cue_repo"), executor: conn.DB()}
}

func (r *postgresCueRepo) ListEnabled(ctx context.Context) ([]scoring.DynamicCue, error) {
	query := `SELECT ` + cueColumns + ` FROM lexicon_terms WHERE enabled = TRUE ORDER BY priority DESC, term`
	rows, err := r.executor.QueryContext(ctx, query)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to list lexicon terms")
	}
	defer rows.Close()

	var out []scoring.DynamicCue
	for rows.Next() {
		cue, err := scanCue(rows)
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to scan lexicon term")
		}
		out = append(out, cue)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to iterate lexicon terms")
	}
	return out, nil
}

func (r *postgresCueRepo) Upsert(ctx context.Context, cue scoring.DynamicCue) error {
	return upsertCue(ctx, r.executor, cue)
}

func upsertCue(ctx context.Context, exec queryExecutor, cue scoring.DynamicCue) error {
	_, err := exec.ExecContext(ctx, upsertCueSQL,
		cue.Term, string(cue.Aspect), string(cue.Polarity), cue.BaseWeight, cue.Priority,
		string(cue.Source), cue.Confidence, cue.Occurrences, cue.Enabled, cue.UpdatedAt,
	)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeDatabaseError, fmt.Sprintf("failed to upsert lexicon term %q", cue.Term))
	}
	return nil
}

func scanCue(row scanner) (scoring.DynamicCue, error) {
	var (
		c                        scoring.DynamicCue
		aspect, polarity, source string
	)
	err := row.Scan(&c.Term, &aspect, &polarity, &c.BaseWeight, &c.Priority, &source,
		&c.Confidence, &c.Occurrences, &c.Enabled, &c.UpdatedAt)
	if err != nil {
		return c, err
	}
	c.Aspect = scoring.Aspect(aspect)
	c.Polarity = scoring.Polarity(polarity)
	c.Source = scoring.CueSource(source)
	return c, nil
}

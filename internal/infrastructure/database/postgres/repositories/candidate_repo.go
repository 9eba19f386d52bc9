package repositories

import (
	"context"
	"database/sql"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"time"

	"github.com/turtacn/NeedsFine/internal/domain/lexicon"
	"github.com/turtacn/NeedsFine/internal/domain/scoring"
	"github.com/turtacn/NeedsFine/internal/infrastructure/database/postgres"
	"github.com/turtacn/NeedsFine/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/NeedsFine/pkg/errors"
)

const candidateColumns = `term, stats, total_count, best_aspect, best_polarity, confidence, promoted, first_seen, last_seen`

type postgresCandidateRepo struct {
	conn *postgres.Connection
	log  logging.Logger
	now  func() time.Time
}

// NewPostgresCandidateRepo returns the term_candidates backed store. Mutate
// locks the term's row for the duration of the callback.
func NewPostgresCandidateRepo(conn *postgres.Connection, log logging.Logger) lexicon.CandidateRepository {
	if log == nil {
		log = logging.NewNopLogger()
	}
	return &postgresCandidateRepo{
		conn: conn,
		log:  log.Named("candidate_repo"),
		now:  func() time.Time { return time.Now().UTC() },
	}
}

// Mutate inserts an empty row when the term is new, then locks it with
// SELECT ... FOR UPDATE, so concurrent first sightings serialize on the
// same row instead of racing on insert.
func (r *postgresCandidateRepo) Mutate(ctx context.Context, term string, fn lexicon.MutateFunc) error {
	return r.conn.WithTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx,
			`INSERT INTO term_candidates (term, first_seen, last_seen) VALUES ($1, $2, $2) ON CONFLICT (term) DO NOTHING`,
			term, r.now())
		if err != nil {
			return errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to reserve candidate row")
		}
		inserted, err := res.RowsAffected()
		if err != nil {
			return errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to reserve candidate row")
		}

		row := tx.QueryRowContext(ctx, `SELECT `+candidateColumns+` FROM term_candidates WHERE term = $1 FOR UPDATE`, term)
		c, err := scanCandidate(row)
		if err != nil {
			return errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to lock candidate")
		}

		m, err := fn(c, inserted == 0)
		if err != nil {
			return err
		}

		if m.Cue != nil {
			if err := upsertCue(ctx, tx, *m.Cue); err != nil {
				return err
			}
		}
		if m.Delete {
			if _, err := tx.ExecContext(ctx, `DELETE FROM term_candidates WHERE term = $1`, term); err != nil {
				return errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to delete candidate")
			}
			return nil
		}
		return saveCandidate(ctx, tx, c)
	})
}

func (r *postgresCandidateRepo) ListPending(ctx context.Context, limit int) ([]*lexicon.Candidate, error) {
	if limit <= 0 {
		limit = lexicon.PendingListLimit
	}
	rows, err := r.conn.DB().QueryContext(ctx,
		`SELECT `+candidateColumns+` FROM term_candidates WHERE promoted = FALSE ORDER BY total_count DESC, term LIMIT $1`,
		limit)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to list candidates")
	}
	defer rows.Close()

	var out []*lexicon.Candidate
	for rows.Next() {
		c, err := scanCandidate(rows)
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to scan candidate")
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to iterate candidates")
	}
	return out, nil
}

func (r *postgresCandidateRepo) Get(ctx context.Context, term string) (*lexicon.Candidate, error) {
	row := r.conn.DB().QueryRowContext(ctx, `SELECT `+candidateColumns+` FROM term_candidates WHERE term = $1`, term)
	c, err := scanCandidate(row)
	if stderrors.Is(err, sql.ErrNoRows) {
		return nil, errors.New(errors.ErrCodeCandidateNotFound, fmt.Sprintf("candidate %q not found", term))
	}
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to get candidate")
	}
	return c, nil
}

func saveCandidate(ctx context.Context, exec queryExecutor, c *lexicon.Candidate) error {
	stats, err := json.Marshal(c.Stats)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeSerialization, "failed to encode candidate stats")
	}
	_, err = exec.ExecContext(ctx, `
		UPDATE term_candidates SET
			stats = $2, total_count = $3, best_aspect = $4, best_polarity = $5,
			confidence = $6, promoted = $7, first_seen = $8, last_seen = $9
		WHERE term = $1`,
		c.Term, stats, c.TotalCount, string(c.BestAspect), string(c.BestPolarity),
		c.Confidence, c.Promoted, c.FirstSeen, c.LastSeen,
	)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeDatabaseError, fmt.Sprintf("failed to save candidate %q", c.Term))
	}
	return nil
}

func scanCandidate(row scanner) (*lexicon.Candidate, error) {
	var (
		c                lexicon.Candidate
		stats            []byte
		aspect, polarity string
	)
	if err := row.Scan(&c.Term, &stats, &c.TotalCount, &aspect, &polarity,
		&c.Confidence, &c.Promoted, &c.FirstSeen, &c.LastSeen); err != nil {
		return nil, err
	}
	c.Stats = make(map[string]int)
	if len(stats) > 0 {
		if err := json.Unmarshal(stats, &c.Stats); err != nil {
			return nil, fmt.Errorf("decode stats for %q: %w", c.Term, err)
		}
	}
	c.BestAspect = scoring.Aspect(aspect)
	c.BestPolarity = scoring.Polarity(polarity)
	return &c, nil
}

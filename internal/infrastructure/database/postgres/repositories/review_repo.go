package repositories

import (
	"context"
	"database/sql"
	"encoding/json"
	stderrors "errors"
	"fmt"

	"github.com/turtacn/NeedsFine/internal/domain/review"
	"github.com/turtacn/NeedsFine/internal/domain/scoring"
	"github.com/turtacn/NeedsFine/internal/infrastructure/database/postgres"
	"github.com/turtacn/NeedsFine/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/NeedsFine/pkg/errors"
)

const reviewColumns = `id, user_id, store_name, store_address, review_text, user_rating, photo_urls,
	needsfine_score, trust_level, label, authenticity, tags, is_critical, is_hidden,
	logic_version, visit_count, created_at, updated_at`

const insertReviewSQL = `
	INSERT INTO reviews (` + reviewColumns + `)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)`

// upsertAnalysisSQL writes the analysis columns only; the review itself is
// immutable once stored.
const upsertAnalysisSQL = insertReviewSQL + `
	ON CONFLICT (id) DO UPDATE SET
		needsfine_score = EXCLUDED.needsfine_score,
		trust_level = EXCLUDED.trust_level,
		label = EXCLUDED.label,
		authenticity = EXCLUDED.authenticity,
		tags = EXCLUDED.tags,
		is_critical = EXCLUDED.is_critical,
		is_hidden = EXCLUDED.is_hidden,
		logic_version = EXCLUDED.logic_version,
		updated_at = EXCLUDED.updated_at`

type postgresReviewRepo struct {
	conn     *postgres.Connection
	log      logging.Logger
	executor queryExecutor
}

// NewPostgresReviewRepo returns the reviews table store.
func NewPostgresReviewRepo(conn *postgres.Connection, log logging.Logger) review.Repository {
	if log == nil {
		log = logging.NewNopLogger()
	}
	return &postgresReviewRepo{conn: conn, log: log.Named("review_repo"), executor: conn.DB()}
}

func (r *postgresReviewRepo) Create(ctx context.Context, rv *review.Review) error {
	args, err := reviewArgs(rv)
	if err != nil {
		return err
	}
	if _, err := r.executor.ExecContext(ctx, insertReviewSQL, args...); err != nil {
		if isUniqueViolation(err) {
			return errors.Wrap(err, errors.ErrCodeConflict, "review already exists")
		}
		return errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to create review")
	}
	return nil
}

func (r *postgresReviewRepo) FindByID(ctx context.Context, id string) (*review.Review, error) {
	row := r.executor.QueryRowContext(ctx, `SELECT `+reviewColumns+` FROM reviews WHERE id = $1`, id)
	rv, err := scanReview(row)
	if stderrors.Is(err, sql.ErrNoRows) {
		return nil, errors.New(errors.ErrCodeReviewNotFound, fmt.Sprintf("review %s not found", id))
	}
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to get review")
	}
	return rv, nil
}

func (r *postgresReviewRepo) List(ctx context.Context, f review.ListFilter) ([]*review.Review, error) {
	f.Normalize()
	query := `SELECT ` + reviewColumns + ` FROM reviews
		WHERE ($1 = '' OR store_name = $1) AND ($2 OR is_hidden = FALSE)
		ORDER BY created_at DESC, id DESC
		LIMIT $3`
	return r.query(ctx, query, f.StoreName, f.IncludeHidden, f.Limit)
}

func (r *postgresReviewRepo) CountByUserStore(ctx context.Context, userID, storeName string) (int, error) {
	var n int
	err := r.executor.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM reviews WHERE user_id = $1 AND store_name = $2`, userID, storeName).Scan(&n)
	if err != nil {
		return 0, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to count user reviews")
	}
	return n, nil
}

func (r *postgresReviewRepo) ListPage(ctx context.Context, afterID string, limit int) ([]*review.Review, error) {
	query := `SELECT ` + reviewColumns + ` FROM reviews WHERE id > $1 ORDER BY id LIMIT $2`
	return r.query(ctx, query, afterID, limit)
}

// UpsertAnalyses writes the batch in one transaction.
func (r *postgresReviewRepo) UpsertAnalyses(ctx context.Context, reviews []*review.Review) error {
	if len(reviews) == 0 {
		return nil
	}
	return r.conn.WithTx(ctx, func(tx *sql.Tx) error {
		for _, rv := range reviews {
			args, err := reviewArgs(rv)
			if err != nil {
				return err
			}
			if _, err := tx.ExecContext(ctx, upsertAnalysisSQL, args...); err != nil {
				return errors.Wrap(err, errors.ErrCodeDatabaseError, fmt.Sprintf("failed to upsert review %s", rv.ID))
			}
		}
		return nil
	})
}

func (r *postgresReviewRepo) Stats(ctx context.Context, topStores int) (*review.Stats, error) {
	st := &review.Stats{TopStores: []review.StoreStat{}}
	err := r.executor.QueryRowContext(ctx,
		`SELECT COUNT(*), COALESCE(AVG(needsfine_score), 0) FROM reviews WHERE is_hidden = FALSE`,
	).Scan(&st.TotalReviews, &st.AverageScore)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to compute review stats")
	}

	rows, err := r.executor.QueryContext(ctx, `
		SELECT store_name, COUNT(*), AVG(needsfine_score) FROM reviews
		WHERE is_hidden = FALSE
		GROUP BY store_name
		ORDER BY COUNT(*) DESC, store_name
		LIMIT $1`, topStores)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to compute store stats")
	}
	defer rows.Close()
	for rows.Next() {
		var s review.StoreStat
		if err := rows.Scan(&s.StoreName, &s.ReviewCount, &s.AverageScore); err != nil {
			return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to scan store stats")
		}
		st.TopStores = append(st.TopStores, s)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to iterate store stats")
	}
	return st, nil
}

func (r *postgresReviewRepo) query(ctx context.Context, query string, args ...interface{}) ([]*review.Review, error) {
	rows, err := r.executor.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to list reviews")
	}
	defer rows.Close()

	out := []*review.Review{}
	for rows.Next() {
		rv, err := scanReview(rows)
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to scan review")
		}
		out = append(out, rv)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to iterate reviews")
	}
	return out, nil
}

func reviewArgs(rv *review.Review) ([]interface{}, error) {
	photos, err := json.Marshal(nonNilStrings(rv.PhotoURLs))
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeSerialization, "failed to encode photo urls")
	}
	tags := rv.Tags
	if tags == nil {
		tags = []scoring.TagResult{}
	}
	tagJSON, err := json.Marshal(tags)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeSerialization, "failed to encode tags")
	}
	var rating sql.NullFloat64
	if rv.UserRating != nil {
		rating = sql.NullFloat64{Float64: *rv.UserRating, Valid: true}
	}
	return []interface{}{
		rv.ID, rv.UserID, rv.StoreName, rv.StoreAddress, rv.ReviewText, rating, photos,
		rv.Score, rv.Trust, rv.Label, rv.Authenticity, tagJSON, rv.IsCritical, rv.IsHidden,
		rv.LogicVersion, rv.VisitCount, rv.CreatedAt, rv.UpdatedAt,
	}, nil
}

func scanReview(row scanner) (*review.Review, error) {
	var (
		rv           review.Review
		rating       sql.NullFloat64
		photos, tags []byte
	)
	err := row.Scan(&rv.ID, &rv.UserID, &rv.StoreName, &rv.StoreAddress, &rv.ReviewText, &rating, &photos,
		&rv.Score, &rv.Trust, &rv.Label, &rv.Authenticity, &tags, &rv.IsCritical, &rv.IsHidden,
		&rv.LogicVersion, &rv.VisitCount, &rv.CreatedAt, &rv.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if rating.Valid {
		v := rating.Float64
		rv.UserRating = &v
	}
	rv.PhotoURLs = []string{}
	if len(photos) > 0 {
		if err := json.Unmarshal(photos, &rv.PhotoURLs); err != nil {
			return nil, fmt.Errorf("decode photo_urls for %s: %w", rv.ID, err)
		}
	}
	if len(tags) > 0 {
		if err := json.Unmarshal(tags, &rv.Tags); err != nil {
			return nil, fmt.Errorf("decode tags for %s: %w", rv.ID, err)
		}
	}
	return &rv, nil
}

func nonNilStrings(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

package repositories

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/suite"

	"github.com/turtacn/NeedsFine/internal/domain/lexicon"
	"github.com/turtacn/NeedsFine/internal/domain/scoring"
	"github.com/turtacn/NeedsFine/internal/infrastructure/database/postgres"
	pkgerrors "github.com/turtacn/NeedsFine/pkg/errors"
)

var candidateColumnNames = []string{"term", "stats", "total_count", "best_aspect", "best_polarity", "confidence", "promoted", "first_seen", "last_seen"}

type CandidateRepoTestSuite struct {
	suite.Suite
	mock sqlmock.Sqlmock
	db   *sql.DB
	repo lexicon.CandidateRepository
	now  time.Time
}

func (s *CandidateRepoTestSuite) SetupTest() {
	var err error
	s.db, s.mock, err = sqlmock.New()
	s.Require().NoError(err)
	s.now = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	repo := NewPostgresCandidateRepo(postgres.NewConnectionWithDB(s.db, nil), nil).(*postgresCandidateRepo)
	repo.now = func() time.Time { return s.now }
	s.repo = repo
}

func (s *CandidateRepoTestSuite) TearDownTest() {
	s.NoError(s.mock.ExpectationsWereMet())
	s.db.Close()
}

func (s *CandidateRepoTestSuite) expectLock(inserted int64, stats string, total int) {
	s.mock.ExpectBegin()
	s.mock.ExpectExec("INSERT INTO term_candidates .* ON CONFLICT \\(term\\) DO NOTHING").
		WithArgs("꾸덕", s.now).
		WillReturnResult(sqlmock.NewResult(0, inserted))
	s.mock.ExpectQuery("SELECT term, stats, .* FROM term_candidates WHERE term = \\$1 FOR UPDATE").
		WithArgs("꾸덕").
		WillReturnRows(sqlmock.NewRows(candidateColumnNames).
			AddRow("꾸덕", []byte(stats), total, "", "", 0.0, false, s.now, s.now))
}

func (s *CandidateRepoTestSuite) TestMutate_NewTermIsSaved() {
	s.expectLock(1, `{}`, 0)
	s.mock.ExpectExec("UPDATE term_candidates SET").
		WithArgs("꾸덕", []byte(`{"taste|POS":1}`), 1, "taste", "POS", 1.0, false, s.now, s.now).
		WillReturnResult(sqlmock.NewResult(0, 1))
	s.mock.ExpectCommit()

	var sawExists bool
	err := s.repo.Mutate(context.Background(), "꾸덕", func(c *lexicon.Candidate, exists bool) (lexicon.Mutation, error) {
		sawExists = exists
		c.Record(scoring.AspectTaste, scoring.Positive, s.now)
		return lexicon.Mutation{}, nil
	})
	s.NoError(err)
	s.False(sawExists)
}

func (s *CandidateRepoTestSuite) TestMutate_ExistingTermMergesStats() {
	s.expectLock(0, `{"taste|POS":4}`, 4)
	s.mock.ExpectExec("UPDATE term_candidates SET").
		WithArgs("꾸덕", []byte(`{"taste|POS":5}`), 5, "taste", "POS", 1.0, false, s.now, s.now).
		WillReturnResult(sqlmock.NewResult(0, 1))
	s.mock.ExpectCommit()

	err := s.repo.Mutate(context.Background(), "꾸덕", func(c *lexicon.Candidate, exists bool) (lexicon.Mutation, error) {
		s.True(exists)
		s.Equal(4, c.Stats["taste|POS"])
		c.Record(scoring.AspectTaste, scoring.Positive, s.now)
		return lexicon.Mutation{}, nil
	})
	s.NoError(err)
}

func (s *CandidateRepoTestSuite) TestMutate_PromotionWritesCueAndDeletes() {
	s.expectLock(0, `{"taste|POS":2}`, 2)
	s.mock.ExpectExec("INSERT INTO lexicon_terms").WillReturnResult(sqlmock.NewResult(0, 1))
	s.mock.ExpectExec("DELETE FROM term_candidates WHERE term = \\$1").
		WithArgs("꾸덕").
		WillReturnResult(sqlmock.NewResult(0, 1))
	s.mock.ExpectCommit()

	err := s.repo.Mutate(context.Background(), "꾸덕", func(c *lexicon.Candidate, _ bool) (lexicon.Mutation, error) {
		cue := c.ManualCue(scoring.AspectTaste, scoring.Positive, s.now)
		return lexicon.Mutation{Cue: &cue, Delete: true}, nil
	})
	s.NoError(err)
}

func (s *CandidateRepoTestSuite) TestMutate_CallbackErrorRollsBack() {
	s.expectLock(1, `{}`, 0)
	s.mock.ExpectRollback()

	err := s.repo.Mutate(context.Background(), "꾸덕", func(*lexicon.Candidate, bool) (lexicon.Mutation, error) {
		return lexicon.Mutation{}, pkgerrors.New(pkgerrors.ErrCodeCandidateNotFound, "missing")
	})
	s.True(pkgerrors.IsCode(err, pkgerrors.ErrCodeCandidateNotFound))
}

func (s *CandidateRepoTestSuite) TestListPending() {
	s.mock.ExpectQuery("FROM term_candidates WHERE promoted = FALSE ORDER BY total_count DESC, term LIMIT \\$1").
		WithArgs(lexicon.PendingListLimit).
		WillReturnRows(sqlmock.NewRows(candidateColumnNames).
			AddRow("꾸덕", []byte(`{"taste|POS":3,"value|NEG":1}`), 4, "taste", "POS", 0.75, false, s.now, s.now))

	list, err := s.repo.ListPending(context.Background(), 0)
	s.Require().NoError(err)
	s.Require().Len(list, 1)
	s.Equal(3, list[0].Stats["taste|POS"])
	s.Equal(scoring.AspectTaste, list[0].BestAspect)
}

func (s *CandidateRepoTestSuite) TestGet_NotFound() {
	s.mock.ExpectQuery("FROM term_candidates WHERE term = \\$1").
		WithArgs("없음").
		WillReturnError(sql.ErrNoRows)

	_, err := s.repo.Get(context.Background(), "없음")
	s.True(pkgerrors.IsCode(err, pkgerrors.ErrCodeCandidateNotFound))
}

func TestCandidateRepoTestSuite(t *testing.T) {
	suite.Run(t, new(CandidateRepoTestSuite))
}

package repositories

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/suite"

	"github.com/turtacn/NeedsFine/internal/domain/review"
	"github.com/turtacn/NeedsFine/internal/domain/scoring"
	"github.com/turtacn/NeedsFine/internal/infrastructure/database/postgres"
	pkgerrors "github.com/turtacn/NeedsFine/pkg/errors"
)

var reviewColumnNames = []string{
	"id", "user_id", "store_name", "store_address", "review_text", "user_rating", "photo_urls",
	"needsfine_score", "trust_level", "label", "authenticity", "tags", "is_critical", "is_hidden",
	"logic_version", "visit_count", "created_at", "updated_at",
}

type ReviewRepoTestSuite struct {
	suite.Suite
	mock sqlmock.Sqlmock
	db   *sql.DB
	repo review.Repository
	now  time.Time
}

func (s *ReviewRepoTestSuite) SetupTest() {
	var err error
	s.db, s.mock, err = sqlmock.New()
	s.Require().NoError(err)
	s.repo = NewPostgresReviewRepo(postgres.NewConnectionWithDB(s.db, nil), nil)
	s.now = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
}

func (s *ReviewRepoTestSuite) TearDownTest() {
	s.NoError(s.mock.ExpectationsWereMet())
	s.db.Close()
}

func (s *ReviewRepoTestSuite) sample() *review.Review {
	rating := 4.0
	return &review.Review{
		ID: "r-1", UserID: "u-1", StoreName: "을지로 국밥", ReviewText: "국물이 진해요",
		UserRating: &rating, PhotoURLs: []string{"https://img/1.jpg"},
		Score: 3.4, Trust: 71, Label: "괜찮은 편", Authenticity: true,
		Tags:         []scoring.TagResult{{Aspect: scoring.AspectTaste, Label: "맛", Mentioned: true, Polarity: scoring.TagPositive, Strength: 0.8}},
		LogicVersion: scoring.LogicVersion, VisitCount: 1, CreatedAt: s.now, UpdatedAt: s.now,
	}
}

func (s *ReviewRepoTestSuite) row(rv *review.Review) *sqlmock.Rows {
	return sqlmock.NewRows(reviewColumnNames).AddRow(
		rv.ID, rv.UserID, rv.StoreName, rv.StoreAddress, rv.ReviewText, *rv.UserRating,
		[]byte(`["https://img/1.jpg"]`), rv.Score, rv.Trust, rv.Label, rv.Authenticity,
		[]byte(`[{"aspect":"taste","label":"맛","mentioned":true,"polarity":"POS","strength":0.8}]`),
		rv.IsCritical, rv.IsHidden, rv.LogicVersion, rv.VisitCount, rv.CreatedAt, rv.UpdatedAt,
	)
}

func (s *ReviewRepoTestSuite) TestCreate() {
	s.mock.ExpectExec("INSERT INTO reviews").
		WithArgs("r-1", "u-1", "을지로 국밥", "", "국물이 진해요", 4.0, []byte(`["https://img/1.jpg"]`),
			3.4, 71, "괜찮은 편", true, sqlmock.AnyArg(), false, false, scoring.LogicVersion, 1, s.now, s.now).
		WillReturnResult(sqlmock.NewResult(0, 1))

	s.NoError(s.repo.Create(context.Background(), s.sample()))
}

func (s *ReviewRepoTestSuite) TestCreate_NilRatingIsNull() {
	rv := s.sample()
	rv.UserRating = nil
	rv.PhotoURLs = nil
	s.mock.ExpectExec("INSERT INTO reviews").
		WithArgs("r-1", "u-1", "을지로 국밥", "", "국물이 진해요", nil, []byte(`[]`),
			sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(),
			sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	s.NoError(s.repo.Create(context.Background(), rv))
}

func (s *ReviewRepoTestSuite) TestCreate_Duplicate() {
	s.mock.ExpectExec("INSERT INTO reviews").WillReturnError(&pgconn.PgError{Code: "23505"})

	err := s.repo.Create(context.Background(), s.sample())
	s.True(pkgerrors.IsCode(err, pkgerrors.ErrCodeConflict))
}

func (s *ReviewRepoTestSuite) TestFindByID() {
	want := s.sample()
	s.mock.ExpectQuery("FROM reviews WHERE id = \\$1").WithArgs("r-1").WillReturnRows(s.row(want))

	got, err := s.repo.FindByID(context.Background(), "r-1")
	s.Require().NoError(err)
	s.Equal(want.StoreName, got.StoreName)
	s.Require().NotNil(got.UserRating)
	s.Equal(4.0, *got.UserRating)
	s.Equal([]string{"https://img/1.jpg"}, got.PhotoURLs)
	s.Require().Len(got.Tags, 1)
	s.Equal(scoring.TagPositive, got.Tags[0].Polarity)
}

func (s *ReviewRepoTestSuite) TestFindByID_NotFound() {
	s.mock.ExpectQuery("FROM reviews WHERE id = \\$1").WithArgs("nope").WillReturnError(sql.ErrNoRows)

	_, err := s.repo.FindByID(context.Background(), "nope")
	s.True(pkgerrors.IsCode(err, pkgerrors.ErrCodeReviewNotFound))
}

func (s *ReviewRepoTestSuite) TestList_AppliesFilterDefaults() {
	s.mock.ExpectQuery("FROM reviews\\s+WHERE \\(\\$1 = '' OR store_name = \\$1\\)").
		WithArgs("을지로 국밥", false, 20).
		WillReturnRows(s.row(s.sample()))

	list, err := s.repo.List(context.Background(), review.ListFilter{StoreName: "을지로 국밥"})
	s.Require().NoError(err)
	s.Len(list, 1)
}

func (s *ReviewRepoTestSuite) TestCountByUserStore() {
	s.mock.ExpectQuery("SELECT COUNT\\(\\*\\) FROM reviews WHERE user_id = \\$1 AND store_name = \\$2").
		WithArgs("u-1", "을지로 국밥").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(2))

	n, err := s.repo.CountByUserStore(context.Background(), "u-1", "을지로 국밥")
	s.NoError(err)
	s.Equal(2, n)
}

func (s *ReviewRepoTestSuite) TestListPage() {
	s.mock.ExpectQuery("FROM reviews WHERE id > \\$1 ORDER BY id LIMIT \\$2").
		WithArgs("", 50).
		WillReturnRows(sqlmock.NewRows(reviewColumnNames))

	list, err := s.repo.ListPage(context.Background(), "", 50)
	s.NoError(err)
	s.Empty(list)
}

func (s *ReviewRepoTestSuite) TestUpsertAnalyses_OneTransaction() {
	a, b := s.sample(), s.sample()
	b.ID = "r-2"
	s.mock.ExpectBegin()
	s.mock.ExpectExec("INSERT INTO reviews .* ON CONFLICT \\(id\\) DO UPDATE").WillReturnResult(sqlmock.NewResult(0, 1))
	s.mock.ExpectExec("INSERT INTO reviews .* ON CONFLICT \\(id\\) DO UPDATE").WillReturnResult(sqlmock.NewResult(0, 1))
	s.mock.ExpectCommit()

	s.NoError(s.repo.UpsertAnalyses(context.Background(), []*review.Review{a, b}))
}

func (s *ReviewRepoTestSuite) TestUpsertAnalyses_FailureRollsBack() {
	s.mock.ExpectBegin()
	s.mock.ExpectExec("INSERT INTO reviews").WillReturnError(errors.New("deadlock"))
	s.mock.ExpectRollback()

	err := s.repo.UpsertAnalyses(context.Background(), []*review.Review{s.sample()})
	s.True(pkgerrors.IsCode(err, pkgerrors.ErrCodeDatabaseError))
}

func (s *ReviewRepoTestSuite) TestUpsertAnalyses_Empty() {
	s.NoError(s.repo.UpsertAnalyses(context.Background(), nil))
}

func (s *ReviewRepoTestSuite) TestStats() {
	s.mock.ExpectQuery("SELECT COUNT\\(\\*\\), COALESCE\\(AVG\\(needsfine_score\\), 0\\) FROM reviews").
		WillReturnRows(sqlmock.NewRows([]string{"count", "avg"}).AddRow(3, 3.2))
	s.mock.ExpectQuery("GROUP BY store_name").
		WithArgs(10).
		WillReturnRows(sqlmock.NewRows([]string{"store_name", "count", "avg"}).
			AddRow("을지로 국밥", 2, 3.5).
			AddRow("성수 파스타", 1, 2.6))

	st, err := s.repo.Stats(context.Background(), 10)
	s.Require().NoError(err)
	s.Equal(3, st.TotalReviews)
	s.Equal(3.2, st.AverageScore)
	s.Require().Len(st.TopStores, 2)
	s.Equal("을지로 국밥", st.TopStores[0].StoreName)
	s.Equal(2, st.TopStores[0].ReviewCount)
}

func TestReviewRepoTestSuite(t *testing.T) {
	suite.Run(t, new(ReviewRepoTestSuite))
}

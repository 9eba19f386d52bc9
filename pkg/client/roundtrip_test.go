package client

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"github.com/turtacn/NeedsFine/internal/application/analysis"
	"github.com/turtacn/NeedsFine/internal/application/curation"
	"github.com/turtacn/NeedsFine/internal/domain/lexicon"
	"github.com/turtacn/NeedsFine/internal/domain/scoring"
	httpapi "github.com/turtacn/NeedsFine/internal/interfaces/http"
	"github.com/turtacn/NeedsFine/internal/interfaces/http/handlers"
	"github.com/turtacn/NeedsFine/internal/testutil"
	"github.com/turtacn/NeedsFine/pkg/errors"
)

const adminPassword = "letmein"

// RoundTripSuite drives the client against the real route tree over
// in-memory stores.
type RoundTripSuite struct {
	suite.Suite
	lexicon *testutil.LexiconStore
	client  *Client
}

func TestRoundTripSuite(t *testing.T) {
	suite.Run(t, new(RoundTripSuite))
}

func (s *RoundTripSuite) SetupTest() {
	s.lexicon = testutil.NewLexiconStore()
	reviews := testutil.NewReviewStore()
	inv := &testutil.CountingInvalidator{}
	mining := lexicon.DefaultMiningConfig()
	mining.AutoPromote = false
	promoter := lexicon.NewPromoter(s.lexicon, inv, mining, nil)

	_, err := promoter.UpsertCandidateTerms(context.Background(), []lexicon.TermEvent{
		{Term: "꾸덕", Aspect: scoring.AspectTaste, Polarity: scoring.Positive, Confidence: 1},
	})
	s.Require().NoError(err)

	svc := analysis.NewService(reviews, testutil.StaticCues{}, scoring.DefaultEngineConfig(), nil)
	router := httpapi.NewRouter(httpapi.RouterConfig{
		ReviewHandler: handlers.NewReviewHandler(svc, nil),
		AdminHandler:  handlers.NewAdminHandler(svc, curation.NewService(promoter, inv, nil, nil), nil),
		AdminPassword: adminPassword,
	})
	server := httptest.NewServer(router)
	s.T().Cleanup(server.Close)

	s.client, err = NewClient(server.URL, WithAdminPassword(adminPassword), WithRetryMax(0))
	s.Require().NoError(err)
}

func (s *RoundTripSuite) TestAnalyze() {
	res, err := s.client.Reviews().Analyze(context.Background(), &AnalyzeRequest{
		ReviewText: "맛있어요",
		UserRating: "4.5점",
		Debug:      true,
	})
	s.Require().NoError(err)
	s.Equal(string(scoring.ModeSimple), res.Mode)
	s.Equal(scoring.LogicVersion, res.LogicVersion)
	s.NotEmpty(res.Debug)
}

func (s *RoundTripSuite) TestReviewLifecycle() {
	ctx := context.Background()
	created, err := s.client.Reviews().Create(ctx, &CreateReviewRequest{
		StoreName:  "을지로 국밥",
		ReviewText: "국물이 진하고 고기가 부드러워요. 직원분들도 친절했어요.",
		UserRating: 4,
	})
	s.Require().NoError(err)
	s.NotEmpty(created.ID)
	s.Equal(scoring.LogicVersion, created.LogicVersion)

	got, err := s.client.Reviews().Get(ctx, created.ID)
	s.Require().NoError(err)
	s.Equal(created.ID, got.ID)
	s.Equal("을지로 국밥", got.StoreName)

	if !created.IsHidden {
		list, err := s.client.Reviews().List(ctx, ListReviewsOptions{StoreName: "을지로 국밥", Limit: 5})
		s.Require().NoError(err)
		s.Len(list, 1)
	}

	_, err = s.client.Reviews().Stats(ctx)
	s.NoError(err)

	_, err = s.client.Reviews().Get(ctx, "missing")
	s.True(errors.IsCode(err, errors.ErrCodeReviewNotFound))
}

func (s *RoundTripSuite) TestCuration() {
	ctx := context.Background()
	candidates, err := s.client.Admin().Candidates(ctx)
	s.Require().NoError(err)
	s.Require().Len(candidates, 1)
	s.Equal("꾸덕", candidates[0].Term)

	res, err := s.client.Admin().Approve(ctx, "꾸덕", "", "POS")
	s.Require().NoError(err)
	s.True(res.Success)
	s.Equal("Term '꾸덕' approved.", res.Message)
	_, ok := s.lexicon.Cue("꾸덕")
	s.True(ok)

	_, err = s.client.Admin().Reject(ctx, "없는말")
	s.True(errors.IsCode(err, errors.ErrCodeCandidateNotFound))

	s.NoError(s.client.Admin().InvalidateLexicon(ctx))
}

func (s *RoundTripSuite) TestAdminPasswordRequired() {
	anon, err := NewClient(s.client.baseURL, WithRetryMax(0))
	s.Require().NoError(err)

	_, err = anon.Admin().Candidates(context.Background())
	var apiErr *APIError
	s.Require().ErrorAs(err, &apiErr)
	s.True(apiErr.IsUnauthorized())
}

func TestAdmin_RecalculateWroteNothing(t *testing.T) {
	t.Parallel()
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/admin/recalculate", r.URL.Path)
		w.WriteHeader(http.StatusBadRequest)
		_, _ = io.WriteString(w, `{"success":false,"count":0,"total":3,"logic_version":"17.3.0","error":"no review rescored"}`)
	}, WithAdminPassword("pw"))

	res, err := c.Admin().Recalculate(context.Background())
	require.Error(t, err)
	require.NotNil(t, res)
	assert.False(t, res.Success)
	assert.Equal(t, 3, res.Total)
	assert.Contains(t, err.Error(), "no review rescored")
}

func TestAdmin_RecalculateSuccess(t *testing.T) {
	t.Parallel()
	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = io.WriteString(w, `{"success":true,"count":3,"total":3,"logic_version":"17.3.0"}`)
	})
	res, err := c.Admin().Recalculate(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, res.Count)
}

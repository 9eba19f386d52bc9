package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/NeedsFine/internal/application/analysis"
	"github.com/turtacn/NeedsFine/internal/application/curation"
	"github.com/turtacn/NeedsFine/internal/config"
	"github.com/turtacn/NeedsFine/internal/domain/lexicon"
	"github.com/turtacn/NeedsFine/internal/domain/scoring"
	"github.com/turtacn/NeedsFine/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/NeedsFine/internal/testutil"
	apperrors "github.com/turtacn/NeedsFine/pkg/errors"
)

type fakeBackend struct {
	analysis analysis.Service
	curation curation.Service
	closed   int
}

func (f *fakeBackend) Analysis() analysis.Service { return f.analysis }
func (f *fakeBackend) Curation() curation.Service { return f.curation }
func (f *fakeBackend) Close() error               { f.closed++; return nil }

type fakeMigrator struct {
	version uint
	up      int
	down    []int
	closed  bool
	err     error
}

func (m *fakeMigrator) Up() error {
	if m.err != nil {
		return m.err
	}
	m.up++
	m.version = 2
	return nil
}

func (m *fakeMigrator) Down(steps int) error {
	m.down = append(m.down, steps)
	m.version -= uint(steps)
	return nil
}

func (m *fakeMigrator) Version() (uint, bool, error) { return m.version, false, nil }
func (m *fakeMigrator) Close() error                 { m.closed = true; return nil }

type harness struct {
	backend  *fakeBackend
	migrator *fakeMigrator
	lexicon  *testutil.LexiconStore
	reviews  *testutil.ReviewStore
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	h := &harness{
		migrator: &fakeMigrator{},
		lexicon:  testutil.NewLexiconStore(),
		reviews:  testutil.NewReviewStore(),
	}
	engine := scoring.DefaultEngineConfig()
	mining := lexicon.DefaultMiningConfig()
	mining.AutoPromote = false
	inv := &testutil.CountingInvalidator{}
	promoter := lexicon.NewPromoter(h.lexicon, inv, mining, nil)
	h.backend = &fakeBackend{
		analysis: analysis.NewService(h.reviews, testutil.StaticCues{}, engine, nil),
		curation: curation.NewService(promoter, inv, nil, nil),
	}

	_, err := promoter.UpsertCandidateTerms(context.Background(), []lexicon.TermEvent{
		{Term: "꾸덕", Aspect: scoring.AspectTaste, Polarity: scoring.Positive, Confidence: 1},
		{Term: "꾸덕", Aspect: scoring.AspectTaste, Polarity: scoring.Positive, Confidence: 1},
	})
	require.NoError(t, err)
	return h
}

func (h *harness) run(stdin string, args ...string) (string, error) {
	cmd := NewRootCommand(
		WithConfigLoader(func(string) (*config.Config, error) {
			cfg := &config.Config{}
			config.ApplyDefaults(cfg)
			return cfg, nil
		}),
		WithBackend(func(context.Context, *config.Config, logging.Logger) (Backend, error) { return h.backend, nil }),
		WithMigrator(func(*config.Config, logging.Logger) (Migrator, error) { return h.migrator, nil }),
	)
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestNewRootCommand_Structure(t *testing.T) {
	t.Parallel()
	cmd := NewRootCommand()
	assert.Equal(t, "needsfine", cmd.Use)

	names := map[string]bool{}
	for _, sub := range cmd.Commands() {
		names[sub.Name()] = true
	}
	for _, want := range []string{"analyze", "migrate", "terms", "recalc", "version"} {
		assert.True(t, names[want], want)
	}
	for _, flag := range []string{"config", "log-level", "output"} {
		assert.NotNil(t, cmd.PersistentFlags().Lookup(flag), flag)
	}
}

func TestRoot_InvalidOutputFormat(t *testing.T) {
	t.Parallel()
	_, err := newHarness(t).run("", "version", "-o", "yaml")
	assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeBadRequest))
}

func TestRoot_ConfigFailure(t *testing.T) {
	t.Parallel()
	cmd := NewRootCommand(WithConfigLoader(func(string) (*config.Config, error) {
		return nil, errors.New("config: database.host is required")
	}))
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetArgs([]string{"version"})
	err := cmd.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "config initialization failed")
}

func TestAnalyze_JSON(t *testing.T) {
	t.Parallel()
	out, err := newHarness(t).run("", "analyze", "맛있어요", "--rating", "4.5점", "-o", "json")
	require.NoError(t, err)

	var res analysis.AnalyzeResult
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	assert.Equal(t, scoring.ModeSimple, res.Mode)
	assert.Equal(t, scoring.LogicVersion, res.LogicVersion)
	assert.Nil(t, res.Learning)
}

func TestAnalyze_Stdin(t *testing.T) {
	t.Parallel()
	out, err := newHarness(t).run("\n", "analyze", "-o", "json")
	require.NoError(t, err)

	var res analysis.AnalyzeResult
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	assert.Equal(t, scoring.ModeEmpty, res.Mode)
}

func TestAnalyze_Text(t *testing.T) {
	t.Parallel()
	out, err := newHarness(t).run("", "analyze", "맛있어요", "--all-evidence", "--debug")
	require.NoError(t, err)
	assert.Contains(t, out, "Score:")
	assert.Contains(t, out, "Mode:    SIMPLE")
	assert.Contains(t, out, "ASPECT")
	assert.Contains(t, out, "Policy: "+scoring.PolicyHybrid)
}

func TestAnalyze_InvalidRating(t *testing.T) {
	t.Parallel()
	_, err := newHarness(t).run("", "analyze", "맛있어요", "--rating", "별로")
	assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeBadRequest))
}

func TestAnalyze_WithLexiconUsesBackend(t *testing.T) {
	t.Parallel()
	h := newHarness(t)
	_, err := h.run("", "analyze", "맛있어요", "--with-lexicon")
	require.NoError(t, err)
	assert.Equal(t, 1, h.backend.closed)
	assert.Zero(t, h.reviews.Len())
}

func TestMigrate(t *testing.T) {
	t.Parallel()
	h := newHarness(t)

	out, err := h.run("", "migrate", "up")
	require.NoError(t, err)
	assert.Equal(t, "schema version 2\n", out)
	assert.Equal(t, 1, h.migrator.up)
	assert.True(t, h.migrator.closed)

	out, err = h.run("", "migrate", "down", "1", "-o", "json")
	require.NoError(t, err)
	assert.Equal(t, []int{1}, h.migrator.down)
	var st MigrationStatus
	require.NoError(t, json.Unmarshal([]byte(out), &st))
	assert.Equal(t, MigrationStatus{Action: "down", Version: 1}, st)

	_, err = h.run("", "migrate", "down", "0")
	assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeBadRequest))

	out, err = h.run("", "migrate", "version")
	require.NoError(t, err)
	assert.Equal(t, "schema version 1\n", out)
}

func TestMigrate_UpFailure(t *testing.T) {
	t.Parallel()
	h := newHarness(t)
	h.migrator.err = errors.New("dirty database version 2")

	_, err := h.run("", "migrate", "up")
	assert.EqualError(t, err, "dirty database version 2")
	assert.True(t, h.migrator.closed)
}

func TestTerms_List(t *testing.T) {
	t.Parallel()
	h := newHarness(t)

	out, err := h.run("", "terms", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "TERM")
	assert.Contains(t, out, "꾸덕")
	assert.Equal(t, 1, h.backend.closed)
}

func TestTerms_ApproveAndReject(t *testing.T) {
	t.Parallel()
	h := newHarness(t)

	out, err := h.run("", "terms", "approve", "꾸덕", "--polarity", "POS")
	require.NoError(t, err)
	assert.Equal(t, "Term '꾸덕' approved.\n", out)
	_, ok := h.lexicon.Cue("꾸덕")
	assert.True(t, ok)

	_, err = h.run("", "terms", "reject", "없는말")
	assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeCandidateNotFound))
}

func TestRecalc(t *testing.T) {
	t.Parallel()
	h := newHarness(t)
	_, err := h.backend.analysis.CreateReview(context.Background(), &analysis.CreateReviewInput{
		StoreName:  "을지로 국밥",
		ReviewText: "국물이 진하고 고기가 부드러워요.",
		UserRating: testutil.Float64(4),
	})
	require.NoError(t, err)

	out, err := h.run("", "recalc")
	require.NoError(t, err)
	assert.Equal(t, "rescored 1 of 1 reviews with logic "+scoring.LogicVersion+"\n", out)
}

func TestVersion_JSON(t *testing.T) {
	t.Parallel()
	out, err := newHarness(t).run("", "version", "-o", "json")
	require.NoError(t, err)

	var info VersionInfo
	require.NoError(t, json.Unmarshal([]byte(out), &info))
	assert.Equal(t, scoring.LogicVersion, info.LogicVersion)
	assert.Equal(t, scoring.PolicyHybrid, info.Policy)
}

func TestFormatTable_WideRunes(t *testing.T) {
	t.Parallel()
	out := FormatTable([]string{"TERM", "N"}, [][]string{{"꾸덕", "3"}, {"abc", "12"}})
	lines := strings.Split(strings.TrimRight(out, "\n"), "\n")
	require.Len(t, lines, 4)
	assert.Equal(t, "TERM  N ", lines[0])
	assert.Equal(t, "----  --", lines[1])
	assert.Equal(t, "꾸덕  3 ", lines[2])
	assert.Equal(t, "abc   12", lines[3])
	assert.Empty(t, FormatTable(nil, nil))
}

package scoring

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDetectStrongNegative(t *testing.T) {
	t.Parallel()
	cfg := DefaultEngineConfig()
	cases := []struct {
		text     string
		category StrongNegCategory
		ceiling  float64
	}{
		{"음식에서 벌레가 나왔어요", StrongNegHygieneCritical, 1.8},
		{"계산 실수를 하더니 바가지", StrongNegFraudPrice, 2.5},
		{"다시는 안 갑니다", StrongNegNeverAgain, 2.9},
		{"사장님이 반말을 하시네요", StrongNegServiceExtreme, 2.8},
		{"그냥 최악이에요", StrongNegGenericExtreme, 2.9},
		// severity order: hygiene beats never-again
		{"벌레 나와서 다신 안 와요", StrongNegHygieneCritical, 1.8},
	}
	for _, tc := range cases {
		got := DetectStrongNegative(Normalize(tc.text), cfg)
		assert.True(t, got.Flag, tc.text)
		assert.Equal(t, tc.category, got.Category, tc.text)
		assert.Equal(t, tc.ceiling, got.Ceiling, tc.text)
		assert.NotEmpty(t, got.Matched, tc.text)
	}
}

func TestDetectStrongNegative_None(t *testing.T) {
	t.Parallel()
	got := DetectStrongNegative("맛있어요", DefaultEngineConfig())
	assert.Equal(t, NoStrongNegative(), got)
	assert.False(t, got.Flag)
	assert.Equal(t, 5.0, got.Ceiling)
}

func TestDetectStrongNegative_MaskedTextIgnoresMetaStatements(t *testing.T) {
	t.Parallel()
	masked := Mask(Normalize("위생 문제 얘기는 없었어요. 벌레 같은 것도 없고요"))
	got := DetectStrongNegative(masked, DefaultEngineConfig())
	// the second clause is not a meta statement and still counts
	assert.True(t, got.Flag)
	assert.Equal(t, []string{"벌레"}, got.Matched)
}

func TestDetectStrongNegative_ReportsAllMatches(t *testing.T) {
	t.Parallel()
	got := DetectStrongNegative("벌레도 나오고 악취도 나요", DefaultEngineConfig())
	assert.Equal(t, []string{"벌레", "악취"}, got.Matched)
}

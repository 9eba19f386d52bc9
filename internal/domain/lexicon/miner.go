package lexicon

import (
	"math"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/turtacn/NeedsFine/internal/domain/scoring"
)

// MiningConfig bounds term mining and auto-promotion.
type MiningConfig struct {
	Enabled              bool    `mapstructure:"enabled" json:"enabled"`
	MinTokenLen          int     `mapstructure:"min_token_len" json:"min_token_len"`
	MaxTokenLen          int     `mapstructure:"max_token_len" json:"max_token_len"`
	MinSignal            float64 `mapstructure:"min_signal" json:"min_signal"`
	MinConfidence        float64 `mapstructure:"min_confidence" json:"min_confidence"`
	MaxEventsPerReview   int     `mapstructure:"max_events_per_review" json:"max_events_per_review"`
	AutoPromote          bool    `mapstructure:"auto_promote" json:"auto_promote"`
	PromoteMinCount      int     `mapstructure:"promote_min_count" json:"promote_min_count"`
	PromoteMinConfidence float64 `mapstructure:"promote_min_confidence" json:"promote_min_confidence"`
}

// DefaultMiningConfig returns the production mining thresholds.
func DefaultMiningConfig() MiningConfig {
	return MiningConfig{
		Enabled:              true,
		MinTokenLen:          2,
		MaxTokenLen:          10,
		MinSignal:            0.5,
		MinConfidence:        0.6,
		MaxEventsPerReview:   12,
		AutoPromote:          true,
		PromoteMinCount:      5,
		PromoteMinConfidence: 0.8,
	}
}

// particles are stripped once from the end of a token, longest first.
var particles = []string{"으로", "에서", "까지", "이", "가", "은", "는", "을", "를", "도", "만", "의", "에", "로", "랑", "과", "와", "요"}

var stopwords = func() map[string]bool {
	m := make(map[string]bool)
	for _, w := range []string{
		"그리고", "그래서", "그냥", "정말", "진짜", "너무", "완전", "엄청", "많이", "조금",
		"저희", "우리", "제가", "저는", "여기", "거기", "이번", "오늘", "어제", "다음",
		"방문", "가게", "식당", "음식", "메뉴", "사장님", "직원", "직원분", "손님", "리뷰",
		"있어", "없어", "있었", "없었", "했어", "했는데", "먹었", "먹었는데", "같아", "같은",
		"이거", "그거", "저거", "이곳", "그곳", "하나", "두개", "주문", "시켰", "시켜",
	} {
		m[w] = true
	}
	for _, group := range [][]string{scoring.ContrastWords, scoring.Intensifiers, scoring.Hedges} {
		for _, w := range group {
			m[w] = true
		}
	}
	return m
}()

type token struct {
	text       string
	start, end int // rune span of the raw run
}

// MineTermEvents proposes terms from one analyzed review. Each unique token
// that is not already explained by evidence or the lexicon is attributed to
// the aspect whose net evidence dominates its sentence.
func MineTermEvents(normalized string, evidence []scoring.EvidenceHit, cues []scoring.DynamicCue, cfg MiningConfig) []TermEvent {
	if normalized == "" || len(evidence) == 0 || cfg.MaxEventsPerReview <= 0 {
		return nil
	}
	known := make(map[string]bool, len(cues))
	for _, c := range cues {
		known[strings.ToLower(c.Term)] = true
	}

	seg := scoring.Segment(normalized)
	bySentence := make(map[int]map[scoring.Aspect]float64)
	for _, h := range evidence {
		idx := seg.SentenceIndex(h.Start)
		if bySentence[idx] == nil {
			bySentence[idx] = make(map[scoring.Aspect]float64)
		}
		w := h.Weight
		if h.Polarity == scoring.Negative {
			w = -w
		}
		bySentence[idx][h.Aspect] += w
	}

	seen := make(map[string]bool)
	var events []TermEvent
	for _, tok := range tokenize(normalized) {
		if len(events) >= cfg.MaxEventsPerReview {
			break
		}
		term := stripParticle(tok.text)
		if seen[term] || !keepToken(term, cfg) || known[term] || overlapsEvidence(tok, evidence) {
			continue
		}
		seen[term] = true

		net := bySentence[seg.SentenceIndex(tok.start)]
		if ev, ok := attribute(term, net, cfg); ok {
			events = append(events, ev)
		}
	}
	return events
}

func tokenize(s string) []token {
	var out []token
	var b strings.Builder
	start, i := -1, 0
	flush := func() {
		if start >= 0 {
			out = append(out, token{text: b.String(), start: start, end: i})
			b.Reset()
			start = -1
		}
	}
	for _, r := range s {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			if start < 0 {
				start = i
			}
			b.WriteRune(r)
		} else {
			flush()
		}
		i++
	}
	flush()
	return out
}

func stripParticle(t string) string {
	n := utf8.RuneCountInString(t)
	for _, p := range particles {
		if strings.HasSuffix(t, p) && n-utf8.RuneCountInString(p) >= 2 {
			return strings.TrimSuffix(t, p)
		}
	}
	return t
}

func keepToken(t string, cfg MiningConfig) bool {
	n := utf8.RuneCountInString(t)
	if n < cfg.MinTokenLen || n > cfg.MaxTokenLen || stopwords[t] {
		return false
	}
	hangul, numeric := false, true
	for _, r := range t {
		if r >= '가' && r <= '힣' {
			hangul = true
		}
		if !unicode.IsDigit(r) {
			numeric = false
		}
	}
	return hangul && !numeric
}

func overlapsEvidence(t token, evidence []scoring.EvidenceHit) bool {
	for _, h := range evidence {
		if t.start < h.End && h.Start < t.end {
			return true
		}
	}
	return false
}

func attribute(term string, net map[scoring.Aspect]float64, cfg MiningConfig) (TermEvent, bool) {
	var (
		bestAspect   scoring.Aspect
		best, second float64
		bestSigned   float64
	)
	for _, a := range scoring.AllAspects {
		v, ok := net[a]
		if !ok {
			continue
		}
		abs := math.Abs(v)
		switch {
		case abs > best:
			second = best
			best, bestAspect, bestSigned = abs, a, v
		case abs > second:
			second = abs
		}
	}
	if bestAspect == "" || best < cfg.MinSignal {
		return TermEvent{}, false
	}
	conf := best / (best + second)
	if conf < cfg.MinConfidence {
		return TermEvent{}, false
	}
	pol := scoring.Positive
	if bestSigned < 0 {
		pol = scoring.Negative
	}
	return TermEvent{Term: term, Aspect: bestAspect, Polarity: pol, Confidence: conf}, true
}

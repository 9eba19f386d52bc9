package scoring

import (
	"math"
	"sort"
	"strings"
)

// Mode names the branch of the decision ladder that produced a score.
type Mode string

const (
	ModeEmpty             Mode = "EMPTY"
	ModeHardNoise         Mode = "HARD_NOISE"
	ModeSimple            Mode = "SIMPLE"
	ModeIrrelevant        Mode = "IRRELEVANT"
	ModeRegular           Mode = "REGULAR"
	ModeLongMixed         Mode = "LONG_MIXED"
	ModeLongPositiveFloor Mode = "LONG_POSITIVE_FLOOR"
)

// ReviewInput is a single review to score. A nil UserRating means the user
// gave no rating.
type ReviewInput struct {
	Text       string
	UserRating *float64
	HasPhoto   bool
}

// Options tune what Analyze returns, never how it scores.
type Options struct {
	Debug             bool
	ReturnAllEvidence bool
}

// Evidence is the user-facing evidence summary.
type Evidence struct {
	Positive       []EvidenceHit      `json:"positive"`
	Negative       []EvidenceHit      `json:"negative"`
	StrongNegative StrongNegativeInfo `json:"strong_negative"`
}

// Analysis is the engine result.
type Analysis struct {
	Score       float64       `json:"score"`
	Trust       int           `json:"trust"`
	Label       string        `json:"label"`
	Mode        Mode          `json:"mode"`
	Tags        []TagResult   `json:"tags"`
	Evidence    Evidence      `json:"evidence"`
	AllEvidence []EvidenceHit `json:"all_evidence,omitempty"`
	// Normalized is kept for term mining; it is not part of the wire format.
	Normalized string `json:"-"`
	Debug      *Debug `json:"debug,omitempty"`
}

// IsCritical reports whether the review should be flagged for attention.
func (a Analysis) IsCritical() bool {
	return a.Score <= 2.0 || a.Evidence.StrongNegative.Flag
}

// Features are the measurements behind a score, exposed in debug output.
type Features struct {
	LenNoSpace          int     `json:"len_no_space"`
	SentenceCount       int     `json:"sentence_count"`
	HasNumbers          bool    `json:"has_numbers"`
	HasPrice            bool    `json:"has_price"`
	HasTime             bool    `json:"has_time"`
	HasDetail           bool    `json:"has_detail"`
	DetailSignals       int     `json:"detail_signals"`
	HangulRatio         float64 `json:"hangul_ratio"`
	DistinctPosAxes     int     `json:"distinct_pos_axes"`
	DistinctPosEvidence int     `json:"distinct_pos_evidence"`
	TastePos            float64 `json:"taste_pos"`
	NegNonCaveatSum     float64 `json:"neg_non_caveat_sum"`
	PosContrib          float64 `json:"pos_contrib"`
	NegContrib          float64 `json:"neg_contrib"`
	PosSum              float64 `json:"pos_sum"`
	MajorNegSum         float64 `json:"major_neg_sum"`
	MinorNegSum         float64 `json:"minor_neg_sum"`
	PosDominant         bool    `json:"pos_dominant"`
	SevereNeg           bool    `json:"severe_neg"`
	Neutralized         int     `json:"neutralized"`
	HasPhoto            bool    `json:"has_photo"`
}

// Debug is the full decision trace.
type Debug struct {
	Normalized       string   `json:"normalized"`
	Masked           string   `json:"masked"`
	Policy           string   `json:"policy"`
	Mode             Mode     `json:"mode"`
	AppliedCaps      []string `json:"applied_caps"`
	BaseScore        float64  `json:"base_score"`
	RegularScore     float64  `json:"regular_score"`
	LongMixedScore   *float64 `json:"long_mixed_score,omitempty"`
	RawScore         float64  `json:"raw_score"`
	DetailBonus      float64  `json:"detail_bonus"`
	SynergyBonus     float64  `json:"synergy_bonus"`
	RatingLift       float64  `json:"rating_lift"`
	CaveatAttenuated bool     `json:"caveat_attenuated"`
	UserRating       *float64 `json:"user_rating,omitempty"`
	TrustBase        int      `json:"trust_base"`
	TrustCaps        []string `json:"trust_caps"`
	PosAxes          []Aspect `json:"pos_axes"`
	NegAxes          []Aspect `json:"neg_axes"`
	Features         Features `json:"features"`
}

// NormalizeRating treats NaN/Inf as absent and clamps to [0,5].
func NormalizeRating(r *float64) *float64 {
	if r == nil || math.IsNaN(*r) || math.IsInf(*r, 0) {
		return nil
	}
	v := clamp(*r, 0, 5)
	return &v
}

// Analyze scores one review. It is a pure function of its arguments and is
// safe for concurrent use.
func Analyze(in ReviewInput, opts Options, cfg EngineConfig, cues []DynamicCue) Analysis {
	normalized := Normalize(in.Text)
	rating := NormalizeRating(in.UserRating)
	lenNoSpace := LenNoSpace(normalized)

	if normalized == "" || lenNoSpace <= 1 {
		return earlyExit(normalized, ModeEmpty, cfg.EmptyScore, emptyTrust(in.HasPhoto, cfg), in, rating, opts, cfg)
	}
	if isHardNoise(normalized) {
		return earlyExit(normalized, ModeHardNoise, 0, 0, in, rating, opts, cfg)
	}

	mentions := DetectMentions(normalized)
	ex := ExtractEvidence(normalized, cfg, cues)
	strongNeg := DetectStrongNegative(ex.Masked, cfg)
	agg := Aggregate(ex.Hits, mentions, cfg)

	var posHits, negHits []EvidenceHit
	for _, h := range ex.Hits {
		if h.Polarity == Positive {
			posHits = append(posHits, h)
		} else {
			negHits = append(negHits, h)
		}
	}

	f := Features{
		LenNoSpace:    lenNoSpace,
		SentenceCount: ex.Segmentation.Count(),
		HasNumbers:    rxDigit.MatchString(normalized),
		HasPrice:      rxPrice.MatchString(normalized),
		HasTime:       rxTime.MatchString(normalized),
		HasDetail:     rxDetailKeyword.MatchString(normalized),
		HangulRatio:   HangulRatio(normalized),
		Neutralized:   ex.Neutralized,
		HasPhoto:      in.HasPhoto,
	}

	trustBase := TrustBase(TrustFeatures{
		Normalized:     normalized,
		LenNoSpace:     lenNoSpace,
		SentenceCount:  f.SentenceCount,
		HangulRatio:    f.HangulRatio,
		MentionCount:   len(mentions),
		HasNumbers:     f.HasNumbers,
		HasPrice:       f.HasPrice,
		HasTime:        f.HasTime,
		HasDetail:      f.HasDetail,
		EvidenceCount:  len(ex.Hits),
		PosEvidence:    len(posHits),
		NegEvidence:    len(negHits),
		StrongNegative: strongNeg,
		UserRating:     rating,
	})

	c := &composer{
		cfg:       cfg,
		rating:    rating,
		agg:       agg,
		posHits:   posHits,
		negHits:   negHits,
		strongNeg: strongNeg,
		f:         &f,
	}

	var (
		score float64
		trust int
		caps  []string
		mode  Mode
	)
	switch {
	case isSimple(normalized, lenNoSpace, f, ex.Hits, strongNeg, cfg):
		mode = ModeSimple
		trust, caps = ApplyTrustCaps(cfg.SimpleTrust, in.HasPhoto, cfg)
		score = cfg.SimplePositiveScore
		if ex.Hits[0].Polarity == Negative {
			score = cfg.SimpleNegativeScore
		}
		score = c.finishSimple(score)
	case len(mentions) == 0 && len(ex.Hits) == 0 && HangulRatio(compact(normalized)) < cfg.MinHangulRatio:
		mode = ModeIrrelevant
		score, trust = 0, 0
	default:
		trust, caps = ApplyTrustCaps(trustBase, in.HasPhoto, cfg)
		c.trust = trust
		score, mode = c.compose()
	}

	out := Analysis{
		Score:      score,
		Trust:      trust,
		Label:      ScoreToLabel(score),
		Mode:       mode,
		Tags:       agg.MentionedTags(),
		Evidence:   Evidence{Positive: topByWeight(posHits, 2), Negative: topByWeight(negHits, 2), StrongNegative: strongNeg},
		Normalized: normalized,
	}
	if mode == ModeIrrelevant {
		out.Tags = []TagResult{}
	}
	if opts.ReturnAllEvidence {
		out.AllEvidence = append([]EvidenceHit{}, ex.Hits...)
	}
	if opts.Debug {
		out.Debug = &Debug{
			Normalized:       normalized,
			Masked:           ex.Masked,
			Policy:           cfg.Policy,
			Mode:             mode,
			AppliedCaps:      nonNil(c.caps),
			BaseScore:        cfg.BaseScore,
			RegularScore:     c.regular,
			LongMixedScore:   c.longMixed,
			RawScore:         c.raw,
			DetailBonus:      c.detailBonus,
			SynergyBonus:     c.synergyBonus,
			RatingLift:       c.ratingLift,
			CaveatAttenuated: c.caveatAttenuated,
			UserRating:       rating,
			TrustBase:        trustBase,
			TrustCaps:        nonNil(caps),
			PosAxes:          append([]Aspect{}, agg.PosAxes...),
			NegAxes:          append([]Aspect{}, agg.NegAxes...),
			Features:         f,
		}
	}
	return out
}

func emptyTrust(hasPhoto bool, cfg EngineConfig) int {
	if hasPhoto {
		return cfg.EmptyPhotoTrust
	}
	return 0
}

func earlyExit(normalized string, mode Mode, score float64, trust int, in ReviewInput, rating *float64, opts Options, cfg EngineConfig) Analysis {
	trust, trustCaps := ApplyTrustCaps(trust, in.HasPhoto, cfg)
	out := Analysis{
		Score:      score,
		Trust:      trust,
		Label:      ScoreToLabel(score),
		Mode:       mode,
		Tags:       []TagResult{},
		Evidence:   Evidence{Positive: []EvidenceHit{}, Negative: []EvidenceHit{}, StrongNegative: NoStrongNegative()},
		Normalized: normalized,
	}
	if opts.ReturnAllEvidence {
		out.AllEvidence = []EvidenceHit{}
	}
	if opts.Debug {
		out.Debug = &Debug{
			Normalized:  normalized,
			Masked:      normalized,
			Policy:      cfg.Policy,
			Mode:        mode,
			AppliedCaps: []string{string(mode)},
			BaseScore:   cfg.BaseScore,
			RawScore:    score,
			UserRating:  rating,
			TrustCaps:   nonNil(trustCaps),
			PosAxes:     []Aspect{},
			NegAxes:     []Aspect{},
			Features:    Features{LenNoSpace: LenNoSpace(normalized), HasPhoto: in.HasPhoto},
		}
	}
	return out
}

// isHardNoise reports text made only of filler (laugh/cry jamo and
// punctuation) or only of test tokens.
func isHardNoise(normalized string) bool {
	if rxFillerOnly.MatchString(normalized) {
		return true
	}
	fields := strings.Fields(normalized)
	if len(fields) == 0 {
		return false
	}
	for _, tok := range fields {
		tok = strings.Trim(tok, "!?.,~")
		if tok != "" && !rxTestToken.MatchString(tok) {
			return false
		}
	}
	return true
}

func isSimple(normalized string, lenNoSpace int, f Features, hits []EvidenceHit, sn StrongNegativeInfo, cfg EngineConfig) bool {
	if lenNoSpace > cfg.SimpleMaxLenNoSpace || f.SentenceCount != 1 || len(hits) == 0 || sn.Flag {
		return false
	}
	for _, h := range hits[1:] {
		if h.Polarity != hits[0].Polarity {
			return false
		}
	}
	return !HasContrastWord(normalized) && !f.HasNumbers && !f.HasDetail
}

func topByWeight(hits []EvidenceHit, n int) []EvidenceHit {
	out := append([]EvidenceHit{}, hits...)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Weight > out[j].Weight })
	if len(out) > n {
		out = out[:n]
	}
	return out
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

// ScoreToLabel maps a final score to its display label.
func ScoreToLabel(score float64) string {
	switch {
	case score < 2.0:
		return "많이 노력해야하는 집"
	case score < 3.0:
		return "노력해야하는 집"
	case score < 3.4:
		return "먹을만한 집 / 호불호 갈리는 집"
	case score < 3.8:
		return "괜찮은 집"
	case score < 4.1:
		return "맛있는 집"
	case score < 4.5:
		return "로컬맛집"
	default:
		return "웨이팅 찐맛집"
	}
}

package scoring

import (
	"fmt"
	"sort"
	"strings"

	apperrors "github.com/turtacn/NeedsFine/pkg/errors"
)

const (
	// PolicyHybrid is the only supported scoring policy.
	PolicyHybrid = "17.3-hybrid"

	// LogicVersion is reported with every persisted analysis.
	LogicVersion = "17.3.0"
)

// EngineConfig is the complete set of scoring constants. It is passed by
// value; use Clone before mutating the aspect tables of a shared instance.
type EngineConfig struct {
	Policy string `json:"policy"`

	BaseScore     float64 `json:"base_score"`
	RoundingStep  float64 `json:"rounding_step"`
	SnippetRadius int     `json:"snippet_radius"`
	MinScore      float64 `json:"min_score"`
	MaxScore      float64 `json:"max_score"`

	PosCoef  AspectTable `json:"pos_coef"`
	NegCoef  AspectTable `json:"neg_coef"`
	PosScale AspectTable `json:"pos_scale"`
	NegScale AspectTable `json:"neg_scale"`

	AspectPosThreshold float64 `json:"aspect_pos_threshold"`
	AspectNegThreshold float64 `json:"aspect_neg_threshold"`

	// 4.0 gate
	MinPosAxesFor4      int      `json:"min_pos_axes_for_4"`
	MinPosEvidenceFor4  int      `json:"min_pos_evidence_for_4"`
	RequireCoreAxisFor4 bool     `json:"require_core_axis_for_4"`
	CoreAxes            []Aspect `json:"core_axes"`
	CapIfGateFail4      float64  `json:"cap_if_gate_fail_4"`

	// 4.5 gate
	MinPosAxesFor45 int     `json:"min_pos_axes_for_45"`
	MinLenFor45     int     `json:"min_len_for_45"`
	CapIfGateFail45 float64 `json:"cap_if_gate_fail_45"`

	// weight multipliers
	RecencyBoost        float64 `json:"recency_boost"`
	ContrastPostBoost   float64 `json:"contrast_post_boost"`
	ContrastPrePenalty  float64 `json:"contrast_pre_penalty"`
	IntensityBoost      float64 `json:"intensity_boost"`
	HedgePenalty        float64 `json:"hedge_penalty"`
	ExclamBoost         float64 `json:"exclam_boost"`
	MaxWeightMultiplier float64 `json:"max_weight_multiplier"`
	PreferencePenalty   float64 `json:"preference_penalty"`

	MaxDetailBonus float64 `json:"max_detail_bonus"`

	CaveatAspects              []Aspect `json:"caveat_aspects"`
	CaveatNegAttenuation       float64  `json:"caveat_neg_attenuation"`
	CaveatApplyTastePosMin     float64  `json:"caveat_apply_taste_pos_min"`
	CaveatApplyNegNonCaveatMax float64  `json:"caveat_apply_neg_non_caveat_max"`

	TrustMax        int `json:"trust_max"`
	TrustMaxNoPhoto int `json:"trust_max_no_photo"`

	ScoreCapUserRatingLt2 float64 `json:"score_cap_user_rating_lt2"`
	ScoreCapUserRatingLt3 float64 `json:"score_cap_user_rating_lt3"`
	ScoreCapUserRatingLt4 float64 `json:"score_cap_user_rating_lt4"`

	EnableUserRatingLift     bool    `json:"enable_user_rating_lift"`
	RatingLiftPerStar        float64 `json:"rating_lift_per_star"`
	RatingLiftMax            float64 `json:"rating_lift_max"`
	RatingLiftMinLen         int     `json:"rating_lift_min_len"`
	RatingLiftMinPosEvidence int     `json:"rating_lift_min_pos_evidence"`

	EnableHighRatingFloor        bool    `json:"enable_high_rating_floor"`
	HighRatingFloorMinUserRating float64 `json:"high_rating_floor_min_user_rating"`
	HighRatingFloorMinScore      float64 `json:"high_rating_floor_min_score"`
	HighRatingFloorPerStar       float64 `json:"high_rating_floor_per_star"`

	EnableLongMixedMode        bool    `json:"enable_long_mixed_mode"`
	LongMixedMinLenNoSpace     int     `json:"long_mixed_min_len_no_space"`
	LongMixedRatingDelta       float64 `json:"long_mixed_rating_delta"`
	LongMixedPosGainMultiplier float64 `json:"long_mixed_pos_gain_multiplier"`
	LongMixedMinPosEvidence    int     `json:"long_mixed_min_pos_evidence"`
	LongMixedMinNegEvidence    int     `json:"long_mixed_min_neg_evidence"`

	EnableLongPositiveFloor   bool    `json:"enable_long_positive_floor"`
	LongPositiveMinUserRating float64 `json:"long_positive_min_user_rating"`
	LongPositiveMinLenNoSpace int     `json:"long_positive_min_len_no_space"`
	LongPositiveRatingDelta   float64 `json:"long_positive_rating_delta"`
	LongPositiveMaxMajorNeg   float64 `json:"long_positive_max_major_neg"`

	EnableAnchoring         bool    `json:"enable_anchoring"`
	UserRatingMaxUp         float64 `json:"user_rating_max_up"`
	UserRatingMaxDownNormal float64 `json:"user_rating_max_down_normal"`
	UserRatingMaxDownSevere float64 `json:"user_rating_max_down_severe"`
	PosDominantMinPosCount  int     `json:"pos_dominant_min_pos_count"`
	PosDominantRatio        float64 `json:"pos_dominant_ratio"`
	MinorNegFactor          float64 `json:"minor_neg_factor"`
	MinorOnlyMinUserRating  float64 `json:"minor_only_min_user_rating"`
	MinorOnlyRatingBias     float64 `json:"minor_only_rating_bias"`
	MinorOnlyNegPenalty     float64 `json:"minor_only_neg_penalty"`
	MinorOnlyFloor          float64 `json:"minor_only_floor"`

	EmptyScore          float64 `json:"empty_score"`
	EmptyPhotoTrust     int     `json:"empty_photo_trust"`
	SimpleMaxLenNoSpace int     `json:"simple_max_len_no_space"`
	SimplePositiveScore float64 `json:"simple_positive_score"`
	SimpleNegativeScore float64 `json:"simple_negative_score"`
	SimpleTrust         int     `json:"simple_trust"`
	MinHangulRatio      float64 `json:"min_hangul_ratio"`

	LowTrustThreshold int     `json:"low_trust_threshold"`
	LowTrustScoreCap  float64 `json:"low_trust_score_cap"`

	HygieneCriticalCeiling float64 `json:"hygiene_critical_ceiling"`
	FraudPriceCeiling      float64 `json:"fraud_price_ceiling"`
	NeverAgainCeiling      float64 `json:"never_again_ceiling"`
	ServiceExtremeCeiling  float64 `json:"service_extreme_ceiling"`
	GenericExtremeCeiling  float64 `json:"generic_extreme_ceiling"`
}

// DefaultEngineConfig returns a fresh copy of the canonical policy.
func DefaultEngineConfig() EngineConfig {
	return EngineConfig{
		Policy:        PolicyHybrid,
		BaseScore:     2.78,
		RoundingStep:  0.1,
		SnippetRadius: 14,
		MinScore:      1.0,
		MaxScore:      4.65,

		PosCoef: AspectTable{
			AspectTaste: 0.74, AspectService: 0.42, AspectValue: 0.32,
			AspectRevisit: 0.28, AspectHygiene: 0.22, AspectAmbience: 0.32,
			AspectWait: 0.14, AspectPortion: 0.24, AspectOverall: 0.28,
		},
		NegCoef: AspectTable{
			AspectTaste: 0.95, AspectService: 0.68, AspectValue: 0.50,
			AspectRevisit: 0.80, AspectHygiene: 0.95, AspectAmbience: 0.38,
			AspectWait: 0.40, AspectPortion: 0.28, AspectOverall: 0.40,
		},
		PosScale: AspectTable{
			AspectTaste: 1.05, AspectService: 0.95, AspectValue: 0.95,
			AspectRevisit: 0.88, AspectHygiene: 0.85, AspectAmbience: 0.95,
			AspectWait: 0.95, AspectPortion: 0.95, AspectOverall: 1.0,
		},
		NegScale: AspectTable{
			AspectTaste: 1.25, AspectService: 1.05, AspectValue: 1.10,
			AspectRevisit: 1.05, AspectHygiene: 0.95, AspectAmbience: 1.05,
			AspectWait: 1.0, AspectPortion: 1.0, AspectOverall: 1.10,
		},

		AspectPosThreshold: 0.45,
		AspectNegThreshold: 0.45,

		MinPosAxesFor4:      2,
		MinPosEvidenceFor4:  2,
		RequireCoreAxisFor4: true,
		CoreAxes:            []Aspect{AspectTaste, AspectService, AspectValue, AspectHygiene},
		CapIfGateFail4:      3.9,

		MinPosAxesFor45: 3,
		MinLenFor45:     120,
		CapIfGateFail45: 4.4,

		RecencyBoost:        0.05,
		ContrastPostBoost:   0.12,
		ContrastPrePenalty:  0.12,
		IntensityBoost:      1.22,
		HedgePenalty:        0.86,
		ExclamBoost:         1.08,
		MaxWeightMultiplier: 1.45,
		PreferencePenalty:   0.88,

		MaxDetailBonus: 0.28,

		CaveatAspects:              []Aspect{AspectWait, AspectAmbience},
		CaveatNegAttenuation:       0.62,
		CaveatApplyTastePosMin:     0.90,
		CaveatApplyNegNonCaveatMax: 0.35,

		TrustMax:        99,
		TrustMaxNoPhoto: 92,

		ScoreCapUserRatingLt2: 2.2,
		ScoreCapUserRatingLt3: 3.6,
		ScoreCapUserRatingLt4: 4.2,

		EnableUserRatingLift:     false,
		RatingLiftPerStar:        0.18,
		RatingLiftMax:            0.38,
		RatingLiftMinLen:         24,
		RatingLiftMinPosEvidence: 2,

		EnableHighRatingFloor:        true,
		HighRatingFloorMinUserRating: 4.0,
		HighRatingFloorMinScore:      3.0,
		HighRatingFloorPerStar:       0.3,

		EnableLongMixedMode:        true,
		LongMixedMinLenNoSpace:     120,
		LongMixedRatingDelta:       1.2,
		LongMixedPosGainMultiplier: 0.65,
		LongMixedMinPosEvidence:    1,
		LongMixedMinNegEvidence:    1,

		EnableLongPositiveFloor:   true,
		LongPositiveMinUserRating: 4.0,
		LongPositiveMinLenNoSpace: 80,
		LongPositiveRatingDelta:   0.6,
		LongPositiveMaxMajorNeg:   0.35,

		EnableAnchoring:         true,
		UserRatingMaxUp:         0.2,
		UserRatingMaxDownNormal: 1.0,
		UserRatingMaxDownSevere: 2.0,
		PosDominantMinPosCount:  2,
		PosDominantRatio:        1.15,
		MinorNegFactor:          0.35,
		MinorOnlyMinUserRating:  4.0,
		MinorOnlyRatingBias:     0.3,
		MinorOnlyNegPenalty:     0.08,
		MinorOnlyFloor:          4.0,

		EmptyScore:          1.0,
		EmptyPhotoTrust:     20,
		SimpleMaxLenNoSpace: 8,
		SimplePositiveScore: 3.1,
		SimpleNegativeScore: 2.2,
		SimpleTrust:         35,
		MinHangulRatio:      0.3,

		LowTrustThreshold: 25,
		LowTrustScoreCap:  3.3,

		HygieneCriticalCeiling: 1.8,
		FraudPriceCeiling:      2.5,
		NeverAgainCeiling:      2.9,
		ServiceExtremeCeiling:  2.8,
		GenericExtremeCeiling:  2.9,
	}
}

// ConfigForPolicy resolves a policy name. An empty name means the canonical
// policy; older generations are no longer served.
func ConfigForPolicy(name string) (EngineConfig, error) {
	switch name {
	case "", PolicyHybrid:
		return DefaultEngineConfig(), nil
	default:
		return EngineConfig{}, apperrors.New(apperrors.ErrCodeEnginePolicyUnknown,
			fmt.Sprintf("scoring policy %q is not supported", name))
	}
}

// Clone returns a deep copy.
func (c EngineConfig) Clone() EngineConfig {
	out := c
	out.PosCoef = c.PosCoef.clone()
	out.NegCoef = c.NegCoef.clone()
	out.PosScale = c.PosScale.clone()
	out.NegScale = c.NegScale.clone()
	out.CoreAxes = append([]Aspect(nil), c.CoreAxes...)
	out.CaveatAspects = append([]Aspect(nil), c.CaveatAspects...)
	return out
}

func (c EngineConfig) isCore(a Aspect) bool {
	for _, x := range c.CoreAxes {
		if x == a {
			return true
		}
	}
	return false
}

func (c EngineConfig) isCaveat(a Aspect) bool {
	for _, x := range c.CaveatAspects {
		if x == a {
			return true
		}
	}
	return false
}

// Validate checks value ranges and threshold ordering. It is called once at
// startup; a failure is fatal.
func (c EngineConfig) Validate() error {
	var problems []string
	bad := func(format string, args ...interface{}) {
		problems = append(problems, fmt.Sprintf(format, args...))
	}

	for _, a := range AllAspects {
		for name, tbl := range map[string]AspectTable{"pos_coef": c.PosCoef, "neg_coef": c.NegCoef} {
			v, ok := tbl[a]
			if !ok || v < 0 {
				bad("%s[%s] must be present and non-negative", name, a)
			}
		}
		for name, tbl := range map[string]AspectTable{"pos_scale": c.PosScale, "neg_scale": c.NegScale} {
			v, ok := tbl[a]
			if !ok || v <= 0 {
				bad("%s[%s] must be present and positive", name, a)
			}
		}
	}
	for _, a := range append(append([]Aspect(nil), c.CoreAxes...), c.CaveatAspects...) {
		if !a.Valid() {
			bad("unknown aspect %q in core/caveat axes", a)
		}
	}

	if c.RoundingStep <= 0 || c.RoundingStep > 1 {
		bad("rounding_step must be in (0,1], got %v", c.RoundingStep)
	}
	if c.SnippetRadius < 0 {
		bad("snippet_radius must be non-negative")
	}
	if c.MinScore < 0 || c.MinScore >= c.MaxScore {
		bad("min_score must be in [0, max_score)")
	}
	if c.MaxScore > 5 {
		bad("max_score must be <= 5, got %v", c.MaxScore)
	}
	if c.BaseScore < c.MinScore || c.BaseScore > c.MaxScore {
		bad("base_score must be within [min_score, max_score]")
	}
	if !(c.CapIfGateFail4 < 4.0 && 4.0 <= c.CapIfGateFail45 && c.CapIfGateFail45 < 4.5 && 4.5 <= c.MaxScore) {
		bad("gate caps must satisfy cap4 < 4.0 <= cap45 < 4.5 <= max_score")
	}
	if !(c.ScoreCapUserRatingLt2 <= c.ScoreCapUserRatingLt3 && c.ScoreCapUserRatingLt3 <= c.ScoreCapUserRatingLt4) {
		bad("user rating caps must be ordered lt2 <= lt3 <= lt4")
	}

	for name, v := range map[string]float64{
		"recency_boost":                   c.RecencyBoost,
		"contrast_post_boost":             c.ContrastPostBoost,
		"contrast_pre_penalty":            c.ContrastPrePenalty,
		"preference_penalty":              c.PreferencePenalty,
		"hedge_penalty":                   c.HedgePenalty,
		"caveat_neg_attenuation":          c.CaveatNegAttenuation,
		"caveat_apply_neg_non_caveat_max": c.CaveatApplyNegNonCaveatMax,
		"min_hangul_ratio":                c.MinHangulRatio,
		"minor_neg_factor":                c.MinorNegFactor,
	} {
		if v < 0 || v > 1 {
			bad("%s must be in [0,1], got %v", name, v)
		}
	}
	for name, v := range map[string]float64{
		"intensity_boost":       c.IntensityBoost,
		"exclam_boost":          c.ExclamBoost,
		"max_weight_multiplier": c.MaxWeightMultiplier,
	} {
		if v < 1 {
			bad("%s must be >= 1, got %v", name, v)
		}
	}
	for name, v := range map[string]float64{
		"max_detail_bonus":               c.MaxDetailBonus,
		"aspect_pos_threshold":           c.AspectPosThreshold,
		"aspect_neg_threshold":           c.AspectNegThreshold,
		"rating_lift_per_star":           c.RatingLiftPerStar,
		"rating_lift_max":                c.RatingLiftMax,
		"long_mixed_rating_delta":        c.LongMixedRatingDelta,
		"long_mixed_pos_gain_multiplier": c.LongMixedPosGainMultiplier,
		"long_positive_rating_delta":     c.LongPositiveRatingDelta,
		"user_rating_max_up":             c.UserRatingMaxUp,
		"user_rating_max_down_normal":    c.UserRatingMaxDownNormal,
		"pos_dominant_ratio":             c.PosDominantRatio,
		"high_rating_floor_per_star":     c.HighRatingFloorPerStar,
	} {
		if v < 0 {
			bad("%s must be non-negative, got %v", name, v)
		}
	}
	if c.UserRatingMaxDownSevere < c.UserRatingMaxDownNormal {
		bad("user_rating_max_down_severe must be >= user_rating_max_down_normal")
	}
	if c.TrustMaxNoPhoto > c.TrustMax || c.TrustMax > 100 || c.TrustMaxNoPhoto < 0 {
		bad("trust caps must satisfy 0 <= no_photo <= max <= 100")
	}
	if c.EmptyPhotoTrust < 0 || c.SimpleTrust < 0 || c.LowTrustThreshold < 0 {
		bad("trust values must be non-negative")
	}
	if c.SimpleNegativeScore > c.SimplePositiveScore {
		bad("simple_negative_score must not exceed simple_positive_score")
	}
	for name, v := range map[string]float64{
		"hygiene_critical_ceiling": c.HygieneCriticalCeiling,
		"fraud_price_ceiling":      c.FraudPriceCeiling,
		"never_again_ceiling":      c.NeverAgainCeiling,
		"service_extreme_ceiling":  c.ServiceExtremeCeiling,
		"generic_extreme_ceiling":  c.GenericExtremeCeiling,
		"low_trust_score_cap":      c.LowTrustScoreCap,
	} {
		if v < c.MinScore || v > c.MaxScore {
			bad("%s must be within [min_score, max_score], got %v", name, v)
		}
	}

	if len(problems) == 0 {
		return nil
	}
	sort.Strings(problems)
	return apperrors.New(apperrors.ErrCodeEngineConfigInvalid, "engine configuration invalid").
		WithDetail(strings.Join(problems, "; "))
}

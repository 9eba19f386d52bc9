package config

import "github.com/turtacn/NeedsFine/internal/domain/scoring"

// EngineOverrides selects a scoring policy and optionally replaces the
// tunables operators are allowed to change. Nil fields keep the policy value.
type EngineOverrides struct {
	Policy string `mapstructure:"policy"`

	RoundingStep *float64 `mapstructure:"rounding_step"`
	MaxScore     *float64 `mapstructure:"max_score"`

	TrustMax        *int `mapstructure:"trust_max"`
	TrustMaxNoPhoto *int `mapstructure:"trust_max_no_photo"`

	ScoreCapUserRatingLt2 *float64 `mapstructure:"score_cap_user_rating_lt2"`
	ScoreCapUserRatingLt3 *float64 `mapstructure:"score_cap_user_rating_lt3"`
	ScoreCapUserRatingLt4 *float64 `mapstructure:"score_cap_user_rating_lt4"`

	MinPosAxesFor4  *int     `mapstructure:"min_pos_axes_for_4"`
	MinPosAxesFor45 *int     `mapstructure:"min_pos_axes_for_45"`
	MinLenFor45     *int     `mapstructure:"min_len_for_45"`
	CapIfGateFail4  *float64 `mapstructure:"cap_if_gate_fail_4"`
	CapIfGateFail45 *float64 `mapstructure:"cap_if_gate_fail_45"`

	EnableUserRatingLift    *bool `mapstructure:"enable_user_rating_lift"`
	EnableHighRatingFloor   *bool `mapstructure:"enable_high_rating_floor"`
	EnableLongMixedMode     *bool `mapstructure:"enable_long_mixed_mode"`
	EnableLongPositiveFloor *bool `mapstructure:"enable_long_positive_floor"`
	EnableAnchoring         *bool `mapstructure:"enable_anchoring"`

	LowTrustThreshold *int     `mapstructure:"low_trust_threshold"`
	LowTrustScoreCap  *float64 `mapstructure:"low_trust_score_cap"`
}

// Apply returns a copy of base with every non-nil override set.
func (o EngineOverrides) Apply(base scoring.EngineConfig) scoring.EngineConfig {
	cfg := base.Clone()

	setF := func(dst *float64, v *float64) {
		if v != nil {
			*dst = *v
		}
	}
	setI := func(dst *int, v *int) {
		if v != nil {
			*dst = *v
		}
	}
	setB := func(dst *bool, v *bool) {
		if v != nil {
			*dst = *v
		}
	}

	setF(&cfg.RoundingStep, o.RoundingStep)
	setF(&cfg.MaxScore, o.MaxScore)
	setI(&cfg.TrustMax, o.TrustMax)
	setI(&cfg.TrustMaxNoPhoto, o.TrustMaxNoPhoto)
	setF(&cfg.ScoreCapUserRatingLt2, o.ScoreCapUserRatingLt2)
	setF(&cfg.ScoreCapUserRatingLt3, o.ScoreCapUserRatingLt3)
	setF(&cfg.ScoreCapUserRatingLt4, o.ScoreCapUserRatingLt4)
	setI(&cfg.MinPosAxesFor4, o.MinPosAxesFor4)
	setI(&cfg.MinPosAxesFor45, o.MinPosAxesFor45)
	setI(&cfg.MinLenFor45, o.MinLenFor45)
	setF(&cfg.CapIfGateFail4, o.CapIfGateFail4)
	setF(&cfg.CapIfGateFail45, o.CapIfGateFail45)
	setB(&cfg.EnableUserRatingLift, o.EnableUserRatingLift)
	setB(&cfg.EnableHighRatingFloor, o.EnableHighRatingFloor)
	setB(&cfg.EnableLongMixedMode, o.EnableLongMixedMode)
	setB(&cfg.EnableLongPositiveFloor, o.EnableLongPositiveFloor)
	setB(&cfg.EnableAnchoring, o.EnableAnchoring)
	setI(&cfg.LowTrustThreshold, o.LowTrustThreshold)
	setF(&cfg.LowTrustScoreCap, o.LowTrustScoreCap)

	return cfg
}

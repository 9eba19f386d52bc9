package scoring

import (
	"fmt"
	"math"
)

// composer carries the state of one pass down the decision ladder.
type composer struct {
	cfg       EngineConfig
	rating    *float64
	agg       Aggregation
	posHits   []EvidenceHit
	negHits   []EvidenceHit
	strongNeg StrongNegativeInfo
	trust     int
	f         *Features

	caps    []string
	ceiling float64
	floor   float64

	regular          float64
	longMixed        *float64
	raw              float64
	detailBonus      float64
	synergyBonus     float64
	ratingLift       float64
	caveatAttenuated bool
}

// capAt records limit as a ceiling for rounding and names it in the trace
// when it binds. No ceiling goes below MinScore.
func (c *composer) capAt(name string, limit, score float64) float64 {
	limit = math.Max(limit, c.cfg.MinScore)
	if score > limit {
		c.caps = append(c.caps, fmt.Sprintf("%s(%.2f)", name, limit))
	}
	if limit < c.ceiling {
		c.ceiling = limit
	}
	return math.Min(score, limit)
}

// limitAt bounds the regular score only. Later floors may lift the result
// above limit.
func (c *composer) limitAt(name string, limit, score float64) float64 {
	if score > limit {
		c.caps = append(c.caps, fmt.Sprintf("%s(%.2f)", name, limit))
	}
	return math.Min(score, limit)
}

// compose runs the regular ladder and returns the final score and mode.
func (c *composer) compose() (float64, Mode) {
	cfg := c.cfg
	c.ceiling = cfg.MaxScore
	mode := ModeRegular

	c.measure()
	score := c.regularScore()
	c.regular = score

	if r, ok := c.ratingValue(); ok {
		if v, applies := c.longMixedScore(r); applies {
			c.longMixed = &v
			if v > score {
				score, mode = v, ModeLongMixed
			}
		}
		if v, applies := c.longPositiveFloor(r); applies && v > score {
			score, mode = v, ModeLongPositiveFloor
		}
		score = c.anchor(r, score)
	}
	c.raw = score

	return c.finish(score), mode
}

// measure fills the derived features that the ladder branches on.
func (c *composer) measure() {
	cfg, f := c.cfg, c.f
	signals := 0
	for _, ok := range []bool{f.SentenceCount >= 2, f.HasNumbers, f.HasPrice, f.HasTime, f.HasDetail} {
		if ok {
			signals++
		}
	}
	f.DetailSignals = signals
	f.DistinctPosAxes = c.agg.distinctPosAxes()

	seen := make(map[string]bool)
	for _, h := range c.posHits {
		seen[string(h.Aspect)+":"+h.RuleID] = true
		f.PosSum += h.Weight
	}
	f.DistinctPosEvidence = len(seen)
	for _, h := range c.negHits {
		if cfg.isCaveat(h.Aspect) {
			f.MinorNegSum += h.Weight
		} else {
			f.MajorNegSum += h.Weight
		}
		if severeRuleIDs[h.RuleID] {
			f.SevereNeg = true
		}
	}
	if c.strongNeg.Flag {
		f.SevereNeg = true
	}
	f.TastePos = c.agg.Sums[AspectTaste].Pos
	f.NegNonCaveatSum = f.MajorNegSum
	f.PosDominant = len(c.posHits) >= cfg.PosDominantMinPosCount &&
		f.PosSum >= cfg.PosDominantRatio*(f.MajorNegSum+cfg.MinorNegFactor*f.MinorNegSum)
}

func (c *composer) regularScore() float64 {
	cfg, f := c.cfg, c.f

	attenuate := f.TastePos >= cfg.CaveatApplyTastePosMin && f.NegNonCaveatSum <= cfg.CaveatApplyNegNonCaveatMax
	for _, a := range AllAspects {
		s := c.agg.Sums[a]
		neg := s.Neg
		if attenuate && cfg.isCaveat(a) && neg > 0 {
			neg *= cfg.CaveatNegAttenuation
			c.caveatAttenuated = true
		}
		f.PosContrib += cfg.PosCoef[a] * math.Tanh(s.Pos/cfg.PosScale[a])
		f.NegContrib += cfg.NegCoef[a] * math.Tanh(neg/cfg.NegScale[a])
	}
	score := cfg.BaseScore + f.PosContrib - f.NegContrib

	if f.DistinctPosAxes >= 2 {
		c.synergyBonus += 0.12
	}
	if f.DistinctPosAxes >= 3 {
		c.synergyBonus += 0.08
	}
	score += c.synergyBonus

	if len(c.posHits) >= 1 {
		var bonus float64
		if f.LenNoSpace >= 80 {
			bonus += 0.12
		}
		if f.LenNoSpace >= 140 {
			bonus += 0.07
		}
		bonus += math.Min(0.07, 0.016*float64(f.DetailSignals))
		c.detailBonus = math.Min(cfg.MaxDetailBonus, bonus)
		score += c.detailBonus
	}

	switch {
	case f.LenNoSpace <= 6:
		score = c.limitAt("BREVITY_6", 3.1, score)
	case f.LenNoSpace <= 12:
		score = c.limitAt("BREVITY_12", 3.4, score)
	}

	if r, ok := c.ratingValue(); ok && cfg.EnableUserRatingLift && r > 3 &&
		f.LenNoSpace >= cfg.RatingLiftMinLen && len(c.posHits) >= cfg.RatingLiftMinPosEvidence {
		quality := clamp(f.PosSum/4+float64(f.DistinctPosAxes)/4, 0, 1)
		c.ratingLift = math.Min(cfg.RatingLiftMax, (r-3)*cfg.RatingLiftPerStar*quality)
		score += c.ratingLift
	}
	return score
}

func (c *composer) longMixedScore(r float64) (float64, bool) {
	cfg, f := c.cfg, c.f
	if !cfg.EnableLongMixedMode || c.strongNeg.Flag ||
		f.LenNoSpace < cfg.LongMixedMinLenNoSpace ||
		len(c.posHits) < cfg.LongMixedMinPosEvidence ||
		len(c.negHits) < cfg.LongMixedMinNegEvidence {
		return 0, false
	}
	gain := f.PosContrib + c.synergyBonus + c.detailBonus
	return r - cfg.LongMixedRatingDelta + cfg.LongMixedPosGainMultiplier*gain, true
}

func (c *composer) longPositiveFloor(r float64) (float64, bool) {
	cfg, f := c.cfg, c.f
	if !cfg.EnableLongPositiveFloor || c.strongNeg.Flag ||
		r < cfg.LongPositiveMinUserRating ||
		f.LenNoSpace < cfg.LongPositiveMinLenNoSpace ||
		!c.agg.hasCorePos(cfg) ||
		f.MajorNegSum > cfg.LongPositiveMaxMajorNeg {
		return 0, false
	}
	return r - cfg.LongPositiveRatingDelta, true
}

// anchor keeps a rated review's score inside a window around the rating and
// lifts long positive reviews whose only complaints are minor.
func (c *composer) anchor(r, score float64) float64 {
	cfg, f := c.cfg, c.f
	if !cfg.EnableAnchoring {
		return score
	}
	down := cfg.UserRatingMaxDownNormal
	if f.SevereNeg {
		down = cfg.UserRatingMaxDownSevere
	}
	lo, hi := r-down, r+cfg.UserRatingMaxUp
	if score < lo {
		score = lo
		c.caps = append(c.caps, fmt.Sprintf("ANCHOR_FLOOR(%.2f)", lo))
	}
	if score > hi {
		score = c.capAt("ANCHOR_CEIL", hi, score)
	}

	if r >= cfg.MinorOnlyMinUserRating && f.LenNoSpace >= cfg.LongMixedMinLenNoSpace &&
		f.PosDominant && !f.SevereNeg && f.MajorNegSum == 0 {
		upper := math.Max(cfg.MinorOnlyFloor, r-cfg.MinorOnlyRatingBias)
		floor := clamp(r-cfg.MinorOnlyRatingBias-cfg.MinorOnlyNegPenalty*f.MinorNegSum, cfg.MinorOnlyFloor, upper)
		if floor > score {
			score = floor
			c.caps = append(c.caps, fmt.Sprintf("MINOR_ONLY_FLOOR(%.2f)", floor))
		}
	}
	return score
}

// finish applies ceilings, gates, rating tiers and rounding in fixed order.
func (c *composer) finish(score float64) float64 {
	cfg, f := c.cfg, c.f
	half := cfg.RoundingStep / 2

	if c.strongNeg.Flag {
		score = c.capAt("STRONG_NEG_"+string(c.strongNeg.Category), c.strongNeg.Ceiling, score)
	}

	if score >= 4.0-half {
		ok := f.DistinctPosAxes >= cfg.MinPosAxesFor4 && f.DistinctPosEvidence >= cfg.MinPosEvidenceFor4
		if cfg.RequireCoreAxisFor4 && !c.agg.hasCorePos(cfg) {
			ok = false
		}
		if !ok {
			score = c.capAt("GATE_4_FAIL", cfg.CapIfGateFail4, score)
		}
	}
	if score >= 4.5-half {
		if f.DistinctPosAxes < cfg.MinPosAxesFor45 || f.LenNoSpace < cfg.MinLenFor45 {
			score = c.capAt("GATE_45_FAIL", cfg.CapIfGateFail45, score)
		}
	}

	if c.trust < cfg.LowTrustThreshold {
		score = c.capAt("LOW_TRUST", cfg.LowTrustScoreCap, score)
	}

	score = clamp(score, cfg.MinScore, 5)
	score = c.ratingTier(score)

	if r, ok := c.ratingValue(); ok && cfg.EnableHighRatingFloor && !c.strongNeg.Flag && r >= cfg.HighRatingFloorMinUserRating {
		floor := cfg.HighRatingFloorMinScore + cfg.HighRatingFloorPerStar*(r-cfg.HighRatingFloorMinUserRating)
		if floor > score {
			score = floor
			c.caps = append(c.caps, fmt.Sprintf("HIGH_RATING_FLOOR(%.2f)", floor))
		}
		c.floor = floor
	}

	if score > cfg.MaxScore {
		score = c.capAt("MAX_SCORE", cfg.MaxScore, score)
	}
	// ceilings outrank floors
	if score > c.ceiling {
		score = c.ceiling
	}
	return c.round(score)
}

// finishSimple applies only the rating tiers and rounding.
func (c *composer) finishSimple(score float64) float64 {
	c.ceiling = c.cfg.MaxScore
	score = c.ratingTier(score)
	return c.round(score)
}

func (c *composer) ratingTier(score float64) float64 {
	r, ok := c.ratingValue()
	if !ok {
		return score
	}
	switch {
	case r < 2:
		return c.capAt("USER_RATING_LT2", c.cfg.ScoreCapUserRatingLt2, score)
	case r < 3:
		return c.capAt("USER_RATING_LT3", c.cfg.ScoreCapUserRatingLt3, score)
	case r < 4:
		return c.capAt("USER_RATING_LT4", c.cfg.ScoreCapUserRatingLt4, score)
	}
	return score
}

// round snaps to the step. It floors when rounding up would cross the
// tightest ceiling applied and ceils when rounding down would drop below the
// high-rating floor.
func (c *composer) round(score float64) float64 {
	step := c.cfg.RoundingStep
	out := roundToStep(score, step)
	if out > c.ceiling+1e-9 {
		out = floorToStep(score, step)
	}
	if out < c.floor-1e-9 {
		if up := ceilToStep(score, step); up <= c.ceiling+1e-9 {
			out = up
		}
	}
	return out
}

func (c *composer) ratingValue() (float64, bool) {
	if c.rating == nil {
		return 0, false
	}
	return *c.rating, true
}

func roundToStep(v, step float64) float64 {
	inv := 1 / step
	return math.Round(v*inv) / inv
}

func floorToStep(v, step float64) float64 {
	inv := 1 / step
	return math.Floor(v*inv+1e-9) / inv
}

func ceilToStep(v, step float64) float64 {
	inv := 1 / step
	return math.Ceil(v*inv-1e-9) / inv
}

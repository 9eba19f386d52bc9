package scoring

import (
	"math"
	"sort"
)

// TagResult is the aggregated view of one aspect.
type TagResult struct {
	Aspect    Aspect      `json:"aspect"`
	Label     string      `json:"label"`
	Mentioned bool        `json:"mentioned"`
	Polarity  TagPolarity `json:"polarity"`
	Strength  float64     `json:"strength"`
}

// AspectSums accumulates evidence for one aspect.
type AspectSums struct {
	Pos     float64
	Neg     float64
	PosHits []EvidenceHit
	NegHits []EvidenceHit
}

// Aggregation is the per-aspect roll-up of selected evidence.
type Aggregation struct {
	Sums    map[Aspect]*AspectSums
	Tags    []TagResult // all nine, canonical order
	PosAxes []Aspect
	NegAxes []Aspect
}

// Aggregate sums evidence per aspect and derives tag polarity and strength.
func Aggregate(hits []EvidenceHit, mentions map[Aspect]bool, cfg EngineConfig) Aggregation {
	agg := Aggregation{Sums: make(map[Aspect]*AspectSums, len(AllAspects))}
	for _, a := range AllAspects {
		agg.Sums[a] = &AspectSums{}
	}
	for _, h := range hits {
		s, ok := agg.Sums[h.Aspect]
		if !ok {
			continue
		}
		if h.Polarity == Positive {
			s.Pos += h.Weight
			s.PosHits = append(s.PosHits, h)
		} else {
			s.Neg += h.Weight
			s.NegHits = append(s.NegHits, h)
		}
	}

	for _, a := range AllAspects {
		s := agg.Sums[a]
		mentioned := mentions[a] || len(s.PosHits) > 0 || len(s.NegHits) > 0
		net := s.Pos - s.Neg

		pol := TagNeutral
		if s.Pos > 0.2 || s.Neg > 0.2 {
			switch {
			case net >= cfg.AspectPosThreshold:
				pol = TagPositive
			case net <= -cfg.AspectNegThreshold:
				pol = TagNegative
			default:
				pol = TagMixed
			}
		}

		agg.Tags = append(agg.Tags, TagResult{
			Aspect:    a,
			Label:     a.Label(),
			Mentioned: mentioned,
			Polarity:  pol,
			Strength:  clamp(math.Abs(net)/2, 0, 1),
		})
		if mentioned && pol == TagPositive {
			agg.PosAxes = append(agg.PosAxes, a)
		}
		if mentioned && pol == TagNegative {
			agg.NegAxes = append(agg.NegAxes, a)
		}
	}
	return agg
}

// MentionedTags returns only the tags a user would see.
func (a Aggregation) MentionedTags() []TagResult {
	out := make([]TagResult, 0, len(a.Tags))
	for _, t := range a.Tags {
		if t.Mentioned {
			out = append(out, t)
		}
	}
	return out
}

// SortTagsByPriority orders tags for display (taste first, overall last).
func SortTagsByPriority(tags []TagResult) []TagResult {
	out := append([]TagResult(nil), tags...)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Aspect.Priority() < out[j].Aspect.Priority()
	})
	return out
}

// distinctPosAxes counts positive axes other than overall.
func (a Aggregation) distinctPosAxes() int {
	n := 0
	for _, ax := range a.PosAxes {
		if ax != AspectOverall {
			n++
		}
	}
	return n
}

func (a Aggregation) hasCorePos(cfg EngineConfig) bool {
	for _, ax := range a.PosAxes {
		if cfg.isCore(ax) {
			return true
		}
	}
	return false
}

// Package scoring is the deterministic review-scoring engine: normalization,
// evidence extraction, aspect aggregation, score composition and trust.
// Everything in this package is pure; the only shared state is the compiled
// rule table, which is built at init and never mutated.
package scoring

import (
	"fmt"
	"strings"
)

// Aspect is one of the fixed review dimensions.
type Aspect string

const (
	AspectTaste    Aspect = "taste"
	AspectService  Aspect = "service"
	AspectValue    Aspect = "value"
	AspectRevisit  Aspect = "revisit"
	AspectHygiene  Aspect = "hygiene"
	AspectAmbience Aspect = "ambience"
	AspectWait     Aspect = "wait"
	AspectPortion  Aspect = "portion"
	AspectOverall  Aspect = "overall"
)

// AllAspects lists aspects in canonical (evaluation) order.
var AllAspects = []Aspect{
	AspectTaste,
	AspectService,
	AspectValue,
	AspectRevisit,
	AspectHygiene,
	AspectAmbience,
	AspectWait,
	AspectPortion,
	AspectOverall,
}

var aspectLabels = map[Aspect]string{
	AspectTaste:    "맛",
	AspectService:  "서비스",
	AspectValue:    "가격/가성비",
	AspectRevisit:  "재방문",
	AspectHygiene:  "위생",
	AspectAmbience: "분위기",
	AspectWait:     "대기",
	AspectPortion:  "양",
	AspectOverall:  "전반",
}

// display order used when tags are shown to users
var aspectPriority = map[Aspect]int{
	AspectTaste:    1,
	AspectHygiene:  2,
	AspectService:  3,
	AspectAmbience: 4,
	AspectWait:     5,
	AspectPortion:  6,
	AspectValue:    7,
	AspectRevisit:  8,
	AspectOverall:  9,
}

// Label returns the Korean display label.
func (a Aspect) Label() string {
	return aspectLabels[a]
}

// Priority returns the display priority (1 first). Unknown aspects sort last.
func (a Aspect) Priority() int {
	if p, ok := aspectPriority[a]; ok {
		return p
	}
	return 99
}

func (a Aspect) Valid() bool {
	_, ok := aspectLabels[a]
	return ok
}

// ParseAspect accepts the English key, case-insensitively.
func ParseAspect(s string) (Aspect, error) {
	a := Aspect(strings.ToLower(strings.TrimSpace(s)))
	if !a.Valid() {
		return "", fmt.Errorf("scoring: unknown aspect %q", s)
	}
	return a, nil
}

// Polarity of a single evidence hit.
type Polarity string

const (
	Positive Polarity = "POS"
	Negative Polarity = "NEG"
)

func (p Polarity) Valid() bool {
	return p == Positive || p == Negative
}

// ParsePolarity accepts POS/NEG in any case.
func ParsePolarity(s string) (Polarity, error) {
	p := Polarity(strings.ToUpper(strings.TrimSpace(s)))
	if !p.Valid() {
		return "", fmt.Errorf("scoring: unknown polarity %q", s)
	}
	return p, nil
}

// TagPolarity is the aggregated polarity of an aspect.
type TagPolarity string

const (
	TagPositive TagPolarity = "POS"
	TagNegative TagPolarity = "NEG"
	TagMixed    TagPolarity = "MIXED"
	TagNeutral  TagPolarity = "NEUTRAL"
)

// AspectTable holds one coefficient per aspect.
type AspectTable map[Aspect]float64

func (t AspectTable) clone() AspectTable {
	out := make(AspectTable, len(t))
	for k, v := range t {
		out[k] = v
	}
	return out
}

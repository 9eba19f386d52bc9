package scoring

import (
	"math"
	"sort"
	"strings"
)

// EvidenceHit is one selected cue match. Start/End are rune offsets into the
// normalized text.
type EvidenceHit struct {
	Aspect   Aspect   `json:"aspect"`
	Polarity Polarity `json:"polarity"`
	Weight   float64  `json:"weight"`
	Cue      string   `json:"cue"`
	Snippet  string   `json:"snippet"`
	RuleID   string   `json:"rule_id"`
	Start    int      `json:"start"`
	End      int      `json:"end"`
	Priority int      `json:"priority"`
}

func (h EvidenceHit) span() span { return span{Start: h.Start, End: h.End} }

// Extraction is the output of evidence extraction.
type Extraction struct {
	Masked       string
	Hits         []EvidenceHit
	Segmentation Segmentation
	Neutralized  int
}

type matchSource struct {
	id         string
	aspect     Aspect
	polarity   Polarity
	baseWeight float64
	priority   int
	preCheck   func(RuleContext) bool
	skipIf     func(RuleContext) bool
}

// ExtractEvidence masks normalized, scans every static rule and dynamic cue,
// weights the matches and resolves overlaps greedily by priority then weight.
func ExtractEvidence(normalized string, cfg EngineConfig, cues []DynamicCue) Extraction {
	raw := newRuneText(normalized)
	maskedStr, neutralized := mask(raw)
	masked := newRuneText(maskedStr)
	seg := segment(raw)

	var candidates []EvidenceHit
	add := func(src matchSource, sp span) {
		ctx := RuleContext{text: raw, Start: sp.Start, End: sp.End}
		if src.preCheck != nil && !src.preCheck(ctx) {
			return
		}
		if src.skipIf != nil && src.skipIf(ctx) {
			return
		}
		w := src.baseWeight * positionalMultiplier(seg, sp.Start, cfg) *
			intensityMultiplier(raw, sp, cfg) * preferenceMultiplier(raw, sp, cfg)
		if limit := src.baseWeight * cfg.MaxWeightMultiplier; w > limit {
			w = limit
		}
		candidates = append(candidates, EvidenceHit{
			Aspect:   src.aspect,
			Polarity: src.polarity,
			Weight:   w,
			Cue:      masked.slice(sp.Start, sp.End),
			Snippet:  makeSnippet(raw, sp, cfg.SnippetRadius),
			RuleID:   src.id,
			Start:    sp.Start,
			End:      sp.End,
			Priority: src.priority,
		})
	}

	for _, r := range StaticRules {
		src := matchSource{
			id: r.ID, aspect: r.Aspect, polarity: r.Polarity,
			baseWeight: r.BaseWeight, priority: r.Priority,
			preCheck: r.PreCheck, skipIf: r.SkipIf,
		}
		for _, sp := range masked.findAll(r.Pattern) {
			add(src, sp)
		}
	}
	for _, c := range cues {
		if !c.Enabled || c.Term == "" || !c.Aspect.Valid() || !c.Polarity.Valid() {
			continue
		}
		src := matchSource{
			id: c.RuleID(), aspect: c.Aspect, polarity: c.Polarity,
			baseWeight: c.BaseWeight, priority: c.Priority,
		}
		for _, sp := range findSubstrings(masked, strings.ToLower(c.Term)) {
			add(src, sp)
		}
	}

	return Extraction{
		Masked:       maskedStr,
		Hits:         selectNonOverlapping(candidates),
		Segmentation: seg,
		Neutralized:  len(neutralized),
	}
}

// selectNonOverlapping sorts by (priority desc, |weight| desc, start asc,
// rule id asc) and keeps each candidate that overlaps nothing kept so far.
func selectNonOverlapping(cands []EvidenceHit) []EvidenceHit {
	sort.SliceStable(cands, func(i, j int) bool {
		a, b := cands[i], cands[j]
		if a.Priority != b.Priority {
			return a.Priority > b.Priority
		}
		if wa, wb := math.Abs(a.Weight), math.Abs(b.Weight); wa != wb {
			return wa > wb
		}
		if a.Start != b.Start {
			return a.Start < b.Start
		}
		return a.RuleID < b.RuleID
	})
	selected := make([]EvidenceHit, 0, len(cands))
	for _, c := range cands {
		clash := false
		for _, s := range selected {
			if c.span().overlaps(s.span()) {
				clash = true
				break
			}
		}
		if !clash {
			selected = append(selected, c)
		}
	}
	return selected
}

func findSubstrings(t runeText, term string) []span {
	if term == "" {
		return nil
	}
	var out []span
	n := len([]rune(term))
	off := 0
	for {
		i := strings.Index(t.s[off:], term)
		if i < 0 {
			return out
		}
		b := off + i
		start := t.toRune(b)
		out = append(out, span{Start: start, End: start + n})
		off = b + len(term)
	}
}

func positionalMultiplier(seg Segmentation, start int, cfg EngineConfig) float64 {
	n := seg.Count()
	idx := seg.SentenceIndex(start)
	recency := 1.0
	if n > 1 {
		recency = 1 + cfg.RecencyBoost*float64(idx)/float64(n-1)
	}
	contrast := 1.0
	if idx < len(seg.Sentences) {
		if s := seg.Sentences[idx]; s.HasContrast() {
			if start >= s.Contrast {
				contrast = 1 + cfg.ContrastPostBoost
			} else {
				contrast = 1 - cfg.ContrastPrePenalty
			}
		}
	}
	return recency * contrast
}

func intensityMultiplier(t runeText, sp span, cfg EngineConfig) float64 {
	win := t.window(sp.Start, sp.End, 10, 10)
	m := 1.0
	if containsAny(win, Intensifiers) {
		m *= cfg.IntensityBoost
	}
	if containsAny(win, Hedges) {
		m *= cfg.HedgePenalty
	}
	if strings.Contains(win, "!") {
		m *= cfg.ExclamBoost
	}
	return clamp(m, 0.6, cfg.MaxWeightMultiplier)
}

func preferenceMultiplier(t runeText, sp span, cfg EngineConfig) float64 {
	if rxPreferenceContext.MatchString(t.window(sp.Start, sp.End, 18, 18)) {
		return cfg.PreferencePenalty
	}
	return 1
}

func makeSnippet(t runeText, sp span, radius int) string {
	return strings.TrimSpace(t.window(sp.Start, sp.End, radius, radius))
}

func containsAny(s string, words []string) bool {
	for _, w := range words {
		if strings.Contains(s, w) {
			return true
		}
	}
	return false
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}

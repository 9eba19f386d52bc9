package scoring

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"
)

var (
	rxLaughK    = regexp.MustCompile(`ㅋ{3,}`)
	rxLaughH    = regexp.MustCompile(`ㅎ{3,}`)
	rxCry       = regexp.MustCompile(`[ㅠㅜ]{2,}`)
	rxSpaceRuns = regexp.MustCompile(`[\s\p{Zs}\x{FEFF}]+`)
)

// Normalize canonicalizes review text. It composes to NFC (compatibility
// forms are left alone so standalone jamo like ㅋ survive), lowercases,
// collapses laugh/cry runs and whitespace, and trims.
func Normalize(input string) string {
	if !utf8.ValidString(input) {
		input = strings.ToValidUTF8(input, " ")
	}
	t := norm.NFC.String(input)
	t = strings.ReplaceAll(t, "\u200b", " ")
	t = strings.ToLower(t)
	t = rxLaughK.ReplaceAllString(t, "ㅋㅋ")
	t = rxLaughH.ReplaceAllString(t, "ㅎㅎ")
	t = rxCry.ReplaceAllString(t, "ㅠㅠ")
	t = rxSpaceRuns.ReplaceAllString(t, " ")
	return strings.TrimSpace(t)
}

// LenNoSpace counts non-whitespace runes.
func LenNoSpace(s string) int {
	n := 0
	for _, r := range s {
		if !unicode.IsSpace(r) {
			n++
		}
	}
	return n
}

func compact(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, s)
}

func isHangulSyllable(r rune) bool {
	return r >= '가' && r <= '힣'
}

// HangulRatio is the share of precomposed Hangul syllables among all runes.
func HangulRatio(s string) float64 {
	total, h := 0, 0
	for _, r := range s {
		total++
		if isHangulSyllable(r) {
			h++
		}
	}
	if total == 0 {
		return 0
	}
	return float64(h) / float64(total)
}

// ─────────────────────────────────────────────────────────────────────────────
// Rune-indexed text
// ─────────────────────────────────────────────────────────────────────────────

// runeText pairs a string with its rune slice and a byte-offset → rune-offset
// table so regexp byte matches can be reported as rune spans.
type runeText struct {
	s       string
	runes   []rune
	byteRun []int // len(s)+1 entries
}

func newRuneText(s string) runeText {
	rt := runeText{s: s, runes: []rune(s), byteRun: make([]int, len(s)+1)}
	ri := 0
	for bi := range s {
		rt.byteRun[bi] = ri
		ri++
	}
	// continuation bytes map to the rune that owns them
	for bi := 1; bi < len(s); bi++ {
		if !utf8.RuneStart(s[bi]) {
			rt.byteRun[bi] = rt.byteRun[bi-1]
		}
	}
	rt.byteRun[len(s)] = ri
	return rt
}

func (t runeText) len() int { return len(t.runes) }

// toRune converts a byte offset to a rune offset.
func (t runeText) toRune(b int) int { return t.byteRun[b] }

// slice returns runes [start,end) clamped to the text.
func (t runeText) slice(start, end int) string {
	if start < 0 {
		start = 0
	}
	if end > len(t.runes) {
		end = len(t.runes)
	}
	if start >= end {
		return ""
	}
	return string(t.runes[start:end])
}

// window returns [start-before, end+after) clamped to the text.
func (t runeText) window(start, end, before, after int) string {
	return t.slice(start-before, end+after)
}

type span struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

func (a span) overlaps(b span) bool {
	return a.Start < b.End && b.Start < a.End
}

// findAll returns every non-overlapping match of rx as rune spans.
func (t runeText) findAll(rx *regexp.Regexp) []span {
	locs := rx.FindAllStringIndex(t.s, -1)
	out := make([]span, 0, len(locs))
	for _, l := range locs {
		if l[0] == l[1] {
			continue
		}
		out = append(out, span{Start: t.toRune(l[0]), End: t.toRune(l[1])})
	}
	return out
}

// ─────────────────────────────────────────────────────────────────────────────
// Neutralizers
// ─────────────────────────────────────────────────────────────────────────────

const metaNegationTail = `\s*(?:얘기|말|소문|리뷰|후기|평)(?:가|는|도|은|이)?\s*(?:없|없었|없더|없는데|없다)`

// neutralizers match "there was no talk of X"-style meta statements. Their
// spans are blanked before evidence extraction.
var neutralizers = []struct {
	key string
	rx  *regexp.Regexp
}{
	{"meta_negated_taste_neg", regexp.MustCompile(`(?:맛없|노맛|비추|최악)\s*(?:다는|단)?` + metaNegationTail)},
	{"meta_negated_service_neg", regexp.MustCompile(`(?:불\s*친절|불친절|서비스\s*최악)\s*(?:하다는|하단)?` + metaNegationTail)},
	{"meta_negated_hygiene_neg", regexp.MustCompile(`(?:위생|더럽|벌레|이물질|오염|악취)\s*(?:관련|문제)?` + metaNegationTail)},
}

// Mask blanks every neutralizer match rune-for-rune with spaces. The result
// has exactly as many runes as normalized.
func Mask(normalized string) string {
	masked, _ := mask(newRuneText(normalized))
	return masked
}

func mask(t runeText) (string, []span) {
	var spans []span
	for _, n := range neutralizers {
		spans = append(spans, t.findAll(n.rx)...)
	}
	if len(spans) == 0 {
		return t.s, nil
	}
	out := append([]rune(nil), t.runes...)
	for _, sp := range spans {
		for i := sp.Start; i < sp.End && i < len(out); i++ {
			out[i] = ' '
		}
	}
	return string(out), spans
}

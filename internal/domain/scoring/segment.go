package scoring

import (
	"regexp"
	"sort"
	"strings"
)

var rxSentenceBoundary = regexp.MustCompile(`[.!?]|[\n\r]+`)

// ContrastWords are connectives after which a clause outweighs what came
// before it.
var ContrastWords = []string{"하지만", "그런데", "다만", "근데", "반면", "대신", "그래도"}

// Sentence is a rune span with the absolute offset of its earliest contrast
// connective, or -1.
type Sentence struct {
	Start    int `json:"start"`
	End      int `json:"end"`
	Contrast int `json:"contrast"`
}

func (s Sentence) HasContrast() bool { return s.Contrast >= 0 }

// Segmentation is the ordered, gap-free sentence list of a text.
type Segmentation struct {
	Sentences []Sentence
}

// Segment splits text at sentence boundaries. Each boundary starts a new
// sentence at the first non-space rune after it.
func Segment(text string) Segmentation {
	return segment(newRuneText(text))
}

func segment(t runeText) Segmentation {
	n := t.len()
	starts := []int{0}
	seen := map[int]bool{0: true}
	for _, loc := range rxSentenceBoundary.FindAllStringIndex(t.s, -1) {
		j := t.toRune(loc[1])
		for j < n && t.runes[j] == ' ' {
			j++
		}
		if j < n && !seen[j] {
			seen[j] = true
			starts = append(starts, j)
		}
	}
	sort.Ints(starts)

	out := make([]Sentence, len(starts))
	for i, s := range starts {
		e := n
		if i+1 < len(starts) {
			e = starts[i+1]
		}
		seg := t.slice(s, e)
		contrast := -1
		for _, w := range ContrastWords {
			if idx := strings.Index(seg, w); idx >= 0 {
				abs := s + len([]rune(seg[:idx]))
				if contrast < 0 || abs < contrast {
					contrast = abs
				}
			}
		}
		out[i] = Sentence{Start: s, End: e, Contrast: contrast}
	}
	return Segmentation{Sentences: out}
}

// Count returns the number of sentences (at least 1).
func (s Segmentation) Count() int {
	if len(s.Sentences) == 0 {
		return 1
	}
	return len(s.Sentences)
}

// SentenceIndex finds the sentence containing offset by binary search,
// clamping out-of-range offsets to the first or last sentence.
func (s Segmentation) SentenceIndex(offset int) int {
	if len(s.Sentences) == 0 {
		return 0
	}
	lo, hi := 0, len(s.Sentences)-1
	for lo <= hi {
		mid := (lo + hi) / 2
		sn := s.Sentences[mid]
		switch {
		case offset < sn.Start:
			hi = mid - 1
		case offset >= sn.End:
			lo = mid + 1
		default:
			return mid
		}
	}
	if lo > len(s.Sentences)-1 {
		return len(s.Sentences) - 1
	}
	return lo
}

// HasContrastWord reports whether any connective appears in text.
func HasContrastWord(text string) bool {
	for _, w := range ContrastWords {
		if strings.Contains(text, w) {
			return true
		}
	}
	return false
}

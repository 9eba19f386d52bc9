package scoring

import (
	"fmt"
	"math"
	"strings"
)

// TrustFeatures is the input to the trust heuristic.
type TrustFeatures struct {
	Normalized     string
	LenNoSpace     int
	SentenceCount  int
	HangulRatio    float64
	MentionCount   int
	HasNumbers     bool
	HasPrice       bool
	HasTime        bool
	HasDetail      bool
	EvidenceCount  int
	PosEvidence    int
	NegEvidence    int
	StrongNegative StrongNegativeInfo
	UserRating     *float64
}

// TrustBase scores how believable a review is on 0–100, before photo caps.
func TrustBase(f TrustFeatures) int {
	if f.Normalized == "" {
		return 0
	}
	if f.LenNoSpace <= 6 && rxNoiseOnly.MatchString(f.Normalized) {
		return 0
	}

	var trust float64
	switch {
	case f.LenNoSpace <= 10:
		trust = 25
	case f.LenNoSpace <= 30:
		trust = 40
	case f.LenNoSpace <= 70:
		trust = 55
	case f.LenNoSpace <= 120:
		trust = 68
	case f.LenNoSpace <= 220:
		trust = 78
	default:
		trust = 86
	}

	trust += math.Min(15, float64(3*f.MentionCount))
	if f.SentenceCount >= 2 {
		trust += 4
	}
	if f.HasNumbers {
		trust += 5
	}
	if f.HasPrice {
		trust += 5
	}
	if f.HasTime {
		trust += 4
	}
	trust += math.Min(8, float64(2*f.EvidenceCount))

	if f.HangulRatio < 0.25 {
		trust -= 15
	}
	if strings.Count(f.Normalized, "ㅋ")+strings.Count(f.Normalized, "ㅎ") >= 10 {
		trust -= 8
	}
	if strings.Count(f.Normalized, "!") >= 4 {
		trust -= 5
	}
	if f.LenNoSpace >= 60 && !f.HasNumbers && !f.HasDetail && f.MentionCount <= 1 {
		trust -= 6
	}

	if f.LenNoSpace < 25 && f.EvidenceCount <= 1 {
		if f.StrongNegative.Flag && f.StrongNegative.Category == StrongNegHygieneCritical {
			trust = math.Min(trust, 65)
		} else {
			trust = math.Min(trust, 50)
		}
	}

	if f.UserRating != nil {
		r := *f.UserRating
		if r >= 4.5 && f.NegEvidence >= 2 && f.PosEvidence == 0 {
			trust -= 10
		}
		if r <= 2.0 && f.PosEvidence >= 2 && f.NegEvidence == 0 {
			trust -= 8
		}
	}

	return int(clamp(math.Round(trust), 0, 100))
}

// ApplyTrustCaps enforces the global and no-photo ceilings.
func ApplyTrustCaps(trust int, hasPhoto bool, cfg EngineConfig) (int, []string) {
	var caps []string
	if trust > cfg.TrustMax {
		trust = cfg.TrustMax
		caps = append(caps, fmt.Sprintf("TRUST_CAP_GLOBAL(%d)", cfg.TrustMax))
	}
	if !hasPhoto && trust > cfg.TrustMaxNoPhoto {
		trust = cfg.TrustMaxNoPhoto
		caps = append(caps, fmt.Sprintf("TRUST_CAP_NO_PHOTO(%d)", cfg.TrustMaxNoPhoto))
	}
	if trust < 0 {
		trust = 0
	}
	return trust, caps
}

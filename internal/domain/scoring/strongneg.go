package scoring

import "regexp"

// StrongNegCategory names a deal-breaker class.
type StrongNegCategory string

const (
	StrongNegHygieneCritical StrongNegCategory = "HYGIENE_CRITICAL"
	StrongNegFraudPrice      StrongNegCategory = "FRAUD_PRICE"
	StrongNegNeverAgain      StrongNegCategory = "NEVER_AGAIN"
	StrongNegServiceExtreme  StrongNegCategory = "SERVICE_EXTREME"
	StrongNegGenericExtreme  StrongNegCategory = "GENERIC_EXTREME"
	StrongNegNone            StrongNegCategory = "NONE"
)

// StrongNegativeInfo reports the winning category and its score ceiling.
type StrongNegativeInfo struct {
	Flag     bool              `json:"flag"`
	Category StrongNegCategory `json:"type"`
	Ceiling  float64           `json:"ceiling"`
	Matched  []string          `json:"matched"`
}

// NoStrongNegative is the result when nothing matched.
func NoStrongNegative() StrongNegativeInfo {
	return StrongNegativeInfo{Category: StrongNegNone, Ceiling: 5.0, Matched: []string{}}
}

var strongNegOrder = []struct {
	category StrongNegCategory
	rx       *regexp.Regexp
	ceiling  func(EngineConfig) float64
}{
	{StrongNegHygieneCritical, regexp.MustCompile(`벌레|이물질|곰팡|오염|악취|식중독|철수세미`),
		func(c EngineConfig) float64 { return c.HygieneCriticalCeiling }},
	{StrongNegFraudPrice, regexp.MustCompile(`사기|바가지|가격\s*다르게|강요|강매|계산\s*실수|결제\s*실수`),
		func(c EngineConfig) float64 { return c.FraudPriceCeiling }},
	{StrongNegNeverAgain, regexp.MustCompile(`다신\s*안|다시는\s*안|두\s*번\s*다시\s*안|절대\s*안|강력\s*비추|먹지\s*마|가지\s*마|오지\s*마`),
		func(c EngineConfig) float64 { return c.NeverAgainCeiling }},
	{StrongNegServiceExtreme, regexp.MustCompile(`막말|하대|서비스\s*최악|불친절\s*최악|무시당|무시하|반말|던지|툭툭|도끼눈|째려`),
		func(c EngineConfig) float64 { return c.ServiceExtremeCeiling }},
	{StrongNegGenericExtreme, regexp.MustCompile(`최악|쓰레기|별\s*한\s*개도\s*아까|없어져도\s*되|절대\s*비추|안\s*추천|추천\s*안|후회합니다|후회됨`),
		func(c EngineConfig) float64 { return c.GenericExtremeCeiling }},
}

// DetectStrongNegative scans masked text in severity order; the first
// category with any match wins and reports all of its matches.
func DetectStrongNegative(masked string, cfg EngineConfig) StrongNegativeInfo {
	for _, c := range strongNegOrder {
		if m := c.rx.FindAllString(masked, -1); len(m) > 0 {
			return StrongNegativeInfo{Flag: true, Category: c.category, Ceiling: c.ceiling(cfg), Matched: m}
		}
	}
	return NoStrongNegative()
}

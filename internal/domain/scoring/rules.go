package scoring

import (
	"regexp"
	"time"
)

// RuleContext is what preCheck/skipIf predicates see: the normalized text
// and the rune span of the candidate match.
type RuleContext struct {
	text  runeText
	Start int
	End   int
}

// Window returns normalized text from Start-before to End+after.
func (c RuleContext) Window(before, after int) string {
	return c.text.window(c.Start, c.End, before, after)
}

// PrevRune returns the rune just before the match, or 0 at text start.
func (c RuleContext) PrevRune() rune {
	if c.Start <= 0 || c.Start > c.text.len() {
		return 0
	}
	return c.text.runes[c.Start-1]
}

// CueRule is one static evidence pattern.
type CueRule struct {
	ID         string
	Aspect     Aspect
	Polarity   Polarity
	BaseWeight float64
	Priority   int
	Pattern    *regexp.Regexp
	// PreCheck must return true for the match to be kept.
	PreCheck func(RuleContext) bool
	// SkipIf drops the match when it returns true.
	SkipIf func(RuleContext) bool
}

// CueSource distinguishes curated from auto-promoted lexicon entries.
type CueSource string

const (
	CueSourceManual CueSource = "manual"
	CueSourceAuto   CueSource = "auto"
)

// DynamicCue is a lexicon term matched by plain substring search.
type DynamicCue struct {
	Term        string    `json:"term"`
	Aspect      Aspect    `json:"aspect"`
	Polarity    Polarity  `json:"polarity"`
	BaseWeight  float64   `json:"weight"`
	Priority    int       `json:"priority"`
	Source      CueSource `json:"source"`
	Confidence  float64   `json:"confidence"`
	Occurrences int       `json:"occurrences"`
	Enabled     bool      `json:"enabled"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// RuleID is the evidence rule id reported for hits of this cue.
func (d DynamicCue) RuleID() string {
	return "lexicon:" + d.Term
}

var (
	rxSpiceWord         = regexp.MustCompile(`맵|짜|달`)
	rxAdjustableContext = regexp.MustCompile(`조절|요청|가능|말하(?:면|니)|덜\s*(?:맵|짜|달)게|간\s*조절`)
	rxServicePromise    = regexp.MustCompile(`만족하실\s*수\s*있도록|만족할\s*수\s*있도록|만족하길|만족되면`)
	rxPreferenceContext = regexp.MustCompile(`취향|호불호|개인차|사람마다|개인적|주관`)
)

// Intensifiers and Hedges adjust hit weights within a ±10 rune window.
var (
	Intensifiers = []string{"진짜", "너무", "완전", "엄청", "겁나", "개", "존", "찐", "레알", "대박", "최고", "미친", "핵"}
	Hedges       = []string{"좀", "약간", "그냥", "무난", "나름", "뭐", "그럭저럭", "평범"}
)

func notAfterNegator(c RuleContext) bool {
	r := c.PrevRune()
	return r != '불' && r != '안'
}

func adjustableSpice(c RuleContext) bool {
	w := c.Window(18, 18)
	return rxSpiceWord.MatchString(w) && rxAdjustableContext.MatchString(w)
}

func servicePromise(c RuleContext) bool {
	return rxServicePromise.MatchString(c.Window(12, 18))
}

// StaticRules is the versioned rule table. Order only matters for ties that
// survive the (priority, weight, start, id) sort.
var StaticRules = []CueRule{
	// negated positives
	{ID: "taste_negated_positive", Aspect: AspectTaste, Polarity: Negative, BaseWeight: 1.10, Priority: 130,
		Pattern: regexp.MustCompile(`맛있(?:지(?:는|도|만|라도)?)?\s*않|맛있는\s*건\s*아니|맛이\s*별로`)},
	{ID: "service_negated_positive", Aspect: AspectService, Polarity: Negative, BaseWeight: 1.05, Priority: 130,
		Pattern: regexp.MustCompile(`친절(?:하)?(?:지(?:는|도|만|라도)?)?\s*않|친절함\s*없|서비스\s*(?:좋|괜찮)(?s:.){0,3}않`)},

	// double negatives read as mild praise
	{ID: "taste_double_negative", Aspect: AspectTaste, Polarity: Positive, BaseWeight: 0.35, Priority: 120,
		Pattern: regexp.MustCompile(`(?:맛없|노맛)(?s:.){0,3}않`)},
	{ID: "service_double_negative", Aspect: AspectService, Polarity: Positive, BaseWeight: 0.30, Priority: 120,
		Pattern: regexp.MustCompile(`(?:불\s*친절|불친절)(?s:.){0,3}않`)},
	{ID: "overall_not_bad", Aspect: AspectOverall, Polarity: Positive, BaseWeight: 0.30, Priority: 118,
		Pattern: regexp.MustCompile(`나쁘지\s*않`)},

	// severe negatives
	{ID: "hygiene_critical", Aspect: AspectHygiene, Polarity: Negative, BaseWeight: 1.60, Priority: 115,
		Pattern: regexp.MustCompile(`벌레|이물질|곰팡|오염|악취|식중독|철수세미`)},
	{ID: "fraud_price", Aspect: AspectValue, Polarity: Negative, BaseWeight: 1.40, Priority: 115,
		Pattern: regexp.MustCompile(`사기|바가지|가격\s*다르게|강요|강매|계산\s*실수|결제\s*실수`)},
	{ID: "never_again", Aspect: AspectRevisit, Polarity: Negative, BaseWeight: 1.35, Priority: 115,
		Pattern: regexp.MustCompile(`다신\s*안|다시는\s*안|두\s*번\s*다시\s*안|절대\s*안|강력\s*비추|먹지\s*마|가지\s*마|오지\s*마`)},
	{ID: "service_extreme", Aspect: AspectService, Polarity: Negative, BaseWeight: 1.30, Priority: 115,
		Pattern: regexp.MustCompile(`막말|하대|서비스\s*최악|불친절\s*최악|무시당|무시하|반말|던지|툭툭|째려|도끼눈`)},
	{ID: "taste_strong_negative", Aspect: AspectTaste, Polarity: Negative, BaseWeight: 1.20, Priority: 110,
		Pattern: regexp.MustCompile(`맛없|노맛|최악|쓰레기|실망|후회|비추|별\s*한\s*개도\s*아까`)},

	// ordinary negatives
	{ID: "value_negative", Aspect: AspectValue, Polarity: Negative, BaseWeight: 0.90, Priority: 95,
		Pattern: regexp.MustCompile(`비싸|돈\s*아깝|가격대비\s*별로|창렬|가성비\s*(?:별로|최악)|값어치\s*의문`)},
	{ID: "service_negative", Aspect: AspectService, Polarity: Negative, BaseWeight: 0.85, Priority: 90,
		Pattern: regexp.MustCompile(`불\s*친절|불친절|무례|퉁명|불쾌|성의\s*없|태도\s*별로|응대\s*별로|엉망|개판|한숨|인상\s*쓰`)},
	{ID: "ambience_negative", Aspect: AspectAmbience, Polarity: Negative, BaseWeight: 0.70, Priority: 88,
		Pattern: regexp.MustCompile(`시끄럽|소음|좁|불편|어수선|답답|연기|환기|냄새\s*배`)},
	{ID: "wait_negative", Aspect: AspectWait, Polarity: Negative, BaseWeight: 0.75, Priority: 88,
		Pattern: regexp.MustCompile(`웨이팅|대기|줄\s*길|기다리|늦게\s*나오|오래\s*걸리|한\s*시간|\b[3-9]\d\s*분`)},
	{ID: "taste_texture_negative", Aspect: AspectTaste, Polarity: Negative, BaseWeight: 0.78, Priority: 85,
		Pattern: regexp.MustCompile(`질기|퍽퍽|눅눅|비리|누린내|잡내|밍밍|싱겁|짜다`),
		SkipIf:  adjustableSpice},

	// positives
	{ID: "taste_positive_core", Aspect: AspectTaste, Polarity: Positive, BaseWeight: 1.00, Priority: 70,
		Pattern: regexp.MustCompile(`맛있|존맛|jmt|꿀맛|풍미|육즙|고소|바삭|쫄깃|부드럽|신선`)},
	{ID: "taste_positive_deep", Aspect: AspectTaste, Polarity: Positive, BaseWeight: 0.95, Priority: 68,
		Pattern: regexp.MustCompile(`구수|진한\s*맛|깊은\s*맛|감칠맛|깔끔한\s*맛|근본|전통\s*맛`)},
	{ID: "taste_strong_praise_phrase", Aspect: AspectTaste, Polarity: Positive, BaseWeight: 1.10, Priority: 66,
		Pattern: regexp.MustCompile(`맛으로는\s*깔\s*수\s*없|배신하지\s*않아|찐맛집|검증된\s*맛집|레전드|끝내주|미친맛`)},
	{ID: "service_positive", Aspect: AspectService, Polarity: Positive, BaseWeight: 0.75, Priority: 70,
		Pattern:  regexp.MustCompile(`친절|응대\s*좋|서비스\s*(?:좋|최고)|배려|잘해주|유쾌|감사|고맙`),
		PreCheck: notAfterNegator},
	{ID: "hospitality_positive", Aspect: AspectOverall, Polarity: Positive, BaseWeight: 0.95, Priority: 68,
		Pattern: regexp.MustCompile(`대접받|정성|흡족|기분\s*좋|즐거운\s*시간`)},
	{ID: "value_positive", Aspect: AspectValue, Polarity: Positive, BaseWeight: 0.70, Priority: 68,
		Pattern: regexp.MustCompile(`가성비\s*(?:좋|최고)|혜자|저렴|싸(?:다|요)|가격\s*(?:착|괜찮)|돈값|무한리필`)},
	{ID: "revisit_positive", Aspect: AspectRevisit, Polarity: Positive, BaseWeight: 0.70, Priority: 68,
		Pattern: regexp.MustCompile(`재방문|또\s*갈|다시\s*갈|다음에도|또\s*오|자주\s*오|종종\s*오|매번\s*오|단골|정착`)},
	{ID: "hygiene_positive", Aspect: AspectHygiene, Polarity: Positive, BaseWeight: 0.60, Priority: 65,
		Pattern: regexp.MustCompile(`깨끗|청결|위생\s*좋|깔끔`)},
	{ID: "ambience_positive", Aspect: AspectAmbience, Polarity: Positive, BaseWeight: 0.65, Priority: 65,
		Pattern: regexp.MustCompile(`분위기\s*좋|인테리어\s*(?:예쁘|멋지)|쾌적|아늑|뷰\s*좋|조용|넓|개인룸`)},
	{ID: "portion_positive", Aspect: AspectPortion, Polarity: Positive, BaseWeight: 0.60, Priority: 62,
		Pattern: regexp.MustCompile(`양\s*많|푸짐|넉넉|배부르|리필\s*가능|무한리필`)},
	{ID: "overall_positive", Aspect: AspectOverall, Polarity: Positive, BaseWeight: 0.70, Priority: 55,
		Pattern: regexp.MustCompile(`만족|좋았|좋아요|추천|강추|최고|대박|훌륭`),
		SkipIf:  servicePromise},
	{ID: "overall_negative", Aspect: AspectOverall, Polarity: Negative, BaseWeight: 0.70, Priority: 55,
		Pattern: regexp.MustCompile(`실망|후회|추천\s*안|안\s*추천`)},
}

// severeRuleIDs are negative rules that widen the downward anchoring window.
var severeRuleIDs = map[string]bool{
	"hygiene_critical":      true,
	"fraud_price":           true,
	"never_again":           true,
	"service_extreme":       true,
	"taste_strong_negative": true,
}

// ─────────────────────────────────────────────────────────────────────────────
// Mentions and feature patterns
// ─────────────────────────────────────────────────────────────────────────────

var aspectMentions = []struct {
	aspect Aspect
	rx     *regexp.Regexp
}{
	{AspectTaste, regexp.MustCompile(`맛|음식|메뉴|식사|요리`)},
	{AspectService, regexp.MustCompile(`서비스|응대|직원|사장|서빙|태도`)},
	{AspectValue, regexp.MustCompile(`가격|가성비|비싸|저렴|돈|원|만원|값어치`)},
	{AspectRevisit, regexp.MustCompile(`재방문|또\s*갈|다시\s*갈|다음에도|자주\s*오|종종\s*오|매번\s*오|단골|정착|다신\s*안|절대\s*안`)},
	{AspectHygiene, regexp.MustCompile(`위생|청결|깨끗|깔끔|더럽|이물질|벌레|오염|악취`)},
	{AspectAmbience, regexp.MustCompile(`분위기|인테리어|매장|공간|좌석|테이블|감성|뷰|조명|소음|연기`)},
	{AspectWait, regexp.MustCompile(`웨이팅|대기|줄|기다리|늦게\s*나오|오래\s*걸리`)},
	{AspectPortion, regexp.MustCompile(`양|푸짐|넉넉|배부르|리필|무한`)},
	{AspectOverall, regexp.MustCompile(`만족|좋았|괜찮|별로|실망|후회|추천`)},
}

// DetectMentions returns the aspects named in text, in canonical order.
func DetectMentions(text string) map[Aspect]bool {
	out := make(map[Aspect]bool)
	for _, m := range aspectMentions {
		if m.rx.MatchString(text) {
			out[m.aspect] = true
		}
	}
	return out
}

var (
	rxDigit         = regexp.MustCompile(`\d`)
	rxPrice         = regexp.MustCompile(`\d+\s*원|만원`)
	rxTime          = regexp.MustCompile(`\d+\s*(?:분|시간)|한\s*시간`)
	rxDetailKeyword = regexp.MustCompile(`주차|예약|포장|배달|매장|좌석|룸|웨이팅|대기|리필|무한리필`)
	rxFillerOnly    = regexp.MustCompile(`^[ㅋㅎㅠㅜㄱ-ㅎㅏ-ㅣ!?.,~^;:\-_\s]+$`)
	rxTestToken     = regexp.MustCompile(`^(?:test|테스트|asdf|qwer|ㅁㄴㅇㄹ|\d+)$`)
	rxNoiseOnly     = regexp.MustCompile(`^[ㅋㅎㅠㅜ!?.,\s]+$`)
)

package analysis

import "regexp"

// Feedback is the writing prompt shown next to a live preview.
type Feedback struct {
	Message   string `json:"message"`
	IsWarning bool   `json:"is_warning"`
}

type prompt struct {
	rx      *regexp.Regexp
	message string
}

var (
	rxDeliveryTag = regexp.MustCompile(`(?i)배달|포장|delivery|takeout`)

	tastePrompt = prompt{regexp.MustCompile(`맛|음식|메뉴|식감|소스|면|국물|고소|담백|바삭|풍미|감칠맛|재료`), "어떤 맛이었나요? 맛에 대한 구체적인 표현을 추가해보세요!"}

	// asked in order; the first topic the text never touches wins
	dineInPrompts = []prompt{
		tastePrompt,
		{regexp.MustCompile(`위생|청결|깨끗|깔끔|이물질|벌레`), "매장 위생/청결 상태는 어땠나요?"},
		{regexp.MustCompile(`서비스|직원|사장|친절|불친절|응대|태도`), "직원 서비스나 응대는 어떠셨나요?"},
		{regexp.MustCompile(`분위기|인테리어|매장|공간|좌석|조명|소음|뷰`), "매장 분위기는 어땠나요?"},
		{regexp.MustCompile(`주차|환기|연기|냄새|좁|넓|불편|화장실`), "주차, 환기 등 매장 환경은 어땠나요?"},
	}
	deliveryPrompts = []prompt{tastePrompt}
)

// IsDelivery reports whether any user tag marks a delivery or takeout order.
func IsDelivery(userTags []string) bool {
	for _, t := range userTags {
		if rxDeliveryTag.MatchString(t) {
			return true
		}
	}
	return false
}

// FeedbackFor asks about the most important topic the review leaves out.
// Delivery reviews are only asked about taste.
func FeedbackFor(reviewText string, userTags []string) Feedback {
	prompts := dineInPrompts
	if IsDelivery(userTags) {
		prompts = deliveryPrompts
	}
	for _, p := range prompts {
		if !p.rx.MatchString(reviewText) {
			return Feedback{Message: p.message}
		}
	}
	return Feedback{}
}

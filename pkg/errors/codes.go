package errors

import (
	"net/http"
	"strings"
)

// ErrorCode is a string representation of a specific error condition.
type ErrorCode string

func (c ErrorCode) String() string {
	return string(c)
}

// Module returns the module prefix of the code ("COMMON", "ENG", "LEX", "REV").
func (c ErrorCode) Module() string {
	s := string(c)
	if i := strings.IndexByte(s, '_'); i > 0 {
		return s[:i]
	}
	return s
}

// Common Error Codes
const (
	ErrCodeInternal           ErrorCode = "COMMON_001"
	ErrCodeBadRequest         ErrorCode = "COMMON_002"
	ErrCodeUnauthorized       ErrorCode = "COMMON_003"
	ErrCodeForbidden          ErrorCode = "COMMON_004"
	ErrCodeNotFound           ErrorCode = "COMMON_005"
	ErrCodeConflict           ErrorCode = "COMMON_006"
	ErrCodeTooManyRequests    ErrorCode = "COMMON_007"
	ErrCodeServiceUnavailable ErrorCode = "COMMON_008"
	ErrCodeTimeout            ErrorCode = "COMMON_009"
	ErrCodeValidation         ErrorCode = "COMMON_010"
	ErrCodeSerialization      ErrorCode = "COMMON_011"
	ErrCodeDatabaseError      ErrorCode = "COMMON_012"
	ErrCodeCacheError         ErrorCode = "COMMON_013"
	ErrCodeMessagingError     ErrorCode = "COMMON_014"
	ErrCodeFeatureDisabled    ErrorCode = "COMMON_015"
)

// Engine Error Codes
const (
	ErrCodeEngineConfigInvalid ErrorCode = "ENG_001"
	ErrCodeEnginePolicyUnknown ErrorCode = "ENG_002"
	ErrCodeEngineInputTooLarge ErrorCode = "ENG_003"
)

// Lexicon Error Codes
const (
	ErrCodeLexiconLoadFailed     ErrorCode = "LEX_001"
	ErrCodeCandidateNotFound     ErrorCode = "LEX_002"
	ErrCodeCandidateUpsertFailed ErrorCode = "LEX_003"
	ErrCodeTermInvalid           ErrorCode = "LEX_004"
	ErrCodeCurationActionInvalid ErrorCode = "LEX_005"
)

// Review Error Codes
const (
	ErrCodeReviewNotFound      ErrorCode = "REV_001"
	ErrCodeReviewInvalid       ErrorCode = "REV_002"
	ErrCodeRecalculationFailed ErrorCode = "REV_003"
)

// Short aliases used across the codebase.
const (
	CodeOK           = ErrorCode("OK")
	CodeUnknown      = ErrorCode("UNKNOWN")
	CodeInternal     = ErrCodeInternal
	CodeInvalidParam = ErrCodeBadRequest
	CodeUnauthorized = ErrCodeUnauthorized
	CodeNotFound     = ErrCodeNotFound
	CodeConflict     = ErrCodeConflict
)

// ErrorCodeHTTPStatus maps ErrorCodes to HTTP status codes.
var ErrorCodeHTTPStatus = map[ErrorCode]int{
	ErrCodeInternal:           http.StatusInternalServerError,
	ErrCodeBadRequest:         http.StatusBadRequest,
	ErrCodeUnauthorized:       http.StatusUnauthorized,
	ErrCodeForbidden:          http.StatusForbidden,
	ErrCodeNotFound:           http.StatusNotFound,
	ErrCodeConflict:           http.StatusConflict,
	ErrCodeTooManyRequests:    http.StatusTooManyRequests,
	ErrCodeServiceUnavailable: http.StatusServiceUnavailable,
	ErrCodeTimeout:            http.StatusGatewayTimeout,
	ErrCodeValidation:         http.StatusUnprocessableEntity,
	ErrCodeSerialization:      http.StatusInternalServerError,
	ErrCodeDatabaseError:      http.StatusInternalServerError,
	ErrCodeCacheError:         http.StatusInternalServerError,
	ErrCodeMessagingError:     http.StatusInternalServerError,
	ErrCodeFeatureDisabled:    http.StatusForbidden,

	ErrCodeEngineConfigInvalid: http.StatusInternalServerError,
	ErrCodeEnginePolicyUnknown: http.StatusBadRequest,
	ErrCodeEngineInputTooLarge: http.StatusRequestEntityTooLarge,

	ErrCodeLexiconLoadFailed:     http.StatusServiceUnavailable,
	ErrCodeCandidateNotFound:     http.StatusNotFound,
	ErrCodeCandidateUpsertFailed: http.StatusInternalServerError,
	ErrCodeTermInvalid:           http.StatusBadRequest,
	ErrCodeCurationActionInvalid: http.StatusBadRequest,

	ErrCodeReviewNotFound:      http.StatusNotFound,
	ErrCodeReviewInvalid:       http.StatusBadRequest,
	ErrCodeRecalculationFailed: http.StatusInternalServerError,
}

// ErrorCodeMessage maps ErrorCodes to default messages.
var ErrorCodeMessage = map[ErrorCode]string{
	ErrCodeInternal:           "internal server error",
	ErrCodeBadRequest:         "bad request",
	ErrCodeUnauthorized:       "unauthorized",
	ErrCodeForbidden:          "forbidden",
	ErrCodeNotFound:           "resource not found",
	ErrCodeConflict:           "resource conflict",
	ErrCodeTooManyRequests:    "too many requests",
	ErrCodeServiceUnavailable: "service unavailable",
	ErrCodeTimeout:            "request timeout",
	ErrCodeValidation:         "validation failed",
	ErrCodeSerialization:      "serialization failed",
	ErrCodeDatabaseError:      "database error",
	ErrCodeCacheError:         "cache error",
	ErrCodeMessagingError:     "messaging error",
	ErrCodeFeatureDisabled:    "feature disabled",

	ErrCodeEngineConfigInvalid: "engine configuration invalid",
	ErrCodeEnginePolicyUnknown: "unknown scoring policy",
	ErrCodeEngineInputTooLarge: "review text too large",

	ErrCodeLexiconLoadFailed:     "failed to load lexicon",
	ErrCodeCandidateNotFound:     "candidate term not found",
	ErrCodeCandidateUpsertFailed: "failed to upsert candidate terms",
	ErrCodeTermInvalid:           "invalid term",
	ErrCodeCurationActionInvalid: "invalid curation action",

	ErrCodeReviewNotFound:      "review not found",
	ErrCodeReviewInvalid:       "invalid review",
	ErrCodeRecalculationFailed: "recalculation failed",
}

// HTTPStatus returns the HTTP status for code, defaulting to 500.
func HTTPStatus(code ErrorCode) int {
	if s, ok := ErrorCodeHTTPStatus[code]; ok {
		return s
	}
	return http.StatusInternalServerError
}

// DefaultMessage returns the canonical message for code.
func DefaultMessage(code ErrorCode) string {
	if m, ok := ErrorCodeMessage[code]; ok {
		return m
	}
	return "unknown error"
}

package errors_test

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/turtacn/NeedsFine/pkg/errors"
)

// ─────────────────────────────────────────────────────────────────────────────
// New / Wrap
// ─────────────────────────────────────────────────────────────────────────────

func TestNew_FieldsAreSetCorrectly(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name    string
		code    errors.ErrorCode
		message string
	}{
		{"internal", errors.ErrCodeInternal, "unexpected failure"},
		{"review not found", errors.ErrCodeReviewNotFound, "review 42 not found"},
		{"bad engine config", errors.ErrCodeEngineConfigInvalid, "maxScore out of range"},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			ae := errors.New(tc.code, tc.message)
			require.NotNil(t, ae)
			assert.Equal(t, tc.code, ae.Code)
			assert.Equal(t, tc.message, ae.Message)
			assert.Empty(t, ae.Detail)
			assert.Nil(t, ae.Cause)
		})
	}
}

func TestNew_EmptyMessageUsesDefault(t *testing.T) {
	t.Parallel()

	ae := errors.New(errors.ErrCodeCandidateNotFound, "")
	assert.Equal(t, "candidate term not found", ae.Message)
}

func TestWrap_NilErrReturnsNil(t *testing.T) {
	t.Parallel()
	assert.Nil(t, errors.Wrap(nil, errors.ErrCodeInternal, "ignored"))
}

func TestWrap_CauseChainIsPreserved(t *testing.T) {
	t.Parallel()

	sentinel := stderrors.New("connection refused")
	ae := errors.Wrap(sentinel, errors.ErrCodeDatabaseError, "load lexicon")

	require.NotNil(t, ae)
	assert.True(t, stderrors.Is(ae, sentinel))
	assert.Contains(t, ae.Error(), "connection refused")
	assert.Contains(t, ae.Error(), "[COMMON_012] load lexicon")
}

func TestWrap_UnknownKeepsOriginalCode(t *testing.T) {
	t.Parallel()

	inner := errors.New(errors.ErrCodeReviewNotFound, "review missing")
	outer := errors.Wrap(inner, errors.CodeUnknown, "recalculate")
	assert.Equal(t, errors.ErrCodeReviewNotFound, outer.Code)
}

// ─────────────────────────────────────────────────────────────────────────────
// Chain helpers
// ─────────────────────────────────────────────────────────────────────────────

func TestIsCode_TraversesFmtWrapping(t *testing.T) {
	t.Parallel()

	inner := errors.New(errors.ErrCodeLexiconLoadFailed, "redis down")
	wrapped := fmt.Errorf("api: %w", inner)

	assert.True(t, errors.IsCode(wrapped, errors.ErrCodeLexiconLoadFailed))
	assert.False(t, errors.IsCode(wrapped, errors.ErrCodeInternal))
	assert.False(t, errors.IsCode(nil, errors.ErrCodeInternal))
}

func TestIsNotFound(t *testing.T) {
	t.Parallel()

	assert.True(t, errors.IsNotFound(errors.NotFound("x")))
	assert.True(t, errors.IsNotFound(errors.New(errors.ErrCodeReviewNotFound, "")))
	assert.True(t, errors.IsNotFound(fmt.Errorf("wrap: %w", errors.New(errors.ErrCodeCandidateNotFound, ""))))
	assert.False(t, errors.IsNotFound(errors.Internal("boom")))
	assert.False(t, errors.IsNotFound(stderrors.New("plain")))
}

func TestIsValidation(t *testing.T) {
	t.Parallel()

	assert.True(t, errors.IsValidation(errors.InvalidParam("text required")))
	assert.True(t, errors.IsValidation(errors.New(errors.ErrCodeCurationActionInvalid, "")))
	assert.False(t, errors.IsValidation(errors.Internal("boom")))
}

func TestGetCode(t *testing.T) {
	t.Parallel()

	assert.Equal(t, errors.CodeOK, errors.GetCode(nil))
	assert.Equal(t, errors.CodeUnknown, errors.GetCode(stderrors.New("plain")))
	assert.Equal(t, errors.ErrCodeConflict, errors.GetCode(errors.Conflict("dup")))
}

func TestWithDetailAndCause_CopyReceiver(t *testing.T) {
	t.Parallel()

	base := errors.NotFound("term")
	detailed := base.WithDetail("term=존맛탱")
	caused := base.WithCause(stderrors.New("sql: no rows"))

	assert.Empty(t, base.Detail)
	assert.Nil(t, base.Cause)
	assert.Equal(t, "term=존맛탱", detailed.Detail)
	assert.NotNil(t, caused.Cause)

	var nilErr *errors.AppError
	assert.Nil(t, nilErr.WithDetail("x"))
	assert.Nil(t, nilErr.WithCause(stderrors.New("x")))
}

// ─────────────────────────────────────────────────────────────────────────────
// Codes
// ─────────────────────────────────────────────────────────────────────────────

func TestHTTPStatus(t *testing.T) {
	t.Parallel()

	assert.Equal(t, http.StatusNotFound, errors.HTTPStatus(errors.ErrCodeReviewNotFound))
	assert.Equal(t, http.StatusUnauthorized, errors.Unauthorized("admin").HTTPStatus())
	assert.Equal(t, http.StatusServiceUnavailable, errors.HTTPStatus(errors.ErrCodeLexiconLoadFailed))
	assert.Equal(t, http.StatusInternalServerError, errors.HTTPStatus(errors.ErrorCode("NOPE")))
}

func TestEveryCodeHasStatusAndMessage(t *testing.T) {
	t.Parallel()

	for code := range errors.ErrorCodeHTTPStatus {
		_, ok := errors.ErrorCodeMessage[code]
		assert.True(t, ok, "missing message for %s", code)
	}
	assert.Equal(t, len(errors.ErrorCodeHTTPStatus), len(errors.ErrorCodeMessage))
}

func TestErrorCodeModule(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "LEX", errors.ErrCodeCandidateNotFound.Module())
	assert.Equal(t, "COMMON", errors.ErrCodeInternal.Module())
	assert.Equal(t, "OK", errors.CodeOK.Module())
}

package testutil

import (
	"fmt"
	"time"

	apperrors "github.com/turtacn/NeedsFine/pkg/errors"
)

var timeNow = func() time.Time { return time.Now().UTC() }

func errCandidateNotFound(term string) error {
	return apperrors.New(apperrors.ErrCodeCandidateNotFound, fmt.Sprintf("candidate %q not found", term))
}

// Float64 returns a pointer to v.
func Float64(v float64) *float64 { return &v }

package apperr_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/quizbattle/server/internal/apperr"
)

func TestNew_HasNoCause(t *testing.T) {
	err := apperr.New(apperr.CodeNotInMatch, "no active match")
	assert.Nil(t, err.Unwrap())
	assert.Equal(t, "NOT_IN_MATCH: no active match", err.Error())
}

func TestWrap_PreservesCauseForUnwrapButIncludesItInMessage(t *testing.T) {
	cause := errors.New("pool exhausted")
	err := apperr.Wrap(apperr.CodeInternalError, "loading stats", cause)

	assert.Equal(t, cause, err.Unwrap())
	assert.Contains(t, err.Error(), "pool exhausted")
	assert.True(t, errors.Is(err, cause))
}

func TestInternal_AlwaysUsesInternalErrorCode(t *testing.T) {
	err := apperr.Internal(errors.New("boom"))
	assert.Equal(t, apperr.CodeInternalError, err.Code)
}

func TestAs_ExtractsTaggedErrorUnchanged(t *testing.T) {
	tagged := apperr.New(apperr.CodeUserNotFound, "no such user")
	got := apperr.As(tagged)
	assert.Same(t, tagged, got)
}

func TestAs_FallsBackToInternalErrorForUntaggedError(t *testing.T) {
	got := apperr.As(errors.New("some plain error"))
	assert.Equal(t, apperr.CodeInternalError, got.Code)
}

func TestAs_NilErrorReturnsNil(t *testing.T) {
	assert.Nil(t, apperr.As(nil))
}

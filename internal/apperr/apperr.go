// Package apperr defines the stable machine error codes surfaced to
// clients (spec §7) and a typed Error that the Message Router translates
// into an {code, message} envelope.
package apperr

import (
	"errors"
	"fmt"
)

// Code is a stable, machine-readable error identifier (spec §7 taxonomy).
type Code string

const (
	// Input / validation
	CodeInvalidMessage     Code = "INVALID_MESSAGE"
	CodeUnknownMessageType Code = "UNKNOWN_MESSAGE_TYPE"
	CodeInvalidRequest     Code = "INVALID_REQUEST"

	// Authn / authz
	CodeInvalidToken  Code = "INVALID_TOKEN"
	CodeUserNotFound  Code = "USER_NOT_FOUND"
	CodeUnauthorized  Code = "UNAUTHORIZED"

	// Pre-condition
	CodeAlreadyInGame Code = "ALREADY_IN_GAME"
	CodeNotFriends    Code = "NOT_FRIENDS"
	CodeUserOffline   Code = "USER_OFFLINE"
	CodeNotReady      Code = "NOT_READY"

	// Resource state
	CodeMatchNotFound   Code = "MATCH_NOT_FOUND"
	CodeMatchFinished   Code = "MATCH_FINISHED"
	CodeNotInMatch      Code = "NOT_IN_MATCH"
	CodeLobbyNotFound   Code = "LOBBY_NOT_FOUND"
	CodeInviteNotFound  Code = "INVITE_NOT_FOUND"
	CodeRequestNotFound Code = "REQUEST_NOT_FOUND"

	// Capacity
	CodeLobbyCodeGenerationFailed Code = "LOBBY_CODE_GENERATION_FAILED"

	// Infrastructure
	CodeInternalError Code = "INTERNAL_ERROR"

	// Data
	CodeInsufficientQuestions Code = "insufficient_questions"

	// Message processing (malformed envelope/payload that decoded but
	// could not be handled — spec §4.2)
	CodeMessageProcessingError Code = "MESSAGE_PROCESSING_ERROR"
)

// Error is a taxonomy-tagged error with a human-readable message, ready to
// be surfaced verbatim as a wire error envelope.
type Error struct {
	Code    Code
	Message string
	cause   error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.cause }

// New builds an Error with no wrapped cause.
func New(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

// Wrap builds an Error that wraps an underlying cause (kept for logging,
// never serialized to the client).
func Wrap(code Code, message string, cause error) *Error {
	return &Error{Code: code, Message: message, cause: cause}
}

// Internal builds an INTERNAL_ERROR wrapping cause, for the catch-all path
// that a handler must never let panic the process (spec §7).
func Internal(cause error) *Error {
	return Wrap(CodeInternalError, "internal error", cause)
}

// As extracts an *Error from err if possible, falling back to an
// INTERNAL_ERROR for anything the core didn't tag itself.
func As(err error) *Error {
	if err == nil {
		return nil
	}
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr
	}
	return Internal(err)
}

package client

import (
	"context"
	"errors"
	"fmt"
)

var (
	// ErrAlreadyInitialized is returned by a second Init on the same client.
	ErrAlreadyInitialized = errors.New("overwatch client already initialized")

	// ErrUnknownChannel is returned by Subscribe for a channel outside the
	// fixed set.
	ErrUnknownChannel = errors.New("unknown channel")

	ErrMissingAPIKey  = errors.New("api key is required")
	ErrEmptyEventType = errors.New("track event type is required")
)

// UninitializedClientError is returned by every public operation called
// before Init has completed.
type UninitializedClientError struct {
	Op string
}

func (e *UninitializedClientError) Error() string {
	return fmt.Sprintf("overwatch: %s called before Init", e.Op)
}

// StatusError is a non-2xx snapshot response.
type StatusError struct {
	Path string
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("GET %s: %d %s", e.Path, e.Code, e.Body)
}

// BodyError is a 2xx snapshot response whose body did not decode.
type BodyError struct {
	Path string
	Err  error
}

func (e *BodyError) Error() string {
	return fmt.Sprintf("decode %s: %v", e.Path, e.Err)
}

func (e *BodyError) Unwrap() error { return e.Err }

// answered reports whether err came back from the daemon itself, as
// opposed to a failure to reach it.
func answered(err error) bool {
	var se *StatusError
	var be *BodyError
	return errors.As(err, &se) || errors.As(err, &be)
}

// retryable reports whether a snapshot GET may succeed if repeated.
func retryable(err error) bool {
	if errors.Is(err, context.Canceled) {
		return false
	}
	var se *StatusError
	if errors.As(err, &se) {
		return se.Code >= 500
	}
	var be *BodyError
	return !errors.As(err, &be)
}

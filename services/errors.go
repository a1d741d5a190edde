package services

import (
	"errors"
	"fmt"

	"github.com/cppla/studyshare/store"
)

// Sentinel errors returned by the services. Controllers map them to HTTP statuses with errors.Is.
var (
	ErrInvalidInput       = errors.New("invalid input")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrUnauthenticated    = errors.New("unauthenticated")
	ErrForbidden          = errors.New("forbidden")
	ErrNotFound           = errors.New("not found")
	ErrAlreadyProcessed   = errors.New("submission already processed")
	ErrTooManyAttempts    = errors.New("too many failed attempts")
	ErrUpstream           = errors.New("upstream failure")
)

func invalid(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrInvalidInput, fmt.Sprintf(format, args...))
}

// storeErr translates store sentinels and marks everything else as an upstream failure.
func storeErr(op string, err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, store.ErrNotFound):
		return ErrNotFound
	case errors.Is(err, store.ErrNotPending):
		return ErrAlreadyProcessed
	default:
		return fmt.Errorf("%w: %s: %v", ErrUpstream, op, err)
	}
}

func upstream(op string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%w: %s: %v", ErrUpstream, op, err)
}

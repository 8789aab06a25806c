package voiceprint

import (
	"errors"
	"fmt"
)

// Error is a failure reported by the voiceprint registry.
type Error struct {
	// Code is the registry's business code, e.g. "000000" for success.
	Code string `json:"code"`

	// Desc is the registry's error description.
	Desc string `json:"desc"`

	// HTTPStatus is the HTTP status of the response.
	HTTPStatus int `json:"-"`
}

func (e *Error) Error() string {
	return fmt.Sprintf("voiceprint: %s (code=%s, http_status=%d)", e.Desc, e.Code, e.HTTPStatus)
}

// AsError attempts to convert an error to *Error.
func AsError(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}

var (
	// ErrPendingNotFound is returned for operations on a pending
	// speaker id the store does not know.
	ErrPendingNotFound = errors.New("voiceprint: pending speaker not found")

	// ErrInsufficientAudio is returned by MergeAndRegister when the
	// accumulated audio is still below the registration threshold.
	ErrInsufficientAudio = errors.New("voiceprint: accumulated audio below registration threshold")
)

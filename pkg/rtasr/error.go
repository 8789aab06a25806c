package rtasr

import (
	"errors"
	"fmt"
)

// Error is a failure reported by the transcription service inside an
// open session.
type Error struct {
	// Code is the provider error code, 0 when the service did not send one.
	Code int `json:"code"`

	// Message is the provider error description.
	Message string `json:"message"`
}

func (e *Error) Error() string {
	return fmt.Sprintf("rtasr: %s (code=%d)", e.Message, e.Code)
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
	// ErrEmptyAudio is returned by Transcribe when there is no audio to
	// send after header stripping.
	ErrEmptyAudio = errors.New("rtasr: empty audio")
)

//go:build !portaudio

// Package portaudio provides microphone capture via the PortAudio C library.
//
// Without the "portaudio" build tag these stubs report capture as
// unavailable, so the rest of the tree builds on systems without the
// library installed.
package portaudio

import (
	"errors"
	"io"
	"time"

	"github.com/earshot-ai/earshot/pkg/audio/pcm"
)

// ErrUnavailable is returned when the binary was built without the
// portaudio tag.
var ErrUnavailable = errors.New("portaudio: built without microphone support (rebuild with -tags portaudio)")

// Available reports whether microphone capture was compiled in.
func Available() bool { return false }

// InputStream is a placeholder; NewInputStream always fails in this build.
type InputStream struct{}

// NewInputStream reports that capture is unavailable.
func NewInputStream(format pcm.Format, frameDuration time.Duration) (*InputStream, error) {
	return nil, ErrUnavailable
}

// PrintDevices reports that capture is unavailable.
func PrintDevices() error {
	return ErrUnavailable
}

func (is *InputStream) Next() ([]byte, error)        { return nil, io.EOF }
func (is *InputStream) Format() pcm.Format           { return 0 }
func (is *InputStream) FrameDuration() time.Duration { return 0 }
func (is *InputStream) Close() error                 { return nil }

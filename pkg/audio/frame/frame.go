// Package frame turns a continuous PCM byte stream into fixed-duration
// capture frames, the unit the endpointing layer classifies.
package frame

import (
	"fmt"
	"io"
	"time"

	"google.golang.org/api/iterator"

	"github.com/earshot-ai/earshot/pkg/audio/pcm"
)

// Source yields fixed-size PCM frames until the underlying capture ends.
type Source interface {
	// Next returns the next frame. The returned slice is owned by the
	// caller. Returns iterator.Done when the capture is exhausted.
	Next() ([]byte, error)

	// Format returns the PCM format of the frames.
	Format() pcm.Format

	// FrameDuration returns the fixed duration of each frame.
	FrameDuration() time.Duration

	// Close releases the underlying capture.
	Close() error
}

// validFrameDuration reports whether d is a frame duration the speech
// classifier accepts.
func validFrameDuration(d time.Duration) bool {
	switch d {
	case 10 * time.Millisecond, 20 * time.Millisecond, 30 * time.Millisecond:
		return true
	}
	return false
}

// Options configures a reader-backed Source.
type Options struct {
	// Format is the PCM format of the stream. Default pcm.L16Mono16K.
	Format pcm.Format

	// FrameDuration is the duration of each emitted frame.
	// Must be 10, 20, or 30 ms. Default 30 ms.
	FrameDuration time.Duration

	// Realtime paces Next to the wall clock so a file replays at
	// capture speed instead of draining instantly.
	Realtime bool
}

// NewReader returns a Source that slices the byte stream r into frames.
// A short final read is zero-padded to a whole frame so no trailing
// audio is dropped.
func NewReader(r io.Reader, opts Options) (Source, error) {
	if opts.FrameDuration == 0 {
		opts.FrameDuration = 30 * time.Millisecond
	}
	if !validFrameDuration(opts.FrameDuration) {
		return nil, fmt.Errorf("frame: invalid frame duration %v (want 10ms, 20ms or 30ms)", opts.FrameDuration)
	}
	return &readerSource{
		r:        r,
		format:   opts.Format,
		interval: opts.FrameDuration,
		size:     int(opts.Format.BytesInDuration(opts.FrameDuration)),
		realtime: opts.Realtime,
	}, nil
}

type readerSource struct {
	r        io.Reader
	format   pcm.Format
	interval time.Duration
	size     int
	realtime bool

	start time.Time
	n     int64 // frames emitted
	done  bool
}

func (s *readerSource) Next() ([]byte, error) {
	if s.done {
		return nil, iterator.Done
	}
	buf := make([]byte, s.size)
	n, err := io.ReadFull(s.r, buf)
	switch err {
	case nil:
	case io.ErrUnexpectedEOF:
		// Pad the tail with silence and finish on the next call.
		for i := n; i < s.size; i++ {
			buf[i] = 0
		}
		s.done = true
	case io.EOF:
		s.done = true
		return nil, iterator.Done
	default:
		s.done = true
		return nil, err
	}

	if s.realtime {
		if s.start.IsZero() {
			s.start = time.Now()
		}
		expected := s.start.Add(time.Duration(s.n) * s.interval)
		if d := time.Until(expected); d > 0 {
			time.Sleep(d)
		}
	}
	s.n++
	return buf, nil
}

func (s *readerSource) Format() pcm.Format         { return s.format }
func (s *readerSource) FrameDuration() time.Duration { return s.interval }

func (s *readerSource) Close() error {
	s.done = true
	if c, ok := s.r.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

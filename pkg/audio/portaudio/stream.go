//go:build portaudio

package portaudio

import (
	"io"
	"sync"
	"time"

	"github.com/earshot-ai/earshot/pkg/audio/pcm"
)

// Available reports whether microphone capture was compiled in.
func Available() bool { return true }

// InputStream captures fixed-duration PCM frames from the default
// input device. It implements frame.Source, so it plugs straight into
// the speech segmenter.
type InputStream struct {
	stream *Stream
	format pcm.Format
	frames int
	dur    time.Duration
	mu     sync.Mutex
	closed bool
}

// NewInputStream opens the default input device for recording.
// frameDuration is the duration of each captured frame (10, 20 or
// 30 ms to match the segmenter).
func NewInputStream(format pcm.Format, frameDuration time.Duration) (*InputStream, error) {
	framesPerBuffer := int(format.SamplesInDuration(frameDuration))

	stream, err := openStream(format.Channels(), float64(format.SampleRate()), framesPerBuffer)
	if err != nil {
		return nil, err
	}

	if err := stream.Start(); err != nil {
		stream.Close()
		return nil, err
	}

	return &InputStream{
		stream: stream,
		format: format,
		frames: framesPerBuffer,
		dur:    frameDuration,
	}, nil
}

// Next returns the next captured frame as little-endian int16 bytes.
func (is *InputStream) Next() ([]byte, error) {
	is.mu.Lock()
	defer is.mu.Unlock()

	if is.closed {
		return nil, io.EOF
	}

	samples, err := is.stream.Read(is.frames)
	if err != nil {
		return nil, err
	}

	data := make([]byte, len(samples)*2)
	for i, s := range samples {
		data[i*2] = byte(s)
		data[i*2+1] = byte(s >> 8)
	}
	return data, nil
}

// Format returns the PCM format.
func (is *InputStream) Format() pcm.Format {
	return is.format
}

// FrameDuration returns the duration of each captured frame.
func (is *InputStream) FrameDuration() time.Duration {
	return is.dur
}

// Close stops and closes the stream.
func (is *InputStream) Close() error {
	is.mu.Lock()
	defer is.mu.Unlock()

	if is.closed {
		return nil
	}
	is.closed = true

	return is.stream.Close()
}

// Package pcm provides types and arithmetic for raw PCM audio.
//
// The Format type is the single source of truth for converting between
// byte counts, sample counts, and wall-clock durations. Every component
// that slices or paces audio (framing, endpointing, paced transmission,
// utterance extraction) goes through this package so the math stays in
// one place.
package pcm

import (
	"io"
	"time"
)

const (
	// L16Mono16K represents audio/L16; rate=16000; channels=1.
	// This is the capture and wire format for the transcription pipeline.
	L16Mono16K Format = iota
	// L16Mono8K represents audio/L16; rate=8000; channels=1
	L16Mono8K
	// L16Mono44K1 represents audio/L16; rate=44100; channels=1
	L16Mono44K1
	// L16Mono48K represents audio/L16; rate=48000; channels=1
	L16Mono48K
)

// Format represents a PCM audio format configuration.
// All formats are 16-bit signed little-endian mono.
type Format int

// SampleRate returns the sample rate in Hz for this format.
func (f Format) SampleRate() int {
	switch f {
	case L16Mono16K:
		return 16000
	case L16Mono8K:
		return 8000
	case L16Mono44K1:
		return 44100
	case L16Mono48K:
		return 48000
	}
	panic("pcm: invalid audio format")
}

// Channels returns the number of audio channels for this format.
func (f Format) Channels() int {
	return 1
}

// Depth returns the bit depth for this format.
func (f Format) Depth() int {
	return 16
}

// SampleBytes returns the size of one sample frame in bytes.
func (f Format) SampleBytes() int {
	return f.Channels() * f.Depth() / 8
}

// Samples returns the number of samples in the given number of bytes.
func (f Format) Samples(bytes int64) int64 {
	return bytes / int64(f.SampleBytes())
}

// SamplesInDuration returns the number of samples in the given duration.
func (f Format) SamplesInDuration(d time.Duration) int64 {
	return int64(time.Duration(f.SampleRate()) * d / time.Second)
}

// BytesInDuration returns the number of bytes in the given duration.
func (f Format) BytesInDuration(d time.Duration) int64 {
	return f.SamplesInDuration(d) * int64(f.SampleBytes())
}

// Duration returns the duration of the given number of bytes.
func (f Format) Duration(bytes int64) time.Duration {
	return time.Duration(f.Samples(bytes)) * time.Second / time.Duration(f.SampleRate())
}

// BytesRate returns the byte rate of the audio data.
func (f Format) BytesRate() int {
	return f.SampleRate() * f.SampleBytes()
}

// Slice returns the audio interval [start, end) of b, clamped to the
// data that is actually present. Offsets are aligned down to sample
// boundaries so the result never splits a sample.
func (f Format) Slice(b []byte, start, end time.Duration) []byte {
	if end <= start {
		return nil
	}
	lo := f.align(f.BytesInDuration(start))
	hi := f.align(f.BytesInDuration(end))
	if lo >= int64(len(b)) {
		return nil
	}
	if hi > int64(len(b)) {
		hi = int64(len(b))
	}
	return b[lo:hi]
}

func (f Format) align(n int64) int64 {
	sb := int64(f.SampleBytes())
	return n - n%sb
}

// ReadChunk reads exactly the given duration of audio data from the reader.
func (f Format) ReadChunk(r io.Reader, d time.Duration) ([]byte, error) {
	buf := make([]byte, f.BytesInDuration(d))
	if _, err := io.ReadFull(r, buf); err != nil {
		return nil, err
	}
	return buf, nil
}

// String returns a human-readable representation of the format.
func (f Format) String() string {
	switch f {
	case L16Mono16K:
		return "audio/L16; rate=16000; channels=1"
	case L16Mono8K:
		return "audio/L16; rate=8000; channels=1"
	case L16Mono44K1:
		return "audio/L16; rate=44100; channels=1"
	case L16Mono48K:
		return "audio/L16; rate=48000; channels=1"
	}
	panic("pcm: invalid audio format")
}

// Package audio provides audio processing utilities.
//
// This package serves as an umbrella for audio-related sub-packages:
//
//   - pcm: PCM (Pulse Code Modulation) format arithmetic and slicing
//   - wav: minimal RIFF/WAVE encoding and decoding
//   - frame: fixed-duration framing of PCM streams
//   - resampler: sample rate and channel conversion
//   - portaudio: microphone capture (build tag "portaudio")
//
// Example usage:
//
//	import "github.com/earshot-ai/earshot/pkg/audio/pcm"
//
//	format := pcm.L16Mono16K
//	d := format.Duration(int64(len(audioData)))
package audio

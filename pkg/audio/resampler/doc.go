// Package resampler provides streaming audio resampling.
//
// It supports:
//   - Sample rate conversion (e.g., 44100Hz to 16000Hz)
//   - Channel conversion (mono to stereo or stereo to mono)
//   - Streaming interface via io.Reader
//
// The package uses high-quality resampling by default and handles 16-bit signed
// integer audio samples. Its main job here is normalizing capture input to the
// 16 kHz mono format the transcription service expects.
//
// Example usage:
//
//	src := resampler.Format{SampleRate: 44100, Stereo: true}
//	dst := resampler.Format{SampleRate: 16000, Stereo: false}
//	r, err := resampler.New(audioReader, src, dst)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	// Read resampled audio from r
//	io.Copy(output, r)
package resampler

// Package vad performs voice-activity endpointing: it classifies capture
// frames as speech or silence and groups runs of speech into discrete
// segments that the transcription session consumes.
package vad

import (
	"log/slog"
	"time"

	"google.golang.org/api/iterator"

	"github.com/earshot-ai/earshot/pkg/audio/frame"
	"github.com/earshot-ai/earshot/pkg/audio/pcm"
)

// Defaults for the endpointing policy.
const (
	DefaultSilenceThreshold  = 5000 * time.Millisecond
	DefaultMinSpeechDuration = 500 * time.Millisecond
)

// Segment is one continuous speech episode. PCM holds only the frames up
// to the last speech frame; the trailing silence that closed the episode
// is never shipped downstream.
type Segment struct {
	PCM    []byte
	Format pcm.Format

	// Start and End are wall-clock bounds of the episode, including the
	// trailing silence that triggered emission.
	Start time.Time
	End   time.Time
}

// Duration returns the duration of the speech payload.
func (s *Segment) Duration() time.Duration {
	return s.Format.Duration(int64(len(s.PCM)))
}

// Config tunes the endpointing policy.
type Config struct {
	// SilenceThreshold is how much consecutive silence ends an episode.
	SilenceThreshold time.Duration

	// MinSpeechDuration discards episodes whose speech portion
	// (excluding trailing silence) is shorter than this.
	MinSpeechDuration time.Duration

	// Classifier decides speech vs. silence per frame.
	// Defaults to NewEnergy(0).
	Classifier Classifier

	// Logger for skip/emit diagnostics. Defaults to slog.Default().
	Logger *slog.Logger

	// now is overridable for tests.
	now func() time.Time
}

// Segmenter pulls frames from a Source and emits speech segments.
//
// It is a three-state machine: idle (no episode), active (accumulating
// speech), trailing (speech stopped, counting silence toward the
// threshold). Speech during trailing returns to active without losing
// the intervening frames.
type Segmenter struct {
	src frame.Source
	cfg Config

	silenceFrames int // consecutive silent frames needed to close
	minFrames     int // speech frames needed to emit
}

// NewSegmenter creates a Segmenter over the given frame source.
func NewSegmenter(src frame.Source, cfg Config) *Segmenter {
	if cfg.SilenceThreshold == 0 {
		cfg.SilenceThreshold = DefaultSilenceThreshold
	}
	if cfg.MinSpeechDuration == 0 {
		cfg.MinSpeechDuration = DefaultMinSpeechDuration
	}
	if cfg.Classifier == nil {
		cfg.Classifier = NewEnergy(0)
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.now == nil {
		cfg.now = time.Now
	}
	fd := src.FrameDuration()
	return &Segmenter{
		src:           src,
		cfg:           cfg,
		silenceFrames: int(cfg.SilenceThreshold / fd),
		minFrames:     int(cfg.MinSpeechDuration / fd),
	}
}

// Next blocks until a complete speech segment is available and returns
// it. Episodes shorter than the minimum speech duration are skipped
// silently. Returns iterator.Done when the source is exhausted; an
// in-progress episode at source end is flushed if it meets the minimum.
func (g *Segmenter) Next() (*Segment, error) {
	var (
		frames  [][]byte
		start   time.Time
		silence int
		active  bool
	)

	emit := func(trailing int) *Segment {
		speech := len(frames) - trailing
		if speech < g.minFrames {
			g.cfg.Logger.Debug("speech episode below minimum, skipping",
				"frames", speech, "min_frames", g.minFrames)
			return nil
		}
		var n int
		for _, f := range frames[:speech] {
			n += len(f)
		}
		payload := make([]byte, 0, n)
		for _, f := range frames[:speech] {
			payload = append(payload, f...)
		}
		return &Segment{
			PCM:    payload,
			Format: g.src.Format(),
			Start:  start,
			End:    g.cfg.now(),
		}
	}

	for {
		f, err := g.src.Next()
		if err == iterator.Done {
			if active {
				if seg := emit(silence); seg != nil {
					return seg, nil
				}
			}
			return nil, iterator.Done
		}
		if err != nil {
			return nil, err
		}

		if g.cfg.Classifier.IsSpeech(f) {
			if !active {
				active = true
				start = g.cfg.now()
				frames = frames[:0]
			}
			frames = append(frames, f)
			silence = 0
			continue
		}

		if !active {
			continue
		}

		// Trailing: keep collecting so resumed speech is not clipped.
		silence++
		frames = append(frames, f)
		if silence < g.silenceFrames {
			continue
		}

		seg := emit(silence)
		active = false
		silence = 0
		frames = nil
		if seg != nil {
			return seg, nil
		}
	}
}

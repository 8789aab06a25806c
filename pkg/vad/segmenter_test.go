package vad

import (
	"bytes"
	"testing"
	"time"

	"google.golang.org/api/iterator"

	"github.com/earshot-ai/earshot/pkg/audio/pcm"
)

const testFrameMS = 30

// fakeSource replays a fixed frame sequence.
type fakeSource struct {
	frames [][]byte
	pos    int
}

func (s *fakeSource) Next() ([]byte, error) {
	if s.pos >= len(s.frames) {
		return nil, iterator.Done
	}
	f := s.frames[s.pos]
	s.pos++
	return f, nil
}

func (s *fakeSource) Format() pcm.Format           { return pcm.L16Mono16K }
func (s *fakeSource) FrameDuration() time.Duration { return testFrameMS * time.Millisecond }
func (s *fakeSource) Close() error                 { return nil }

// Frames are tagged so the classifier does not depend on real audio.
var (
	speechFrame  = bytes.Repeat([]byte{0x01}, 960)
	silenceFrame = bytes.Repeat([]byte{0x00}, 960)
)

func tagClassifier() Classifier {
	return ClassifierFunc(func(f []byte) bool { return f[0] != 0 })
}

func repeat(f []byte, n int) [][]byte {
	out := make([][]byte, n)
	for i := range out {
		out[i] = f
	}
	return out
}

func newTestSegmenter(frames [][]byte, silence, minSpeech time.Duration) *Segmenter {
	return NewSegmenter(&fakeSource{frames: frames}, Config{
		SilenceThreshold:  silence,
		MinSpeechDuration: minSpeech,
		Classifier:        tagClassifier(),
	})
}

func TestSingleSegmentExcludesTrailingSilence(t *testing.T) {
	// 20 speech frames, then enough silence to close the episode
	// (90ms threshold = 3 frames), then more silence.
	frames := append(repeat(speechFrame, 20), repeat(silenceFrame, 10)...)
	g := newTestSegmenter(frames, 90*time.Millisecond, 300*time.Millisecond)

	seg, err := g.Next()
	if err != nil {
		t.Fatal(err)
	}
	if want := 20 * 960; len(seg.PCM) != want {
		t.Fatalf("payload = %d bytes, want %d (trailing silence must be excluded)", len(seg.PCM), want)
	}
	if seg.Duration() != 600*time.Millisecond {
		t.Fatalf("duration = %v, want 600ms", seg.Duration())
	}

	// Exactly one segment.
	if _, err := g.Next(); err != iterator.Done {
		t.Fatalf("second Next = %v, want iterator.Done", err)
	}
}

func TestMinimumDurationFilter(t *testing.T) {
	// 300ms of speech with a 500ms minimum: nothing comes out.
	frames := append(repeat(speechFrame, 10), repeat(silenceFrame, 5)...)
	g := newTestSegmenter(frames, 90*time.Millisecond, 500*time.Millisecond)

	if _, err := g.Next(); err != iterator.Done {
		t.Fatalf("Next = %v, want iterator.Done for sub-minimum episode", err)
	}
}

func TestSpeechResumesDuringTrailing(t *testing.T) {
	// Speech, a silence gap shorter than the threshold, more speech,
	// then closing silence: one segment containing the gap.
	var frames [][]byte
	frames = append(frames, repeat(speechFrame, 10)...)
	frames = append(frames, repeat(silenceFrame, 2)...) // below 3-frame threshold
	frames = append(frames, repeat(speechFrame, 10)...)
	frames = append(frames, repeat(silenceFrame, 4)...)
	g := newTestSegmenter(frames, 90*time.Millisecond, 300*time.Millisecond)

	seg, err := g.Next()
	if err != nil {
		t.Fatal(err)
	}
	if want := 22 * 960; len(seg.PCM) != want {
		t.Fatalf("payload = %d bytes, want %d (gap frames must stay in the episode)", len(seg.PCM), want)
	}
	if _, err := g.Next(); err != iterator.Done {
		t.Fatalf("second Next = %v, want iterator.Done", err)
	}
}

func TestTwoEpisodes(t *testing.T) {
	var frames [][]byte
	frames = append(frames, repeat(speechFrame, 12)...)
	frames = append(frames, repeat(silenceFrame, 4)...)
	frames = append(frames, repeat(speechFrame, 15)...)
	frames = append(frames, repeat(silenceFrame, 4)...)
	g := newTestSegmenter(frames, 90*time.Millisecond, 300*time.Millisecond)

	first, err := g.Next()
	if err != nil {
		t.Fatal(err)
	}
	second, err := g.Next()
	if err != nil {
		t.Fatal(err)
	}
	if len(first.PCM) != 12*960 || len(second.PCM) != 15*960 {
		t.Fatalf("payloads = %d, %d bytes", len(first.PCM), len(second.PCM))
	}
}

func TestFlushAtSourceEnd(t *testing.T) {
	// Source ends mid-episode; the partial episode is flushed if long
	// enough.
	g := newTestSegmenter(repeat(speechFrame, 20), 90*time.Millisecond, 300*time.Millisecond)

	seg, err := g.Next()
	if err != nil {
		t.Fatal(err)
	}
	if len(seg.PCM) != 20*960 {
		t.Fatalf("payload = %d bytes, want %d", len(seg.PCM), 20*960)
	}
}

func TestEnergyClassifier(t *testing.T) {
	loud := make([]byte, 960)
	for i := 0; i+1 < len(loud); i += 2 {
		loud[i] = 0x00
		loud[i+1] = 0x40 // 0x4000 = half scale
	}
	quiet := make([]byte, 960)

	for level := 0; level <= 3; level++ {
		c := NewEnergy(level)
		if !c.IsSpeech(loud) {
			t.Errorf("level %d: half-scale tone not classified as speech", level)
		}
		if c.IsSpeech(quiet) {
			t.Errorf("level %d: silence classified as speech", level)
		}
	}
}

package frame

import (
	"bytes"
	"testing"
	"time"

	"google.golang.org/api/iterator"

	"github.com/earshot-ai/earshot/pkg/audio/pcm"
)

func TestReaderFraming(t *testing.T) {
	// 2.5 frames of 30ms @ 16kHz (960 bytes per frame).
	src := bytes.Repeat([]byte{0x7F}, 960*2+480)
	s, err := NewReader(bytes.NewReader(src), Options{Format: pcm.L16Mono16K})
	if err != nil {
		t.Fatal(err)
	}

	var frames [][]byte
	for {
		f, err := s.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			t.Fatal(err)
		}
		frames = append(frames, f)
	}

	if len(frames) != 3 {
		t.Fatalf("got %d frames, want 3", len(frames))
	}
	for i, f := range frames {
		if len(f) != 960 {
			t.Fatalf("frame %d len = %d, want 960", i, len(f))
		}
	}
	// Final frame is half data, half padding.
	last := frames[2]
	if last[479] != 0x7F || last[480] != 0 {
		t.Error("tail frame not zero-padded at the expected boundary")
	}

	if _, err := s.Next(); err != iterator.Done {
		t.Fatalf("err after done = %v, want iterator.Done", err)
	}
}

func TestInvalidFrameDuration(t *testing.T) {
	_, err := NewReader(bytes.NewReader(nil), Options{
		Format:        pcm.L16Mono16K,
		FrameDuration: 25 * time.Millisecond,
	})
	if err == nil {
		t.Fatal("expected error for 25ms frames")
	}
}

func TestRealtimePacing(t *testing.T) {
	// 4 frames of 10ms must take at least ~30ms to drain (first frame
	// is not delayed).
	src := bytes.Repeat([]byte{0}, 320*4)
	s, err := NewReader(bytes.NewReader(src), Options{
		Format:        pcm.L16Mono16K,
		FrameDuration: 10 * time.Millisecond,
		Realtime:      true,
	})
	if err != nil {
		t.Fatal(err)
	}

	start := time.Now()
	n := 0
	for {
		if _, err := s.Next(); err == iterator.Done {
			break
		} else if err != nil {
			t.Fatal(err)
		}
		n++
	}
	if n != 4 {
		t.Fatalf("got %d frames, want 4", n)
	}
	if elapsed := time.Since(start); elapsed < 30*time.Millisecond {
		t.Errorf("drained in %v, want >= 30ms", elapsed)
	}
}

// Package pipeline wires speech segmentation, realtime transcription
// and voiceprint enrollment into one attributed-transcript flow: each
// detected speech segment is transcribed with the currently known
// voiceprints as a matching hint, unknown speakers have their audio
// accumulated toward automatic enrollment, and every utterance comes
// back labeled with the best identity available at that moment.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"google.golang.org/api/iterator"

	"github.com/earshot-ai/earshot/pkg/audio/pcm"
	"github.com/earshot-ai/earshot/pkg/audio/wav"
	"github.com/earshot-ai/earshot/pkg/jsontime"
	"github.com/earshot-ai/earshot/pkg/rtasr"
	"github.com/earshot-ai/earshot/pkg/storage"
	"github.com/earshot-ai/earshot/pkg/vad"
)

// Transcriber is the slice of the transcription client the pipeline
// needs. *rtasr.Client satisfies it.
type Transcriber interface {
	Transcribe(ctx context.Context, pcm []byte, opts rtasr.TranscribeOptions) (*rtasr.Result, error)
}

// Enroller is the slice of the voiceprint manager the pipeline needs.
// *voiceprint.Manager satisfies it.
type Enroller interface {
	FeatureIDs() string
	CreatePending() (string, error)
	AddSegment(ctx context.Context, pendingID string, audio []byte) error
	Ready(pendingID string) bool
	MergeAndRegister(ctx context.Context, pendingID, name string) (string, error)
}

// LabeledUtterance is one speaker-attributed utterance with its
// identity resolved as far as the pipeline could.
type LabeledUtterance struct {
	// Label is the display identity: a matched feature id, a freshly
	// registered one, an unknown_N placeholder for a speaker still
	// accumulating toward enrollment, or speaker_N when enrollment is
	// off.
	Label string `json:"label"`

	// Enrolled marks labels that point at a registered voiceprint.
	Enrolled bool `json:"enrolled"`

	Text    string `json:"text"`
	Speaker int    `json:"speaker_id"`

	// Begin and End are millisecond offsets within the segment.
	Begin int `json:"start_time"`
	End   int `json:"end_time"`
}

// Transcript is the attributed result for one speech segment.
type Transcript struct {
	// Start and End bound the source segment in wall-clock time.
	Start jsontime.Milli `json:"start"`
	End   jsontime.Milli `json:"end"`

	// Duration is the duration of the speech payload.
	Duration jsontime.Duration `json:"duration"`

	// Text is the plain transcript without attribution.
	Text string `json:"text"`

	Utterances []LabeledUtterance `json:"utterances,omitempty"`
}

// String renders the transcript with bracketed inline labels, a new
// line whenever the speaker changes.
func (t *Transcript) String() string {
	if len(t.Utterances) == 0 {
		return t.Text
	}
	var out string
	speaker := -1
	for _, u := range t.Utterances {
		if u.Speaker != speaker {
			if out != "" {
				out += "\n"
			}
			out += "[" + u.Label + "]: "
			speaker = u.Speaker
		}
		out += u.Text
	}
	return out
}

// Pipeline runs segments through transcription and enrollment.
type Pipeline struct {
	transcriber Transcriber
	enroller    Enroller
	format      pcm.Format
	logger      *slog.Logger

	// audit, when set, receives a WAV copy of every processed segment.
	audit storage.FileStore

	noEnroll bool

	now func() time.Time
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithLogger sets the logger used for per-segment diagnostics.
func WithLogger(l *slog.Logger) Option {
	return func(p *Pipeline) {
		p.logger = l
	}
}

// WithAuditStore saves a WAV copy of every processed segment to the
// given store under audit/.
func WithAuditStore(fs storage.FileStore) Option {
	return func(p *Pipeline) {
		p.audit = fs
	}
}

// WithoutEnrollment disables automatic registration of unknown
// speakers. Utterances are still matched against the existing catalog;
// unmatched speakers keep their unknown_N placeholder.
func WithoutEnrollment() Option {
	return func(p *Pipeline) {
		p.noEnroll = true
	}
}

// WithFormat overrides the PCM format segments are assumed to be in.
func WithFormat(f pcm.Format) Option {
	return func(p *Pipeline) {
		p.format = f
	}
}

// New creates a pipeline over a transcriber and an enroller.
func New(transcriber Transcriber, enroller Enroller, opts ...Option) *Pipeline {
	p := &Pipeline{
		transcriber: transcriber,
		enroller:    enroller,
		format:      pcm.L16Mono16K,
		logger:      slog.Default(),
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Run drains the segmenter, processing every emitted segment and
// passing each transcript to fn. A segment that fails to process is
// logged and skipped; the loop only stops at source end, a segmenter
// error, or context cancellation.
func (p *Pipeline) Run(ctx context.Context, seg *vad.Segmenter, fn func(*Transcript)) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		segment, err := seg.Next()
		if err == iterator.Done {
			return nil
		}
		if err != nil {
			return fmt.Errorf("segment source: %w", err)
		}

		transcript, err := p.Process(ctx, segment)
		if err != nil {
			p.logger.Error("segment dropped", "err", err, "duration", segment.Duration())
			continue
		}
		fn(transcript)
	}
}

// Process transcribes one segment and resolves its speakers.
func (p *Pipeline) Process(ctx context.Context, segment *vad.Segment) (*Transcript, error) {
	if p.audit != nil {
		p.saveAudit(ctx, segment)
	}

	result, err := p.transcriber.Transcribe(ctx, segment.PCM, rtasr.TranscribeOptions{
		FeatureIDs: p.enroller.FeatureIDs(),
	})
	if err != nil {
		return nil, fmt.Errorf("transcribe: %w", err)
	}

	transcript := &Transcript{
		Start:    jsontime.Milli(segment.Start),
		End:      jsontime.Milli(segment.End),
		Duration: jsontime.Duration(segment.Duration()),
		Text:     result.Text,
	}
	if len(result.Utterances) == 0 {
		return transcript, nil
	}

	var speakerLabels map[int]*speakerLabel
	if !p.noEnroll {
		speakerLabels = p.enrollUnknown(ctx, segment.PCM, result)
	}

	for _, u := range result.Utterances {
		labeled := LabeledUtterance{
			Text:    u.Text,
			Speaker: u.Speaker,
			Begin:   u.Begin,
			End:     u.End,
		}
		switch {
		case u.FeatureID != "":
			labeled.Label = u.FeatureID
			labeled.Enrolled = true
		case speakerLabels[u.Speaker] != nil:
			labeled.Label = speakerLabels[u.Speaker].label
			labeled.Enrolled = speakerLabels[u.Speaker].enrolled
		default:
			labeled.Label = fmt.Sprintf("speaker_%d", u.Speaker)
		}
		transcript.Utterances = append(transcript.Utterances, labeled)
	}
	return transcript, nil
}

type speakerLabel struct {
	label    string
	enrolled bool
}

// enrollUnknown accumulates audio for every unknown speaker in the
// result and registers those that cross the enrollment threshold.
// Speakers still short of the threshold get an unknown_N placeholder;
// enrollment failures degrade to the placeholder too, never failing
// the transcript.
func (p *Pipeline) enrollUnknown(ctx context.Context, audio []byte, result *rtasr.Result) map[int]*speakerLabel {
	labels := make(map[int]*speakerLabel)

	for _, speaker := range result.UnknownSpeakers {
		placeholder := &speakerLabel{label: fmt.Sprintf("unknown_%d", speaker)}
		labels[speaker] = placeholder

		var cuts [][]byte
		for _, u := range result.Utterances {
			if u.Speaker != speaker {
				continue
			}
			cut := p.format.Slice(audio,
				time.Duration(u.Begin)*time.Millisecond,
				time.Duration(u.End)*time.Millisecond)
			if len(cut) > 0 {
				cuts = append(cuts, cut)
			}
		}
		if len(cuts) == 0 {
			continue
		}

		pendingID, err := p.enroller.CreatePending()
		if err != nil {
			p.logger.Error("pending record not created", "speaker", speaker, "err", err)
			continue
		}
		for _, cut := range cuts {
			if err := p.enroller.AddSegment(ctx, pendingID, cut); err != nil {
				p.logger.Error("segment not accumulated",
					"speaker", speaker, "pending_id", pendingID, "err", err)
			}
		}

		if !p.enroller.Ready(pendingID) {
			p.logger.Info("speaker below enrollment threshold",
				"speaker", speaker, "pending_id", pendingID)
			continue
		}

		featureID, err := p.enroller.MergeAndRegister(ctx, pendingID, "")
		if err != nil {
			p.logger.Warn("enrollment failed, keeping placeholder",
				"speaker", speaker, "pending_id", pendingID, "err", err)
			continue
		}
		labels[speaker] = &speakerLabel{label: featureID, enrolled: true}
		p.logger.Info("speaker enrolled", "speaker", speaker, "feature_id", featureID)
	}
	return labels
}

func (p *Pipeline) saveAudit(ctx context.Context, segment *vad.Segment) {
	path := fmt.Sprintf("audit/segment_%s.wav", p.now().Format("20060102_150405.000"))
	w, err := p.audit.Write(ctx, path)
	if err != nil {
		p.logger.Warn("audit copy not written", "path", path, "err", err)
		return
	}
	f := segment.Format
	if err := wav.Encode(w, f.SampleRate(), f.Channels(), f.Depth(), segment.PCM); err != nil {
		p.logger.Warn("audit copy not written", "path", path, "err", err)
		w.Close()
		return
	}
	if err := w.Close(); err != nil {
		p.logger.Warn("audit copy not written", "path", path, "err", err)
	}
}

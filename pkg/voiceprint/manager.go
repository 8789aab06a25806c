package voiceprint

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/earshot-ai/earshot/pkg/audio/pcm"
	"github.com/earshot-ai/earshot/pkg/audio/wav"
	"github.com/earshot-ai/earshot/pkg/storage"
)

// DefaultRegisterThreshold is the minimum accumulated audio before a
// pending speaker can be registered.
const DefaultRegisterThreshold = 10 * time.Second

// Registrar is the slice of the registry API the Manager needs.
type Registrar interface {
	Register(ctx context.Context, audio []byte) (string, error)
	Update(ctx context.Context, featureID string, audio []byte) error
	Delete(ctx context.Context, featureIDs []string) error
}

// Manager binds the registry client, the persistent catalog and a file
// store for pending audio into the enrollment workflow: accumulate
// segments for an unknown speaker, then merge and register once enough
// audio has been collected.
type Manager struct {
	store     *Store
	registrar Registrar
	files     storage.FileStore
	threshold time.Duration
	format    pcm.Format
	logger    *slog.Logger
	now       func() time.Time
}

// ManagerOption configures a Manager.
type ManagerOption func(*Manager)

// WithRegisterThreshold overrides the minimum accumulated audio
// required before registration.
func WithRegisterThreshold(d time.Duration) ManagerOption {
	return func(m *Manager) {
		m.threshold = d
	}
}

// WithManagerLogger sets the logger used for enrollment diagnostics.
func WithManagerLogger(l *slog.Logger) ManagerOption {
	return func(m *Manager) {
		m.logger = l
	}
}

// NewManager creates an enrollment manager. Pending segment audio is
// written to files as WAV, one file per segment.
func NewManager(store *Store, registrar Registrar, files storage.FileStore, opts ...ManagerOption) *Manager {
	m := &Manager{
		store:     store,
		registrar: registrar,
		files:     files,
		threshold: DefaultRegisterThreshold,
		format:    pcm.L16Mono16K,
		logger:    slog.Default(),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// FeatureIDs returns all registered feature ids joined with commas, the
// hint a transcription handshake takes.
func (m *Manager) FeatureIDs() string {
	return m.store.FeatureIDs()
}

// Registered returns the registered catalog.
func (m *Manager) Registered() map[string]Record {
	return m.store.Registered()
}

// Register registers audio directly and records it in the catalog.
// An empty name defaults to a timestamp-derived one.
func (m *Manager) Register(ctx context.Context, audio []byte, name string) (string, error) {
	if name == "" {
		name = "speaker_" + m.now().Format("20060102_150405")
	}

	featureID, err := m.registrar.Register(ctx, audio)
	if err != nil {
		return "", err
	}
	if err := m.store.AddRegistered(featureID, name, m.now()); err != nil {
		return "", fmt.Errorf("record registration: %w", err)
	}

	m.logger.Info("voiceprint registered", "feature_id", featureID, "name", name)
	return featureID, nil
}

// Update replaces the audio behind a registered feature id.
func (m *Manager) Update(ctx context.Context, featureID string, audio []byte) error {
	return m.registrar.Update(ctx, featureID, audio)
}

// Delete removes feature ids from the registry and the catalog.
func (m *Manager) Delete(ctx context.Context, featureIDs []string) error {
	if err := m.registrar.Delete(ctx, featureIDs); err != nil {
		return err
	}
	if err := m.store.RemoveRegistered(featureIDs...); err != nil {
		return fmt.Errorf("drop deleted ids: %w", err)
	}
	m.logger.Info("voiceprints deleted", "feature_ids", featureIDs)
	return nil
}

// CreatePending starts accumulation for a new unknown speaker and
// returns its pending id.
func (m *Manager) CreatePending() (string, error) {
	now := m.now()
	pendingID := fmt.Sprintf("pending_%s_%06d", now.Format("20060102_150405"), now.Nanosecond()/1000)
	if err := m.store.AddPending(pendingID, now); err != nil {
		return "", err
	}
	m.logger.Info("pending speaker created", "pending_id", pendingID)
	return pendingID, nil
}

// AddSegment appends one PCM segment to a pending speaker. The segment
// is persisted as a WAV file so accumulation survives restarts.
func (m *Manager) AddSegment(ctx context.Context, pendingID string, audio []byte) error {
	p, ok := m.store.GetPending(pendingID)
	if !ok {
		return ErrPendingNotFound
	}

	path := fmt.Sprintf("pending/%s_seg_%d.wav", pendingID, len(p.Segments))
	w, err := m.files.Write(ctx, path)
	if err != nil {
		return fmt.Errorf("create segment file: %w", err)
	}
	if err := wav.Encode(w, m.format.SampleRate(), m.format.Channels(), m.format.Depth(), audio); err != nil {
		w.Close()
		return fmt.Errorf("write segment file: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("close segment file: %w", err)
	}

	duration := m.format.Duration(int64(len(audio)))
	if err := m.store.AppendSegment(pendingID, SegmentRef{
		File:       path,
		DurationMS: int(duration.Milliseconds()),
	}); err != nil {
		return err
	}

	m.logger.Debug("pending segment added",
		"pending_id", pendingID,
		"duration", duration,
		"total", m.TotalDuration(pendingID))
	return nil
}

// TotalDuration reports the audio accumulated for a pending speaker.
func (m *Manager) TotalDuration(pendingID string) time.Duration {
	p, ok := m.store.GetPending(pendingID)
	if !ok {
		return 0
	}
	return time.Duration(p.TotalDurationMS) * time.Millisecond
}

// Ready reports whether a pending speaker has accumulated enough audio
// to register.
func (m *Manager) Ready(pendingID string) bool {
	return m.TotalDuration(pendingID) >= m.threshold
}

// MergeAndRegister concatenates a pending speaker's segments in
// insertion order, registers the merged audio and moves the speaker
// into the registered catalog. The pending entry and its files are
// removed only after a successful registration; on any failure
// everything is retained for a later retry.
//
// An empty name defaults to the pending id with its prefix swapped for
// "speaker_". Returns ErrInsufficientAudio below the threshold.
func (m *Manager) MergeAndRegister(ctx context.Context, pendingID, name string) (string, error) {
	p, ok := m.store.GetPending(pendingID)
	if !ok {
		return "", ErrPendingNotFound
	}
	total := time.Duration(p.TotalDurationMS) * time.Millisecond
	if total < m.threshold {
		m.logger.Warn("accumulated audio below threshold",
			"pending_id", pendingID,
			"total", total,
			"threshold", m.threshold)
		return "", ErrInsufficientAudio
	}

	var merged []byte
	for _, seg := range p.Segments {
		r, err := m.files.Read(ctx, seg.File)
		if err != nil {
			return "", fmt.Errorf("read segment %s: %w", seg.File, err)
		}
		data, err := io.ReadAll(r)
		r.Close()
		if err != nil {
			return "", fmt.Errorf("read segment %s: %w", seg.File, err)
		}
		merged = append(merged, wav.StripHeader(data)...)
	}

	if name == "" {
		name = "speaker" + strings.TrimPrefix(pendingID, "pending")
	}

	var buf bytes.Buffer
	if err := wav.Encode(&buf, m.format.SampleRate(), m.format.Channels(), m.format.Depth(), merged); err != nil {
		return "", fmt.Errorf("encode merged audio: %w", err)
	}
	featureID, err := m.registrar.Register(ctx, buf.Bytes())
	if err != nil {
		return "", err
	}
	if err := m.store.AddRegistered(featureID, name, m.now()); err != nil {
		return "", fmt.Errorf("record registration: %w", err)
	}

	// Cleanup failures are not fatal; the registration already stuck.
	for _, seg := range p.Segments {
		if err := m.files.Delete(ctx, seg.File); err != nil {
			m.logger.Warn("segment file not removed", "file", seg.File, "err", err)
		}
	}
	if err := m.store.RemovePending(pendingID); err != nil {
		m.logger.Warn("pending entry not removed", "pending_id", pendingID, "err", err)
	}

	m.logger.Info("pending speaker registered",
		"pending_id", pendingID,
		"feature_id", featureID,
		"name", name,
		"audio", total)
	return featureID, nil
}

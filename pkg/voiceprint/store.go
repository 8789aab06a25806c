package voiceprint

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"
)

// Record is one registered voiceprint.
type Record struct {
	// Name is the local human-readable label; the registry only knows
	// the feature id.
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

// SegmentRef points at one accumulated audio segment on the file store.
type SegmentRef struct {
	File       string `json:"file"`
	DurationMS int    `json:"duration_ms"`
}

// Pending is a not-yet-registered speaker accumulating audio.
type Pending struct {
	Segments        []SegmentRef `json:"audio_segments"`
	TotalDurationMS int          `json:"total_duration_ms"`
	CreatedAt       time.Time    `json:"created_at"`
}

// storeDocument is the JSON shape persisted on disk.
type storeDocument struct {
	Registered map[string]Record  `json:"registered"`
	Pending    map[string]Pending `json:"pending"`
}

// Store is the persistent voiceprint catalog: registered feature ids
// plus pending speakers. Every mutation rewrites the whole JSON
// document, so an external edit between process runs is picked up by
// the next Load and nothing is lost in translation. Single-process use
// only; methods are safe for concurrent use within the process.
type Store struct {
	path string

	mu  sync.Mutex
	doc storeDocument
}

// OpenStore loads the catalog at path, creating an empty one if the
// file does not exist.
func OpenStore(path string) (*Store, error) {
	s := &Store{
		path: path,
		doc: storeDocument{
			Registered: make(map[string]Record),
			Pending:    make(map[string]Pending),
		},
	}

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return s, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read voiceprint store: %w", err)
	}
	if err := json.Unmarshal(data, &s.doc); err != nil {
		return nil, fmt.Errorf("parse voiceprint store %s: %w", path, err)
	}
	if s.doc.Registered == nil {
		s.doc.Registered = make(map[string]Record)
	}
	if s.doc.Pending == nil {
		s.doc.Pending = make(map[string]Pending)
	}
	return s, nil
}

// save rewrites the whole document. Callers hold mu.
func (s *Store) save() error {
	data, err := json.MarshalIndent(s.doc, "", "  ")
	if err != nil {
		return err
	}
	if dir := filepath.Dir(s.path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("create store directory: %w", err)
		}
	}
	if err := os.WriteFile(s.path, data, 0600); err != nil {
		return fmt.Errorf("write voiceprint store: %w", err)
	}
	return nil
}

// AddRegistered records a newly registered voiceprint.
func (s *Store) AddRegistered(featureID, name string, createdAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.doc.Registered[featureID] = Record{Name: name, CreatedAt: createdAt}
	return s.save()
}

// RemoveRegistered drops feature ids from the catalog. Unknown ids are
// ignored.
func (s *Store) RemoveRegistered(featureIDs ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, id := range featureIDs {
		delete(s.doc.Registered, id)
	}
	return s.save()
}

// Registered returns a copy of the registered catalog.
func (s *Store) Registered() map[string]Record {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]Record, len(s.doc.Registered))
	for id, r := range s.doc.Registered {
		out[id] = r
	}
	return out
}

// FeatureIDs returns all registered feature ids joined with commas, in
// sorted order, the shape a transcription handshake expects.
func (s *Store) FeatureIDs() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	ids := make([]string, 0, len(s.doc.Registered))
	for id := range s.doc.Registered {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return strings.Join(ids, ",")
}

// AddPending creates a pending speaker entry.
func (s *Store) AddPending(pendingID string, createdAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.doc.Pending[pendingID] = Pending{CreatedAt: createdAt}
	return s.save()
}

// AppendSegment records one accumulated segment for a pending speaker.
func (s *Store) AppendSegment(pendingID string, seg SegmentRef) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.doc.Pending[pendingID]
	if !ok {
		return ErrPendingNotFound
	}
	p.Segments = append(p.Segments, seg)
	p.TotalDurationMS += seg.DurationMS
	s.doc.Pending[pendingID] = p
	return s.save()
}

// GetPending returns a pending speaker's state.
func (s *Store) GetPending(pendingID string) (Pending, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.doc.Pending[pendingID]
	return p, ok
}

// RemovePending drops a pending speaker entry. Unknown ids are ignored.
func (s *Store) RemovePending(pendingID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.doc.Pending, pendingID)
	return s.save()
}

// PendingIDs returns all pending speaker ids in sorted order.
func (s *Store) PendingIDs() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	ids := make([]string, 0, len(s.doc.Pending))
	for id := range s.doc.Pending {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

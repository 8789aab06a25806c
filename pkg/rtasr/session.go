package rtasr

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/earshot-ai/earshot/pkg/audio/wav"
)

// TranscribeOptions tunes a single transcription session.
type TranscribeOptions struct {
	// FeatureIDs is a comma-separated list of registered voiceprint
	// feature ids the service should try to match speakers against.
	FeatureIDs string

	// RoleType overrides the client's speaker separation mode when > 0.
	RoleType int

	// StrictMatch, when true, tells the service to only attribute
	// speakers it can match against FeatureIDs.
	StrictMatch bool
}

// session is the state of one websocket transcription exchange. The
// receiver goroutine owns the read side; collected results are guarded
// by mu and polled by Transcribe's wait loop.
type session struct {
	conn   *websocket.Conn
	client *Client

	mu        sync.Mutex
	sessionID string
	fragments []Fragment
	finished  bool
	provider  *Error

	ackChan   chan struct{}
	ackOnce   sync.Once
	closeChan chan struct{}
	closeOnce sync.Once
}

// Transcribe streams pcm through one realtime session and returns the
// aggregated, speaker-attributed result.
//
// The audio must be 16 kHz 16-bit mono; a leading RIFF header is
// stripped. The call blocks until the service flags the end of the
// result stream or the session deadline passes; on timeout or a
// mid-stream provider error the partial result collected so far is
// returned without error. Only a connect failure or empty audio fails
// the call.
func (c *Client) Transcribe(ctx context.Context, pcm []byte, opts TranscribeOptions) (*Result, error) {
	pcm = wav.StripHeader(pcm)
	if len(pcm) == 0 {
		return nil, ErrEmptyAudio
	}

	roleType := c.config.roleType
	if opts.RoleType > 0 {
		roleType = opts.RoleType
	}
	strict := 0
	if opts.StrictMatch {
		strict = 1
	}

	s, err := c.dial(ctx, opts.FeatureIDs, roleType, strict)
	if err != nil {
		return nil, err
	}
	defer s.close()

	c.config.logger.Info("transcription started",
		"bytes", len(pcm),
		"feature_ids", opts.FeatureIDs,
		"role_type", roleType)

	// A send failure mid-stream still yields whatever the receiver
	// collected; only context cancellation aborts the call.
	if err := s.sendAudio(ctx, pcm); err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		c.config.logger.Warn("audio send interrupted", "err", err)
	} else {
		s.wait(ctx, c.config.timeout)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.provider != nil {
		c.config.logger.Error("provider error, returning partial result", "err", s.provider)
	}
	result := Aggregate(s.fragments)
	c.config.logger.Info("transcription finished",
		"utterances", len(result.Utterances),
		"unknown_speakers", len(result.UnknownSpeakers))
	return result, nil
}

func (c *Client) dial(ctx context.Context, featureIDs string, roleType, strictMatch int) (*session, error) {
	params := c.authParams(featureIDs, roleType, strictMatch)
	endpoint := c.config.wsURL + "?" + params.Encode()

	conn, resp, err := c.config.dialer.DialContext(ctx, endpoint, nil)
	if err != nil {
		if resp != nil {
			body, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<10))
			return nil, fmt.Errorf("websocket connect failed: %w, status=%s, body=%s", err, resp.Status, string(body))
		}
		return nil, fmt.Errorf("websocket connect failed: %w", err)
	}

	s := &session{
		conn:      conn,
		client:    c,
		ackChan:   make(chan struct{}),
		closeChan: make(chan struct{}),
	}
	go s.receiveLoop()

	// Wait for the handshake ack so the end-of-audio message can echo
	// the session id. A missing ack is tolerated; the service still
	// accepts audio without it.
	select {
	case <-s.ackChan:
	case <-s.closeChan:
	case <-ctx.Done():
	case <-time.After(handshakeWait):
		c.config.logger.Debug("no handshake ack, streaming anyway")
	}
	return s, nil
}

// sendAudio writes pcm as fixed-size binary frames paced to real time,
// then the end-of-audio control message. Each frame is released when
// wall clock reaches start + i*interval, so a slow write self-corrects
// instead of accumulating drift.
func (s *session) sendAudio(ctx context.Context, pcm []byte) error {
	var (
		size     = s.client.config.frameSize
		interval = s.client.config.frameInterval
		now      = s.client.config.now
		start    = now()
	)

	frames := len(pcm) / size
	if len(pcm)%size > 0 {
		frames++
	}

	for i := 0; i < frames; i++ {
		expected := start.Add(time.Duration(i) * interval)
		if d := expected.Sub(now()); d > 0 {
			select {
			case <-time.After(d):
			case <-ctx.Done():
				return ctx.Err()
			case <-s.closeChan:
				return io.ErrClosedPipe
			}
		}

		end := (i + 1) * size
		if end > len(pcm) {
			end = len(pcm)
		}
		if err := s.conn.WriteMessage(websocket.BinaryMessage, pcm[i*size:end]); err != nil {
			return fmt.Errorf("write frame %d: %w", i, err)
		}
	}

	end := map[string]any{"end": true}
	s.mu.Lock()
	if s.sessionID != "" {
		end["sessionId"] = s.sessionID
	}
	s.mu.Unlock()

	msg, err := json.Marshal(end)
	if err != nil {
		return err
	}
	if err := s.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
		return fmt.Errorf("write end message: %w", err)
	}

	s.client.config.logger.Debug("audio sent", "bytes", len(pcm), "frames", frames)
	return nil
}

// wait polls the shared state until the service flags the last result,
// the receiver dies, or the deadline passes. Timeout is not an error;
// the caller reads whatever was collected.
func (s *session) wait(ctx context.Context, timeout time.Duration) {
	deadline := time.NewTimer(timeout)
	defer deadline.Stop()
	tick := time.NewTicker(completionPoll)
	defer tick.Stop()

	for {
		select {
		case <-tick.C:
			s.mu.Lock()
			done := s.finished || s.provider != nil
			s.mu.Unlock()
			if done {
				return
			}
		case <-s.closeChan:
			return
		case <-deadline.C:
			s.client.config.logger.Warn("transcription timed out", "timeout", timeout)
			return
		case <-ctx.Done():
			return
		}
	}
}

// receiveLoop owns the read side of the connection until it closes.
func (s *session) receiveLoop() {
	defer s.closeOnce.Do(func() { close(s.closeChan) })

	logger := s.client.config.logger
	for {
		msgType, data, err := s.conn.ReadMessage()
		if err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				logger.Debug("websocket read ended", "err", err)
			}
			return
		}
		if msgType != websocket.TextMessage {
			continue
		}

		switch m := decodeMessage(data).(type) {
		case HandshakeAck:
			s.mu.Lock()
			s.sessionID = m.SessionID
			s.mu.Unlock()
			s.ackOnce.Do(func() { close(s.ackChan) })
			logger.Debug("handshake acknowledged", "session_id", m.SessionID)

		case RecognitionFragment:
			s.mu.Lock()
			if m.Fragment != nil {
				s.fragments = append(s.fragments, *m.Fragment)
			}
			if m.IsLast {
				s.finished = true
			}
			s.mu.Unlock()
			if m.Fragment != nil {
				logger.Debug("final fragment", "speaker", m.Fragment.Speaker, "text", m.Fragment.Text)
			}

		case ProviderError:
			s.mu.Lock()
			s.provider = &Error{Message: m.Desc}
			s.mu.Unlock()
			logger.Error("provider error", "desc", m.Desc)
			return

		case Unrecognized:
			logger.Warn("unrecognized message dropped", "size", len(data))
		}
	}
}

func (s *session) close() {
	s.closeOnce.Do(func() { close(s.closeChan) })
	s.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(time.Second))
	s.conn.Close()
}

// Package rtasr is a client for a realtime speech transcription service
// with voiceprint-based speaker separation.
//
// A transcription is one short-lived websocket session: the client
// connects with signed query parameters, streams raw PCM in fixed-size
// binary frames paced to real time, sends an end-of-audio control
// message, and collects diarized recognition fragments until the
// service flags the end of the stream. Fragments are merged into
// speaker-attributed utterances (see Aggregate).
//
// Audio must be 16 kHz, 16-bit, mono PCM. A leading RIFF header is
// stripped automatically.
package rtasr

import (
	"log/slog"
	"time"

	"github.com/gorilla/websocket"
)

const (
	defaultWSURL = "wss://office-api-ast-dx.iflyaisol.com/ast/communicate/v1"

	// One binary frame is 40 ms of 16 kHz 16-bit mono audio.
	defaultFrameSize     = 1280
	defaultFrameInterval = 40 * time.Millisecond

	defaultTimeout = 300 * time.Second

	// completionPoll is how often the caller's wait loop re-checks the
	// shared session state for the end-of-stream flag.
	completionPoll = 100 * time.Millisecond

	// handshakeWait bounds the wait for the server's session ack before
	// audio starts streaming.
	handshakeWait = 2 * time.Second
)

// Fixed handshake parameters for the audio the client streams.
const (
	audioEncode = "pcm_s16le"
	sampleRate  = "16000"
)

// RoleType selects the service's speaker separation mode.
const (
	// RoleTypeOff disables speaker separation.
	RoleTypeOff = 0
	// RoleTypeVoiceprint separates speakers by voiceprint.
	RoleTypeVoiceprint = 2
)

// Client talks to the realtime transcription service.
type Client struct {
	config *clientConfig
}

type clientConfig struct {
	appID           string
	accessKeyID     string
	accessKeySecret string
	wsURL           string
	language        string
	roleType        int
	timeout         time.Duration
	frameSize       int
	frameInterval   time.Duration
	dialer          *websocket.Dialer
	logger          *slog.Logger
	now             func() time.Time
}

// Option configures a Client.
type Option func(*clientConfig)

// NewClient creates a realtime transcription client.
//
// appID is the application identity; the access key pair signs every
// connection request.
func NewClient(appID string, opts ...Option) *Client {
	config := &clientConfig{
		appID:         appID,
		wsURL:         defaultWSURL,
		language:      "autodialect",
		roleType:      RoleTypeVoiceprint,
		timeout:       defaultTimeout,
		frameSize:     defaultFrameSize,
		frameInterval: defaultFrameInterval,
		dialer:        websocket.DefaultDialer,
		logger:        slog.Default(),
		now:           time.Now,
	}
	for _, opt := range opts {
		opt(config)
	}
	return &Client{config: config}
}

// WithAccessKey sets the signing credentials.
func WithAccessKey(id, secret string) Option {
	return func(c *clientConfig) {
		c.accessKeyID = id
		c.accessKeySecret = secret
	}
}

// WithWebSocketURL overrides the service endpoint.
func WithWebSocketURL(url string) Option {
	return func(c *clientConfig) {
		c.wsURL = url
	}
}

// WithLanguage sets the recognition language hint.
func WithLanguage(lang string) Option {
	return func(c *clientConfig) {
		c.language = lang
	}
}

// WithRoleType sets the default speaker separation mode.
func WithRoleType(rt int) Option {
	return func(c *clientConfig) {
		c.roleType = rt
	}
}

// WithTimeout sets the overall ceiling a transcription waits for the
// end-of-stream flag before returning whatever was collected.
func WithTimeout(d time.Duration) Option {
	return func(c *clientConfig) {
		c.timeout = d
	}
}

// WithDialer sets a custom websocket dialer.
func WithDialer(d *websocket.Dialer) Option {
	return func(c *clientConfig) {
		c.dialer = d
	}
}

// WithLogger sets the logger used for session diagnostics.
func WithLogger(l *slog.Logger) Option {
	return func(c *clientConfig) {
		c.logger = l
	}
}

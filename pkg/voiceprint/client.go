// Package voiceprint manages speaker voiceprints: a client for the
// feature registry HTTP API, a persistent JSON store of registered and
// pending speakers, and a Manager that accumulates audio for unknown
// speakers and registers them automatically once enough has been
// collected.
package voiceprint

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha1"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"
)

const (
	defaultBaseURL = "https://office-api-personal-dx.iflyaisol.com"

	registerPath = "/res/feature/v1/register"
	updatePath   = "/res/feature/v1/update"
	deletePath   = "/res/feature/v1/delete"

	defaultHTTPTimeout = 60 * time.Second

	// codeSuccess is the registry's success code; anything else is an error.
	codeSuccess = "000000"
)

// Client talks to the voiceprint feature registry.
type Client struct {
	config *clientConfig
}

type clientConfig struct {
	appID           string
	accessKeyID     string
	accessKeySecret string
	baseURL         string
	httpClient      *http.Client
	logger          *slog.Logger
	now             func() time.Time
}

// Option configures a Client.
type Option func(*clientConfig)

// NewClient creates a voiceprint registry client.
func NewClient(appID string, opts ...Option) *Client {
	config := &clientConfig{
		appID:      appID,
		baseURL:    defaultBaseURL,
		httpClient: &http.Client{Timeout: defaultHTTPTimeout},
		logger:     slog.Default(),
		now:        time.Now,
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

// WithBaseURL overrides the registry endpoint.
func WithBaseURL(u string) Option {
	return func(c *clientConfig) {
		c.baseURL = strings.TrimSuffix(u, "/")
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *clientConfig) {
		c.httpClient = hc
	}
}

// WithLogger sets the logger used for request diagnostics.
func WithLogger(l *slog.Logger) Option {
	return func(c *clientConfig) {
		c.logger = l
	}
}

// Register submits audio as a new voiceprint and returns the feature id
// the registry assigned. Audio is 16 kHz 16-bit mono PCM, with or
// without a RIFF header.
func (c *Client) Register(ctx context.Context, audio []byte) (string, error) {
	body := map[string]any{
		"audio_data": base64.StdEncoding.EncodeToString(audio),
		"audio_type": "raw",
	}

	var data struct {
		FeatureID string `json:"feature_id"`
	}
	if err := c.post(ctx, registerPath, body, &data); err != nil {
		return "", err
	}
	if data.FeatureID == "" {
		return "", fmt.Errorf("voiceprint: register response carried no feature id")
	}
	return data.FeatureID, nil
}

// Update replaces the audio behind an existing feature id.
func (c *Client) Update(ctx context.Context, featureID string, audio []byte) error {
	body := map[string]any{
		"audio_data": base64.StdEncoding.EncodeToString(audio),
		"audio_type": "raw",
		"feature_id": featureID,
	}
	return c.post(ctx, updatePath, body, nil)
}

// Delete removes the given feature ids from the registry.
func (c *Client) Delete(ctx context.Context, featureIDs []string) error {
	body := map[string]any{
		"feature_ids": featureIDs,
	}
	return c.post(ctx, deletePath, body, nil)
}

// post sends one signed request and decodes the response envelope. The
// envelope's data field is a JSON-encoded string; when out is non-nil
// it is decoded into out.
func (c *Client) post(ctx context.Context, path string, body map[string]any, out any) error {
	params := c.authParams()
	signature := signParams(c.config.accessKeySecret, params)
	endpoint := c.config.baseURL + path + "?" + encodeParams(params)

	payload, err := json.Marshal(body)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("signature", signature)

	resp, err := c.config.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return &Error{Code: fmt.Sprint(resp.StatusCode), Desc: string(respBody), HTTPStatus: resp.StatusCode}
	}

	var envelope struct {
		Code string `json:"code"`
		Data string `json:"data"`
		Desc string `json:"desc"`
	}
	if err := json.Unmarshal(respBody, &envelope); err != nil {
		return fmt.Errorf("unmarshal response: %w", err)
	}
	if envelope.Code != codeSuccess {
		return &Error{Code: envelope.Code, Desc: envelope.Desc, HTTPStatus: resp.StatusCode}
	}

	if out != nil && envelope.Data != "" {
		if err := json.Unmarshal([]byte(envelope.Data), out); err != nil {
			return fmt.Errorf("unmarshal response data: %w", err)
		}
	}
	return nil
}

// authParams builds the per-request query parameters. A fresh random
// nonce is drawn for every request.
func (c *Client) authParams() map[string]string {
	return map[string]string{
		"appId":           c.config.appID,
		"accessKeyId":     c.config.accessKeyID,
		"dateTime":        localTimestamp(c.config.now()),
		"signatureRandom": randomString(16),
	}
}

// signParams computes base64(HMAC-SHA1(secret, canonical)) over the
// non-empty parameters sorted by key, each key and value URL-encoded.
func signParams(secret string, params map[string]string) string {
	keys := make([]string, 0, len(params))
	for k, v := range params {
		if strings.TrimSpace(v) == "" {
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	for i, k := range keys {
		if i > 0 {
			b.WriteByte('&')
		}
		b.WriteString(url.QueryEscape(k))
		b.WriteByte('=')
		b.WriteString(url.QueryEscape(params[k]))
	}

	mac := hmac.New(sha1.New, []byte(secret))
	mac.Write([]byte(b.String()))
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

func encodeParams(params map[string]string) string {
	values := url.Values{}
	for k, v := range params {
		values.Set(k, v)
	}
	return values.Encode()
}

// localTimestamp formats t in local time with a numeric zone offset,
// the format the dateTime parameter expects.
func localTimestamp(t time.Time) string {
	return t.Format("2006-01-02T15:04:05-0700")
}

const randomAlphabet = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

func randomString(n int) string {
	b := make([]byte, n)
	rand.Read(b)
	for i := range b {
		b[i] = randomAlphabet[int(b[i])%len(randomAlphabet)]
	}
	return string(b)
}

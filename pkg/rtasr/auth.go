package rtasr

import (
	"crypto/hmac"
	"crypto/sha1"
	"encoding/base64"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

// authParams builds the signed query parameters for a session handshake.
//
// The signature is base64(HMAC-SHA1(secret, canonical)) where canonical
// is the URL-encoded "key=value&..." string of all non-empty parameters
// sorted by key. Construction is pure: it cannot fail at runtime.
func (c *Client) authParams(featureIDs string, roleType, strictMatch int) url.Values {
	params := url.Values{}
	params.Set("appId", c.config.appID)
	params.Set("accessKeyId", c.config.accessKeyID)
	params.Set("uuid", strings.ReplaceAll(uuid.NewString(), "-", ""))
	params.Set("utc", utcTimestamp(c.config.now()))
	params.Set("audio_encode", audioEncode)
	params.Set("lang", c.config.language)
	params.Set("samplerate", sampleRate)

	if roleType > 0 {
		params.Set("role_type", strconv.Itoa(roleType))
	}
	if featureIDs != "" {
		params.Set("feature_ids", featureIDs)
		params.Set("eng_spk_match", strconv.Itoa(strictMatch))
	}

	params.Set("signature", sign(c.config.accessKeySecret, params))
	return params
}

// sign computes the handshake signature over the given parameters.
func sign(secret string, params url.Values) string {
	keys := make([]string, 0, len(params))
	for k := range params {
		if strings.TrimSpace(params.Get(k)) == "" {
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
		b.WriteString(url.QueryEscape(params.Get(k)))
	}

	mac := hmac.New(sha1.New, []byte(secret))
	mac.Write([]byte(b.String()))
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

// utcTimestamp formats t the way the handshake's utc parameter expects.
func utcTimestamp(t time.Time) string {
	return t.Format("2006-01-02T15:04:05-0700")
}

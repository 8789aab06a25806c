package rtasr

import (
	"encoding/json"
	"strconv"
	"strings"
)

// Message is an inbound session message decoded into one of a fixed set
// of variants: HandshakeAck, RecognitionFragment, ProviderError or
// Unrecognized.
type Message interface {
	isMessage()
}

// HandshakeAck acknowledges the connection and carries the session
// identifier echoed on the end-of-audio control message.
type HandshakeAck struct {
	SessionID string
}

// RecognitionFragment is one recognition payload. Interim fragments
// carry no utterance; final fragments carry one. IsLast marks the end
// of the result stream.
type RecognitionFragment struct {
	Final  bool
	IsLast bool

	// Fragment is the decoded utterance; nil for interim fragments or
	// final fragments with no usable text.
	Fragment *Fragment
}

// ProviderError is a service-reported failure; the session logs it and
// terminates early with whatever was collected.
type ProviderError struct {
	Desc string
}

// Unrecognized is any message class the decoder does not know; it is
// ignored.
type Unrecognized struct{}

func (HandshakeAck) isMessage()        {}
func (RecognitionFragment) isMessage() {}
func (ProviderError) isMessage()       {}
func (Unrecognized) isMessage()        {}

// Fragment is a raw final recognition unit before aggregation: one text
// interval attributed to a session-scoped speaker label, with
// millisecond offsets relative to the segment.
type Fragment struct {
	Text      string
	Speaker   int
	FeatureID string
	Begin     int
	End       int
}

// flexInt unmarshals from either a JSON number or a numeric string; the
// service is inconsistent about which it sends.
type flexInt int

func (f *flexInt) UnmarshalJSON(b []byte) error {
	s := strings.Trim(string(b), `"`)
	if s == "" || s == "null" {
		*f = 0
		return nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return err
	}
	*f = flexInt(n)
	return nil
}

type envelope struct {
	MsgType string          `json:"msg_type"`
	ResType string          `json:"res_type"`
	Data    json.RawMessage `json:"data"`
}

type actionData struct {
	SessionID string `json:"sessionId"`
}

type errorData struct {
	Desc string `json:"desc"`
}

type asrData struct {
	IsLast bool `json:"ls"`
	Cn     struct {
		St sentence `json:"st"`
	} `json:"cn"`
}

type sentence struct {
	// Type 0 is a final result, 1 an interim one.
	Type  flexInt `json:"type"`
	Begin flexInt `json:"bg"`
	End   flexInt `json:"ed"`
	Rt    []rtBlock `json:"rt"`
}

type rtBlock struct {
	Ws []wsBlock `json:"ws"`
}

type wsBlock struct {
	Cw []word `json:"cw"`
}

type word struct {
	W  string `json:"w"`
	// Wp marks token kind: "n" normal, "p" punctuation, "g" segment marker.
	Wp string `json:"wp"`
	// Rl is the speaker role index; 0 means no role switch on this token.
	Rl flexInt `json:"rl"`
	// Fid is the matched voiceprint feature id, present only when the
	// service matched this role against a supplied known feature.
	Fid string `json:"fid"`
}

// decodeMessage maps one inbound JSON message to its variant.
// It never fails: malformed input decodes to Unrecognized so the
// session can log and drop it.
func decodeMessage(raw []byte) Message {
	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return Unrecognized{}
	}

	switch env.MsgType {
	case "action":
		var d actionData
		if err := json.Unmarshal(env.Data, &d); err != nil {
			return Unrecognized{}
		}
		return HandshakeAck{SessionID: d.SessionID}

	case "result":
		switch env.ResType {
		case "asr":
			var d asrData
			if err := json.Unmarshal(env.Data, &d); err != nil {
				return Unrecognized{}
			}
			final := d.Cn.St.Type == 0
			frag := RecognitionFragment{Final: final, IsLast: d.IsLast}
			if final {
				frag.Fragment = parseFragment(d.Cn.St)
			}
			return frag

		case "frc":
			var d errorData
			if err := json.Unmarshal(env.Data, &d); err != nil {
				return Unrecognized{}
			}
			return ProviderError{Desc: d.Desc}
		}
	}
	return Unrecognized{}
}

// parseFragment flattens a sentence's word tokens into one Fragment.
//
// Role switches apply forward only: a token with rl > 0 sets the
// current speaker for itself and everything after it. The fragment as a
// whole keeps the last speaker seen; splitting at intra-fragment role
// boundaries is deliberately not done.
func parseFragment(st sentence) *Fragment {
	var (
		parts     []string
		speaker   int
		featureID string
	)
	for _, rt := range st.Rt {
		for _, ws := range rt.Ws {
			for _, cw := range ws.Cw {
				if cw.Wp == "p" || cw.Wp == "g" {
					parts = append(parts, cw.W)
					continue
				}
				if cw.Rl > 0 {
					speaker = int(cw.Rl)
					if cw.Fid != "" {
						featureID = cw.Fid
					}
				}
				parts = append(parts, cw.W)
			}
		}
	}

	text := strings.Join(parts, "")
	if strings.TrimSpace(text) == "" {
		return nil
	}
	return &Fragment{
		Text:      text,
		Speaker:   speaker,
		FeatureID: featureID,
		Begin:     int(st.Begin),
		End:       int(st.End),
	}
}

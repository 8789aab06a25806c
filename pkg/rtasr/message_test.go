package rtasr

import "testing"

func TestDecodeHandshakeAck(t *testing.T) {
	raw := []byte(`{"msg_type":"action","data":{"sessionId":"sess-42"}}`)
	m, ok := decodeMessage(raw).(HandshakeAck)
	if !ok {
		t.Fatalf("decoded %T, want HandshakeAck", decodeMessage(raw))
	}
	if m.SessionID != "sess-42" {
		t.Errorf("SessionID = %q", m.SessionID)
	}
}

func TestDecodeFinalFragment(t *testing.T) {
	raw := []byte(`{
		"msg_type": "result",
		"res_type": "asr",
		"data": {
			"ls": false,
			"cn": {"st": {
				"type": "0", "bg": "100", "ed": "2300",
				"rt": [{"ws": [
					{"cw": [{"w": "你好", "wp": "n", "rl": 1, "fid": "feat-a"}]},
					{"cw": [{"w": "，", "wp": "p"}]},
					{"cw": [{"w": "世界", "wp": "n", "rl": 0}]}
				]}]
			}}
		}
	}`)

	m, ok := decodeMessage(raw).(RecognitionFragment)
	if !ok {
		t.Fatalf("decoded %T, want RecognitionFragment", decodeMessage(raw))
	}
	if !m.Final || m.IsLast {
		t.Errorf("Final = %v, IsLast = %v", m.Final, m.IsLast)
	}
	if m.Fragment == nil {
		t.Fatal("Fragment is nil")
	}
	if m.Fragment.Text != "你好，世界" {
		t.Errorf("Text = %q", m.Fragment.Text)
	}
	if m.Fragment.Speaker != 1 {
		t.Errorf("Speaker = %d", m.Fragment.Speaker)
	}
	if m.Fragment.FeatureID != "feat-a" {
		t.Errorf("FeatureID = %q", m.Fragment.FeatureID)
	}
	if m.Fragment.Begin != 100 || m.Fragment.End != 2300 {
		t.Errorf("offsets = %d..%d", m.Fragment.Begin, m.Fragment.End)
	}
}

// Numeric fields arrive as JSON numbers or numeric strings depending on
// the field; both decode.
func TestDecodeInterimNumericType(t *testing.T) {
	raw := []byte(`{"msg_type":"result","res_type":"asr","data":{"ls":false,"cn":{"st":{"type":1,"bg":0,"ed":0,"rt":[]}}}}`)
	m, ok := decodeMessage(raw).(RecognitionFragment)
	if !ok {
		t.Fatal("want RecognitionFragment")
	}
	if m.Final {
		t.Error("type 1 must be interim")
	}
	if m.Fragment != nil {
		t.Error("interim fragments carry no utterance")
	}
}

func TestDecodeLastFlag(t *testing.T) {
	raw := []byte(`{"msg_type":"result","res_type":"asr","data":{"ls":true,"cn":{"st":{"type":"0","rt":[]}}}}`)
	m, ok := decodeMessage(raw).(RecognitionFragment)
	if !ok {
		t.Fatal("want RecognitionFragment")
	}
	if !m.IsLast {
		t.Error("IsLast not set")
	}
	if m.Fragment != nil {
		t.Error("empty sentence must yield no fragment")
	}
}

func TestDecodeProviderError(t *testing.T) {
	raw := []byte(`{"msg_type":"result","res_type":"frc","data":{"desc":"quota exhausted"}}`)
	m, ok := decodeMessage(raw).(ProviderError)
	if !ok {
		t.Fatal("want ProviderError")
	}
	if m.Desc != "quota exhausted" {
		t.Errorf("Desc = %q", m.Desc)
	}
}

func TestDecodeUnrecognized(t *testing.T) {
	cases := [][]byte{
		[]byte(`not json at all`),
		[]byte(`{"msg_type":"heartbeat"}`),
		[]byte(`{"msg_type":"result","res_type":"other","data":{}}`),
		[]byte(`{"msg_type":"action","data":"not an object"}`),
	}
	for _, raw := range cases {
		if _, ok := decodeMessage(raw).(Unrecognized); !ok {
			t.Errorf("decodeMessage(%s) = %T, want Unrecognized", raw, decodeMessage(raw))
		}
	}
}

func TestParseFragmentRoleCarriesForward(t *testing.T) {
	st := sentence{
		Begin: 0, End: 1000,
		Rt: []rtBlock{{
			Ws: []wsBlock{
				{Cw: []word{{W: "a", Wp: "n", Rl: 1}}},
				{Cw: []word{{W: "b", Wp: "n", Rl: 2, Fid: "feat-b"}}},
				{Cw: []word{{W: "c", Wp: "n"}}},
			},
		}},
	}

	f := parseFragment(st)
	if f == nil {
		t.Fatal("nil fragment")
	}
	if f.Text != "abc" {
		t.Errorf("Text = %q", f.Text)
	}
	// The last role seen wins for the fragment as a whole.
	if f.Speaker != 2 {
		t.Errorf("Speaker = %d", f.Speaker)
	}
	if f.FeatureID != "feat-b" {
		t.Errorf("FeatureID = %q", f.FeatureID)
	}
}

package rtasr

import "sort"

// Utterance is a run of consecutive speech attributed to one speaker.
type Utterance struct {
	// Text is the recognized text of the run.
	Text string `json:"text"`

	// Speaker is the session-scoped speaker label assigned by the
	// service; 0 when separation is off or no role was assigned.
	Speaker int `json:"speaker_id"`

	// FeatureID is the matched voiceprint feature id, empty when the
	// speaker did not match any supplied feature.
	FeatureID string `json:"feature_id"`

	// Begin and End are millisecond offsets relative to the start of
	// the streamed audio.
	Begin int `json:"start_time"`
	End   int `json:"end_time"`
}

// Result is the aggregated outcome of one transcription session.
type Result struct {
	// Text is the full transcript, utterances concatenated in order.
	Text string `json:"text"`

	// Utterances is the ordered speaker-attributed breakdown.
	Utterances []Utterance `json:"utterances"`

	// UnknownSpeakers lists speaker labels with no matched feature id,
	// in ascending order. These are candidates for enrollment.
	UnknownSpeakers []int `json:"unknown_speaker_ids"`
}

// Aggregate merges an ordered list of final fragments into
// speaker-attributed utterances.
//
// Adjacent fragments with the same speaker label merge into one
// utterance: text concatenates and the end offset extends. Any label
// change starts a new utterance, so a speaker returning after an
// interruption yields a separate utterance. Labels with no feature id
// and a positive value are collected as unknown speakers.
func Aggregate(fragments []Fragment) *Result {
	result := &Result{}
	unknown := make(map[int]struct{})

	for _, f := range fragments {
		if n := len(result.Utterances); n > 0 && result.Utterances[n-1].Speaker == f.Speaker {
			last := &result.Utterances[n-1]
			last.Text += f.Text
			last.End = f.End
			continue
		}

		u := Utterance{
			Text:      f.Text,
			Speaker:   f.Speaker,
			FeatureID: f.FeatureID,
			Begin:     f.Begin,
			End:       f.End,
		}
		result.Utterances = append(result.Utterances, u)

		if u.FeatureID == "" && u.Speaker > 0 {
			unknown[u.Speaker] = struct{}{}
		}
	}

	for _, u := range result.Utterances {
		result.Text += u.Text
	}
	for id := range unknown {
		result.UnknownSpeakers = append(result.UnknownSpeakers, id)
	}
	sort.Ints(result.UnknownSpeakers)
	return result
}

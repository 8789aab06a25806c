package rtasr

import (
	"reflect"
	"testing"
)

func TestAggregateMergesAdjacentSameSpeaker(t *testing.T) {
	result := Aggregate([]Fragment{
		{Text: "早上", Speaker: 1, FeatureID: "feat-a", Begin: 0, End: 500},
		{Text: "好。", Speaker: 1, Begin: 500, End: 900},
		{Text: "你好。", Speaker: 2, Begin: 1000, End: 1600},
	})

	if len(result.Utterances) != 2 {
		t.Fatalf("got %d utterances, want 2", len(result.Utterances))
	}
	first := result.Utterances[0]
	if first.Text != "早上好。" {
		t.Errorf("merged text = %q", first.Text)
	}
	if first.Begin != 0 || first.End != 900 {
		t.Errorf("merged offsets = %d..%d, want 0..900", first.Begin, first.End)
	}
	if first.FeatureID != "feat-a" {
		t.Errorf("merged FeatureID = %q", first.FeatureID)
	}
	if result.Text != "早上好。你好。" {
		t.Errorf("full text = %q", result.Text)
	}
}

// A speaker returning after an interruption gets a fresh utterance, not
// a merge across the gap.
func TestAggregateSplitsOnEveryLabelChange(t *testing.T) {
	result := Aggregate([]Fragment{
		{Text: "a", Speaker: 1, Begin: 0, End: 100},
		{Text: "b", Speaker: 2, Begin: 100, End: 200},
		{Text: "c", Speaker: 1, Begin: 200, End: 300},
	})

	if len(result.Utterances) != 3 {
		t.Fatalf("got %d utterances, want 3", len(result.Utterances))
	}
	speakers := []int{
		result.Utterances[0].Speaker,
		result.Utterances[1].Speaker,
		result.Utterances[2].Speaker,
	}
	if !reflect.DeepEqual(speakers, []int{1, 2, 1}) {
		t.Errorf("speakers = %v", speakers)
	}
}

func TestAggregateUnknownSpeakers(t *testing.T) {
	result := Aggregate([]Fragment{
		{Text: "a", Speaker: 1, FeatureID: "feat-a"},
		{Text: "b", Speaker: 3},
		{Text: "c", Speaker: 2},
		{Text: "d", Speaker: 0}, // no role assigned, never unknown
		{Text: "e", Speaker: 3},
	})

	if !reflect.DeepEqual(result.UnknownSpeakers, []int{2, 3}) {
		t.Errorf("UnknownSpeakers = %v, want [2 3]", result.UnknownSpeakers)
	}
}

func TestAggregateEmpty(t *testing.T) {
	result := Aggregate(nil)
	if result.Text != "" || len(result.Utterances) != 0 || len(result.UnknownSpeakers) != 0 {
		t.Errorf("empty input yielded %+v", result)
	}
}

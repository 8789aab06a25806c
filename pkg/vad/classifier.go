package vad

import "math"

// Classifier decides whether a single capture frame contains speech.
type Classifier interface {
	IsSpeech(frame []byte) bool
}

// ClassifierFunc is an adapter to allow ordinary functions as Classifiers.
type ClassifierFunc func(frame []byte) bool

// IsSpeech calls the underlying function.
func (f ClassifierFunc) IsSpeech(frame []byte) bool {
	return f(frame)
}

// energy thresholds (RMS of normalized 16-bit samples) per aggressiveness
// level. Higher levels require louder audio to count as speech.
var energyThresholds = [4]float64{0.010, 0.020, 0.035, 0.055}

// Energy is a simple amplitude-based speech classifier over 16-bit
// little-endian mono PCM. Aggressiveness ranges from 0 (permissive) to
// 3 (strict), clamping out-of-range values.
type Energy struct {
	threshold float64
}

// NewEnergy returns an Energy classifier with the given aggressiveness.
func NewEnergy(aggressiveness int) *Energy {
	if aggressiveness < 0 {
		aggressiveness = 0
	}
	if aggressiveness > 3 {
		aggressiveness = 3
	}
	return &Energy{threshold: energyThresholds[aggressiveness]}
}

// IsSpeech reports whether the frame's RMS energy crosses the threshold.
func (e *Energy) IsSpeech(frame []byte) bool {
	n := len(frame) / 2
	if n == 0 {
		return false
	}
	var sum float64
	for i := 0; i+1 < len(frame); i += 2 {
		s := int16(uint16(frame[i]) | uint16(frame[i+1])<<8)
		v := float64(s) / 32768.0
		sum += v * v
	}
	return math.Sqrt(sum/float64(n)) >= e.threshold
}

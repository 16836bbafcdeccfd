package pitch

import (
	"math"
	"strconv"
)

// Pitch and tempo ranges.
const (
	MinPitch = -7.0
	MaxPitch = 7.0

	MinTempo     = 0.5
	MaxTempo     = 1.0
	TempoStep    = 0.05
	DefaultTempo = 1.0
)

// ClampPitch limits semitones to [MinPitch, MaxPitch]. NaN maps to 0.
func ClampPitch(semitones float64) float64 {
	if math.IsNaN(semitones) {
		return 0
	}
	return math.Min(MaxPitch, math.Max(MinPitch, semitones))
}

// ClampTempo limits speed to [MinTempo, MaxTempo] and snaps it to the
// nearest TempoStep. NaN maps to DefaultTempo.
func ClampTempo(speed float64) float64 {
	if math.IsNaN(speed) {
		return DefaultTempo
	}
	clamped := math.Min(MaxTempo, math.Max(MinTempo, speed))
	steps := math.Round(clamped / TempoStep)
	return math.Round(steps*TempoStep*100) / 100
}

// FormatPitch renders semitones with an explicit sign for positive values.
func FormatPitch(semitones float64) string {
	s := strconv.FormatFloat(semitones, 'f', -1, 64)
	if semitones > 0 {
		return "+" + s
	}
	return s
}

// FormatTempo renders a tempo multiplier like "0.85x".
func FormatTempo(speed float64) string {
	return strconv.FormatFloat(speed, 'f', 2, 64) + "x"
}

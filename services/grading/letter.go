package grading

import "math"

type letterThreshold struct {
	min    float64
	letter string
}

// Inclusive lower bounds, highest first.
var letterThresholds = []letterThreshold{
	{97, "A+"},
	{93, "A"},
	{90, "A-"},
	{87, "B+"},
	{83, "B"},
	{80, "B-"},
	{77, "C+"},
	{73, "C"},
	{70, "C-"},
	{67, "D+"},
	{65, "D"},
}

// LetterGrade maps a 0-100 percentage to its letter.
func LetterGrade(pct float64) string {
	for _, t := range letterThresholds {
		if pct >= t.min {
			return t.letter
		}
	}
	return "F"
}

// Percentage returns score/max*100 clamped to [0, 100]; a non-positive max yields 0.
func Percentage(score, max float64) float64 {
	if max <= 0 {
		return 0
	}
	return clamp(score / max * 100)
}

// ActivityPercentage is nil when the activity has no recorded score.
func ActivityPercentage(score, max *float64) *float64 {
	if score == nil {
		return nil
	}
	var m float64
	if max != nil {
		m = *max
	}
	pct := Percentage(*score, m)
	return &pct
}

func clamp(v float64) float64 {
	if math.IsNaN(v) || v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

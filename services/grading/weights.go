package grading

import (
	"fmt"
	"math"
	"sort"

	"lms/config"
	courseModels "lms/models/course"
	"lms/utils"

	"github.com/samber/lo"
	"gorm.io/gorm"
)

const (
	ComponentLessons    = "lessons"
	ComponentActivities = "activities"

	weightTolerance = 0.01
)

// Weights maps a scheme key to its percentage weight.
type Weights map[string]float64

func (w Weights) Sum() float64 {
	return lo.Sum(lo.Values(w))
}

func (w Weights) clone() Weights {
	out := make(Weights, len(w))
	for k, v := range w {
		out[k] = v
	}
	return out
}

// SchemeKeys lists the keys a complete weight set of scheme must contain.
func SchemeKeys(scheme string) ([]string, bool) {
	switch scheme {
	case courseModels.SchemeModuleComponent:
		return []string{ComponentLessons, ComponentActivities}, true
	case courseModels.SchemeActivityType:
		return append([]string(nil), courseModels.ActivityTypeNames...), true
	}
	return nil, false
}

var builtinWeights = map[string]Weights{
	courseModels.SchemeModuleComponent: {ComponentLessons: 30, ComponentActivities: 70},
	courseModels.SchemeActivityType: {
		courseModels.ActivityQuiz:       30,
		courseModels.ActivityAssignment: 40,
		courseModels.ActivityAssessment: 20,
		courseModels.ActivityExercise:   10,
	},
}

// ValidateWeights checks the key set, the range of each weight and that the set sums to 100.
func ValidateWeights(scheme string, weights Weights) error {
	keys, ok := SchemeKeys(scheme)
	if !ok {
		return utils.FieldError("scheme", fmt.Sprintf("Unknown weight scheme %q!", scheme))
	}

	fields := make(map[string]string)
	for _, key := range keys {
		w, ok := weights[key]
		switch {
		case !ok:
			fields[key] = "Weight is required!"
		case math.IsNaN(w) || w < 0 || w > 100:
			fields[key] = "Weight must be between 0 and 100!"
		}
	}
	for key := range weights {
		if !lo.Contains(keys, key) {
			fields[key] = "Unknown weight key!"
		}
	}
	if len(fields) > 0 {
		return utils.ValidationError("Validation failed!", fields)
	}

	if sum := weights.Sum(); math.Abs(sum-100) > weightTolerance {
		return utils.FieldError("weights", fmt.Sprintf("Weights must sum to 100%%, got %.2f%%!", sum))
	}
	return nil
}

// WeightSnapshot is an immutable view of every weight source at load time.
type WeightSnapshot struct {
	Defaults map[string]Weights
	Global   map[string]Weights
	Courses  map[uint]map[string]Weights
}

// Weight sources, most specific first.
const (
	SourceCourse  = "course"
	SourceGlobal  = "global"
	SourceDefault = "default"
)

// ResolveWeights returns the course override if complete, else the global set, else the defaults.
func ResolveWeights(snap WeightSnapshot, courseID uint, scheme string) Weights {
	w, _ := ResolveWeightsWithSource(snap, courseID, scheme)
	return w
}

// ResolveWeightsWithSource is ResolveWeights that also names the tier the weights came from.
func ResolveWeightsWithSource(snap WeightSnapshot, courseID uint, scheme string) (Weights, string) {
	if byScheme, ok := snap.Courses[courseID]; ok {
		if w, ok := byScheme[scheme]; ok && isComplete(scheme, w) {
			return w.clone(), SourceCourse
		}
	}
	if w, ok := snap.Global[scheme]; ok && isComplete(scheme, w) {
		return w.clone(), SourceGlobal
	}
	if w, ok := snap.Defaults[scheme]; ok && isComplete(scheme, w) {
		return w.clone(), SourceDefault
	}
	return builtinWeights[scheme].clone(), SourceDefault
}

func isComplete(scheme string, w Weights) bool {
	return ValidateWeights(scheme, w) == nil
}

// DefaultsFromConfig converts the shipped YAML weights.
func DefaultsFromConfig(gw config.GradeWeights) map[string]Weights {
	out := make(map[string]Weights, len(gw))
	for scheme, values := range gw {
		out[scheme] = Weights(values).clone()
	}
	return out
}

// LoadSnapshot reads global rows and the overrides of the given courses.
func LoadSnapshot(db *gorm.DB, defaults map[string]Weights, courseIDs ...uint) (WeightSnapshot, error) {
	snap := WeightSnapshot{
		Defaults: defaults,
		Global:   make(map[string]Weights),
		Courses:  make(map[uint]map[string]Weights),
	}

	var globals []courseModels.GradeSetting
	if err := db.Find(&globals).Error; err != nil {
		return snap, fmt.Errorf("load grade settings: %w", err)
	}
	for _, row := range globals {
		if snap.Global[row.Scheme] == nil {
			snap.Global[row.Scheme] = Weights{}
		}
		snap.Global[row.Scheme][row.Key] = row.Weight
	}

	if len(courseIDs) == 0 {
		return snap, nil
	}
	var overrides []courseModels.CourseGradeSetting
	if err := db.Where("course_id IN ?", lo.Uniq(courseIDs)).Find(&overrides).Error; err != nil {
		return snap, fmt.Errorf("load course grade settings: %w", err)
	}
	for _, row := range overrides {
		if snap.Courses[row.CourseID] == nil {
			snap.Courses[row.CourseID] = make(map[string]Weights)
		}
		if snap.Courses[row.CourseID][row.Scheme] == nil {
			snap.Courses[row.CourseID][row.Scheme] = Weights{}
		}
		snap.Courses[row.CourseID][row.Scheme][row.Key] = row.Weight
	}
	return snap, nil
}

func sortedKeys(w Weights) []string {
	keys := lo.Keys(w)
	sort.Strings(keys)
	return keys
}

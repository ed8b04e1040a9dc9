package grading

import (
	courseModels "lms/models/course"

	"github.com/samber/lo"
)

// ActivityInput is one activity of the course with the student's recorded result.
type ActivityInput struct {
	ActivityID uint
	ModuleID   uint
	Title      string
	Type       string
	Status     string
	Score      *float64
	MaxScore   *float64
}

// ModuleInput carries lesson completion counts of one module.
type ModuleInput struct {
	ModuleID         uint
	Title            string
	TotalLessons     int
	CompletedLessons int
}

type CalculationInput struct {
	CourseID      uint
	CourseTitle   string
	StudentID     uint
	Modules       []ModuleInput
	Activities    []ActivityInput
	ModuleWeights Weights
	TypeWeights   Weights
}

type ActivityGrade struct {
	ActivityID  uint     `json:"activity_id"`
	ModuleID    uint     `json:"module_id"`
	Title       string   `json:"title"`
	Type        string   `json:"type"`
	Status      string   `json:"status"`
	Score       *float64 `json:"score"`
	MaxScore    *float64 `json:"max_score"`
	Percentage  *float64 `json:"percentage"`
	LetterGrade string   `json:"letter_grade,omitempty"`
}

type ModuleGrade struct {
	ModuleID           uint            `json:"module_id"`
	Title              string          `json:"title"`
	TotalLessons       int             `json:"total_lessons"`
	CompletedLessons   int             `json:"completed_lessons"`
	LessonPercentage   float64         `json:"lesson_percentage"`
	ActivityPercentage float64         `json:"activity_percentage"`
	Score              float64         `json:"score"`
	LetterGrade        string          `json:"letter_grade"`
	Activities         []ActivityGrade `json:"activities"`
}

type TypeGrade struct {
	Type    string  `json:"type"`
	Weight  float64 `json:"weight"`
	Average float64 `json:"average"`
	Count   int     `json:"count"`
}

// CourseReport is the grade breakdown of one student in one course.
type CourseReport struct {
	CourseID            uint          `json:"course_id"`
	CourseTitle         string        `json:"course_title"`
	StudentID           uint          `json:"student_id"`
	OverallPercentage   float64       `json:"overall_percentage"`
	LetterGrade         string        `json:"letter_grade"`
	ModuleAverage       float64       `json:"module_average"`
	CompletedActivities int           `json:"completed_activities"`
	TotalActivities     int           `json:"total_activities"`
	ModuleWeights       Weights       `json:"module_weights"`
	TypeWeights         Weights       `json:"type_weights"`
	Modules             []ModuleGrade `json:"modules"`
	ActivityTypes       []TypeGrade   `json:"activity_types"`
}

// Calculate builds the report. It performs no I/O.
//
// Unscored activities count as 0 in every mean. Module and course weights are
// renormalized over the components that actually exist, so a module without
// activities is graded on lessons alone and a course without Exercises spreads
// the Exercise weight over the other types.
func Calculate(in CalculationInput) CourseReport {
	report := CourseReport{
		CourseID:        in.CourseID,
		CourseTitle:     in.CourseTitle,
		StudentID:       in.StudentID,
		ModuleWeights:   in.ModuleWeights,
		TypeWeights:     in.TypeWeights,
		TotalActivities: len(in.Activities),
	}

	grades := lo.Map(in.Activities, func(a ActivityInput, _ int) ActivityGrade {
		g := ActivityGrade{
			ActivityID: a.ActivityID,
			ModuleID:   a.ModuleID,
			Title:      a.Title,
			Type:       a.Type,
			Status:     a.Status,
			Score:      a.Score,
			MaxScore:   a.MaxScore,
			Percentage: ActivityPercentage(a.Score, a.MaxScore),
		}
		if g.Percentage != nil {
			rounded := round2(*g.Percentage)
			g.Percentage = &rounded
			g.LetterGrade = LetterGrade(rounded)
		}
		return g
	})
	report.CompletedActivities = lo.CountBy(grades, func(g ActivityGrade) bool {
		return courseModels.IsDone(g.Status)
	})

	byModule := lo.GroupBy(grades, func(g ActivityGrade) uint { return g.ModuleID })
	report.Modules = make([]ModuleGrade, 0, len(in.Modules))
	for _, m := range in.Modules {
		report.Modules = append(report.Modules, moduleGrade(m, byModule[m.ModuleID], in.ModuleWeights))
	}
	if len(report.Modules) > 0 {
		report.ModuleAverage = round2(lo.MeanBy(report.Modules, func(m ModuleGrade) float64 { return m.Score }))
	}

	byType := lo.GroupBy(grades, func(g ActivityGrade) string { return g.Type })
	var weighted, weightTotal float64
	for _, typeName := range courseModels.ActivityTypeNames {
		items := byType[typeName]
		if len(items) == 0 {
			continue
		}
		avg := meanPercentage(items)
		w := in.TypeWeights[typeName]
		report.ActivityTypes = append(report.ActivityTypes, TypeGrade{
			Type:    typeName,
			Weight:  w,
			Average: round2(avg),
			Count:   len(items),
		})
		weighted += avg * w
		weightTotal += w
	}
	if weightTotal > 0 {
		report.OverallPercentage = round2(clamp(weighted / weightTotal))
	}
	report.LetterGrade = LetterGrade(report.OverallPercentage)
	return report
}

func moduleGrade(m ModuleInput, activities []ActivityGrade, weights Weights) ModuleGrade {
	mg := ModuleGrade{
		ModuleID:         m.ModuleID,
		Title:            m.Title,
		TotalLessons:     m.TotalLessons,
		CompletedLessons: m.CompletedLessons,
		Activities:       activities,
	}
	if mg.Activities == nil {
		mg.Activities = []ActivityGrade{}
	}
	mg.LessonPercentage = Percentage(float64(m.CompletedLessons), float64(m.TotalLessons))
	mg.ActivityPercentage = meanPercentage(activities)

	var weighted, weightTotal float64
	if m.TotalLessons > 0 {
		weighted += mg.LessonPercentage * weights[ComponentLessons]
		weightTotal += weights[ComponentLessons]
	}
	if len(activities) > 0 {
		weighted += mg.ActivityPercentage * weights[ComponentActivities]
		weightTotal += weights[ComponentActivities]
	}
	if weightTotal > 0 {
		mg.Score = clamp(weighted / weightTotal)
	}

	mg.LessonPercentage = round2(mg.LessonPercentage)
	mg.ActivityPercentage = round2(mg.ActivityPercentage)
	mg.Score = round2(mg.Score)
	mg.LetterGrade = LetterGrade(mg.Score)
	return mg
}

func meanPercentage(grades []ActivityGrade) float64 {
	if len(grades) == 0 {
		return 0
	}
	return lo.MeanBy(grades, func(g ActivityGrade) float64 {
		if g.Percentage == nil {
			return 0
		}
		return *g.Percentage
	})
}

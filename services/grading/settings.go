package grading

import (
	"context"
	"log"

	courseModels "lms/models/course"
	"lms/utils"

	"gorm.io/gorm"
)

// WeightView is the effective weight set of a scheme and where it came from.
type WeightView struct {
	Scheme  string  `json:"scheme"`
	Source  string  `json:"source"`
	Weights Weights `json:"weights"`
}

// EffectiveWeights returns both schemes as seen by courseID (0 means global).
func (s *Service) EffectiveWeights(ctx context.Context, courseID uint) ([]WeightView, error) {
	db := s.DB.WithContext(ctx)
	var ids []uint
	if courseID != 0 {
		if _, err := findCourse(db, courseID); err != nil {
			return nil, err
		}
		ids = append(ids, courseID)
	}
	snap, err := LoadSnapshot(db, s.Defaults, ids...)
	if err != nil {
		return nil, utils.Internal("Failed to load grade settings", err)
	}

	views := make([]WeightView, 0, 2)
	for _, scheme := range []string{courseModels.SchemeModuleComponent, courseModels.SchemeActivityType} {
		w, source := ResolveWeightsWithSource(snap, courseID, scheme)
		views = append(views, WeightView{Scheme: scheme, Source: source, Weights: w})
	}
	return views, nil
}

// UpdateWeights replaces the weight set of scheme, globally when courseID is 0.
// Global weights are admin-only; course weights need the course's instructor or an admin.
func (s *Service) UpdateWeights(ctx context.Context, rc utils.RequestContext, scheme string, courseID uint, weights Weights) (*WeightView, error) {
	if err := ValidateWeights(scheme, weights); err != nil {
		return nil, err
	}
	db := s.DB.WithContext(ctx)

	if courseID == 0 {
		if !rc.IsAdmin() {
			return nil, utils.Forbidden("Only admins can change global grade weights!")
		}
	} else {
		course, err := findCourse(db, courseID)
		if err != nil {
			return nil, err
		}
		if !rc.CanManage(course.InstructorID) {
			return nil, utils.Forbidden("You are not the instructor of this course!")
		}
	}

	err := db.Transaction(func(tx *gorm.DB) error {
		if courseID == 0 {
			if err := tx.Unscoped().Where("scheme = ?", scheme).Delete(&courseModels.GradeSetting{}).Error; err != nil {
				return err
			}
			for _, key := range sortedKeys(weights) {
				row := courseModels.GradeSetting{Scheme: scheme, Key: key, Weight: weights[key]}
				if err := tx.Create(&row).Error; err != nil {
					return err
				}
			}
			return nil
		}

		if err := tx.Unscoped().Where("course_id = ? AND scheme = ?", courseID, scheme).Delete(&courseModels.CourseGradeSetting{}).Error; err != nil {
			return err
		}
		for _, key := range sortedKeys(weights) {
			row := courseModels.CourseGradeSetting{CourseID: courseID, Scheme: scheme, Key: key, Weight: weights[key]}
			if err := tx.Create(&row).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, utils.Internal("Failed to update grade weights", err)
	}

	s.invalidateForWeights(ctx, db, courseID)

	source := SourceGlobal
	if courseID != 0 {
		source = SourceCourse
	}
	return &WeightView{Scheme: scheme, Source: source, Weights: weights.clone()}, nil
}

// ResetCourseWeights removes a course override so the course falls back to the global weights.
func (s *Service) ResetCourseWeights(ctx context.Context, rc utils.RequestContext, courseID uint, scheme string) error {
	if _, ok := SchemeKeys(scheme); !ok {
		return utils.FieldError("scheme", "Unknown weight scheme!")
	}
	db := s.DB.WithContext(ctx)
	course, err := findCourse(db, courseID)
	if err != nil {
		return err
	}
	if !rc.CanManage(course.InstructorID) {
		return utils.Forbidden("You are not the instructor of this course!")
	}
	if err := db.Unscoped().Where("course_id = ? AND scheme = ?", courseID, scheme).
		Delete(&courseModels.CourseGradeSetting{}).Error; err != nil {
		return utils.Internal("Failed to reset grade weights", err)
	}
	s.InvalidateCourse(ctx, courseID)
	return nil
}

func (s *Service) invalidateForWeights(ctx context.Context, db *gorm.DB, courseID uint) {
	if courseID != 0 {
		s.InvalidateCourse(ctx, courseID)
		return
	}
	var courseIDs []uint
	if err := db.Model(&courseModels.Course{}).Pluck("id", &courseIDs).Error; err != nil {
		log.Printf("[GRADING] Failed to list courses for grade invalidation: %v", err)
		return
	}
	for _, id := range courseIDs {
		s.InvalidateCourse(ctx, id)
	}
}

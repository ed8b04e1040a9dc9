package submission

import (
	"context"
	"errors"

	courseModels "lms/models/course"
	"lms/utils"

	"gorm.io/gorm"
)

// ActivityForAssignment maps an assignment id to its activity id.
func (s *Service) ActivityForAssignment(ctx context.Context, assignmentID uint) (uint, error) {
	var assignment courseModels.Assignment
	if err := s.DB.WithContext(ctx).First(&assignment, assignmentID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, utils.NotFound("Assignment not found!")
		}
		return 0, utils.Internal("Failed to fetch assignment", err)
	}
	return assignment.ActivityID, nil
}

// ActivityForQuiz maps a quiz id to its activity id.
func (s *Service) ActivityForQuiz(ctx context.Context, quizID uint) (uint, error) {
	var quiz courseModels.Quiz
	if err := s.DB.WithContext(ctx).First(&quiz, quizID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, utils.NotFound("Quiz not found!")
		}
		return 0, utils.Internal("Failed to fetch quiz", err)
	}
	return quiz.ActivityID, nil
}

// Package services wires the domain services once at startup.
package services

import (
	"lms/cache"
	"lms/config"
	"lms/services/certificates"
	"lms/services/documents"
	"lms/services/enrollment"
	"lms/services/grading"
	"lms/services/submission"
	"lms/utils"

	"gorm.io/gorm"
)

type Container struct {
	Grades       *grading.Service
	Enrollment   *enrollment.Service
	Submission   *submission.Service
	Documents    *documents.Service
	Certificates *certificates.Service
}

// App is the container the controllers use, set by Init.
var App *Container

func New(db *gorm.DB, gradeCache cache.GradeCache, notifier utils.Notifier, weights config.GradeWeights) *Container {
	grades := grading.NewService(db, gradeCache, grading.DefaultsFromConfig(weights))
	enrollments := enrollment.NewService(db, grades, notifier)
	return &Container{
		Grades:       grades,
		Enrollment:   enrollments,
		Submission:   submission.NewService(db, grades, enrollments),
		Documents:    documents.NewService(db, documents.NewRegistry()),
		Certificates: certificates.NewService(db, grades, notifier),
	}
}

func Init(db *gorm.DB, gradeCache cache.GradeCache, notifier utils.Notifier) *Container {
	App = New(db, gradeCache, notifier, config.DefaultGradeWeights())
	return App
}

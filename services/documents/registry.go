// Package documents attaches uploaded files to courses, modules, lessons and activities.
package documents

import (
	"context"
	"errors"
	"sort"

	courseModels "lms/models/course"
	"lms/services/enrollment"
	"lms/utils"

	"github.com/samber/lo"
	"gorm.io/gorm"
)

type OwnerType string

const (
	OwnerCourse   OwnerType = "course"
	OwnerModule   OwnerType = "module"
	OwnerLesson   OwnerType = "lesson"
	OwnerActivity OwnerType = "activity"
)

// OwnerHandler knows one owner table and its document pivot.
type OwnerHandler interface {
	// CourseOf returns the course the owner belongs to, or a not-found error.
	CourseOf(tx *gorm.DB, ownerID uint) (uint, error)
	Attach(tx *gorm.DB, ownerID, documentID uint) error
	List(tx *gorm.DB, ownerID uint) ([]courseModels.Document, error)
}

// Registry is built once at startup and read-only afterwards.
type Registry struct {
	handlers map[OwnerType]OwnerHandler
}

func NewRegistry() *Registry {
	return &Registry{handlers: map[OwnerType]OwnerHandler{
		OwnerCourse: pivotHandler[courseModels.CourseDocument]{
			column: "course_id",
			courseOf: func(tx *gorm.DB, id uint) (uint, error) {
				var c courseModels.Course
				err := tx.Where("id = ? AND is_deleted = ?", id, false).First(&c).Error
				return c.ID, notFound(err, "Course not found!")
			},
			pivot: func(ownerID, docID uint) *courseModels.CourseDocument {
				return &courseModels.CourseDocument{CourseID: ownerID, DocumentID: docID}
			},
			document: func(p courseModels.CourseDocument) courseModels.Document { return p.Document },
		},
		OwnerModule: pivotHandler[courseModels.ModuleDocument]{
			column: "module_id",
			courseOf: func(tx *gorm.DB, id uint) (uint, error) {
				var m courseModels.Module
				err := tx.Where("id = ? AND is_deleted = ?", id, false).First(&m).Error
				return m.CourseID, notFound(err, "Module not found!")
			},
			pivot: func(ownerID, docID uint) *courseModels.ModuleDocument {
				return &courseModels.ModuleDocument{ModuleID: ownerID, DocumentID: docID}
			},
			document: func(p courseModels.ModuleDocument) courseModels.Document { return p.Document },
		},
		OwnerLesson: pivotHandler[courseModels.LessonDocument]{
			column: "lesson_id",
			courseOf: func(tx *gorm.DB, id uint) (uint, error) {
				var l courseModels.Lesson
				err := tx.Where("id = ? AND is_deleted = ?", id, false).First(&l).Error
				return l.CourseID, notFound(err, "Lesson not found!")
			},
			pivot: func(ownerID, docID uint) *courseModels.LessonDocument {
				return &courseModels.LessonDocument{LessonID: ownerID, DocumentID: docID}
			},
			document: func(p courseModels.LessonDocument) courseModels.Document { return p.Document },
		},
		OwnerActivity: pivotHandler[courseModels.ActivityDocument]{
			column: "activity_id",
			courseOf: func(tx *gorm.DB, id uint) (uint, error) {
				var a courseModels.Activity
				err := tx.Where("id = ? AND is_deleted = ?", id, false).First(&a).Error
				return a.CourseID, notFound(err, "Activity not found!")
			},
			pivot: func(ownerID, docID uint) *courseModels.ActivityDocument {
				return &courseModels.ActivityDocument{ActivityID: ownerID, DocumentID: docID}
			},
			document: func(p courseModels.ActivityDocument) courseModels.Document { return p.Document },
		},
	}}
}

// Handler returns the handler of ownerType or a validation error.
func (r *Registry) Handler(ownerType string) (OwnerHandler, error) {
	h, ok := r.handlers[OwnerType(ownerType)]
	if !ok {
		return nil, utils.FieldError("owner_type", "Owner type must be one of course, module, lesson, activity!")
	}
	return h, nil
}

// OwnerTypes lists the registered owner types in sorted order.
func (r *Registry) OwnerTypes() []string {
	types := lo.Map(lo.Keys(r.handlers), func(t OwnerType, _ int) string { return string(t) })
	sort.Strings(types)
	return types
}

type pivotHandler[P any] struct {
	column   string
	courseOf func(tx *gorm.DB, ownerID uint) (uint, error)
	pivot    func(ownerID, documentID uint) *P
	document func(P) courseModels.Document
}

func (h pivotHandler[P]) CourseOf(tx *gorm.DB, ownerID uint) (uint, error) {
	return h.courseOf(tx, ownerID)
}

func (h pivotHandler[P]) Attach(tx *gorm.DB, ownerID, documentID uint) error {
	return tx.Create(h.pivot(ownerID, documentID)).Error
}

func (h pivotHandler[P]) List(tx *gorm.DB, ownerID uint) ([]courseModels.Document, error) {
	var rows []P
	if err := tx.Preload("Document").Where(h.column+" = ?", ownerID).Order("id asc").Find(&rows).Error; err != nil {
		return nil, err
	}
	return lo.Map(rows, func(p P, _ int) courseModels.Document { return h.document(p) }), nil
}

func notFound(err error, message string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return utils.NotFound(message)
	}
	return err
}

type Service struct {
	DB       *gorm.DB
	Registry *Registry
}

func NewService(db *gorm.DB, registry *Registry) *Service {
	return &Service{DB: db, Registry: registry}
}

// Attach stores doc and links it to the owner. Only the course instructor or an admin may attach.
func (s *Service) Attach(ctx context.Context, rc utils.RequestContext, ownerType string, ownerID uint, doc courseModels.Document) (*courseModels.Document, error) {
	handler, err := s.Registry.Handler(ownerType)
	if err != nil {
		return nil, err
	}
	db := s.DB.WithContext(ctx)
	if err := s.authorize(db, rc, handler, ownerID, true); err != nil {
		return nil, err
	}

	doc.UploadedBy = rc.UserID
	err = db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&doc).Error; err != nil {
			return err
		}
		return handler.Attach(tx, ownerID, doc.ID)
	})
	if err != nil {
		return nil, utils.Internal("Failed to attach document", err)
	}
	return &doc, nil
}

// List returns the owner's documents. Enrolled students may read them too.
func (s *Service) List(ctx context.Context, rc utils.RequestContext, ownerType string, ownerID uint) ([]courseModels.Document, error) {
	handler, err := s.Registry.Handler(ownerType)
	if err != nil {
		return nil, err
	}
	db := s.DB.WithContext(ctx)
	if err := s.authorize(db, rc, handler, ownerID, false); err != nil {
		return nil, err
	}
	docs, err := handler.List(db, ownerID)
	if err != nil {
		return nil, utils.Internal("Failed to fetch documents", err)
	}
	return docs, nil
}

func (s *Service) authorize(db *gorm.DB, rc utils.RequestContext, handler OwnerHandler, ownerID uint, write bool) error {
	courseID, err := handler.CourseOf(db, ownerID)
	if err != nil {
		return utils.WrapInternal("Failed to fetch owner", err)
	}
	var course courseModels.Course
	if err := db.First(&course, courseID).Error; err != nil {
		return utils.WrapInternal("Failed to fetch course", notFound(err, "Course not found!"))
	}
	if rc.CanManage(course.InstructorID) {
		return nil
	}
	if write {
		return utils.Forbidden("You are not the instructor of this course!")
	}
	_, err = enrollment.RequireActive(db, rc.UserID, courseID)
	return err
}

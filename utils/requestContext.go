package utils

import "lms/models"

// RequestContext identifies the caller of a service operation.
type RequestContext struct {
	UserID uint
	Role   string
}

func (rc RequestContext) IsAdmin() bool {
	return rc.Role == models.RoleAdmin
}

func (rc RequestContext) IsInstructor() bool {
	return rc.Role == models.RoleInstructor
}

func (rc RequestContext) IsStudent() bool {
	return rc.Role == models.RoleStudent
}

// CanManage reports whether the caller may manage a course owned by instructorID.
func (rc RequestContext) CanManage(instructorID uint) bool {
	return rc.IsAdmin() || (rc.IsInstructor() && rc.UserID == instructorID)
}

package models

import (
	"time"

	"gorm.io/gorm"
)

const (
	RoleAdmin      = "ADMIN"
	RoleInstructor = "INSTRUCTOR"
	RoleStudent    = "STUDENT"
)

type User struct {
	gorm.Model
	ProfileImage string     `json:"profile_image" gorm:"default:''"`
	Name         string     `json:"name" gorm:"default:''"`
	Email        string     `json:"email" gorm:"unique;not null"`
	Role         string     `json:"role" gorm:"default:'STUDENT'"` // ADMIN, INSTRUCTOR, STUDENT
	Password     string     `json:"-" gorm:"not null"`
	LastLogin    *time.Time `json:"last_login"`
	IsBlocked    bool       `json:"is_blocked" gorm:"default:false"`
	IsDeleted    bool       `json:"-" gorm:"default:false"`
}

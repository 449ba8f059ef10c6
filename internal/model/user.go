package model

import (
	"time"
)

type UserRole string

const (
	Learner UserRole = "learner"
	HR      UserRole = "hr"
	Mentor  UserRole = "mentor"
	Lead    UserRole = "lead"
	Admin   UserRole = "admin"
)

func (r UserRole) Valid() bool {
	switch r {
	case Learner, HR, Mentor, Lead, Admin:
		return true
	}
	return false
}

// swagger:model User
type User struct {
	Entity
	Name      string     `gorm:"size:100;not null" json:"name"`
	Email     string     `gorm:"size:100;uniqueIndex;not null" json:"email"`
	Password  string     `gorm:"size:100;not null" json:"-"`
	Role      UserRole   `gorm:"size:20;default:'learner'" json:"role"`
	Avatar    string     `gorm:"size:255" json:"avatar,omitempty"`
	Disabled  bool       `gorm:"default:false" json:"disabled"`
	LastLogin *time.Time `json:"lastLogin,omitempty"`
}

func (User) TableName() string {
	return "users"
}

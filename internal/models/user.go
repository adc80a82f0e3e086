package models

import "time"

// UserModel represents a registered account.
type UserModel struct {
	Base
	Name          string     `json:"name"  gorm:"not null"`
	Email         string     `json:"email" gorm:"uniqueIndex;not null"`
	Password      string     `json:"-"     gorm:"not null"` // bcrypt, never exposed
	LastLoginTime *time.Time `json:"last_login_time"`
	LastLoginIP   string     `json:"last_login_ip"`
}

func (UserModel) TableName() string { return "users" }

package models

import "time"

// PostModel is a dated journal entry ("moment") with an optional image.
// Lifecycle: active -> archived (reversible) -> hard-deleted (irreversible).
type PostModel struct {
	Base
	UserID      string    `json:"user_id"      gorm:"type:char(36);index;not null"`
	Title       string    `json:"title"        gorm:"not null"`
	Description string    `json:"description"  gorm:"type:text"`
	ImageURL    string    `json:"image_url"`
	ImageWidth  int       `json:"image_width,omitempty"`
	ImageHeight int       `json:"image_height,omitempty"`
	PostDate    time.Time `json:"post_date"    gorm:"type:date;not null"`
	IsArchived  bool      `json:"is_archived"  gorm:"default:false;index"`
}

func (PostModel) TableName() string { return "posts" }

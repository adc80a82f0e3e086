package models

// FavoriteModel is a user's bookmark of a post. The (user_id, post_id)
// pair is unique; the row's own created_at drives the highlights ordering.
type FavoriteModel struct {
	Base
	UserID string `json:"user_id" gorm:"type:char(36);uniqueIndex:idx_favorites_user_post;not null"`
	PostID string `json:"post_id" gorm:"type:char(36);uniqueIndex:idx_favorites_user_post;index;not null"`
}

func (FavoriteModel) TableName() string { return "favorites" }

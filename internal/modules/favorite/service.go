package favorite

import (
	"errors"

	"github.com/tracking-moments/core/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ErrPostNotFound means the favorite target does not exist (or was
// hard-deleted).
var ErrPostNotFound = errors.New("post not found")

type Service struct {
	db *gorm.DB
}

func NewService(db *gorm.DB) *Service {
	return &Service{db: db}
}

// Add favorites a post for the user. Favoriting twice is a no-op, not
// an error: the insert lands on the (user_id, post_id) unique index
// with DO NOTHING semantics.
func (s *Service) Add(userID, postID string) error {
	var count int64
	if err := s.db.Model(&models.PostModel{}).
		Where("id = ?", postID).Count(&count).Error; err != nil {
		return err
	}
	if count == 0 {
		return ErrPostNotFound
	}

	fav := models.FavoriteModel{UserID: userID, PostID: postID}
	return s.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}, {Name: "post_id"}},
		DoNothing: true,
	}).Create(&fav).Error
}

// Remove unfavorites a post. Removing an absent favorite is a no-op.
// The row is dropped for real so a later re-favorite does not collide
// with a soft-deleted tombstone on the unique index.
func (s *Service) Remove(userID, postID string) error {
	return s.db.Unscoped().
		Where("user_id = ? AND post_id = ?", userID, postID).
		Delete(&models.FavoriteModel{}).Error
}

// ListByUser returns the user's favorited posts, newest favorite first.
// The inner join plus GORM's soft-delete scope keeps deleted posts out.
func (s *Service) ListByUser(userID string) ([]models.PostModel, error) {
	var posts []models.PostModel
	err := s.db.Model(&models.PostModel{}).
		Joins("INNER JOIN favorites ON favorites.post_id = posts.id").
		Where("favorites.user_id = ? AND favorites.deleted_at IS NULL", userID).
		Order("favorites.created_at DESC").
		Find(&posts).Error
	return posts, err
}

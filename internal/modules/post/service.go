package post

import (
	"errors"
	"time"

	"github.com/tracking-moments/core/internal/models"
	"gorm.io/gorm"
)

type Service struct {
	db *gorm.DB
}

func NewService(db *gorm.DB) *Service {
	return &Service{db: db}
}

// Create stores a new active post owned by ownerID. PostDate defaults
// to today when the client omits it.
func (s *Service) Create(ownerID string, dto *CreatePostDTO) (*models.PostModel, error) {
	// Default to the local calendar day, not a UTC-truncated instant.
	y, m, d := time.Now().Date()
	postDate := time.Date(y, m, d, 0, 0, 0, 0, time.Local)
	if dto.PostDate != nil {
		postDate = *dto.PostDate
	}

	p := models.PostModel{
		UserID:      ownerID,
		Title:       dto.Title,
		Description: dto.Description,
		PostDate:    postDate,
	}
	if dto.Image != nil {
		p.ImageURL = dto.Image.URL
		p.ImageWidth = dto.Image.Width
		p.ImageHeight = dto.Image.Height
	}
	if err := s.db.Create(&p).Error; err != nil {
		return nil, err
	}
	return &p, nil
}

// GetByID loads one post. Returns (nil, nil) when absent or deleted.
func (s *Service) GetByID(id string) (*models.PostModel, error) {
	var p models.PostModel
	if err := s.db.Where("id = ?", id).First(&p).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &p, nil
}

// ListByOwner returns a user's posts in exactly one lifecycle view:
// archived=false for the default list, archived=true for the archive.
// Ordered by post_date, newest first, with created_at as tiebreaker.
func (s *Service) ListByOwner(ownerID string, archived bool) ([]models.PostModel, error) {
	var posts []models.PostModel
	err := s.db.Where("user_id = ? AND is_archived = ?", ownerID, archived).
		Order("post_date DESC, created_at DESC").
		Find(&posts).Error
	return posts, err
}

// Update applies the supplied fields. Ownership is enforced inside the
// UPDATE itself (WHERE id AND user_id) so the check and the mutation
// cannot be separated by a concurrent owner change or delete.
func (s *Service) Update(id, callerID string, dto *UpdatePostDTO) (*models.PostModel, error) {
	if dto.isEmpty() {
		if err := s.requireOwned(s.db, id, callerID); err != nil {
			return nil, err
		}
		return s.GetByID(id)
	}

	updates := map[string]interface{}{}
	if dto.Title != nil {
		updates["title"] = *dto.Title
	}
	if dto.Description != nil {
		updates["description"] = *dto.Description
	}
	if dto.PostDate != nil {
		updates["post_date"] = *dto.PostDate
	}
	if dto.Image != nil {
		updates["image_url"] = dto.Image.URL
		updates["image_width"] = dto.Image.Width
		updates["image_height"] = dto.Image.Height
	}

	res := s.db.Model(&models.PostModel{}).
		Where("id = ? AND user_id = ?", id, callerID).
		Updates(updates)
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		// Zero affected rows also happens when the values were already
		// current, so probe before reporting a miss.
		if err := s.requireOwned(s.db, id, callerID); err != nil {
			return nil, err
		}
	}
	return s.GetByID(id)
}

// SetArchived flips the archive flag, owner only.
func (s *Service) SetArchived(id, callerID string, archived bool) error {
	res := s.db.Model(&models.PostModel{}).
		Where("id = ? AND user_id = ?", id, callerID).
		Update("is_archived", archived)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return s.requireOwned(s.db, id, callerID)
	}
	return nil
}

// Restore unarchives a post. The combined predicate makes restore of a
// missing, deleted, unowned, or already-active post a single NotFound.
func (s *Service) Restore(id, callerID string) error {
	res := s.db.Model(&models.PostModel{}).
		Where("id = ? AND user_id = ? AND is_archived = ?", id, callerID, true).
		Update("is_archived", false)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// Delete permanently removes the post and cascades its favorites, all
// inside one transaction. Allowed from either lifecycle state.
func (s *Service) Delete(id, callerID string) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		res := tx.Unscoped().
			Where("id = ? AND user_id = ?", id, callerID).
			Delete(&models.PostModel{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			if err := s.requireOwned(tx, id, callerID); err != nil {
				return err
			}
			return ErrNotFound
		}
		return tx.Unscoped().
			Where("post_id = ?", id).
			Delete(&models.FavoriteModel{}).Error
	})
}

// requireOwned distinguishes "gone" from "not yours" after a
// conditional statement matched nothing.
func (s *Service) requireOwned(db *gorm.DB, id, callerID string) error {
	var row struct{ UserID string }
	err := db.Model(&models.PostModel{}).
		Select("user_id").
		Where("id = ?", id).
		First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrNotFound
		}
		return err
	}
	if row.UserID != callerID {
		return ErrForbidden
	}
	return nil
}

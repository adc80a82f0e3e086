package auth

import (
	"errors"
	"strings"
	"time"

	mysqlDriver "github.com/go-sql-driver/mysql"
	"github.com/tracking-moments/core/internal/models"
	sessionpkg "github.com/tracking-moments/core/internal/pkg/session"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// SessionTTL bounds both the JWT expiry and the backing session row.
const SessionTTL = time.Hour

// loginFailureDelay slows down credential guessing.
var loginFailureDelay = 3 * time.Second

type Service struct{ db *gorm.DB }

func NewService(db *gorm.DB) *Service { return &Service{db: db} }

// DB exposes the handle for wiring middleware in the handler.
func (s *Service) DB() *gorm.DB { return s.db }

// Register creates a user with a bcrypt-hashed password. The email is
// guarded by a unique index; a racing duplicate insert surfaces as
// ErrEmailTaken through driver error classification.
func (s *Service) Register(dto *RegisterDTO) (*models.UserModel, error) {
	var count int64
	if err := s.db.Model(&models.UserModel{}).
		Where("email = ?", dto.Email).Count(&count).Error; err != nil {
		return nil, err
	}
	if count > 0 {
		return nil, ErrEmailTaken
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(dto.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	u := models.UserModel{Name: dto.Name, Email: dto.Email, Password: string(hash)}
	if err := s.db.Create(&u).Error; err != nil {
		if isDuplicateEmailError(err) {
			return nil, ErrEmailTaken
		}
		return nil, err
	}
	return &u, nil
}

// Login verifies credentials and issues a session-bound token.
func (s *Service) Login(email, password, ip, ua string) (string, *models.UserModel, error) {
	var u models.UserModel
	if err := s.db.Where("email = ?", email).First(&u).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			time.Sleep(loginFailureDelay)
			return "", nil, ErrInvalidCredentials
		}
		return "", nil, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.Password), []byte(password)); err != nil {
		time.Sleep(loginFailureDelay)
		return "", nil, ErrInvalidCredentials
	}

	token, _, err := sessionpkg.Issue(s.db, u.ID, u.Email, ip, ua, SessionTTL)
	if err != nil {
		return "", nil, err
	}

	now := time.Now()
	_ = s.db.Model(&models.UserModel{}).Where("id = ?", u.ID).
		Updates(map[string]interface{}{
			"last_login_time": &now,
			"last_login_ip":   strings.TrimSpace(ip),
		}).Error

	return token, &u, nil
}

// GetUser loads a user summary by id. Returns (nil, nil) when absent.
func (s *Service) GetUser(userID string) (*models.UserModel, error) {
	var u models.UserModel
	if err := s.db.Where("id = ?", userID).First(&u).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &u, nil
}

// Logout revokes the session behind the presented token.
func (s *Service) Logout(userID, sessionID string) error {
	err := sessionpkg.Revoke(s.db, userID, sessionID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		// Already revoked or expired; sign-out is idempotent.
		return nil
	}
	return err
}

func isDuplicateEmailError(err error) bool {
	var mysqlErr *mysqlDriver.MySQLError
	if errors.As(err, &mysqlErr) {
		return mysqlErr.Number == 1062
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "duplicate entry") ||
		strings.Contains(msg, "unique constraint failed")
}

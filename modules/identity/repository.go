package identity

import (
	"context"
	"errors"
	"time"

	domain "github.com/example/task-tracker/domain/identity"
	"gorm.io/gorm"
)

var (
	// ErrUserNotFound is returned when a user is not found.
	ErrUserNotFound = errors.New("user not found")
	// ErrUserExists is returned when the email is already taken.
	ErrUserExists = errors.New("user already registered")
	// ErrSessionNotFound is returned when a session was revoked or never existed.
	ErrSessionNotFound = errors.New("session not found")
)

// Repository persists users and sessions using GORM.
type Repository struct {
	db *gorm.DB
}

// NewRepository creates a new Repository.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// CreateUser inserts a new user.
func (r *Repository) CreateUser(ctx context.Context, user *domain.User) error {
	result := r.db.WithContext(ctx).Create(user)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrDuplicatedKey) {
			return ErrUserExists
		}
		return result.Error
	}
	return nil
}

// FindUserByID finds a user by ID.
func (r *Repository) FindUserByID(ctx context.Context, id string) (*domain.User, error) {
	var user domain.User
	result := r.db.WithContext(ctx).First(&user, "id = ?", id)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, result.Error
	}
	return &user, nil
}

// FindUserByEmail finds a user by email.
func (r *Repository) FindUserByEmail(ctx context.Context, email string) (*domain.User, error) {
	var user domain.User
	result := r.db.WithContext(ctx).First(&user, "email = ?", email)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, result.Error
	}
	return &user, nil
}

// EmailExists checks if a user with the given email exists.
func (r *Repository) EmailExists(ctx context.Context, email string) (bool, error) {
	var count int64
	result := r.db.WithContext(ctx).Model(&domain.User{}).Where("email = ?", email).Count(&count)
	if result.Error != nil {
		return false, result.Error
	}
	return count > 0, nil
}

// ConfirmUser stamps the confirmation time on an unconfirmed user. A user
// that is already confirmed yields ErrConfirmationUsed.
func (r *Repository) ConfirmUser(ctx context.Context, id string, at time.Time) error {
	result := r.db.WithContext(ctx).Model(&domain.User{}).
		Where("id = ? AND confirmed_at IS NULL", id).
		Update("confirmed_at", at)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrConfirmationUsed
	}
	return nil
}

// CreateSession inserts a new session.
func (r *Repository) CreateSession(ctx context.Context, session *domain.Session) error {
	return r.db.WithContext(ctx).Create(session).Error
}

// FindSession returns a live session. Expired rows are reported as missing.
func (r *Repository) FindSession(ctx context.Context, id string) (*domain.Session, error) {
	var session domain.Session
	result := r.db.WithContext(ctx).First(&session, "id = ? AND expires_at > ?", id, time.Now())
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, ErrSessionNotFound
		}
		return nil, result.Error
	}
	return &session, nil
}

// RotateRefreshToken replaces the session's current refresh token id and
// moves its expiry forward. It only matches while currentID is still the
// current id, so of two concurrent rotations one gets ErrSessionNotFound.
func (r *Repository) RotateRefreshToken(ctx context.Context, id, currentID, nextID string, at, expiresAt time.Time) error {
	result := r.db.WithContext(ctx).Model(&domain.Session{}).
		Where("id = ? AND refresh_token_id = ?", id, currentID).
		Updates(map[string]any{
			"refresh_token_id":          nextID,
			"previous_refresh_token_id": currentID,
			"rotated_at":                at,
			"expires_at":                expiresAt,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrSessionNotFound
	}
	return nil
}

// DeleteSession removes a session. Deleting an unknown session is not an error.
func (r *Repository) DeleteSession(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).Delete(&domain.Session{}, "id = ?", id).Error
}

// DeleteExpiredSessions removes every session past its expiry and returns
// the number of rows removed.
func (r *Repository) DeleteExpiredSessions(ctx context.Context, now time.Time) (int64, error) {
	result := r.db.WithContext(ctx).Delete(&domain.Session{}, "expires_at <= ?", now)
	return result.RowsAffected, result.Error
}

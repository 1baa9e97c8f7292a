package identity

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	domain "github.com/example/task-tracker/domain/identity"
	"github.com/google/uuid"
)

var (
	// ErrInvalidCredentials is returned when login credentials are invalid.
	ErrInvalidCredentials = errors.New("invalid login credentials")
	// ErrEmailNotConfirmed is returned when signing in before confirming the email.
	ErrEmailNotConfirmed = errors.New("email not confirmed")
	// ErrInvalidEmail is returned when email format is invalid.
	ErrInvalidEmail = errors.New("invalid email format")
	// ErrWeakPassword is returned when password is too short.
	ErrWeakPassword = errors.New("password too short")
	// ErrPasswordTooLong is returned when password exceeds bcrypt's 72-byte limit.
	ErrPasswordTooLong = errors.New("password exceeds 72 bytes")
	// ErrConfirmationUsed is returned when a confirmation link is presented
	// for an account that is already confirmed.
	ErrConfirmationUsed = errors.New("confirmation link already used")
)

// RefreshReuseInterval is how long the refresh token replaced by the latest
// rotation stays usable, so concurrent requests holding it are not signed out.
const RefreshReuseInterval = 10 * time.Second

// MinPasswordLength is the shortest password the identity service accepts.
const MinPasswordLength = 6

// SignUpResult is the outcome of a registration. Tokens is nil when the
// account must confirm its email before it can sign in.
type SignUpResult struct {
	User         *domain.User
	Tokens       *domain.TokenPair
	ConfirmToken string
}

// Service implements sign-up, sign-in, verification, refresh and sign-out.
type Service struct {
	repo         *Repository
	hasher       *PasswordHasher
	jwt          *JWTManager
	confirmEmail bool
	now          func() time.Time
}

// NewService creates a new Service.
func NewService(repo *Repository, hasher *PasswordHasher, jwt *JWTManager, confirmEmail bool) *Service {
	return &Service{
		repo:         repo,
		hasher:       hasher,
		jwt:          jwt,
		confirmEmail: confirmEmail,
		now:          time.Now,
	}
}

// SignUp creates a new account. Unless email confirmation is required the
// account is signed in immediately.
func (s *Service) SignUp(ctx context.Context, email, password string) (*SignUpResult, error) {
	email = normalizeEmail(email)
	if _, err := mail.ParseAddress(email); err != nil {
		return nil, ErrInvalidEmail
	}
	if len(password) < MinPasswordLength {
		return nil, ErrWeakPassword
	}
	if len(password) > 72 {
		return nil, ErrPasswordTooLong
	}

	exists, err := s.repo.EmailExists(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("failed to check email existence: %w", err)
	}
	if exists {
		return nil, ErrUserExists
	}

	passwordHash, err := s.hasher.Hash(password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	now := s.now()
	user := &domain.User{
		ID:           uuid.New().String(),
		Email:        email,
		PasswordHash: passwordHash,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if !s.confirmEmail {
		user.ConfirmedAt = &now
	}

	if err := s.repo.CreateUser(ctx, user); err != nil {
		if errors.Is(err, ErrUserExists) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	if s.confirmEmail {
		token, err := s.jwt.GenerateConfirmToken(user.ID, user.Email)
		if err != nil {
			return nil, fmt.Errorf("failed to generate confirmation token: %w", err)
		}
		return &SignUpResult{User: user, ConfirmToken: token}, nil
	}

	tokens, err := s.startSession(ctx, user)
	if err != nil {
		return nil, err
	}
	return &SignUpResult{User: user, Tokens: tokens}, nil
}

// ConfirmEmail marks the account named by a confirmation token as confirmed
// and signs it in. A link works once: an account that is already confirmed
// gets ErrConfirmationUsed and no session.
func (s *Service) ConfirmEmail(ctx context.Context, token string) (*domain.TokenPair, error) {
	claims, err := s.jwt.Parse(token, TokenTypeConfirm)
	if err != nil {
		return nil, err
	}

	user, err := s.repo.FindUserByID(ctx, claims.UserID)
	if err != nil {
		return nil, err
	}
	if user.ConfirmedAt != nil {
		return nil, ErrConfirmationUsed
	}
	if err := s.repo.ConfirmUser(ctx, user.ID, s.now()); err != nil {
		if errors.Is(err, ErrConfirmationUsed) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to confirm user: %w", err)
	}

	return s.startSession(ctx, user)
}

// SignInWithPassword authenticates a user and opens a new session.
func (s *Service) SignInWithPassword(ctx context.Context, email, password string) (*domain.TokenPair, *domain.User, error) {
	user, err := s.repo.FindUserByEmail(ctx, normalizeEmail(email))
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return nil, nil, ErrInvalidCredentials
		}
		return nil, nil, fmt.Errorf("failed to find user: %w", err)
	}

	if !s.hasher.Verify(password, user.PasswordHash) {
		return nil, nil, ErrInvalidCredentials
	}
	if user.ConfirmedAt == nil {
		return nil, nil, ErrEmailNotConfirmed
	}

	tokens, err := s.startSession(ctx, user)
	if err != nil {
		return nil, nil, err
	}
	return tokens, user, nil
}

// VerifyCredential checks an access token against the server-side state:
// signature and expiry, the session row, and the user row. A token for a
// signed-out session or a removed user is rejected.
func (s *Service) VerifyCredential(ctx context.Context, accessToken string) (*domain.Identity, error) {
	claims, err := s.jwt.Parse(accessToken, TokenTypeAccess)
	if err != nil {
		return nil, err
	}

	if _, err := s.repo.FindSession(ctx, claims.SessionID); err != nil {
		if errors.Is(err, ErrSessionNotFound) {
			return nil, ErrInvalidToken
		}
		return nil, fmt.Errorf("failed to load session: %w", err)
	}

	user, err := s.repo.FindUserByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return nil, ErrInvalidToken
		}
		return nil, fmt.Errorf("failed to find user: %w", err)
	}

	return &domain.Identity{
		UserID:    user.ID,
		Email:     user.Email,
		SessionID: claims.SessionID,
	}, nil
}

// GetSession returns the metadata of a live session.
func (s *Service) GetSession(ctx context.Context, sessionID string) (*domain.Session, error) {
	return s.repo.FindSession(ctx, sessionID)
}

// RefreshSession exchanges a refresh token for a new token pair on the same
// session. Each refresh token is single use: the session records the id of
// the current one and rotates it. Presenting an older token revokes the
// session, except for the token replaced within RefreshReuseInterval.
func (s *Service) RefreshSession(ctx context.Context, refreshToken string) (*domain.TokenPair, error) {
	claims, err := s.jwt.Parse(refreshToken, TokenTypeRefresh)
	if err != nil {
		return nil, err
	}

	session, err := s.repo.FindSession(ctx, claims.SessionID)
	if err != nil {
		if errors.Is(err, ErrSessionNotFound) {
			return nil, ErrInvalidToken
		}
		return nil, fmt.Errorf("failed to load session: %w", err)
	}

	now := s.now()
	if claims.ID == "" || claims.ID != session.RefreshTokenID {
		if !s.recentlyRotated(session, claims.ID, now) {
			if err := s.repo.DeleteSession(ctx, session.ID); err != nil {
				return nil, fmt.Errorf("failed to revoke session: %w", err)
			}
			return nil, ErrInvalidToken
		}
	}

	user, err := s.repo.FindUserByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return nil, ErrInvalidToken
		}
		return nil, fmt.Errorf("failed to find user: %w", err)
	}

	nextID := uuid.NewString()
	err = s.repo.RotateRefreshToken(ctx, session.ID, session.RefreshTokenID, nextID, now, now.Add(s.jwt.RefreshTokenDuration()))
	if err != nil {
		if errors.Is(err, ErrSessionNotFound) {
			return nil, ErrInvalidToken
		}
		return nil, fmt.Errorf("failed to rotate refresh token: %w", err)
	}

	return s.generateTokenPair(user, session.ID, nextID)
}

// recentlyRotated reports whether tokenID was replaced by the last rotation
// less than RefreshReuseInterval ago.
func (s *Service) recentlyRotated(session *domain.Session, tokenID string, now time.Time) bool {
	return tokenID != "" &&
		tokenID == session.PreviousRefreshTokenID &&
		session.RotatedAt != nil &&
		now.Sub(*session.RotatedAt) < RefreshReuseInterval
}

// SignOut ends the session named by either token. Expired tokens are
// accepted; tokens with a bad signature are ignored.
func (s *Service) SignOut(ctx context.Context, accessToken, refreshToken string) error {
	sessionID := ""
	if claims, err := s.jwt.ParseIgnoringExpiry(accessToken, TokenTypeAccess); err == nil {
		sessionID = claims.SessionID
	} else if claims, err := s.jwt.ParseIgnoringExpiry(refreshToken, TokenTypeRefresh); err == nil {
		sessionID = claims.SessionID
	}
	if sessionID == "" {
		return nil
	}

	if err := s.repo.DeleteSession(ctx, sessionID); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}

// PruneSessions removes expired sessions.
func (s *Service) PruneSessions(ctx context.Context) (int64, error) {
	return s.repo.DeleteExpiredSessions(ctx, s.now())
}

func (s *Service) startSession(ctx context.Context, user *domain.User) (*domain.TokenPair, error) {
	now := s.now()
	session := &domain.Session{
		ID:             uuid.New().String(),
		UserID:         user.ID,
		RefreshTokenID: uuid.NewString(),
		ExpiresAt:      now.Add(s.jwt.RefreshTokenDuration()),
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := s.repo.CreateSession(ctx, session); err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}
	return s.generateTokenPair(user, session.ID, session.RefreshTokenID)
}

func (s *Service) generateTokenPair(user *domain.User, sessionID, refreshTokenID string) (*domain.TokenPair, error) {
	accessToken, err := s.jwt.GenerateAccessToken(user.ID, user.Email, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to generate access token: %w", err)
	}

	refreshToken, err := s.jwt.GenerateRefreshToken(user.ID, user.Email, sessionID, refreshTokenID)
	if err != nil {
		return nil, fmt.Errorf("failed to generate refresh token: %w", err)
	}

	return &domain.TokenPair{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		ExpiresIn:    s.jwt.AccessTokenDuration(),
		TokenType:    "Bearer",
	}, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

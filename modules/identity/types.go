package identity

import (
	"time"

	domain "github.com/example/task-tracker/domain/identity"
)

// SignUpRequest represents a registration request.
type SignUpRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// SignUpResponse represents a registration response. Session is nil when
// the account still has to confirm its email.
type SignUpResponse struct {
	UserID    string            `json:"user_id"`
	Email     string            `json:"email"`
	CreatedAt time.Time         `json:"created_at"`
	Session   *domain.TokenPair `json:"session,omitempty"`
	Error     string            `json:"error,omitempty"`
	Code      string            `json:"code,omitempty"`
}

// SignInRequest represents a password sign-in request.
type SignInRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// SignInResponse represents a password sign-in response.
type SignInResponse struct {
	UserID  string           `json:"user_id"`
	Email   string           `json:"email"`
	Session domain.TokenPair `json:"session"`
	Error   string           `json:"error,omitempty"`
	Code    string           `json:"code,omitempty"`
}

// ConfirmEmailRequest carries an email confirmation token.
type ConfirmEmailRequest struct {
	Token string `json:"token"`
}

// SessionResponse carries a fresh token pair.
type SessionResponse struct {
	Session domain.TokenPair `json:"session"`
	Error   string           `json:"error,omitempty"`
	Code    string           `json:"code,omitempty"`
}

// VerifyCredentialRequest carries the access token to verify.
type VerifyCredentialRequest struct {
	AccessToken string `json:"access_token"`
}

// VerifyCredentialResponse represents a verification result. Rejections are
// reported in the body, not as service errors.
type VerifyCredentialResponse struct {
	Valid     bool   `json:"valid"`
	Expired   bool   `json:"expired,omitempty"`
	UserID    string `json:"user_id,omitempty"`
	Email     string `json:"email,omitempty"`
	SessionID string `json:"session_id,omitempty"`
	Error     string `json:"error,omitempty"`
}

// GetSessionRequest names a session.
type GetSessionRequest struct {
	SessionID string `json:"session_id"`
}

// GetSessionResponse is the metadata of a session. Found is false for
// revoked or expired sessions.
type GetSessionResponse struct {
	Found     bool      `json:"found"`
	SessionID string    `json:"session_id,omitempty"`
	UserID    string    `json:"user_id,omitempty"`
	ExpiresAt time.Time `json:"expires_at,omitempty"`
	CreatedAt time.Time `json:"created_at,omitempty"`
}

// RefreshSessionRequest carries a refresh token.
type RefreshSessionRequest struct {
	RefreshToken string `json:"refresh_token"`
}

// SignOutRequest carries whichever tokens the client still holds.
type SignOutRequest struct {
	AccessToken  string `json:"access_token,omitempty"`
	RefreshToken string `json:"refresh_token,omitempty"`
}

// SignOutResponse acknowledges a sign-out.
type SignOutResponse struct {
	SignedOut bool `json:"signed_out"`
}

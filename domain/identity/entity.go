package identity

import "time"

// User represents a registered account.
type User struct {
	ID           string     `gorm:"primaryKey;type:text"`
	Email        string     `gorm:"uniqueIndex;not null;type:text"`
	PasswordHash string     `gorm:"not null;type:text"`
	ConfirmedAt  *time.Time `gorm:"index"`
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// TableName returns the table name for the User entity.
func (User) TableName() string {
	return "users"
}

// Session is a server-side sign-in record. Tokens reference it by ID, so
// deleting the row signs the holder out even while the token is unexpired.
// RefreshTokenID names the only refresh token currently accepted for the
// session; PreviousRefreshTokenID is the one it replaced at RotatedAt.
type Session struct {
	ID                     string    `gorm:"primaryKey;type:text"`
	UserID                 string    `gorm:"index;not null;type:text"`
	RefreshTokenID         string    `gorm:"type:text"`
	PreviousRefreshTokenID string    `gorm:"type:text"`
	RotatedAt              *time.Time
	ExpiresAt              time.Time `gorm:"not null"`
	CreatedAt              time.Time
	UpdatedAt              time.Time
}

// TableName returns the table name for the Session entity.
func (Session) TableName() string {
	return "sessions"
}

// TokenPair represents access and refresh tokens for one session.
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int64  `json:"expires_in"`
	TokenType    string `json:"token_type"`
}

// Identity is the verified requester of a single HTTP request.
type Identity struct {
	UserID    string `json:"user_id"`
	Email     string `json:"email"`
	SessionID string `json:"session_id"`
}

// CookieWrite is one cookie mutation requested by the session layer and
// applied by the transport layer, in order.
type CookieWrite struct {
	Name    string
	Value   string
	Options CookieOptions
}

// CookieOptions are the attributes of a cookie write. MaxAge < 0 deletes the
// cookie; MaxAge == 0 makes it a browser-session cookie.
type CookieOptions struct {
	Path     string
	MaxAge   int
	HTTPOnly bool
	Secure   bool
	SameSite string
}

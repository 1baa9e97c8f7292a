package identity

import "errors"

// Error codes reported to callers in service responses.
const (
	CodeInvalidCredentials = "invalid_credentials"
	CodeEmailNotConfirmed  = "email_not_confirmed"
	CodeUserAlreadyExists  = "user_already_exists"
	CodeInvalidEmail       = "email_address_invalid"
	CodeWeakPassword       = "weak_password"
	CodeInvalidToken       = "invalid_token"
	CodeTokenExpired       = "token_expired"
	CodeLinkExpired        = "otp_expired"
)

// AuthError is an expected rejection from the identity collaborator, as
// opposed to a failure of the collaborator itself.
type AuthError struct {
	Code    string
	Message string
}

func (e *AuthError) Error() string {
	return e.Message
}

// rejections maps expected failures to the code and message shown to users.
var rejections = []struct {
	err     error
	code    string
	message string
}{
	{ErrInvalidCredentials, CodeInvalidCredentials, "Invalid login credentials"},
	{ErrEmailNotConfirmed, CodeEmailNotConfirmed, "Email not confirmed"},
	{ErrUserExists, CodeUserAlreadyExists, "User already registered"},
	{ErrInvalidEmail, CodeInvalidEmail, "Unable to validate email address: invalid format"},
	{ErrWeakPassword, CodeWeakPassword, "Password should be at least 6 characters"},
	{ErrPasswordTooLong, CodeWeakPassword, "Password should be at most 72 characters"},
	{ErrConfirmationUsed, CodeLinkExpired, "Email link is invalid or has expired"},
	{ErrExpiredToken, CodeTokenExpired, "Token has expired"},
	{ErrInvalidToken, CodeInvalidToken, "Invalid token"},
	{ErrUserNotFound, CodeInvalidToken, "Invalid token"},
}

// asRejection classifies err as an expected rejection. Unexpected errors
// return false and should be surfaced as service failures.
func asRejection(err error) (*AuthError, bool) {
	for _, r := range rejections {
		if errors.Is(err, r.err) {
			return &AuthError{Code: r.code, Message: r.message}, true
		}
	}
	return nil, false
}

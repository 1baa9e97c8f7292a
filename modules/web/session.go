package web

import (
	"context"
	"errors"
	"log"
	"time"

	domain "github.com/example/task-tracker/domain/identity"
	"github.com/example/task-tracker/modules/identity"
	"github.com/gofiber/fiber/v2"
)

// Cookie names.
const (
	AccessTokenCookie  = "sb-access-token"
	RefreshTokenCookie = "sb-refresh-token"
	RememberCookie     = "sb-remember-me"
)

// RememberMaxAge is the lifetime of remembered session cookies: 30 days.
const RememberMaxAge = 60 * 60 * 24 * 30

// identityKey is the Locals key holding the verified identity.
const identityKey = "identity"

// Credentials is the session material presented by a request.
type Credentials struct {
	AccessToken  string
	RefreshToken string
	Remember     bool
}

// credentialsFrom reads the session cookies of a request.
func credentialsFrom(c *fiber.Ctx) Credentials {
	return Credentials{
		AccessToken:  c.Cookies(AccessTokenCookie),
		RefreshToken: c.Cookies(RefreshTokenCookie),
		Remember:     c.Cookies(RememberCookie) == "1",
	}
}

// SessionResolver turns request credentials into a verified identity. The
// access token is always checked by the identity module; nothing decoded
// locally is trusted.
type SessionResolver struct {
	identity identity.IdentityPort
	secure   bool
}

// NewSessionResolver creates a new SessionResolver.
func NewSessionResolver(port identity.IdentityPort, secure bool) *SessionResolver {
	return &SessionResolver{identity: port, secure: secure}
}

// Resolve returns the requester's identity, or nil for anonymous requests,
// together with the cookie writes the response must carry. An expired
// access token is refreshed when a refresh token is present. Collaborator
// failures are logged and resolve to anonymous.
func (r *SessionResolver) Resolve(ctx context.Context, creds Credentials) (*domain.Identity, []domain.CookieWrite) {
	if creds.AccessToken == "" && creds.RefreshToken == "" {
		return nil, nil
	}

	if creds.AccessToken != "" {
		id, err := r.verify(ctx, creds.AccessToken)
		switch {
		case err == nil:
			return id, nil
		case errors.Is(err, identity.ErrExpiredToken):
			// try the refresh token below
		case errors.Is(err, identity.ErrInvalidToken):
			return nil, ClearSessionCookies(r.secure)
		default:
			log.Printf("[web] Session verification failed: %v", err)
			return nil, nil
		}
	}

	if creds.RefreshToken == "" {
		return nil, ClearSessionCookies(r.secure)
	}

	tokens, err := r.identity.RefreshSession(ctx, creds.RefreshToken)
	if err != nil {
		var authErr *identity.AuthError
		if errors.As(err, &authErr) {
			return nil, ClearSessionCookies(r.secure)
		}
		log.Printf("[web] Session refresh failed: %v", err)
		return nil, nil
	}

	id, err := r.verify(ctx, tokens.AccessToken)
	if err != nil {
		log.Printf("[web] Refreshed session could not be verified: %v", err)
		return nil, ClearSessionCookies(r.secure)
	}
	return id, SessionCookies(*tokens, creds.Remember, r.secure)
}

// verify checks the access token and then the session it names.
func (r *SessionResolver) verify(ctx context.Context, accessToken string) (*domain.Identity, error) {
	id, err := r.identity.VerifyCredential(ctx, accessToken)
	if err != nil {
		return nil, err
	}
	session, err := r.identity.GetSession(ctx, id.SessionID)
	if err != nil {
		return nil, err
	}
	if session == nil || session.UserID != id.UserID {
		return nil, identity.ErrInvalidToken
	}
	return id, nil
}

func cookieOptions(maxAge int, secure bool) domain.CookieOptions {
	return domain.CookieOptions{
		Path:     "/",
		MaxAge:   maxAge,
		HTTPOnly: true,
		Secure:   secure,
		SameSite: fiber.CookieSameSiteLaxMode,
	}
}

// SessionCookies returns the writes that store a token pair. Remembered
// sessions persist for RememberMaxAge; others end with the browser session.
func SessionCookies(tokens domain.TokenPair, remember, secure bool) []domain.CookieWrite {
	maxAge := 0
	if remember {
		maxAge = RememberMaxAge
	}
	writes := []domain.CookieWrite{
		{Name: AccessTokenCookie, Value: tokens.AccessToken, Options: cookieOptions(maxAge, secure)},
		{Name: RefreshTokenCookie, Value: tokens.RefreshToken, Options: cookieOptions(maxAge, secure)},
	}
	if remember {
		writes = append(writes, domain.CookieWrite{Name: RememberCookie, Value: "1", Options: cookieOptions(maxAge, secure)})
	} else {
		writes = append(writes, domain.CookieWrite{Name: RememberCookie, Options: cookieOptions(-1, secure)})
	}
	return writes
}

// ClearSessionCookies returns the writes that remove every session cookie.
func ClearSessionCookies(secure bool) []domain.CookieWrite {
	return []domain.CookieWrite{
		{Name: AccessTokenCookie, Options: cookieOptions(-1, secure)},
		{Name: RefreshTokenCookie, Options: cookieOptions(-1, secure)},
		{Name: RememberCookie, Options: cookieOptions(-1, secure)},
	}
}

// applyCookies writes cookie mutations to the response in order.
func applyCookies(c *fiber.Ctx, writes []domain.CookieWrite) {
	for _, w := range writes {
		cookie := &fiber.Cookie{
			Name:     w.Name,
			Value:    w.Value,
			Path:     w.Options.Path,
			HTTPOnly: w.Options.HTTPOnly,
			Secure:   w.Options.Secure,
			SameSite: w.Options.SameSite,
		}
		switch {
		case w.Options.MaxAge > 0:
			cookie.MaxAge = w.Options.MaxAge
		case w.Options.MaxAge < 0:
			cookie.Value = ""
			cookie.Expires = time.Unix(0, 0)
		}
		c.Cookie(cookie)
	}
}

// SessionMiddleware resolves the session once per request, applies any
// cookie writes and stores the identity for the handlers.
func SessionMiddleware(resolver *SessionResolver) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, writes := resolver.Resolve(c.UserContext(), credentialsFrom(c))
		applyCookies(c, writes)
		if id != nil {
			c.Locals(identityKey, id)
		}
		return c.Next()
	}
}

// IdentityFrom returns the identity stored by SessionMiddleware, or nil.
func IdentityFrom(c *fiber.Ctx) *domain.Identity {
	id, _ := c.Locals(identityKey).(*domain.Identity)
	return id
}

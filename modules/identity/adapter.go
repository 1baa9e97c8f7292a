package identity

import (
	"context"
	"encoding/json"
	"fmt"

	domain "github.com/example/task-tracker/domain/identity"
	"github.com/go-monolith/mono"
	"github.com/go-monolith/mono/pkg/helper"
)

// IdentityPort is the capability set other modules use to reach the
// identity collaborator. Expected rejections are returned as *AuthError.
type IdentityPort interface {
	SignUp(ctx context.Context, email, password string) (*SignUpResponse, error)
	ConfirmEmail(ctx context.Context, token string) (*domain.TokenPair, error)
	SignInWithPassword(ctx context.Context, email, password string) (*SignInResponse, error)
	VerifyCredential(ctx context.Context, accessToken string) (*domain.Identity, error)
	GetSession(ctx context.Context, sessionID string) (*domain.Session, error)
	RefreshSession(ctx context.Context, refreshToken string) (*domain.TokenPair, error)
	SignOut(ctx context.Context, accessToken, refreshToken string) error
}

// Adapter implements IdentityPort using the service container.
type Adapter struct {
	container mono.ServiceContainer
}

var _ IdentityPort = (*Adapter)(nil)

// NewAdapter creates a new Adapter.
func NewAdapter(container mono.ServiceContainer) *Adapter {
	return &Adapter{container: container}
}

// SignUp registers a new account.
func (a *Adapter) SignUp(ctx context.Context, email, password string) (*SignUpResponse, error) {
	req := SignUpRequest{Email: email, Password: password}
	var resp SignUpResponse
	if err := helper.CallRequestReplyService(
		ctx,
		a.container,
		"sign-up",
		json.Marshal,
		json.Unmarshal,
		&req,
		&resp,
	); err != nil {
		return nil, fmt.Errorf("sign-up request failed: %w", err)
	}
	if resp.Error != "" {
		return nil, &AuthError{Code: resp.Code, Message: resp.Error}
	}
	return &resp, nil
}

// ConfirmEmail confirms an account and returns its first session.
func (a *Adapter) ConfirmEmail(ctx context.Context, token string) (*domain.TokenPair, error) {
	req := ConfirmEmailRequest{Token: token}
	var resp SessionResponse
	if err := helper.CallRequestReplyService(
		ctx,
		a.container,
		"confirm-email",
		json.Marshal,
		json.Unmarshal,
		&req,
		&resp,
	); err != nil {
		return nil, fmt.Errorf("confirm-email request failed: %w", err)
	}
	if resp.Error != "" {
		return nil, &AuthError{Code: resp.Code, Message: resp.Error}
	}
	return &resp.Session, nil
}

// SignInWithPassword opens a session for valid credentials.
func (a *Adapter) SignInWithPassword(ctx context.Context, email, password string) (*SignInResponse, error) {
	req := SignInRequest{Email: email, Password: password}
	var resp SignInResponse
	if err := helper.CallRequestReplyService(
		ctx,
		a.container,
		"sign-in",
		json.Marshal,
		json.Unmarshal,
		&req,
		&resp,
	); err != nil {
		return nil, fmt.Errorf("sign-in request failed: %w", err)
	}
	if resp.Error != "" {
		return nil, &AuthError{Code: resp.Code, Message: resp.Error}
	}
	return &resp, nil
}

// VerifyCredential verifies an access token with the collaborator.
func (a *Adapter) VerifyCredential(ctx context.Context, accessToken string) (*domain.Identity, error) {
	req := VerifyCredentialRequest{AccessToken: accessToken}
	var resp VerifyCredentialResponse
	if err := helper.CallRequestReplyService(
		ctx,
		a.container,
		"verify-credential",
		json.Marshal,
		json.Unmarshal,
		&req,
		&resp,
	); err != nil {
		return nil, fmt.Errorf("verify-credential request failed: %w", err)
	}
	if !resp.Valid {
		if resp.Expired {
			return nil, ErrExpiredToken
		}
		return nil, ErrInvalidToken
	}
	return &domain.Identity{
		UserID:    resp.UserID,
		Email:     resp.Email,
		SessionID: resp.SessionID,
	}, nil
}

// GetSession returns the metadata of a live session, or nil when the
// session is gone.
func (a *Adapter) GetSession(ctx context.Context, sessionID string) (*domain.Session, error) {
	req := GetSessionRequest{SessionID: sessionID}
	var resp GetSessionResponse
	if err := helper.CallRequestReplyService(
		ctx,
		a.container,
		"get-session",
		json.Marshal,
		json.Unmarshal,
		&req,
		&resp,
	); err != nil {
		return nil, fmt.Errorf("get-session request failed: %w", err)
	}
	if !resp.Found {
		return nil, nil
	}
	return &domain.Session{
		ID:        resp.SessionID,
		UserID:    resp.UserID,
		ExpiresAt: resp.ExpiresAt,
		CreatedAt: resp.CreatedAt,
	}, nil
}

// RefreshSession exchanges a refresh token for a new token pair.
func (a *Adapter) RefreshSession(ctx context.Context, refreshToken string) (*domain.TokenPair, error) {
	req := RefreshSessionRequest{RefreshToken: refreshToken}
	var resp SessionResponse
	if err := helper.CallRequestReplyService(
		ctx,
		a.container,
		"refresh-session",
		json.Marshal,
		json.Unmarshal,
		&req,
		&resp,
	); err != nil {
		return nil, fmt.Errorf("refresh-session request failed: %w", err)
	}
	if resp.Error != "" {
		return nil, &AuthError{Code: resp.Code, Message: resp.Error}
	}
	return &resp.Session, nil
}

// SignOut ends the session held by the given tokens.
func (a *Adapter) SignOut(ctx context.Context, accessToken, refreshToken string) error {
	req := SignOutRequest{AccessToken: accessToken, RefreshToken: refreshToken}
	var resp SignOutResponse
	if err := helper.CallRequestReplyService(
		ctx,
		a.container,
		"sign-out",
		json.Marshal,
		json.Unmarshal,
		&req,
		&resp,
	); err != nil {
		return fmt.Errorf("sign-out request failed: %w", err)
	}
	return nil
}

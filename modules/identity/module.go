package identity

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/url"
	"os"

	domain "github.com/example/task-tracker/domain/identity"
	"github.com/go-monolith/mono"
	"github.com/go-monolith/mono/pkg/helper"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// IdentityModule is the identity collaborator: it registers accounts,
// issues sessions and verifies credentials for the rest of the application.
type IdentityModule struct {
	db           *gorm.DB
	service      *Service
	dbPath       string
	siteURL      string
	confirmEmail bool
	devMode      bool
	jwtConfig    JWTConfig
}

// Compile-time interface checks.
var _ mono.Module = (*IdentityModule)(nil)
var _ mono.ServiceProviderModule = (*IdentityModule)(nil)
var _ mono.HealthCheckableModule = (*IdentityModule)(nil)

// NewModule creates a new IdentityModule configured from the environment.
func NewModule() *IdentityModule {
	dbPath := os.Getenv("IDENTITY_DB_PATH")
	if dbPath == "" {
		dbPath = "identity.db"
	}
	siteURL := os.Getenv("SITE_URL")
	if siteURL == "" {
		siteURL = "http://localhost:3000"
	}
	return &IdentityModule{
		dbPath:       dbPath,
		siteURL:      siteURL,
		confirmEmail: os.Getenv("IDENTITY_CONFIRM_EMAIL") == "true",
		devMode:      os.Getenv("APP_ENV") == "development",
		jwtConfig:    LoadJWTConfig(),
	}
}

// Name returns the module name.
func (m *IdentityModule) Name() string {
	return "identity"
}

// Start opens the database, migrates the schema and builds the service.
func (m *IdentityModule) Start(ctx context.Context) error {
	if err := checkSigningConfig(m.jwtConfig, m.devMode); err != nil {
		return err
	}

	logLevel := logger.Silent
	if os.Getenv("DB_DEBUG") == "true" {
		logLevel = logger.Info
	}

	db, err := gorm.Open(sqlite.Open(m.dbPath), &gorm.Config{
		Logger:         logger.Default.LogMode(logLevel),
		TranslateError: true,
	})
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	m.db = db

	if err := db.AutoMigrate(&domain.User{}, &domain.Session{}); err != nil {
		return fmt.Errorf("failed to migrate database: %w", err)
	}

	m.service = NewService(NewRepository(db), NewPasswordHasher(), NewJWTManager(m.jwtConfig), m.confirmEmail)

	pruned, err := m.service.PruneSessions(ctx)
	if err != nil {
		log.Printf("[identity] Warning: failed to prune expired sessions: %v", err)
	} else if pruned > 0 {
		log.Printf("[identity] Pruned %d expired sessions", pruned)
	}

	log.Printf("[identity] Module started (database: %s, confirm email: %t)", m.dbPath, m.confirmEmail)
	return nil
}

// Stop closes the database.
func (m *IdentityModule) Stop(_ context.Context) error {
	if m.db != nil {
		if sqlDB, err := m.db.DB(); err == nil {
			sqlDB.Close()
		}
	}
	log.Println("[identity] Module stopped")
	return nil
}

// Health returns the health status of the module.
func (m *IdentityModule) Health(ctx context.Context) mono.HealthStatus {
	if m.db == nil {
		return mono.HealthStatus{
			Healthy: false,
			Message: "database not initialized",
		}
	}

	sqlDB, err := m.db.DB()
	if err != nil {
		return mono.HealthStatus{
			Healthy: false,
			Message: fmt.Sprintf("failed to get database connection: %v", err),
		}
	}

	if err := sqlDB.PingContext(ctx); err != nil {
		return mono.HealthStatus{
			Healthy: false,
			Message: fmt.Sprintf("database ping failed: %v", err),
		}
	}

	return mono.HealthStatus{
		Healthy: true,
		Message: "operational",
		Details: map[string]any{
			"database": m.dbPath,
		},
	}
}

// RegisterServices registers request-reply services in the service container.
func (m *IdentityModule) RegisterServices(container mono.ServiceContainer) error {
	if err := helper.RegisterTypedRequestReplyService(
		container, "sign-up", json.Unmarshal, json.Marshal, m.handleSignUp,
	); err != nil {
		return fmt.Errorf("failed to register sign-up service: %w", err)
	}

	if err := helper.RegisterTypedRequestReplyService(
		container, "confirm-email", json.Unmarshal, json.Marshal, m.handleConfirmEmail,
	); err != nil {
		return fmt.Errorf("failed to register confirm-email service: %w", err)
	}

	if err := helper.RegisterTypedRequestReplyService(
		container, "sign-in", json.Unmarshal, json.Marshal, m.handleSignIn,
	); err != nil {
		return fmt.Errorf("failed to register sign-in service: %w", err)
	}

	if err := helper.RegisterTypedRequestReplyService(
		container, "verify-credential", json.Unmarshal, json.Marshal, m.handleVerifyCredential,
	); err != nil {
		return fmt.Errorf("failed to register verify-credential service: %w", err)
	}

	if err := helper.RegisterTypedRequestReplyService(
		container, "get-session", json.Unmarshal, json.Marshal, m.handleGetSession,
	); err != nil {
		return fmt.Errorf("failed to register get-session service: %w", err)
	}

	if err := helper.RegisterTypedRequestReplyService(
		container, "refresh-session", json.Unmarshal, json.Marshal, m.handleRefreshSession,
	); err != nil {
		return fmt.Errorf("failed to register refresh-session service: %w", err)
	}

	if err := helper.RegisterTypedRequestReplyService(
		container, "sign-out", json.Unmarshal, json.Marshal, m.handleSignOut,
	); err != nil {
		return fmt.Errorf("failed to register sign-out service: %w", err)
	}

	log.Printf("[identity] Registered services: sign-up, confirm-email, sign-in, verify-credential, get-session, refresh-session, sign-out")
	return nil
}

func (m *IdentityModule) handleSignUp(ctx context.Context, req SignUpRequest, _ *mono.Msg) (SignUpResponse, error) {
	result, err := m.service.SignUp(ctx, req.Email, req.Password)
	if err != nil {
		if rej, ok := asRejection(err); ok {
			return SignUpResponse{Error: rej.Message, Code: rej.Code}, nil
		}
		return SignUpResponse{}, err
	}

	if result.ConfirmToken != "" {
		log.Printf("[identity] Confirmation link for %s: %s/auth/confirm?token=%s",
			result.User.Email, m.siteURL, url.QueryEscape(result.ConfirmToken))
	}

	return SignUpResponse{
		UserID:    result.User.ID,
		Email:     result.User.Email,
		CreatedAt: result.User.CreatedAt,
		Session:   result.Tokens,
	}, nil
}

func (m *IdentityModule) handleConfirmEmail(ctx context.Context, req ConfirmEmailRequest, _ *mono.Msg) (SessionResponse, error) {
	tokens, err := m.service.ConfirmEmail(ctx, req.Token)
	if err != nil {
		if rej, ok := asRejection(err); ok {
			return SessionResponse{Error: rej.Message, Code: rej.Code}, nil
		}
		return SessionResponse{}, err
	}
	return SessionResponse{Session: *tokens}, nil
}

func (m *IdentityModule) handleSignIn(ctx context.Context, req SignInRequest, _ *mono.Msg) (SignInResponse, error) {
	tokens, user, err := m.service.SignInWithPassword(ctx, req.Email, req.Password)
	if err != nil {
		if rej, ok := asRejection(err); ok {
			return SignInResponse{Error: rej.Message, Code: rej.Code}, nil
		}
		return SignInResponse{}, err
	}
	return SignInResponse{
		UserID:  user.ID,
		Email:   user.Email,
		Session: *tokens,
	}, nil
}

func (m *IdentityModule) handleVerifyCredential(ctx context.Context, req VerifyCredentialRequest, _ *mono.Msg) (VerifyCredentialResponse, error) {
	id, err := m.service.VerifyCredential(ctx, req.AccessToken)
	if err != nil {
		switch {
		case errors.Is(err, ErrExpiredToken):
			return VerifyCredentialResponse{Valid: false, Expired: true, Error: "token expired"}, nil
		case errors.Is(err, ErrInvalidToken):
			return VerifyCredentialResponse{Valid: false, Error: "invalid token"}, nil
		}
		return VerifyCredentialResponse{}, err
	}

	return VerifyCredentialResponse{
		Valid:     true,
		UserID:    id.UserID,
		Email:     id.Email,
		SessionID: id.SessionID,
	}, nil
}

func (m *IdentityModule) handleGetSession(ctx context.Context, req GetSessionRequest, _ *mono.Msg) (GetSessionResponse, error) {
	session, err := m.service.GetSession(ctx, req.SessionID)
	if err != nil {
		if errors.Is(err, ErrSessionNotFound) {
			return GetSessionResponse{Found: false}, nil
		}
		return GetSessionResponse{}, err
	}

	return GetSessionResponse{
		Found:     true,
		SessionID: session.ID,
		UserID:    session.UserID,
		ExpiresAt: session.ExpiresAt,
		CreatedAt: session.CreatedAt,
	}, nil
}

func (m *IdentityModule) handleRefreshSession(ctx context.Context, req RefreshSessionRequest, _ *mono.Msg) (SessionResponse, error) {
	tokens, err := m.service.RefreshSession(ctx, req.RefreshToken)
	if err != nil {
		if rej, ok := asRejection(err); ok {
			return SessionResponse{Error: rej.Message, Code: rej.Code}, nil
		}
		return SessionResponse{}, err
	}
	return SessionResponse{Session: *tokens}, nil
}

func (m *IdentityModule) handleSignOut(ctx context.Context, req SignOutRequest, _ *mono.Msg) (SignOutResponse, error) {
	if err := m.service.SignOut(ctx, req.AccessToken, req.RefreshToken); err != nil {
		return SignOutResponse{}, err
	}
	return SignOutResponse{SignedOut: true}, nil
}

// LoadJWTConfig loads token configuration from environment variables.
func LoadJWTConfig() JWTConfig {
	config := DefaultJWTConfig()

	if secret := os.Getenv("IDENTITY_JWT_SECRET"); secret != "" {
		config.SecretKey = secret
	}

	if issuer := os.Getenv("IDENTITY_JWT_ISSUER"); issuer != "" {
		config.Issuer = issuer
	}

	return config
}

// checkSigningConfig refuses to run with a missing or placeholder signing
// secret outside development mode.
func checkSigningConfig(config JWTConfig, devMode bool) error {
	if config.SecretKey != "" && config.SecretKey != PlaceholderSecret {
		return nil
	}
	if devMode && config.SecretKey != "" {
		log.Println("[identity] Warning: using the development signing secret")
		return nil
	}

	log.Println("[identity] Missing or placeholder IDENTITY_JWT_SECRET!")
	log.Println("[identity] Set IDENTITY_JWT_SECRET to a long random value, for example:")
	log.Println("[identity]   export IDENTITY_JWT_SECRET=$(openssl rand -hex 32)")
	log.Println("[identity] or set APP_ENV=development to run with the development secret.")
	return errors.New("missing identity configuration: set IDENTITY_JWT_SECRET")
}

package web

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	domain "github.com/example/task-tracker/domain/identity"
	taskdomain "github.com/example/task-tracker/domain/task"
	"github.com/example/task-tracker/modules/identity"
	"github.com/gofiber/fiber/v2"
)

var errNotImplemented = errors.New("not implemented")

// mockIdentityPort implements identity.IdentityPort for testing.
type mockIdentityPort struct {
	signUpFunc           func(ctx context.Context, email, password string) (*identity.SignUpResponse, error)
	confirmEmailFunc     func(ctx context.Context, token string) (*domain.TokenPair, error)
	signInFunc           func(ctx context.Context, email, password string) (*identity.SignInResponse, error)
	verifyCredentialFunc func(ctx context.Context, accessToken string) (*domain.Identity, error)
	getSessionFunc       func(ctx context.Context, sessionID string) (*domain.Session, error)
	refreshSessionFunc   func(ctx context.Context, refreshToken string) (*domain.TokenPair, error)
	signOutFunc          func(ctx context.Context, accessToken, refreshToken string) error
}

func (m *mockIdentityPort) SignUp(ctx context.Context, email, password string) (*identity.SignUpResponse, error) {
	if m.signUpFunc != nil {
		return m.signUpFunc(ctx, email, password)
	}
	return nil, errNotImplemented
}

func (m *mockIdentityPort) ConfirmEmail(ctx context.Context, token string) (*domain.TokenPair, error) {
	if m.confirmEmailFunc != nil {
		return m.confirmEmailFunc(ctx, token)
	}
	return nil, errNotImplemented
}

func (m *mockIdentityPort) SignInWithPassword(ctx context.Context, email, password string) (*identity.SignInResponse, error) {
	if m.signInFunc != nil {
		return m.signInFunc(ctx, email, password)
	}
	return nil, errNotImplemented
}

func (m *mockIdentityPort) VerifyCredential(ctx context.Context, accessToken string) (*domain.Identity, error) {
	if m.verifyCredentialFunc != nil {
		return m.verifyCredentialFunc(ctx, accessToken)
	}
	return nil, errNotImplemented
}

func (m *mockIdentityPort) GetSession(ctx context.Context, sessionID string) (*domain.Session, error) {
	if m.getSessionFunc != nil {
		return m.getSessionFunc(ctx, sessionID)
	}
	return nil, errNotImplemented
}

func (m *mockIdentityPort) RefreshSession(ctx context.Context, refreshToken string) (*domain.TokenPair, error) {
	if m.refreshSessionFunc != nil {
		return m.refreshSessionFunc(ctx, refreshToken)
	}
	return nil, errNotImplemented
}

func (m *mockIdentityPort) SignOut(ctx context.Context, accessToken, refreshToken string) error {
	if m.signOutFunc != nil {
		return m.signOutFunc(ctx, accessToken, refreshToken)
	}
	return errNotImplemented
}

// mockTaskStore implements taskstore.TaskStorePort and records every call.
type mockTaskStore struct {
	mu    sync.Mutex
	calls []string

	listFunc   func(ctx context.Context, ownerID string) ([]taskdomain.Task, error)
	createFunc func(ctx context.Context, ownerID string, draft taskdomain.Draft) (*taskdomain.Task, error)
	updateFunc func(ctx context.Context, ownerID, id string, patch taskdomain.Patch) (int64, error)
	deleteFunc func(ctx context.Context, ownerID, id string) (int64, error)
}

func (m *mockTaskStore) record(call string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, call)
}

func (m *mockTaskStore) callCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.calls)
}

func (m *mockTaskStore) List(ctx context.Context, ownerID string) ([]taskdomain.Task, error) {
	m.record("list")
	if m.listFunc != nil {
		return m.listFunc(ctx, ownerID)
	}
	return nil, errNotImplemented
}

func (m *mockTaskStore) Create(ctx context.Context, ownerID string, draft taskdomain.Draft) (*taskdomain.Task, error) {
	m.record("create")
	if m.createFunc != nil {
		return m.createFunc(ctx, ownerID, draft)
	}
	return nil, errNotImplemented
}

func (m *mockTaskStore) Update(ctx context.Context, ownerID, id string, patch taskdomain.Patch) (int64, error) {
	m.record("update")
	if m.updateFunc != nil {
		return m.updateFunc(ctx, ownerID, id, patch)
	}
	return 0, errNotImplemented
}

func (m *mockTaskStore) Delete(ctx context.Context, ownerID, id string) (int64, error) {
	m.record("delete")
	if m.deleteFunc != nil {
		return m.deleteFunc(ctx, ownerID, id)
	}
	return 0, errNotImplemented
}

const (
	testAccessToken  = "valid-access-token"
	testRefreshToken = "valid-refresh-token"
	testUserID       = "user-123"
	testSessionID    = "session-1"
)

// signedInIdentity returns an identity port that accepts testAccessToken.
func signedInIdentity() *mockIdentityPort {
	return &mockIdentityPort{
		verifyCredentialFunc: func(_ context.Context, token string) (*domain.Identity, error) {
			if token != testAccessToken {
				return nil, identity.ErrInvalidToken
			}
			return &domain.Identity{UserID: testUserID, Email: "test@example.com", SessionID: testSessionID}, nil
		},
		getSessionFunc: func(_ context.Context, sessionID string) (*domain.Session, error) {
			if sessionID != testSessionID {
				return nil, nil
			}
			return &domain.Session{ID: testSessionID, UserID: testUserID, ExpiresAt: time.Now().Add(time.Hour)}, nil
		},
		signOutFunc: func(context.Context, string, string) error { return nil },
	}
}

func newTestApp(idp *mockIdentityPort, store *mockTaskStore) *fiber.App {
	h := NewHandlers(idp, NewTaskRepository(store), nil, false)
	return newApp(h, NewSessionResolver(idp, false), nil)
}

func sessionCookie() *http.Cookie {
	return &http.Cookie{Name: AccessTokenCookie, Value: testAccessToken}
}

func formRequest(method, target string, values url.Values, cookies ...*http.Cookie) *http.Request {
	req := httptest.NewRequest(method, target, strings.NewReader(values.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	for _, c := range cookies {
		req.AddCookie(c)
	}
	return req
}

func doRequest(t *testing.T, app *fiber.App, req *http.Request) (*http.Response, string) {
	t.Helper()
	resp, err := app.Test(req, -1)
	if err != nil {
		t.Fatalf("app.Test() error = %v", err)
	}
	body, _ := io.ReadAll(resp.Body)
	return resp, string(body)
}

func findCookie(resp *http.Response, name string) *http.Cookie {
	for _, c := range resp.Cookies() {
		if c.Name == name {
			return c
		}
	}
	return nil
}

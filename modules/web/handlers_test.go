package web

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	domain "github.com/example/task-tracker/domain/identity"
	taskdomain "github.com/example/task-tracker/domain/task"
	"github.com/example/task-tracker/modules/identity"
	"github.com/example/task-tracker/modules/taskstore"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMutatingActions_RequireSession(t *testing.T) {
	targets := []string{
		"/tasks/create",
		"/tasks/update",
		"/tasks/delete",
		"/tasks?/create",
		"/tasks?/update",
		"/tasks?/delete",
	}
	values := url.Values{
		"id":       {"task-1"},
		"title":    {"Buy milk"},
		"priority": {"Medium"},
		"due_date": {"2025-01-01"},
	}

	for _, target := range targets {
		t.Run(target, func(t *testing.T) {
			store := &mockTaskStore{}
			app := newTestApp(&mockIdentityPort{}, store)

			resp, body := doRequest(t, app, formRequest("POST", target, values))

			assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
			assert.JSONEq(t, `{"error":"Unauthorized"}`, body)
			assert.Zero(t, store.callCount(), "no storage call expected")
		})
	}
}

func TestMutatingActions_RejectRevokedSession(t *testing.T) {
	idp := signedInIdentity()
	idp.getSessionFunc = func(context.Context, string) (*domain.Session, error) { return nil, nil }
	store := &mockTaskStore{}
	app := newTestApp(idp, store)

	resp, _ := doRequest(t, app, formRequest("POST", "/tasks/delete", url.Values{"id": {"t1"}}, sessionCookie()))

	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Zero(t, store.callCount())
}

func TestLoadTasks(t *testing.T) {
	t.Run("anonymous is redirected to login", func(t *testing.T) {
		app := newTestApp(&mockIdentityPort{}, &mockTaskStore{})

		resp, _ := doRequest(t, app, httptest.NewRequest("GET", "/tasks", nil))

		assert.Equal(t, http.StatusSeeOther, resp.StatusCode)
		assert.Equal(t, "/login", resp.Header.Get("Location"))
	})

	t.Run("lists the owner's tasks", func(t *testing.T) {
		var gotOwner string
		store := &mockTaskStore{
			listFunc: func(_ context.Context, ownerID string) ([]taskdomain.Task, error) {
				gotOwner = ownerID
				return []taskdomain.Task{{ID: "t2", Title: "Newer"}, {ID: "t1", Title: "Older"}}, nil
			},
		}
		app := newTestApp(signedInIdentity(), store)

		req := httptest.NewRequest("GET", "/tasks", nil)
		req.AddCookie(sessionCookie())
		resp, body := doRequest(t, app, req)

		require.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Equal(t, testUserID, gotOwner)

		var out TasksResponse
		require.NoError(t, json.Unmarshal([]byte(body), &out))
		require.Len(t, out.Tasks, 2)
		assert.Equal(t, "t2", out.Tasks[0].ID)
		assert.Equal(t, testUserID, out.User.ID)
	})

	t.Run("store failure degrades to an empty list", func(t *testing.T) {
		store := &mockTaskStore{
			listFunc: func(context.Context, string) ([]taskdomain.Task, error) {
				return nil, errors.New("connection refused")
			},
		}
		app := newTestApp(signedInIdentity(), store)

		req := httptest.NewRequest("GET", "/tasks", nil)
		req.AddCookie(sessionCookie())
		resp, body := doRequest(t, app, req)

		require.Equal(t, http.StatusOK, resp.StatusCode)
		var out TasksResponse
		require.NoError(t, json.Unmarshal([]byte(body), &out))
		assert.NotNil(t, out.Tasks)
		assert.Empty(t, out.Tasks)
	})
}

func TestCreateTask(t *testing.T) {
	t.Run("valid task is stored for the session owner", func(t *testing.T) {
		var gotOwner string
		var gotDraft taskdomain.Draft
		store := &mockTaskStore{
			createFunc: func(_ context.Context, ownerID string, draft taskdomain.Draft) (*taskdomain.Task, error) {
				gotOwner, gotDraft = ownerID, draft
				return &taskdomain.Task{ID: "t1"}, nil
			},
		}
		app := newTestApp(signedInIdentity(), store)

		values := url.Values{
			"title":    {"  Buy milk  "},
			"priority": {"Medium"},
			"due_date": {"2025-01-01"},
			"user_id":  {"someone-else"},
		}
		resp, body := doRequest(t, app, formRequest("POST", "/tasks/create", values, sessionCookie()))

		require.Equal(t, http.StatusOK, resp.StatusCode)
		assert.JSONEq(t, `{"success":true}`, body)
		assert.Equal(t, testUserID, gotOwner)
		assert.Equal(t, "Buy milk", gotDraft.Title)
		assert.Equal(t, taskdomain.StatusPending, gotDraft.Status)
		assert.Nil(t, gotDraft.Description)
	})

	t.Run("validation errors are returned together", func(t *testing.T) {
		store := &mockTaskStore{}
		app := newTestApp(signedInIdentity(), store)

		resp, body := doRequest(t, app, formRequest("POST", "/tasks/create", url.Values{"title": {""}}, sessionCookie()))

		require.Equal(t, http.StatusBadRequest, resp.StatusCode)
		var out ErrorResponse
		require.NoError(t, json.Unmarshal([]byte(body), &out))
		assert.Contains(t, out.ValidationErrors, "title")
		assert.Contains(t, out.ValidationErrors, "priority")
		assert.Contains(t, out.ValidationErrors, "due_date")
		assert.Zero(t, store.callCount())
	})

	t.Run("malformed body is rejected before storage", func(t *testing.T) {
		store := &mockTaskStore{}
		app := newTestApp(signedInIdentity(), store)

		req := httptest.NewRequest("POST", "/tasks/create", strings.NewReader(`{"title":`))
		req.Header.Set("Content-Type", "application/json")
		req.AddCookie(sessionCookie())
		resp, body := doRequest(t, app, req)

		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		assert.JSONEq(t, `{"error":"Invalid form data"}`, body)
		assert.Zero(t, store.callCount())
	})

	t.Run("missing table yields the actionable message", func(t *testing.T) {
		store := &mockTaskStore{
			createFunc: func(context.Context, string, taskdomain.Draft) (*taskdomain.Task, error) {
				return nil, &taskstore.StoreError{Code: taskstore.CodeRelationMissing, Message: `relation "tasks" does not exist`}
			},
		}
		app := newTestApp(signedInIdentity(), store)

		values := url.Values{"title": {"x"}, "priority": {"Low"}, "due_date": {"2025-01-01"}}
		resp, body := doRequest(t, app, formRequest("POST", "/tasks?/create", values, sessionCookie()))

		assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
		assert.JSONEq(t, `{"error":"`+MissingTableMessage+`"}`, body)
	})

	t.Run("other store failures pass the message through", func(t *testing.T) {
		store := &mockTaskStore{
			createFunc: func(context.Context, string, taskdomain.Draft) (*taskdomain.Task, error) {
				return nil, &taskstore.StoreError{Code: taskstore.CodeStorage, Message: "disk I/O error"}
			},
		}
		app := newTestApp(signedInIdentity(), store)

		values := url.Values{"title": {"x"}, "priority": {"Low"}, "due_date": {"2025-01-01"}}
		resp, body := doRequest(t, app, formRequest("POST", "/tasks/create", values, sessionCookie()))

		assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
		assert.JSONEq(t, `{"error":"disk I/O error"}`, body)
	})
}

func TestUpdateTask(t *testing.T) {
	t.Run("only sent fields enter the patch", func(t *testing.T) {
		var gotID string
		var gotPatch taskdomain.Patch
		store := &mockTaskStore{
			updateFunc: func(_ context.Context, _ string, id string, patch taskdomain.Patch) (int64, error) {
				gotID, gotPatch = id, patch
				return 1, nil
			},
		}
		app := newTestApp(signedInIdentity(), store)

		values := url.Values{"id": {"t1"}, "status": {"Completed"}}
		resp, _ := doRequest(t, app, formRequest("POST", "/tasks/update", values, sessionCookie()))

		require.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Equal(t, "t1", gotID)
		require.NotNil(t, gotPatch.Status)
		assert.Equal(t, taskdomain.StatusCompleted, *gotPatch.Status)
		assert.Nil(t, gotPatch.Title)
		assert.Nil(t, gotPatch.Description)
		assert.Nil(t, gotPatch.Priority)
		assert.Nil(t, gotPatch.DueDate)
	})

	t.Run("task id is required", func(t *testing.T) {
		store := &mockTaskStore{}
		app := newTestApp(signedInIdentity(), store)

		resp, body := doRequest(t, app, formRequest("POST", "/tasks/update", url.Values{"status": {"Completed"}}, sessionCookie()))

		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		assert.JSONEq(t, `{"error":"Task ID is required"}`, body)
		assert.Zero(t, store.callCount())
	})

	t.Run("foreign id reports success", func(t *testing.T) {
		store := &mockTaskStore{
			updateFunc: func(context.Context, string, string, taskdomain.Patch) (int64, error) { return 0, nil },
		}
		app := newTestApp(signedInIdentity(), store)

		values := url.Values{"id": {"someone-elses"}, "title": {"Mine now"}}
		resp, body := doRequest(t, app, formRequest("POST", "/tasks/update", values, sessionCookie()))

		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.JSONEq(t, `{"success":true}`, body)
	})
}

func TestDeleteTask(t *testing.T) {
	var gotOwner, gotID string
	store := &mockTaskStore{
		deleteFunc: func(_ context.Context, ownerID, id string) (int64, error) {
			gotOwner, gotID = ownerID, id
			return 0, nil
		},
	}
	app := newTestApp(signedInIdentity(), store)

	resp, body := doRequest(t, app, formRequest("POST", "/tasks?/delete", url.Values{"id": {"t9"}}, sessionCookie()))

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `{"success":true}`, body)
	assert.Equal(t, testUserID, gotOwner)
	assert.Equal(t, "t9", gotID)

	resp, body = doRequest(t, app, formRequest("POST", "/tasks/delete", url.Values{}, sessionCookie()))
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.JSONEq(t, `{"error":"Task ID is required"}`, body)
}

func TestUnknownTaskAction(t *testing.T) {
	app := newTestApp(signedInIdentity(), &mockTaskStore{})

	resp, _ := doRequest(t, app, formRequest("POST", "/tasks?/archive", url.Values{}, sessionCookie()))

	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestLogin(t *testing.T) {
	signIn := func(_ context.Context, email, password string) (*identity.SignInResponse, error) {
		if email == "test@example.com" && password == "Secret1" {
			return &identity.SignInResponse{
				UserID:  testUserID,
				Email:   email,
				Session: domain.TokenPair{AccessToken: "new-access", RefreshToken: "new-refresh"},
			}, nil
		}
		return nil, &identity.AuthError{Code: identity.CodeInvalidCredentials, Message: "Invalid login credentials"}
	}

	t.Run("missing fields", func(t *testing.T) {
		app := newTestApp(&mockIdentityPort{signInFunc: signIn}, &mockTaskStore{})

		resp, body := doRequest(t, app, formRequest("POST", "/login", url.Values{"email": {"test@example.com"}}))

		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		assert.JSONEq(t, `{"error":"Email and password are required"}`, body)
	})

	t.Run("rejected credentials carry the collaborator message", func(t *testing.T) {
		app := newTestApp(&mockIdentityPort{signInFunc: signIn}, &mockTaskStore{})

		values := url.Values{"email": {"test@example.com"}, "password": {"wrong"}}
		resp, body := doRequest(t, app, formRequest("POST", "/login", values))

		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		assert.JSONEq(t, `{"error":"Invalid login credentials"}`, body)
	})

	t.Run("collaborator failure is a server error", func(t *testing.T) {
		idp := &mockIdentityPort{
			signInFunc: func(context.Context, string, string) (*identity.SignInResponse, error) {
				return nil, errors.New("sign-in request failed: nats: timeout")
			},
		}
		app := newTestApp(idp, &mockTaskStore{})

		values := url.Values{"email": {"test@example.com"}, "password": {"Secret1"}}
		resp, _ := doRequest(t, app, formRequest("POST", "/login", values))

		assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
	})

	t.Run("remember persists the access token for 30 days", func(t *testing.T) {
		app := newTestApp(&mockIdentityPort{signInFunc: signIn}, &mockTaskStore{})

		values := url.Values{"email": {"test@example.com"}, "password": {"Secret1"}, "remember": {"on"}}
		resp, _ := doRequest(t, app, formRequest("POST", "/login", values))

		require.Equal(t, http.StatusSeeOther, resp.StatusCode)
		assert.Equal(t, "/tasks", resp.Header.Get("Location"))

		cookie := findCookie(resp, AccessTokenCookie)
		require.NotNil(t, cookie)
		assert.Equal(t, "new-access", cookie.Value)
		assert.Equal(t, RememberMaxAge, cookie.MaxAge)
		assert.Equal(t, 2592000, cookie.MaxAge)
		assert.True(t, cookie.HttpOnly)
		assert.Equal(t, http.SameSiteLaxMode, cookie.SameSite)
		assert.Equal(t, "/", cookie.Path)
	})

	t.Run("without remember the session ends with the browser", func(t *testing.T) {
		app := newTestApp(&mockIdentityPort{signInFunc: signIn}, &mockTaskStore{})

		values := url.Values{"email": {"test@example.com"}, "password": {"Secret1"}}
		resp, _ := doRequest(t, app, formRequest("POST", "/login", values))

		require.Equal(t, http.StatusSeeOther, resp.StatusCode)
		cookie := findCookie(resp, AccessTokenCookie)
		require.NotNil(t, cookie)
		assert.Zero(t, cookie.MaxAge)
		assert.True(t, cookie.Expires.IsZero())
	})
}

func TestAuthPages_RedirectSignedInUsers(t *testing.T) {
	for _, path := range []string{"/login", "/signup"} {
		t.Run(path, func(t *testing.T) {
			app := newTestApp(signedInIdentity(), &mockTaskStore{})

			req := httptest.NewRequest("GET", path, nil)
			req.AddCookie(sessionCookie())
			resp, _ := doRequest(t, app, req)
			assert.Equal(t, http.StatusSeeOther, resp.StatusCode)
			assert.Equal(t, "/tasks", resp.Header.Get("Location"))

			resp, body := doRequest(t, app, httptest.NewRequest("GET", path, nil))
			assert.Equal(t, http.StatusOK, resp.StatusCode)
			assert.JSONEq(t, `{}`, body)
		})
	}
}

func TestSignup(t *testing.T) {
	valid := url.Values{
		"email":           {"new@example.com"},
		"password":        {"Secret1"},
		"confirmPassword": {"Secret1"},
	}

	t.Run("all field errors at once", func(t *testing.T) {
		app := newTestApp(&mockIdentityPort{}, &mockTaskStore{})

		values := url.Values{"email": {"bad"}, "password": {"abc"}, "confirmPassword": {"xyz"}}
		resp, body := doRequest(t, app, formRequest("POST", "/signup", values))

		require.Equal(t, http.StatusBadRequest, resp.StatusCode)
		var out ErrorResponse
		require.NoError(t, json.Unmarshal([]byte(body), &out))
		assert.Len(t, out.ValidationErrors, 3)
	})

	t.Run("already registered", func(t *testing.T) {
		idp := &mockIdentityPort{
			signUpFunc: func(context.Context, string, string) (*identity.SignUpResponse, error) {
				return nil, &identity.AuthError{Code: identity.CodeUserAlreadyExists, Message: "User already registered"}
			},
		}
		app := newTestApp(idp, &mockTaskStore{})

		resp, body := doRequest(t, app, formRequest("POST", "/signup", valid))

		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		assert.JSONEq(t, `{"error":"An account with this email already exists"}`, body)
	})

	t.Run("other rejections pass through", func(t *testing.T) {
		idp := &mockIdentityPort{
			signUpFunc: func(context.Context, string, string) (*identity.SignUpResponse, error) {
				return nil, &identity.AuthError{Code: identity.CodeInvalidEmail, Message: "invalid email address"}
			},
		}
		app := newTestApp(idp, &mockTaskStore{})

		resp, body := doRequest(t, app, formRequest("POST", "/signup", valid))

		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		assert.JSONEq(t, `{"error":"invalid email address"}`, body)
	})

	t.Run("active account is signed in", func(t *testing.T) {
		idp := &mockIdentityPort{
			signUpFunc: func(_ context.Context, email, _ string) (*identity.SignUpResponse, error) {
				return &identity.SignUpResponse{
					UserID:  "new-user",
					Email:   email,
					Session: &domain.TokenPair{AccessToken: "a", RefreshToken: "r"},
				}, nil
			},
		}
		app := newTestApp(idp, &mockTaskStore{})

		resp, _ := doRequest(t, app, formRequest("POST", "/signup", valid))

		assert.Equal(t, http.StatusSeeOther, resp.StatusCode)
		assert.Equal(t, "/tasks", resp.Header.Get("Location"))
		require.NotNil(t, findCookie(resp, AccessTokenCookie))
	})

	t.Run("unconfirmed account gets the check-email marker", func(t *testing.T) {
		idp := &mockIdentityPort{
			signUpFunc: func(_ context.Context, email, _ string) (*identity.SignUpResponse, error) {
				return &identity.SignUpResponse{UserID: "new-user", Email: email}, nil
			},
		}
		app := newTestApp(idp, &mockTaskStore{})

		resp, body := doRequest(t, app, formRequest("POST", "/signup", valid))

		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.JSONEq(t, `{"success":true,"message":"Check your email to confirm your account"}`, body)
	})
}

func TestConfirm(t *testing.T) {
	idp := &mockIdentityPort{
		confirmEmailFunc: func(_ context.Context, token string) (*domain.TokenPair, error) {
			switch token {
			case "good":
				return &domain.TokenPair{AccessToken: "a", RefreshToken: "r"}, nil
			case "used":
				return nil, &identity.AuthError{Code: identity.CodeLinkExpired, Message: "Email link is invalid or has expired"}
			}
			return nil, &identity.AuthError{Code: identity.CodeInvalidToken, Message: "invalid token"}
		},
	}
	app := newTestApp(idp, &mockTaskStore{})

	resp, _ := doRequest(t, app, httptest.NewRequest("GET", "/auth/confirm?token=good", nil))
	assert.Equal(t, http.StatusSeeOther, resp.StatusCode)
	assert.NotNil(t, findCookie(resp, AccessTokenCookie))

	resp, body := doRequest(t, app, httptest.NewRequest("GET", "/auth/confirm?token=bad", nil))
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.JSONEq(t, `{"error":"invalid token"}`, body)

	resp, body = doRequest(t, app, httptest.NewRequest("GET", "/auth/confirm?token=used", nil))
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.JSONEq(t, `{"error":"Email link is invalid or has expired"}`, body)
	assert.Nil(t, findCookie(resp, AccessTokenCookie))

	resp, _ = doRequest(t, app, httptest.NewRequest("GET", "/auth/confirm", nil))
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestLogout(t *testing.T) {
	for _, target := range []string{"/tasks/logout", "/tasks?/logout"} {
		t.Run(target, func(t *testing.T) {
			idp := signedInIdentity()
			var gotAccess string
			idp.signOutFunc = func(_ context.Context, accessToken, _ string) error {
				gotAccess = accessToken
				return errors.New("sign-out request failed: nats: no responders")
			}
			app := newTestApp(idp, &mockTaskStore{})

			resp, _ := doRequest(t, app, formRequest("POST", target, url.Values{}, sessionCookie()))

			assert.Equal(t, http.StatusSeeOther, resp.StatusCode)
			assert.Equal(t, "/login", resp.Header.Get("Location"))
			assert.Equal(t, testAccessToken, gotAccess)

			cookie := findCookie(resp, AccessTokenCookie)
			require.NotNil(t, cookie)
			assert.Empty(t, cookie.Value)
			assert.True(t, cookie.Expires.Before(time.Now()))
		})
	}
}

func TestHealth(t *testing.T) {
	app := newTestApp(&mockIdentityPort{}, &mockTaskStore{})

	resp, body := doRequest(t, app, httptest.NewRequest("GET", "/healthz", nil))

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `{"status":"ok"}`, body)
}

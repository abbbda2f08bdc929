package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
)

// mockResolver はSessionResolverのモック。
type mockResolver struct {
	resolveFn func(ctx context.Context, sessionID string) (string, error)
}

func (m *mockResolver) ResolveSession(ctx context.Context, sessionID string) (string, error) {
	if m.resolveFn != nil {
		return m.resolveFn(ctx, sessionID)
	}
	return "", nil
}

type recordingGateMetrics struct {
	reasons []string
}

func (m *recordingGateMetrics) RecordGateRedirect(reason string) {
	m.reasons = append(m.reasons, reason)
}

// authenticatedResolver は常に固定ユーザーIDを返すリゾルバを作る。
func authenticatedResolver(userID string) *mockResolver {
	return &mockResolver{
		resolveFn: func(ctx context.Context, sessionID string) (string, error) {
			return userID, nil
		},
	}
}

func gateRequest(t *testing.T, resolver SessionResolver, metrics GateMetrics, path string, withCookie bool) (*httptest.ResponseRecorder, bool) {
	t.Helper()

	var reached bool
	inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reached = true
		w.WriteHeader(http.StatusOK)
	})

	handler := NewGateMiddleware(resolver, metrics)(inner)

	req := httptest.NewRequest(http.MethodGet, path, nil)
	if withCookie {
		req.AddCookie(&http.Cookie{Name: SessionCookieName, Value: "some-session"})
	}
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec, reached
}

func TestGate_ProtectedPaths_AnonymousRedirectedToSignIn(t *testing.T) {
	paths := []string{
		"/dashboard",
		"/dashboard/settings",
		"/jobs/new",
		"/jobs/edit/abc-123",
	}

	for _, path := range paths {
		t.Run(path, func(t *testing.T) {
			rec, reached := gateRequest(t, &mockResolver{}, nil, path, false)

			if reached {
				t.Fatal("protected path should not reach the handler for anonymous requests")
			}
			if rec.Code != http.StatusSeeOther {
				t.Fatalf("status = %d, want %d", rec.Code, http.StatusSeeOther)
			}

			loc, err := url.Parse(rec.Header().Get("Location"))
			if err != nil {
				t.Fatalf("failed to parse Location: %v", err)
			}
			if loc.Path != "/auth/signin" {
				t.Errorf("redirect path = %q, want %q", loc.Path, "/auth/signin")
			}
			if got := loc.Query().Get("next"); got != path {
				t.Errorf("next = %q, want %q", got, path)
			}
			if loc.Query().Get("message") == "" {
				t.Error("message parameter should be set")
			}
		})
	}
}

func TestGate_ProtectedPath_AuthenticatedAdmitted(t *testing.T) {
	rec, reached := gateRequest(t, authenticatedResolver("user-1"), nil, "/dashboard", true)

	if !reached {
		t.Fatal("authenticated request should reach the handler")
	}
	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusOK)
	}
}

func TestGate_PublicPath_AnonymousAdmitted(t *testing.T) {
	for _, path := range []string{"/", "/jobs", "/jobs/abc-123"} {
		t.Run(path, func(t *testing.T) {
			_, reached := gateRequest(t, &mockResolver{}, nil, path, false)
			if !reached {
				t.Errorf("public path %s should admit anonymous requests", path)
			}
		})
	}
}

// /jobs/new は保護されるが /jobs/{id} は公開のまま
func TestGate_JobDetail_NotTreatedAsProtected(t *testing.T) {
	_, reached := gateRequest(t, &mockResolver{}, nil, "/jobs/newest-hits", false)
	if !reached {
		t.Error("/jobs/newest-hits is a detail path, not /jobs/new; it must be admitted")
	}
}

func TestGate_AuthEntry_AuthenticatedRedirectedToDashboard(t *testing.T) {
	for _, path := range []string{"/auth/signin", "/auth/signup"} {
		t.Run(path, func(t *testing.T) {
			rec, reached := gateRequest(t, authenticatedResolver("user-1"), nil, path, true)

			if reached {
				t.Fatal("authenticated request to auth entry should be redirected")
			}
			if rec.Code != http.StatusSeeOther {
				t.Fatalf("status = %d, want %d", rec.Code, http.StatusSeeOther)
			}
			if got := rec.Header().Get("Location"); got != "/dashboard" {
				t.Errorf("Location = %q, want %q", got, "/dashboard")
			}
		})
	}
}

func TestGate_AuthEntry_AnonymousAdmitted(t *testing.T) {
	_, reached := gateRequest(t, &mockResolver{}, nil, "/auth/signin", false)
	if !reached {
		t.Error("anonymous request to auth entry should be admitted")
	}
}

func TestGate_BypassPaths_SkipAdmission(t *testing.T) {
	resolver := &mockResolver{
		resolveFn: func(ctx context.Context, sessionID string) (string, error) {
			t.Error("resolver should not be called for bypass paths")
			return "", nil
		},
	}

	for _, path := range []string{"/auth/google/callback", "/auth/callback", "/health", "/metrics", "/favicon.ico", "/static/app.css"} {
		t.Run(path, func(t *testing.T) {
			rec, reached := gateRequest(t, resolver, nil, path, true)
			if !reached {
				t.Errorf("bypass path %s should always reach the handler", path)
			}
			if rec.Header().Get("Cache-Control") != "" {
				t.Errorf("bypass path %s should not get cache headers", path)
			}
		})
	}
}

func TestGate_CacheSuppressionHeaders(t *testing.T) {
	rec, _ := gateRequest(t, &mockResolver{}, nil, "/jobs", false)

	if got := rec.Header().Get("Cache-Control"); got != "no-store, max-age=0" {
		t.Errorf("Cache-Control = %q, want %q", got, "no-store, max-age=0")
	}
	if got := rec.Header().Get("Pragma"); got != "no-cache" {
		t.Errorf("Pragma = %q, want %q", got, "no-cache")
	}
	if got := rec.Header().Get("Expires"); got != "0" {
		t.Errorf("Expires = %q, want %q", got, "0")
	}
}

func TestGate_CacheHeaders_AlsoOnRedirects(t *testing.T) {
	rec, _ := gateRequest(t, &mockResolver{}, nil, "/dashboard", false)

	if got := rec.Header().Get("Cache-Control"); got != "no-store, max-age=0" {
		t.Errorf("Cache-Control = %q, want %q", got, "no-store, max-age=0")
	}
}

// ストア障害は匿名に縮退する。公開パスは入場でき、保護パスは拒否される。
func TestGate_ResolverFailure_DowngradesToAnonymous(t *testing.T) {
	resolver := &mockResolver{
		resolveFn: func(ctx context.Context, sessionID string) (string, error) {
			return "", errors.New("store unavailable")
		},
	}

	t.Run("public path admitted", func(t *testing.T) {
		rec, reached := gateRequest(t, resolver, nil, "/jobs", true)
		if !reached {
			t.Error("public path should be admitted when resolution fails")
		}
		if rec.Code != http.StatusOK {
			t.Errorf("status = %d, want %d", rec.Code, http.StatusOK)
		}
	})

	t.Run("protected path redirected", func(t *testing.T) {
		rec, reached := gateRequest(t, resolver, nil, "/dashboard", true)
		if reached {
			t.Error("protected path should be denied when resolution fails")
		}
		if rec.Code != http.StatusSeeOther {
			t.Errorf("status = %d, want %d", rec.Code, http.StatusSeeOther)
		}
	})
}

func TestGate_InjectsUserIDIntoContext(t *testing.T) {
	var gotUserID string
	inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUserID, _ = UserIDFromContext(r.Context())
	})

	handler := NewGateMiddleware(authenticatedResolver("user-42"), nil)(inner)

	req := httptest.NewRequest(http.MethodGet, "/jobs", nil)
	req.AddCookie(&http.Cookie{Name: SessionCookieName, Value: "session-abc"})
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if gotUserID != "user-42" {
		t.Errorf("user ID in context = %q, want %q", gotUserID, "user-42")
	}
}

func TestGate_AnonymousContext_HasNoUserID(t *testing.T) {
	var err error
	inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, err = UserIDFromContext(r.Context())
	})

	handler := NewGateMiddleware(&mockResolver{}, nil)(inner)

	req := httptest.NewRequest(http.MethodGet, "/jobs", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if err == nil {
		t.Error("UserIDFromContext should fail for anonymous requests")
	}
}

func TestGate_RecordsRedirectMetrics(t *testing.T) {
	metrics := &recordingGateMetrics{}

	gateRequest(t, &mockResolver{}, metrics, "/dashboard", false)
	gateRequest(t, authenticatedResolver("user-1"), metrics, "/auth/signin", true)

	if len(metrics.reasons) != 2 {
		t.Fatalf("recorded %d redirects, want 2", len(metrics.reasons))
	}
	if metrics.reasons[0] != "protected_path_anonymous" {
		t.Errorf("first reason = %q", metrics.reasons[0])
	}
	if metrics.reasons[1] != "auth_entry_authenticated" {
		t.Errorf("second reason = %q", metrics.reasons[1])
	}
}

func TestUserIDFromContext_RoundTrip(t *testing.T) {
	ctx := ContextWithUserID(context.Background(), "user-7")

	userID, err := UserIDFromContext(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if userID != "user-7" {
		t.Errorf("userID = %q, want %q", userID, "user-7")
	}
}

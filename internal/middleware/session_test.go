package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/hitoshi/bitmeme/internal/model"
)

// mockSessionFinder はテスト用のSessionFinder実装。
type mockSessionFinder struct {
	findByIDFn func(ctx context.Context, id string) (*model.Session, error)
}

func (m *mockSessionFinder) FindByID(ctx context.Context, id string) (*model.Session, error) {
	return m.findByIDFn(ctx, id)
}

func sessionFinderFor(id, accountID string, expiresAt time.Time) *mockSessionFinder {
	return &mockSessionFinder{
		findByIDFn: func(ctx context.Context, got string) (*model.Session, error) {
			if got != id {
				return nil, nil
			}
			return &model.Session{ID: id, AccountID: accountID, ExpiresAt: expiresAt}, nil
		},
	}
}

// TestSessionMiddleware_ValidSession は有効なセッションでアカウントIDが注入されることを検証する。
func TestSessionMiddleware_ValidSession(t *testing.T) {
	finder := sessionFinderFor("sess-1", "account-1", time.Now().Add(time.Hour))

	var captured string
	handler := NewSessionMiddleware(finder)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		captured, _ = AccountIDFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/feed", nil)
	req.AddCookie(&http.Cookie{Name: SessionCookieName, Value: "sess-1"})
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}
	if captured != "account-1" {
		t.Errorf("accountID = %q, want %q", captured, "account-1")
	}
}

// TestSessionMiddleware_Rejects は未認証リクエストが401 UNAUTHENTICATEDになることを検証する。
func TestSessionMiddleware_Rejects(t *testing.T) {
	tests := []struct {
		name   string
		cookie *http.Cookie
		finder *mockSessionFinder
	}{
		{
			name:   "Cookieなし",
			finder: sessionFinderFor("sess-1", "account-1", time.Now().Add(time.Hour)),
		},
		{
			name:   "未知のセッション",
			cookie: &http.Cookie{Name: SessionCookieName, Value: "unknown"},
			finder: sessionFinderFor("sess-1", "account-1", time.Now().Add(time.Hour)),
		},
		{
			name:   "期限切れセッション",
			cookie: &http.Cookie{Name: SessionCookieName, Value: "sess-1"},
			finder: sessionFinderFor("sess-1", "account-1", time.Now().Add(-time.Minute)),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			called := false
			handler := NewSessionMiddleware(tt.finder)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				called = true
			}))

			req := httptest.NewRequest(http.MethodGet, "/api/feed", nil)
			if tt.cookie != nil {
				req.AddCookie(tt.cookie)
			}
			w := httptest.NewRecorder()
			handler.ServeHTTP(w, req)

			if called {
				t.Error("next handler should not be called")
			}
			if w.Code != http.StatusUnauthorized {
				t.Fatalf("status = %d, want %d", w.Code, http.StatusUnauthorized)
			}
			var body ErrorResponseBody
			if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
				t.Fatalf("failed to decode body: %v", err)
			}
			if body.Code != model.ErrCodeUnauthenticated {
				t.Errorf("code = %q, want %q", body.Code, model.ErrCodeUnauthenticated)
			}
		})
	}
}

// TestSessionMiddleware_StoreFailure はセッションストアの障害が401ではなく500になることを検証する。
func TestSessionMiddleware_StoreFailure(t *testing.T) {
	finder := &mockSessionFinder{findByIDFn: func(ctx context.Context, id string) (*model.Session, error) {
		return nil, errors.New("dial tcp: connection refused")
	}}

	called := false
	handler := NewSessionMiddleware(finder)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/feed", nil)
	req.AddCookie(&http.Cookie{Name: SessionCookieName, Value: "abc"})
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	if called {
		t.Error("next handler should not be called")
	}
	if w.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusInternalServerError)
	}
	var body ErrorResponseBody
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode body: %v", err)
	}
	if body.Code != "INTERNAL_ERROR" {
		t.Errorf("code = %q, want INTERNAL_ERROR", body.Code)
	}
}

// TestAccountIDFromContext_Empty は未注入のコンテキストでfalseが返ることを検証する。
func TestAccountIDFromContext_Empty(t *testing.T) {
	if _, ok := AccountIDFromContext(context.Background()); ok {
		t.Error("expected ok = false")
	}
	if _, ok := AccountIDFromContext(ContextWithAccountID(context.Background(), "")); ok {
		t.Error("expected ok = false for empty ID")
	}
}

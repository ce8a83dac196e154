package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func findCookie(resp *http.Response, name string) *http.Cookie {
	for _, c := range resp.Cookies() {
		if c.Name == name {
			return c
		}
	}
	return nil
}

// TestCSRFMiddleware_SafeMethodIssuesCookie はGETでCSRFトークンCookieが発行されることを検証する。
func TestCSRFMiddleware_SafeMethodIssuesCookie(t *testing.T) {
	handler := NewCSRFMiddleware(CSRFConfig{})(okHandler())

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/feed", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	c := findCookie(w.Result(), csrfCookieName)
	if c == nil || len(c.Value) != 64 {
		t.Fatalf("expected 64-char csrf cookie, got %+v", c)
	}
	if c.HttpOnly {
		t.Error("csrf cookie must be readable from JavaScript")
	}
}

// TestCSRFMiddleware_UnsafeMethod は状態変更メソッドの検証結果を確認する。
func TestCSRFMiddleware_UnsafeMethod(t *testing.T) {
	tests := []struct {
		name       string
		cookie     string
		header     string
		wantStatus int
	}{
		{"一致", "token-123", "token-123", http.StatusOK},
		{"Cookieなし", "", "token-123", http.StatusForbidden},
		{"ヘッダーなし", "token-123", "", http.StatusForbidden},
		{"不一致", "token-123", "token-456", http.StatusForbidden},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler := NewCSRFMiddleware(CSRFConfig{})(okHandler())

			req := httptest.NewRequest(http.MethodPost, "/api/posts", nil)
			if tt.cookie != "" {
				req.AddCookie(&http.Cookie{Name: csrfCookieName, Value: tt.cookie})
			}
			if tt.header != "" {
				req.Header.Set(csrfHeaderName, tt.header)
			}
			w := httptest.NewRecorder()
			handler.ServeHTTP(w, req)

			if w.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d", w.Code, tt.wantStatus)
			}
			if tt.wantStatus == http.StatusForbidden {
				var body ErrorResponseBody
				if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
					t.Fatalf("failed to decode body: %v", err)
				}
				if body.Code != "CSRF_FAILED" {
					t.Errorf("code = %q, want CSRF_FAILED", body.Code)
				}
			}
		})
	}
}

// TestCSRFTokenHandler は既存トークンの再利用と新規発行を検証する。
func TestCSRFTokenHandler(t *testing.T) {
	handler := NewCSRFTokenHandler(CSRFConfig{CookieSecure: true})

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/csrf-token", nil))
	var body struct {
		Token string `json:"token"`
	}
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode: %v", err)
	}
	c := findCookie(w.Result(), csrfCookieName)
	if c == nil || c.Value != body.Token || !c.Secure {
		t.Fatalf("cookie %+v does not match token %q", c, body.Token)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/csrf-token", nil)
	req.AddCookie(&http.Cookie{Name: csrfCookieName, Value: "existing"})
	w = httptest.NewRecorder()
	handler.ServeHTTP(w, req)
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode: %v", err)
	}
	if body.Token != "existing" {
		t.Errorf("token = %q, want existing", body.Token)
	}
	if findCookie(w.Result(), csrfCookieName) != nil {
		t.Error("should not reissue cookie when one exists")
	}
}

// Package middleware はHTTPミドルウェアを提供する。
package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/hitoshi/bitmeme/internal/model"
)

// SessionCookieName はセッションIDを保持するCookieの名前。
const SessionCookieName = "session_id"

type contextKey string

var (
	accountIDContextKey     = contextKey("account_id")
	accountHolderContextKey = contextKey("account_holder")
)

// accountHolder は外側のミドルウェアへ認証済みアカウントIDを伝える。
type accountHolder struct {
	accountID string
}

func withAccountHolder(ctx context.Context, h *accountHolder) context.Context {
	return context.WithValue(ctx, accountHolderContextKey, h)
}

// SessionFinder はセッション検索に必要な操作。
type SessionFinder interface {
	FindByID(ctx context.Context, id string) (*model.Session, error)
}

// NewSessionMiddleware はCookieのセッションを検証し、
// アカウントIDをリクエストコンテキストに注入するミドルウェアを返す。
// 未認証リクエストには401 UNAUTHENTICATED、セッションストアの障害には500を返す。
func NewSessionMiddleware(sessionFinder SessionFinder) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			accountID, ok, err := resolveSession(r, sessionFinder)
			if err != nil {
				slog.Error("failed to find session",
					slog.String("error", err.Error()),
				)
				WriteInternalServerError(w)
				return
			}
			if !ok {
				WriteErrorResponse(w, http.StatusUnauthorized, model.NewUnauthenticatedError())
				return
			}
			next.ServeHTTP(w, r.WithContext(ContextWithAccountID(r.Context(), accountID)))
		})
	}
}

// resolveSession はCookieのセッションからアカウントIDを解決する。
// セッションが無い・期限切れの場合は ok=false、ストアの障害は err で返す。
func resolveSession(r *http.Request, sessionFinder SessionFinder) (string, bool, error) {
	cookie, err := r.Cookie(SessionCookieName)
	if err != nil || cookie.Value == "" {
		return "", false, nil
	}

	session, err := sessionFinder.FindByID(r.Context(), cookie.Value)
	if err != nil {
		return "", false, err
	}
	if session == nil || !session.ExpiresAt.After(time.Now()) {
		return "", false, nil
	}
	return session.AccountID, true, nil
}

// AccountIDFromContext はリクエストコンテキストから認証済みアカウントIDを取得する。
func AccountIDFromContext(ctx context.Context) (string, bool) {
	accountID, ok := ctx.Value(accountIDContextKey).(string)
	if !ok || accountID == "" {
		return "", false
	}
	return accountID, true
}

// ContextWithAccountID はコンテキストにアカウントIDを注入する。
func ContextWithAccountID(ctx context.Context, accountID string) context.Context {
	if h, ok := ctx.Value(accountHolderContextKey).(*accountHolder); ok {
		h.accountID = accountID
	}
	return context.WithValue(ctx, accountIDContextKey, accountID)
}

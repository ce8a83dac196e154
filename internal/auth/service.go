// Package auth はログイン・ログアウトとセッション管理を提供する。
package auth

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/hitoshi/bitmeme/internal/model"
	"github.com/hitoshi/bitmeme/internal/repository"
)

// sessionIDBytes はセッションIDの乱数バイト数。hex化すると64文字になる。
const sessionIDBytes = 32

// defaultSessionMaxAge はSessionMaxAge未指定時のセッション有効期間（秒）。
const defaultSessionMaxAge = 86400

// ErrEmptySessionID はセッションIDが空のままLogoutが呼ばれたことを示す。
var ErrEmptySessionID = errors.New("session ID is required")

// CredentialVerifier はメールアドレスとパスワードの検証インターフェース。
// 判定は 存在 → パスワード → 確認済み の順で、それぞれ異なる APIError を返す。
type CredentialVerifier interface {
	VerifyCredentials(ctx context.Context, email, password string) (*model.Account, error)
}

// ServiceConfig は認証サービスの設定。
type ServiceConfig struct {
	SessionMaxAge int // セッション有効期間（秒）。0以下なら1日
}

// Service はパスワード認証とサーバー側セッションを扱う。
type Service struct {
	verifier    CredentialVerifier
	accountRepo repository.AccountRepository
	sessionRepo repository.SessionRepository
	lifetime    time.Duration
	now         func() time.Time
}

// NewService はServiceを生成する。
func NewService(
	verifier CredentialVerifier,
	accountRepo repository.AccountRepository,
	sessionRepo repository.SessionRepository,
	config ServiceConfig,
) *Service {
	maxAge := config.SessionMaxAge
	if maxAge <= 0 {
		maxAge = defaultSessionMaxAge
	}
	return &Service{
		verifier:    verifier,
		accountRepo: accountRepo,
		sessionRepo: sessionRepo,
		lifetime:    time.Duration(maxAge) * time.Second,
		now:         time.Now,
	}
}

// Login は認証情報を検証し、新しいセッションを発行する。
// 認証エラー（ACCOUNT_NOT_FOUND・BAD_PASSWORD・UNCONFIRMED）はそのまま返す。
func (s *Service) Login(ctx context.Context, email, password string) (*model.Session, *model.Account, error) {
	account, err := s.verifier.VerifyCredentials(ctx, email, password)
	if err != nil {
		return nil, nil, err
	}

	id, err := newSessionID()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to generate session ID: %w", err)
	}

	issuedAt := s.now()
	session := &model.Session{
		ID:        id,
		AccountID: account.ID,
		ExpiresAt: issuedAt.Add(s.lifetime),
		CreatedAt: issuedAt,
	}
	if err := s.sessionRepo.Create(ctx, session); err != nil {
		return nil, nil, fmt.Errorf("failed to create session: %w", err)
	}

	slog.Info("account logged in",
		slog.String("account_id", account.ID),
		slog.Time("expires_at", session.ExpiresAt),
	)
	return session, account, nil
}

// Logout はセッションを破棄する。存在しないセッションの破棄は成功扱い。
func (s *Service) Logout(ctx context.Context, sessionID string) error {
	if sessionID == "" {
		return ErrEmptySessionID
	}

	if err := s.sessionRepo.DeleteByID(ctx, sessionID); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}

	slog.Info("account logged out")
	return nil
}

// GetCurrentAccount はセッションに紐づくアカウントを返す。
// セッションが無い・期限切れ・アカウントが消えている場合は UNAUTHENTICATED。
func (s *Service) GetCurrentAccount(ctx context.Context, sessionID string) (*model.Account, error) {
	if sessionID == "" {
		return nil, model.NewUnauthenticatedError()
	}

	session, err := s.sessionRepo.FindByID(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to find session: %w", err)
	}
	if session == nil || !session.ExpiresAt.After(s.now()) {
		return nil, model.NewUnauthenticatedError()
	}

	account, err := s.accountRepo.FindByID(ctx, session.AccountID)
	if err != nil {
		return nil, fmt.Errorf("failed to find account: %w", err)
	}
	if account == nil {
		return nil, model.NewUnauthenticatedError()
	}

	return account, nil
}

func newSessionID() (string, error) {
	b := make([]byte, sessionIDBytes)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

// Package account はアカウント登録・メールアドレス確認・認証情報の検証を提供する。
package account

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/hitoshi/bitmeme/internal/mail"
	"github.com/hitoshi/bitmeme/internal/model"
	"github.com/hitoshi/bitmeme/internal/repository"
)

// TokenIssuer は確認トークンの発行・検証インターフェース。
type TokenIssuer interface {
	Issue(identity string) (string, error)
	Verify(token string, maxAge time.Duration) (string, error)
}

// ServiceConfig はアカウントサービスの設定。
type ServiceConfig struct {
	BaseURL          string        // 確認リンクの組み立てに使う公開URL
	ActivationMaxAge time.Duration // 確認トークンの有効期間
	BcryptCost       int           // 0 の場合は bcrypt.DefaultCost
}

// Service はアカウントのライフサイクル（登録 → 確認待ち → 有効）を管理する。
type Service struct {
	accountRepo repository.AccountRepository
	tokens      TokenIssuer
	mailer      mail.Sender
	config      ServiceConfig
	now         func() time.Time
}

// NewService はServiceを生成する。
func NewService(
	accountRepo repository.AccountRepository,
	tokens TokenIssuer,
	mailer mail.Sender,
	config ServiceConfig,
) *Service {
	if config.ActivationMaxAge <= 0 {
		config.ActivationMaxAge = time.Hour
	}
	return &Service{
		accountRepo: accountRepo,
		tokens:      tokens,
		mailer:      mailer,
		config:      config,
		now:         time.Now,
	}
}

// CreateAccount は未確認のアカウントを作成する。
// 重複は DUPLICATE_USERNAME / DUPLICATE_EMAIL として返す。一意性はDBの一意制約で保証する。
func (s *Service) CreateAccount(ctx context.Context, username, email, password string) (*model.Account, error) {
	username = strings.TrimSpace(username)
	if err := ValidateUsername(username); err != nil {
		return nil, err
	}
	email, err := NormalizeEmail(email)
	if err != nil {
		return nil, err
	}
	if err := ValidatePassword(password); err != nil {
		return nil, err
	}

	hash, err := hashPassword(password, s.config.BcryptCost)
	if err != nil {
		return nil, fmt.Errorf("パスワードのハッシュ化に失敗しました: %w", err)
	}

	account := &model.Account{
		ID:           uuid.New().String(),
		Username:     username,
		Email:        email,
		PasswordHash: hash,
		Confirmed:    false,
		JoinedAt:     s.now(),
	}
	if err := s.accountRepo.Create(ctx, account); err != nil {
		var apiErr *model.APIError
		if errors.As(err, &apiErr) {
			return nil, apiErr
		}
		return nil, fmt.Errorf("アカウントの作成に失敗しました: %w", err)
	}

	slog.Info("account registered",
		slog.String("account_id", account.ID),
		slog.String("username", account.Username),
	)
	return account, nil
}

// Register はアカウントを作成し、確認メールを送信する。
func (s *Service) Register(ctx context.Context, username, email, password string) (*model.Account, error) {
	account, err := s.CreateAccount(ctx, username, email, password)
	if err != nil {
		return nil, err
	}
	if err := s.sendActivation(ctx, account.Email); err != nil {
		slog.Error("activation mail failed",
			slog.String("account_id", account.ID),
			slog.String("error", err.Error()),
		)
		return nil, err
	}
	return account, nil
}

// ResendActivation は未確認アカウントに確認メールを再送する。確認済みの場合は何もしない。
func (s *Service) ResendActivation(ctx context.Context, email string) error {
	email, err := NormalizeEmail(email)
	if err != nil {
		return err
	}
	account, err := s.accountRepo.FindByEmail(ctx, email)
	if err != nil {
		return fmt.Errorf("アカウントの取得に失敗しました: %w", err)
	}
	if account == nil {
		return model.NewAccountNotFoundError()
	}
	if account.Confirmed {
		return nil
	}
	return s.sendActivation(ctx, account.Email)
}

func (s *Service) sendActivation(ctx context.Context, email string) error {
	tok, err := s.tokens.Issue(email)
	if err != nil {
		return fmt.Errorf("確認トークンの発行に失敗しました: %w", err)
	}
	if err := s.mailer.SendActivationMessage(ctx, email, s.activationURL(tok)); err != nil {
		return fmt.Errorf("確認メールの送信に失敗しました: %w", err)
	}
	return nil
}

func (s *Service) activationURL(tok string) string {
	return strings.TrimRight(s.config.BaseURL, "/") + "/api/accounts/activate/" + url.PathEscape(tok)
}

// ConfirmAccount はユーザー名またはメールアドレスで指定したアカウントを確認済みにする。
// 既に確認済みの場合は何もしない。
func (s *Service) ConfirmAccount(ctx context.Context, usernameOrEmail string) (*model.Account, error) {
	account, err := s.findByUsernameOrEmail(ctx, usernameOrEmail)
	if err != nil {
		return nil, err
	}
	if account.Confirmed {
		return account, nil
	}

	now := s.now()
	updated, err := s.accountRepo.Confirm(ctx, account.ID, now)
	if err != nil {
		return nil, fmt.Errorf("アカウントの確認に失敗しました: %w", err)
	}
	if updated {
		account.Confirmed = true
		account.ConfirmedOn = &now
		slog.Info("account confirmed", slog.String("account_id", account.ID))
		return account, nil
	}

	// 並行して確認された場合は最新の状態を返す
	latest, err := s.accountRepo.FindByID(ctx, account.ID)
	if err != nil {
		return nil, fmt.Errorf("アカウントの取得に失敗しました: %w", err)
	}
	if latest == nil {
		return nil, model.NewAccountNotFoundError()
	}
	return latest, nil
}

func (s *Service) findByUsernameOrEmail(ctx context.Context, usernameOrEmail string) (*model.Account, error) {
	key := strings.TrimSpace(usernameOrEmail)
	if key == "" {
		return nil, model.NewAccountNotFoundError()
	}
	account, err := s.accountRepo.FindByEmail(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("アカウントの取得に失敗しました: %w", err)
	}
	if account == nil && !strings.Contains(key, "@") {
		account, err = s.accountRepo.FindByUsername(ctx, key)
		if err != nil {
			return nil, fmt.Errorf("アカウントの取得に失敗しました: %w", err)
		}
	}
	if account == nil {
		return nil, model.NewAccountNotFoundError()
	}
	return account, nil
}

// Activate は確認トークンを検証し、対応するアカウントを確認済みにする。
func (s *Service) Activate(ctx context.Context, tok string) (*model.Account, error) {
	email, err := s.tokens.Verify(tok, s.config.ActivationMaxAge)
	if err != nil {
		slog.Info("activation token rejected", slog.String("reason", err.Error()))
		return nil, model.NewInvalidOrExpiredTokenError()
	}
	return s.ConfirmAccount(ctx, email)
}

// VerifyCredentials はメールアドレスとパスワードを検証する。
// 判定順序は 存在 → パスワード → 確認済み で、それぞれ異なるエラーコードを返す。
func (s *Service) VerifyCredentials(ctx context.Context, email, password string) (*model.Account, error) {
	account, err := s.accountRepo.FindByEmail(ctx, strings.TrimSpace(email))
	if err != nil {
		return nil, fmt.Errorf("アカウントの取得に失敗しました: %w", err)
	}
	if account == nil {
		return nil, model.NewAccountNotFoundError()
	}

	ok, err := passwordMatches(account.PasswordHash, password)
	if err != nil {
		return nil, fmt.Errorf("パスワードの検証に失敗しました: %w", err)
	}
	if !ok {
		return nil, model.NewBadPasswordError()
	}
	if !account.Confirmed {
		return nil, model.NewUnconfirmedError()
	}
	return account, nil
}

// FindByUsername はユーザー名でアカウントを取得する。見つからない場合は ACCOUNT_NOT_FOUND を返す。
func (s *Service) FindByUsername(ctx context.Context, username string) (*model.Account, error) {
	account, err := s.accountRepo.FindByUsername(ctx, strings.TrimSpace(username))
	if err != nil {
		return nil, fmt.Errorf("アカウントの取得に失敗しました: %w", err)
	}
	if account == nil {
		return nil, model.NewAccountNotFoundError()
	}
	return account, nil
}

// FindByID はIDでアカウントを取得する。見つからない場合は ACCOUNT_NOT_FOUND を返す。
func (s *Service) FindByID(ctx context.Context, id string) (*model.Account, error) {
	account, err := s.accountRepo.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("アカウントの取得に失敗しました: %w", err)
	}
	if account == nil {
		return nil, model.NewAccountNotFoundError()
	}
	return account, nil
}

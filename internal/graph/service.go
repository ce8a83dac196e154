// Package graph はアカウント間のフォロー関係を管理する。
package graph

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/hitoshi/bitmeme/internal/model"
	"github.com/hitoshi/bitmeme/internal/repository"
)

// Service はフォロー関係のサービス層。
// フォロー関係の一意性は (from_id, to_id) の主キーで保証する。
type Service struct {
	accountRepo repository.AccountRepository
	relRepo     repository.RelationshipRepository
	now         func() time.Time
}

// NewService はServiceの新しいインスタンスを生成する。
func NewService(accountRepo repository.AccountRepository, relRepo repository.RelationshipRepository) *Service {
	return &Service{
		accountRepo: accountRepo,
		relRepo:     relRepo,
		now:         time.Now,
	}
}

// Follow は fromID が toID をフォローする。
func (s *Service) Follow(ctx context.Context, fromID, toID string) error {
	if err := s.ensureAccounts(ctx, fromID, toID); err != nil {
		return err
	}
	if fromID == toID {
		return model.NewSelfFollowError()
	}

	err := s.relRepo.Create(ctx, &model.Relationship{
		FromID:    fromID,
		ToID:      toID,
		CreatedAt: s.now(),
	})
	if err != nil {
		var apiErr *model.APIError
		if errors.As(err, &apiErr) {
			return apiErr
		}
		return fmt.Errorf("フォローに失敗しました: %w", err)
	}

	slog.Info("followed",
		slog.String("from_id", fromID),
		slog.String("to_id", toID),
	)
	return nil
}

// Unfollow は fromID による toID のフォローを解除する。
// フォローしていない場合は NOT_FOLLOWING を返し、関係は変更しない。
func (s *Service) Unfollow(ctx context.Context, fromID, toID string) error {
	if err := s.ensureAccounts(ctx, fromID, toID); err != nil {
		return err
	}

	deleted, err := s.relRepo.Delete(ctx, fromID, toID)
	if err != nil {
		return fmt.Errorf("フォロー解除に失敗しました: %w", err)
	}
	if !deleted {
		return model.NewNotFollowingError()
	}

	slog.Info("unfollowed",
		slog.String("from_id", fromID),
		slog.String("to_id", toID),
	)
	return nil
}

// Following は accountID がフォローしているアカウントIDを返す。
func (s *Service) Following(ctx context.Context, accountID string) ([]string, error) {
	if err := s.ensureAccounts(ctx, accountID); err != nil {
		return nil, err
	}
	ids, err := s.relRepo.ListFollowing(ctx, accountID)
	if err != nil {
		return nil, fmt.Errorf("フォロー一覧の取得に失敗しました: %w", err)
	}
	return ids, nil
}

// Followers は accountID をフォローしているアカウントIDを返す。
func (s *Service) Followers(ctx context.Context, accountID string) ([]string, error) {
	if err := s.ensureAccounts(ctx, accountID); err != nil {
		return nil, err
	}
	ids, err := s.relRepo.ListFollowers(ctx, accountID)
	if err != nil {
		return nil, fmt.Errorf("フォロワー一覧の取得に失敗しました: %w", err)
	}
	return ids, nil
}

// FollowingAccounts は accountID がフォローしているアカウントを返す。
func (s *Service) FollowingAccounts(ctx context.Context, accountID string) ([]*model.Account, error) {
	ids, err := s.Following(ctx, accountID)
	if err != nil {
		return nil, err
	}
	return s.accounts(ctx, ids)
}

// FollowerAccounts は accountID をフォローしているアカウントを返す。
func (s *Service) FollowerAccounts(ctx context.Context, accountID string) ([]*model.Account, error) {
	ids, err := s.Followers(ctx, accountID)
	if err != nil {
		return nil, err
	}
	return s.accounts(ctx, ids)
}

func (s *Service) accounts(ctx context.Context, ids []string) ([]*model.Account, error) {
	accounts, err := s.accountRepo.ListByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("アカウント一覧の取得に失敗しました: %w", err)
	}
	return accounts, nil
}

// IsFollowing は fromID が toID をフォローしているかを返す。
func (s *Service) IsFollowing(ctx context.Context, fromID, toID string) (bool, error) {
	ok, err := s.relRepo.Exists(ctx, fromID, toID)
	if err != nil {
		return false, fmt.Errorf("フォロー関係の確認に失敗しました: %w", err)
	}
	return ok, nil
}

// Counts はフォロー数とフォロワー数を返す。
func (s *Service) Counts(ctx context.Context, accountID string) (following, followers int, err error) {
	following, followers, err = s.relRepo.Counts(ctx, accountID)
	if err != nil {
		return 0, 0, fmt.Errorf("フォロー数の取得に失敗しました: %w", err)
	}
	return following, followers, nil
}

// ensureAccounts は指定された全アカウントが存在することを確認する。
func (s *Service) ensureAccounts(ctx context.Context, ids ...string) error {
	for _, id := range ids {
		a, err := s.accountRepo.FindByID(ctx, id)
		if err != nil {
			return fmt.Errorf("アカウントの取得に失敗しました: %w", err)
		}
		if a == nil {
			return model.NewAccountNotFoundError()
		}
	}
	return nil
}

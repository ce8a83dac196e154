// Package repository はデータ永続化のインターフェースを定義する。
package repository

import (
	"context"
	"time"

	"github.com/hitoshi/bitmeme/internal/model"
)

// AccountRepository はアカウントデータの永続化インターフェース。
type AccountRepository interface {
	// FindByID は指定IDのアカウントを取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.Account, error)

	// FindByEmail はメールアドレス（大文字小文字を区別しない）でアカウントを検索する。
	// 見つからない場合はnilを返す。
	FindByEmail(ctx context.Context, email string) (*model.Account, error)

	// FindByUsername はユーザー名（大文字小文字を区別しない）でアカウントを検索する。
	// 見つからない場合はnilを返す。
	FindByUsername(ctx context.Context, username string) (*model.Account, error)

	// ListByIDs は指定IDのアカウントをユーザー名順で返す。存在しないIDは無視する。
	ListByIDs(ctx context.Context, ids []string) ([]*model.Account, error)

	// Create はアカウントを作成する。
	// ユーザー名・メールアドレスの一意制約違反は DUPLICATE_USERNAME / DUPLICATE_EMAIL の APIError として返す。
	Create(ctx context.Context, account *model.Account) error

	// Confirm は未確認のアカウントを確認済みにする。
	// 既に確認済みの場合は何もせず false を返す。
	Confirm(ctx context.Context, id string, at time.Time) (bool, error)
}

// RelationshipRepository はフォロー関係の永続化インターフェース。
type RelationshipRepository interface {
	// Create はフォロー関係を作成する。
	// (from, to) の一意制約違反は ALREADY_FOLLOWING の APIError として返す。
	Create(ctx context.Context, rel *model.Relationship) error

	// Delete はフォロー関係を削除する。削除した行がない場合は false を返す。
	Delete(ctx context.Context, fromID, toID string) (bool, error)

	// Exists は fromID が toID をフォローしているかを返す。
	Exists(ctx context.Context, fromID, toID string) (bool, error)

	// ListFollowing は accountID がフォローしているアカウントIDをフォロー日時順で返す。
	ListFollowing(ctx context.Context, accountID string) ([]string, error)

	// ListFollowers は accountID をフォローしているアカウントIDをフォロー日時順で返す。
	ListFollowers(ctx context.Context, accountID string) ([]string, error)

	// Counts はフォロー数とフォロワー数を返す。
	Counts(ctx context.Context, accountID string) (following int, followers int, err error)
}

// PostRepository は投稿データの永続化インターフェース。
type PostRepository interface {
	// FindByID は指定IDの投稿を取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.Post, error)

	// Create は投稿を作成する。
	Create(ctx context.Context, post *model.Post) error

	// Delete は投稿を削除する。コメントはCASCADE削除される。
	Delete(ctx context.Context, id string) error

	// ListByOwner は指定アカウントの投稿を新しい順に最大limit件返す。
	ListByOwner(ctx context.Context, ownerID string, limit int) ([]*model.Post, error)

	// ListByOwners は各アカウントの最新投稿を最大 perOwner 件ずつ取得し、
	// アカウントごとの新しい順のストリームとして返す。
	ListByOwners(ctx context.Context, ownerIDs []string, perOwner int) ([][]*model.Post, error)
}

// CommentRepository はコメントデータの永続化インターフェース。
type CommentRepository interface {
	// FindByID は指定IDのコメントを取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.Comment, error)

	// Create はコメントを作成する。
	Create(ctx context.Context, comment *model.Comment) error

	// Delete はコメントを削除する。
	Delete(ctx context.Context, id string) error

	// ListByPost は投稿のコメントを古い順に最大limit件返す。
	ListByPost(ctx context.Context, postID string, limit int) ([]*model.Comment, error)
}

// SessionRepository はセッションデータの永続化インターフェース。
type SessionRepository interface {
	// Create はセッションを作成する。
	Create(ctx context.Context, session *model.Session) error
	// FindByID は指定IDのセッションを取得する。期限切れの場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.Session, error)
	// DeleteByID は指定IDのセッションを削除する。
	DeleteByID(ctx context.Context, id string) error
	// DeleteByAccountID は指定アカウントの全セッションを削除する。
	DeleteByAccountID(ctx context.Context, accountID string) error
}

// Package feed はフォロー中のアカウントと自分自身の投稿を時系列に並べたフィードを組み立てる。
package feed

import (
	"context"
	"fmt"

	"github.com/hitoshi/bitmeme/internal/model"
	"github.com/hitoshi/bitmeme/internal/repository"
)

const (
	// DefaultLimit は limit 未指定時および範囲外の場合に使う件数。
	DefaultLimit = 100
	// MaxLimit は1回に返す最大件数。
	MaxLimit = 100
)

// FollowingLister はフォロー中のアカウントIDを返す。
type FollowingLister interface {
	Following(ctx context.Context, accountID string) ([]string, error)
}

// Service はフィード・投稿詳細・コメント一覧の読み取りを提供する。
type Service struct {
	graph       FollowingLister
	postRepo    repository.PostRepository
	commentRepo repository.CommentRepository
}

// NewService はServiceの新しいインスタンスを生成する。
func NewService(
	graph FollowingLister,
	postRepo repository.PostRepository,
	commentRepo repository.CommentRepository,
) *Service {
	return &Service{
		graph:       graph,
		postRepo:    postRepo,
		commentRepo: commentRepo,
	}
}

// NormalizeLimit は limit を 1〜MaxLimit の範囲に収める。範囲外は DefaultLimit とする。
func NormalizeLimit(limit int) int {
	if limit < 1 || limit > MaxLimit {
		return DefaultLimit
	}
	return limit
}

// FeedFor は viewer がフォローしているアカウントと viewer 自身の投稿を新しい順に返す。
// 各著者の最新 limit 件だけを取得してマージするため、投稿テーブル全体は走査しない。
func (s *Service) FeedFor(ctx context.Context, viewerID string, limit int) ([]*model.Post, error) {
	limit = NormalizeLimit(limit)

	following, err := s.graph.Following(ctx, viewerID)
	if err != nil {
		return nil, fmt.Errorf("フォロー一覧の取得に失敗しました: %w", err)
	}
	authors := authorSet(viewerID, following)

	streams, err := s.postRepo.ListByOwners(ctx, authors, limit)
	if err != nil {
		return nil, fmt.Errorf("フィードの取得に失敗しました: %w", err)
	}
	return mergeNewestFirst(streams, limit), nil
}

// authorSet は viewer とフォロー先の重複を除いた著者IDの集合を返す。
func authorSet(viewerID string, following []string) []string {
	seen := make(map[string]struct{}, len(following)+1)
	authors := make([]string, 0, len(following)+1)
	for _, id := range append([]string{viewerID}, following...) {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		authors = append(authors, id)
	}
	return authors
}

// PostsFor は指定アカウントの投稿を新しい順に返す。
func (s *Service) PostsFor(ctx context.Context, accountID string, limit int) ([]*model.Post, error) {
	posts, err := s.postRepo.ListByOwner(ctx, accountID, NormalizeLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("投稿一覧の取得に失敗しました: %w", err)
	}
	return posts, nil
}

// PostDetail は投稿を1件返す。
func (s *Service) PostDetail(ctx context.Context, postID string) (*model.Post, error) {
	post, err := s.postRepo.FindByID(ctx, postID)
	if err != nil {
		return nil, fmt.Errorf("投稿の取得に失敗しました: %w", err)
	}
	if post == nil {
		return nil, model.NewPostNotFoundError(postID)
	}
	return post, nil
}

// CommentsFor は投稿のコメントを古い順に返す。
func (s *Service) CommentsFor(ctx context.Context, postID string, limit int) ([]*model.Comment, error) {
	if _, err := s.PostDetail(ctx, postID); err != nil {
		return nil, err
	}
	comments, err := s.commentRepo.ListByPost(ctx, postID, NormalizeLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("コメント一覧の取得に失敗しました: %w", err)
	}
	return comments, nil
}

// Package content は投稿とコメントの作成・削除を提供する。
package content

import (
	"context"
	"fmt"
	"log/slog"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/hitoshi/bitmeme/internal/model"
	"github.com/hitoshi/bitmeme/internal/repository"
)

// MaxContentLength は投稿キャプションとコメントの最大文字数。
const MaxContentLength = 250

// Sanitizer はユーザー入力テキストからマークアップを除去する。
type Sanitizer interface {
	Sanitize(raw string) string
}

// MediaRemover は保存済み画像を削除する。
type MediaRemover interface {
	Delete(ctx context.Context, ref string) error
}

// Service は投稿・コメントのサービス層。
type Service struct {
	postRepo    repository.PostRepository
	commentRepo repository.CommentRepository
	sanitizer   Sanitizer
	media       MediaRemover
	now         func() time.Time
}

// NewService はServiceの新しいインスタンスを生成する。
// media が nil の場合、投稿削除時に画像は削除しない。
func NewService(
	postRepo repository.PostRepository,
	commentRepo repository.CommentRepository,
	sanitizer Sanitizer,
	media MediaRemover,
) *Service {
	return &Service{
		postRepo:    postRepo,
		commentRepo: commentRepo,
		sanitizer:   sanitizer,
		media:       media,
		now:         time.Now,
	}
}

// normalizeContent はサニタイズ後のテキストが1〜250文字であることを検証する。
func (s *Service) normalizeContent(raw string) (string, error) {
	text := s.sanitizer.Sanitize(raw)
	n := utf8.RuneCountInString(text)
	if n == 0 {
		return "", model.NewValidationError("content", "必須です")
	}
	if n > MaxContentLength {
		return "", model.NewValidationError("content", fmt.Sprintf("%d文字以内で入力してください", MaxContentLength))
	}
	return text, nil
}

// CreatePost は投稿を作成する。imageRef はメディアストレージが返した参照名。
func (s *Service) CreatePost(ctx context.Context, ownerID, content, imageRef string) (*model.Post, error) {
	text, err := s.normalizeContent(content)
	if err != nil {
		return nil, err
	}
	if imageRef == "" {
		return nil, model.NewValidationError("image", "必須です")
	}

	post := &model.Post{
		ID:        uuid.New().String(),
		OwnerID:   ownerID,
		Content:   text,
		ImageRef:  imageRef,
		CreatedAt: s.now(),
	}
	if err := s.postRepo.Create(ctx, post); err != nil {
		return nil, fmt.Errorf("投稿の作成に失敗しました: %w", err)
	}

	slog.Info("post created",
		slog.String("post_id", post.ID),
		slog.String("owner_id", ownerID),
	)
	return post, nil
}

// CreateComment は投稿にコメントを追加する。
func (s *Service) CreateComment(ctx context.Context, ownerID, postID, content string) (*model.Comment, error) {
	text, err := s.normalizeContent(content)
	if err != nil {
		return nil, err
	}

	post, err := s.postRepo.FindByID(ctx, postID)
	if err != nil {
		return nil, fmt.Errorf("投稿の取得に失敗しました: %w", err)
	}
	if post == nil {
		return nil, model.NewPostNotFoundError(postID)
	}

	comment := &model.Comment{
		ID:        uuid.New().String(),
		OwnerID:   ownerID,
		PostID:    postID,
		Content:   text,
		CreatedAt: s.now(),
	}
	if err := s.commentRepo.Create(ctx, comment); err != nil {
		return nil, fmt.Errorf("コメントの作成に失敗しました: %w", err)
	}
	return comment, nil
}

// DeleteComment はコメントを削除する。
// 削除できるのはコメントの投稿者と、コメントが付いた投稿の所有者のみ。
func (s *Service) DeleteComment(ctx context.Context, commentID, requesterID string) error {
	comment, err := s.commentRepo.FindByID(ctx, commentID)
	if err != nil {
		return fmt.Errorf("コメントの取得に失敗しました: %w", err)
	}
	if comment == nil {
		return model.NewCommentNotFoundError(commentID)
	}

	if comment.OwnerID != requesterID {
		post, err := s.postRepo.FindByID(ctx, comment.PostID)
		if err != nil {
			return fmt.Errorf("投稿の取得に失敗しました: %w", err)
		}
		if post == nil || post.OwnerID != requesterID {
			return model.NewForbiddenError()
		}
	}

	if err := s.commentRepo.Delete(ctx, commentID); err != nil {
		return fmt.Errorf("コメントの削除に失敗しました: %w", err)
	}

	slog.Info("comment deleted",
		slog.String("comment_id", commentID),
		slog.String("requester_id", requesterID),
	)
	return nil
}

// DeletePost は投稿を削除する。削除できるのは投稿の所有者のみ。
// コメントはCASCADE削除され、画像は可能な範囲で削除する。
func (s *Service) DeletePost(ctx context.Context, postID, requesterID string) error {
	post, err := s.postRepo.FindByID(ctx, postID)
	if err != nil {
		return fmt.Errorf("投稿の取得に失敗しました: %w", err)
	}
	if post == nil {
		return model.NewPostNotFoundError(postID)
	}
	if post.OwnerID != requesterID {
		return model.NewForbiddenError()
	}

	if err := s.postRepo.Delete(ctx, postID); err != nil {
		return fmt.Errorf("投稿の削除に失敗しました: %w", err)
	}

	if s.media != nil {
		if err := s.media.Delete(ctx, post.ImageRef); err != nil {
			slog.Warn("failed to delete media of removed post",
				slog.String("post_id", postID),
				slog.String("image_ref", post.ImageRef),
				slog.String("error", err.Error()),
			)
		}
	}

	slog.Info("post deleted", slog.String("post_id", postID))
	return nil
}

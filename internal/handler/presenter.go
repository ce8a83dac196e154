package handler

import (
	"context"
	"fmt"
	"time"

	"github.com/hitoshi/bitmeme/internal/model"
)

// publicAccountResponse は他のアカウントにも公開するアカウント情報。
type publicAccountResponse struct {
	ID       string    `json:"id"`
	Username string    `json:"username"`
	JoinedAt time.Time `json:"joined_at"`
}

// ownAccountResponse は本人にのみ返すアカウント情報。
type ownAccountResponse struct {
	ID          string     `json:"id"`
	Username    string     `json:"username"`
	Email       string     `json:"email"`
	Confirmed   bool       `json:"confirmed"`
	ConfirmedOn *time.Time `json:"confirmed_on,omitempty"`
	JoinedAt    time.Time  `json:"joined_at"`
}

type authorResponse struct {
	ID       string `json:"id"`
	Username string `json:"username"`
}

type postResponse struct {
	ID        string         `json:"id"`
	Author    authorResponse `json:"author"`
	Content   string         `json:"content"`
	ImageURL  string         `json:"image_url"`
	CreatedAt time.Time      `json:"created_at"`
}

type commentResponse struct {
	ID        string         `json:"id"`
	PostID    string         `json:"post_id"`
	Author    authorResponse `json:"author"`
	Content   string         `json:"content"`
	CreatedAt time.Time      `json:"created_at"`
}

func toPublicAccount(a *model.Account) publicAccountResponse {
	return publicAccountResponse{ID: a.ID, Username: a.Username, JoinedAt: a.JoinedAt}
}

func toPublicAccounts(accounts []*model.Account) []publicAccountResponse {
	out := make([]publicAccountResponse, len(accounts))
	for i, a := range accounts {
		out[i] = toPublicAccount(a)
	}
	return out
}

func toOwnAccount(a *model.Account) ownAccountResponse {
	return ownAccountResponse{
		ID:          a.ID,
		Username:    a.Username,
		Email:       a.Email,
		Confirmed:   a.Confirmed,
		ConfirmedOn: a.ConfirmedOn,
		JoinedAt:    a.JoinedAt,
	}
}

// mediaURL は画像参照名を配信URLに変換する。
func mediaURL(ref string) string {
	return "/media/" + ref
}

// AccountLister は著者情報の一括取得に必要な操作。
type AccountLister interface {
	ListByIDs(ctx context.Context, ids []string) ([]*model.Account, error)
}

// Presenter は投稿・コメントに著者のユーザー名を結合してレスポンス型に変換する。
type Presenter struct {
	accounts AccountLister
}

// NewPresenter はPresenterを生成する。
func NewPresenter(accounts AccountLister) *Presenter {
	return &Presenter{accounts: accounts}
}

// authors は著者IDからauthorResponseへの対応表を1回のクエリで構築する。
func (p *Presenter) authors(ctx context.Context, ids []string) (map[string]authorResponse, error) {
	unique := make([]string, 0, len(ids))
	seen := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		unique = append(unique, id)
	}

	byID := make(map[string]authorResponse, len(unique))
	if len(unique) == 0 {
		return byID, nil
	}
	accounts, err := p.accounts.ListByIDs(ctx, unique)
	if err != nil {
		return nil, fmt.Errorf("著者情報の取得に失敗しました: %w", err)
	}
	for _, a := range accounts {
		byID[a.ID] = authorResponse{ID: a.ID, Username: a.Username}
	}
	return byID, nil
}

func authorOf(byID map[string]authorResponse, id string) authorResponse {
	if a, ok := byID[id]; ok {
		return a
	}
	return authorResponse{ID: id}
}

// Posts は投稿をレスポンス型に変換する。順序は保持する。
func (p *Presenter) Posts(ctx context.Context, posts []*model.Post) ([]postResponse, error) {
	ids := make([]string, len(posts))
	for i, post := range posts {
		ids[i] = post.OwnerID
	}
	byID, err := p.authors(ctx, ids)
	if err != nil {
		return nil, err
	}

	out := make([]postResponse, len(posts))
	for i, post := range posts {
		out[i] = postResponse{
			ID:        post.ID,
			Author:    authorOf(byID, post.OwnerID),
			Content:   post.Content,
			ImageURL:  mediaURL(post.ImageRef),
			CreatedAt: post.CreatedAt,
		}
	}
	return out, nil
}

// Post は投稿1件をレスポンス型に変換する。
func (p *Presenter) Post(ctx context.Context, post *model.Post) (*postResponse, error) {
	out, err := p.Posts(ctx, []*model.Post{post})
	if err != nil {
		return nil, err
	}
	return &out[0], nil
}

// Comments はコメントをレスポンス型に変換する。順序は保持する。
func (p *Presenter) Comments(ctx context.Context, comments []*model.Comment) ([]commentResponse, error) {
	ids := make([]string, len(comments))
	for i, c := range comments {
		ids[i] = c.OwnerID
	}
	byID, err := p.authors(ctx, ids)
	if err != nil {
		return nil, err
	}

	out := make([]commentResponse, len(comments))
	for i, c := range comments {
		out[i] = commentResponse{
			ID:        c.ID,
			PostID:    c.PostID,
			Author:    authorOf(byID, c.OwnerID),
			Content:   c.Content,
			CreatedAt: c.CreatedAt,
		}
	}
	return out, nil
}

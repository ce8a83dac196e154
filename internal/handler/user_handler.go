package handler

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/hitoshi/bitmeme/internal/metrics"
	"github.com/hitoshi/bitmeme/internal/model"
)

// AccountFinder はユーザー名からアカウントを解決する。
type AccountFinder interface {
	FindByUsername(ctx context.Context, username string) (*model.Account, error)
}

// GraphServiceInterface はフォロー関係の操作。
type GraphServiceInterface interface {
	Follow(ctx context.Context, fromID, toID string) error
	Unfollow(ctx context.Context, fromID, toID string) error
	FollowingAccounts(ctx context.Context, accountID string) ([]*model.Account, error)
	FollowerAccounts(ctx context.Context, accountID string) ([]*model.Account, error)
	IsFollowing(ctx context.Context, fromID, toID string) (bool, error)
	Counts(ctx context.Context, accountID string) (following, followers int, err error)
}

// TimelineServiceInterface は投稿の読み出し操作。
type TimelineServiceInterface interface {
	FeedFor(ctx context.Context, viewerID string, limit int) ([]*model.Post, error)
	PostsFor(ctx context.Context, accountID string, limit int) ([]*model.Post, error)
	PostDetail(ctx context.Context, postID string) (*model.Post, error)
	CommentsFor(ctx context.Context, postID string, limit int) ([]*model.Comment, error)
}

// UserHandler はプロフィールとフォロー操作のHTTPハンドラー。
type UserHandler struct {
	accounts  AccountFinder
	graph     GraphServiceInterface
	timeline  TimelineServiceInterface
	presenter *Presenter
	metrics   metrics.MetricsCollector
}

// NewUserHandler はUserHandlerを生成する。
func NewUserHandler(
	accounts AccountFinder,
	graph GraphServiceInterface,
	timeline TimelineServiceInterface,
	presenter *Presenter,
	m metrics.MetricsCollector,
) *UserHandler {
	return &UserHandler{
		accounts:  accounts,
		graph:     graph,
		timeline:  timeline,
		presenter: presenter,
		metrics:   m,
	}
}

type profileResponse struct {
	Account        publicAccountResponse `json:"account"`
	FollowingCount int                   `json:"following_count"`
	FollowersCount int                   `json:"followers_count"`
	IsFollowing    bool                  `json:"is_following"`
	IsSelf         bool                  `json:"is_self"`
}

// target はURLのusernameからアカウントを解決する。失敗時はレスポンスを書き込みnilを返す。
func (h *UserHandler) target(w http.ResponseWriter, r *http.Request) *model.Account {
	account, err := h.accounts.FindByUsername(r.Context(), chi.URLParam(r, "username"))
	if err != nil {
		handleServiceError(w, err)
		return nil
	}
	return account
}

// Profile はプロフィールとフォロー数、閲覧者のフォロー状態を返す。
// GET /api/users/{username}
func (h *UserHandler) Profile(w http.ResponseWriter, r *http.Request) {
	viewerID, ok := requireAccountID(w, r)
	if !ok {
		return
	}
	account := h.target(w, r)
	if account == nil {
		return
	}

	following, followers, err := h.graph.Counts(r.Context(), account.ID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	resp := profileResponse{
		Account:        toPublicAccount(account),
		FollowingCount: following,
		FollowersCount: followers,
		IsSelf:         viewerID == account.ID,
	}
	if !resp.IsSelf {
		resp.IsFollowing, err = h.graph.IsFollowing(r.Context(), viewerID, account.ID)
		if err != nil {
			handleServiceError(w, err)
			return
		}
	}

	writeJSON(w, http.StatusOK, resp)
}

// Posts は指定ユーザーの投稿を新しい順に返す。
// GET /api/users/{username}/posts?limit=
func (h *UserHandler) Posts(w http.ResponseWriter, r *http.Request) {
	if _, ok := requireAccountID(w, r); !ok {
		return
	}
	account := h.target(w, r)
	if account == nil {
		return
	}

	posts, err := h.timeline.PostsFor(r.Context(), account.ID, queryLimit(r))
	if err != nil {
		handleServiceError(w, err)
		return
	}
	resp, err := h.presenter.Posts(r.Context(), posts)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// Followers は指定ユーザーのフォロワー一覧を返す。
// GET /api/users/{username}/followers
func (h *UserHandler) Followers(w http.ResponseWriter, r *http.Request) {
	h.listRelations(w, r, h.graph.FollowerAccounts)
}

// Following は指定ユーザーのフォロー一覧を返す。
// GET /api/users/{username}/following
func (h *UserHandler) Following(w http.ResponseWriter, r *http.Request) {
	h.listRelations(w, r, h.graph.FollowingAccounts)
}

func (h *UserHandler) listRelations(
	w http.ResponseWriter,
	r *http.Request,
	list func(ctx context.Context, accountID string) ([]*model.Account, error),
) {
	if _, ok := requireAccountID(w, r); !ok {
		return
	}
	account := h.target(w, r)
	if account == nil {
		return
	}

	accounts, err := list(r.Context(), account.ID)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toPublicAccounts(accounts))
}

// Follow は指定ユーザーをフォローする。
// POST /api/users/{username}/follow
func (h *UserHandler) Follow(w http.ResponseWriter, r *http.Request) {
	viewerID, ok := requireAccountID(w, r)
	if !ok {
		return
	}
	account := h.target(w, r)
	if account == nil {
		return
	}

	if err := h.graph.Follow(r.Context(), viewerID, account.ID); err != nil {
		handleServiceError(w, err)
		return
	}
	h.metrics.RecordFollow()
	w.WriteHeader(http.StatusNoContent)
}

// Unfollow は指定ユーザーのフォローを解除する。
// DELETE /api/users/{username}/follow
func (h *UserHandler) Unfollow(w http.ResponseWriter, r *http.Request) {
	viewerID, ok := requireAccountID(w, r)
	if !ok {
		return
	}
	account := h.target(w, r)
	if account == nil {
		return
	}

	if err := h.graph.Unfollow(r.Context(), viewerID, account.ID); err != nil {
		handleServiceError(w, err)
		return
	}
	h.metrics.RecordUnfollow()
	w.WriteHeader(http.StatusNoContent)
}

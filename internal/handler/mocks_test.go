package handler

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/hitoshi/bitmeme/internal/metrics"
	"github.com/hitoshi/bitmeme/internal/middleware"
	"github.com/hitoshi/bitmeme/internal/model"
)

// --- モック定義 ---

type mockAccountService struct {
	registerFn         func(ctx context.Context, username, email, password string) (*model.Account, error)
	resendActivationFn func(ctx context.Context, email string) error
	activateFn         func(ctx context.Context, token string) (*model.Account, error)
	findByUsernameFn   func(ctx context.Context, username string) (*model.Account, error)
}

func (m *mockAccountService) Register(ctx context.Context, username, email, password string) (*model.Account, error) {
	return m.registerFn(ctx, username, email, password)
}

func (m *mockAccountService) ResendActivation(ctx context.Context, email string) error {
	return m.resendActivationFn(ctx, email)
}

func (m *mockAccountService) Activate(ctx context.Context, token string) (*model.Account, error) {
	return m.activateFn(ctx, token)
}

func (m *mockAccountService) FindByUsername(ctx context.Context, username string) (*model.Account, error) {
	if m.findByUsernameFn != nil {
		return m.findByUsernameFn(ctx, username)
	}
	return nil, model.NewAccountNotFoundError()
}

type mockAuthService struct {
	loginFn             func(ctx context.Context, email, password string) (*model.Session, *model.Account, error)
	logoutFn            func(ctx context.Context, sessionID string) error
	getCurrentAccountFn func(ctx context.Context, sessionID string) (*model.Account, error)
}

func (m *mockAuthService) Login(ctx context.Context, email, password string) (*model.Session, *model.Account, error) {
	return m.loginFn(ctx, email, password)
}

func (m *mockAuthService) Logout(ctx context.Context, sessionID string) error {
	if m.logoutFn != nil {
		return m.logoutFn(ctx, sessionID)
	}
	return nil
}

func (m *mockAuthService) GetCurrentAccount(ctx context.Context, sessionID string) (*model.Account, error) {
	return m.getCurrentAccountFn(ctx, sessionID)
}

type mockGraphService struct {
	followFn      func(ctx context.Context, fromID, toID string) error
	unfollowFn    func(ctx context.Context, fromID, toID string) error
	followingFn   func(ctx context.Context, accountID string) ([]*model.Account, error)
	followersFn   func(ctx context.Context, accountID string) ([]*model.Account, error)
	isFollowingFn func(ctx context.Context, fromID, toID string) (bool, error)
	countsFn      func(ctx context.Context, accountID string) (int, int, error)
}

func (m *mockGraphService) Follow(ctx context.Context, fromID, toID string) error {
	return m.followFn(ctx, fromID, toID)
}

func (m *mockGraphService) Unfollow(ctx context.Context, fromID, toID string) error {
	return m.unfollowFn(ctx, fromID, toID)
}

func (m *mockGraphService) FollowingAccounts(ctx context.Context, accountID string) ([]*model.Account, error) {
	return m.followingFn(ctx, accountID)
}

func (m *mockGraphService) FollowerAccounts(ctx context.Context, accountID string) ([]*model.Account, error) {
	return m.followersFn(ctx, accountID)
}

func (m *mockGraphService) IsFollowing(ctx context.Context, fromID, toID string) (bool, error) {
	if m.isFollowingFn != nil {
		return m.isFollowingFn(ctx, fromID, toID)
	}
	return false, nil
}

func (m *mockGraphService) Counts(ctx context.Context, accountID string) (int, int, error) {
	if m.countsFn != nil {
		return m.countsFn(ctx, accountID)
	}
	return 0, 0, nil
}

type mockTimelineService struct {
	feedForFn     func(ctx context.Context, viewerID string, limit int) ([]*model.Post, error)
	postsForFn    func(ctx context.Context, accountID string, limit int) ([]*model.Post, error)
	postDetailFn  func(ctx context.Context, postID string) (*model.Post, error)
	commentsForFn func(ctx context.Context, postID string, limit int) ([]*model.Comment, error)
}

func (m *mockTimelineService) FeedFor(ctx context.Context, viewerID string, limit int) ([]*model.Post, error) {
	return m.feedForFn(ctx, viewerID, limit)
}

func (m *mockTimelineService) PostsFor(ctx context.Context, accountID string, limit int) ([]*model.Post, error) {
	return m.postsForFn(ctx, accountID, limit)
}

func (m *mockTimelineService) PostDetail(ctx context.Context, postID string) (*model.Post, error) {
	return m.postDetailFn(ctx, postID)
}

func (m *mockTimelineService) CommentsFor(ctx context.Context, postID string, limit int) ([]*model.Comment, error) {
	return m.commentsForFn(ctx, postID, limit)
}

type mockContentService struct {
	createPostFn    func(ctx context.Context, ownerID, content, imageRef string) (*model.Post, error)
	createCommentFn func(ctx context.Context, ownerID, postID, content string) (*model.Comment, error)
	deleteCommentFn func(ctx context.Context, commentID, requesterID string) error
	deletePostFn    func(ctx context.Context, postID, requesterID string) error
}

func (m *mockContentService) CreatePost(ctx context.Context, ownerID, content, imageRef string) (*model.Post, error) {
	return m.createPostFn(ctx, ownerID, content, imageRef)
}

func (m *mockContentService) CreateComment(ctx context.Context, ownerID, postID, content string) (*model.Comment, error) {
	return m.createCommentFn(ctx, ownerID, postID, content)
}

func (m *mockContentService) DeleteComment(ctx context.Context, commentID, requesterID string) error {
	return m.deleteCommentFn(ctx, commentID, requesterID)
}

func (m *mockContentService) DeletePost(ctx context.Context, postID, requesterID string) error {
	return m.deletePostFn(ctx, postID, requesterID)
}

type mockMediaStore struct {
	storeFn func(ctx context.Context, data []byte, filenameHint string) (string, error)
	deleted []string
}

func (m *mockMediaStore) Store(ctx context.Context, data []byte, filenameHint string) (string, error) {
	return m.storeFn(ctx, data, filenameHint)
}

func (m *mockMediaStore) Delete(ctx context.Context, ref string) error {
	m.deleted = append(m.deleted, ref)
	return nil
}

// staticAccountLister は固定のアカウント一覧から著者を返す。
type staticAccountLister struct {
	accounts map[string]*model.Account
	err      error
}

func (s *staticAccountLister) ListByIDs(ctx context.Context, ids []string) ([]*model.Account, error) {
	if s.err != nil {
		return nil, s.err
	}
	var out []*model.Account
	for _, id := range ids {
		if a, ok := s.accounts[id]; ok {
			out = append(out, a)
		}
	}
	return out, nil
}

// recordingMetrics は呼び出し回数を記録するMetricsCollector。
type recordingMetrics struct {
	metrics.NopCollector
	registrations int
	activations   int
	logins        []string
	follows       int
	unfollows     int
	posts         int
	comments      int
	deletions     []string
}

func (m *recordingMetrics) RecordRegistration() { m.registrations++ }
func (m *recordingMetrics) RecordActivation() { m.activations++ }
func (m *recordingMetrics) RecordLogin(outcome string) { m.logins = append(m.logins, outcome) }
func (m *recordingMetrics) RecordFollow() { m.follows++ }
func (m *recordingMetrics) RecordUnfollow() { m.unfollows++ }
func (m *recordingMetrics) RecordPostCreated() { m.posts++ }
func (m *recordingMetrics) RecordCommentCreated() { m.comments++ }
func (m *recordingMetrics) RecordDeletion(kind string) { m.deletions = append(m.deletions, kind) }

// --- テストヘルパー ---

var (
	alice = &model.Account{ID: "account-alice", Username: "alice", Email: "alice@example.com", Confirmed: true}
	bob   = &model.Account{ID: "account-bob", Username: "bob", Email: "bob@example.com", Confirmed: true}
)

func testLister() *staticAccountLister {
	return &staticAccountLister{accounts: map[string]*model.Account{alice.ID: alice, bob.ID: bob}}
}

// withAccountID はリクエストコンテキストにアカウントIDを注入する。
func withAccountID(r *http.Request, accountID string) *http.Request {
	return r.WithContext(middleware.ContextWithAccountID(r.Context(), accountID))
}

// withChiURLParam はchiのURLパラメータを注入する。
func withChiURLParam(r *http.Request, key, value string) *http.Request {
	rctx := chi.RouteContext(r.Context())
	if rctx == nil {
		rctx = chi.NewRouteContext()
		r = r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
	}
	rctx.URLParams.Add(key, value)
	return r
}

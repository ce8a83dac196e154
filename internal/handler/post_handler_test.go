package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/hitoshi/bitmeme/internal/model"
)

func multipartBody(t *testing.T, filename string, data []byte, content string) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	if filename != "" {
		fw, err := mw.CreateFormFile("image", filename)
		if err != nil {
			t.Fatal(err)
		}
		fw.Write(data)
	}
	if err := mw.WriteField("content", content); err != nil {
		t.Fatal(err)
	}
	mw.Close()
	return &buf, mw.FormDataContentType()
}

func newTestPostHandler(content *mockContentService, timeline *mockTimelineService, media *mockMediaStore, m *recordingMetrics) *PostHandler {
	return NewPostHandler(content, timeline, media, NewPresenter(testLister()), PostHandlerConfig{MaxUploadSize: 1024}, m)
}

func TestPostHandler_Feed(t *testing.T) {
	now := time.Now()
	timeline := &mockTimelineService{
		feedForFn: func(ctx context.Context, viewerID string, limit int) ([]*model.Post, error) {
			if viewerID != alice.ID {
				t.Errorf("viewerID = %q", viewerID)
			}
			return []*model.Post{
				{ID: "p2", OwnerID: bob.ID, ImageRef: "b.png", CreatedAt: now},
				{ID: "p1", OwnerID: alice.ID, ImageRef: "a.png", CreatedAt: now.Add(-time.Minute)},
			}, nil
		},
	}
	h := newTestPostHandler(&mockContentService{}, timeline, &mockMediaStore{}, &recordingMetrics{})

	w := httptest.NewRecorder()
	h.Feed(w, withAccountID(httptest.NewRequest(http.MethodGet, "/api/feed", nil), alice.ID))

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	var posts []postResponse
	if err := json.NewDecoder(w.Body).Decode(&posts); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(posts) != 2 || posts[0].ID != "p2" || posts[1].Author.Username != "alice" {
		t.Errorf("posts = %+v", posts)
	}
}

func TestPostHandler_Feed_Unauthenticated(t *testing.T) {
	h := newTestPostHandler(&mockContentService{}, &mockTimelineService{}, &mockMediaStore{}, &recordingMetrics{})

	w := httptest.NewRecorder()
	h.Feed(w, httptest.NewRequest(http.MethodGet, "/api/feed", nil))
	if w.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", w.Code)
	}
}

func TestPostHandler_CreatePost_Success(t *testing.T) {
	media := &mockMediaStore{
		storeFn: func(ctx context.Context, data []byte, filenameHint string) (string, error) {
			if filenameHint != "cat.png" || string(data) != "pngdata" {
				t.Errorf("Store(%q, %q)", data, filenameHint)
			}
			return "stored.png", nil
		},
	}
	content := &mockContentService{
		createPostFn: func(ctx context.Context, ownerID, text, imageRef string) (*model.Post, error) {
			if ownerID != alice.ID || text != "my cat" || imageRef != "stored.png" {
				t.Errorf("CreatePost(%q, %q, %q)", ownerID, text, imageRef)
			}
			return &model.Post{ID: "p1", OwnerID: ownerID, Content: text, ImageRef: imageRef}, nil
		},
	}
	m := &recordingMetrics{}
	h := newTestPostHandler(content, &mockTimelineService{}, media, m)

	body, ctype := multipartBody(t, "cat.png", []byte("pngdata"), "my cat")
	req := httptest.NewRequest(http.MethodPost, "/api/posts", body)
	req.Header.Set("Content-Type", ctype)
	w := httptest.NewRecorder()
	h.CreatePost(w, withAccountID(req, alice.ID))

	if w.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201, body = %s", w.Code, w.Body.String())
	}
	var resp postResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.ImageURL != "/media/stored.png" || resp.Author.Username != "alice" {
		t.Errorf("resp = %+v", resp)
	}
	if m.posts != 1 {
		t.Errorf("posts = %d, want 1", m.posts)
	}
}

func TestPostHandler_CreatePost_RejectedFileType(t *testing.T) {
	media := &mockMediaStore{
		storeFn: func(ctx context.Context, data []byte, filenameHint string) (string, error) {
			return "", model.NewRejectedFileTypeError(filenameHint)
		},
	}
	h := newTestPostHandler(&mockContentService{}, &mockTimelineService{}, media, &recordingMetrics{})

	body, ctype := multipartBody(t, "evil.exe", []byte("MZ"), "hi")
	req := httptest.NewRequest(http.MethodPost, "/api/posts", body)
	req.Header.Set("Content-Type", ctype)
	w := httptest.NewRecorder()
	h.CreatePost(w, withAccountID(req, alice.ID))

	if w.Code != http.StatusUnsupportedMediaType {
		t.Errorf("status = %d, want 415", w.Code)
	}
}

func TestPostHandler_CreatePost_InvalidContentRemovesMedia(t *testing.T) {
	media := &mockMediaStore{
		storeFn: func(ctx context.Context, data []byte, filenameHint string) (string, error) {
			return "stored.png", nil
		},
	}
	content := &mockContentService{
		createPostFn: func(ctx context.Context, ownerID, text, imageRef string) (*model.Post, error) {
			return nil, model.NewValidationError("content", "too long")
		},
	}
	h := newTestPostHandler(content, &mockTimelineService{}, media, &recordingMetrics{})

	body, ctype := multipartBody(t, "cat.png", []byte("pngdata"), strings.Repeat("a", 251))
	req := httptest.NewRequest(http.MethodPost, "/api/posts", body)
	req.Header.Set("Content-Type", ctype)
	w := httptest.NewRecorder()
	h.CreatePost(w, withAccountID(req, alice.ID))

	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
	if len(media.deleted) != 1 || media.deleted[0] != "stored.png" {
		t.Errorf("orphaned media not removed: %v", media.deleted)
	}
}

func TestPostHandler_CreatePost_MissingImage(t *testing.T) {
	h := newTestPostHandler(&mockContentService{}, &mockTimelineService{}, &mockMediaStore{}, &recordingMetrics{})

	body, ctype := multipartBody(t, "", nil, "caption only")
	req := httptest.NewRequest(http.MethodPost, "/api/posts", body)
	req.Header.Set("Content-Type", ctype)
	w := httptest.NewRecorder()
	h.CreatePost(w, withAccountID(req, alice.ID))

	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
}

func TestPostHandler_CreatePost_TooLarge(t *testing.T) {
	h := newTestPostHandler(&mockContentService{}, &mockTimelineService{}, &mockMediaStore{}, &recordingMetrics{})

	body, ctype := multipartBody(t, "big.png", bytes.Repeat([]byte("x"), 2048), "big")
	req := httptest.NewRequest(http.MethodPost, "/api/posts", body)
	req.Header.Set("Content-Type", ctype)
	w := httptest.NewRecorder()
	h.CreatePost(w, withAccountID(req, alice.ID))

	if w.Code != http.StatusRequestEntityTooLarge {
		t.Errorf("status = %d, want 413", w.Code)
	}
}

const (
	testPostID    = "5f1b8c2a-7d3e-4a9b-b6c1-0e2f4a6d8b10"
	testCommentID = "9a3c5e7f-1b2d-4c6e-8f0a-3b5d7f9e1c20"
)

func TestPostHandler_GetPost(t *testing.T) {
	timeline := &mockTimelineService{
		postDetailFn: func(ctx context.Context, postID string) (*model.Post, error) {
			if postID != testPostID {
				return nil, model.NewPostNotFoundError(postID)
			}
			return &model.Post{ID: testPostID, OwnerID: bob.ID, ImageRef: "b.png"}, nil
		},
		commentsForFn: func(ctx context.Context, postID string, limit int) ([]*model.Comment, error) {
			return []*model.Comment{
				{ID: testCommentID, PostID: postID, OwnerID: alice.ID, Content: "first"},
				{ID: "c2", PostID: postID, OwnerID: bob.ID, Content: "second"},
			}, nil
		},
	}
	h := newTestPostHandler(&mockContentService{}, timeline, &mockMediaStore{}, &recordingMetrics{})

	req := withChiURLParam(withAccountID(httptest.NewRequest(http.MethodGet, "/api/posts/"+testPostID, nil), alice.ID), "id", testPostID)
	w := httptest.NewRecorder()
	h.GetPost(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	var resp postDetailResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Post.Author.Username != "bob" || len(resp.Comments) != 2 || resp.Comments[0].ID != testCommentID {
		t.Errorf("resp = %+v", resp)
	}

	req = withChiURLParam(withAccountID(httptest.NewRequest(http.MethodGet, "/api/posts/0b7e4a52-9c1d-4f3e-a6b8-2d5c7e9f1a30", nil), alice.ID), "id", "0b7e4a52-9c1d-4f3e-a6b8-2d5c7e9f1a30")
	w = httptest.NewRecorder()
	h.GetPost(w, req)
	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", w.Code)
	}
}

func TestPostHandler_CreateComment(t *testing.T) {
	content := &mockContentService{
		createCommentFn: func(ctx context.Context, ownerID, postID, text string) (*model.Comment, error) {
			return &model.Comment{ID: testCommentID, OwnerID: ownerID, PostID: postID, Content: text}, nil
		},
	}
	m := &recordingMetrics{}
	h := newTestPostHandler(content, &mockTimelineService{}, &mockMediaStore{}, m)

	req := httptest.NewRequest(http.MethodPost, "/api/posts/"+testPostID+"/comments", strings.NewReader(`{"content":"nice"}`))
	req = withChiURLParam(withAccountID(req, alice.ID), "id", testPostID)
	w := httptest.NewRecorder()
	h.CreateComment(w, req)

	if w.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201", w.Code)
	}
	var resp commentResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.PostID != testPostID || resp.Author.Username != "alice" || resp.Content != "nice" {
		t.Errorf("resp = %+v", resp)
	}
	if m.comments != 1 {
		t.Errorf("comments = %d, want 1", m.comments)
	}
}

func TestPostHandler_Deletes(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
	}{
		{"成功", nil, http.StatusNoContent},
		{"権限なし", model.NewForbiddenError(), http.StatusForbidden},
		{"存在しない", model.NewCommentNotFoundError(testCommentID), http.StatusNotFound},
		{"内部エラー", errors.New("db down"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			content := &mockContentService{
				deleteCommentFn: func(ctx context.Context, commentID, requesterID string) error {
					if commentID != testCommentID || requesterID != alice.ID {
						t.Errorf("DeleteComment(%q, %q)", commentID, requesterID)
					}
					return tt.err
				},
				deletePostFn: func(ctx context.Context, postID, requesterID string) error {
					return tt.err
				},
			}
			m := &recordingMetrics{}
			h := newTestPostHandler(content, &mockTimelineService{}, &mockMediaStore{}, m)

			req := withChiURLParam(withAccountID(httptest.NewRequest(http.MethodDelete, "/api/comments/"+testCommentID, nil), alice.ID), "id", testCommentID)
			w := httptest.NewRecorder()
			h.DeleteComment(w, req)
			if w.Code != tt.wantStatus {
				t.Errorf("DeleteComment status = %d, want %d", w.Code, tt.wantStatus)
			}

			req = withChiURLParam(withAccountID(httptest.NewRequest(http.MethodDelete, "/api/posts/"+testPostID, nil), alice.ID), "id", testPostID)
			w = httptest.NewRecorder()
			h.DeletePost(w, req)
			if w.Code != tt.wantStatus {
				t.Errorf("DeletePost status = %d, want %d", w.Code, tt.wantStatus)
			}

			wantDeletions := 0
			if tt.err == nil {
				wantDeletions = 2
			}
			if len(m.deletions) != wantDeletions {
				t.Errorf("deletions = %v", m.deletions)
			}
		})
	}
}

// UUIDとして解釈できないパスIDはサービスを呼ばずに404を返すこと
func TestPostHandler_MalformedID(t *testing.T) {
	called := false
	content := &mockContentService{
		createCommentFn: func(ctx context.Context, ownerID, postID, text string) (*model.Comment, error) {
			called = true
			return nil, errors.New("unexpected call")
		},
		deletePostFn: func(ctx context.Context, postID, requesterID string) error {
			called = true
			return errors.New("unexpected call")
		},
		deleteCommentFn: func(ctx context.Context, commentID, requesterID string) error {
			called = true
			return errors.New("unexpected call")
		},
	}
	timeline := &mockTimelineService{
		postDetailFn: func(ctx context.Context, postID string) (*model.Post, error) {
			called = true
			return nil, errors.New("unexpected call")
		},
	}
	h := newTestPostHandler(content, timeline, &mockMediaStore{}, &recordingMetrics{})

	tests := []struct {
		name     string
		method   string
		body     string
		serve    http.HandlerFunc
		wantCode string
	}{
		{"投稿取得", http.MethodGet, "", h.GetPost, model.ErrCodePostNotFound},
		{"投稿削除", http.MethodDelete, "", h.DeletePost, model.ErrCodePostNotFound},
		{"コメント作成", http.MethodPost, `{"content":"nice"}`, h.CreateComment, model.ErrCodePostNotFound},
		{"コメント削除", http.MethodDelete, "", h.DeleteComment, model.ErrCodeCommentNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			called = false
			req := httptest.NewRequest(tt.method, "/api/posts/abc", strings.NewReader(tt.body))
			req = withChiURLParam(withAccountID(req, alice.ID), "id", "abc")
			w := httptest.NewRecorder()
			tt.serve(w, req)

			if w.Code != http.StatusNotFound {
				t.Fatalf("status = %d, want 404", w.Code)
			}
			if body := decodeError(t, w); body.Code != tt.wantCode {
				t.Errorf("code = %q, want %q", body.Code, tt.wantCode)
			}
			if called {
				t.Error("service should not be called")
			}
		})
	}
}

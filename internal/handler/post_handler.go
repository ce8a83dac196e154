package handler

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/hitoshi/bitmeme/internal/metrics"
	"github.com/hitoshi/bitmeme/internal/middleware"
	"github.com/hitoshi/bitmeme/internal/model"
)

// ContentServiceInterface は投稿・コメントの書き込み操作。
type ContentServiceInterface interface {
	CreatePost(ctx context.Context, ownerID, content, imageRef string) (*model.Post, error)
	CreateComment(ctx context.Context, ownerID, postID, content string) (*model.Comment, error)
	DeleteComment(ctx context.Context, commentID, requesterID string) error
	DeletePost(ctx context.Context, postID, requesterID string) error
}

// MediaStore はアップロード画像の保存先。
type MediaStore interface {
	Store(ctx context.Context, data []byte, filenameHint string) (string, error)
	Delete(ctx context.Context, ref string) error
}

// PostHandlerConfig は投稿ハンドラーの設定。
type PostHandlerConfig struct {
	MaxUploadSize int64 // 画像ファイルの最大バイト数
}

// multipartOverhead はキャプションとマルチパート境界のために画像サイズに上乗せする許容量。
const multipartOverhead = 64 << 10

// PostHandler はフィード・投稿・コメントのHTTPハンドラー。
type PostHandler struct {
	content   ContentServiceInterface
	timeline  TimelineServiceInterface
	media     MediaStore
	presenter *Presenter
	config    PostHandlerConfig
	metrics   metrics.MetricsCollector
}

// NewPostHandler はPostHandlerを生成する。
func NewPostHandler(
	content ContentServiceInterface,
	timeline TimelineServiceInterface,
	media MediaStore,
	presenter *Presenter,
	config PostHandlerConfig,
	m metrics.MetricsCollector,
) *PostHandler {
	return &PostHandler{
		content:   content,
		timeline:  timeline,
		media:     media,
		presenter: presenter,
		config:    config,
		metrics:   m,
	}
}

type postDetailResponse struct {
	Post     postResponse      `json:"post"`
	Comments []commentResponse `json:"comments"`
}

type commentRequest struct {
	Content string `json:"content"`
}

// Feed はログイン中のアカウントのフィードを返す。
// GET /api/feed?limit=
func (h *PostHandler) Feed(w http.ResponseWriter, r *http.Request) {
	viewerID, ok := requireAccountID(w, r)
	if !ok {
		return
	}

	posts, err := h.timeline.FeedFor(r.Context(), viewerID, queryLimit(r))
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

// CreatePost は画像とキャプションから投稿を作成する。
// POST /api/posts (multipart/form-data: image, content)
func (h *PostHandler) CreatePost(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := requireAccountID(w, r)
	if !ok {
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, h.config.MaxUploadSize+multipartOverhead)
	if err := r.ParseMultipartForm(h.config.MaxUploadSize); err != nil {
		writeUploadError(w, err)
		return
	}
	defer r.MultipartForm.RemoveAll()

	file, header, err := r.FormFile("image")
	if err != nil {
		middleware.WriteErrorResponse(w, http.StatusBadRequest,
			model.NewValidationError("image", "画像ファイルを指定してください"))
		return
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, h.config.MaxUploadSize+1))
	if err != nil {
		writeUploadError(w, err)
		return
	}
	if int64(len(data)) > h.config.MaxUploadSize {
		writeUploadError(w, &http.MaxBytesError{Limit: h.config.MaxUploadSize})
		return
	}

	ref, err := h.media.Store(r.Context(), data, header.Filename)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	post, err := h.content.CreatePost(r.Context(), ownerID, r.FormValue("content"), ref)
	if err != nil {
		if delErr := h.media.Delete(r.Context(), ref); delErr != nil {
			slog.Warn("failed to remove orphaned media",
				slog.String("image_ref", ref),
				slog.String("error", delErr.Error()),
			)
		}
		handleServiceError(w, err)
		return
	}
	h.metrics.RecordPostCreated()

	resp, err := h.presenter.Post(r.Context(), post)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, resp)
}

func writeUploadError(w http.ResponseWriter, err error) {
	var maxErr *http.MaxBytesError
	if errors.As(err, &maxErr) {
		middleware.WriteErrorResponse(w, http.StatusRequestEntityTooLarge,
			model.NewValidationError("image", "ファイルサイズが上限を超えています"))
		return
	}
	middleware.WriteErrorResponse(w, http.StatusBadRequest,
		model.NewValidationError("body", "マルチパート形式として解釈できません"))
}

// GetPost は投稿とコメント一覧を返す。
// GET /api/posts/{id}
func (h *PostHandler) GetPost(w http.ResponseWriter, r *http.Request) {
	if _, ok := requireAccountID(w, r); !ok {
		return
	}
	postID, ok := postIDParam(w, r)
	if !ok {
		return
	}

	post, err := h.timeline.PostDetail(r.Context(), postID)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	comments, err := h.timeline.CommentsFor(r.Context(), postID, queryLimit(r))
	if err != nil {
		handleServiceError(w, err)
		return
	}

	postResp, err := h.presenter.Post(r.Context(), post)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	commentResp, err := h.presenter.Comments(r.Context(), comments)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, postDetailResponse{Post: *postResp, Comments: commentResp})
}

// DeletePost は自分の投稿を削除する。
// DELETE /api/posts/{id}
func (h *PostHandler) DeletePost(w http.ResponseWriter, r *http.Request) {
	requesterID, ok := requireAccountID(w, r)
	if !ok {
		return
	}

	postID, ok := postIDParam(w, r)
	if !ok {
		return
	}
	if err := h.content.DeletePost(r.Context(), postID, requesterID); err != nil {
		handleServiceError(w, err)
		return
	}
	h.metrics.RecordDeletion("post")
	w.WriteHeader(http.StatusNoContent)
}

// CreateComment は投稿にコメントする。
// POST /api/posts/{id}/comments
func (h *PostHandler) CreateComment(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := requireAccountID(w, r)
	if !ok {
		return
	}
	postID, ok := postIDParam(w, r)
	if !ok {
		return
	}
	var req commentRequest
	if !decodeJSONBody(w, r, &req) {
		return
	}

	comment, err := h.content.CreateComment(r.Context(), ownerID, postID, req.Content)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	h.metrics.RecordCommentCreated()

	resp, err := h.presenter.Comments(r.Context(), []*model.Comment{comment})
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, resp[0])
}

// DeleteComment はコメントを削除する。コメント投稿者と投稿の所有者が削除できる。
// DELETE /api/comments/{id}
func (h *PostHandler) DeleteComment(w http.ResponseWriter, r *http.Request) {
	requesterID, ok := requireAccountID(w, r)
	if !ok {
		return
	}

	commentID := chi.URLParam(r, "id")
	if uuid.Validate(commentID) != nil {
		handleServiceError(w, model.NewCommentNotFoundError(commentID))
		return
	}
	if err := h.content.DeleteComment(r.Context(), commentID, requesterID); err != nil {
		handleServiceError(w, err)
		return
	}
	h.metrics.RecordDeletion("comment")
	w.WriteHeader(http.StatusNoContent)
}

// postIDParam はパスの投稿IDを取り出す。UUIDでなければ404を書き込んでfalseを返す。
func postIDParam(w http.ResponseWriter, r *http.Request) (string, bool) {
	postID := chi.URLParam(r, "id")
	if uuid.Validate(postID) != nil {
		handleServiceError(w, model.NewPostNotFoundError(postID))
		return "", false
	}
	return postID, true
}

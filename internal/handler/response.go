// Package handler はHTTPハンドラーを提供する。
package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/hitoshi/bitmeme/internal/middleware"
	"github.com/hitoshi/bitmeme/internal/model"
)

// writeJSON はステータスコードとJSONボディを書き込む。
func writeJSON(w http.ResponseWriter, statusCode int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("failed to encode response", slog.String("error", err.Error()))
	}
}

// handleServiceError はサービス層のエラーをHTTPレスポンスに変換する。
// APIError以外は内部エラーとしてログに記録し、500を返す。
func handleServiceError(w http.ResponseWriter, err error) {
	var apiErr *model.APIError
	if errors.As(err, &apiErr) {
		middleware.WriteErrorResponse(w, mapAPIErrorToHTTPStatus(apiErr), apiErr)
		return
	}

	slog.Error("internal server error", slog.String("error", err.Error()))
	middleware.WriteInternalServerError(w)
}

// mapAPIErrorToHTTPStatus はAPIErrorコードからHTTPステータスコードにマッピングする。
func mapAPIErrorToHTTPStatus(apiErr *model.APIError) int {
	switch apiErr.Code {
	case model.ErrCodeDuplicateUsername, model.ErrCodeDuplicateEmail,
		model.ErrCodeAlreadyFollowing, model.ErrCodeNotFollowing:
		return http.StatusConflict
	case model.ErrCodeAccountNotFound, model.ErrCodePostNotFound, model.ErrCodeCommentNotFound:
		return http.StatusNotFound
	case model.ErrCodeBadPassword, model.ErrCodeUnauthenticated:
		return http.StatusUnauthorized
	case model.ErrCodeUnconfirmed, model.ErrCodeForbidden:
		return http.StatusForbidden
	case model.ErrCodeRejectedFileType:
		return http.StatusUnsupportedMediaType
	case model.ErrCodeInvalidOrExpiredToken, model.ErrCodeValidationFailed, model.ErrCodeSelfFollow:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// requireAccountID はコンテキストから認証済みアカウントIDを取り出す。
// 取得できない場合は401を書き込みfalseを返す。
func requireAccountID(w http.ResponseWriter, r *http.Request) (string, bool) {
	accountID, ok := middleware.AccountIDFromContext(r.Context())
	if !ok {
		middleware.WriteErrorResponse(w, http.StatusUnauthorized, model.NewUnauthenticatedError())
		return "", false
	}
	return accountID, true
}

const maxJSONBodySize = 1 << 16

// decodeJSONBody はリクエストボディをdstにデコードする。
// 失敗時は400 VALIDATION_FAILEDを書き込みfalseを返す。
func decodeJSONBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxJSONBodySize))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		middleware.WriteErrorResponse(w, http.StatusBadRequest,
			model.NewValidationError("body", "JSONとして解釈できません"))
		return false
	}
	return true
}

// queryLimit はlimitクエリパラメータを返す。未指定や数値でない場合は0。
// 範囲の正規化はフィードサービス側で行う。
func queryLimit(r *http.Request) int {
	v := r.URL.Query().Get("limit")
	if v == "" {
		return 0
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0
	}
	return n
}

package handler

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/hitoshi/bitmeme/internal/metrics"
	"github.com/hitoshi/bitmeme/internal/model"
)

// AccountServiceInterface はアカウントハンドラーが必要とするサービスインターフェース。
type AccountServiceInterface interface {
	// Register はアカウントを作成し確認メールを送る。
	Register(ctx context.Context, username, email, password string) (*model.Account, error)
	// ResendActivation は未確認アカウントに確認メールを再送する。
	ResendActivation(ctx context.Context, email string) error
	// Activate は確認トークンでアカウントを確認済みにする。
	Activate(ctx context.Context, token string) (*model.Account, error)
}

// AccountHandler はアカウント登録と確認のHTTPハンドラー。
type AccountHandler struct {
	service AccountServiceInterface
	metrics metrics.MetricsCollector
}

// NewAccountHandler はAccountHandlerを生成する。
func NewAccountHandler(service AccountServiceInterface, m metrics.MetricsCollector) *AccountHandler {
	return &AccountHandler{service: service, metrics: m}
}

type registerRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type resendActivationRequest struct {
	Email string `json:"email"`
}

// Register はアカウントを登録する。
// POST /api/accounts
func (h *AccountHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if !decodeJSONBody(w, r, &req) {
		return
	}

	account, err := h.service.Register(r.Context(), req.Username, req.Email, req.Password)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	h.metrics.RecordRegistration()

	writeJSON(w, http.StatusCreated, toOwnAccount(account))
}

// ResendActivation は確認メールを再送する。
// POST /api/accounts/activation
func (h *AccountHandler) ResendActivation(w http.ResponseWriter, r *http.Request) {
	var req resendActivationRequest
	if !decodeJSONBody(w, r, &req) {
		return
	}

	if err := h.service.ResendActivation(r.Context(), req.Email); err != nil {
		handleServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusAccepted)
}

// Activate は確認リンクのトークンを検証してアカウントを確認済みにする。
// GET /api/accounts/activate/{token}
func (h *AccountHandler) Activate(w http.ResponseWriter, r *http.Request) {
	account, err := h.service.Activate(r.Context(), chi.URLParam(r, "token"))
	if err != nil {
		handleServiceError(w, err)
		return
	}
	h.metrics.RecordActivation()

	writeJSON(w, http.StatusOK, toOwnAccount(account))
}

// Package handler はHTTPハンドラーを提供する。
package handler

import (
	"context"
	"net/http"

	"github.com/hitoshi/neocal/internal/middleware"
	"github.com/hitoshi/neocal/internal/model"
)

// AuthServiceInterface は認証ハンドラーが必要とするサービスインターフェース。
type AuthServiceInterface interface {
	// CreateAnonymousSession は匿名セッションを発行する。
	// presentedTokenが有効であればそのユーザーに紐付ける。
	CreateAnonymousSession(ctx context.Context, presentedToken string) (*model.Session, error)
	// Logout はトークンのセッションを破棄する。
	Logout(ctx context.Context, token string) error
}

// AuthHandler は匿名セッション関連のHTTPハンドラー。
type AuthHandler struct {
	service AuthServiceInterface
}

// NewAuthHandler はAuthHandlerを生成する。
func NewAuthHandler(service AuthServiceInterface) *AuthHandler {
	return &AuthHandler{
		service: service,
	}
}

// CreateAnonymousSession は匿名セッションを発行する。
// リクエストボディは無視する。
// POST /session/anonymous
func (h *AuthHandler) CreateAnonymousSession(w http.ResponseWriter, r *http.Request) {
	session, err := h.service.CreateAnonymousSession(r.Context(), middleware.TokenFromRequest(r))
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, toAnonymousSessionResponse(session))
}

// Logout は現在のセッションを破棄する。
// POST /session/logout
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	token := middleware.TokenFromContext(r.Context())
	if token == "" {
		writeAPIErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError())
		return
	}

	if err := h.service.Logout(r.Context(), token); err != nil {
		handleServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// Package handler はHTTPハンドラーを提供する。
package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/hitoshi/kakeibo/internal/auth"
	"github.com/hitoshi/kakeibo/internal/metrics"
	"github.com/hitoshi/kakeibo/internal/middleware"
	"github.com/hitoshi/kakeibo/internal/model"
)

// AuthServiceInterface は認証ハンドラーが必要とするサービスインターフェース。
type AuthServiceInterface interface {
	Login(ctx context.Context, login, plain string) (*model.User, error)
	Register(ctx context.Context, in auth.RegisterInput) (*model.User, error)
	CurrentUser(ctx context.Context, userID string) (*model.User, error)
}

// SessionManager はセッションの発行・検証・終了を行う。session.Serviceが実装する。
type SessionManager interface {
	GetSession(r *http.Request) *model.SessionClaims
	SetSessionCookie(w http.ResponseWriter, claims model.SessionClaims) error
	ClearSessionCookie(ctx context.Context, w http.ResponseWriter, r *http.Request) error
}

// AuthHandler はログイン・ログアウト・ユーザー情報取得のHTTPハンドラー。
type AuthHandler struct {
	service  AuthServiceInterface
	sessions SessionManager
	recorder metrics.AuthRecorder
}

// NewAuthHandler はAuthHandlerを生成する。recorderがnilの場合は記録しない。
func NewAuthHandler(service AuthServiceInterface, sessions SessionManager, recorder metrics.AuthRecorder) *AuthHandler {
	if recorder == nil {
		recorder = metrics.NopRecorder{}
	}
	return &AuthHandler{
		service:  service,
		sessions: sessions,
		recorder: recorder,
	}
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type registerRequest struct {
	Email    string `json:"email"`
	Username string `json:"username"`
	Password string `json:"password"`
}

type userResponse struct {
	User model.PublicUser `json:"user"`
}

type messageResponse struct {
	Message string `json:"message"`
}

// Login はユーザー名（またはメールアドレス）とパスワードでログインする。
// POST /api/auth/login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSONBody(w, r, &req); err != nil {
		h.recorder.RecordLogin(metrics.ResultMissingCredentials)
		writeAPIErrorResponse(w, http.StatusBadRequest, model.NewMissingCredentialsError())
		return
	}

	user, err := h.service.Login(r.Context(), req.Username, req.Password)
	if err != nil {
		h.recorder.RecordLogin(resultOf(err))
		handleServiceError(w, r, err)
		return
	}

	if err := h.sessions.SetSessionCookie(w, user.Claims()); err != nil {
		h.recorder.RecordLogin(metrics.ResultError)
		handleServiceError(w, r, err)
		return
	}

	h.recorder.RecordLogin(metrics.ResultSuccess)
	writeJSON(w, http.StatusOK, userResponse{User: user.Public()})
}

// Register は新規ユーザーを登録し、そのままログイン状態にする。
// POST /api/auth/register
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := decodeJSONBody(w, r, &req); err != nil {
		h.recorder.RecordRegister(metrics.ResultInvalidInput)
		handleServiceError(w, r, err)
		return
	}

	user, err := h.service.Register(r.Context(), auth.RegisterInput{
		Email:    req.Email,
		Username: req.Username,
		Password: req.Password,
	})
	if err != nil {
		h.recorder.RecordRegister(resultOf(err))
		handleServiceError(w, r, err)
		return
	}

	if err := h.sessions.SetSessionCookie(w, user.Claims()); err != nil {
		h.recorder.RecordRegister(metrics.ResultError)
		handleServiceError(w, r, err)
		return
	}

	h.recorder.RecordRegister(metrics.ResultSuccess)
	writeJSON(w, http.StatusCreated, userResponse{User: user.Public()})
}

// Logout はセッションCookieを削除する。未ログインでも成功を返す。
// POST /api/auth/logout
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if err := h.sessions.ClearSessionCookie(r.Context(), w, r); err != nil {
		handleServiceError(w, r, err)
		return
	}

	h.recorder.RecordLogout()
	writeJSON(w, http.StatusOK, messageResponse{Message: "ログアウトしました。"})
}

// Me は現在のログインユーザー情報をストアから取得して返す。
// GET /api/auth/me
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	claims := middleware.SessionFromRequest(r, h.sessions)
	if claims == nil {
		writeAPIErrorResponse(w, http.StatusUnauthorized, model.NewNotAuthenticatedError())
		return
	}

	user, err := h.service.CurrentUser(r.Context(), claims.UserID)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, userResponse{User: user.Public()})
}

// resultOf はエラーをメトリクスの結果ラベルに変換する。
func resultOf(err error) string {
	var apiErr *model.APIError
	if !errors.As(err, &apiErr) {
		return metrics.ResultError
	}
	switch apiErr.Code {
	case model.ErrCodeMissingCredentials:
		return metrics.ResultMissingCredentials
	case model.ErrCodeInvalidCredentials:
		return metrics.ResultInvalidCredentials
	case model.ErrCodeInvalidInput:
		return metrics.ResultInvalidInput
	case model.ErrCodeUserExists:
		return metrics.ResultUserExists
	default:
		return metrics.ResultError
	}
}

package middleware

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hitoshi/kakeibo/internal/model"
)

func TestWriteErrorResponse_Format(t *testing.T) {
	tests := []struct {
		name     string
		status   int
		apiErr   *model.APIError
		category string
	}{
		{"missing credentials", http.StatusBadRequest, model.NewMissingCredentialsError(), "validation"},
		{"invalid credentials", http.StatusUnauthorized, model.NewInvalidCredentialsError(), "auth"},
		{"not authenticated", http.StatusUnauthorized, model.NewNotAuthenticatedError(), "auth"},
		{"user not found", http.StatusNotFound, model.NewUserNotFoundError(), "auth"},
		{"user exists", http.StatusConflict, model.NewUserExistsError(), "validation"},
		{"rate limited", http.StatusTooManyRequests, model.NewRateLimitedError(), "system"},
		{"internal", http.StatusInternalServerError, model.NewInternalError(), "system"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			WriteErrorResponse(w, tt.status, tt.apiErr)

			assert.Equal(t, tt.status, w.Code)
			assert.Equal(t, "application/json", w.Header().Get("Content-Type"))

			var body ErrorResponseBody
			require.NoError(t, json.NewDecoder(w.Body).Decode(&body))
			assert.Equal(t, tt.apiErr.Code, body.Code)
			assert.Equal(t, tt.category, body.Category)
			assert.NotEmpty(t, body.Message)
			assert.NotEmpty(t, body.Action)
		})
	}
}

func TestWriteErrorResponse_JSONKeys(t *testing.T) {
	w := httptest.NewRecorder()
	WriteErrorResponse(w, http.StatusBadRequest, &model.APIError{Code: "C", Message: "M", Category: "K", Action: "A"})

	var raw map[string]any
	require.NoError(t, json.NewDecoder(w.Body).Decode(&raw))
	assert.Equal(t, map[string]any{"code": "C", "message": "M", "category": "K", "action": "A"}, raw)
}

// 未登録ユーザーとパスワード誤りは同じバイト列になる必要がある
func TestWriteErrorResponse_InvalidCredentialsIsStable(t *testing.T) {
	first := httptest.NewRecorder()
	second := httptest.NewRecorder()
	WriteErrorResponse(first, http.StatusUnauthorized, model.NewInvalidCredentialsError())
	WriteErrorResponse(second, http.StatusUnauthorized, model.NewInvalidCredentialsError())

	assert.True(t, bytes.Equal(first.Body.Bytes(), second.Body.Bytes()))
}

func TestWriteInternalServerError(t *testing.T) {
	w := httptest.NewRecorder()
	WriteInternalServerError(w)

	assert.Equal(t, http.StatusInternalServerError, w.Code)

	var body ErrorResponseBody
	require.NoError(t, json.NewDecoder(w.Body).Decode(&body))
	assert.Equal(t, model.ErrCodeInternal, body.Code)
}

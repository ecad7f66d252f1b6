// Package middleware はHTTPミドルウェアを提供する。
package middleware

import (
	"context"
	"fmt"
	"net/http"

	"github.com/hitoshi/kakeibo/internal/model"
)

// contextKey はコンテキストに値を格納するための型安全なキー。
type contextKey string

// sessionContextKey はリクエストコンテキストに解決済みセッションを格納するためのキー。
var sessionContextKey = contextKey("session")

// resolvedSession はセッション解決の結果。未認証の場合もnilとして保持する。
type resolvedSession struct {
	claims *model.SessionClaims
}

// SessionResolver はリクエストからセッションを復元するインターフェース。
// session.Serviceが実装する。
type SessionResolver interface {
	GetSession(r *http.Request) *model.SessionClaims
}

// NewSessionContextMiddleware はCookieからセッションを一度だけ解決し、
// 結果をリクエストコンテキストに格納するミドルウェアを返す。
// 未認証でもリクエストは拒否しない。認可の判断は各ハンドラーとルートガードが行う。
func NewSessionContextMiddleware(resolver SessionResolver) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims := resolver.GetSession(r)
			ctx := context.WithValue(r.Context(), sessionContextKey, resolvedSession{claims: claims})
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// SessionFromRequest はリクエストのセッションを返す。
// コンテキストに解決済みの結果があればそれを使い、なければresolverで解決する。
func SessionFromRequest(r *http.Request, resolver SessionResolver) *model.SessionClaims {
	if rs, ok := r.Context().Value(sessionContextKey).(resolvedSession); ok {
		return rs.claims
	}
	return resolver.GetSession(r)
}

// ClaimsFromContext はリクエストコンテキストから認証済みクレームを取得する。
func ClaimsFromContext(ctx context.Context) (*model.SessionClaims, bool) {
	rs, ok := ctx.Value(sessionContextKey).(resolvedSession)
	if !ok || rs.claims == nil {
		return nil, false
	}
	return rs.claims, true
}

// UserIDFromContext はリクエストコンテキストからユーザーIDを取得する。
// セッションコンテキストミドルウェアを通過した認証済みリクエストでのみ有効。
func UserIDFromContext(ctx context.Context) (string, error) {
	claims, ok := ClaimsFromContext(ctx)
	if !ok || claims.UserID == "" {
		return "", fmt.Errorf("user ID not found in context")
	}
	return claims.UserID, nil
}

// ContextWithClaims はコンテキストにクレームを注入する。
// テストやミドルウェア以外のコンテキスト生成で使用する。
func ContextWithClaims(ctx context.Context, claims *model.SessionClaims) context.Context {
	return context.WithValue(ctx, sessionContextKey, resolvedSession{claims: claims})
}

// Package session はセッショントークンの発行・検証とCookieの読み書きを提供する。
package session

import (
	"net/http"
	"time"
)

// CookieName はセッショントークンを保持するCookieの名前。
const CookieName = "session"

// CookieConfig はセッションCookieの属性設定。
type CookieConfig struct {
	Secure bool          // 本番環境でのみtrue
	Domain string        // 空の場合はホスト限定Cookie
	MaxAge time.Duration // 0の場合は30日
}

// CookieStore はセッショントークンをHTTP Only Cookieとして読み書きする。
type CookieStore struct {
	config CookieConfig
}

// NewCookieStore はCookieStoreを生成する。
func NewCookieStore(config CookieConfig) *CookieStore {
	if config.MaxAge <= 0 {
		config.MaxAge = 30 * 24 * time.Hour
	}
	return &CookieStore{config: config}
}

// Set はトークンをセッションCookieとしてレスポンスに書き込む。
func (s *CookieStore) Set(w http.ResponseWriter, token string) {
	http.SetCookie(w, s.cookie(token, int(s.config.MaxAge/time.Second)))
}

// Get はリクエストからセッショントークンを取り出す。
// Cookieが無い、または値が空の場合はfalseを返す。
func (s *CookieStore) Get(r *http.Request) (string, bool) {
	c, err := r.Cookie(CookieName)
	if err != nil || c.Value == "" {
		return "", false
	}
	return c.Value, true
}

// Clear はセッションCookieを削除するヘッダーを書き込む。
func (s *CookieStore) Clear(w http.ResponseWriter) {
	http.SetCookie(w, s.cookie("", -1))
}

func (s *CookieStore) cookie(value string, maxAge int) *http.Cookie {
	return &http.Cookie{
		Name:     CookieName,
		Value:    value,
		Path:     "/",
		Domain:   s.config.Domain,
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   s.config.Secure,
		SameSite: http.SameSiteLaxMode,
	}
}

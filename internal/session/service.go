package session

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/hitoshi/kakeibo/internal/model"
	"github.com/hitoshi/kakeibo/internal/token"
)

// InvalidTokenObserver は検証に失敗したトークンの観測先。
// metrics.Collectorが実装する。
type InvalidTokenObserver interface {
	ObserveInvalidToken(reason string)
}

// Service はセッションの発行・検証・終了を担う。
// ログイン状態に入る経路はSetSessionCookie、抜ける経路はClearSessionCookieのみ。
type Service struct {
	codec    *token.Codec
	cookies  *CookieStore
	revoker  Revoker
	observer InvalidTokenObserver
}

// NewService はServiceを生成する。revokerがnilの場合はNoRevocationを使う。
func NewService(codec *token.Codec, cookies *CookieStore, revoker Revoker) *Service {
	if revoker == nil {
		revoker = NoRevocation{}
	}
	return &Service{codec: codec, cookies: cookies, revoker: revoker}
}

// SetObserver は無効トークンの観測先を設定する。
func (s *Service) SetObserver(o InvalidTokenObserver) {
	s.observer = o
}

// CreateSession はクレームからセッショントークンを発行する。
func (s *Service) CreateSession(claims model.SessionClaims) (string, error) {
	tok, err := s.codec.Encode(claims)
	if err != nil {
		return "", fmt.Errorf("failed to create session token: %w", err)
	}
	return tok, nil
}

// GetSession はリクエストのCookieからセッションを復元する。
// Cookieが無い、トークンが無効、または失効済みの場合はnilを返す。
// 失効リストの参照に失敗した場合も未認証として扱う。
func (s *Service) GetSession(r *http.Request) *model.SessionClaims {
	tok, ok := s.cookies.Get(r)
	if !ok {
		return nil
	}

	claims, err := s.codec.Decode(tok)
	if err != nil {
		s.observe("invalid")
		return nil
	}

	revoked, err := s.revoker.IsRevoked(r.Context(), HashToken(tok))
	if err != nil {
		slog.Error("failed to check session revocation",
			slog.String("error", err.Error()),
		)
		s.observe("revocation_error")
		return nil
	}
	if revoked {
		s.observe("revoked")
		return nil
	}

	return &claims
}

// SetSessionCookie はトークンを発行し、セッションCookieとして書き込む。
func (s *Service) SetSessionCookie(w http.ResponseWriter, claims model.SessionClaims) error {
	tok, err := s.CreateSession(claims)
	if err != nil {
		return err
	}
	s.cookies.Set(w, tok)
	return nil
}

// ClearSessionCookie はセッションCookieを削除する。
// 失効リストが有効な場合は、トークンを自然失効まで失効扱いにする。
// 失効リストへの登録に失敗してもCookieの削除は行う。
func (s *Service) ClearSessionCookie(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	defer s.cookies.Clear(w)

	if _, ok := s.revoker.(NoRevocation); ok {
		return nil
	}

	tok, ok := s.cookies.Get(r)
	if !ok {
		return nil
	}
	expiresAt, err := s.codec.ExpiresAt(tok)
	if err != nil {
		// 検証できないトークンは失効登録の対象外
		return nil
	}
	if err := s.revoker.Revoke(ctx, HashToken(tok), expiresAt); err != nil {
		return fmt.Errorf("failed to revoke session: %w", err)
	}
	return nil
}

func (s *Service) observe(reason string) {
	if s.observer != nil {
		s.observer.ObserveInvalidToken(reason)
	}
}

// HashToken は失効リストのキーとなるトークンのSHA-256ハッシュ（16進数）を返す。
func HashToken(tok string) string {
	sum := sha256.Sum256([]byte(tok))
	return hex.EncodeToString(sum[:])
}

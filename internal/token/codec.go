// Package token はセッションクレームと署名付きトークン文字列の相互変換を提供する。
// 署名アルゴリズムはHS256に固定する。
package token

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/hitoshi/kakeibo/internal/model"
)

// DefaultTTL はセッショントークンの有効期間（30日）。
const DefaultTTL = 30 * 24 * time.Hour

// ErrInvalid はトークンが不正であることを表す。
// 形式不正、署名不一致、期限切れ、クレーム欠落のいずれも区別せずこのエラーを返す。
var ErrInvalid = errors.New("invalid session token")

// sessionClaims はトークンのペイロード。
// userId、username、emailとiat、expのみを含む。
type sessionClaims struct {
	UserID   string `json:"userId"`
	Username string `json:"username"`
	Email    string `json:"email"`
	jwt.RegisteredClaims
}

// Codec はセッショントークンのエンコードとデコードを行う。
// 生成後は不変で、複数のgoroutineから同時に利用できる。
type Codec struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewCodec はCodecを生成する。secretが空の場合はエラーを返す。
// ttlが0以下の場合はDefaultTTLを使用する。
func NewCodec(secret []byte, ttl time.Duration) (*Codec, error) {
	if len(secret) == 0 {
		return nil, errors.New("token signing secret is required")
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Codec{
		secret: secret,
		ttl:    ttl,
		now:    time.Now,
	}, nil
}

// TTL はトークンの有効期間を返す。
func (c *Codec) TTL() time.Duration {
	return c.ttl
}

// Encode はクレームを署名付きトークン文字列に変換する。
func (c *Codec) Encode(claims model.SessionClaims) (string, error) {
	now := c.now()
	payload := sessionClaims{
		UserID:   claims.UserID,
		Username: claims.Username,
		Email:    claims.Email,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(c.ttl)),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, payload).SignedString(c.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign session token: %w", err)
	}
	return signed, nil
}

// Decode はトークンを検証してクレームを返す。
// 検証に失敗した場合は常にErrInvalidを返す。
func (c *Codec) Decode(tokenString string) (model.SessionClaims, error) {
	parsed, err := c.parse(tokenString)
	if err != nil {
		return model.SessionClaims{}, err
	}
	return model.SessionClaims{
		UserID:   parsed.UserID,
		Username: parsed.Username,
		Email:    parsed.Email,
	}, nil
}

// ExpiresAt はトークンを検証し、有効期限を返す。
// 検証に失敗した場合はErrInvalidを返す。
func (c *Codec) ExpiresAt(tokenString string) (time.Time, error) {
	parsed, err := c.parse(tokenString)
	if err != nil {
		return time.Time{}, err
	}
	return parsed.ExpiresAt.Time, nil
}

func (c *Codec) parse(tokenString string) (*sessionClaims, error) {
	if tokenString == "" {
		return nil, ErrInvalid
	}

	parsed := &sessionClaims{}
	tok, err := jwt.ParseWithClaims(tokenString, parsed,
		func(t *jwt.Token) (interface{}, error) {
			return c.secret, nil
		},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithIssuedAt(),
		jwt.WithTimeFunc(c.now),
	)
	if err != nil || !tok.Valid {
		return nil, ErrInvalid
	}

	if err := validateClaims(parsed); err != nil {
		return nil, ErrInvalid
	}
	return parsed, nil
}

// validateClaims は必須クレームの存在と形式を検証する。
func validateClaims(c *sessionClaims) error {
	if _, err := uuid.Parse(c.UserID); err != nil {
		return fmt.Errorf("userId is not a valid UUID: %w", err)
	}
	if c.Username == "" {
		return errors.New("username claim is missing")
	}
	if c.Email == "" {
		return errors.New("email claim is missing")
	}
	if c.IssuedAt == nil {
		return errors.New("iat claim is missing")
	}
	return nil
}

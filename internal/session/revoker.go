package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Revoker はログアウト済みトークンの失効リスト。
// トークン文字列ではなくSHA-256ハッシュをキーとして扱う。
type Revoker interface {
	Revoke(ctx context.Context, tokenHash string, expiresAt time.Time) error
	IsRevoked(ctx context.Context, tokenHash string) (bool, error)
}

// Mode はセッション終了方式を表す。
type Mode string

const (
	// ModeClientSideOnly はCookieの削除のみでセッションを終了する。
	// 漏えいしたトークンは有効期限まで使える。
	ModeClientSideOnly Mode = "none"
	// ModeRedis はRedis上の失効リストでトークンを即時無効化する。
	ModeRedis Mode = "redis"
	// ModePostgres はPostgreSQL上の失効リストでトークンを即時無効化する。
	ModePostgres Mode = "postgres"
)

// ParseMode は設定値からModeを解析する。空文字はModeClientSideOnlyとみなす。
func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case "", ModeClientSideOnly:
		return ModeClientSideOnly, nil
	case ModeRedis:
		return ModeRedis, nil
	case ModePostgres:
		return ModePostgres, nil
	default:
		return "", fmt.Errorf("unknown session revocation mode: %q", s)
	}
}

// NoRevocation はサーバー側の状態を持たないRevoker。
type NoRevocation struct{}

// Revoke は何もしない。
func (NoRevocation) Revoke(context.Context, string, time.Time) error { return nil }

// IsRevoked は常にfalseを返す。
func (NoRevocation) IsRevoked(context.Context, string) (bool, error) { return false, nil }

const redisKeyPrefix = "session:revoked:"

// RedisDenylist はRedisを使った失効リスト。
// キーのTTLをトークンの残り有効期間に合わせるため、掃除は不要。
type RedisDenylist struct {
	client redis.UniversalClient
	now    func() time.Time
}

// NewRedisDenylist はRedisDenylistを生成する。
func NewRedisDenylist(client redis.UniversalClient) *RedisDenylist {
	return &RedisDenylist{client: client, now: time.Now}
}

// Revoke はトークンを有効期限まで失効扱いにする。
// 既に期限切れのトークンは何もしない。
func (d *RedisDenylist) Revoke(ctx context.Context, tokenHash string, expiresAt time.Time) error {
	ttl := expiresAt.Sub(d.now())
	if ttl <= 0 {
		return nil
	}
	if err := d.client.Set(ctx, redisKeyPrefix+tokenHash, "1", ttl).Err(); err != nil {
		return fmt.Errorf("failed to store revoked session: %w", err)
	}
	return nil
}

// IsRevoked はトークンが失効リストに存在するかを返す。
func (d *RedisDenylist) IsRevoked(ctx context.Context, tokenHash string) (bool, error) {
	err := d.client.Get(ctx, redisKeyPrefix+tokenHash).Err()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to check revoked session: %w", err)
	}
	return true, nil
}

var (
	_ Revoker = NoRevocation{}
	_ Revoker = (*RedisDenylist)(nil)
)

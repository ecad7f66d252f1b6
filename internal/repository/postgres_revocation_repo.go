package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// PostgresRevocationRepo はPostgreSQLを使用した失効トークンリポジトリ。
// 期限切れのレコードはcleanupワーカーが削除する。
type PostgresRevocationRepo struct {
	db *sql.DB
}

// NewPostgresRevocationRepo はPostgresRevocationRepoを生成する。
func NewPostgresRevocationRepo(db *sql.DB) *PostgresRevocationRepo {
	return &PostgresRevocationRepo{db: db}
}

// Revoke はトークンを有効期限まで失効扱いにする。
// 同じトークンを複数回失効させてもエラーにならない。
func (r *PostgresRevocationRepo) Revoke(ctx context.Context, tokenHash string, expiresAt time.Time) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO revoked_sessions (token_hash, expires_at, revoked_at)
		 VALUES ($1, $2, now())
		 ON CONFLICT (token_hash) DO NOTHING`,
		tokenHash, expiresAt,
	)
	if err != nil {
		return fmt.Errorf("failed to revoke session: %w", err)
	}
	return nil
}

// IsRevoked はトークンが失効済みかどうかを返す。
func (r *PostgresRevocationRepo) IsRevoked(ctx context.Context, tokenHash string) (bool, error) {
	var exists bool
	err := r.db.QueryRowContext(ctx,
		`SELECT EXISTS (
		   SELECT 1 FROM revoked_sessions WHERE token_hash = $1 AND expires_at > now()
		 )`,
		tokenHash,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check session revocation: %w", err)
	}
	return exists, nil
}

// compile-time interface check
var _ RevocationRepository = (*PostgresRevocationRepo)(nil)

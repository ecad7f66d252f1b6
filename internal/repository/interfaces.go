// Package repository はデータ永続化のインターフェースを定義する。
package repository

import (
	"context"
	"errors"
	"time"

	"github.com/hitoshi/kakeibo/internal/model"
)

// ErrDuplicateUser はユーザー名またはメールアドレスが既に使われていることを表す。
var ErrDuplicateUser = errors.New("username or email already exists")

// UserRepository はユーザー認証情報の永続化インターフェース。
type UserRepository interface {
	// FindByUsernameOrEmail はusernameまたはemailが一致するユーザーを1件取得する。
	// 見つからない場合はnilを返す。
	FindByUsernameOrEmail(ctx context.Context, login string) (*model.User, error)

	// FindByID は指定IDのユーザーを取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.User, error)

	// Create はユーザーを作成する。
	// usernameまたはemailが重複する場合はErrDuplicateUserを返す。
	Create(ctx context.Context, user *model.User) error
}

// RevocationRepository は失効済みセッショントークンの永続化インターフェース。
// トークンそのものではなくハッシュ値を保存する。
type RevocationRepository interface {
	// Revoke はトークンを有効期限まで失効扱いにする。冪等。
	Revoke(ctx context.Context, tokenHash string, expiresAt time.Time) error

	// IsRevoked はトークンが失効済みかどうかを返す。期限切れのレコードは無視する。
	IsRevoked(ctx context.Context, tokenHash string) (bool, error)
}

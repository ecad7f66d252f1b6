// Package model はドメインモデルを定義する。
package model

import "time"

// User は家計簿を利用するユーザーの認証情報レコードを表す。
// usersテーブルの1行に対応する。
type User struct {
	ID           string
	Email        string
	Username     string
	PasswordHash string `json:"-"`
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// PublicUser はAPIレスポンスに含めてよいユーザー情報。
// パスワードハッシュは含まない。
type PublicUser struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	Username  string    `json:"username"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Public はUserから公開フィールドのみを取り出す。
func (u *User) Public() PublicUser {
	return PublicUser{
		ID:        u.ID,
		Email:     u.Email,
		Username:  u.Username,
		CreatedAt: u.CreatedAt,
		UpdatedAt: u.UpdatedAt,
	}
}

// Claims はログイン時点のユーザー情報からセッションクレームを作る。
func (u *User) Claims() SessionClaims {
	return SessionClaims{
		UserID:   u.ID,
		Username: u.Username,
		Email:    u.Email,
	}
}

// SessionClaims はセッショントークンに埋め込む識別情報。
// ログイン時のスナップショットであり、再ログインまで更新されない。
type SessionClaims struct {
	UserID   string
	Username string
	Email    string
}

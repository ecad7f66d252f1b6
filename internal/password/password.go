// Package password はbcryptによるパスワードハッシュの生成と検証を提供する。
package password

import (
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// MaxLength はbcryptが扱える平文パスワードの最大バイト数。
// これを超える部分は無視されるため、登録時に拒否する。
const MaxLength = 72

// DefaultCost はハッシュ生成時のコスト。
const DefaultCost = bcrypt.DefaultCost

// ErrMismatch はパスワードがハッシュと一致しないことを表す。
var ErrMismatch = errors.New("password does not match")

// dummyHash はユーザーが存在しない場合の照合に使うハッシュ。
// 存在しないユーザーでも同等の計算時間を消費させる。
var dummyHash = mustHash("kakeibo-dummy-password", DefaultCost)

// Hash は平文パスワードからbcryptハッシュを生成する。
func Hash(plain string, cost int) (string, error) {
	if len(plain) > MaxLength {
		return "", fmt.Errorf("password exceeds %d bytes", MaxLength)
	}
	h, err := bcrypt.GenerateFromPassword([]byte(plain), cost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(h), nil
}

// Verify は平文パスワードとハッシュを定数時間で照合する。
// 不一致の場合はErrMismatch、ハッシュ形式が不正な場合はそれ以外のエラーを返す。
// MaxLengthを超える平文は照合せずにErrMismatchとする。
func Verify(hash, plain string) error {
	if len(plain) > MaxLength {
		VerifyDummy(plain[:MaxLength])
		return ErrMismatch
	}
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(plain))
	if err == nil {
		return nil
	}
	if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
		return ErrMismatch
	}
	return fmt.Errorf("failed to verify password: %w", err)
}

// VerifyDummy はダミーハッシュとの照合を行い、結果を捨てる。
func VerifyDummy(plain string) {
	_ = bcrypt.CompareHashAndPassword([]byte(dummyHash), []byte(plain))
}

func mustHash(plain string, cost int) string {
	h, err := bcrypt.GenerateFromPassword([]byte(plain), cost)
	if err != nil {
		panic(err)
	}
	return string(h)
}

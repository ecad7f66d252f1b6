// Package auth はユーザー名・パスワードによる認証とユーザー登録を提供する。
package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/hitoshi/kakeibo/internal/model"
	"github.com/hitoshi/kakeibo/internal/password"
	"github.com/hitoshi/kakeibo/internal/repository"
)

// ユーザー登録時の入力制約
const (
	UsernameMinLength = 3
	UsernameMaxLength = 50
	PasswordMinLength = 8
)

// ServiceConfig は認証サービスの設定。
type ServiceConfig struct {
	PasswordCost int // bcryptのコスト（0の場合はpassword.DefaultCost）
}

// RegisterInput はユーザー登録の入力値。
type RegisterInput struct {
	Email    string
	Username string
	Password string
}

// Service は認証に関するビジネスロジックを提供する。
type Service struct {
	userRepo repository.UserRepository
	config   ServiceConfig
	now      func() time.Time
}

// NewService はServiceを生成する。
func NewService(userRepo repository.UserRepository, config ServiceConfig) *Service {
	if config.PasswordCost == 0 {
		config.PasswordCost = password.DefaultCost
	}
	return &Service{
		userRepo: userRepo,
		config:   config,
		now:      time.Now,
	}
}

// Login はユーザー名（またはメールアドレス）とパスワードを照合する。
// ユーザーが存在しない場合とパスワード不一致の場合は同一のエラーを返す。
// ユーザーが存在しない場合もダミーハッシュとの照合を行い、応答時間の差を抑える。
func (s *Service) Login(ctx context.Context, login, plain string) (*model.User, error) {
	if login == "" || plain == "" {
		return nil, model.NewMissingCredentialsError()
	}

	user, err := s.userRepo.FindByUsernameOrEmail(ctx, login)
	if err != nil {
		return nil, fmt.Errorf("failed to find user: %w", err)
	}
	if user == nil {
		password.VerifyDummy(plain)
		return nil, model.NewInvalidCredentialsError()
	}

	if err := password.Verify(user.PasswordHash, plain); err != nil {
		if errors.Is(err, password.ErrMismatch) {
			return nil, model.NewInvalidCredentialsError()
		}
		return nil, fmt.Errorf("failed to verify password for user %s: %w", user.ID, err)
	}

	slog.Info("user logged in", slog.String("user_id", user.ID))
	return user, nil
}

// Register は新しいユーザーを作成する。
// 入力値が不正な場合はINVALID_INPUT、ユーザー名またはメールアドレスが
// 登録済みの場合はUSER_EXISTSを返す。
func (s *Service) Register(ctx context.Context, in RegisterInput) (*model.User, error) {
	in.Email = strings.TrimSpace(in.Email)
	in.Username = strings.TrimSpace(in.Username)

	if err := validateRegisterInput(in); err != nil {
		return nil, err
	}

	hash, err := password.Hash(in.Password, s.config.PasswordCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	now := s.now().UTC()
	user := &model.User{
		ID:           uuid.New().String(),
		Email:        in.Email,
		Username:     in.Username,
		PasswordHash: hash,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.userRepo.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicateUser) {
			return nil, model.NewUserExistsError()
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	slog.Info("new user registered", slog.String("user_id", user.ID))
	return user, nil
}

// CurrentUser はセッションのユーザーIDからユーザーを取得する。
// セッション発行後にユーザーが削除された場合はUSER_NOT_FOUNDを返す。
func (s *Service) CurrentUser(ctx context.Context, userID string) (*model.User, error) {
	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to find user: %w", err)
	}
	if user == nil {
		return nil, model.NewUserNotFoundError()
	}
	return user, nil
}

func validateRegisterInput(in RegisterInput) error {
	if in.Email == "" || in.Username == "" || in.Password == "" {
		return model.NewInvalidInputError("メールアドレス、ユーザー名、パスワードは必須です")
	}
	if !strings.Contains(in.Email, "@") || len(in.Email) > 255 {
		return model.NewInvalidInputError("メールアドレスの形式が正しくありません")
	}
	if n := utf8.RuneCountInString(in.Username); n < UsernameMinLength || n > UsernameMaxLength {
		return model.NewInvalidInputError(
			fmt.Sprintf("ユーザー名は%d〜%d文字で入力してください", UsernameMinLength, UsernameMaxLength))
	}
	if len(in.Password) < PasswordMinLength {
		return model.NewInvalidInputError(
			fmt.Sprintf("パスワードは%d文字以上で入力してください", PasswordMinLength))
	}
	if len(in.Password) > password.MaxLength {
		return model.NewInvalidInputError(
			fmt.Sprintf("パスワードは%dバイト以下で入力してください", password.MaxLength))
	}
	return nil
}

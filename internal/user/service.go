// Package user はユーザーの解決（外部IDからローカルユーザーへの対応付け）を提供する。
package user

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/penguin2121/catalogOnline/internal/model"
	"github.com/penguin2121/catalogOnline/internal/repository"
)

// Service はユーザー管理のサービス層。
type Service struct {
	userRepo repository.UserRepository
}

// NewService はServiceの新しいインスタンスを生成する。
func NewService(userRepo repository.UserRepository) *Service {
	return &Service{userRepo: userRepo}
}

// ResolveOrCreateUser は検証済みの外部IDに対応するローカルユーザーのIDを返す。
// メールアドレスの完全一致で既存ユーザーを探し、見つかった場合はそのIDをそのまま返す。
// 既存ユーザーの表示名やアバターは更新しない。
// 見つからない場合は与えられた値でユーザーを作成する。1回の呼び出しで作成されるのは最大1件。
func (s *Service) ResolveOrCreateUser(ctx context.Context, email, name, picture string) (int64, error) {
	email = strings.TrimSpace(email)
	if email == "" {
		return 0, model.NewValidationError("email", "email is required")
	}

	existing, err := s.userRepo.FindByEmail(ctx, email)
	if err != nil {
		return 0, fmt.Errorf("failed to find user by email: %w", err)
	}
	if existing != nil {
		slog.Info("existing user logged in",
			slog.Int64("user_id", existing.ID),
		)
		return existing.ID, nil
	}

	u := &model.User{
		Email:   email,
		Name:    name,
		Picture: picture,
	}
	err = s.userRepo.Create(ctx, u)
	if errors.Is(err, repository.ErrEmailTaken) {
		// 同じユーザーの初回ログインが並行し、先に作成された
		return s.resolveAfterRace(ctx, email)
	}
	if err != nil {
		return 0, fmt.Errorf("failed to create user: %w", err)
	}

	slog.Info("new user created",
		slog.Int64("user_id", u.ID),
		slog.String("email", email),
	)
	return u.ID, nil
}

func (s *Service) resolveAfterRace(ctx context.Context, email string) (int64, error) {
	existing, err := s.userRepo.FindByEmail(ctx, email)
	if err != nil {
		return 0, fmt.Errorf("failed to find user by email: %w", err)
	}
	if existing == nil {
		return 0, fmt.Errorf("user %q vanished after unique violation: %w", email, model.ErrNotFound)
	}
	return existing.ID, nil
}

// Package user はユーザー管理のドメインロジックを提供する。
package user

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/hitoshi/biscuitblog/internal/model"
	"github.com/hitoshi/biscuitblog/internal/repository"
)

// SessionRevoker はユーザーの全セッションを破棄するインターフェース。
type SessionRevoker interface {
	DestroyAll(ctx context.Context, userID int64) error
}

// Service はユーザー管理のサービス層。
// 退会処理のビジネスロジックを提供する。
type Service struct {
	userRepo repository.UserRepository
	sessions SessionRevoker
}

// NewService はServiceの新しいインスタンスを生成する。
func NewService(userRepo repository.UserRepository, sessions SessionRevoker) *Service {
	return &Service{
		userRepo: userRepo,
		sessions: sessions,
	}
}

// Withdraw はユーザーの退会処理を実行する。
// 削除順序: sessions → user（+ CASCADE: posts, post_tags, memories）
// タグは所有者を持たない共有データとして残す。
func (s *Service) Withdraw(ctx context.Context, userID int64) error {
	// ユーザー存在確認
	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		return fmt.Errorf("ユーザーの取得に失敗しました: %w", err)
	}
	if user == nil {
		return model.NewUserNotFoundError()
	}

	slog.Info("退会処理を開始します",
		slog.Int64("user_id", userID),
	)

	// 1. セッションを削除（メモリストアはユーザー削除のCASCADEが及ばないため明示的に削除する）
	if s.sessions != nil {
		if err := s.sessions.DestroyAll(ctx, userID); err != nil {
			return fmt.Errorf("セッションの削除に失敗しました: %w", err)
		}
	}

	// 2. ユーザーを削除（posts, post_tags, memoriesはCASCADE削除）
	if err := s.userRepo.DeleteByID(ctx, userID); err != nil {
		return fmt.Errorf("ユーザーの削除に失敗しました: %w", err)
	}

	slog.Info("退会処理が完了しました",
		slog.Int64("user_id", userID),
	)

	return nil
}

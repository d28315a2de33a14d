// Package user はユーザープロフィール管理のドメインロジックを提供する。
package user

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/hitoshi/neocal/internal/model"
	"github.com/hitoshi/neocal/internal/repository"
)

// 1日の目標カロリーとして受け付ける範囲
const (
	MinDailyCalorieTarget = 1
	MaxDailyCalorieTarget = 20000
)

// Service はユーザープロフィールのサービス層。
type Service struct {
	userRepo repository.UserRepository
	logger   *slog.Logger
}

// NewService はServiceの新しいインスタンスを生成する。
func NewService(userRepo repository.UserRepository, logger *slog.Logger) *Service {
	return &Service{
		userRepo: userRepo,
		logger:   logger,
	}
}

// GetProfile はユーザーのプロフィールを取得する。
func (s *Service) GetProfile(ctx context.Context, userID string) (*model.User, error) {
	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("ユーザーの取得に失敗しました: %w", err)
	}
	if user == nil {
		return nil, model.NewUserNotFoundError()
	}
	return user, nil
}

// UpdateProfile は指定されたフィールドのみを更新し、更新後のプロフィールを返す。
// 更新対象が無い場合は現在のプロフィールをそのまま返す。
func (s *Service) UpdateProfile(ctx context.Context, userID string, update model.ProfileUpdate) (*model.User, error) {
	if err := ValidateProfileUpdate(update); err != nil {
		return nil, err
	}

	user, err := s.GetProfile(ctx, userID)
	if err != nil {
		return nil, err
	}
	if update.IsEmpty() {
		return user, nil
	}

	update.Apply(user)

	if err := s.userRepo.UpdateProfile(ctx, user); err != nil {
		return nil, fmt.Errorf("プロフィールの更新に失敗しました: %w", err)
	}

	s.logger.Info("プロフィールを更新しました",
		slog.String("user_id", userID),
		slog.Int("daily_calorie_target", user.DailyCalorieTarget),
		slog.String("timezone", user.Timezone),
	)
	return user, nil
}

// ValidateProfileUpdate は値が指定されたフィールドを検証する。
// nullはデフォルト値へのリセットなので検証しない。
func ValidateProfileUpdate(update model.ProfileUpdate) error {
	if v, ok := update.DailyCalorieTarget.Get(); ok {
		if v < MinDailyCalorieTarget || v > MaxDailyCalorieTarget {
			return model.NewValidationError("daily_calorie_target",
				fmt.Sprintf("%d から %d の範囲で指定してください", MinDailyCalorieTarget, MaxDailyCalorieTarget))
		}
	}
	if v, ok := update.Timezone.Get(); ok {
		if strings.TrimSpace(v) == "" {
			return model.NewValidationError("timezone", "空文字は指定できません")
		}
		if _, err := time.LoadLocation(v); err != nil {
			return model.NewValidationError("timezone", fmt.Sprintf("不明なタイムゾーンです: %s", v))
		}
	}
	return nil
}

// Package repository はデータ永続化のインターフェースを定義する。
package repository

import (
	"context"
	"time"

	"github.com/hitoshi/neocal/internal/model"
)

// UserRepository はユーザーデータの永続化インターフェース。
type UserRepository interface {
	// FindByID は指定IDのユーザーを取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.User, error)

	// Create はユーザーを作成する。
	Create(ctx context.Context, user *model.User) error

	// UpdateProfile はdaily_calorie_targetとtimezoneを更新する。
	// ユーザーが存在しない場合はUSER_NOT_FOUNDのAPIErrorを返す。
	UpdateProfile(ctx context.Context, user *model.User) error
}

// SessionRepository はセッションデータの永続化インターフェース。
type SessionRepository interface {
	// CreateWithUser はユーザーとセッションを同一トランザクションで作成する。
	CreateWithUser(ctx context.Context, user *model.User, session *model.Session) error

	// Create は既存ユーザーに対するセッションを作成する。
	Create(ctx context.Context, session *model.Session) error

	// FindByToken はトークンでセッションを取得する。見つからない場合はnilを返す。
	// 期限切れのセッションも返す。期限の判定は呼び出し側で行う。
	FindByToken(ctx context.Context, token string) (*model.Session, error)

	// DeleteByToken はトークンに対応するセッションを削除する。存在しなくてもエラーにしない。
	DeleteByToken(ctx context.Context, token string) error

	// DeleteExpired はbefore時点で期限切れのセッションを削除し、削除件数を返す。
	DeleteExpired(ctx context.Context, before time.Time) (int64, error)
}

// MealRepository は食事記録と食品の永続化インターフェース。
type MealRepository interface {
	// CreateWithFoodItems は食事と食品を同一トランザクションで作成する。
	// いずれかの挿入に失敗した場合は何も書き込まれない。
	CreateWithFoodItems(ctx context.Context, meal *model.Meal) error

	// FindByID は指定ユーザーの食事を食品付きで取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, userID, mealID string) (*model.Meal, error)

	// ListByUserBetween は[from, to)に記録された食事を食品付きで記録時刻の昇順に返す。
	ListByUserBetween(ctx context.Context, userID string, from, to time.Time) ([]*model.Meal, error)

	// SumByUserBetween は[from, to)に記録された食事の栄養合計を返す。
	SumByUserBetween(ctx context.Context, userID string, from, to time.Time) (*model.NutritionTotals, error)
}

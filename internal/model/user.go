// Package model はドメインモデルを定義する。
package model

import "time"

const (
	// DefaultDailyCalorieTarget はユーザー作成時の1日の目標カロリー。
	DefaultDailyCalorieTarget = 2000
	// DefaultTimezone はユーザー作成時のタイムゾーン。
	DefaultTimezone = "UTC"
)

// User はサービス利用ユーザーを表す。
// 匿名セッション発行時に作成され、定義済みの操作では削除されない。
type User struct {
	ID                 string
	DailyCalorieTarget int
	Timezone           string
	CreatedAt          time.Time
}

// NewUser はデフォルト値を設定したUserを生成する。
func NewUser(id string, now time.Time) *User {
	return &User{
		ID:                 id,
		DailyCalorieTarget: DefaultDailyCalorieTarget,
		Timezone:           DefaultTimezone,
		CreatedAt:          now,
	}
}

// Location はユーザーのタイムゾーンを*time.Locationとして返す。
// 読み込めないタイムゾーン名の場合はUTCを返す。
func (u *User) Location() *time.Location {
	loc, err := time.LoadLocation(u.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// Session はBearerトークンとユーザーを紐付ける認証情報を表す。
type Session struct {
	ID        string
	Token     string
	UserID    string
	CreatedAt time.Time
	ExpiresAt time.Time
}

// IsExpired は指定時刻の時点でセッションが期限切れかどうかを返す。
func (s *Session) IsExpired(now time.Time) bool {
	return !now.Before(s.ExpiresAt)
}

// ProfileUpdate はプロフィールの部分更新内容を表す。
// Setでないフィールドは変更しない。Nullはデフォルト値へのリセットを意味する。
type ProfileUpdate struct {
	DailyCalorieTarget Optional[int]
	Timezone           Optional[string]
}

// Apply は部分更新をユーザーに適用する。
func (p ProfileUpdate) Apply(u *User) {
	if p.DailyCalorieTarget.Set {
		if p.DailyCalorieTarget.Null {
			u.DailyCalorieTarget = DefaultDailyCalorieTarget
		} else {
			u.DailyCalorieTarget = p.DailyCalorieTarget.Value
		}
	}
	if p.Timezone.Set {
		if p.Timezone.Null {
			u.Timezone = DefaultTimezone
		} else {
			u.Timezone = p.Timezone.Value
		}
	}
}

// IsEmpty は更新対象のフィールドが1つもないかを返す。
func (p ProfileUpdate) IsEmpty() bool {
	return !p.DailyCalorieTarget.Set && !p.Timezone.Set
}

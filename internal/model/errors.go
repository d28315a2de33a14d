// Package model はドメインモデルを定義する。
package model

import "fmt"

// APIError は統一エラーフォーマットを表す。
// Categoryはクライアントが機械的に判別するためのエラー種別として扱う。
type APIError struct {
	Code     string // エラーコード
	Message  string // エラーメッセージ
	Category string // 種別: validation, not_found, auth, recognition, conflict, persistence, rate_limit
	Action   string // ユーザー向け対処方法
}

// Error はerrorインターフェースを実装する。
func (e *APIError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// エラー種別
const (
	CategoryValidation  = "validation"
	CategoryNotFound    = "not_found"
	CategoryAuth        = "auth"
	CategoryRecognition = "recognition"
	CategoryConflict    = "conflict"
	CategoryPersistence = "persistence"
	CategoryRateLimit   = "rate_limit"
)

// 定義済みエラーコード
const (
	ErrCodeValidation        = "VALIDATION_ERROR"
	ErrCodeInvalidRequest    = "INVALID_REQUEST"
	ErrCodeInvalidDate       = "INVALID_DATE"
	ErrCodeUserNotFound      = "USER_NOT_FOUND"
	ErrCodeMealNotFound      = "MEAL_NOT_FOUND"
	ErrCodeUnauthorized      = "UNAUTHORIZED"
	ErrCodeSessionExpired    = "SESSION_EXPIRED"
	ErrCodeForbidden         = "FORBIDDEN"
	ErrCodeRecognitionFailed = "RECOGNITION_FAILED"
	ErrCodeConflict          = "CONFLICT"
	ErrCodeInternal          = "INTERNAL_ERROR"
	ErrCodeRateLimitExceeded = "RATE_LIMIT_EXCEEDED"
)

// NewValidationError は入力値の検証エラーを生成する。
func NewValidationError(field, reason string) *APIError {
	return &APIError{
		Code:     ErrCodeValidation,
		Message:  fmt.Sprintf("%s が不正です: %s", field, reason),
		Category: CategoryValidation,
		Action:   "入力内容を確認してください。",
	}
}

// NewInvalidRequestError はリクエストボディの解析失敗エラーを生成する。
func NewInvalidRequestError() *APIError {
	return &APIError{
		Code:     ErrCodeInvalidRequest,
		Message:  "リクエストボディの解析に失敗しました。",
		Category: CategoryValidation,
		Action:   "正しいJSON形式でリクエストしてください。",
	}
}

// NewInvalidDateError は日付パラメータの形式エラーを生成する。
func NewInvalidDateError(date string) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidDate,
		Message:  fmt.Sprintf("無効な日付です: %s", date),
		Category: CategoryValidation,
		Action:   "日付は YYYY-MM-DD 形式で指定してください。",
	}
}

// NewUserNotFoundError はユーザーが見つからない場合のエラーを生成する。
func NewUserNotFoundError() *APIError {
	return &APIError{
		Code:     ErrCodeUserNotFound,
		Message:  "ユーザーが見つかりません。",
		Category: CategoryNotFound,
		Action:   "新しいセッションを発行し直してください。",
	}
}

// NewMealNotFoundError は食事記録が見つからない場合のエラーを生成する。
func NewMealNotFoundError(mealID string) *APIError {
	return &APIError{
		Code:     ErrCodeMealNotFound,
		Message:  fmt.Sprintf("指定された食事記録が見つかりません: %s", mealID),
		Category: CategoryNotFound,
		Action:   "食事記録IDを確認してください。",
	}
}

// NewUnauthorizedError はトークンが無い、または無効な場合のエラーを生成する。
func NewUnauthorizedError() *APIError {
	return &APIError{
		Code:     ErrCodeUnauthorized,
		Message:  "認証が必要です。",
		Category: CategoryAuth,
		Action:   "匿名セッションを発行し、トークンを付与してリクエストしてください。",
	}
}

// NewSessionExpiredError はトークンの有効期限切れエラーを生成する。
func NewSessionExpiredError() *APIError {
	return &APIError{
		Code:     ErrCodeSessionExpired,
		Message:  "セッションの有効期限が切れています。",
		Category: CategoryAuth,
		Action:   "新しいセッションを発行してください。",
	}
}

// NewForbiddenError は他ユーザーのリソースへのアクセスエラーを生成する。
func NewForbiddenError() *APIError {
	return &APIError{
		Code:     ErrCodeForbidden,
		Message:  "このリソースへのアクセス権がありません。",
		Category: CategoryAuth,
		Action:   "自分のユーザーIDを指定してください。",
	}
}

// NewRecognitionError は食品認識サービスが食品を返さなかった場合のエラーを生成する。
func NewRecognitionError(reason string) *APIError {
	return &APIError{
		Code:     ErrCodeRecognitionFailed,
		Message:  fmt.Sprintf("食品を認識できませんでした: %s", reason),
		Category: CategoryRecognition,
		Action:   "入力内容をより具体的にするか、別の方法で記録してください。",
	}
}

// NewConflictError は一意制約違反のエラーを生成する。
func NewConflictError(resource string) *APIError {
	return &APIError{
		Code:     ErrCodeConflict,
		Message:  fmt.Sprintf("%s が既に存在します。", resource),
		Category: CategoryConflict,
		Action:   "しばらく待ってから再度お試しください。",
	}
}

// NewInternalError は内部エラー（DB接続・トランザクション失敗など）を生成する。
// 詳細はログのみに記録し、ユーザーには一般的なメッセージを返す。
func NewInternalError() *APIError {
	return &APIError{
		Code:     ErrCodeInternal,
		Message:  "内部エラーが発生しました。",
		Category: CategoryPersistence,
		Action:   "しばらく待ってから再度お試しください。",
	}
}

// NewRateLimitError はレート制限超過エラーを生成する。
func NewRateLimitError() *APIError {
	return &APIError{
		Code:     ErrCodeRateLimitExceeded,
		Message:  "リクエストが多すぎます。",
		Category: CategoryRateLimit,
		Action:   "指定された時間が経過してから再度お試しください。",
	}
}

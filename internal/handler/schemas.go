package handler

import (
	"time"

	"github.com/hitoshi/neocal/internal/meal"
	"github.com/hitoshi/neocal/internal/model"
)

// --- リクエスト ---

// profileUpdateRequest はプロフィール部分更新のリクエストボディ。
// 各フィールドは「未指定」「null」「値あり」の3状態を区別する。
type profileUpdateRequest struct {
	DailyCalorieTarget model.Optional[int]    `json:"daily_calorie_target"`
	Timezone           model.Optional[string] `json:"timezone"`
}

func (r profileUpdateRequest) toProfileUpdate() model.ProfileUpdate {
	return model.ProfileUpdate{
		DailyCalorieTarget: r.DailyCalorieTarget,
		Timezone:           r.Timezone,
	}
}

// textMealRequest はテキストからの食事記録リクエスト。
type textMealRequest struct {
	Description string `json:"description"`
}

// imageMealRequest は画像URLからの食事記録リクエスト。
type imageMealRequest struct {
	ImageURL string `json:"image_url"`
}

// barcodeMealRequest はバーコードからの食事記録リクエスト。
// servingsは省略時1。
type barcodeMealRequest struct {
	Barcode            string `json:"barcode"`
	ServingDescription string `json:"serving_description"`
	Servings           *int   `json:"servings"`
}

// --- レスポンス ---

// anonymousSessionResponse は匿名セッション発行のレスポンス。
type anonymousSessionResponse struct {
	Token     string    `json:"token"`
	UserID    string    `json:"user_id"`
	ExpiresAt time.Time `json:"expires_at"`
}

// userProfileResponse はユーザープロフィールのレスポンス。
type userProfileResponse struct {
	UserID             string `json:"user_id"`
	DailyCalorieTarget int    `json:"daily_calorie_target"`
	Timezone           string `json:"timezone"`
}

// macrosResponse は三大栄養素のレスポンス。
type macrosResponse struct {
	ProteinG float64 `json:"protein_g"`
	CarbsG   float64 `json:"carbs_g"`
	FatG     float64 `json:"fat_g"`
}

// foodResponse は食品1件のレスポンス。
type foodResponse struct {
	Name       string  `json:"name"`
	Grams      float64 `json:"grams"`
	Calories   float64 `json:"calories"`
	ProteinG   float64 `json:"protein_g"`
	CarbsG     float64 `json:"carbs_g"`
	FatG       float64 `json:"fat_g"`
	ModelLabel string  `json:"model_label"`
	Confidence float64 `json:"confidence"`
}

// mealResponse は食事記録のレスポンス。
type mealResponse struct {
	MealID          string         `json:"meal_id"`
	Timestamp       string         `json:"timestamp"`
	Source          string         `json:"source"`
	OriginalInput   string         `json:"original_input"`
	Foods           []foodResponse `json:"foods"`
	TotalCalories   float64        `json:"total_calories"`
	TotalMacros     macrosResponse `json:"total_macros"`
	ConfidenceScore float64        `json:"confidence_score"`
}

// mealListResponse は1日分の食事一覧のレスポンス。
type mealListResponse struct {
	Date  string         `json:"date"`
	Meals []mealResponse `json:"meals"`
}

// dailySummaryResponse は日次集計のレスポンス。
type dailySummaryResponse struct {
	Date              string         `json:"date"`
	TotalCalories     float64        `json:"total_calories"`
	TotalMacros       macrosResponse `json:"total_macros"`
	RemainingCalories float64        `json:"remaining_calories"`
	MealCount         int            `json:"meal_count"`
}

// --- 変換 ---

func toAnonymousSessionResponse(s *model.Session) anonymousSessionResponse {
	return anonymousSessionResponse{
		Token:     s.Token,
		UserID:    s.UserID,
		ExpiresAt: s.ExpiresAt.UTC(),
	}
}

func toUserProfileResponse(u *model.User) userProfileResponse {
	return userProfileResponse{
		UserID:             u.ID,
		DailyCalorieTarget: u.DailyCalorieTarget,
		Timezone:           u.Timezone,
	}
}

func toMacrosResponse(m model.Macros) macrosResponse {
	return macrosResponse{
		ProteinG: round2(m.ProteinG),
		CarbsG:   round2(m.CarbsG),
		FatG:     round2(m.FatG),
	}
}

func toMealResponse(m *model.Meal) mealResponse {
	foods := make([]foodResponse, len(m.FoodItems))
	for i, f := range m.FoodItems {
		foods[i] = foodResponse{
			Name:       f.Name,
			Grams:      f.Grams,
			Calories:   f.Calories,
			ProteinG:   f.Macros.ProteinG,
			CarbsG:     f.Macros.CarbsG,
			FatG:       f.Macros.FatG,
			ModelLabel: f.ModelLabel,
			Confidence: f.Confidence,
		}
	}

	return mealResponse{
		MealID:          m.ID,
		Timestamp:       m.Timestamp.UTC().Format(time.RFC3339),
		Source:          string(m.Source),
		OriginalInput:   m.OriginalInput,
		Foods:           foods,
		TotalCalories:   round2(m.TotalCalories()),
		TotalMacros:     toMacrosResponse(m.TotalMacros()),
		ConfidenceScore: round2(m.ConfidenceScore),
	}
}

func toMealListResponse(day *meal.DayMeals) mealListResponse {
	meals := make([]mealResponse, len(day.Meals))
	for i, m := range day.Meals {
		meals[i] = toMealResponse(m)
	}
	return mealListResponse{Date: day.Date, Meals: meals}
}

func toDailySummaryResponse(s *model.DailySummary) dailySummaryResponse {
	return dailySummaryResponse{
		Date:              s.Date,
		TotalCalories:     round2(s.TotalCalories),
		TotalMacros:       toMacrosResponse(s.TotalMacros),
		RemainingCalories: round2(s.RemainingCalories),
		MealCount:         s.MealCount,
	}
}

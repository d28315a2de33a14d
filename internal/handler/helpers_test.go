package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/neocal/internal/meal"
	"github.com/hitoshi/neocal/internal/middleware"
	"github.com/hitoshi/neocal/internal/model"
)

// --- モックサービス ---

type mockAuthService struct {
	createAnonymousSessionFn func(ctx context.Context, presentedToken string) (*model.Session, error)
	logoutFn                 func(ctx context.Context, token string) error
}

func (m *mockAuthService) CreateAnonymousSession(ctx context.Context, presentedToken string) (*model.Session, error) {
	return m.createAnonymousSessionFn(ctx, presentedToken)
}

func (m *mockAuthService) Logout(ctx context.Context, token string) error {
	return m.logoutFn(ctx, token)
}

type mockUserService struct {
	getProfileFn    func(ctx context.Context, userID string) (*model.User, error)
	updateProfileFn func(ctx context.Context, userID string, update model.ProfileUpdate) (*model.User, error)
}

func (m *mockUserService) GetProfile(ctx context.Context, userID string) (*model.User, error) {
	return m.getProfileFn(ctx, userID)
}

func (m *mockUserService) UpdateProfile(ctx context.Context, userID string, update model.ProfileUpdate) (*model.User, error) {
	return m.updateProfileFn(ctx, userID, update)
}

type mockMealService struct {
	logTextFn      func(ctx context.Context, userID, description string) (*model.Meal, error)
	logImageFn     func(ctx context.Context, userID, imageURL string) (*model.Meal, error)
	logBarcodeFn   func(ctx context.Context, userID string, in meal.BarcodeInput) (*model.Meal, error)
	getMealFn      func(ctx context.Context, userID, mealID string) (*model.Meal, error)
	listByDateFn   func(ctx context.Context, userID, date string) (*meal.DayMeals, error)
	dailySummaryFn func(ctx context.Context, userID, date string) (*model.DailySummary, error)
}

func (m *mockMealService) LogText(ctx context.Context, userID, description string) (*model.Meal, error) {
	return m.logTextFn(ctx, userID, description)
}

func (m *mockMealService) LogImage(ctx context.Context, userID, imageURL string) (*model.Meal, error) {
	return m.logImageFn(ctx, userID, imageURL)
}

func (m *mockMealService) LogBarcode(ctx context.Context, userID string, in meal.BarcodeInput) (*model.Meal, error) {
	return m.logBarcodeFn(ctx, userID, in)
}

func (m *mockMealService) GetMeal(ctx context.Context, userID, mealID string) (*model.Meal, error) {
	return m.getMealFn(ctx, userID, mealID)
}

func (m *mockMealService) ListByDate(ctx context.Context, userID, date string) (*meal.DayMeals, error) {
	return m.listByDateFn(ctx, userID, date)
}

func (m *mockMealService) DailySummary(ctx context.Context, userID, date string) (*model.DailySummary, error) {
	return m.dailySummaryFn(ctx, userID, date)
}

// --- ヘルパー ---

// withUserID はリクエストのコンテキストに認証済みユーザーIDを設定する。
func withUserID(r *http.Request, userID string) *http.Request {
	return r.WithContext(middleware.ContextWithUserID(r.Context(), userID))
}

// withChiURLParam はchiのURLパラメータを設定する。
func withChiURLParam(r *http.Request, key, value string) *http.Request {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add(key, value)
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

// parseAPIErrorResponse はエラーレスポンスのボディをパースする。
func parseAPIErrorResponse(t *testing.T, rec *httptest.ResponseRecorder) middleware.ErrorResponseBody {
	t.Helper()
	var body middleware.ErrorResponseBody
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode error response: %v", err)
	}
	return body
}

// sampleMeal は「卵2個とトースト」の記録結果を返す。
func sampleMeal(userID string) *model.Meal {
	return &model.Meal{
		ID:              "meal-1",
		UserID:          userID,
		Timestamp:       time.Date(2024, 3, 15, 8, 30, 0, 0, time.UTC),
		Source:          model.MealSourceText,
		OriginalInput:   "two eggs and toast",
		ConfidenceScore: 0.875,
		FoodItems: []model.FoodItem{
			{
				ID: "food-1", MealID: "meal-1", Position: 0, Name: "egg", Grams: 100, Calories: 155,
				Macros: model.Macros{ProteinG: 13, CarbsG: 1.1, FatG: 11}, ModelLabel: "egg_boiled", Confidence: 0.9,
			},
			{
				ID: "food-2", MealID: "meal-1", Position: 1, Name: "toast", Grams: 30, Calories: 80,
				Macros: model.Macros{ProteinG: 3, CarbsG: 15, FatG: 1}, ModelLabel: "toast_white", Confidence: 0.85,
			},
		},
	}
}

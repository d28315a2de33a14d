package handler

import (
	"context"
	"net/http"
	"net/url"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/neocal/internal/meal"
	"github.com/hitoshi/neocal/internal/model"
)

// MealServiceInterface は食事ハンドラーが必要とするサービスインターフェース。
type MealServiceInterface interface {
	LogText(ctx context.Context, userID, description string) (*model.Meal, error)
	LogImage(ctx context.Context, userID, imageURL string) (*model.Meal, error)
	LogBarcode(ctx context.Context, userID string, in meal.BarcodeInput) (*model.Meal, error)
	GetMeal(ctx context.Context, userID, mealID string) (*model.Meal, error)
	ListByDate(ctx context.Context, userID, date string) (*meal.DayMeals, error)
	DailySummary(ctx context.Context, userID, date string) (*model.DailySummary, error)
}

// MealHandler は食事記録のHTTPハンドラー。
type MealHandler struct {
	service MealServiceInterface
}

// NewMealHandler はMealHandlerを生成する。
func NewMealHandler(service MealServiceInterface) *MealHandler {
	return &MealHandler{
		service: service,
	}
}

// LogText はテキスト説明から食事を記録する。
// POST /meals/text
func (h *MealHandler) LogText(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	var req textMealRequest
	if apiErr := decodeJSONBody(r, &req); apiErr != nil {
		writeAPIErrorResponse(w, http.StatusBadRequest, apiErr)
		return
	}
	if strings.TrimSpace(req.Description) == "" {
		writeAPIErrorResponse(w, http.StatusBadRequest, model.NewValidationError("description", "必須です"))
		return
	}

	m, err := h.service.LogText(r.Context(), userID, req.Description)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, toMealResponse(m))
}

// LogImage は画像URLから食事を記録する。
// POST /meals/image
func (h *MealHandler) LogImage(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	var req imageMealRequest
	if apiErr := decodeJSONBody(r, &req); apiErr != nil {
		writeAPIErrorResponse(w, http.StatusBadRequest, apiErr)
		return
	}
	req.ImageURL = strings.TrimSpace(req.ImageURL)
	if !isAbsoluteHTTPURL(req.ImageURL) {
		writeAPIErrorResponse(w, http.StatusBadRequest, model.NewValidationError("image_url", "http(s)の絶対URLを指定してください"))
		return
	}

	m, err := h.service.LogImage(r.Context(), userID, req.ImageURL)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, toMealResponse(m))
}

// LogBarcode はバーコードから食事を記録する。
// POST /meals/barcode
func (h *MealHandler) LogBarcode(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	var req barcodeMealRequest
	if apiErr := decodeJSONBody(r, &req); apiErr != nil {
		writeAPIErrorResponse(w, http.StatusBadRequest, apiErr)
		return
	}
	if strings.TrimSpace(req.Barcode) == "" {
		writeAPIErrorResponse(w, http.StatusBadRequest, model.NewValidationError("barcode", "必須です"))
		return
	}

	servings := 1
	if req.Servings != nil {
		servings = *req.Servings
	}
	if servings < 1 {
		writeAPIErrorResponse(w, http.StatusBadRequest, model.NewValidationError("servings", "1以上を指定してください"))
		return
	}

	m, err := h.service.LogBarcode(r.Context(), userID, meal.BarcodeInput{
		Barcode:            req.Barcode,
		ServingDescription: req.ServingDescription,
		Servings:           servings,
	})
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, toMealResponse(m))
}

// GetMeal は食事記録を1件返す。
// GET /meals/{meal_id}
func (h *MealHandler) GetMeal(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	m, err := h.service.GetMeal(r.Context(), userID, chi.URLParam(r, "meal_id"))
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toMealResponse(m))
}

// ListMeals は指定日の食事一覧を返す。dateを省略した場合は今日。
// GET /meals?date=YYYY-MM-DD
func (h *MealHandler) ListMeals(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	day, err := h.service.ListByDate(r.Context(), userID, r.URL.Query().Get("date"))
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toMealListResponse(day))
}

// DailySummary は指定日の栄養集計を返す。dateを省略した場合は今日。
// GET /meals/daily-summary?date=YYYY-MM-DD
func (h *MealHandler) DailySummary(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	summary, err := h.service.DailySummary(r.Context(), userID, r.URL.Query().Get("date"))
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toDailySummaryResponse(summary))
}

// isAbsoluteHTTPURL はhttp/httpsスキームとホストを持つ絶対URLかどうかを返す。
func isAbsoluteHTTPURL(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return false
	}
	scheme := strings.ToLower(u.Scheme)
	return scheme == "http" || scheme == "https"
}

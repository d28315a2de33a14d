package meal

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"math"
	"testing"
	"time"

	"github.com/hitoshi/neocal/internal/model"
	"github.com/hitoshi/neocal/internal/recognition"
	"github.com/hitoshi/neocal/internal/repository"
	"github.com/hitoshi/neocal/internal/security"
)

// --- モック定義 ---

type mockRecognizer struct {
	textFn    func(ctx context.Context, description string) (*recognition.Result, error)
	imageFn   func(ctx context.Context, imageURL string) (*recognition.Result, error)
	barcodeFn func(ctx context.Context, q recognition.BarcodeQuery) (*recognition.Result, error)
}

func (m *mockRecognizer) RecognizeText(ctx context.Context, description string) (*recognition.Result, error) {
	if m.textFn != nil {
		return m.textFn(ctx, description)
	}
	return &recognition.Result{}, nil
}

func (m *mockRecognizer) RecognizeImage(ctx context.Context, imageURL string) (*recognition.Result, error) {
	if m.imageFn != nil {
		return m.imageFn(ctx, imageURL)
	}
	return &recognition.Result{}, nil
}

func (m *mockRecognizer) RecognizeBarcode(ctx context.Context, q recognition.BarcodeQuery) (*recognition.Result, error) {
	if m.barcodeFn != nil {
		return m.barcodeFn(ctx, q)
	}
	return &recognition.Result{}, nil
}

type mockMealRepo struct {
	created []*model.Meal

	createFn func(ctx context.Context, meal *model.Meal) error
	findFn   func(ctx context.Context, userID, mealID string) (*model.Meal, error)
	listFn   func(ctx context.Context, userID string, from, to time.Time) ([]*model.Meal, error)
	sumFn    func(ctx context.Context, userID string, from, to time.Time) (*model.NutritionTotals, error)
}

func (m *mockMealRepo) CreateWithFoodItems(ctx context.Context, meal *model.Meal) error {
	if m.createFn != nil {
		if err := m.createFn(ctx, meal); err != nil {
			return err
		}
	}
	m.created = append(m.created, meal)
	return nil
}

func (m *mockMealRepo) FindByID(ctx context.Context, userID, mealID string) (*model.Meal, error) {
	if m.findFn != nil {
		return m.findFn(ctx, userID, mealID)
	}
	return nil, nil
}

func (m *mockMealRepo) ListByUserBetween(ctx context.Context, userID string, from, to time.Time) ([]*model.Meal, error) {
	if m.listFn != nil {
		return m.listFn(ctx, userID, from, to)
	}
	return []*model.Meal{}, nil
}

func (m *mockMealRepo) SumByUserBetween(ctx context.Context, userID string, from, to time.Time) (*model.NutritionTotals, error) {
	if m.sumFn != nil {
		return m.sumFn(ctx, userID, from, to)
	}
	return &model.NutritionTotals{}, nil
}

var _ repository.MealRepository = (*mockMealRepo)(nil)

type mockUserRepo struct {
	user *model.User
}

func (m *mockUserRepo) FindByID(_ context.Context, id string) (*model.User, error) {
	if m.user == nil || m.user.ID != id {
		return nil, nil
	}
	u := *m.user
	return &u, nil
}

func (m *mockUserRepo) Create(_ context.Context, _ *model.User) error { return nil }
func (m *mockUserRepo) UpdateProfile(_ context.Context, _ *model.User) error { return nil }

type mockURLGuard struct {
	validateFn func(rawURL string) error
	probeFn    func(ctx context.Context, rawURL string) error
}

func (m *mockURLGuard) ValidateURL(rawURL string) error {
	if m.validateFn != nil {
		return m.validateFn(rawURL)
	}
	return nil
}

func (m *mockURLGuard) ProbeImage(ctx context.Context, rawURL string) error {
	if m.probeFn != nil {
		return m.probeFn(ctx, rawURL)
	}
	return nil
}

type mockMealMetrics struct {
	logged    map[string]int
	foodCount int
	failures  []string
	latencies int
}

func (m *mockMealMetrics) RecordMealLogged(source string, foodCount int) {
	if m.logged == nil {
		m.logged = map[string]int{}
	}
	m.logged[source]++
	m.foodCount += foodCount
}

func (m *mockMealMetrics) RecordRecognitionFailure(source string, reason string) {
	m.failures = append(m.failures, source+":"+reason)
}

func (m *mockMealMetrics) RecordRecognitionLatency(_ string, _ time.Duration) {
	m.latencies++
}

// --- ヘルパー ---

var fixedNow = time.Date(2024, 3, 15, 1, 30, 0, 0, time.UTC)

type testDeps struct {
	recognizer *mockRecognizer
	mealRepo   *mockMealRepo
	userRepo   *mockUserRepo
	guard      security.SSRFGuardService
	metrics    *mockMealMetrics
	config     ServiceConfig
}

func newTestDeps() *testDeps {
	return &testDeps{
		recognizer: &mockRecognizer{},
		mealRepo:   &mockMealRepo{},
		userRepo: &mockUserRepo{user: &model.User{
			ID:                 "user-1",
			DailyCalorieTarget: 2000,
			Timezone:           "UTC",
		}},
		guard:   security.NewSSRFGuard(time.Second),
		metrics: &mockMealMetrics{},
	}
}

func (d *testDeps) service() *Service {
	var buf bytes.Buffer
	svc := NewService(d.mealRepo, d.userRepo, d.recognizer, security.NewTextSanitizer(), d.guard,
		d.metrics, d.config, slog.New(slog.NewJSONHandler(&buf, nil)))
	svc.nowFunc = func() time.Time { return fixedNow }
	return svc
}

// eggsAndToast は「two eggs and toast」の認識結果。
func eggsAndToast() *recognition.Result {
	return &recognition.Result{Foods: []recognition.Food{
		{Name: "Egg", Grams: 100, Calories: 155, ProteinG: 13, CarbsG: 1.1, FatG: 11, ModelLabel: "egg", Confidence: 0.9},
		{Name: "Toast", Grams: 30, Calories: 80, ProteinG: 3, CarbsG: 15, FatG: 1, ModelLabel: "toast", Confidence: 0.85},
	}}
}

func approxEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func assertAPIErrorCode(t *testing.T, err error, code string) {
	t.Helper()
	var apiErr *model.APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected *model.APIError, got %v", err)
	}
	if apiErr.Code != code {
		t.Errorf("code = %q, want %q", apiErr.Code, code)
	}
}

// --- LogText ---

func TestLogText_TwoEggsAndToast(t *testing.T) {
	d := newTestDeps()
	var gotDescription string
	d.recognizer.textFn = func(ctx context.Context, description string) (*recognition.Result, error) {
		gotDescription = description
		return eggsAndToast(), nil
	}
	svc := d.service()

	meal, err := svc.LogText(context.Background(), "user-1", "two eggs and toast")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	if gotDescription != "two eggs and toast" {
		t.Errorf("description = %q, want %q", gotDescription, "two eggs and toast")
	}
	if len(d.mealRepo.created) != 1 {
		t.Fatalf("created meals = %d, want 1", len(d.mealRepo.created))
	}
	if len(meal.FoodItems) != 2 {
		t.Fatalf("food items = %d, want 2", len(meal.FoodItems))
	}
	if !approxEqual(meal.TotalCalories(), 235) {
		t.Errorf("TotalCalories = %v, want 235", meal.TotalCalories())
	}
	macros := meal.TotalMacros()
	if !approxEqual(macros.ProteinG, 16) || !approxEqual(macros.CarbsG, 16.1) || !approxEqual(macros.FatG, 12) {
		t.Errorf("TotalMacros = %+v, want {16 16.1 12}", macros)
	}
	if !approxEqual(meal.ConfidenceScore, 0.875) {
		t.Errorf("ConfidenceScore = %v, want 0.875", meal.ConfidenceScore)
	}
	if meal.Source != model.MealSourceText || meal.OriginalInput != "two eggs and toast" {
		t.Errorf("source/input = %q/%q", meal.Source, meal.OriginalInput)
	}
	if !meal.Timestamp.Equal(fixedNow) {
		t.Errorf("Timestamp = %v, want %v", meal.Timestamp, fixedNow)
	}
	for i, item := range meal.FoodItems {
		if item.MealID != meal.ID || item.Position != i || item.ID == "" {
			t.Errorf("item %d = %+v, want meal id %s and position %d", i, item, meal.ID, i)
		}
	}
	if d.metrics.logged["text"] != 1 || d.metrics.foodCount != 2 {
		t.Errorf("metrics = %+v, want one text meal with two foods", d.metrics)
	}
}

func TestLogText_SanitizesMarkupBeforeRecognition(t *testing.T) {
	d := newTestDeps()
	var gotDescription string
	d.recognizer.textFn = func(ctx context.Context, description string) (*recognition.Result, error) {
		gotDescription = description
		return eggsAndToast(), nil
	}

	meal, err := d.service().LogText(context.Background(), "user-1", "<b>rice</b>  &amp; beans<script>x()</script>")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if gotDescription != "rice & beans" {
		t.Errorf("description = %q, want %q", gotDescription, "rice & beans")
	}
	if meal.OriginalInput != "rice & beans" {
		t.Errorf("OriginalInput = %q, want %q", meal.OriginalInput, "rice & beans")
	}
}

func TestLogText_BlankDescription_ValidationErrorWithoutRecognition(t *testing.T) {
	d := newTestDeps()
	d.recognizer.textFn = func(ctx context.Context, description string) (*recognition.Result, error) {
		t.Error("recognizer should not be called")
		return nil, nil
	}

	_, err := d.service().LogText(context.Background(), "user-1", "  <p> </p> ")
	assertAPIErrorCode(t, err, model.ErrCodeValidation)
}

// TestLogText_ZeroFoods_NoRowsWritten は食品0件の場合に何も保存されないことを検証する。
func TestLogText_ZeroFoods_NoRowsWritten(t *testing.T) {
	d := newTestDeps()
	d.recognizer.textFn = func(ctx context.Context, description string) (*recognition.Result, error) {
		return &recognition.Result{Foods: []recognition.Food{}}, nil
	}

	_, err := d.service().LogText(context.Background(), "user-1", "air")
	assertAPIErrorCode(t, err, model.ErrCodeRecognitionFailed)

	if len(d.mealRepo.created) != 0 {
		t.Errorf("created meals = %d, want 0", len(d.mealRepo.created))
	}
	if len(d.metrics.failures) != 1 || d.metrics.failures[0] != "text:empty" {
		t.Errorf("failures = %v, want [text:empty]", d.metrics.failures)
	}
}

func TestLogText_RecognizerError_ReturnsRecognitionError(t *testing.T) {
	d := newTestDeps()
	d.recognizer.textFn = func(ctx context.Context, description string) (*recognition.Result, error) {
		return nil, &recognition.StatusError{StatusCode: 503}
	}

	_, err := d.service().LogText(context.Background(), "user-1", "soup")
	assertAPIErrorCode(t, err, model.ErrCodeRecognitionFailed)

	if len(d.mealRepo.created) != 0 {
		t.Errorf("created meals = %d, want 0", len(d.mealRepo.created))
	}
	if len(d.metrics.failures) != 1 || d.metrics.failures[0] != "text:error" {
		t.Errorf("failures = %v, want [text:error]", d.metrics.failures)
	}
	if d.metrics.latencies != 1 {
		t.Errorf("latencies = %d, want 1", d.metrics.latencies)
	}
}

func TestLogText_CollaboratorConfidenceWins(t *testing.T) {
	d := newTestDeps()
	d.recognizer.textFn = func(ctx context.Context, description string) (*recognition.Result, error) {
		r := eggsAndToast()
		score := 0.6
		r.ConfidenceScore = &score
		return r, nil
	}

	meal, err := d.service().LogText(context.Background(), "user-1", "eggs")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if !approxEqual(meal.ConfidenceScore, 0.6) {
		t.Errorf("ConfidenceScore = %v, want 0.6", meal.ConfidenceScore)
	}
}

func TestLogText_RepositoryError_Propagates(t *testing.T) {
	d := newTestDeps()
	d.recognizer.textFn = func(ctx context.Context, description string) (*recognition.Result, error) {
		return eggsAndToast(), nil
	}
	d.mealRepo.createFn = func(ctx context.Context, meal *model.Meal) error {
		return errors.New("tx aborted")
	}

	_, err := d.service().LogText(context.Background(), "user-1", "eggs")
	if err == nil {
		t.Fatal("expected error, got nil")
	}
	var apiErr *model.APIError
	if errors.As(err, &apiErr) {
		t.Errorf("repository failure should not be an APIError, got %v", apiErr)
	}
	if len(d.metrics.logged) != 0 {
		t.Errorf("meal metrics should not be recorded on failure, got %v", d.metrics.logged)
	}
}

// --- LogImage ---

func TestLogImage_ValidURL_RecordsImageMeal(t *testing.T) {
	d := newTestDeps()
	d.recognizer.imageFn = func(ctx context.Context, imageURL string) (*recognition.Result, error) {
		return eggsAndToast(), nil
	}

	meal, err := d.service().LogImage(context.Background(), "user-1", " https://images.example.com/plate.jpg ")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if meal.Source != model.MealSourceImage {
		t.Errorf("Source = %q, want %q", meal.Source, model.MealSourceImage)
	}
	if meal.OriginalInput != "https://images.example.com/plate.jpg" {
		t.Errorf("OriginalInput = %q", meal.OriginalInput)
	}
}

func TestLogImage_BlockedURL_ValidationErrorWithoutRecognition(t *testing.T) {
	urls := []string{
		"http://169.254.169.254/latest/meta-data",
		"http://localhost/plate.jpg",
		"ftp://images.example.com/plate.jpg",
		"not a url",
		"",
	}

	for _, u := range urls {
		t.Run(u, func(t *testing.T) {
			d := newTestDeps()
			d.recognizer.imageFn = func(ctx context.Context, imageURL string) (*recognition.Result, error) {
				t.Error("recognizer should not be called")
				return nil, nil
			}

			_, err := d.service().LogImage(context.Background(), "user-1", u)
			assertAPIErrorCode(t, err, model.ErrCodeValidation)
		})
	}
}

func TestLogImage_ProbeEnabled_ProbeFailureIsValidationError(t *testing.T) {
	d := newTestDeps()
	probed := false
	d.guard = &mockURLGuard{
		probeFn: func(ctx context.Context, rawURL string) error {
			probed = true
			return errors.New("content-type text/html")
		},
	}
	d.config.ProbeImages = true
	d.recognizer.imageFn = func(ctx context.Context, imageURL string) (*recognition.Result, error) {
		t.Error("recognizer should not be called")
		return nil, nil
	}

	_, err := d.service().LogImage(context.Background(), "user-1", "https://example.com/page")
	assertAPIErrorCode(t, err, model.ErrCodeValidation)
	if !probed {
		t.Error("expected ProbeImage to be called")
	}
}

func TestLogImage_ProbeDisabled_DoesNotProbe(t *testing.T) {
	d := newTestDeps()
	d.guard = &mockURLGuard{
		probeFn: func(ctx context.Context, rawURL string) error {
			t.Error("ProbeImage should not be called when disabled")
			return nil
		},
	}
	d.recognizer.imageFn = func(ctx context.Context, imageURL string) (*recognition.Result, error) {
		return eggsAndToast(), nil
	}

	if _, err := d.service().LogImage(context.Background(), "user-1", "https://example.com/a.png"); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
}

// --- LogBarcode ---

func TestLogBarcode_FormatsOriginalInputAndQuery(t *testing.T) {
	d := newTestDeps()
	var got recognition.BarcodeQuery
	d.recognizer.barcodeFn = func(ctx context.Context, q recognition.BarcodeQuery) (*recognition.Result, error) {
		got = q
		return eggsAndToast(), nil
	}

	meal, err := d.service().LogBarcode(context.Background(), "user-1", BarcodeInput{
		Barcode:            " 737628064502 ",
		ServingDescription: "1 cup",
		Servings:           2,
	})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if got.Barcode != "737628064502" || got.Servings != 2 || got.ServingDescription != "1 cup" {
		t.Errorf("query = %+v", got)
	}
	if meal.OriginalInput != "737628064502 x2 (1 cup)" {
		t.Errorf("OriginalInput = %q, want %q", meal.OriginalInput, "737628064502 x2 (1 cup)")
	}
	if meal.Source != model.MealSourceBarcode {
		t.Errorf("Source = %q, want %q", meal.Source, model.MealSourceBarcode)
	}
}

func TestLogBarcode_DefaultServingsIsOne(t *testing.T) {
	d := newTestDeps()
	var got recognition.BarcodeQuery
	d.recognizer.barcodeFn = func(ctx context.Context, q recognition.BarcodeQuery) (*recognition.Result, error) {
		got = q
		return eggsAndToast(), nil
	}

	meal, err := d.service().LogBarcode(context.Background(), "user-1", BarcodeInput{Barcode: "4901234567894"})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if got.Servings != 1 {
		t.Errorf("Servings = %d, want 1", got.Servings)
	}
	if meal.OriginalInput != "4901234567894" {
		t.Errorf("OriginalInput = %q, want %q", meal.OriginalInput, "4901234567894")
	}
}

func TestLogBarcode_InvalidInput(t *testing.T) {
	tests := []struct {
		name string
		in   BarcodeInput
	}{
		{"blank barcode", BarcodeInput{Barcode: "  "}},
		{"negative servings", BarcodeInput{Barcode: "123", Servings: -1}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := newTestDeps()
			d.recognizer.barcodeFn = func(ctx context.Context, q recognition.BarcodeQuery) (*recognition.Result, error) {
				t.Error("recognizer should not be called")
				return nil, nil
			}
			_, err := d.service().LogBarcode(context.Background(), "user-1", tt.in)
			assertAPIErrorCode(t, err, model.ErrCodeValidation)
		})
	}
}

func TestFormatBarcodeInput(t *testing.T) {
	tests := []struct {
		q    recognition.BarcodeQuery
		want string
	}{
		{recognition.BarcodeQuery{Barcode: "111", Servings: 1}, "111"},
		{recognition.BarcodeQuery{Barcode: "111", Servings: 3}, "111 x3"},
		{recognition.BarcodeQuery{Barcode: "111", Servings: 1, ServingDescription: "1 bar"}, "111 (1 bar)"},
		{recognition.BarcodeQuery{Barcode: "737628064502", Servings: 2, ServingDescription: "1 cup"}, "737628064502 x2 (1 cup)"},
	}
	for _, tt := range tests {
		if got := FormatBarcodeInput(tt.q); got != tt.want {
			t.Errorf("FormatBarcodeInput(%+v) = %q, want %q", tt.q, got, tt.want)
		}
	}
}

// --- GetMeal / ListByDate / DailySummary ---

func TestGetMeal_NotFound(t *testing.T) {
	d := newTestDeps()
	_, err := d.service().GetMeal(context.Background(), "user-1", "5f0c7a52-8d1e-4c39-9a57-2b6f3e1d4c80")
	assertAPIErrorCode(t, err, model.ErrCodeMealNotFound)
}

// TestGetMeal_MalformedID はUUIDでないIDがリポジトリに渡らずに見つからない扱いになることを検証する。
func TestGetMeal_MalformedID(t *testing.T) {
	d := newTestDeps()
	d.mealRepo.findFn = func(ctx context.Context, userID, mealID string) (*model.Meal, error) {
		t.Errorf("FindByID should not be called, got mealID %q", mealID)
		return nil, nil
	}

	for _, id := range []string{"not-a-uuid", "meal-1", "'; DROP TABLE meals; --"} {
		_, err := d.service().GetMeal(context.Background(), "user-1", id)
		assertAPIErrorCode(t, err, model.ErrCodeMealNotFound)
	}
}

func TestGetMeal_ScopedToUser(t *testing.T) {
	d := newTestDeps()
	d.mealRepo.findFn = func(ctx context.Context, userID, mealID string) (*model.Meal, error) {
		if userID != "user-1" {
			t.Errorf("userID = %q, want %q", userID, "user-1")
		}
		return &model.Meal{ID: mealID, UserID: userID}, nil
	}

	const mealID = "9b2d4e61-3f7a-4c0e-8d15-6a9e2c7b1f34"
	meal, err := d.service().GetMeal(context.Background(), "user-1", mealID)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if meal.ID != mealID {
		t.Errorf("ID = %q, want %q", meal.ID, mealID)
	}
}

// TestListByDate_UsesUserTimezone はユーザーのタイムゾーンで日付範囲が決まることを検証する。
func TestListByDate_UsesUserTimezone(t *testing.T) {
	d := newTestDeps()
	d.userRepo.user.Timezone = "Asia/Tokyo"
	var gotFrom, gotTo time.Time
	d.mealRepo.listFn = func(ctx context.Context, userID string, from, to time.Time) ([]*model.Meal, error) {
		gotFrom, gotTo = from, to
		return []*model.Meal{}, nil
	}

	day, err := d.service().ListByDate(context.Background(), "user-1", "2024-03-15")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if day.Date != "2024-03-15" {
		t.Errorf("Date = %q, want %q", day.Date, "2024-03-15")
	}
	wantFrom := time.Date(2024, 3, 14, 15, 0, 0, 0, time.UTC)
	if !gotFrom.Equal(wantFrom) || !gotTo.Equal(wantFrom.Add(24*time.Hour)) {
		t.Errorf("range = [%v, %v), want [%v, %v)", gotFrom, gotTo, wantFrom, wantFrom.Add(24*time.Hour))
	}
}

func TestListByDate_DefaultsToTodayInUserTimezone(t *testing.T) {
	d := newTestDeps()
	// fixedNow は UTC 01:30 なのでロサンゼルスではまだ前日
	d.userRepo.user.Timezone = "America/Los_Angeles"

	day, err := d.service().ListByDate(context.Background(), "user-1", "")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if day.Date != "2024-03-14" {
		t.Errorf("Date = %q, want %q", day.Date, "2024-03-14")
	}
}

func TestListByDate_InvalidDate(t *testing.T) {
	d := newTestDeps()
	for _, date := range []string{"2024-13-01", "15/03/2024", "yesterday"} {
		_, err := d.service().ListByDate(context.Background(), "user-1", date)
		assertAPIErrorCode(t, err, model.ErrCodeInvalidDate)
	}
}

func TestDailySummary_RemainingMayBeNegative(t *testing.T) {
	d := newTestDeps()
	d.userRepo.user.DailyCalorieTarget = 1800
	d.mealRepo.sumFn = func(ctx context.Context, userID string, from, to time.Time) (*model.NutritionTotals, error) {
		return &model.NutritionTotals{
			Calories:  2100,
			Macros:    model.Macros{ProteinG: 90, CarbsG: 250, FatG: 70},
			MealCount: 4,
		}, nil
	}

	summary, err := d.service().DailySummary(context.Background(), "user-1", "2024-03-15")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if summary.RemainingCalories != -300 {
		t.Errorf("RemainingCalories = %v, want -300", summary.RemainingCalories)
	}
	if summary.MealCount != 4 || summary.TotalCalories != 2100 {
		t.Errorf("summary = %+v", summary)
	}
	if summary.Date != "2024-03-15" {
		t.Errorf("Date = %q, want %q", summary.Date, "2024-03-15")
	}
}

func TestDailySummary_NoMeals_FullTargetRemaining(t *testing.T) {
	d := newTestDeps()

	summary, err := d.service().DailySummary(context.Background(), "user-1", "")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if summary.RemainingCalories != 2000 || summary.MealCount != 0 {
		t.Errorf("summary = %+v, want remaining 2000 and no meals", summary)
	}
	if summary.Date != "2024-03-15" {
		t.Errorf("Date = %q, want %q", summary.Date, "2024-03-15")
	}
}

func TestDailySummary_UserNotFound(t *testing.T) {
	d := newTestDeps()
	_, err := d.service().DailySummary(context.Background(), "ghost", "2024-03-15")
	assertAPIErrorCode(t, err, model.ErrCodeUserNotFound)
}

// Package meal は食事記録と日次集計のドメインロジックを提供する。
package meal

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/hitoshi/neocal/internal/model"
	"github.com/hitoshi/neocal/internal/recognition"
	"github.com/hitoshi/neocal/internal/repository"
	"github.com/hitoshi/neocal/internal/security"
)

// DateLayout は日付パラメータの形式（YYYY-MM-DD）。
const DateLayout = "2006-01-02"

// Recognizer は食品認識サービスのインターフェース。recognition.Clientが実装する。
type Recognizer interface {
	RecognizeText(ctx context.Context, description string) (*recognition.Result, error)
	RecognizeImage(ctx context.Context, imageURL string) (*recognition.Result, error)
	RecognizeBarcode(ctx context.Context, q recognition.BarcodeQuery) (*recognition.Result, error)
}

// MealMetrics は食事記録と認識のメトリクス記録インターフェース。
type MealMetrics interface {
	RecordMealLogged(source string, foodCount int)
	RecordRecognitionFailure(source string, reason string)
	RecordRecognitionLatency(source string, duration time.Duration)
}

// 認識失敗の理由ラベル
const (
	failureError = "error"
	failureEmpty = "empty"
)

// BarcodeInput はバーコードからの記録内容。
type BarcodeInput struct {
	Barcode            string
	ServingDescription string
	Servings           int
}

// DayMeals は1日分の食事一覧。
type DayMeals struct {
	Date  string
	Meals []*model.Meal
}

// ServiceConfig は食事サービスの設定。
type ServiceConfig struct {
	// ProbeImages が有効な場合、画像URLを認識サービスに渡す前にHEADリクエストで画像であることを確認する。
	ProbeImages bool
}

// Service は食事記録のサービス層。
// 認識サービスの呼び出しは常に書き込みより前に行い、失敗時には何も保存しない。
type Service struct {
	mealRepo   repository.MealRepository
	userRepo   repository.UserRepository
	recognizer Recognizer
	sanitizer  security.TextSanitizerService
	urlGuard   security.SSRFGuardService
	metrics    MealMetrics
	config     ServiceConfig
	logger     *slog.Logger
	nowFunc    func() time.Time
}

// NewService はServiceの新しいインスタンスを生成する。metricsはnilでもよい。
func NewService(
	mealRepo repository.MealRepository,
	userRepo repository.UserRepository,
	recognizer Recognizer,
	sanitizer security.TextSanitizerService,
	urlGuard security.SSRFGuardService,
	metrics MealMetrics,
	config ServiceConfig,
	logger *slog.Logger,
) *Service {
	return &Service{
		mealRepo:   mealRepo,
		userRepo:   userRepo,
		recognizer: recognizer,
		sanitizer:  sanitizer,
		urlGuard:   urlGuard,
		metrics:    metrics,
		config:     config,
		logger:     logger,
		nowFunc:    time.Now,
	}
}

// LogText はテキスト説明から食事を記録する。
func (s *Service) LogText(ctx context.Context, userID, description string) (*model.Meal, error) {
	text := s.sanitizer.SanitizeText(description)
	if text == "" {
		return nil, model.NewValidationError("description", "空にはできません")
	}

	return s.logMeal(ctx, userID, model.MealSourceText, text, func(ctx context.Context) (*recognition.Result, error) {
		return s.recognizer.RecognizeText(ctx, text)
	})
}

// LogImage は画像URLから食事を記録する。
// URLはSSRFガードで検証し、設定により画像であることを事前に確認する。
func (s *Service) LogImage(ctx context.Context, userID, imageURL string) (*model.Meal, error) {
	imageURL = strings.TrimSpace(imageURL)
	if err := s.urlGuard.ValidateURL(imageURL); err != nil {
		return nil, model.NewValidationError("image_url", err.Error())
	}
	if s.config.ProbeImages {
		if err := s.urlGuard.ProbeImage(ctx, imageURL); err != nil {
			s.logger.Warn("画像URLの確認に失敗しました",
				slog.String("user_id", userID),
				slog.String("error", err.Error()),
			)
			return nil, model.NewValidationError("image_url", "画像を取得できません")
		}
	}

	return s.logMeal(ctx, userID, model.MealSourceImage, imageURL, func(ctx context.Context) (*recognition.Result, error) {
		return s.recognizer.RecognizeImage(ctx, imageURL)
	})
}

// LogBarcode はバーコードから食事を記録する。
// Servingsが0の場合は1として扱う。
func (s *Service) LogBarcode(ctx context.Context, userID string, in BarcodeInput) (*model.Meal, error) {
	barcode := strings.TrimSpace(in.Barcode)
	if barcode == "" {
		return nil, model.NewValidationError("barcode", "空にはできません")
	}
	servings := in.Servings
	if servings == 0 {
		servings = 1
	}
	if servings < 1 {
		return nil, model.NewValidationError("servings", "1以上を指定してください")
	}
	serving := s.sanitizer.SanitizeText(in.ServingDescription)

	query := recognition.BarcodeQuery{
		Barcode:            barcode,
		ServingDescription: serving,
		Servings:           servings,
	}
	return s.logMeal(ctx, userID, model.MealSourceBarcode, FormatBarcodeInput(query), func(ctx context.Context) (*recognition.Result, error) {
		return s.recognizer.RecognizeBarcode(ctx, query)
	})
}

// FormatBarcodeInput はバーコード記録のoriginal_inputを組み立てる。
// 例: "737628064502 x2 (1 cup)"
func FormatBarcodeInput(q recognition.BarcodeQuery) string {
	var b strings.Builder
	b.WriteString(q.Barcode)
	if q.Servings > 1 {
		fmt.Fprintf(&b, " x%d", q.Servings)
	}
	if q.ServingDescription != "" {
		fmt.Fprintf(&b, " (%s)", q.ServingDescription)
	}
	return b.String()
}

// logMeal は認識、食事の組み立て、保存を行う共通処理。
func (s *Service) logMeal(
	ctx context.Context,
	userID string,
	source model.MealSource,
	originalInput string,
	recognize func(ctx context.Context) (*recognition.Result, error),
) (*model.Meal, error) {
	start := time.Now()
	result, err := recognize(ctx)
	s.recordLatency(source, time.Since(start))
	if err != nil {
		s.recordFailure(source, failureError)
		s.logger.Warn("食品の認識に失敗しました",
			slog.String("user_id", userID),
			slog.String("source", string(source)),
			slog.String("error", err.Error()),
		)
		return nil, model.NewRecognitionError(recognitionReason(err))
	}
	if result == nil || len(result.Foods) == 0 {
		s.recordFailure(source, failureEmpty)
		return nil, model.NewRecognitionError("食品が見つかりませんでした")
	}

	meal := s.buildMeal(userID, source, originalInput, result)
	if err := s.mealRepo.CreateWithFoodItems(ctx, meal); err != nil {
		return nil, fmt.Errorf("食事記録の保存に失敗しました: %w", err)
	}

	if s.metrics != nil {
		s.metrics.RecordMealLogged(string(source), len(meal.FoodItems))
	}
	s.logger.Info("食事を記録しました",
		slog.String("user_id", userID),
		slog.String("meal_id", meal.ID),
		slog.String("source", string(source)),
		slog.Int("food_count", len(meal.FoodItems)),
		slog.Float64("total_calories", meal.TotalCalories()),
	)
	return meal, nil
}

// buildMeal は認識結果から保存用のMealを組み立てる。
// 全体の信頼度は認識サービスが返した値を優先し、無ければ食品ごとの平均とする。
func (s *Service) buildMeal(userID string, source model.MealSource, originalInput string, result *recognition.Result) *model.Meal {
	now := s.nowFunc()
	meal := &model.Meal{
		ID:            uuid.New().String(),
		UserID:        userID,
		Timestamp:     now,
		Source:        source,
		OriginalInput: originalInput,
		CreatedAt:     now,
		FoodItems:     make([]model.FoodItem, len(result.Foods)),
	}

	for i, f := range result.Foods {
		meal.FoodItems[i] = model.FoodItem{
			ID:       uuid.New().String(),
			MealID:   meal.ID,
			Position: i,
			Name:     f.Name,
			Grams:    f.Grams,
			Calories: f.Calories,
			Macros: model.Macros{
				ProteinG: f.ProteinG,
				CarbsG:   f.CarbsG,
				FatG:     f.FatG,
			},
			ModelLabel: f.ModelLabel,
			Confidence: f.Confidence,
		}
	}

	if result.ConfidenceScore != nil {
		meal.ConfidenceScore = *result.ConfidenceScore
	} else {
		meal.ConfidenceScore = model.MeanConfidence(meal.FoodItems)
	}
	return meal
}

// GetMeal はユーザー自身の食事記録を取得する。
// UUIDとして解釈できないIDは見つからない扱いとし、リポジトリを呼ばない。
func (s *Service) GetMeal(ctx context.Context, userID, mealID string) (*model.Meal, error) {
	if _, err := uuid.Parse(mealID); err != nil {
		return nil, model.NewMealNotFoundError(mealID)
	}

	meal, err := s.mealRepo.FindByID(ctx, userID, mealID)
	if err != nil {
		return nil, fmt.Errorf("食事記録の取得に失敗しました: %w", err)
	}
	if meal == nil {
		return nil, model.NewMealNotFoundError(mealID)
	}
	return meal, nil
}

// ListByDate はユーザーのタイムゾーンで指定日に該当する食事を記録時刻の昇順で返す。
// dateが空の場合は今日とする。
func (s *Service) ListByDate(ctx context.Context, userID, date string) (*DayMeals, error) {
	day, from, to, err := s.resolveDay(ctx, userID, date)
	if err != nil {
		return nil, err
	}

	meals, err := s.mealRepo.ListByUserBetween(ctx, userID, from, to)
	if err != nil {
		return nil, fmt.Errorf("食事一覧の取得に失敗しました: %w", err)
	}
	return &DayMeals{Date: day, Meals: meals}, nil
}

// DailySummary はユーザーのタイムゾーンで指定日の栄養合計と残りカロリーを返す。
// 残りカロリーは目標を超えた場合に負になる。
func (s *Service) DailySummary(ctx context.Context, userID, date string) (*model.DailySummary, error) {
	user, err := s.findUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	day, from, to, err := dayRange(date, user.Location(), s.nowFunc())
	if err != nil {
		return nil, err
	}

	totals, err := s.mealRepo.SumByUserBetween(ctx, userID, from, to)
	if err != nil {
		return nil, fmt.Errorf("栄養合計の取得に失敗しました: %w", err)
	}

	return &model.DailySummary{
		Date:              day,
		TotalCalories:     totals.Calories,
		TotalMacros:       totals.Macros,
		RemainingCalories: float64(user.DailyCalorieTarget) - totals.Calories,
		MealCount:         totals.MealCount,
	}, nil
}

func (s *Service) resolveDay(ctx context.Context, userID, date string) (string, time.Time, time.Time, error) {
	user, err := s.findUser(ctx, userID)
	if err != nil {
		return "", time.Time{}, time.Time{}, err
	}
	return dayRange(date, user.Location(), s.nowFunc())
}

func (s *Service) findUser(ctx context.Context, userID string) (*model.User, error) {
	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("ユーザーの取得に失敗しました: %w", err)
	}
	if user == nil {
		return nil, model.NewUserNotFoundError()
	}
	return user, nil
}

// dayRange はloc における日付の[開始, 翌日開始)を返す。dateが空の場合はnowの日付を使う。
func dayRange(date string, loc *time.Location, now time.Time) (string, time.Time, time.Time, error) {
	var start time.Time
	if date == "" {
		local := now.In(loc)
		start = time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, loc)
	} else {
		parsed, err := time.ParseInLocation(DateLayout, date, loc)
		if err != nil {
			return "", time.Time{}, time.Time{}, model.NewInvalidDateError(date)
		}
		start = parsed
	}
	end := start.AddDate(0, 0, 1)
	return start.Format(DateLayout), start, end, nil
}

// recognitionReason はクライアントに返す認識失敗の理由を組み立てる。
// 認識サービスの内部情報は含めない。
func recognitionReason(err error) string {
	var statusErr *recognition.StatusError
	switch {
	case errors.As(err, &statusErr):
		return fmt.Sprintf("認識サービスがステータス %d を返しました", statusErr.StatusCode)
	case errors.Is(err, context.DeadlineExceeded):
		return "認識サービスがタイムアウトしました"
	default:
		return "認識サービスを利用できません"
	}
}

func (s *Service) recordLatency(source model.MealSource, d time.Duration) {
	if s.metrics != nil {
		s.metrics.RecordRecognitionLatency(string(source), d)
	}
}

func (s *Service) recordFailure(source model.MealSource, reason string) {
	if s.metrics != nil {
		s.metrics.RecordRecognitionFailure(string(source), reason)
	}
}

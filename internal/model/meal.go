package model

import "time"

// MealSource は食事記録の入力元を表す。
type MealSource string

const (
	// MealSourceText はテキスト説明からの記録。
	MealSourceText MealSource = "text"
	// MealSourceImage は画像からの記録。
	MealSourceImage MealSource = "image"
	// MealSourceBarcode はバーコードからの記録。
	MealSourceBarcode MealSource = "barcode"
)

// Valid は定義済みの入力元かどうかを返す。
func (s MealSource) Valid() bool {
	switch s {
	case MealSourceText, MealSourceImage, MealSourceBarcode:
		return true
	default:
		return false
	}
}

// Macros は三大栄養素（グラム）を表す。
type Macros struct {
	ProteinG float64
	CarbsG   float64
	FatG     float64
}

// Add は2つのMacrosの和を返す。
func (m Macros) Add(o Macros) Macros {
	return Macros{
		ProteinG: m.ProteinG + o.ProteinG,
		CarbsG:   m.CarbsG + o.CarbsG,
		FatG:     m.FatG + o.FatG,
	}
}

// Meal は1回の食事記録を表す。
// 合計カロリーとマクロは保存せず、FoodItemsから都度算出する。
type Meal struct {
	ID              string
	UserID          string
	Timestamp       time.Time
	Source          MealSource
	OriginalInput   string
	ConfidenceScore float64
	CreatedAt       time.Time
	FoodItems       []FoodItem
}

// TotalCalories は食品ごとのカロリーの合計を返す。
func (m *Meal) TotalCalories() float64 {
	var total float64
	for _, f := range m.FoodItems {
		total += f.Calories
	}
	return total
}

// TotalMacros は食品ごとのマクロの合計を返す。
func (m *Meal) TotalMacros() Macros {
	var total Macros
	for _, f := range m.FoodItems {
		total = total.Add(f.Macros)
	}
	return total
}

// FoodItem は食事を構成する1つの認識済み食品を表す。
type FoodItem struct {
	ID         string
	MealID     string
	Position   int
	Name       string
	Grams      float64
	Calories   float64
	Macros     Macros
	ModelLabel string
	Confidence float64
}

// MeanConfidence は食品ごとの信頼度の平均を返す。食品が空の場合は0。
func MeanConfidence(items []FoodItem) float64 {
	if len(items) == 0 {
		return 0
	}
	var sum float64
	for _, f := range items {
		sum += f.Confidence
	}
	return sum / float64(len(items))
}

// NutritionTotals は期間内の食事の栄養合計を表す。
type NutritionTotals struct {
	Calories  float64
	Macros    Macros
	MealCount int
}

// DailySummary は1日分の栄養集計結果を表す。
type DailySummary struct {
	Date              string
	TotalCalories     float64
	TotalMacros       Macros
	RemainingCalories float64
	MealCount         int
}

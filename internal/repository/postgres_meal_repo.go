package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/hitoshi/neocal/internal/model"
)

// PostgresMealRepo はSQLデータベースを使用した食事記録リポジトリ。
// 食事の合計値は保存せず、食品から都度算出する。
type PostgresMealRepo struct {
	db *sql.DB
}

// NewPostgresMealRepo はPostgresMealRepoを生成する。
func NewPostgresMealRepo(db *sql.DB) *PostgresMealRepo {
	return &PostgresMealRepo{db: db}
}

const mealColumns = `id, user_id, eaten_at, source, original_input, confidence_score, created_at`

const foodItemColumns = `fi.id, fi.meal_id, fi.position, fi.name, fi.grams, fi.calories,
	fi.protein_g, fi.carbs_g, fi.fat_g, fi.model_label, fi.confidence`

// CreateWithFoodItems は食事と食品を同一トランザクションで作成する。
// 食品のMealIDとPositionはここで設定する。
func (r *PostgresMealRepo) CreateWithFoodItems(ctx context.Context, meal *model.Meal) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO meals (id, user_id, eaten_at, source, original_input, confidence_score, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		meal.ID, meal.UserID, meal.Timestamp.UTC(), string(meal.Source),
		meal.OriginalInput, meal.ConfidenceScore, meal.CreatedAt.UTC(),
	)
	if err != nil {
		return wrapWriteError(err, "meal", "failed to insert meal")
	}

	for i := range meal.FoodItems {
		item := &meal.FoodItems[i]
		item.MealID = meal.ID
		item.Position = i

		_, err = tx.ExecContext(ctx,
			`INSERT INTO food_items (id, meal_id, position, name, grams, calories,
			                         protein_g, carbs_g, fat_g, model_label, confidence)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
			item.ID, item.MealID, item.Position, item.Name, item.Grams, item.Calories,
			item.Macros.ProteinG, item.Macros.CarbsG, item.Macros.FatG, item.ModelLabel, item.Confidence,
		)
		if err != nil {
			return wrapWriteError(err, "food item", "failed to insert food item")
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

// FindByID は指定ユーザーの食事を食品付きで取得する。見つからない場合はnilを返す。
// 他ユーザーの食事IDを指定した場合も見つからない扱いとする。
func (r *PostgresMealRepo) FindByID(ctx context.Context, userID, mealID string) (*model.Meal, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+mealColumns+` FROM meals WHERE id = $1 AND user_id = $2`,
		mealID, userID,
	)
	meal, err := scanMeal(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find meal by ID: %w", err)
	}

	rows, err := r.db.QueryContext(ctx,
		`SELECT `+foodItemColumns+`
		 FROM food_items fi
		 WHERE fi.meal_id = $1
		 ORDER BY fi.position`,
		mealID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list food items: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		item, err := scanFoodItem(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan food item: %w", err)
		}
		meal.FoodItems = append(meal.FoodItems, *item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate food items: %w", err)
	}

	return meal, nil
}

// ListByUserBetween は[from, to)に記録された食事を食品付きで記録時刻の昇順に返す。
// 食事と食品をそれぞれ1クエリで取得し、メモリ上で組み立てる。
func (r *PostgresMealRepo) ListByUserBetween(ctx context.Context, userID string, from, to time.Time) ([]*model.Meal, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+mealColumns+`
		 FROM meals
		 WHERE user_id = $1 AND eaten_at >= $2 AND eaten_at < $3
		 ORDER BY eaten_at, id`,
		userID, from.UTC(), to.UTC(),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list meals: %w", err)
	}
	defer rows.Close()

	var meals []*model.Meal
	byID := make(map[string]*model.Meal)
	for rows.Next() {
		meal, err := scanMeal(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan meal: %w", err)
		}
		meals = append(meals, meal)
		byID[meal.ID] = meal
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate meals: %w", err)
	}

	if len(meals) == 0 {
		return []*model.Meal{}, nil
	}

	itemRows, err := r.db.QueryContext(ctx,
		`SELECT `+foodItemColumns+`
		 FROM food_items fi
		 JOIN meals m ON m.id = fi.meal_id
		 WHERE m.user_id = $1 AND m.eaten_at >= $2 AND m.eaten_at < $3
		 ORDER BY fi.meal_id, fi.position`,
		userID, from.UTC(), to.UTC(),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list food items: %w", err)
	}
	defer itemRows.Close()

	for itemRows.Next() {
		item, err := scanFoodItem(itemRows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan food item: %w", err)
		}
		if meal, ok := byID[item.MealID]; ok {
			meal.FoodItems = append(meal.FoodItems, *item)
		}
	}
	if err := itemRows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate food items: %w", err)
	}

	return meals, nil
}

// SumByUserBetween は[from, to)に記録された食事の栄養合計を返す。
func (r *PostgresMealRepo) SumByUserBetween(ctx context.Context, userID string, from, to time.Time) (*model.NutritionTotals, error) {
	totals := &model.NutritionTotals{}
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(DISTINCT m.id),
		        COALESCE(SUM(fi.calories), 0),
		        COALESCE(SUM(fi.protein_g), 0),
		        COALESCE(SUM(fi.carbs_g), 0),
		        COALESCE(SUM(fi.fat_g), 0)
		 FROM meals m
		 LEFT JOIN food_items fi ON fi.meal_id = m.id
		 WHERE m.user_id = $1 AND m.eaten_at >= $2 AND m.eaten_at < $3`,
		userID, from.UTC(), to.UTC(),
	).Scan(&totals.MealCount, &totals.Calories, &totals.Macros.ProteinG, &totals.Macros.CarbsG, &totals.Macros.FatG)
	if err != nil {
		return nil, fmt.Errorf("failed to sum meals: %w", err)
	}
	return totals, nil
}

// scanner は*sql.Rowと*sql.Rowsの共通部分。
type scanner interface {
	Scan(dest ...any) error
}

func scanMeal(s scanner) (*model.Meal, error) {
	meal := &model.Meal{}
	var source string
	if err := s.Scan(&meal.ID, &meal.UserID, &meal.Timestamp, &source,
		&meal.OriginalInput, &meal.ConfidenceScore, &meal.CreatedAt); err != nil {
		return nil, err
	}
	meal.Source = model.MealSource(source)
	meal.Timestamp = meal.Timestamp.UTC()
	return meal, nil
}

func scanFoodItem(s scanner) (*model.FoodItem, error) {
	item := &model.FoodItem{}
	if err := s.Scan(&item.ID, &item.MealID, &item.Position, &item.Name, &item.Grams, &item.Calories,
		&item.Macros.ProteinG, &item.Macros.CarbsG, &item.Macros.FatG, &item.ModelLabel, &item.Confidence); err != nil {
		return nil, err
	}
	return item, nil
}

// compile-time interface check
var _ MealRepository = (*PostgresMealRepo)(nil)

package repository

import (
	"errors"
	"fmt"
	"strings"

	"github.com/lib/pq"

	"github.com/hitoshi/neocal/internal/model"
)

// pqUniqueViolation はPostgreSQLの一意制約違反のSQLSTATE。
const pqUniqueViolation = "23505"

// isUniqueViolation はドライバのエラーが一意制約違反かどうかを判定する。
// lib/pqは*pq.Error、modernc.org/sqliteはメッセージで判別する。
func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return string(pqErr.Code) == pqUniqueViolation
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}

// wrapWriteError は書き込み系のエラーをラップする。
// 一意制約違反はCONFLICTのAPIErrorに変換する。
func wrapWriteError(err error, resource, msg string) error {
	if isUniqueViolation(err) {
		return model.NewConflictError(resource)
	}
	return fmt.Errorf("%s: %w", msg, err)
}

// Package repository implements the data access layer for the application.
package repository

import (
	"errors"
	"strings"

	"skillswap/internal/models"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// MaxPageSize caps every paged query.
const MaxPageSize = 100

// Page is a 1-based skip/limit window. A zero Size means "no limit".
type Page struct {
	Number int
	Size   int
}

// Offset returns the number of rows skipped before this page.
func (p Page) Offset() int {
	if p.Number <= 1 || p.Size <= 0 {
		return 0
	}
	return (p.Number - 1) * p.Size
}

func (p Page) apply(db *gorm.DB) *gorm.DB {
	if p.Size <= 0 {
		return db
	}
	size := p.Size
	if size > MaxPageSize {
		size = MaxPageSize
	}
	return db.Offset(p.Offset()).Limit(size)
}

// likePattern builds a substring pattern over folded text, escaping LIKE wildcards.
func likePattern(term string) string {
	replacer := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return "%" + replacer.Replace(models.SearchKey(strings.TrimSpace(term))) + "%"
}

// containsClause matches a folded column expression against a likePattern.
func containsClause(column string) string {
	return column + ` LIKE ? ESCAPE '\'`
}

// lockForUpdate adds SELECT ... FOR UPDATE where the dialect supports row locks.
func lockForUpdate(db *gorm.DB) *gorm.DB {
	if db.Dialector.Name() == "postgres" {
		return db.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	return db
}

// isUniqueConstraintError checks if a DB error is a unique constraint violation.
func isUniqueConstraintError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "duplicate key") ||
		strings.Contains(msg, "unique constraint")
}

// translateError maps driver errors onto the application error taxonomy.
func translateError(err error, resource string, id interface{}) error {
	if err == nil {
		return nil
	}
	var appErr *models.AppError
	if errors.As(err, &appErr) {
		return err
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return models.NewNotFoundError(resource, id)
	}
	return models.NewInternalError(err)
}

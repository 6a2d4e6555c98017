package repository

import (
	"errors"
	"strings"

	"recolecta/internal/models"

	"gorm.io/gorm"
)

// translate maps driver errors onto the application error taxonomy.
// Record-not-found becomes a NOT_FOUND; unique violations become CONFLICT;
// anything else is treated as transient since every mutation runs inside a
// transaction and can be retried safely.
func translate(err error, resource string, id uint) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return models.NewNotFoundError(resource, id)
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) || isUniqueViolation(err) {
		return models.NewConflictError(resource + " already exists")
	}
	return models.NewTransientError(err)
}

func isUniqueViolation(err error) bool {
	msg := err.Error()
	return strings.Contains(msg, "duplicate key") || strings.Contains(msg, "UNIQUE constraint failed")
}

package persistence

import (
	"errors"

	"github.com/wms/backend/internal/domain/shared"
	"gorm.io/gorm"
)

// translateError maps gorm errors onto domain errors.
// what names the entity in the duplicate-key message.
func translateError(err error, what string) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return shared.ErrNotFound
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return shared.NewDomainError(shared.CodeAlreadyExists, what+" already exists")
	case errors.Is(err, gorm.ErrCheckConstraintViolated):
		return shared.NewDomainError(shared.CodeInvalidAdjustment, "Inventory quantity cannot be negative")
	default:
		return err
	}
}

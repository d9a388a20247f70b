package persistence

import (
	"errors"

	"github.com/dentalclinic/backend/internal/domain/shared"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// translate maps driver errors onto domain error kinds. what names the
// resource in not-found messages.
func translate(err error, what string) error {
	switch {
	case err == nil:
		return nil
	case shared.IsDomainError(err):
		return err
	case errors.Is(err, gorm.ErrRecordNotFound):
		return shared.ErrNotFound.WithMessagef("%s not found", what)
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return shared.ErrAlreadyExists.WithMessagef("%s already exists", what)
	case errors.Is(err, gorm.ErrForeignKeyViolated):
		return shared.ErrReferentialInUse.WithMessagef("%s is referenced by other records", what)
	case errors.Is(err, gorm.ErrCheckConstraintViolated):
		return shared.ErrValidationFailed.WithMessagef("%s violates a table constraint", what)
	default:
		return shared.NewStoreFailure(err)
	}
}

// lockForUpdate adds SELECT ... FOR UPDATE where the dialect supports it
func lockForUpdate(db *gorm.DB, forUpdate bool) *gorm.DB {
	if !forUpdate || db.Dialector.Name() == "sqlite" {
		return db
	}
	return db.Clauses(clause.Locking{Strength: "UPDATE"})
}

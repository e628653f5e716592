package postgres

import (
	"context"

	"gorm.io/gorm"

	"taskboard/domain/repositories"
)

type txKey struct{}

// GormTransactor implements repositories.Transactor. The open *gorm.DB
// transaction travels in the context so repositories pick it up.
type GormTransactor struct {
	db *gorm.DB
}

func NewTransactor(db *gorm.DB) repositories.Transactor {
	return &GormTransactor{db: db}
}

func (t *GormTransactor) WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	// nested call joins the outer transaction
	if _, ok := ctx.Value(txKey{}).(*gorm.DB); ok {
		return fn(ctx)
	}
	return t.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(context.WithValue(ctx, txKey{}, tx))
	})
}

// conn returns the transaction carried by ctx, or db bound to ctx.
func conn(ctx context.Context, db *gorm.DB) *gorm.DB {
	if tx, ok := ctx.Value(txKey{}).(*gorm.DB); ok {
		return tx.WithContext(ctx)
	}
	return db.WithContext(ctx)
}

// supportsRowLocks reports whether SELECT ... FOR UPDATE is meaningful.
func supportsRowLocks(db *gorm.DB) bool {
	return db.Dialector.Name() == DriverPostgres
}

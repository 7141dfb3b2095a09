package database

import (
	"context"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// TxFunc defines a transaction function
type TxFunc func(ctx context.Context, tx *gorm.DB) error

// Transaction executes a function within a database transaction
func (db *DB) Transaction(ctx context.Context, fn TxFunc) error {
	return db.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := fn(ctx, tx); err != nil {
			db.logger.WithContext(ctx).Error("transaction failed, rolling back", zap.Error(err))
			return err
		}
		return nil
	})
}

// WithinTx executes fn with the transaction installed in the context, so
// that repositories resolving their handle via GetDBFromContext join it.
func (db *DB) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return db.Transaction(ctx, func(ctx context.Context, tx *gorm.DB) error {
		return fn(ContextWithTransaction(ctx, tx))
	})
}

// TransactionKey is the context key for storing a transaction
type TransactionKey struct{}

// ContextWithTransaction adds a transaction to the context
func ContextWithTransaction(ctx context.Context, tx *gorm.DB) context.Context {
	return context.WithValue(ctx, TransactionKey{}, tx)
}

// TransactionFromContext extracts a transaction from the context
func TransactionFromContext(ctx context.Context) (*gorm.DB, bool) {
	tx, ok := ctx.Value(TransactionKey{}).(*gorm.DB)
	return tx, ok
}

// GetDBFromContext returns the ambient transaction when one is installed,
// otherwise the base handle bound to ctx.
func (db *DB) GetDBFromContext(ctx context.Context) *gorm.DB {
	if tx, ok := TransactionFromContext(ctx); ok {
		return tx
	}
	return db.DB.WithContext(ctx)
}

package xcontext

import (
	"context"
	"errors"

	"gorm.io/gorm"
)

type (
	dbKey struct{}
	txKey struct{}
)

type dbTransaction struct {
	parent *gorm.DB
	tx     *gorm.DB
	done   bool
}

func WithDB(ctx context.Context, db *gorm.DB) context.Context {
	return context.WithValue(ctx, dbKey{}, db)
}

// DB returns the current transaction if the context holds an opened one,
// otherwise the root database. The returned session is bound to ctx.
func DB(ctx context.Context) *gorm.DB {
	if t, ok := ctx.Value(txKey{}).(*dbTransaction); ok && !t.done {
		return t.tx
	}

	db, ok := ctx.Value(dbKey{}).(*gorm.DB)
	if !ok {
		panic("not found database in context")
	}

	return db.WithContext(ctx)
}

// WithDBTransaction begins a transaction. Every repository call using the
// returned context runs inside it until CommitDBTransaction or
// RollbackDBTransaction is called.
func WithDBTransaction(ctx context.Context) context.Context {
	parent := DB(ctx)
	t := &dbTransaction{parent: parent, tx: parent.Begin()}
	return context.WithValue(ctx, txKey{}, t)
}

func CommitDBTransaction(ctx context.Context) error {
	t, ok := ctx.Value(txKey{}).(*dbTransaction)
	if !ok {
		return errors.New("not found transaction in context")
	}

	if t.done {
		return errors.New("transaction has already been finished")
	}

	t.done = true
	return t.tx.Commit().Error
}

// RollbackDBTransaction is a no-op if the transaction has been committed, so
// it is safe to defer right after WithDBTransaction.
func RollbackDBTransaction(ctx context.Context) {
	t, ok := ctx.Value(txKey{}).(*dbTransaction)
	if !ok || t.done {
		return
	}

	t.done = true
	t.tx.Rollback()
}

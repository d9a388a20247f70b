package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/dentalclinic/backend/internal/application/transaction"
	"github.com/dentalclinic/backend/internal/domain/shared"
	"gorm.io/gorm"
)

type txKey struct{}

// txState is the transaction carried in a context by GormTransactionScope
type txState struct {
	db    *gorm.DB
	hooks []func(ctx context.Context)
}

func txFrom(ctx context.Context) *txState {
	if ctx == nil {
		return nil
	}
	st, _ := ctx.Value(txKey{}).(*txState)
	return st
}

// conn returns the transaction bound to ctx, or base when there is none
func conn(ctx context.Context, base *gorm.DB) *gorm.DB {
	if st := txFrom(ctx); st != nil {
		return st.db.WithContext(ctx)
	}
	return base.WithContext(ctx)
}

// GormTransactionScope implements transaction.Scope on a bounded database/sql pool.
// A connection is acquired explicitly so pool exhaustion can be told apart
// from other failures.
type GormTransactionScope struct {
	db             *gorm.DB
	acquireTimeout time.Duration
	repos          *gormRepositories
	onExhausted    func(ctx context.Context)
}

// NewGormTransactionScope creates a GormTransactionScope.
// acquireTimeout bounds the wait for a pooled connection; zero waits on ctx only.
func NewGormTransactionScope(db *gorm.DB, acquireTimeout time.Duration) *GormTransactionScope {
	return &GormTransactionScope{
		db:             db,
		acquireTimeout: acquireTimeout,
		repos:          newGormRepositories(db),
	}
}

// NewGormTransactionScopeFromDatabase builds the scope from a Database and its pool settings
func NewGormTransactionScopeFromDatabase(d *Database) *GormTransactionScope {
	s := NewGormTransactionScope(d.DB, d.AcquireTimeout())
	if d.poolMetrics != nil {
		s.onExhausted = d.poolMetrics.RecordExhausted
	}
	return s
}

// Execute runs fn within a database transaction, joining the one in ctx if present.
func (s *GormTransactionScope) Execute(ctx context.Context, fn func(ctx context.Context, repos transaction.Repositories) error) (err error) {
	if txFrom(ctx) != nil {
		return fn(ctx, s.repos)
	}

	sqlDB, err := s.db.DB()
	if err != nil {
		return shared.NewStoreFailure(err)
	}

	acquireCtx, cancel := ctx, context.CancelFunc(func() {})
	if s.acquireTimeout > 0 {
		acquireCtx, cancel = context.WithTimeout(ctx, s.acquireTimeout)
	}
	c, err := sqlDB.Conn(acquireCtx)
	cancel()
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil {
			if s.onExhausted != nil {
				s.onExhausted(ctx)
			}
			return shared.NewResourceExhausted(err)
		}
		return shared.NewStoreFailure(err)
	}
	defer c.Close()

	sqlTx, err := c.BeginTx(ctx, nil)
	if err != nil {
		return shared.NewStoreFailure(err)
	}

	txDB := s.db.Session(&gorm.Session{Context: ctx, NewDB: true})
	txDB.Statement.ConnPool = sqlTx
	st := &txState{db: txDB}
	txCtx := context.WithValue(ctx, txKey{}, st)

	defer func() {
		if r := recover(); r != nil {
			_ = sqlTx.Rollback()
			panic(r)
		}
	}()

	if err := fn(txCtx, s.repos); err != nil {
		_ = sqlTx.Rollback()
		if shared.IsDomainError(err) {
			return err
		}
		return shared.NewStoreFailure(err)
	}
	if err := sqlTx.Commit(); err != nil {
		return shared.NewStoreFailure(err)
	}

	for _, hook := range st.hooks {
		hook(ctx)
	}
	return nil
}

// Repositories returns repositories that follow the transaction carried by each call's context
func (s *GormTransactionScope) Repositories() transaction.Repositories {
	return s.repos
}

// AfterCommit registers fn to run once the transaction in ctx has committed
func (s *GormTransactionScope) AfterCommit(ctx context.Context, fn func(ctx context.Context)) {
	if st := txFrom(ctx); st != nil {
		st.hooks = append(st.hooks, fn)
		return
	}
	fn(ctx)
}

// Ensure GormTransactionScope implements transaction.Scope
var _ transaction.Scope = (*GormTransactionScope)(nil)

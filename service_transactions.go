package permkit

import (
	"context"
	"time"

	"github.com/fernandezvara/dbkit"
)

// withDB returns a Service bound to the given database handle. Used to run
// service operations against a transaction.
func (s *Service) withDB(db dbkit.IDB) *Service {
	clone := *s
	clone.db = db
	return &clone
}

// Transaction executes fn within a database transaction. fn receives a
// Service bound to the transaction; any error rolls everything back,
// otherwise the transaction commits. Nesting uses savepoints.
//
// Example:
//
//	err := service.Transaction(ctx, func(ctx context.Context, txs *permkit.Service) error {
//	    if err := txs.CreateRole(ctx, role); err != nil {
//	        return err // rollback
//	    }
//	    return txs.SetRolePermissions(ctx, role.ID, role.TenantID, permIDs)
//	})
func (s *Service) Transaction(ctx context.Context, fn func(ctx context.Context, txs *Service) error) error {
	start := time.Now()
	var err error

	switch db := s.db.(type) {
	case *dbkit.Tx:
		// Already in a transaction, use a savepoint
		err = db.Transaction(ctx, func(tx *dbkit.Tx) error {
			return fn(ctx, s.withDB(tx))
		})
	case *dbkit.DBKit:
		err = db.Transaction(ctx, func(tx *dbkit.Tx) error {
			return fn(ctx, s.withDB(tx))
		})
	default:
		err = NewError(ErrDatabase, "transaction support requires a dbkit.DBKit or dbkit.Tx instance")
	}

	s.txMonitor.recordTransaction(time.Since(start), err == nil)
	return err
}

// TransactionWithOptions executes fn within a transaction with custom
// options (isolation level, read-only). Options do not apply to nested
// savepoints.
func (s *Service) TransactionWithOptions(ctx context.Context, opts dbkit.TxOptions, fn func(ctx context.Context, txs *Service) error) error {
	start := time.Now()
	var err error

	switch db := s.db.(type) {
	case *dbkit.Tx:
		err = db.Transaction(ctx, func(tx *dbkit.Tx) error {
			return fn(ctx, s.withDB(tx))
		})
	case *dbkit.DBKit:
		err = db.TransactionWithOptions(ctx, opts, func(tx *dbkit.Tx) error {
			return fn(ctx, s.withDB(tx))
		})
	default:
		err = NewError(ErrDatabase, "transaction support requires a dbkit.DBKit or dbkit.Tx instance")
	}

	s.txMonitor.recordTransaction(time.Since(start), err == nil)
	return err
}

// ReadOnlyTransaction executes fn within a read-only transaction, for
// multi-read consistency.
func (s *Service) ReadOnlyTransaction(ctx context.Context, fn func(ctx context.Context, txs *Service) error) error {
	return s.TransactionWithOptions(ctx, dbkit.ReadOnlyTxOptions(), fn)
}

// GetTransactionMetrics returns the current transaction performance metrics.
func (s *Service) GetTransactionMetrics() TransactionMetrics {
	return s.txMonitor.getMetrics()
}

// ResetTransactionMetrics resets all transaction metrics.
func (s *Service) ResetTransactionMetrics() {
	s.txMonitor.reset()
}

// IsTransactionHealthy checks if transaction performance is within
// acceptable thresholds.
func (s *Service) IsTransactionHealthy() bool {
	metrics := s.txMonitor.getMetrics()

	if metrics.TotalTransactions < 10 {
		return true
	}

	failureRate := float64(metrics.FailedTransactions) / float64(metrics.TotalTransactions)
	if failureRate > 0.05 {
		return false
	}

	return metrics.AverageDuration <= time.Second
}

// Package settlement runs the buyer-protection sweep: delivered transactions
// whose confirmation window has lapsed are settled to the seller.
package settlement

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/multierr"
	"gorm.io/gorm"

	"github.com/soukly/soukly-backend/internal/transactions"
	"github.com/soukly/soukly-backend/pkg/config"
	"github.com/soukly/soukly-backend/pkg/errors"
	"github.com/soukly/soukly-backend/pkg/logger"
	"github.com/soukly/soukly-backend/pkg/metrics"
)

const autoSettleCause = "protection_window_expired"

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// ServiceParams configure the settlement sweeper.
type ServiceParams struct {
	Logger       *logger.Logger
	DB           txRunner
	Transactions transactions.Service
	Lock         Lock
	Metrics      *metrics.SettlementMetrics
	Escrow       config.EscrowConfig
}

// Service settles expired-window transactions on a fixed cadence.
type Service struct {
	logg    *logger.Logger
	db      txRunner
	txns    transactions.Service
	lock    Lock
	metrics *metrics.SettlementMetrics
	escrow  config.EscrowConfig
}

// NewService builds the settlement sweeper.
func NewService(params ServiceParams) (*Service, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.DB == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if params.Transactions == nil {
		return nil, fmt.Errorf("transaction service required")
	}
	if params.Lock == nil {
		return nil, fmt.Errorf("lock required")
	}
	escrow := params.Escrow
	if escrow.ProtectionWindow <= 0 {
		escrow.ProtectionWindow = 48 * time.Hour
	}
	if escrow.SweepInterval <= 0 {
		escrow.SweepInterval = 10 * time.Minute
	}
	if escrow.SweepBatchSize <= 0 {
		escrow.SweepBatchSize = 100
	}
	return &Service{
		logg:    params.Logger,
		db:      params.DB,
		txns:    params.Transactions,
		lock:    params.Lock,
		metrics: params.Metrics,
		escrow:  escrow,
	}, nil
}

// Run executes the sweep loop until the context is canceled.
func (s *Service) Run(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	if err := s.sweep(ctx); err != nil {
		s.logg.Error(ctx, "settlement sweep failed", err)
	}
	ticker := time.NewTicker(s.escrow.SweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logg.Info(ctx, "settlement sweeper context canceled")
			return ctx.Err()
		case <-ticker.C:
			if err := s.sweep(ctx); err != nil {
				s.logg.Error(ctx, "settlement sweep failed", err)
			}
		}
	}
}

// sweep settles one batch of due transactions. Each transaction commits in
// its own database transaction so one failure cannot hold back the rest.
func (s *Service) sweep(ctx context.Context) error {
	locked, err := s.lock.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("lock acquire: %w", err)
	}
	if !locked {
		s.logg.Info(ctx, "another sweeper instance is running; skipping this cycle")
		return nil
	}
	defer func() {
		if relErr := s.lock.Release(ctx); relErr != nil {
			s.logg.Error(ctx, "failed to release sweep lock", relErr)
		}
	}()

	start := time.Now()
	cutoff := start.UTC().Add(-s.escrow.ProtectionWindow)
	due, err := s.txns.ListSettlementDue(ctx, cutoff, s.escrow.SweepBatchSize)
	if err != nil {
		s.metrics.ObserveSweep("error", time.Since(start))
		return fmt.Errorf("list settlement due: %w", err)
	}
	if len(due) == 0 {
		s.metrics.ObserveSweep("ok", time.Since(start))
		return nil
	}

	s.logg.Info(s.logg.WithField(ctx, "count", len(due)), "settlement sweep starting")

	var errs error
	settled := 0
	for _, txn := range due {
		ok, err := s.settleOne(ctx, txn.ID)
		if err != nil {
			s.metrics.IncFailure()
			errs = multierr.Append(errs, fmt.Errorf("transaction %s: %w", txn.ID, err))
			continue
		}
		if ok {
			settled++
			s.metrics.IncSettled()
		}
	}

	outcome := "ok"
	if errs != nil {
		outcome = "partial"
	}
	s.metrics.ObserveSweep(outcome, time.Since(start))
	s.logg.Info(s.logg.WithFields(ctx, map[string]any{
		"settled": settled,
		"failed":  len(due) - settled,
	}), "settlement sweep complete")
	return errs
}

func (s *Service) settleOne(ctx context.Context, transactionID uuid.UUID) (bool, error) {
	ctx = s.logg.WithTransactionID(ctx, transactionID.String())
	err := s.db.WithTx(ctx, func(tx *gorm.DB) error {
		_, err := s.txns.SettleTx(ctx, tx, transactionID, uuid.Nil, autoSettleCause)
		return err
	})
	if err != nil {
		// A dispute opened between listing and settling is expected; the
		// transaction leaves the due set on its own.
		if errors.HasCode(err, errors.CodeStateConflict) || errors.HasCode(err, errors.CodeConflict) {
			s.logg.Info(s.logg.WithField(ctx, "reason", err.Error()),
				"skipping transaction no longer eligible for auto settlement")
			return false, nil
		}
		return false, err
	}
	s.logg.Info(ctx, "transaction auto settled after protection window")
	return true, nil
}

package ledger

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/panjf2000/ants/v2"

	"github.com/fintrack/ledger-engine/internal/domain/audit"
)

// RecalculateResult reports the outcome of a ground-truth recompute.
type RecalculateResult struct {
	AccountsChecked   int   `json:"accounts_checked"`
	AccountsCorrected int   `json:"accounts_corrected"`
	TotalDrift        int64 `json:"total_drift"` // Sum of absolute corrections
}

// RecalculateBalances recomputes every account of the owner from the entry
// store and overwrites balances that drifted. Accounts are processed
// concurrently on a bounded worker pool; each account is corrected in its own
// database transaction so one failure does not void the others.
func (e *Engine) RecalculateBalances(ctx context.Context, ownerID uuid.UUID) (*RecalculateResult, error) {
	accounts, err := e.accounts.ListByOwner(ctx, ownerID)
	if err != nil {
		return nil, err
	}

	pool, err := ants.NewPool(e.poolSize)
	if err != nil {
		return nil, err
	}
	defer pool.Release()

	var (
		mu       sync.Mutex
		wg       sync.WaitGroup
		result   = RecalculateResult{AccountsChecked: len(accounts)}
		firstErr error
	)

	for _, acc := range accounts {
		accountID := acc.ID
		wg.Add(1)
		submitErr := pool.Submit(func() {
			defer wg.Done()
			drift, err := e.recalculateAccount(ctx, accountID)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				if firstErr == nil {
					firstErr = err
				}
				return
			}
			if drift != 0 {
				result.AccountsCorrected++
				if drift < 0 {
					drift = -drift
				}
				result.TotalDrift += drift
			}
		})
		if submitErr != nil {
			wg.Done()
			mu.Lock()
			if firstErr == nil {
				firstErr = submitErr
			}
			mu.Unlock()
		}
	}
	wg.Wait()

	if firstErr != nil {
		return nil, firstErr
	}
	e.logger.Info("Balance recalculation finished",
		"owner_id", ownerID.String(),
		"checked", result.AccountsChecked,
		"corrected", result.AccountsCorrected,
	)
	return &result, nil
}

// recalculateAccount returns the drift that was corrected, zero when the
// stored balance already matched the ground truth.
func (e *Engine) recalculateAccount(ctx context.Context, accountID uuid.UUID) (int64, error) {
	var entry *auditEntry
	var drift int64

	err := e.store.ExecuteTx(ctx, func(tx pgx.Tx) error {
		accRepo := e.accounts.WithTx(tx)
		txnRepo := e.transactions.WithTx(tx)

		acc, err := accRepo.LockForUpdate(ctx, accountID)
		if err != nil {
			return err
		}

		sum, err := txnRepo.SumEffectsForAccount(ctx, accountID)
		if err != nil {
			return err
		}

		truth := acc.InitialBalance + sum
		drift = truth - acc.CurrentBalance
		if drift == 0 {
			return nil
		}

		e.logger.Warn("Balance drift detected",
			"account_id", accountID.String(),
			"stored", acc.CurrentBalance,
			"recomputed", truth,
			"drift", drift,
		)

		before := acc.CurrentBalance
		acc.SetBalance(truth)
		if err := accRepo.Update(ctx, acc); err != nil {
			return err
		}

		entry = &auditEntry{
			accountID:     accountID,
			change:        audit.ChangeRecalculated,
			delta:         drift,
			balanceBefore: before,
			balanceAfter:  truth,
			drift:         drift,
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	if entry != nil {
		e.journalEntries(ctx, []auditEntry{*entry})
	}
	return drift, nil
}

// Package credits implements the per-user daily credit budget that
// admission-controls expensive operations.
package credits

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"vibeplane/internal/store"
)

// Rejection reasons, tier-dependent so the caller can suggest an upgrade.
const (
	reasonFreeLimit     = "Daily free credit limit reached. Upgrade for more credits."
	reasonElevatedLimit = "Elevated-tier credit limit reached for today."
)

// LedgerError wraps a persistence failure inside the ledger. Callers must
// treat it as an infrastructure problem, never as insufficient credit.
type LedgerError struct {
	Op  string
	Err error
}

func (e *LedgerError) Error() string {
	return fmt.Sprintf("credit ledger: %s: %v", e.Op, e.Err)
}

func (e *LedgerError) Unwrap() error {
	return e.Err
}

// Store combines transaction control with the credit repository.
type Store interface {
	BeginTx(ctx context.Context) (store.Tx, error)
	store.CreditStore
}

// Result is the outcome of a check-and-consume call.
type Result struct {
	OK        bool
	Remaining int
	Reason    string
}

// Status is the user-visible credit state.
type Status struct {
	Current int
	Daily   int
	Tier    store.Tier
	ResetAt time.Time
	Usage   []store.CreditUsage
}

// Ledger tracks per-user daily credit budgets. All balance mutation for a
// user happens inside a single transaction holding a row lock, so
// concurrent requests cannot both pass a check against a stale balance.
type Ledger struct {
	store  Store
	logger *slog.Logger
	now    func() time.Time
}

// NewLedger creates a ledger backed by the given store.
func NewLedger(s Store, logger *slog.Logger) *Ledger {
	return &Ledger{
		store:  s,
		logger: logger,
		now:    time.Now,
	}
}

// CheckAndConsume verifies the user can afford the action and, when
// consume is true, debits the cost and appends an audit row. When consume
// is false the call is a dry run and mutates nothing, not even a pending
// daily reset.
func (l *Ledger) CheckAndConsume(ctx context.Context, userID string, action Action, consume bool) (Result, error) {
	cost, ok := action.Cost()
	if !ok {
		return Result{}, fmt.Errorf("unknown credit action %q", action)
	}

	tx, err := l.store.BeginTx(ctx)
	if err != nil {
		return Result{}, &LedgerError{Op: "begin tx", Err: err}
	}
	defer tx.Rollback()

	account, err := l.store.GetAccountForUpdate(ctx, tx, userID)
	if err != nil {
		return Result{}, &LedgerError{Op: "load account", Err: err}
	}

	now := l.now().UTC()
	reset := l.applyReset(account, now)

	if account.Balance < cost {
		result := Result{OK: false, Remaining: account.Balance, Reason: limitReason(account.Tier)}
		if !consume {
			return result, nil
		}

		// Rejections are audited too, at zero cost.
		usage := &store.CreditUsage{UserID: userID, Action: string(action), Cost: 0, Success: false, CreatedAt: now}
		if err := l.store.AppendUsage(ctx, tx, usage); err != nil {
			return Result{}, &LedgerError{Op: "append usage", Err: err}
		}
		if reset {
			if err := l.store.SaveAccount(ctx, tx, account); err != nil {
				return Result{}, &LedgerError{Op: "save account", Err: err}
			}
		}
		if err := tx.Commit(); err != nil {
			return Result{}, &LedgerError{Op: "commit", Err: err}
		}
		return result, nil
	}

	if !consume {
		// Dry run: report what a consuming call would leave behind.
		return Result{OK: true, Remaining: account.Balance - cost}, nil
	}

	account.Balance -= cost
	if err := l.store.SaveAccount(ctx, tx, account); err != nil {
		return Result{}, &LedgerError{Op: "save account", Err: err}
	}

	usage := &store.CreditUsage{UserID: userID, Action: string(action), Cost: cost, Success: true, CreatedAt: now}
	if err := l.store.AppendUsage(ctx, tx, usage); err != nil {
		return Result{}, &LedgerError{Op: "append usage", Err: err}
	}

	if err := tx.Commit(); err != nil {
		return Result{}, &LedgerError{Op: "commit", Err: err}
	}

	l.logger.Debug("credits consumed",
		"user_id", userID,
		"action", string(action),
		"cost", cost,
		"remaining", account.Balance,
	)

	return Result{OK: true, Remaining: account.Balance}, nil
}

// GetStatus returns the user's current credit state plus recent usage.
// A pending daily reset is applied and persisted on read.
func (l *Ledger) GetStatus(ctx context.Context, userID string) (*Status, error) {
	tx, err := l.store.BeginTx(ctx)
	if err != nil {
		return nil, &LedgerError{Op: "begin tx", Err: err}
	}
	defer tx.Rollback()

	account, err := l.store.GetAccountForUpdate(ctx, tx, userID)
	if err != nil {
		return nil, &LedgerError{Op: "load account", Err: err}
	}

	if l.applyReset(account, l.now().UTC()) {
		if err := l.store.SaveAccount(ctx, tx, account); err != nil {
			return nil, &LedgerError{Op: "save account", Err: err}
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, &LedgerError{Op: "commit", Err: err}
	}

	usage, err := l.store.ListUsage(ctx, userID, 10)
	if err != nil {
		return nil, &LedgerError{Op: "list usage", Err: err}
	}

	return &Status{
		Current: account.Balance,
		Daily:   account.Tier.Allowance(),
		Tier:    account.Tier,
		ResetAt: account.ResetAt,
		Usage:   usage,
	}, nil
}

// applyReset refills the balance when the reset boundary has passed and
// advances the boundary to the next day. Returns true if the account changed.
func (l *Ledger) applyReset(account *store.CreditAccount, now time.Time) bool {
	if now.Before(account.ResetAt) {
		return false
	}

	today := now.Truncate(24 * time.Hour)
	account.Balance = account.Tier.Allowance()
	account.ResetAt = today.Add(24 * time.Hour)
	return true
}

func limitReason(tier store.Tier) string {
	if tier == store.TierElevated {
		return reasonElevatedLimit
	}
	return reasonFreeLimit
}

package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"vibeplane/internal/store"
)

// GetAccountForUpdate loads the user's credit account inside tx with a
// row lock, creating it with the standard tier allowance if missing.
// The lock is what makes concurrent check-and-consume calls for the same
// user serialize instead of double-spending a stale balance.
func (s *Store) GetAccountForUpdate(ctx context.Context, tx store.DBTransaction, userID string) (*store.CreditAccount, error) {
	insert := `
		INSERT INTO credit_accounts (user_id, balance, tier, reset_at, created_at)
		VALUES ($1, $2, $3, $4, NOW())
		ON CONFLICT (user_id) DO NOTHING
	`

	executor := s.executor(tx)

	resetAt := time.Now().UTC().Truncate(24 * time.Hour).Add(24 * time.Hour)
	if _, err := executor.ExecContext(ctx, insert, userID, store.DailyAllowanceStandard, store.TierStandard, resetAt); err != nil {
		return nil, fmt.Errorf("failed to ensure credit account for %s: %w", userID, err)
	}

	query := `
		SELECT user_id, balance, tier, reset_at, created_at
		FROM credit_accounts
		WHERE user_id = $1
		FOR UPDATE
	`

	var account store.CreditAccount
	err := executor.QueryRowContext(ctx, query, userID).Scan(
		&account.UserID,
		&account.Balance,
		&account.Tier,
		&account.ResetAt,
		&account.CreatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	return &account, nil
}

// SaveAccount writes the balance and reset boundary back.
func (s *Store) SaveAccount(ctx context.Context, tx store.DBTransaction, account *store.CreditAccount) error {
	query := `
		UPDATE credit_accounts
		SET balance = $2, tier = $3, reset_at = $4
		WHERE user_id = $1
	`

	executor := s.executor(tx)
	result, err := executor.ExecContext(ctx, query, account.UserID, account.Balance, account.Tier, account.ResetAt)
	if err != nil {
		return fmt.Errorf("failed to save credit account for %s: %w", account.UserID, err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return store.ErrNotFound
	}

	return nil
}

// AppendUsage inserts one audit row. Rows are never updated or deleted.
func (s *Store) AppendUsage(ctx context.Context, tx store.DBTransaction, usage *store.CreditUsage) error {
	query := `
		INSERT INTO credit_usage (user_id, action, cost, success, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`

	createdAt := usage.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	executor := s.executor(tx)
	_, err := executor.ExecContext(ctx, query, usage.UserID, usage.Action, usage.Cost, usage.Success, createdAt)
	return err
}

// ListUsage returns the user's most recent audit rows, newest first.
func (s *Store) ListUsage(ctx context.Context, userID string, limit int) ([]store.CreditUsage, error) {
	if limit <= 0 {
		limit = 10
	}

	query := `
		SELECT id, user_id, action, cost, success, created_at
		FROM credit_usage
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`

	rows, err := s.db.QueryContext(ctx, query, userID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var usage []store.CreditUsage
	for rows.Next() {
		var u store.CreditUsage
		if err := rows.Scan(&u.ID, &u.UserID, &u.Action, &u.Cost, &u.Success, &u.CreatedAt); err != nil {
			return nil, err
		}
		usage = append(usage, u)
	}

	return usage, rows.Err()
}

// Package ledger is the only code allowed to mutate credit balances.
// Every mutation is a single conditional UPDATE plus an audit row written
// in the same transaction, so concurrent reservations for one user can
// never overdraw.
package ledger

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	"roomlift/api/internal/ids"
	"roomlift/api/internal/models"
)

var ErrBalanceNotFound = errors.New("credit balance not found")

// InsufficientCreditError carries the amounts the API surfaces with a 402.
type InsufficientCreditError struct {
	Required  float64
	Available float64
}

func (e *InsufficientCreditError) Error() string {
	return fmt.Sprintf("insufficient credits: required %.2f, available %.2f", e.Required, e.Available)
}

type Ledger struct {
	pool *pgxpool.Pool
	log  zerolog.Logger
}

func New(pool *pgxpool.Pool, log zerolog.Logger) *Ledger {
	return &Ledger{pool: pool, log: log}
}

// Reserve checks and deducts in one statement. The WHERE clause is the
// overdraft guard: if it does not match, either the balance row is missing
// or the funds are short, and nothing is written.
func (l *Ledger) Reserve(ctx context.Context, userID string, amount float64, logID string) error {
	tx, err := l.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin reserve: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	const deduct = `
		UPDATE credit_balances
		SET balance = balance - $2, updated_at = NOW()
		WHERE user_id = $1 AND balance >= $2
		RETURNING balance
	`

	var balanceAfter float64
	if err := tx.QueryRow(ctx, deduct, userID, amount).Scan(&balanceAfter); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			// No match means short funds or no balance row at all; an
			// unprovisioned user is just a zero balance to the caller.
			available, lookupErr := l.Balance(ctx, userID)
			if lookupErr != nil && !errors.Is(lookupErr, ErrBalanceNotFound) {
				return lookupErr
			}
			return &InsufficientCreditError{Required: amount, Available: available}
		}
		return fmt.Errorf("deduct credits: %w", err)
	}

	if err := insertTransaction(ctx, tx, models.CreditTransaction{
		ID:           ids.New(),
		UserID:       userID,
		Type:         models.CreditTxReserve,
		Amount:       -amount,
		BalanceAfter: balanceAfter,
		LogID:        &logID,
		Description:  "credits reserved for job",
	}); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit reserve: %w", err)
	}

	l.log.Debug().
		Str("user_id", userID).
		Float64("amount", amount).
		Float64("balance_after", balanceAfter).
		Msg("credits reserved")
	return nil
}

// Refund credits back unconditionally. The at-most-once guarantee lives in
// the caller, which only refunds after it performed the log's terminal
// transition itself.
func (l *Ledger) Refund(ctx context.Context, userID string, amount float64, logID string) error {
	tx, err := l.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin refund: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	const credit = `
		UPDATE credit_balances
		SET balance = balance + $2, updated_at = NOW()
		WHERE user_id = $1
		RETURNING balance
	`

	var balanceAfter float64
	if err := tx.QueryRow(ctx, credit, userID, amount).Scan(&balanceAfter); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrBalanceNotFound
		}
		return fmt.Errorf("refund credits: %w", err)
	}

	if err := insertTransaction(ctx, tx, models.CreditTransaction{
		ID:           ids.New(),
		UserID:       userID,
		Type:         models.CreditTxRefund,
		Amount:       amount,
		BalanceAfter: balanceAfter,
		LogID:        &logID,
		Description:  "credits refunded for failed job",
	}); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit refund: %w", err)
	}

	l.log.Debug().
		Str("user_id", userID).
		Float64("amount", amount).
		Float64("balance_after", balanceAfter).
		Msg("credits refunded")
	return nil
}

func (l *Ledger) Balance(ctx context.Context, userID string) (float64, error) {
	const query = `SELECT balance FROM credit_balances WHERE user_id = $1`

	var balance float64
	if err := l.pool.QueryRow(ctx, query, userID).Scan(&balance); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, ErrBalanceNotFound
		}
		return 0, err
	}
	return balance, nil
}

func (l *Ledger) Transactions(ctx context.Context, userID string, limit int) ([]models.CreditTransaction, error) {
	const query = `
		SELECT id, user_id, type, amount, balance_after, log_id, description, created_at
		FROM credit_transactions
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`
	rows, err := l.pool.Query(ctx, query, userID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.CreditTransaction
	for rows.Next() {
		var tx models.CreditTransaction
		if err := rows.Scan(
			&tx.ID,
			&tx.UserID,
			&tx.Type,
			&tx.Amount,
			&tx.BalanceAfter,
			&tx.LogID,
			&tx.Description,
			&tx.CreatedAt,
		); err != nil {
			return nil, err
		}
		out = append(out, tx)
	}
	return out, rows.Err()
}

func insertTransaction(ctx context.Context, tx pgx.Tx, entry models.CreditTransaction) error {
	const query = `
		INSERT INTO credit_transactions (
			id, user_id, type, amount, balance_after, log_id, description, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, NOW())
	`
	if _, err := tx.Exec(ctx, query,
		entry.ID,
		entry.UserID,
		entry.Type,
		entry.Amount,
		entry.BalanceAfter,
		entry.LogID,
		entry.Description,
	); err != nil {
		return fmt.Errorf("record transaction: %w", err)
	}
	return nil
}

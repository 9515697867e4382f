package repository

import (
	"context"
	"errors"
	"fmt"

	"freshcart/internal/model"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
)

type walletRepository struct {
	pool   *pgxpool.Pool
	logger zerolog.Logger
}

// NewWalletRepository creates a new PostgreSQL-backed wallet repository.
func NewWalletRepository(pool *pgxpool.Pool, logger zerolog.Logger) WalletRepository {
	return &walletRepository{
		pool:   pool,
		logger: logger.With().Str("repository", "wallet").Logger(),
	}
}

// GetBalance returns zero for users without a wallet.
func (r *walletRepository) GetBalance(ctx context.Context, userID uuid.UUID) (model.Money, error) {
	var balance int64
	err := r.pool.QueryRow(ctx, `SELECT balance FROM wallets WHERE user_id = $1`, userID).Scan(&balance)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, nil
		}
		r.logger.Error().Err(err).Str("user_id", userID.String()).Msg("failed to query wallet balance")
		return 0, fmt.Errorf("failed to query wallet balance: %w", err)
	}
	return model.Money(balance), nil
}

// Debit removes amount when the balance covers it and records a ledger entry.
func (r *walletRepository) Debit(ctx context.Context, tx pgx.Tx, userID, orderID uuid.UUID, amount model.Money) (bool, error) {
	tag, err := tx.Exec(ctx, `
		UPDATE wallets
		SET balance = balance - $2, updated_at = NOW()
		WHERE user_id = $1 AND balance >= $2
	`, userID, int64(amount))
	if err != nil {
		r.logger.Error().Err(err).Str("user_id", userID.String()).Msg("failed to debit wallet")
		return false, fmt.Errorf("failed to debit wallet: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return false, nil
	}

	if amount > 0 {
		if err := r.record(ctx, tx, userID, orderID, amount, model.WalletDebit); err != nil {
			return false, err
		}
	}

	return true, nil
}

// Credit adds amount, creating the wallet if needed, and records a ledger entry.
func (r *walletRepository) Credit(ctx context.Context, tx pgx.Tx, userID, orderID uuid.UUID, amount model.Money) error {
	if amount <= 0 {
		return nil
	}

	_, err := tx.Exec(ctx, `
		INSERT INTO wallets (user_id, balance, updated_at)
		VALUES ($1, $2, NOW())
		ON CONFLICT (user_id) DO UPDATE
		SET balance = wallets.balance + EXCLUDED.balance, updated_at = NOW()
	`, userID, int64(amount))
	if err != nil {
		r.logger.Error().Err(err).Str("user_id", userID.String()).Msg("failed to credit wallet")
		return fmt.Errorf("failed to credit wallet: %w", err)
	}

	return r.record(ctx, tx, userID, orderID, amount, model.WalletCredit)
}

func (r *walletRepository) record(ctx context.Context, tx pgx.Tx, userID, orderID uuid.UUID, amount model.Money, kind model.WalletTransactionKind) error {
	_, err := tx.Exec(ctx, `
		INSERT INTO wallet_transactions (id, user_id, order_id, amount, kind)
		VALUES ($1, $2, $3, $4, $5)
	`, uuid.New(), userID, orderID, int64(amount), kind)
	if err != nil {
		r.logger.Error().Err(err).
			Str("user_id", userID.String()).
			Str("kind", string(kind)).
			Msg("failed to record wallet transaction")
		return fmt.Errorf("failed to record wallet transaction: %w", err)
	}
	return nil
}

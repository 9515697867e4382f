package model

import (
	"time"

	"github.com/google/uuid"
)

// Wallet holds a user's stored balance.
type Wallet struct {
	UserID    uuid.UUID `json:"userId" db:"user_id"`
	Balance   Money     `json:"balance" db:"balance"`
	UpdatedAt time.Time `json:"updatedAt" db:"updated_at"`
}

// WalletTransactionKind is the direction of a wallet ledger entry.
type WalletTransactionKind string

const (
	WalletDebit  WalletTransactionKind = "DEBIT"
	WalletCredit WalletTransactionKind = "CREDIT"
)

package models

import "time"

type CreditTransactionType string

const (
	CreditTxReserve CreditTransactionType = "reserve"
	CreditTxRefund  CreditTransactionType = "refund"
	CreditTxTopUp   CreditTransactionType = "topup"
)

// CreditBalance is a user's prepaid balance. It is mutated only through
// the ledger; nothing else writes this table.
type CreditBalance struct {
	UserID    string
	Balance   float64
	UpdatedAt time.Time
}

// CreditTransaction is the audit row written alongside every balance
// mutation.
type CreditTransaction struct {
	ID           string
	UserID       string
	Type         CreditTransactionType
	Amount       float64
	BalanceAfter float64
	LogID        *string
	Description  string
	CreatedAt    time.Time
}

package models

import "time"

// Transaction type ids match the seeded transaction_types rows.
const (
	TypePayment    int64 = 1 // 지급
	TypeDeposit    int64 = 2 // 입금
	TypeWithdrawal int64 = 3 // 출금
	TypeInvestment int64 = 4 // 투자
)

// Transaction is an append-only journal row. Rows are never updated or
// deleted after insert.
type Transaction struct {
	ID           int64     `json:"id"`
	TypeID       *int64    `json:"type_id"`
	Information  string    `json:"information"`
	Amounts      int64     `json:"amounts"`
	DepositID    int64     `json:"deposit_id"`
	UserID       int64     `json:"user_id"`
	InvestmentID *int64    `json:"investment_id,omitempty"`
	CreatedTime  time.Time `json:"created_time"`
}

// Repayment records a principal and interest payout against a journal row.
type Repayment struct {
	ID            int64 `json:"id"`
	Principal     int64 `json:"principal"`
	Interest      int64 `json:"interest"`
	TransactionID int64 `json:"transaction_id"`
}

package models

import "time"

// Account is a user's custodial cash account (the deposit table).
// Balance is held in won and must never go negative.
type Account struct {
	ID                int64     `json:"id"`
	WithdrawalAccount string    `json:"withdrawal_account"`
	WithdrawalBankID  int64     `json:"withdrawal_bank_id"`
	DepositAccount    string    `json:"deposit_account"`
	DepositBankID     int64     `json:"deposit_bank_id"`
	Balance           int64     `json:"balance"`
	UpdatedAt         time.Time `json:"updated_at"`
}

package models

// Investment state ids match the seeded investment_states rows.
const (
	InvestmentStateInvesting int64 = 1 // 투자중
	InvestmentStateComplete  int64 = 2 // 투자 종료
	InvestmentStateLoss      int64 = 3 // 손실
)

// Repayment state ids match the seeded repayment_states rows.
const (
	RepaymentStateNormal  int64 = 1 // 정상
	RepaymentStateDelay   int64 = 2 // 연체
	RepaymentStateOverdue int64 = 3 // 부실
)

// Portfolio is a user's position in one investment. At most one row
// exists per (user, investment) pair; repeated pledges accumulate into
// Amounts.
type Portfolio struct {
	ID                int64 `json:"id"`
	UserID            int64 `json:"user_id"`
	InvestmentID      int64 `json:"investment_id"`
	Amounts           int64 `json:"amounts"`
	InvestmentStateID int64 `json:"investment_state_id"`
	RepaymentStateID  int64 `json:"repayment_state_id"`
}

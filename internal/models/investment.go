package models

import "time"

// Investment is a funding target listed on the platform. CurrentAmount
// tracks pledged funds and may exceed TargetAmount.
type Investment struct {
	ID              int64     `json:"id"`
	Name            string    `json:"name"`
	GradeID         int64     `json:"grade_id"`
	ReturnRate      float64   `json:"return_rate"`
	Duration        int64     `json:"duration"`
	TargetAmount    int64     `json:"target_amount"`
	CurrentAmount   int64     `json:"current_amount"`
	RepaymentTypeID int64     `json:"repayment_type_id"`
	SecurityID      int64     `json:"security_id"`
	DetailID        int64     `json:"detail_id"`
	BorrowerID      int64     `json:"borrower_id"`
	CreatedAt       time.Time `json:"created_at"`
}

type Grade struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

type RepaymentType struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

type LoanType struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// Security is the collateral property backing an investment.
type Security struct {
	ID                   int64   `json:"id"`
	Address              string  `json:"address"`
	CompletionDate       string  `json:"completion_date"`
	SupplyArea           float64 `json:"supply_area"`
	Household            int64   `json:"household"`
	ExclusivePrivateArea float64 `json:"exclusive_private_area"`
	LeaseStatus          string  `json:"lease_status"`
	Latitude             float64 `json:"latitude"`
	Longitude            float64 `json:"longitude"`
}

// InvestmentDetail carries the appraisal figures used to derive LTV and
// the expected recovery amount.
type InvestmentDetail struct {
	ID                 int64   `json:"id"`
	EvaluationPrice    int64   `json:"evaluation_price"`
	RepaymentDay       int64   `json:"repayment_day"`
	PriorityBondAmount int64   `json:"priority_bond_amount"`
	LoanTypeID         int64   `json:"loan_type_id"`
	BiddingRate        float64 `json:"bidding_rate"`
}

type BorrowerInformation struct {
	ID              int64  `json:"id"`
	CreditScore     int64  `json:"credit_score"`
	IncomeType      string `json:"income_type"`
	Income          int64  `json:"income"`
	CardUsageAmount int64  `json:"card_usage_amount"`
	LoanAmount      int64  `json:"loan_amount"`
	IsOverdue       string `json:"is_overdue"`
	OverdueTax      int64  `json:"overdue_tax"`
}

type Image struct {
	ID           int64  `json:"id"`
	URL          string `json:"url"`
	InvestmentID int64  `json:"investment_id"`
}

package services

import (
	"database/sql"
	"log"
	"net/http"
	"strings"

	"github.com/samber/lo"
	"github.com/wecode-bootcamp-korea/24-2nd-111percent-backend/internal/models"
)

// Per-user investment caps in won. Remaining headroom is reported
// against the sum of all open positions.
const (
	grossInvestmentLimit      = 30_000_000
	realEstateInvestmentLimit = 10_000_000
)

// PortfolioService assembles the portfolio summary from the deposit
// account, the position store and the repayment records. Bucket fields
// are pointers so empty buckets serialize as null rather than 0.
type PortfolioService struct {
	db *sql.DB
}

func NewPortfolioService(db *sql.DB) *PortfolioService {
	return &PortfolioService{db: db}
}

type position struct {
	Amount            int64
	InvestmentStateID int64
	RepaymentStateID  int64
	ReturnRate        float64
	GradeName         string
}

type depositInformation struct {
	WithdrawalAccount         string `json:"withdrawal_account"`
	DepositAccount            string `json:"deposit_account"`
	DepositBalance            int64  `json:"deposit_balance"`
	GrossInvestmentLimit      int64  `json:"gross_investment_limit"`
	RealEstateInvestmentLimit int64  `json:"real_estate_investment_limit"`
}

type generalInformation struct {
	RateOfReturn     *float64 `json:"rate_of_return"`
	Assets           int64    `json:"assets"`
	CumulativeProfit *int64   `json:"cumulative_profit"`
}

type currentCondition struct {
	InvestingAmount        *int64 `json:"investing_amount"`
	InvestCompletedAmount  *int64 `json:"invest_completed_amount"`
	LossAmount             *int64 `json:"loss_amount"`
	InvestingNormalAmount  *int64 `json:"investing_normal_amount"`
	InvestingDelayAmount   *int64 `json:"investing_delay_amount"`
	InvestingOverdueAmount *int64 `json:"investing_overdue_amount"`
}

type gradeBuckets struct {
	A *int64 `json:"A"`
	B *int64 `json:"B"`
	C *int64 `json:"C"`
	D *int64 `json:"D"`
}

type returnRateBuckets struct {
	Under8 *int64 `json:"8_under"`
	From8  *int64 `json:"8_over_or_equal"`
	From10 *int64 `json:"10_over_or_equal"`
	From12 *int64 `json:"12_over_or_equal"`
}

type portfolioCondition struct {
	Grade      gradeBuckets      `json:"grade"`
	ReturnRate returnRateBuckets `json:"return_rate"`
}

type portfolioResults struct {
	DepositInformation depositInformation `json:"deposit_information"`
	GeneralInformation generalInformation `json:"investment_general_infomation"`
	CurrentCondition   currentCondition   `json:"investment_current_condition"`
	PortfolioCondition portfolioCondition `json:"portfolio_current_condition"`
}

// Portfolio returns the authenticated user's portfolio summary
// @Summary Portfolio summary
// @Description Aggregate the user's cash account, positions and repayments
// @Tags portfolios
// @Produce json
// @Success 200 {object} object{results=portfolioResults}
// @Failure 400 {object} map[string]string
// @Router /transactions/portfolio [get]
func (ps *PortfolioService) Portfolio(w http.ResponseWriter, r *http.Request) {
	userID, ok := r.Context().Value("userID").(int64)
	if !ok {
		SendMessage(w, MsgInvalidUser, http.StatusBadRequest)
		return
	}

	var (
		withdrawalBank    string
		withdrawalAccount string
		depositBank       string
		depositAccount    string
		balance           int64
	)
	err := ps.db.QueryRow(`
		SELECT wb.name, d.withdrawal_account, db.name, d.deposit_account, d.balance
		FROM deposit d
		JOIN users u ON u.deposit_id = d.id
		JOIN banks wb ON d.withdrawal_bank_id = wb.id
		JOIN banks db ON d.deposit_bank_id = db.id
		WHERE u.id = $1`, userID).Scan(
		&withdrawalBank, &withdrawalAccount, &depositBank, &depositAccount, &balance)
	if err != nil {
		log.Printf("[PORTFOLIO] Account lookup failed for user %d: %v", userID, err)
		SendMessage(w, MsgInvalidUser, http.StatusBadRequest)
		return
	}

	positions, err := ps.fetchPositions(userID)
	if err != nil {
		log.Printf("[PORTFOLIO] Position query failed for user %d: %v", userID, err)
		SendMessage(w, "INTERNAL_SERVER_ERROR", http.StatusInternalServerError)
		return
	}

	cumulativeProfit, err := ps.fetchCumulativeProfit(userID)
	if err != nil {
		log.Printf("[PORTFOLIO] Repayment query failed for user %d: %v", userID, err)
		SendMessage(w, "INTERNAL_SERVER_ERROR", http.StatusInternalServerError)
		return
	}

	invested := lo.SumBy(positions, func(p position) int64 { return p.Amount })

	var rateOfReturn *float64
	if len(positions) > 0 {
		avg := lo.SumBy(positions, func(p position) float64 { return p.ReturnRate }) / float64(len(positions))
		rateOfReturn = &avg
	}

	results := portfolioResults{
		DepositInformation: depositInformation{
			WithdrawalAccount:         withdrawalBank + withdrawalAccount,
			DepositAccount:            depositBank + depositAccount,
			DepositBalance:            balance,
			GrossInvestmentLimit:      grossInvestmentLimit - invested,
			RealEstateInvestmentLimit: realEstateInvestmentLimit - invested,
		},
		GeneralInformation: generalInformation{
			RateOfReturn:     rateOfReturn,
			Assets:           invested + balance,
			CumulativeProfit: cumulativeProfit,
		},
		CurrentCondition: currentCondition{
			InvestingAmount: sumAmounts(positions, func(p position) bool {
				return p.InvestmentStateID == models.InvestmentStateInvesting
			}),
			InvestCompletedAmount: sumAmounts(positions, func(p position) bool {
				return p.InvestmentStateID == models.InvestmentStateComplete
			}),
			LossAmount: sumAmounts(positions, func(p position) bool {
				return p.InvestmentStateID == models.InvestmentStateLoss
			}),
			InvestingNormalAmount: sumAmounts(positions, func(p position) bool {
				return p.InvestmentStateID == models.InvestmentStateInvesting && p.RepaymentStateID == models.RepaymentStateNormal
			}),
			InvestingDelayAmount: sumAmounts(positions, func(p position) bool {
				return p.InvestmentStateID == models.InvestmentStateInvesting && p.RepaymentStateID == models.RepaymentStateDelay
			}),
			InvestingOverdueAmount: sumAmounts(positions, func(p position) bool {
				return p.InvestmentStateID == models.InvestmentStateInvesting && p.RepaymentStateID == models.RepaymentStateOverdue
			}),
		},
		PortfolioCondition: portfolioCondition{
			Grade: gradeBuckets{
				A: sumAmounts(positions, gradeMatches("A")),
				B: sumAmounts(positions, gradeMatches("B")),
				C: sumAmounts(positions, gradeMatches("C")),
				D: sumAmounts(positions, gradeMatches("D")),
			},
			ReturnRate: returnRateBuckets{
				Under8: sumAmounts(positions, func(p position) bool { return p.ReturnRate < 8 }),
				From8:  sumAmounts(positions, func(p position) bool { return p.ReturnRate >= 8 && p.ReturnRate < 10 }),
				From10: sumAmounts(positions, func(p position) bool { return p.ReturnRate >= 10 && p.ReturnRate < 12 }),
				From12: sumAmounts(positions, func(p position) bool { return p.ReturnRate >= 12 }),
			},
		},
	}

	SendJSON(w, http.StatusOK, map[string]any{"results": results})
}

func (ps *PortfolioService) fetchPositions(userID int64) ([]position, error) {
	rows, err := ps.db.Query(`
		SELECT p.amounts, p.investment_state_id, p.repayment_state_id, i.return_rate, g.name
		FROM portfolios p
		JOIN investments i ON p.investment_id = i.id
		JOIN grades g ON i.grade_id = g.id
		WHERE p.user_id = $1`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	positions := []position{}
	for rows.Next() {
		var p position
		if err := rows.Scan(&p.Amount, &p.InvestmentStateID, &p.RepaymentStateID, &p.ReturnRate, &p.GradeName); err != nil {
			return nil, err
		}
		positions = append(positions, p)
	}

	return positions, rows.Err()
}

// fetchCumulativeProfit sums all interest ever repaid to the user. Nil
// means no repayment has happened yet.
func (ps *PortfolioService) fetchCumulativeProfit(userID int64) (*int64, error) {
	var total sql.NullInt64
	err := ps.db.QueryRow(`
		SELECT SUM(r.interest)
		FROM repayments r
		JOIN transactions t ON r.transaction_id = t.id
		WHERE t.user_id = $1`, userID).Scan(&total)
	if err != nil {
		return nil, err
	}

	if !total.Valid {
		return nil, nil
	}
	return &total.Int64, nil
}

// sumAmounts totals the matching positions, or nil when none match.
func sumAmounts(positions []position, keep func(position) bool) *int64 {
	matched := lo.Filter(positions, func(p position, _ int) bool { return keep(p) })
	if len(matched) == 0 {
		return nil
	}

	total := lo.SumBy(matched, func(p position) int64 { return p.Amount })
	return &total
}

// Grade names are substring matched, so a B+ position counts toward the
// B bucket and an A position toward A.
func gradeMatches(letter string) func(position) bool {
	return func(p position) bool {
		return strings.Contains(p.GradeName, letter)
	}
}

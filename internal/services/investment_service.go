package services

import (
	"database/sql"
	"encoding/json"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-redis/redis/v8"
)

// InvestmentService serves the public catalog. Responses are cached in
// Redis briefly since listings change only when the loader runs or a
// pledge lands.
type InvestmentService struct {
	db    *sql.DB
	redis *redis.Client
}

const (
	investmentListCacheKey = "investments:list"
	investmentCacheTTL     = time.Minute
)

func NewInvestmentService(db *sql.DB, redisClient *redis.Client) *InvestmentService {
	return &InvestmentService{
		db:    db,
		redis: redisClient,
	}
}

type investmentSummary struct {
	ID              int64   `json:"id"`
	Name            string  `json:"name"`
	ReturnRate      float64 `json:"return_rate"`
	Duration        int64   `json:"duration"`
	TargetAmount    int64   `json:"target_amount"`
	Grade           string  `json:"grade"`
	Image           string  `json:"image"`
	RecruitmentRate int64   `json:"recrutement_rate"`
}

// List returns every investment on the platform
// @Summary List investments
// @Description List all investments with their funding progress
// @Tags investments
// @Produce json
// @Success 200 {object} object{investments=[]investmentSummary}
// @Failure 404 {object} map[string]string
// @Router /investments [get]
func (is *InvestmentService) List(w http.ResponseWriter, r *http.Request) {
	if is.redis != nil {
		if cached, err := is.redis.Get(r.Context(), investmentListCacheKey).Bytes(); err == nil {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusOK)
			w.Write(cached)
			return
		}
	}

	rows, err := is.db.Query(`
		SELECT i.id, i.name, i.return_rate, i.duration, i.target_amount, i.current_amount, g.name,
		       COALESCE((SELECT url FROM images WHERE investment_id = i.id ORDER BY id LIMIT 1), '')
		FROM investments i
		JOIN grades g ON i.grade_id = g.id
		ORDER BY i.id`)
	if err != nil {
		log.Printf("[INVESTMENT] List query failed: %v", err)
		SendMessage(w, "INTERNAL_SERVER_ERROR", http.StatusInternalServerError)
		return
	}
	defer rows.Close()

	investments := []investmentSummary{}
	for rows.Next() {
		var inv investmentSummary
		var currentAmount int64
		if err := rows.Scan(&inv.ID, &inv.Name, &inv.ReturnRate, &inv.Duration,
			&inv.TargetAmount, &currentAmount, &inv.Grade, &inv.Image); err != nil {
			log.Printf("[INVESTMENT] List scan failed: %v", err)
			SendMessage(w, "INTERNAL_SERVER_ERROR", http.StatusInternalServerError)
			return
		}
		inv.RecruitmentRate = recruitmentRate(currentAmount, inv.TargetAmount)
		investments = append(investments, inv)
	}

	if len(investments) == 0 {
		SendJSON(w, http.StatusNotFound, map[string]string{"MESSAGE": "INVESTMENTS_DOES_NOT_EXISTS"})
		return
	}

	body, err := json.Marshal(map[string]any{"investments": investments})
	if err != nil {
		SendMessage(w, "INTERNAL_SERVER_ERROR", http.StatusInternalServerError)
		return
	}

	if is.redis != nil {
		if err := is.redis.Set(r.Context(), investmentListCacheKey, body, investmentCacheTTL).Err(); err != nil {
			log.Printf("[INVESTMENT] Cache write failed: %v", err)
		}
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write(body)
}

type investmentDetail struct {
	ImageList            []string `json:"image_list"`
	ID                   int64    `json:"id"`
	Name                 string   `json:"name"`
	Grade                string   `json:"grade"`
	ReturnRate           float64  `json:"return_rate"`
	Duration             int64    `json:"duration"`
	RepaymentTypes       string   `json:"repayment_types"`
	CurrentAmount        int64    `json:"current_ammount"`
	TargetAmount         int64    `json:"target_amount"`
	RecruitmentRate      int64    `json:"recrutement_rate"`
	LTV                  float64  `json:"LTV"`
	RepaymentDay         int64    `json:"repayment_day"`
	LoanType             string   `json:"loan_type"`
	EvaluationPrice      int64    `json:"evaluation_price"`
	PriorityBondAmount   int64    `json:"priority_bond_amount"`
	SecuritySurcharge    int64    `json:"security_surcharge"`
	BiddingRate          float64  `json:"bidding_rate"`
	ExpectedRecovery     float64  `json:"expected_recovery"`
	Address              string   `json:"address"`
	CompletionDate       string   `json:"completion_date"`
	Household            int64    `json:"household"`
	SupplyArea           float64  `json:"supply_area"`
	ExclusivePrivateArea float64  `json:"exclusive_private_area"`
	LeaseStatus          string   `json:"lease_status"`
	Latitude             float64  `json:"latitude"`
	Longitude            float64  `json:"longitude"`
	CreditScore          int64    `json:"credit_score"`
	IncomeType           string   `json:"income_type"`
	Income               int64    `json:"income"`
	CardUsageAmount      int64    `json:"card_usage_amount"`
	LoanAmount           int64    `json:"loan_amount"`
	IsOverdue            string   `json:"is_overdue"`
	OverdueTax           int64    `json:"overdue_tax"`
}

// Detail returns one investment with appraisal and borrower data
// @Summary Investment detail
// @Description Full listing detail including collateral and borrower information
// @Tags investments
// @Produce json
// @Param investmentID path int true "Investment ID"
// @Success 200 {object} investmentDetail
// @Failure 404 {object} map[string]string
// @Router /investments/{investmentID} [get]
func (is *InvestmentService) Detail(w http.ResponseWriter, r *http.Request) {
	investmentID, err := strconv.ParseInt(chi.URLParam(r, "investmentID"), 10, 64)
	if err != nil {
		SendJSON(w, http.StatusNotFound, map[string]string{"MESSAGE": "NOT_FOUND"})
		return
	}

	var detail investmentDetail
	err = is.db.QueryRow(`
		SELECT i.id, i.name, g.name, i.return_rate, i.duration, rt.name,
		       i.current_amount, i.target_amount,
		       d.repayment_day, lt.name, d.evaluation_price, d.priority_bond_amount, d.bidding_rate,
		       s.address, s.completion_date, s.household, s.supply_area,
		       s.exclusive_private_area, s.lease_status, s.latitude, s.longitude,
		       b.credit_score, b.income_type, b.income, b.card_usage_amount,
		       b.loan_amount, b.is_overdue, b.overdue_tax
		FROM investments i
		JOIN grades g ON i.grade_id = g.id
		JOIN repayment_types rt ON i.repayment_type_id = rt.id
		JOIN investment_details d ON i.detail_id = d.id
		JOIN loan_types lt ON d.loan_type_id = lt.id
		JOIN securities s ON i.security_id = s.id
		JOIN borrower_informations b ON i.borrower_id = b.id
		WHERE i.id = $1`, investmentID).Scan(
		&detail.ID, &detail.Name, &detail.Grade, &detail.ReturnRate, &detail.Duration, &detail.RepaymentTypes,
		&detail.CurrentAmount, &detail.TargetAmount,
		&detail.RepaymentDay, &detail.LoanType, &detail.EvaluationPrice, &detail.PriorityBondAmount, &detail.BiddingRate,
		&detail.Address, &detail.CompletionDate, &detail.Household, &detail.SupplyArea,
		&detail.ExclusivePrivateArea, &detail.LeaseStatus, &detail.Latitude, &detail.Longitude,
		&detail.CreditScore, &detail.IncomeType, &detail.Income, &detail.CardUsageAmount,
		&detail.LoanAmount, &detail.IsOverdue, &detail.OverdueTax)
	if err != nil {
		if err == sql.ErrNoRows {
			SendJSON(w, http.StatusNotFound, map[string]string{"MESSAGE": "NOT_FOUND"})
			return
		}
		log.Printf("[INVESTMENT] Detail query failed for %d: %v", investmentID, err)
		SendMessage(w, "INTERNAL_SERVER_ERROR", http.StatusInternalServerError)
		return
	}

	imageRows, err := is.db.Query(`SELECT url FROM images WHERE investment_id = $1 ORDER BY id`, investmentID)
	if err != nil {
		log.Printf("[INVESTMENT] Image query failed for %d: %v", investmentID, err)
		SendMessage(w, "INTERNAL_SERVER_ERROR", http.StatusInternalServerError)
		return
	}
	defer imageRows.Close()

	detail.ImageList = []string{}
	for imageRows.Next() {
		var url string
		if err := imageRows.Scan(&url); err != nil {
			SendMessage(w, "INTERNAL_SERVER_ERROR", http.StatusInternalServerError)
			return
		}
		detail.ImageList = append(detail.ImageList, url)
	}

	detail.RecruitmentRate = recruitmentRate(detail.CurrentAmount, detail.TargetAmount)
	detail.LTV = float64(detail.PriorityBondAmount+detail.TargetAmount) / float64(detail.EvaluationPrice) * 100
	detail.SecuritySurcharge = detail.EvaluationPrice - detail.PriorityBondAmount - detail.TargetAmount
	detail.ExpectedRecovery = float64(detail.EvaluationPrice)*detail.BiddingRate - float64(detail.PriorityBondAmount)

	SendJSON(w, http.StatusOK, detail)
}

func recruitmentRate(current, target int64) int64 {
	if target == 0 {
		return 0
	}
	return int64(float64(current) / float64(target) * 100)
}

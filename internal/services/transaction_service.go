package services

import (
	"database/sql"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
)

// TransactionService exposes the money movement endpoints. All handlers
// assume AuthMiddleware already resolved the user id into the context.
type TransactionService struct {
	db         *sql.DB
	redis      *redis.Client
	ledger     *LedgerService
	settlement *SettlementService
}

func NewTransactionService(db *sql.DB, redisClient *redis.Client) *TransactionService {
	return &TransactionService{
		db:         db,
		redis:      redisClient,
		ledger:     NewLedgerService(db),
		settlement: NewSettlementService(redisClient),
	}
}

type amountsRequest struct {
	Amounts json.RawMessage `json:"amounts"`
}

// decodeAmounts pulls the amounts field out of the request body. A body
// that is not JSON or an amounts value that is not an integer answers
// TYPE_ERROR; a missing amounts key answers KEY_ERROR.
func decodeAmounts(w http.ResponseWriter, r *http.Request) (int64, string) {
	maxBytes := 1_048_576 // 1 MB
	r.Body = http.MaxBytesReader(w, r.Body, int64(maxBytes))

	var req amountsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return 0, MsgTypeError
	}

	if req.Amounts == nil {
		return 0, MsgKeyError
	}

	// Unmarshal leaves the target untouched for a JSON null, so catch it here.
	if string(req.Amounts) == "null" {
		return 0, MsgTypeError
	}

	var amount int64
	if err := json.Unmarshal(req.Amounts, &amount); err != nil {
		return 0, MsgTypeError
	}

	return amount, ""
}

// Deposit credits the authenticated user's cash balance
// @Summary Deposit cash
// @Description Credit the user's custodial cash account
// @Tags transactions
// @Accept json
// @Produce json
// @Param request body object{amounts=int} true "Deposit amount"
// @Success 201 {object} object{message=string,deposit_balance=int}
// @Failure 400 {object} map[string]string
// @Router /transactions/deposit [post]
func (ts *TransactionService) Deposit(w http.ResponseWriter, r *http.Request) {
	userID, ok := r.Context().Value("userID").(int64)
	if !ok {
		SendMessage(w, MsgInvalidUser, http.StatusBadRequest)
		return
	}

	amount, code := decodeAmounts(w, r)
	if code != "" {
		SendMessage(w, code, http.StatusBadRequest)
		return
	}

	if amount <= 0 {
		SendMessage(w, MsgInvalidInput, http.StatusBadRequest)
		return
	}

	balance, err := ts.ledger.Deposit(userID, amount)
	if err != nil {
		log.Printf("[DEPOSIT] Failed for user %d: %v", userID, err)
		SendMessage(w, "INTERNAL_SERVER_ERROR", http.StatusInternalServerError)
		return
	}

	SendJSON(w, http.StatusCreated, map[string]any{
		"message":         MsgSuccess,
		"deposit_balance": balance,
	})
}

// Withdraw debits the authenticated user's cash balance
// @Summary Withdraw cash
// @Description Debit the user's custodial cash account toward their withdrawal account
// @Tags transactions
// @Accept json
// @Produce json
// @Param request body object{amounts=int} true "Withdrawal amount"
// @Success 201 {object} object{message=string,deposit_balance=int}
// @Failure 400 {object} map[string]string
// @Router /transactions/withdrawal [post]
func (ts *TransactionService) Withdraw(w http.ResponseWriter, r *http.Request) {
	userID, ok := r.Context().Value("userID").(int64)
	if !ok {
		SendMessage(w, MsgInvalidUser, http.StatusBadRequest)
		return
	}

	amount, code := decodeAmounts(w, r)
	if code != "" {
		SendMessage(w, code, http.StatusBadRequest)
		return
	}

	if amount <= 0 {
		SendMessage(w, MsgInvalidInput, http.StatusBadRequest)
		return
	}

	result, err := ts.ledger.Withdraw(userID, amount)
	if err != nil {
		if errors.Is(err, ErrExceedsBalance) {
			SendMessage(w, MsgWrongRequest, http.StatusBadRequest)
			return
		}
		log.Printf("[WITHDRAW] Failed for user %d: %v", userID, err)
		SendMessage(w, "INTERNAL_SERVER_ERROR", http.StatusInternalServerError)
		return
	}

	// Queue the payout after commit. A queue failure is logged, not
	// surfaced, since the ledger is already consistent.
	if err := ts.settlement.QueueWithdrawal(r.Context(), &WithdrawalTransfer{
		Reference:     uuid.New().String(),
		AccountNumber: result.WithdrawalAccount,
		BankName:      result.WithdrawalBankName,
		Amount:        amount,
	}); err != nil {
		log.Printf("[WITHDRAW] Failed to queue settlement for user %d: %v", userID, err)
	}

	SendJSON(w, http.StatusCreated, map[string]any{
		"message":         MsgSuccess,
		"deposit_balance": result.NewBalance,
	})
}

// Invest pledges cash into an investment
// @Summary Invest into a listing
// @Description Move cash from the user's balance into an investment position
// @Tags transactions
// @Accept json
// @Produce json
// @Param investmentID path int true "Investment ID"
// @Param request body object{amounts=int} true "Investment amount"
// @Success 201 {object} map[string]string
// @Failure 400 {object} map[string]string
// @Failure 404 {object} map[string]string
// @Router /transactions/invest/{investmentID} [post]
func (ts *TransactionService) Invest(w http.ResponseWriter, r *http.Request) {
	userID, ok := r.Context().Value("userID").(int64)
	if !ok {
		SendMessage(w, MsgInvalidUser, http.StatusBadRequest)
		return
	}

	investmentID, err := strconv.ParseInt(chi.URLParam(r, "investmentID"), 10, 64)
	if err != nil {
		SendMessage(w, MsgInvalidInvestmentID, http.StatusNotFound)
		return
	}

	amount, code := decodeAmounts(w, r)
	if code != "" {
		SendMessage(w, code, http.StatusBadRequest)
		return
	}

	if amount <= 0 {
		SendMessage(w, MsgInvalidInput, http.StatusBadRequest)
		return
	}

	if err := ts.ledger.Invest(userID, investmentID, amount); err != nil {
		switch {
		case errors.Is(err, ErrUnknownInvestment):
			SendMessage(w, MsgInvalidInvestmentID, http.StatusNotFound)
		case errors.Is(err, ErrInsufficientFunds):
			SendMessage(w, MsgOutOfRange, http.StatusBadRequest)
		default:
			log.Printf("[INVEST] Failed for user %d, investment %d: %v", userID, investmentID, err)
			SendMessage(w, "INTERNAL_SERVER_ERROR", http.StatusInternalServerError)
		}
		return
	}

	SendMessage(w, MsgSuccess, http.StatusCreated)
}

type transactionEntry struct {
	CreatedTime string `json:"created_time"`
	Type        string `json:"type"`
	Information string `json:"information"`
	Amounts     int64  `json:"amounts"`
}

// History lists the authenticated user's journal entries
// @Summary List transaction history
// @Description List the user's journal entries, optionally filtered by type
// @Tags transactions
// @Produce json
// @Param type_id query int false "Transaction type filter"
// @Success 200 {object} object{transactions=[]transactionEntry}
// @Failure 400 {object} map[string]string
// @Router /transactions/transaction [get]
func (ts *TransactionService) History(w http.ResponseWriter, r *http.Request) {
	userID, ok := r.Context().Value("userID").(int64)
	if !ok {
		SendMessage(w, MsgInvalidUser, http.StatusBadRequest)
		return
	}

	query := `
		SELECT t.created_time, COALESCE(tt.name, ''), t.information, t.amounts
		FROM transactions t
		LEFT JOIN transaction_types tt ON t.type_id = tt.id
		WHERE t.user_id = $1`
	args := []any{userID}

	if typeFilter := r.URL.Query().Get("type_id"); typeFilter != "" {
		typeID, err := strconv.ParseInt(typeFilter, 10, 64)
		if err != nil {
			SendMessage(w, MsgTypeError, http.StatusBadRequest)
			return
		}
		query += " AND t.type_id = $2"
		args = append(args, typeID)
	}

	query += " ORDER BY t.id"

	rows, err := ts.db.Query(query, args...)
	if err != nil {
		log.Printf("[HISTORY] Query failed for user %d: %v", userID, err)
		SendMessage(w, "INTERNAL_SERVER_ERROR", http.StatusInternalServerError)
		return
	}
	defer rows.Close()

	transactions := []transactionEntry{}
	for rows.Next() {
		var created time.Time
		var entry transactionEntry
		if err := rows.Scan(&created, &entry.Type, &entry.Information, &entry.Amounts); err != nil {
			log.Printf("[HISTORY] Scan failed for user %d: %v", userID, err)
			SendMessage(w, "INTERNAL_SERVER_ERROR", http.StatusInternalServerError)
			return
		}
		entry.CreatedTime = created.UTC().Format("2006-01-02T15:04:05.000") + "Z"
		transactions = append(transactions, entry)
	}

	SendJSON(w, http.StatusOK, map[string]any{"transactions": transactions})
}

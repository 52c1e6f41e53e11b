package services

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/go-chi/chi/v5"
	"github.com/go-redis/redismock/v8"
	"github.com/stretchr/testify/assert"
	"github.com/wecode-bootcamp-korea/24-2nd-111percent-backend/internal/models"
)

func authedRequest(method, target string, body []byte, userID int64) *http.Request {
	var req *http.Request
	if body != nil {
		req = httptest.NewRequest(method, target, bytes.NewBuffer(body))
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	return req.WithContext(context.WithValue(req.Context(), "userID", userID))
}

func TestTransactionService_Deposit(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	redisClient, _ := redismock.NewClientMock()
	service := NewTransactionService(db, redisClient)

	t.Run("successful deposit", func(t *testing.T) {
		mock.ExpectBegin()
		mock.ExpectQuery("SELECT d.id, d.balance, d.withdrawal_account").
			WithArgs(int64(1)).
			WillReturnRows(accountRows(200000))
		mock.ExpectExec("INSERT INTO transactions").
			WithArgs(models.TypeDeposit, "농협은행", int64(300000), int64(7), int64(1), nil, sqlmock.AnyArg()).
			WillReturnResult(sqlmock.NewResult(1, 1))
		mock.ExpectExec("UPDATE deposit").
			WithArgs(int64(300000), sqlmock.AnyArg(), int64(7)).
			WillReturnResult(sqlmock.NewResult(1, 1))
		mock.ExpectCommit()

		req := authedRequest("POST", "/transactions/deposit", []byte(`{"amounts": 300000}`), 1)
		w := httptest.NewRecorder()

		service.Deposit(w, req)

		assert.Equal(t, http.StatusCreated, w.Code)
		var response map[string]interface{}
		json.Unmarshal(w.Body.Bytes(), &response)
		assert.Equal(t, "SUCCESS", response["message"])
		assert.Equal(t, float64(500000), response["deposit_balance"])
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("negative amount", func(t *testing.T) {
		req := authedRequest("POST", "/transactions/deposit", []byte(`{"amounts": -5000}`), 1)
		w := httptest.NewRecorder()

		service.Deposit(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		var response map[string]string
		json.Unmarshal(w.Body.Bytes(), &response)
		assert.Equal(t, "INVALID_INPUT", response["message"])
	})

	t.Run("string amount", func(t *testing.T) {
		req := authedRequest("POST", "/transactions/deposit", []byte(`{"amounts": "5000"}`), 1)
		w := httptest.NewRecorder()

		service.Deposit(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		var response map[string]string
		json.Unmarshal(w.Body.Bytes(), &response)
		assert.Equal(t, "TYPE_ERROR", response["message"])
	})

	t.Run("null amount", func(t *testing.T) {
		req := authedRequest("POST", "/transactions/deposit", []byte(`{"amounts": null}`), 1)
		w := httptest.NewRecorder()

		service.Deposit(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		var response map[string]string
		json.Unmarshal(w.Body.Bytes(), &response)
		assert.Equal(t, "TYPE_ERROR", response["message"])
	})

	t.Run("missing amounts key", func(t *testing.T) {
		req := authedRequest("POST", "/transactions/deposit", []byte(`{"amount": 5000}`), 1)
		w := httptest.NewRecorder()

		service.Deposit(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		var response map[string]string
		json.Unmarshal(w.Body.Bytes(), &response)
		assert.Equal(t, "KEY_ERROR", response["message"])
	})

	t.Run("invalid body", func(t *testing.T) {
		req := authedRequest("POST", "/transactions/deposit", []byte("not json"), 1)
		w := httptest.NewRecorder()

		service.Deposit(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		var response map[string]string
		json.Unmarshal(w.Body.Bytes(), &response)
		assert.Equal(t, "TYPE_ERROR", response["message"])
	})
}

func TestTransactionService_Withdraw(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	redisClient, _ := redismock.NewClientMock()
	service := NewTransactionService(db, redisClient)

	router := chi.NewRouter()
	router.Post("/transactions/withdrawal", service.Withdraw)

	t.Run("successful withdrawal", func(t *testing.T) {
		mock.ExpectBegin()
		mock.ExpectQuery("SELECT d.id, d.balance, d.withdrawal_account").
			WithArgs(int64(1)).
			WillReturnRows(accountRows(500000))
		mock.ExpectExec("INSERT INTO transactions").
			WithArgs(models.TypeWithdrawal, "국민은행", int64(150000), int64(7), int64(1), nil, sqlmock.AnyArg()).
			WillReturnResult(sqlmock.NewResult(1, 1))
		mock.ExpectExec("UPDATE deposit").
			WithArgs(int64(-150000), sqlmock.AnyArg(), int64(7)).
			WillReturnResult(sqlmock.NewResult(1, 1))
		mock.ExpectCommit()

		req := authedRequest("POST", "/transactions/withdrawal", []byte(`{"amounts": 150000}`), 1)
		w := httptest.NewRecorder()

		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusCreated, w.Code)
		var response map[string]interface{}
		json.Unmarshal(w.Body.Bytes(), &response)
		assert.Equal(t, "SUCCESS", response["message"])
		assert.Equal(t, float64(350000), response["deposit_balance"])
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("withdrawal exceeds balance", func(t *testing.T) {
		mock.ExpectBegin()
		mock.ExpectQuery("SELECT d.id, d.balance, d.withdrawal_account").
			WithArgs(int64(1)).
			WillReturnRows(accountRows(100000))
		mock.ExpectRollback()

		req := authedRequest("POST", "/transactions/withdrawal", []byte(`{"amounts": 150000}`), 1)
		w := httptest.NewRecorder()

		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		var response map[string]string
		json.Unmarshal(w.Body.Bytes(), &response)
		assert.Equal(t, "WRONG_REQUEST", response["message"])
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestTransactionService_Invest(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	redisClient, _ := redismock.NewClientMock()
	service := NewTransactionService(db, redisClient)

	router := chi.NewRouter()
	router.Post("/transactions/invest/{investmentID}", service.Invest)

	t.Run("successful investment", func(t *testing.T) {
		mock.ExpectBegin()
		mock.ExpectQuery("SELECT d.id, d.balance, d.withdrawal_account").
			WithArgs(int64(1)).
			WillReturnRows(accountRows(500000))
		mock.ExpectQuery("SELECT name FROM investments").
			WithArgs(int64(3)).
			WillReturnRows(sqlmock.NewRows([]string{"name"}).AddRow("주거안정 406호"))
		mock.ExpectExec("INSERT INTO transactions").
			WithArgs(models.TypeInvestment, "주거안정 406호", int64(100000), int64(7), int64(1), int64(3), sqlmock.AnyArg()).
			WillReturnResult(sqlmock.NewResult(1, 1))
		mock.ExpectExec("INSERT INTO portfolios").
			WithArgs(int64(1), int64(3), int64(100000), models.InvestmentStateInvesting, models.RepaymentStateNormal).
			WillReturnResult(sqlmock.NewResult(1, 1))
		mock.ExpectExec("UPDATE investments").
			WithArgs(int64(100000), int64(3)).
			WillReturnResult(sqlmock.NewResult(1, 1))
		mock.ExpectExec("UPDATE deposit").
			WithArgs(int64(-100000), sqlmock.AnyArg(), int64(7)).
			WillReturnResult(sqlmock.NewResult(1, 1))
		mock.ExpectCommit()

		req := authedRequest("POST", "/transactions/invest/3", []byte(`{"amounts": 100000}`), 1)
		w := httptest.NewRecorder()

		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusCreated, w.Code)
		var response map[string]string
		json.Unmarshal(w.Body.Bytes(), &response)
		assert.Equal(t, "SUCCESS", response["message"])
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("amount exceeds balance", func(t *testing.T) {
		mock.ExpectBegin()
		mock.ExpectQuery("SELECT d.id, d.balance, d.withdrawal_account").
			WithArgs(int64(1)).
			WillReturnRows(accountRows(50000))
		mock.ExpectQuery("SELECT name FROM investments").
			WithArgs(int64(3)).
			WillReturnRows(sqlmock.NewRows([]string{"name"}).AddRow("주거안정 406호"))
		mock.ExpectRollback()

		req := authedRequest("POST", "/transactions/invest/3", []byte(`{"amounts": 100000}`), 1)
		w := httptest.NewRecorder()

		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		var response map[string]string
		json.Unmarshal(w.Body.Bytes(), &response)
		assert.Equal(t, "OUT_OF_RANGE", response["message"])
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("unknown investment", func(t *testing.T) {
		mock.ExpectBegin()
		mock.ExpectQuery("SELECT d.id, d.balance, d.withdrawal_account").
			WithArgs(int64(1)).
			WillReturnRows(accountRows(500000))
		mock.ExpectQuery("SELECT name FROM investments").
			WithArgs(int64(999)).
			WillReturnRows(sqlmock.NewRows([]string{"name"}))
		mock.ExpectRollback()

		req := authedRequest("POST", "/transactions/invest/999", []byte(`{"amounts": 100000}`), 1)
		w := httptest.NewRecorder()

		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusNotFound, w.Code)
		var response map[string]string
		json.Unmarshal(w.Body.Bytes(), &response)
		assert.Equal(t, "INVALID_INVESTMENT_ID", response["message"])
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("unknown investment wins over low balance", func(t *testing.T) {
		mock.ExpectBegin()
		mock.ExpectQuery("SELECT d.id, d.balance, d.withdrawal_account").
			WithArgs(int64(1)).
			WillReturnRows(accountRows(50000))
		mock.ExpectQuery("SELECT name FROM investments").
			WithArgs(int64(999)).
			WillReturnRows(sqlmock.NewRows([]string{"name"}))
		mock.ExpectRollback()

		req := authedRequest("POST", "/transactions/invest/999", []byte(`{"amounts": 100000}`), 1)
		w := httptest.NewRecorder()

		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusNotFound, w.Code)
		var response map[string]string
		json.Unmarshal(w.Body.Bytes(), &response)
		assert.Equal(t, "INVALID_INVESTMENT_ID", response["message"])
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("non-numeric investment id", func(t *testing.T) {
		req := authedRequest("POST", "/transactions/invest/abc", []byte(`{"amounts": 100000}`), 1)
		w := httptest.NewRecorder()

		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusNotFound, w.Code)
		var response map[string]string
		json.Unmarshal(w.Body.Bytes(), &response)
		assert.Equal(t, "INVALID_INVESTMENT_ID", response["message"])
	})
}

func TestTransactionService_History(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	redisClient, _ := redismock.NewClientMock()
	service := NewTransactionService(db, redisClient)

	t.Run("full history", func(t *testing.T) {
		created := time.Date(2021, 7, 10, 5, 30, 15, 123_000_000, time.UTC)

		mock.ExpectQuery("SELECT t.created_time, COALESCE").
			WithArgs(int64(1)).
			WillReturnRows(sqlmock.NewRows([]string{"created_time", "name", "information", "amounts"}).
				AddRow(created, "입금", "농협은행", 300000).
				AddRow(created.Add(time.Minute), "투자", "주거안정 406호", 100000))

		req := authedRequest("GET", "/transactions/transaction", nil, 1)
		w := httptest.NewRecorder()

		service.History(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		var response struct {
			Transactions []transactionEntry `json:"transactions"`
		}
		json.Unmarshal(w.Body.Bytes(), &response)
		assert.Len(t, response.Transactions, 2)
		assert.Equal(t, "2021-07-10T05:30:15.123Z", response.Transactions[0].CreatedTime)
		assert.Equal(t, "입금", response.Transactions[0].Type)
		assert.Equal(t, "농협은행", response.Transactions[0].Information)
		assert.Equal(t, int64(300000), response.Transactions[0].Amounts)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("filtered by type", func(t *testing.T) {
		created := time.Date(2021, 7, 10, 5, 30, 15, 0, time.UTC)

		mock.ExpectQuery("SELECT t.created_time, COALESCE").
			WithArgs(int64(1), int64(4)).
			WillReturnRows(sqlmock.NewRows([]string{"created_time", "name", "information", "amounts"}).
				AddRow(created, "투자", "주거안정 406호", 100000))

		req := authedRequest("GET", "/transactions/transaction?type_id=4", nil, 1)
		w := httptest.NewRecorder()

		service.History(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		var response struct {
			Transactions []transactionEntry `json:"transactions"`
		}
		json.Unmarshal(w.Body.Bytes(), &response)
		assert.Len(t, response.Transactions, 1)
		assert.Equal(t, "투자", response.Transactions[0].Type)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("empty history", func(t *testing.T) {
		mock.ExpectQuery("SELECT t.created_time, COALESCE").
			WithArgs(int64(1)).
			WillReturnRows(sqlmock.NewRows([]string{"created_time", "name", "information", "amounts"}))

		req := authedRequest("GET", "/transactions/transaction", nil, 1)
		w := httptest.NewRecorder()

		service.History(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.JSONEq(t, `{"transactions": []}`, w.Body.String())
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("non-numeric type filter", func(t *testing.T) {
		req := authedRequest("GET", "/transactions/transaction?type_id=abc", nil, 1)
		w := httptest.NewRecorder()

		service.History(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		var response map[string]string
		json.Unmarshal(w.Body.Bytes(), &response)
		assert.Equal(t, "TYPE_ERROR", response["message"])
	})
}

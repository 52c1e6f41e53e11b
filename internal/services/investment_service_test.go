package services

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/go-chi/chi/v5"
	"github.com/go-redis/redismock/v8"
	"github.com/stretchr/testify/assert"
)

func TestInvestmentService_List(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	service := NewInvestmentService(db, nil)

	listColumns := []string{"id", "name", "return_rate", "duration", "target_amount", "current_amount", "name", "url"}

	t.Run("successful list", func(t *testing.T) {
		mock.ExpectQuery("SELECT i.id, i.name, i.return_rate").
			WillReturnRows(sqlmock.NewRows(listColumns).
				AddRow(1, "주거안정 406호", 10.5, 12, 260000000, 130000000, "A", "https://images.example.com/406.jpg").
				AddRow(2, "주거안정 407호", 8.0, 6, 100000000, 100000000, "B+", ""))

		req := httptest.NewRequest("GET", "/investments", nil)
		w := httptest.NewRecorder()

		service.List(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		var response struct {
			Investments []investmentSummary `json:"investments"`
		}
		json.Unmarshal(w.Body.Bytes(), &response)
		assert.Len(t, response.Investments, 2)
		assert.Equal(t, "주거안정 406호", response.Investments[0].Name)
		assert.Equal(t, int64(50), response.Investments[0].RecruitmentRate)
		assert.Equal(t, int64(100), response.Investments[1].RecruitmentRate)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("empty catalog", func(t *testing.T) {
		mock.ExpectQuery("SELECT i.id, i.name, i.return_rate").
			WillReturnRows(sqlmock.NewRows(listColumns))

		req := httptest.NewRequest("GET", "/investments", nil)
		w := httptest.NewRecorder()

		service.List(w, req)

		assert.Equal(t, http.StatusNotFound, w.Code)
		assert.JSONEq(t, `{"MESSAGE": "INVESTMENTS_DOES_NOT_EXISTS"}`, w.Body.String())
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("served from cache", func(t *testing.T) {
		redisClient, rmock := redismock.NewClientMock()
		cachedService := NewInvestmentService(db, redisClient)

		cached := `{"investments":[{"id":1,"name":"주거안정 406호","return_rate":10.5,"duration":12,"target_amount":260000000,"grade":"A","image":"","recrutement_rate":50}]}`
		rmock.ExpectGet(investmentListCacheKey).SetVal(cached)

		req := httptest.NewRequest("GET", "/investments", nil)
		w := httptest.NewRecorder()

		cachedService.List(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.JSONEq(t, cached, w.Body.String())
		assert.NoError(t, rmock.ExpectationsWereMet())
	})
}

func TestInvestmentService_Detail(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	service := NewInvestmentService(db, nil)

	router := chi.NewRouter()
	router.Get("/investments/{investmentID}", service.Detail)

	detailColumns := []string{
		"id", "name", "grade", "return_rate", "duration", "repayment_types",
		"current_amount", "target_amount",
		"repayment_day", "loan_type", "evaluation_price", "priority_bond_amount", "bidding_rate",
		"address", "completion_date", "household", "supply_area",
		"exclusive_private_area", "lease_status", "latitude", "longitude",
		"credit_score", "income_type", "income", "card_usage_amount",
		"loan_amount", "is_overdue", "overdue_tax",
	}

	t.Run("successful detail", func(t *testing.T) {
		mock.ExpectQuery("SELECT i.id, i.name, g.name").
			WithArgs(int64(1)).
			WillReturnRows(sqlmock.NewRows(detailColumns).AddRow(
				1, "주거안정 406호", "A", 10.5, 12, "만기일시",
				130000000, 260000000,
				25, "부동산 담보 대출", 600000000, 220000000, 103.5,
				"서울특별시 강남구", "2015.01", 320, 84.9,
				59.8, "본인 거주", 37.4981646, 127.0279246,
				700, "근로소득", 50000000, 1200000,
				30000000, "없음", 0))

		mock.ExpectQuery("SELECT url FROM images").
			WithArgs(int64(1)).
			WillReturnRows(sqlmock.NewRows([]string{"url"}).
				AddRow("https://images.example.com/406-1.jpg").
				AddRow("https://images.example.com/406-2.jpg"))

		req := httptest.NewRequest("GET", "/investments/1", nil)
		w := httptest.NewRecorder()

		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		var response map[string]interface{}
		json.Unmarshal(w.Body.Bytes(), &response)

		assert.Equal(t, "주거안정 406호", response["name"])
		assert.Equal(t, float64(130000000), response["current_ammount"])
		assert.Equal(t, float64(50), response["recrutement_rate"])
		assert.Equal(t, float64(80), response["LTV"])
		assert.Equal(t, float64(120000000), response["security_surcharge"])
		assert.InDelta(t, 61880000000.0, response["expected_recovery"], 1)
		assert.Equal(t, []interface{}{
			"https://images.example.com/406-1.jpg",
			"https://images.example.com/406-2.jpg",
		}, response["image_list"])
		assert.Equal(t, "서울특별시 강남구", response["address"])
		assert.Equal(t, float64(700), response["credit_score"])
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("unknown investment", func(t *testing.T) {
		mock.ExpectQuery("SELECT i.id, i.name, g.name").
			WithArgs(int64(99)).
			WillReturnRows(sqlmock.NewRows(detailColumns))

		req := httptest.NewRequest("GET", "/investments/99", nil)
		w := httptest.NewRecorder()

		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusNotFound, w.Code)
		assert.JSONEq(t, `{"MESSAGE": "NOT_FOUND"}`, w.Body.String())
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("non-numeric id", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/investments/abc", nil)
		w := httptest.NewRecorder()

		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusNotFound, w.Code)
		assert.JSONEq(t, `{"MESSAGE": "NOT_FOUND"}`, w.Body.String())
	})
}

func TestRecruitmentRate(t *testing.T) {
	assert.Equal(t, int64(50), recruitmentRate(130000000, 260000000))
	assert.Equal(t, int64(100), recruitmentRate(100, 100))
	assert.Equal(t, int64(133), recruitmentRate(400, 300))
	assert.Equal(t, int64(0), recruitmentRate(100, 0))
}

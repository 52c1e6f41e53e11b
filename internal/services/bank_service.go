package services

import (
	"database/sql"
	"log"
	"net/http"

	"github.com/wecode-bootcamp-korea/24-2nd-111percent-backend/internal/models"
)

// knownBanks seeds the directory with the banks Korean users transfer
// from. Signup still accepts any bank name and creates rows on demand.
var knownBanks = []string{
	"농협은행",
	"국민은행",
	"신한은행",
	"우리은행",
	"하나은행",
	"기업은행",
	"SC제일은행",
	"카카오뱅크",
	"케이뱅크",
	"토스뱅크",
	"새마을금고",
	"우체국",
	"수협은행",
	"대구은행",
	"부산은행",
	"광주은행",
	"전북은행",
	"경남은행",
	"제주은행",
	"씨티은행",
}

type BankService struct {
	db *sql.DB
}

func NewBankService(db *sql.DB) *BankService {
	return &BankService{db: db}
}

// GetAllBanks returns the transfer bank directory
// @Summary List banks
// @Description List every bank the directory knows about
// @Tags banks
// @Produce json
// @Success 200 {object} object{banks=[]models.Bank}
// @Router /banks [get]
func (bs *BankService) GetAllBanks(w http.ResponseWriter, r *http.Request) {
	rows, err := bs.db.Query(`SELECT id, name FROM banks ORDER BY id`)
	if err != nil {
		log.Printf("[BANK] Directory query failed: %v", err)
		SendMessage(w, "INTERNAL_SERVER_ERROR", http.StatusInternalServerError)
		return
	}
	defer rows.Close()

	banks := []models.Bank{}
	for rows.Next() {
		var bank models.Bank
		if err := rows.Scan(&bank.ID, &bank.Name); err != nil {
			SendMessage(w, "INTERNAL_SERVER_ERROR", http.StatusInternalServerError)
			return
		}
		banks = append(banks, bank)
	}

	w.Header().Set("Cache-Control", "public, max-age=86400")
	SendJSON(w, http.StatusOK, map[string]any{"banks": banks})
}

// SeedBanks inserts the known bank names that are not yet present.
// Called once at startup.
func (bs *BankService) SeedBanks() error {
	for _, name := range knownBanks {
		if _, err := bs.db.Exec(`
			INSERT INTO banks (name) VALUES ($1)
			ON CONFLICT (name) DO NOTHING`, name); err != nil {
			return err
		}
	}
	return nil
}

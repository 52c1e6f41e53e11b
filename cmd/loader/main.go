package main

import (
	"database/sql"
	"encoding/csv"
	"flag"
	"log"
	"os"
	"strconv"

	"github.com/spf13/viper"
	"github.com/wecode-bootcamp-korea/24-2nd-111percent-backend/internal/database"
)

// loader ingests the investment catalog CSV into the database. Each row
// carries the full listing: grade, repayment type, collateral, borrower,
// appraisal detail, the investment itself and one image URL.
func main() {
	path := flag.String("csv", "investment.csv", "path to the investment catalog CSV")
	flag.Parse()

	viper.AutomaticEnv()
	viper.BindEnv("database.host", "DATABASE_HOST")
	viper.BindEnv("database.port", "DATABASE_PORT")
	viper.BindEnv("database.user", "DATABASE_USER")
	viper.BindEnv("database.password", "DATABASE_PASSWORD")
	viper.BindEnv("database.name", "DATABASE_NAME")
	viper.BindEnv("database.ssl_mode", "DATABASE_SSL_MODE")

	db := database.InitDatabase()
	defer db.Close()

	file, err := os.Open(*path)
	if err != nil {
		log.Fatalf("Failed to open %s: %v", *path, err)
	}
	defer file.Close()

	reader := csv.NewReader(file)
	rows, err := reader.ReadAll()
	if err != nil {
		log.Fatalf("Failed to read %s: %v", *path, err)
	}

	loaded := 0
	for i, row := range rows {
		if len(row) < 34 {
			log.Printf("Skipping row %d: expected 34 columns, got %d", i, len(row))
			continue
		}

		if err := loadRow(db, row); err != nil {
			log.Printf("Failed to load row %d (%s): %v", i, row[24], err)
			continue
		}
		loaded++
	}

	log.Printf("Loaded %d of %d listings", loaded, len(rows))
}

func loadRow(db *sql.DB, row []string) error {
	tx, err := db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	gradeID, err := getOrCreateNamed(tx, "grades", row[1])
	if err != nil {
		return err
	}

	repaymentTypeID, err := getOrCreateNamed(tx, "repayment_types", row[2])
	if err != nil {
		return err
	}

	var securityID int64
	err = tx.QueryRow(`
		INSERT INTO securities (address, completion_date, supply_area, household, exclusive_private_area, lease_status, latitude, longitude)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id`,
		row[3], row[4], mustFloat(row[5]), mustInt(row[6]), mustFloat(row[7]), row[8], mustFloat(row[9]), mustFloat(row[10])).Scan(&securityID)
	if err != nil {
		return err
	}

	loanTypeID, err := getOrCreateNamed(tx, "loan_types", row[11])
	if err != nil {
		return err
	}

	var borrowerID int64
	err = tx.QueryRow(`
		INSERT INTO borrower_informations (credit_score, income_type, income, card_usage_amount, loan_amount, is_overdue, overdue_tax)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id`,
		mustInt(row[12]), row[13], mustInt(row[14]), mustInt(row[15]), mustInt(row[16]), row[17], mustInt(row[18])).Scan(&borrowerID)
	if err != nil {
		return err
	}

	var detailID int64
	err = tx.QueryRow(`
		INSERT INTO investment_details (loan_type_id, evaluation_price, repayment_day, priority_bond_amount, bidding_rate)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id`,
		loanTypeID, mustInt(row[20]), mustInt(row[21]), mustInt(row[22]), mustFloat(row[23])).Scan(&detailID)
	if err != nil {
		return err
	}

	var investmentID int64
	err = tx.QueryRow(`
		INSERT INTO investments (name, grade_id, duration, repayment_type_id, return_rate, target_amount, current_amount, detail_id, security_id, borrower_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING id`,
		row[24], gradeID, mustInt(row[26]), repaymentTypeID, mustFloat(row[27]),
		mustInt(row[28]), mustInt(row[29]), detailID, securityID, borrowerID).Scan(&investmentID)
	if err != nil {
		return err
	}

	if _, err := tx.Exec(`INSERT INTO images (url, investment_id) VALUES ($1, $2)`, row[33], investmentID); err != nil {
		return err
	}

	return tx.Commit()
}

// getOrCreateNamed resolves a name row in one of the small reference
// tables, creating it when missing. The table name is compiled in, never
// user input.
func getOrCreateNamed(tx *sql.Tx, table, name string) (int64, error) {
	var id int64
	err := tx.QueryRow(`SELECT id FROM `+table+` WHERE name = $1`, name).Scan(&id)
	if err == sql.ErrNoRows {
		err = tx.QueryRow(`INSERT INTO `+table+` (name) VALUES ($1) RETURNING id`, name).Scan(&id)
	}
	return id, err
}

func mustInt(s string) int64 {
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0
	}
	return v
}

func mustFloat(s string) float64 {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return v
}

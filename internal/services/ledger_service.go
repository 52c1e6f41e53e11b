package services

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/wecode-bootcamp-korea/24-2nd-111percent-backend/internal/models"
)

var (
	ErrInvalidAmount     = errors.New("amount must be a positive integer")
	ErrUnknownInvestment = errors.New("investment does not exist")
	ErrInsufficientFunds = errors.New("amount exceeds account balance")
	ErrExceedsBalance    = errors.New("withdrawal exceeds account balance")
)

// LedgerService moves money between a user's cash account, the journal
// and the portfolio inside a single database transaction. Rows are
// locked in a fixed order (account, investment, position) so concurrent
// operations cannot deadlock.
type LedgerService struct {
	db *sql.DB
}

func NewLedgerService(db *sql.DB) *LedgerService {
	return &LedgerService{db: db}
}

// lockedAccount carries the balance and the bank names needed for the
// journal description, resolved while the deposit row is locked.
type lockedAccount struct {
	ID                 int64
	Balance            int64
	WithdrawalAccount  string
	WithdrawalBankName string
	DepositBankName    string
}

// WithdrawResult is returned to the caller so the settlement message can
// be built after the transaction commits.
type WithdrawResult struct {
	NewBalance         int64
	WithdrawalAccount  string
	WithdrawalBankName string
}

// Invest pledges amount from the user's cash balance into an investment.
// The balance debit, journal row, position upsert and funding counter
// update all commit or roll back together.
func (s *LedgerService) Invest(userID, investmentID, amount int64) error {
	if amount <= 0 {
		return ErrInvalidAmount
	}

	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if err := s.InvestTx(tx, userID, investmentID, amount); err != nil {
		return err
	}

	return tx.Commit()
}

func (s *LedgerService) InvestTx(tx *sql.Tx, userID, investmentID, amount int64) error {
	account, err := s.lockAccount(tx, userID)
	if err != nil {
		return err
	}

	investmentName, err := s.lockInvestment(tx, investmentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrUnknownInvestment
		}
		return err
	}

	if account.Balance < amount {
		return ErrInsufficientFunds
	}

	if err := s.appendJournal(tx, models.TypeInvestment, investmentName, amount, account.ID, userID, &investmentID); err != nil {
		return err
	}

	if err := s.upsertPosition(tx, userID, investmentID, amount); err != nil {
		return err
	}

	if _, err := tx.Exec(`
		UPDATE investments
		SET current_amount = current_amount + $1
		WHERE id = $2`, amount, investmentID); err != nil {
		return err
	}

	return s.updateBalance(tx, account.ID, -amount)
}

// Deposit credits the user's cash balance and returns the new balance.
// The journal description is the platform's receiving bank name.
func (s *LedgerService) Deposit(userID, amount int64) (int64, error) {
	if amount <= 0 {
		return 0, ErrInvalidAmount
	}

	tx, err := s.db.Begin()
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	account, err := s.lockAccount(tx, userID)
	if err != nil {
		return 0, err
	}

	if err := s.appendJournal(tx, models.TypeDeposit, account.DepositBankName, amount, account.ID, userID, nil); err != nil {
		return 0, err
	}

	if err := s.updateBalance(tx, account.ID, amount); err != nil {
		return 0, err
	}

	if err := tx.Commit(); err != nil {
		return 0, err
	}

	return account.Balance + amount, nil
}

// Withdraw debits the user's cash balance toward their registered
// withdrawal account. The journal description is the user's withdrawal
// bank name.
func (s *LedgerService) Withdraw(userID, amount int64) (*WithdrawResult, error) {
	if amount <= 0 {
		return nil, ErrInvalidAmount
	}

	tx, err := s.db.Begin()
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	account, err := s.lockAccount(tx, userID)
	if err != nil {
		return nil, err
	}

	if amount > account.Balance {
		return nil, ErrExceedsBalance
	}

	if err := s.appendJournal(tx, models.TypeWithdrawal, account.WithdrawalBankName, amount, account.ID, userID, nil); err != nil {
		return nil, err
	}

	if err := s.updateBalance(tx, account.ID, -amount); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}

	return &WithdrawResult{
		NewBalance:         account.Balance - amount,
		WithdrawalAccount:  account.WithdrawalAccount,
		WithdrawalBankName: account.WithdrawalBankName,
	}, nil
}

func (s *LedgerService) lockAccount(tx *sql.Tx, userID int64) (*lockedAccount, error) {
	var account lockedAccount
	err := tx.QueryRow(`
		SELECT d.id, d.balance, d.withdrawal_account, wb.name, db.name
		FROM deposit d
		JOIN users u ON u.deposit_id = d.id
		JOIN banks wb ON d.withdrawal_bank_id = wb.id
		JOIN banks db ON d.deposit_bank_id = db.id
		WHERE u.id = $1
		FOR UPDATE OF d`, userID).Scan(
		&account.ID, &account.Balance, &account.WithdrawalAccount,
		&account.WithdrawalBankName, &account.DepositBankName)

	return &account, err
}

func (s *LedgerService) lockInvestment(tx *sql.Tx, investmentID int64) (string, error) {
	var name string
	err := tx.QueryRow(`
		SELECT name FROM investments
		WHERE id = $1
		FOR UPDATE`, investmentID).Scan(&name)

	return name, err
}

func (s *LedgerService) appendJournal(tx *sql.Tx, typeID int64, information string, amount, depositID, userID int64, investmentID *int64) error {
	_, err := tx.Exec(`
		INSERT INTO transactions (type_id, information, amounts, deposit_id, user_id, investment_id, created_time)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		typeID, information, amount, depositID, userID, investmentID, time.Now())
	return err
}

func (s *LedgerService) upsertPosition(tx *sql.Tx, userID, investmentID, amount int64) error {
	_, err := tx.Exec(`
		INSERT INTO portfolios (user_id, investment_id, amounts, investment_state_id, repayment_state_id)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (user_id, investment_id)
		DO UPDATE SET amounts = portfolios.amounts + EXCLUDED.amounts`,
		userID, investmentID, amount, models.InvestmentStateInvesting, models.RepaymentStateNormal)
	return err
}

func (s *LedgerService) updateBalance(tx *sql.Tx, accountID, delta int64) error {
	result, err := tx.Exec(`
		UPDATE deposit
		SET balance = balance + $1, updated_at = $2
		WHERE id = $3 AND balance + $1 >= 0`,
		delta, time.Now(), accountID)

	if err != nil {
		return err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}

	if rowsAffected == 0 {
		return fmt.Errorf("balance update rejected for account %d", accountID)
	}

	return nil
}

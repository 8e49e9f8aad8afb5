package model

import (
	"database/sql"
	"time"
)

// LoanCalculation is an immutable snapshot of one affordability run.
// Rows are only ever inserted; a new calculation writes a new row.
type LoanCalculation struct {
	ID             int64     `json:"id"`
	UserID         int64     `json:"user_id"`
	CurrentAsset   float64   `json:"current_asset"`
	ApartmentPrice float64   `json:"apartment_price"`
	LtvRate        int       `json:"ltv_rate"`
	MaxLoanAmount  float64   `json:"max_loan_amount"`
	CalculatedAt   time.Time `json:"calculated_at"`
}

// InsertLoanCalculation appends a calculation snapshot.
func InsertLoanCalculation(db *sql.DB, calc *LoanCalculation) error {
	calc.CalculatedAt = time.Now()
	res, err := db.Exec(`
		INSERT INTO loan_calculations (user_id, current_asset, apartment_price, ltv_rate, max_loan_amount, calculated_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		calc.UserID, calc.CurrentAsset, calc.ApartmentPrice, calc.LtvRate, calc.MaxLoanAmount, calc.CalculatedAt)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	calc.ID = id
	return nil
}

// GetLoanCalculations returns the user's most recent snapshots, newest first.
func GetLoanCalculations(db *sql.DB, userID int64, limit int) ([]LoanCalculation, error) {
	if limit <= 0 {
		limit = 10
	}
	rows, err := db.Query(`
		SELECT id, user_id, current_asset, apartment_price, ltv_rate, max_loan_amount, calculated_at
		FROM loan_calculations
		WHERE user_id = ?
		ORDER BY calculated_at DESC, id DESC
		LIMIT ?`, userID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var calcs []LoanCalculation
	for rows.Next() {
		var c LoanCalculation
		if err := rows.Scan(&c.ID, &c.UserID, &c.CurrentAsset, &c.ApartmentPrice,
			&c.LtvRate, &c.MaxLoanAmount, &c.CalculatedAt); err != nil {
			return nil, err
		}
		calcs = append(calcs, c)
	}
	return calcs, rows.Err()
}

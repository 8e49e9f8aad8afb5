package model

import (
	"database/sql"
	"fmt"
	"time"
)

// MarketPrice is one recorded apartment transaction for a region,
// fetched from the open-data source (or its stub) and cached locally.
type MarketPrice struct {
	ID                    int64     `json:"id"`
	RegionSi              string    `json:"region_si"`
	RegionGu              string    `json:"region_gu"`
	ApartmentName         string    `json:"apartment_name"`
	TransactionDate       string    `json:"transaction_date"`
	PriceInHundredMillion float64   `json:"price_in_hundred_million"`
	AreaPyeong            int       `json:"area_pyeong"`
	Floor                 int       `json:"floor"`
	FetchedAt             time.Time `json:"fetched_at"`
}

// GetMarketPrices returns stored transactions for a district and month
// (yearMonth is "YYYYMM"), newest first.
func GetMarketPrices(db *sql.DB, regionGu, yearMonth string) ([]MarketPrice, error) {
	if len(yearMonth) != 6 {
		return nil, fmt.Errorf("invalid yearMonth %q: want YYYYMM", yearMonth)
	}
	rows, err := db.Query(`
		SELECT id, region_si, region_gu, apartment_name, transaction_date,
		       price_in_hundred_million, area_pyeong, floor, fetched_at
		FROM market_prices
		WHERE region_gu = ? AND transaction_date LIKE ?
		ORDER BY transaction_date DESC, id DESC`,
		regionGu, yearMonth[:4]+"."+yearMonth[4:]+"%")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var prices []MarketPrice
	for rows.Next() {
		var p MarketPrice
		if err := rows.Scan(&p.ID, &p.RegionSi, &p.RegionGu, &p.ApartmentName, &p.TransactionDate,
			&p.PriceInHundredMillion, &p.AreaPyeong, &p.Floor, &p.FetchedAt); err != nil {
			return nil, err
		}
		prices = append(prices, p)
	}
	return prices, rows.Err()
}

// InsertMarketPrices stores a fetched batch in a single transaction.
func InsertMarketPrices(db *sql.DB, prices []MarketPrice) error {
	if len(prices) == 0 {
		return nil
	}
	tx, err := db.Begin()
	if err != nil {
		return err
	}
	stmt, err := tx.Prepare(`
		INSERT INTO market_prices (region_si, region_gu, apartment_name, transaction_date,
			price_in_hundred_million, area_pyeong, floor, fetched_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		tx.Rollback()
		return err
	}
	defer stmt.Close()

	now := time.Now()
	for i := range prices {
		if prices[i].FetchedAt.IsZero() {
			prices[i].FetchedAt = now
		}
		if _, err := stmt.Exec(prices[i].RegionSi, prices[i].RegionGu, prices[i].ApartmentName,
			prices[i].TransactionDate, prices[i].PriceInHundredMillion, prices[i].AreaPyeong,
			prices[i].Floor, prices[i].FetchedAt); err != nil {
			tx.Rollback()
			return err
		}
	}
	return tx.Commit()
}

package model

import (
	"database/sql"
	"time"
)

// AddSearchHistory records a region lookup. A repeat search for the
// same region moves it to the top instead of duplicating it, and only
// the newest `keep` entries per user survive.
func AddSearchHistory(db *sql.DB, userID int64, regionSi, regionGu string, keep int) error {
	if keep <= 0 {
		keep = 10
	}
	tx, err := db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec(
		"DELETE FROM search_history WHERE user_id = ? AND region_si = ? AND region_gu = ?",
		userID, regionSi, regionGu); err != nil {
		return err
	}
	if _, err := tx.Exec(
		"INSERT INTO search_history (user_id, region_si, region_gu, searched_at) VALUES (?, ?, ?, ?)",
		userID, regionSi, regionGu, time.Now().UTC()); err != nil {
		return err
	}
	if _, err := tx.Exec(`
		DELETE FROM search_history
		WHERE user_id = ? AND id NOT IN (
			SELECT id FROM search_history WHERE user_id = ? ORDER BY searched_at DESC, id DESC LIMIT ?
		)`, userID, userID, keep); err != nil {
		return err
	}
	return tx.Commit()
}

// GetRecentSearches returns the user's region lookups, newest first.
func GetRecentSearches(db *sql.DB, userID int64, limit int) ([]SearchHistory, error) {
	if limit <= 0 {
		limit = 10
	}
	rows, err := db.Query(`
		SELECT id, user_id, region_si, region_gu, searched_at
		FROM search_history
		WHERE user_id = ?
		ORDER BY searched_at DESC, id DESC
		LIMIT ?`, userID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []SearchHistory
	for rows.Next() {
		var e SearchHistory
		if err := rows.Scan(&e.ID, &e.UserID, &e.RegionSi, &e.RegionGu, &e.SearchedAt); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

package database

import (
	"database/sql"
	stdlog "log"

	"github.com/username/homescout/backend/src/logger"
	_ "modernc.org/sqlite"
)

var DB *sql.DB

func InitDB(databasePath string) {
	db, err := sql.Open("sqlite", databasePath)
	if err != nil {
		stdlog.Fatalf("failed to open database at %s: %v", databasePath, err)
	}

	DB = db

	if logger.L != nil {
		logger.L.Info("Checking database migrations", "databasePath", databasePath)
	} else {
		stdlog.Println("Checking database migrations for:", databasePath)
	}
	migrateRecordsTable()

	createTableStatement := `
	CREATE TABLE IF NOT EXISTS users (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		username TEXT NOT NULL UNIQUE,
		password TEXT NOT NULL,
		email TEXT NOT NULL UNIQUE,
		auth_provider TEXT DEFAULT 'local',
		is_email_verified BOOLEAN DEFAULT FALSE,
		email_verification_token TEXT,
		email_verification_token_expires_at TIMESTAMP,
		password_reset_token TEXT,
		password_reset_token_expires_at TIMESTAMP,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS sessions (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		user_id INTEGER NOT NULL,
		token TEXT NOT NULL,
		refresh_token TEXT NOT NULL,
		user_agent TEXT,
		client_ip TEXT,
		is_blocked BOOLEAN DEFAULT FALSE,
		expires_at TIMESTAMP,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		FOREIGN KEY(user_id) REFERENCES users(id)
	);

	CREATE TABLE IF NOT EXISTS records (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		user_id INTEGER NOT NULL,
		type TEXT NOT NULL,
		area_pyeong INTEGER NOT NULL,
		price_in_hundred_million REAL NOT NULL,
		region_si TEXT NOT NULL,
		region_gu TEXT NOT NULL,
		region_dong TEXT,
		address_full TEXT,
		apartment_name TEXT,
		latitude REAL,
		longitude REAL,
		school_accessibility INTEGER NOT NULL DEFAULT 3,
		traffic_accessibility TEXT,
		is_ltv_regulated BOOLEAN NOT NULL DEFAULT FALSE,
		ltv_rate INTEGER NOT NULL DEFAULT 70,
		memo TEXT,
		ai_report TEXT,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		FOREIGN KEY(user_id) REFERENCES users(id)
	);

	CREATE TABLE IF NOT EXISTS record_photos (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		record_id INTEGER NOT NULL,
		photo_url TEXT NOT NULL,
		photo_order INTEGER NOT NULL DEFAULT 0,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		FOREIGN KEY(record_id) REFERENCES records(id)
	);

	CREATE TABLE IF NOT EXISTS comments (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		record_id INTEGER NOT NULL,
		user_id INTEGER NOT NULL,
		content TEXT NOT NULL,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		FOREIGN KEY(record_id) REFERENCES records(id),
		FOREIGN KEY(user_id) REFERENCES users(id)
	);

	CREATE TABLE IF NOT EXISTS search_history (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		user_id INTEGER NOT NULL,
		region_si TEXT NOT NULL,
		region_gu TEXT NOT NULL,
		searched_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		FOREIGN KEY(user_id) REFERENCES users(id)
	);

	CREATE TABLE IF NOT EXISTS loan_calculations (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		user_id INTEGER NOT NULL,
		current_asset REAL NOT NULL,
		apartment_price REAL NOT NULL,
		ltv_rate INTEGER NOT NULL,
		max_loan_amount REAL NOT NULL,
		calculated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		FOREIGN KEY(user_id) REFERENCES users(id)
	);

	CREATE TABLE IF NOT EXISTS market_prices (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		region_si TEXT NOT NULL,
		region_gu TEXT NOT NULL,
		apartment_name TEXT NOT NULL,
		transaction_date TEXT NOT NULL,
		price_in_hundred_million REAL NOT NULL,
		area_pyeong INTEGER NOT NULL,
		floor INTEGER NOT NULL,
		fetched_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);
	`

	_, err = DB.Exec(createTableStatement)
	if err != nil {
		if logger.L != nil {
			logger.L.Error("failed to create tables", "error", err)
		}
		stdlog.Fatalf("failed to create tables: %v", err)
	}
	if logger.L != nil {
		logger.L.Info("Database tables ensured/created.")
	} else {
		stdlog.Println("Database tables ensured/created.")
	}
}

// migrateRecordsTable adds columns that were introduced after the
// records table first shipped (ai_report, coordinates).
func migrateRecordsTable() {
	var tableName string
	err := DB.QueryRow("SELECT name FROM sqlite_master WHERE type='table' AND name='records'").Scan(&tableName)
	if err != nil {
		if err == sql.ErrNoRows {
			// Table will be created with the full schema.
			return
		}
		if logger.L != nil {
			logger.L.Error("Error checking for 'records' table", "error", err)
		} else {
			stdlog.Printf("Error checking for 'records' table: %v", err)
		}
		return
	}

	rows, err := DB.Query("PRAGMA table_info(records)")
	if err != nil {
		if logger.L != nil {
			logger.L.Error("Error querying table schema for 'records'", "error", err)
		} else {
			stdlog.Printf("Error querying table schema for 'records': %v", err)
		}
		return
	}
	defer rows.Close()

	columnExists := make(map[string]bool)
	for rows.Next() {
		var cid, pk int
		var name, dataType string
		var notnullVal int
		var dfltValue interface{}

		if err := rows.Scan(&cid, &name, &dataType, &notnullVal, &dfltValue, &pk); err != nil {
			if logger.L != nil {
				logger.L.Error("Error scanning column info for 'records'", "error", err)
			} else {
				stdlog.Printf("Error scanning column info for 'records': %v", err)
			}
			return
		}
		columnExists[name] = true
	}
	if err = rows.Err(); err != nil {
		if logger.L != nil {
			logger.L.Error("Error iterating over column info for 'records'", "error", err)
		} else {
			stdlog.Printf("Error iterating over column info for 'records': %v", err)
		}
		return
	}

	addColumn := func(name, definition string) {
		if columnExists[name] {
			return
		}
		if _, err := DB.Exec("ALTER TABLE records ADD COLUMN " + name + " " + definition); err != nil {
			if logger.L != nil {
				logger.L.Error("Error adding column to 'records' table", "column", name, "error", err)
			} else {
				stdlog.Printf("Error adding '%s' column to 'records' table: %v", name, err)
			}
			return
		}
		if logger.L != nil {
			logger.L.Info("Added column to 'records' table", "column", name)
		} else {
			stdlog.Printf("Added '%s' column to 'records' table", name)
		}
	}

	addColumn("ai_report", "TEXT")
	addColumn("latitude", "REAL")
	addColumn("longitude", "REAL")
	addColumn("address_full", "TEXT")
	addColumn("region_dong", "TEXT")
}

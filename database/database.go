package database

import (
	"database/sql"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	_ "github.com/go-sql-driver/mysql"

	"crop-advisor-service/config"
	"crop-advisor-service/models"
)

// ErrNoCredentials is returned when the store credential is absent at
// startup. Read paths degrade to empty results; write paths are skipped.
var ErrNoCredentials = errors.New("database credentials not configured")

// Database represents the durable store connection
type Database struct {
	db *sql.DB
}

// NewDatabase opens and eagerly validates the store connection. A missing
// credential yields ErrNoCredentials so callers can degrade instead of crash.
func NewDatabase(cfg *config.Config) (*Database, error) {
	if cfg.DBPassword == "" {
		return nil, ErrNoCredentials
	}

	dsn := fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?parseTime=true",
		cfg.DBUser, cfg.DBPassword, cfg.DBHost, cfg.DBPort, cfg.DBName)

	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to reach database: %w", err)
	}

	// Set connection pool settings
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(25)
	db.SetConnMaxLifetime(5 * time.Minute)

	log.Println("Established db connection.")
	return &Database{db: db}, nil
}

// NewDatabaseFromConn wraps an existing connection; used by tests.
func NewDatabaseFromConn(db *sql.DB) *Database {
	return &Database{db: db}
}

// Close closes the database connection
func (d *Database) Close() error {
	if d == nil || d.db == nil {
		return nil
	}
	return d.db.Close()
}

// Ready reports whether the store is usable.
func (d *Database) Ready() bool {
	return d != nil && d.db != nil
}

// CreateTables creates the crop_data and history tables if they don't exist
func (d *Database) CreateTables() error {
	if !d.Ready() {
		return ErrNoCredentials
	}

	cropData := `
	CREATE TABLE IF NOT EXISTS crop_data (
		id INT AUTO_INCREMENT PRIMARY KEY,
		user_id VARCHAR(255) NOT NULL,
		ts BIGINT NOT NULL,
		crop_type VARCHAR(255) NOT NULL DEFAULT '',
		crop_condition VARCHAR(255) NOT NULL DEFAULT '',
		image_url VARCHAR(500) NOT NULL DEFAULT '',
		confidence FLOAT NOT NULL DEFAULT 0,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		INDEX idx_crop_data_user_ts (user_id, ts)
	)`

	history := `
	CREATE TABLE IF NOT EXISTS history (
		id INT AUTO_INCREMENT PRIMARY KEY,
		user_id VARCHAR(255) NOT NULL,
		action_type VARCHAR(64) NOT NULL,
		ts BIGINT NOT NULL,
		details TEXT,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		INDEX idx_history_user_ts (user_id, ts)
	)`

	if _, err := d.db.Exec(cropData); err != nil {
		return fmt.Errorf("failed to create crop_data table: %w", err)
	}
	if _, err := d.db.Exec(history); err != nil {
		return fmt.Errorf("failed to create history table: %w", err)
	}
	return nil
}

// normalizeCondition strips any parenthetical suffix before storage,
// e.g. "Late Blight (Phytophthora infestans)" -> "Late Blight".
func normalizeCondition(condition string) string {
	return strings.TrimSpace(strings.SplitN(condition, " (", 2)[0])
}

// placeholderImageURL derives a stable stored reference from the run
// timestamp; the original data URI is not durable-storage-appropriate.
func placeholderImageURL(ts int64) string {
	return fmt.Sprintf("https://placehold.co/600x400.png?text=crop-%d", ts)
}

// SaveCropRecord appends one normalized prediction subset to crop_data.
// Records without a user id are not persisted.
func (d *Database) SaveCropRecord(userID string, p models.Prediction) error {
	if !d.Ready() {
		return ErrNoCredentials
	}
	if userID == "" {
		return nil
	}

	_, err := d.db.Exec(
		`INSERT INTO crop_data (user_id, ts, crop_type, crop_condition, image_url, confidence) VALUES (?, ?, ?, ?, ?, ?)`,
		userID, p.Timestamp, p.CropType, normalizeCondition(p.Condition), placeholderImageURL(p.Timestamp), p.Confidence,
	)
	if err != nil {
		return fmt.Errorf("failed to save crop record: %w", err)
	}
	return nil
}

// LogAction appends one discrete user action to the history table.
func (d *Database) LogAction(userID, actionType string, ts int64, details string) error {
	if !d.Ready() {
		return ErrNoCredentials
	}
	if userID == "" {
		return nil
	}

	_, err := d.db.Exec(
		`INSERT INTO history (user_id, action_type, ts, details) VALUES (?, ?, ?, ?)`,
		userID, actionType, ts, details,
	)
	if err != nil {
		return fmt.Errorf("failed to log action: %w", err)
	}
	return nil
}

// GetPredictionHistory returns the user's most recent stored predictions,
// newest first. An unready store yields an empty result, not an error.
func (d *Database) GetPredictionHistory(userID string, limit int) ([]models.HistoryItem, error) {
	items := []models.HistoryItem{}
	if !d.Ready() {
		return items, nil
	}

	rows, err := d.db.Query(
		`SELECT id, user_id, ts, crop_type, crop_condition, image_url, confidence FROM crop_data WHERE user_id = ? ORDER BY ts DESC LIMIT ?`,
		userID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query prediction history: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var item models.HistoryItem
		if err := rows.Scan(&item.ID, &item.UserID, &item.Timestamp, &item.CropType, &item.Condition, &item.ImageURL, &item.Confidence); err != nil {
			return nil, fmt.Errorf("failed to scan prediction history row: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read prediction history rows: %w", err)
	}
	return items, nil
}

// GetActivityLog returns the user's most recent actions, newest first.
// An unready store yields an empty result, not an error.
func (d *Database) GetActivityLog(userID string, limit int) ([]models.ActivityRecord, error) {
	records := []models.ActivityRecord{}
	if !d.Ready() {
		return records, nil
	}

	rows, err := d.db.Query(
		`SELECT id, user_id, action_type, ts, details FROM history WHERE user_id = ? ORDER BY ts DESC LIMIT ?`,
		userID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query activity log: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var record models.ActivityRecord
		var details sql.NullString
		if err := rows.Scan(&record.ID, &record.UserID, &record.ActionType, &record.Timestamp, &details); err != nil {
			return nil, fmt.Errorf("failed to scan activity row: %w", err)
		}
		record.Details = details.String
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read activity rows: %w", err)
	}
	return records, nil
}

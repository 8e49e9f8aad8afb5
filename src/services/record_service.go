package services

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/username/homescout/backend/src/logger"
	"github.com/username/homescout/backend/src/model"
)

// RecordFilter narrows a user's record list. Zero values mean "no
// constraint"; Regulated is tri-state via pointer.
type RecordFilter struct {
	Types           []string
	AreaPyeong      []int
	PriceMin        float64
	PriceMax        float64
	Regulated       *bool
	MinSchoolRating int
}

// RecordService owns all persistence for survey records, their photos
// and their comments. Every operation is scoped to the owning user.
type RecordService interface {
	ListRecords(ctx context.Context, userID int64) ([]model.Record, error)
	FilterRecords(ctx context.Context, userID int64, filter RecordFilter) ([]model.Record, error)
	GetRecord(ctx context.Context, userID, recordID int64) (*model.Record, error)
	CreateRecord(ctx context.Context, rec *model.Record) error
	UpdateRecord(ctx context.Context, rec *model.Record) error
	DeleteRecord(ctx context.Context, userID, recordID int64) error

	AddComment(ctx context.Context, userID, recordID int64, content string) (*model.Comment, error)
	UpdateComment(ctx context.Context, userID, commentID int64, content string) (*model.Comment, error)
	DeleteComment(ctx context.Context, userID, commentID int64) error
}

type sqlRecordService struct {
	db *sql.DB
}

func NewRecordService(db *sql.DB) RecordService {
	return &sqlRecordService{db: db}
}

const recordSelectColumns = `id, user_id, type, area_pyeong, price_in_hundred_million,
	region_si, region_gu, region_dong, address_full, apartment_name,
	latitude, longitude, school_accessibility, traffic_accessibility,
	is_ltv_regulated, ltv_rate, memo, ai_report, created_at, updated_at`

func scanRecord(scanner interface{ Scan(dest ...any) error }) (*model.Record, error) {
	var rec model.Record
	err := scanner.Scan(
		&rec.ID, &rec.UserID, &rec.Type, &rec.AreaPyeong, &rec.PriceInHundredMillion,
		&rec.RegionSi, &rec.RegionGu, &rec.RegionDong, &rec.AddressFull, &rec.ApartmentName,
		&rec.Latitude, &rec.Longitude, &rec.SchoolAccessibility, &rec.TrafficAccessibility,
		&rec.IsLtvRegulated, &rec.LtvRate, &rec.Memo, &rec.AIReport, &rec.CreatedAt, &rec.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

func (s *sqlRecordService) ListRecords(ctx context.Context, userID int64) ([]model.Record, error) {
	return s.FilterRecords(ctx, userID, RecordFilter{})
}

func (s *sqlRecordService) FilterRecords(ctx context.Context, userID int64, filter RecordFilter) ([]model.Record, error) {
	query := "SELECT " + recordSelectColumns + " FROM records WHERE user_id = ?"
	args := []any{userID}

	if len(filter.Types) > 0 {
		query += " AND type IN (?" + strings.Repeat(",?", len(filter.Types)-1) + ")"
		for _, t := range filter.Types {
			args = append(args, t)
		}
	}
	if len(filter.AreaPyeong) > 0 {
		query += " AND area_pyeong IN (?" + strings.Repeat(",?", len(filter.AreaPyeong)-1) + ")"
		for _, p := range filter.AreaPyeong {
			args = append(args, p)
		}
	}
	if filter.PriceMin > 0 {
		query += " AND price_in_hundred_million >= ?"
		args = append(args, filter.PriceMin)
	}
	if filter.PriceMax > 0 {
		query += " AND price_in_hundred_million <= ?"
		args = append(args, filter.PriceMax)
	}
	if filter.Regulated != nil {
		query += " AND is_ltv_regulated = ?"
		args = append(args, *filter.Regulated)
	}
	if filter.MinSchoolRating > 0 {
		query += " AND school_accessibility >= ?"
		args = append(args, filter.MinSchoolRating)
	}
	query += " ORDER BY created_at DESC, id DESC"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying records: %w", err)
	}
	defer rows.Close()

	records := []model.Record{}
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning record row: %w", err)
		}
		records = append(records, *rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range records {
		if err := s.attachRelated(ctx, &records[i]); err != nil {
			return nil, err
		}
	}
	return records, nil
}

func (s *sqlRecordService) GetRecord(ctx context.Context, userID, recordID int64) (*model.Record, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT "+recordSelectColumns+" FROM records WHERE id = ?", recordID)
	rec, err := scanRecord(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, model.ErrRecordNotFound
		}
		return nil, fmt.Errorf("querying record %d: %w", recordID, err)
	}
	if rec.UserID != userID {
		return nil, model.ErrNotRecordOwner
	}
	if err := s.attachRelated(ctx, rec); err != nil {
		return nil, err
	}
	return rec, nil
}

func (s *sqlRecordService) attachRelated(ctx context.Context, rec *model.Record) error {
	photoRows, err := s.db.QueryContext(ctx,
		"SELECT id, record_id, photo_url, photo_order, created_at FROM record_photos WHERE record_id = ? ORDER BY photo_order ASC, id ASC",
		rec.ID)
	if err != nil {
		return fmt.Errorf("querying photos for record %d: %w", rec.ID, err)
	}
	defer photoRows.Close()
	rec.Photos = []model.RecordPhoto{}
	for photoRows.Next() {
		var p model.RecordPhoto
		if err := photoRows.Scan(&p.ID, &p.RecordID, &p.PhotoURL, &p.PhotoOrder, &p.CreatedAt); err != nil {
			return err
		}
		rec.Photos = append(rec.Photos, p)
	}
	if err := photoRows.Err(); err != nil {
		return err
	}

	commentRows, err := s.db.QueryContext(ctx,
		"SELECT id, record_id, user_id, content, created_at, updated_at FROM comments WHERE record_id = ? ORDER BY created_at ASC, id ASC",
		rec.ID)
	if err != nil {
		return fmt.Errorf("querying comments for record %d: %w", rec.ID, err)
	}
	defer commentRows.Close()
	rec.Comments = []model.Comment{}
	for commentRows.Next() {
		var c model.Comment
		if err := commentRows.Scan(&c.ID, &c.RecordID, &c.UserID, &c.Content, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return err
		}
		rec.Comments = append(rec.Comments, c)
	}
	return commentRows.Err()
}

func (s *sqlRecordService) CreateRecord(ctx context.Context, rec *model.Record) error {
	if err := rec.Validate(); err != nil {
		return err
	}
	now := time.Now().UTC()
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO records (user_id, type, area_pyeong, price_in_hundred_million,
			region_si, region_gu, region_dong, address_full, apartment_name,
			latitude, longitude, school_accessibility, traffic_accessibility,
			is_ltv_regulated, ltv_rate, memo, ai_report, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.UserID, rec.Type, rec.AreaPyeong, rec.PriceInHundredMillion,
		rec.RegionSi, rec.RegionGu, rec.RegionDong, rec.AddressFull, rec.ApartmentName,
		rec.Latitude, rec.Longitude, rec.SchoolAccessibility, rec.TrafficAccessibility,
		rec.IsLtvRegulated, rec.LtvRate, rec.Memo, rec.AIReport, now, now,
	)
	if err != nil {
		return fmt.Errorf("inserting record: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("getting record id: %w", err)
	}
	rec.ID = id
	rec.CreatedAt = now
	rec.UpdatedAt = now
	logger.L.Info("Record created", "recordID", id, "userID", rec.UserID, "type", rec.Type)
	return nil
}

func (s *sqlRecordService) UpdateRecord(ctx context.Context, rec *model.Record) error {
	if err := rec.Validate(); err != nil {
		return err
	}
	if _, err := s.ownedRecord(ctx, rec.UserID, rec.ID); err != nil {
		return err
	}
	now := time.Now().UTC()
	_, err := s.db.ExecContext(ctx, `
		UPDATE records SET type = ?, area_pyeong = ?, price_in_hundred_million = ?,
			region_si = ?, region_gu = ?, region_dong = ?, address_full = ?, apartment_name = ?,
			latitude = ?, longitude = ?, school_accessibility = ?, traffic_accessibility = ?,
			is_ltv_regulated = ?, ltv_rate = ?, memo = ?, ai_report = ?, updated_at = ?
		WHERE id = ? AND user_id = ?`,
		rec.Type, rec.AreaPyeong, rec.PriceInHundredMillion,
		rec.RegionSi, rec.RegionGu, rec.RegionDong, rec.AddressFull, rec.ApartmentName,
		rec.Latitude, rec.Longitude, rec.SchoolAccessibility, rec.TrafficAccessibility,
		rec.IsLtvRegulated, rec.LtvRate, rec.Memo, rec.AIReport, now,
		rec.ID, rec.UserID,
	)
	if err != nil {
		return fmt.Errorf("updating record %d: %w", rec.ID, err)
	}
	rec.UpdatedAt = now
	return nil
}

func (s *sqlRecordService) DeleteRecord(ctx context.Context, userID, recordID int64) error {
	if _, err := s.ownedRecord(ctx, userID, recordID); err != nil {
		return err
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning delete transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DELETE FROM comments WHERE record_id = ?", recordID); err != nil {
		return fmt.Errorf("deleting comments for record %d: %w", recordID, err)
	}
	if _, err := tx.ExecContext(ctx, "DELETE FROM record_photos WHERE record_id = ?", recordID); err != nil {
		return fmt.Errorf("deleting photos for record %d: %w", recordID, err)
	}
	if _, err := tx.ExecContext(ctx, "DELETE FROM records WHERE id = ? AND user_id = ?", recordID, userID); err != nil {
		return fmt.Errorf("deleting record %d: %w", recordID, err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing record delete: %w", err)
	}
	logger.L.Info("Record deleted", "recordID", recordID, "userID", userID)
	return nil
}

// ownedRecord resolves a record id and enforces ownership without
// loading photos or comments.
func (s *sqlRecordService) ownedRecord(ctx context.Context, userID, recordID int64) (int64, error) {
	var ownerID int64
	err := s.db.QueryRowContext(ctx, "SELECT user_id FROM records WHERE id = ?", recordID).Scan(&ownerID)
	if err != nil {
		if err == sql.ErrNoRows {
			return 0, model.ErrRecordNotFound
		}
		return 0, fmt.Errorf("checking record %d: %w", recordID, err)
	}
	if ownerID != userID {
		return 0, model.ErrNotRecordOwner
	}
	return ownerID, nil
}

func (s *sqlRecordService) AddComment(ctx context.Context, userID, recordID int64, content string) (*model.Comment, error) {
	if _, err := s.ownedRecord(ctx, userID, recordID); err != nil {
		return nil, err
	}
	now := time.Now().UTC()
	res, err := s.db.ExecContext(ctx,
		"INSERT INTO comments (record_id, user_id, content, created_at, updated_at) VALUES (?, ?, ?, ?, ?)",
		recordID, userID, content, now, now)
	if err != nil {
		return nil, fmt.Errorf("inserting comment: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("getting comment id: %w", err)
	}
	return &model.Comment{
		ID:        id,
		RecordID:  recordID,
		UserID:    userID,
		Content:   content,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

func (s *sqlRecordService) UpdateComment(ctx context.Context, userID, commentID int64, content string) (*model.Comment, error) {
	var c model.Comment
	err := s.db.QueryRowContext(ctx,
		"SELECT id, record_id, user_id, content, created_at, updated_at FROM comments WHERE id = ?",
		commentID).Scan(&c.ID, &c.RecordID, &c.UserID, &c.Content, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, model.ErrCommentNotFound
		}
		return nil, fmt.Errorf("querying comment %d: %w", commentID, err)
	}
	if c.UserID != userID {
		return nil, model.ErrNotRecordOwner
	}
	now := time.Now().UTC()
	if _, err := s.db.ExecContext(ctx,
		"UPDATE comments SET content = ?, updated_at = ? WHERE id = ?", content, now, commentID); err != nil {
		return nil, fmt.Errorf("updating comment %d: %w", commentID, err)
	}
	c.Content = content
	c.UpdatedAt = now
	return &c, nil
}

func (s *sqlRecordService) DeleteComment(ctx context.Context, userID, commentID int64) error {
	var ownerID int64
	err := s.db.QueryRowContext(ctx, "SELECT user_id FROM comments WHERE id = ?", commentID).Scan(&ownerID)
	if err != nil {
		if err == sql.ErrNoRows {
			return model.ErrCommentNotFound
		}
		return fmt.Errorf("checking comment %d: %w", commentID, err)
	}
	if ownerID != userID {
		return model.ErrNotRecordOwner
	}
	if _, err := s.db.ExecContext(ctx, "DELETE FROM comments WHERE id = ?", commentID); err != nil {
		return fmt.Errorf("deleting comment %d: %w", commentID, err)
	}
	return nil
}

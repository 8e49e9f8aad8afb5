package services

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/username/homescout/backend/src/logger"
	"github.com/username/homescout/backend/src/model"
)

// PhotoService stores uploaded record photos on disk under random
// names and tracks them in record_photos. URLs handed back to clients
// are built from the configured public base URL.
type PhotoService struct {
	db            *sql.DB
	uploadDir     string
	publicBaseURL string
}

func NewPhotoService(db *sql.DB, uploadDir, publicBaseURL string) *PhotoService {
	return &PhotoService{
		db:            db,
		uploadDir:     uploadDir,
		publicBaseURL: strings.TrimRight(publicBaseURL, "/"),
	}
}

// SavePhoto writes the validated image stream to disk and registers it
// against the record. The caller has already checked record ownership
// and the image content; extension comes from content sniffing, not
// from the client filename.
func (s *PhotoService) SavePhoto(ctx context.Context, recordID int64, content io.Reader, extension string) (*model.RecordPhoto, error) {
	if err := os.MkdirAll(s.uploadDir, 0o755); err != nil {
		return nil, fmt.Errorf("ensuring upload directory: %w", err)
	}

	filename := uuid.NewString() + extension
	destPath := filepath.Join(s.uploadDir, filename)

	dest, err := os.Create(destPath)
	if err != nil {
		return nil, fmt.Errorf("creating photo file: %w", err)
	}
	if _, err := io.Copy(dest, content); err != nil {
		dest.Close()
		os.Remove(destPath)
		return nil, fmt.Errorf("writing photo file: %w", err)
	}
	if err := dest.Close(); err != nil {
		os.Remove(destPath)
		return nil, fmt.Errorf("closing photo file: %w", err)
	}

	var nextOrder int
	err = s.db.QueryRowContext(ctx,
		"SELECT COALESCE(MAX(photo_order), -1) + 1 FROM record_photos WHERE record_id = ?",
		recordID).Scan(&nextOrder)
	if err != nil {
		os.Remove(destPath)
		return nil, fmt.Errorf("determining photo order: %w", err)
	}

	now := time.Now().UTC()
	photoURL := s.publicBaseURL + "/uploads/" + filename
	res, err := s.db.ExecContext(ctx,
		"INSERT INTO record_photos (record_id, photo_url, photo_order, created_at) VALUES (?, ?, ?, ?)",
		recordID, photoURL, nextOrder, now)
	if err != nil {
		os.Remove(destPath)
		return nil, fmt.Errorf("registering photo: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("getting photo id: %w", err)
	}

	logger.L.Info("Photo stored", "recordID", recordID, "photoID", id, "file", filename)
	return &model.RecordPhoto{
		ID:         id,
		RecordID:   recordID,
		PhotoURL:   photoURL,
		PhotoOrder: nextOrder,
		CreatedAt:  now,
	}, nil
}

// DeletePhoto removes the database row and then unlinks the file.
// A missing file is not an error; the row is the source of truth.
func (s *PhotoService) DeletePhoto(ctx context.Context, userID, photoID int64) error {
	var photoURL string
	var recordOwner int64
	err := s.db.QueryRowContext(ctx, `
		SELECT p.photo_url, r.user_id
		FROM record_photos p
		JOIN records r ON r.id = p.record_id
		WHERE p.id = ?`, photoID).Scan(&photoURL, &recordOwner)
	if err != nil {
		if err == sql.ErrNoRows {
			return model.ErrPhotoNotFound
		}
		return fmt.Errorf("looking up photo %d: %w", photoID, err)
	}
	if recordOwner != userID {
		return model.ErrNotRecordOwner
	}

	if _, err := s.db.ExecContext(ctx, "DELETE FROM record_photos WHERE id = ?", photoID); err != nil {
		return fmt.Errorf("deleting photo row %d: %w", photoID, err)
	}

	if idx := strings.LastIndex(photoURL, "/"); idx >= 0 {
		path := filepath.Join(s.uploadDir, photoURL[idx+1:])
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			logger.L.Warn("Failed to unlink photo file", "photoID", photoID, "path", path, "error", err)
		}
	}
	return nil
}

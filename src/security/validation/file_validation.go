package validation

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/username/homescout/backend/src/logger"
)

// ErrValidationFailed marks user-facing input validation failures so
// handlers can map them to 400 responses.
var ErrValidationFailed = errors.New("validation failed")

// AllowedClientContentTypes is a map for quick lookup of allowed
// client-declared MIME types for photo uploads.
var AllowedClientContentTypes = map[string]bool{
	"image/jpeg":               true,
	"image/png":                true,
	"image/webp":               true,
	"image/gif":                true,
	"application/octet-stream": true, // fallback, magic bytes decide
}

// ValidateClientContentType checks the Content-Type header provided by the client.
func ValidateClientContentType(contentType string) error {
	if allowed, exists := AllowedClientContentTypes[strings.ToLower(contentType)]; !exists || !allowed {
		logger.L.Warn("Disallowed client-declared Content-Type", "contentType", contentType)
		return fmt.Errorf("%w: client-declared file type '%s' is not allowed for photo upload", ErrValidationFailed, contentType)
	}
	return nil
}

// imageExtensions maps a detected content type to the extension used
// for the stored file.
var imageExtensions = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/webp": ".webp",
	"image/gif":  ".gif",
}

// ValidateImageContent checks the actual file content signature (magic
// bytes) and returns the detected content type plus the extension to
// store the file under. The declared Content-Type is ignored here; an
// executable renamed to .jpg fails this check.
func ValidateImageContent(file io.ReadSeeker) (contentType, extension string, err error) {
	if file == nil {
		return "", "", fmt.Errorf("%w: file is nil", ErrValidationFailed)
	}

	buffer := make([]byte, 512)
	n, err := file.Read(buffer)
	if err != nil && err != io.EOF {
		return "", "", fmt.Errorf("failed to read file for content type checking: %w", err)
	}

	// Reset the read pointer so the full file can be stored afterwards.
	if _, seekErr := file.Seek(0, io.SeekStart); seekErr != nil {
		return "", "", fmt.Errorf("failed to reset file read pointer: %w", seekErr)
	}

	detected := http.DetectContentType(buffer[:n])
	detected = strings.ToLower(strings.Split(detected, ";")[0])

	ext, ok := imageExtensions[detected]
	if !ok {
		logger.L.Warn("Disallowed detected file content type (magic bytes)", "detectedContentType", detected)
		return detected, "", fmt.Errorf("%w: detected file content type '%s' is not an allowed image type", ErrValidationFailed, detected)
	}

	logger.L.Debug("File content type (magic bytes) validated", "detectedContentType", detected)
	return detected, ext, nil
}

package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/username/homescout/backend/src/config"
	"github.com/username/homescout/backend/src/logger"
	"github.com/username/homescout/backend/src/security/validation"
	"github.com/username/homescout/backend/src/services"
	"github.com/username/homescout/backend/src/utils"
)

type PhotoHandler struct {
	photoService  *services.PhotoService
	recordService services.RecordService
}

func NewPhotoHandler(photoService *services.PhotoService, recordService services.RecordService) *PhotoHandler {
	return &PhotoHandler{
		photoService:  photoService,
		recordService: recordService,
	}
}

// UploadPhotoHandler accepts one multipart image per request. The
// client's declared content type is checked first, then the actual
// bytes are sniffed; the stored extension comes from the sniff.
func (h *PhotoHandler) UploadPhotoHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := GetUserIDFromContext(r.Context())
	if !ok {
		utils.SendJSONError(w, "Unauthorized", http.StatusUnauthorized)
		return
	}
	recordID, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		utils.SendJSONError(w, "Invalid record id", http.StatusBadRequest)
		return
	}

	// Ownership gate before touching the body.
	if _, err := h.recordService.GetRecord(r.Context(), userID, recordID); err != nil {
		status, msg := recordStatusFromErr(err)
		utils.SendJSONError(w, msg, status)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, config.Cfg.MaxUploadSizeBytes)
	if err := r.ParseMultipartForm(config.Cfg.MaxUploadSizeBytes); err != nil {
		logger.L.Warn("Photo upload rejected, body too large or malformed", "recordID", recordID, "error", err)
		utils.SendJSONError(w, "Upload too large or malformed", http.StatusRequestEntityTooLarge)
		return
	}

	file, header, err := r.FormFile("photo")
	if err != nil {
		utils.SendJSONError(w, "Missing 'photo' form field", http.StatusBadRequest)
		return
	}
	defer file.Close()

	if err := validation.ValidateClientContentType(header.Header.Get("Content-Type")); err != nil {
		utils.SendJSONError(w, "Unsupported file type", http.StatusUnsupportedMediaType)
		return
	}
	detectedType, extension, err := validation.ValidateImageContent(file)
	if err != nil {
		if errors.Is(err, validation.ErrValidationFailed) {
			utils.SendJSONError(w, "File content is not a supported image", http.StatusUnsupportedMediaType)
			return
		}
		logger.L.Error("Photo content validation failed", "recordID", recordID, "error", err)
		utils.SendJSONError(w, "Failed to validate upload", http.StatusInternalServerError)
		return
	}

	photo, err := h.photoService.SavePhoto(r.Context(), recordID, file, extension)
	if err != nil {
		logger.L.Error("Failed to save photo", "recordID", recordID, "contentType", detectedType, "error", err)
		utils.SendJSONError(w, "Failed to save photo", http.StatusInternalServerError)
		return
	}
	utils.SendJSON(w, http.StatusCreated, photo)
}

func (h *PhotoHandler) DeletePhotoHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := GetUserIDFromContext(r.Context())
	if !ok {
		utils.SendJSONError(w, "Unauthorized", http.StatusUnauthorized)
		return
	}
	photoID, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		utils.SendJSONError(w, "Invalid photo id", http.StatusBadRequest)
		return
	}

	if err := h.photoService.DeletePhoto(r.Context(), userID, photoID); err != nil {
		status, msg := recordStatusFromErr(err)
		if status == http.StatusInternalServerError {
			logger.L.Error("Failed to delete photo", "photoID", photoID, "error", err)
		}
		utils.SendJSONError(w, msg, status)
		return
	}
	utils.SendJSON(w, http.StatusOK, map[string]string{"message": "Photo deleted"})
}

package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/username/homescout/backend/src/logger"
	"github.com/username/homescout/backend/src/model"
	"github.com/username/homescout/backend/src/security/validation"
	"github.com/username/homescout/backend/src/services"
	"github.com/username/homescout/backend/src/utils"
)

type RecordHandler struct {
	recordService   services.RecordService
	addressSearcher services.AddressSearcher
}

func NewRecordHandler(recordService services.RecordService, addressSearcher services.AddressSearcher) *RecordHandler {
	return &RecordHandler{recordService: recordService, addressSearcher: addressSearcher}
}

// recordStatusFromErr maps service errors onto HTTP statuses.
func recordStatusFromErr(err error) (int, string) {
	switch {
	case errors.Is(err, model.ErrRecordNotFound):
		return http.StatusNotFound, "Record not found"
	case errors.Is(err, model.ErrCommentNotFound):
		return http.StatusNotFound, "Comment not found"
	case errors.Is(err, model.ErrPhotoNotFound):
		return http.StatusNotFound, "Photo not found"
	case errors.Is(err, model.ErrNotRecordOwner):
		return http.StatusForbidden, "You do not own this record"
	default:
		return http.StatusInternalServerError, "Internal server error"
	}
}

type recordRequest struct {
	Type                  string   `json:"type" validate:"required,oneof=apartment land"`
	AreaPyeong            int      `json:"area_pyeong" validate:"required,oneof=20 30"`
	PriceInHundredMillion float64  `json:"price_in_hundred_million" validate:"required,gt=0"`
	RegionSi              string   `json:"region_si" validate:"required,oneof=seoul gyeonggi"`
	RegionGu              string   `json:"region_gu" validate:"required"`
	RegionDong            *string  `json:"region_dong"`
	AddressFull           *string  `json:"address_full"`
	ApartmentName         *string  `json:"apartment_name"`
	Latitude              *float64 `json:"latitude"`
	Longitude             *float64 `json:"longitude"`
	SchoolAccessibility   int      `json:"school_accessibility" validate:"required,gte=1,lte=5"`
	TrafficAccessibility  string   `json:"traffic_accessibility"`
	IsLtvRegulated        bool     `json:"is_ltv_regulated"`
	LtvRate               int      `json:"ltv_rate" validate:"required,oneof=40 70"`
	Memo                  *string  `json:"memo"`
	AIReport              *string  `json:"ai_report"`
}

func (req *recordRequest) toModel(userID int64) *model.Record {
	rec := &model.Record{
		UserID:                userID,
		Type:                  req.Type,
		AreaPyeong:            req.AreaPyeong,
		PriceInHundredMillion: req.PriceInHundredMillion,
		RegionSi:              req.RegionSi,
		RegionGu:              strings.TrimSpace(req.RegionGu),
		RegionDong:            req.RegionDong,
		AddressFull:           req.AddressFull,
		ApartmentName:         req.ApartmentName,
		Latitude:              req.Latitude,
		Longitude:             req.Longitude,
		SchoolAccessibility:   req.SchoolAccessibility,
		TrafficAccessibility:  validation.SanitizeUserText(req.TrafficAccessibility),
		IsLtvRegulated:        req.IsLtvRegulated,
		LtvRate:               req.LtvRate,
		AIReport:              req.AIReport,
	}
	if req.Memo != nil {
		cleaned := validation.SanitizeUserText(*req.Memo)
		rec.Memo = &cleaned
	}
	return rec
}

// parseRecordFilter turns query parameters into a filter. Unknown or
// malformed values are ignored rather than rejected; an unfiltered
// list is always a safe answer.
func parseRecordFilter(r *http.Request) services.RecordFilter {
	q := r.URL.Query()
	var filter services.RecordFilter

	for _, t := range strings.Split(q.Get("types"), ",") {
		t = strings.TrimSpace(t)
		if t == model.RecordTypeApartment || t == model.RecordTypeLand {
			filter.Types = append(filter.Types, t)
		}
	}
	for _, p := range strings.Split(q.Get("pyeong"), ",") {
		if v, err := strconv.Atoi(strings.TrimSpace(p)); err == nil && (v == 20 || v == 30) {
			filter.AreaPyeong = append(filter.AreaPyeong, v)
		}
	}
	if v, err := strconv.ParseFloat(q.Get("price_min"), 64); err == nil && v > 0 {
		filter.PriceMin = v
	}
	if v, err := strconv.ParseFloat(q.Get("price_max"), 64); err == nil && v > 0 {
		filter.PriceMax = v
	}
	if raw := q.Get("regulated"); raw != "" {
		if v, err := strconv.ParseBool(raw); err == nil {
			filter.Regulated = &v
		}
	}
	if v, err := strconv.Atoi(q.Get("min_school_rating")); err == nil && v >= 1 && v <= 5 {
		filter.MinSchoolRating = v
	}
	return filter
}

// backfillCoordinates resolves a record's address into lat/lng when the
// client did not supply them. Geocoding failure leaves the record as-is.
func (h *RecordHandler) backfillCoordinates(ctx context.Context, rec *model.Record) {
	if rec.Latitude != nil || rec.Longitude != nil {
		return
	}
	if rec.AddressFull == nil || strings.TrimSpace(*rec.AddressFull) == "" {
		return
	}

	results, err := h.addressSearcher.SearchAddress(ctx, *rec.AddressFull)
	if err != nil {
		logger.L.Warn("Geocoding failed for record address", "error", err)
		return
	}
	if len(results) == 0 {
		return
	}
	rec.Latitude = &results[0].Latitude
	rec.Longitude = &results[0].Longitude
	if rec.RegionDong == nil && results[0].RegionDong != "" {
		dong := results[0].RegionDong
		rec.RegionDong = &dong
	}
}

func (h *RecordHandler) ListRecordsHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := GetUserIDFromContext(r.Context())
	if !ok {
		utils.SendJSONError(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	records, err := h.recordService.FilterRecords(r.Context(), userID, parseRecordFilter(r))
	if err != nil {
		logger.L.Error("Failed to list records", "userID", userID, "error", err)
		utils.SendJSONError(w, "Failed to list records", http.StatusInternalServerError)
		return
	}

	etag, err := utils.GenerateETag(records)
	if err == nil {
		if match := r.Header.Get("If-None-Match"); match != "" && match == etag {
			w.WriteHeader(http.StatusNotModified)
			return
		}
		w.Header().Set("ETag", etag)
	}
	utils.SendJSON(w, http.StatusOK, records)
}

func (h *RecordHandler) GetRecordHandler(w http.ResponseWriter, r *http.Request) {
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

	record, err := h.recordService.GetRecord(r.Context(), userID, recordID)
	if err != nil {
		status, msg := recordStatusFromErr(err)
		if status == http.StatusInternalServerError {
			logger.L.Error("Failed to get record", "recordID", recordID, "error", err)
		}
		utils.SendJSONError(w, msg, status)
		return
	}
	utils.SendJSON(w, http.StatusOK, record)
}

func (h *RecordHandler) CreateRecordHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := GetUserIDFromContext(r.Context())
	if !ok {
		utils.SendJSONError(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	var req recordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.SendJSONError(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if err := validate.Struct(req); err != nil {
		utils.SendJSONError(w, validationMessage(err), http.StatusBadRequest)
		return
	}

	rec := req.toModel(userID)
	h.backfillCoordinates(r.Context(), rec)
	if err := h.recordService.CreateRecord(r.Context(), rec); err != nil {
		logger.L.Error("Failed to create record", "userID", userID, "error", err)
		utils.SendJSONError(w, err.Error(), http.StatusBadRequest)
		return
	}
	utils.SendJSON(w, http.StatusCreated, rec)
}

func (h *RecordHandler) UpdateRecordHandler(w http.ResponseWriter, r *http.Request) {
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

	var req recordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.SendJSONError(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if err := validate.Struct(req); err != nil {
		utils.SendJSONError(w, validationMessage(err), http.StatusBadRequest)
		return
	}

	rec := req.toModel(userID)
	rec.ID = recordID
	if err := h.recordService.UpdateRecord(r.Context(), rec); err != nil {
		status, msg := recordStatusFromErr(err)
		if status == http.StatusInternalServerError {
			logger.L.Error("Failed to update record", "recordID", recordID, "error", err)
			msg = err.Error()
			status = http.StatusBadRequest
		}
		utils.SendJSONError(w, msg, status)
		return
	}
	utils.SendJSON(w, http.StatusOK, rec)
}

func (h *RecordHandler) DeleteRecordHandler(w http.ResponseWriter, r *http.Request) {
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

	if err := h.recordService.DeleteRecord(r.Context(), userID, recordID); err != nil {
		status, msg := recordStatusFromErr(err)
		if status == http.StatusInternalServerError {
			logger.L.Error("Failed to delete record", "recordID", recordID, "error", err)
		}
		utils.SendJSONError(w, msg, status)
		return
	}
	utils.SendJSON(w, http.StatusOK, map[string]string{"message": "Record deleted"})
}

type commentRequest struct {
	Content string `json:"content" validate:"required,max=2000"`
}

func (h *RecordHandler) AddCommentHandler(w http.ResponseWriter, r *http.Request) {
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

	var req commentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.SendJSONError(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if err := validate.Struct(req); err != nil {
		utils.SendJSONError(w, validationMessage(err), http.StatusBadRequest)
		return
	}

	comment, err := h.recordService.AddComment(r.Context(), userID, recordID, validation.SanitizeUserText(req.Content))
	if err != nil {
		status, msg := recordStatusFromErr(err)
		if status == http.StatusInternalServerError {
			logger.L.Error("Failed to add comment", "recordID", recordID, "error", err)
		}
		utils.SendJSONError(w, msg, status)
		return
	}
	utils.SendJSON(w, http.StatusCreated, comment)
}

func (h *RecordHandler) UpdateCommentHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := GetUserIDFromContext(r.Context())
	if !ok {
		utils.SendJSONError(w, "Unauthorized", http.StatusUnauthorized)
		return
	}
	commentID, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		utils.SendJSONError(w, "Invalid comment id", http.StatusBadRequest)
		return
	}

	var req commentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.SendJSONError(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if err := validate.Struct(req); err != nil {
		utils.SendJSONError(w, validationMessage(err), http.StatusBadRequest)
		return
	}

	comment, err := h.recordService.UpdateComment(r.Context(), userID, commentID, validation.SanitizeUserText(req.Content))
	if err != nil {
		status, msg := recordStatusFromErr(err)
		if status == http.StatusInternalServerError {
			logger.L.Error("Failed to update comment", "commentID", commentID, "error", err)
		}
		utils.SendJSONError(w, msg, status)
		return
	}
	utils.SendJSON(w, http.StatusOK, comment)
}

func (h *RecordHandler) DeleteCommentHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := GetUserIDFromContext(r.Context())
	if !ok {
		utils.SendJSONError(w, "Unauthorized", http.StatusUnauthorized)
		return
	}
	commentID, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		utils.SendJSONError(w, "Invalid comment id", http.StatusBadRequest)
		return
	}

	if err := h.recordService.DeleteComment(r.Context(), userID, commentID); err != nil {
		status, msg := recordStatusFromErr(err)
		if status == http.StatusInternalServerError {
			logger.L.Error("Failed to delete comment", "commentID", commentID, "error", err)
		}
		utils.SendJSONError(w, msg, status)
		return
	}
	utils.SendJSON(w, http.StatusOK, map[string]string{"message": "Comment deleted"})
}

package handlers

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/username/homescout/backend/src/config"
	"github.com/username/homescout/backend/src/database"
	"github.com/username/homescout/backend/src/logger"
	"github.com/username/homescout/backend/src/model"
	"github.com/username/homescout/backend/src/services"
	"github.com/username/homescout/backend/src/utils"
)

type SearchHandler struct {
	addressSearcher services.AddressSearcher
}

func NewSearchHandler(addressSearcher services.AddressSearcher) *SearchHandler {
	return &SearchHandler{addressSearcher: addressSearcher}
}

type addSearchRequest struct {
	RegionSi string `json:"region_si" validate:"required,oneof=seoul gyeonggi"`
	RegionGu string `json:"region_gu" validate:"required"`
}

func (h *SearchHandler) AddSearchHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := GetUserIDFromContext(r.Context())
	if !ok {
		utils.SendJSONError(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	var req addSearchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.SendJSONError(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if err := validate.Struct(req); err != nil {
		utils.SendJSONError(w, validationMessage(err), http.StatusBadRequest)
		return
	}

	if err := model.AddSearchHistory(database.DB, userID, req.RegionSi, strings.TrimSpace(req.RegionGu), config.Cfg.SearchHistoryLimit); err != nil {
		logger.L.Error("Failed to store search history", "userID", userID, "error", err)
		utils.SendJSONError(w, "Failed to store search", http.StatusInternalServerError)
		return
	}
	utils.SendJSON(w, http.StatusCreated, map[string]string{"message": "Search recorded"})
}

func (h *SearchHandler) RecentSearchesHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := GetUserIDFromContext(r.Context())
	if !ok {
		utils.SendJSONError(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	entries, err := model.GetRecentSearches(database.DB, userID, config.Cfg.SearchHistoryLimit)
	if err != nil {
		logger.L.Error("Failed to load search history", "userID", userID, "error", err)
		utils.SendJSONError(w, "Failed to load searches", http.StatusInternalServerError)
		return
	}
	if entries == nil {
		entries = []model.SearchHistory{}
	}
	utils.SendJSON(w, http.StatusOK, entries)
}

// SearchAddressHandler geocodes a free-text address. With no Kakao key
// configured this degrades to an empty result set rather than an error.
func (h *SearchHandler) SearchAddressHandler(w http.ResponseWriter, r *http.Request) {
	if _, ok := GetUserIDFromContext(r.Context()); !ok {
		utils.SendJSONError(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	query := strings.TrimSpace(r.URL.Query().Get("query"))
	if query == "" {
		utils.SendJSONError(w, "query parameter is required", http.StatusBadRequest)
		return
	}

	results, err := h.addressSearcher.SearchAddress(r.Context(), query)
	if err != nil {
		logger.L.Error("Address search failed", "query", query, "error", err)
		utils.SendJSONError(w, "Address search failed", http.StatusBadGateway)
		return
	}
	utils.SendJSON(w, http.StatusOK, results)
}

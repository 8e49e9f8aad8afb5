package handlers

import (
	"encoding/json"
	"errors"
	"math"
	"net/http"

	"github.com/username/homescout/backend/src/config"
	"github.com/username/homescout/backend/src/loan"
	"github.com/username/homescout/backend/src/logger"
	"github.com/username/homescout/backend/src/model"
	"github.com/username/homescout/backend/src/services"
	"github.com/username/homescout/backend/src/utils"
)

type LoanHandler struct {
	historyService *services.LoanHistoryService
}

func NewLoanHandler(historyService *services.LoanHistoryService) *LoanHandler {
	return &LoanHandler{historyService: historyService}
}

type calculateLoanRequest struct {
	CurrentAsset   float64 `json:"current_asset"`
	ApartmentPrice float64 `json:"apartment_price"`
	IsRegulated    bool    `json:"is_regulated"`
}

// CalculateLoanHandler answers synchronously from pure arithmetic and
// hands the snapshot to the history queue on the way out. A history
// write failure never surfaces here.
func (h *LoanHandler) CalculateLoanHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := GetUserIDFromContext(r.Context())
	if !ok {
		utils.SendJSONError(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	var req calculateLoanRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.SendJSONError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	ltvRate := loan.RateForRegion(req.IsRegulated)
	terms := loan.Terms{
		AnnualRate: config.Cfg.LoanAnnualRate,
		TermMonths: config.Cfg.LoanTermMonths,
	}
	result, err := loan.ComputeAffordability(req.CurrentAsset, req.ApartmentPrice, ltvRate, terms)
	if err != nil {
		if errors.Is(err, loan.ErrInvalidInput) {
			utils.SendJSONError(w, err.Error(), http.StatusBadRequest)
			return
		}
		logger.L.Error("Affordability computation failed", "userID", userID, "error", err)
		utils.SendJSONError(w, "Failed to calculate loan", http.StatusInternalServerError)
		return
	}

	h.historyService.Record(model.LoanCalculation{
		UserID:         userID,
		CurrentAsset:   req.CurrentAsset,
		ApartmentPrice: req.ApartmentPrice,
		LtvRate:        int(math.Round(ltvRate * 100)),
		MaxLoanAmount:  result.MaxLoanAmount,
	})

	utils.SendJSON(w, http.StatusOK, result)
}

type calculateRangeRequest struct {
	ApartmentPrice float64 `json:"apartment_price"`
	ChosenAsset    float64 `json:"chosen_asset"`
	FirstTimeBuyer bool    `json:"first_time_buyer"`
}

// CalculateRangeHandler serves the interactive capital/loan split.
// Range evaluations are exploratory and are not written to history.
func (h *LoanHandler) CalculateRangeHandler(w http.ResponseWriter, r *http.Request) {
	if _, ok := GetUserIDFromContext(r.Context()); !ok {
		utils.SendJSONError(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	var req calculateRangeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.SendJSONError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	terms := loan.Terms{
		AnnualRate: config.Cfg.LoanAnnualRate,
		TermMonths: config.Cfg.LoanRangeTermMonths,
	}
	result, err := loan.ComputeRange(req.ApartmentPrice, req.ChosenAsset, req.FirstTimeBuyer, terms)
	if err != nil {
		if errors.Is(err, loan.ErrInvalidInput) {
			utils.SendJSONError(w, err.Error(), http.StatusBadRequest)
			return
		}
		logger.L.Error("Range computation failed", "error", err)
		utils.SendJSONError(w, "Failed to calculate range", http.StatusInternalServerError)
		return
	}
	utils.SendJSON(w, http.StatusOK, result)
}

func (h *LoanHandler) LoanHistoryHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := GetUserIDFromContext(r.Context())
	if !ok {
		utils.SendJSONError(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	calcs, err := h.historyService.Recent(r.Context(), userID, config.Cfg.LoanHistoryLimit)
	if err != nil {
		logger.L.Error("Failed to load loan history", "userID", userID, "error", err)
		utils.SendJSONError(w, "Failed to load loan history", http.StatusInternalServerError)
		return
	}
	if calcs == nil {
		calcs = []model.LoanCalculation{}
	}
	utils.SendJSON(w, http.StatusOK, calcs)
}

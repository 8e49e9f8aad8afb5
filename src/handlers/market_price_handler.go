package handlers

import (
	"net/http"

	"github.com/username/homescout/backend/src/logger"
	"github.com/username/homescout/backend/src/model"
	"github.com/username/homescout/backend/src/services"
	"github.com/username/homescout/backend/src/utils"
)

type MarketPriceHandler struct {
	priceService *services.MarketPriceService
}

func NewMarketPriceHandler(priceService *services.MarketPriceService) *MarketPriceHandler {
	return &MarketPriceHandler{priceService: priceService}
}

// GetMarketPricesHandler serves transactions for one district and
// month. regionCode and yearMonth are mandatory; regionSi/regionGu
// label the stored rows.
func (h *MarketPriceHandler) GetMarketPricesHandler(w http.ResponseWriter, r *http.Request) {
	if _, ok := GetUserIDFromContext(r.Context()); !ok {
		utils.SendJSONError(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	q := r.URL.Query()
	query := services.MarketPriceQuery{
		RegionSi:   q.Get("regionSi"),
		RegionGu:   q.Get("regionGu"),
		RegionCode: q.Get("regionCode"),
		YearMonth:  q.Get("yearMonth"),
	}
	if query.RegionCode == "" || query.YearMonth == "" {
		utils.SendJSONError(w, "regionCode and yearMonth query parameters are required", http.StatusBadRequest)
		return
	}
	if len(query.YearMonth) != 6 {
		utils.SendJSONError(w, "yearMonth must be in YYYYMM format", http.StatusBadRequest)
		return
	}
	if query.RegionGu == "" {
		query.RegionGu = query.RegionCode
	}

	prices, err := h.priceService.GetPrices(r.Context(), query)
	if err != nil {
		logger.L.Error("Failed to get market prices", "regionCode", query.RegionCode, "yearMonth", query.YearMonth, "error", err)
		utils.SendJSONError(w, "Failed to fetch market prices", http.StatusBadGateway)
		return
	}
	if prices == nil {
		prices = []model.MarketPrice{}
	}
	utils.SendJSON(w, http.StatusOK, prices)
}

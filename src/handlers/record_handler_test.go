package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/username/homescout/backend/src/database"
	"github.com/username/homescout/backend/src/model"
	"github.com/username/homescout/backend/src/services"
)

func validRecordBody() map[string]interface{} {
	return map[string]interface{}{
		"type":                     "apartment",
		"area_pyeong":              30,
		"price_in_hundred_million": 15.5,
		"region_si":                "seoul",
		"region_gu":                "gangnam",
		"apartment_name":           "래미안",
		"school_accessibility":     4,
		"traffic_accessibility":    "역세권",
		"is_ltv_regulated":         true,
		"ltv_rate":                 40,
		"memo":                     "남향, 관리 잘됨",
	}
}

func createRecordViaHandler(t *testing.T, h *RecordHandler, userID int64, body map[string]interface{}) model.Record {
	t.Helper()
	payload, err := json.Marshal(body)
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	h.CreateRecordHandler(rec, authedRequest(http.MethodPost, "/api/records", payload, userID))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var created model.Record
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	require.NotZero(t, created.ID)
	return created
}

func TestCreateRecordHandler(t *testing.T) {
	setupHandlerTest(t)
	h := NewRecordHandler(services.NewRecordService(database.DB), services.NewAddressSearcher(""))

	created := createRecordViaHandler(t, h, 1, validRecordBody())
	assert.Equal(t, "apartment", created.Type)
	assert.Equal(t, 40, created.LtvRate)
	assert.EqualValues(t, 1, created.UserID)
}

func TestCreateRecordHandler_Validation(t *testing.T) {
	setupHandlerTest(t)
	h := NewRecordHandler(services.NewRecordService(database.DB), services.NewAddressSearcher(""))

	cases := map[string]func(m map[string]interface{}){
		"bad type":          func(m map[string]interface{}) { m["type"] = "villa" },
		"bad pyeong":        func(m map[string]interface{}) { m["area_pyeong"] = 25 },
		"zero price":        func(m map[string]interface{}) { m["price_in_hundred_million"] = 0 },
		"bad region":        func(m map[string]interface{}) { m["region_si"] = "busan" },
		"rating too high":   func(m map[string]interface{}) { m["school_accessibility"] = 6 },
		"intermediate ltv":  func(m map[string]interface{}) { m["ltv_rate"] = 50 },
		"missing region_gu": func(m map[string]interface{}) { delete(m, "region_gu") },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			body := validRecordBody()
			mutate(body)
			payload, _ := json.Marshal(body)
			rec := httptest.NewRecorder()
			h.CreateRecordHandler(rec, authedRequest(http.MethodPost, "/api/records", payload, 1))
			assert.Equal(t, http.StatusBadRequest, rec.Code)
		})
	}

	// Regulated region with the relaxed tier passes field validation
	// but violates the cross-field rule.
	body := validRecordBody()
	body["is_ltv_regulated"] = true
	body["ltv_rate"] = 70
	payload, _ := json.Marshal(body)
	rec := httptest.NewRecorder()
	h.CreateRecordHandler(rec, authedRequest(http.MethodPost, "/api/records", payload, 1))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestListRecordsHandler_ETag(t *testing.T) {
	setupHandlerTest(t)
	h := NewRecordHandler(services.NewRecordService(database.DB), services.NewAddressSearcher(""))
	createRecordViaHandler(t, h, 1, validRecordBody())

	rec := httptest.NewRecorder()
	h.ListRecordsHandler(rec, authedRequest(http.MethodGet, "/api/records", nil, 1))
	require.Equal(t, http.StatusOK, rec.Code)
	etag := rec.Header().Get("ETag")
	require.NotEmpty(t, etag)

	// Same data, same tag: conditional request short-circuits.
	req := authedRequest(http.MethodGet, "/api/records", nil, 1)
	req.Header.Set("If-None-Match", etag)
	rec = httptest.NewRecorder()
	h.ListRecordsHandler(rec, req)
	assert.Equal(t, http.StatusNotModified, rec.Code)
	assert.Empty(t, rec.Body.String())

	// New record changes the tag.
	body := validRecordBody()
	body["price_in_hundred_million"] = 22.0
	createRecordViaHandler(t, h, 1, body)

	req = authedRequest(http.MethodGet, "/api/records", nil, 1)
	req.Header.Set("If-None-Match", etag)
	rec = httptest.NewRecorder()
	h.ListRecordsHandler(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.NotEqual(t, etag, rec.Header().Get("ETag"))
}

func TestListRecordsHandler_FilterQuery(t *testing.T) {
	setupHandlerTest(t)
	h := NewRecordHandler(services.NewRecordService(database.DB), services.NewAddressSearcher(""))

	createRecordViaHandler(t, h, 1, validRecordBody())
	land := validRecordBody()
	land["type"] = "land"
	land["area_pyeong"] = 20
	land["price_in_hundred_million"] = 5.0
	land["is_ltv_regulated"] = false
	land["ltv_rate"] = 70
	createRecordViaHandler(t, h, 1, land)

	rec := httptest.NewRecorder()
	h.ListRecordsHandler(rec, authedRequest(http.MethodGet, "/api/records?types=land&price_max=10", nil, 1))
	require.Equal(t, http.StatusOK, rec.Code)

	var records []model.Record
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &records))
	require.Len(t, records, 1)
	assert.Equal(t, "land", records[0].Type)
}

func TestGetRecordHandler_NotFoundAndForbidden(t *testing.T) {
	setupHandlerTest(t)
	h := NewRecordHandler(services.NewRecordService(database.DB), services.NewAddressSearcher(""))
	created := createRecordViaHandler(t, h, 1, validRecordBody())

	req := authedRequest(http.MethodGet, "/api/records/99999", nil, 1)
	req.SetPathValue("id", "99999")
	rec := httptest.NewRecorder()
	h.GetRecordHandler(rec, req)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	req = authedRequest(http.MethodGet, fmt.Sprintf("/api/records/%d", created.ID), nil, 2)
	req.SetPathValue("id", fmt.Sprintf("%d", created.ID))
	rec = httptest.NewRecorder()
	h.GetRecordHandler(rec, req)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestDeleteRecordHandler(t *testing.T) {
	setupHandlerTest(t)
	h := NewRecordHandler(services.NewRecordService(database.DB), services.NewAddressSearcher(""))
	created := createRecordViaHandler(t, h, 1, validRecordBody())

	req := authedRequest(http.MethodDelete, fmt.Sprintf("/api/records/%d", created.ID), nil, 1)
	req.SetPathValue("id", fmt.Sprintf("%d", created.ID))
	rec := httptest.NewRecorder()
	h.DeleteRecordHandler(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	req = authedRequest(http.MethodGet, fmt.Sprintf("/api/records/%d", created.ID), nil, 1)
	req.SetPathValue("id", fmt.Sprintf("%d", created.ID))
	rec = httptest.NewRecorder()
	h.GetRecordHandler(rec, req)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

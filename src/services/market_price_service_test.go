package services

import (
	"context"
	"sort"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/username/homescout/backend/src/database"
	"github.com/username/homescout/backend/src/model"
)

type fakeCache struct {
	entries map[string]string
}

func newFakeCache() *fakeCache {
	return &fakeCache{entries: make(map[string]string)}
}

func (f *fakeCache) Get(key string) (string, bool) {
	v, ok := f.entries[key]
	return v, ok
}

func (f *fakeCache) Set(key, value string, _ time.Duration) {
	f.entries[key] = value
}

type countingFetcher struct {
	calls  int
	prices []model.MarketPrice
}

func (c *countingFetcher) FetchTrades(_ context.Context, _, _ string) ([]model.MarketPrice, error) {
	c.calls++
	return c.prices, nil
}

func TestStubTradeFetcher_Bounds(t *testing.T) {
	fetcher := &stubTradeFetcher{}
	prices, err := fetcher.FetchTrades(context.Background(), "11680", "202408")
	require.NoError(t, err)

	require.GreaterOrEqual(t, len(prices), 5)
	require.LessOrEqual(t, len(prices), 14)

	for _, p := range prices {
		assert.Contains(t, stubApartmentNames, p.ApartmentName)
		assert.GreaterOrEqual(t, p.PriceInHundredMillion, 10.0)
		assert.LessOrEqual(t, p.PriceInHundredMillion, 30.0)
		assert.Contains(t, stubPyeongBuckets, p.AreaPyeong)
		assert.GreaterOrEqual(t, p.Floor, 1)
		assert.LessOrEqual(t, p.Floor, 20)
		assert.Regexp(t, `^2024\.08\.\d{2}$`, p.TransactionDate)
	}

	assert.True(t, sort.SliceIsSorted(prices, func(i, j int) bool {
		return prices[i].TransactionDate > prices[j].TransactionDate
	}), "rows must be newest first")
}

func TestStubTradeFetcher_Deterministic(t *testing.T) {
	fetcher := &stubTradeFetcher{}
	first, err := fetcher.FetchTrades(context.Background(), "11680", "202408")
	require.NoError(t, err)
	second, err := fetcher.FetchTrades(context.Background(), "11680", "202408")
	require.NoError(t, err)
	assert.Equal(t, first, second, "same district/month must produce the same rows")

	other, err := fetcher.FetchTrades(context.Background(), "41135", "202408")
	require.NoError(t, err)
	assert.NotEqual(t, first, other, "different districts should differ")
}

func TestMarketPriceService_Fallthrough(t *testing.T) {
	newTestDB(t)
	cache := newFakeCache()
	fetcher := &countingFetcher{prices: []model.MarketPrice{
		{ApartmentName: "래미안", TransactionDate: "2024.08.12", PriceInHundredMillion: 14.2, AreaPyeong: 30, Floor: 9},
	}}
	svc := NewMarketPriceService(database.DB, cache, fetcher, time.Minute)

	query := MarketPriceQuery{RegionSi: "seoul", RegionGu: "gangnam", RegionCode: "11680", YearMonth: "202408"}

	// Cold: cache miss, DB miss, fetcher called once; result stored in
	// both the DB and the cache.
	prices, err := svc.GetPrices(context.Background(), query)
	require.NoError(t, err)
	require.Len(t, prices, 1)
	assert.Equal(t, 1, fetcher.calls)
	assert.Equal(t, "seoul", prices[0].RegionSi)
	assert.Equal(t, "gangnam", prices[0].RegionGu)

	stored, err := model.GetMarketPrices(database.DB, "gangnam", "202408")
	require.NoError(t, err)
	assert.Len(t, stored, 1)

	// Warm: cache answers, fetcher untouched.
	prices, err = svc.GetPrices(context.Background(), query)
	require.NoError(t, err)
	require.Len(t, prices, 1)
	assert.Equal(t, 1, fetcher.calls)

	// Cache wiped but DB still has rows: fetcher stays untouched.
	cache.entries = map[string]string{}
	prices, err = svc.GetPrices(context.Background(), query)
	require.NoError(t, err)
	require.Len(t, prices, 1)
	assert.Equal(t, 1, fetcher.calls)
}

func TestMarketPriceService_RejectsBadYearMonth(t *testing.T) {
	newTestDB(t)
	svc := NewMarketPriceService(database.DB, newFakeCache(), &countingFetcher{}, time.Minute)

	_, err := svc.GetPrices(context.Background(), MarketPriceQuery{RegionGu: "gangnam", RegionCode: "11680", YearMonth: "2024-08"})
	assert.Error(t, err)
}

func TestParseDealAmount(t *testing.T) {
	got, err := parseDealAmount(" 125,000 ")
	require.NoError(t, err)
	assert.InDelta(t, 12.5, got, 1e-9)

	_, err = parseDealAmount("abc")
	assert.Error(t, err)
}

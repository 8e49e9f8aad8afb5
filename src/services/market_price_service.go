package services

import (
	"context"
	"database/sql"
	"encoding/json"
	"encoding/xml"
	"fmt"
	"hash/fnv"
	"io"
	"math"
	"math/rand"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"golang.org/x/net/publicsuffix"

	"github.com/username/homescout/backend/src/logger"
	"github.com/username/homescout/backend/src/model"
	"github.com/username/homescout/backend/src/utils"
)

// TradeFetcher pulls apartment transactions for a district and month
// from an external source. regionCode is the 5-digit district code,
// yearMonth is "YYYYMM".
type TradeFetcher interface {
	FetchTrades(ctx context.Context, regionCode, yearMonth string) ([]model.MarketPrice, error)
}

// MarketPriceQuery identifies one district/month lookup.
type MarketPriceQuery struct {
	RegionSi   string
	RegionGu   string
	RegionCode string
	YearMonth  string
}

// MarketPriceService serves transaction data with a three-level
// fallthrough: in-memory/Redis cache, local database, then the
// external fetcher. Fetched batches are written back to both levels.
type MarketPriceService struct {
	db       *sql.DB
	cache    Cache
	fetcher  TradeFetcher
	cacheTTL time.Duration
}

func NewMarketPriceService(db *sql.DB, cache Cache, fetcher TradeFetcher, cacheTTL time.Duration) *MarketPriceService {
	return &MarketPriceService{db: db, cache: cache, fetcher: fetcher, cacheTTL: cacheTTL}
}

func (s *MarketPriceService) cacheKey(q MarketPriceQuery) string {
	return fmt.Sprintf("market_prices:%s:%s:%s", q.RegionGu, q.RegionCode, q.YearMonth)
}

func (s *MarketPriceService) GetPrices(ctx context.Context, q MarketPriceQuery) ([]model.MarketPrice, error) {
	if len(q.YearMonth) != 6 {
		return nil, fmt.Errorf("invalid yearMonth %q: want YYYYMM", q.YearMonth)
	}

	key := s.cacheKey(q)
	if cached, found := s.cache.Get(key); found {
		var prices []model.MarketPrice
		if err := json.Unmarshal([]byte(cached), &prices); err == nil {
			logger.L.Debug("Market price cache hit", "key", key)
			return prices, nil
		}
		logger.L.Warn("Discarding corrupt market price cache entry", "key", key)
	}

	prices, err := model.GetMarketPrices(s.db, q.RegionGu, q.YearMonth)
	if err != nil {
		return nil, fmt.Errorf("reading stored market prices: %w", err)
	}
	if len(prices) > 0 {
		s.storeInCache(key, prices)
		return prices, nil
	}

	fetched, err := s.fetcher.FetchTrades(ctx, q.RegionCode, q.YearMonth)
	if err != nil {
		return nil, fmt.Errorf("fetching market prices for %s/%s: %w", q.RegionCode, q.YearMonth, err)
	}
	for i := range fetched {
		fetched[i].RegionSi = q.RegionSi
		fetched[i].RegionGu = q.RegionGu
	}
	if err := model.InsertMarketPrices(s.db, fetched); err != nil {
		// Serving the data matters more than persisting it.
		logger.L.Error("Failed to store fetched market prices", "regionGu", q.RegionGu, "error", err)
	}
	s.storeInCache(key, fetched)
	return fetched, nil
}

func (s *MarketPriceService) storeInCache(key string, prices []model.MarketPrice) {
	data, err := json.Marshal(prices)
	if err != nil {
		logger.L.Warn("Failed to marshal market prices for cache", "key", key, "error", err)
		return
	}
	s.cache.Set(key, string(data), s.cacheTTL)
}

// NewTradeFetcher returns the open-data client when an API key is
// configured and the offline stub otherwise.
func NewTradeFetcher(apiKey, baseURL string) TradeFetcher {
	if apiKey != "" {
		logger.L.Info("Using open-data trade fetcher", "baseURL", baseURL)
		return newMolitClient(apiKey, baseURL)
	}
	logger.L.Info("No open-data API key configured, using stub trade fetcher")
	return &stubTradeFetcher{}
}

// molitClient talks to the MOLIT apartment trade API, which answers in
// XML with amounts in units of ten thousand won and areas in square
// meters.
type molitClient struct {
	apiKey  string
	baseURL string
	client  *http.Client
}

func newMolitClient(apiKey, baseURL string) *molitClient {
	jar, err := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
	if err != nil {
		logger.L.Error("Failed to create cookie jar for trade client", "error", err)
		jar = nil
	}
	return &molitClient{
		apiKey:  apiKey,
		baseURL: baseURL,
		client: &http.Client{
			Timeout: 15 * time.Second,
			Jar:     jar,
		},
	}
}

type molitResponse struct {
	XMLName xml.Name `xml:"response"`
	Header  struct {
		ResultCode string `xml:"resultCode"`
		ResultMsg  string `xml:"resultMsg"`
	} `xml:"header"`
	Body struct {
		Items struct {
			Item []molitItem `xml:"item"`
		} `xml:"items"`
	} `xml:"body"`
}

type molitItem struct {
	DealAmount    string  `xml:"dealAmount"`
	ApartmentName string  `xml:"aptNm"`
	DealYear      int     `xml:"dealYear"`
	DealMonth     int     `xml:"dealMonth"`
	DealDay       int     `xml:"dealDay"`
	ExclusiveArea float64 `xml:"excluUseAr"`
	Floor         int     `xml:"floor"`
}

func (c *molitClient) FetchTrades(ctx context.Context, regionCode, yearMonth string) ([]model.MarketPrice, error) {
	params := url.Values{}
	params.Set("serviceKey", c.apiKey)
	params.Set("LAWD_CD", regionCode)
	params.Set("DEAL_YMD", yearMonth)
	params.Set("numOfRows", "100")

	reqURL := c.baseURL + "?" + params.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("creating trade request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("requesting trades: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("trade API returned status %d: %s", resp.StatusCode, string(body))
	}

	var parsed molitResponse
	if err := xml.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("decoding trade response: %w", err)
	}
	if parsed.Header.ResultCode != "" && parsed.Header.ResultCode != "00" {
		return nil, fmt.Errorf("trade API error %s: %s", parsed.Header.ResultCode, parsed.Header.ResultMsg)
	}

	prices := make([]model.MarketPrice, 0, len(parsed.Body.Items.Item))
	for _, item := range parsed.Body.Items.Item {
		amount, err := parseDealAmount(item.DealAmount)
		if err != nil {
			logger.L.Warn("Skipping trade row with unparseable amount", "amount", item.DealAmount, "error", err)
			continue
		}
		prices = append(prices, model.MarketPrice{
			ApartmentName:         strings.TrimSpace(item.ApartmentName),
			TransactionDate:       fmt.Sprintf("%04d.%02d.%02d", item.DealYear, item.DealMonth, item.DealDay),
			PriceInHundredMillion: amount,
			AreaPyeong:            squareMetersToPyeong(item.ExclusiveArea),
			Floor:                 item.Floor,
		})
	}
	sortPricesByDateDesc(prices)
	return prices, nil
}

// parseDealAmount converts the API's comma-grouped 만원 string
// (e.g. "125,000") into 억 units.
func parseDealAmount(raw string) (float64, error) {
	cleaned := strings.ReplaceAll(strings.TrimSpace(raw), ",", "")
	manwon, err := strconv.ParseFloat(cleaned, 64)
	if err != nil {
		return 0, err
	}
	return manwon / 10000, nil
}

func squareMetersToPyeong(area float64) int {
	return int(math.Round(area / 3.3058))
}

func sortPricesByDateDesc(prices []model.MarketPrice) {
	sort.SliceStable(prices, func(i, j int) bool {
		return prices[i].TransactionDate > prices[j].TransactionDate
	})
}

// stubTradeFetcher generates plausible transactions for development
// without network access. Output is deterministic per district/month so
// repeated lookups agree.
type stubTradeFetcher struct{}

var stubApartmentNames = []string{
	"래미안", "자이", "힐스테이트", "푸르지오",
	"아이파크", "더샵", "롯데캐슬", "e편한세상",
}

var stubPyeongBuckets = []int{25, 30, 34, 40}

func (f *stubTradeFetcher) FetchTrades(_ context.Context, regionCode, yearMonth string) ([]model.MarketPrice, error) {
	h := fnv.New64a()
	h.Write([]byte(regionCode + ":" + yearMonth))
	rng := rand.New(rand.NewSource(int64(h.Sum64())))

	count := 5 + rng.Intn(10)
	prices := make([]model.MarketPrice, 0, count)
	for i := 0; i < count; i++ {
		price := utils.RoundFloat(10.0+rng.Float64()*20.0, 1)
		day := 1 + rng.Intn(28)
		prices = append(prices, model.MarketPrice{
			ApartmentName:         stubApartmentNames[rng.Intn(len(stubApartmentNames))],
			TransactionDate:       fmt.Sprintf("%s.%s.%02d", yearMonth[:4], yearMonth[4:], day),
			PriceInHundredMillion: price,
			AreaPyeong:            stubPyeongBuckets[rng.Intn(len(stubPyeongBuckets))],
			Floor:                 1 + rng.Intn(20),
		})
	}
	sortPricesByDateDesc(prices)
	return prices, nil
}

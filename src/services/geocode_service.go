package services

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/username/homescout/backend/src/logger"
)

// AddressResult is one geocoded match for an address query.
type AddressResult struct {
	AddressFull string  `json:"address_full"`
	RegionDong  string  `json:"region_dong,omitempty"`
	Latitude    float64 `json:"latitude"`
	Longitude   float64 `json:"longitude"`
}

// AddressSearcher resolves free-text addresses to coordinates.
type AddressSearcher interface {
	SearchAddress(ctx context.Context, query string) ([]AddressResult, error)
}

// NewAddressSearcher returns the Kakao client when a REST key is
// configured and a no-op searcher otherwise, so the rest of the app
// never has to care whether geocoding is available.
func NewAddressSearcher(kakaoRESTKey string) AddressSearcher {
	if kakaoRESTKey != "" {
		return newKakaoAddressSearcher(kakaoRESTKey)
	}
	logger.L.Info("No Kakao REST API key configured, address search disabled")
	return noopAddressSearcher{}
}

type kakaoAddressSearcher struct {
	restKey string
	client  *http.Client
}

const kakaoAddressSearchURL = "https://dapi.kakao.com/v2/local/search/address.json"

func newKakaoAddressSearcher(restKey string) *kakaoAddressSearcher {
	return &kakaoAddressSearcher{
		restKey: restKey,
		client:  &http.Client{Timeout: 10 * time.Second},
	}
}

type kakaoAddressResponse struct {
	Documents []struct {
		AddressName string `json:"address_name"`
		X           string `json:"x"`
		Y           string `json:"y"`
		Address     *struct {
			Region3DepthName string `json:"region_3depth_name"`
		} `json:"address"`
	} `json:"documents"`
}

func (k *kakaoAddressSearcher) SearchAddress(ctx context.Context, query string) ([]AddressResult, error) {
	reqURL := kakaoAddressSearchURL + "?query=" + url.QueryEscape(query)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("creating address search request: %w", err)
	}
	req.Header.Set("Authorization", "KakaoAK "+k.restKey)

	resp, err := k.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("requesting address search: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("address search returned status %d: %s", resp.StatusCode, string(body))
	}

	var parsed kakaoAddressResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("decoding address search response: %w", err)
	}

	results := make([]AddressResult, 0, len(parsed.Documents))
	for _, doc := range parsed.Documents {
		lng, errX := strconv.ParseFloat(doc.X, 64)
		lat, errY := strconv.ParseFloat(doc.Y, 64)
		if errX != nil || errY != nil {
			logger.L.Warn("Skipping address match with bad coordinates", "address", doc.AddressName)
			continue
		}
		result := AddressResult{
			AddressFull: doc.AddressName,
			Latitude:    lat,
			Longitude:   lng,
		}
		if doc.Address != nil {
			result.RegionDong = doc.Address.Region3DepthName
		}
		results = append(results, result)
	}
	return results, nil
}

type noopAddressSearcher struct{}

func (noopAddressSearcher) SearchAddress(context.Context, string) ([]AddressResult, error) {
	return []AddressResult{}, nil
}

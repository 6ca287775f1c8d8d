package vinted

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/Fuyucch1/Vinted-Notifications/app/pipeline"
)

var _ pipeline.Fetcher = (*Client)(nil)

// Client fetches candidate listings from the Vinted catalog API. The
// search host is taken from each query URL, so searches against different
// locales (vinted.fr, vinted.de, ...) work side by side.
type Client struct {
	requester *Requester
}

func NewClient(requester *Requester) *Client {
	return &Client{requester: requester}
}

func (c *Client) Search(ctx context.Context, query string, limit int) ([]pipeline.RawItem, error) {
	apiURL, err := buildSearchURL(query, limit)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", pipeline.ErrFatalFetch, err)
	}

	body, err := c.requester.Get(ctx, apiURL)
	if err != nil {
		var statusErr *StatusError
		if errors.As(err, &statusErr) &&
			(statusErr.Code == http.StatusUnauthorized || statusErr.Code == http.StatusForbidden) {
			return nil, fmt.Errorf("%w: %s", pipeline.ErrFatalFetch, err)
		}
		return nil, err
	}

	var payload catalogResponse
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("failed to decode catalog response: %w", err)
	}

	items := make([]pipeline.RawItem, 0, len(payload.Items))
	for _, raw := range payload.Items {
		items = append(items, pipeline.RawItem{
			ID:        raw.ID,
			Title:     raw.Title,
			Brand:     raw.BrandTitle,
			Price:     raw.Price.Amount,
			Currency:  raw.Price.CurrencyCode,
			PhotoURL:  raw.Photo.URL,
			URL:       raw.URL,
			OwnerID:   raw.User.ID,
			Timestamp: raw.Photo.HighResolution.Timestamp,
		})
	}

	return items, nil
}

type catalogResponse struct {
	Items []catalogItem `json:"items"`
}

type catalogItem struct {
	ID         int64  `json:"id"`
	Title      string `json:"title"`
	BrandTitle string `json:"brand_title"`
	URL        string `json:"url"`
	Price      struct {
		Amount       string `json:"amount"`
		CurrencyCode string `json:"currency_code"`
	} `json:"price"`
	Photo struct {
		URL            string `json:"url"`
		HighResolution struct {
			Timestamp int64 `json:"timestamp"`
		} `json:"high_resolution"`
	} `json:"photo"`
	User struct {
		ID int64 `json:"id"`
	} `json:"user"`
}

// searchParamMap translates catalog page query parameters to their API
// counterparts. Multi-valued page parameters collapse to comma-separated
// API values.
var searchParamMap = map[string]string{
	"search_text":               "search_text",
	"brand_ids[]":               "brand_ids",
	"catalog[]":                 "catalog_ids",
	"color_ids[]":               "color_ids",
	"size_ids[]":                "size_ids",
	"material_ids[]":            "material_ids",
	"status_ids[]":              "status_ids",
	"country_ids[]":             "country_ids",
	"city_ids[]":                "city_ids",
	"video_game_platform_ids[]": "video_game_platform_ids",
	"currency":                  "currency",
	"price_from":                "price_from",
	"price_to":                  "price_to",
	"order":                     "order",
}

func buildSearchURL(query string, limit int) (string, error) {
	parsed, err := url.Parse(query)
	if err != nil {
		return "", fmt.Errorf("failed to parse query URL: %w", err)
	}
	if parsed.Host == "" {
		return "", fmt.Errorf("query URL has no host: %q", query)
	}

	params := url.Values{}
	for pageKey, apiKey := range searchParamMap {
		if values := parsed.Query()[pageKey]; len(values) > 0 {
			sep := ","
			if apiKey == "search_text" {
				sep = "+"
			}
			params.Set(apiKey, strings.Join(values, sep))
		}
	}
	params.Set("page", "1")
	params.Set("per_page", fmt.Sprintf("%d", limit))

	return fmt.Sprintf("https://%s/api/v2/catalog/items?%s", parsed.Host, params.Encode()), nil
}

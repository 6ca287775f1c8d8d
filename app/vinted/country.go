package vinted

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/Fuyucch1/Vinted-Notifications/app/cache"
	"github.com/Fuyucch1/Vinted-Notifications/app/pipeline"
)

var _ pipeline.CountryResolver = (*CountryLookup)(nil)

// Seller countries change rarely, so a long TTL keeps the lookup volume
// far below the upstream rate limit.
const countryCacheTTL = 24 * time.Hour

// Accounts are shared across all Vinted locales, so one host serves every
// lookup regardless of which locale the search targets.
const countryLookupHost = "www.vinted.fr"

// CountryLookup resolves a listing owner's country through the user API,
// caching results. It never returns an error: any failure yields the
// unknown-country sentinel, which the allowlist always accepts.
type CountryLookup struct {
	requester *Requester
	cache     cache.Cache
}

func NewCountryLookup(requester *Requester, cache cache.Cache) *CountryLookup {
	return &CountryLookup{requester: requester, cache: cache}
}

func (l *CountryLookup) Resolve(ctx context.Context, ownerID int64) string {
	key := fmt.Sprintf("country:%d", ownerID)

	if country, ok := l.cache.Get(ctx, key); ok {
		return country
	}

	country, err := l.lookup(ctx, ownerID)
	if err != nil {
		slog.Warn("Country lookup failed, using unknown sentinel", "owner_id", ownerID, "error", err)
		return pipeline.CountryUnknown
	}

	l.cache.Set(ctx, key, country, countryCacheTTL)
	return country
}

func (l *CountryLookup) lookup(ctx context.Context, ownerID int64) (string, error) {
	userURL := fmt.Sprintf("https://%s/api/v2/users/%d?localize=false", countryLookupHost, ownerID)

	body, err := l.requester.Get(ctx, userURL)
	var statusErr *StatusError
	if errors.As(err, &statusErr) && statusErr.Code == http.StatusTooManyRequests {
		// The per-user endpoint rate-limits aggressively. The items endpoint
		// is slower but far more permissive; one item is enough to read the
		// seller's country off.
		return l.lookupViaItems(ctx, ownerID)
	}
	if err != nil {
		return "", err
	}

	var payload struct {
		User struct {
			CountryISOCode string `json:"country_iso_code"`
		} `json:"user"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return "", fmt.Errorf("failed to decode user response: %w", err)
	}
	if payload.User.CountryISOCode == "" {
		return "", fmt.Errorf("user %d has no country code", ownerID)
	}

	return payload.User.CountryISOCode, nil
}

func (l *CountryLookup) lookupViaItems(ctx context.Context, ownerID int64) (string, error) {
	itemsURL := fmt.Sprintf("https://%s/api/v2/users/%d/items?page=1&per_page=1", countryLookupHost, ownerID)

	body, err := l.requester.Get(ctx, itemsURL)
	if err != nil {
		return "", err
	}

	var payload struct {
		Items []struct {
			User struct {
				CountryISOCode string `json:"country_iso_code"`
			} `json:"user"`
		} `json:"items"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return "", fmt.Errorf("failed to decode user items response: %w", err)
	}
	if len(payload.Items) == 0 || payload.Items[0].User.CountryISOCode == "" {
		return "", fmt.Errorf("user %d has no items to read a country from", ownerID)
	}

	return payload.Items[0].User.CountryISOCode, nil
}

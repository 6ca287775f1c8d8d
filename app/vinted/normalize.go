package vinted

import (
	"fmt"
	"net/url"
	"strings"
)

// NormalizeQuery canonicalizes a user-submitted Vinted search URL so that
// equivalent searches always produce the same string. Brand pages are
// rewritten to catalog form, the sort order is forced to newest first, and
// volatile parameters are stripped. The resulting query string is encoded
// with sorted keys, so normalization is deterministic.
func NormalizeQuery(rawURL string) (string, error) {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("failed to parse query URL: %w", err)
	}

	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return "", fmt.Errorf("unsupported query URL scheme: %q", parsed.Scheme)
	}
	if parsed.Host == "" {
		return "", fmt.Errorf("query URL has no host: %q", rawURL)
	}

	// Brand pages (/brand/<id>-<slug>) are shorthand for a catalog search
	// filtered to that brand.
	pathParts := strings.Split(strings.Trim(parsed.Path, "/"), "/")
	if len(pathParts) >= 2 && pathParts[0] == "brand" {
		brandID, _, _ := strings.Cut(pathParts[1], "-")
		parsed.Path = "/catalog"
		parsed.RawQuery = url.Values{"brand_ids[]": {brandID}}.Encode()
	}

	params := parsed.Query()

	params.Set("order", "newest_first")
	// These change between page loads of the same search.
	params.Del("time")
	params.Del("search_id")
	params.Del("disabled_personalization")
	params.Del("page")

	parsed.RawQuery = params.Encode()
	parsed.Fragment = ""

	return parsed.String(), nil
}

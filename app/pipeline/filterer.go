package pipeline

import (
	"strings"
)

// Filterer holds the pure keep/drop decision logic. No I/O.
type Filterer struct{}

func NewFilterer() *Filterer {
	return &Filterer{}
}

// SplitBanwords parses the stored banword setting: substrings separated
// by "|||", trimmed, lowercased, empties dropped.
func (f *Filterer) SplitBanwords(banwords string) []string {
	if banwords == "" {
		return nil
	}

	parts := strings.Split(banwords, "|||")
	words := make([]string, 0, len(parts))
	for _, part := range parts {
		word := strings.ToLower(strings.TrimSpace(part))
		if word != "" {
			words = append(words, word)
		}
	}
	return words
}

// MatchesBanword reports whether the title contains any banword,
// case-insensitive substring match against the title only.
func (f *Filterer) MatchesBanword(title string, banwords []string) bool {
	if len(banwords) == 0 {
		return false
	}

	titleLower := strings.ToLower(title)
	for _, word := range banwords {
		if strings.Contains(titleLower, word) {
			return true
		}
	}
	return false
}

// CountryAllowed reports whether a seller country passes the allowlist.
// An empty allowlist is a wildcard, and the unknown sentinel always
// passes.
func (f *Filterer) CountryAllowed(allowlist []string, country string) bool {
	if len(allowlist) == 0 {
		return true
	}
	if country == CountryUnknown {
		return true
	}
	for _, allowed := range allowlist {
		if country == allowed {
			return true
		}
	}
	return false
}

// Keep combines both checks into the full keep/drop decision for an item.
func (f *Filterer) Keep(item RawItem, banwords []string, allowlist []string, country string) bool {
	if !f.CountryAllowed(allowlist, country) {
		return false
	}
	if f.MatchesBanword(item.Title, banwords) {
		return false
	}
	return true
}

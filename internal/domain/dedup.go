package domain

import (
	"strings"
	"unicode/utf8"
)

// titleKeyLength bounds the normalized title prefix used as the secondary
// dedup key. Long enough to distinguish real papers, short enough to catch
// the same paper indexed with trailing differences across catalogs.
const titleKeyLength = 100

// Deduplicator merges candidate lists from multiple providers into one
// set of unique papers.
type Deduplicator interface {
	Merge(lists [][]CandidatePaper) []CandidatePaper
}

type paperDeduplicator struct{}

// NewDeduplicator creates the default Deduplicator. Lists are processed in
// the order given, so callers put the provider with the most reliable
// canonical IDs first; the first-seen entry wins.
func NewDeduplicator() Deduplicator {
	return &paperDeduplicator{}
}

func (d *paperDeduplicator) Merge(lists [][]CandidatePaper) []CandidatePaper {
	seenIDs := make(map[string]bool)
	seenTitles := make(map[string]bool)
	var merged []CandidatePaper

	for _, papers := range lists {
		for _, p := range papers {
			titleKey := TitleKey(p.Title)

			if p.CanonicalID != "" && seenIDs[p.CanonicalID] {
				continue
			}
			if titleKey != "" && seenTitles[titleKey] {
				continue
			}

			if p.CanonicalID != "" {
				seenIDs[p.CanonicalID] = true
			}
			if titleKey != "" {
				seenTitles[titleKey] = true
			}
			merged = append(merged, p)
		}
	}

	return merged
}

// TitleKey normalizes a title into the secondary dedup key: lower-cased,
// whitespace-collapsed, truncated to the first titleKeyLength runes so
// non-ASCII titles never cut through a multi-byte character.
func TitleKey(title string) string {
	normalized := strings.Join(strings.Fields(strings.ToLower(title)), " ")
	if utf8.RuneCountInString(normalized) > titleKeyLength {
		runes := []rune(normalized)
		normalized = string(runes[:titleKeyLength])
	}
	return normalized
}

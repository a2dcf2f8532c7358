package domain

import (
	"sort"
	"strings"
	"unicode"
)

const (
	// titleMatchMinOverlap is the minimum shared significant words between
	// question and title.
	titleMatchMinOverlap = 3
	// titleMatchMinRatio is the minimum overlap / title-token-count ratio.
	titleMatchMinRatio = 0.4
)

// titleStopWords are question words that carry no signal for matching a
// paper title.
var titleStopWords = map[string]bool{
	"the": true, "and": true, "for": true, "with": true, "from": true,
	"what": true, "how": true, "why": true, "can": true, "does": true,
	"about": true, "explain": true, "tell": true, "paper": true,
	"please": true, "this": true, "that": true, "are": true, "was": true,
	"you": true, "your": true, "mine": true, "have": true, "has": true,
	"into": true, "using": true, "based": true, "between": true,
}

// TitleMatch is a feed paper matched against a question by title-token
// overlap.
type TitleMatch struct {
	PaperID string
	Overlap int
	Ratio   float64
}

// SignificantWords tokenizes text into lower-cased words with punctuation
// stripped, dropping words of length <= 2 and stop words.
func SignificantWords(text string) []string {
	fields := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r)
	})
	var words []string
	for _, w := range fields {
		if len(w) <= 2 || titleStopWords[w] {
			continue
		}
		words = append(words, w)
	}
	return words
}

// MatchTitles scores each (paperID, title) pair against the question and
// returns matches with overlap >= 3 and ratio >= 0.4, ordered by ratio
// desc then overlap desc, truncated to keep. This guards against vector
// search missing an explicitly named paper.
func MatchTitles(question string, titles map[string]string, keep int) []TitleMatch {
	questionWords := make(map[string]bool)
	for _, w := range SignificantWords(question) {
		questionWords[w] = true
	}
	if len(questionWords) == 0 {
		return nil
	}

	var matches []TitleMatch
	for paperID, title := range titles {
		titleWords := SignificantWords(title)
		if len(titleWords) == 0 {
			continue
		}
		seen := make(map[string]bool)
		overlap := 0
		for _, w := range titleWords {
			if questionWords[w] && !seen[w] {
				overlap++
				seen[w] = true
			}
		}
		ratio := float64(overlap) / float64(len(titleWords))
		if overlap >= titleMatchMinOverlap && ratio >= titleMatchMinRatio {
			matches = append(matches, TitleMatch{PaperID: paperID, Overlap: overlap, Ratio: ratio})
		}
	}

	sort.Slice(matches, func(i, j int) bool {
		if matches[i].Ratio != matches[j].Ratio {
			return matches[i].Ratio > matches[j].Ratio
		}
		if matches[i].Overlap != matches[j].Overlap {
			return matches[i].Overlap > matches[j].Overlap
		}
		return matches[i].PaperID < matches[j].PaperID
	})

	if keep > 0 && len(matches) > keep {
		matches = matches[:keep]
	}
	return matches
}

package tracker

import "strings"

const (
	minSimilarTitleLen = 3
	minSimilarTokenLen = 3
	maxSimilarKeywords = 5
	maxSimilarResults  = 5
)

// SearchKeywords derives the keyword set stored with a new issue: the
// lowercased title split on whitespace, duplicates removed.
func SearchKeywords(title string) []string {
	fields := strings.Fields(strings.ToLower(title))
	seen := make(map[string]bool, len(fields))
	keywords := make([]string, 0, len(fields))
	for _, f := range fields {
		if seen[f] {
			continue
		}
		seen[f] = true
		keywords = append(keywords, f)
	}
	return keywords
}

// SimilarityKeywords returns the tokens used to look up issues similar to a
// title being typed. Titles under three characters yield nothing; otherwise
// the first five lowercase tokens longer than two characters are used.
func SimilarityKeywords(title string) []string {
	if len(strings.TrimSpace(title)) < minSimilarTitleLen {
		return nil
	}
	var keywords []string
	for _, f := range SearchKeywords(title) {
		if len(f) < minSimilarTokenLen {
			continue
		}
		keywords = append(keywords, f)
		if len(keywords) == maxSimilarKeywords {
			break
		}
	}
	return keywords
}

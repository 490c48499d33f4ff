package tutor

import (
	"sort"
	"strings"
	"unicode/utf8"
)

// Score weights. They are tuned together with the keyword lists produced at
// ingestion time; change them only alongside that tuning.
const (
	scorePhrase       = 20 // whole query found anywhere in the haystack
	scoreTopic        = 10 // query word found in topics
	scoreKeyword      = 8  // query word found in keywords
	scoreTitle        = 15 // query word found in title
	scorePrefixBonus  = 3  // per haystack token extending a query word
	minQueryWordRunes = 2
)

// haystack is the lowercase searchable text derived from one video.
type haystack struct {
	topics   string
	keywords string
	title    string
	all      string
	tokens   []string
}

func newHaystack(v Video) haystack {
	h := haystack{
		topics:   strings.ToLower(strings.Join(v.Topics, " ")),
		keywords: strings.ToLower(strings.Join(v.Keywords, " ")),
		title:    strings.ToLower(v.Title),
	}
	h.all = h.topics + " " + h.keywords + " " + h.title
	h.tokens = strings.Fields(h.all)
	return h
}

// queryWords lowercases and splits q on whitespace, dropping one-rune words.
func queryWords(q string) []string {
	fields := strings.Fields(strings.ToLower(q))
	words := fields[:0]
	for _, w := range fields {
		if utf8.RuneCountInString(w) >= minQueryWordRunes {
			words = append(words, w)
		}
	}
	return words
}

// score computes the relevance of one video. Matching is by substring, not
// token boundary, so partial words from noisy speech recognition still hit.
func (h haystack) score(queryLower string, words []string) int {
	score := 0
	if strings.Contains(h.all, queryLower) {
		score += scorePhrase
	}
	for _, w := range words {
		if strings.Contains(h.topics, w) {
			score += scoreTopic
		}
		if strings.Contains(h.keywords, w) {
			score += scoreKeyword
		}
		if strings.Contains(h.title, w) {
			score += scoreTitle
		}
		// A word repeated across topics, keywords and title earns the bonus
		// once per occurrence. Current weights depend on this.
		for _, tok := range h.tokens {
			if tok != w && strings.HasPrefix(tok, w) {
				score += scorePrefixBonus
			}
		}
	}
	return score
}

// Search ranks the catalog against a free-text query. Only videos scoring
// above zero are returned, best first; equal scores keep catalog order.
// An empty or whitespace-only query returns nil without scanning.
func Search(c *Catalog, query string) []SearchResult {
	if strings.TrimSpace(query) == "" || c.Len() == 0 {
		return nil
	}

	queryLower := strings.ToLower(query)
	words := queryWords(query)

	var results []SearchResult
	for _, v := range c.videos {
		if s := newHaystack(v).score(queryLower, words); s > 0 {
			results = append(results, SearchResult{Video: v, Score: s})
		}
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})
	return results
}

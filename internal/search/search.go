// Package search implements the in-memory product search used for catalog discovery.
//
// Every product is flattened into one lower-cased search string built from its name,
// brand, category, specification values and key features. A query matches when every
// whitespace-separated term longer than one character is a substring of that string.
package search

import (
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/SigNoz/pcparts-store/internal/models"
)

const (
	// MaxResults bounds every result list
	MaxResults = 10
	// MinQueryLength is the shortest query that starts a search
	MinQueryLength = 2
)

type entry struct {
	component models.Component
	name      string
	terms     string
}

// Index is an immutable search index over a catalog snapshot
type Index struct {
	entries []entry
}

// Options narrows a search
type Options struct {
	Category models.Category
	Limit    int
}

// BuildIndex derives the search string for every product. Inactive products are
// left out since they never participate in results.
func BuildIndex(components []models.Component) *Index {
	idx := &Index{entries: make([]entry, 0, len(components))}
	for _, c := range components {
		if !c.IsActive {
			continue
		}
		idx.entries = append(idx.entries, entry{
			component: c,
			name:      strings.ToLower(c.Name),
			terms:     SearchTerms(c),
		})
	}
	return idx
}

// SearchTerms returns the flattened lower-cased search string for a component
func SearchTerms(c models.Component) string {
	parts := []string{c.Name, c.Brand, string(c.Category)}
	parts = append(parts, c.Specifications.Values()...)
	parts = append(parts, c.KeyFeatures...)
	return strings.ToLower(strings.Join(parts, " "))
}

// Len returns the number of searchable products
func (idx *Index) Len() int {
	if idx == nil {
		return 0
	}
	return len(idx.entries)
}

// Search returns at most MaxResults products matching every query term. Products whose
// name contains the whole query come first; each group is ordered by descending rating.
// Queries shorter than MinQueryLength return nil.
func (idx *Index) Search(query string, opts Options) []models.Component {
	query = strings.ToLower(strings.TrimSpace(query))
	if idx == nil || utf8.RuneCountInString(query) < MinQueryLength {
		return nil
	}

	limit := opts.Limit
	if limit <= 0 || limit > MaxResults {
		limit = MaxResults
	}

	terms := queryTerms(query)

	type hit struct {
		e         *entry
		nameMatch bool
	}
	var hits []hit
	for i := range idx.entries {
		e := &idx.entries[i]
		if opts.Category != "" && e.component.Category != opts.Category {
			continue
		}
		if !matchesAll(e.terms, terms) {
			continue
		}
		hits = append(hits, hit{e: e, nameMatch: strings.Contains(e.name, query)})
	}

	sort.SliceStable(hits, func(i, j int) bool {
		if hits[i].nameMatch != hits[j].nameMatch {
			return hits[i].nameMatch
		}
		return hits[i].e.component.Rating > hits[j].e.component.Rating
	})

	if len(hits) > limit {
		hits = hits[:limit]
	}
	results := make([]models.Component, len(hits))
	for i, h := range hits {
		results[i] = h.e.component
	}
	return results
}

func queryTerms(query string) []string {
	var terms []string
	for _, t := range strings.Fields(query) {
		if utf8.RuneCountInString(t) > 1 {
			terms = append(terms, t)
		}
	}
	return terms
}

func matchesAll(haystack string, terms []string) bool {
	for _, t := range terms {
		if !strings.Contains(haystack, t) {
			return false
		}
	}
	return true
}

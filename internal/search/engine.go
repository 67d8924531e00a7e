package search

import (
	"sort"
	"strings"
	"sync/atomic"
	"unicode/utf8"

	"github.com/drnexus/medicaldashboard/backend/internal/domain/entities"
)

const (
	// MinQueryLength is the shortest query that produces results
	MinQueryLength = 2

	// DefaultLimit is how many hits the search overlay shows
	DefaultLimit = 20

	// RecentCap is how many recent queries are remembered
	RecentCap = 5
)

// Search returns every document in ix matching query, ordered by
// significance with ties kept in scan order. Queries shorter than
// MinQueryLength, or blank once trimmed, return no results.
func (ix *Index) Search(query string) []entities.SearchResult {
	if strings.TrimSpace(query) == "" || utf8.RuneCountInString(query) < MinQueryLength {
		return []entities.SearchResult{}
	}
	needle := strings.ToLower(query)

	results := []entities.SearchResult{}
	for i := range ix.docs {
		if matches(ix.docs[i].Fields, needle) {
			results = append(results, ix.docs[i].Result)
		}
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Significance.Rank() < results[j].Significance.Rank()
	})
	return results
}

func matches(fields []string, needle string) bool {
	for _, f := range fields {
		if strings.Contains(f, needle) {
			return true
		}
	}
	return false
}

// Engine serves queries against the most recently built index. Rebuild and
// Search may be called concurrently.
type Engine struct {
	index atomic.Pointer[Index]
}

// NewEngine creates an engine with an empty index
func NewEngine() *Engine {
	e := &Engine{}
	e.index.Store(NewIndex(nil, 0))
	return e
}

// Rebuild replaces the index with one built from ds
func (e *Engine) Rebuild(ds *entities.Dataset, version uint64) *Index {
	ix := NewIndex(ds, version)
	e.index.Store(ix)
	return ix
}

// Index returns the current index
func (e *Engine) Index() *Index {
	return e.index.Load()
}

// Search runs query against the current index
func (e *Engine) Search(query string) []entities.SearchResult {
	return e.Index().Search(query)
}

// PushRecent returns recent with query moved to the front, de-duplicated and
// capped at RecentCap entries. recent is not modified.
func PushRecent(recent []string, query string) []string {
	out := make([]string, 0, RecentCap)
	if strings.TrimSpace(query) != "" {
		out = append(out, query)
	}
	for _, q := range recent {
		if len(out) == RecentCap {
			break
		}
		if q != query {
			out = append(out, q)
		}
	}
	return out
}

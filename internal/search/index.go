package search

import (
	"errors"
	"fmt"
	"hash/fnv"
	"strconv"
	"strings"
	"sync"
	"unicode"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/keyword"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/standard"
	"github.com/blevesearch/bleve/v2/mapping"
	bleveQuery "github.com/blevesearch/bleve/v2/search/query"

	"github.com/pders01/feeds/internal/debuglog"
	"github.com/pders01/feeds/internal/feed"
)

// MinQueryLength is the shortest query Search accepts.
const MinQueryLength = 2

var ErrQueryTooShort = fmt.Errorf("query must be at least %d characters", MinQueryLength)

// Hit is one ranked match.
type Hit struct {
	Item  feed.Item `json:"item"`
	Score float64   `json:"score"`
}

// Index is an in-memory full-text index over the current public items.
// Sync replaces its contents; Search is safe to call concurrently.
type Index struct {
	mu          sync.RWMutex
	idx         bleve.Index
	items       map[string]feed.Item
	fingerprint uint64
	builds      int
}

func NewIndex() (*Index, error) {
	idx, err := bleve.NewMemOnly(buildIndexMapping())
	if err != nil {
		return nil, fmt.Errorf("creating search index: %w", err)
	}
	return &Index{idx: idx, items: map[string]feed.Item{}}, nil
}

func buildIndexMapping() mapping.IndexMapping {
	im := bleve.NewIndexMapping()
	im.DefaultAnalyzer = standard.Name

	dm := bleve.NewDocumentMapping()

	title := bleve.NewTextFieldMapping()
	title.Analyzer = standard.Name
	title.IncludeTermVectors = true

	desc := bleve.NewTextFieldMapping()
	desc.Analyzer = standard.Name

	source := bleve.NewTextFieldMapping()
	source.Analyzer = standard.Name

	category := bleve.NewTextFieldMapping()
	category.Analyzer = keyword.Name

	dm.AddFieldMappingsAt("title", title)
	dm.AddFieldMappingsAt("description", desc)
	dm.AddFieldMappingsAt("source", source)
	dm.AddFieldMappingsAt("category", category)

	im.DefaultMapping = dm
	return im
}

// Sync makes the index reflect items. It is a no-op when items match
// what was indexed last.
func (x *Index) Sync(items []feed.Item) error {
	fp := fingerprint(items)

	x.mu.RLock()
	same := x.builds > 0 && fp == x.fingerprint
	x.mu.RUnlock()
	if same {
		return nil
	}

	idx, err := bleve.NewMemOnly(buildIndexMapping())
	if err != nil {
		return fmt.Errorf("creating search index: %w", err)
	}

	docs := make(map[string]feed.Item, len(items))
	batch := idx.NewBatch()
	for i, it := range items {
		id := "item:" + strconv.Itoa(i)
		docs[id] = it
		if err := batch.Index(id, map[string]any{
			"title":       it.Title,
			"description": it.Description,
			"source":      it.Source,
			"category":    it.Category,
		}); err != nil {
			_ = idx.Close()
			return fmt.Errorf("indexing %q: %w", it.Title, err)
		}
	}
	if err := idx.Batch(batch); err != nil {
		_ = idx.Close()
		return fmt.Errorf("indexing items: %w", err)
	}

	x.mu.Lock()
	old := x.idx
	x.idx = idx
	x.items = docs
	x.fingerprint = fp
	x.builds++
	x.mu.Unlock()

	if old != nil {
		_ = old.Close()
	}
	debuglog.WithFields(map[string]interface{}{"component": "search"}).
		Debugf("indexed %d items", len(items))
	return nil
}

// Search returns up to limit items ranked by relevance. Title matches
// outrank description matches, which outrank source matches. Each query
// term also matches as a prefix.
func (x *Index) Search(query string, limit int) ([]Hit, error) {
	if len([]rune(strings.TrimSpace(query))) < MinQueryLength {
		return nil, ErrQueryTooShort
	}
	if limit <= 0 {
		limit = 20
	}

	terms := tokenize(query)
	if len(terms) == 0 {
		return []Hit{}, nil
	}

	var qs []bleveQuery.Query
	for _, term := range terms {
		qs = append(qs,
			fieldMatch(term, "title", 4.0),
			fieldPrefix(term, "title", 3.5),
			fieldMatch(term, "description", 2.0),
			fieldPrefix(term, "description", 1.8),
			fieldMatch(term, "source", 1.0),
		)
	}

	req := bleve.NewSearchRequestOptions(bleve.NewDisjunctionQuery(qs...), limit, 0, false)

	x.mu.RLock()
	defer x.mu.RUnlock()

	res, err := x.idx.Search(req)
	if err != nil {
		return nil, fmt.Errorf("searching: %w", err)
	}

	hits := make([]Hit, 0, len(res.Hits))
	for _, h := range res.Hits {
		it, ok := x.items[h.ID]
		if !ok {
			continue
		}
		hits = append(hits, Hit{Item: it, Score: h.Score})
	}
	return hits, nil
}

// DocCount reports how many items are indexed.
func (x *Index) DocCount() (uint64, error) {
	x.mu.RLock()
	defer x.mu.RUnlock()
	return x.idx.DocCount()
}

func (x *Index) Close() error {
	x.mu.Lock()
	defer x.mu.Unlock()
	if x.idx == nil {
		return nil
	}
	err := x.idx.Close()
	x.idx = nil
	if err != nil && !errors.Is(err, bleve.ErrorIndexClosed) {
		return err
	}
	return nil
}

func fieldMatch(term, field string, boost float64) bleveQuery.Query {
	q := bleve.NewMatchQuery(term)
	q.SetField(field)
	q.SetBoost(boost)
	return q
}

func fieldPrefix(term, field string, boost float64) bleveQuery.Query {
	q := bleve.NewPrefixQuery(term)
	q.SetField(field)
	q.SetBoost(boost)
	return q
}

// tokenize lowercases text and splits it on anything that is not a letter
// or digit, dropping single-character terms.
func tokenize(text string) []string {
	var terms []string
	var current strings.Builder

	flush := func() {
		if current.Len() > 1 {
			terms = append(terms, current.String())
		}
		current.Reset()
	}

	for _, r := range text {
		if unicode.IsLetter(r) || unicode.IsNumber(r) {
			current.WriteRune(unicode.ToLower(r))
		} else {
			flush()
		}
	}
	flush()

	return terms
}

func fingerprint(items []feed.Item) uint64 {
	h := fnv.New64a()
	for _, it := range items {
		for _, s := range []string{it.Title, it.Link, it.PubDate, it.Description, it.Source, it.Category} {
			h.Write([]byte(s))
			h.Write([]byte{0})
		}
	}
	return h.Sum64()
}

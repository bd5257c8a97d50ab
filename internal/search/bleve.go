package search

import (
	"fmt"
	"sort"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/standard"
	"github.com/blevesearch/bleve/v2/search/query"

	"github.com/nbirkeland/eihwaz/internal/models"
)

// bleveDoc is the shape indexed per note. Name and title are indexed
// separately from the body so each can carry its own weight.
type bleveDoc struct {
	Name    string   `json:"name"`
	Title   string   `json:"title"`
	Content string   `json:"content"`
	Tags    []string `json:"tags"`
}

// BleveEngine is an in-memory bleve index over vault notes.
type BleveEngine struct {
	idx bleve.Index
}

// NewBleveEngine builds an empty in-memory index.
func NewBleveEngine() (*BleveEngine, error) {
	mapping := bleve.NewIndexMapping()
	mapping.DefaultAnalyzer = standard.Name

	doc := bleve.NewDocumentMapping()
	for _, field := range []string{"name", "title", "content", "tags"} {
		fm := bleve.NewTextFieldMapping()
		fm.Analyzer = standard.Name
		doc.AddFieldMappingsAt(field, fm)
	}
	mapping.DefaultMapping = doc

	idx, err := bleve.NewMemOnly(mapping)
	if err != nil {
		return nil, fmt.Errorf("search: create index: %w", err)
	}
	return &BleveEngine{idx: idx}, nil
}

// Index adds or replaces a note.
func (e *BleveEngine) Index(note *models.Note) error {
	d := bleveDoc{
		Name:    note.Name,
		Title:   note.Title,
		Content: note.Body,
		Tags:    note.Tags,
	}
	if err := e.idx.Index(note.Path, d); err != nil {
		return fmt.Errorf("search: index %s: %w", note.Path, err)
	}
	return nil
}

// Remove drops a note from the index.
func (e *BleveEngine) Remove(path string) error {
	if err := e.idx.Delete(path); err != nil {
		return fmt.Errorf("search: remove %s: %w", path, err)
	}
	return nil
}

// Reset rebuilds the index from scratch with the given notes.
func (e *BleveEngine) Reset(notes []*models.Note) error {
	mapping := e.idx.Mapping()
	if err := e.idx.Close(); err != nil {
		return fmt.Errorf("search: close for reset: %w", err)
	}
	idx, err := bleve.NewMemOnly(mapping)
	if err != nil {
		return fmt.Errorf("search: recreate index: %w", err)
	}
	e.idx = idx

	batch := e.idx.NewBatch()
	for _, n := range notes {
		d := bleveDoc{Name: n.Name, Title: n.Title, Content: n.Body, Tags: n.Tags}
		if err := batch.Index(n.Path, d); err != nil {
			return fmt.Errorf("search: batch %s: %w", n.Path, err)
		}
	}
	if err := e.idx.Batch(batch); err != nil {
		return fmt.Errorf("search: apply batch: %w", err)
	}
	return nil
}

// Query runs a weighted fuzzy match across all note fields.
func (e *BleveEngine) Query(q string, limit int) ([]Hit, error) {
	if limit <= 0 {
		limit = 20
	}
	weights := []struct {
		field string
		boost float64
	}{
		{"name", WeightName},
		{"title", WeightTitle},
		{"content", WeightContent},
		{"tags", WeightTags},
	}
	parts := make([]query.Query, 0, len(weights))
	for _, w := range weights {
		mq := bleve.NewMatchQuery(q)
		mq.SetField(w.field)
		mq.SetBoost(w.boost)
		// Moderate tolerance: two edits also covers adjacent-letter
		// transpositions, which Levenshtein counts as two.
		mq.SetFuzziness(2)
		parts = append(parts, mq)
	}
	req := bleve.NewSearchRequestOptions(bleve.NewDisjunctionQuery(parts...), limit, 0, false)
	req.IncludeLocations = true

	res, err := e.idx.Search(req)
	if err != nil {
		return nil, fmt.Errorf("search: query %q: %w", q, err)
	}

	hits := make([]Hit, 0, len(res.Hits))
	for _, h := range res.Hits {
		var fields []string
		for field := range h.Locations {
			fields = append(fields, field)
		}
		sort.Strings(fields)
		hits = append(hits, Hit{Path: h.ID, Score: h.Score, Fields: fields})
	}
	return hits, nil
}

// Close releases the index.
func (e *BleveEngine) Close() error {
	return e.idx.Close()
}

package search

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/typesense/typesense-go/v2/typesense/api"
	"github.com/typesense/typesense-go/v2/typesense/api/pointer"

	"github.com/drnexus/medicaldashboard/backend/internal/domain/entities"
	"github.com/drnexus/medicaldashboard/backend/internal/domain/providers"
	tsclient "github.com/drnexus/medicaldashboard/backend/internal/infrastructure/clients/typesense"
	"github.com/drnexus/medicaldashboard/backend/internal/infrastructure/observability"
)

// stalePageSize bounds each page of the stale-document sweep
const stalePageSize = 250

// TypesenseExporter mirrors search documents into a Typesense collection.
// Document ids are "<type>:<record id>" so records of different types never
// collide. Every export stamps a wall-clock generation; documents from older
// generations are removed once the new ones are written.
type TypesenseExporter struct {
	client *tsclient.Client
	logger zerolog.Logger
	now    func() time.Time
}

var _ providers.SearchExporter = (*TypesenseExporter)(nil)

// NewTypesenseExporter creates a new Typesense exporter
func NewTypesenseExporter(client *tsclient.Client) *TypesenseExporter {
	return &TypesenseExporter{
		client: client,
		logger: observability.Component("search_export"),
		now:    time.Now,
	}
}

func documentID(r entities.SearchResult) string {
	return string(r.Type) + ":" + r.ID
}

// documentRecord converts a search document into the collection's schema
func documentRecord(doc entities.SearchDocument, version uint64, generation int64) map[string]interface{} {
	r := doc.Result
	record := map[string]interface{}{
		"id":                documentID(r),
		"record_type":       string(r.Type),
		"title":             r.Title,
		"subtitle":          r.Subtitle,
		"body":              doc.Fields,
		"significance":      string(r.Significance),
		"significance_rank": r.Significance.Rank(),
		"href":              r.Href,
		"dataset_version":   int64(version),
		"export_generation": generation,
	}
	if r.Date != nil {
		record["date"] = r.Date.Millis()
	}
	return record
}

// resultFromHit rebuilds a search result from a stored document
func resultFromHit(doc map[string]interface{}) entities.SearchResult {
	str := func(key string) string {
		v, _ := doc[key].(string)
		return v
	}

	result := entities.SearchResult{
		Type:         entities.ResultType(str("record_type")),
		Title:        str("title"),
		Subtitle:     str("subtitle"),
		Significance: entities.Significance(str("significance")),
		Href:         str("href"),
	}
	id := str("id")
	if _, recordID, ok := strings.Cut(id, ":"); ok {
		id = recordID
	}
	result.ID = id

	if ms, ok := doc["date"].(float64); ok {
		d := entities.NewDate(time.UnixMilli(int64(ms)))
		result.Date = &d
	}
	return result
}

// Export upserts docs tagged with the dataset version, then deletes
// documents left over from earlier exports
func (e *TypesenseExporter) Export(ctx context.Context, docs []entities.SearchDocument, version uint64) (int, error) {
	if err := e.client.InitSchema(ctx); err != nil {
		return 0, err
	}

	collection := e.client.Client().Collection(e.client.Collection())
	generation := e.now().UnixNano()
	written := 0
	for _, doc := range docs {
		if _, err := collection.Documents().Upsert(ctx, documentRecord(doc, version, generation)); err != nil {
			return written, fmt.Errorf("failed to index %s: %w", documentID(doc.Result), err)
		}
		written++
	}

	removed, err := e.deleteStale(ctx, generation)
	if err != nil {
		return written, err
	}

	e.logger.Info().
		Int("documents", written).
		Int("removed", removed).
		Uint64("dataset_version", version).
		Msg("Exported search documents")
	return written, nil
}

func (e *TypesenseExporter) deleteStale(ctx context.Context, generation int64) (int, error) {
	collection := e.client.Client().Collection(e.client.Collection())
	params := &api.SearchCollectionParams{
		Q:        pointer.String("*"),
		QueryBy:  pointer.String("title"),
		FilterBy: pointer.String(fmt.Sprintf("export_generation:<%d", generation)),
		PerPage:  pointer.Int(stalePageSize),
	}

	removed := 0
	for {
		result, err := collection.Documents().Search(ctx, params)
		if err != nil {
			return removed, fmt.Errorf("failed to find stale documents: %w", err)
		}
		if result.Hits == nil || len(*result.Hits) == 0 {
			return removed, nil
		}
		for _, hit := range *result.Hits {
			if hit.Document == nil {
				continue
			}
			id, _ := (*hit.Document)["id"].(string)
			if _, err := collection.Document(id).Delete(ctx); err != nil {
				return removed, fmt.Errorf("failed to delete stale document %s: %w", id, err)
			}
			removed++
		}
	}
}

// Search runs a prefix query over the exported documents, most significant
// first
func (e *TypesenseExporter) Search(ctx context.Context, query string, limit int) ([]entities.SearchResult, error) {
	if limit <= 0 {
		limit = 20
	}
	params := &api.SearchCollectionParams{
		Q:       pointer.String(query),
		QueryBy: pointer.String("title,subtitle,body"),
		SortBy:  pointer.String("significance_rank:asc,_text_match:desc"),
		PerPage: pointer.Int(limit),
	}

	result, err := e.client.Client().Collection(e.client.Collection()).Documents().Search(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("failed to search exported documents: %w", err)
	}

	results := []entities.SearchResult{}
	if result.Hits == nil {
		return results, nil
	}
	for _, hit := range *result.Hits {
		if hit.Document == nil {
			continue
		}
		results = append(results, resultFromHit(*hit.Document))
	}
	return results, nil
}

// Reset drops and recreates the collection
func (e *TypesenseExporter) Reset(ctx context.Context) error {
	if err := e.client.DropCollection(ctx); err != nil {
		e.logger.Warn().Err(err).Msg("Drop failed, collection may not exist")
	}
	return e.client.InitSchema(ctx)
}

package providers

import (
	"context"

	"github.com/drnexus/medicaldashboard/backend/internal/domain/entities"
)

// SearchExporter mirrors the in-process search documents into an external
// search service for other consumers
type SearchExporter interface {
	// Export replaces the exported documents with docs built from the given
	// dataset version. It returns the number of documents written.
	Export(ctx context.Context, docs []entities.SearchDocument, version uint64) (int, error)

	// Search queries the exported documents
	Search(ctx context.Context, query string, limit int) ([]entities.SearchResult, error)

	// Reset drops and recreates the export target
	Reset(ctx context.Context) error
}

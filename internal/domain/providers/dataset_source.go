package providers

import (
	"context"

	"github.com/drnexus/medicaldashboard/backend/internal/domain/entities"
)

// DatasetSource yields a complete pre-computed patient dataset
type DatasetSource interface {
	// Name identifies the source in logs and metrics
	Name() string

	// Load reads and decodes the whole dataset
	Load(ctx context.Context) (*entities.Dataset, error)
}

// DatasetSink stores a dataset so a DatasetSource can serve it later
type DatasetSink interface {
	Save(ctx context.Context, name string, ds *entities.Dataset) error
}

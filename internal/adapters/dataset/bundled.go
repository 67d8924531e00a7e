package dataset

import (
	"context"
	_ "embed"

	"github.com/drnexus/medicaldashboard/backend/internal/domain/entities"
	"github.com/drnexus/medicaldashboard/backend/internal/domain/providers"
)

//go:embed data/patient.json
var bundledJSON []byte

// BundledSource serves the dataset compiled into the binary
type BundledSource struct{}

// NewBundledSource returns the embedded dataset source
func NewBundledSource() providers.DatasetSource {
	return BundledSource{}
}

func (BundledSource) Name() string { return "bundled" }

func (BundledSource) Load(_ context.Context) (*entities.Dataset, error) {
	return Decode(bundledJSON, FormatJSON)
}

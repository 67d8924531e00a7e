package dataset

import (
	"fmt"

	"github.com/drnexus/medicaldashboard/backend/internal/domain/providers"
	"github.com/drnexus/medicaldashboard/backend/pkg/config"
)

// SourceFor picks the dataset source named by cfg. snapshots serves the
// postgres source and may be nil otherwise.
func SourceFor(cfg config.DatasetConfig, snapshots providers.DatasetSource) (providers.DatasetSource, error) {
	switch cfg.Source {
	case "", config.DatasetSourceBundled:
		return NewBundledSource(), nil
	case config.DatasetSourceFile:
		if cfg.Path == "" {
			return nil, fmt.Errorf("dataset source %q needs a path", cfg.Source)
		}
		return NewFileSource(cfg.Path), nil
	case config.DatasetSourcePostgres:
		if snapshots == nil {
			return nil, fmt.Errorf("dataset source %q needs a database connection", cfg.Source)
		}
		return snapshots, nil
	default:
		return nil, fmt.Errorf("unknown dataset source %q", cfg.Source)
	}
}

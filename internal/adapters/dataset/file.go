package dataset

import (
	"context"
	"fmt"
	"os"

	"github.com/drnexus/medicaldashboard/backend/internal/domain/entities"
	"github.com/drnexus/medicaldashboard/backend/internal/domain/providers"
)

// FileSource reads a JSON or YAML dataset from disk on every Load, so a
// reload picks up a regenerated file
type FileSource struct {
	path   string
	format Format
}

// NewFileSource creates a file source; the format follows the extension
func NewFileSource(path string) providers.DatasetSource {
	return &FileSource{path: path, format: FormatFromPath(path)}
}

func (s *FileSource) Name() string { return "file:" + s.path }

func (s *FileSource) Load(ctx context.Context) (*entities.Dataset, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(s.path)
	if err != nil {
		return nil, fmt.Errorf("failed to read dataset file: %w", err)
	}
	return Decode(data, s.format)
}

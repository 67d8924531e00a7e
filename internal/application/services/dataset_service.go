package services

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/drnexus/medicaldashboard/backend/internal/domain/entities"
	"github.com/drnexus/medicaldashboard/backend/internal/domain/providers"
	"github.com/drnexus/medicaldashboard/backend/internal/infrastructure/observability"
	"github.com/drnexus/medicaldashboard/backend/internal/search"
	"github.com/drnexus/medicaldashboard/backend/internal/store"
	apperrors "github.com/drnexus/medicaldashboard/backend/pkg/errors"
)

// LoadResult summarizes a completed dataset load
type LoadResult struct {
	Source          string                    `json:"source"`
	Version         uint64                    `json:"version"`
	DatasetVersion  string                    `json:"dataset_version"`
	TimelineEvents  int                       `json:"timeline_events"`
	SearchDocuments int                       `json:"search_documents"`
	IntegrityIssues []entities.IntegrityIssue `json:"integrity_issues"`
}

// DatasetService loads the dataset from its source into the store. Every
// installed snapshot rebuilds the search index and is announced on the
// dataset channel.
type DatasetService struct {
	source   providers.DatasetSource
	store    *store.Store
	engine   *search.Engine
	eventBus providers.EventBus
	exporter providers.SearchExporter
	metrics  *observability.Metrics
	logger   zerolog.Logger
	loadMu   sync.Mutex
}

// NewDatasetService creates a dataset service and subscribes it to the store
func NewDatasetService(source providers.DatasetSource, st *store.Store, engine *search.Engine, eventBus providers.EventBus, metrics *observability.Metrics) *DatasetService {
	s := &DatasetService{
		source:   source,
		store:    st,
		engine:   engine,
		eventBus: eventBus,
		metrics:  metrics,
		logger:   observability.Component("dataset"),
	}
	st.Subscribe(s.onSnapshot)
	return s
}

// WithExporter mirrors every loaded snapshot into exporter
func (s *DatasetService) WithExporter(exporter providers.SearchExporter) *DatasetService {
	s.exporter = exporter
	return s
}

// Source names the configured dataset source
func (s *DatasetService) Source() string {
	return s.source.Name()
}

// Load reads the source and installs it. On failure the previous snapshot
// stays current.
func (s *DatasetService) Load(ctx context.Context) (*LoadResult, error) {
	s.loadMu.Lock()
	defer s.loadMu.Unlock()

	ctx, span := observability.StartSpan(ctx, "dataset.load")
	defer span.End()

	ds, err := s.source.Load(ctx)
	if err != nil {
		observability.RecordError(span, err)
		observability.RecordDatasetLoad(ctx, s.metrics, s.source.Name(), s.store.Snapshot().Version(), err)
		s.logger.Error().Err(err).Str("source", s.source.Name()).Msg("Failed to read dataset")
		var appErr *apperrors.AppError
		if errors.As(err, &appErr) {
			return nil, err
		}
		return nil, apperrors.NewExternalError("failed to read dataset from "+s.source.Name(), err)
	}

	snap, err := s.store.Load(ds)
	if err != nil {
		observability.RecordError(span, err)
		observability.RecordDatasetLoad(ctx, s.metrics, s.source.Name(), s.store.Snapshot().Version(), err)
		s.logger.Error().Err(err).Str("source", s.source.Name()).Msg("Rejected dataset, keeping previous snapshot")
		return nil, err
	}
	observability.RecordDatasetLoad(ctx, s.metrics, s.source.Name(), snap.Version(), nil)

	issues := snap.IntegrityIssues()
	for _, issue := range issues {
		s.logger.Warn().
			Str("kind", string(issue.Kind)).
			Str("record_type", issue.RecordType).
			Str("record_id", issue.RecordID).
			Msg(issue.Message)
	}

	index := s.engine.Index()
	if s.exporter != nil {
		if _, err := s.exporter.Export(ctx, index.Documents(), snap.Version()); err != nil {
			s.logger.Warn().Err(err).Msg("Search export failed")
		}
	}

	return &LoadResult{
		Source:          s.source.Name(),
		Version:         snap.Version(),
		DatasetVersion:  snap.Metadata().Version,
		TimelineEvents:  len(snap.Timeline()),
		SearchDocuments: index.Len(),
		IntegrityIssues: issues,
	}, nil
}

func (s *DatasetService) onSnapshot(snap *store.Snapshot) {
	index := s.engine.Rebuild(snap.Dataset(), snap.Version())
	s.logger.Info().
		Uint64("version", snap.Version()).
		Int("search_documents", index.Len()).
		Int("integrity_issues", len(snap.IntegrityIssues())).
		Msg("Dataset snapshot installed")

	if s.eventBus == nil {
		return
	}
	event := entities.NewDashboardEvent(entities.DashboardEventDatasetLoaded, "", map[string]interface{}{
		"version":          snap.Version(),
		"dataset_version":  snap.Metadata().Version,
		"timeline_events":  len(snap.Timeline()),
		"integrity_issues": len(snap.IntegrityIssues()),
	})
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.eventBus.Publish(ctx, providers.EventChannelDataset, event); err != nil {
		s.logger.Warn().Err(err).Msg("Failed to publish dataset_loaded")
	}
}

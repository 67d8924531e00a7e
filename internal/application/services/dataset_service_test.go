package services

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/drnexus/medicaldashboard/backend/internal/adapters/dataset"
	"github.com/drnexus/medicaldashboard/backend/internal/domain/entities"
	"github.com/drnexus/medicaldashboard/backend/internal/search"
	"github.com/drnexus/medicaldashboard/backend/internal/store"
	apperrors "github.com/drnexus/medicaldashboard/backend/pkg/errors"
)

type stubSource struct {
	ds  *entities.Dataset
	err error
}

func (s *stubSource) Name() string { return "stub" }

func (s *stubSource) Load(context.Context) (*entities.Dataset, error) {
	return s.ds, s.err
}

type recordingExporter struct {
	versions []uint64
	docs     int
	err      error
}

func (e *recordingExporter) Export(_ context.Context, docs []entities.SearchDocument, version uint64) (int, error) {
	e.versions = append(e.versions, version)
	e.docs = len(docs)
	return len(docs), e.err
}

func (e *recordingExporter) Search(context.Context, string, int) ([]entities.SearchResult, error) {
	return nil, nil
}

func (e *recordingExporter) Reset(context.Context) error { return nil }

func TestDatasetService_LoadBundled(t *testing.T) {
	st := store.New()
	engine := search.NewEngine()
	bus := &recordingBus{}
	exporter := &recordingExporter{}
	svc := NewDatasetService(dataset.NewBundledSource(), st, engine, bus, nil).WithExporter(exporter)

	result, err := svc.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "bundled", result.Source)
	assert.Equal(t, uint64(1), result.Version)
	assert.Equal(t, "1.0.0", result.DatasetVersion)
	assert.Equal(t, 19, result.TimelineEvents)
	assert.Empty(t, result.IntegrityIssues)

	assert.Equal(t, uint64(1), engine.Index().Version())
	assert.Equal(t, engine.Index().Len(), result.SearchDocuments)
	assert.Equal(t, []uint64{1}, exporter.versions)
	assert.Equal(t, result.SearchDocuments, exporter.docs)

	loaded := bus.ofType(entities.DashboardEventDatasetLoaded)
	require.Len(t, loaded, 1)
	assert.Equal(t, "dashboard:dataset", loaded[0].channel)
	assert.Equal(t, uint64(1), loaded[0].event.Payload["version"])
}

func TestDatasetService_SourceErrorKeepsSnapshot(t *testing.T) {
	st := store.New()
	engine := search.NewEngine()
	source := &stubSource{ds: &entities.Dataset{
		Conditions: []entities.Condition{{ID: "c1", Name: "Migraine"}},
	}}
	svc := NewDatasetService(source, st, engine, nil, nil)

	_, err := svc.Load(context.Background())
	require.NoError(t, err)

	source.ds, source.err = nil, errors.New("disk unplugged")
	_, err = svc.Load(context.Background())
	require.Error(t, err)
	assert.True(t, apperrors.Is(err, apperrors.ErrorTypeExternal))
	assert.Equal(t, uint64(1), st.Snapshot().Version())

	source.err = apperrors.NewDataIntegrityError("bad date", nil)
	_, err = svc.Load(context.Background())
	assert.True(t, apperrors.Is(err, apperrors.ErrorTypeDataIntegrity))
}

func TestDatasetService_RejectedDatasetKeepsSnapshot(t *testing.T) {
	st := store.New()
	engine := search.NewEngine()
	source := &stubSource{ds: &entities.Dataset{
		Conditions: []entities.Condition{{ID: "c1", Name: "Migraine"}},
	}}
	svc := NewDatasetService(source, st, engine, nil, nil)

	_, err := svc.Load(context.Background())
	require.NoError(t, err)

	source.ds = &entities.Dataset{Conditions: []entities.Condition{{ID: "c2"}}}
	_, err = svc.Load(context.Background())
	require.Error(t, err)
	assert.Equal(t, uint64(1), st.Snapshot().Version())
	assert.Len(t, engine.Search("migraine"), 1)
}

func TestDatasetService_IntegrityIssuesReported(t *testing.T) {
	onset := entities.MustParseDate("2020-05-01")
	resolved := entities.MustParseDate("2019-01-01")
	source := &stubSource{ds: &entities.Dataset{
		Conditions: []entities.Condition{
			{ID: "c1", Name: "Sprain", OnsetDate: &onset, ResolutionDate: &resolved},
		},
	}}
	exporter := &recordingExporter{err: errors.New("typesense unavailable")}
	svc := NewDatasetService(source, store.New(), search.NewEngine(), nil, nil).WithExporter(exporter)

	result, err := svc.Load(context.Background())
	require.NoError(t, err)
	require.Len(t, result.IntegrityIssues, 1)
	assert.Equal(t, entities.IssueResolutionBeforeOnset, result.IntegrityIssues[0].Kind)
	assert.Len(t, exporter.versions, 1)
}

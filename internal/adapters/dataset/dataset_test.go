package dataset

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/drnexus/medicaldashboard/backend/internal/domain/entities"
	"github.com/drnexus/medicaldashboard/backend/internal/store"
	"github.com/drnexus/medicaldashboard/backend/pkg/config"
)

func TestBundledSource_LoadsCleanly(t *testing.T) {
	src := NewBundledSource()
	assert.Equal(t, "bundled", src.Name())

	ds, err := src.Load(context.Background())
	require.NoError(t, err)
	assert.NotEmpty(t, ds.Patient.Name)
	assert.NotEmpty(t, ds.Timeline)
	assert.NotEmpty(t, ds.Conditions)
	assert.NotEmpty(t, ds.LabResults)

	snap, err := store.New().Load(ds)
	require.NoError(t, err)
	assert.Empty(t, snap.IntegrityIssues())

	timeline := snap.Timeline()
	for i := 1; i < len(timeline); i++ {
		assert.False(t, timeline[i].Date.Before(timeline[i-1].Date.Time))
	}
}

const yamlDataset = `
metadata:
  version: "2.0.0"
patient:
  patient_id: p1
  name: Test Patient
  date_of_birth: 1990-01-02
conditions:
  - id: c1
    name: Stroke
    status: resolved
    onset_date: 2016-03-14
timeline:
  - id: t1
    date: 2016-03-14T08:42:00
    event_type: vital_signs
    summary: Vitals
    details:
      heart_rate: 72
      1: numeric key
`

func TestFileSource_YAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "patient.yaml")
	require.NoError(t, os.WriteFile(path, []byte(yamlDataset), 0o600))

	src := NewFileSource(path)
	assert.Equal(t, "file:"+path, src.Name())

	ds, err := src.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "2.0.0", ds.Metadata.Version)
	require.NotNil(t, ds.Patient.DateOfBirth)
	assert.Equal(t, 1990, ds.Patient.DateOfBirth.Year())
	require.Len(t, ds.Timeline, 1)
	assert.Equal(t, 8, ds.Timeline[0].Date.Hour())
	assert.Equal(t, "numeric key", ds.Timeline[0].Details["1"])

	payload, err := ds.Timeline[0].Payload()
	require.NoError(t, err)
	assert.Equal(t, 72.0, payload.(*entities.VitalSignsPayload).HeartRate)
}

func TestFileSource_JSONRoundTrip(t *testing.T) {
	original, err := NewBundledSource().Load(context.Background())
	require.NoError(t, err)

	for _, format := range []Format{FormatJSON, FormatYAML} {
		data, err := Encode(original, format)
		require.NoError(t, err)

		path := filepath.Join(t.TempDir(), "patient."+string(format))
		require.NoError(t, os.WriteFile(path, data, 0o600))

		loaded, err := NewFileSource(path).Load(context.Background())
		require.NoError(t, err, format)
		assert.Equal(t, len(original.Timeline), len(loaded.Timeline), format)
		assert.Equal(t, original.Patient.Name, loaded.Patient.Name, format)
		assert.True(t, original.Timeline[0].Date.Equal(loaded.Timeline[0].Date.Time), format)
	}
}

func TestFileSource_Errors(t *testing.T) {
	_, err := NewFileSource(filepath.Join(t.TempDir(), "missing.json")).Load(context.Background())
	assert.Error(t, err)

	path := filepath.Join(t.TempDir(), "bad.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"timeline":[{"date":"not a date"}]}`), 0o600))
	_, err = NewFileSource(path).Load(context.Background())
	assert.Error(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = NewFileSource(path).Load(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestFormatFromPath(t *testing.T) {
	assert.Equal(t, FormatYAML, FormatFromPath("a.YML"))
	assert.Equal(t, FormatYAML, FormatFromPath("a.yaml"))
	assert.Equal(t, FormatJSON, FormatFromPath("a.json"))
	assert.Equal(t, FormatJSON, FormatFromPath("a"))
}

func TestSourceFor(t *testing.T) {
	snapshots := NewFileSource("snapshots.json")

	src, err := SourceFor(config.DatasetConfig{Source: config.DatasetSourceBundled}, nil)
	require.NoError(t, err)
	assert.Equal(t, "bundled", src.Name())

	src, err = SourceFor(config.DatasetConfig{Source: config.DatasetSourceFile, Path: "/tmp/patient.yaml"}, nil)
	require.NoError(t, err)
	assert.Equal(t, "file:/tmp/patient.yaml", src.Name())

	src, err = SourceFor(config.DatasetConfig{Source: config.DatasetSourcePostgres}, snapshots)
	require.NoError(t, err)
	assert.Same(t, snapshots, src)

	_, err = SourceFor(config.DatasetConfig{Source: config.DatasetSourceFile}, nil)
	assert.Error(t, err)
	_, err = SourceFor(config.DatasetConfig{Source: config.DatasetSourcePostgres}, nil)
	assert.Error(t, err)
	_, err = SourceFor(config.DatasetConfig{Source: "s3"}, nil)
	assert.Error(t, err)
}

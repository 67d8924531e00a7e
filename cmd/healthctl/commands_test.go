package main

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/drnexus/medicaldashboard/backend/internal/adapters/database"
	"github.com/drnexus/medicaldashboard/backend/internal/adapters/dataset"
	"github.com/drnexus/medicaldashboard/backend/internal/domain/entities"
	"github.com/drnexus/medicaldashboard/backend/internal/search"
	"github.com/drnexus/medicaldashboard/backend/internal/store"
	"github.com/drnexus/medicaldashboard/backend/pkg/config"
)

func bundledSnapshot(t *testing.T) *store.Snapshot {
	t.Helper()
	ds, err := dataset.NewBundledSource().Load(context.Background())
	require.NoError(t, err)
	snap, err := store.New().Load(ds)
	require.NoError(t, err)
	return snap
}

func TestWriteSearch(t *testing.T) {
	snap := bundledSnapshot(t)

	t.Run("results table", func(t *testing.T) {
		var out bytes.Buffer
		require.NoError(t, writeSearch(&out, snap, "cervical"))
		lines := strings.Split(strings.TrimSpace(out.String()), "\n")
		require.Greater(t, len(lines), 1)
		assert.True(t, strings.HasPrefix(lines[0], "TYPE"))
	})

	t.Run("no results", func(t *testing.T) {
		var out bytes.Buffer
		require.NoError(t, writeSearch(&out, snap, "zzqx-not-a-term"))
		assert.Equal(t, "No results for \"zzqx-not-a-term\"\n", out.String())
	})
}

func TestSearchCmd_HelpNamesIndexedRecords(t *testing.T) {
	snap := bundledSnapshot(t)
	engine := search.NewEngine()
	index := engine.Rebuild(snap.Dataset(), snap.Version())

	names := map[entities.ResultType]string{
		entities.ResultTypeTimeline:   "timeline events",
		entities.ResultTypeCondition:  "conditions",
		entities.ResultTypeLab:        "labs",
		entities.ResultTypeMedication: "medications",
		entities.ResultTypeDevice:     "devices",
		entities.ResultTypeAction:     "actions",
		entities.ResultTypeQuestion:   "questions",
	}
	short := searchCmd(&globalOptions{}).Short
	for _, doc := range index.Documents() {
		name, ok := names[doc.Result.Type]
		require.True(t, ok, "unexpected result type %s", doc.Result.Type)
		assert.Contains(t, short, name)
	}
	assert.NotContains(t, short, "documents")
}

func TestWriteLayout(t *testing.T) {
	snap := bundledSnapshot(t)

	var out bytes.Buffer
	require.NoError(t, writeLayout(&out, snap, &layoutOptions{width: 1000, height: 400, k: 1}))
	text := out.String()
	assert.Contains(t, text, "zoom 1.00x")
	assert.Contains(t, text, "plot 920x")
	assert.Contains(t, text, "DATE")

	var filtered bytes.Buffer
	require.NoError(t, writeLayout(&filtered, snap, &layoutOptions{width: 1000, height: 400, k: 1, types: []string{"imaging"}, all: true}))
	rows := strings.Split(strings.TrimSpace(filtered.String()), "\n")
	// summary, header, then one row per imaging event
	assert.Len(t, rows, 2+3)
	for _, row := range rows[2:] {
		assert.Contains(t, row, "imaging")
	}
}

func TestWriteIntegrity(t *testing.T) {
	var empty bytes.Buffer
	require.NoError(t, writeIntegrity(&empty, nil))
	assert.Equal(t, "No integrity issues\n", empty.String())

	var out bytes.Buffer
	require.NoError(t, writeIntegrity(&out, []entities.IntegrityIssue{
		{Kind: entities.IssueDuplicateID, RecordType: "condition", RecordID: "c1", Message: "duplicate id"},
	}))
	assert.Contains(t, out.String(), "duplicate_id")
	assert.Contains(t, out.String(), "1 issue(s)")
}

func TestWriteSnapshots(t *testing.T) {
	var empty bytes.Buffer
	require.NoError(t, writeSnapshots(&empty, nil))
	assert.Equal(t, "No snapshots\n", empty.String())

	var out bytes.Buffer
	created := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	require.NoError(t, writeSnapshots(&out, []database.SnapshotInfo{
		{ID: "s-1", Name: "default", Version: "2.1", TimelineEvents: 19, CreatedAt: created},
	}))
	assert.Contains(t, out.String(), "s-1")
	assert.Contains(t, out.String(), "2024-05-01T12:00:00Z")
}

func TestLoadSnapshot_FileSourceRequiresPath(t *testing.T) {
	_, err := loadSnapshot(context.Background(), &config.Config{
		Dataset: config.DatasetConfig{Source: config.DatasetSourceFile},
	})
	assert.Error(t, err)
}

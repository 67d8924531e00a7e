package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/postgres"
	"github.com/google/uuid"

	"github.com/drnexus/medicaldashboard/backend/internal/domain/entities"
	"github.com/drnexus/medicaldashboard/backend/internal/infrastructure/clients/postgres"
	"github.com/drnexus/medicaldashboard/backend/internal/infrastructure/observability"
	apperrors "github.com/drnexus/medicaldashboard/backend/pkg/errors"
)

const snapshotsTable = "dataset_snapshots"

// SnapshotSchema creates the table holding serialized datasets
const SnapshotSchema = `
CREATE TABLE IF NOT EXISTS dataset_snapshots (
	id              UUID PRIMARY KEY,
	name            TEXT NOT NULL,
	version         TEXT NOT NULL DEFAULT '',
	timeline_events INTEGER NOT NULL DEFAULT 0,
	payload         JSONB NOT NULL,
	created_at      TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS idx_dataset_snapshots_name_created ON dataset_snapshots (name, created_at DESC);
`

// SnapshotInfo describes one stored snapshot without its payload
type SnapshotInfo struct {
	ID             string    `json:"id"`
	Name           string    `json:"name"`
	Version        string    `json:"version"`
	TimelineEvents int       `json:"timeline_events"`
	CreatedAt      time.Time `json:"created_at"`
}

// SnapshotAdapter stores whole datasets as JSONB rows. As a DatasetSource
// it serves the newest row for its snapshot name.
type SnapshotAdapter struct {
	client  *postgres.Client
	db      *goqu.Database
	name    string
	metrics *observability.Metrics
	now     func() time.Time
}

// NewSnapshotAdapter creates a snapshot adapter reading the named snapshot
func NewSnapshotAdapter(client *postgres.Client, name string, metrics *observability.Metrics) *SnapshotAdapter {
	return &SnapshotAdapter{
		client:  client,
		db:      goqu.New("postgres", client.DB()),
		name:    name,
		metrics: metrics,
		now:     time.Now,
	}
}

// Name identifies the source
func (a *SnapshotAdapter) Name() string {
	return "postgres:" + a.name
}

// EnsureSchema creates the snapshots table if it is missing
func (a *SnapshotAdapter) EnsureSchema(ctx context.Context) error {
	if _, err := a.client.DB().ExecContext(ctx, SnapshotSchema); err != nil {
		return apperrors.NewInternalError("failed to create snapshot schema", err)
	}
	return nil
}

// Load returns the newest dataset stored under the adapter's name
func (a *SnapshotAdapter) Load(ctx context.Context) (*entities.Dataset, error) {
	start := time.Now()
	defer func() { observability.RecordDBMetric(ctx, a.metrics, "snapshot.load", time.Since(start)) }()

	query, args, err := a.db.From(snapshotsTable).
		Prepared(true).
		Select("payload").
		Where(goqu.Ex{"name": a.name}).
		Order(goqu.I("created_at").Desc()).
		Limit(1).
		ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build snapshot query", err)
	}

	var payload []byte
	err = a.client.DB().QueryRowContext(ctx, query, args...).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.NewNotFoundError(fmt.Sprintf("no dataset snapshot named %s", a.name))
	}
	if err != nil {
		return nil, apperrors.NewInternalError("failed to load dataset snapshot", err)
	}

	var ds entities.Dataset
	if err := json.Unmarshal(payload, &ds); err != nil {
		return nil, apperrors.NewDataIntegrityError("stored dataset snapshot is malformed", err)
	}
	return &ds, nil
}

// Save appends a snapshot row; Load then serves it as the newest
func (a *SnapshotAdapter) Save(ctx context.Context, name string, ds *entities.Dataset) error {
	if ds == nil {
		return apperrors.NewValidationError("dataset is required")
	}
	start := time.Now()
	defer func() { observability.RecordDBMetric(ctx, a.metrics, "snapshot.save", time.Since(start)) }()

	payload, err := json.Marshal(ds)
	if err != nil {
		return apperrors.NewInternalError("failed to encode dataset", err)
	}

	record := goqu.Record{
		"id":              uuid.NewString(),
		"name":            name,
		"version":         ds.Metadata.Version,
		"timeline_events": len(ds.Timeline),
		"payload":         string(payload),
		"created_at":      a.now().UTC(),
	}

	query, args, err := a.db.Insert(snapshotsTable).Prepared(true).Rows(record).ToSQL()
	if err != nil {
		return apperrors.NewInternalError("failed to build insert query", err)
	}
	if _, err := a.client.DB().ExecContext(ctx, query, args...); err != nil {
		return apperrors.NewInternalError("failed to save dataset snapshot", err)
	}
	return nil
}

// List returns the stored snapshots for name, newest first
func (a *SnapshotAdapter) List(ctx context.Context, name string) ([]SnapshotInfo, error) {
	query, args, err := a.db.From(snapshotsTable).
		Prepared(true).
		Select("id", "name", "version", "timeline_events", "created_at").
		Where(goqu.Ex{"name": name}).
		Order(goqu.I("created_at").Desc()).
		ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build list query", err)
	}

	rows, err := a.client.DB().QueryContext(ctx, query, args...)
	if err != nil {
		return nil, apperrors.NewInternalError("failed to list dataset snapshots", err)
	}
	defer rows.Close()

	infos := []SnapshotInfo{}
	for rows.Next() {
		var info SnapshotInfo
		if err := rows.Scan(&info.ID, &info.Name, &info.Version, &info.TimelineEvents, &info.CreatedAt); err != nil {
			return nil, apperrors.NewInternalError("failed to scan dataset snapshot", err)
		}
		infos = append(infos, info)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewInternalError("failed to iterate dataset snapshots", err)
	}
	return infos, nil
}

package typesense

import (
	"context"
	"fmt"
	"time"

	"github.com/typesense/typesense-go/v2/typesense"
	"github.com/typesense/typesense-go/v2/typesense/api"
	"github.com/typesense/typesense-go/v2/typesense/api/pointer"

	"github.com/drnexus/medicaldashboard/backend/internal/infrastructure/observability"
	"github.com/drnexus/medicaldashboard/backend/pkg/config"
	"github.com/drnexus/medicaldashboard/backend/pkg/retry"
)

// Client represents a Typesense client
type Client struct {
	client     *typesense.Client
	collection string
}

// NewClient creates a new Typesense client with exponential backoff retry
func NewClient(ctx context.Context, cfg *config.TypesenseConfig, retryCfg retry.Config) (*Client, error) {
	client := typesense.NewClient(
		typesense.WithServer(cfg.URL),
		typesense.WithAPIKey(cfg.APIKey),
		typesense.WithConnectionTimeout(5*time.Second),
	)

	logger := observability.Component("typesense")
	err := retry.DoWithLog(ctx, retryCfg, "Typesense",
		func() error {
			healthCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
			defer cancel()
			_, err := client.Health(healthCtx, 2*time.Second)
			return err
		},
		func(attempt int, err error, nextDelay time.Duration) {
			logger.Warn().Err(err).Int("attempt", attempt).Dur("retry_in", nextDelay).Msg("Typesense connection attempt failed")
		},
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to Typesense after retries: %w", err)
	}

	logger.Info().Str("url", cfg.URL).Msg("Connected to Typesense")
	return &Client{client: client, collection: cfg.Collection}, nil
}

// Client returns the underlying Typesense client
func (c *Client) Client() *typesense.Client {
	return c.client
}

// Collection returns the health records collection name
func (c *Client) Collection() string {
	return c.collection
}

// HealthRecordsSchema describes the collection mirroring the in-process
// search documents. significance_rank sorts critical first.
func HealthRecordsSchema(name string) *api.CollectionSchema {
	return &api.CollectionSchema{
		Name: name,
		Fields: []api.Field{
			{Name: "id", Type: "string"},
			{Name: "record_type", Type: "string", Facet: pointer.True()},
			{Name: "title", Type: "string"},
			{Name: "subtitle", Type: "string", Optional: pointer.True()},
			{Name: "body", Type: "string[]", Optional: pointer.True()},
			{Name: "significance", Type: "string", Facet: pointer.True()},
			{Name: "significance_rank", Type: "int32"},
			{Name: "href", Type: "string", Optional: pointer.True()},
			{Name: "date", Type: "int64", Optional: pointer.True()},
			{Name: "dataset_version", Type: "int64"},
			{Name: "export_generation", Type: "int64"},
		},
		DefaultSortingField: pointer.String("significance_rank"),
	}
}

// InitSchema ensures the health records collection exists
func (c *Client) InitSchema(ctx context.Context) error {
	collections, err := c.client.Collections().Retrieve(ctx)
	if err != nil {
		return fmt.Errorf("failed to retrieve collections: %w", err)
	}

	logger := observability.Component("typesense")
	for _, col := range collections {
		if col.Name == c.collection {
			logger.Debug().Str("collection", c.collection).Msg("Typesense collection already exists")
			return nil
		}
	}

	if _, err := c.client.Collections().Create(ctx, HealthRecordsSchema(c.collection)); err != nil {
		return fmt.Errorf("failed to create collection: %w", err)
	}

	logger.Info().Str("collection", c.collection).Msg("Created Typesense collection")
	return nil
}

// DropCollection deletes the health records collection
func (c *Client) DropCollection(ctx context.Context) error {
	if _, err := c.client.Collection(c.collection).Delete(ctx); err != nil {
		return fmt.Errorf("failed to drop collection %s: %w", c.collection, err)
	}
	return nil
}

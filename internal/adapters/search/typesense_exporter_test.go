package search

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/drnexus/medicaldashboard/backend/internal/domain/entities"
)

func TestDocumentRecord(t *testing.T) {
	date := entities.MustParseDate("2019-11-18")
	doc := entities.SearchDocument{
		Result: entities.SearchResult{
			ID:           "evt-acdf",
			Type:         entities.ResultTypeTimeline,
			Title:        "ACDF",
			Subtitle:     "Procedure",
			Date:         &date,
			Significance: entities.SignificanceCritical,
			Href:         "/timeline",
		},
		Fields: []string{"acdf", "procedure"},
	}

	record := documentRecord(doc, 7, 42)
	assert.Equal(t, "timeline:evt-acdf", record["id"])
	assert.Equal(t, 0, record["significance_rank"])
	assert.Equal(t, int64(7), record["dataset_version"])
	assert.Equal(t, int64(42), record["export_generation"])
	assert.Equal(t, date.Millis(), record["date"])

	undated := documentRecord(entities.SearchDocument{Result: entities.SearchResult{ID: "c1", Type: entities.ResultTypeCondition}}, 1, 1)
	_, hasDate := undated["date"]
	assert.False(t, hasDate)
	assert.Equal(t, 3, undated["significance_rank"])
}

func TestResultFromHit_RoundTrip(t *testing.T) {
	date := entities.MustParseDate("2016-03-14")
	original := entities.SearchResult{
		ID:           "cond:with:colons",
		Type:         entities.ResultTypeCondition,
		Title:        "Stroke",
		Subtitle:     "resolved | I63.9",
		Date:         &date,
		Significance: entities.SignificanceCritical,
		Href:         "/conditions",
	}

	// Typesense hits arrive as decoded JSON, so numbers are float64.
	data, err := json.Marshal(documentRecord(entities.SearchDocument{Result: original}, 1, 1))
	require.NoError(t, err)
	var hit map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &hit))

	got := resultFromHit(hit)
	assert.Equal(t, original.ID, got.ID)
	assert.Equal(t, original.Type, got.Type)
	assert.Equal(t, original.Title, got.Title)
	assert.Equal(t, original.Significance, got.Significance)
	require.NotNil(t, got.Date)
	assert.True(t, got.Date.Equal(date.Time))
}

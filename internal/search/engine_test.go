package search

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/drnexus/medicaldashboard/backend/internal/domain/entities"
)

func testDataset() *entities.Dataset {
	onset := entities.MustParseDate("2019-03-01")
	return &entities.Dataset{
		Timeline: []entities.TimelineEvent{
			{ID: "t1", Date: entities.MustParseDate("2016-01-01"), EventType: entities.EventTypeEncounter, Summary: "ED visit for stroke symptoms", ClinicalSignificance: entities.SignificanceHigh},
			{ID: "t2", Date: entities.MustParseDate("2017-02-01"), EventType: entities.EventTypeLabResult, Summary: "Troponin", ClinicalSignificance: entities.SignificanceLow,
				Details: map[string]interface{}{"note": "value <5 ng/L"}},
		},
		Conditions: []entities.Condition{
			{ID: "c1", Name: "Ischemic stroke", ICD10Code: "I63.9", Status: entities.ConditionStatusResolved, Severity: entities.SeverityCritical, OnsetDate: &onset},
			{ID: "c2", Name: "Migraine", Status: entities.ConditionStatusActive, Severity: entities.SeverityMild},
		},
		LabResults: []entities.LabResult{
			{ID: "l1", TestName: "Potassium", Category: "Chemistry", Value: 6.8, Unit: "mmol/L", Interpretation: entities.InterpretationCriticalHigh, TestDate: entities.MustParseDate("2020-01-01")},
			{ID: "l2", TestName: "Sodium", Category: "Chemistry", Value: 140, Interpretation: entities.InterpretationNormal, TestDate: entities.MustParseDate("2020-01-01")},
		},
		Medications: []entities.Medication{
			{ID: "m1", MedicationName: "Aspirin", Dosage: "81 mg", Frequency: "daily", Status: "active", Indication: "stroke prevention"},
		},
		Devices: []entities.Device{
			{ID: "d1", DeviceName: "Cervical plate", DeviceType: "implant", Status: "active", BodyLocation: "C5-C6", Manufacturer: "Medtronic"},
		},
		ActionItems: []entities.ActionItem{
			{ID: "a1", Item: "Neurology follow-up after stroke", Category: "Neurology", Priority: entities.PriorityMedium},
		},
		UnresolvedQuestions: []entities.UnresolvedQuestion{
			{ID: "q1", Question: "Was the stroke cardioembolic?", Category: "Neurology", Importance: entities.ImportanceCritical},
		},
	}
}

func ids(results []entities.SearchResult) []string {
	out := make([]string, 0, len(results))
	for _, r := range results {
		out = append(out, r.ID)
	}
	return out
}

func TestSearch_QueryFloor(t *testing.T) {
	ix := NewIndex(testDataset(), 1)

	assert.Empty(t, ix.Search(""))
	assert.Empty(t, ix.Search("s"))
	assert.Empty(t, ix.Search("   "))
	assert.NotEmpty(t, ix.Search("st"))
}

func TestSearch_RanksBySignificanceThenScanOrder(t *testing.T) {
	ix := NewIndex(testDataset(), 1)

	results := ix.Search("stroke")
	// critical: condition c1, question q1; high: t1; medium: m1, a1
	assert.Equal(t, []string{"c1", "q1", "t1", "m1", "a1"}, ids(results))
	assert.Equal(t, entities.SignificanceCritical, results[0].Significance)
	assert.Equal(t, "resolved | I63.9", results[0].Subtitle)
	assert.Equal(t, "/conditions", results[0].Href)
	assert.Equal(t, "/actions", results[1].Href)
}

func TestSearch_CaseInsensitive(t *testing.T) {
	ix := NewIndex(testDataset(), 1)

	assert.Equal(t, ids(ix.Search("aspirin")), ids(ix.Search("ASPIRIN")))
	assert.Equal(t, []string{"m1"}, ids(ix.Search("AsPiRiN")))
}

func TestSearch_MatchesEventDetails(t *testing.T) {
	ix := NewIndex(testDataset(), 1)

	results := ix.Search("<5 ng")
	require.Len(t, results, 1)
	assert.Equal(t, "t2", results[0].ID)
	assert.Equal(t, "Lab_result", results[0].Subtitle)
	require.NotNil(t, results[0].Date)
	assert.Equal(t, 2017, results[0].Date.Year())
}

func TestSearch_PerTypeMappings(t *testing.T) {
	ix := NewIndex(testDataset(), 1)

	potassium := ix.Search("potassium")
	require.Len(t, potassium, 1)
	assert.Equal(t, entities.SignificanceCritical, potassium[0].Significance)
	assert.Equal(t, "6.8 mmol/L | critical_high", potassium[0].Subtitle)

	sodium := ix.Search("sodium")
	require.Len(t, sodium, 1)
	assert.Equal(t, entities.SignificanceLow, sodium[0].Significance)
	assert.Equal(t, "140 | normal", sodium[0].Subtitle)

	migraine := ix.Search("migraine")
	require.Len(t, migraine, 1)
	assert.Equal(t, "active | No code", migraine[0].Subtitle)
	assert.Equal(t, entities.SignificanceMedium, migraine[0].Significance)

	plate := ix.Search("medtronic")
	require.Len(t, plate, 1)
	assert.Equal(t, "C5-C6 | active", plate[0].Subtitle)
	assert.Equal(t, entities.ResultTypeDevice, plate[0].Type)

	chemistry := ix.Search("chemistry")
	assert.Equal(t, []string{"l1", "l2"}, ids(chemistry))
}

func TestSearch_EmptyDataset(t *testing.T) {
	ix := NewIndex(&entities.Dataset{}, 1)
	assert.Empty(t, ix.Search("anything"))
	assert.Zero(t, ix.Len())
}

func TestEngine_RebuildSwapsIndex(t *testing.T) {
	e := NewEngine()
	assert.Empty(t, e.Search("stroke"))

	e.Rebuild(testDataset(), 3)
	assert.Len(t, e.Search("stroke"), 5)
	assert.Equal(t, uint64(3), e.Index().Version())

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			e.Rebuild(testDataset(), 4)
		}()
		go func() {
			defer wg.Done()
			assert.Len(t, e.Search("stroke"), 5)
		}()
	}
	wg.Wait()
}

func TestPushRecent(t *testing.T) {
	recent := []string{}
	for _, q := range []string{"a1", "b2", "c3", "d4", "e5", "f6"} {
		recent = PushRecent(recent, q)
	}
	assert.Equal(t, []string{"f6", "e5", "d4", "c3", "b2"}, recent)

	recent = PushRecent(recent, "c3")
	assert.Equal(t, []string{"c3", "f6", "e5", "d4", "b2"}, recent)

	assert.Equal(t, recent, PushRecent(recent, "  "))
}

func TestSearch_StrokeConditionRanksBetweenCriticalAndLow(t *testing.T) {
	ds := &entities.Dataset{
		Timeline: []entities.TimelineEvent{
			{ID: "low", Date: entities.MustParseDate("2016-01-01"), EventType: entities.EventTypeNote, Summary: "Stroke education leaflet", ClinicalSignificance: entities.SignificanceLow},
			{ID: "crit", Date: entities.MustParseDate("2016-01-02"), EventType: entities.EventTypeDiagnosis, Summary: "Acute stroke", ClinicalSignificance: entities.SignificanceCritical},
		},
		Conditions: []entities.Condition{
			{ID: "infarct", Name: "Cerebral Infarction (Stroke)", Severity: entities.SeveritySevere, Status: entities.ConditionStatusResolved},
		},
	}

	results := NewIndex(ds, 1).Search("stroke")
	assert.Equal(t, []string{"crit", "infarct", "low"}, ids(results))
}

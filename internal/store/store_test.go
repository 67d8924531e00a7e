package store

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/drnexus/medicaldashboard/backend/internal/domain/entities"
	apperrors "github.com/drnexus/medicaldashboard/backend/pkg/errors"
)

func datePtr(s string) *entities.Date {
	d := entities.MustParseDate(s)
	return &d
}

func floatPtr(f float64) *float64 {
	return &f
}

func sampleDataset() *entities.Dataset {
	return &entities.Dataset{
		Patient: entities.Patient{PatientID: "patient-1", Name: "Test Patient"},
		Conditions: []entities.Condition{
			{ID: "c1", Name: "Cervical stenosis", Status: entities.ConditionStatusActive, Severity: entities.SeveritySevere, OnsetDate: datePtr("2019-03-01")},
		},
		LabResults: []entities.LabResult{
			{ID: "l1", TestName: "LDL", Value: 90, TestDate: entities.MustParseDate("2021-01-01")},
		},
		Timeline: []entities.TimelineEvent{
			{ID: "e2", Date: entities.MustParseDate("2020-06-01"), EventType: entities.EventTypeImaging, Summary: "MRI"},
			{ID: "e1", Date: entities.MustParseDate("2016-01-01"), EventType: entities.EventTypeEncounter, Summary: "Visit", Details: map[string]interface{}{"reason": "pain"}},
			{ID: "e3", Date: entities.MustParseDate("2020-06-01"), EventType: entities.EventTypeProcedure, Summary: "Surgery"},
		},
		ActionItems: []entities.ActionItem{
			{ID: "a1", Item: "Follow up", Requirements: []string{"referral"}},
		},
	}
}

func TestStore_NewIsEmpty(t *testing.T) {
	s := New()
	snap := s.Snapshot()

	assert.Equal(t, uint64(0), snap.Version())
	assert.Empty(t, s.Timeline())
	assert.Empty(t, s.Conditions())
	assert.Empty(t, s.IntegrityIssues())
	_, _, ok := snap.TimelineDomain()
	assert.False(t, ok)
}

func TestStore_LoadSortsTimelineStably(t *testing.T) {
	s := New()
	snap, err := s.Load(sampleDataset())
	require.NoError(t, err)

	ids := []string{}
	for _, ev := range s.Timeline() {
		ids = append(ids, ev.ID)
	}
	assert.Equal(t, []string{"e1", "e2", "e3"}, ids)
	assert.Equal(t, uint64(1), snap.Version())

	minDate, maxDate, ok := snap.TimelineDomain()
	require.True(t, ok)
	assert.Equal(t, 2016, minDate.Year())
	assert.Equal(t, 2020, maxDate.Year())
}

func TestStore_FailedLoadKeepsPreviousSnapshot(t *testing.T) {
	s := New()
	_, err := s.Load(sampleDataset())
	require.NoError(t, err)
	before := s.Snapshot()

	bad := sampleDataset()
	bad.Timeline = append(bad.Timeline, entities.TimelineEvent{ID: "broken", EventType: entities.EventTypeNote})

	_, err = s.Load(bad)
	require.Error(t, err)
	assert.True(t, apperrors.Is(err, apperrors.ErrorTypeDataIntegrity))
	assert.Same(t, before, s.Snapshot())
	assert.Len(t, s.Timeline(), 3)

	_, err = s.Load(nil)
	assert.True(t, apperrors.Is(err, apperrors.ErrorTypeValidation))
	assert.Same(t, before, s.Snapshot())
}

func TestStore_InvertedConditionIsFlaggedNotFatal(t *testing.T) {
	ds := sampleDataset()
	ds.Conditions = append(ds.Conditions, entities.Condition{
		ID:             "c2",
		Name:           "Nausea",
		Status:         entities.ConditionStatusResolved,
		OnsetDate:      datePtr("2020-01-01"),
		ResolutionDate: datePtr("2019-01-01"),
	})

	s := New()
	_, err := s.Load(ds)
	require.NoError(t, err)

	issues := s.IntegrityIssues()
	require.Len(t, issues, 1)
	assert.Equal(t, entities.IssueResolutionBeforeOnset, issues[0].Kind)
	assert.Equal(t, "c2", issues[0].RecordID)

	conditions := s.Conditions()
	require.Len(t, conditions, 2)
	_, ok := conditions[1].Duration()
	assert.False(t, ok)
}

func TestStore_IntegrityScan(t *testing.T) {
	ds := sampleDataset()
	ds.LabResults[0].ReferenceRangeLow = floatPtr(200)
	ds.LabResults[0].ReferenceRangeHigh = floatPtr(100)
	ds.Timeline = append(ds.Timeline,
		entities.TimelineEvent{ID: "e4", Date: entities.MustParseDate("2021-01-01"), EventType: "referral", Summary: "Sent"},
		entities.TimelineEvent{ID: "e1", Date: entities.MustParseDate("2022-01-01"), EventType: entities.EventTypeNote, ClinicalSignificance: "urgent"},
	)

	s := New()
	_, err := s.Load(ds)
	require.NoError(t, err)

	kinds := map[entities.IntegrityIssueKind]int{}
	for _, issue := range s.IntegrityIssues() {
		kinds[issue.Kind]++
	}
	assert.Equal(t, 1, kinds[entities.IssueInvertedReferenceRange])
	assert.Equal(t, 1, kinds[entities.IssueUnknownEventType])
	assert.Equal(t, 1, kinds[entities.IssueUnknownSignificance])
	assert.Equal(t, 1, kinds[entities.IssueDuplicateID])

	// The first occurrence wins lookups.
	ev, ok := s.Snapshot().TimelineEvent("e1")
	require.True(t, ok)
	assert.Equal(t, "Visit", ev.Summary)
}

func TestStore_GeneratedIDsAreDeterministic(t *testing.T) {
	ds := sampleDataset()
	ds.Timeline[0].ID = ""
	ds.Medications = []entities.Medication{{MedicationName: "Aspirin"}}

	first := New()
	_, err := first.Load(ds)
	require.NoError(t, err)
	second := New()
	_, err = second.Load(ds)
	require.NoError(t, err)

	assert.NotEmpty(t, first.Medications()[0].ID)
	assert.Equal(t, first.Medications()[0].ID, second.Medications()[0].ID)
	assert.Equal(t, first.Timeline()[1].ID, second.Timeline()[1].ID)
	assert.Empty(t, ds.Timeline[0].ID, "input dataset must not be modified")
}

func TestStore_AccessorsReturnCopies(t *testing.T) {
	s := New()
	_, err := s.Load(sampleDataset())
	require.NoError(t, err)

	events := s.Timeline()
	events[0].Summary = "changed"
	events[0].Details["reason"] = "changed"
	actions := s.ActionItems()
	actions[0].Requirements[0] = "changed"

	assert.Equal(t, "Visit", s.Timeline()[0].Summary)
	assert.Equal(t, "pain", s.Timeline()[0].Details["reason"])
	assert.Equal(t, "referral", s.ActionItems()[0].Requirements[0])
}

func TestStore_SubscribersSeeEachLoad(t *testing.T) {
	s := New()
	var versions []uint64
	s.Subscribe(func(snap *Snapshot) {
		versions = append(versions, snap.Version())
	})

	_, err := s.Load(sampleDataset())
	require.NoError(t, err)
	_, err = s.Load(&entities.Dataset{Timeline: []entities.TimelineEvent{{}}})
	require.Error(t, err)
	_, err = s.Load(&entities.Dataset{})
	require.NoError(t, err)

	assert.Equal(t, []uint64{1, 2}, versions)
	assert.Empty(t, s.Timeline())
}

func TestStore_ConcurrentLoadsAndReads(t *testing.T) {
	s := New()
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			_, _ = s.Load(sampleDataset())
		}()
		go func() {
			defer wg.Done()
			events := s.Timeline()
			assert.True(t, len(events) == 0 || len(events) == 3)
		}()
	}
	wg.Wait()
	assert.Equal(t, uint64(8), s.Snapshot().Version())
}

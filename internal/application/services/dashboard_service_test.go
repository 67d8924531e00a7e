package services_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/drnexus/medicaldashboard/backend/internal/adapters/dataset"
	"github.com/drnexus/medicaldashboard/backend/internal/application/services"
	"github.com/drnexus/medicaldashboard/backend/internal/domain/entities"
	"github.com/drnexus/medicaldashboard/backend/internal/store"
)

func bundledStore(t *testing.T) *store.Store {
	t.Helper()
	ds, err := dataset.NewBundledSource().Load(context.Background())
	require.NoError(t, err)
	st := store.New()
	_, err = st.Load(ds)
	require.NoError(t, err)
	return st
}

func datePtr(s string) *entities.Date {
	d := entities.MustParseDate(s)
	return &d
}

func TestDashboardService_Summary(t *testing.T) {
	svc := services.NewDashboardService(bundledStore(t))

	summary := svc.Summary()
	assert.Equal(t, "Jordan Example", summary.Patient.Name)
	assert.Equal(t, "1.0.0", summary.Metadata.Version)
	assert.Equal(t, uint64(1), summary.Version)
	assert.Equal(t, 9, summary.Counts.Conditions)
	assert.Equal(t, 1, summary.Counts.ActiveConditions)
	assert.Equal(t, 2, summary.Counts.ActiveMedications)
	assert.Equal(t, 5, summary.Counts.AbnormalLabs)
	assert.Equal(t, 19, summary.Counts.TimelineEvents)
	assert.Len(t, summary.HighPriorityActions, 3)
	assert.Equal(t, 1, summary.CriticalQuestions)
	assert.Len(t, summary.Phases, 4)
	assert.Zero(t, summary.IntegrityIssues)

	require.Len(t, summary.RecentEvents, services.RecentEventsLimit)
	assert.Equal(t, "2024-05-06", summary.RecentEvents[0].Date.Format("2006-01-02"))
	for i := 1; i < len(summary.RecentEvents); i++ {
		assert.False(t, summary.RecentEvents[i].Date.After(summary.RecentEvents[i-1].Date.Time))
	}
}

func TestDashboardService_SummaryEmptyStore(t *testing.T) {
	svc := services.NewDashboardService(store.New())

	summary := svc.Summary()
	assert.Empty(t, summary.RecentEvents)
	assert.Empty(t, summary.HighPriorityActions)
	assert.Zero(t, summary.Version)
}

func TestDashboardService_Conditions(t *testing.T) {
	svc := services.NewDashboardService(bundledStore(t))

	view := svc.Conditions(time.Date(2018, 3, 14, 0, 0, 0, 0, time.UTC))
	assert.Equal(t, map[string]int{"resolved": 8, "active": 1}, view.StatusCounts)
	assert.Equal(t, map[string]int{"critical": 2, "moderate": 4, "mild": 3}, view.SeverityCounts)
	assert.Equal(t, 89, view.ResolvedPercent)

	require.Len(t, view.Activity, 5)
	assert.Equal(t, "Mar 2016", view.Activity[0].Label)
	assert.Equal(t, 3, view.Activity[0].Active)
	assert.Equal(t, 0, view.Activity[0].Resolved)
	assert.Equal(t, "Mar 2017", view.Activity[2].Label)
	assert.Equal(t, 4, view.Activity[2].Active)
	assert.Equal(t, 1, view.Activity[2].Resolved)
}

func TestConditionActivity(t *testing.T) {
	conditions := []entities.Condition{
		{ID: "a", OnsetDate: datePtr("2010-01-15")},
		{ID: "b", OnsetDate: datePtr("2010-03-01"), ResolutionDate: datePtr("2010-06-01")},
		{ID: "inverted", OnsetDate: datePtr("2010-05-01"), ResolutionDate: datePtr("2010-02-01")},
		{ID: "undated"},
	}

	t.Run("samples every six months", func(t *testing.T) {
		points := services.ConditionActivity(conditions, time.Date(2011, 1, 20, 0, 0, 0, 0, time.UTC))
		require.Len(t, points, 3)
		assert.True(t, points[0].Date.Equal(time.Date(2010, 1, 15, 0, 0, 0, 0, time.UTC)))
		assert.Equal(t, "Jan 2010", points[0].Label)
		assert.Equal(t, 1, points[0].Active)
		assert.Equal(t, 0, points[0].Resolved)
		assert.Equal(t, 1, points[1].Active)
		assert.Equal(t, 1, points[1].Resolved)
		assert.Equal(t, "Jan 2011", points[2].Label)
	})

	t.Run("capped at ten years", func(t *testing.T) {
		points := services.ConditionActivity(conditions, time.Date(2040, 1, 1, 0, 0, 0, 0, time.UTC))
		assert.Len(t, points, 21)
	})

	t.Run("no dated onset", func(t *testing.T) {
		points := services.ConditionActivity([]entities.Condition{{ID: "x"}}, time.Now())
		assert.Empty(t, points)
	})

	t.Run("as of before first onset", func(t *testing.T) {
		points := services.ConditionActivity(conditions, time.Date(2009, 1, 1, 0, 0, 0, 0, time.UTC))
		assert.Empty(t, points)
	})
}

func TestDashboardService_Labs(t *testing.T) {
	svc := services.NewDashboardService(bundledStore(t))

	all := svc.Labs("")
	assert.Equal(t, "all", all.Category)
	assert.Equal(t, []string{"Lipid Panel", "Metabolic", "Coagulation", "Hematology"}, all.Categories)
	assert.Equal(t, services.LabStats{Total: 12, Normal: 7, Abnormal: 5, Critical: 1}, all.Stats)
	assert.Equal(t, services.LabStats{Total: 2, Normal: 1, Abnormal: 1}, all.CategoryStats["Coagulation"])
	assert.Equal(t, services.LabStats{Total: 3, Normal: 2, Abnormal: 1, Critical: 1}, all.CategoryStats["Metabolic"])

	lipids := svc.Labs("Lipid Panel")
	assert.Len(t, lipids.Results, 4)
	require.Len(t, lipids.Trends, 2)
	ldl := lipids.Trends[0]
	assert.Equal(t, "LDL Cholesterol", ldl.TestName)
	require.Len(t, ldl.Points, 3)
	assert.True(t, ldl.Points[0].Date.Before(ldl.Points[1].Date.Time))
	assert.True(t, ldl.Points[1].Date.Before(ldl.Points[2].Date.Time))
	assert.Equal(t, entities.InterpretationHigh, ldl.Points[0].Interpretation)

	missing := svc.Labs("Urinalysis")
	assert.Empty(t, missing.Results)
	assert.Zero(t, missing.Stats.Total)
	assert.Len(t, missing.Categories, 4)
}

func TestDashboardService_MedicationsAndDevices(t *testing.T) {
	svc := services.NewDashboardService(bundledStore(t))

	meds := svc.Medications()
	assert.Len(t, meds.Active, 2)
	assert.Len(t, meds.Discontinued, 3)

	devices := svc.Devices()
	assert.Len(t, devices.Devices, 5)
	assert.Len(t, devices.Active, 5)
	assert.Len(t, devices.ByType, 5)
	assert.Len(t, devices.Spine, 5)
}

func TestDashboardService_DevicesSpineMatch(t *testing.T) {
	st := store.New()
	_, err := st.Load(&entities.Dataset{
		Devices: []entities.Device{
			{ID: "d1", DeviceName: "Plate", DeviceType: "plate", Status: "active", BodyLocation: "CERVICAL C5"},
			{ID: "d2", DeviceName: "Rod", DeviceType: "rod", Status: "removed", BodyLocation: "lumbar spine"},
			{ID: "d3", DeviceName: "Stent", DeviceType: "stent", Status: "active", BodyLocation: "coronary artery"},
			{ID: "d4", DeviceName: "Screw", DeviceType: "plate", Status: "active"},
		},
	})
	require.NoError(t, err)

	view := services.NewDashboardService(st).Devices()
	require.Len(t, view.Spine, 2)
	assert.Equal(t, "d1", view.Spine[0].ID)
	assert.Equal(t, "d2", view.Spine[1].ID)
	assert.Len(t, view.Active, 3)
	require.Len(t, view.ByType, 3)
	assert.Equal(t, "plate", view.ByType[0].DeviceType)
	assert.Len(t, view.ByType[0].Devices, 2)
}

func TestDashboardService_Actions(t *testing.T) {
	svc := services.NewDashboardService(bundledStore(t))

	view := svc.Actions()
	assert.Equal(t, services.ActionStats{
		Total: 6, High: 3, Pending: 2, Ongoing: 4, Questions: 6, CriticalQuestions: 1,
	}, view.Stats)
	assert.Len(t, view.ByPriority["high"], 3)
	assert.Len(t, view.ByPriority["medium"], 2)
	assert.Len(t, view.ByPriority["low"], 1)
}

func TestDashboardService_Documents(t *testing.T) {
	svc := services.NewDashboardService(bundledStore(t))

	view := svc.Documents()
	assert.Len(t, view.Documents, 7)
	require.Len(t, view.ByType, 6)
	assert.Equal(t, "CCD", view.ByType[0].Key)
	assert.Len(t, view.ByCategory, 5)
}

func TestDashboardService_Timeline(t *testing.T) {
	svc := services.NewDashboardService(bundledStore(t))

	all := svc.Timeline(services.TimelineFilter{})
	assert.Equal(t, 19, all.Total)
	assert.Len(t, all.Events, 19)
	assert.Len(t, all.Critical, 4)
	assert.Equal(t, 3, all.TypeCounts["imaging"])

	imaging := svc.Timeline(services.TimelineFilter{Types: []entities.EventType{entities.EventTypeImaging}})
	assert.Len(t, imaging.Events, 3)
	assert.Equal(t, 19, imaging.Total)
	assert.Equal(t, map[string]int{"imaging": 3}, imaging.TypeCounts)

	from := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)
	recent := svc.Timeline(services.TimelineFilter{From: &from})
	assert.Len(t, recent.Events, 5)

	critical := svc.Timeline(services.TimelineFilter{
		Significances: []entities.Significance{entities.SignificanceCritical},
	})
	assert.Len(t, critical.Events, 4)
}

func TestTimelineFilter_Match(t *testing.T) {
	ev := entities.TimelineEvent{
		ID: "e1", Date: entities.MustParseDate("2020-06-01"), EventType: entities.EventTypeImaging,
	}
	day := ev.Date.Time

	assert.True(t, services.TimelineFilter{}.Match(&ev))
	assert.True(t, services.TimelineFilter{From: &day, To: &day}.Match(&ev))
	assert.True(t, services.TimelineFilter{
		Significances: []entities.Significance{entities.SignificanceMedium},
	}.Match(&ev))
	assert.False(t, services.TimelineFilter{
		Types: []entities.EventType{entities.EventTypeProcedure},
	}.Match(&ev))

	later := day.Add(time.Hour)
	assert.False(t, services.TimelineFilter{From: &later}.Match(&ev))
}

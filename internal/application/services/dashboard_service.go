package services

import (
	"math"
	"sort"
	"strings"
	"time"

	"github.com/drnexus/medicaldashboard/backend/internal/domain/entities"
	"github.com/drnexus/medicaldashboard/backend/internal/store"
)

const (
	// RecentEventsLimit is the number of events on the overview page
	RecentEventsLimit = 5
	// activityStepMonths spaces the condition activity series
	activityStepMonths = 6
	// activityMaxMonths caps the condition activity series at ten years
	activityMaxMonths = 120
)

// DashboardService derives the page-level views from the current snapshot.
// Every method reads one snapshot, so a view never mixes two dataset versions.
type DashboardService struct {
	store *store.Store
}

// NewDashboardService creates a new dashboard service
func NewDashboardService(st *store.Store) *DashboardService {
	return &DashboardService{store: st}
}

// CollectionCounts sizes each record collection
type CollectionCounts struct {
	Conditions        int `json:"conditions"`
	ActiveConditions  int `json:"active_conditions"`
	Medications       int `json:"medications"`
	ActiveMedications int `json:"active_medications"`
	Devices           int `json:"devices"`
	LabResults        int `json:"lab_results"`
	AbnormalLabs      int `json:"abnormal_labs"`
	TimelineEvents    int `json:"timeline_events"`
	ActionItems       int `json:"action_items"`
	Questions         int `json:"questions"`
	Documents         int `json:"documents"`
}

// DashboardSummary backs the overview page
type DashboardSummary struct {
	Patient             entities.Patient         `json:"patient"`
	Metadata            entities.Metadata        `json:"metadata"`
	Counts              CollectionCounts         `json:"counts"`
	HighPriorityActions []entities.ActionItem    `json:"high_priority_actions"`
	RecentEvents        []entities.TimelineEvent `json:"recent_events"`
	CriticalQuestions   int                      `json:"critical_questions"`
	Phases              []entities.ClinicalPhase `json:"phases"`
	IntegrityIssues     int                      `json:"integrity_issues"`
	Version             uint64                   `json:"version"`
}

// Summary builds the overview page
func (s *DashboardService) Summary() DashboardSummary {
	snap := s.store.Snapshot()

	conditions := snap.Conditions()
	medications := snap.Medications()
	labs := snap.LabResults()
	timeline := snap.Timeline()
	actions := snap.ActionItems()
	questions := snap.Questions()

	counts := CollectionCounts{
		Conditions:     len(conditions),
		Medications:    len(medications),
		Devices:        len(snap.Devices()),
		LabResults:     len(labs),
		TimelineEvents: len(timeline),
		ActionItems:    len(actions),
		Questions:      len(questions),
		Documents:      len(snap.Documents()),
	}
	for _, c := range conditions {
		if c.Status == entities.ConditionStatusActive {
			counts.ActiveConditions++
		}
	}
	for i := range medications {
		if medications[i].IsActive() {
			counts.ActiveMedications++
		}
	}
	for _, l := range labs {
		if l.Interpretation != entities.InterpretationNormal {
			counts.AbnormalLabs++
		}
	}

	high := []entities.ActionItem{}
	for _, a := range actions {
		if a.Priority == entities.PriorityHigh {
			high = append(high, a)
		}
	}

	critical := 0
	for _, q := range questions {
		if q.Importance == entities.ImportanceCritical {
			critical++
		}
	}

	return DashboardSummary{
		Patient:             snap.Patient(),
		Metadata:            snap.Metadata(),
		Counts:              counts,
		HighPriorityActions: high,
		RecentEvents:        mostRecent(timeline, RecentEventsLimit),
		CriticalQuestions:   critical,
		Phases:              snap.Phases(),
		IntegrityIssues:     len(snap.IntegrityIssues()),
		Version:             snap.Version(),
	}
}

// mostRecent returns up to n events, newest first. timeline is sorted
// ascending by date.
func mostRecent(timeline []entities.TimelineEvent, n int) []entities.TimelineEvent {
	out := make([]entities.TimelineEvent, 0, n)
	for i := len(timeline) - 1; i >= 0 && len(out) < n; i-- {
		out = append(out, timeline[i])
	}
	return out
}

// ActivityPoint counts conditions active and resolved at one date
type ActivityPoint struct {
	Date     time.Time `json:"date"`
	Label    string    `json:"label"`
	Active   int       `json:"active"`
	Resolved int       `json:"resolved"`
}

// ConditionsView backs the conditions page
type ConditionsView struct {
	Conditions      []entities.Condition     `json:"conditions"`
	StatusCounts    map[string]int           `json:"status_counts"`
	SeverityCounts  map[string]int           `json:"severity_counts"`
	ResolvedPercent int                      `json:"resolved_percent"`
	Activity        []ActivityPoint          `json:"activity"`
	Phases          []entities.ClinicalPhase `json:"phases"`
}

// Conditions builds the conditions page; the activity series runs up to asOf
func (s *DashboardService) Conditions(asOf time.Time) ConditionsView {
	snap := s.store.Snapshot()
	conditions := snap.Conditions()

	status := map[string]int{}
	severity := map[string]int{}
	resolved := 0
	for _, c := range conditions {
		status[string(c.Status)]++
		if c.Severity != "" {
			severity[string(c.Severity)]++
		}
		if c.Status == entities.ConditionStatusResolved {
			resolved++
		}
	}

	percent := 0
	if len(conditions) > 0 {
		percent = int(math.Round(float64(resolved) * 100 / float64(len(conditions))))
	}

	return ConditionsView{
		Conditions:      conditions,
		StatusCounts:    status,
		SeverityCounts:  severity,
		ResolvedPercent: percent,
		Activity:        ConditionActivity(conditions, asOf),
		Phases:          snap.Phases(),
	}
}

// ConditionActivity samples, every six months from the earliest onset up to
// asOf (at most ten years), how many conditions had begun and were active or
// already resolved. Conditions with inverted dates are left out.
func ConditionActivity(conditions []entities.Condition, asOf time.Time) []ActivityPoint {
	var first time.Time
	for _, c := range conditions {
		if c.OnsetDate != nil && (first.IsZero() || c.OnsetDate.Before(first)) {
			first = c.OnsetDate.Time
		}
	}
	points := []ActivityPoint{}
	if first.IsZero() {
		return points
	}

	months := monthsBetween(first, asOf)
	if months > activityMaxMonths {
		months = activityMaxMonths
	}
	for i := 0; i <= months; i += activityStepMonths {
		at := first.AddDate(0, i, 0)
		point := ActivityPoint{Date: at, Label: at.Format("Jan 2006")}
		for j := range conditions {
			c := &conditions[j]
			if c.OnsetDate == nil || c.OnsetDate.After(at) || !c.DatesConsistent() {
				continue
			}
			if c.ResolutionDate != nil && !c.ResolutionDate.After(at) {
				point.Resolved++
			} else {
				point.Active++
			}
		}
		points = append(points, point)
	}
	return points
}

// monthsBetween counts whole calendar months from a to b
func monthsBetween(a, b time.Time) int {
	months := (b.Year()-a.Year())*12 + int(b.Month()) - int(a.Month())
	if b.Day() < a.Day() {
		months--
	}
	return months
}

// LabStats summarizes interpretations for a set of lab results
type LabStats struct {
	Total    int `json:"total"`
	Normal   int `json:"normal"`
	Abnormal int `json:"abnormal"`
	Critical int `json:"critical"`
}

func labStats(results []entities.LabResult) LabStats {
	stats := LabStats{Total: len(results)}
	for _, r := range results {
		if r.Interpretation == entities.InterpretationNormal {
			stats.Normal++
		}
		if r.Interpretation.IsCritical() {
			stats.Critical++
		}
	}
	stats.Abnormal = stats.Total - stats.Normal
	return stats
}

// LabTrendPoint is one observation in a per-test trend
type LabTrendPoint struct {
	Date           entities.Date           `json:"date"`
	Value          float64                 `json:"value"`
	Interpretation entities.Interpretation `json:"interpretation"`
}

// LabTrend is the history of one test, oldest first
type LabTrend struct {
	TestName string          `json:"test_name"`
	Category string          `json:"category"`
	Unit     string          `json:"unit,omitempty"`
	Points   []LabTrendPoint `json:"points"`
}

// LabsView backs the labs page
type LabsView struct {
	Category      string               `json:"category"`
	Categories    []string             `json:"categories"`
	Stats         LabStats             `json:"stats"`
	CategoryStats map[string]LabStats  `json:"category_stats"`
	Results       []entities.LabResult `json:"results"`
	Trends        []LabTrend           `json:"trends"`
}

// Labs builds the labs page. An empty category or "all" selects every result.
func (s *DashboardService) Labs(category string) LabsView {
	all := s.store.Snapshot().LabResults()
	if category == "" {
		category = "all"
	}

	categories := []string{}
	byCategory := map[string][]entities.LabResult{}
	for _, r := range all {
		if _, seen := byCategory[r.Category]; !seen {
			categories = append(categories, r.Category)
		}
		byCategory[r.Category] = append(byCategory[r.Category], r)
	}

	categoryStats := make(map[string]LabStats, len(byCategory))
	for name, results := range byCategory {
		categoryStats[name] = labStats(results)
	}

	filtered := all
	if category != "all" {
		filtered = byCategory[category]
		if filtered == nil {
			filtered = []entities.LabResult{}
		}
	}

	return LabsView{
		Category:      category,
		Categories:    categories,
		Stats:         labStats(filtered),
		CategoryStats: categoryStats,
		Results:       filtered,
		Trends:        labTrends(filtered),
	}
}

// labTrends groups results by test name in first-seen order
func labTrends(results []entities.LabResult) []LabTrend {
	trends := []LabTrend{}
	index := map[string]int{}
	for _, r := range results {
		i, ok := index[r.TestName]
		if !ok {
			i = len(trends)
			index[r.TestName] = i
			trends = append(trends, LabTrend{TestName: r.TestName, Category: r.Category, Unit: r.Unit})
		}
		trends[i].Points = append(trends[i].Points, LabTrendPoint{
			Date:           r.TestDate,
			Value:          r.Value,
			Interpretation: r.Interpretation,
		})
	}
	for i := range trends {
		points := trends[i].Points
		sort.SliceStable(points, func(a, b int) bool {
			return points[a].Date.Before(points[b].Date.Time)
		})
	}
	return trends
}

// MedicationsView backs the medications page
type MedicationsView struct {
	Active       []entities.Medication `json:"active"`
	Discontinued []entities.Medication `json:"discontinued"`
}

// Medications splits medications into active and everything else
func (s *DashboardService) Medications() MedicationsView {
	view := MedicationsView{Active: []entities.Medication{}, Discontinued: []entities.Medication{}}
	for _, m := range s.store.Snapshot().Medications() {
		if m.IsActive() {
			view.Active = append(view.Active, m)
		} else {
			view.Discontinued = append(view.Discontinued, m)
		}
	}
	return view
}

// DeviceGroup is the devices sharing one device type
type DeviceGroup struct {
	DeviceType string            `json:"device_type"`
	Devices    []entities.Device `json:"devices"`
}

// DevicesView backs the devices page
type DevicesView struct {
	Devices []entities.Device `json:"devices"`
	Active  []entities.Device `json:"active"`
	ByType  []DeviceGroup     `json:"by_type"`
	Spine   []entities.Device `json:"spine"`
}

// Devices groups implanted devices; Spine holds those located in the spine
func (s *DashboardService) Devices() DevicesView {
	devices := s.store.Snapshot().Devices()
	view := DevicesView{
		Devices: devices,
		Active:  []entities.Device{},
		ByType:  []DeviceGroup{},
		Spine:   []entities.Device{},
	}

	index := map[string]int{}
	for i := range devices {
		d := devices[i]
		if d.IsActive() {
			view.Active = append(view.Active, d)
		}
		g, ok := index[d.DeviceType]
		if !ok {
			g = len(view.ByType)
			index[d.DeviceType] = g
			view.ByType = append(view.ByType, DeviceGroup{DeviceType: d.DeviceType})
		}
		view.ByType[g].Devices = append(view.ByType[g].Devices, d)

		location := strings.ToLower(d.BodyLocation)
		if strings.Contains(location, "cervical") || strings.Contains(location, "spine") {
			view.Spine = append(view.Spine, d)
		}
	}
	return view
}

// ActionStats counts action items and open questions
type ActionStats struct {
	Total             int `json:"total"`
	High              int `json:"high"`
	Pending           int `json:"pending"`
	Ongoing           int `json:"ongoing"`
	Questions         int `json:"questions"`
	CriticalQuestions int `json:"critical_questions"`
}

// ActionsView backs the actions page
type ActionsView struct {
	Stats      ActionStats                      `json:"stats"`
	ByPriority map[string][]entities.ActionItem `json:"by_priority"`
	Questions  []entities.UnresolvedQuestion    `json:"questions"`
}

// Actions groups action items by priority. Items with an unknown priority
// are counted but not grouped.
func (s *DashboardService) Actions() ActionsView {
	snap := s.store.Snapshot()
	actions := snap.ActionItems()
	questions := snap.Questions()

	view := ActionsView{
		Stats: ActionStats{Total: len(actions), Questions: len(questions)},
		ByPriority: map[string][]entities.ActionItem{
			string(entities.PriorityHigh):   {},
			string(entities.PriorityMedium): {},
			string(entities.PriorityLow):    {},
		},
		Questions: questions,
	}
	for _, a := range actions {
		switch a.Status {
		case entities.ActionStatusPending:
			view.Stats.Pending++
		case entities.ActionStatusOngoing:
			view.Stats.Ongoing++
		}
		if a.Priority == entities.PriorityHigh {
			view.Stats.High++
		}
		if group, ok := view.ByPriority[string(a.Priority)]; ok {
			view.ByPriority[string(a.Priority)] = append(group, a)
		}
	}
	for _, q := range questions {
		if q.Importance == entities.ImportanceCritical {
			view.Stats.CriticalQuestions++
		}
	}
	return view
}

// DocumentGroup is the documents sharing one key
type DocumentGroup struct {
	Key       string              `json:"key"`
	Documents []entities.Document `json:"documents"`
}

// DocumentsView backs the documents page
type DocumentsView struct {
	Documents  []entities.Document `json:"documents"`
	ByType     []DocumentGroup     `json:"by_type"`
	ByCategory []DocumentGroup     `json:"by_category"`
}

// Documents groups source documents by type and by category
func (s *DashboardService) Documents() DocumentsView {
	docs := s.store.Snapshot().Documents()
	return DocumentsView{
		Documents:  docs,
		ByType:     groupDocuments(docs, func(d entities.Document) string { return d.Type }),
		ByCategory: groupDocuments(docs, func(d entities.Document) string { return d.Category }),
	}
}

func groupDocuments(docs []entities.Document, key func(entities.Document) string) []DocumentGroup {
	groups := []DocumentGroup{}
	index := map[string]int{}
	for _, d := range docs {
		k := key(d)
		i, ok := index[k]
		if !ok {
			i = len(groups)
			index[k] = i
			groups = append(groups, DocumentGroup{Key: k})
		}
		groups[i].Documents = append(groups[i].Documents, d)
	}
	return groups
}

// TimelineFilter narrows the timeline; zero fields match everything
type TimelineFilter struct {
	Types         []entities.EventType
	Significances []entities.Significance
	From          *time.Time
	To            *time.Time
}

// Match reports whether ev passes the filter. From and To are inclusive.
func (f TimelineFilter) Match(ev *entities.TimelineEvent) bool {
	if len(f.Types) > 0 && !contains(f.Types, ev.EventType) {
		return false
	}
	if len(f.Significances) > 0 && !contains(f.Significances, ev.Significance()) {
		return false
	}
	if f.From != nil && ev.Date.Before(*f.From) {
		return false
	}
	if f.To != nil && ev.Date.After(*f.To) {
		return false
	}
	return true
}

// Apply returns the matching events in their original order
func (f TimelineFilter) Apply(events []entities.TimelineEvent) []entities.TimelineEvent {
	out := make([]entities.TimelineEvent, 0, len(events))
	for i := range events {
		if f.Match(&events[i]) {
			out = append(out, events[i])
		}
	}
	return out
}

func contains[T comparable](values []T, v T) bool {
	for _, candidate := range values {
		if candidate == v {
			return true
		}
	}
	return false
}

// TimelineView backs the timeline page's list and counters
type TimelineView struct {
	Events     []entities.TimelineEvent `json:"events"`
	Total      int                      `json:"total"`
	TypeCounts map[string]int           `json:"type_counts"`
	Critical   []entities.TimelineEvent `json:"critical"`
}

// Timeline filters the timeline. Total counts the unfiltered timeline.
func (s *DashboardService) Timeline(filter TimelineFilter) TimelineView {
	all := s.store.Snapshot().Timeline()
	events := filter.Apply(all)

	view := TimelineView{
		Events:     events,
		Total:      len(all),
		TypeCounts: map[string]int{},
		Critical:   []entities.TimelineEvent{},
	}
	for i := range events {
		view.TypeCounts[string(events[i].EventType)]++
		if events[i].Significance() == entities.SignificanceCritical {
			view.Critical = append(view.Critical, events[i])
		}
	}
	return view
}

// Patient returns the record holder
func (s *DashboardService) Patient() entities.Patient {
	return s.store.Snapshot().Patient()
}

// Integrity lists the data-integrity issues of the current snapshot
func (s *DashboardService) Integrity() []entities.IntegrityIssue {
	return s.store.Snapshot().IntegrityIssues()
}

// Version returns the current snapshot version
func (s *DashboardService) Version() uint64 {
	return s.store.Snapshot().Version()
}

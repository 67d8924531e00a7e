package store

import (
	"github.com/drnexus/medicaldashboard/backend/internal/domain/entities"
)

// Snapshot is an immutable, fully normalized view of one loaded dataset.
// Accessors return copies; the snapshot itself is never mutated after it
// has been installed.
type Snapshot struct {
	version uint64
	data    *entities.Dataset
	issues  []entities.IntegrityIssue

	timelineIndex map[string]int
}

func newSnapshot(version uint64, ds *entities.Dataset, issues []entities.IntegrityIssue) *Snapshot {
	index := make(map[string]int, len(ds.Timeline))
	for i, ev := range ds.Timeline {
		if _, exists := index[ev.ID]; !exists {
			index[ev.ID] = i
		}
	}
	return &Snapshot{
		version:       version,
		data:          ds,
		issues:        issues,
		timelineIndex: index,
	}
}

// Version increases by one with every successful load
func (s *Snapshot) Version() uint64 {
	return s.version
}

func (s *Snapshot) Metadata() entities.Metadata {
	return s.data.Metadata
}

func (s *Snapshot) Patient() entities.Patient {
	return s.data.Patient
}

func (s *Snapshot) Conditions() []entities.Condition {
	return cloneSlice(s.data.Conditions)
}

func (s *Snapshot) Medications() []entities.Medication {
	return cloneSlice(s.data.Medications)
}

func (s *Snapshot) Devices() []entities.Device {
	return cloneSlice(s.data.Devices)
}

func (s *Snapshot) LabResults() []entities.LabResult {
	return cloneSlice(s.data.LabResults)
}

// Timeline returns the events sorted by date, ties in input order
func (s *Snapshot) Timeline() []entities.TimelineEvent {
	return cloneTimeline(s.data.Timeline)
}

func (s *Snapshot) ActionItems() []entities.ActionItem {
	return cloneActions(s.data.ActionItems)
}

func (s *Snapshot) Questions() []entities.UnresolvedQuestion {
	return cloneSlice(s.data.UnresolvedQuestions)
}

func (s *Snapshot) Documents() []entities.Document {
	return cloneSlice(s.data.Documents)
}

func (s *Snapshot) Phases() []entities.ClinicalPhase {
	return clonePhases(s.data.ClinicalPhases)
}

func (s *Snapshot) IntegrityIssues() []entities.IntegrityIssue {
	return cloneSlice(s.issues)
}

// Dataset returns a deep copy of the normalized dataset
func (s *Snapshot) Dataset() *entities.Dataset {
	return normalize(s.data)
}

// TimelineEvent looks up an event by id
func (s *Snapshot) TimelineEvent(id string) (entities.TimelineEvent, bool) {
	i, ok := s.timelineIndex[id]
	if !ok {
		return entities.TimelineEvent{}, false
	}
	return cloneTimeline(s.data.Timeline[i : i+1])[0], true
}

// TimelineDomain returns the earliest and latest event dates. ok is false
// when the timeline is empty.
func (s *Snapshot) TimelineDomain() (minDate, maxDate entities.Date, ok bool) {
	events := s.data.Timeline
	if len(events) == 0 {
		return entities.Date{}, entities.Date{}, false
	}
	// Sorted at load.
	return events[0].Date, events[len(events)-1].Date, true
}

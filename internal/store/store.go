package store

import (
	"fmt"
	"maps"
	"sort"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"

	"github.com/drnexus/medicaldashboard/backend/internal/domain/entities"
	apperrors "github.com/drnexus/medicaldashboard/backend/pkg/errors"
)

// recordNamespace seeds the UUIDv5 ids assigned to records that arrive
// without one. Changing it changes every generated id.
var recordNamespace = uuid.MustParse("6f1c9a52-3d0e-4b7a-9a57-2f3c8e41d0b6")

// Observer is notified after a snapshot has been installed
type Observer func(snap *Snapshot)

// Store holds the current dataset snapshot. Readers never block writers:
// Load builds a complete snapshot and installs it with a single pointer swap.
type Store struct {
	current atomic.Pointer[Snapshot]

	// loadMu orders installs so versions only ever increase
	loadMu  sync.Mutex
	version uint64

	mu        sync.Mutex
	observers []Observer
}

// New creates a store holding an empty snapshot at version 0
func New() *Store {
	s := &Store{}
	s.current.Store(newSnapshot(0, &entities.Dataset{}, nil))
	return s
}

// Load validates ds, builds a new snapshot from it and installs it. On error
// the previously installed snapshot stays in place. The caller's dataset is
// not retained or modified.
func (s *Store) Load(ds *entities.Dataset) (*Snapshot, error) {
	if ds == nil {
		return nil, apperrors.NewValidationError("dataset is required")
	}
	if err := validate(ds); err != nil {
		return nil, err
	}

	normalized := normalize(ds)
	issues := scanIntegrity(normalized)

	s.loadMu.Lock()
	s.version++
	snap := newSnapshot(s.version, normalized, issues)
	s.current.Store(snap)
	s.loadMu.Unlock()

	s.mu.Lock()
	observers := make([]Observer, len(s.observers))
	copy(observers, s.observers)
	s.mu.Unlock()

	for _, fn := range observers {
		fn(snap)
	}
	return snap, nil
}

// Subscribe registers fn to be called after every successful Load
func (s *Store) Subscribe(fn Observer) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.observers = append(s.observers, fn)
}

// Snapshot returns the current immutable snapshot
func (s *Store) Snapshot() *Snapshot {
	return s.current.Load()
}

// Version returns the current snapshot version, 0 before the first load
func (s *Store) Version() uint64 { return s.Snapshot().Version() }

func (s *Store) Metadata() entities.Metadata { return s.Snapshot().Metadata() }
func (s *Store) Patient() entities.Patient { return s.Snapshot().Patient() }
func (s *Store) Conditions() []entities.Condition { return s.Snapshot().Conditions() }
func (s *Store) Medications() []entities.Medication { return s.Snapshot().Medications() }
func (s *Store) Devices() []entities.Device { return s.Snapshot().Devices() }
func (s *Store) LabResults() []entities.LabResult { return s.Snapshot().LabResults() }
func (s *Store) Timeline() []entities.TimelineEvent { return s.Snapshot().Timeline() }
func (s *Store) ActionItems() []entities.ActionItem { return s.Snapshot().ActionItems() }
func (s *Store) Questions() []entities.UnresolvedQuestion { return s.Snapshot().Questions() }
func (s *Store) Documents() []entities.Document { return s.Snapshot().Documents() }
func (s *Store) Phases() []entities.ClinicalPhase { return s.Snapshot().Phases() }
func (s *Store) IntegrityIssues() []entities.IntegrityIssue { return s.Snapshot().IntegrityIssues() }

// validate rejects datasets that cannot be rendered at all. Softer problems
// are reported by scanIntegrity instead.
func validate(ds *entities.Dataset) error {
	for i, ev := range ds.Timeline {
		if ev.Date.IsZero() {
			return apperrors.NewDataIntegrityError(fmt.Sprintf("timeline[%d] has no date", i), nil)
		}
		if ev.EventType == "" {
			return apperrors.NewDataIntegrityError(fmt.Sprintf("timeline[%d] has no event_type", i), nil)
		}
	}
	for i, c := range ds.Conditions {
		if c.Name == "" {
			return apperrors.NewDataIntegrityError(fmt.Sprintf("conditions[%d] has no name", i), nil)
		}
	}
	for i, l := range ds.LabResults {
		if l.TestName == "" {
			return apperrors.NewDataIntegrityError(fmt.Sprintf("lab_results[%d] has no test_name", i), nil)
		}
		if l.TestDate.IsZero() {
			return apperrors.NewDataIntegrityError(fmt.Sprintf("lab_results[%d] has no test_date", i), nil)
		}
	}
	for i, m := range ds.Medications {
		if m.MedicationName == "" {
			return apperrors.NewDataIntegrityError(fmt.Sprintf("medications[%d] has no medication_name", i), nil)
		}
	}
	return nil
}

func recordID(kind string, index int, label string) string {
	return uuid.NewSHA1(recordNamespace, []byte(fmt.Sprintf("%s:%d:%s", kind, index, label))).String()
}

// normalize deep-copies ds, fills missing ids and sorts the timeline.
func normalize(ds *entities.Dataset) *entities.Dataset {
	out := &entities.Dataset{
		Metadata:            ds.Metadata,
		Patient:             ds.Patient,
		Conditions:          cloneSlice(ds.Conditions),
		Medications:         cloneSlice(ds.Medications),
		Devices:             cloneSlice(ds.Devices),
		LabResults:          cloneSlice(ds.LabResults),
		Timeline:            cloneTimeline(ds.Timeline),
		ActionItems:         cloneActions(ds.ActionItems),
		UnresolvedQuestions: cloneSlice(ds.UnresolvedQuestions),
		Documents:           cloneSlice(ds.Documents),
		ClinicalPhases:      clonePhases(ds.ClinicalPhases),
	}

	for i := range out.Conditions {
		if out.Conditions[i].ID == "" {
			out.Conditions[i].ID = recordID("condition", i, out.Conditions[i].Name)
		}
	}
	for i := range out.Medications {
		if out.Medications[i].ID == "" {
			out.Medications[i].ID = recordID("medication", i, out.Medications[i].MedicationName)
		}
	}
	for i := range out.Devices {
		if out.Devices[i].ID == "" {
			out.Devices[i].ID = recordID("device", i, out.Devices[i].DeviceName)
		}
	}
	for i := range out.LabResults {
		if out.LabResults[i].ID == "" {
			out.LabResults[i].ID = recordID("lab", i, out.LabResults[i].TestName)
		}
	}
	for i := range out.Timeline {
		if out.Timeline[i].ID == "" {
			out.Timeline[i].ID = recordID("timeline", i, out.Timeline[i].Summary)
		}
	}
	for i := range out.ActionItems {
		if out.ActionItems[i].ID == "" {
			out.ActionItems[i].ID = recordID("action", i, out.ActionItems[i].Item)
		}
	}
	for i := range out.UnresolvedQuestions {
		if out.UnresolvedQuestions[i].ID == "" {
			out.UnresolvedQuestions[i].ID = recordID("question", i, out.UnresolvedQuestions[i].Question)
		}
	}
	for i := range out.Documents {
		if out.Documents[i].ID == "" {
			out.Documents[i].ID = recordID("document", i, out.Documents[i].Name)
		}
	}

	// Ids are assigned from input position before sorting so they stay
	// stable when only dates change.
	sort.SliceStable(out.Timeline, func(i, j int) bool {
		return out.Timeline[i].Date.Before(out.Timeline[j].Date.Time)
	})
	return out
}

func scanIntegrity(ds *entities.Dataset) []entities.IntegrityIssue {
	var issues []entities.IntegrityIssue

	for _, c := range ds.Conditions {
		if !c.DatesConsistent() {
			issues = append(issues, entities.IntegrityIssue{
				Kind:       entities.IssueResolutionBeforeOnset,
				RecordType: "condition",
				RecordID:   c.ID,
				Message: fmt.Sprintf("%s resolved %s before onset %s", c.Name,
					c.ResolutionDate.Format("2006-01-02"), c.OnsetDate.Format("2006-01-02")),
			})
		}
	}
	for _, l := range ds.LabResults {
		if !l.ReferenceRangeConsistent() {
			issues = append(issues, entities.IntegrityIssue{
				Kind:       entities.IssueInvertedReferenceRange,
				RecordType: "lab",
				RecordID:   l.ID,
				Message: fmt.Sprintf("%s reference range low %g exceeds high %g", l.TestName,
					*l.ReferenceRangeLow, *l.ReferenceRangeHigh),
			})
		}
	}
	for _, ev := range ds.Timeline {
		if !ev.EventType.Known() {
			issues = append(issues, entities.IntegrityIssue{
				Kind:       entities.IssueUnknownEventType,
				RecordType: "timeline",
				RecordID:   ev.ID,
				Message:    fmt.Sprintf("unknown event type %q", ev.EventType),
			})
		}
		if ev.ClinicalSignificance != "" && !ev.ClinicalSignificance.Valid() {
			issues = append(issues, entities.IntegrityIssue{
				Kind:       entities.IssueUnknownSignificance,
				RecordType: "timeline",
				RecordID:   ev.ID,
				Message:    fmt.Sprintf("unknown clinical significance %q", ev.ClinicalSignificance),
			})
		}
	}

	seen := make(map[string]string)
	checkID := func(recordType, id string) {
		key := recordType + "/" + id
		if _, dup := seen[key]; dup {
			issues = append(issues, entities.IntegrityIssue{
				Kind:       entities.IssueDuplicateID,
				RecordType: recordType,
				RecordID:   id,
				Message:    fmt.Sprintf("id %s is used by more than one %s", id, recordType),
			})
			return
		}
		seen[key] = recordType
	}
	for _, c := range ds.Conditions {
		checkID("condition", c.ID)
	}
	for _, m := range ds.Medications {
		checkID("medication", m.ID)
	}
	for _, d := range ds.Devices {
		checkID("device", d.ID)
	}
	for _, l := range ds.LabResults {
		checkID("lab", l.ID)
	}
	for _, ev := range ds.Timeline {
		checkID("timeline", ev.ID)
	}
	for _, a := range ds.ActionItems {
		checkID("action", a.ID)
	}
	for _, q := range ds.UnresolvedQuestions {
		checkID("question", q.ID)
	}
	return issues
}

func cloneSlice[T any](in []T) []T {
	if in == nil {
		return []T{}
	}
	out := make([]T, len(in))
	copy(out, in)
	return out
}

func cloneTimeline(in []entities.TimelineEvent) []entities.TimelineEvent {
	out := cloneSlice(in)
	for i := range out {
		out[i].Details = maps.Clone(out[i].Details)
		out[i].Codes = maps.Clone(out[i].Codes)
	}
	return out
}

func cloneActions(in []entities.ActionItem) []entities.ActionItem {
	out := cloneSlice(in)
	for i := range out {
		if out[i].Requirements != nil {
			out[i].Requirements = cloneSlice(out[i].Requirements)
		}
	}
	return out
}

func clonePhases(in []entities.ClinicalPhase) []entities.ClinicalPhase {
	out := cloneSlice(in)
	for i := range out {
		if out[i].Events != nil {
			out[i].Events = cloneSlice(out[i].Events)
		}
	}
	return out
}

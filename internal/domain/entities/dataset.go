package entities

// Dataset is the pre-computed patient record produced by the ingestion
// pipeline. It is consumed whole; the store never edits it in place.
type Dataset struct {
	Metadata            Metadata             `json:"metadata"`
	Patient             Patient              `json:"patient"`
	Conditions          []Condition          `json:"conditions"`
	Medications         []Medication         `json:"medications"`
	Devices             []Device             `json:"devices"`
	LabResults          []LabResult          `json:"lab_results"`
	Timeline            []TimelineEvent      `json:"timeline"`
	ActionItems         []ActionItem         `json:"action_items"`
	UnresolvedQuestions []UnresolvedQuestion `json:"unresolved_questions"`
	Documents           []Document           `json:"documents"`
	ClinicalPhases      []ClinicalPhase      `json:"clinical_phases"`
}

// IntegrityIssueKind classifies a data-quality problem found at load time
type IntegrityIssueKind string

const (
	IssueResolutionBeforeOnset  IntegrityIssueKind = "resolution_before_onset"
	IssueInvertedReferenceRange IntegrityIssueKind = "inverted_reference_range"
	IssueUnknownEventType       IntegrityIssueKind = "unknown_event_type"
	IssueUnknownSignificance    IntegrityIssueKind = "unknown_significance"
	IssueDuplicateID            IntegrityIssueKind = "duplicate_id"
)

// IntegrityIssue flags a record that loaded but violates a data invariant.
// These are reported to whoever maintains the dataset, not repaired.
type IntegrityIssue struct {
	Kind       IntegrityIssueKind `json:"kind"`
	RecordType string             `json:"record_type"`
	RecordID   string             `json:"record_id"`
	Message    string             `json:"message"`
}

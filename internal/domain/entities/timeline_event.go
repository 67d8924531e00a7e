package entities

import (
	"encoding/json"
	"fmt"
)

// EventType tags the kind of a timeline event
type EventType string

const (
	EventTypeEncounter    EventType = "encounter"
	EventTypeDiagnosis    EventType = "diagnosis"
	EventTypeLabResult    EventType = "lab_result"
	EventTypeMedication   EventType = "medication"
	EventTypeProcedure    EventType = "procedure"
	EventTypeImaging      EventType = "imaging"
	EventTypeVitalSigns   EventType = "vital_signs"
	EventTypeImmunization EventType = "immunization"
	EventTypeNote         EventType = "note"
)

// EventTypes lists the known event types in legend order.
func EventTypes() []EventType {
	return []EventType{
		EventTypeEncounter,
		EventTypeDiagnosis,
		EventTypeLabResult,
		EventTypeMedication,
		EventTypeProcedure,
		EventTypeImaging,
		EventTypeVitalSigns,
		EventTypeImmunization,
		EventTypeNote,
	}
}

// Known reports whether t is one of the known event types.
func (t EventType) Known() bool {
	for _, known := range EventTypes() {
		if t == known {
			return true
		}
	}
	return false
}

// TimelineEvent is a dated clinical event shown on the timeline
type TimelineEvent struct {
	ID                   string                 `json:"id"`
	Date                 Date                   `json:"date"`
	EventType            EventType              `json:"event_type"`
	Summary              string                 `json:"summary"`
	ClinicalSignificance Significance           `json:"clinical_significance"`
	Provider             string                 `json:"provider,omitempty"`
	Location             string                 `json:"location,omitempty"`
	SourceDocument       string                 `json:"source_document,omitempty"`
	Details              map[string]interface{} `json:"details,omitempty"`
	Codes                map[string]string      `json:"codes,omitempty"`
}

// EventPayload is the typed view of an event's details for its tag
type EventPayload interface {
	EventType() EventType
}

// ProcedurePayload describes a procedure event
type ProcedurePayload struct {
	ProcedureName string   `json:"procedure_name"`
	Approach      string   `json:"approach"`
	Levels        []string `json:"levels"`
	Hardware      string   `json:"hardware"`
	Anesthesia    string   `json:"anesthesia"`
}

func (ProcedurePayload) EventType() EventType { return EventTypeProcedure }

// EncounterPayload describes a visit
type EncounterPayload struct {
	EncounterType string `json:"encounter_type"`
	Reason        string `json:"reason"`
	Department    string `json:"department"`
}

func (EncounterPayload) EventType() EventType { return EventTypeEncounter }

// DiagnosisPayload describes a recorded diagnosis
type DiagnosisPayload struct {
	Condition      string `json:"condition"`
	ClinicalStatus string `json:"clinical_status"`
	Severity       string `json:"severity"`
}

func (DiagnosisPayload) EventType() EventType { return EventTypeDiagnosis }

// LabResultPayload describes a lab observation event
type LabResultPayload struct {
	TestName       string  `json:"test_name"`
	Value          float64 `json:"value"`
	Unit           string  `json:"unit"`
	Interpretation string  `json:"interpretation"`
}

func (LabResultPayload) EventType() EventType { return EventTypeLabResult }

// MedicationPayload describes a medication start or change
type MedicationPayload struct {
	MedicationName string `json:"medication_name"`
	Dosage         string `json:"dosage"`
	Frequency      string `json:"frequency"`
	Action         string `json:"action"`
}

func (MedicationPayload) EventType() EventType { return EventTypeMedication }

// ImagingPayload describes an imaging study
type ImagingPayload struct {
	Modality   string `json:"modality"`
	BodySite   string `json:"body_site"`
	Impression string `json:"impression"`
}

func (ImagingPayload) EventType() EventType { return EventTypeImaging }

// VitalSignsPayload describes a vital signs reading
type VitalSignsPayload struct {
	SystolicBP  float64 `json:"systolic_bp"`
	DiastolicBP float64 `json:"diastolic_bp"`
	HeartRate   float64 `json:"heart_rate"`
	Temperature float64 `json:"temperature"`
	WeightKg    float64 `json:"weight_kg"`
}

func (VitalSignsPayload) EventType() EventType { return EventTypeVitalSigns }

// ImmunizationPayload describes an administered vaccine
type ImmunizationPayload struct {
	Vaccine string `json:"vaccine"`
	Dose    string `json:"dose"`
	LotNo   string `json:"lot_number"`
}

func (ImmunizationPayload) EventType() EventType { return EventTypeImmunization }

// NotePayload describes a free-text clinical note
type NotePayload struct {
	Author string `json:"author"`
	Text   string `json:"text"`
}

func (NotePayload) EventType() EventType { return EventTypeNote }

// Payload decodes Details into the typed payload for the event's tag. Fields
// not present in Details keep their zero value. Unknown tags return an error;
// Details remains available as the opaque bag in that case.
func (e *TimelineEvent) Payload() (EventPayload, error) {
	var target EventPayload
	switch e.EventType {
	case EventTypeProcedure:
		target = &ProcedurePayload{}
	case EventTypeEncounter:
		target = &EncounterPayload{}
	case EventTypeDiagnosis:
		target = &DiagnosisPayload{}
	case EventTypeLabResult:
		target = &LabResultPayload{}
	case EventTypeMedication:
		target = &MedicationPayload{}
	case EventTypeImaging:
		target = &ImagingPayload{}
	case EventTypeVitalSigns:
		target = &VitalSignsPayload{}
	case EventTypeImmunization:
		target = &ImmunizationPayload{}
	case EventTypeNote:
		target = &NotePayload{}
	default:
		return nil, fmt.Errorf("no payload for event type %q", e.EventType)
	}

	if len(e.Details) == 0 {
		return target, nil
	}
	data, err := json.Marshal(e.Details)
	if err != nil {
		return nil, fmt.Errorf("failed to encode details: %w", err)
	}
	// Loosely typed details (e.g. a number sent as a string) keep the
	// zero value for that field rather than failing the whole payload.
	_ = json.Unmarshal(data, target)
	return target, nil
}

// Significance returns the event's significance, defaulting to medium.
func (e *TimelineEvent) Significance() Significance {
	if e.ClinicalSignificance == "" {
		return SignificanceMedium
	}
	return e.ClinicalSignificance
}

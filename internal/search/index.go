package search

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"

	"github.com/drnexus/medicaldashboard/backend/internal/domain/entities"
)

// Document is one searchable record.
type Document = entities.SearchDocument

// Index is an immutable, scan-ordered list of documents built from one
// dataset snapshot.
type Index struct {
	docs    []Document
	version uint64
}

// NewIndex builds the documents for ds in scan order: timeline, conditions,
// labs, medications, devices, actions, questions.
func NewIndex(ds *entities.Dataset, version uint64) *Index {
	if ds == nil {
		return &Index{version: version}
	}

	docs := make([]Document, 0, len(ds.Timeline)+len(ds.Conditions)+len(ds.LabResults)+
		len(ds.Medications)+len(ds.Devices)+len(ds.ActionItems)+len(ds.UnresolvedQuestions))

	for i := range ds.Timeline {
		docs = append(docs, timelineDocument(&ds.Timeline[i]))
	}
	for i := range ds.Conditions {
		docs = append(docs, conditionDocument(&ds.Conditions[i]))
	}
	for i := range ds.LabResults {
		docs = append(docs, labDocument(&ds.LabResults[i]))
	}
	for i := range ds.Medications {
		docs = append(docs, medicationDocument(&ds.Medications[i]))
	}
	for i := range ds.Devices {
		docs = append(docs, deviceDocument(&ds.Devices[i]))
	}
	for i := range ds.ActionItems {
		docs = append(docs, actionDocument(&ds.ActionItems[i]))
	}
	for i := range ds.UnresolvedQuestions {
		docs = append(docs, questionDocument(&ds.UnresolvedQuestions[i]))
	}

	return &Index{docs: docs, version: version}
}

// Len returns the number of indexed documents
func (ix *Index) Len() int {
	return len(ix.docs)
}

// Version is the snapshot version the index was built from
func (ix *Index) Version() uint64 {
	return ix.version
}

// Documents returns a copy of the indexed documents in scan order
func (ix *Index) Documents() []Document {
	out := make([]Document, len(ix.docs))
	copy(out, ix.docs)
	return out
}

func fields(values ...string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if v != "" {
			out = append(out, strings.ToLower(v))
		}
	}
	return out
}

// detailsText serializes event details the way they are displayed, without
// HTML escaping, so queries like "<5" match literally.
func detailsText(details map[string]interface{}) string {
	if len(details) == 0 {
		return ""
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(details); err != nil {
		return ""
	}
	return strings.TrimSuffix(buf.String(), "\n")
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

func timelineDocument(ev *entities.TimelineEvent) Document {
	title := ev.Summary
	if title == "" {
		title = "Unknown Event"
	}
	date := ev.Date
	return Document{
		Result: entities.SearchResult{
			ID:           ev.ID,
			Type:         entities.ResultTypeTimeline,
			Title:        title,
			Subtitle:     capitalize(string(ev.EventType)),
			Date:         &date,
			Significance: ev.Significance(),
			Href:         "/timeline",
		},
		Fields: fields(ev.Summary, string(ev.EventType), detailsText(ev.Details)),
	}
}

func conditionSignificance(s entities.Severity) entities.Significance {
	switch s {
	case entities.SeverityCritical:
		return entities.SignificanceCritical
	case entities.SeveritySevere:
		return entities.SignificanceHigh
	default:
		return entities.SignificanceMedium
	}
}

func conditionDocument(c *entities.Condition) Document {
	code := c.ICD10Code
	if code == "" {
		code = "No code"
	}
	return Document{
		Result: entities.SearchResult{
			ID:           c.ID,
			Type:         entities.ResultTypeCondition,
			Title:        c.Name,
			Subtitle:     string(c.Status) + " | " + code,
			Date:         c.OnsetDate,
			Significance: conditionSignificance(c.Severity),
			Href:         "/conditions",
		},
		Fields: fields(c.Name, c.ICD10Code, c.Notes),
	}
}

func labSignificance(i entities.Interpretation) entities.Significance {
	switch {
	case i.IsCritical():
		return entities.SignificanceCritical
	case i == entities.InterpretationHigh, i == entities.InterpretationLow:
		return entities.SignificanceMedium
	default:
		return entities.SignificanceLow
	}
}

func labDocument(l *entities.LabResult) Document {
	value := strconv.FormatFloat(l.Value, 'f', -1, 64)
	if l.Unit != "" {
		value += " " + l.Unit
	}
	date := l.TestDate
	return Document{
		Result: entities.SearchResult{
			ID:           l.ID,
			Type:         entities.ResultTypeLab,
			Title:        l.TestName,
			Subtitle:     value + " | " + string(l.Interpretation),
			Date:         &date,
			Significance: labSignificance(l.Interpretation),
			Href:         "/labs",
		},
		Fields: fields(l.TestName, l.LOINCCode, l.Category),
	}
}

func medicationDocument(m *entities.Medication) Document {
	significance := entities.SignificanceLow
	if m.IsActive() {
		significance = entities.SignificanceMedium
	}
	schedule := strings.TrimSpace(m.Dosage + " " + m.Frequency)
	subtitle := m.Status
	if schedule != "" {
		subtitle = schedule + " | " + m.Status
	}
	return Document{
		Result: entities.SearchResult{
			ID:           m.ID,
			Type:         entities.ResultTypeMedication,
			Title:        m.MedicationName,
			Subtitle:     subtitle,
			Date:         m.StartDate,
			Significance: significance,
			Href:         "/medications",
		},
		Fields: fields(m.MedicationName, m.Indication, m.Dosage),
	}
}

func deviceDocument(d *entities.Device) Document {
	location := d.BodyLocation
	if location == "" {
		location = "Unknown location"
	}
	return Document{
		Result: entities.SearchResult{
			ID:           d.ID,
			Type:         entities.ResultTypeDevice,
			Title:        d.DeviceName,
			Subtitle:     location + " | " + d.Status,
			Date:         d.ImplantDate,
			Significance: entities.SignificanceMedium,
			Href:         "/devices",
		},
		Fields: fields(d.DeviceName, d.DeviceType, d.BodyLocation, d.Manufacturer),
	}
}

func actionSignificance(p entities.Priority) entities.Significance {
	switch p {
	case entities.PriorityHigh:
		return entities.SignificanceHigh
	case entities.PriorityMedium:
		return entities.SignificanceMedium
	default:
		return entities.SignificanceLow
	}
}

func actionDocument(a *entities.ActionItem) Document {
	return Document{
		Result: entities.SearchResult{
			ID:           a.ID,
			Type:         entities.ResultTypeAction,
			Title:        a.Item,
			Subtitle:     a.Category + " | " + string(a.Priority) + " priority",
			Significance: actionSignificance(a.Priority),
			Href:         "/actions",
		},
		Fields: fields(a.Item, a.Category, a.Rationale),
	}
}

func questionSignificance(i entities.Importance) entities.Significance {
	switch i {
	case entities.ImportanceCritical:
		return entities.SignificanceCritical
	case entities.ImportanceHigh:
		return entities.SignificanceHigh
	default:
		return entities.SignificanceMedium
	}
}

func questionDocument(q *entities.UnresolvedQuestion) Document {
	return Document{
		Result: entities.SearchResult{
			ID:           q.ID,
			Type:         entities.ResultTypeQuestion,
			Title:        q.Question,
			Subtitle:     q.Category,
			Significance: questionSignificance(q.Importance),
			Href:         "/actions",
		},
		Fields: fields(q.Question, q.Category, q.Details),
	}
}

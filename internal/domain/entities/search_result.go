package entities

// ResultType is the record collection a search result came from
type ResultType string

const (
	ResultTypeTimeline   ResultType = "timeline"
	ResultTypeCondition  ResultType = "condition"
	ResultTypeLab        ResultType = "lab"
	ResultTypeMedication ResultType = "medication"
	ResultTypeDevice     ResultType = "device"
	ResultTypeAction     ResultType = "action"
	ResultTypeQuestion   ResultType = "question"
)

// SearchResult is a single hit returned to the search overlay
type SearchResult struct {
	ID           string       `json:"id"`
	Type         ResultType   `json:"type"`
	Title        string       `json:"title"`
	Subtitle     string       `json:"subtitle,omitempty"`
	Date         *Date        `json:"date,omitempty"`
	Significance Significance `json:"significance,omitempty"`
	Href         string       `json:"href"`
}

// SearchDocument is one searchable record: the result shown on a hit plus
// the lowercased text fields a query is matched against.
type SearchDocument struct {
	Result SearchResult `json:"result"`
	Fields []string     `json:"fields"`
}

package entities

// Contact holds the patient's contact attributes
type Contact struct {
	Phone        string `json:"phone,omitempty"`
	Email        string `json:"email,omitempty"`
	AddressLine1 string `json:"address_line1,omitempty"`
	City         string `json:"city,omitempty"`
	State        string `json:"state,omitempty"`
	ZipCode      string `json:"zip_code,omitempty"`
	Country      string `json:"country,omitempty"`
}

// Patient represents the identity of the record holder
type Patient struct {
	PatientID   string  `json:"patient_id"`
	Name        string  `json:"name"`
	DateOfBirth *Date   `json:"date_of_birth,omitempty"`
	Age         int     `json:"age,omitempty"`
	Gender      string  `json:"gender,omitempty"`
	Contact     Contact `json:"contact"`
}

// Metadata describes the generation of the pre-computed dataset
type Metadata struct {
	Version                   string  `json:"version"`
	GeneratedAt               *Date   `json:"generated_at,omitempty"`
	SourceFilesCount          int     `json:"source_files_count,omitempty"`
	ProcessingDurationSeconds float64 `json:"processing_duration_seconds,omitempty"`
}

// ClinicalPhase is a narrative period of care shown on the overview page
type ClinicalPhase struct {
	Phase  string   `json:"phase"`
	Period string   `json:"period"`
	Events []string `json:"events"`
}

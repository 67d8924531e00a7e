package entities

// MedicationStatusActive is the only status that counts as a current
// medication; any other value is treated as discontinued.
const MedicationStatusActive = "active"

// Medication represents a prescribed medication
type Medication struct {
	ID             string `json:"id"`
	MedicationName string `json:"medication_name"`
	Dosage         string `json:"dosage,omitempty"`
	Frequency      string `json:"frequency,omitempty"`
	Route          string `json:"route,omitempty"`
	Status         string `json:"status"`
	StartDate      *Date  `json:"start_date,omitempty"`
	EndDate        *Date  `json:"end_date,omitempty"`
	Indication     string `json:"indication,omitempty"`
	Prescriber     string `json:"prescriber,omitempty"`
}

// IsActive reports whether the medication is currently taken
func (m *Medication) IsActive() bool {
	return m.Status == MedicationStatusActive
}

// Device represents an implanted device
type Device struct {
	ID           string `json:"id"`
	DeviceName   string `json:"device_name"`
	DeviceType   string `json:"device_type"`
	Status       string `json:"status"`
	BodyLocation string `json:"body_location,omitempty"`
	ImplantDate  *Date  `json:"implant_date,omitempty"`
	Manufacturer string `json:"manufacturer,omitempty"`
	Count        int    `json:"count,omitempty"`
	Notes        string `json:"notes,omitempty"`
}

// IsActive reports whether the device is still implanted and in use
func (d *Device) IsActive() bool {
	return d.Status == "active"
}

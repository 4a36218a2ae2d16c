package emr

import "strings"

// Patient is a demographics record.
type Patient struct {
	ID          string `json:"id"`
	FirstName   string `json:"first_name"`
	LastName    string `json:"last_name"`
	DateOfBirth string `json:"date_of_birth"`
	MRN         string `json:"medical_record_number"`
	Phone       string `json:"phone,omitempty"`
	Email       string `json:"email,omitempty"`
}

// FullName returns the display name.
func (p Patient) FullName() string {
	return strings.TrimSpace(p.FirstName + " " + p.LastName)
}

// Chart is a patient's medical chart summary.
type Chart struct {
	PatientID   string   `json:"patient_id"`
	LastVisit   string   `json:"last_visit,omitempty"`
	Allergies   []string `json:"allergies,omitempty"`
	Medications []string `json:"medications,omitempty"`
	Notes       string   `json:"notes,omitempty"`
}

// Order types accepted by CreateOrder.
const (
	OrderTypeLab        = "lab"
	OrderTypeImaging    = "imaging"
	OrderTypeMedication = "medication"
)

// Order is a clinical order.
type Order struct {
	ID          string `json:"id,omitempty"`
	PatientID   string `json:"patient_id"`
	Type        string `json:"order_type"`
	Description string `json:"description"`
	Status      string `json:"status,omitempty"`
	OrderedBy   string `json:"ordered_by"`
	CreatedAt   string `json:"created_at,omitempty"`
}

package emr

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/voxflow/voxflow/types"
)

// Fake is an in-memory Client seeded with demo patients. It backs tests
// and lets the engine run without an EMR connection.
type Fake struct {
	mu       sync.RWMutex
	patients []Patient
	charts   map[string]Chart
	orders   map[string][]Order
	messages map[string][]string
}

// NewFake creates a fake EMR with two demo patients.
func NewFake() *Fake {
	return &Fake{
		patients: []Patient{
			{
				ID: "123", FirstName: "John", LastName: "Doe",
				DateOfBirth: "1980-01-15", MRN: "MRN123",
				Phone: "555-0123", Email: "john.doe@email.com",
			},
			{
				ID: "456", FirstName: "Jane", LastName: "Smith",
				DateOfBirth: "1975-06-22", MRN: "MRN456",
				Phone: "555-0456", Email: "jane.smith@email.com",
			},
		},
		charts: map[string]Chart{
			"123": {
				PatientID: "123", LastVisit: "2024-01-15",
				Allergies:   []string{"Penicillin"},
				Medications: []string{"Lisinopril 10mg daily"},
			},
			"456": {
				PatientID: "456", LastVisit: "2024-03-02",
				Medications: []string{"Metformin 500mg twice daily"},
			},
		},
		orders:   make(map[string][]Order),
		messages: make(map[string][]string),
	}
}

// AddPatient seeds an extra patient.
func (f *Fake) AddPatient(p Patient, chart Chart) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.patients = append(f.patients, p)
	f.charts[p.ID] = chart
}

// SearchPatients matches the query against names and MRNs.
func (f *Fake) SearchPatients(ctx context.Context, query string, limit int) ([]Patient, error) {
	if limit <= 0 {
		limit = 10
	}
	f.mu.RLock()
	defer f.mu.RUnlock()

	q := strings.ToLower(query)
	matches := make([]Patient, 0, limit)
	for _, p := range f.patients {
		if strings.Contains(strings.ToLower(p.FullName()), q) ||
			strings.Contains(p.MRN, query) || p.ID == query {
			matches = append(matches, p)
			if len(matches) == limit {
				break
			}
		}
	}
	return matches, nil
}

// GetPatient implements Client.
func (f *Fake) GetPatient(ctx context.Context, patientID string) (*Patient, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()

	for _, p := range f.patients {
		if p.ID == patientID {
			patient := p
			return &patient, nil
		}
	}
	return nil, types.Errorf(types.ErrCollaboratorError, "patient %q not found", patientID)
}

// GetChart implements Client.
func (f *Fake) GetChart(ctx context.Context, patientID string) (*Chart, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()

	chart, ok := f.charts[patientID]
	if !ok {
		return nil, types.Errorf(types.ErrCollaboratorError, "no chart for patient %q", patientID)
	}
	return &chart, nil
}

// CreateOrder implements Client.
func (f *Fake) CreateOrder(ctx context.Context, order Order) (*Order, error) {
	if _, err := f.GetPatient(ctx, order.PatientID); err != nil {
		return nil, err
	}

	order.ID = uuid.NewString()[:8]
	order.Status = "pending"
	order.CreatedAt = time.Now().Format(time.RFC3339)

	f.mu.Lock()
	defer f.mu.Unlock()
	f.orders[order.PatientID] = append(f.orders[order.PatientID], order)
	return &order, nil
}

// ListOrders implements Client.
func (f *Fake) ListOrders(ctx context.Context, patientID string) ([]Order, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()

	orders := make([]Order, len(f.orders[patientID]))
	copy(orders, f.orders[patientID])
	return orders, nil
}

// SendMessage implements Client.
func (f *Fake) SendMessage(ctx context.Context, patientID, message, messageType string) error {
	if _, err := f.GetPatient(ctx, patientID); err != nil {
		return err
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.messages[patientID] = append(f.messages[patientID], messageType+": "+message)
	return nil
}

// CreateReferral implements Client.
func (f *Fake) CreateReferral(ctx context.Context, patientID, specialty, reason string) error {
	_, err := f.GetPatient(ctx, patientID)
	return err
}

// Messages returns all messages sent to a patient, for test assertions.
func (f *Fake) Messages(patientID string) []string {
	f.mu.RLock()
	defer f.mu.RUnlock()

	msgs := make([]string, len(f.messages[patientID]))
	copy(msgs, f.messages[patientID])
	return msgs
}

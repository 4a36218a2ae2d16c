package emr

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/voxflow/voxflow/types"
)

// Client is the EMR collaborator boundary. Implementations are treated as
// remote systems: calls may be slow, fail or rate-limit, and the engine
// never assumes in-process execution.
type Client interface {
	// SearchPatients finds patients matching a free-text query.
	SearchPatients(ctx context.Context, query string, limit int) ([]Patient, error)
	// GetPatient reads one patient by identifier.
	GetPatient(ctx context.Context, patientID string) (*Patient, error)
	// GetChart reads a patient's chart summary.
	GetChart(ctx context.Context, patientID string) (*Chart, error)
	// CreateOrder places a lab, imaging or medication order.
	CreateOrder(ctx context.Context, order Order) (*Order, error)
	// ListOrders returns all orders for a patient.
	ListOrders(ctx context.Context, patientID string) ([]Order, error)
	// SendMessage delivers a message to a patient.
	SendMessage(ctx context.Context, patientID, message, messageType string) error
	// CreateReferral refers a patient to a specialist.
	CreateReferral(ctx context.Context, patientID, specialty, reason string) error
}

// Config holds EMR connection settings.
type Config struct {
	// BaseURL is the EMR API root. URLs containing "fhir" switch patient
	// endpoints to FHIR R4 resource encoding.
	BaseURL string `yaml:"base_url"`
	// APIKey is sent as a bearer token when non-empty.
	APIKey string `yaml:"api_key"`
	// Timeout bounds each HTTP request.
	Timeout time.Duration `yaml:"timeout"`
}

// RESTClient implements Client over HTTP.
type RESTClient struct {
	baseURL string
	apiKey  string
	isFHIR  bool
	http    *http.Client
	logger  *zap.Logger
}

// NewRESTClient creates an HTTP EMR client.
func NewRESTClient(config Config, logger *zap.Logger) (*RESTClient, error) {
	if config.BaseURL == "" {
		return nil, fmt.Errorf("emr base URL is required")
	}
	if config.Timeout <= 0 {
		config.Timeout = 15 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	c := &RESTClient{
		baseURL: strings.TrimRight(config.BaseURL, "/"),
		apiKey:  config.APIKey,
		isFHIR:  strings.Contains(strings.ToLower(config.BaseURL), "fhir"),
		http:    &http.Client{Timeout: config.Timeout},
		logger:  logger.With(zap.String("component", "emr_client")),
	}
	if c.isFHIR {
		c.logger.Info("FHIR server detected, using FHIR resource encoding")
	}
	return c, nil
}

func (c *RESTClient) request(ctx context.Context, method, endpoint string, query url.Values, body, dest any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request body: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	u := c.baseURL + "/" + strings.TrimLeft(endpoint, "/")
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, method, u, reader)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	if c.isFHIR {
		req.Header.Set("Content-Type", "application/fhir+json")
	} else {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return types.Errorf(types.ErrCollaboratorError, "emr request failed").
			WithRetryable(true).WithCause(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		// Drain into the cause; status code alone is safe to surface.
		payload, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return types.Errorf(types.ErrCollaboratorError, "emr returned status %d", resp.StatusCode).
			WithRetryable(resp.StatusCode >= 500).
			WithCause(fmt.Errorf("%s %s: %s", method, endpoint, string(payload)))
	}

	if dest == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(dest); err != nil {
		return types.Errorf(types.ErrCollaboratorError, "emr returned malformed response").
			WithCause(err)
	}
	return nil
}

// fhirPatient is the subset of a FHIR R4 Patient resource the engine
// reads.
type fhirPatient struct {
	ID   string `json:"id"`
	Name []struct {
		Given  []string `json:"given"`
		Family string   `json:"family"`
	} `json:"name"`
	Identifier []struct {
		Use   string `json:"use"`
		Value string `json:"value"`
	} `json:"identifier"`
	Telecom []struct {
		System string `json:"system"`
		Value  string `json:"value"`
	} `json:"telecom"`
	BirthDate string `json:"birthDate"`
}

func (f fhirPatient) toPatient() Patient {
	p := Patient{ID: f.ID, DateOfBirth: f.BirthDate}
	if len(f.Name) > 0 {
		p.FirstName = strings.Join(f.Name[0].Given, " ")
		p.LastName = f.Name[0].Family
	}
	for _, id := range f.Identifier {
		if id.Use == "usual" || p.MRN == "" {
			p.MRN = id.Value
		}
	}
	for _, t := range f.Telecom {
		switch {
		case t.System == "phone" && p.Phone == "":
			p.Phone = t.Value
		case t.System == "email" && p.Email == "":
			p.Email = t.Value
		}
	}
	return p
}

// SearchPatients implements Client.
func (c *RESTClient) SearchPatients(ctx context.Context, query string, limit int) ([]Patient, error) {
	if limit <= 0 {
		limit = 10
	}

	if c.isFHIR {
		var bundle struct {
			Entry []struct {
				Resource fhirPatient `json:"resource"`
			} `json:"entry"`
		}
		params := url.Values{
			"name":   {query},
			"_count": {strconv.Itoa(limit)},
			"_sort":  {"-_lastUpdated"},
		}
		if err := c.request(ctx, http.MethodGet, "Patient", params, nil, &bundle); err != nil {
			return nil, err
		}
		patients := make([]Patient, 0, len(bundle.Entry))
		for _, entry := range bundle.Entry {
			patients = append(patients, entry.Resource.toPatient())
		}
		return patients, nil
	}

	var result struct {
		Patients []Patient `json:"patients"`
	}
	params := url.Values{"q": {query}, "limit": {strconv.Itoa(limit)}}
	if err := c.request(ctx, http.MethodGet, "/patients/search", params, nil, &result); err != nil {
		return nil, err
	}
	return result.Patients, nil
}

// GetPatient implements Client.
func (c *RESTClient) GetPatient(ctx context.Context, patientID string) (*Patient, error) {
	if c.isFHIR {
		var resource fhirPatient
		if err := c.request(ctx, http.MethodGet, "Patient/"+patientID, nil, nil, &resource); err != nil {
			return nil, err
		}
		p := resource.toPatient()
		return &p, nil
	}

	var p Patient
	if err := c.request(ctx, http.MethodGet, "/patients/"+patientID, nil, nil, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

// GetChart implements Client.
func (c *RESTClient) GetChart(ctx context.Context, patientID string) (*Chart, error) {
	var chart Chart
	if err := c.request(ctx, http.MethodGet, "/patients/"+patientID+"/chart", nil, nil, &chart); err != nil {
		return nil, err
	}
	if chart.PatientID == "" {
		chart.PatientID = patientID
	}
	return &chart, nil
}

// CreateOrder implements Client.
func (c *RESTClient) CreateOrder(ctx context.Context, order Order) (*Order, error) {
	var created Order
	if err := c.request(ctx, http.MethodPost, "/orders", nil, order, &created); err != nil {
		return nil, err
	}
	return &created, nil
}

// ListOrders implements Client.
func (c *RESTClient) ListOrders(ctx context.Context, patientID string) ([]Order, error) {
	var result struct {
		Orders []Order `json:"orders"`
	}
	params := url.Values{"patient_id": {patientID}}
	if err := c.request(ctx, http.MethodGet, "/orders", params, nil, &result); err != nil {
		return nil, err
	}
	return result.Orders, nil
}

// SendMessage implements Client.
func (c *RESTClient) SendMessage(ctx context.Context, patientID, message, messageType string) error {
	body := map[string]string{
		"patient_id": patientID,
		"message":    message,
		"type":       messageType,
	}
	return c.request(ctx, http.MethodPost, "/messages", nil, body, nil)
}

// CreateReferral implements Client.
func (c *RESTClient) CreateReferral(ctx context.Context, patientID, specialty, reason string) error {
	body := map[string]string{
		"patient_id":      patientID,
		"consultant_type": specialty,
		"reason":          reason,
	}
	return c.request(ctx, http.MethodPost, "/referrals", nil, body, nil)
}

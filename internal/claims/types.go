package claims

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// SearchCriteria is the body of a claim search. Dates are ISO YYYY-MM-DD.
type SearchCriteria struct {
	FirstServiceDate string `json:"firstServiceDate"`
	LastServiceDate  string `json:"lastServiceDate"`
	PracticeID       string `json:"practiceId,omitempty"`
	PatientFirstName string `json:"patientFirstName,omitempty"`
	PatientLastName  string `json:"patientLastName,omitempty"`
	PatientDOB       string `json:"patientDob,omitempty"`
	StatusFilter     string `json:"statusFilter,omitempty"`
}

// Fields returns the non-empty criteria as ordered name/value pairs.
func (c SearchCriteria) Fields() [][2]string {
	all := [][2]string{
		{"firstServiceDate", c.FirstServiceDate},
		{"lastServiceDate", c.LastServiceDate},
		{"practiceId", c.PracticeID},
		{"patientFirstName", c.PatientFirstName},
		{"patientLastName", c.PatientLastName},
		{"patientDob", c.PatientDOB},
		{"statusFilter", c.StatusFilter},
	}
	out := all[:0]
	for _, kv := range all {
		if kv[1] != "" {
			out = append(out, kv)
		}
	}
	return out
}

// Text is a JSON scalar that may arrive as a string, a number, a bool or
// null. Objects and arrays are kept as their compact JSON text.
type Text string

func (t *Text) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	switch {
	case len(b) == 0 || bytes.Equal(b, []byte("null")):
		*t = ""
	case b[0] == '"':
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*t = Text(s)
	case b[0] == '{' || b[0] == '[':
		var buf bytes.Buffer
		if err := json.Compact(&buf, b); err != nil {
			return err
		}
		*t = Text(buf.String())
	default:
		*t = Text(b)
	}
	return nil
}

func (t Text) String() string { return string(t) }

// Patient may be sent as a display string or as an object.
type Patient struct {
	FirstName   string `json:"firstName"`
	LastName    string `json:"lastName"`
	DateOfBirth string `json:"dateOfBirth"`
	Display     string `json:"-"`
}

func (p *Patient) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		*p = Patient{}
		return nil
	}
	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*p = Patient{Display: s}
		return nil
	}
	type plain Patient
	var v plain
	if err := json.Unmarshal(b, &v); err != nil {
		return fmt.Errorf("patient: %w", err)
	}
	*p = Patient(v)
	return nil
}

// String is the display form, falling back to "First Last".
func (p Patient) String() string {
	if p.Display != "" {
		return p.Display
	}
	return strings.TrimSpace(p.FirstName + " " + p.LastName)
}

// Subscriber identifies the insured member.
type Subscriber struct {
	MemberID     string `json:"memberId"`
	SubscriberID string `json:"subscriberId"`
}

// ID returns the member id, falling back to the subscriber id.
func (s Subscriber) ID() string {
	if s.MemberID != "" {
		return s.MemberID
	}
	return s.SubscriberID
}

// ServiceLine is one line of service on a claim.
type ServiceLine struct {
	ServiceDate string `json:"serviceDate"`
}

// Claim is one claim as returned by search or detail.
type Claim struct {
	ClaimNumber      Text          `json:"claimNumber"`
	Status           string        `json:"status"`
	Patient          Patient       `json:"patient"`
	Subscriber       Subscriber    `json:"subscriber"`
	ServiceLines     []ServiceLine `json:"serviceLines"`
	ServiceDate      string        `json:"serviceDate"`
	FirstServiceDate string        `json:"firstServiceDate"`
	LastServiceDate  string        `json:"lastServiceDate"`
	ChargedAmount    Text          `json:"chargedAmount"`
	PaidAmount       Text          `json:"paidAmount"`
	Provider         Text          `json:"provider"`
}

// Number returns the trimmed claim number.
func (c Claim) Number() string {
	return strings.TrimSpace(string(c.ClaimNumber))
}

// EarliestServiceDate returns the first service line date, then the
// claim-level service date, then the first service date.
func (c Claim) EarliestServiceDate() string {
	if len(c.ServiceLines) > 0 && c.ServiceLines[0].ServiceDate != "" {
		return c.ServiceLines[0].ServiceDate
	}
	if c.ServiceDate != "" {
		return c.ServiceDate
	}
	return c.FirstServiceDate
}

// SearchResult is the decoded search response.
type SearchResult struct {
	Claims        []Claim
	Count         int
	HasMore       bool
	TransactionID string

	// Raw is the response body as received.
	Raw json.RawMessage
}

type searchResponse struct {
	Claims        []Claim `json:"claims"`
	Count         *int    `json:"count"`
	HasMore       bool    `json:"hasMore"`
	TransactionID Text    `json:"transactionId"`
}

// DecodeSearchResult decodes a search body. Count falls back to the number of
// claims when the body omits it.
func DecodeSearchResult(body []byte) (*SearchResult, error) {
	var sr searchResponse
	if err := json.Unmarshal(body, &sr); err != nil {
		return nil, fmt.Errorf("decode search result: %w", err)
	}
	res := &SearchResult{
		Claims:        sr.Claims,
		Count:         len(sr.Claims),
		HasMore:       sr.HasMore,
		TransactionID: string(sr.TransactionID),
		Raw:           append(json.RawMessage(nil), body...),
	}
	if sr.Count != nil {
		res.Count = *sr.Count
	}
	return res, nil
}

// Practice is a provider practice.
type Practice struct {
	ID   Text   `json:"id"`
	Name string `json:"name"`
	TIN  Text   `json:"tin"`
}

// DecodePractices accepts a bare array or a paginated {"results": [...]}.
func DecodePractices(body []byte) ([]Practice, error) {
	body = bytes.TrimSpace(body)
	if len(body) > 0 && body[0] == '[' {
		var list []Practice
		if err := json.Unmarshal(body, &list); err != nil {
			return nil, fmt.Errorf("decode practices: %w", err)
		}
		return list, nil
	}
	var page struct {
		Results *[]Practice `json:"results"`
	}
	if err := json.Unmarshal(body, &page); err != nil {
		return nil, fmt.Errorf("decode practices: %w", err)
	}
	if page.Results == nil {
		return nil, fmt.Errorf("decode practices: unexpected response format")
	}
	return *page.Results, nil
}

package csvio

import (
	"fmt"
	"os"
	"strings"
	"time"

	"claimprobe/internal/window"
)

// Scenario is a named upload CSV body.
type Scenario struct {
	Name     string
	Filename string
	Content  string
}

// DataRows is the number of lines after the header.
func (s Scenario) DataRows() int {
	lines := strings.Split(strings.TrimSpace(s.Content), "\n")
	return len(lines) - 1
}

// ClaimNumbers returns the claim_number column, empty when there is none.
func (s Scenario) ClaimNumbers() []string {
	t, err := readTable(strings.NewReader(s.Content))
	if err != nil {
		return nil
	}
	col, err := t.Column("claim_number")
	if err != nil {
		return nil
	}
	return col
}

// Write stores the scenario at path, creating parent directories.
func (s Scenario) Write(path string) error {
	if err := ensureDir(path); err != nil {
		return err
	}
	if err := os.WriteFile(path, []byte(s.Content), 0644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

type patient struct {
	first, last, dob string
}

var scenarioPatients = []patient{
	{"CHANTAL", "KISA", "05/10/1975"},
	{"JOHN", "DOE", "01/15/1980"},
	{"JANE", "SMITH", "05/20/1975"},
}

var scenarioClaims = []string{"FH65850583", "FH73828971", "FH73828973"}

// PatientScenario is a patient-info upload without claim numbers, searched
// over [start, end].
func PatientScenario(start, end time.Time) Scenario {
	var b strings.Builder
	b.WriteString("first_name,last_name,date_of_birth,first_service_date,last_service_date\n")
	for _, p := range scenarioPatients {
		fmt.Fprintf(&b, "%s,%s,%s,%s,%s\n", p.first, p.last, p.dob, UploadDateOf(start), UploadDateOf(end))
	}
	return Scenario{
		Name:     "Scenario 1: Patient Info (No Claim Numbers)",
		Filename: "test_patients.csv",
		Content:  b.String(),
	}
}

// ClaimScenario is an upload keyed by claim numbers.
func ClaimScenario() Scenario {
	var b strings.Builder
	b.WriteString("claim_number,first_name,last_name,date_of_birth\n")
	for i, p := range scenarioPatients {
		fmt.Fprintf(&b, "%s,%s,%s,%s\n", scenarioClaims[i], p.first, p.last, p.dob)
	}
	return Scenario{
		Name:     "Scenario 2: With Claim Numbers",
		Filename: "test_claims.csv",
		Content:  b.String(),
	}
}

var practicePatients = append(scenarioPatients[:len(scenarioPatients):len(scenarioPatients)],
	patient{"ROBERT", "JOHNSON", "03/12/1968"},
	patient{"MARY", "WILLIAMS", "08/25/1982"},
)

// PracticePatientScenario is a patient-info upload scoped to one practice.
func PracticePatientScenario(practiceID string, start, end time.Time) Scenario {
	var b strings.Builder
	b.WriteString("first_name,last_name,date_of_birth,practice_id,first_service_date,last_service_date\n")
	for _, p := range practicePatients {
		fmt.Fprintf(&b, "%s,%s,%s,%s,%s,%s\n", p.first, p.last, p.dob, practiceID, UploadDateOf(start), UploadDateOf(end))
	}
	return Scenario{
		Name:     "Search by Patient Info",
		Filename: "test_patients.csv",
		Content:  b.String(),
	}
}

// Template is a placeholder upload CSV covering one date range.
type Template struct {
	Filename    string
	Description string
	Window      window.Window
	Rows        []Row
}

var templateClaims = []Row{
	{ClaimNumber: "PLACEHOLDER_CLAIM_1", FirstName: "JOHN", LastName: "DOE", DateOfBirth: "01/15/1980", SubscriberID: "PLACEHOLDER_SUB_1"},
	{ClaimNumber: "PLACEHOLDER_CLAIM_2", FirstName: "JANE", LastName: "SMITH", DateOfBirth: "05/20/1975", SubscriberID: "PLACEHOLDER_SUB_2"},
	{ClaimNumber: "PLACEHOLDER_CLAIM_3", FirstName: "BOB", LastName: "JOHNSON", DateOfBirth: "11/30/1990", SubscriberID: "PLACEHOLDER_SUB_3"},
}

// DateRangeTemplates returns the placeholder templates for the last 30 and
// 90 days and the two previous calendar years.
func DateRangeTemplates(today time.Time) []Template {
	year := today.Year()
	specs := []struct {
		filename, desc string
		w              window.Window
	}{
		{"test-recent-30days.csv", "Last 30 days", window.LastDays(today, 30)},
		{"test-recent-90days.csv", "Last 90 days", window.LastDays(today, 90)},
		{fmt.Sprintf("test-year-%d.csv", year-1), fmt.Sprintf("All of %d", year-1), window.Year(year - 1)},
		{fmt.Sprintf("test-year-%d.csv", year-2), fmt.Sprintf("All of %d", year-2), window.Year(year - 2)},
	}

	out := make([]Template, 0, len(specs))
	for _, s := range specs {
		rows := make([]Row, len(templateClaims))
		for i, r := range templateClaims {
			r.FirstServiceDate = s.w.StartISO()
			r.LastServiceDate = s.w.EndISO()
			rows[i] = r
		}
		out = append(out, Template{Filename: s.filename, Description: s.desc, Window: s.w, Rows: rows})
	}
	return out
}

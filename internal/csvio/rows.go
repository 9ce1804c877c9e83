// Package csvio writes bulk-upload CSVs and JSON dumps, and reads CSVs back
// for round-trip checks.
package csvio

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"claimprobe/internal/claims"
	"claimprobe/internal/logging"
)

// Placeholder values for fields a claim did not carry.
const (
	UnknownValue = "UNKNOWN"
	DefaultDOB   = "01/01/1970"
)

// UploadDate is the date layout upload CSVs use.
const UploadDate = "01/02/2006"

// Header is the fixed column order of a bulk-upload row.
var Header = []string{
	"claim_number",
	"first_name",
	"last_name",
	"date_of_birth",
	"subscriber_id",
	"first_service_date",
	"last_service_date",
}

// Row is one bulk-upload line.
type Row struct {
	ClaimNumber      string
	FirstName        string
	LastName         string
	DateOfBirth      string
	SubscriberID     string
	FirstServiceDate string
	LastServiceDate  string
}

// Record returns the row in Header order.
func (r Row) Record() []string {
	return []string{
		r.ClaimNumber,
		r.FirstName,
		r.LastName,
		r.DateOfBirth,
		r.SubscriberID,
		r.FirstServiceDate,
		r.LastServiceDate,
	}
}

func orDefault(v, def string) string {
	if strings.TrimSpace(v) == "" {
		return def
	}
	return v
}

// FromClaim projects a search claim into a row. The service date is taken
// from the first service line, then the claim level, then fallback, and is
// used for both service date columns.
func FromClaim(c claims.Claim, fallbackServiceDate string) Row {
	serviceDate := orDefault(c.EarliestServiceDate(), fallbackServiceDate)
	return Row{
		ClaimNumber:      c.Number(),
		FirstName:        orDefault(c.Patient.FirstName, UnknownValue),
		LastName:         orDefault(c.Patient.LastName, UnknownValue),
		DateOfBirth:      orDefault(c.Patient.DateOfBirth, DefaultDOB),
		SubscriberID:     orDefault(c.Subscriber.ID(), UnknownValue),
		FirstServiceDate: serviceDate,
		LastServiceDate:  serviceDate,
	}
}

// FromSearchClaim keeps the claim's own first and last service dates.
func FromSearchClaim(c claims.Claim) Row {
	return Row{
		ClaimNumber:      c.Number(),
		FirstName:        orDefault(c.Patient.FirstName, UnknownValue),
		LastName:         orDefault(c.Patient.LastName, UnknownValue),
		DateOfBirth:      orDefault(c.Patient.DateOfBirth, DefaultDOB),
		SubscriberID:     c.Subscriber.MemberID,
		FirstServiceDate: c.FirstServiceDate,
		LastServiceDate:  c.LastServiceDate,
	}
}

// FromDetail builds a row from a fetched claim with a known MM/DD/YYYY
// service date. Names are trimmed; the rest defaults to UNKNOWN.
func FromDetail(number string, c *claims.Claim, serviceDate string) Row {
	date := ISODate(serviceDate)
	return Row{
		ClaimNumber:      number,
		FirstName:        strings.TrimSpace(c.Patient.FirstName),
		LastName:         strings.TrimSpace(c.Patient.LastName),
		DateOfBirth:      orDefault(c.Patient.DateOfBirth, UnknownValue),
		SubscriberID:     orDefault(c.Subscriber.ID(), UnknownValue),
		FirstServiceDate: date,
		LastServiceDate:  date,
	}
}

// ISODate converts MM/DD/YYYY to YYYY-MM-DD, returning s unchanged when it
// does not parse.
func ISODate(s string) string {
	t, err := time.Parse(UploadDate, strings.TrimSpace(s))
	if err != nil {
		return s
	}
	return t.Format("2006-01-02")
}

// UploadDateOf formats t for an upload CSV.
func UploadDateOf(t time.Time) string {
	return t.Format(UploadDate)
}

func ensureDir(path string) error {
	dir := filepath.Dir(path)
	if dir == "" || dir == "." {
		return nil
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("create directory %s: %w", dir, err)
	}
	return nil
}

// WriteRows writes Header followed by rows, creating parent directories.
func WriteRows(path string, rows []Row) error {
	records := make([][]string, 0, len(rows))
	for _, r := range rows {
		records = append(records, r.Record())
	}
	return WriteRecords(path, Header, records)
}

// WriteRecords writes an arbitrary header and records.
func WriteRecords(path string, header []string, records [][]string) error {
	if err := ensureDir(path); err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	if err := w.WriteAll(records); err != nil {
		return fmt.Errorf("write rows: %w", err)
	}
	if err := f.Sync(); err != nil {
		return fmt.Errorf("sync %s: %w", path, err)
	}
	logging.CSV("wrote %s (%d rows)", path, len(records))
	return nil
}

// WriteJSON writes v as indented JSON, creating parent directories.
func WriteJSON(path string, v any) error {
	if err := ensureDir(path); err != nil {
		return err
	}
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal %s: %w", path, err)
	}
	if err := os.WriteFile(path, append(data, '\n'), 0644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	logging.CSV("wrote %s (%d bytes)", path, len(data))
	return nil
}

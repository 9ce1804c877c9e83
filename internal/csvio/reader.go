package csvio

import (
	"bufio"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strings"
)

// Table is a CSV read fully into memory.
type Table struct {
	Header []string
	Rows   [][]string
	colIdx map[string]int // lowercase trimmed header → column index
}

// ReadTable reads a CSV file, skipping a UTF-8 BOM. Short rows are allowed.
func ReadTable(path string) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()
	return readTable(f)
}

func readTable(r io.Reader) (*Table, error) {
	br := bufio.NewReader(r)
	if bom, err := br.Peek(3); err == nil && bom[0] == 0xEF && bom[1] == 0xBB && bom[2] == 0xBF {
		_, _ = br.Discard(3)
	}

	cr := csv.NewReader(br)
	cr.LazyQuotes = true
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if err != nil {
		if err == io.EOF {
			return nil, fmt.Errorf("empty csv")
		}
		return nil, fmt.Errorf("read header: %w", err)
	}

	t := &Table{Header: header, colIdx: make(map[string]int, len(header))}
	for i, h := range header {
		key := strings.ToLower(strings.TrimSpace(h))
		if _, dup := t.colIdx[key]; !dup {
			t.colIdx[key] = i
		}
	}

	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read row %d: %w", len(t.Rows)+2, err)
		}
		t.Rows = append(t.Rows, rec)
	}
	return t, nil
}

// Index returns the column index of the first matching name, case-insensitive.
func (t *Table) Index(names ...string) (int, bool) {
	for _, n := range names {
		if i, ok := t.colIdx[strings.ToLower(strings.TrimSpace(n))]; ok {
			return i, true
		}
	}
	return -1, false
}

// Value returns the trimmed cell of row at column, or "".
func (t *Table) Value(row []string, column int) string {
	if column < 0 || column >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[column])
}

// Column returns the values of the first matching column.
func (t *Table) Column(names ...string) ([]string, error) {
	i, ok := t.Index(names...)
	if !ok {
		return nil, fmt.Errorf("no column named %s", strings.Join(names, " or "))
	}
	out := make([]string, 0, len(t.Rows))
	for _, row := range t.Rows {
		out = append(out, t.Value(row, i))
	}
	return out, nil
}

// ReadColumn reads one column of a CSV file by any of several header names.
func ReadColumn(path string, names ...string) ([]string, error) {
	t, err := ReadTable(path)
	if err != nil {
		return nil, err
	}
	return t.Column(names...)
}

// ExportClaim is one row of a claims search UI export.
type ExportClaim struct {
	ClaimNumber string
	Patient     string
	ServiceDate string
	Status      string
	Provider    string
}

// Export is a summarized UI export.
type Export struct {
	Claims []ExportClaim
	// Missing lists upload columns the export does not carry.
	Missing []string
}

var exportColumns = []string{"Claim Number", "Patient", "Service Date", "Status", "Provider"}

// uploadOnly are upload columns a UI export usually lacks, with the export
// header names that would satisfy them.
var uploadOnly = []struct {
	column  string
	aliases []string
}{
	{"date_of_birth", []string{"Date of Birth", "DOB", "date_of_birth", "Patient DOB"}},
	{"subscriber_id", []string{"Subscriber ID", "Member ID", "subscriber_id", "member_id"}},
}

// ReadExport reads a claims search export and reports which upload columns
// are missing from it.
func ReadExport(path string) (*Export, error) {
	t, err := ReadTable(path)
	if err != nil {
		return nil, err
	}

	idx := make([]int, len(exportColumns))
	for i, name := range exportColumns {
		j, ok := t.Index(name)
		if !ok {
			return nil, fmt.Errorf("export is missing column %q", name)
		}
		idx[i] = j
	}

	exp := &Export{}
	for _, row := range t.Rows {
		exp.Claims = append(exp.Claims, ExportClaim{
			ClaimNumber: t.Value(row, idx[0]),
			Patient:     t.Value(row, idx[1]),
			ServiceDate: t.Value(row, idx[2]),
			Status:      t.Value(row, idx[3]),
			Provider:    t.Value(row, idx[4]),
		})
	}
	for _, u := range uploadOnly {
		if _, ok := t.Index(u.aliases...); !ok {
			exp.Missing = append(exp.Missing, u.column)
		}
	}
	return exp, nil
}

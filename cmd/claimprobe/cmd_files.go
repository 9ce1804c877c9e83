package main

import (
	"fmt"
	"path/filepath"

	"claimprobe/internal/csvio"
	"claimprobe/internal/report"

	"github.com/spf13/cobra"
)

// templatesCmd writes placeholder upload CSVs for common date ranges
var templatesCmd = &cobra.Command{
	Use:   "templates",
	Short: "Write placeholder upload CSVs for common date ranges",
	Long: `Writes one upload CSV per date range (last 30 days, last 90 days and the
two previous calendar years) with placeholder claims. Replace the
placeholders with real claim numbers and patient details before uploading.`,
	Args: cobra.NoArgs,
	RunE: runTemplates,
}

// inspectExportCmd summarizes a claims search export from the frontend
var inspectExportCmd = &cobra.Command{
	Use:   "inspect-export <file>",
	Short: "Summarize a claims search export and list missing upload columns",
	Args:  cobra.ExactArgs(1),
	RunE:  runInspectExport,
}

func runTemplates(cmd *cobra.Command, args []string) error {
	p, err := newProbe(cmd, nil)
	if err != nil {
		return err
	}
	defer p.close()

	p.rep.Header("📁", "CREATING DATE RANGE TEMPLATES")
	dir := p.cfg.TemplatesPath()
	for _, t := range csvio.DateRangeTemplates(today()) {
		path := filepath.Join(dir, t.Filename)
		if err := csvio.WriteRows(path, t.Rows); err != nil {
			p.fail(t.Filename, err)
			continue
		}
		p.rep.Success("Created: %s", path)
		p.rep.KV(
			report.P("Description", t.Description),
			report.P("Date range", t.Window),
			report.P("Rows", len(t.Rows)),
		)
		p.tally.Pass(t.Filename, t.Description)
	}

	p.rep.Numbered("📋 Next Steps",
		"Replace the PLACEHOLDER values with real claim numbers and patient details",
		"Run 'claimprobe harvest' to find real claims for a range",
		"Upload with 'claimprobe upload <file>'",
	)
	return p.finish()
}

func runInspectExport(cmd *cobra.Command, args []string) error {
	p, err := newProbe(cmd, nil)
	if err != nil {
		return err
	}
	defer p.close()

	exp, err := csvio.ReadExport(args[0])
	if err != nil {
		p.fail("Read export", err)
		return p.finish()
	}

	p.rep.Header("📋", "Found Claims from Manual Search")
	if len(exp.Claims) == 0 {
		p.rep.Warn("Export contains no claims")
	}
	rows := make([][]string, 0, len(exp.Claims))
	for i, c := range exp.Claims {
		rows = append(rows, []string{fmt.Sprint(i + 1), c.ClaimNumber, c.Patient, c.ServiceDate, c.Status, c.Provider})
	}
	p.rep.Table([]string{"#", "Claim", "Patient", "Service Date", "Status", "Provider"}, rows)
	p.tally.Pass("Read export", plural(len(exp.Claims), "claim"))

	if len(exp.Missing) == 0 {
		p.rep.Success("Export carries every column a bulk upload needs")
		return p.finish()
	}

	p.rep.Blank()
	p.rep.Warn("PROBLEM IDENTIFIED:")
	p.rep.Section("The export doesn't include", exp.Missing...)
	p.rep.Printf("These are REQUIRED for a bulk upload CSV.")
	p.rep.Info("Query each claim individually to get full patient details:")
	p.rep.Commands("Commands", []string{"claimprobe build-csv", "claimprobe find-claim <claim_number>"})
	return p.finish()
}

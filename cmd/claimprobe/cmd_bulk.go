package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"claimprobe/internal/bulk"
	"claimprobe/internal/consistency"
	"claimprobe/internal/csvio"
	"claimprobe/internal/report"
	"claimprobe/internal/window"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	uploadProvider   string
	uploadBatchQuery bool
	uploadStartDate  string
	uploadEndDate    string
	uploadPracticeID string
	keepCSV          bool
)

// bulkCmd runs the bulk upload test suite
var bulkCmd = &cobra.Command{
	Use:   "bulk [username] [password]",
	Short: "Run the bulk upload test suite",
	Long: `For each scenario (patient info without claim numbers, then claim numbers):
  1. Write the scenario CSV
  2. Upload it
  3. Poll the job until it finishes
  4. Download and preview the results
  5. Check job counters and that every uploaded claim number came back

A scenario passes only when its job COMPLETED and every check held.`,
	Args: cobra.MaximumNArgs(2),
	RunE: runBulk,
}

// uploadCmd uploads one CSV with explicit options
var uploadCmd = &cobra.Command{
	Use:   "upload [file]",
	Short: "Upload a CSV with explicit options and follow the job",
	Long: `Uploads a CSV file (or, without a file, a generated patient-info CSV for
--practice-id), follows the job, and downloads the results. A failed job's
error log is fetched and printed.

Example:
  claimprobe upload csv-templates/real-claims-july-2025.csv --start-date 2025-07-01 --end-date 2025-07-03
  claimprobe upload --job-api bulk-jobs --practice-id 1`,
	Args: cobra.MaximumNArgs(1),
	RunE: runUpload,
}

func init() {
	for _, c := range []*cobra.Command{bulkCmd, uploadCmd} {
		c.Flags().StringVar(&uploadProvider, "provider", "", "Provider tag (default: bulk.provider from config)")
		c.Flags().BoolVar(&uploadBatchQuery, "use-batch-query", true, "Ask the backend to batch per-row lookups")
		c.Flags().BoolVar(&keepCSV, "keep-csv", false, "Keep generated CSVs after the run")
	}
	uploadCmd.Flags().StringVar(&uploadStartDate, "start-date", "", "Explicit start date sent with the upload")
	uploadCmd.Flags().StringVar(&uploadEndDate, "end-date", "", "Explicit end date sent with the upload")
	uploadCmd.Flags().StringVar(&uploadPracticeID, "practice-id", "1", "Practice ID for the generated CSV")
}

func (p *probe) uploadOptions(cmd *cobra.Command) bulk.UploadOptions {
	opts := bulk.UploadOptions{
		Provider:      p.cfg.Bulk.Provider,
		UseBatchQuery: p.cfg.Bulk.UseBatchQuery,
	}
	if uploadProvider != "" {
		opts.Provider = uploadProvider
	}
	if cmd.Flags().Changed("use-batch-query") {
		opts.UseBatchQuery = uploadBatchQuery
	}
	return opts
}

// =============================================================================
// BULK SUITE
// =============================================================================

func runBulk(cmd *cobra.Command, args []string) error {
	p, err := newProbe(cmd, args)
	if err != nil {
		return err
	}
	defer p.close()

	p.rep.Banner("🚀 Bulk Upload Test Suite",
		"Test Time: "+clock().Format("2006-01-02 15:04:05"),
		"Username: "+p.cfg.Login(),
		"Job API: "+p.cfg.Bulk.JobAPI)

	p.rep.Header("🧪", "Step 1: Getting Authentication Token")
	if !p.login() {
		p.rep.Error("Failed to authenticate. Cannot proceed with tests.")
		return p.finish()
	}

	bc, err := p.bulk()
	if err != nil {
		return err
	}
	opts := p.uploadOptions(cmd)

	w := window.LastDays(today(), 30)
	for _, sc := range []csvio.Scenario{csvio.PatientScenario(w.Start, w.End), csvio.ClaimScenario()} {
		p.rep.Header("🧪", "Testing: "+sc.Name)
		p.runScenarioUpload(bc, sc, opts)
	}

	err = p.finish()
	if err != nil {
		p.rep.Header("🔧", "TROUBLESHOOTING TIPS")
		p.logHints()
		p.rep.Section("Verify token is being sent",
			"Check browser console for 'kc_access_token'",
			"Verify Authorization header is present",
		)
	}
	return err
}

func (p *probe) runScenarioUpload(bc *bulk.Client, sc csvio.Scenario, opts bulk.UploadOptions) {
	path := p.cfg.OutputPath(sc.Filename)
	if err := sc.Write(path); err != nil {
		p.fail(sc.Name, fmt.Errorf("write scenario csv: %w", err))
		return
	}
	if !keepCSV {
		defer func() {
			if err := os.Remove(path); err == nil {
				p.rep.Info("Cleaned up: %s", path)
			}
		}()
	}
	p.rep.Success("Created test CSV: %s (%s)", path, plural(sc.DataRows(), "row"))

	job, ok := p.uploadAndFollow(bc, path, opts, false)
	if !ok {
		p.tally.Fail(sc.Name, "upload or monitoring failed")
		return
	}
	if !job.Completed() {
		p.rep.Error("%s - FAILED (Status: %s)", sc.Name, job.Status)
		p.tally.Fail(sc.Name, "status "+job.Status)
		return
	}

	issues := bulk.Verify(job)
	resultsPath, downloaded := p.downloadResults(bc, job)
	if numbers := sc.ClaimNumbers(); len(numbers) > 0 && downloaded {
		if rt, err := p.roundTrip(numbers, resultsPath); err != nil {
			issues = append(issues, err.Error())
		} else if !rt.Passed() {
			issues = append(issues, fmt.Sprintf("results are missing uploaded claims: %v", rt.Missing))
		}
	}
	if !downloaded {
		issues = append(issues, "results could not be downloaded")
	}

	if len(issues) > 0 {
		for _, issue := range issues {
			p.rep.Error("%s", issue)
		}
		p.tally.Fail(sc.Name, issues[0])
		return
	}
	p.rep.Success("%s - PASSED", sc.Name)
	p.tally.Pass(sc.Name, fmt.Sprintf("job %s, %d/%d succeeded", job.ID, job.SuccessCount, job.TotalRows))
}

// uploadAndFollow uploads path and polls the job. It reports every step and
// returns false when the job could not be followed to a terminal status.
func (p *probe) uploadAndFollow(bc *bulk.Client, path string, opts bulk.UploadOptions, tolerate bool) (*bulk.Job, bool) {
	p.rep.Step("Uploading %s (provider=%s, use_batch_query=%t)", filepath.Base(path), opts.Provider, opts.UseBatchQuery)
	job, err := bc.Upload(p.ctx, path, opts)
	if err != nil {
		p.showError("Upload", err)
		return nil, false
	}
	p.rep.Success("Upload successful")
	p.rep.KV(
		report.P("Job ID", job.ID),
		report.P("Status", job.Status),
		report.P("Filename", job.Filename),
		report.P("Total Rows", job.TotalRows),
	)
	logger.Info("bulk job created", zap.String("id", job.ID.String()), zap.String("api", bc.API().Name))

	p.rep.Step("Monitoring job progress")
	poller := p.poller(bc)
	poller.TolerateErrors = tolerate
	final, err := poller.Poll(p.ctx, job.ID.String())
	switch {
	case errors.Is(err, bulk.ErrTimeout):
		p.rep.Error("Job did not complete within %v", poller.MaxWait)
		return final, false
	case err != nil:
		p.showError("Job status check", err)
		return final, false
	}
	p.rep.Success("Job finished with status: %s", final.Status)
	p.rep.KV(
		report.P("Processed", fmt.Sprintf("%d/%d", final.ProcessedRows, final.TotalRows)),
		report.P("Success", final.SuccessCount),
		report.P("Failed", final.FailureCount),
	)
	return final, true
}

func (p *probe) downloadResults(bc *bulk.Client, job *bulk.Job) (string, bool) {
	path := p.cfg.OutputPath(fmt.Sprintf("results_%s.csv", job.ID))
	preview, err := bc.DownloadResults(p.ctx, job.ID.String(), path, 10)
	if err != nil {
		p.showError("Download results", err)
		return path, false
	}
	p.rep.Success("Results downloaded: %s", path)
	p.rep.Info("Results preview (first 10 lines):")
	p.rep.Lines(preview)
	return path, true
}

func (p *probe) roundTrip(uploaded []string, resultsPath string) (consistency.RoundTripResult, error) {
	returned, err := csvio.ReadColumn(resultsPath, "claim_number", "Claim Number", "claim number")
	if err != nil {
		return consistency.RoundTripResult{}, fmt.Errorf("read results: %w", err)
	}
	rt := consistency.RoundTrip(uploaded, returned)
	p.rep.KV(
		report.P("Uploaded claims", rt.Uploaded),
		report.P("Returned claims", rt.Returned),
	)
	return rt, nil
}

// =============================================================================
// SINGLE UPLOAD
// =============================================================================

func runUpload(cmd *cobra.Command, args []string) error {
	p, err := newProbe(cmd, nil)
	if err != nil {
		return err
	}
	defer p.close()

	p.rep.Header("🧪", "Testing Bulk Upload")
	if !p.login() {
		return p.finish()
	}
	bc, err := p.bulk()
	if err != nil {
		return err
	}

	opts := p.uploadOptions(cmd)
	opts.StartDate = uploadStartDate
	opts.EndDate = uploadEndDate

	path := ""
	if len(args) == 1 {
		path = args[0]
	} else {
		w := window.LastDays(today(), 30)
		if uploadStartDate != "" && uploadEndDate != "" {
			if w, err = window.Parse(uploadStartDate, uploadEndDate); err != nil {
				return err
			}
		}
		sc := csvio.PracticePatientScenario(uploadPracticeID, w.Start, w.End)
		path = p.cfg.OutputPath(sc.Filename)
		if err := sc.Write(path); err != nil {
			return err
		}
		if !keepCSV {
			defer os.Remove(path)
		}
		p.rep.Success("Created %s (%s, practice %s)", path, plural(sc.DataRows(), "patient"), uploadPracticeID)
		if opts.StartDate == "" {
			opts.StartDate, opts.EndDate = w.StartISO(), w.EndISO()
		}
	}

	job, ok := p.uploadAndFollow(bc, path, opts, true)
	name := "Upload " + filepath.Base(path)
	switch {
	case !ok:
		p.tally.Fail(name, "upload or monitoring failed")
	case job.Completed():
		if _, downloaded := p.downloadResults(bc, job); !downloaded {
			p.tally.Fail(name, "results could not be downloaded")
			break
		}
		if issues := bulk.Verify(job); len(issues) > 0 {
			for _, issue := range issues {
				p.rep.Error("%s", issue)
			}
			p.tally.Fail(name, issues[0])
			break
		}
		p.tally.Pass(name, fmt.Sprintf("job %s", job.ID))
	default:
		p.rep.Error("Job %s", job.Status)
		if job.Failed() {
			p.showErrorLog(bc, job)
		}
		p.tally.Fail(name, "status "+job.Status)
	}
	return p.finish()
}

func (p *probe) showErrorLog(bc *bulk.Client, job *bulk.Job) {
	detail, err := bc.Detail(p.ctx, job.ID.String())
	if err != nil {
		p.showError("Fetch job detail", err)
		return
	}
	if log := detail.ErrorLog.String(); log != "" {
		p.rep.Printf("   Error log: %s", report.Truncate(log, 500))
	}
}

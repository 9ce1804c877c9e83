package main

import (
	"encoding/json"
	"fmt"

	"claimprobe/internal/claims"
	"claimprobe/internal/csvio"
	"claimprobe/internal/window"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	searchStart    string
	searchEnd      string
	searchDays     int
	searchPractice string
	searchFirst    string
	searchLast     string
	searchDOB      string
	searchStatus   string
	searchSample   int

	dumpStart string
	dumpEnd   string
	dumpFile  string
)

// searchCmd runs one search built from flags
var searchCmd = &cobra.Command{
	Use:   "search",
	Short: "Run one claim search and print counts and a sample",
	Long: `Runs a single claim search. Without --start/--end the window is the
last --days days.

Example:
  claimprobe search --start 2025-07-01 --end 2025-07-03 --status DENIED`,
	Args: cobra.NoArgs,
	RunE: runSearch,
}

// dumpCmd writes a search result to disk
var dumpCmd = &cobra.Command{
	Use:   "dump",
	Short: "Search a window and write the returned claims as JSON",
	Long: `Searches a window and writes the claims array to a JSON file in the
output directory, then prints the first claim so the response shape can be
inspected.`,
	Args: cobra.NoArgs,
	RunE: runDump,
}

func init() {
	searchCmd.Flags().StringVar(&searchStart, "start", "", "First service date (YYYY-MM-DD)")
	searchCmd.Flags().StringVar(&searchEnd, "end", "", "Last service date (YYYY-MM-DD)")
	searchCmd.Flags().IntVar(&searchDays, "days", 30, "Window length when --start/--end are not set")
	searchCmd.Flags().StringVar(&searchPractice, "practice-id", "", "Practice ID")
	searchCmd.Flags().StringVar(&searchFirst, "first-name", "", "Patient first name")
	searchCmd.Flags().StringVar(&searchLast, "last-name", "", "Patient last name")
	searchCmd.Flags().StringVar(&searchDOB, "dob", "", "Patient date of birth (YYYY-MM-DD)")
	searchCmd.Flags().StringVar(&searchStatus, "status", "", "Status filter (e.g. DENIED)")
	searchCmd.Flags().IntVar(&searchSample, "sample", 5, "Number of claims to print")

	dumpCmd.Flags().StringVar(&dumpStart, "start", "2025-07-01", "First service date (YYYY-MM-DD)")
	dumpCmd.Flags().StringVar(&dumpEnd, "end", "2025-07-03", "Last service date (YYYY-MM-DD)")
	dumpCmd.Flags().StringVar(&dumpFile, "file", "", "Output file name (default: search_results_<start>_<end>.json)")
}

func searchWindow(start, end string, days int) (window.Window, error) {
	if start == "" && end == "" {
		return window.LastDays(today(), days), nil
	}
	if start == "" || end == "" {
		return window.Window{}, fmt.Errorf("--start and --end must be set together")
	}
	return window.Parse(start, end)
}

func runSearch(cmd *cobra.Command, args []string) error {
	w, err := searchWindow(searchStart, searchEnd, searchDays)
	if err != nil {
		return err
	}

	p, err := newProbe(cmd, nil)
	if err != nil {
		return err
	}
	defer p.close()

	criteria := claims.SearchCriteria{
		FirstServiceDate: w.StartISO(),
		LastServiceDate:  w.EndISO(),
		PracticeID:       searchPractice,
		PatientFirstName: searchFirst,
		PatientLastName:  searchLast,
		PatientDOB:       searchDOB,
		StatusFilter:     searchStatus,
	}
	logger.Info("search", zap.String("window", w.String()), zap.String("status", searchStatus))

	p.rep.Header("🔍", "CLAIM SEARCH")
	p.rep.KV(criteriaPairs(criteria)...)
	if !p.login() {
		return p.finish()
	}

	res := p.search("Search", p.claims(), criteria)
	if res != nil {
		p.tally.Pass("Search", plural(res.Count, "claim"))
		p.showStatuses(res)
		p.showSample(res, searchSample)
		if res.HasMore {
			p.rep.Info("More results are available (hasMore=true)")
		}
	}
	return p.finish()
}

func runDump(cmd *cobra.Command, args []string) error {
	w, err := window.Parse(dumpStart, dumpEnd)
	if err != nil {
		return err
	}

	p, err := newProbe(cmd, nil)
	if err != nil {
		return err
	}
	defer p.close()

	p.rep.Banner("🎯 EXTRACTING CLAIM DETAILS FROM SEARCH", w.String())
	if !p.login() {
		return p.finish()
	}

	res := p.search("Search", p.claims(), claims.SearchCriteria{
		FirstServiceDate: w.StartISO(),
		LastServiceDate:  w.EndISO(),
	})
	if res == nil {
		return p.finish()
	}

	raw, err := rawClaims(res)
	if err != nil {
		p.fail("Decode claims", err)
		return p.finish()
	}
	if len(raw) == 0 {
		p.rep.Error("No claims found")
		p.tally.Fail("Dump", "no claims")
		return p.finish()
	}

	p.rep.Header("📋", "Claims found (first claim)")
	p.rep.JSON(raw[0], 0)

	name := dumpFile
	if name == "" {
		name = fmt.Sprintf("search_results_%s_%s.json", w.StartISO(), w.EndISO())
	}
	path := p.cfg.OutputPath(name)
	if err := csvio.WriteJSON(path, raw); err != nil {
		p.fail("Write dump", err)
		return p.finish()
	}
	p.rep.Success("Full data saved to: %s", path)
	p.tally.Pass("Dump", plural(len(raw), "claim"))
	return p.finish()
}

// rawClaims returns the claims array as received, keeping fields the Claim
// type does not model.
func rawClaims(res *claims.SearchResult) ([]json.RawMessage, error) {
	var body struct {
		Claims []json.RawMessage `json:"claims"`
	}
	if err := json.Unmarshal(res.Raw, &body); err != nil {
		return nil, fmt.Errorf("decode claims array: %w", err)
	}
	return body.Claims, nil
}

package main

import (
	"sort"
	"strings"

	"claimprobe/internal/claims"
	"claimprobe/internal/report"
	"claimprobe/internal/window"

	"github.com/spf13/cobra"
)

var authPracticeID string

// authCmd diagnoses token acquisition and token acceptance by the backend
var authCmd = &cobra.Command{
	Use:   "auth",
	Short: "Diagnose authentication against the claims backend",
	Long: `Walks through authentication step by step:
  1. Obtain a token (prompting for credentials on a terminal)
  2. Call the practice API with the token
  3. Run a 7-day claim search and show the response headers
  4. Print backend log inspection commands

A diagnostic summary closes the run.`,
	Args: cobra.NoArgs,
	RunE: runAuth,
}

func init() {
	authCmd.Flags().StringVar(&authPracticeID, "practice-id", "1", "Practice ID for the test search")
}

func runAuth(cmd *cobra.Command, args []string) error {
	p, err := newProbe(cmd, nil)
	if err != nil {
		return err
	}
	defer p.close()

	p.rep.Banner("🔍 Authentication Diagnostic Tool", p.env.BaseURL)

	// Step 1: token
	p.rep.Header("🔍", "Step 1: Testing Token Generation")
	if p.needsCredentials() {
		p.rep.Warn("Please enter your credentials:")
		p.askCredentials(true)
	}
	if !p.login() {
		p.rep.Error("Cannot proceed without a valid token")
		return p.finish()
	}
	p.tally.Pass("Token Generation", p.token.Source)
	p.rep.KV(
		report.P("Token (first 50 chars)", p.token.Preview(50)),
		report.P("Token length", plural(len(p.token.AccessToken), "character")),
		report.P("Expires in", plural(p.token.ExpiresIn, "second")),
	)

	c := p.claims()

	// Step 2: practices
	p.rep.Header("🔍", "Step 2: Testing Practice API")
	p.rep.Printf("📤 GET %s%s", p.env.BaseURL, claims.PracticesPath)
	practices, resp, err := c.Practices(p.ctx, true)
	if err != nil {
		p.fail("Practice API", err)
	} else {
		p.rep.Printf("📥 Status Code: %d", resp.StatusCode)
		p.rep.Success("Practice API works! %s found", plural(len(practices), "practice"))
		p.tally.Pass("Practice API", plural(len(practices), "practice"))
	}

	// Step 3: search, with headers
	p.rep.Header("🔍", "Step 3: Testing Claims Search API")
	w := window.LastDays(today(), 7)
	criteria := claims.SearchCriteria{
		FirstServiceDate: w.StartISO(),
		LastServiceDate:  w.EndISO(),
		PracticeID:       authPracticeID,
	}
	p.rep.Printf("📤 POST %s%s", p.env.BaseURL, claims.SearchPath)
	p.rep.KV(criteriaPairs(criteria)...)
	p.rep.KV(report.P("Token (first 30 chars)", p.token.Preview(30)))

	sresp, err := p.http.WithAuth(p.authorizer()).PostJSON(p.ctx, claims.SearchPath, criteria, p.cfg.GetSearchTimeout())
	if sresp != nil {
		p.rep.Printf("📥 Status Code: %d (%v, request %s)", sresp.StatusCode, sresp.Duration, sresp.RequestID)
		p.rep.KV(headerPairs(sresp.Headers)...)
	}
	if err != nil {
		p.fail("Claims Search", err)
	} else if res, derr := claims.DecodeSearchResult(sresp.Body); derr != nil {
		p.fail("Claims Search", derr)
	} else {
		p.rep.Success("Search successful! Claims found: %d", res.Count)
		p.tally.Pass("Claims Search", plural(res.Count, "claim"))
	}

	// Step 4: log hints
	p.rep.Header("🔍", "Step 4: Backend Log Commands")
	p.logHints()

	p.rep.Header("📊", "DIAGNOSTIC SUMMARY")
	for _, r := range p.tally.Results {
		status := "✅ OK"
		if !r.Passed {
			status = "❌ FAILED"
		}
		p.rep.KV(report.P(r.Name, status))
	}
	if !p.tally.AllPassed() {
		p.rep.Numbered("🔧 TROUBLESHOOTING STEPS",
			"Check if backend is running",
			"Verify the identity provider client is configured",
			"Check backend logs for errors",
			"Verify CORS settings",
			"Check if practice exists and has payer mapping",
		)
	}
	return p.finish()
}

func headerPairs(h map[string][]string) []report.Pair {
	names := make([]string, 0, len(h))
	for name := range h {
		names = append(names, name)
	}
	sort.Strings(names)
	pairs := make([]report.Pair, 0, len(names))
	for _, name := range names {
		pairs = append(pairs, report.Pair{Key: name, Value: strings.Join(h[name], ", ")})
	}
	return pairs
}

package main

import (
	"claimprobe/internal/claims"
	"claimprobe/internal/window"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// scenariosCmd runs the claim search test suite
var scenariosCmd = &cobra.Command{
	Use:   "scenarios [username] [password]",
	Short: "Run the claim search test suite against the first practice",
	Long: `Looks up the first practice visible to the user and runs four searches:
  1. Date range only (last 30 days)
  2. Date range + patient name
  3. Date range + patient name + DOB
  4. Shorter date range (last 7 days)

Prints a sample of each result, a summary, and troubleshooting tips when
any scenario failed.`,
	Args: cobra.MaximumNArgs(2),
	RunE: runScenarios,
}

type searchScenario struct {
	name     string
	criteria claims.SearchCriteria
}

// searchScenarios builds the four suite searches for practiceID.
func searchScenarios(now window.Window, week window.Window, practiceID string) []searchScenario {
	base := claims.SearchCriteria{
		FirstServiceDate: now.StartISO(),
		LastServiceDate:  now.EndISO(),
		PracticeID:       practiceID,
	}
	withName := base
	withName.PatientFirstName = "CHANTAL"
	withName.PatientLastName = "KISA"
	withDOB := withName
	withDOB.PatientDOB = "1975-05-10"
	short := base
	short.FirstServiceDate = week.StartISO()
	short.LastServiceDate = week.EndISO()

	return []searchScenario{
		{"Scenario 1: Date Range Only (Last 30 Days)", base},
		{"Scenario 2: Date Range + Patient Name", withName},
		{"Scenario 3: Date Range + Patient Name + DOB", withDOB},
		{"Scenario 4: Shorter Date Range (Last 7 Days)", short},
	}
}

func runScenarios(cmd *cobra.Command, args []string) error {
	p, err := newProbe(cmd, args)
	if err != nil {
		return err
	}
	defer p.close()

	p.rep.Banner("🚀 Claims Search Test Suite",
		"Test Time: "+clock().Format("2006-01-02 15:04:05"),
		"Username: "+p.cfg.Login())

	p.rep.Header("🧪", "Step 1: Getting Authentication Token")
	if !p.login() {
		p.rep.Error("Failed to authenticate. Cannot proceed with tests.")
		return p.finish()
	}

	c := p.claims()

	p.rep.Header("🧪", "Step 2: Getting Practice ID")
	practices, _, err := c.Practices(p.ctx, true)
	if err != nil {
		p.fail("Practice lookup", err)
		return p.finish()
	}
	if len(practices) == 0 {
		p.rep.Error("No practices found")
		p.tally.Fail("Practice lookup", "no practices")
		return p.finish()
	}
	practice := practices[0]
	p.rep.Success("Found practice: %s (ID: %s, TIN: %s)", practice.Name, practice.ID, practice.TIN)
	logger.Info("practice selected", zap.String("id", practice.ID.String()), zap.String("name", practice.Name))

	d := today()
	for _, sc := range searchScenarios(window.LastDays(d, 30), window.LastDays(d, 7), practice.ID.String()) {
		p.rep.Header("🧪", "Testing: "+sc.name)
		p.rep.Info("Search Parameters:")
		p.rep.KV(criteriaPairs(sc.criteria)...)

		res := p.search(sc.name, c, sc.criteria)
		if res == nil {
			continue
		}
		p.tally.Pass(sc.name, plural(res.Count, "claim"))
		if res.HasMore {
			p.rep.Info("More results available")
		}
		if len(res.Claims) > 0 {
			p.rep.Info("Sample Claims:")
			p.showSample(res, 3)
		}
	}

	err = p.finish()
	if err != nil {
		p.rep.Header("🔧", "TROUBLESHOOTING TIPS")
		p.logHints()
		p.rep.Section("Verify practice configuration",
			"Practice exists in database",
			"Practice has payer mapping",
			"User has correct organization TIN",
		)
		p.rep.Section("Check payer API credentials",
			"OAuth URL is correct",
			"Client ID and Secret are valid",
			"Payer ID matches",
		)
	}
	return err
}

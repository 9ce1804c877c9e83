package report

import (
	"fmt"

	"claimprobe/internal/logging"
)

// Result is the outcome of one probe scenario.
type Result struct {
	Name   string
	Passed bool
	Detail string
}

// Tally accumulates scenario outcomes for the closing summary.
type Tally struct {
	Results []Result
}

// Add records a scenario outcome.
func (t *Tally) Add(name string, passed bool, detail string) {
	t.Results = append(t.Results, Result{Name: name, Passed: passed, Detail: detail})
	logging.Report("%s: passed=%t %s", name, passed, detail)
}

// Pass records a passed scenario.
func (t *Tally) Pass(name, detail string) { t.Add(name, true, detail) }

// Fail records a failed scenario.
func (t *Tally) Fail(name, detail string) { t.Add(name, false, detail) }

func (t *Tally) Total() int { return len(t.Results) }

func (t *Tally) Passed() int {
	n := 0
	for _, r := range t.Results {
		if r.Passed {
			n++
		}
	}
	return n
}

func (t *Tally) Failed() int { return t.Total() - t.Passed() }

// Rate is the pass percentage, 0 for an empty tally.
func (t *Tally) Rate() float64 {
	if t.Total() == 0 {
		return 0
	}
	return float64(t.Passed()) / float64(t.Total()) * 100
}

// AllPassed is true when at least one scenario ran and none failed.
func (t *Tally) AllPassed() bool {
	return t.Total() > 0 && t.Failed() == 0
}

// Summary writes the closing test summary.
func (r *Reporter) Summary(t *Tally) {
	r.Header("📊", "TEST SUMMARY")
	r.KV(
		P("Total Tests", t.Total()),
		P("✅ Passed", t.Passed()),
		P("❌ Failed", t.Failed()),
		P("Success Rate", fmt.Sprintf("%.1f%%", t.Rate())),
	)
	r.println("")
	for _, res := range t.Results {
		line := res.Name
		if res.Detail != "" {
			line += " (" + res.Detail + ")"
		}
		if res.Passed {
			r.Success("%s", line)
		} else {
			r.Error("%s", line)
		}
	}
}

// Package consistency compares search outcomes across windows and filters.
// Every check is an assumption about the remote, so a failure is a finding,
// not an error.
package consistency

import (
	"fmt"
	"sort"
	"strings"

	"claimprobe/internal/claims"
	"claimprobe/internal/logging"
)

// Outcome is the part of a search result the checks compare.
type Outcome struct {
	Label        string
	Count        int
	Numbers      []string
	StatusCounts map[string]int
}

// FromResult projects a search result. Count is the number of claims returned.
func FromResult(label string, r *claims.SearchResult) Outcome {
	return Outcome{
		Label:        label,
		Count:        len(r.Claims),
		Numbers:      r.Numbers(),
		StatusCounts: r.StatusCounts(),
	}
}

func (o Outcome) set() map[string]struct{} {
	s := make(map[string]struct{}, len(o.Numbers))
	for _, n := range o.Numbers {
		s[n] = struct{}{}
	}
	return s
}

func sortedKeys(s map[string]struct{}) []string {
	out := make([]string, 0, len(s))
	for k := range s {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// Subset checks count(W, S) <= count(W, none).
type Subset struct {
	Filtered   int
	Unfiltered int
}

func (s Subset) Passed() bool { return s.Filtered <= s.Unfiltered }

// CheckSubset compares a filtered and an unfiltered search of one window.
func CheckSubset(filtered, unfiltered Outcome) Subset {
	return Subset{Filtered: filtered.Count, Unfiltered: unfiltered.Count}
}

// Baseline checks count(W, S) against the S records of the unfiltered search.
type Baseline struct {
	Status    string
	Expected  int
	Actual    int
	Breakdown map[string]int
}

func (b Baseline) Passed() bool { return b.Expected == b.Actual }

// CheckBaseline compares a filtered search against the unfiltered breakdown.
func CheckBaseline(filtered, unfiltered Outcome, status string) Baseline {
	return Baseline{
		Status:    status,
		Expected:  unfiltered.StatusCounts[status],
		Actual:    filtered.Count,
		Breakdown: unfiltered.StatusCounts,
	}
}

// Additivity checks count(W1 ∪ W2) == count(W1) + count(W2) for disjoint windows.
type Additivity struct {
	Expected int
	Actual   int

	UniqueFirst    int
	UniqueSecond   int
	UniqueCombined int
	ExpectedUnique int

	// Missing are in W1 or W2 but not in the combined search.
	Missing []string
	// Extra are in the combined search but in neither part.
	Extra []string
}

func (a Additivity) Passed() bool { return a.Expected == a.Actual }

// Shortfall is how many claims the combined search is missing by count.
func (a Additivity) Shortfall() int { return a.Expected - a.Actual }

// CheckAdditivity compares two part searches with their combined search.
// Set differences are only computed when the counts disagree.
func CheckAdditivity(first, second, combined Outcome) Additivity {
	a := Additivity{
		Expected: first.Count + second.Count,
		Actual:   combined.Count,
	}
	if a.Passed() {
		return a
	}

	s1, s2, s3 := first.set(), second.set(), combined.set()
	union := make(map[string]struct{}, len(s1)+len(s2))
	for k := range s1 {
		union[k] = struct{}{}
	}
	for k := range s2 {
		union[k] = struct{}{}
	}

	missing := make(map[string]struct{})
	for k := range union {
		if _, ok := s3[k]; !ok {
			missing[k] = struct{}{}
		}
	}
	extra := make(map[string]struct{})
	for k := range s3 {
		if _, ok := union[k]; !ok {
			extra[k] = struct{}{}
		}
	}

	a.UniqueFirst = len(s1)
	a.UniqueSecond = len(s2)
	a.UniqueCombined = len(s3)
	a.ExpectedUnique = len(union)
	a.Missing = sortedKeys(missing)
	a.Extra = sortedKeys(extra)
	return a
}

// StatusFilterReport is the analysis of the four status-filter searches.
type StatusFilterReport struct {
	Status   string
	First    Outcome // month 1, filtered
	Second   Outcome // month 2, filtered
	Combined Outcome // both months, filtered
	Baseline Outcome // both months, unfiltered

	Additivity    Additivity
	BaselineCheck Baseline
	Subset        Subset
}

// AnalyzeStatusFilter runs every check over the four searches.
func AnalyzeStatusFilter(status string, first, second, combined, baseline Outcome) StatusFilterReport {
	r := StatusFilterReport{
		Status:        status,
		First:         first,
		Second:        second,
		Combined:      combined,
		Baseline:      baseline,
		Additivity:    CheckAdditivity(first, second, combined),
		BaselineCheck: CheckBaseline(combined, baseline, status),
		Subset:        CheckSubset(combined, baseline),
	}
	for _, issue := range r.Issues() {
		logging.Get(logging.CategoryReport).Warn("status filter %s: %s", status, issue)
	}
	return r
}

// Issues lists every failed check in a stable order.
func (r StatusFilterReport) Issues() []string {
	var issues []string
	if !r.Additivity.Passed() {
		issues = append(issues, fmt.Sprintf("%s count (%d) != %s (%d) + %s (%d)",
			r.Combined.Label, r.Combined.Count, r.First.Label, r.First.Count, r.Second.Label, r.Second.Count))
		if len(r.Additivity.Missing) > 0 {
			issues = append(issues, "Missing claims: "+strings.Join(r.Additivity.Missing, ", "))
		}
	}
	if !r.BaselineCheck.Passed() {
		issues = append(issues, fmt.Sprintf("Baseline %s count (%d) != %s count (%d)",
			r.Status, r.BaselineCheck.Expected, r.Combined.Label, r.BaselineCheck.Actual))
	}
	if !r.Subset.Passed() {
		issues = append(issues, fmt.Sprintf("Filtered count (%d) exceeds unfiltered count (%d)",
			r.Subset.Filtered, r.Subset.Unfiltered))
	}
	return issues
}

// Passed is true when no check failed.
func (r StatusFilterReport) Passed() bool {
	return len(r.Issues()) == 0
}

// RoundTripResult compares uploaded claim numbers with those in a results file.
type RoundTripResult struct {
	Uploaded int
	Returned int
	Missing  []string
}

func (r RoundTripResult) Passed() bool { return len(r.Missing) == 0 }

// RoundTrip checks every uploaded number appears in returned. Blank entries
// are ignored and comparison is on trimmed values.
func RoundTrip(uploaded, returned []string) RoundTripResult {
	got := make(map[string]struct{}, len(returned))
	for _, n := range returned {
		if n = strings.TrimSpace(n); n != "" {
			got[n] = struct{}{}
		}
	}
	res := RoundTripResult{Returned: len(got)}
	missing := make(map[string]struct{})
	for _, n := range uploaded {
		n = strings.TrimSpace(n)
		if n == "" {
			continue
		}
		res.Uploaded++
		if _, ok := got[n]; !ok {
			missing[n] = struct{}{}
		}
	}
	res.Missing = sortedKeys(missing)
	return res
}

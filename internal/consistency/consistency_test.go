package consistency

import (
	"testing"

	"claimprobe/internal/claims"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func outcome(label string, numbers ...string) Outcome {
	return Outcome{Label: label, Count: len(numbers), Numbers: numbers}
}

func TestCheckAdditivity_Pass(t *testing.T) {
	a := CheckAdditivity(outcome("TC001", "A", "B"), outcome("TC002", "C"), outcome("TC003", "A", "B", "C"))
	assert.True(t, a.Passed())
	assert.Equal(t, 3, a.Expected)
	assert.Nil(t, a.Missing, "set analysis only runs on mismatch")
}

func TestCheckAdditivity_Mismatch(t *testing.T) {
	a := CheckAdditivity(
		outcome("TC001", "A", "B", "B"),
		outcome("TC002", "C", "D"),
		outcome("TC003", "A", "C", "X"),
	)
	require.False(t, a.Passed())
	assert.Equal(t, 5, a.Expected)
	assert.Equal(t, 3, a.Actual)
	assert.Equal(t, 2, a.Shortfall())
	assert.Equal(t, 2, a.UniqueFirst)
	assert.Equal(t, 2, a.UniqueSecond)
	assert.Equal(t, 3, a.UniqueCombined)
	assert.Equal(t, 4, a.ExpectedUnique)

	if diff := cmp.Diff([]string{"B", "D"}, a.Missing); diff != "" {
		t.Errorf("missing mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"X"}, a.Extra); diff != "" {
		t.Errorf("extra mismatch (-want +got):\n%s", diff)
	}
}

func TestCheckBaselineAndSubset(t *testing.T) {
	unfiltered := Outcome{Count: 10, StatusCounts: map[string]int{"DENIED": 4, "PAID": 6}}

	b := CheckBaseline(outcome("TC003", "1", "2", "3", "4"), unfiltered, "DENIED")
	assert.True(t, b.Passed())

	b = CheckBaseline(outcome("TC003", "1"), unfiltered, "DENIED")
	assert.False(t, b.Passed())
	assert.Equal(t, 4, b.Expected)

	assert.Equal(t, 0, CheckBaseline(outcome("x"), unfiltered, "PENDING").Expected)

	assert.True(t, CheckSubset(outcome("f", "1"), unfiltered).Passed())
	assert.False(t, CheckSubset(Outcome{Count: 11}, unfiltered).Passed())
}

func TestAnalyzeStatusFilter(t *testing.T) {
	tc1 := outcome("TC001", "A", "B")
	tc2 := outcome("TC002", "C")
	baseline := Outcome{Label: "TC004", Count: 5, StatusCounts: map[string]int{"DENIED": 3, "PAID": 2}}

	t.Run("all pass", func(t *testing.T) {
		r := AnalyzeStatusFilter("DENIED", tc1, tc2, outcome("TC003", "A", "B", "C"), baseline)
		assert.True(t, r.Passed())
		assert.Empty(t, r.Issues())
	})

	t.Run("lost claims", func(t *testing.T) {
		r := AnalyzeStatusFilter("DENIED", tc1, tc2, outcome("TC003", "A"), baseline)
		assert.False(t, r.Passed())
		want := []string{
			"TC003 count (1) != TC001 (2) + TC002 (1)",
			"Missing claims: B, C",
			"Baseline DENIED count (3) != TC003 count (1)",
		}
		if diff := cmp.Diff(want, r.Issues()); diff != "" {
			t.Errorf("issues mismatch (-want +got):\n%s", diff)
		}
	})
}

func TestFromResult(t *testing.T) {
	res := &claims.SearchResult{
		Count: 99,
		Claims: []claims.Claim{
			{ClaimNumber: "A", Status: "DENIED"},
			{ClaimNumber: " B ", Status: "PAID"},
		},
	}
	o := FromResult("TC004", res)
	assert.Equal(t, 2, o.Count, "count is what was returned, not the reported total")
	assert.Equal(t, []string{"A", "B"}, o.Numbers)
	assert.Equal(t, map[string]int{"DENIED": 1, "PAID": 1}, o.StatusCounts)
}

func TestRoundTrip(t *testing.T) {
	r := RoundTrip([]string{"FH65850583", " FH73828971", "", "FH73828973"}, []string{"FH65850583", "FH73828971 ", "OTHER"})
	assert.False(t, r.Passed())
	assert.Equal(t, 3, r.Uploaded)
	assert.Equal(t, 3, r.Returned)
	assert.Equal(t, []string{"FH73828973"}, r.Missing)

	assert.True(t, RoundTrip([]string{"A"}, []string{"A", "B"}).Passed())
}

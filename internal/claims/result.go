package claims

import "strings"

// Numbers returns claim numbers in response order.
func (r *SearchResult) Numbers() []string {
	out := make([]string, 0, len(r.Claims))
	for _, c := range r.Claims {
		out = append(out, c.Number())
	}
	return out
}

// StatusCounts counts claims by status.
func (r *SearchResult) StatusCounts() map[string]int {
	counts := make(map[string]int)
	for _, c := range r.Claims {
		counts[c.Status]++
	}
	return counts
}

// Find returns the claim whose trimmed number equals number.
func (r *SearchResult) Find(number string) (Claim, bool) {
	number = strings.TrimSpace(number)
	for _, c := range r.Claims {
		if c.Number() == number {
			return c, true
		}
	}
	return Claim{}, false
}

// ContainsAll reports, for each number, whether it is present.
func (r *SearchResult) ContainsAll(numbers []string) map[string]bool {
	present := make(map[string]bool, len(r.Claims))
	for _, n := range r.Numbers() {
		present[n] = true
	}
	out := make(map[string]bool, len(numbers))
	for _, n := range numbers {
		out[n] = present[strings.TrimSpace(n)]
	}
	return out
}

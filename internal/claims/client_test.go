package claims

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"claimprobe/internal/transport"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const searchBody = `{
  "claims": [
    {"claimNumber": "51598988", "status": "PAID", "patient": "TOMMY HOWELL", "chargedAmount": 120.5, "paidAmount": "80.00"},
    {"claimNumber": 51611599, "status": "DENIED", "patient": {"firstName": "MOSTAFA", "lastName": "KORDI", "dateOfBirth": "02/03/1961"},
     "subscriber": {"subscriberId": "S-9"}, "serviceLines": [{"serviceDate": "2025-07-03"}]},
    {"claimNumber": " FE98163821 ", "status": "DENIED", "patient": null, "subscriber": {"memberId": "M-1", "subscriberId": "S-2"}}
  ],
  "hasMore": true,
  "transactionId": "tx-1"
}`

func newTestClient(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	base := transport.NewClient(&transport.ClientConfig{BaseURL: srv.URL, RateLimit: 100, RateBurst: 10})
	t.Cleanup(base.CloseIdleConnections)
	return NewClient(base, transport.BearerToken{Token: "tok"})
}

func TestDecodeSearchResult(t *testing.T) {
	res, err := DecodeSearchResult([]byte(searchBody))
	require.NoError(t, err)

	assert.Equal(t, 3, res.Count, "count falls back to len(claims)")
	assert.True(t, res.HasMore)
	assert.Equal(t, "tx-1", res.TransactionID)
	assert.Equal(t, []string{"51598988", "51611599", "FE98163821"}, res.Numbers())

	first := res.Claims[0]
	assert.Equal(t, "TOMMY HOWELL", first.Patient.String())
	assert.Equal(t, "120.5", first.ChargedAmount.String())
	assert.Equal(t, "80.00", first.PaidAmount.String())

	second := res.Claims[1]
	assert.Equal(t, "MOSTAFA", second.Patient.FirstName)
	assert.Equal(t, "MOSTAFA KORDI", second.Patient.String())
	assert.Equal(t, "S-9", second.Subscriber.ID())
	assert.Equal(t, "2025-07-03", second.EarliestServiceDate())

	third := res.Claims[2]
	assert.Equal(t, Patient{}, third.Patient)
	assert.Equal(t, "M-1", third.Subscriber.ID())
}

func TestDecodeSearchResult_ExplicitCount(t *testing.T) {
	res, err := DecodeSearchResult([]byte(`{"claims": [], "count": 42}`))
	require.NoError(t, err)
	assert.Equal(t, 42, res.Count)
	assert.Empty(t, res.Claims)
}

func TestDecodeSearchResult_Malformed(t *testing.T) {
	_, err := DecodeSearchResult([]byte(`<html>`))
	assert.Error(t, err)
}

func TestSearchResultHelpers(t *testing.T) {
	res, err := DecodeSearchResult([]byte(searchBody))
	require.NoError(t, err)

	if diff := cmp.Diff(map[string]int{"PAID": 1, "DENIED": 2}, res.StatusCounts()); diff != "" {
		t.Errorf("StatusCounts mismatch (-want +got):\n%s", diff)
	}

	c, ok := res.Find(" FE98163821")
	require.True(t, ok)
	assert.Equal(t, "DENIED", c.Status)

	_, ok = res.Find("nope")
	assert.False(t, ok)

	want := map[string]bool{"51598988": true, "51545088": false, "FE98163821": true}
	if diff := cmp.Diff(want, res.ContainsAll([]string{"51598988", "51545088", "FE98163821"})); diff != "" {
		t.Errorf("ContainsAll mismatch (-want +got):\n%s", diff)
	}
}

func TestSearchCriteria_OmitsEmpty(t *testing.T) {
	data, err := json.Marshal(SearchCriteria{FirstServiceDate: "2025-07-01", LastServiceDate: "2025-07-03"})
	require.NoError(t, err)
	assert.JSONEq(t, `{"firstServiceDate":"2025-07-01","lastServiceDate":"2025-07-03"}`, string(data))

	c := SearchCriteria{FirstServiceDate: "a", LastServiceDate: "b", StatusFilter: "DENIED"}
	assert.Equal(t, [][2]string{{"firstServiceDate", "a"}, {"lastServiceDate", "b"}, {"statusFilter", "DENIED"}}, c.Fields())
}

func TestClient_Search(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, SearchPath, r.URL.Path)
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		var got SearchCriteria
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		assert.Equal(t, "1", got.PracticeID)
		assert.Equal(t, "DENIED", got.StatusFilter)
		_, _ = io.WriteString(w, searchBody)
	})

	res, err := c.Search(context.Background(), SearchCriteria{
		FirstServiceDate: "2024-07-01", LastServiceDate: "2024-07-31", PracticeID: "1", StatusFilter: "DENIED",
	})
	require.NoError(t, err)
	assert.Len(t, res.Claims, 3)
	assert.JSONEq(t, searchBody, string(res.Raw))
}

func TestClient_SearchError(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = io.WriteString(w, `{"error":"date range exceeds 90 days"}`)
	})

	_, err := c.Search(context.Background(), SearchCriteria{})
	require.Error(t, err)
	httpErr, ok := transport.AsHTTPError(err)
	require.True(t, ok)
	assert.True(t, httpErr.IsBadRequest())
}

func TestClient_Get(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/claims/FE23924647/", r.URL.Path)
		_, _ = io.WriteString(w, `{"patient":{"firstName":" KIMBERLY ","lastName":"KURAK","dateOfBirth":"1980-01-01"},"subscriber":{"memberId":"X1"}}`)
	})

	claim, err := c.Get(context.Background(), "FE23924647")
	require.NoError(t, err)
	assert.Equal(t, "FE23924647", claim.Number(), "number defaults to the requested one")
	assert.Equal(t, "X1", claim.Subscriber.ID())
}

func TestClient_Practices(t *testing.T) {
	tests := []struct {
		name          string
		body          string
		authenticated bool
		wantAuth      string
	}{
		{name: "bare array anonymous", body: `[{"id": 1, "name": "RSM", "tin": "854203105"}]`},
		{name: "paginated authenticated", body: `{"results": [{"id": "1", "name": "RSM", "tin": 854203105}]}`, authenticated: true, wantAuth: "Bearer tok"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, tt.wantAuth, r.Header.Get("Authorization"))
				_, _ = io.WriteString(w, tt.body)
			})
			practices, resp, err := c.Practices(context.Background(), tt.authenticated)
			require.NoError(t, err)
			assert.Equal(t, 200, resp.StatusCode)
			want := []Practice{{ID: "1", Name: "RSM", TIN: "854203105"}}
			if diff := cmp.Diff(want, practices); diff != "" {
				t.Errorf("practices mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestDecodePractices_UnexpectedShape(t *testing.T) {
	_, err := DecodePractices([]byte(`{"detail": "x"}`))
	assert.Error(t, err)
}

func TestClient_ProbeBulkEndpoint(t *testing.T) {
	tests := []struct {
		status       int
		reachable    bool
		unauthorized bool
	}{
		{status: 400, reachable: true},
		{status: 401, unauthorized: true},
		{status: 403, unauthorized: true},
		{status: 405},
	}
	for _, tt := range tests {
		t.Run(http.StatusText(tt.status), func(t *testing.T) {
			c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, BulkUploadPath, r.URL.Path)
				w.WriteHeader(tt.status)
				_, _ = io.WriteString(w, `{"error":"No file provided"}`)
			})
			probe, err := c.ProbeBulkEndpoint(context.Background(), true)
			require.NoError(t, err)
			assert.Equal(t, tt.status, probe.StatusCode)
			assert.Equal(t, tt.reachable, probe.Reachable())
			assert.Equal(t, tt.unauthorized, probe.Unauthorized())
			assert.Contains(t, probe.Body, "No file")
		})
	}
}

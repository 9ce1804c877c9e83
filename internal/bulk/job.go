package bulk

import (
	"fmt"

	"claimprobe/internal/claims"
	"claimprobe/internal/config"
)

// Job statuses the remote reports.
const (
	StatusPending    = "PENDING"
	StatusQueued     = "QUEUED"
	StatusProcessing = "PROCESSING"
	StatusCompleted  = "COMPLETED"
	StatusFailed     = "FAILED"
	StatusCancelled  = "CANCELLED"
)

// Job is a bulk processing job.
type Job struct {
	ID            claims.Text `json:"id"`
	Status        string      `json:"status"`
	Filename      string      `json:"filename"`
	TotalRows     int         `json:"total_rows"`
	ProcessedRows int         `json:"processed_rows"`
	SuccessCount  int         `json:"success_count"`
	FailureCount  int         `json:"failure_count"`
	ErrorLog      claims.Text `json:"error_log"`
}

// Terminal reports whether the job stopped changing.
func (j *Job) Terminal() bool {
	switch j.Status {
	case StatusCompleted, StatusFailed, StatusCancelled:
		return true
	}
	return false
}

// Completed is true for COMPLETED.
func (j *Job) Completed() bool { return j.Status == StatusCompleted }

// Failed is true for FAILED.
func (j *Job) Failed() bool { return j.Status == StatusFailed }

// Progress is processed/total as a percentage, 0 when total is 0.
func (j *Job) Progress() float64 {
	if j.TotalRows <= 0 {
		return 0
	}
	return float64(j.ProcessedRows) / float64(j.TotalRows) * 100
}

// Verify returns the job invariants that do not hold.
func Verify(j *Job) []string {
	var violations []string
	if j.Completed() && j.ProcessedRows != j.TotalRows {
		violations = append(violations, fmt.Sprintf("completed with %d of %d rows processed", j.ProcessedRows, j.TotalRows))
	}
	if j.SuccessCount+j.FailureCount != j.ProcessedRows {
		violations = append(violations, fmt.Sprintf("success (%d) + failure (%d) != processed (%d)", j.SuccessCount, j.FailureCount, j.ProcessedRows))
	}
	return violations
}

// JobAPI is one flavor of the job status and results endpoints.
type JobAPI struct {
	Name    string
	status  string
	results string
	detail  string
}

var jobAPIs = map[string]JobAPI{
	config.JobAPICSV: {
		Name:    config.JobAPICSV,
		status:  "/api/v1/claims/csv-jobs/%s/",
		results: "/api/v1/claims/csv-jobs/%s/download_results/",
		detail:  "/api/v1/claims/csv-jobs/%s/",
	},
	config.JobAPIBulk: {
		Name:    config.JobAPIBulk,
		status:  "/api/v1/claims/bulk/jobs/%s/progress/",
		results: "/api/v1/claims/bulk/jobs/%s/download_results/",
		detail:  "/api/v1/claims/bulk/jobs/%s/",
	},
}

// LookupJobAPI returns the flavor registered under name.
func LookupJobAPI(name string) (JobAPI, error) {
	api, ok := jobAPIs[name]
	if !ok {
		return JobAPI{}, fmt.Errorf("unknown job api: %s", name)
	}
	return api, nil
}

func (a JobAPI) StatusPath(id string) string  { return fmt.Sprintf(a.status, id) }
func (a JobAPI) ResultsPath(id string) string { return fmt.Sprintf(a.results, id) }
func (a JobAPI) DetailPath(id string) string  { return fmt.Sprintf(a.detail, id) }

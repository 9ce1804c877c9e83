// Package bulk submits CSV files for bulk claim processing, follows the
// resulting job and fetches its results.
package bulk

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"claimprobe/internal/claims"
	"claimprobe/internal/logging"
	"claimprobe/internal/transport"
)

// UploadOptions are the form fields sent with the file.
type UploadOptions struct {
	Provider      string
	UseBatchQuery bool
	StartDate     string // optional, ISO
	EndDate       string // optional, ISO
}

func (o UploadOptions) fields() [][2]string {
	fields := [][2]string{
		{"provider", o.Provider},
		{"use_batch_query", strconv.FormatBool(o.UseBatchQuery)},
	}
	if o.StartDate != "" {
		fields = append(fields, [2]string{"start_date", o.StartDate})
	}
	if o.EndDate != "" {
		fields = append(fields, [2]string{"end_date", o.EndDate})
	}
	return fields
}

// Client calls the bulk upload and job endpoints.
type Client struct {
	http *transport.Client
	api  JobAPI

	UploadTimeout   time.Duration
	StatusTimeout   time.Duration
	DownloadTimeout time.Duration
}

// NewClient binds a bulk client to base, authorizing with authz.
func NewClient(base *transport.Client, authz transport.Authorizer, api JobAPI) *Client {
	return &Client{
		http:            base.WithAuth(authz),
		api:             api,
		UploadTimeout:   30 * time.Second,
		StatusTimeout:   10 * time.Second,
		DownloadTimeout: 30 * time.Second,
	}
}

// API returns the job endpoint flavor in use.
func (c *Client) API() JobAPI { return c.api }

// Upload reads path and submits it.
func (c *Client) Upload(ctx context.Context, path string, opts UploadOptions) (*Job, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read upload file: %w", err)
	}
	return c.UploadBytes(ctx, filepath.Base(path), data, opts)
}

// UploadBytes submits CSV content as a multipart file named filename.
// 200 and 201 decode to the created job.
func (c *Client) UploadBytes(ctx context.Context, filename string, content []byte, opts UploadOptions) (*Job, error) {
	logging.Bulk("upload %s (%d bytes) provider=%s batch=%v", filename, len(content), opts.Provider, opts.UseBatchQuery)

	file := &transport.FilePart{Field: "file", Filename: filename, ContentType: "text/csv", Content: content}
	resp, err := c.http.PostMultipart(ctx, claims.BulkUploadPath, opts.fields(), file, c.UploadTimeout)
	if err != nil {
		logging.Get(logging.CategoryBulk).Warn("upload %s failed: %v", filename, err)
		return nil, fmt.Errorf("upload %s: %w", filename, err)
	}

	var job Job
	if err := resp.JSON(&job); err != nil {
		return nil, fmt.Errorf("upload %s: %w", filename, err)
	}
	logging.Bulk("upload %s created job %s (%s, %d rows)", filename, job.ID, job.Status, job.TotalRows)
	return &job, nil
}

// Status fetches the current state of a job.
func (c *Client) Status(ctx context.Context, id string) (*Job, error) {
	resp, err := c.http.Get(ctx, c.api.StatusPath(url.PathEscape(id)), c.StatusTimeout)
	if err != nil {
		return nil, fmt.Errorf("job %s status: %w", id, err)
	}
	var job Job
	if err := resp.JSON(&job); err != nil {
		return nil, fmt.Errorf("job %s status: %w", id, err)
	}
	if job.ID == "" {
		job.ID = claims.Text(id)
	}
	return &job, nil
}

// Detail fetches the full job record, which carries the error log.
func (c *Client) Detail(ctx context.Context, id string) (*Job, error) {
	resp, err := c.http.Get(ctx, c.api.DetailPath(url.PathEscape(id)), c.StatusTimeout)
	if err != nil {
		return nil, fmt.Errorf("job %s detail: %w", id, err)
	}
	var job Job
	if err := resp.JSON(&job); err != nil {
		return nil, fmt.Errorf("job %s detail: %w", id, err)
	}
	return &job, nil
}

// DownloadResults writes the results CSV to path and returns up to preview
// lines of it.
func (c *Client) DownloadResults(ctx context.Context, id, path string, preview int) ([]string, error) {
	resp, err := c.http.Get(ctx, c.api.ResultsPath(url.PathEscape(id)), c.DownloadTimeout)
	if err != nil {
		return nil, fmt.Errorf("download results for job %s: %w", id, err)
	}

	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("create results directory: %w", err)
		}
	}
	if err := os.WriteFile(path, resp.Body, 0644); err != nil {
		return nil, fmt.Errorf("write results: %w", err)
	}
	logging.Bulk("job %s results written to %s (%d bytes)", id, path, len(resp.Body))

	return previewLines(resp.Body, preview), nil
}

func previewLines(data []byte, n int) []string {
	var lines []string
	sc := bufio.NewScanner(bytes.NewReader(data))
	for sc.Scan() && len(lines) < n {
		lines = append(lines, sc.Text())
	}
	return lines
}

package main

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"claimprobe/internal/auth"
	"claimprobe/internal/bulk"
	"claimprobe/internal/claims"
	"claimprobe/internal/config"
	"claimprobe/internal/report"
	"claimprobe/internal/transport"
	"claimprobe/internal/window"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// clock is overridden in tests.
var clock = time.Now

// probe carries what every command needs for one run.
type probe struct {
	ctx   context.Context
	cfg   *config.Config
	env   config.EnvironmentConfig
	rep   *report.Reporter
	http  *transport.Client
	token *auth.Token
	tally report.Tally
}

// newProbe binds a probe to cmd's context and output. Positional credentials
// in creds (username, password) override flags and environment.
func newProbe(cmd *cobra.Command, creds []string) (*probe, error) {
	if cfg == nil {
		loaded, err := loadConfig()
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if len(creds) > 0 && creds[0] != "" {
		cfg.Username = creds[0]
	}
	if len(creds) > 1 && creds[1] != "" {
		cfg.Password = creds[1]
	}

	env, err := cfg.Active()
	if err != nil {
		return nil, err
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	return &probe{
		ctx: ctx,
		cfg: cfg,
		env: env,
		rep: report.New(cmd.OutOrStdout()),
		http: transport.NewClient(&transport.ClientConfig{
			BaseURL:            env.BaseURL,
			Timeout:            cfg.GetFetchTimeout(),
			MaxRetries:         cfg.Transport.MaxRetries,
			RateLimit:          cfg.Transport.RateLimit,
			RateBurst:          cfg.Transport.RateBurst,
			UserAgent:          cfg.Transport.UserAgent,
			InsecureSkipVerify: env.InsecureSkipVerify,
		}),
	}, nil
}

func (p *probe) close() {
	p.http.CloseIdleConnections()
}

// authorizer returns the bearer token once logged in.
func (p *probe) authorizer() transport.Authorizer {
	if p.token == nil {
		return transport.NoAuth{}
	}
	return p.token.Bearer()
}

// login obtains a token, prompting for a missing password on a terminal.
// Failures are reported and recorded; the caller stops the probe.
// needsCredentials reports whether a password login is missing its password.
func (p *probe) needsCredentials() bool {
	return p.cfg.Token == "" && p.env.Auth.Mode == config.AuthPassword && p.cfg.Password == ""
}

// askCredentials prompts on the terminal. A prompt that cannot run is logged
// and left to the authenticator to report as missing credentials.
func (p *probe) askCredentials(askUser bool) {
	if err := promptCredentials(p.cfg, askUser); err != nil {
		logger.Debug("credential prompt skipped", zap.Error(err))
	}
}

func (p *probe) login() bool {
	p.rep.Step("Authenticating against %s (%s)", p.env.BaseURL, p.cfg.Environment)

	if p.needsCredentials() {
		p.askCredentials(false)
	}

	authn, err := auth.New(p.cfg, p.http)
	if err != nil {
		p.rep.Error("Authentication setup failed: %v", err)
		p.tally.Fail("Authentication", err.Error())
		return false
	}

	tok, err := authn.Token(p.ctx)
	if err != nil {
		p.fail("Authentication", err)
		if errors.Is(err, auth.ErrMissingCredentials) {
			p.rep.Info("Pass credentials as arguments, --username/--password, or CLAIMPROBE_USERNAME/CLAIMPROBE_PASSWORD")
		}
		return false
	}

	p.token = tok
	p.rep.Success("Authenticated via %s (token %s)", authn.Name(), tok.Preview(20))
	logger.Debug("authenticated", zap.String("source", tok.Source), zap.Int("expires_in", tok.ExpiresIn))
	return true
}

func (p *probe) claims() *claims.Client {
	c := claims.NewClient(p.http, p.authorizer()).WithSearchTimeout(p.cfg.GetSearchTimeout())
	c.FetchTimeout = p.cfg.GetFetchTimeout()
	return c
}

func (p *probe) bulk() (*bulk.Client, error) {
	api, err := bulk.LookupJobAPI(p.cfg.Bulk.JobAPI)
	if err != nil {
		return nil, err
	}
	c := bulk.NewClient(p.http, p.authorizer(), api)
	c.UploadTimeout = p.cfg.GetUploadTimeout()
	c.StatusTimeout = p.cfg.GetStatusTimeout()
	c.DownloadTimeout = p.cfg.GetDownloadTimeout()
	return c, nil
}

func (p *probe) poller(c *bulk.Client) *bulk.Poller {
	return &bulk.Poller{
		Client:   c,
		Interval: p.cfg.GetPollInterval(),
		MaxWait:  p.cfg.GetPollMaxWait(),
		OnProgress: func(check int, job *bulk.Job) {
			p.rep.Printf("   Check %d: %s (%d/%d rows, %.1f%%)", check, job.Status, job.ProcessedRows, job.TotalRows, job.Progress())
		},
		OnError: func(check int, err error) {
			p.rep.Warn("Check %d failed: %v", check, err)
		},
	}
}

// showError prints err with the HTTP body and a status hint when present.
func (p *probe) showError(what string, err error) {
	p.rep.Error("%s failed: %v", what, err)
	if httpErr, ok := transport.AsHTTPError(err); ok {
		if body := httpErr.Pretty(500); body != "" {
			p.rep.Printf("   Response: %s", body)
		}
		switch {
		case httpErr.IsAuth():
			p.rep.Warn("Authentication rejected (HTTP %d)", httpErr.StatusCode)
		case httpErr.IsBadRequest():
			p.rep.Warn("Request rejected by the server (HTTP %d)", httpErr.StatusCode)
		}
		if hint := httpErr.Hint(); hint != "" {
			p.rep.Info("%s", hint)
		}
	}
}

// fail reports err and records a failed scenario.
func (p *probe) fail(name string, err error) {
	p.showError(name, err)
	p.tally.Fail(name, err.Error())
}

// checkWindow prints advisory warnings for w.
func (p *probe) checkWindow(w window.Window) {
	for _, warning := range window.Check(w, clock()) {
		p.rep.Warn("%s: %s", w, warning)
	}
}

func (p *probe) logHints() {
	p.rep.Commands("Check backend logs", p.env.LogHints)
}

// search runs one search and reports it, returning nil on failure.
func (p *probe) search(name string, c *claims.Client, criteria claims.SearchCriteria) *claims.SearchResult {
	w, err := window.Parse(criteria.FirstServiceDate, criteria.LastServiceDate)
	if err == nil {
		p.checkWindow(w)
	}

	start := time.Now()
	res, err := c.Search(p.ctx, criteria)
	if err != nil {
		p.fail(name, err)
		return nil
	}
	p.rep.Success("%s: %d claims in %v", name, res.Count, time.Since(start).Round(time.Millisecond))
	if res.TransactionID != "" {
		p.rep.Info("Transaction ID: %s", res.TransactionID)
	}
	return res
}

// showSample prints up to n claims as a table.
func (p *probe) showSample(res *claims.SearchResult, n int) {
	if res == nil || len(res.Claims) == 0 {
		return
	}
	rows := make([][]string, 0, n)
	for i, c := range res.Claims {
		if i == n {
			break
		}
		rows = append(rows, []string{c.Number(), c.Patient.String(), c.Status, c.ChargedAmount.String(), c.PaidAmount.String()})
	}
	p.rep.Table([]string{"Claim", "Patient", "Status", "Charged", "Paid"}, rows)
	if len(res.Claims) > n {
		p.rep.Muted("   ... and %d more", len(res.Claims)-n)
	}
}

// showStatuses prints the status breakdown of res.
func (p *probe) showStatuses(res *claims.SearchResult) {
	counts := res.StatusCounts()
	if len(counts) == 0 {
		return
	}
	p.rep.Counts(sortedKeys(counts), counts)
}

// finish prints the summary and maps the tally to the exit status.
func (p *probe) finish() error {
	p.rep.Summary(&p.tally)
	if !p.tally.AllPassed() {
		return errProbeFailed
	}
	return nil
}

func sortedKeys(m map[string]int) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func today() time.Time {
	return window.Day(clock())
}

func plural(n int, word string) string {
	if n == 1 {
		return fmt.Sprintf("%d %s", n, word)
	}
	return fmt.Sprintf("%d %ss", n, word)
}

func criteriaPairs(c claims.SearchCriteria) []report.Pair {
	fields := c.Fields()
	pairs := make([]report.Pair, 0, len(fields))
	for _, f := range fields {
		pairs = append(pairs, report.Pair{Key: f[0], Value: f[1]})
	}
	return pairs
}

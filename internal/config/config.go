package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"sort"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all claimprobe configuration.
type Config struct {
	// Environment selects an entry of Environments.
	Environment string `yaml:"environment"`

	// Environments keyed by name (production, preprod, ...).
	Environments map[string]EnvironmentConfig `yaml:"environments"`

	// Per-call timeouts
	Timeouts TimeoutsConfig `yaml:"timeouts"`

	// Bulk job polling
	Poll PollConfig `yaml:"poll"`

	// Bulk upload defaults
	Bulk BulkConfig `yaml:"bulk"`

	// HTTP transport tuning
	Transport TransportConfig `yaml:"transport"`

	// Artifact output
	Output OutputConfig `yaml:"output"`

	// Logging
	Logging LoggingConfig `yaml:"logging"`

	// Credentials never come from the file; they are filled from env/flags.
	Username string `yaml:"-"`
	Password string `yaml:"-"`
	Token    string `yaml:"-"`
}

// EnvironmentConfig describes one deployment of the claims backend.
type EnvironmentConfig struct {
	BaseURL            string     `yaml:"base_url"`
	FrontendURL        string     `yaml:"frontend_url"`
	InsecureSkipVerify bool       `yaml:"insecure_skip_verify"` // pre-prod uses a self-signed chain
	Auth               AuthConfig `yaml:"auth"`
	LogHints           []string   `yaml:"log_hints"` // remote log inspection commands printed on failure
}

// AuthConfig configures how a bearer token is obtained.
type AuthConfig struct {
	Mode     string `yaml:"mode"` // mock, password, token
	TokenURL string `yaml:"token_url"`
	ClientID string `yaml:"client_id"`
	Scope    string `yaml:"scope"`
	Username string `yaml:"username"` // default login, password is never stored
}

// TimeoutsConfig holds duration strings per call type.
type TimeoutsConfig struct {
	Auth     string `yaml:"auth"`
	Search   string `yaml:"search"`
	Fetch    string `yaml:"fetch"`
	Upload   string `yaml:"upload"`
	Status   string `yaml:"status"`
	Download string `yaml:"download"`
}

// PollConfig configures the bulk job poller.
type PollConfig struct {
	Interval string `yaml:"interval"`
	MaxWait  string `yaml:"max_wait"`
}

// BulkConfig holds bulk upload defaults.
type BulkConfig struct {
	Provider      string `yaml:"provider"`
	UseBatchQuery bool   `yaml:"use_batch_query"`
	JobAPI        string `yaml:"job_api"` // csv-jobs, bulk-jobs
}

// TransportConfig tunes the shared HTTP client.
type TransportConfig struct {
	RateLimit  float64 `yaml:"rate_limit"`
	RateBurst  int     `yaml:"rate_burst"`
	MaxRetries int     `yaml:"max_retries"`
	UserAgent  string  `yaml:"user_agent"`
}

// OutputConfig controls where artifacts land.
type OutputConfig struct {
	Dir          string `yaml:"dir"`
	TemplatesDir string `yaml:"templates_dir"`
}

// Auth modes.
const (
	AuthMock     = "mock"
	AuthPassword = "password"
	AuthToken    = "token"
)

// Job API flavors.
const (
	JobAPICSV  = "csv-jobs"
	JobAPIBulk = "bulk-jobs"
)

// Version is reported in the User-Agent.
const Version = "0.4.0"

var (
	validAuthModes = []string{AuthMock, AuthPassword, AuthToken}
	validJobAPIs   = []string{JobAPICSV, JobAPIBulk}
)

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Environment: "preprod",
		Environments: map[string]EnvironmentConfig{
			"production": {
				BaseURL:     "https://connectme.be.totesoft.com",
				FrontendURL: "https://connectme.apps.totesoft.com",
				Auth: AuthConfig{
					Mode: AuthMock,
				},
				LogHints: []string{
					"ssh user@server 'cd /var/www/connectme-backend && source venv/bin/activate && python manage.py shell'",
				},
			},
			"preprod": {
				BaseURL:            "https://pre-prod.connectme.be.totessoft.com",
				FrontendURL:        "https://pre-prod.connectme.apps.totessoft.com",
				InsecureSkipVerify: true,
				Auth: AuthConfig{
					Mode:     AuthPassword,
					TokenURL: "https://auth.totesoft.com/realms/connectme-preprod/protocol/openid-connect/token",
					ClientID: "connectme-preprod-frontend",
					Scope:    "openid profile email",
					Username: "vigneshr",
				},
				LogHints: []string{
					"ssh connectme@169.59.163.43 'sudo journalctl -u connectme-preprod-backend -n 100 --no-pager'",
					"ssh connectme@169.59.163.43 'sudo journalctl -u connectme-preprod-backend -f'",
					"ssh connectme@169.59.163.43 'sudo systemctl status connectme-preprod-celery'",
					"ssh connectme@169.59.163.43 'sudo tail -100 /var/www/connectme-preprod-backend/logs/celery.log'",
					"ssh connectme@169.59.163.43 'sudo tail -100 /var/www/connectme-preprod-backend/logs/gunicorn-error.log'",
				},
			},
		},

		Timeouts: TimeoutsConfig{
			Auth:     "10s",
			Search:   "60s",
			Fetch:    "30s",
			Upload:   "30s",
			Status:   "10s",
			Download: "30s",
		},

		Poll: PollConfig{
			Interval: "3s",
			MaxWait:  "60s",
		},

		Bulk: BulkConfig{
			Provider:      "uhc",
			UseBatchQuery: true,
			JobAPI:        JobAPICSV,
		},

		Transport: TransportConfig{
			RateLimit:  5,
			RateBurst:  1,
			MaxRetries: 0,
			UserAgent:  "claimprobe/" + Version,
		},

		Output: OutputConfig{
			Dir:          ".",
			TemplatesDir: "csv-templates",
		},

		Logging: LoggingConfig{
			Level: "warn",
		},
	}
}

// DefaultConfigPath returns the default path to .claimprobe/config.yaml.
func DefaultConfigPath() string {
	cwd, err := os.Getwd()
	if err != nil {
		return ".claimprobe/config.yaml"
	}
	return filepath.Join(cwd, ".claimprobe", "config.yaml")
}

// Load loads configuration from a YAML file.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
		// Defaults if config file doesn't exist
	} else if err := cfg.decode(data); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.applyEnvOverrides()

	return cfg, nil
}

// decode unmarshals data onto c. An environment the file names is merged
// onto the built-in entry of the same name instead of replacing it, so a file
// may override a single field such as base_url.
func (c *Config) decode(data []byte) error {
	defaults := make(map[string]EnvironmentConfig, len(c.Environments))
	for name, env := range c.Environments {
		defaults[name] = env
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return err
	}

	var file struct {
		Environments map[string]yaml.Node `yaml:"environments"`
	}
	if err := yaml.Unmarshal(data, &file); err != nil {
		return err
	}
	for name, node := range file.Environments {
		env, ok := defaults[name]
		if !ok {
			continue
		}
		if err := node.Decode(&env); err != nil {
			return fmt.Errorf("environment %s: %w", name, err)
		}
		c.Environments[name] = env
	}
	return nil
}

// applyEnvOverrides applies environment variable overrides.
func (c *Config) applyEnvOverrides() {
	if env := os.Getenv("CLAIMPROBE_ENV"); env != "" {
		c.Environment = env
	}

	if base := os.Getenv("CLAIMPROBE_BASE_URL"); base != "" {
		env := c.Environments[c.Environment]
		env.BaseURL = base
		c.setEnvironment(c.Environment, env)
	}
	if tokenURL := os.Getenv("CLAIMPROBE_TOKEN_URL"); tokenURL != "" {
		env := c.Environments[c.Environment]
		env.Auth.TokenURL = tokenURL
		c.setEnvironment(c.Environment, env)
	}

	if user := os.Getenv("CLAIMPROBE_USERNAME"); user != "" {
		c.Username = user
	}
	if pass := os.Getenv("CLAIMPROBE_PASSWORD"); pass != "" {
		c.Password = pass
	}
	if token := os.Getenv("CLAIMPROBE_TOKEN"); token != "" {
		c.Token = token
	}
}

func (c *Config) setEnvironment(name string, env EnvironmentConfig) {
	if c.Environments == nil {
		c.Environments = make(map[string]EnvironmentConfig)
	}
	c.Environments[name] = env
}

// Active returns the selected environment.
func (c *Config) Active() (EnvironmentConfig, error) {
	env, ok := c.Environments[c.Environment]
	if !ok {
		return EnvironmentConfig{}, fmt.Errorf("unknown environment: %s (known: %v)", c.Environment, c.EnvironmentNames())
	}
	return env, nil
}

// EnvironmentNames lists configured environments in sorted order.
func (c *Config) EnvironmentNames() []string {
	names := make([]string, 0, len(c.Environments))
	for name := range c.Environments {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Login returns the username to authenticate with: explicit > environment default.
func (c *Config) Login() string {
	if c.Username != "" {
		return c.Username
	}
	env, err := c.Active()
	if err != nil {
		return ""
	}
	return env.Auth.Username
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	env, err := c.Active()
	if err != nil {
		return err
	}

	u, err := url.Parse(env.BaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("invalid base_url for %s: %q", c.Environment, env.BaseURL)
	}

	if !contains(validAuthModes, env.Auth.Mode) {
		return fmt.Errorf("invalid auth mode: %s (valid: %v)", env.Auth.Mode, validAuthModes)
	}
	if env.Auth.Mode == AuthPassword && env.Auth.TokenURL == "" {
		return fmt.Errorf("auth mode %q requires token_url", AuthPassword)
	}

	if !contains(validJobAPIs, c.Bulk.JobAPI) {
		return fmt.Errorf("invalid job_api: %s (valid: %v)", c.Bulk.JobAPI, validJobAPIs)
	}

	if c.GetPollInterval() <= 0 {
		return fmt.Errorf("poll interval must be positive")
	}

	return nil
}

func contains(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}

func parseDuration(s string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil {
		return fallback
	}
	return d
}

// GetAuthTimeout returns the auth timeout as a duration.
func (c *Config) GetAuthTimeout() time.Duration {
	return parseDuration(c.Timeouts.Auth, 10*time.Second)
}

// GetSearchTimeout returns the claim search timeout as a duration.
func (c *Config) GetSearchTimeout() time.Duration {
	return parseDuration(c.Timeouts.Search, 60*time.Second)
}

// GetFetchTimeout returns the single claim fetch timeout as a duration.
func (c *Config) GetFetchTimeout() time.Duration {
	return parseDuration(c.Timeouts.Fetch, 30*time.Second)
}

// GetUploadTimeout returns the bulk upload timeout as a duration.
func (c *Config) GetUploadTimeout() time.Duration {
	return parseDuration(c.Timeouts.Upload, 30*time.Second)
}

// GetStatusTimeout returns the job status timeout as a duration.
func (c *Config) GetStatusTimeout() time.Duration {
	return parseDuration(c.Timeouts.Status, 10*time.Second)
}

// GetDownloadTimeout returns the results download timeout as a duration.
func (c *Config) GetDownloadTimeout() time.Duration {
	return parseDuration(c.Timeouts.Download, 30*time.Second)
}

// GetPollInterval returns the poll interval as a duration.
func (c *Config) GetPollInterval() time.Duration {
	return parseDuration(c.Poll.Interval, 3*time.Second)
}

// GetPollMaxWait returns the poll budget as a duration.
func (c *Config) GetPollMaxWait() time.Duration {
	return parseDuration(c.Poll.MaxWait, 60*time.Second)
}

// TemplatesPath returns the directory for generated upload CSVs.
func (c *Config) TemplatesPath() string {
	if filepath.IsAbs(c.Output.TemplatesDir) {
		return c.Output.TemplatesDir
	}
	return filepath.Join(c.Output.Dir, c.Output.TemplatesDir)
}

// OutputPath joins name onto the output directory.
func (c *Config) OutputPath(name string) string {
	return filepath.Join(c.Output.Dir, name)
}

// Package config handles configuration loading and management
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

)

// FailurePolicy decides what happens to the folder loop when a folder fails.
type FailurePolicy string

const (
	// FailFast aborts the run on the first folder failure.
	FailFast FailurePolicy = "fail-fast"
	// BestEffort records the failure in the report and continues.
	BestEffort FailurePolicy = "best-effort"
)

var (
	errPackageNameRequired  = errors.New("PACKAGE_NAME is required")
	errInvalidFailurePolicy = errors.New("invalid failure policy")
	errPRTokenRequired      = errors.New("GITHUB_TOKEN is required when PR_NUMBER is set")
	errInvalidPRNumber      = errors.New("PR_NUMBER must be a positive integer")
	errInvalidRepository    = errors.New("GITHUB_REPOSITORY must be in owner/name form")
	errInvalidToolSetting   = errors.New("tool settings must be positive")
	errSlackChannelRequired = errors.New("SLACK_CHANNEL is required when SLACK_TOKEN is set")
)

// Config holds the application configuration. It is loaded and validated once
// at startup and passed down explicitly.
type Config struct {
	// Package under test and where its candidate build lives.
	PackageName   string
	CandidatePath string

	// Fixtures and sandboxes.
	TestDir        string
	SandboxRoot    string
	PackageManager string
	NodeBinary     string
	WorkloadScript string

	// RequireClientResults fails a capture whose workload reported no
	// load-test summary.
	RequireClientResults bool

	// Defaults handed to the workload when a fixture does not override them.
	Connections int
	Duration    int

	// Run context.
	NodeVersion   string
	GitRef        string
	FailurePolicy FailurePolicy

	// Result publishing.
	ResultUploadURL    string
	GCSCredentialsFile string
	ClickHouseURL      string
	PushgatewayURL     string

	// ClickHouseSafeHosts restricts the history sink to these server hostnames.
	ClickHouseSafeHosts []string

	// Pull request commenting.
	PRNumber         string
	GitHubToken      string
	GitHubRepository string
	GitHubAPIURL     string

	// Slack notification.
	SlackToken   string
	SlackChannel string
}

// FromEnv builds the configuration from the current environment only.
func FromEnv() (*Config, error) {
	packageName := getEnv("PACKAGE_NAME", "")

	cfg := &Config{
		PackageName:        packageName,
		CandidatePath:      getEnv("CANDIDATE_PATH", "/app"),
		TestDir:            getEnv("TEST_DIR", "perf"),
		SandboxRoot:        getEnv("SANDBOX_ROOT", "/tmp/perf-test"),
		PackageManager:     getEnv("PACKAGE_MANAGER", "npm"),
		NodeBinary:         getEnv("NODE_BINARY", "node"),
		WorkloadScript:     getEnv("WORKLOAD_SCRIPT", "run-test.mjs"),
		NodeVersion:        getEnv("NODE_VERSION", ""),
		GitRef:             getEnv("GIT_REF", "unknown"),
		FailurePolicy:      FailurePolicy(getEnv("FAILURE_POLICY", string(FailFast))),
		ResultUploadURL:    getEnv("RESULT_UPLOAD_URL", ""),
		GCSCredentialsFile: getEnv("GCS_CREDENTIALS_FILE", ""),
		ClickHouseURL:      getEnv("CLICKHOUSE_URL", ""),
		PushgatewayURL:     getEnv("PUSHGATEWAY_URL", ""),
		PRNumber:           getEnv("PR_NUMBER", ""),
		GitHubToken:        getEnv("GITHUB_TOKEN", ""),
		GitHubRepository:   getEnv("GITHUB_REPOSITORY", defaultRepository(packageName)),
		GitHubAPIURL:       strings.TrimSuffix(getEnv("GITHUB_API_URL", "https://api.github.com"), "/"),
		SlackToken:         getEnv("SLACK_TOKEN", ""),
		SlackChannel:       getEnv("SLACK_CHANNEL", ""),
	}

	cfg.ClickHouseSafeHosts = splitList(getEnv("CLICKHOUSE_SAFE_HOSTNAMES", ""))

	requireClient, err := strconv.ParseBool(getEnv("REQUIRE_CLIENT_RESULTS", "false"))
	if err != nil {
		return nil, fmt.Errorf("invalid REQUIRE_CLIENT_RESULTS: %w", err)
	}
	cfg.RequireClientResults = requireClient

	// Parse numeric values
	connections, err := strconv.Atoi(getEnv("PERF_CONNECTIONS", "10"))
	if err != nil {
		return nil, fmt.Errorf("invalid PERF_CONNECTIONS: %w", err)
	}
	cfg.Connections = connections

	duration, err := strconv.Atoi(getEnv("PERF_DURATION", "10"))
	if err != nil {
		return nil, fmt.Errorf("invalid PERF_DURATION: %w", err)
	}
	cfg.Duration = duration

	return cfg, nil
}

// Validate fails fast on configuration that would break the run later.
func (c *Config) Validate() error {
	if c.PackageName == "" {
		return errPackageNameRequired
	}

	if _, err := ParseFailurePolicy(string(c.FailurePolicy)); err != nil {
		return err
	}

	if c.Connections <= 0 || c.Duration <= 0 {
		return fmt.Errorf("%w: connections=%d duration=%d", errInvalidToolSetting, c.Connections, c.Duration)
	}

	if c.PRNumber != "" {
		if n, err := strconv.Atoi(c.PRNumber); err != nil || n <= 0 {
			return fmt.Errorf("%w: %q", errInvalidPRNumber, c.PRNumber)
		}

		if c.GitHubToken == "" {
			return errPRTokenRequired
		}

		if owner, name, ok := strings.Cut(c.GitHubRepository, "/"); !ok || owner == "" || name == "" {
			return fmt.Errorf("%w: %q", errInvalidRepository, c.GitHubRepository)
		}
	}

	if c.SlackToken != "" && c.SlackChannel == "" {
		return errSlackChannelRequired
	}

	return nil
}

// PRMode reports whether the report is posted as a pull request comment.
func (c *Config) PRMode() bool {
	return c.PRNumber != "" && c.GitHubToken != ""
}

// RepoURL is the public repository of the package under test.
func (c *Config) RepoURL() string {
	return fmt.Sprintf("https://github.com/%s", defaultRepository(c.PackageName))
}

// ParseFailurePolicy validates a failure policy name.
func ParseFailurePolicy(s string) (FailurePolicy, error) {
	switch p := FailurePolicy(s); p {
	case FailFast, BestEffort:
		return p, nil
	default:
		return "", fmt.Errorf("%w: %q (want %q or %q)", errInvalidFailurePolicy, s, FailFast, BestEffort)
	}
}

func defaultRepository(packageName string) string {
	return "expressjs/" + packageName
}

// splitList parses a comma-separated list, dropping blank entries.
func splitList(value string) []string {
	var items []string
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			items = append(items, item)
		}
	}
	return items
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func (c *Config) String() string {
	return fmt.Sprintf(`Current Configuration:
======================
Package:                %s
Candidate Path:         %s
Test Directory:         %s
Sandbox Root:           %s
Package Manager:        %s
Workload Script:        %s
Require Client Results: %t
Tool Settings:          %d connections, %ds
Node Version:           %s
Git Ref:                %s
Failure Policy:         %s
Result Upload URL:      %s
ClickHouse URL:         %s
ClickHouse Safe Hosts:  %s
Pushgateway URL:        %s
Pull Request:           %s
GitHub Repository:      %s
GitHub Token:           %s
Slack Channel:          %s
Slack Token:            %s`,
		c.PackageName,
		c.CandidatePath,
		c.TestDir,
		c.SandboxRoot,
		c.PackageManager,
		c.WorkloadScript,
		c.RequireClientResults,
		c.Connections,
		c.Duration,
		orNotSet(c.NodeVersion),
		c.GitRef,
		c.FailurePolicy,
		orNotSet(c.ResultUploadURL),
		orNotSet(redactURL(c.ClickHouseURL)),
		orNotSet(strings.Join(c.ClickHouseSafeHosts, ", ")),
		orNotSet(c.PushgatewayURL),
		orNotSet(c.PRNumber),
		c.GitHubRepository,
		mask(c.GitHubToken),
		orNotSet(c.SlackChannel),
		mask(c.SlackToken),
	)
}

func orNotSet(s string) string {
	if s == "" {
		return "(not set)"
	}
	return s
}

func mask(secret string) string {
	if secret == "" {
		return "(not set)"
	}
	return "********"
}

// redactURL hides the password of a user:password@host URL.
func redactURL(raw string) string {
	scheme, rest, ok := strings.Cut(raw, "://")
	if !ok {
		return raw
	}

	userinfo, host, ok := strings.Cut(rest, "@")
	if !ok {
		return raw
	}

	if user, _, hasPassword := strings.Cut(userinfo, ":"); hasPassword {
		return fmt.Sprintf("%s://%s:********@%s", scheme, user, host)
	}

	return raw
}

package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/nao1215/guildcrawl/internal/apitest"
	"github.com/nao1215/guildcrawl/internal/config"
	"github.com/nao1215/guildcrawl/internal/fetch"
)

// crawlEnv is a temp directory with a seed list, key file and config file
// pointing at a fake API.
type crawlEnv struct {
	dir        string
	configPath string
	output     string
	state      string
}

func newCrawlEnv(t *testing.T, api *apitest.Server, seeds ...string) *crawlEnv {
	t.Helper()

	apiKey := api.APIKey
	if apiKey == "" {
		apiKey = "unused-key"
	}

	dir := t.TempDir()
	env := &crawlEnv{
		dir:        dir,
		configPath: filepath.Join(dir, config.DefaultConfigFile),
		output:     filepath.Join(dir, "ids.txt"),
		state:      filepath.Join(dir, "checkpoint.json"),
	}

	configYAML := fmt.Sprintf(`seed_file: names.txt
key_file: api_key.txt
state_file: checkpoint.json
db_dir: db
output_file: ids.txt
log_file: crawl.log
identity:
  url: %q
  rate: 1000
membership:
  url: %q
  rate: 1000
retry:
  backoff: 1ms
`, api.IdentityEndpoint(), api.MembershipEndpoint())

	files := map[string]string{
		"names.txt":              strings.Join(seeds, "\n") + "\n",
		"api_key.txt":            apiKey + "\n",
		config.DefaultConfigFile: configYAML,
	}
	for name, content := range files {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0600); err != nil {
			t.Fatal(err)
		}
	}
	return env
}

// execute runs the root command with args and returns stdout.
func (e *crawlEnv) execute(t *testing.T, args ...string) (string, error) {
	t.Helper()

	var stdout, stderr bytes.Buffer
	cmd := NewRootCmd()
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(append(args, "--config", e.configPath))
	err := cmd.Execute()
	return stdout.String(), err
}

func TestCrawlCmd_AliceBob(t *testing.T) {
	t.Parallel()

	api := apitest.New(t)
	api.APIKey = "0f1e2d3c-key"
	group := &apitest.Group{ID: "G1", Members: []string{"A1", "M1", "M2"}}
	api.AddPlayer("alice", "A1", group)
	api.AddPlayer("bob", "B1", group)

	env := newCrawlEnv(t, api, "alice", "bob")
	stdout, err := env.execute(t, "crawl")
	if err != nil {
		t.Fatalf("crawl failed: %v", err)
	}
	if !strings.Contains(stdout, "Crawl complete") {
		t.Errorf("unexpected stdout: %s", stdout)
	}

	data, err := os.ReadFile(env.output)
	if err != nil {
		t.Fatal(err)
	}
	if got, want := string(data), "A1\nB1\nM1\nM2\n"; got != want {
		t.Errorf("artifact = %q, want %q", got, want)
	}

	logData, err := os.ReadFile(filepath.Join(env.dir, "crawl.log"))
	if err != nil {
		t.Fatalf("expected log file: %v", err)
	}
	if !strings.Contains(string(logData), "[2/2]") {
		t.Errorf("expected progress line in log, got:\n%s", logData)
	}
	if strings.Contains(string(logData), api.APIKey) {
		t.Error("API key leaked into the log file")
	}
}

func TestCrawlCmd_CircuitBreakExitCode(t *testing.T) {
	t.Parallel()

	api := apitest.New(t)
	api.FailIdentity("alice", http.StatusTooManyRequests)

	env := newCrawlEnv(t, api, "alice")
	_, err := env.execute(t, "crawl", "--throttle-threshold", "2", "--workers", "1")
	if !errors.Is(err, fetch.ErrCircuitOpen) {
		t.Fatalf("expected ErrCircuitOpen, got %v", err)
	}
	if code := exitCode(err); code != exitCircuitOpen {
		t.Errorf("exit code = %d, want %d", code, exitCircuitOpen)
	}
	if _, err := os.Stat(env.state); err != nil {
		t.Errorf("expected checkpoint after circuit break: %v", err)
	}

	logData, err := os.ReadFile(filepath.Join(env.dir, "crawl.log"))
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(logData), "level=FATAL") {
		t.Errorf("expected FATAL line in log, got:\n%s", logData)
	}
}

func TestCrawlCmd_MissingKeyFile(t *testing.T) {
	t.Parallel()

	api := apitest.New(t)
	env := newCrawlEnv(t, api, "alice")
	if err := os.Remove(filepath.Join(env.dir, "api_key.txt")); err != nil {
		t.Fatal(err)
	}

	if _, err := env.execute(t, "crawl"); err == nil {
		t.Fatal("expected error without key file")
	}
}

func TestCrawlCmd_MissingExplicitConfig(t *testing.T) {
	t.Parallel()

	cmd := NewRootCmd()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"crawl", "--config", filepath.Join(t.TempDir(), "missing.yaml")})

	if err := cmd.Execute(); !errors.Is(err, config.ErrConfigNotFound) {
		t.Fatalf("expected ErrConfigNotFound, got %v", err)
	}
}

func TestStatusCmd(t *testing.T) {
	t.Parallel()

	api := apitest.New(t)
	api.AddPlayer("alice", "A1", &apitest.Group{ID: "G1", Members: []string{"A1", "M1"}})

	for _, backend := range []string{config.BackendJSON, config.BackendSQLite} {
		t.Run(backend, func(t *testing.T) {
			t.Parallel()

			env := newCrawlEnv(t, api, "alice", "nobody")

			t.Run("before crawl", func(t *testing.T) {
				stdout, err := env.execute(t, "status", "--state-backend", backend)
				if err != nil {
					t.Fatalf("status failed: %v", err)
				}
				if !strings.Contains(stdout, "Not started") {
					t.Errorf("expected not started, got:\n%s", stdout)
				}
			})

			if _, err := env.execute(t, "crawl", "--state-backend", backend); err != nil {
				t.Fatalf("crawl failed: %v", err)
			}

			stdout, err := env.execute(t, "status", "--json", "--state-backend", backend)
			if err != nil {
				t.Fatalf("status failed: %v", err)
			}

			var got struct {
				Found          bool   `json:"found"`
				Status         string `json:"status"`
				SeedTotal      int    `json:"seed_total"`
				ProcessedCount int    `json:"processed_count"`
				CollectedIDs   int    `json:"collected_ids"`
				Runs           []struct {
					Status string `json:"status"`
				} `json:"runs"`
			}
			if err := json.Unmarshal([]byte(stdout), &got); err != nil {
				t.Fatalf("invalid JSON: %v\n%s", err, stdout)
			}
			if !got.Found || got.SeedTotal != 2 || got.ProcessedCount != 2 || got.CollectedIDs != 2 {
				t.Errorf("unexpected status: %+v", got)
			}
			if got.Status != "Complete" {
				t.Errorf("status = %q, want Complete", got.Status)
			}

			wantRuns := 0
			if backend == config.BackendSQLite {
				wantRuns = 1
			}
			if len(got.Runs) != wantRuns {
				t.Errorf("runs = %d, want %d", len(got.Runs), wantRuns)
			}
		})
	}
}

func TestStatusCmd_ConflictingFormats(t *testing.T) {
	t.Parallel()

	api := apitest.New(t)
	env := newCrawlEnv(t, api, "alice")
	if _, err := env.execute(t, "status", "--json", "--markdown"); err == nil {
		t.Fatal("expected error for --json with --markdown")
	}
}

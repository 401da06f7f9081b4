package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

// clearEnv blanks every SPLUNK_* variable the resolver reads so a test
// only sees what it sets itself.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, name := range []string{
		"SPLUNK_SITE_URL", "SPLUNK_TOKEN", "SPLUNK_USERNAME", "SPLUNK_PASSWORD",
		"SPLUNK_MANAGEMENT_PORT", "SPLUNK_PROFILE", "SPLUNK_VERIFY_SSL",
		"SPLUNK_DEFAULT_APP", "SPLUNK_DEFAULT_INDEX",
	} {
		t.Setenv(name, "")
	}
}

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("could not write config: %v", err)
	}
	return path
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	clearEnv(t)
	manager, err := Load(filepath.Join(t.TempDir(), "config.yaml"))
	if err != nil {
		t.Fatalf("Load returned error for missing file: %v", err)
	}

	profile := manager.Resolve("")
	if profile.Port != 8089 {
		t.Errorf("default port = %d, want 8089", profile.Port)
	}
	if profile.AuthMethod != "bearer" {
		t.Errorf("default auth = %q, want bearer", profile.AuthMethod)
	}
	if profile.DefaultApp != "search" || profile.DefaultIndex != "main" {
		t.Errorf("default app/index = %q/%q", profile.DefaultApp, profile.DefaultIndex)
	}

	api := manager.API()
	if api.Timeout != 30*time.Second || api.SearchTimeout != 300*time.Second {
		t.Errorf("default timeouts = %v/%v", api.Timeout, api.SearchTimeout)
	}
	if api.MaxRetries != 3 || api.RetryBackoff != 2.0 {
		t.Errorf("default retries = %d/%v", api.MaxRetries, api.RetryBackoff)
	}

	defaults := manager.SearchDefaults()
	if defaults.EarliestTime != "-24h" || defaults.LatestTime != "now" || defaults.MaxCount != 50000 {
		t.Errorf("default search window = %+v", defaults)
	}
}

func TestResolveProfileFromFile(t *testing.T) {
	clearEnv(t)
	path := writeConfig(t, `
default_profile: prod
profiles:
  prod:
    url: splunk.example.com
    token: file-token-abcdef
    default_index: security
`)
	manager, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if name := manager.DefaultProfile(); name != "prod" {
		t.Errorf("DefaultProfile = %q, want prod", name)
	}
	profile := manager.Resolve("")
	if profile.URL != "splunk.example.com" {
		t.Errorf("URL = %q", profile.URL)
	}
	if profile.Token != "file-token-abcdef" {
		t.Errorf("Token = %q", profile.Token)
	}
	if profile.DefaultIndex != "security" {
		t.Errorf("DefaultIndex = %q", profile.DefaultIndex)
	}
	// Unset fields keep their defaults.
	if profile.Port != 8089 || profile.DefaultApp != "search" {
		t.Errorf("defaults lost: port=%d app=%q", profile.Port, profile.DefaultApp)
	}
}

func TestEnvOverridesFile(t *testing.T) {
	clearEnv(t)
	path := writeConfig(t, `
profiles:
  default:
    url: from-file.example.com
    token: file-token-abcdef
`)
	t.Setenv("SPLUNK_SITE_URL", "from-env.example.com")
	t.Setenv("SPLUNK_TOKEN", "env-token-123456789")
	t.Setenv("SPLUNK_MANAGEMENT_PORT", "9089")

	manager, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	profile := manager.Resolve("")
	if profile.URL != "from-env.example.com" {
		t.Errorf("env URL did not win: %q", profile.URL)
	}
	if profile.Token != "env-token-123456789" {
		t.Errorf("env token did not win: %q", profile.Token)
	}
	if profile.Port != 9089 {
		t.Errorf("env port did not win: %d", profile.Port)
	}
}

func TestBasicAuthInferred(t *testing.T) {
	clearEnv(t)
	t.Setenv("SPLUNK_USERNAME", "admin")
	t.Setenv("SPLUNK_PASSWORD", "changeme123")

	manager, err := Load(filepath.Join(t.TempDir(), "config.yaml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	profile := manager.Resolve("")
	if profile.AuthMethod != "basic" {
		t.Errorf("AuthMethod = %q, want basic when only username/password set", profile.AuthMethod)
	}
}

func TestProfileEnvSelectsProfile(t *testing.T) {
	clearEnv(t)
	path := writeConfig(t, `
default_profile: prod
profiles:
  prod:
    url: prod.example.com
  staging:
    url: staging.example.com
`)
	t.Setenv("SPLUNK_PROFILE", "staging")

	manager, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if profile := manager.Resolve(""); profile.URL != "staging.example.com" {
		t.Errorf("SPLUNK_PROFILE ignored: %q", profile.URL)
	}
}

func TestValidateReportsProblems(t *testing.T) {
	clearEnv(t)
	manager, err := Load(filepath.Join(t.TempDir(), "config.yaml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	problems := manager.Validate("")
	if len(problems) != 2 {
		t.Fatalf("expected URL and token problems, got %v", problems)
	}

	t.Setenv("SPLUNK_SITE_URL", "splunk.example.com")
	t.Setenv("SPLUNK_TOKEN", "some-token-value")
	if problems := manager.Validate(""); len(problems) != 0 {
		t.Errorf("expected no problems, got %v", problems)
	}
}

func TestBaseURL(t *testing.T) {
	cases := []struct {
		url  string
		port int
		want string
	}{
		{"splunk.example.com", 0, "https://splunk.example.com:8089"},
		{"splunk.example.com", 9089, "https://splunk.example.com:9089"},
		{"https://splunk.example.com", 0, "https://splunk.example.com:8089"},
		{"https://splunk.example.com:9999", 8089, "https://splunk.example.com:9999"},
		{"http://localhost:8089/", 0, "http://localhost:8089"},
		{"", 8089, ""},
	}
	for _, tc := range cases {
		p := Profile{URL: tc.url, Port: tc.port}
		if got := p.BaseURL(); got != tc.want {
			t.Errorf("BaseURL(%q, %d) = %q, want %q", tc.url, tc.port, got, tc.want)
		}
	}
}

func TestInsecureSkipVerify(t *testing.T) {
	no := false
	yes := true
	if (Profile{}).InsecureSkipVerify() {
		t.Error("verification should default on")
	}
	if (Profile{VerifySSL: &yes}).InsecureSkipVerify() {
		t.Error("verify_ssl true must not skip verification")
	}
	if !(Profile{VerifySSL: &no}).InsecureSkipVerify() {
		t.Error("verify_ssl false must skip verification")
	}
}

func TestStoreAndClearCredentials(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	manager, err := Load(filepath.Join(dir, "config.yaml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	err = manager.StoreCredentials("default", Credentials{
		URL:   "splunk.example.com",
		Token: "stored-token-abcdef",
	})
	if err != nil {
		t.Fatalf("StoreCredentials: %v", err)
	}

	info, err := os.Stat(manager.CredsPath)
	if err != nil {
		t.Fatalf("credentials file not written: %v", err)
	}
	if mode := info.Mode().Perm(); mode != 0o600 {
		t.Errorf("credentials file mode = %o, want 600", mode)
	}

	profile := manager.Resolve("default")
	if profile.Token != "stored-token-abcdef" {
		t.Errorf("stored token not resolved: %q", profile.Token)
	}

	// Only the stored fields should appear; zero values stay out.
	data, err := os.ReadFile(manager.CredsPath)
	if err != nil {
		t.Fatalf("read credentials: %v", err)
	}
	for _, noise := range []string{"port:", "auth_method:", "default_app:", "default_index:", "verify_ssl:"} {
		if strings.Contains(string(data), noise) {
			t.Errorf("credentials file contains zero-value field %q:\n%s", noise, data)
		}
	}

	// A reload sees the same credentials.
	reloaded, err := Load(filepath.Join(dir, "config.yaml"))
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if profile := reloaded.Resolve("default"); profile.Token != "stored-token-abcdef" {
		t.Errorf("reloaded token = %q", profile.Token)
	}

	if err := manager.ClearCredentials("default"); err != nil {
		t.Fatalf("ClearCredentials: %v", err)
	}
	if profile := manager.Resolve("default"); profile.Token != "" {
		t.Errorf("token survives clear: %q", profile.Token)
	}
}

func TestCredentialSource(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	manager, err := Load(filepath.Join(dir, "config.yaml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if err := manager.StoreCredentials("default", Credentials{Token: "from-creds-file-1234"}); err != nil {
		t.Fatalf("StoreCredentials: %v", err)
	}
	t.Setenv("SPLUNK_SITE_URL", "env.example.com")

	sources := manager.CredentialSource("default")
	if sources["url"] != "environment (SPLUNK_SITE_URL)" {
		t.Errorf("url source = %q", sources["url"])
	}
	if sources["token"] != "credentials file" {
		t.Errorf("token source = %q", sources["token"])
	}
	if _, ok := sources["password"]; ok {
		t.Error("password source reported with no password configured")
	}
}

func TestMaskSecret(t *testing.T) {
	if got := MaskSecret(""); got != "" {
		t.Errorf("MaskSecret(empty) = %q", got)
	}
	if got := MaskSecret("short"); got != "********" {
		t.Errorf("short secret leaked: %q", got)
	}
	if got := MaskSecret("a-very-long-token-wxyz"); got != "....wxyz" {
		t.Errorf("MaskSecret = %q, want ....wxyz", got)
	}
}

// Package config merges connection settings from environment variables,
// a credentials file, a profile file, and built-in defaults, in that
// priority order.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Profile is one named set of connection and auth settings.
type Profile struct {
	URL          string `yaml:"url,omitempty"`
	Port         int    `yaml:"port,omitempty"`
	AuthMethod   string `yaml:"auth_method,omitempty"` // bearer or basic
	Token        string `yaml:"token,omitempty"`
	Username     string `yaml:"username,omitempty"`
	Password     string `yaml:"password,omitempty"`
	DefaultApp   string `yaml:"default_app,omitempty"`
	DefaultIndex string `yaml:"default_index,omitempty"`
	VerifySSL    *bool  `yaml:"verify_ssl,omitempty"`
}

// APISettings tune the HTTP client.
type APISettings struct {
	Timeout       time.Duration `yaml:"timeout"`
	SearchTimeout time.Duration `yaml:"search_timeout"`
	MaxRetries    int           `yaml:"max_retries"`
	RetryBackoff  float64       `yaml:"retry_backoff"`
}

// SearchDefaults apply when a command does not override them.
type SearchDefaults struct {
	EarliestTime string `yaml:"earliest_time"`
	LatestTime   string `yaml:"latest_time"`
	MaxCount     int    `yaml:"max_count"`
}

// File is the on-disk shape of the profile config.
type File struct {
	DefaultProfile string             `yaml:"default_profile"`
	Profiles       map[string]Profile `yaml:"profiles"`
	API            APISettings        `yaml:"api"`
	SearchDefaults SearchDefaults     `yaml:"search_defaults"`
}

// Manager resolves effective settings for a named profile.
type Manager struct {
	file      File
	creds     map[string]Profile
	Path      string
	CredsPath string
}

// Defaults a fresh config starts from.
func defaultFile() File {
	return File{
		DefaultProfile: "default",
		Profiles:       map[string]Profile{},
		API: APISettings{
			Timeout:       30 * time.Second,
			SearchTimeout: 300 * time.Second,
			MaxRetries:    3,
			RetryBackoff:  2.0,
		},
		SearchDefaults: SearchDefaults{
			EarliestTime: "-24h",
			LatestTime:   "now",
			MaxCount:     50000,
		},
	}
}

// DefaultDir returns the config directory, honoring XDG conventions.
func DefaultDir() (string, error) {
	base, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("could not determine config directory: %w", err)
	}
	return filepath.Join(base, "splunk-as"), nil
}

// Load reads the config file at path, or the default location when path is
// empty. A missing file is not an error; defaults apply.
func Load(path string) (*Manager, error) {
	manager := &Manager{file: defaultFile(), creds: map[string]Profile{}}

	if path == "" {
		dir, err := DefaultDir()
		if err != nil {
			return nil, err
		}
		path = filepath.Join(dir, "config.yaml")
		manager.CredsPath = filepath.Join(dir, "credentials.yaml")
	} else {
		manager.CredsPath = filepath.Join(filepath.Dir(path), "credentials.yaml")
	}
	manager.Path = path

	if err := loadYAMLInto(path, &manager.file); err != nil {
		return nil, err
	}
	if manager.file.Profiles == nil {
		manager.file.Profiles = map[string]Profile{}
	}
	normalizeAPI(&manager.file.API)

	var creds struct {
		Profiles map[string]Profile `yaml:"profiles"`
	}
	if err := loadYAMLInto(manager.CredsPath, &creds); err != nil {
		return nil, err
	}
	if creds.Profiles != nil {
		manager.creds = creds.Profiles
	}

	return manager, nil
}

func loadYAMLInto(path string, out any) error {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("could not read %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, out); err != nil {
		return fmt.Errorf("could not parse %s: %w", path, err)
	}
	return nil
}

func normalizeAPI(api *APISettings) {
	if api.Timeout <= 0 {
		api.Timeout = 30 * time.Second
	}
	if api.SearchTimeout <= 0 {
		api.SearchTimeout = 300 * time.Second
	}
	if api.MaxRetries <= 0 {
		api.MaxRetries = 3
	}
	if api.RetryBackoff <= 0 {
		api.RetryBackoff = 2.0
	}
}

// ProfileNames lists configured profiles, including those that exist only
// in the credentials file.
func (m *Manager) ProfileNames() []string {
	seen := map[string]bool{}
	var names []string
	for name := range m.file.Profiles {
		if !seen[name] {
			names = append(names, name)
			seen[name] = true
		}
	}
	for name := range m.creds {
		if !seen[name] {
			names = append(names, name)
			seen[name] = true
		}
	}
	return names
}

// DefaultProfile returns the profile selected when none is named: the
// SPLUNK_PROFILE env var wins, then the config file's default_profile.
func (m *Manager) DefaultProfile() string {
	if name := os.Getenv("SPLUNK_PROFILE"); name != "" {
		return name
	}
	if m.file.DefaultProfile != "" {
		return m.file.DefaultProfile
	}
	return "default"
}

// Resolve produces the effective profile: file settings overlaid with the
// credentials file, then environment variables.
func (m *Manager) Resolve(name string) Profile {
	if name == "" {
		name = m.DefaultProfile()
	}

	profile := Profile{
		Port:         8089,
		AuthMethod:   "bearer",
		DefaultApp:   "search",
		DefaultIndex: "main",
	}
	overlay(&profile, m.file.Profiles[name])
	overlay(&profile, m.creds[name])
	applyEnv(&profile)

	if profile.Token == "" && profile.Username != "" {
		profile.AuthMethod = "basic"
	}
	return profile
}

func overlay(dst *Profile, src Profile) {
	if src.URL != "" {
		dst.URL = src.URL
	}
	if src.Port != 0 {
		dst.Port = src.Port
	}
	if src.AuthMethod != "" {
		dst.AuthMethod = src.AuthMethod
	}
	if src.Token != "" {
		dst.Token = src.Token
	}
	if src.Username != "" {
		dst.Username = src.Username
	}
	if src.Password != "" {
		dst.Password = src.Password
	}
	if src.DefaultApp != "" {
		dst.DefaultApp = src.DefaultApp
	}
	if src.DefaultIndex != "" {
		dst.DefaultIndex = src.DefaultIndex
	}
	if src.VerifySSL != nil {
		dst.VerifySSL = src.VerifySSL
	}
}

func applyEnv(profile *Profile) {
	if url := os.Getenv("SPLUNK_SITE_URL"); url != "" {
		profile.URL = url
	}
	if port := os.Getenv("SPLUNK_MANAGEMENT_PORT"); port != "" {
		if n, err := strconv.Atoi(port); err == nil {
			profile.Port = n
		}
	}
	if token := os.Getenv("SPLUNK_TOKEN"); token != "" {
		profile.Token = token
		profile.AuthMethod = "bearer"
	}
	if username := os.Getenv("SPLUNK_USERNAME"); username != "" {
		profile.Username = username
	}
	if password := os.Getenv("SPLUNK_PASSWORD"); password != "" {
		profile.Password = password
		if profile.Token == "" {
			profile.AuthMethod = "basic"
		}
	}
	if verify := os.Getenv("SPLUNK_VERIFY_SSL"); verify != "" {
		v := parseBool(verify)
		profile.VerifySSL = &v
	}
	if app := os.Getenv("SPLUNK_DEFAULT_APP"); app != "" {
		profile.DefaultApp = app
	}
	if index := os.Getenv("SPLUNK_DEFAULT_INDEX"); index != "" {
		profile.DefaultIndex = index
	}
}

func parseBool(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "true", "1", "yes", "on":
		return true
	default:
		return false
	}
}

// API returns the HTTP client settings.
func (m *Manager) API() APISettings {
	return m.file.API
}

// SearchDefaults returns the default search time bounds and result cap.
func (m *Manager) SearchDefaults() SearchDefaults {
	return m.file.SearchDefaults
}

// Validate reports what keeps the named profile from being usable.
func (m *Manager) Validate(name string) []string {
	profile := m.Resolve(name)
	var problems []string
	if profile.URL == "" {
		problems = append(problems, "missing Splunk URL: set SPLUNK_SITE_URL or add url to the profile")
	}
	if profile.AuthMethod == "bearer" && profile.Token == "" {
		problems = append(problems, "missing token: set SPLUNK_TOKEN, run 'splunk-as auth login', or add token to the profile")
	}
	if profile.AuthMethod == "basic" && (profile.Username == "" || profile.Password == "") {
		problems = append(problems, "missing username/password for basic auth: set SPLUNK_USERNAME and SPLUNK_PASSWORD or run 'splunk-as auth login'")
	}
	return problems
}

// BaseURL assembles scheme://host:port for the management API.
func (p Profile) BaseURL() string {
	url := strings.TrimRight(p.URL, "/")
	if url == "" {
		return ""
	}
	if !strings.Contains(url, "://") {
		url = "https://" + url
	}
	// Only append the management port when the URL does not carry one.
	rest := url[strings.Index(url, "://")+3:]
	if !strings.Contains(rest, ":") {
		port := p.Port
		if port == 0 {
			port = 8089
		}
		url = fmt.Sprintf("%s:%d", url, port)
	}
	return url
}

// InsecureSkipVerify reports whether TLS verification should be disabled.
func (p Profile) InsecureSkipVerify() bool {
	return p.VerifySSL != nil && !*p.VerifySSL
}

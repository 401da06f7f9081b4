package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Credentials holds the secret material stored for a profile by
// `auth login`. It lives in credentials.yaml next to the config file,
// written with 0600 permissions.
type Credentials struct {
	URL      string `yaml:"url,omitempty"`
	Token    string `yaml:"token,omitempty"`
	Username string `yaml:"username,omitempty"`
	Password string `yaml:"password,omitempty"`
}

type credentialsFile struct {
	Profiles map[string]Profile `yaml:"profiles"`
}

// StoreCredentials writes or replaces the stored secrets for a profile.
func (m *Manager) StoreCredentials(profileName string, creds Credentials) error {
	if profileName == "" {
		profileName = m.DefaultProfile()
	}

	file := credentialsFile{Profiles: map[string]Profile{}}
	if err := loadYAMLInto(m.CredsPath, &file); err != nil {
		return err
	}
	if file.Profiles == nil {
		file.Profiles = map[string]Profile{}
	}

	entry := file.Profiles[profileName]
	entry.URL = creds.URL
	entry.Token = creds.Token
	entry.Username = creds.Username
	entry.Password = creds.Password
	file.Profiles[profileName] = entry

	if err := m.writeCredentials(file); err != nil {
		return err
	}
	m.creds = file.Profiles
	return nil
}

// ClearCredentials removes the stored secrets for a profile.
func (m *Manager) ClearCredentials(profileName string) error {
	if profileName == "" {
		profileName = m.DefaultProfile()
	}

	file := credentialsFile{Profiles: map[string]Profile{}}
	if err := loadYAMLInto(m.CredsPath, &file); err != nil {
		return err
	}
	if _, ok := file.Profiles[profileName]; !ok {
		return nil
	}
	delete(file.Profiles, profileName)

	if err := m.writeCredentials(file); err != nil {
		return err
	}
	m.creds = file.Profiles
	return nil
}

func (m *Manager) writeCredentials(file credentialsFile) error {
	data, err := yaml.Marshal(file)
	if err != nil {
		return fmt.Errorf("could not encode credentials: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(m.CredsPath), 0o700); err != nil {
		return fmt.Errorf("could not create config directory: %w", err)
	}
	if err := os.WriteFile(m.CredsPath, data, 0o600); err != nil {
		return fmt.Errorf("could not write credentials file: %w", err)
	}
	return nil
}

// CredentialSource reports where each piece of auth material for the
// profile came from, in priority order: env, credentials file, config file.
func (m *Manager) CredentialSource(profileName string) map[string]string {
	if profileName == "" {
		profileName = m.DefaultProfile()
	}
	sources := map[string]string{}

	record := func(field, envVar, envValue string, fromCreds, fromConfig bool) {
		switch {
		case envValue != "":
			sources[field] = "environment (" + envVar + ")"
		case fromCreds:
			sources[field] = "credentials file"
		case fromConfig:
			sources[field] = "config file"
		}
	}

	creds := m.creds[profileName]
	conf := m.file.Profiles[profileName]
	record("url", "SPLUNK_SITE_URL", os.Getenv("SPLUNK_SITE_URL"), creds.URL != "", conf.URL != "")
	record("token", "SPLUNK_TOKEN", os.Getenv("SPLUNK_TOKEN"), creds.Token != "", conf.Token != "")
	record("username", "SPLUNK_USERNAME", os.Getenv("SPLUNK_USERNAME"), creds.Username != "", conf.Username != "")
	record("password", "SPLUNK_PASSWORD", os.Getenv("SPLUNK_PASSWORD"), creds.Password != "", conf.Password != "")
	return sources
}

// MaskSecret hides all but the last four characters of a secret.
func MaskSecret(secret string) string {
	if secret == "" {
		return ""
	}
	if len(secret) <= 8 {
		return "********"
	}
	return "...." + secret[len(secret)-4:]
}

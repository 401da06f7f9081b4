package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/grandcamel/splunk-as/internal/config"
	"github.com/grandcamel/splunk-as/internal/splunk"
)

func loadManager() (*config.Manager, error) {
	return config.Load(configPath)
}

// newClient resolves the selected profile, validates it, and builds a
// client. The manager is returned so callers can reach search defaults.
func newClient() (*splunk.Client, *config.Manager, error) {
	manager, err := loadManager()
	if err != nil {
		return nil, nil, err
	}
	if problems := manager.Validate(profileName); len(problems) > 0 {
		return nil, nil, &splunk.ValidationError{Message: strings.Join(problems, "\n")}
	}

	profile := manager.Resolve(profileName)
	api := manager.API()
	client := splunk.NewClient(profile.BaseURL(), &splunk.Options{
		Token:         profile.Token,
		Username:      profile.Username,
		Password:      profile.Password,
		App:           profile.DefaultApp,
		InsecureSSL:   profile.InsecureSkipVerify(),
		Timeout:       api.Timeout,
		SearchTimeout: api.SearchTimeout,
		MaxRetries:    api.MaxRetries,
		Backoff:       api.RetryBackoff,
		Debug:         verbose,
	})
	return client, manager, nil
}

// signalContext returns a context canceled on SIGINT/SIGTERM so a ^C while
// polling surfaces as context.Canceled and exit code 130.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

func withTimeout(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, timeout)
}

func cmdStdout() io.Writer {
	return os.Stdout
}

func parseCommaList(value string) []string {
	if value == "" {
		return nil
	}
	var items []string
	for _, item := range strings.Split(value, ",") {
		if trimmed := strings.TrimSpace(item); trimmed != "" {
			items = append(items, trimmed)
		}
	}
	return items
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "..."
}

func contentString(content map[string]any, key string) string {
	switch v := content[key].(type) {
	case string:
		return v
	case float64:
		if v == float64(int64(v)) {
			return fmt.Sprintf("%d", int64(v))
		}
		return fmt.Sprintf("%g", v)
	default:
		return ""
	}
}

func checkOutput(output string, allowed ...string) error {
	for _, a := range allowed {
		if output == a {
			return nil
		}
	}
	return fmt.Errorf("unsupported output format %q (expected one of: %s)", output, strings.Join(allowed, ", "))
}

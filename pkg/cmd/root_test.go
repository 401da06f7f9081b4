package cmd

import (
	"context"
	"fmt"
	"testing"

	"github.com/grandcamel/splunk-as/internal/splunk"
)

func TestCommandsRegistered(t *testing.T) {
	want := map[string]bool{
		"search":   false,
		"job":      false,
		"metadata": false,
		"metrics":  false,
		"admin":    false,
		"config":   false,
		"auth":     false,
	}
	for _, c := range rootCmd.Commands() {
		if _, ok := want[c.Name()]; ok {
			want[c.Name()] = true
		}
	}
	for name, found := range want {
		if !found {
			t.Errorf("command %q not registered", name)
		}
	}
}

func TestExitCode(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{&splunk.ValidationError{Message: "bad input"}, 1},
		{&splunk.APIError{Kind: splunk.KindAuthentication}, 2},
		{&splunk.APIError{Kind: splunk.KindAuthorization}, 3},
		{&splunk.APIError{Kind: splunk.KindNotFound}, 4},
		{&splunk.APIError{Kind: splunk.KindRateLimit}, 5},
		{&splunk.APIError{Kind: splunk.KindSearchQuota}, 6},
		{&splunk.APIError{Kind: splunk.KindServer}, 7},
		{context.Canceled, 130},
		{fmt.Errorf("wrapped: %w", &splunk.APIError{Kind: splunk.KindNotFound}), 4},
		{fmt.Errorf("plain failure"), 1},
	}
	for _, tc := range cases {
		if got := exitCode(tc.err); got != tc.want {
			t.Errorf("exitCode(%v) = %d, want %d", tc.err, got, tc.want)
		}
	}
}

func TestParseCommaList(t *testing.T) {
	got := parseCommaList(" host, status ,,source ")
	if len(got) != 3 || got[0] != "host" || got[1] != "status" || got[2] != "source" {
		t.Errorf("parseCommaList = %v", got)
	}
	if got := parseCommaList(""); got != nil {
		t.Errorf("parseCommaList(empty) = %v", got)
	}
}

func TestTruncate(t *testing.T) {
	if got := truncate("short", 10); got != "short" {
		t.Errorf("truncate = %q", got)
	}
	if got := truncate("abcdefghij", 4); got != "abcd..." {
		t.Errorf("truncate = %q", got)
	}
}

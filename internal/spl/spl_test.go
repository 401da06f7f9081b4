package spl

import (
	"strings"
	"testing"
)

func TestValidate(t *testing.T) {
	got, err := Validate("  index=main error | stats count  ")
	if err != nil {
		t.Fatalf("Validate returned error: %v", err)
	}
	if got != "index=main error | stats count" {
		t.Errorf("Validate did not trim: %q", got)
	}

	if _, err := Validate(""); err == nil {
		t.Error("expected error for empty query")
	}
	if _, err := Validate("   "); err == nil {
		t.Error("expected error for blank query")
	}
	if _, err := Validate(`index=main message="unterminated`); err == nil {
		t.Error("expected error for unbalanced quotes")
	}
	if _, err := Validate("index=main [search host=web1 | stats count"); err == nil {
		t.Error("expected error for unbalanced brackets")
	}
	if _, err := Validate("index=main | | stats count"); err == nil {
		t.Error("expected error for empty pipeline segment")
	}
}

func TestValidateRiskyCommands(t *testing.T) {
	for _, query := range []string{
		"index=main host=web1 | delete",
		"index=main | collect index=summary",
		"index=main | outputlookup assets.csv",
	} {
		if _, err := Validate(query); err == nil {
			t.Errorf("expected risky-command error for %q", query)
		}
	}
}

func TestCommands(t *testing.T) {
	commands := Commands("index=main error | stats count by host | sort -count")
	if len(commands) != 3 {
		t.Fatalf("expected 3 commands, got %d: %v", len(commands), commands)
	}
	if commands[0].Name != "search" || commands[0].Args != "index=main error" {
		t.Errorf("implicit search not recognized: %+v", commands[0])
	}
	if commands[1].Name != "stats" {
		t.Errorf("expected stats, got %q", commands[1].Name)
	}

	// An explicit leading search keyword folds into the same stage.
	commands = Commands("search index=main | head 5")
	if commands[0].Name != "search" || commands[0].Args != "index=main" {
		t.Errorf("explicit search not folded: %+v", commands[0])
	}

	// Generating queries have no implicit search.
	commands = Commands("| metadata type=sourcetypes | sort -totalCount")
	if commands[0].Name != "metadata" {
		t.Errorf("expected metadata first, got %q", commands[0].Name)
	}
}

func TestSplitPipelineQuoting(t *testing.T) {
	segments := splitPipeline(`index=main message="a|b" | stats count`)
	if len(segments) != 2 {
		t.Fatalf("pipe inside quotes split the query: %v", segments)
	}

	segments = splitPipeline("index=main [search host=a | head 1] | stats count")
	if len(segments) != 2 {
		t.Fatalf("pipe inside subsearch split the query: %v", segments)
	}
}

func TestBuild(t *testing.T) {
	built := Build("status=500", BuildOptions{
		EarliestTime: "-24h",
		LatestTime:   "now",
		Fields:       []string{"host", "status"},
	})
	want := "search earliest=-24h latest=now status=500 | fields host, status"
	if built != want {
		t.Errorf("Build = %q, want %q", built, want)
	}

	// An explicit search keyword is not doubled.
	built = Build("search index=main", BuildOptions{EarliestTime: "-1h"})
	if built != "search earliest=-1h index=main" {
		t.Errorf("Build doubled search: %q", built)
	}

	// Generating queries pass through untouched.
	built = Build("| tstats count where index=main", BuildOptions{EarliestTime: "-1h"})
	if built != "| tstats count where index=main" {
		t.Errorf("generating query modified: %q", built)
	}

	// Timestamps with spaces get quoted.
	built = Build("error", BuildOptions{EarliestTime: "2024-01-15 08:00:00"})
	if !strings.Contains(built, `earliest="2024-01-15 08:00:00"`) {
		t.Errorf("timestamp not quoted: %q", built)
	}
}

func TestValidateTimeModifier(t *testing.T) {
	valid := []string{
		"now", "0", "-24h", "+1d", "-15m", "@d", "-1d@d", "-1d@d+8h",
		"-4h@m", "@w0", "rt", "rt-5m", "1703779200", "1703779200.500",
		"2024-01-15", "2024-01-15T08:00:00Z",
	}
	for _, v := range valid {
		if _, err := ValidateTimeModifier(v); err != nil {
			t.Errorf("ValidateTimeModifier(%q) = %v, want nil", v, err)
		}
	}

	invalid := []string{"", "  ", "-", "+", "-24x", "yesterdayish", "rt-5x", "@z"}
	for _, v := range invalid {
		if _, err := ValidateTimeModifier(v); err == nil {
			t.Errorf("ValidateTimeModifier(%q) succeeded, want error", v)
		}
	}
}

func TestEstimateComplexity(t *testing.T) {
	cases := []struct {
		query string
		want  Complexity
	}{
		{"index=main error", ComplexityLow},
		{"error | stats count | sort -count", ComplexityMedium},
		{"index=main | join host [search index=assets]", ComplexityHigh},
	}
	for _, tc := range cases {
		if got := EstimateComplexity(tc.query); got != tc.want {
			t.Errorf("EstimateComplexity(%q) = %s, want %s", tc.query, got, tc.want)
		}
	}
}

func TestSuggestions(t *testing.T) {
	suggestions := Suggestions("error | stats count by host | table host")
	if len(suggestions) == 0 {
		t.Fatal("expected suggestions for unscoped late-table query")
	}
	joined := strings.Join(suggestions, "\n")
	if !strings.Contains(joined, "index") {
		t.Errorf("missing index suggestion: %v", suggestions)
	}
	if !strings.Contains(joined, "table") {
		t.Errorf("missing table placement suggestion: %v", suggestions)
	}

	if got := Suggestions("index=main | stats count"); len(got) != 0 {
		t.Errorf("expected no suggestions, got %v", got)
	}
}

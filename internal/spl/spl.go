// Package spl provides offline validation and assembly helpers for Splunk's
// Search Processing Language. Nothing here talks to a server; real parsing
// happens splunkd-side, these checks only catch the mistakes worth catching
// before a query is dispatched.
package spl

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/araddon/dateparse"
)

// Commands that modify data or leave the search sandbox. They are legal
// SPL, but a CLI user should opt into them consciously.
var riskyCommands = map[string]string{
	"delete":         "permanently removes events from an index",
	"collect":        "writes results into a summary index",
	"outputlookup":   "overwrites lookup table files",
	"sendemail":      "sends email from the search head",
	"script":         "runs external scripts on the search head",
	"runshellscript": "runs shell scripts on the search head",
}

// Validate rejects queries that are empty or structurally broken, and
// returns the trimmed query on success.
func Validate(query string) (string, error) {
	trimmed := strings.TrimSpace(query)
	if trimmed == "" {
		return "", fmt.Errorf("SPL query must not be empty")
	}
	if issues := SyntaxIssues(trimmed); len(issues) > 0 {
		return "", fmt.Errorf("invalid SPL: %s", issues[0])
	}
	return trimmed, nil
}

// SyntaxIssues runs the bounded structural checks: balanced quoting and
// bracketing, no empty pipe segments, and risky-command warnings.
func SyntaxIssues(query string) []string {
	var issues []string

	if strings.Count(query, `"`)%2 != 0 {
		issues = append(issues, "unbalanced double quotes")
	}
	if countUnescaped(query, '\'')%2 != 0 {
		issues = append(issues, "unbalanced single quotes")
	}
	for _, pair := range [][2]string{{"[", "]"}, {"(", ")"}} {
		if strings.Count(query, pair[0]) != strings.Count(query, pair[1]) {
			issues = append(issues, fmt.Sprintf("unbalanced %s%s", pair[0], pair[1]))
		}
	}

	for i, segment := range splitPipeline(query) {
		if strings.TrimSpace(segment) == "" {
			issues = append(issues, fmt.Sprintf("empty pipeline segment at position %d", i+1))
		}
	}

	for _, cmd := range Commands(query) {
		if reason, risky := riskyCommands[cmd.Name]; risky {
			issues = append(issues, fmt.Sprintf("risky command %q: %s", cmd.Name, reason))
		}
	}
	return issues
}

// Command is one pipeline stage of a query.
type Command struct {
	Name string
	Args string
}

// Commands splits a query into pipeline stages. The first segment is the
// implicit search unless the query starts with a pipe.
func Commands(query string) []Command {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil
	}

	segments := splitPipeline(query)
	generating := strings.HasPrefix(query, "|")

	var commands []Command
	for i, segment := range segments {
		segment = strings.TrimSpace(segment)
		if segment == "" {
			continue
		}
		if i == 0 && !generating {
			name, args, _ := strings.Cut(segment, " ")
			if strings.EqualFold(name, "search") {
				commands = append(commands, Command{Name: "search", Args: strings.TrimSpace(args)})
			} else {
				commands = append(commands, Command{Name: "search", Args: segment})
			}
			continue
		}
		name, args, _ := strings.Cut(segment, " ")
		commands = append(commands, Command{Name: strings.ToLower(name), Args: strings.TrimSpace(args)})
	}
	return commands
}

// splitPipeline splits on pipes that are not inside quotes or subsearches.
func splitPipeline(query string) []string {
	var segments []string
	var current strings.Builder
	depth := 0
	inDouble := false

	for i := 0; i < len(query); i++ {
		ch := query[i]
		switch {
		case ch == '"':
			inDouble = !inDouble
			current.WriteByte(ch)
		case inDouble:
			current.WriteByte(ch)
		case ch == '[':
			depth++
			current.WriteByte(ch)
		case ch == ']':
			depth--
			current.WriteByte(ch)
		case ch == '|' && depth == 0:
			segments = append(segments, current.String())
			current.Reset()
		default:
			current.WriteByte(ch)
		}
	}
	segments = append(segments, current.String())

	// A leading pipe produces an empty first segment that is not an error.
	if len(segments) > 0 && strings.TrimSpace(segments[0]) == "" && strings.HasPrefix(strings.TrimSpace(query), "|") {
		segments = segments[1:]
	}
	return segments
}

func countUnescaped(s string, ch byte) int {
	count := 0
	for i := 0; i < len(s); i++ {
		if s[i] == ch && (i == 0 || s[i-1] != '\\') {
			count++
		}
	}
	return count
}

// BuildOptions shapes the final dispatched query string.
type BuildOptions struct {
	EarliestTime string
	LatestTime   string
	Fields       []string
}

// Build assembles the final query: bare queries get the explicit `search`
// command and inline time bounds; generating queries (leading pipe) are
// passed through untouched.
func Build(query string, opts BuildOptions) string {
	query = strings.TrimSpace(query)
	if strings.HasPrefix(query, "|") {
		return query
	}

	rest := query
	if name, args, found := strings.Cut(query, " "); found && strings.EqualFold(name, "search") {
		rest = strings.TrimSpace(args)
	} else if strings.EqualFold(query, "search") {
		rest = ""
	}

	var b strings.Builder
	b.WriteString("search")
	if opts.EarliestTime != "" {
		fmt.Fprintf(&b, " earliest=%s", quoteIfNeeded(opts.EarliestTime))
	}
	if opts.LatestTime != "" {
		fmt.Fprintf(&b, " latest=%s", quoteIfNeeded(opts.LatestTime))
	}
	if rest != "" {
		b.WriteString(" ")
		b.WriteString(rest)
	}
	if len(opts.Fields) > 0 {
		fmt.Fprintf(&b, " | fields %s", strings.Join(opts.Fields, ", "))
	}
	return b.String()
}

func quoteIfNeeded(s string) string {
	if strings.ContainsAny(s, " \t") {
		return `"` + s + `"`
	}
	return s
}

var relativeTimePattern = regexp.MustCompile(
	`^[+-]?(\d+)?(s|sec|secs|second|seconds|m|min|mins|minute|minutes|h|hr|hrs|hour|hours|d|day|days|w|week|weeks|mon|month|months|q|qtr|qtrs|quarter|quarters|y|yr|yrs|year|years)?(@(s|m|h|d|w[0-7]?|mon|q|y))?([+-]\d+(s|m|h|d|w|mon|q|y))*$`)

var epochPattern = regexp.MustCompile(`^\d{9,13}(\.\d+)?$`)

// ValidateTimeModifier accepts Splunk relative time modifiers (-24h,
// @d, -1d@d+8h, now, rt markers, epoch seconds) and any absolute
// timestamp dateparse understands. Returns the trimmed modifier.
func ValidateTimeModifier(value string) (string, error) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return "", fmt.Errorf("time modifier must not be empty")
	}

	lower := strings.ToLower(trimmed)
	if lower == "now" || lower == "0" {
		return trimmed, nil
	}
	if strings.HasPrefix(lower, "rt") {
		rest := trimmed[2:]
		if rest == "" {
			return trimmed, nil
		}
		if _, err := ValidateTimeModifier(rest); err != nil {
			return "", fmt.Errorf("invalid real-time modifier %q", value)
		}
		return trimmed, nil
	}
	if epochPattern.MatchString(trimmed) {
		return trimmed, nil
	}
	// Every group in the pattern is optional, so a bare sign would match;
	// require something after it.
	if (strings.HasPrefix(trimmed, "-") || strings.HasPrefix(trimmed, "+") || strings.HasPrefix(trimmed, "@")) &&
		strings.Trim(trimmed, "+-") != "" && relativeTimePattern.MatchString(trimmed) {
		return trimmed, nil
	}

	if _, err := dateparse.ParseAny(trimmed); err != nil {
		return "", fmt.Errorf("invalid time modifier %q: not a relative modifier or parseable timestamp", value)
	}
	return trimmed, nil
}

// Complexity buckets a query by how expensive it looks. It is a heuristic
// for CLI hints only.
type Complexity string

const (
	ComplexityLow    Complexity = "low"
	ComplexityMedium Complexity = "medium"
	ComplexityHigh   Complexity = "high"
)

var expensiveCommands = map[string]bool{
	"transaction": true,
	"join":        true,
	"append":      true,
	"appendcols":  true,
	"map":         true,
	"mvexpand":    true,
}

// EstimateComplexity assigns a rough cost bucket based on pipeline length,
// expensive commands, wildcarded index scope, and subsearches.
func EstimateComplexity(query string) Complexity {
	commands := Commands(query)
	score := 0

	if len(commands) > 5 {
		score += 2
	} else if len(commands) > 2 {
		score++
	}
	for _, cmd := range commands {
		if expensiveCommands[cmd.Name] {
			score += 2
		}
	}
	if strings.Contains(query, "[") {
		score += 2
	}
	if strings.Contains(query, "index=*") || !strings.Contains(query, "index=") {
		score++
	}

	switch {
	case score >= 4:
		return ComplexityHigh
	case score >= 2:
		return ComplexityMedium
	default:
		return ComplexityLow
	}
}

// Suggestions returns optimization hints for a query. Empty when there is
// nothing useful to say.
func Suggestions(query string) []string {
	var suggestions []string
	commands := Commands(query)

	if len(commands) > 0 && commands[0].Name == "search" && !strings.Contains(commands[0].Args, "index=") {
		suggestions = append(suggestions, "specify an index (index=...) to avoid searching all indexes")
	}
	for i, cmd := range commands {
		switch cmd.Name {
		case "join":
			suggestions = append(suggestions, "join is expensive; consider stats with a common key instead")
		case "transaction":
			suggestions = append(suggestions, "transaction is expensive; stats with values()/range() is usually cheaper")
		case "table", "fields":
			if i < len(commands)/2 {
				continue
			}
			suggestions = append(suggestions, fmt.Sprintf("move %s earlier in the pipeline to reduce data carried between stages", cmd.Name))
		}
	}
	if strings.Contains(query, "index=*") {
		suggestions = append(suggestions, "index=* scans every index; narrow the scope if possible")
	}
	return suggestions
}

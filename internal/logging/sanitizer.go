package logging

import (
	"regexp"
)

const redacted = "[REDACTED]"

// redactRule replaces every match of re with repl.
type redactRule struct {
	re   *regexp.Regexp
	repl string
}

// Sanitizer redacts credentials from log messages and string attributes.
// Run data (ids, seeds, timestamps, payloads) never matches its rules.
type Sanitizer struct {
	rules []redactRule
}

// NewSanitizer creates a sanitizer with the default rules.
func NewSanitizer() *Sanitizer {
	return &Sanitizer{rules: defaultRules()}
}

func defaultRules() []redactRule {
	rules := []redactRule{
		// Provider API keys that may appear in model configuration
		{re: regexp.MustCompile(`sk-[A-Za-z0-9_-]{20,}`)},
		{re: regexp.MustCompile(`AIza[a-zA-Z0-9_-]{35}`)},
		{re: regexp.MustCompile(`AKIA[0-9A-Z]{16}`)},
		// Authorization headers echoed by the HTTP layer
		{re: regexp.MustCompile(`(?i)(bearer|basic)\s+[a-zA-Z0-9._+/=-]{16,}`)},
		// key=value style secrets
		{re: regexp.MustCompile(`(?i)(api[_-]?key|secret|token)["'\s:=]+[a-zA-Z0-9_-]{20,}`)},
		{re: regexp.MustCompile(`(?i)password["'\s:=]+[^\s"']{8,}`)},
		// Userinfo in URLs such as store or listen addresses; the host stays
		{re: regexp.MustCompile(`://[^/\s:@]+:[^/\s@]+@`), repl: "://" + redacted + "@"},
	}
	for i := range rules {
		if rules[i].repl == "" {
			rules[i].repl = redacted
		}
	}
	return rules
}

// Sanitize redacts sensitive information from a string.
func (s *Sanitizer) Sanitize(input string) string {
	if input == "" {
		return input
	}
	for _, r := range s.rules {
		input = r.re.ReplaceAllLiteralString(input, r.repl)
	}
	return input
}

// AddPattern adds a rule whose matches are replaced wholesale.
func (s *Sanitizer) AddPattern(pattern string) error {
	re, err := regexp.Compile(pattern)
	if err != nil {
		return err
	}
	s.rules = append(s.rules, redactRule{re: re, repl: redacted})
	return nil
}

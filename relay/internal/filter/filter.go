// Package filter implements the severity allow-list applied before a finding
// is rendered.
package filter

import (
	"fmt"
	"strings"
)

// DefaultSeverities is used when no allow-list is configured.
const DefaultSeverities = "high,medium,low"

// Filter is an immutable, case-insensitive set of allowed severities.
type Filter struct {
	allowed map[string]struct{}
	raw     string
}

// New parses a comma-separated allow-list. Entries are trimmed and
// lower-cased; empty entries are ignored. A blank csv yields the defaults.
func New(csv string) *Filter {
	if strings.TrimSpace(csv) == "" {
		csv = DefaultSeverities
	}
	f := &Filter{allowed: make(map[string]struct{}), raw: csv}
	for _, s := range strings.Split(csv, ",") {
		s = strings.ToLower(strings.TrimSpace(s))
		if s != "" {
			f.allowed[s] = struct{}{}
		}
	}
	return f
}

// Allow reports whether a finding of the given severity may be forwarded.
func (f *Filter) Allow(severity string) bool {
	_, ok := f.allowed[strings.ToLower(strings.TrimSpace(severity))]
	return ok
}

// String returns the allow-list as configured.
func (f *Filter) String() string { return f.raw }

// Reason is the message reported for a finding the filter dropped.
func (f *Filter) Reason() string {
	return fmt.Sprintf("Finding dropped due to severity filter. Severity levels allowed: %s", f.raw)
}

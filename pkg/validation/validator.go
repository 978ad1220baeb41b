package validation

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/hyperionkit/hyperbeats/pkg/activity"
)

// MaxRepos is the maximum number of repositories per request
const MaxRepos = 10

// maxRepoLength bounds a single "owner/name" entry
const maxRepoLength = 100

// repoPattern matches "owner/name" GitHub-style repository identifiers
var repoPattern = regexp.MustCompile(`^[a-zA-Z0-9]([a-zA-Z0-9._-]*[a-zA-Z0-9])?/[a-zA-Z0-9._-]+$`)

// Dimension limits for rendered charts
const (
	MinWidth  = 200
	MaxWidth  = 2000
	MinHeight = 100
	MaxHeight = 1000
)

// ValidFormats enumerates supported chart output formats
var ValidFormats = []string{"svg", "png"}

// ParseRepos validates a comma-separated repos parameter and returns
// normalized repository refs. At most MaxRepos entries are accepted and
// every entry must match the owner/name pattern with no path traversal.
func ParseRepos(param string) ([]activity.RepositoryRef, error) {
	raw := splitNonEmpty(param)
	if len(raw) == 0 {
		return nil, fmt.Errorf("At least one repository is required")
	}
	if len(raw) > MaxRepos {
		return nil, fmt.Errorf("Maximum 10 repositories allowed per request")
	}

	refs := make([]activity.RepositoryRef, 0, len(raw))
	seen := make(map[string]struct{}, len(raw))
	for _, entry := range raw {
		if len(entry) > maxRepoLength {
			return nil, fmt.Errorf("Repository name too long: %s...", entry[:20])
		}
		if strings.Contains(entry, "..") || strings.HasPrefix(entry, "/") || strings.HasSuffix(entry, "/") {
			return nil, fmt.Errorf("Invalid repository name: %s", entry)
		}
		if !repoPattern.MatchString(entry) {
			return nil, fmt.Errorf("Invalid repository format: %s. Expected 'owner/repo'", entry)
		}
		ref, err := activity.ParseRepositoryRef(entry)
		if err != nil {
			return nil, err
		}
		// Duplicates collapse to one aggregation unit
		if _, dup := seen[ref.String()]; dup {
			continue
		}
		seen[ref.String()] = struct{}{}
		refs = append(refs, ref)
	}
	return refs, nil
}

// ParseTimeframe validates the timeframe parameter, defaulting to 7d
// when absent.
func ParseTimeframe(param string) (activity.Timeframe, error) {
	if param == "" {
		return activity.TimeframeWeek, nil
	}
	return activity.ParseTimeframe(param)
}

// ValidateFormat checks the chart output format
func ValidateFormat(format string) error {
	for _, f := range ValidFormats {
		if format == f {
			return nil
		}
	}
	return fmt.Errorf("Invalid format: %s. Valid options: png, svg", format)
}

// ValidateDimensions checks chart width and height bounds
func ValidateDimensions(width, height int) error {
	if width < MinWidth || width > MaxWidth {
		return fmt.Errorf("Width must be between %d and %d pixels", MinWidth, MaxWidth)
	}
	if height < MinHeight || height > MaxHeight {
		return fmt.Errorf("Height must be between %d and %d pixels", MinHeight, MaxHeight)
	}
	return nil
}

// ParseMetricsFilter validates the metrics filter parameter and returns
// the selected metric names in canonical sorted order, or nil when no
// filter was given.
func ParseMetricsFilter(param string) ([]string, error) {
	if param == "" {
		return nil, nil
	}
	known := map[string]struct{}{
		"commits":       {},
		"prs_opened":    {},
		"prs_merged":    {},
		"issues_opened": {},
		"issues_closed": {},
		"contributors":  {},
	}
	fields := splitNonEmpty(param)
	selected := make(map[string]struct{}, len(fields))
	for _, f := range fields {
		if _, ok := known[f]; !ok {
			return nil, fmt.Errorf("Invalid metric: %s", f)
		}
		selected[f] = struct{}{}
	}
	out := make([]string, 0, len(selected))
	for f := range selected {
		out = append(out, f)
	}
	sort.Strings(out)
	return out, nil
}

func splitNonEmpty(param string) []string {
	var out []string
	for _, part := range strings.Split(param, ",") {
		part = strings.TrimSpace(part)
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}

package validation

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hyperionkit/hyperbeats/pkg/activity"
)

func TestParseRepos_Valid(t *testing.T) {
	refs, err := ParseRepos("octocat/Hello-World,microsoft/vscode")
	require.NoError(t, err)
	require.Len(t, refs, 2)
	assert.Equal(t, "octocat/hello-world", refs[0].String())
	assert.Equal(t, "microsoft/vscode", refs[1].String())
}

func TestParseRepos_CollapsesDuplicates(t *testing.T) {
	refs, err := ParseRepos("a/b,A/B,a/b")
	require.NoError(t, err)
	assert.Len(t, refs, 1)
}

func TestParseRepos_Empty(t *testing.T) {
	_, err := ParseRepos("")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "At least one repository")
}

func TestParseRepos_TooMany(t *testing.T) {
	entries := make([]string, 11)
	for i := range entries {
		entries[i] = "owner/repo" + string(rune('a'+i))
	}

	_, err := ParseRepos(strings.Join(entries, ","))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Maximum 10 repositories")
}

func TestParseRepos_Invalid(t *testing.T) {
	tests := []struct {
		name  string
		param string
	}{
		{"no slash", "justaname"},
		{"path traversal", "owner/../etc"},
		{"leading slash", "/owner/repo"},
		{"trailing slash", "owner/repo/"},
		{"bad characters", "owner/re po"},
		{"too long", strings.Repeat("a", 101) + "/repo"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseRepos(tt.param)
			assert.Error(t, err)
		})
	}
}

func TestParseTimeframe(t *testing.T) {
	tf, err := ParseTimeframe("")
	require.NoError(t, err)
	assert.Equal(t, activity.TimeframeWeek, tf)

	tf, err = ParseTimeframe("30d")
	require.NoError(t, err)
	assert.Equal(t, activity.TimeframeMonth, tf)

	_, err = ParseTimeframe("14d")
	assert.Error(t, err)
}

func TestValidateFormat(t *testing.T) {
	assert.NoError(t, ValidateFormat("svg"))
	assert.NoError(t, ValidateFormat("png"))
	assert.Error(t, ValidateFormat("gif"))
	assert.Error(t, ValidateFormat(""))
}

func TestValidateDimensions(t *testing.T) {
	assert.NoError(t, ValidateDimensions(800, 400))
	assert.NoError(t, ValidateDimensions(200, 100))
	assert.NoError(t, ValidateDimensions(2000, 1000))

	err := ValidateDimensions(199, 400)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Width must be between 200 and 2000")

	err = ValidateDimensions(800, 1001)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Height must be between 100 and 1000")
}

func TestParseMetricsFilter(t *testing.T) {
	filter, err := ParseMetricsFilter("")
	require.NoError(t, err)
	assert.Nil(t, filter)

	filter, err = ParseMetricsFilter("prs_merged,commits,commits")
	require.NoError(t, err)
	assert.Equal(t, []string{"commits", "prs_merged"}, filter)

	_, err = ParseMetricsFilter("commits,velocity")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Invalid metric: velocity")
}

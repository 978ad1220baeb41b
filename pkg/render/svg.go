package render

import (
	"fmt"
	"strings"

	"github.com/hyperionkit/hyperbeats/pkg/activity"
)

// ChartOptions selects the rendered chart's dimensions, palette, and
// title. Zero dimensions fall back to the defaults.
type ChartOptions struct {
	Width  int
	Height int
	Theme  Theme
	Title  string
}

const (
	DefaultWidth  = 800
	DefaultHeight = 400

	paddingTop    = 60
	paddingRight  = 40
	paddingBottom = 60
	paddingLeft   = 70
)

func (o *ChartOptions) normalize() {
	if o.Width <= 0 {
		o.Width = DefaultWidth
	}
	if o.Height <= 0 {
		o.Height = DefaultHeight
	}
	if o.Title == "" {
		o.Title = "Repository Activity"
	}
	if o.Theme.Name == "" {
		o.Theme, _ = ParseTheme(DefaultTheme)
	}
}

func (o ChartOptions) chartWidth() int  { return o.Width - paddingLeft - paddingRight }
func (o ChartOptions) chartHeight() int { return o.Height - paddingTop - paddingBottom }

// ActivityChartSVG renders the three-series activity line chart.
// Output contains no timestamps or random identifiers, so the same
// series and options always produce the same bytes.
func ActivityChartSVG(series []activity.TimeSeriesPoint, opts ChartOptions) []byte {
	opts.normalize()
	colors := opts.Theme

	if len(series) == 0 {
		series = []activity.TimeSeriesPoint{{}}
	}

	var maxValue int64 = 1
	for _, p := range series {
		for _, v := range []int64{p.Commits, p.PRsMerged, p.IssuesClosed} {
			if v > maxValue {
				maxValue = v
			}
		}
	}

	commitsPath := linePath(series, func(p activity.TimeSeriesPoint) int64 { return p.Commits }, maxValue, opts)
	prsPath := linePath(series, func(p activity.TimeSeriesPoint) int64 { return p.PRsMerged }, maxValue, opts)
	issuesPath := linePath(series, func(p activity.TimeSeriesPoint) int64 { return p.IssuesClosed }, maxValue, opts)

	var b strings.Builder
	fmt.Fprintf(&b, `<?xml version="1.0" encoding="UTF-8"?>
<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 %d %d" width="%d" height="%d">
  <defs>
    <style>
      .chart-title { font-family: system-ui, -apple-system, sans-serif; font-size: 18px; font-weight: 600; }
      .axis-label { font-family: system-ui, sans-serif; font-size: 11px; }
      .legend-text { font-family: system-ui, sans-serif; font-size: 12px; }
      .grid-line { stroke: %s; stroke-width: 1; opacity: 0.5; }
      .axis-line { stroke: %s; stroke-width: 1; }
    </style>
  </defs>

  <rect width="%d" height="%d" fill="%s"/>

  <text x="%d" y="30" class="chart-title" text-anchor="middle" fill="%s">%s</text>

`, opts.Width, opts.Height, opts.Width, opts.Height,
		colors.Grid, colors.Border,
		opts.Width, opts.Height, colors.Background,
		opts.Width/2, colors.Text, escapeText(opts.Title))

	writeGrid(&b, opts)

	fmt.Fprintf(&b, `  <g transform="translate(%d, %d)">
    <path d="%s" fill="none" stroke="%s" stroke-width="2.5" stroke-linecap="round" stroke-linejoin="round"/>
    <path d="%s" fill="none" stroke="%s" stroke-width="2.5" stroke-linecap="round" stroke-linejoin="round"/>
    <path d="%s" fill="none" stroke="%s" stroke-width="2.5" stroke-linecap="round" stroke-linejoin="round"/>
  </g>

`, paddingLeft, paddingTop,
		commitsPath, colors.Primary,
		prsPath, colors.Secondary,
		issuesPath, colors.Accent)

	writeAxes(&b, maxValue, opts)
	writeLegend(&b, opts)

	b.WriteString("</svg>\n")
	return []byte(b.String())
}

func linePath(series []activity.TimeSeriesPoint, value func(activity.TimeSeriesPoint) int64, maxValue int64, opts ChartOptions) string {
	xStep := float64(opts.chartWidth())
	if len(series) > 1 {
		xStep = float64(opts.chartWidth()) / float64(len(series)-1)
	}

	points := make([]string, 0, len(series))
	for i, p := range series {
		x := float64(i) * xStep
		y := float64(opts.chartHeight()) - float64(value(p))/float64(maxValue)*float64(opts.chartHeight())
		points = append(points, fmt.Sprintf("%.1f,%.1f", x, y))
	}

	if len(points) == 1 {
		return "M " + points[0]
	}
	return "M " + points[0] + " L " + strings.Join(points[1:], " L ")
}

func writeGrid(b *strings.Builder, opts ChartOptions) {
	for i := 0; i < 5; i++ {
		y := paddingTop + i*opts.chartHeight()/4
		fmt.Fprintf(b, "  <line x1=\"%d\" y1=\"%d\" x2=\"%d\" y2=\"%d\" class=\"grid-line\"/>\n",
			paddingLeft, y, opts.Width-paddingRight, y)
	}
	b.WriteString("\n")
}

func writeAxes(b *strings.Builder, maxValue int64, opts ChartOptions) {
	colors := opts.Theme

	fmt.Fprintf(b, "  <line x1=\"%d\" y1=\"%d\" x2=\"%d\" y2=\"%d\" class=\"axis-line\"/>\n",
		paddingLeft, paddingTop, paddingLeft, opts.Height-paddingBottom)
	fmt.Fprintf(b, "  <line x1=\"%d\" y1=\"%d\" x2=\"%d\" y2=\"%d\" class=\"axis-line\"/>\n",
		paddingLeft, opts.Height-paddingBottom, opts.Width-paddingRight, opts.Height-paddingBottom)

	for i := 0; i < 5; i++ {
		y := paddingTop + i*opts.chartHeight()/4
		label := maxValue - int64(i)*maxValue/4
		fmt.Fprintf(b, "  <text x=\"%d\" y=\"%d\" class=\"axis-label\" text-anchor=\"end\" fill=\"%s\">%d</text>\n",
			paddingLeft-10, y+4, colors.Muted, label)
	}
	b.WriteString("\n")
}

func writeLegend(b *strings.Builder, opts ChartOptions) {
	colors := opts.Theme
	fmt.Fprintf(b, `  <g transform="translate(%d, 50)">
    <rect width="140" height="80" fill="%s" stroke="%s" rx="4"/>
    <circle cx="15" cy="20" r="5" fill="%s"/>
    <text x="30" y="24" class="legend-text" fill="%s">Commits</text>
    <circle cx="15" cy="45" r="5" fill="%s"/>
    <text x="30" y="49" class="legend-text" fill="%s">PRs Merged</text>
    <circle cx="15" cy="70" r="5" fill="%s"/>
    <text x="30" y="74" class="legend-text" fill="%s">Issues Closed</text>
  </g>
`, opts.Width-150,
		colors.Background, colors.Border,
		colors.Primary, colors.Text,
		colors.Secondary, colors.Text,
		colors.Accent, colors.Text)
}

func escapeText(s string) string {
	replacer := strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;", `"`, "&quot;")
	return replacer.Replace(s)
}

package render

import (
	"fmt"
	"sort"
	"strings"
)

// Theme is a fixed chart palette. The three series colors are Primary
// (commits), Secondary (PRs merged), and Accent (issues closed).
type Theme struct {
	Name       string `json:"name"`
	Background string `json:"background"`
	Text       string `json:"text"`
	Primary    string `json:"primary"`
	Secondary  string `json:"secondary"`
	Accent     string `json:"accent"`
	Grid       string `json:"grid"`
	Border     string `json:"border"`
	Muted      string `json:"muted"`
}

// DefaultTheme is used when the request names no theme
const DefaultTheme = "light"

var themes = map[string]Theme{
	"light": {
		Name:       "light",
		Background: "#ffffff",
		Text:       "#1f2937",
		Primary:    "#3182ce",
		Secondary:  "#48bb78",
		Accent:     "#ed8936",
		Grid:       "#e2e8f0",
		Border:     "#d1d5db",
		Muted:      "#9ca3af",
	},
	"dark": {
		Name:       "dark",
		Background: "#1a202c",
		Text:       "#e2e8f0",
		Primary:    "#63b3ed",
		Secondary:  "#68d391",
		Accent:     "#f6ad55",
		Grid:       "#4a5568",
		Border:     "#4a5568",
		Muted:      "#718096",
	},
	"hyperkit": {
		Name:       "hyperkit",
		Background: "#0f1419",
		Text:       "#e8f0f7",
		Primary:    "#2186b5",
		Secondary:  "#8bcf7f",
		Accent:     "#f59e0b",
		Grid:       "#2d3748",
		Border:     "#374151",
		Muted:      "#6b7280",
	},
	"mint": {
		Name:       "mint",
		Background: "#f0fdf4",
		Text:       "#1e4e2c",
		Primary:    "#10b981",
		Secondary:  "#34d399",
		Accent:     "#6ee7b7",
		Grid:       "#d1fae5",
		Border:     "#a7f3d0",
		Muted:      "#6ee7b7",
	},
	"sunset": {
		Name:       "sunset",
		Background: "#1f1f1f",
		Text:       "#fef3c7",
		Primary:    "#f97316",
		Secondary:  "#fb923c",
		Accent:     "#fbbf24",
		Grid:       "#374151",
		Border:     "#4b5563",
		Muted:      "#9ca3af",
	},
	"ocean": {
		Name:       "ocean",
		Background: "#0c4a6e",
		Text:       "#f0f9ff",
		Primary:    "#38bdf8",
		Secondary:  "#7dd3fc",
		Accent:     "#0ea5e9",
		Grid:       "#164e63",
		Border:     "#155e75",
		Muted:      "#67e8f9",
	},
	"forest": {
		Name:       "forest",
		Background: "#14532d",
		Text:       "#f0fdf4",
		Primary:    "#22c55e",
		Secondary:  "#4ade80",
		Accent:     "#86efac",
		Grid:       "#166534",
		Border:     "#15803d",
		Muted:      "#6ee7b7",
	},
}

// ParseTheme resolves a theme name; empty selects the default
func ParseTheme(name string) (Theme, error) {
	if name == "" {
		name = DefaultTheme
	}
	theme, ok := themes[name]
	if !ok {
		return Theme{}, fmt.Errorf("Invalid theme: %s. Valid options: %s", name, themeNamesJoined())
	}
	return theme, nil
}

// ThemeNames lists the available themes in sorted order
func ThemeNames() []string {
	names := make([]string, 0, len(themes))
	for name := range themes {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Themes returns the full palette set in name order, for the theme
// listing endpoint.
func Themes() []Theme {
	names := ThemeNames()
	out := make([]Theme, 0, len(names))
	for _, name := range names {
		out = append(out, themes[name])
	}
	return out
}

func themeNamesJoined() string {
	return strings.Join(ThemeNames(), ", ")
}

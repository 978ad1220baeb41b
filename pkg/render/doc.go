// Package render produces activity charts as SVG or PNG. Output is a
// pure function of the series data, dimensions, and theme: identical
// inputs yield byte-identical bytes, which keeps charts cacheable and
// embeds stable.
package render

// Package schema locates the header row of an untyped sheet and derives a
// unique, canonical column name for every physical column.
//
// Header detection scans the first rows of a grid and accepts the first row
// that is at least half populated, at least half text, and does not open with
// a metadata banner. When no row qualifies, row 0 is used and the placement is
// marked as a fallback.
//
// Column naming depends on sibling labels: duplicate suffixes are assigned
// left to right within one call, so the same label may receive different names
// in different sheets. NormalizeColumnNames keeps its duplicate counters local
// to each call, which makes repeated calls on the same input return the same
// result.
package schema

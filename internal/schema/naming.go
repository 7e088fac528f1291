package schema

import (
	"fmt"
	"regexp"
	"strings"

	"plaudit/pkg/contracts/domain"
)

// Placeholder names a column whose label is blank or normalizes to nothing.
const Placeholder = "unnamed"

var (
	parenthesized = regexp.MustCompile(`\(([^)]+)\)`)
	nonWord       = regexp.MustCompile(`[^\p{L}\p{N}_\s]`)
	whitespace    = regexp.MustCompile(`\s+`)
	underscores   = regexp.MustCompile(`_+`)
)

// ToSnakeCase converts a label to its canonical token form. Parenthesized text
// is kept as its own token, every run of other characters becomes a single
// underscore, and an empty result becomes the placeholder.
//
//	"Hourly Rate (USD)" -> "hourly_rate_usd"
//	"2018 Total"        -> "2018_total"
func ToSnakeCase(label string) string {
	name := strings.TrimSpace(label)
	name = parenthesized.ReplaceAllString(name, "_$1")
	name = nonWord.ReplaceAllString(name, "_")
	name = whitespace.ReplaceAllString(name, "_")
	name = underscores.ReplaceAllString(name, "_")
	name = strings.ToLower(name)
	name = strings.Trim(name, "_")
	if name == "" {
		return Placeholder
	}
	return name
}

// dedupe suffixes repeated values with _1, _2, ... in left-to-right order. A
// suffix is skipped when it would collide with a name already emitted.
func dedupe(values []string) []string {
	seen := make(map[string]int, len(values))
	used := make(map[string]bool, len(values))
	out := make([]string, len(values))
	for i, v := range values {
		if !used[v] {
			used[v] = true
			out[i] = v
			continue
		}
		n := seen[v]
		candidate := v
		for used[candidate] {
			n++
			candidate = fmt.Sprintf("%s_%d", v, n)
		}
		seen[v] = n
		used[candidate] = true
		out[i] = candidate
	}
	return out
}

// NormalizeColumnNames derives one mapping per label: blanks become the
// placeholder, duplicate raw labels are suffixed, each label is converted with
// ToSnakeCase, and duplicates introduced by the conversion are suffixed again.
func NormalizeColumnNames(labels []string) []domain.ColumnMapping {
	raw := make([]string, len(labels))
	for i, l := range labels {
		if strings.TrimSpace(l) == "" {
			raw[i] = Placeholder
			continue
		}
		raw[i] = l
	}
	raw = dedupe(raw)

	normalized := make([]string, len(raw))
	for i, l := range raw {
		normalized[i] = ToSnakeCase(l)
	}
	normalized = dedupe(normalized)

	mappings := make([]domain.ColumnMapping, len(labels))
	for i := range labels {
		mappings[i] = domain.ColumnMapping{
			Position:       i,
			OriginalLabel:  labels[i],
			NormalizedName: normalized[i],
		}
	}
	return mappings
}

// HeaderLabels returns the raw text of every cell in the header row.
func HeaderLabels(grid domain.RawGrid, row int) []string {
	labels := make([]string, grid.Width)
	for c := 0; c < grid.Width; c++ {
		labels[c] = grid.At(row, c).Raw
	}
	return labels
}

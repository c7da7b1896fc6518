package catalog

import (
	"sort"

	"golang.org/x/text/unicode/norm"
)

// AllCategory is the synthetic entry that selects every category.
const AllCategory = "All"

// WithAll returns AllCategory followed by the given labels in lexicographic
// order. Labels are NFC-normalised before sorting so that composed and
// decomposed spellings of the same label compare equal. The input slice is
// not modified, and an AllCategory label in the input is not repeated.
func WithAll(categories []string) []string {
	sorted := make([]string, 0, len(categories))
	for _, c := range categories {
		c = norm.NFC.String(c)
		if c == AllCategory {
			continue
		}
		sorted = append(sorted, c)
	}
	sort.Strings(sorted)
	return append([]string{AllCategory}, sorted...)
}

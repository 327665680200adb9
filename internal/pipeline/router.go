package pipeline

import (
	"fmt"
	"regexp"
	"sort"

	"github.com/jarojasag/covid-crime/internal/config"
	"github.com/jarojasag/covid-crime/pkg/contracts/domain"
)

// CategoryBinding maps one crime category to the source dataset
// identifiers whose names matched its pattern. Bindings are resolved
// once from configuration; runs never re-match names.
type CategoryBinding struct {
	Category string
	Sources  []string
}

// ResolveCategories compiles each category pattern and binds the
// matching identifiers in sorted order, so concatenation across sources
// is deterministic. A pattern with zero matches yields a binding with
// no sources; the caller should warn, since it usually means a naming
// mismatch between config and source declarations.
func ResolveCategories(identifiers []string, patterns []config.CategoryPattern) ([]CategoryBinding, error) {
	sorted := append([]string(nil), identifiers...)
	sort.Strings(sorted)

	bindings := make([]CategoryBinding, 0, len(patterns))
	for _, p := range patterns {
		re, err := regexp.Compile(p.Pattern)
		if err != nil {
			return nil, fmt.Errorf("category %s: invalid pattern %q: %w", p.Name, p.Pattern, err)
		}
		binding := CategoryBinding{Category: p.Name}
		for _, id := range sorted {
			if re.MatchString(id) {
				binding.Sources = append(binding.Sources, id)
			}
		}
		bindings = append(bindings, binding)
	}
	return bindings, nil
}

// Concat assembles the CategoryDataset for one binding by concatenating
// the aggregated counts of its bound sources in binding order. Missing
// identifiers contribute nothing; an unbound category yields an empty
// dataset, not an error.
func Concat(binding CategoryBinding, datasets map[string][]domain.AggregatedCount) domain.CategoryDataset {
	out := domain.CategoryDataset{
		Category: binding.Category,
		Sources:  append([]string(nil), binding.Sources...),
	}
	for _, id := range binding.Sources {
		out.Counts = append(out.Counts, datasets[id]...)
	}
	return out
}

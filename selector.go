/*
Package compositor – index selection.

Given only the attribute names a caller has at hand, the selector decides
which index can service the operation. Selection is a pure function over the
schema and the name set; identical inputs always pick the same index.
*/
package compositor

import "sort"

// Intent distinguishes read (query) selection from write selection.
type Intent int

const (
	IntentRead Intent = iota
	IntentWrite
)

func (i Intent) String() string {
	if i == IntentWrite {
		return "write"
	}
	return "read"
}

// IndexSelector ranks a schema's indexes against a set of known attributes.
type IndexSelector struct {
	schema *TableSchema
}

// NewIndexSelector builds a selector over the given schema.
func NewIndexSelector(schema *TableSchema) *IndexSelector {
	return &IndexSelector{schema: schema}
}

// Select returns the single best index able to service an operation that
// knows only the named attributes.
//
// Read intent: an index is satisfiable when every placeholder of its
// partition key, and of its sort key if it has one, is known. Satisfiable
// indexes are ranked by (weight desc, specificity desc, declaration order
// asc); the primary's sentinel weight means it wins whenever it is itself
// satisfiable. An empty satisfiable set is a definitive failure — retrying
// with the same attributes cannot succeed.
//
// Write intent: a write must populate the key attributes of every index, so
// all indexes must be satisfiable; the primary is returned.
func (s *IndexSelector) Select(knownAttributes []string, intent Intent) (*IndexDefinition, error) {
	known := make(map[string]bool, len(knownAttributes))
	for _, a := range knownAttributes {
		known[a] = true
	}

	if intent == IntentWrite {
		for _, idx := range s.schema.Indexes() {
			if !idx.Satisfiable(known) {
				return nil, &NoIndexSatisfiesQueryError{
					Intent: intent,
					Known:  sortedNames(known),
					Index:  idx.Name(),
				}
			}
		}
		return s.schema.PrimaryIndex(), nil
	}

	var candidates []*IndexDefinition
	order := map[*IndexDefinition]int{}
	for i, idx := range s.schema.Indexes() {
		order[idx] = i
		if idx.Satisfiable(known) {
			candidates = append(candidates, idx)
		}
	}
	if len(candidates) == 0 {
		return nil, &NoIndexSatisfiesQueryError{Intent: intent, Known: sortedNames(known)}
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		a, b := candidates[i], candidates[j]
		if a.Weight() != b.Weight() {
			return a.Weight() > b.Weight()
		}
		if a.Specificity() != b.Specificity() {
			return a.Specificity() > b.Specificity()
		}
		return order[a] < order[b]
	})
	return candidates[0], nil
}

// SelectValues is a convenience wrapper that selects using the names of the
// non-nil values in the set.
func (s *IndexSelector) SelectValues(values AttributeSet, intent Intent) (*IndexDefinition, error) {
	return s.Select(presentNames(values), intent)
}

func sortedNames(set map[string]bool) []string {
	names := make([]string, 0, len(set))
	for k := range set {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

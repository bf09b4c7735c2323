/*
Package compositor – index definitions.

An IndexDefinition names a table index (primary, global secondary or local
secondary) and binds its partition and sort key attributes to composite-key
formatters. Definitions are constructed once at schema-definition time and
are immutable afterwards.
*/
package compositor

// IndexKind tags the three supported index variants.
type IndexKind string

const (
	IndexPrimary         IndexKind = "primary"
	IndexGlobalSecondary IndexKind = "global-secondary"
	IndexLocalSecondary  IndexKind = "local-secondary"
)

// Default selection weights per kind. Secondary weights are configurable per
// index; the primary's effective weight is a sentinel strictly above any
// configurable secondary weight, so the primary always wins when usable.
const (
	weightGlobalSecondary = 90
	weightLocalSecondary  = 80

	// maxSecondaryWeight bounds configurable secondary weights.
	maxSecondaryWeight = 1<<20 - 1
	// primarySentinelWeight is the primary's fixed effective weight.
	primarySentinelWeight = 1 << 20
)

// IndexConfig is the constructor input for an index definition.
type IndexConfig struct {
	Name string // required for secondary indexes; primary is always "primary"

	PartitionKeyName   string // physical partition-key attribute (required)
	PartitionKeyFormat string // composite template for the partition key (required)

	SortKeyName   string // physical sort-key attribute (optional)
	SortKeyFormat string // composite template for the sort key (required iff SortKeyName set)

	// Weight ranks this index against other secondaries at selection time
	// (higher preferred). Zero means the kind's default. Ignored for primary.
	Weight int

	// CompositeSeparator records the separator convention used by the
	// formats. Required when both keys carry multi-placeholder templates.
	CompositeSeparator string
}

// IndexDefinition is one validated, immutable index.
type IndexDefinition struct {
	name      string
	kind      IndexKind
	partition *KeyFormatter
	sort      *KeyFormatter // nil when the index has no sort key
	weight    int
	separator string
}

// NewPrimaryIndex builds the table's primary index definition.
func NewPrimaryIndex(cfg IndexConfig) (*IndexDefinition, error) {
	cfg.Name = "primary"
	return newIndex(cfg, IndexPrimary)
}

// NewGlobalSecondaryIndex builds a GSI definition.
func NewGlobalSecondaryIndex(cfg IndexConfig) (*IndexDefinition, error) {
	return newIndex(cfg, IndexGlobalSecondary)
}

// NewLocalSecondaryIndex builds an LSI definition. Schema validation enforces
// that its partition key matches the primary's.
func NewLocalSecondaryIndex(cfg IndexConfig) (*IndexDefinition, error) {
	return newIndex(cfg, IndexLocalSecondary)
}

func newIndex(cfg IndexConfig, kind IndexKind) (*IndexDefinition, error) {
	if kind != IndexPrimary && cfg.Name == "" {
		return nil, &SchemaValidationError{Index: cfg.Name, Reason: "secondary index requires a name"}
	}
	if cfg.PartitionKeyName == "" || cfg.PartitionKeyFormat == "" {
		return nil, &SchemaValidationError{Index: cfg.Name, Reason: "partition key name and format are required"}
	}
	if (cfg.SortKeyName == "") != (cfg.SortKeyFormat == "") {
		return nil, &SchemaValidationError{Index: cfg.Name, Reason: "sort key name and format must be set together"}
	}

	partition, err := NewKeyFormatter(cfg.PartitionKeyName, cfg.PartitionKeyFormat, cfg.CompositeSeparator)
	if err != nil {
		return nil, err
	}
	var sort *KeyFormatter
	if cfg.SortKeyName != "" {
		sort, err = NewKeyFormatter(cfg.SortKeyName, cfg.SortKeyFormat, cfg.CompositeSeparator)
		if err != nil {
			return nil, err
		}
	}

	if cfg.CompositeSeparator == "" && sort != nil &&
		len(partition.RequiredAttributes()) > 0 && len(sort.RequiredAttributes()) > 0 {
		return nil, &SchemaValidationError{Index: cfg.Name,
			Reason: "composite separator must be specified when both keys use format placeholders"}
	}

	weight := cfg.Weight
	switch kind {
	case IndexPrimary:
		weight = primarySentinelWeight
	case IndexGlobalSecondary:
		if weight == 0 {
			weight = weightGlobalSecondary
		}
	case IndexLocalSecondary:
		if weight == 0 {
			weight = weightLocalSecondary
		}
	default:
		return nil, &SchemaValidationError{Index: cfg.Name, Reason: "unknown index kind"}
	}
	if kind != IndexPrimary && (weight < 1 || weight > maxSecondaryWeight) {
		return nil, &SchemaValidationError{Index: cfg.Name, Reason: "secondary index weight out of range"}
	}

	return &IndexDefinition{
		name:      cfg.Name,
		kind:      kind,
		partition: partition,
		sort:      sort,
		weight:    weight,
		separator: cfg.CompositeSeparator,
	}, nil
}

// Name returns the index name ("primary" for the primary index).
func (d *IndexDefinition) Name() string { return d.name }

// Kind returns the index variant.
func (d *IndexDefinition) Kind() IndexKind { return d.kind }

// IsPrimary reports whether this is the primary index.
func (d *IndexDefinition) IsPrimary() bool { return d.kind == IndexPrimary }

// Weight returns the effective selection weight.
func (d *IndexDefinition) Weight() int { return d.weight }

// PartitionKey returns the partition-key formatter.
func (d *IndexDefinition) PartitionKey() *KeyFormatter { return d.partition }

// SortKey returns the sort-key formatter, or nil when the index has none.
func (d *IndexDefinition) SortKey() *KeyFormatter { return d.sort }

// RequiredAttributes returns the placeholder names of both key formatters,
// partition first, without duplicates.
func (d *IndexDefinition) RequiredAttributes() []string {
	out := append([]string(nil), d.partition.RequiredAttributes()...)
	if d.sort != nil {
		seen := map[string]bool{}
		for _, f := range out {
			seen[f] = true
		}
		for _, f := range d.sort.RequiredAttributes() {
			if !seen[f] {
				out = append(out, f)
			}
		}
	}
	return out
}

// Specificity is the total number of placeholders the index's formatters
// require. More specific key shapes are preferred at equal weight.
func (d *IndexDefinition) Specificity() int {
	n := len(d.partition.RequiredAttributes())
	if d.sort != nil {
		n += len(d.sort.RequiredAttributes())
	}
	return n
}

// Satisfiable reports whether every placeholder of both keys is in known.
// An index with no sort key is satisfiable on partition requirements alone.
func (d *IndexDefinition) Satisfiable(known map[string]bool) bool {
	if !d.partition.satisfiable(known) {
		return false
	}
	return d.sort == nil || d.sort.satisfiable(known)
}

// FullKey renders both physical key attributes from the supplied values.
func (d *IndexDefinition) FullKey(values AttributeSet) (map[string]string, error) {
	pk, err := d.partition.Render(values)
	if err != nil {
		return nil, err
	}
	key := map[string]string{d.partition.AttributeName(): pk}
	if d.sort != nil {
		sk, err := d.sort.Render(values)
		if err != nil {
			return nil, err
		}
		key[d.sort.AttributeName()] = sk
	}
	return key, nil
}

// SortKeyBestMatch renders the longest sort-key prefix the supplied values
// cover. Empty when the index has no sort key.
func (d *IndexDefinition) SortKeyBestMatch(values AttributeSet) string {
	if d.sort == nil {
		return ""
	}
	return d.sort.RenderPrefix(values)
}

// QueryScore measures how well the supplied values pin this index down for a
// query. Zero unless the partition key is fully covered. Sort-key coverage
// contributes proportionally up to 100; attribute sets containing the table's
// unique-id attribute inside a key earn a position-weighted bonus, favoring
// keys that lead with the identifier.
func (d *IndexDefinition) QueryScore(values AttributeSet, uniqueIDAttribute string) int {
	score := 0.0
	pf := d.partition.RequiredAttributes()
	for _, f := range pf {
		if v, ok := values[f]; !ok || v == nil {
			return 0
		}
	}

	if uniqueIDAttribute != "" && values[uniqueIDAttribute] != nil {
		if pos := indexOf(pf, uniqueIDAttribute); pos >= 0 {
			score += 200 * float64(len(pf)-pos) / float64(len(pf))
		}
	}

	if d.sort == nil {
		return int(score + 0.5)
	}
	sf := d.sort.RequiredAttributes()
	covered := 0
	for _, f := range sf {
		if v, ok := values[f]; ok && v != nil {
			covered++
		} else {
			break
		}
	}
	if covered == 0 {
		return int(score + 0.5)
	}
	score += float64(covered) / float64(len(sf)) * 100
	if uniqueIDAttribute != "" && values[uniqueIDAttribute] != nil {
		if pos := indexOf(sf, uniqueIDAttribute); pos >= 0 {
			score += 100 * float64(len(sf)-pos) / float64(len(sf))
		}
	}
	return int(score + 0.5)
}

func indexOf(list []string, v string) int {
	for i, x := range list {
		if x == v {
			return i
		}
	}
	return -1
}

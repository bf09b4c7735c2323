/*
Package compositor – table schema construction and validation.

A TableSchema owns the ordered index list, the allowed attribute set, the
unique-id attribute and the versioning configuration. Validation runs exactly
once, at build time; a built schema is immutable and safe for concurrent
reads. There is no process-wide registry: callers own the schema value and
pass it where it is needed.
*/
package compositor

// SchemaConfig is the input to BuildSchema.
type SchemaConfig struct {
	Name string

	// AttributeList is the closed set of attribute names items may carry.
	// Every formatter placeholder must be a member.
	AttributeList []string

	PrimaryIndex     *IndexDefinition
	SecondaryIndexes []*IndexDefinition

	// UniqueIDAttribute names the attribute that uniquely identifies a
	// logical item. Required when versioning is enabled.
	UniqueIDAttribute string

	// VersionAttribute names the placeholder carrying the item version
	// inside the primary key. Setting LatestVersionAttribute enables
	// versioning: alongside each versioned row a version-0 row is kept
	// whose LatestVersionAttribute records the current highest version.
	VersionAttribute       string
	LatestVersionAttribute string

	// StringifyAttributes are marshalled to JSON strings on write and
	// unmarshalled on read.
	StringifyAttributes []string

	// TTLAttribute names the DynamoDB time-to-live attribute, if any.
	TTLAttribute string
}

// TableSchema is a validated, immutable table description.
type TableSchema struct {
	name    string
	indexes []*IndexDefinition // primary first, then secondaries in declaration order
	allowed map[string]bool

	uniqueIDAttribute      string
	versionAttribute       string
	latestVersionAttribute string
	stringifyAttributes    []string
	ttlAttribute           string
}

// BuildSchema validates the configuration and returns an immutable schema.
func BuildSchema(cfg SchemaConfig) (*TableSchema, error) {
	fail := func(index, reason string) (*TableSchema, error) {
		return nil, &SchemaValidationError{Table: cfg.Name, Index: index, Reason: reason}
	}

	if cfg.Name == "" {
		return fail("", "table name is required")
	}
	if cfg.PrimaryIndex == nil {
		return fail("", "a primary index is required")
	}
	if !cfg.PrimaryIndex.IsPrimary() {
		return fail(cfg.PrimaryIndex.Name(), "primary index must be built with NewPrimaryIndex")
	}

	allowed := make(map[string]bool, len(cfg.AttributeList))
	for _, a := range cfg.AttributeList {
		allowed[a] = true
	}

	indexes := make([]*IndexDefinition, 0, 1+len(cfg.SecondaryIndexes))
	indexes = append(indexes, cfg.PrimaryIndex)
	names := map[string]bool{cfg.PrimaryIndex.Name(): true}
	primary := cfg.PrimaryIndex

	for _, idx := range cfg.SecondaryIndexes {
		if idx == nil {
			return fail("", "nil secondary index")
		}
		if idx.IsPrimary() {
			return fail(idx.Name(), "schema allows exactly one primary index")
		}
		if names[idx.Name()] {
			return fail(idx.Name(), "duplicate index name")
		}
		names[idx.Name()] = true
		if idx.Kind() == IndexLocalSecondary {
			if idx.PartitionKey().AttributeName() != primary.PartitionKey().AttributeName() ||
				idx.PartitionKey().Format() != primary.PartitionKey().Format() {
				return fail(idx.Name(), "local secondary index must share the primary partition key")
			}
		}
		indexes = append(indexes, idx)
	}

	for _, idx := range indexes {
		for _, attr := range idx.RequiredAttributes() {
			if !allowed[attr] {
				return fail(idx.Name(), "formatter references attribute "+attr+" outside the attribute list")
			}
		}
	}

	if cfg.UniqueIDAttribute != "" && !allowed[cfg.UniqueIDAttribute] {
		return fail("", "unique-id attribute "+cfg.UniqueIDAttribute+" is not in the attribute list")
	}

	versioning := cfg.LatestVersionAttribute != ""
	if versioning {
		if cfg.VersionAttribute == "" {
			return fail("", "versioning requires a version attribute")
		}
		if !allowed[cfg.VersionAttribute] {
			return fail("", "version attribute "+cfg.VersionAttribute+" is not in the attribute list")
		}
		if cfg.UniqueIDAttribute == "" {
			return fail("", "versioning requires a unique-id attribute")
		}
		if indexOf(primary.RequiredAttributes(), cfg.VersionAttribute) < 0 {
			return fail("", "version attribute must appear in the primary index key")
		}
	}

	for _, a := range cfg.StringifyAttributes {
		if !allowed[a] {
			return fail("", "stringify attribute "+a+" is not in the attribute list")
		}
	}

	if cfg.TTLAttribute != "" && !allowed[cfg.TTLAttribute] {
		return fail("", "ttl attribute "+cfg.TTLAttribute+" is not in the attribute list")
	}

	return &TableSchema{
		name:                   cfg.Name,
		indexes:                indexes,
		allowed:                allowed,
		uniqueIDAttribute:      cfg.UniqueIDAttribute,
		versionAttribute:       cfg.VersionAttribute,
		latestVersionAttribute: cfg.LatestVersionAttribute,
		stringifyAttributes:    append([]string(nil), cfg.StringifyAttributes...),
		ttlAttribute:           cfg.TTLAttribute,
	}, nil
}

// Name returns the table name.
func (s *TableSchema) Name() string { return s.name }

// PrimaryIndex returns the primary index definition.
func (s *TableSchema) PrimaryIndex() *IndexDefinition { return s.indexes[0] }

// SecondaryIndexes returns the secondary indexes in declaration order.
func (s *TableSchema) SecondaryIndexes() []*IndexDefinition { return s.indexes[1:] }

// Indexes returns all indexes, primary first. The slice must not be modified.
func (s *TableSchema) Indexes() []*IndexDefinition { return s.indexes }

// Index returns the named index, or nil.
func (s *TableSchema) Index(name string) *IndexDefinition {
	for _, idx := range s.indexes {
		if idx.Name() == name {
			return idx
		}
	}
	return nil
}

// AllowedAttribute reports whether name is in the attribute list.
func (s *TableSchema) AllowedAttribute(name string) bool { return s.allowed[name] }

// UniqueIDAttribute returns the unique-id attribute name ("" when unset).
func (s *TableSchema) UniqueIDAttribute() string { return s.uniqueIDAttribute }

// VersioningEnabled reports whether item versioning is configured.
func (s *TableSchema) VersioningEnabled() bool { return s.latestVersionAttribute != "" }

// VersionAttribute returns the version placeholder name ("" when unset).
func (s *TableSchema) VersionAttribute() string { return s.versionAttribute }

// LatestVersionAttribute returns the latest-version pointer attribute name.
func (s *TableSchema) LatestVersionAttribute() string { return s.latestVersionAttribute }

// StringifyAttributes returns the attributes stored as JSON strings.
func (s *TableSchema) StringifyAttributes() []string { return s.stringifyAttributes }

// TTLAttribute returns the time-to-live attribute name ("" when unset).
func (s *TableSchema) TTLAttribute() string { return s.ttlAttribute }

// KeyAttributeNames returns the distinct physical key attribute names across
// all indexes, in index order.
func (s *TableSchema) KeyAttributeNames() []string {
	var out []string
	seen := map[string]bool{}
	add := func(name string) {
		if name != "" && !seen[name] {
			seen[name] = true
			out = append(out, name)
		}
	}
	for _, idx := range s.indexes {
		add(idx.PartitionKey().AttributeName())
		if idx.SortKey() != nil {
			add(idx.SortKey().AttributeName())
		}
	}
	return out
}

// ErrantAttributes returns the names in values that are neither allowed item
// attributes nor formatter placeholders, sorted.
func (s *TableSchema) ErrantAttributes(values AttributeSet) []string {
	var errant []string
	for _, name := range values.Names() {
		if !s.allowed[name] {
			errant = append(errant, name)
		}
	}
	return errant
}

package compositor

// ItemVersioner assigns monotonically increasing version numbers to items
// that share a unique id. Version numbers start at 1; the sentinel value 0
// is reserved for the "latest" row that mirrors the newest version.
type ItemVersioner struct {
	schema *TableSchema
}

// NewItemVersioner builds a versioner for the schema. The schema must have
// versioning enabled.
func NewItemVersioner(schema *TableSchema) (*ItemVersioner, error) {
	if !schema.VersioningEnabled() {
		return nil, NewError("schema does not enable versioning",
			WithCode(ErrArgument),
			WithContext(map[string]any{"table": schema.Name()}))
	}
	return &ItemVersioner{schema: schema}, nil
}

// LatestSentinel is the version value stored in the sort key of the row that
// mirrors the most recent version of an item.
const LatestSentinel = 0

// NextVersion returns the version to assign to a new revision of the item.
// current is the newest stored version, or nil when the item does not exist
// yet.
func (v *ItemVersioner) NextVersion(current *int) int {
	if current == nil {
		return 1
	}
	return *current + 1
}

// CheckExpected compares the caller's expected version against the stored
// one for optimistic concurrency. A mismatch returns VersionConflictError.
func (v *ItemVersioner) CheckExpected(uniqueID string, expected, current int) error {
	if expected != current {
		return &VersionConflictError{UniqueID: uniqueID, Expected: expected, Current: current}
	}
	return nil
}

// VersionAttribute returns the attribute that carries an item's version.
func (v *ItemVersioner) VersionAttribute() string {
	return v.schema.VersionAttribute()
}

// LatestVersionAttribute returns the attribute on the latest row that holds
// the newest version number, or "" when the schema does not track one.
func (v *ItemVersioner) LatestVersionAttribute() string {
	return v.schema.LatestVersionAttribute()
}

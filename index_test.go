package compositor

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestIndex(t *testing.T) *IndexDefinition {
	t.Helper()
	idx, err := NewPrimaryIndex(IndexConfig{
		PartitionKeyName:   "pk",
		PartitionKeyFormat: "aslr:{a}:{b}",
		SortKeyName:        "sk",
		SortKeyFormat:      "dslr:{c}:{d}",
		CompositeSeparator: ":",
	})
	require.NoError(t, err)
	return idx
}

func TestIndexConstruction(t *testing.T) {
	idx := newTestIndex(t)
	assert.Equal(t, "primary", idx.Name())
	assert.True(t, idx.IsPrimary())
	assert.Equal(t, []string{"a", "b", "c", "d"}, idx.RequiredAttributes())
	assert.Equal(t, 4, idx.Specificity())

	gsi, err := NewGlobalSecondaryIndex(IndexConfig{
		Name:               "byOwner",
		PartitionKeyName:   "gsi1pk",
		PartitionKeyFormat: "{owner}",
	})
	require.NoError(t, err)
	assert.Equal(t, weightGlobalSecondary, gsi.Weight())
	assert.Nil(t, gsi.SortKey())

	lsi, err := NewLocalSecondaryIndex(IndexConfig{
		Name:               "byDate",
		PartitionKeyName:   "pk",
		PartitionKeyFormat: "aslr:{a}:{b}",
		SortKeyName:        "lsi1sk",
		SortKeyFormat:      "{date}",
		CompositeSeparator: ":",
	})
	require.NoError(t, err)
	assert.Equal(t, weightLocalSecondary, lsi.Weight())
}

func TestIndexConstructionErrors(t *testing.T) {
	_, err := NewGlobalSecondaryIndex(IndexConfig{
		PartitionKeyName:   "pk",
		PartitionKeyFormat: "{a}",
	})
	assert.ErrorContains(t, err, "requires a name")

	_, err = NewPrimaryIndex(IndexConfig{})
	assert.ErrorContains(t, err, "partition key name and format are required")

	_, err = NewPrimaryIndex(IndexConfig{
		PartitionKeyName:   "pk",
		PartitionKeyFormat: "{a}",
		SortKeyName:        "sk",
	})
	assert.ErrorContains(t, err, "sort key name and format must be set together")

	_, err = NewPrimaryIndex(IndexConfig{
		PartitionKeyName:   "pk",
		PartitionKeyFormat: "{a}:{b}",
		SortKeyName:        "sk",
		SortKeyFormat:      "{c}",
	})
	assert.ErrorContains(t, err, "composite separator")

	_, err = NewGlobalSecondaryIndex(IndexConfig{
		Name:               "big",
		PartitionKeyName:   "pk",
		PartitionKeyFormat: "{a}",
		Weight:             primarySentinelWeight,
	})
	assert.ErrorContains(t, err, "weight out of range")
}

func TestIndexFullKey(t *testing.T) {
	idx := newTestIndex(t)
	key, err := idx.FullKey(AttributeSet{"a": 12345, "b": "abc", "c": 67890, "d": "def"})
	require.NoError(t, err)
	assert.Equal(t, "aslr:12345:abc", key["pk"])
	assert.Equal(t, "dslr:67890:def", key["sk"])
}

func TestIndexSatisfiable(t *testing.T) {
	idx := newTestIndex(t)
	assert.True(t, idx.Satisfiable(map[string]bool{"a": true, "b": true, "c": true, "d": true}))
	assert.False(t, idx.Satisfiable(map[string]bool{"a": true, "b": true}))
	assert.False(t, idx.Satisfiable(nil))
}

func TestIndexQueryScore(t *testing.T) {
	idx := newTestIndex(t)

	// partition not fully covered
	assert.Equal(t, 0, idx.QueryScore(AttributeSet{"a": "x"}, ""))

	// partition covered, no sort coverage
	assert.Equal(t, 0, idx.QueryScore(AttributeSet{"a": "x", "b": "y"}, ""))

	// half the sort key covered
	assert.Equal(t, 50, idx.QueryScore(AttributeSet{"a": "x", "b": "y", "c": "z"}, ""))

	// everything covered
	assert.Equal(t, 100, idx.QueryScore(AttributeSet{"a": "x", "b": "y", "c": "z", "d": "w"}, ""))

	// a gap in the sort key stops coverage
	assert.Equal(t, 0, idx.QueryScore(AttributeSet{"a": "x", "b": "y", "d": "w"}, ""))
}

func TestIndexQueryScoreUniqueIDBonus(t *testing.T) {
	idx := newTestIndex(t)
	values := AttributeSet{"a": "x", "b": "y", "c": "z", "d": "w"}

	// unique id leads the partition key: full positional bonus
	assert.Equal(t, 300, idx.QueryScore(values, "a"))
	// unique id trails the partition key: half the bonus
	assert.Equal(t, 200, idx.QueryScore(values, "b"))
	// unique id inside the sort key
	assert.Equal(t, 200, idx.QueryScore(values, "c"))
	// unique id not part of any key
	assert.Equal(t, 100, idx.QueryScore(values, "e"))
}

func TestIndexSortKeyBestMatch(t *testing.T) {
	idx := newTestIndex(t)
	assert.Equal(t, "dslr:z:", idx.SortKeyBestMatch(AttributeSet{"a": "x", "b": "y", "c": "z"}))
	assert.Equal(t, "dslr:", idx.SortKeyBestMatch(AttributeSet{"a": "x", "b": "y"}))
}

/*
Package compositor – DynamoDB expression construction.

Translates a selected index plus the caller's attribute values into the
expression trees the SDK expects: key conditions for queries, existence
conditions for conditional writes and projection lists for reads.
*/
package compositor

import (
	"strings"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/expression"
)

// queryOptions tune key-condition construction for a single query.
type queryOptions struct {
	// forceBeginsWith requests a begins_with sort condition even when the
	// values cover the sort key completely. The rendered prefix is trimmed
	// of a trailing separator so it matches the whole key family.
	forceBeginsWith bool

	// projection limits the returned attributes. Empty means all.
	projection []string

	// filters are attribute equality filters applied after the key
	// condition, for attributes that are not part of the index keys.
	filters AttributeSet
}

// buildQueryExpression assembles the complete expression for querying idx
// with the given values.
func buildQueryExpression(idx *IndexDefinition, values AttributeSet, opts queryOptions) (expression.Expression, error) {
	keyCond, err := buildKeyCondition(idx, values, opts.forceBeginsWith)
	if err != nil {
		return expression.Expression{}, err
	}

	builder := expression.NewBuilder().WithKeyCondition(keyCond)

	if len(opts.projection) > 0 {
		names := make([]expression.NameBuilder, len(opts.projection))
		for i, name := range opts.projection {
			names[i] = expression.Name(name)
		}
		builder = builder.WithProjection(expression.ProjectionBuilder{}.AddNames(names...))
	}

	if len(opts.filters) > 0 {
		var filter expression.ConditionBuilder
		first := true
		for _, name := range opts.filters.Names() {
			cond := expression.Name(name).Equal(expression.Value(opts.filters[name]))
			if first {
				filter = cond
				first = false
			} else {
				filter = filter.And(cond)
			}
		}
		builder = builder.WithFilter(filter)
	}

	expr, err := builder.Build()
	if err != nil {
		return expression.Expression{}, NewError("building query expression",
			WithCode(ErrArgument),
			WithContext(map[string]any{"index": idx.Name()}),
			WithCause(err))
	}
	return expr, nil
}

// buildKeyCondition forms the key condition for idx. The partition key must
// render completely. The sort key condition is equality when the values cover
// every placeholder, and begins_with on the longest renderable prefix
// otherwise.
func buildKeyCondition(idx *IndexDefinition, values AttributeSet, forceBeginsWith bool) (expression.KeyConditionBuilder, error) {
	pk, err := idx.PartitionKey().Render(values)
	if err != nil {
		return expression.KeyConditionBuilder{}, err
	}
	cond := expression.Key(idx.PartitionKey().AttributeName()).Equal(expression.Value(pk))

	sortKey := idx.SortKey()
	if sortKey == nil {
		return cond, nil
	}

	covered, total := sortKey.coverage(values)
	if covered == total && !forceBeginsWith {
		sk, err := sortKey.Render(values)
		if err != nil {
			return expression.KeyConditionBuilder{}, err
		}
		return cond.And(expression.Key(sortKey.AttributeName()).Equal(expression.Value(sk))), nil
	}

	prefix := sortKey.RenderPrefix(values)
	if forceBeginsWith {
		prefix = strings.TrimSuffix(prefix, sortKey.Separator())
	}
	if prefix == "" {
		return cond, nil
	}
	return cond.And(expression.Key(sortKey.AttributeName()).BeginsWith(prefix)), nil
}

// buildLatestGuard returns the condition guarding the sentinel-row put of a
// versioned write: the row must not exist yet for a first write, and must
// still record the version the writer read otherwise. A failed guard means a
// concurrent writer advanced the item in between.
func buildLatestGuard(primary *IndexDefinition, latestVersionAttr string, current *int) (expression.Expression, error) {
	var cond expression.ConditionBuilder
	if current == nil {
		cond = expression.AttributeNotExists(expression.Name(primary.PartitionKey().AttributeName()))
	} else {
		cond = expression.Name(latestVersionAttr).Equal(expression.Value(*current))
	}
	expr, err := expression.NewBuilder().WithCondition(cond).Build()
	if err != nil {
		return expression.Expression{}, NewError("building latest-row guard",
			WithCode(ErrArgument), WithCause(err))
	}
	return expr, nil
}

// buildCreateCondition returns the condition expression for a put that must
// not overwrite an existing item: the primary partition attribute must be
// absent.
func buildCreateCondition(primary *IndexDefinition) (expression.Expression, error) {
	cond := expression.AttributeNotExists(expression.Name(primary.PartitionKey().AttributeName()))
	if primary.SortKey() != nil {
		cond = cond.And(expression.AttributeNotExists(expression.Name(primary.SortKey().AttributeName())))
	}
	expr, err := expression.NewBuilder().WithCondition(cond).Build()
	if err != nil {
		return expression.Expression{}, NewError("building create condition",
			WithCode(ErrArgument), WithCause(err))
	}
	return expr, nil
}

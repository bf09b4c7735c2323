/*
Package compositor – CompositorTable.

The caller-facing CRUD wrapper. It glues the pure pieces together: the
selector picks an index for the caller's attribute set, the formatters render
the physical key attributes, and the versioner drives the versioned-row plus
latest-row write pattern. All DynamoDB traffic goes through the DynamoClient
interface so tests can substitute an in-memory double.
*/
package compositor

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	ddb "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	uid "github.com/ddbcompositor/ddb-compositor-go/internal/uid"
)

// DynamoClient is the interface satisfied by both the real AWS DynamoDB
// client and any test doubles / local stubs.
type DynamoClient interface {
	GetItem(ctx context.Context, params *ddb.GetItemInput, optFns ...func(*ddb.Options)) (*ddb.GetItemOutput, error)
	PutItem(ctx context.Context, params *ddb.PutItemInput, optFns ...func(*ddb.Options)) (*ddb.PutItemOutput, error)
	Query(ctx context.Context, params *ddb.QueryInput, optFns ...func(*ddb.Options)) (*ddb.QueryOutput, error)
	BatchWriteItem(ctx context.Context, params *ddb.BatchWriteItemInput, optFns ...func(*ddb.Options)) (*ddb.BatchWriteItemOutput, error)
	TransactWriteItems(ctx context.Context, params *ddb.TransactWriteItemsInput, optFns ...func(*ddb.Options)) (*ddb.TransactWriteItemsOutput, error)

	CreateTable(ctx context.Context, params *ddb.CreateTableInput, optFns ...func(*ddb.Options)) (*ddb.CreateTableOutput, error)
	DeleteTable(ctx context.Context, params *ddb.DeleteTableInput, optFns ...func(*ddb.Options)) (*ddb.DeleteTableOutput, error)
	DescribeTable(ctx context.Context, params *ddb.DescribeTableInput, optFns ...func(*ddb.Options)) (*ddb.DescribeTableOutput, error)
	UpdateTimeToLive(ctx context.Context, params *ddb.UpdateTimeToLiveInput, optFns ...func(*ddb.Options)) (*ddb.UpdateTimeToLiveOutput, error)
}

// TableParams configures a CompositorTable.
type TableParams struct {
	Schema  *TableSchema
	Client  DynamoClient
	Logger  Logger // nil → default (info+error only)
	Verbose bool   // true → also log trace/data
}

// CompositorTable wraps one DynamoDB table described by a TableSchema.
type CompositorTable struct {
	schema    *TableSchema
	client    DynamoClient
	log       Logger
	selector  *IndexSelector
	versioner *ItemVersioner // nil when the schema does not version items
}

// NewTable builds a CompositorTable. The schema must already be built and the
// client must be non-nil.
func NewTable(params TableParams) (*CompositorTable, error) {
	if params.Schema == nil {
		return nil, NewError("table requires a schema", WithCode(ErrArgument))
	}
	if params.Client == nil {
		return nil, NewError("table requires a client", WithCode(ErrArgument))
	}
	logger := params.Logger
	if logger == nil {
		if params.Verbose {
			logger = verboseLogger{}
		} else {
			logger = defaultLogger{}
		}
	}
	t := &CompositorTable{
		schema:   params.Schema,
		client:   params.Client,
		log:      logger,
		selector: NewIndexSelector(params.Schema),
	}
	if params.Schema.VersioningEnabled() {
		v, err := NewItemVersioner(params.Schema)
		if err != nil {
			return nil, err
		}
		t.versioner = v
	}
	return t, nil
}

// Schema returns the table's schema.
func (t *CompositorTable) Schema() *TableSchema { return t.schema }

// PutOptions tune a PutItem call.
type PutOptions struct {
	// PreventOverwrite makes the put fail when an item with the same
	// primary key (for versioned schemas: the same unique id) exists.
	PreventOverwrite bool
}

// GetOptions tune a GetItems call.
type GetOptions struct {
	// ForceBeginsWith queries with a begins_with sort condition even when
	// the values cover the sort key completely.
	ForceBeginsWith bool

	// Projection limits the returned attributes.
	Projection []string

	// Filters are post-key equality filters on non-key attributes.
	Filters AttributeSet

	// AllVersions disables the default of querying only the latest row of
	// a versioned item, returning every version the key family holds.
	AllVersions bool

	// KeepKeyAttributes leaves the physical key attributes on returned
	// items instead of stripping them.
	KeepKeyAttributes bool

	// Limit caps the number of evaluated items per query page.
	Limit int32
}

// PutItem writes the item described by values. With versioning enabled it
// writes the versioned row and the latest row in a single transaction; the
// latest row carries the sentinel version and records the newest version
// number. Returns the stored attribute set, key attributes included.
func (t *CompositorTable) PutItem(ctx context.Context, values AttributeSet, opts PutOptions) (AttributeSet, error) {
	values = cleanAttributes(values, false)
	if errant := t.schema.ErrantAttributes(values); len(errant) > 0 {
		return nil, NewError("attributes outside the schema attribute list",
			WithCode(ErrArgument),
			WithContext(map[string]any{"table": t.schema.Name(), "attributes": errant}))
	}
	values = t.ensureUniqueID(values)

	if t.versioner == nil {
		if _, err := t.selector.SelectValues(values, IntentWrite); err != nil {
			return nil, err
		}
		item, err := t.renderItem(values)
		if err != nil {
			return nil, err
		}
		input := &ddb.PutItemInput{
			TableName: aws.String(t.schema.Name()),
			Item:      item,
		}
		if opts.PreventOverwrite {
			expr, err := buildCreateCondition(t.schema.PrimaryIndex())
			if err != nil {
				return nil, err
			}
			input.ConditionExpression = expr.Condition()
			input.ExpressionAttributeNames = expr.Names()
			input.ExpressionAttributeValues = expr.Values()
		}
		t.log.Trace("put item", map[string]any{"table": t.schema.Name()})
		if _, err := t.client.PutItem(ctx, input); err != nil {
			var ccf *types.ConditionalCheckFailedException
			if errors.As(err, &ccf) {
				return nil, NewError("item already exists",
					WithCode(ErrConditional),
					WithContext(map[string]any{"table": t.schema.Name()}),
					WithCause(err))
			}
			return nil, t.wrap("put item failed", err)
		}
		return values, nil
	}

	current, err := t.getLatestVersion(ctx, values)
	if err != nil {
		return nil, err
	}
	if opts.PreventOverwrite && current != nil {
		return nil, NewError("item already exists",
			WithCode(ErrConditional),
			WithContext(map[string]any{
				"table":    t.schema.Name(),
				"uniqueId": values[t.schema.UniqueIDAttribute()],
			}))
	}
	next := t.versioner.NextVersion(current)

	versioned := values.Clone()
	versioned[t.schema.VersionAttribute()] = next
	if _, err := t.selector.SelectValues(versioned, IntentWrite); err != nil {
		return nil, err
	}
	latest := values.Clone()
	latest[t.schema.VersionAttribute()] = LatestSentinel
	latest[t.schema.LatestVersionAttribute()] = next

	versionedItem, err := t.renderItem(versioned)
	if err != nil {
		return nil, err
	}
	latestItem, err := t.renderItem(latest)
	if err != nil {
		return nil, err
	}

	// The sentinel-row put is conditioned on the version we read, so a
	// concurrent writer that advanced the item cancels the transaction
	// instead of being silently overwritten.
	guard, err := buildLatestGuard(t.schema.PrimaryIndex(), t.schema.LatestVersionAttribute(), current)
	if err != nil {
		return nil, err
	}

	t.log.Trace("put versioned item", map[string]any{
		"table":   t.schema.Name(),
		"version": next,
	})
	_, err = t.client.TransactWriteItems(ctx, &ddb.TransactWriteItemsInput{
		TransactItems: []types.TransactWriteItem{
			{Put: &types.Put{TableName: aws.String(t.schema.Name()), Item: versionedItem}},
			{Put: &types.Put{
				TableName:                 aws.String(t.schema.Name()),
				Item:                      latestItem,
				ConditionExpression:       guard.Condition(),
				ExpressionAttributeNames:  guard.Names(),
				ExpressionAttributeValues: guard.Values(),
			}},
		},
	})
	if err != nil {
		var canceled *types.TransactionCanceledException
		var ccf *types.ConditionalCheckFailedException
		if errors.As(err, &canceled) || errors.As(err, &ccf) {
			return nil, t.versionConflict(ctx, values, current)
		}
		return nil, t.wrap("versioned put failed", err)
	}
	return versioned, nil
}

// versionConflict reports a lost race on the sentinel row: the version this
// writer based its put on against the version stored now.
func (t *CompositorTable) versionConflict(ctx context.Context, values AttributeSet, read *int) error {
	expected := 0
	if read != nil {
		expected = *read
	}
	observed := expected
	if cur, err := t.getLatestVersion(ctx, values); err == nil && cur != nil {
		observed = *cur
	}
	id, _ := scalarSegment(values[t.schema.UniqueIDAttribute()])
	return &VersionConflictError{UniqueID: id, Expected: expected, Current: observed}
}

// GetItems runs a key-condition query for the supplied attribute values.
// Empty string values read as absent. For versioned items a query that does
// not name a version targets the sentinel row, so callers get exactly the
// latest revision unless they ask for AllVersions. When no index is fully
// coverable the query falls back to the highest-scoring partition-covered
// index with a begins_with sort condition on the longest renderable prefix.
func (t *CompositorTable) GetItems(ctx context.Context, values AttributeSet, opts GetOptions) ([]AttributeSet, error) {
	values = cleanAttributes(values, true)
	versionDefaulted := false
	if t.versioner != nil && !opts.AllVersions && values[t.schema.VersionAttribute()] == nil {
		values[t.schema.VersionAttribute()] = LatestSentinel
		versionDefaulted = true
	}
	idx, err := t.selectForQuery(values)
	if err != nil {
		return nil, err
	}
	filters := opts.Filters
	if versionDefaulted && indexOf(idx.RequiredAttributes(), t.schema.VersionAttribute()) < 0 {
		// chosen index does not key on the version, so pin it post-key
		merged := AttributeSet{}
		for k, v := range filters {
			merged[k] = v
		}
		merged[t.schema.VersionAttribute()] = LatestSentinel
		filters = merged
	}
	expr, err := buildQueryExpression(idx, values, queryOptions{
		forceBeginsWith: opts.ForceBeginsWith,
		projection:      opts.Projection,
		filters:         filters,
	})
	if err != nil {
		return nil, err
	}

	input := &ddb.QueryInput{
		TableName:                 aws.String(t.schema.Name()),
		KeyConditionExpression:    expr.KeyCondition(),
		FilterExpression:          expr.Filter(),
		ProjectionExpression:      expr.Projection(),
		ExpressionAttributeNames:  expr.Names(),
		ExpressionAttributeValues: expr.Values(),
	}
	if !idx.IsPrimary() {
		input.IndexName = aws.String(idx.Name())
	}
	if opts.Limit > 0 {
		input.Limit = aws.Int32(opts.Limit)
	}

	t.log.Trace("query", map[string]any{"table": t.schema.Name(), "index": idx.Name()})
	var out []AttributeSet
	for {
		resp, err := t.client.Query(ctx, input)
		if err != nil {
			return nil, t.wrap("query failed", err)
		}
		for _, raw := range resp.Items {
			item, err := t.decodeItem(raw, opts.KeepKeyAttributes)
			if err != nil {
				return nil, err
			}
			out = append(out, item)
		}
		if resp.LastEvaluatedKey == nil || len(resp.LastEvaluatedKey) == 0 {
			break
		}
		input.ExclusiveStartKey = resp.LastEvaluatedKey
	}
	return out, nil
}

// GetLatest fetches the newest revision of a versioned item by querying the
// sentinel row.
func (t *CompositorTable) GetLatest(ctx context.Context, values AttributeSet, opts GetOptions) (AttributeSet, error) {
	if t.versioner == nil {
		return nil, NewError("schema does not enable versioning",
			WithCode(ErrArgument),
			WithContext(map[string]any{"table": t.schema.Name()}))
	}
	latest := values.Clone()
	latest[t.schema.VersionAttribute()] = LatestSentinel
	items, err := t.GetItems(ctx, latest, opts)
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return nil, t.notFound(values)
	}
	return items[0], nil
}

// DeleteItem removes every row of the item addressed by values: for versioned
// schemas the sentinel row and all version rows. Returns the latest item's
// attributes as they were before deletion.
func (t *CompositorTable) DeleteItem(ctx context.Context, values AttributeSet) (AttributeSet, error) {
	values = cleanAttributes(values, true)
	primary := t.schema.PrimaryIndex()

	expr, err := buildQueryExpression(primary, values, queryOptions{forceBeginsWith: true})
	if err != nil {
		return nil, err
	}
	input := &ddb.QueryInput{
		TableName:                 aws.String(t.schema.Name()),
		KeyConditionExpression:    expr.KeyCondition(),
		ExpressionAttributeNames:  expr.Names(),
		ExpressionAttributeValues: expr.Values(),
	}
	var rows []map[string]types.AttributeValue
	for {
		resp, err := t.client.Query(ctx, input)
		if err != nil {
			return nil, t.wrap("delete query failed", err)
		}
		rows = append(rows, resp.Items...)
		if len(resp.LastEvaluatedKey) == 0 {
			break
		}
		input.ExclusiveStartKey = resp.LastEvaluatedKey
	}
	if len(rows) == 0 {
		return nil, t.notFound(values)
	}

	latest, err := t.pickLatestRow(rows)
	if err != nil {
		return nil, err
	}

	pkName := primary.PartitionKey().AttributeName()
	var skName string
	if primary.SortKey() != nil {
		skName = primary.SortKey().AttributeName()
	}

	// BatchWriteItem takes at most 25 requests per call.
	for start := 0; start < len(rows); start += 25 {
		end := start + 25
		if end > len(rows) {
			end = len(rows)
		}
		requests := make([]types.WriteRequest, 0, end-start)
		for _, row := range rows[start:end] {
			key := map[string]types.AttributeValue{pkName: row[pkName]}
			if skName != "" {
				key[skName] = row[skName]
			}
			requests = append(requests, types.WriteRequest{
				DeleteRequest: &types.DeleteRequest{Key: key},
			})
		}
		t.log.Trace("batch delete", map[string]any{
			"table": t.schema.Name(),
			"count": len(requests),
		})
		_, err := t.client.BatchWriteItem(ctx, &ddb.BatchWriteItemInput{
			RequestItems: map[string][]types.WriteRequest{
				t.schema.Name(): requests,
			},
		})
		if err != nil {
			return nil, t.wrap("batch delete failed", err)
		}
	}
	return t.decodeItem(latest, false)
}

// UpdateItem reads the current item, overlays values on top of it and writes
// the result as the next version (or as a plain overwrite for unversioned
// schemas). When the item does not exist the update fails unless force is
// set, in which case the values are written as a new item.
func (t *CompositorTable) UpdateItem(ctx context.Context, values AttributeSet, force bool) (AttributeSet, error) {
	values = cleanAttributes(values, false)
	existing, err := t.currentItem(ctx, values)
	if err != nil {
		var ce *CompositorError
		if !(errors.As(err, &ce) && ce.Code == ErrNotFound) {
			return nil, err
		}
		if !force {
			return nil, err
		}
		existing = nil
	}

	merged := AttributeSet{}
	for k, v := range existing {
		merged[k] = v
	}
	for k, v := range values {
		merged[k] = v
	}
	if t.versioner != nil {
		// PutItem assigns the next version itself.
		delete(merged, t.schema.VersionAttribute())
		delete(merged, t.schema.LatestVersionAttribute())
	}
	return t.PutItem(ctx, merged, PutOptions{})
}

// CreateTable issues the DDL derived from the schema: string key attributes,
// the primary key schema, one GSI or LSI per secondary index, on-demand
// billing, and time-to-live when the schema names a TTL attribute.
func (t *CompositorTable) CreateTable(ctx context.Context) error {
	primary := t.schema.PrimaryIndex()

	var attrDefs []types.AttributeDefinition
	for _, name := range t.schema.KeyAttributeNames() {
		attrDefs = append(attrDefs, types.AttributeDefinition{
			AttributeName: aws.String(name),
			AttributeType: types.ScalarAttributeTypeS,
		})
	}

	input := &ddb.CreateTableInput{
		TableName:            aws.String(t.schema.Name()),
		AttributeDefinitions: attrDefs,
		KeySchema:            keySchemaFor(primary),
		BillingMode:          types.BillingModePayPerRequest,
	}
	for _, idx := range t.schema.SecondaryIndexes() {
		switch idx.Kind() {
		case IndexGlobalSecondary:
			input.GlobalSecondaryIndexes = append(input.GlobalSecondaryIndexes, types.GlobalSecondaryIndex{
				IndexName:  aws.String(idx.Name()),
				KeySchema:  keySchemaFor(idx),
				Projection: &types.Projection{ProjectionType: types.ProjectionTypeAll},
			})
		case IndexLocalSecondary:
			input.LocalSecondaryIndexes = append(input.LocalSecondaryIndexes, types.LocalSecondaryIndex{
				IndexName:  aws.String(idx.Name()),
				KeySchema:  keySchemaFor(idx),
				Projection: &types.Projection{ProjectionType: types.ProjectionTypeAll},
			})
		}
	}

	t.log.Info("create table", map[string]any{"table": t.schema.Name()})
	if _, err := t.client.CreateTable(ctx, input); err != nil {
		return t.wrap("create table failed", err)
	}

	if ttl := t.schema.TTLAttribute(); ttl != "" {
		_, err := t.client.UpdateTimeToLive(ctx, &ddb.UpdateTimeToLiveInput{
			TableName: aws.String(t.schema.Name()),
			TimeToLiveSpecification: &types.TimeToLiveSpecification{
				AttributeName: aws.String(ttl),
				Enabled:       aws.Bool(true),
			},
		})
		if err != nil {
			return t.wrap("enable ttl failed", err)
		}
	}
	return nil
}

// DeleteTable drops the table.
func (t *CompositorTable) DeleteTable(ctx context.Context) error {
	t.log.Info("delete table", map[string]any{"table": t.schema.Name()})
	_, err := t.client.DeleteTable(ctx, &ddb.DeleteTableInput{TableName: aws.String(t.schema.Name())})
	if err != nil {
		return t.wrap("delete table failed", err)
	}
	return nil
}

// TableExists reports whether the table exists.
func (t *CompositorTable) TableExists(ctx context.Context) (bool, error) {
	_, err := t.client.DescribeTable(ctx, &ddb.DescribeTableInput{TableName: aws.String(t.schema.Name())})
	if err != nil {
		var nf *types.ResourceNotFoundException
		if errors.As(err, &nf) {
			return false, nil
		}
		return false, t.wrap("describe table failed", err)
	}
	return true, nil
}

func keySchemaFor(idx *IndexDefinition) []types.KeySchemaElement {
	schema := []types.KeySchemaElement{{
		AttributeName: aws.String(idx.PartitionKey().AttributeName()),
		KeyType:       types.KeyTypeHash,
	}}
	if idx.SortKey() != nil {
		schema = append(schema, types.KeySchemaElement{
			AttributeName: aws.String(idx.SortKey().AttributeName()),
			KeyType:       types.KeyTypeRange,
		})
	}
	return schema
}

// ensureUniqueID fills the unique-id attribute with a generated UUID when the
// schema names one and the caller did not supply it.
func (t *CompositorTable) ensureUniqueID(values AttributeSet) AttributeSet {
	attr := t.schema.UniqueIDAttribute()
	if attr == "" || values[attr] != nil {
		return values
	}
	values = values.Clone()
	values[attr] = uid.UUID()
	return values
}

// selectForQuery picks a query index. Full coverage via the selector wins;
// otherwise the highest query-scoring index with a covered partition key is
// used for a prefix query.
func (t *CompositorTable) selectForQuery(values AttributeSet) (*IndexDefinition, error) {
	idx, err := t.selector.SelectValues(values, IntentRead)
	if err == nil {
		return idx, nil
	}
	var sel *NoIndexSatisfiesQueryError
	if !errors.As(err, &sel) {
		return nil, err
	}
	best := (*IndexDefinition)(nil)
	bestScore := 0
	uidAttr := t.schema.UniqueIDAttribute()
	for _, candidate := range t.schema.Indexes() {
		score := candidate.QueryScore(values, uidAttr)
		if score > bestScore || (score == bestScore && score > 0 && best != nil && candidate.Weight() > best.Weight()) {
			best = candidate
			bestScore = score
		}
	}
	if best == nil || bestScore == 0 {
		return nil, err
	}
	return best, nil
}

// currentItem fetches the item values address: the sentinel row for
// versioned schemas, the exact row otherwise.
func (t *CompositorTable) currentItem(ctx context.Context, values AttributeSet) (AttributeSet, error) {
	if t.versioner != nil {
		return t.GetLatest(ctx, values, GetOptions{})
	}
	items, err := t.GetItems(ctx, values, GetOptions{})
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return nil, t.notFound(values)
	}
	return items[0], nil
}

// getLatestVersion reads the sentinel row and returns the recorded newest
// version, or nil when the item does not exist.
func (t *CompositorTable) getLatestVersion(ctx context.Context, values AttributeSet) (*int, error) {
	latest := values.Clone()
	latest[t.schema.VersionAttribute()] = LatestSentinel

	key, err := t.schema.PrimaryIndex().FullKey(latest)
	if err != nil {
		return nil, err
	}
	avKey := make(map[string]types.AttributeValue, len(key))
	for name, value := range key {
		avKey[name] = &types.AttributeValueMemberS{Value: value}
	}
	resp, err := t.client.GetItem(ctx, &ddb.GetItemInput{
		TableName: aws.String(t.schema.Name()),
		Key:       avKey,
	})
	if err != nil {
		return nil, t.wrap("get latest version failed", err)
	}
	if len(resp.Item) == 0 {
		return nil, nil
	}
	var row map[string]any
	if err := attributevalue.UnmarshalMap(resp.Item, &row); err != nil {
		return nil, t.wrap("unmarshal latest row failed", err)
	}
	n, ok := intValue(row[t.schema.LatestVersionAttribute()])
	if !ok {
		return nil, NewError("latest row carries no version number",
			WithCode(ErrRuntime),
			WithContext(map[string]any{"table": t.schema.Name()}))
	}
	return &n, nil
}

// pickLatestRow returns the sentinel row among the primary-key family, or the
// first row for unversioned schemas.
func (t *CompositorTable) pickLatestRow(rows []map[string]types.AttributeValue) (map[string]types.AttributeValue, error) {
	if t.versioner == nil {
		return rows[0], nil
	}
	sortKey := t.schema.PrimaryIndex().SortKey()
	versionAttr := t.schema.VersionAttribute()
	sentinel := strconv.Itoa(LatestSentinel)
	for _, row := range rows {
		if sortKey == nil {
			return row, nil
		}
		sk, ok := row[sortKey.AttributeName()].(*types.AttributeValueMemberS)
		if !ok {
			continue
		}
		recovered := sortKey.ReverseRender(sk.Value)
		if recovered[versionAttr] == sentinel {
			return row, nil
		}
	}
	return rows[0], nil
}

// renderItem stringifies designated attributes, renders every index's key
// attributes and marshals the whole item.
func (t *CompositorTable) renderItem(values AttributeSet) (map[string]types.AttributeValue, error) {
	stored, err := t.stringify(values)
	if err != nil {
		return nil, err
	}
	item, err := attributevalue.MarshalMap(map[string]any(stored))
	if err != nil {
		return nil, t.wrap("marshal item failed", err)
	}
	for _, idx := range t.schema.Indexes() {
		key, err := idx.FullKey(values)
		if err != nil {
			return nil, err
		}
		for name, value := range key {
			item[name] = &types.AttributeValueMemberS{Value: value}
		}
	}
	return item, nil
}

// decodeItem unmarshals a stored row, destringifies designated attributes and
// optionally strips the physical key attributes.
func (t *CompositorTable) decodeItem(raw map[string]types.AttributeValue, keepKeys bool) (AttributeSet, error) {
	var row map[string]any
	if err := attributevalue.UnmarshalMap(raw, &row); err != nil {
		return nil, t.wrap("unmarshal item failed", err)
	}
	item := AttributeSet(row)
	if !keepKeys {
		for _, name := range t.schema.KeyAttributeNames() {
			delete(item, name)
		}
	}
	return t.destringify(item)
}

// stringify JSON-encodes the schema's stringified attributes.
func (t *CompositorTable) stringify(values AttributeSet) (AttributeSet, error) {
	attrs := t.schema.StringifyAttributes()
	if len(attrs) == 0 {
		return values, nil
	}
	out := values.Clone()
	for _, name := range attrs {
		v, ok := out[name]
		if !ok || v == nil {
			continue
		}
		b, err := json.Marshal(v)
		if err != nil {
			return nil, NewError("stringify attribute failed",
				WithCode(ErrArgument),
				WithContext(map[string]any{"attribute": name}),
				WithCause(err))
		}
		out[name] = string(b)
	}
	return out, nil
}

// destringify reverses stringify on read.
func (t *CompositorTable) destringify(values AttributeSet) (AttributeSet, error) {
	for _, name := range t.schema.StringifyAttributes() {
		s, ok := values[name].(string)
		if !ok {
			continue
		}
		var v any
		if err := json.Unmarshal([]byte(s), &v); err != nil {
			continue
		}
		values[name] = v
	}
	return values, nil
}

func (t *CompositorTable) notFound(values AttributeSet) error {
	return NewError("item not found",
		WithCode(ErrNotFound),
		WithContext(map[string]any{
			"table":      t.schema.Name(),
			"attributes": presentNames(values),
		}))
}

func (t *CompositorTable) wrap(msg string, err error) error {
	t.log.Error(msg, map[string]any{"table": t.schema.Name(), "error": err.Error()})
	return NewError(msg,
		WithCode(ErrRuntime),
		WithContext(map[string]any{"table": t.schema.Name()}),
		WithCause(err))
}

// intValue coerces the attributevalue decodings of a number to int.
func intValue(v any) (int, bool) {
	switch n := v.(type) {
	case float64:
		return int(n), true
	case int:
		return n, true
	case int64:
		return int(n), true
	case string:
		i, err := strconv.Atoi(n)
		return i, err == nil
	default:
		return 0, false
	}
}

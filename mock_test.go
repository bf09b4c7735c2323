package compositor

import (
	"context"
	"strings"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	ddb "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// mockClient is a thread-safe in-memory DynamoClient for table-level tests.
// It evaluates the expression-builder output (#N name and :N value tokens)
// just far enough for the operations CompositorTable issues.
type mockClient struct {
	mu     sync.RWMutex
	pkName string
	skName string
	items  map[string]map[string]types.AttributeValue

	lastCreate *ddb.CreateTableInput
	lastTTL    *ddb.UpdateTimeToLiveInput
	deleted    bool

	// afterGet runs once after the next GetItem, outside the store lock.
	// Tests use it to interleave a competing write between a version read
	// and the transactional write that follows it.
	afterGet func()
}

func newMockClient(pkName, skName string) *mockClient {
	return &mockClient{
		pkName: pkName,
		skName: skName,
		items:  map[string]map[string]types.AttributeValue{},
	}
}

func avString(av types.AttributeValue) string {
	switch v := av.(type) {
	case *types.AttributeValueMemberS:
		return v.Value
	case *types.AttributeValueMemberN:
		return v.Value
	}
	return ""
}

func (m *mockClient) rowKey(item map[string]types.AttributeValue) string {
	k := avString(item[m.pkName])
	if m.skName != "" {
		k += "||" + avString(item[m.skName])
	}
	return k
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// evalCondition evaluates the subset of DynamoDB condition grammar the
// expression builder emits for this package: equality, begins_with,
// attribute_not_exists, joined with AND, each term parenthesised.
func evalCondition(
	item map[string]types.AttributeValue,
	expr string,
	names map[string]string,
	vals map[string]types.AttributeValue,
) bool {
	expr = strings.TrimSpace(expr)
	if expr == "" {
		return true
	}
	if strings.HasPrefix(expr, "(") && strings.HasSuffix(expr, ")") && balanced(expr[1:len(expr)-1]) {
		return evalCondition(item, expr[1:len(expr)-1], names, vals)
	}
	if parts := splitTopLevelAnd(expr); len(parts) > 1 {
		for _, p := range parts {
			if !evalCondition(item, p, names, vals) {
				return false
			}
		}
		return true
	}

	resolveName := func(tok string) string {
		tok = strings.TrimSpace(tok)
		if n, ok := names[tok]; ok {
			return n
		}
		return tok
	}

	if strings.HasPrefix(expr, "attribute_not_exists") {
		inner := strings.TrimSuffix(strings.TrimPrefix(expr[len("attribute_not_exists"):], " "), ")")
		inner = strings.TrimPrefix(inner, "(")
		_, exists := item[resolveName(inner)]
		return !exists
	}
	if strings.HasPrefix(expr, "begins_with") {
		inner := strings.TrimSuffix(strings.TrimPrefix(expr[len("begins_with"):], " "), ")")
		inner = strings.TrimPrefix(inner, "(")
		nameTok, valTok, _ := strings.Cut(inner, ",")
		attr := resolveName(nameTok)
		prefix := avString(vals[strings.TrimSpace(valTok)])
		return strings.HasPrefix(avString(item[attr]), prefix)
	}
	if nameTok, valTok, ok := strings.Cut(expr, "="); ok {
		attr := resolveName(nameTok)
		want := avString(vals[strings.TrimSpace(valTok)])
		got, present := item[attr]
		return present && avString(got) == want
	}
	return true
}

func balanced(s string) bool {
	depth := 0
	for _, c := range s {
		switch c {
		case '(':
			depth++
		case ')':
			depth--
			if depth < 0 {
				return false
			}
		}
	}
	return depth == 0
}

func splitTopLevelAnd(expr string) []string {
	upper := strings.ToUpper(expr)
	var parts []string
	depth, last := 0, 0
	for i := 0; i < len(expr); i++ {
		switch expr[i] {
		case '(':
			depth++
		case ')':
			depth--
		}
		if depth == 0 && strings.HasPrefix(upper[i:], " AND ") {
			parts = append(parts, strings.TrimSpace(expr[last:i]))
			last = i + len(" AND ")
			i += len(" AND ") - 1
		}
	}
	parts = append(parts, strings.TrimSpace(expr[last:]))
	return parts
}

func (m *mockClient) PutItem(_ context.Context, p *ddb.PutItemInput, _ ...func(*ddb.Options)) (*ddb.PutItemOutput, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if cond := deref(p.ConditionExpression); cond != "" {
		existing := m.items[m.rowKey(p.Item)]
		if existing == nil {
			existing = map[string]types.AttributeValue{}
		}
		if !evalCondition(existing, cond, p.ExpressionAttributeNames, p.ExpressionAttributeValues) {
			return nil, &types.ConditionalCheckFailedException{Message: aws.String("condition not met")}
		}
	}
	m.items[m.rowKey(p.Item)] = p.Item
	return &ddb.PutItemOutput{}, nil
}

func (m *mockClient) GetItem(_ context.Context, p *ddb.GetItemInput, _ ...func(*ddb.Options)) (*ddb.GetItemOutput, error) {
	m.mu.RLock()
	item := m.items[m.rowKey(p.Key)]
	m.mu.RUnlock()
	if hook := m.afterGet; hook != nil {
		m.afterGet = nil
		hook()
	}
	return &ddb.GetItemOutput{Item: item}, nil
}

func (m *mockClient) Query(_ context.Context, p *ddb.QueryInput, _ ...func(*ddb.Options)) (*ddb.QueryOutput, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	combined := deref(p.KeyConditionExpression)
	if f := deref(p.FilterExpression); f != "" {
		combined = "(" + combined + ") AND (" + f + ")"
	}
	var out []map[string]types.AttributeValue
	for _, item := range m.items {
		if evalCondition(item, combined, p.ExpressionAttributeNames, p.ExpressionAttributeValues) {
			out = append(out, item)
		}
	}
	return &ddb.QueryOutput{Items: out, Count: int32(len(out))}, nil
}

func (m *mockClient) BatchWriteItem(_ context.Context, p *ddb.BatchWriteItemInput, _ ...func(*ddb.Options)) (*ddb.BatchWriteItemOutput, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, reqs := range p.RequestItems {
		for _, req := range reqs {
			if req.PutRequest != nil {
				m.items[m.rowKey(req.PutRequest.Item)] = req.PutRequest.Item
			} else if req.DeleteRequest != nil {
				delete(m.items, m.rowKey(req.DeleteRequest.Key))
			}
		}
	}
	return &ddb.BatchWriteItemOutput{}, nil
}

func (m *mockClient) TransactWriteItems(_ context.Context, p *ddb.TransactWriteItemsInput, _ ...func(*ddb.Options)) (*ddb.TransactWriteItemsOutput, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, ti := range p.TransactItems {
		if ti.Put == nil {
			continue
		}
		if cond := deref(ti.Put.ConditionExpression); cond != "" {
			existing := m.items[m.rowKey(ti.Put.Item)]
			if existing == nil {
				existing = map[string]types.AttributeValue{}
			}
			if !evalCondition(existing, cond, ti.Put.ExpressionAttributeNames, ti.Put.ExpressionAttributeValues) {
				return nil, &types.TransactionCanceledException{Message: aws.String("condition failed")}
			}
		}
	}
	for _, ti := range p.TransactItems {
		if ti.Put != nil {
			m.items[m.rowKey(ti.Put.Item)] = ti.Put.Item
		}
	}
	return &ddb.TransactWriteItemsOutput{}, nil
}

func (m *mockClient) CreateTable(_ context.Context, p *ddb.CreateTableInput, _ ...func(*ddb.Options)) (*ddb.CreateTableOutput, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lastCreate = p
	return &ddb.CreateTableOutput{}, nil
}

func (m *mockClient) DeleteTable(_ context.Context, p *ddb.DeleteTableInput, _ ...func(*ddb.Options)) (*ddb.DeleteTableOutput, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.deleted = true
	m.items = map[string]map[string]types.AttributeValue{}
	return &ddb.DeleteTableOutput{}, nil
}

func (m *mockClient) DescribeTable(_ context.Context, p *ddb.DescribeTableInput, _ ...func(*ddb.Options)) (*ddb.DescribeTableOutput, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.deleted {
		return nil, &types.ResourceNotFoundException{Message: aws.String("table not found")}
	}
	return &ddb.DescribeTableOutput{Table: &types.TableDescription{TableName: p.TableName}}, nil
}

func (m *mockClient) UpdateTimeToLive(_ context.Context, p *ddb.UpdateTimeToLiveInput, _ ...func(*ddb.Options)) (*ddb.UpdateTimeToLiveOutput, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lastTTL = p
	return &ddb.UpdateTimeToLiveOutput{}, nil
}

package orders

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	dyn "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mockDynamo stores items per table in a nested map: table -> pkValue -> item map.
// Scan pages through insertion order, pageSize items at a time.
type mockDynamo struct {
	mu       sync.Mutex
	tables   map[string]map[string]map[string]types.AttributeValue
	order    map[string][]string
	pageSize int

	// unprocessedOnce makes the first BatchGetItem call return every key as unprocessed.
	unprocessedOnce bool
	batchCalls      int
	scanCalls       int
	failUpdate      error
}

func newMockDynamo() *mockDynamo {
	return &mockDynamo{
		tables:   map[string]map[string]map[string]types.AttributeValue{},
		order:    map[string][]string{},
		pageSize: 100,
	}
}

func (m *mockDynamo) put(t *testing.T, table, pk string, v interface{}) {
	t.Helper()
	item, err := attributevalue.MarshalMap(v)
	require.NoError(t, err)
	if _, ok := m.tables[table]; !ok {
		m.tables[table] = map[string]map[string]types.AttributeValue{}
	}
	m.tables[table][pk] = item
	m.order[table] = append(m.order[table], pk)
}

func pkOf(key map[string]types.AttributeValue) (string, error) {
	for _, name := range []string{"order_id", "product_id"} {
		if v, ok := key[name]; ok {
			return v.(*types.AttributeValueMemberS).Value, nil
		}
	}
	return "", errors.New("no key attribute")
}

func (m *mockDynamo) GetItem(ctx context.Context, params *dyn.GetItemInput, optFns ...func(*dyn.Options)) (*dyn.GetItemOutput, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	pk, err := pkOf(params.Key)
	if err != nil {
		return nil, err
	}
	return &dyn.GetItemOutput{Item: m.tables[*params.TableName][pk]}, nil
}

func (m *mockDynamo) PutItem(ctx context.Context, params *dyn.PutItemInput, optFns ...func(*dyn.Options)) (*dyn.PutItemOutput, error) {
	return nil, errors.New("not used")
}

func (m *mockDynamo) UpdateItem(ctx context.Context, params *dyn.UpdateItemInput, optFns ...func(*dyn.Options)) (*dyn.UpdateItemOutput, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failUpdate != nil {
		return nil, m.failUpdate
	}
	pk, err := pkOf(params.Key)
	if err != nil {
		return nil, err
	}
	item, ok := m.tables[*params.TableName][pk]
	if !ok {
		return nil, &types.ConditionalCheckFailedException{}
	}
	item["status"] = params.ExpressionAttributeValues[":status"]
	item["updated_at"] = params.ExpressionAttributeValues[":ua"]
	return &dyn.UpdateItemOutput{}, nil
}

func (m *mockDynamo) DeleteItem(ctx context.Context, params *dyn.DeleteItemInput, optFns ...func(*dyn.Options)) (*dyn.DeleteItemOutput, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	pk, err := pkOf(params.Key)
	if err != nil {
		return nil, err
	}
	delete(m.tables[*params.TableName], pk)
	return &dyn.DeleteItemOutput{}, nil
}

func (m *mockDynamo) Scan(ctx context.Context, params *dyn.ScanInput, optFns ...func(*dyn.Options)) (*dyn.ScanOutput, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.scanCalls++
	table := *params.TableName
	keys := m.order[table]

	start := 0
	if params.ExclusiveStartKey != nil {
		last, err := pkOf(params.ExclusiveStartKey)
		if err != nil {
			return nil, err
		}
		for i, k := range keys {
			if k == last {
				start = i + 1
				break
			}
		}
	}

	out := &dyn.ScanOutput{}
	for i := start; i < len(keys); i++ {
		item, ok := m.tables[table][keys[i]]
		if !ok {
			continue
		}
		out.Items = append(out.Items, item)
		if len(out.Items) == m.pageSize && i < len(keys)-1 {
			out.LastEvaluatedKey = map[string]types.AttributeValue{"order_id": item["order_id"]}
			break
		}
	}
	return out, nil
}

func (m *mockDynamo) BatchGetItem(ctx context.Context, params *dyn.BatchGetItemInput, optFns ...func(*dyn.Options)) (*dyn.BatchGetItemOutput, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.batchCalls++
	if m.unprocessedOnce {
		m.unprocessedOnce = false
		return &dyn.BatchGetItemOutput{UnprocessedKeys: params.RequestItems}, nil
	}
	out := &dyn.BatchGetItemOutput{Responses: map[string][]map[string]types.AttributeValue{}}
	for table, ka := range params.RequestItems {
		for _, key := range ka.Keys {
			pk, err := pkOf(key)
			if err != nil {
				return nil, err
			}
			if item, ok := m.tables[table][pk]; ok {
				out.Responses[table] = append(out.Responses[table], item)
			}
		}
	}
	return out, nil
}

func seedOrders(t *testing.T, m *mockDynamo) {
	t.Helper()
	pending := "pending"
	m.put(t, "products", "p1", productRecord{ProductID: "p1", ProductName: "Chair", Image: "image-abc-50x50-png"})
	m.put(t, "products", "p2", productRecord{ProductID: "p2", ProductName: "Desk"})
	m.put(t, "orders", "a1", orderRecord{
		OrderID: "a1", FirstName: "Jane", LastName: "Doe", Total: "120.5", Discount: "0",
		OrderDate: "2025-02-01T10:00:00Z", Status: &pending, CartItems: []string{"p1", "p2", "gone"},
	})
	m.put(t, "orders", "b2", orderRecord{OrderID: "b2", FirstName: "John", Total: "9.99", Discount: "0"})
}

func TestDynamoStore_FetchAll(t *testing.T) {
	m := newMockDynamo()
	seedOrders(t, m)
	s := NewDynamoStore(m, "orders", "products")

	got, err := s.FetchAll(context.Background())
	require.NoError(t, err)
	require.Len(t, got, 2)

	a1 := got[0]
	assert.Equal(t, "a1", a1.ID)
	assert.Equal(t, "Jane", a1.FirstName)
	assert.True(t, decimal.RequireFromString("120.5").Equal(a1.Total))
	require.NotNil(t, a1.Status)
	assert.Equal(t, StatusPending, *a1.Status)
	assert.Equal(t, []CartItem{
		{ProductName: "Chair", Image: "image-abc-50x50-png"},
		{ProductName: "Desk"},
	}, a1.CartItems)

	b2 := got[1]
	assert.Equal(t, "b2", b2.ID)
	assert.Nil(t, b2.Status)
	assert.True(t, b2.Discount.IsZero())
	assert.Empty(t, b2.CartItems)
}

func TestDynamoStore_FetchAll_Paginates(t *testing.T) {
	m := newMockDynamo()
	m.pageSize = 1
	seedOrders(t, m)
	s := NewDynamoStore(m, "orders", "products")

	got, err := s.FetchAll(context.Background())
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "a1", got[0].ID)
	assert.Equal(t, "b2", got[1].ID)
	assert.Equal(t, 2, m.scanCalls)
}

func TestDynamoStore_FetchAll_RetriesUnprocessedKeys(t *testing.T) {
	m := newMockDynamo()
	m.unprocessedOnce = true
	seedOrders(t, m)
	s := NewDynamoStore(m, "orders", "products")

	got, err := s.FetchAll(context.Background())
	require.NoError(t, err)
	assert.Len(t, got[0].CartItems, 2)
	assert.Equal(t, 2, m.batchCalls)
}

func TestDynamoStore_SetStatus(t *testing.T) {
	m := newMockDynamo()
	seedOrders(t, m)
	s := NewDynamoStore(m, "orders", "products")
	fixed := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	s.nowFunc = func() time.Time { return fixed }

	require.NoError(t, s.SetStatus(context.Background(), "b2", StatusDispatch))

	var rec struct {
		Status    string `dynamodbav:"status"`
		UpdatedAt string `dynamodbav:"updated_at"`
	}
	require.NoError(t, attributevalue.UnmarshalMap(m.tables["orders"]["b2"], &rec))
	assert.Equal(t, "dispatch", rec.Status)
	assert.Equal(t, "2025-03-01T12:00:00Z", rec.UpdatedAt)
}

func TestDynamoStore_SetStatus_NotFound(t *testing.T) {
	m := newMockDynamo()
	s := NewDynamoStore(m, "orders", "products")

	err := s.SetStatus(context.Background(), "missing", StatusSuccess)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestDynamoStore_SetStatus_Error(t *testing.T) {
	m := newMockDynamo()
	m.failUpdate = errors.New("throttled")
	s := NewDynamoStore(m, "orders", "products")

	err := s.SetStatus(context.Background(), "a1", StatusSuccess)
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrNotFound)
}

func TestDynamoStore_Delete(t *testing.T) {
	m := newMockDynamo()
	seedOrders(t, m)
	s := NewDynamoStore(m, "orders", "products")

	require.NoError(t, s.Delete(context.Background(), "a1"))
	require.NoError(t, s.Delete(context.Background(), "a1"))

	got, err := s.FetchAll(context.Background())
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "b2", got[0].ID)
}

func TestProjection_AliasesEveryAttribute(t *testing.T) {
	expr, names := projection([]string{"order_id", "status"})
	assert.Equal(t, "#p0, #p1", expr)
	assert.Equal(t, map[string]string{"#p0": "order_id", "#p1": "status"}, names)
}

package orders

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	dyn "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/shopspring/decimal"

	"github.com/imrishuroy/go-order-dashboard/internal/aws"
)

const (
	// batchGetLimit is the DynamoDB cap on keys per BatchGetItem call.
	batchGetLimit   = 100
	maxBatchRetries = 3
)

// orderRecord is the shape persisted in the orders table.
type orderRecord struct {
	OrderID   string                `dynamodbav:"order_id"` // PK
	FirstName string                `dynamodbav:"first_name"`
	LastName  string                `dynamodbav:"last_name"`
	Phone     string                `dynamodbav:"phone"`
	Email     string                `dynamodbav:"email"`
	Address   string                `dynamodbav:"address"`
	City      string                `dynamodbav:"city"`
	ZipCode   string                `dynamodbav:"zip_code"`
	Total     attributevalue.Number `dynamodbav:"total"`
	Discount  attributevalue.Number `dynamodbav:"discount"`
	OrderDate string                `dynamodbav:"order_date"`
	Status    *string               `dynamodbav:"status,omitempty"`
	CartItems []string              `dynamodbav:"cart_items,omitempty"` // product_id references
}

var orderProjection = []string{
	"order_id", "first_name", "last_name", "phone", "email", "address", "city",
	"zip_code", "total", "discount", "order_date", "status", "cart_items",
}

// productRecord is the shape persisted in the products table.
type productRecord struct {
	ProductID   string `dynamodbav:"product_id"` // PK
	ProductName string `dynamodbav:"product_name"`
	Image       string `dynamodbav:"image"`
}

var productProjection = []string{"product_id", "product_name", "image"}

// DynamoStore keeps orders in one table and the products they reference in another.
type DynamoStore struct {
	client        aws.DynamoDBAPI
	ordersTable   string
	productsTable string
	nowFunc       func() time.Time
}

// NewDynamoStore creates a DynamoDB backed order store.
func NewDynamoStore(client aws.DynamoDBAPI, ordersTable, productsTable string) *DynamoStore {
	return &DynamoStore{
		client:        client,
		ordersTable:   ordersTable,
		productsTable: productsTable,
		nowFunc:       time.Now,
	}
}

// FetchAll scans the orders table and resolves cart item references against the products table.
func (s *DynamoStore) FetchAll(ctx context.Context) ([]Order, error) {
	proj, names := projection(orderProjection)

	var records []orderRecord
	var startKey map[string]types.AttributeValue
	for {
		out, err := s.client.Scan(ctx, &dyn.ScanInput{
			TableName:                &s.ordersTable,
			ProjectionExpression:     &proj,
			ExpressionAttributeNames: names,
			ExclusiveStartKey:        startKey,
		})
		if err != nil {
			return nil, fmt.Errorf("scan orders: %w", err)
		}
		var page []orderRecord
		if err := attributevalue.UnmarshalListOfMaps(out.Items, &page); err != nil {
			return nil, fmt.Errorf("unmarshal orders: %w", err)
		}
		records = append(records, page...)

		if len(out.LastEvaluatedKey) == 0 {
			break
		}
		startKey = out.LastEvaluatedKey
	}

	products, err := s.loadProducts(ctx, referencedProducts(records))
	if err != nil {
		return nil, err
	}

	result := make([]Order, 0, len(records))
	for _, rec := range records {
		o, err := rec.toOrder(products)
		if err != nil {
			return nil, err
		}
		result = append(result, o)
	}
	return result, nil
}

// SetStatus updates the status of an existing order. Returns ErrNotFound if
// the order does not exist.
func (s *DynamoStore) SetStatus(ctx context.Context, orderID string, status Status) error {
	now := s.nowFunc()
	input := &dyn.UpdateItemInput{
		TableName: &s.ordersTable,
		Key: map[string]types.AttributeValue{
			"order_id": &types.AttributeValueMemberS{Value: orderID},
		},
		UpdateExpression:         awsString("SET #s = :status, updated_at = :ua"),
		ConditionExpression:      awsString("attribute_exists(order_id)"),
		ExpressionAttributeNames: map[string]string{"#s": "status"},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":status": &types.AttributeValueMemberS{Value: string(status)},
			":ua":     &types.AttributeValueMemberS{Value: now.UTC().Format(time.RFC3339)},
		},
	}

	if _, err := s.client.UpdateItem(ctx, input); err != nil {
		var cf *types.ConditionalCheckFailedException
		if errors.As(err, &cf) {
			return fmt.Errorf("set status of %s: %w", orderID, ErrNotFound)
		}
		return fmt.Errorf("update item: %w", err)
	}
	return nil
}

// Delete removes an order. Deleting a missing order is not an error.
func (s *DynamoStore) Delete(ctx context.Context, orderID string) error {
	_, err := s.client.DeleteItem(ctx, &dyn.DeleteItemInput{
		TableName: &s.ordersTable,
		Key: map[string]types.AttributeValue{
			"order_id": &types.AttributeValueMemberS{Value: orderID},
		},
	})
	if err != nil {
		return fmt.Errorf("delete item: %w", err)
	}
	return nil
}

func (s *DynamoStore) loadProducts(ctx context.Context, ids []string) (map[string]productRecord, error) {
	products := make(map[string]productRecord, len(ids))
	proj, names := projection(productProjection)

	for start := 0; start < len(ids); start += batchGetLimit {
		end := min(start+batchGetLimit, len(ids))

		keys := make([]map[string]types.AttributeValue, 0, end-start)
		for _, id := range ids[start:end] {
			keys = append(keys, map[string]types.AttributeValue{
				"product_id": &types.AttributeValueMemberS{Value: id},
			})
		}
		request := map[string]types.KeysAndAttributes{
			s.productsTable: {
				Keys:                     keys,
				ProjectionExpression:     &proj,
				ExpressionAttributeNames: names,
			},
		}

		for attempt := 0; len(request) > 0; attempt++ {
			if attempt > maxBatchRetries {
				return nil, fmt.Errorf("batch get products: %d keys left unprocessed", len(request[s.productsTable].Keys))
			}
			if attempt > 0 {
				select {
				case <-ctx.Done():
					return nil, ctx.Err()
				case <-time.After(time.Duration(attempt) * 50 * time.Millisecond):
				}
			}

			out, err := s.client.BatchGetItem(ctx, &dyn.BatchGetItemInput{RequestItems: request})
			if err != nil {
				return nil, fmt.Errorf("batch get products: %w", err)
			}
			var page []productRecord
			if err := attributevalue.UnmarshalListOfMaps(out.Responses[s.productsTable], &page); err != nil {
				return nil, fmt.Errorf("unmarshal products: %w", err)
			}
			for _, p := range page {
				products[p.ProductID] = p
			}
			request = out.UnprocessedKeys
		}
	}
	return products, nil
}

func (rec orderRecord) toOrder(products map[string]productRecord) (Order, error) {
	total, err := parseAmount(rec.Total)
	if err != nil {
		return Order{}, fmt.Errorf("order %s total: %w", rec.OrderID, err)
	}
	discount, err := parseAmount(rec.Discount)
	if err != nil {
		return Order{}, fmt.Errorf("order %s discount: %w", rec.OrderID, err)
	}

	o := Order{
		ID:        rec.OrderID,
		FirstName: rec.FirstName,
		LastName:  rec.LastName,
		Phone:     rec.Phone,
		Email:     rec.Email,
		Address:   rec.Address,
		City:      rec.City,
		ZipCode:   rec.ZipCode,
		Total:     total,
		Discount:  discount,
		OrderDate: rec.OrderDate,
		CartItems: make([]CartItem, 0, len(rec.CartItems)),
	}
	if rec.Status != nil {
		o.Status = StatusPtr(Status(*rec.Status))
	}
	// dangling references are dropped
	for _, ref := range rec.CartItems {
		p, ok := products[ref]
		if !ok {
			continue
		}
		o.CartItems = append(o.CartItems, CartItem{ProductName: p.ProductName, Image: ImageRef(p.Image)})
	}
	return o, nil
}

func parseAmount(n attributevalue.Number) (decimal.Decimal, error) {
	if n == "" {
		return decimal.Zero, nil
	}
	return decimal.NewFromString(string(n))
}

func referencedProducts(records []orderRecord) []string {
	seen := map[string]struct{}{}
	var ids []string
	for _, rec := range records {
		for _, ref := range rec.CartItems {
			if _, ok := seen[ref]; ok {
				continue
			}
			seen[ref] = struct{}{}
			ids = append(ids, ref)
		}
	}
	return ids
}

// projection aliases every attribute; several of ours (status, name-like
// fields) collide with DynamoDB reserved words.
func projection(attrs []string) (string, map[string]string) {
	names := make(map[string]string, len(attrs))
	aliases := make([]string, 0, len(attrs))
	for i, a := range attrs {
		alias := fmt.Sprintf("#p%d", i)
		names[alias] = a
		aliases = append(aliases, alias)
	}
	return strings.Join(aliases, ", "), names
}

func awsString(s string) *string { return &s }

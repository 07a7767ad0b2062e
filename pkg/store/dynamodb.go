package store

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/shopspring/decimal"

	"github.com/soocrates/SAM-App-API-GW-Cache-Lambda-DynamoDB/pkg/models"
)

// DynamoAPI is the subset of the DynamoDB client the store uses.
type DynamoAPI interface {
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	Query(ctx context.Context, params *dynamodb.QueryInput, optFns ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error)
	Scan(ctx context.Context, params *dynamodb.ScanInput, optFns ...func(*dynamodb.Options)) (*dynamodb.ScanOutput, error)
}

var _ VersionedStore = (*DynamoStore)(nil)

// DynamoStore reads and writes a table with partition key stockId (S) and
// sort key timestamp (N). Retention is the table's TTL on expireAt.
type DynamoStore struct {
	api   DynamoAPI
	table string
}

func NewDynamoStore(api DynamoAPI, table string) *DynamoStore {
	return &DynamoStore{api: api, table: table}
}

// dynamoPrice stores a decimal as a DynamoDB number without a float round trip.
type dynamoPrice decimal.Decimal

func (p dynamoPrice) MarshalDynamoDBAttributeValue() (types.AttributeValue, error) {
	return &types.AttributeValueMemberN{Value: decimal.Decimal(p).String()}, nil
}

func (p *dynamoPrice) UnmarshalDynamoDBAttributeValue(av types.AttributeValue) error {
	n, ok := av.(*types.AttributeValueMemberN)
	if !ok {
		return fmt.Errorf("price: expected number attribute, got %T", av)
	}
	d, err := decimal.NewFromString(n.Value)
	if err != nil {
		return fmt.Errorf("price: %w", err)
	}
	*p = dynamoPrice(d)
	return nil
}

type dynamoItem struct {
	StockID   string      `dynamodbav:"stockId"`
	Timestamp int64       `dynamodbav:"timestamp"`
	Price     dynamoPrice `dynamodbav:"price"`
	ExpireAt  int64       `dynamodbav:"expireAt"`
}

func (it dynamoItem) record() models.StockRecord {
	return models.StockRecord{
		Symbol:    it.StockID,
		Timestamp: it.Timestamp,
		Price:     decimal.Decimal(it.Price),
		ExpireAt:  it.ExpireAt,
	}
}

func (d *DynamoStore) Put(ctx context.Context, rec models.StockRecord) error {
	item, err := attributevalue.MarshalMap(dynamoItem{
		StockID:   rec.Symbol,
		Timestamp: rec.Timestamp,
		Price:     dynamoPrice(rec.Price),
		ExpireAt:  rec.ExpireAt,
	})
	if err != nil {
		return fmt.Errorf("%w: %v", ErrPut, err)
	}

	_, err = d.api.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(d.table),
		Item:      item,
	})
	if err != nil {
		return fmt.Errorf("%w: %v", ErrPut, err)
	}
	return nil
}

func (d *DynamoStore) QueryLatest(ctx context.Context, symbol string) (*models.StockRecord, error) {
	records, err := d.QueryHistory(ctx, symbol, 1)
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, nil
	}
	return &records[0], nil
}

// QueryHistory reads a single page; it does not follow LastEvaluatedKey.
func (d *DynamoStore) QueryHistory(ctx context.Context, symbol string, limit int) ([]models.StockRecord, error) {
	input := &dynamodb.QueryInput{
		TableName:              aws.String(d.table),
		KeyConditionExpression: aws.String("stockId = :sid"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":sid": &types.AttributeValueMemberS{Value: symbol},
		},
		ScanIndexForward: aws.Bool(false),
	}
	if limit > 0 {
		input.Limit = aws.Int32(int32(limit))
	}

	out, err := d.api.Query(ctx, input)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrQuery, err)
	}

	var items []dynamoItem
	if err := attributevalue.UnmarshalListOfMaps(out.Items, &items); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrQuery, err)
	}

	records := make([]models.StockRecord, 0, len(items))
	for _, it := range items {
		records = append(records, it.record())
	}
	return records, nil
}

// DiscoverSymbols scans one page of pageLimit items projected to stockId.
// Limit bounds the items read, not the distinct symbols returned.
func (d *DynamoStore) DiscoverSymbols(ctx context.Context, pageLimit int) ([]string, error) {
	input := &dynamodb.ScanInput{
		TableName:            aws.String(d.table),
		ProjectionExpression: aws.String("stockId"),
	}
	if pageLimit > 0 {
		input.Limit = aws.Int32(int32(pageLimit))
	}

	out, err := d.api.Scan(ctx, input)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDiscover, err)
	}

	var ids []struct {
		StockID string `dynamodbav:"stockId"`
	}
	if err := attributevalue.UnmarshalListOfMaps(out.Items, &ids); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDiscover, err)
	}

	seen := make(map[string]bool)
	var symbols []string
	for _, id := range ids {
		symbols = distinct(symbols, seen, id.StockID)
	}
	return symbols, nil
}

func (d *DynamoStore) Close() error { return nil }

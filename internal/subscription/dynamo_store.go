package subscription

import (
	"context"
	"fmt"
	"sort"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

type dynamoAPI interface {
	PutItem(context.Context, *dynamodb.PutItemInput, ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	GetItem(context.Context, *dynamodb.GetItemInput, ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	Scan(context.Context, *dynamodb.ScanInput, ...func(*dynamodb.Options)) (*dynamodb.ScanOutput, error)
}

// DynamoStore persists subscriptions in a table keyed by "business".
type DynamoStore struct {
	client    dynamoAPI
	tableName string
}

func NewDynamoStore(client dynamoAPI, tableName string) *DynamoStore {
	if client == nil {
		panic("subscription: dynamodb client cannot be nil")
	}
	if tableName == "" {
		panic("subscription: table name cannot be empty")
	}
	return &DynamoStore{client: client, tableName: tableName}
}

func (s *DynamoStore) Get(ctx context.Context, business string) (*Subscription, error) {
	out, err := s.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(s.tableName),
		Key: map[string]types.AttributeValue{
			"business": &types.AttributeValueMemberS{Value: business},
		},
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return nil, fmt.Errorf("subscription: dynamo get %s: %w", business, err)
	}
	if out.Item == nil {
		return nil, ErrNotFound
	}
	var sub Subscription
	if err := attributevalue.UnmarshalMap(out.Item, &sub); err != nil {
		return nil, fmt.Errorf("subscription: decode %s: %w", business, err)
	}
	return &sub, nil
}

func (s *DynamoStore) Save(ctx context.Context, sub *Subscription) error {
	item, err := attributevalue.MarshalMap(sub)
	if err != nil {
		return fmt.Errorf("subscription: marshal %s: %w", sub.Business, err)
	}
	_, err = s.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(s.tableName),
		Item:      item,
	})
	if err != nil {
		return fmt.Errorf("subscription: dynamo put %s: %w", sub.Business, err)
	}
	return nil
}

func (s *DynamoStore) List(ctx context.Context) ([]Subscription, error) {
	var (
		out       []Subscription
		startFrom map[string]types.AttributeValue
	)
	for {
		page, err := s.client.Scan(ctx, &dynamodb.ScanInput{
			TableName:         aws.String(s.tableName),
			ExclusiveStartKey: startFrom,
		})
		if err != nil {
			return nil, fmt.Errorf("subscription: dynamo scan: %w", err)
		}
		var subs []Subscription
		if err := attributevalue.UnmarshalListOfMaps(page.Items, &subs); err != nil {
			return nil, fmt.Errorf("subscription: decode scan: %w", err)
		}
		out = append(out, subs...)
		if len(page.LastEvaluatedKey) == 0 {
			break
		}
		startFrom = page.LastEvaluatedKey
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Business < out[j].Business })
	return out, nil
}

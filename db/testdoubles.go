//go:build small_tests || all_tests

package db

import (
	"context"
	"sort"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	dbtypes "github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/mbland/optinlist/testutils"
)

// TestDynamoDbClient keeps items in memory, keyed by primary key.
//
// It implements just enough of the real semantics for the DynamoDb methods
// under test: TransactWriteItems honors attribute_not_exists, UpdateItem
// honors attribute_exists and applies the confirmation update, and Scan pages
// through items holding the index attribute in primary key order.
// dynamodb_contract_test.go validates the real expressions against
// DynamoDB Local.
type TestDynamoDbClient struct {
	ServerErr         error
	CreateTableInput  *dynamodb.CreateTableInput
	CreateTableOutput *dynamodb.CreateTableOutput
	CreateTableErr    error
	DescTableInput    *dynamodb.DescribeTableInput
	DescTableOutput   *dynamodb.DescribeTableOutput
	DescTableErr      error
	TransactInput     *dynamodb.TransactWriteItemsInput
	TransactErr       error
	GetItemErr        error
	UpdateItemInput   *dynamodb.UpdateItemInput
	UpdateItemErr     error
	Items             map[string]dbAttributes
	ScanSize          int
	ScanCalls         int
	ScanErr           error
}

// NewTestDynamoDbClient returns an initialized TestDynamoDbClient.
//
// Specifically, all of its *Output members are initialized to default non-nil
// values.
func NewTestDynamoDbClient() *TestDynamoDbClient {
	tableDesc := &dbtypes.TableDescription{
		TableName:   aws.String(""),
		TableStatus: dbtypes.TableStatusActive,
	}

	return &TestDynamoDbClient{
		CreateTableOutput: &dynamodb.CreateTableOutput{
			TableDescription: tableDesc,
		},
		DescTableOutput: &dynamodb.DescribeTableOutput{Table: tableDesc},
		Items:           map[string]dbAttributes{},
	}
}

func (client *TestDynamoDbClient) SetAllErrors(msg string) {
	err := testutils.AwsServerError(msg)
	client.ServerErr = err
	client.CreateTableErr = err
	client.DescTableErr = err
	client.TransactErr = err
	client.GetItemErr = err
	client.UpdateItemErr = err
	client.ScanErr = err
}

func (client *TestDynamoDbClient) CreateTable(
	_ context.Context,
	input *dynamodb.CreateTableInput,
	_ ...func(*dynamodb.Options),
) (*dynamodb.CreateTableOutput, error) {
	client.CreateTableInput = input
	return client.CreateTableOutput, client.CreateTableErr
}

func (client *TestDynamoDbClient) DescribeTable(
	_ context.Context,
	input *dynamodb.DescribeTableInput,
	_ ...func(*dynamodb.Options),
) (*dynamodb.DescribeTableOutput, error) {
	client.DescTableInput = input
	return client.DescTableOutput, client.DescTableErr
}

func (client *TestDynamoDbClient) DeleteTable(
	context.Context, *dynamodb.DeleteTableInput, ...func(*dynamodb.Options),
) (*dynamodb.DeleteTableOutput, error) {
	return &dynamodb.DeleteTableOutput{}, client.ServerErr
}

func primaryKeyOf(attrs dbAttributes) string {
	key, _ := (&dbParser{attrs}).GetString(DynamoDbPrimaryKey)
	return key
}

func (client *TestDynamoDbClient) GetItem(
	_ context.Context, input *dynamodb.GetItemInput, _ ...func(*dynamodb.Options),
) (*dynamodb.GetItemOutput, error) {
	if client.GetItemErr != nil {
		return nil, client.GetItemErr
	}
	return &dynamodb.GetItemOutput{
		Item: client.Items[primaryKeyOf(input.Key)],
	}, nil
}

func (client *TestDynamoDbClient) TransactWriteItems(
	_ context.Context,
	input *dynamodb.TransactWriteItemsInput,
	_ ...func(*dynamodb.Options),
) (*dynamodb.TransactWriteItemsOutput, error) {
	client.TransactInput = input

	if client.TransactErr != nil {
		return nil, client.TransactErr
	}
	for _, item := range input.TransactItems {
		if _, exists := client.Items[primaryKeyOf(item.Put.Item)]; exists {
			return nil, &dbtypes.TransactionCanceledException{
				Message: aws.String("ConditionalCheckFailed"),
			}
		}
	}
	for _, item := range input.TransactItems {
		client.Items[primaryKeyOf(item.Put.Item)] = item.Put.Item
	}
	return &dynamodb.TransactWriteItemsOutput{}, nil
}

func (client *TestDynamoDbClient) UpdateItem(
	_ context.Context,
	input *dynamodb.UpdateItemInput,
	_ ...func(*dynamodb.Options),
) (*dynamodb.UpdateItemOutput, error) {
	client.UpdateItemInput = input

	if client.UpdateItemErr != nil {
		return nil, client.UpdateItemErr
	}

	item, exists := client.Items[primaryKeyOf(input.Key)]
	if !exists {
		return nil, &dbtypes.ConditionalCheckFailedException{
			Message: aws.String("The conditional request failed"),
		}
	}

	confirmed := string(SubscriberConfirmed)
	if _, ok := item[confirmed]; !ok {
		item[confirmed] = input.ExpressionAttributeValues[":now"]
	}
	delete(item, string(SubscriberPending))
	return &dynamodb.UpdateItemOutput{}, nil
}

func (client *TestDynamoDbClient) addSubscribers(subs []*Subscriber) {
	for _, sub := range subs {
		client.Items[sub.Id.String()] = newSubscriberRecord(sub)
	}
}

func (client *TestDynamoDbClient) Scan(
	_ context.Context, input *dynamodb.ScanInput, _ ...func(*dynamodb.Options),
) (output *dynamodb.ScanOutput, err error) {
	client.ScanCalls++

	if err = client.ScanErr; err != nil {
		return
	}

	// The index is sparse, so it only contains items with its key attribute.
	keys := make([]string, 0, len(client.Items))
	for key, item := range client.Items {
		if _, ok := item[aws.ToString(input.IndexName)]; ok {
			keys = append(keys, key)
		}
	}
	sort.Strings(keys)

	startKey := primaryKeyOf(input.ExclusiveStartKey)
	items := make([]dbAttributes, 0, len(keys))
	var lastKey dbAttributes

	for i, key := range keys {
		if startKey != "" && key <= startKey {
			continue
		}
		items = append(items, client.Items[key])

		if client.ScanSize != 0 && len(items) == client.ScanSize {
			if i != len(keys)-1 {
				lastKey = dbAttributes{
					DynamoDbPrimaryKey: &dbString{Value: key},
				}
			}
			break
		}
	}
	output = &dynamodb.ScanOutput{Items: items, LastEvaluatedKey: lastKey}
	return
}

package db

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	dbtypes "github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/google/uuid"
	"github.com/mbland/optinlist/ops"
	"github.com/mbland/optinlist/types"
)

type DynamoDbClient interface {
	CreateTable(
		context.Context, *dynamodb.CreateTableInput, ...func(*dynamodb.Options),
	) (*dynamodb.CreateTableOutput, error)

	DescribeTable(
		context.Context,
		*dynamodb.DescribeTableInput,
		...func(*dynamodb.Options),
	) (*dynamodb.DescribeTableOutput, error)

	DeleteTable(
		context.Context, *dynamodb.DeleteTableInput, ...func(*dynamodb.Options),
	) (*dynamodb.DeleteTableOutput, error)

	GetItem(
		context.Context, *dynamodb.GetItemInput, ...func(*dynamodb.Options),
	) (*dynamodb.GetItemOutput, error)

	UpdateItem(
		context.Context, *dynamodb.UpdateItemInput, ...func(*dynamodb.Options),
	) (*dynamodb.UpdateItemOutput, error)

	TransactWriteItems(
		context.Context,
		*dynamodb.TransactWriteItemsInput,
		...func(*dynamodb.Options),
	) (*dynamodb.TransactWriteItemsOutput, error)

	Scan(
		context.Context, *dynamodb.ScanInput, ...func(*dynamodb.Options),
	) (*dynamodb.ScanOutput, error)
}

// DynamoDb stores subscribers and confirmation tokens in a single table.
//
// Subscriber items are keyed by their UUID. Token items are keyed by
// DynamoDbTokenKeyPrefix + token and hold only the owning subscriber ID.
// Status lives in a sparse attribute named after the status itself, holding
// the Unix time at which the subscriber entered that status. The
// "confirmed" attribute backs a sparse Global Secondary Index, so scanning
// that index yields only confirmed subscribers.
//
// https://docs.aws.amazon.com/amazondynamodb/latest/developerguide/WorkingWithItems.html
type DynamoDb struct {
	Client    DynamoDbClient
	TableName string

	// CurrentTime stamps confirmations. Nil means time.Now.
	CurrentTime func() time.Time
}

func NewDynamoDb(awsConfig aws.Config, tableName string) *DynamoDb {
	return &DynamoDb{
		Client:      dynamodb.NewFromConfig(awsConfig),
		TableName:   tableName,
		CurrentTime: time.Now,
	}
}

func (db *DynamoDb) now() time.Time {
	if db.CurrentTime == nil {
		return time.Now()
	}
	return db.CurrentTime()
}

var DynamoDbPrimaryKey string = "id"

const DynamoDbTokenKeyPrefix = "token#"

// Sparse Global Secondary Index for records containing a "confirmed" attribute.
var DynamoDbConfirmedIndexName string = string(SubscriberConfirmed)
var DynamoDbConfirmedIndexPartitionKey string = string(SubscriberConfirmed)

var DynamoDbIndexProjection *dbtypes.Projection = &dbtypes.Projection{
	ProjectionType: dbtypes.ProjectionTypeAll,
}

var DynamoDbCreateTableInput = &dynamodb.CreateTableInput{
	AttributeDefinitions: []dbtypes.AttributeDefinition{
		{
			AttributeName: &DynamoDbPrimaryKey,
			AttributeType: dbtypes.ScalarAttributeTypeS,
		},
		{
			AttributeName: &DynamoDbConfirmedIndexPartitionKey,
			AttributeType: dbtypes.ScalarAttributeTypeN,
		},
	},
	KeySchema: []dbtypes.KeySchemaElement{
		{AttributeName: &DynamoDbPrimaryKey, KeyType: dbtypes.KeyTypeHash},
	},
	BillingMode: dbtypes.BillingModePayPerRequest,
	GlobalSecondaryIndexes: []dbtypes.GlobalSecondaryIndex{
		{
			IndexName: &DynamoDbConfirmedIndexName,
			KeySchema: []dbtypes.KeySchemaElement{
				{
					AttributeName: &DynamoDbConfirmedIndexPartitionKey,
					KeyType:       dbtypes.KeyTypeHash,
				},
			},
			Projection: DynamoDbIndexProjection,
		},
	},
}

func (db *DynamoDb) CreateTable(ctx context.Context) (err error) {
	var input dynamodb.CreateTableInput = *DynamoDbCreateTableInput
	input.TableName = &db.TableName

	if _, err = db.Client.CreateTable(ctx, &input); err != nil {
		err = ops.AwsError("failed to create db table "+db.TableName, err)
	}
	return
}

// CreateSubscribersTable creates the table, then polls once per second until
// it becomes active or maxWaitDuration elapses.
func (db *DynamoDb) CreateSubscribersTable(
	ctx context.Context, maxWaitDuration time.Duration,
) error {
	const pollInterval = time.Second
	maxAttempts := int(maxWaitDuration / pollInterval)
	sleep := func() { time.Sleep(pollInterval) }

	if maxAttempts < 1 {
		maxAttempts = 1
	}
	if err := db.CreateTable(ctx); err != nil {
		return err
	}
	return db.WaitForTable(ctx, maxAttempts, sleep)
}

func (db *DynamoDb) WaitForTable(
	ctx context.Context, maxAttempts int, sleep func(),
) error {
	if maxAttempts <= 0 {
		const errFmt = "maxAttempts to wait for DB table must be >= 0, got: %d"
		return fmt.Errorf(errFmt, maxAttempts)
	}

	for current := 0; ; {
		td, err := db.DescribeTable(ctx)

		if err == nil && td.TableStatus == dbtypes.TableStatusActive {
			return nil
		} else if current++; current == maxAttempts {
			const errFmt = "db table %s not active after " +
				"%d attempts to check; last error: %w"
			return fmt.Errorf(errFmt, db.TableName, maxAttempts, err)
		}
		sleep()
	}
}

func (db *DynamoDb) DescribeTable(
	ctx context.Context,
) (td *dbtypes.TableDescription, err error) {
	input := &dynamodb.DescribeTableInput{TableName: &db.TableName}
	output, descErr := db.Client.DescribeTable(ctx, input)

	if descErr != nil {
		err = ops.AwsError("failed to describe db table "+db.TableName, descErr)
	} else {
		td = output.Table
	}
	return
}

func (db *DynamoDb) DeleteTable(ctx context.Context) error {
	input := &dynamodb.DeleteTableInput{TableName: &db.TableName}
	if _, err := db.Client.DeleteTable(ctx, input); err != nil {
		return ops.AwsError("failed to delete db table "+db.TableName, err)
	}
	return nil
}

type (
	dbString     = dbtypes.AttributeValueMemberS
	dbNumber     = dbtypes.AttributeValueMemberN
	dbAttributes = map[string]dbtypes.AttributeValue
)

func subscriberKey(id uuid.UUID) dbAttributes {
	return dbAttributes{DynamoDbPrimaryKey: &dbString{Value: id.String()}}
}

func tokenKey(token types.Token) dbAttributes {
	key := DynamoDbTokenKeyPrefix + token.String()
	return dbAttributes{DynamoDbPrimaryKey: &dbString{Value: key}}
}

type dbParser struct {
	attrs dbAttributes
}

func parseSubscriber(attrs dbAttributes) (subscriber *Subscriber, err error) {
	p := dbParser{attrs}
	s := &Subscriber{}
	errs := make([]error, 0, 5)
	addErr := func(e error) {
		errs = append(errs, e)
	}

	if s.Id, err = p.GetUid(DynamoDbPrimaryKey); err != nil {
		addErr(err)
	}
	if s.Email, err = p.GetString("email"); err != nil {
		addErr(err)
	}
	if s.Name, err = p.GetString("name"); err != nil {
		addErr(err)
	}
	if s.SubscribedAt, err = p.GetTime("subscribed_at"); err != nil {
		addErr(err)
	}

	_, pending := attrs[string(SubscriberPending)]
	_, confirmed := attrs[string(SubscriberConfirmed)]

	s.Status = SubscriberPending
	if confirmed {
		s.Status = SubscriberConfirmed
	}

	if pending && confirmed {
		const errFmt = "contains both '%s' and '%s' attributes"
		addErr(fmt.Errorf(errFmt, SubscriberPending, SubscriberConfirmed))
	} else if !(pending || confirmed) {
		const errFmt = "has neither '%s' or '%s' attributes"
		addErr(fmt.Errorf(errFmt, SubscriberPending, SubscriberConfirmed))
	}

	if err = errors.Join(errs...); err != nil {
		err = errors.New("failed to parse subscriber: " + err.Error())
	} else {
		subscriber = s
	}
	return
}

func (p *dbParser) GetString(name string) (value string, err error) {
	return getAttribute(name, p.attrs, func(attr *dbString) (string, error) {
		return attr.Value, nil
	})
}

func (p *dbParser) GetUid(name string) (value uuid.UUID, err error) {
	return getAttribute(name, p.attrs, func(attr *dbString) (uuid.UUID, error) {
		return uuid.Parse(attr.Value)
	})
}

func toDynamoDbTimestamp(t time.Time) *dbNumber {
	return &dbNumber{Value: strconv.FormatInt(t.Unix(), 10)}
}

func (p *dbParser) GetTime(name string) (value time.Time, err error) {
	return getAttribute(name, p.attrs, func(attr *dbNumber) (time.Time, error) {
		if ts, err := strconv.ParseInt(attr.Value, 10, 0); err != nil {
			return time.Time{}, err
		} else {
			return time.Unix(ts, 0).UTC(), nil
		}
	})
}

func getAttribute[T any, V any](
	name string, attrs dbAttributes, parse func(T) (V, error),
) (value V, err error) {
	if attr, ok := attrs[name]; !ok {
		err = fmt.Errorf("attribute '%s' not in: %+v", name, attrs)
	} else if dbAttr, ok := attr.(T); !ok {
		// Inspired by: https://stackoverflow.com/a/72626548
		const errFmt = "attribute '%s' is of type %T, not %T: %+v"
		err = fmt.Errorf(errFmt, name, attr, new(T), attr)
	} else if value, err = parse(dbAttr); err != nil {
		value = *new(V)
		const errFmt = "failed to parse '%s' from: %+v: %s"
		err = fmt.Errorf(errFmt, name, dbAttr, err)
	}
	return
}

func newSubscriberRecord(sub *Subscriber) dbAttributes {
	return dbAttributes{
		DynamoDbPrimaryKey: &dbString{Value: sub.Id.String()},
		"email":            &dbString{Value: sub.Email},
		"name":             &dbString{Value: sub.Name},
		"subscribed_at":    toDynamoDbTimestamp(sub.SubscribedAt),
		string(sub.Status): toDynamoDbTimestamp(sub.SubscribedAt),
	}
}

func newTokenRecord(token types.Token, subscriberId uuid.UUID) dbAttributes {
	record := tokenKey(token)
	record["subscriber_id"] = &dbString{Value: subscriberId.String()}
	return record
}

var dbKeyDoesNotExist = aws.String("attribute_not_exists(#id)")
var dbKeyExists = aws.String("attribute_exists(#id)")

func primaryKeyName() map[string]string {
	return map[string]string{"#id": DynamoDbPrimaryKey}
}

// CreatePendingSubscriber writes the subscriber and token items in a single
// TransactWriteItems call. Neither write may overwrite an existing item, so a
// token collision cancels the whole transaction.
func (db *DynamoDb) CreatePendingSubscriber(
	ctx context.Context, sub *Subscriber, token types.Token,
) (err error) {
	put := func(item dbAttributes) dbtypes.TransactWriteItem {
		return dbtypes.TransactWriteItem{
			Put: &dbtypes.Put{
				TableName:                &db.TableName,
				Item:                     item,
				ConditionExpression:      dbKeyDoesNotExist,
				ExpressionAttributeNames: primaryKeyName(),
			},
		}
	}
	input := &dynamodb.TransactWriteItemsInput{
		TransactItems: []dbtypes.TransactWriteItem{
			put(newSubscriberRecord(sub)),
			put(newTokenRecord(token, sub.Id)),
		},
	}

	if _, err = db.Client.TransactWriteItems(ctx, input); err != nil {
		err = ops.AwsError("failed to create subscriber "+sub.Email, err)
	}
	return
}

func (db *DynamoDb) GetSubscriberIdByToken(
	ctx context.Context, token types.Token,
) (id uuid.UUID, err error) {
	input := &dynamodb.GetItemInput{
		Key:            tokenKey(token),
		TableName:      &db.TableName,
		ConsistentRead: aws.Bool(true),
	}
	var output *dynamodb.GetItemOutput

	if output, err = db.Client.GetItem(ctx, input); err != nil {
		err = ops.AwsError("failed to get token "+token.String(), err)
	} else if len(output.Item) == 0 {
		err = fmt.Errorf("%w: %s", ErrTokenNotFound, token)
	} else if id, err = (&dbParser{output.Item}).GetUid("subscriber_id"); err != nil {
		err = fmt.Errorf("failed to parse token %s: %w", token, err)
	}
	return
}

func (db *DynamoDb) GetSubscriber(
	ctx context.Context, id uuid.UUID,
) (subscriber *Subscriber, err error) {
	input := &dynamodb.GetItemInput{
		Key:            subscriberKey(id),
		TableName:      &db.TableName,
		ConsistentRead: aws.Bool(true),
	}
	var output *dynamodb.GetItemOutput

	if output, err = db.Client.GetItem(ctx, input); err != nil {
		err = ops.AwsError("failed to get subscriber "+id.String(), err)
	} else if len(output.Item) == 0 {
		err = fmt.Errorf("%s %w", id, ErrSubscriberNotFound)
	} else {
		subscriber, err = parseSubscriber(output.Item)
	}
	return
}

// ConfirmSubscriber moves the subscriber's status attribute from "pending" to
// "confirmed". if_not_exists keeps the original confirmation time when
// confirming again.
func (db *DynamoDb) ConfirmSubscriber(
	ctx context.Context, id uuid.UUID,
) (err error) {
	names := primaryKeyName()
	names["#pending"] = string(SubscriberPending)
	names["#confirmed"] = string(SubscriberConfirmed)

	input := &dynamodb.UpdateItemInput{
		Key:                      subscriberKey(id),
		TableName:                &db.TableName,
		ConditionExpression:      dbKeyExists,
		UpdateExpression:         aws.String(confirmUpdateExpression),
		ExpressionAttributeNames: names,
		ExpressionAttributeValues: dbAttributes{
			":now": toDynamoDbTimestamp(db.now()),
		},
	}
	var checkFailed *dbtypes.ConditionalCheckFailedException

	if _, err = db.Client.UpdateItem(ctx, input); err == nil {
		return
	} else if errors.As(err, &checkFailed) {
		err = fmt.Errorf("%s %w", id, ErrSubscriberNotFound)
	} else {
		err = ops.AwsError("failed to confirm subscriber "+id.String(), err)
	}
	return
}

const confirmUpdateExpression = "SET #confirmed = " +
	"if_not_exists(#confirmed, :now) REMOVE #pending"

// GetSubscribers scans every page of the index for status.
//
// Only SubscriberConfirmed has an index. Pending subscribers are never
// listed by any operation.
func (db *DynamoDb) GetSubscribers(
	ctx context.Context, status SubscriberStatus,
) (subs []*Subscriber, err error) {
	if status != SubscriberConfirmed {
		return nil, fmt.Errorf("no index for %s subscribers", status)
	}

	var page []*Subscriber
	var next StartKey
	var malformed []MalformedRecord

	for {
		page, next, err = db.GetSubscribersInState(ctx, status, next)

		var pageErr *MalformedSubscribersError
		if errors.As(err, &pageErr) {
			malformed = append(malformed, pageErr.Records...)
		} else if err != nil {
			return nil, err
		}
		subs = append(subs, page...)
		if next == nil {
			return subs, malformedError(malformed)
		}
	}
}

// StartKey is an opaque pagination token returned by GetSubscribersInState.
type StartKey interface {
	isDbStartKey()
}

type dynamoDbStartKey struct {
	attrs dbAttributes
}

func (*dynamoDbStartKey) isDbStartKey() {}

func (db *DynamoDb) GetSubscribersInState(
	ctx context.Context, state SubscriberStatus, startKey StartKey,
) (subs []*Subscriber, nextStartKey StartKey, err error) {
	errMsg := fmt.Sprintf("failed to get %s subscribers", state)
	var input *dynamodb.ScanInput
	var output *dynamodb.ScanOutput

	if input, err = newScanInput(db.TableName, state, startKey); err != nil {
		err = fmt.Errorf("%s: %w", errMsg, err)
	} else if output, err = db.Client.Scan(ctx, input); err != nil {
		err = ops.AwsError(errMsg, err)
	} else {
		subs, nextStartKey, err = processScanOutput(output)
	}
	return
}

func newScanInput(
	tableName string, state SubscriberStatus, startKey StartKey,
) (input *dynamodb.ScanInput, err error) {
	var dbStartKey *dynamoDbStartKey
	var ok bool

	if startKey == nil {
		dbStartKey = &dynamoDbStartKey{}
	} else if dbStartKey, ok = startKey.(*dynamoDbStartKey); !ok {
		err = fmt.Errorf("not a *db.dynamoDbStartKey: %T", startKey)
		return
	}

	indexName := string(state)
	input = &dynamodb.ScanInput{
		TableName:         &tableName,
		IndexName:         &indexName,
		ExclusiveStartKey: dbStartKey.attrs,
	}
	return
}

func processScanOutput(
	output *dynamodb.ScanOutput,
) (subs []*Subscriber, nextStartKey StartKey, err error) {
	if len(output.LastEvaluatedKey) != 0 {
		nextStartKey = &dynamoDbStartKey{output.LastEvaluatedKey}
	}

	subs = make([]*Subscriber, 0, len(output.Items))
	var malformed []MalformedRecord

	for _, item := range output.Items {
		if sub, parseErr := parseSubscriber(item); parseErr == nil {
			subs = append(subs, sub)
		} else {
			key, _ := (&dbParser{item}).GetString(DynamoDbPrimaryKey)
			malformed = append(malformed, MalformedRecord{key, parseErr})
		}
	}
	err = malformedError(malformed)
	return
}

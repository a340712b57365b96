package sender

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	webpush "github.com/SherClockHolmes/webpush-go"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/redis/go-redis/v9"
)

const (
	DefaultSubscriptionTable = "notifier-subscriptions"
	DefaultConfigTable       = "notifier-config"
	DefaultRedisKeyPrefix    = "console-notifier"
)

// SubscriptionRepository persists Web Push subscriptions keyed by endpoint.
// VAPIDKeys returns the application server key pair, generating and
// persisting one on first use so every replica signs with the same keys.
type SubscriptionRepository interface {
	LoadAll(ctx context.Context) ([]webpush.Subscription, error)
	Store(ctx context.Context, subscription webpush.Subscription) error
	Delete(ctx context.Context, subscription webpush.Subscription) error
	VAPIDKeys(ctx context.Context) (privateKey string, publicKey string, err error)
}

type InMemorySubscriptionRepository struct {
	subscriptionMap sync.Map

	vapidOnce       sync.Once
	vapidPrivateKey string
	vapidPublicKey  string
	vapidErr        error
}

func NewInMemorySubscriptionRepository() *InMemorySubscriptionRepository {
	return &InMemorySubscriptionRepository{}
}

func (imsr *InMemorySubscriptionRepository) LoadAll(ctx context.Context) ([]webpush.Subscription, error) {
	subscriptions := make([]webpush.Subscription, 0)

	imsr.subscriptionMap.Range(func(key, value interface{}) bool {
		subscriptions = append(subscriptions, value.(webpush.Subscription))
		return true
	})

	return subscriptions, nil
}

func (imsr *InMemorySubscriptionRepository) Store(ctx context.Context, subscription webpush.Subscription) error {
	imsr.subscriptionMap.Store(subscription.Endpoint, subscription)
	return nil
}

func (imsr *InMemorySubscriptionRepository) Delete(ctx context.Context, subscription webpush.Subscription) error {
	imsr.subscriptionMap.Delete(subscription.Endpoint)
	return nil
}

func (imsr *InMemorySubscriptionRepository) VAPIDKeys(ctx context.Context) (string, string, error) {
	imsr.vapidOnce.Do(func() {
		imsr.vapidPrivateKey, imsr.vapidPublicKey, imsr.vapidErr = webpush.GenerateVAPIDKeys()
	})
	return imsr.vapidPrivateKey, imsr.vapidPublicKey, imsr.vapidErr
}

type dynamoDBAPI interface {
	dynamodb.ScanAPIClient
	GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	DeleteItem(ctx context.Context, params *dynamodb.DeleteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error)
}

type DynamoDBSubscriptionRepository struct {
	dynamodbClient    dynamoDBAPI
	subscriptionTable string
	configTable       string
}

func NewDynamoDBSubscriptionRepository(dynamodbClient dynamoDBAPI, subscriptionTable, configTable string) *DynamoDBSubscriptionRepository {
	if subscriptionTable == "" {
		subscriptionTable = DefaultSubscriptionTable
	}
	if configTable == "" {
		configTable = DefaultConfigTable
	}

	return &DynamoDBSubscriptionRepository{
		dynamodbClient:    dynamodbClient,
		subscriptionTable: subscriptionTable,
		configTable:       configTable,
	}
}

func (ddbr *DynamoDBSubscriptionRepository) LoadAll(ctx context.Context) ([]webpush.Subscription, error) {
	paginator := dynamodb.NewScanPaginator(ddbr.dynamodbClient, &dynamodb.ScanInput{
		TableName: aws.String(ddbr.subscriptionTable),
	})

	subscriptions := make([]webpush.Subscription, 0)

	for paginator.HasMorePages() {
		output, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("Scan subscriptions from DynamoDB failed: %w", err)
		}

		page := make([]webpush.Subscription, 0, len(output.Items))
		if err := attributevalue.UnmarshalListOfMaps(output.Items, &page); err != nil {
			return nil, fmt.Errorf("Unmarshaling subscription from DynamoDB AttributeValue failed: %w", err)
		}
		subscriptions = append(subscriptions, page...)
	}
	return subscriptions, nil
}

func (ddbr *DynamoDBSubscriptionRepository) Store(ctx context.Context, subscription webpush.Subscription) error {
	av, err := attributevalue.MarshalMap(subscription)
	if err != nil {
		return fmt.Errorf("Marshaling subscription to DynamoDB AttributeValue failed: %w", err)
	}

	_, err = ddbr.dynamodbClient.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(ddbr.subscriptionTable),
		Item:      av,
	})
	if err != nil {
		return fmt.Errorf("PutItem to DynamoDB failed: %w", err)
	}

	return nil
}

func (ddbr *DynamoDBSubscriptionRepository) Delete(ctx context.Context, subscription webpush.Subscription) error {
	_, err := ddbr.dynamodbClient.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName: aws.String(ddbr.subscriptionTable),
		Key: map[string]types.AttributeValue{
			"Endpoint": &types.AttributeValueMemberS{Value: subscription.Endpoint},
		},
	})
	if err != nil {
		return fmt.Errorf("DeleteItem to DynamoDB failed: %w", err)
	}

	return nil
}

type vapidItem struct {
	Key   string `dynamodbav:"Key"`
	Value string `dynamodbav:"Value"`
}

func (ddbr *DynamoDBSubscriptionRepository) VAPIDKeys(ctx context.Context) (string, string, error) {
	output, err := ddbr.dynamodbClient.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(ddbr.configTable),
		Key: map[string]types.AttributeValue{
			"Key": &types.AttributeValueMemberS{Value: "vapid"},
		},
	})
	if err != nil {
		return "", "", fmt.Errorf("GetItem for vapid failed: %w", err)
	}

	if output.Item != nil {
		var item vapidItem
		if err := attributevalue.UnmarshalMap(output.Item, &item); err != nil {
			return "", "", fmt.Errorf("Unmarshal for vapid failed: %w", err)
		}
		return splitVAPIDKeys(item.Value)
	}

	privateKey, publicKey, err := webpush.GenerateVAPIDKeys()
	if err != nil {
		return "", "", fmt.Errorf("generate vapid keys failed: %w", err)
	}

	av, err := attributevalue.MarshalMap(vapidItem{Key: "vapid", Value: joinVAPIDKeys(privateKey, publicKey)})
	if err != nil {
		return "", "", fmt.Errorf("Marshal for vapid failed: %w", err)
	}

	_, err = ddbr.dynamodbClient.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(ddbr.configTable),
		Item:      av,
	})
	if err != nil {
		return "", "", fmt.Errorf("PutItem for vapid failed: %w", err)
	}

	return privateKey, publicKey, nil
}

type redisAPI interface {
	HSet(ctx context.Context, key string, values ...interface{}) *redis.IntCmd
	HGetAll(ctx context.Context, key string) *redis.MapStringStringCmd
	HDel(ctx context.Context, key string, fields ...string) *redis.IntCmd
	SetNX(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.BoolCmd
	Get(ctx context.Context, key string) *redis.StringCmd
}

// RedisSubscriptionRepository keeps subscriptions in one hash, field per
// endpoint, and the VAPID key pair in a plain key next to it.
type RedisSubscriptionRepository struct {
	client    redisAPI
	keyPrefix string
}

func NewRedisSubscriptionRepository(client redisAPI, keyPrefix string) *RedisSubscriptionRepository {
	if keyPrefix == "" {
		keyPrefix = DefaultRedisKeyPrefix
	}
	return &RedisSubscriptionRepository{client: client, keyPrefix: keyPrefix}
}

func (rsr *RedisSubscriptionRepository) subscriptionsKey() string {
	return rsr.keyPrefix + ":subscriptions"
}

func (rsr *RedisSubscriptionRepository) vapidKey() string {
	return rsr.keyPrefix + ":vapid"
}

func (rsr *RedisSubscriptionRepository) LoadAll(ctx context.Context) ([]webpush.Subscription, error) {
	fields, err := rsr.client.HGetAll(ctx, rsr.subscriptionsKey()).Result()
	if err != nil {
		return nil, fmt.Errorf("HGETALL subscriptions failed: %w", err)
	}

	subscriptions := make([]webpush.Subscription, 0, len(fields))
	for endpoint, raw := range fields {
		var subscription webpush.Subscription
		if err := json.Unmarshal([]byte(raw), &subscription); err != nil {
			return nil, fmt.Errorf("Unmarshal subscription for %s failed: %w", endpoint, err)
		}
		subscriptions = append(subscriptions, subscription)
	}
	return subscriptions, nil
}

func (rsr *RedisSubscriptionRepository) Store(ctx context.Context, subscription webpush.Subscription) error {
	data, err := json.Marshal(subscription)
	if err != nil {
		return fmt.Errorf("Marshal subscription failed: %w", err)
	}

	if err := rsr.client.HSet(ctx, rsr.subscriptionsKey(), subscription.Endpoint, string(data)).Err(); err != nil {
		return fmt.Errorf("HSET subscription failed: %w", err)
	}
	return nil
}

func (rsr *RedisSubscriptionRepository) Delete(ctx context.Context, subscription webpush.Subscription) error {
	if err := rsr.client.HDel(ctx, rsr.subscriptionsKey(), subscription.Endpoint).Err(); err != nil {
		return fmt.Errorf("HDEL subscription failed: %w", err)
	}
	return nil
}

func (rsr *RedisSubscriptionRepository) VAPIDKeys(ctx context.Context) (string, string, error) {
	privateKey, publicKey, err := webpush.GenerateVAPIDKeys()
	if err != nil {
		return "", "", fmt.Errorf("generate vapid keys failed: %w", err)
	}

	// Only the first replica's pair is kept.
	if err := rsr.client.SetNX(ctx, rsr.vapidKey(), joinVAPIDKeys(privateKey, publicKey), 0).Err(); err != nil {
		return "", "", fmt.Errorf("SETNX vapid failed: %w", err)
	}

	value, err := rsr.client.Get(ctx, rsr.vapidKey()).Result()
	if errors.Is(err, redis.Nil) {
		return "", "", fmt.Errorf("vapid keys vanished after SETNX")
	}
	if err != nil {
		return "", "", fmt.Errorf("GET vapid failed: %w", err)
	}
	return splitVAPIDKeys(value)
}

func joinVAPIDKeys(privateKey, publicKey string) string {
	return privateKey + " " + publicKey
}

func splitVAPIDKeys(value string) (string, string, error) {
	privateKey, publicKey, ok := strings.Cut(value, " ")
	if !ok || privateKey == "" || publicKey == "" {
		return "", "", fmt.Errorf("stored vapid keys are malformed")
	}
	return privateKey, publicKey, nil
}

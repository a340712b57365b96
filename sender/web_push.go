package sender

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	webpush "github.com/SherClockHolmes/webpush-go"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/redis/go-redis/v9"

	"github.com/Kotaro7750/console-notifier/abstraction"
	"github.com/Kotaro7750/console-notifier/notification"
	"github.com/Kotaro7750/console-notifier/server"
)

const (
	setupTimeout  = 10 * time.Second
	pushTimeout   = 30 * time.Second
	pushQueueSize = 64
)

func WebPushSenderBuilder(id string, properties map[string]interface{}, deps abstraction.Dependencies) (abstraction.AbstractChannelComponent[notification.Event], error) {
	listenAddr, err := abstraction.StringProperty(properties, "listenAddress", true)
	if err != nil {
		return nil, err
	}

	defaultSubscriber, err := abstraction.StringProperty(properties, "defaultSubscriber", false)
	if err != nil {
		return nil, err
	}

	allowedOrigins, err := abstraction.StringListProperty(properties, "allowedOrigins")
	if err != nil {
		return nil, err
	}

	ttl, err := abstraction.IntProperty(properties, "ttl", 0)
	if err != nil {
		return nil, err
	}

	repositoryType, err := abstraction.StringProperty(properties, "repositoryType", true)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(context.Background(), setupTimeout)
	defer cancel()

	subscriptionRepository, err := newSubscriptionRepository(ctx, repositoryType, properties)
	if err != nil {
		return nil, err
	}

	vapidPrivateKey, vapidPublicKey, err := subscriptionRepository.VAPIDKeys(ctx)
	if err != nil {
		return nil, err
	}

	return NewSender(&webPushSenderImpl{
		id:                     id,
		logger:                 nil,
		listenAddress:          listenAddr,
		allowedOrigins:         allowedOrigins,
		defaultSubscriber:      defaultSubscriber,
		ttl:                    ttl,
		subscriptionRepository: subscriptionRepository,
		vapidPrivateKey:        vapidPrivateKey,
		vapidPublicKey:         vapidPublicKey,
		httpClient:             &http.Client{Timeout: pushTimeout},
	}), nil
}

func newSubscriptionRepository(ctx context.Context, repositoryType string, properties map[string]interface{}) (SubscriptionRepository, error) {
	switch repositoryType {
	case "DynamoDB":
		region, err := abstraction.StringProperty(properties, "region", false)
		if err != nil {
			return nil, err
		}
		if region == "" {
			region = "ap-northeast-1"
		}

		subscriptionTable, err := abstraction.StringProperty(properties, "subscriptionTable", false)
		if err != nil {
			return nil, err
		}
		configTable, err := abstraction.StringProperty(properties, "configTable", false)
		if err != nil {
			return nil, err
		}

		cfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(region))
		if err != nil {
			return nil, fmt.Errorf("Load AWS config failed: %w", err)
		}

		return NewDynamoDBSubscriptionRepository(dynamodb.NewFromConfig(cfg), subscriptionTable, configTable), nil

	case "Redis":
		redisURL, err := abstraction.StringProperty(properties, "redisURL", true)
		if err != nil {
			return nil, err
		}
		keyPrefix, err := abstraction.StringProperty(properties, "keyPrefix", false)
		if err != nil {
			return nil, err
		}

		opts, err := redis.ParseURL(redisURL)
		if err != nil {
			return nil, fmt.Errorf("redisURL is invalid: %w", err)
		}
		client := redis.NewClient(opts)
		if err := client.Ping(ctx).Err(); err != nil {
			_ = client.Close()
			return nil, fmt.Errorf("Redis is not ready: %w", err)
		}

		return NewRedisSubscriptionRepository(client, keyPrefix), nil

	case "InMemory":
		return NewInMemorySubscriptionRepository(), nil

	default:
		return nil, fmt.Errorf("repositoryType is invalid. repositoryType: %s", repositoryType)
	}
}

type webPushSenderImpl struct {
	id                     string
	logger                 *slog.Logger
	listenAddress          string
	allowedOrigins         []string
	defaultSubscriber      string
	ttl                    int
	vapidPrivateKey        string
	vapidPublicKey         string
	subscriptionRepository SubscriptionRepository
	httpClient             webpush.HTTPClient
}

func (wpsi *webPushSenderImpl) GetId() string {
	return wpsi.id
}

func (wpsi *webPushSenderImpl) GetLogger() *slog.Logger {
	return wpsi.logger
}

func (wpsi *webPushSenderImpl) SetLogger(logger *slog.Logger) {
	wpsi.logger = logger
}

// Start hands added notifications to a delivery goroutine so a slow push
// service never holds up the router. When the delivery queue is full the
// notification is not pushed.
func (wpsi *webPushSenderImpl) Start(inputCh <-chan notification.Event, done <-chan struct{}) <-chan error {
	retCh := make(chan error)

	stopServer := make(chan struct{})
	serverErrCh := server.Run(wpsi.listenAddress, server.CORS(wpsi.allowedOrigins).Handler(wpsi.newServeMux()), stopServer)

	ctx, cancel := context.WithCancel(context.Background())
	pending := make(chan notification.Notification, pushQueueSize)
	delivered := make(chan struct{})

	go func() {
		defer close(delivered)
		for n := range pending {
			wpsi.push(ctx, n)
		}
	}()

	go func() {
		defer close(retCh)

		stopDelivery := func() {
			cancel()
			close(pending)
			<-delivered
		}

		for {
			select {
			case e, ok := <-inputCh:
				if !ok {
					inputCh = nil
					continue
				}
				if e.Type != notification.EventAdded {
					continue
				}

				select {
				case pending <- e.Notification:
				default:
					wpsi.GetLogger().Warn("Push queue is full, notification not pushed", "notificationId", e.Notification.Id)
				}

			case err := <-serverErrCh:
				stopDelivery()
				close(stopServer)
				retCh <- err
				return

			case <-done:
				stopDelivery()
				close(stopServer)
				for range serverErrCh {
				}
				return
			}
		}
	}()

	return retCh
}

// push delivers n to every subscription. Failures are logged and the
// notification is skipped; subscriptions the push service reports as gone
// are dropped.
func (wpsi *webPushSenderImpl) push(ctx context.Context, n notification.Notification) {
	subscriptions, err := wpsi.subscriptionRepository.LoadAll(ctx)
	if err != nil {
		wpsi.GetLogger().Error("LoadAll subscription from repository failed", "notificationId", n.Id, "err", err)
		return
	}

	data, err := json.Marshal(n)
	if err != nil {
		wpsi.GetLogger().Error("Marshal notification failed", "notificationId", n.Id, "err", err)
		return
	}

	for _, subscription := range subscriptions {
		res, err := webpush.SendNotificationWithContext(ctx, data, &subscription, &webpush.Options{
			HTTPClient:      wpsi.httpClient,
			Subscriber:      wpsi.defaultSubscriber,
			TTL:             wpsi.ttl,
			VAPIDPublicKey:  wpsi.vapidPublicKey,
			VAPIDPrivateKey: wpsi.vapidPrivateKey,
		})
		if err != nil {
			wpsi.GetLogger().Error("SendNotification failed", "endpoint", subscription.Endpoint, "err", err)
			continue
		}
		if res.Body != nil {
			io.Copy(io.Discard, res.Body)
			res.Body.Close()
		}

		wpsi.GetLogger().Info("Notify send to WebPush Endpoint", "notificationId", n.Id, "response", res.Status)

		if res.StatusCode == http.StatusNotFound || res.StatusCode == http.StatusGone {
			if err := wpsi.subscriptionRepository.Delete(ctx, subscription); err != nil {
				wpsi.GetLogger().Error("Delete expired subscription failed", "endpoint", subscription.Endpoint, "err", err)
			} else {
				wpsi.GetLogger().Info("Expired subscription deleted", "endpoint", subscription.Endpoint)
			}
		}
	}
}

func (wpsi *webPushSenderImpl) newServeMux() *http.ServeMux {
	serveMux := http.NewServeMux()

	serveMux.HandleFunc("GET /publickey", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
		w.Write([]byte(wpsi.vapidPublicKey))
	})

	serveMux.HandleFunc("POST /subscriptions", func(w http.ResponseWriter, r *http.Request) {
		subscription, ok := wpsi.decodeSubscription(w, r)
		if !ok {
			return
		}

		if err := wpsi.subscriptionRepository.Store(r.Context(), subscription); err != nil {
			wpsi.GetLogger().Error("Store subscription to repository failed", "err", err)
			w.WriteHeader(http.StatusInternalServerError)
			return
		}

		wpsi.GetLogger().Info("Receive subscription")
		w.WriteHeader(http.StatusOK)
	})

	serveMux.HandleFunc("DELETE /subscriptions", func(w http.ResponseWriter, r *http.Request) {
		subscription, ok := wpsi.decodeSubscription(w, r)
		if !ok {
			return
		}

		if err := wpsi.subscriptionRepository.Delete(r.Context(), subscription); err != nil {
			wpsi.GetLogger().Error("Delete subscription from repository failed", "err", err)
			w.WriteHeader(http.StatusInternalServerError)
			return
		}

		wpsi.GetLogger().Info("Delete subscription")
		w.WriteHeader(http.StatusNoContent)
	})

	serveMux.HandleFunc("GET /subscriptions", func(w http.ResponseWriter, r *http.Request) {
		subscriptions, err := wpsi.subscriptionRepository.LoadAll(r.Context())
		if err != nil {
			wpsi.GetLogger().Error("LoadAll subscription from repository failed", "err", err)
			w.WriteHeader(http.StatusInternalServerError)
			return
		}

		endpoints := make([]string, 0, len(subscriptions))
		for _, subscription := range subscriptions {
			endpoints = append(endpoints, subscription.Endpoint)
		}

		writeJSON(w, endpoints)
	})

	return serveMux
}

func (wpsi *webPushSenderImpl) decodeSubscription(w http.ResponseWriter, r *http.Request) (webpush.Subscription, bool) {
	var subscription webpush.Subscription
	if err := json.NewDecoder(r.Body).Decode(&subscription); err != nil {
		wpsi.GetLogger().Error("Decoding subscription from JSON failed", "err", err)
		w.WriteHeader(http.StatusBadRequest)
		return subscription, false
	}
	if subscription.Endpoint == "" {
		wpsi.GetLogger().Error("Subscription without endpoint")
		w.WriteHeader(http.StatusBadRequest)
		return subscription, false
	}
	return subscription, true
}

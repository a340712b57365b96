package sender

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	webpush "github.com/SherClockHolmes/webpush-go"
	"github.com/jarcoal/httpmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Kotaro7750/console-notifier/abstraction"
	"github.com/Kotaro7750/console-notifier/notification"
)

func newTestWebPush(t *testing.T, repo SubscriptionRepository) (*webPushSenderImpl, *httpmock.MockTransport) {
	t.Helper()
	privateKey, publicKey, err := repo.VAPIDKeys(context.Background())
	require.NoError(t, err)

	transport := httpmock.NewMockTransport()
	impl := &webPushSenderImpl{
		id:                     "webPush",
		listenAddress:          "127.0.0.1:0",
		defaultSubscriber:      "ops@example.com",
		subscriptionRepository: repo,
		vapidPrivateKey:        privateKey,
		vapidPublicKey:         publicKey,
		httpClient:             &http.Client{Transport: transport},
	}
	impl.SetLogger(discardLogger())
	return impl, transport
}

func TestWebPushSenderBuilder(t *testing.T) {
	_, err := WebPushSenderBuilder("webPush", map[string]interface{}{"repositoryType": "InMemory"}, abstraction.Dependencies{})
	assert.EqualError(t, err, "listenAddress is required")

	_, err = WebPushSenderBuilder("webPush", map[string]interface{}{"listenAddress": ":0"}, abstraction.Dependencies{})
	assert.EqualError(t, err, "repositoryType is required")

	_, err = WebPushSenderBuilder("webPush", map[string]interface{}{"listenAddress": ":0", "repositoryType": "Postgres"}, abstraction.Dependencies{})
	assert.EqualError(t, err, "repositoryType is invalid. repositoryType: Postgres")

	_, err = WebPushSenderBuilder("webPush", map[string]interface{}{"listenAddress": ":0", "repositoryType": "Redis"}, abstraction.Dependencies{})
	assert.EqualError(t, err, "redisURL is required")

	_, err = WebPushSenderBuilder("webPush", map[string]interface{}{"listenAddress": ":0", "repositoryType": "Redis", "redisURL": "http://nope"}, abstraction.Dependencies{})
	assert.Error(t, err)

	c, err := WebPushSenderBuilder("webPush", map[string]interface{}{
		"listenAddress":     ":0",
		"repositoryType":    "InMemory",
		"defaultSubscriber": "ops@example.com",
		"ttl":               60,
	}, abstraction.Dependencies{})
	require.NoError(t, err)

	impl := c.(*Sender).impl.(*webPushSenderImpl)
	assert.NotEmpty(t, impl.vapidPublicKey)
	assert.Equal(t, 60, impl.ttl)
}

func TestWebPush_SubscriptionEndpoints(t *testing.T) {
	impl, _ := newTestWebPush(t, NewInMemorySubscriptionRepository())
	mux := impl.newServeMux()

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/publickey", nil))
	assert.Equal(t, impl.vapidPublicKey, rec.Body.String())

	body, err := json.Marshal(testSubscription("https://push.example/a"))
	require.NoError(t, err)

	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/subscriptions", strings.NewReader(string(body))))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/subscriptions", strings.NewReader(`{"keys":{}}`)))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/subscriptions", strings.NewReader(`{`)))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/subscriptions", nil))
	assert.JSONEq(t, `["https://push.example/a"]`, rec.Body.String())

	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/subscriptions", strings.NewReader(string(body))))
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/subscriptions", nil))
	assert.JSONEq(t, `[]`, rec.Body.String())
}

func TestWebPush_Push(t *testing.T) {
	repo := NewInMemorySubscriptionRepository()
	ctx := context.Background()
	require.NoError(t, repo.Store(ctx, testSubscription("https://push.example/live")))
	require.NoError(t, repo.Store(ctx, testSubscription("https://push.example/gone")))
	require.NoError(t, repo.Store(ctx, testSubscription("https://push.example/broken")))

	impl, transport := newTestWebPush(t, repo)
	transport.RegisterResponder(http.MethodPost, "https://push.example/live", func(req *http.Request) (*http.Response, error) {
		assert.True(t, strings.HasPrefix(req.Header.Get("Authorization"), "vapid t="))
		assert.Equal(t, "aes128gcm", req.Header.Get("Content-Encoding"))
		return httpmock.NewStringResponse(http.StatusCreated, ""), nil
	})
	transport.RegisterResponder(http.MethodPost, "https://push.example/gone",
		httpmock.NewStringResponder(http.StatusGone, ""))
	transport.RegisterResponder(http.MethodPost, "https://push.example/broken",
		httpmock.NewErrorResponder(errors.New("connection reset")))

	impl.push(ctx, notification.Notification{Id: "n1", Message: "Backup failed", Color: notification.ColorError})

	assert.Equal(t, 3, transport.GetTotalCallCount())

	remaining, err := repo.LoadAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"https://push.example/broken", "https://push.example/live"}, endpoints(remaining))
}

type failingRepository struct {
	*InMemorySubscriptionRepository
	calls *atomic.Int32
}

func (f failingRepository) LoadAll(ctx context.Context) ([]webpush.Subscription, error) {
	f.calls.Add(1)
	return nil, errors.New("unavailable")
}

func TestWebPush_RepositoryFailureSkipsNotification(t *testing.T) {
	repo := failingRepository{InMemorySubscriptionRepository: NewInMemorySubscriptionRepository(), calls: &atomic.Int32{}}
	impl, _ := newTestWebPush(t, repo)

	inputCh := make(chan notification.Event)
	done := make(chan struct{})
	retCh := impl.Start(inputCh, done)

	// removals are not pushed
	inputCh <- notification.Event{Type: notification.EventRemoved}
	inputCh <- notification.Event{Type: notification.EventAdded, Notification: notification.Notification{Id: "n1"}}
	inputCh <- notification.Event{Type: notification.EventAdded, Notification: notification.Notification{Id: "n2"}}

	require.Eventually(t, func() bool { return repo.calls.Load() == 2 }, time.Second, 5*time.Millisecond)

	select {
	case err := <-retCh:
		t.Fatalf("sender stopped: %v", err)
	default:
	}

	close(done)
	select {
	case _, ok := <-retCh:
		assert.False(t, ok)
	case <-time.After(5 * time.Second):
		t.Fatal("webPush sender did not stop")
	}
}

func TestWebPush_SlowPushServiceDoesNotBlockEvents(t *testing.T) {
	repo := NewInMemorySubscriptionRepository()
	require.NoError(t, repo.Store(context.Background(), testSubscription("https://push.example/slow")))

	impl, transport := newTestWebPush(t, repo)
	release := make(chan struct{})
	transport.RegisterResponder(http.MethodPost, "https://push.example/slow", func(req *http.Request) (*http.Response, error) {
		select {
		case <-release:
		case <-req.Context().Done():
			return nil, req.Context().Err()
		}
		return httpmock.NewStringResponse(http.StatusCreated, ""), nil
	})

	inputCh := make(chan notification.Event)
	done := make(chan struct{})
	retCh := impl.Start(inputCh, done)

	sent := make(chan struct{})
	go func() {
		defer close(sent)
		for i := 0; i < 10; i++ {
			inputCh <- notification.Event{Type: notification.EventAdded, Notification: notification.Notification{Id: fmt.Sprintf("n%d", i)}}
		}
	}()

	select {
	case <-sent:
	case <-time.After(time.Second):
		t.Fatal("event loop blocked behind a slow push")
	}

	close(done)
	select {
	case <-retCh:
	case <-time.After(5 * time.Second):
		t.Fatal("webPush sender did not stop")
	}
	close(release)
}


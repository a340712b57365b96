package sender

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/Kotaro7750/console-notifier/abstraction"
	"github.com/Kotaro7750/console-notifier/notification"
	"github.com/Kotaro7750/console-notifier/server"
	"github.com/Kotaro7750/console-notifier/store"
)

const subscriberBuffer = 16

// DisplaySenderBuilder serves the live queue to the console front end.
func DisplaySenderBuilder(id string, properties map[string]interface{}, deps abstraction.Dependencies) (abstraction.AbstractChannelComponent[notification.Event], error) {
	listenAddr, err := abstraction.StringProperty(properties, "listenAddress", true)
	if err != nil {
		return nil, err
	}

	allowedOrigins, err := abstraction.StringListProperty(properties, "allowedOrigins")
	if err != nil {
		return nil, err
	}

	if deps.Store == nil {
		return nil, fmt.Errorf("store is required")
	}

	gatherer := deps.Gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}

	return NewSender(&displaySenderImpl{
		id:             id,
		logger:         nil,
		listenAddress:  listenAddr,
		allowedOrigins: allowedOrigins,
		store:          deps.Store,
		gatherer:       gatherer,
		broker:         newEventBroker(),
	}), nil
}

type displaySenderImpl struct {
	id             string
	logger         *slog.Logger
	listenAddress  string
	allowedOrigins []string
	store          *store.Store
	gatherer       prometheus.Gatherer
	broker         *eventBroker
}

func (dsi *displaySenderImpl) GetId() string {
	return dsi.id
}

func (dsi *displaySenderImpl) GetLogger() *slog.Logger {
	return dsi.logger
}

func (dsi *displaySenderImpl) SetLogger(logger *slog.Logger) {
	dsi.logger = logger
}

func (dsi *displaySenderImpl) Start(inputCh <-chan notification.Event, done <-chan struct{}) <-chan error {
	retCh := make(chan error)

	stopServer := make(chan struct{})
	serverErrCh := server.Run(dsi.listenAddress, server.CORS(dsi.allowedOrigins).Handler(dsi.newServeMux()), stopServer)

	go func() {
		defer close(retCh)

		shutdownFunc := func() {
			// event streams only end once their channel is closed
			dsi.broker.closeAll()
			close(stopServer)
			for range serverErrCh {
			}
		}

		for {
			select {
			case e, ok := <-inputCh:
				if !ok {
					inputCh = nil
					continue
				}
				dsi.broker.publish(e)

			case err := <-serverErrCh:
				dsi.broker.closeAll()
				close(stopServer)
				retCh <- err
				return

			case <-done:
				shutdownFunc()
				return
			}
		}
	}()

	return retCh
}

func (dsi *displaySenderImpl) newServeMux() *http.ServeMux {
	serveMux := http.NewServeMux()

	serveMux.HandleFunc("GET /notifications", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, dsi.store.Notifications())
	})

	serveMux.HandleFunc("DELETE /notifications/{id}", func(w http.ResponseWriter, r *http.Request) {
		id := r.PathValue("id")
		if dsi.store.RemoveNotification(id) {
			dsi.GetLogger().Debug("Notification dismissed by user", "notificationId", id)
		}
		w.WriteHeader(http.StatusNoContent)
	})

	serveMux.HandleFunc("GET /error-message", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, struct {
			Message string `json:"message"`
		}{Message: dsi.store.ErrorMessage()})
	})

	serveMux.HandleFunc("GET /events", dsi.serveEvents)

	serveMux.Handle("GET /metrics", promhttp.HandlerFor(dsi.gatherer, promhttp.HandlerOpts{}))

	return serveMux
}

// serveEvents streams events as Server-Sent Events until the client goes
// away or the sender shuts down. Every event carries the repacked queue, so a
// client can replace its whole list instead of patching positions.
func (dsi *displaySenderImpl) serveEvents(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	ch, unsubscribe := dsi.broker.subscribe()
	defer unsubscribe()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	for {
		select {
		case e, ok := <-ch:
			if !ok {
				return
			}

			data, err := json.Marshal(e)
			if err != nil {
				dsi.GetLogger().Error("Marshal event failed", "err", err)
				continue
			}
			if _, err := fmt.Fprintf(w, "id: %d\nevent: %s\ndata: %s\n\n", e.Seq, e.Type, data); err != nil {
				return
			}
			flusher.Flush()

		case <-r.Context().Done():
			return
		}
	}
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}

// eventBroker fans events out to the connected event streams. A stream that
// does not keep up loses events instead of stalling the others.
type eventBroker struct {
	mu          sync.Mutex
	subscribers map[chan notification.Event]struct{}
}

func newEventBroker() *eventBroker {
	return &eventBroker{subscribers: make(map[chan notification.Event]struct{})}
}

func (b *eventBroker) subscribe() (<-chan notification.Event, func()) {
	ch := make(chan notification.Event, subscriberBuffer)

	b.mu.Lock()
	b.subscribers[ch] = struct{}{}
	b.mu.Unlock()

	return ch, func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		if _, ok := b.subscribers[ch]; ok {
			delete(b.subscribers, ch)
			close(ch)
		}
	}
}

func (b *eventBroker) publish(e notification.Event) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for ch := range b.subscribers {
		select {
		case ch <- e:
		default:
		}
	}
}

func (b *eventBroker) closeAll() {
	b.mu.Lock()
	defer b.mu.Unlock()

	for ch := range b.subscribers {
		delete(b.subscribers, ch)
		close(ch)
	}
}

func (b *eventBroker) len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subscribers)
}

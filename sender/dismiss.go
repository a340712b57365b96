package sender

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/Kotaro7750/console-notifier/abstraction"
	"github.com/Kotaro7750/console-notifier/notification"
)

type notificationRemover interface {
	RemoveNotification(id string) bool
}

// AutoDismissSenderBuilder removes every notification from the store once its
// timeout has elapsed.
func AutoDismissSenderBuilder(id string, properties map[string]interface{}, deps abstraction.Dependencies) (abstraction.AbstractChannelComponent[notification.Event], error) {
	if deps.Store == nil {
		return nil, fmt.Errorf("store is required")
	}

	return NewSender(newAutoDismissSenderImpl(id, deps.Store)), nil
}

type autoDismissSenderImpl struct {
	id     string
	logger *slog.Logger
	store  notificationRemover

	mu     sync.Mutex
	timers map[string]*time.Timer
}

func newAutoDismissSenderImpl(id string, store notificationRemover) *autoDismissSenderImpl {
	return &autoDismissSenderImpl{
		id:     id,
		store:  store,
		timers: make(map[string]*time.Timer),
	}
}

func (adsi *autoDismissSenderImpl) GetId() string {
	return adsi.id
}

func (adsi *autoDismissSenderImpl) GetLogger() *slog.Logger {
	return adsi.logger
}

func (adsi *autoDismissSenderImpl) SetLogger(logger *slog.Logger) {
	adsi.logger = logger
}

func (adsi *autoDismissSenderImpl) Start(inputCh <-chan notification.Event, done <-chan struct{}) <-chan error {
	retCh := make(chan error)

	go func() {
		defer close(retCh)
		defer adsi.stopAll()

		for {
			select {
			case e, ok := <-inputCh:
				if !ok {
					<-done
					return
				}
				adsi.handle(e)

			case <-done:
				return
			}
		}
	}()

	return retCh
}

func (adsi *autoDismissSenderImpl) handle(e notification.Event) {
	id := e.Notification.Id

	switch e.Type {
	case notification.EventAdded:
		timeout := time.Duration(e.Notification.TimeoutMs) * time.Millisecond

		adsi.mu.Lock()
		defer adsi.mu.Unlock()
		if _, ok := adsi.timers[id]; ok {
			return
		}
		adsi.timers[id] = time.AfterFunc(timeout, func() {
			adsi.mu.Lock()
			delete(adsi.timers, id)
			adsi.mu.Unlock()

			if adsi.store.RemoveNotification(id) {
				adsi.logger.Debug("Notification dismissed after timeout", "notificationId", id, "timeout", timeout)
			}
		})

	case notification.EventRemoved:
		adsi.mu.Lock()
		defer adsi.mu.Unlock()
		if t, ok := adsi.timers[id]; ok {
			t.Stop()
			delete(adsi.timers, id)
		}
	}
}

func (adsi *autoDismissSenderImpl) pending() int {
	adsi.mu.Lock()
	defer adsi.mu.Unlock()
	return len(adsi.timers)
}

func (adsi *autoDismissSenderImpl) stopAll() {
	adsi.mu.Lock()
	defer adsi.mu.Unlock()

	for id, t := range adsi.timers {
		t.Stop()
		delete(adsi.timers, id)
	}
}

package receiver

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/Kotaro7750/console-notifier/abstraction"
	"github.com/Kotaro7750/console-notifier/notification"
)

// DummyReceiverBuilder emits an info toast every interval (default 10s).
// It is meant for exercising a deployment end to end.
func DummyReceiverBuilder(id string, properties map[string]interface{}, deps abstraction.Dependencies) (abstraction.AbstractChannelComponent[notification.Command], error) {
	interval, err := abstraction.DurationProperty(properties, "interval", 10*time.Second)
	if err != nil {
		return nil, err
	}

	return NewReceiver(&dummyReceiverImpl{
		id:       id,
		interval: interval,
		logger:   nil,
	}), nil
}

type dummyReceiverImpl struct {
	id       string
	interval time.Duration
	logger   *slog.Logger
}

func (dri *dummyReceiverImpl) GetId() string {
	return dri.id
}

func (dri *dummyReceiverImpl) GetLogger() *slog.Logger {
	return dri.logger
}

func (dri *dummyReceiverImpl) SetLogger(logger *slog.Logger) {
	dri.logger = logger
}

func (dri *dummyReceiverImpl) Start(outputCh chan<- notification.Command, done <-chan struct{}) <-chan error {
	retCh := make(chan error)

	go func() {
		defer close(retCh)

		ticker := time.NewTicker(dri.interval)
		defer ticker.Stop()

		var n int
		for {
			select {
			case <-ticker.C:
				n++
				cmd := notification.Add(notification.Descriptor{
					Message: fmt.Sprintf("Hello from %s (#%d)", dri.id, n),
					Color:   notification.ColorInfo,
				})
				select {
				case outputCh <- cmd:
				case <-done:
					return
				}

			case <-done:
				return
			}
		}
	}()

	return retCh
}

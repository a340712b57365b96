package sender

import (
	"context"
	"log/slog"

	"github.com/Kotaro7750/console-notifier/abstraction"
	"github.com/Kotaro7750/console-notifier/notification"
)

// LogSenderBuilder writes every event to the component logger at the level
// matching the notification color.
func LogSenderBuilder(id string, properties map[string]interface{}, deps abstraction.Dependencies) (abstraction.AbstractChannelComponent[notification.Event], error) {
	return NewSender(&logSenderImpl{
		id:     id,
		logger: nil,
	}), nil
}

type logSenderImpl struct {
	id     string
	logger *slog.Logger
}

func (lsi *logSenderImpl) GetId() string {
	return lsi.id
}

func (lsi *logSenderImpl) GetLogger() *slog.Logger {
	return lsi.logger
}

func (lsi *logSenderImpl) SetLogger(logger *slog.Logger) {
	lsi.logger = logger
}

func (lsi *logSenderImpl) Start(inputCh <-chan notification.Event, done <-chan struct{}) <-chan error {
	retCh := make(chan error)

	go func() {
		defer close(retCh)

		for {
			select {
			case e, ok := <-inputCh:
				if !ok {
					lsi.GetLogger().Info("inputCh closed")
					<-done
					return
				}

				n := e.Notification
				lsi.GetLogger().Log(context.Background(), n.Color.Level(), "Notification "+string(e.Type),
					"notificationId", n.Id,
					"message", n.Message,
					"color", n.Color,
					"position", n.Position,
				)

			case <-done:
				return
			}
		}
	}()

	return retCh
}

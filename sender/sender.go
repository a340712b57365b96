// Package sender holds the display side of the notifier. Senders consume the
// notification.Event values the store publishes, in order, and may call back
// into the store (auto dismiss, user dismiss) but never receive commands.
package sender

import (
	"log/slog"

	"github.com/Kotaro7750/console-notifier/abstraction"
	"github.com/Kotaro7750/console-notifier/notification"
)

var _ abstraction.AbstractChannelComponent[notification.Event] = (*Sender)(nil)

// Sender adapts a SenderImpl to the supervisor, which routes every event to
// every sender; the implementation only gets the receive side.
type Sender struct {
	impl SenderImpl
}

func NewSender(impl SenderImpl) *Sender {
	return &Sender{impl: impl}
}

type SenderImpl interface {
	GetId() string
	GetLogger() *slog.Logger
	SetLogger(logger *slog.Logger)
	Start(inputCh <-chan notification.Event, done <-chan struct{}) <-chan error
}

func (s *Sender) Start(inputCh chan notification.Event, done <-chan struct{}) <-chan error {
	return s.impl.Start(inputCh, done)
}

func (s *Sender) GetLogger() *slog.Logger {
	return s.impl.GetLogger()
}

func (s *Sender) SetLogger(logger *slog.Logger) {
	s.impl.SetLogger(logger)
}

func (s *Sender) GetId() string {
	return s.impl.GetId()
}

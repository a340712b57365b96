// Package receiver holds the intake side of the notifier. A receiver only
// ever produces notification.Command values; the dispatcher applies them to
// the store, so receivers never touch the queue directly.
package receiver

import (
	"log/slog"

	"github.com/Kotaro7750/console-notifier/abstraction"
	"github.com/Kotaro7750/console-notifier/notification"
)

var _ abstraction.AbstractChannelComponent[notification.Command] = (*Receiver)(nil)

// Receiver adapts a ReceiverImpl to the supervisor. The supervisor owns the
// command channel; the implementation only gets its send side.
type Receiver struct {
	impl ReceiverImpl
}

func NewReceiver(impl ReceiverImpl) *Receiver {
	return &Receiver{impl: impl}
}

type ReceiverImpl interface {
	GetId() string
	GetLogger() *slog.Logger
	SetLogger(logger *slog.Logger)
	Start(outputCh chan<- notification.Command, done <-chan struct{}) <-chan error
}

func (r *Receiver) Start(outputCh chan notification.Command, done <-chan struct{}) <-chan error {
	return r.impl.Start(outputCh, done)
}

func (r *Receiver) GetId() string {
	return r.impl.GetId()
}

func (r *Receiver) GetLogger() *slog.Logger {
	return r.impl.GetLogger()
}

func (r *Receiver) SetLogger(logger *slog.Logger) {
	r.impl.SetLogger(logger)
}

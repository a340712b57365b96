package abstraction

import (
	"fmt"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/Kotaro7750/console-notifier/notification"
	"github.com/Kotaro7750/console-notifier/store"
)

// Receivers are components over notification.Command, senders over
// notification.Event.
type AbstractChannelComponentBuilder[T any] func(id string, properties map[string]interface{}, deps Dependencies) (AbstractChannelComponent[T], error)

type AbstractChannelComponent[T any] interface {
	GetId() string
	GetLogger() *slog.Logger
	SetLogger(logger *slog.Logger)
	Start(ch chan T, done <-chan struct{}) <-chan error
}

type (
	ReceiverBuilder = AbstractChannelComponentBuilder[notification.Command]
	SenderBuilder   = AbstractChannelComponentBuilder[notification.Event]
)

// Dependencies are the shared services handed to every builder.
type Dependencies struct {
	Store    *store.Store
	Gatherer prometheus.Gatherer
}

type AbstractChannelComponentConfig struct {
	Id         string                 `yaml:"id"`
	Kind       string                 `yaml:"kind"`
	Properties map[string]interface{} `yaml:"properties"`
}

func (c *AbstractChannelComponentConfig) Validate() error {
	if c.Id == "" {
		return fmt.Errorf("id is required")
	}

	if c.Kind == "" {
		return fmt.Errorf("kind is required")
	}
	return nil
}

// Package store holds the queue of toast notifications shown by the backup
// console and the single inline error slot.
//
// A Store is created once at startup and handed to every component that needs
// it. All mutations go through its methods; each one runs under one lock and
// ends with the queue densely packed, so positions are always
// 0, H, 2H, ... in queue order whatever order timeouts and dismissals arrive in.
package store

import (
	"fmt"
	"log/slog"
	"slices"
	"sync"

	"github.com/Kotaro7750/console-notifier/apierror"
	"github.com/Kotaro7750/console-notifier/notification"
)

// DefaultSnackbarHeight is the 88px snackbar plus a 5px gap.
const DefaultSnackbarHeight = 88 + 5

const lengthExceededTemplate = "Current selection exceed the maximum URL length of %d characters and selection could not be applied."

type Store struct {
	mu            sync.Mutex
	notifications []notification.Notification
	errorMessage  string

	seq     uint64
	height  int
	ids     IDGenerator
	logger  *slog.Logger
	events  chan<- notification.Event
	metrics *Metrics
}

type Option func(*Store)

func WithIDGenerator(g IDGenerator) Option {
	return func(s *Store) {
		if g != nil {
			s.ids = g
		}
	}
}

func WithSnackbarHeight(h int) Option {
	return func(s *Store) {
		if h > 0 {
			s.height = h
		}
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(s *Store) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithEvents makes the store publish an Event on ch after every queue
// mutation. Events are published in mutation order and never block; when ch
// is full the event is dropped and counted.
func WithEvents(ch chan<- notification.Event) Option {
	return func(s *Store) {
		s.events = ch
	}
}

func WithMetrics(m *Metrics) Option {
	return func(s *Store) {
		s.metrics = m
	}
}

func New(opts ...Option) *Store {
	s := &Store{
		notifications: make([]notification.Notification, 0),
		height:        DefaultSnackbarHeight,
		ids:           UUIDGenerator{},
		logger:        slog.Default(),
	}

	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Store) AddNotification(d notification.Descriptor) notification.Notification {
	n := notification.New(d)

	s.mu.Lock()
	n.Id = s.ids.NewID()
	n.Position = s.height * len(s.notifications)
	s.notifications = append(s.notifications, n)
	length := len(s.notifications)
	e, published := s.publishLocked(notification.EventAdded, n)
	s.mu.Unlock()

	s.metrics.observeAdd(string(n.Color), length)
	s.logger.Debug("Notification added", "id", n.Id, "position", n.Position, "color", n.Color)
	if !published {
		s.dropped(e)
	}
	return n
}

// RemoveNotification reports whether id was queued. Unknown ids leave the
// queue untouched.
func (s *Store) RemoveNotification(id string) bool {
	s.mu.Lock()
	idx := slices.IndexFunc(s.notifications, func(n notification.Notification) bool {
		return n.Id == id
	})
	if idx < 0 {
		s.mu.Unlock()
		return false
	}

	removed := s.notifications[idx]
	s.notifications = slices.Delete(s.notifications, idx, idx+1)
	for i := range s.notifications {
		s.notifications[i].Position = s.height * i
	}
	length := len(s.notifications)
	e, published := s.publishLocked(notification.EventRemoved, removed)
	s.mu.Unlock()

	s.metrics.observeRemove(length)
	s.logger.Debug("Notification removed", "id", id, "remaining", length)
	if !published {
		s.dropped(e)
	}
	return true
}

func (s *Store) HandleError(err any) notification.Notification {
	classified := apierror.Classify(err)
	message := classified.String()

	s.logger.Error("Api call failed", "kind", classified.Kind.String(), "message", message)

	return s.AddNotification(notification.Descriptor{
		Message: message,
		Color:   notification.ColorError,
	})
}

func (s *Store) ShowLengthExceededNotification(maxLength int) notification.Notification {
	return s.AddNotification(notification.Descriptor{
		Message: fmt.Sprintf(lengthExceededTemplate, maxLength),
		Color:   notification.ColorError,
	})
}

// CheckURLLength returns false and queues the length exceeded notification
// when url is longer than maxLength.
func (s *Store) CheckURLLength(url string, maxLength int) bool {
	if len(url) <= maxLength {
		return true
	}
	s.ShowLengthExceededNotification(maxLength)
	return false
}

func (s *Store) SetErrorMessage(m string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.errorMessage = m
}

func (s *Store) ClearErrorMessage() {
	s.SetErrorMessage("")
}

func (s *Store) ErrorMessage() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.errorMessage
}

// Notifications returns a copy of the queue in display order.
func (s *Store) Notifications() []notification.Notification {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.notifications)
}

func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.notifications)
}

// publishLocked must run with mu held: the send happens in the same critical
// section as the mutation so consumers see events in mutation order.
func (s *Store) publishLocked(t notification.EventType, n notification.Notification) (notification.Event, bool) {
	if s.events == nil {
		return notification.Event{}, true
	}

	s.seq++
	e := notification.Event{
		Seq:          s.seq,
		Type:         t,
		Notification: n,
		Queue:        slices.Clone(s.notifications),
	}

	select {
	case s.events <- e:
		return e, true
	default:
		return e, false
	}
}

func (s *Store) dropped(e notification.Event) {
	s.metrics.observeDropped()
	s.logger.Warn("Event dropped, consumers are behind", "seq", e.Seq, "type", e.Type, "id", e.Notification.Id)
}

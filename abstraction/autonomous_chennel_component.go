package abstraction

import (
	"log/slog"
	"sync"
	"time"
)

const defaultRestartDelay = 1 * time.Second

// AutonomousChannelComponent keeps a component running, restarting it after
// restartDelay whenever it stops with an error, until Shutdown is called.
type AutonomousChannelComponent[T any] struct {
	chanComponent  AbstractChannelComponent[T]
	ch             chan T
	shutdownCh     chan struct{}
	restartDelay   time.Duration
	isStarted      bool
	isShuttingDown bool
	lock           sync.Mutex
}

func NewAutonomousChannelComponent[T any](chanComponent AbstractChannelComponent[T]) *AutonomousChannelComponent[T] {
	return &AutonomousChannelComponent[T]{
		chanComponent:  chanComponent,
		ch:             make(chan T),
		shutdownCh:     make(chan struct{}),
		restartDelay:   defaultRestartDelay,
		isStarted:      false,
		isShuttingDown: false,
	}
}

func (acc *AutonomousChannelComponent[T]) SetRestartDelay(d time.Duration) {
	acc.lock.Lock()
	defer acc.lock.Unlock()
	acc.restartDelay = d
}

// Start returns a channel closed once the component has fully shut down, or
// nil if it was already started.
func (acc *AutonomousChannelComponent[T]) Start() <-chan struct{} {
	acc.GetLogger().Info("Start invoked")
	acc.lock.Lock()
	defer acc.lock.Unlock()

	if acc.isStarted {
		acc.GetLogger().Info("Already started")
		return nil
	}
	acc.isStarted = true
	acc.shutdownCh = make(chan struct{})
	restartDelay := acc.restartDelay

	completedCh := make(chan struct{})

	go func(stopCh <-chan struct{}) {
		defer close(completedCh)
		for {
			acc.GetLogger().Info("Starting")
			err := <-acc.chanComponent.Start(acc.ch, stopCh)
			if err != nil {
				acc.GetLogger().Error("Error in channel component", "err", err)
			}

			acc.lock.Lock()
			if acc.isShuttingDown {
				acc.GetLogger().Info("Shutting down")
				close(acc.ch)
				acc.isStarted = false
				acc.isShuttingDown = false
				acc.lock.Unlock()
				return
			}
			acc.lock.Unlock()

			acc.GetLogger().Info("Restart after delay", "delay", restartDelay)

			select {
			case <-time.After(restartDelay):
			case <-stopCh:
			}
		}
	}(acc.shutdownCh)

	return completedCh
}

func (acc *AutonomousChannelComponent[T]) GetChannel() chan T {
	return acc.ch
}

func (acc *AutonomousChannelComponent[T]) GetId() string {
	return acc.chanComponent.GetId()
}

func (acc *AutonomousChannelComponent[T]) GetLogger() *slog.Logger {
	if logger := acc.chanComponent.GetLogger(); logger != nil {
		return logger
	}
	return slog.Default()
}

func (acc *AutonomousChannelComponent[T]) Shutdown() {
	acc.GetLogger().Info("Shutdown invoked")
	acc.lock.Lock()
	defer acc.lock.Unlock()

	if !acc.isStarted {
		acc.GetLogger().Info("Not started")
		return
	}
	if acc.isShuttingDown {
		return
	}
	acc.isShuttingDown = true

	close(acc.shutdownCh)
}

package main

import (
	"sync"

	"github.com/Kotaro7750/console-notifier/abstraction"
	"github.com/Kotaro7750/console-notifier/notification"
)

type Router struct {
	senders []*abstraction.AutonomousChannelComponent[notification.Event]
}

// Route hands e to every sender and returns once all of them took it.
func (r Router) Route(e notification.Event) {
	var wg sync.WaitGroup

	for _, sender := range r.senders {
		wg.Add(1)
		go func() {
			defer wg.Done()
			sender.GetChannel() <- e
		}()
	}

	wg.Wait()
}

// Run routes events until done is closed.
func (r Router) Run(events <-chan notification.Event, done <-chan struct{}) {
	for {
		select {
		case e := <-events:
			r.Route(e)
		case <-done:
			return
		}
	}
}

// dispatch applies every command from the receivers until all receiver
// channels are closed.
func dispatch(receivers []*abstraction.AutonomousChannelComponent[notification.Command], apply func(notification.Command)) <-chan struct{} {
	completedCh := make(chan struct{})
	commands := make(chan notification.Command)

	var wg sync.WaitGroup
	for _, receiver := range receivers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for cmd := range receiver.GetChannel() {
				commands <- cmd
			}
		}()
	}

	go func() {
		wg.Wait()
		close(commands)
	}()

	go func() {
		defer close(completedCh)
		for cmd := range commands {
			apply(cmd)
		}
	}()

	return completedCh
}

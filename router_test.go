package main

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Kotaro7750/console-notifier/abstraction"
	"github.com/Kotaro7750/console-notifier/config"
	"github.com/Kotaro7750/console-notifier/notification"
)

type idleComponent[T any] struct {
	id string
}

func (c *idleComponent[T]) GetId() string                 { return c.id }
func (c *idleComponent[T]) GetLogger() *slog.Logger       { return nil }
func (c *idleComponent[T]) SetLogger(logger *slog.Logger) {}
func (c *idleComponent[T]) Start(ch chan T, done <-chan struct{}) <-chan error {
	retCh := make(chan error)
	go func() {
		defer close(retCh)
		<-done
	}()
	return retCh
}

func TestRouter_RouteFansOut(t *testing.T) {
	senders := []*abstraction.AutonomousChannelComponent[notification.Event]{
		abstraction.NewAutonomousChannelComponent[notification.Event](&idleComponent[notification.Event]{id: "a"}),
		abstraction.NewAutonomousChannelComponent[notification.Event](&idleComponent[notification.Event]{id: "b"}),
	}
	router := Router{senders: senders}
	e := notification.Event{Type: notification.EventAdded, Notification: notification.Notification{Id: "n1"}}

	routed := make(chan struct{})
	go func() {
		defer close(routed)
		router.Route(e)
	}()

	for _, sender := range senders {
		select {
		case got := <-sender.GetChannel():
			assert.Equal(t, e, got)
		case <-time.After(time.Second):
			t.Fatalf("sender %s did not receive the event", sender.GetId())
		}
	}

	select {
	case <-routed:
	case <-time.After(time.Second):
		t.Fatal("Route did not return")
	}
}

func TestDispatch(t *testing.T) {
	receivers := []*abstraction.AutonomousChannelComponent[notification.Command]{
		abstraction.NewAutonomousChannelComponent[notification.Command](&idleComponent[notification.Command]{id: "a"}),
		abstraction.NewAutonomousChannelComponent[notification.Command](&idleComponent[notification.Command]{id: "b"}),
	}

	applied := make(chan notification.Command, 2)
	done := dispatch(receivers, func(cmd notification.Command) { applied <- cmd })

	receivers[0].GetChannel() <- notification.Remove("n1")
	receivers[1].GetChannel() <- notification.ClearErrorMessage()

	close(receivers[0].GetChannel())
	close(receivers[1].GetChannel())

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("dispatch did not finish")
	}

	close(applied)
	var ops []notification.Op
	for cmd := range applied {
		ops = append(ops, cmd.Op)
	}
	assert.ElementsMatch(t, []notification.Op{notification.OpRemove, notification.OpClearErrorMessage}, ops)
}

func freeAddr(t *testing.T) string {
	t.Helper()
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := l.Addr().String()
	require.NoError(t, l.Close())
	return addr
}

func TestRun_EndToEnd(t *testing.T) {
	intake, console := freeAddr(t), freeAddr(t)

	cfg := &config.Config{
		Settings: config.Settings{SnackbarHeight: 93, EventBuffer: 8},
		Receivers: []abstraction.AbstractChannelComponentConfig{
			{Id: "intake", Kind: "HTTP", Properties: map[string]interface{}{"listenAddress": intake}},
		},
		Senders: []abstraction.AbstractChannelComponentConfig{
			{Id: "log", Kind: "log"},
			{Id: "console", Kind: "display", Properties: map[string]interface{}{"listenAddress": console}},
		},
	}

	ctx, cancel := context.WithCancel(context.Background())
	runErr := make(chan error, 1)
	go func() {
		runErr <- run(ctx, cfg, slog.New(slog.NewTextHandler(io.Discard, nil)))
	}()

	require.Eventually(t, func() bool {
		resp, err := http.Post("http://"+intake+"/notifications", "application/json",
			strings.NewReader(`{"message":"Backup created"}`))
		if err != nil {
			return false
		}
		resp.Body.Close()
		return resp.StatusCode == http.StatusAccepted
	}, 5*time.Second, 20*time.Millisecond)

	var body []byte
	require.Eventually(t, func() bool {
		resp, err := http.Get("http://" + console + "/notifications")
		if err != nil {
			return false
		}
		defer resp.Body.Close()
		body, _ = io.ReadAll(resp.Body)
		return bytes.Contains(body, []byte("Backup created"))
	}, 5*time.Second, 20*time.Millisecond)
	assert.Contains(t, string(body), `"position":0`)

	cancel()
	select {
	case err := <-runErr:
		assert.NoError(t, err)
	case <-time.After(10 * time.Second):
		t.Fatal("run did not stop")
	}
}

func TestKindsCommand(t *testing.T) {
	var out bytes.Buffer
	cmd := rootCommand()
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"kinds"})

	require.NoError(t, cmd.Execute())
	assert.Contains(t, out.String(), "  backupWatch\n")
	assert.Contains(t, out.String(), "  webPush\n")
}

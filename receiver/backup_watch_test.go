package receiver

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/jarcoal/httpmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/Kotaro7750/console-notifier/abstraction"
	"github.com/Kotaro7750/console-notifier/apierror"
	"github.com/Kotaro7750/console-notifier/backupapi"
	"github.com/Kotaro7750/console-notifier/notification"
)

const watchBaseURL = "http://backups.local/api"

func newWatchedClient(t *testing.T, maxURLLength int) (*backupapi.Client, *httpmock.MockTransport) {
	t.Helper()
	transport := httpmock.NewMockTransport()
	client, err := backupapi.NewClient(watchBaseURL,
		backupapi.WithHTTPClient(&http.Client{Transport: transport}),
		backupapi.WithMaxURLLength(maxURLLength),
	)
	require.NoError(t, err)
	return client, transport
}

func newTestBackupWatch(client backupLister, project string) *backupWatchReceiverImpl {
	impl := newBackupWatchReceiverImpl("watch", client, project, time.Hour)
	impl.SetLogger(discardLogger())
	return impl
}

func TestBackupWatchReceiverBuilder(t *testing.T) {
	_, err := BackupWatchReceiverBuilder("watch", map[string]interface{}{}, abstraction.Dependencies{})
	assert.EqualError(t, err, "baseURL is required")

	_, err = BackupWatchReceiverBuilder("watch", map[string]interface{}{"baseURL": "backups"}, abstraction.Dependencies{})
	assert.Error(t, err)

	_, err = BackupWatchReceiverBuilder("watch", map[string]interface{}{"baseURL": watchBaseURL, "interval": "never"}, abstraction.Dependencies{})
	assert.Error(t, err)

	r, err := BackupWatchReceiverBuilder("watch", map[string]interface{}{
		"baseURL":      watchBaseURL,
		"interval":     "1m",
		"maxURLLength": 500,
	}, abstraction.Dependencies{})
	require.NoError(t, err)
	assert.Equal(t, "watch", r.GetId())
}

func TestBackupWatch_ReportsStatusChanges(t *testing.T) {
	client, transport := newWatchedClient(t, backupapi.DefaultMaxURLLength)
	responses := []string{
		`{"backups":[{"id":"b1","status":"NotStarted"},{"id":"b2","status":"Paused"}]}`,
		`{"backups":[{"id":"b1","status":"Paused"},{"id":"b2","status":"Paused"},{"id":"b3","status":"ToDelete"}]}`,
		`{"backups":[{"id":"b1","status":"Paused"}]}`,
	}
	call := 0
	transport.RegisterResponder(http.MethodGet, watchBaseURL+"/backups",
		func(req *http.Request) (*http.Response, error) {
			resp := httpmock.NewStringResponse(http.StatusOK, responses[call])
			call++
			return resp, nil
		})

	impl := newTestBackupWatch(client, "")

	// the first poll only records the baseline
	assert.Empty(t, impl.poll(context.Background()))

	cmds := impl.poll(context.Background())
	require.Len(t, cmds, 2)
	assert.Equal(t, notification.OpAdd, cmds[0].Op)
	assert.Equal(t, "Backup b1 was paused", cmds[0].Descriptor.Message)
	assert.Equal(t, notification.ColorWarning, cmds[0].Descriptor.Color)
	assert.Equal(t, "Backup b3 is scheduled for deletion", cmds[1].Descriptor.Message)

	assert.Empty(t, impl.poll(context.Background()))
}

func TestBackupWatch_APIFailure(t *testing.T) {
	client, transport := newWatchedClient(t, backupapi.DefaultMaxURLLength)
	transport.RegisterResponder(http.MethodGet, watchBaseURL+"/backups",
		httpmock.NewStringResponder(http.StatusBadGateway, `upstream down`))

	cmds := newTestBackupWatch(client, "analytics").poll(context.Background())

	require.Len(t, cmds, 1)
	assert.Equal(t, notification.OpFail, cmds[0].Op)
	assert.Equal(t,
		"Api call finished with status code 502 and message: Bad Gateway",
		apierror.Normalize(cmds[0].Failure))
}

func TestBackupWatch_URLTooLong(t *testing.T) {
	client, transport := newWatchedClient(t, len(watchBaseURL+"/backups")+5)

	cmds := newTestBackupWatch(client, "a-very-long-project-name").poll(context.Background())

	require.Len(t, cmds, 1)
	assert.Equal(t, notification.OpLengthExceeded, cmds[0].Op)
	assert.Equal(t, len(watchBaseURL+"/backups")+5, cmds[0].MaxLength)
	assert.Zero(t, transport.GetTotalCallCount())
}

func TestBackupWatch_StartStop(t *testing.T) {
	defer goleak.VerifyNone(t)

	client, transport := newWatchedClient(t, backupapi.DefaultMaxURLLength)
	transport.RegisterResponder(http.MethodGet, watchBaseURL+"/backups",
		httpmock.NewStringResponder(http.StatusInternalServerError, ``))

	outputCh := make(chan notification.Command, 1)
	done := make(chan struct{})
	errCh := newTestBackupWatch(client, "").Start(outputCh, done)

	select {
	case cmd := <-outputCh:
		assert.Equal(t, notification.OpFail, cmd.Op)
	case <-time.After(2 * time.Second):
		t.Fatal("expected a failure command")
	}

	close(done)
	select {
	case _, ok := <-errCh:
		assert.False(t, ok)
	case <-time.After(2 * time.Second):
		t.Fatal("receiver did not stop")
	}
}

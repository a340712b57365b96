package receiver

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/Kotaro7750/console-notifier/abstraction"
	"github.com/Kotaro7750/console-notifier/backupapi"
	"github.com/Kotaro7750/console-notifier/notification"
)

// BackupWatchReceiverBuilder polls the backup API and turns failed calls into
// notifications. A backup entering the paused or to-delete state is reported
// once as a warning.
func BackupWatchReceiverBuilder(id string, properties map[string]interface{}, deps abstraction.Dependencies) (abstraction.AbstractChannelComponent[notification.Command], error) {
	baseURL, err := abstraction.StringProperty(properties, "baseURL", true)
	if err != nil {
		return nil, err
	}

	project, err := abstraction.StringProperty(properties, "project", false)
	if err != nil {
		return nil, err
	}

	interval, err := abstraction.DurationProperty(properties, "interval", 30*time.Second)
	if err != nil {
		return nil, err
	}

	maxURLLength, err := abstraction.IntProperty(properties, "maxURLLength", backupapi.DefaultMaxURLLength)
	if err != nil {
		return nil, err
	}

	client, err := backupapi.NewClient(baseURL, backupapi.WithMaxURLLength(maxURLLength))
	if err != nil {
		return nil, err
	}

	return NewReceiver(newBackupWatchReceiverImpl(id, client, project, interval)), nil
}

type backupLister interface {
	ListBackups(ctx context.Context, project string) ([]backupapi.Backup, error)
}

type backupWatchReceiverImpl struct {
	id       string
	logger   *slog.Logger
	client   backupLister
	project  string
	interval time.Duration

	// last seen status per backup id; survives restarts of Start
	statuses map[string]backupapi.Status
}

func newBackupWatchReceiverImpl(id string, client backupLister, project string, interval time.Duration) *backupWatchReceiverImpl {
	return &backupWatchReceiverImpl{
		id:       id,
		client:   client,
		project:  project,
		interval: interval,
		statuses: nil,
	}
}

func (bwri *backupWatchReceiverImpl) GetId() string {
	return bwri.id
}

func (bwri *backupWatchReceiverImpl) GetLogger() *slog.Logger {
	return bwri.logger
}

func (bwri *backupWatchReceiverImpl) SetLogger(logger *slog.Logger) {
	bwri.logger = logger
}

func (bwri *backupWatchReceiverImpl) Start(outputCh chan<- notification.Command, done <-chan struct{}) <-chan error {
	retCh := make(chan error)

	ctx, cancel := context.WithCancel(context.Background())

	go func() {
		defer close(retCh)
		defer cancel()

		ticker := time.NewTicker(bwri.interval)
		defer ticker.Stop()

		for {
			for _, cmd := range bwri.poll(ctx) {
				select {
				case outputCh <- cmd:
				case <-done:
					return
				}
			}

			select {
			case <-ticker.C:
			case <-done:
				return
			}
		}
	}()

	go func() {
		select {
		case <-done:
			cancel()
		case <-ctx.Done():
		}
	}()

	return retCh
}

func (bwri *backupWatchReceiverImpl) poll(ctx context.Context) []notification.Command {
	backups, err := bwri.client.ListBackups(ctx, bwri.project)
	if err != nil {
		if ctx.Err() != nil {
			return nil
		}

		var urlErr *backupapi.URLLengthError
		if errors.As(err, &urlErr) {
			return []notification.Command{notification.LengthExceeded(urlErr.Max)}
		}

		bwri.logger.Warn("Polling backups failed", "err", err)
		return []notification.Command{notification.Fail(err)}
	}

	first := bwri.statuses == nil
	seen := make(map[string]backupapi.Status, len(backups))

	var cmds []notification.Command
	for _, b := range backups {
		seen[b.Id] = b.Status
		if first {
			continue
		}

		prev, known := bwri.statuses[b.Id]
		if known && prev == b.Status {
			continue
		}

		switch b.Status {
		case backupapi.StatusPaused:
			cmds = append(cmds, notification.Add(notification.Descriptor{
				Message: fmt.Sprintf("Backup %s was paused", b.Id),
				Color:   notification.ColorWarning,
			}))
		case backupapi.StatusToDelete:
			cmds = append(cmds, notification.Add(notification.Descriptor{
				Message: fmt.Sprintf("Backup %s is scheduled for deletion", b.Id),
				Color:   notification.ColorWarning,
			}))
		}
	}

	bwri.statuses = seen
	return cmds
}

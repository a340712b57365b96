package store

import (
	"github.com/Kotaro7750/console-notifier/notification"
)

// Apply executes a command produced by a receiver.
func (s *Store) Apply(cmd notification.Command) {
	switch cmd.Op {
	case notification.OpAdd:
		s.AddNotification(cmd.Descriptor)
	case notification.OpRemove:
		if !s.RemoveNotification(cmd.Id) {
			s.logger.Debug("Remove of unknown notification ignored", "id", cmd.Id)
		}
	case notification.OpFail:
		s.HandleError(cmd.Failure)
	case notification.OpLengthExceeded:
		s.ShowLengthExceededNotification(cmd.MaxLength)
	case notification.OpSetErrorMessage:
		s.SetErrorMessage(cmd.Message)
	case notification.OpClearErrorMessage:
		s.ClearErrorMessage()
	default:
		s.logger.Warn("Unknown command ignored", "op", cmd.Op.String())
	}
}

package notification

import "fmt"

type Op int

const (
	OpAdd Op = iota
	OpRemove
	OpFail
	OpLengthExceeded
	OpSetErrorMessage
	OpClearErrorMessage
)

func (o Op) String() string {
	switch o {
	case OpAdd:
		return "add"
	case OpRemove:
		return "remove"
	case OpFail:
		return "fail"
	case OpLengthExceeded:
		return "lengthExceeded"
	case OpSetErrorMessage:
		return "setErrorMessage"
	case OpClearErrorMessage:
		return "clearErrorMessage"
	default:
		return fmt.Sprintf("Op(%d)", int(o))
	}
}

// Command is produced by receivers and applied to the store by the dispatcher.
// Only the field matching Op is read.
type Command struct {
	Op         Op
	Descriptor Descriptor
	Id         string
	Failure    any
	MaxLength  int
	Message    string
}

func Add(d Descriptor) Command {
	return Command{Op: OpAdd, Descriptor: d}
}

func Remove(id string) Command {
	return Command{Op: OpRemove, Id: id}
}

func Fail(failure any) Command {
	return Command{Op: OpFail, Failure: failure}
}

func LengthExceeded(maxLength int) Command {
	return Command{Op: OpLengthExceeded, MaxLength: maxLength}
}

func SetErrorMessage(m string) Command {
	return Command{Op: OpSetErrorMessage, Message: m}
}

func ClearErrorMessage() Command {
	return Command{Op: OpClearErrorMessage}
}

type EventType string

const (
	EventAdded   EventType = "added"
	EventRemoved EventType = "removed"
)

// Event is emitted by the store after every queue mutation. Seq increases by
// one per mutation and Queue is the whole queue, repacked, right after it.
type Event struct {
	Seq          uint64         `json:"seq"`
	Type         EventType      `json:"type"`
	Notification Notification   `json:"notification"`
	Queue        []Notification `json:"queue"`
}

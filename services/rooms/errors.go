package rooms

import "fmt"

// ErrorKind classifies engine errors. Everything except KindFatal is
// handled inside the room's command loop and surfaced only to the acting
// identity; KindFatal halts the room and escalates to the directory.
type ErrorKind string

const (
	KindRuleViolation ErrorKind = "rule_violation"
	KindAuthorization ErrorKind = "authorization"
	KindCapacity      ErrorKind = "capacity"
	KindFinancial     ErrorKind = "financial"
	KindStaleCommand  ErrorKind = "stale_command"
	KindPersistence   ErrorKind = "persistence_degraded"
	KindFatal         ErrorKind = "fatal"
)

type EngineError struct {
	Kind    ErrorKind
	Message string
}

func (e *EngineError) Error() string {
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func errAuthorization(format string, args ...interface{}) *EngineError {
	return &EngineError{Kind: KindAuthorization, Message: fmt.Sprintf(format, args...)}
}

func errCapacity(format string, args ...interface{}) *EngineError {
	return &EngineError{Kind: KindCapacity, Message: fmt.Sprintf(format, args...)}
}

func errRule(format string, args ...interface{}) *EngineError {
	return &EngineError{Kind: KindRuleViolation, Message: fmt.Sprintf(format, args...)}
}

func errFinancial(format string, args ...interface{}) *EngineError {
	return &EngineError{Kind: KindFinancial, Message: fmt.Sprintf(format, args...)}
}

// ErrRoomClosed is returned for any command targeting a room that already
// left the directory. Callers recover by re-querying the room list.
var ErrRoomClosed = &EngineError{Kind: KindStaleCommand, Message: "room is closed"}

// ErrRoomBusy is returned when a room's command queue is full.
var ErrRoomBusy = &EngineError{Kind: KindCapacity, Message: "room command queue is full"}

package command

import "fmt"

// RedisError is a reply carrying one of the fixed wire-format prefixes
// spec.md §6 requires (ERR, WRONGTYPE, EXECABORT, NOAUTH, NOPERM, ...).
// Keeping the prefix as a distinct field (instead of baking it into a
// plain string) lets callers branch on error category without re-parsing
// the message text.
type RedisError struct {
	Prefix  string
	Message string
}

func (e *RedisError) Error() string {
	if e.Message == "" {
		return e.Prefix
	}
	return e.Prefix + " " + e.Message
}

// Resp converts the error into its wire RespValue.
func (e *RedisError) Resp() RespValue {
	return Error(e.Error())
}

// ErrWrongNumArgs builds the exact "wrong number of arguments" text Redis's
// Tcl suite glob-matches.
func ErrWrongNumArgs(cmdName string) *RedisError {
	return &RedisError{Prefix: "ERR", Message: fmt.Sprintf("wrong number of arguments for '%s' command", cmdName)}
}

// ErrNotInteger is returned for integer overflow or non-numeric input to an
// integer command.
var ErrNotInteger = &RedisError{Prefix: "ERR", Message: "value is not an integer or out of range"}

// ErrNotFloat is returned for NaN/Inf/non-numeric input to a float command.
var ErrNotFloat = &RedisError{Prefix: "ERR", Message: "value is not a valid float"}

// ErrSyntax is the generic argument-shape error.
var ErrSyntax = &RedisError{Prefix: "ERR", Message: "syntax error"}

// ErrWrongType is returned when a command targets a key holding an
// incompatible Value kind.
var ErrWrongType = &RedisError{Prefix: "WRONGTYPE", Message: "Operation against a key holding the wrong kind of value"}

// ErrExecAbort is returned by EXEC when the transaction queue had a
// queue-time argument error.
var ErrExecAbort = &RedisError{Prefix: "EXECABORT", Message: "Transaction discarded because of previous errors."}

// ErrNoAuth is returned when a command requires authentication that hasn't
// happened yet.
var ErrNoAuth = &RedisError{Prefix: "NOAUTH", Message: "Authentication required."}

// ErrNoPerm builds the "no permissions to run the X command" message.
func ErrNoPerm(cmdName string) *RedisError {
	return &RedisError{Prefix: "NOPERM", Message: fmt.Sprintf("this user has no permissions to run the %s command", cmdName)}
}

// ErrUnknownCommand builds Redis's unknown-command message.
func ErrUnknownCommand(name string) *RedisError {
	return &RedisError{Prefix: "ERR", Message: fmt.Sprintf("unknown command '%s'", name)}
}

// ErrTryAgain is the transient/retriable error surfaced for backpressure,
// queue-full, and timeout conditions per spec.md §7.
var ErrTryAgain = &RedisError{Prefix: "ERR", Message: "try again later"}

// ErrCrossShardScript is the reply to every EVAL/EVALSHA/SCRIPT command:
// there is no script runtime, so the executor rejects these commands with
// this error whichever keys they name.
var ErrCrossShardScript = &RedisError{Prefix: "CROSSSLOT", Message: "Keys in script do not hash to the same shard"}

package executor

import (
	"fmt"

	"github.com/dreamware/ridgekv/internal/command"
	"github.com/dreamware/ridgekv/internal/delta"
	"github.com/dreamware/ridgekv/internal/dst"
)

// Execute runs one command against state at virtual time now, returning the
// wire reply, an optional replication delta (non-nil only for successful
// mutations), and a Go error reserved for commands that must never reach
// the executor — MULTI/EXEC/WATCH/DISCARD/UNWATCH are owned entirely by the
// connection state machine (spec.md §4.1), and the connection-level
// commands (PING, AUTH, HELLO, ...) never route through a shard at all.
// Argument and type errors are NOT Go errors: they come back as a RespValue
// so the caller can write them straight to the wire.
func Execute(state *ShardState, cmd command.Command, now dst.VirtualTime) (command.RespValue, *delta.Delta, error) {
	state.CurrentTime = now
	state.Stats.Commands++

	switch cmd.Kind {
	case command.KindMulti, command.KindExec, command.KindDiscard, command.KindWatch, command.KindUnwatch:
		return command.RespValue{}, nil, fmt.Errorf("executor: %s must be handled by the connection state machine, never dispatched here", cmd.Name)
	case command.KindPing, command.KindEcho, command.KindInfo, command.KindClient,
		command.KindHello, command.KindSelect, command.KindAuth, command.KindACL:
		return command.RespValue{}, nil, fmt.Errorf("executor: %s is a connection-level command and never reaches a shard", cmd.Name)
	case command.KindEval, command.KindEvalSha, command.KindScript:
		return command.ErrCrossShardScript.Resp(), nil, nil
	}

	if key, ok := firstKeyArg(cmd); ok {
		state.touch(key)
		state.expireIfDue(key)
	}

	switch {
	case isStringCmd(cmd.Kind):
		return execStringCmd(state, cmd)
	case isKeyCmd(cmd.Kind):
		return execKeyCmd(state, cmd)
	case isListCmd(cmd.Kind):
		return execListCmd(state, cmd)
	case isSetCmd(cmd.Kind):
		return execSetCmd(state, cmd)
	case isHashCmd(cmd.Kind):
		return execHashCmd(state, cmd)
	case isZSetCmd(cmd.Kind):
		return execZSetCmd(state, cmd)
	default:
		return command.ErrUnknownCommand(cmd.Name).Resp(), nil, nil
	}
}

// firstKeyArg returns a command's first argument, which Execute touches and
// lazily expires as a key before dispatch. It does so for every command with
// arguments: for multi-key commands only args[0] is covered here, and a
// first argument that is not a key (a SCAN cursor, a KEYS pattern) is still
// treated as a key name.
func firstKeyArg(cmd command.Command) (string, bool) {
	if len(cmd.Args) == 0 {
		return "", false
	}
	return string(cmd.Args[0]), true
}

func bumpMutation(state *ShardState) {
	state.Stats.Mutations++
	state.Clock = state.Clock.Tick()
}

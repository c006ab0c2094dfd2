package executor

import (
	"strconv"

	"github.com/dreamware/ridgekv/internal/command"
	"github.com/dreamware/ridgekv/internal/crdt"
	"github.com/dreamware/ridgekv/internal/delta"
	"github.com/dreamware/ridgekv/internal/value"
)

func isStringCmd(k command.Kind) bool {
	switch k {
	case command.KindGet, command.KindSet, command.KindSetNX, command.KindSetEX,
		command.KindPSetEX, command.KindMGet, command.KindMSet, command.KindMSetNX,
		command.KindAppend, command.KindStrlen, command.KindGetSet, command.KindGetDel,
		command.KindGetRange, command.KindSetRange, command.KindIncr, command.KindDecr,
		command.KindIncrBy, command.KindDecrBy, command.KindIncrByFloat:
		return true
	}
	return false
}

func execStringCmd(s *ShardState, cmd command.Command) (command.RespValue, *delta.Delta, error) {
	switch cmd.Kind {
	case command.KindGet:
		return getString(s, cmd)
	case command.KindSet:
		return setString(s, cmd)
	case command.KindSetNX:
		return setNX(s, cmd)
	case command.KindSetEX:
		return setExpiring(s, cmd, false)
	case command.KindPSetEX:
		return setExpiring(s, cmd, true)
	case command.KindMGet:
		return mget(s, cmd)
	case command.KindMSet:
		return mset(s, cmd)
	case command.KindMSetNX:
		return msetNX(s, cmd)
	case command.KindAppend:
		return appendStr(s, cmd)
	case command.KindStrlen:
		return strlen(s, cmd)
	case command.KindGetSet:
		return getSet(s, cmd)
	case command.KindGetDel:
		return getDel(s, cmd)
	case command.KindGetRange:
		return getRange(s, cmd)
	case command.KindSetRange:
		return setRange(s, cmd)
	case command.KindIncr:
		return incrBy(s, cmd, 1)
	case command.KindDecr:
		return incrBy(s, cmd, -1)
	case command.KindIncrBy:
		return incrByArg(s, cmd, 1)
	case command.KindDecrBy:
		return incrByArg(s, cmd, -1)
	case command.KindIncrByFloat:
		return incrByFloat(s, cmd)
	}
	return command.ErrUnknownCommand(cmd.Name).Resp(), nil, nil
}

// stringAt returns key's Value if present and of KindString; it returns
// (nil, true, RespValue{}) when the key is simply absent, and (nil, false,
// errorReply) when present-but-wrong-kind.
func stringAt(s *ShardState, key string) (v *value.Value, absent bool, wrongType command.RespValue, isWrongType bool) {
	got, ok := s.Data[key]
	if !ok {
		return nil, true, command.RespValue{}, false
	}
	if got.Kind != value.KindString {
		return nil, false, command.ErrWrongType.Resp(), true
	}
	return got, false, command.RespValue{}, false
}

func getString(s *ShardState, cmd command.Command) (command.RespValue, *delta.Delta, error) {
	if len(cmd.Args) != 1 {
		return command.ErrWrongNumArgs("get").Resp(), nil, nil
	}
	key := string(cmd.Args[0])
	v, absent, errReply, isWT := stringAt(s, key)
	if isWT {
		return errReply, nil, nil
	}
	if absent {
		return command.NilBulk(), nil, nil
	}
	return command.BulkString(v.Str), nil, nil
}

func setString(s *ShardState, cmd command.Command) (command.RespValue, *delta.Delta, error) {
	if len(cmd.Args) < 2 {
		return command.ErrWrongNumArgs("set").Resp(), nil, nil
	}
	key, val := string(cmd.Args[0]), cmd.Args[1]
	s.Data[key] = value.NewString(val)
	delete(s.Expirations, key)
	bumpMutation(s)
	return command.OK, newLwwDelta(s, key, val), nil
}

func setNX(s *ShardState, cmd command.Command) (command.RespValue, *delta.Delta, error) {
	if len(cmd.Args) != 2 {
		return command.ErrWrongNumArgs("setnx").Resp(), nil, nil
	}
	key, val := string(cmd.Args[0]), cmd.Args[1]
	if s.expireIfDue(key); s.Data[key] != nil {
		return command.Integer(0), nil, nil
	}
	s.Data[key] = value.NewString(val)
	bumpMutation(s)
	return command.Integer(1), newLwwDelta(s, key, val), nil
}

func setExpiring(s *ShardState, cmd command.Command, millis bool) (command.RespValue, *delta.Delta, error) {
	if len(cmd.Args) != 3 {
		return command.ErrWrongNumArgs(cmd.Name).Resp(), nil, nil
	}
	key := string(cmd.Args[0])
	ttl, perr := parseInt(cmd.Args[1])
	if perr != nil {
		return perr.Resp(), nil, nil
	}
	val := cmd.Args[2]
	deadline, deleteNow := deadlineFromTTL(s.CurrentTime, ttl, millis)
	if deleteNow {
		delete(s.Data, key)
		delete(s.Expirations, key)
		return command.OK, nil, nil
	}
	s.Data[key] = value.NewString(val)
	s.Expirations[key] = deadline
	bumpMutation(s)
	return command.OK, newLwwDelta(s, key, val), nil
}

func mget(s *ShardState, cmd command.Command) (command.RespValue, *delta.Delta, error) {
	out := make([]command.RespValue, len(cmd.Args))
	for i, k := range cmd.Args {
		key := string(k)
		s.expireIfDue(key)
		v, ok := s.Data[key]
		if !ok || v.Kind != value.KindString {
			out[i] = command.NilBulk()
			continue
		}
		out[i] = command.BulkString(v.Str)
	}
	return command.Array(out), nil, nil
}

func mset(s *ShardState, cmd command.Command) (command.RespValue, *delta.Delta, error) {
	if len(cmd.Args) == 0 || len(cmd.Args)%2 != 0 {
		return command.ErrWrongNumArgs("mset").Resp(), nil, nil
	}
	for i := 0; i < len(cmd.Args); i += 2 {
		key := string(cmd.Args[i])
		s.Data[key] = value.NewString(cmd.Args[i+1])
		delete(s.Expirations, key)
	}
	bumpMutation(s)
	return command.OK, nil, nil
}

func msetNX(s *ShardState, cmd command.Command) (command.RespValue, *delta.Delta, error) {
	if len(cmd.Args) == 0 || len(cmd.Args)%2 != 0 {
		return command.ErrWrongNumArgs("msetnx").Resp(), nil, nil
	}
	for i := 0; i < len(cmd.Args); i += 2 {
		key := string(cmd.Args[i])
		s.expireIfDue(key)
		if _, ok := s.Data[key]; ok {
			return command.Integer(0), nil, nil
		}
	}
	for i := 0; i < len(cmd.Args); i += 2 {
		s.Data[string(cmd.Args[i])] = value.NewString(cmd.Args[i+1])
	}
	bumpMutation(s)
	return command.Integer(1), nil, nil
}

func appendStr(s *ShardState, cmd command.Command) (command.RespValue, *delta.Delta, error) {
	if len(cmd.Args) != 2 {
		return command.ErrWrongNumArgs("append").Resp(), nil, nil
	}
	key := string(cmd.Args[0])
	v, absent, errReply, isWT := stringAt(s, key)
	if isWT {
		return errReply, nil, nil
	}
	if absent {
		v = value.NewString(nil)
		s.Data[key] = v
	}
	v.Str = append(v.Str, cmd.Args[1]...)
	bumpMutation(s)
	return command.Integer(int64(len(v.Str))), newLwwDelta(s, key, v.Str), nil
}

func strlen(s *ShardState, cmd command.Command) (command.RespValue, *delta.Delta, error) {
	if len(cmd.Args) != 1 {
		return command.ErrWrongNumArgs("strlen").Resp(), nil, nil
	}
	v, absent, errReply, isWT := stringAt(s, string(cmd.Args[0]))
	if isWT {
		return errReply, nil, nil
	}
	if absent {
		return command.Integer(0), nil, nil
	}
	return command.Integer(int64(len(v.Str))), nil, nil
}

func getSet(s *ShardState, cmd command.Command) (command.RespValue, *delta.Delta, error) {
	if len(cmd.Args) != 2 {
		return command.ErrWrongNumArgs("getset").Resp(), nil, nil
	}
	key := string(cmd.Args[0])
	v, _, errReply, isWT := stringAt(s, key)
	if isWT {
		return errReply, nil, nil
	}
	var old command.RespValue = command.NilBulk()
	if v != nil {
		old = command.BulkString(v.Str)
	}
	s.Data[key] = value.NewString(cmd.Args[1])
	delete(s.Expirations, key)
	bumpMutation(s)
	return old, newLwwDelta(s, key, cmd.Args[1]), nil
}

func getDel(s *ShardState, cmd command.Command) (command.RespValue, *delta.Delta, error) {
	if len(cmd.Args) != 1 {
		return command.ErrWrongNumArgs("getdel").Resp(), nil, nil
	}
	key := string(cmd.Args[0])
	v, absent, errReply, isWT := stringAt(s, key)
	if isWT {
		return errReply, nil, nil
	}
	if absent {
		return command.NilBulk(), nil, nil
	}
	delete(s.Data, key)
	delete(s.Expirations, key)
	bumpMutation(s)
	return command.BulkString(v.Str), newLwwDeleteDelta(s, key), nil
}

func getRange(s *ShardState, cmd command.Command) (command.RespValue, *delta.Delta, error) {
	if len(cmd.Args) != 3 {
		return command.ErrWrongNumArgs("getrange").Resp(), nil, nil
	}
	v, absent, errReply, isWT := stringAt(s, string(cmd.Args[0]))
	if isWT {
		return errReply, nil, nil
	}
	if absent {
		return command.BulkString(nil), nil, nil
	}
	start, perr := parseInt(cmd.Args[1])
	if perr != nil {
		return perr.Resp(), nil, nil
	}
	stop, perr := parseInt(cmd.Args[2])
	if perr != nil {
		return perr.Resp(), nil, nil
	}
	n := len(v.Str)
	lo, hi := normalizeByteRange(int(start), int(stop), n)
	if lo > hi || n == 0 {
		return command.BulkString(nil), nil, nil
	}
	return command.BulkString(v.Str[lo : hi+1]), nil, nil
}

func normalizeByteRange(start, stop, n int) (int, int) {
	if start < 0 {
		start += n
	}
	if stop < 0 {
		stop += n
	}
	if start < 0 {
		start = 0
	}
	if stop >= n {
		stop = n - 1
	}
	return start, stop
}

func setRange(s *ShardState, cmd command.Command) (command.RespValue, *delta.Delta, error) {
	if len(cmd.Args) != 3 {
		return command.ErrWrongNumArgs("setrange").Resp(), nil, nil
	}
	key := string(cmd.Args[0])
	offset, perr := parseInt(cmd.Args[1])
	if perr != nil || offset < 0 {
		return command.ErrNotInteger.Resp(), nil, nil
	}
	patch := cmd.Args[2]
	v, absent, errReply, isWT := stringAt(s, key)
	if isWT {
		return errReply, nil, nil
	}
	if absent {
		v = value.NewString(nil)
		s.Data[key] = v
	}
	need := int(offset) + len(patch)
	if len(v.Str) < need {
		grown := make([]byte, need)
		copy(grown, v.Str)
		v.Str = grown
	}
	copy(v.Str[offset:], patch)
	bumpMutation(s)
	return command.Integer(int64(len(v.Str))), newLwwDelta(s, key, v.Str), nil
}

func incrBy(s *ShardState, cmd command.Command, delta_ int64) (command.RespValue, *delta.Delta, error) {
	if len(cmd.Args) != 1 {
		return command.ErrWrongNumArgs(cmd.Name).Resp(), nil, nil
	}
	return incrCommon(s, string(cmd.Args[0]), delta_)
}

func incrByArg(s *ShardState, cmd command.Command, sign int64) (command.RespValue, *delta.Delta, error) {
	if len(cmd.Args) != 2 {
		return command.ErrWrongNumArgs(cmd.Name).Resp(), nil, nil
	}
	by, perr := parseInt(cmd.Args[1])
	if perr != nil {
		return perr.Resp(), nil, nil
	}
	return incrCommon(s, string(cmd.Args[0]), sign*by)
}

func incrCommon(s *ShardState, key string, delta_ int64) (command.RespValue, *delta.Delta, error) {
	v, absent, errReply, isWT := stringAt(s, key)
	if isWT {
		return errReply, nil, nil
	}
	var cur int64
	if !absent {
		n, perr := parseInt(v.Str)
		if perr != nil {
			return perr.Resp(), nil, nil
		}
		cur = n
	}
	next, perr := addChecked(cur, delta_)
	if perr != nil {
		return perr.Resp(), nil, nil
	}
	buf := []byte(strconv.FormatInt(next, 10))
	s.Data[key] = value.NewString(buf)
	bumpMutation(s)
	return command.Integer(next), newCounterDelta(s, key, delta_), nil
}

func incrByFloat(s *ShardState, cmd command.Command) (command.RespValue, *delta.Delta, error) {
	if len(cmd.Args) != 2 {
		return command.ErrWrongNumArgs("incrbyfloat").Resp(), nil, nil
	}
	key := string(cmd.Args[0])
	by, perr := parseFloat(cmd.Args[1])
	if perr != nil {
		return perr.Resp(), nil, nil
	}
	v, absent, errReply, isWT := stringAt(s, key)
	if isWT {
		return errReply, nil, nil
	}
	var cur float64
	if !absent {
		f, perr := parseFloat(v.Str)
		if perr != nil {
			return perr.Resp(), nil, nil
		}
		cur = f
	}
	next := cur + by
	buf := []byte(formatFloat(next))
	s.Data[key] = value.NewString(buf)
	bumpMutation(s)
	return command.BulkString(buf), newLwwDelta(s, key, buf), nil
}

// newLwwDelta builds a replication delta for a whole-value overwrite and
// stamps the local write-timestamp index so a later inbound delta for the
// same key is compared against this write under the same LWW rule ApplyDelta
// uses for peers.
func newLwwDelta(s *ShardState, key string, val []byte) *delta.Delta {
	cp := append([]byte(nil), val...)
	ts := s.Clock
	s.recordWriteTimestamp(key, ts)
	return &delta.Delta{
		Key:    key,
		Update: crdt.LwwSet(cp),
		Source: ts.ReplicaID,
		Ts:     ts,
		ID:     delta.ID{Key: key, Seq: ts.Time, Origin: ts.ReplicaID},
	}
}

func newLwwDeleteDelta(s *ShardState, key string) *delta.Delta {
	ts := s.Clock
	s.recordWriteTimestamp(key, ts)
	return &delta.Delta{
		Key:    key,
		Update: crdt.LwwDelete(),
		Source: ts.ReplicaID,
		Ts:     ts,
		ID:     delta.ID{Key: key, Seq: ts.Time, Origin: ts.ReplicaID},
	}
}

// newCounterDelta builds a replication delta for an INCR-family mutation.
// Unlike newLwwDelta this carries only the signed change, not the resulting
// value: peers fold it additively via PN-Counter merge (applyCounterDelta)
// instead of overwriting, so concurrent increments from two replicas both
// survive instead of one clobbering the other.
func newCounterDelta(s *ShardState, key string, change int64) *delta.Delta {
	ts := s.Clock
	return &delta.Delta{
		Key:    key,
		Update: crdt.CounterDelta(change),
		Source: ts.ReplicaID,
		Ts:     ts,
		ID:     delta.ID{Key: key, Seq: ts.Time, Origin: ts.ReplicaID},
	}
}

package executor

import (
	"github.com/dreamware/ridgekv/internal/command"
	"github.com/dreamware/ridgekv/internal/delta"
	"github.com/dreamware/ridgekv/internal/value"
)

func isHashCmd(k command.Kind) bool {
	switch k {
	case command.KindHSet, command.KindHGet, command.KindHDel, command.KindHExists,
		command.KindHLen, command.KindHGetAll, command.KindHKeys, command.KindHVals,
		command.KindHIncrBy, command.KindHIncrByFloat, command.KindHMGet, command.KindHMSet,
		command.KindHSetNX, command.KindHScan:
		return true
	}
	return false
}

func execHashCmd(s *ShardState, cmd command.Command) (command.RespValue, *delta.Delta, error) {
	switch cmd.Kind {
	case command.KindHSet, command.KindHMSet:
		return hset(s, cmd)
	case command.KindHGet:
		return hget(s, cmd)
	case command.KindHDel:
		return hdel(s, cmd)
	case command.KindHExists:
		return hexists(s, cmd)
	case command.KindHLen:
		return hlen(s, cmd)
	case command.KindHGetAll:
		return hgetall(s, cmd)
	case command.KindHKeys:
		return hkeys(s, cmd)
	case command.KindHVals:
		return hvals(s, cmd)
	case command.KindHIncrBy:
		return hincrby(s, cmd)
	case command.KindHIncrByFloat:
		return hincrbyfloat(s, cmd)
	case command.KindHMGet:
		return hmget(s, cmd)
	case command.KindHSetNX:
		return hsetnx(s, cmd)
	case command.KindHScan:
		return hscan(s, cmd)
	}
	return command.ErrUnknownCommand(cmd.Name).Resp(), nil, nil
}

func hashAt(s *ShardState, key string) (v *value.Value, absent bool, errReply command.RespValue, isWrongType bool) {
	got, ok := s.Data[key]
	if !ok {
		return nil, true, command.RespValue{}, false
	}
	if got.Kind != value.KindHash {
		return nil, false, command.ErrWrongType.Resp(), true
	}
	return got, false, command.RespValue{}, false
}

func hset(s *ShardState, cmd command.Command) (command.RespValue, *delta.Delta, error) {
	if len(cmd.Args) < 3 || len(cmd.Args)%2 != 1 {
		return command.ErrWrongNumArgs(cmd.Name).Resp(), nil, nil
	}
	key := string(cmd.Args[0])
	v, absent, errReply, isWT := hashAt(s, key)
	if isWT {
		return errReply, nil, nil
	}
	if absent {
		v = value.NewHash()
		s.Data[key] = v
	}
	added := int64(0)
	for i := 1; i < len(cmd.Args); i += 2 {
		field := string(cmd.Args[i])
		if _, ok := v.Hash[field]; !ok {
			added++
		}
		v.Hash[field] = append([]byte(nil), cmd.Args[i+1]...)
	}
	bumpMutation(s)
	if cmd.Kind == command.KindHMSet {
		return command.OK, nil, nil
	}
	return command.Integer(added), nil, nil
}

func hget(s *ShardState, cmd command.Command) (command.RespValue, *delta.Delta, error) {
	if len(cmd.Args) != 2 {
		return command.ErrWrongNumArgs("hget").Resp(), nil, nil
	}
	v, absent, errReply, isWT := hashAt(s, string(cmd.Args[0]))
	if isWT {
		return errReply, nil, nil
	}
	if absent {
		return command.NilBulk(), nil, nil
	}
	b, ok := v.Hash[string(cmd.Args[1])]
	if !ok {
		return command.NilBulk(), nil, nil
	}
	return command.BulkString(b), nil, nil
}

func hdel(s *ShardState, cmd command.Command) (command.RespValue, *delta.Delta, error) {
	if len(cmd.Args) < 2 {
		return command.ErrWrongNumArgs("hdel").Resp(), nil, nil
	}
	key := string(cmd.Args[0])
	v, absent, errReply, isWT := hashAt(s, key)
	if isWT {
		return errReply, nil, nil
	}
	if absent {
		return command.Integer(0), nil, nil
	}
	removed := int64(0)
	for _, f := range cmd.Args[1:] {
		field := string(f)
		if _, ok := v.Hash[field]; ok {
			delete(v.Hash, field)
			removed++
		}
	}
	if removed > 0 {
		s.deleteIfEmpty(key)
		bumpMutation(s)
	}
	return command.Integer(removed), nil, nil
}

func hexists(s *ShardState, cmd command.Command) (command.RespValue, *delta.Delta, error) {
	if len(cmd.Args) != 2 {
		return command.ErrWrongNumArgs("hexists").Resp(), nil, nil
	}
	v, absent, errReply, isWT := hashAt(s, string(cmd.Args[0]))
	if isWT {
		return errReply, nil, nil
	}
	if absent {
		return command.Integer(0), nil, nil
	}
	if _, ok := v.Hash[string(cmd.Args[1])]; ok {
		return command.Integer(1), nil, nil
	}
	return command.Integer(0), nil, nil
}

func hlen(s *ShardState, cmd command.Command) (command.RespValue, *delta.Delta, error) {
	if len(cmd.Args) != 1 {
		return command.ErrWrongNumArgs("hlen").Resp(), nil, nil
	}
	v, absent, errReply, isWT := hashAt(s, string(cmd.Args[0]))
	if isWT {
		return errReply, nil, nil
	}
	if absent {
		return command.Integer(0), nil, nil
	}
	return command.Integer(int64(len(v.Hash))), nil, nil
}

func hgetall(s *ShardState, cmd command.Command) (command.RespValue, *delta.Delta, error) {
	if len(cmd.Args) != 1 {
		return command.ErrWrongNumArgs("hgetall").Resp(), nil, nil
	}
	v, absent, errReply, isWT := hashAt(s, string(cmd.Args[0]))
	if isWT {
		return errReply, nil, nil
	}
	if absent {
		return command.Array(nil), nil, nil
	}
	keys := v.HashKeysSorted()
	out := make([]command.RespValue, 0, len(keys)*2)
	for _, k := range keys {
		out = append(out, command.BulkString([]byte(k)), command.BulkString(v.Hash[k]))
	}
	return command.Array(out), nil, nil
}

func hkeys(s *ShardState, cmd command.Command) (command.RespValue, *delta.Delta, error) {
	if len(cmd.Args) != 1 {
		return command.ErrWrongNumArgs("hkeys").Resp(), nil, nil
	}
	v, absent, errReply, isWT := hashAt(s, string(cmd.Args[0]))
	if isWT {
		return errReply, nil, nil
	}
	if absent {
		return command.Array(nil), nil, nil
	}
	return respStrings(v.HashKeysSorted()), nil, nil
}

func hvals(s *ShardState, cmd command.Command) (command.RespValue, *delta.Delta, error) {
	if len(cmd.Args) != 1 {
		return command.ErrWrongNumArgs("hvals").Resp(), nil, nil
	}
	v, absent, errReply, isWT := hashAt(s, string(cmd.Args[0]))
	if isWT {
		return errReply, nil, nil
	}
	if absent {
		return command.Array(nil), nil, nil
	}
	keys := v.HashKeysSorted()
	out := make([]command.RespValue, len(keys))
	for i, k := range keys {
		out[i] = command.BulkString(v.Hash[k])
	}
	return command.Array(out), nil, nil
}

func hincrby(s *ShardState, cmd command.Command) (command.RespValue, *delta.Delta, error) {
	if len(cmd.Args) != 3 {
		return command.ErrWrongNumArgs("hincrby").Resp(), nil, nil
	}
	key, field := string(cmd.Args[0]), string(cmd.Args[1])
	by, perr := parseInt(cmd.Args[2])
	if perr != nil {
		return perr.Resp(), nil, nil
	}
	v, absent, errReply, isWT := hashAt(s, key)
	if isWT {
		return errReply, nil, nil
	}
	if absent {
		v = value.NewHash()
		s.Data[key] = v
	}
	var cur int64
	if b, ok := v.Hash[field]; ok {
		n, perr := parseInt(b)
		if perr != nil {
			return perr.Resp(), nil, nil
		}
		cur = n
	}
	next, perr := addChecked(cur, by)
	if perr != nil {
		return perr.Resp(), nil, nil
	}
	v.Hash[field] = []byte(itoa(next))
	bumpMutation(s)
	return command.Integer(next), nil, nil
}

func hincrbyfloat(s *ShardState, cmd command.Command) (command.RespValue, *delta.Delta, error) {
	if len(cmd.Args) != 3 {
		return command.ErrWrongNumArgs("hincrbyfloat").Resp(), nil, nil
	}
	key, field := string(cmd.Args[0]), string(cmd.Args[1])
	by, perr := parseFloat(cmd.Args[2])
	if perr != nil {
		return perr.Resp(), nil, nil
	}
	v, absent, errReply, isWT := hashAt(s, key)
	if isWT {
		return errReply, nil, nil
	}
	if absent {
		v = value.NewHash()
		s.Data[key] = v
	}
	var cur float64
	if b, ok := v.Hash[field]; ok {
		f, perr := parseFloat(b)
		if perr != nil {
			return perr.Resp(), nil, nil
		}
		cur = f
	}
	next := cur + by
	buf := []byte(formatFloat(next))
	v.Hash[field] = buf
	bumpMutation(s)
	return command.BulkString(buf), nil, nil
}

func hmget(s *ShardState, cmd command.Command) (command.RespValue, *delta.Delta, error) {
	if len(cmd.Args) < 2 {
		return command.ErrWrongNumArgs("hmget").Resp(), nil, nil
	}
	v, absent, errReply, isWT := hashAt(s, string(cmd.Args[0]))
	if isWT {
		return errReply, nil, nil
	}
	out := make([]command.RespValue, len(cmd.Args)-1)
	for i, f := range cmd.Args[1:] {
		if absent {
			out[i] = command.NilBulk()
			continue
		}
		b, ok := v.Hash[string(f)]
		if !ok {
			out[i] = command.NilBulk()
			continue
		}
		out[i] = command.BulkString(b)
	}
	return command.Array(out), nil, nil
}

func hsetnx(s *ShardState, cmd command.Command) (command.RespValue, *delta.Delta, error) {
	if len(cmd.Args) != 3 {
		return command.ErrWrongNumArgs("hsetnx").Resp(), nil, nil
	}
	key, field := string(cmd.Args[0]), string(cmd.Args[1])
	v, absent, errReply, isWT := hashAt(s, key)
	if isWT {
		return errReply, nil, nil
	}
	if absent {
		v = value.NewHash()
		s.Data[key] = v
	}
	if _, ok := v.Hash[field]; ok {
		return command.Integer(0), nil, nil
	}
	v.Hash[field] = append([]byte(nil), cmd.Args[2]...)
	bumpMutation(s)
	return command.Integer(1), nil, nil
}

// hscan mirrors SCAN's per-shard cursor contract but walks a single hash's
// fields instead of the whole keyspace.
func hscan(s *ShardState, cmd command.Command) (command.RespValue, *delta.Delta, error) {
	if len(cmd.Args) < 2 {
		return command.ErrWrongNumArgs("hscan").Resp(), nil, nil
	}
	v, absent, errReply, isWT := hashAt(s, string(cmd.Args[0]))
	if isWT {
		return errReply, nil, nil
	}
	cursor, perr := parseInt(cmd.Args[1])
	if perr != nil || cursor < 0 {
		return command.ErrSyntax.Resp(), nil, nil
	}
	if absent {
		return command.Array([]command.RespValue{command.BulkString([]byte("0")), command.Array(nil)}), nil, nil
	}
	keys := v.HashKeysSorted()
	start := int(cursor)
	if start > len(keys) {
		start = len(keys)
	}
	const pageSize = 10
	end := start + pageSize
	if end > len(keys) {
		end = len(keys)
	}
	next := int64(0)
	if end < len(keys) {
		next = int64(end)
	}
	out := make([]command.RespValue, 0, (end-start)*2)
	for _, k := range keys[start:end] {
		out = append(out, command.BulkString([]byte(k)), command.BulkString(v.Hash[k]))
	}
	return command.Array([]command.RespValue{command.BulkString([]byte(itoa(next))), command.Array(out)}), nil, nil
}

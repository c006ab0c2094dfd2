package executor

import (
	"container/list"

	"github.com/dreamware/ridgekv/internal/command"
	"github.com/dreamware/ridgekv/internal/delta"
	"github.com/dreamware/ridgekv/internal/value"
)

func isListCmd(k command.Kind) bool {
	switch k {
	case command.KindLPush, command.KindRPush, command.KindLPop, command.KindRPop,
		command.KindLLen, command.KindLRange, command.KindLIndex, command.KindLSet,
		command.KindLRem, command.KindLTrim, command.KindLPushX, command.KindRPushX:
		return true
	}
	return false
}

func execListCmd(s *ShardState, cmd command.Command) (command.RespValue, *delta.Delta, error) {
	switch cmd.Kind {
	case command.KindLPush:
		return push(s, cmd, true, false)
	case command.KindRPush:
		return push(s, cmd, false, false)
	case command.KindLPushX:
		return push(s, cmd, true, true)
	case command.KindRPushX:
		return push(s, cmd, false, true)
	case command.KindLPop:
		return pop(s, cmd, true)
	case command.KindRPop:
		return pop(s, cmd, false)
	case command.KindLLen:
		return llen(s, cmd)
	case command.KindLRange:
		return lrange(s, cmd)
	case command.KindLIndex:
		return lindex(s, cmd)
	case command.KindLSet:
		return lset(s, cmd)
	case command.KindLRem:
		return lrem(s, cmd)
	case command.KindLTrim:
		return ltrim(s, cmd)
	}
	return command.ErrUnknownCommand(cmd.Name).Resp(), nil, nil
}

func listAt(s *ShardState, key string) (v *value.Value, absent bool, errReply command.RespValue, isWrongType bool) {
	got, ok := s.Data[key]
	if !ok {
		return nil, true, command.RespValue{}, false
	}
	if got.Kind != value.KindList {
		return nil, false, command.ErrWrongType.Resp(), true
	}
	return got, false, command.RespValue{}, false
}

func push(s *ShardState, cmd command.Command, left, xOnly bool) (command.RespValue, *delta.Delta, error) {
	if len(cmd.Args) < 2 {
		return command.ErrWrongNumArgs(cmd.Name).Resp(), nil, nil
	}
	key := string(cmd.Args[0])
	v, absent, errReply, isWT := listAt(s, key)
	if isWT {
		return errReply, nil, nil
	}
	if absent {
		if xOnly {
			return command.Integer(0), nil, nil
		}
		v = value.NewList()
		s.Data[key] = v
	}
	for _, elem := range cmd.Args[1:] {
		b := append([]byte(nil), elem...)
		if left {
			v.List.PushFront(b)
		} else {
			v.List.PushBack(b)
		}
	}
	bumpMutation(s)
	return command.Integer(int64(v.List.Len())), nil, nil
}

func pop(s *ShardState, cmd command.Command, left bool) (command.RespValue, *delta.Delta, error) {
	if len(cmd.Args) != 1 {
		return command.ErrWrongNumArgs(cmd.Name).Resp(), nil, nil
	}
	key := string(cmd.Args[0])
	v, absent, errReply, isWT := listAt(s, key)
	if isWT {
		return errReply, nil, nil
	}
	if absent {
		return command.NilBulk(), nil, nil
	}
	var e *list.Element
	if left {
		e = v.List.Front()
	} else {
		e = v.List.Back()
	}
	if e == nil {
		return command.NilBulk(), nil, nil
	}
	v.List.Remove(e)
	s.deleteIfEmpty(key)
	bumpMutation(s)
	return command.BulkString(e.Value.([]byte)), nil, nil
}

func llen(s *ShardState, cmd command.Command) (command.RespValue, *delta.Delta, error) {
	if len(cmd.Args) != 1 {
		return command.ErrWrongNumArgs("llen").Resp(), nil, nil
	}
	v, absent, errReply, isWT := listAt(s, string(cmd.Args[0]))
	if isWT {
		return errReply, nil, nil
	}
	if absent {
		return command.Integer(0), nil, nil
	}
	return command.Integer(int64(v.List.Len())), nil, nil
}

func listSlice(v *value.Value) [][]byte {
	out := make([][]byte, 0, v.List.Len())
	for e := v.List.Front(); e != nil; e = e.Next() {
		out = append(out, e.Value.([]byte))
	}
	return out
}

func lrange(s *ShardState, cmd command.Command) (command.RespValue, *delta.Delta, error) {
	if len(cmd.Args) != 3 {
		return command.ErrWrongNumArgs("lrange").Resp(), nil, nil
	}
	v, absent, errReply, isWT := listAt(s, string(cmd.Args[0]))
	if isWT {
		return errReply, nil, nil
	}
	if absent {
		return command.Array(nil), nil, nil
	}
	start, perr := parseInt(cmd.Args[1])
	if perr != nil {
		return perr.Resp(), nil, nil
	}
	stop, perr := parseInt(cmd.Args[2])
	if perr != nil {
		return perr.Resp(), nil, nil
	}
	all := listSlice(v)
	lo, hi := normalizeRangeInclusive(int(start), int(stop), len(all))
	if lo > hi || len(all) == 0 {
		return command.Array(nil), nil, nil
	}
	out := make([]command.RespValue, 0, hi-lo+1)
	for _, b := range all[lo : hi+1] {
		out = append(out, command.BulkString(b))
	}
	return command.Array(out), nil, nil
}

func normalizeRangeInclusive(start, stop, n int) (int, int) {
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

func lindex(s *ShardState, cmd command.Command) (command.RespValue, *delta.Delta, error) {
	if len(cmd.Args) != 2 {
		return command.ErrWrongNumArgs("lindex").Resp(), nil, nil
	}
	v, absent, errReply, isWT := listAt(s, string(cmd.Args[0]))
	if isWT {
		return errReply, nil, nil
	}
	if absent {
		return command.NilBulk(), nil, nil
	}
	idx, perr := parseInt(cmd.Args[1])
	if perr != nil {
		return perr.Resp(), nil, nil
	}
	all := listSlice(v)
	i := int(idx)
	if i < 0 {
		i += len(all)
	}
	if i < 0 || i >= len(all) {
		return command.NilBulk(), nil, nil
	}
	return command.BulkString(all[i]), nil, nil
}

func lset(s *ShardState, cmd command.Command) (command.RespValue, *delta.Delta, error) {
	if len(cmd.Args) != 3 {
		return command.ErrWrongNumArgs("lset").Resp(), nil, nil
	}
	v, absent, errReply, isWT := listAt(s, string(cmd.Args[0]))
	if isWT {
		return errReply, nil, nil
	}
	if absent {
		return (&command.RedisError{Prefix: "ERR", Message: "no such key"}).Resp(), nil, nil
	}
	idx, perr := parseInt(cmd.Args[1])
	if perr != nil {
		return perr.Resp(), nil, nil
	}
	i := int(idx)
	n := v.List.Len()
	if i < 0 {
		i += n
	}
	if i < 0 || i >= n {
		return (&command.RedisError{Prefix: "ERR", Message: "index out of range"}).Resp(), nil, nil
	}
	e := v.List.Front()
	for j := 0; j < i; j++ {
		e = e.Next()
	}
	e.Value = append([]byte(nil), cmd.Args[2]...)
	bumpMutation(s)
	return command.OK, nil, nil
}

func lrem(s *ShardState, cmd command.Command) (command.RespValue, *delta.Delta, error) {
	if len(cmd.Args) != 3 {
		return command.ErrWrongNumArgs("lrem").Resp(), nil, nil
	}
	key := string(cmd.Args[0])
	v, absent, errReply, isWT := listAt(s, key)
	if isWT {
		return errReply, nil, nil
	}
	if absent {
		return command.Integer(0), nil, nil
	}
	count, perr := parseInt(cmd.Args[1])
	if perr != nil {
		return perr.Resp(), nil, nil
	}
	target := cmd.Args[2]
	removed := int64(0)

	removeFrom := func(fromFront bool, max int64) {
		var e, next *list.Element
		if fromFront {
			e = v.List.Front()
		} else {
			e = v.List.Back()
		}
		for e != nil && (max <= 0 || removed < max) {
			if fromFront {
				next = e.Next()
			} else {
				next = e.Prev()
			}
			if bytesEqual(e.Value.([]byte), target) {
				v.List.Remove(e)
				removed++
			}
			e = next
		}
	}
	if count >= 0 {
		removeFrom(true, count)
	} else {
		removeFrom(false, -count)
	}
	if removed > 0 {
		s.deleteIfEmpty(key)
		bumpMutation(s)
	}
	return command.Integer(removed), nil, nil
}

func bytesEqual(a, b []byte) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func ltrim(s *ShardState, cmd command.Command) (command.RespValue, *delta.Delta, error) {
	if len(cmd.Args) != 3 {
		return command.ErrWrongNumArgs("ltrim").Resp(), nil, nil
	}
	key := string(cmd.Args[0])
	v, absent, errReply, isWT := listAt(s, key)
	if isWT {
		return errReply, nil, nil
	}
	if absent {
		return command.OK, nil, nil
	}
	start, perr := parseInt(cmd.Args[1])
	if perr != nil {
		return perr.Resp(), nil, nil
	}
	stop, perr := parseInt(cmd.Args[2])
	if perr != nil {
		return perr.Resp(), nil, nil
	}
	all := listSlice(v)
	lo, hi := normalizeRangeInclusive(int(start), int(stop), len(all))
	newList := list.New()
	if lo <= hi && len(all) > 0 {
		for _, b := range all[lo : hi+1] {
			newList.PushBack(b)
		}
	}
	v.List = newList
	s.deleteIfEmpty(key)
	bumpMutation(s)
	return command.OK, nil, nil
}

package executor

import (
	"path/filepath"
	"sort"

	"github.com/dreamware/ridgekv/internal/command"
	"github.com/dreamware/ridgekv/internal/delta"
	"github.com/dreamware/ridgekv/internal/dst"
	"github.com/dreamware/ridgekv/internal/value"
)

func isKeyCmd(k command.Kind) bool {
	switch k {
	case command.KindDel, command.KindUnlink, command.KindExists, command.KindType,
		command.KindKeys, command.KindScan, command.KindRename, command.KindRenameNX,
		command.KindExpire, command.KindPExpire, command.KindExpireAt, command.KindPExpireAt,
		command.KindTTL, command.KindPTTL, command.KindPersist, command.KindDBSize,
		command.KindFlushDB, command.KindFlushAll:
		return true
	}
	return false
}

func execKeyCmd(s *ShardState, cmd command.Command) (command.RespValue, *delta.Delta, error) {
	switch cmd.Kind {
	case command.KindDel, command.KindUnlink:
		return del(s, cmd)
	case command.KindExists:
		return exists(s, cmd)
	case command.KindType:
		return typeOf(s, cmd)
	case command.KindKeys:
		return keysGlob(s, cmd)
	case command.KindScan:
		return scan(s, cmd)
	case command.KindRename:
		return rename(s, cmd, false)
	case command.KindRenameNX:
		return rename(s, cmd, true)
	case command.KindExpire:
		return expireBy(s, cmd, false, false)
	case command.KindPExpire:
		return expireBy(s, cmd, true, false)
	case command.KindExpireAt:
		return expireBy(s, cmd, false, true)
	case command.KindPExpireAt:
		return expireBy(s, cmd, true, true)
	case command.KindTTL:
		return ttl(s, cmd, false)
	case command.KindPTTL:
		return ttl(s, cmd, true)
	case command.KindPersist:
		return persist(s, cmd)
	case command.KindDBSize:
		return command.Integer(int64(len(s.Data))), nil, nil
	case command.KindFlushDB, command.KindFlushAll:
		s.Data = make(map[string]*value.Value)
		s.Expirations = make(map[string]dst.VirtualTime)
		bumpMutation(s)
		return command.OK, nil, nil
	}
	return command.ErrUnknownCommand(cmd.Name).Resp(), nil, nil
}

func del(s *ShardState, cmd command.Command) (command.RespValue, *delta.Delta, error) {
	if len(cmd.Args) == 0 {
		return command.ErrWrongNumArgs(cmd.Name).Resp(), nil, nil
	}
	count := int64(0)
	for _, k := range cmd.Args {
		key := string(k)
		s.expireIfDue(key)
		if _, ok := s.Data[key]; ok {
			delete(s.Data, key)
			delete(s.Expirations, key)
			count++
		}
	}
	if count > 0 {
		bumpMutation(s)
	}
	return command.Integer(count), nil, nil
}

func exists(s *ShardState, cmd command.Command) (command.RespValue, *delta.Delta, error) {
	count := int64(0)
	for _, k := range cmd.Args {
		key := string(k)
		s.expireIfDue(key)
		if _, ok := s.Data[key]; ok {
			count++
		}
	}
	return command.Integer(count), nil, nil
}

func typeOf(s *ShardState, cmd command.Command) (command.RespValue, *delta.Delta, error) {
	if len(cmd.Args) != 1 {
		return command.ErrWrongNumArgs("type").Resp(), nil, nil
	}
	key := string(cmd.Args[0])
	s.expireIfDue(key)
	v, ok := s.Data[key]
	if !ok {
		return command.SimpleString("none"), nil, nil
	}
	return command.SimpleString(v.Kind.String()), nil, nil
}

func keysGlob(s *ShardState, cmd command.Command) (command.RespValue, *delta.Delta, error) {
	if len(cmd.Args) != 1 {
		return command.ErrWrongNumArgs("keys").Resp(), nil, nil
	}
	pattern := string(cmd.Args[0])
	var matched []string
	for key := range s.Data {
		if s.expireIfDue(key) {
			continue
		}
		if ok, _ := filepath.Match(pattern, key); ok {
			matched = append(matched, key)
		}
	}
	sort.Strings(matched)
	out := make([]command.RespValue, len(matched))
	for i, k := range matched {
		out[i] = command.BulkString([]byte(k))
	}
	return command.Array(out), nil, nil
}

// scan implements the local, single-shard half of SCAN: a bounded cursor
// walk over this shard's keyspace only. internal/router wraps the per-shard
// cursor into the opaque (shardIndex, shardCursor) tuple clients see.
func scan(s *ShardState, cmd command.Command) (command.RespValue, *delta.Delta, error) {
	if len(cmd.Args) < 1 {
		return command.ErrWrongNumArgs("scan").Resp(), nil, nil
	}
	cursor, perr := parseInt(cmd.Args[0])
	if perr != nil || cursor < 0 {
		return command.ErrSyntax.Resp(), nil, nil
	}
	count := 10
	var pattern string
	for i := 1; i < len(cmd.Args); i += 2 {
		if i+1 >= len(cmd.Args) {
			return command.ErrSyntax.Resp(), nil, nil
		}
		opt := string(cmd.Args[i])
		switch opt {
		case "MATCH", "match":
			pattern = string(cmd.Args[i+1])
		case "COUNT", "count":
			n, perr := parseInt(cmd.Args[i+1])
			if perr != nil || n <= 0 {
				return command.ErrSyntax.Resp(), nil, nil
			}
			count = int(n)
		default:
			return command.ErrSyntax.Resp(), nil, nil
		}
	}

	all := make([]string, 0, len(s.Data))
	for key := range s.Data {
		if s.expireIfDue(key) {
			continue
		}
		all = append(all, key)
	}
	sort.Strings(all)

	start := int(cursor)
	if start > len(all) {
		start = len(all)
	}
	end := start + count
	if end > len(all) {
		end = len(all)
	}
	page := all[start:end]
	nextCursor := int64(0)
	if end < len(all) {
		nextCursor = int64(end)
	}

	var out []command.RespValue
	for _, k := range page {
		if pattern != "" {
			if ok, _ := filepath.Match(pattern, k); !ok {
				continue
			}
		}
		out = append(out, command.BulkString([]byte(k)))
	}
	reply := command.Array([]command.RespValue{
		command.BulkString([]byte(itoa(nextCursor))),
		command.Array(out),
	})
	return reply, nil, nil
}

func itoa(n int64) string {
	if n == 0 {
		return "0"
	}
	neg := n < 0
	if neg {
		n = -n
	}
	var buf [20]byte
	i := len(buf)
	for n > 0 {
		i--
		buf[i] = byte('0' + n%10)
		n /= 10
	}
	if neg {
		i--
		buf[i] = '-'
	}
	return string(buf[i:])
}

func rename(s *ShardState, cmd command.Command, nx bool) (command.RespValue, *delta.Delta, error) {
	if len(cmd.Args) != 2 {
		return command.ErrWrongNumArgs(cmd.Name).Resp(), nil, nil
	}
	src, tgt := string(cmd.Args[0]), string(cmd.Args[1])
	s.expireIfDue(src)
	v, ok := s.Data[src]
	if !ok {
		return (&command.RedisError{Prefix: "ERR", Message: "no such key"}).Resp(), nil, nil
	}
	s.expireIfDue(tgt)
	if nx {
		if _, exists := s.Data[tgt]; exists {
			return command.Integer(0), nil, nil
		}
	}
	s.Data[tgt] = v
	if deadline, has := s.Expirations[src]; has {
		s.Expirations[tgt] = deadline
	} else {
		delete(s.Expirations, tgt)
	}
	delete(s.Data, src)
	delete(s.Expirations, src)
	bumpMutation(s)
	if nx {
		return command.Integer(1), nil, nil
	}
	return command.OK, nil, nil
}

func expireBy(s *ShardState, cmd command.Command, millis, absolute bool) (command.RespValue, *delta.Delta, error) {
	if len(cmd.Args) != 2 {
		return command.ErrWrongNumArgs(cmd.Name).Resp(), nil, nil
	}
	key := string(cmd.Args[0])
	amount, perr := parseInt(cmd.Args[1])
	if perr != nil {
		return perr.Resp(), nil, nil
	}
	s.expireIfDue(key)
	if _, ok := s.Data[key]; !ok {
		return command.Integer(0), nil, nil
	}

	var deadline dst.VirtualTime
	if absolute {
		if millis {
			deadline = dst.VirtualTime(amount)
		} else {
			deadline = dst.VirtualTime(amount * 1000)
		}
	} else {
		d, deleteNow := deadlineFromTTL(s.CurrentTime, amount, millis)
		if deleteNow {
			delete(s.Data, key)
			delete(s.Expirations, key)
			bumpMutation(s)
			return command.Integer(1), nil, nil
		}
		deadline = d
	}

	if deadline <= s.CurrentTime {
		delete(s.Data, key)
		delete(s.Expirations, key)
		bumpMutation(s)
		return command.Integer(1), nil, nil
	}
	s.Expirations[key] = deadline
	bumpMutation(s)
	return command.Integer(1), nil, nil
}

func ttl(s *ShardState, cmd command.Command, millis bool) (command.RespValue, *delta.Delta, error) {
	if len(cmd.Args) != 1 {
		return command.ErrWrongNumArgs(cmd.Name).Resp(), nil, nil
	}
	key := string(cmd.Args[0])
	s.expireIfDue(key)
	if _, ok := s.Data[key]; !ok {
		return command.Integer(-2), nil, nil
	}
	deadline, has := s.Expirations[key]
	if !has {
		return command.Integer(-1), nil, nil
	}
	remainingMs := int64(deadline) - int64(s.CurrentTime)
	if remainingMs < 0 {
		remainingMs = 0
	}
	if millis {
		return command.Integer(remainingMs), nil, nil
	}
	return command.Integer(remainingMs / 1000), nil, nil
}

func persist(s *ShardState, cmd command.Command) (command.RespValue, *delta.Delta, error) {
	if len(cmd.Args) != 1 {
		return command.ErrWrongNumArgs("persist").Resp(), nil, nil
	}
	key := string(cmd.Args[0])
	s.expireIfDue(key)
	if _, has := s.Expirations[key]; !has {
		return command.Integer(0), nil, nil
	}
	delete(s.Expirations, key)
	bumpMutation(s)
	return command.Integer(1), nil, nil
}

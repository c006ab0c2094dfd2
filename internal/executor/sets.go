package executor

import (
	"sort"

	"github.com/dreamware/ridgekv/internal/command"
	"github.com/dreamware/ridgekv/internal/crdt"
	"github.com/dreamware/ridgekv/internal/delta"
	"github.com/dreamware/ridgekv/internal/value"
	"github.com/google/uuid"
)

func isSetCmd(k command.Kind) bool {
	switch k {
	case command.KindSAdd, command.KindSRem, command.KindSMembers, command.KindSIsMember,
		command.KindSCard, command.KindSPop, command.KindSRandMember, command.KindSInter,
		command.KindSUnion, command.KindSDiff:
		return true
	}
	return false
}

func execSetCmd(s *ShardState, cmd command.Command) (command.RespValue, *delta.Delta, error) {
	switch cmd.Kind {
	case command.KindSAdd:
		return sadd(s, cmd)
	case command.KindSRem:
		return srem(s, cmd)
	case command.KindSMembers:
		return smembers(s, cmd)
	case command.KindSIsMember:
		return sismember(s, cmd)
	case command.KindSCard:
		return scard(s, cmd)
	case command.KindSPop:
		return spop(s, cmd)
	case command.KindSRandMember:
		return srandmember(s, cmd)
	case command.KindSInter:
		return setOp(s, cmd, setIntersect)
	case command.KindSUnion:
		return setOp(s, cmd, setUnion)
	case command.KindSDiff:
		return setOp(s, cmd, setDiff)
	}
	return command.ErrUnknownCommand(cmd.Name).Resp(), nil, nil
}

func setAt(s *ShardState, key string) (v *value.Value, absent bool, errReply command.RespValue, isWrongType bool) {
	got, ok := s.Data[key]
	if !ok {
		return nil, true, command.RespValue{}, false
	}
	if got.Kind != value.KindSet {
		return nil, false, command.ErrWrongType.Resp(), true
	}
	return got, false, command.RespValue{}, false
}

// sadd replicates as a single OR-Set add carrying only the last
// newly-inserted member; other members inserted by the same call are not in
// the delta.
func sadd(s *ShardState, cmd command.Command) (command.RespValue, *delta.Delta, error) {
	if len(cmd.Args) < 2 {
		return command.ErrWrongNumArgs("sadd").Resp(), nil, nil
	}
	key := string(cmd.Args[0])
	v, absent, errReply, isWT := setAt(s, key)
	if isWT {
		return errReply, nil, nil
	}
	if absent {
		v = value.NewSet()
		s.Data[key] = v
	}
	added := int64(0)
	var lastMember string
	var tag uuid.UUID
	for _, m := range cmd.Args[1:] {
		member := string(m)
		if _, ok := v.Set[member]; !ok {
			v.Set[member] = struct{}{}
			added++
			lastMember = member
			tag = uuid.New()
		}
	}
	if added == 0 {
		return command.Integer(0), nil, nil
	}
	bumpMutation(s)
	d := &delta.Delta{
		Key:    key,
		Update: crdt.SetAdd(lastMember, tag),
		Source: s.Clock.ReplicaID,
		Ts:     s.Clock,
		ID:     delta.ID{Key: key, Seq: s.Clock.Time, Origin: s.Clock.ReplicaID},
	}
	return command.Integer(added), d, nil
}

func srem(s *ShardState, cmd command.Command) (command.RespValue, *delta.Delta, error) {
	if len(cmd.Args) < 2 {
		return command.ErrWrongNumArgs("srem").Resp(), nil, nil
	}
	key := string(cmd.Args[0])
	v, absent, errReply, isWT := setAt(s, key)
	if isWT {
		return errReply, nil, nil
	}
	if absent {
		return command.Integer(0), nil, nil
	}
	removed := int64(0)
	var lastMember string
	for _, m := range cmd.Args[1:] {
		member := string(m)
		if _, ok := v.Set[member]; ok {
			delete(v.Set, member)
			removed++
			lastMember = member
		}
	}
	if removed == 0 {
		return command.Integer(0), nil, nil
	}
	s.deleteIfEmpty(key)
	bumpMutation(s)
	d := &delta.Delta{
		Key:    key,
		Update: crdt.SetRemove(lastMember),
		Source: s.Clock.ReplicaID,
		Ts:     s.Clock,
		ID:     delta.ID{Key: key, Seq: s.Clock.Time, Origin: s.Clock.ReplicaID},
	}
	return command.Integer(removed), d, nil
}

func smembers(s *ShardState, cmd command.Command) (command.RespValue, *delta.Delta, error) {
	if len(cmd.Args) != 1 {
		return command.ErrWrongNumArgs("smembers").Resp(), nil, nil
	}
	v, absent, errReply, isWT := setAt(s, string(cmd.Args[0]))
	if isWT {
		return errReply, nil, nil
	}
	if absent {
		return command.Array(nil), nil, nil
	}
	return respStrings(v.SetMembersSorted()), nil, nil
}

func respStrings(members []string) command.RespValue {
	out := make([]command.RespValue, len(members))
	for i, m := range members {
		out[i] = command.BulkString([]byte(m))
	}
	return command.Array(out)
}

func sismember(s *ShardState, cmd command.Command) (command.RespValue, *delta.Delta, error) {
	if len(cmd.Args) != 2 {
		return command.ErrWrongNumArgs("sismember").Resp(), nil, nil
	}
	v, absent, errReply, isWT := setAt(s, string(cmd.Args[0]))
	if isWT {
		return errReply, nil, nil
	}
	if absent {
		return command.Integer(0), nil, nil
	}
	if _, ok := v.Set[string(cmd.Args[1])]; ok {
		return command.Integer(1), nil, nil
	}
	return command.Integer(0), nil, nil
}

func scard(s *ShardState, cmd command.Command) (command.RespValue, *delta.Delta, error) {
	if len(cmd.Args) != 1 {
		return command.ErrWrongNumArgs("scard").Resp(), nil, nil
	}
	v, absent, errReply, isWT := setAt(s, string(cmd.Args[0]))
	if isWT {
		return errReply, nil, nil
	}
	if absent {
		return command.Integer(0), nil, nil
	}
	return command.Integer(int64(len(v.Set))), nil, nil
}

func spop(s *ShardState, cmd command.Command) (command.RespValue, *delta.Delta, error) {
	if len(cmd.Args) != 1 {
		return command.ErrWrongNumArgs("spop").Resp(), nil, nil
	}
	key := string(cmd.Args[0])
	v, absent, errReply, isWT := setAt(s, key)
	if isWT {
		return errReply, nil, nil
	}
	if absent {
		return command.NilBulk(), nil, nil
	}
	members := v.SetMembersSorted()
	if len(members) == 0 {
		return command.NilBulk(), nil, nil
	}
	picked := members[0]
	delete(v.Set, picked)
	s.deleteIfEmpty(key)
	bumpMutation(s)
	d := &delta.Delta{
		Key:    key,
		Update: crdt.SetRemove(picked),
		Source: s.Clock.ReplicaID,
		Ts:     s.Clock,
		ID:     delta.ID{Key: key, Seq: s.Clock.Time, Origin: s.Clock.ReplicaID},
	}
	return command.BulkString([]byte(picked)), d, nil
}

func srandmember(s *ShardState, cmd command.Command) (command.RespValue, *delta.Delta, error) {
	if len(cmd.Args) != 1 {
		return command.ErrWrongNumArgs("srandmember").Resp(), nil, nil
	}
	v, absent, errReply, isWT := setAt(s, string(cmd.Args[0]))
	if isWT {
		return errReply, nil, nil
	}
	if absent {
		return command.NilBulk(), nil, nil
	}
	members := v.SetMembersSorted()
	if len(members) == 0 {
		return command.NilBulk(), nil, nil
	}
	return command.BulkString([]byte(members[0])), nil, nil
}

type setCombiner func(sets []map[string]struct{}) []string

func setOp(s *ShardState, cmd command.Command, combine setCombiner) (command.RespValue, *delta.Delta, error) {
	if len(cmd.Args) == 0 {
		return command.ErrWrongNumArgs(cmd.Name).Resp(), nil, nil
	}
	sets := make([]map[string]struct{}, 0, len(cmd.Args))
	for _, k := range cmd.Args {
		key := string(k)
		s.expireIfDue(key)
		v, absent, errReply, isWT := setAt(s, key)
		if isWT {
			return errReply, nil, nil
		}
		if absent {
			sets = append(sets, map[string]struct{}{})
			continue
		}
		sets = append(sets, v.Set)
	}
	return respStrings(combine(sets)), nil, nil
}

func setIntersect(sets []map[string]struct{}) []string {
	if len(sets) == 0 {
		return nil
	}
	var out []string
	for m := range sets[0] {
		inAll := true
		for _, other := range sets[1:] {
			if _, ok := other[m]; !ok {
				inAll = false
				break
			}
		}
		if inAll {
			out = append(out, m)
		}
	}
	sort.Strings(out)
	return out
}

func setUnion(sets []map[string]struct{}) []string {
	seen := make(map[string]struct{})
	for _, m := range sets {
		for k := range m {
			seen[k] = struct{}{}
		}
	}
	out := make([]string, 0, len(seen))
	for k := range seen {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

func setDiff(sets []map[string]struct{}) []string {
	if len(sets) == 0 {
		return nil
	}
	var out []string
	for m := range sets[0] {
		inOther := false
		for _, other := range sets[1:] {
			if _, ok := other[m]; ok {
				inOther = true
				break
			}
		}
		if !inOther {
			out = append(out, m)
		}
	}
	sort.Strings(out)
	return out
}

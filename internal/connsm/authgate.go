package connsm

import (
	"github.com/dreamware/ridgekv/internal/acl"
	"github.com/dreamware/ridgekv/internal/command"
)

// authGate enforces AUTH/ACL before a command reaches the transaction queue
// or the router. It returns handled=true when it has produced a terminal
// NOAUTH/NOPERM reply; otherwise the caller proceeds normally. AUTH, HELLO,
// and PING are never gated — a client must always be able to authenticate
// or probe liveness.
func (c *Connection) authGate(cmd command.Command) (command.RespValue, bool) {
	switch cmd.Kind {
	case command.KindAuth, command.KindHello, command.KindPing:
		return command.RespValue{}, false
	}

	if c.users.RequiresAuth() && c.AuthUser == nil {
		return command.ErrNoAuth.Resp(), true
	}

	user := c.AuthUser
	if user == nil {
		user = c.users.Get("default")
	}

	cat := categoryOf(cmd.Kind)
	if cat != "" && !user.CanRunCategory(cat) {
		return command.ErrNoPerm(cmd.Name).Resp(), true
	}

	if user.RestrictsKeys() {
		for _, key := range keyArgsOf(cmd) {
			if !user.CanAccessKey(key) {
				return (&command.RedisError{Prefix: "NOPERM", Message: "this user has no permissions to access one of the keys used as arguments"}).Resp(), true
			}
		}
	}
	return command.RespValue{}, false
}

// keyArgsOf extracts the key arguments a restricted user's patterns must
// cover, matching each command family's actual argument shape: some
// commands are entirely keys, some interleave keys with values, and most
// address a single key in Args[0] with the rest being values/options.
func keyArgsOf(cmd command.Command) []string {
	switch cmd.Kind {
	case command.KindMGet, command.KindDel, command.KindUnlink, command.KindExists,
		command.KindSInter, command.KindSUnion, command.KindSDiff:
		return argsToKeys(cmd.Args)
	case command.KindMSet, command.KindMSetNX:
		keys := make([]string, 0, len(cmd.Args)/2)
		for i := 0; i+1 < len(cmd.Args); i += 2 {
			keys = append(keys, string(cmd.Args[i]))
		}
		return keys
	case command.KindKeys, command.KindScan, command.KindDBSize, command.KindFlushDB, command.KindFlushAll:
		return nil
	default:
		if len(cmd.Args) == 0 {
			return nil
		}
		return []string{string(cmd.Args[0])}
	}
}

func argsToKeys(args [][]byte) []string {
	out := make([]string, len(args))
	for i, a := range args {
		out[i] = string(a)
	}
	return out
}

// categoryOf maps a command Kind to the ACL category that gates it.
// Transaction/server commands (MULTI, PING, ...) have no category — they
// are never subject to category-level denial, only per-key denial where
// applicable (WATCH, in effect, never denies on keys here since its
// category is empty and it is rarely restricted in practice).
func categoryOf(k command.Kind) acl.Category {
	switch k {
	case command.KindGet, command.KindMGet, command.KindStrlen, command.KindGetRange,
		command.KindExists, command.KindType, command.KindKeys, command.KindScan,
		command.KindTTL, command.KindPTTL, command.KindDBSize,
		command.KindLLen, command.KindLRange, command.KindLIndex,
		command.KindSMembers, command.KindSIsMember, command.KindSCard,
		command.KindSRandMember, command.KindSInter, command.KindSUnion, command.KindSDiff,
		command.KindHGet, command.KindHExists, command.KindHLen, command.KindHGetAll,
		command.KindHKeys, command.KindHVals, command.KindHMGet, command.KindHScan,
		command.KindZScore, command.KindZRank, command.KindZRevRank, command.KindZCard,
		command.KindZRange, command.KindZRangeByScore, command.KindZRangeByLex,
		command.KindZCount, command.KindZLexCount, command.KindZScan:
		return acl.CategoryRead

	case command.KindSet, command.KindSetNX, command.KindSetEX, command.KindPSetEX,
		command.KindMSet, command.KindMSetNX, command.KindAppend, command.KindGetSet,
		command.KindGetDel, command.KindSetRange, command.KindIncr, command.KindDecr,
		command.KindIncrBy, command.KindDecrBy, command.KindIncrByFloat,
		command.KindDel, command.KindUnlink, command.KindRename, command.KindRenameNX,
		command.KindExpire, command.KindPExpire, command.KindExpireAt, command.KindPExpireAt,
		command.KindPersist,
		command.KindLPush, command.KindRPush, command.KindLPop, command.KindRPop,
		command.KindLSet, command.KindLRem, command.KindLTrim, command.KindLPushX, command.KindRPushX,
		command.KindSAdd, command.KindSRem, command.KindSPop,
		command.KindHSet, command.KindHDel, command.KindHIncrBy, command.KindHIncrByFloat,
		command.KindHMSet, command.KindHSetNX,
		command.KindZAdd, command.KindZRem, command.KindZIncrBy, command.KindZPopMin, command.KindZPopMax:
		return acl.CategoryWrite

	case command.KindFlushDB, command.KindFlushAll, command.KindACL, command.KindClient:
		return acl.CategoryAdmin

	case command.KindEval, command.KindEvalSha, command.KindScript:
		return acl.CategoryWrite

	default:
		return ""
	}
}

package command

import "strings"

// Kind is the Command tagged union's discriminant: one value per supported
// Redis command, matching the catalog in spec.md §6 exactly. Grouped by
// family for readability; the numeric values are not wire-visible and carry
// no meaning beyond identity.
type Kind int

const (
	KindUnknown Kind = iota

	// Strings
	KindGet
	KindSet
	KindSetNX
	KindSetEX
	KindPSetEX
	KindMGet
	KindMSet
	KindMSetNX
	KindAppend
	KindStrlen
	KindGetSet
	KindGetDel
	KindGetRange
	KindSetRange
	KindIncr
	KindDecr
	KindIncrBy
	KindDecrBy
	KindIncrByFloat

	// Keys
	KindDel
	KindUnlink
	KindExists
	KindType
	KindKeys
	KindScan
	KindRename
	KindRenameNX
	KindExpire
	KindPExpire
	KindExpireAt
	KindPExpireAt
	KindTTL
	KindPTTL
	KindPersist
	KindDBSize
	KindFlushDB
	KindFlushAll

	// Lists
	KindLPush
	KindRPush
	KindLPop
	KindRPop
	KindLLen
	KindLRange
	KindLIndex
	KindLSet
	KindLRem
	KindLTrim
	KindLPushX
	KindRPushX

	// Sets
	KindSAdd
	KindSRem
	KindSMembers
	KindSIsMember
	KindSCard
	KindSPop
	KindSRandMember
	KindSInter
	KindSUnion
	KindSDiff

	// Hashes
	KindHSet
	KindHGet
	KindHDel
	KindHExists
	KindHLen
	KindHGetAll
	KindHKeys
	KindHVals
	KindHIncrBy
	KindHIncrByFloat
	KindHMGet
	KindHMSet
	KindHSetNX
	KindHScan

	// Sorted sets
	KindZAdd
	KindZRem
	KindZScore
	KindZRank
	KindZRevRank
	KindZCard
	KindZRange
	KindZRangeByScore
	KindZRangeByLex
	KindZIncrBy
	KindZPopMin
	KindZPopMax
	KindZCount
	KindZLexCount
	KindZScan

	// Transactions
	KindMulti
	KindExec
	KindDiscard
	KindWatch
	KindUnwatch

	// Scripting (single-shard only; cross-shard keys error, see spec.md §9)
	KindEval
	KindEvalSha
	KindScript

	// Server
	KindPing
	KindEcho
	KindInfo
	KindClient
	KindHello
	KindSelect
	KindAuth
	KindACL
)

// Command is a parsed request: a Kind plus its raw argument bytes
// (excluding the command name itself). It is the boundary object the
// out-of-scope RESP parser hands to the connection state machine — see
// spec.md §1.
type Command struct {
	Name string
	Args [][]byte
	Kind Kind
}

var nameToKind = map[string]Kind{
	"GET": KindGet, "SET": KindSet, "SETNX": KindSetNX, "SETEX": KindSetEX,
	"PSETEX": KindPSetEX, "MGET": KindMGet, "MSET": KindMSet, "MSETNX": KindMSetNX,
	"APPEND": KindAppend, "STRLEN": KindStrlen, "GETSET": KindGetSet,
	"GETDEL": KindGetDel, "GETRANGE": KindGetRange, "SETRANGE": KindSetRange,
	"INCR": KindIncr, "DECR": KindDecr, "INCRBY": KindIncrBy, "DECRBY": KindDecrBy,
	"INCRBYFLOAT": KindIncrByFloat,

	"DEL": KindDel, "UNLINK": KindUnlink, "EXISTS": KindExists, "TYPE": KindType,
	"KEYS": KindKeys, "SCAN": KindScan, "RENAME": KindRename, "RENAMENX": KindRenameNX,
	"EXPIRE": KindExpire, "PEXPIRE": KindPExpire, "EXPIREAT": KindExpireAt,
	"PEXPIREAT": KindPExpireAt, "TTL": KindTTL, "PTTL": KindPTTL, "PERSIST": KindPersist,
	"DBSIZE": KindDBSize, "FLUSHDB": KindFlushDB, "FLUSHALL": KindFlushAll,

	"LPUSH": KindLPush, "RPUSH": KindRPush, "LPOP": KindLPop, "RPOP": KindRPop,
	"LLEN": KindLLen, "LRANGE": KindLRange, "LINDEX": KindLIndex, "LSET": KindLSet,
	"LREM": KindLRem, "LTRIM": KindLTrim, "LPUSHX": KindLPushX, "RPUSHX": KindRPushX,

	"SADD": KindSAdd, "SREM": KindSRem, "SMEMBERS": KindSMembers,
	"SISMEMBER": KindSIsMember, "SCARD": KindSCard, "SPOP": KindSPop,
	"SRANDMEMBER": KindSRandMember, "SINTER": KindSInter, "SUNION": KindSUnion,
	"SDIFF": KindSDiff,

	"HSET": KindHSet, "HGET": KindHGet, "HDEL": KindHDel, "HEXISTS": KindHExists,
	"HLEN": KindHLen, "HGETALL": KindHGetAll, "HKEYS": KindHKeys, "HVALS": KindHVals,
	"HINCRBY": KindHIncrBy, "HINCRBYFLOAT": KindHIncrByFloat, "HMGET": KindHMGet,
	"HMSET": KindHMSet, "HSETNX": KindHSetNX, "HSCAN": KindHScan,

	"ZADD": KindZAdd, "ZREM": KindZRem, "ZSCORE": KindZScore, "ZRANK": KindZRank,
	"ZREVRANK": KindZRevRank, "ZCARD": KindZCard, "ZRANGE": KindZRange,
	"ZRANGEBYSCORE": KindZRangeByScore, "ZRANGEBYLEX": KindZRangeByLex,
	"ZINCRBY": KindZIncrBy, "ZPOPMIN": KindZPopMin, "ZPOPMAX": KindZPopMax,
	"ZCOUNT": KindZCount, "ZLEXCOUNT": KindZLexCount, "ZSCAN": KindZScan,

	"MULTI": KindMulti, "EXEC": KindExec, "DISCARD": KindDiscard,
	"WATCH": KindWatch, "UNWATCH": KindUnwatch,

	"EVAL": KindEval, "EVALSHA": KindEvalSha, "SCRIPT": KindScript,

	"PING": KindPing, "ECHO": KindEcho, "INFO": KindInfo, "CLIENT": KindClient,
	"HELLO": KindHello, "SELECT": KindSelect, "AUTH": KindAuth, "ACL": KindACL,
}

// Parse turns a command name and its argument bytes into a Command. An
// unrecognized name yields KindUnknown, not an error — the caller (the
// connection state machine) is responsible for turning that into the
// ErrUnknownCommand wire reply, since only it knows the original name to
// quote back to the client.
func Parse(name string, args [][]byte) Command {
	upper := strings.ToUpper(name)
	kind := nameToKind[upper]
	return Command{Name: upper, Args: args, Kind: kind}
}

// MutatesData reports whether cmd, on success, may mutate the keyspace.
// Read-only commands and the transaction/server/scripting control commands
// never do. Not every mutating kind yields a ReplicationDelta: the executor
// emits one only for the string writes, the INCR family and SADD/SREM/SPOP.
func (k Kind) MutatesData() bool {
	switch k {
	case KindSet, KindSetNX, KindSetEX, KindPSetEX, KindMSet, KindMSetNX,
		KindAppend, KindGetSet, KindGetDel, KindSetRange, KindIncr, KindDecr,
		KindIncrBy, KindDecrBy, KindIncrByFloat,
		KindDel, KindUnlink, KindRename, KindRenameNX, KindExpire, KindPExpire,
		KindExpireAt, KindPExpireAt, KindPersist, KindFlushDB, KindFlushAll,
		KindLPush, KindRPush, KindLPop, KindRPop, KindLSet, KindLRem, KindLTrim,
		KindLPushX, KindRPushX,
		KindSAdd, KindSRem, KindSPop,
		KindHSet, KindHDel, KindHIncrBy, KindHIncrByFloat, KindHMSet, KindHSetNX,
		KindZAdd, KindZRem, KindZIncrBy, KindZPopMin, KindZPopMax:
		return true
	default:
		return false
	}
}

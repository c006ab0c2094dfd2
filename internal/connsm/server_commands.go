package connsm

import (
	"strconv"
	"strings"

	"github.com/dreamware/ridgekv/internal/acl"
	"github.com/dreamware/ridgekv/internal/command"
)

// handleConnectionLevel answers the commands internal/executor deliberately
// refuses to process — connection and server-identity commands that never
// touch a shard's keyspace. handled is false for everything else, letting
// the caller fall through to the transaction/auth/dispatch path.
func (c *Connection) handleConnectionLevel(cmd command.Command) (command.RespValue, bool) {
	switch cmd.Kind {
	case command.KindPing:
		if len(cmd.Args) == 0 {
			return command.SimpleString("PONG"), true
		}
		return command.BulkString(cmd.Args[0]), true
	case command.KindEcho:
		if len(cmd.Args) != 1 {
			return command.ErrWrongNumArgs("echo").Resp(), true
		}
		return command.BulkString(cmd.Args[0]), true
	case command.KindSelect:
		// Only database 0 exists — ridgekv has no SELECT-able keyspaces.
		if len(cmd.Args) == 1 && string(cmd.Args[0]) == "0" {
			return command.OK, true
		}
		return (&command.RedisError{Prefix: "ERR", Message: "SELECT is not allowed in this context"}).Resp(), true
	case command.KindClient:
		return c.client(cmd), true
	case command.KindHello:
		return c.hello(), true
	case command.KindInfo:
		return command.BulkString([]byte("# Server\r\nridgekv_mode:standalone\r\n")), true
	case command.KindAuth:
		return c.auth(cmd), true
	case command.KindACL:
		return c.acl(cmd), true
	}
	return command.RespValue{}, false
}

func (c *Connection) client(cmd command.Command) command.RespValue {
	if len(cmd.Args) == 0 {
		return command.ErrWrongNumArgs("client").Resp()
	}
	switch strings.ToUpper(string(cmd.Args[0])) {
	case "SETNAME", "SETINFO":
		return command.OK
	case "GETNAME":
		return command.BulkString(nil)
	case "ID":
		return command.Integer(0)
	case "LIST":
		return command.BulkString(nil)
	case "NO-EVICT", "NO-TOUCH":
		return command.OK
	}
	return command.ErrSyntax.Resp()
}

// hello answers with the minimal RESP2 handshake map a client's HELLO
// expects; RESP3 negotiation is out of scope (spec.md's RespValue has no
// map/double/set variants), so ridgekv always answers as a RESP2 server.
func (c *Connection) hello() command.RespValue {
	return command.Array([]command.RespValue{
		command.BulkString([]byte("server")), command.BulkString([]byte("ridgekv")),
		command.BulkString([]byte("proto")), command.Integer(2),
		command.BulkString([]byte("mode")), command.BulkString([]byte("standalone")),
	})
}

func (c *Connection) auth(cmd command.Command) command.RespValue {
	var name, password string
	switch len(cmd.Args) {
	case 1:
		name, password = "default", string(cmd.Args[0])
	case 2:
		name, password = string(cmd.Args[0]), string(cmd.Args[1])
	default:
		return command.ErrWrongNumArgs("auth").Resp()
	}
	u, ok := c.users.Authenticate(name, password)
	if !ok {
		return (&command.RedisError{Prefix: "WRONGPASS", Message: "invalid username-password pair or user is disabled."}).Resp()
	}
	c.AuthUser = u
	return command.OK
}

func (c *Connection) acl(cmd command.Command) command.RespValue {
	if len(cmd.Args) == 0 {
		return command.ErrWrongNumArgs("acl").Resp()
	}
	switch strings.ToUpper(string(cmd.Args[0])) {
	case "WHOAMI":
		if c.AuthUser == nil {
			return command.BulkString([]byte("default"))
		}
		return command.BulkString([]byte(c.AuthUser.Name))
	case "LIST":
		users := c.users.List()
		out := make([]command.RespValue, len(users))
		for i, u := range users {
			out[i] = command.BulkString([]byte(describeUser(u)))
		}
		return command.Array(out)
	case "CAT":
		return command.Array([]command.RespValue{
			command.BulkString([]byte("read")), command.BulkString([]byte("write")),
			command.BulkString([]byte("admin")), command.BulkString([]byte("keyspace")),
			command.BulkString([]byte("connection")),
		})
	case "SETUSER":
		return c.aclSetUser(cmd.Args[1:])
	case "DELUSER":
		var n int64
		for _, a := range cmd.Args[1:] {
			if c.users.DeleteUser(string(a)) {
				n++
			}
		}
		return command.Integer(n)
	}
	return command.ErrSyntax.Resp()
}

// aclSetUser parses a minimal subset of Redis's ACL SETUSER grammar: on,
// off, >password, and ~pattern clauses, plus +@category/-@category toggles.
// Rule ordering, selectors, and the full command-name-level grant language
// are an explicit non-goal.
func (c *Connection) aclSetUser(args [][]byte) command.RespValue {
	if len(args) == 0 {
		return command.ErrWrongNumArgs("acl|setuser").Resp()
	}
	name := string(args[0])
	u := c.users.Get(name)
	if u == nil {
		u = &acl.User{Name: name, Categories: make(map[acl.Category]bool)}
	}
	for _, raw := range args[1:] {
		tok := string(raw)
		switch {
		case tok == "on":
			u.Enabled = true
		case tok == "off":
			u.Enabled = false
		case strings.HasPrefix(tok, ">"):
			u.Password = tok[1:]
		case strings.HasPrefix(tok, "~"):
			u.KeyPatterns = append(u.KeyPatterns, tok[1:])
		case strings.HasPrefix(tok, "+@"):
			u.Categories[acl.Category("@"+tok[2:])] = true
		case strings.HasPrefix(tok, "-@"):
			delete(u.Categories, acl.Category("@"+tok[2:]))
		}
	}
	c.users.SetUser(u)
	return command.OK
}

func describeUser(u *acl.User) string {
	status := "off"
	if u.Enabled {
		status = "on"
	}
	return "user " + u.Name + " " + status + " keys:" + strconv.Itoa(len(u.KeyPatterns))
}

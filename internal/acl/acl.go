// Package acl implements per-connection authentication and authorization:
// users, command categories, and key-pattern permissions, gating each
// command the connection state machine dispatches.
package acl

import (
	"path"
	"sync"
)

// Category groups commands for coarse-grained ACL rules, mirroring Redis's
// @read/@write/@admin/@keyspace categories closely enough for this spec's
// scope.
type Category string

const (
	CategoryRead      Category = "@read"
	CategoryWrite     Category = "@write"
	CategoryAdmin     Category = "@admin"
	CategoryKeyspace  Category = "@keyspace"
	CategoryConnection Category = "@connection"
)

// User is one ACL identity: a password (plaintext here — TLS/ACL transport
// hardening is an out-of-scope external collaborator per spec.md §1), the
// categories it may invoke, and glob key patterns it may touch. A nil
// KeyPatterns means "all keys", matching Redis's default `~*` pattern.
type User struct {
	Name        string
	Password    string
	Categories  map[Category]bool
	KeyPatterns []string
	Enabled     bool
}

// CanRunCategory reports whether the user may invoke a command in the given
// category.
func (u *User) CanRunCategory(c Category) bool {
	if u == nil {
		return false
	}
	return u.Categories[c]
}

// CanAccessKey reports whether the user's key patterns permit key. A user
// with no patterns configured is granted access to every key (matching a
// freshly SETUSER'd user before any `~pattern` clause is added — ridgekv's
// default user is seeded with `~*` so this only matters for custom users).
func (u *User) CanAccessKey(key string) bool {
	if u == nil {
		return false
	}
	if len(u.KeyPatterns) == 0 {
		return true
	}
	for _, pat := range u.KeyPatterns {
		if pat == "*" {
			return true
		}
		if ok, _ := path.Match(pat, key); ok {
			return true
		}
	}
	return false
}

// RestrictsKeys reports whether the user has anything narrower than "~*",
// which the connection state machine's fast path must check before
// bypassing full Command construction (spec.md §4.2).
func (u *User) RestrictsKeys() bool {
	if u == nil {
		return true
	}
	for _, pat := range u.KeyPatterns {
		if pat == "*" {
			return false
		}
	}
	return true
}

// Registry owns every configured user, protected by a mutex since ACL
// SETUSER/DELUSER can run concurrently with connection authentication on
// other connections. Short-lived read locks here are the one exception to
// "no mutex in the hot data path" — ACL checks are explicitly called out in
// spec.md §5 as acceptable at the connection level.
type Registry struct {
	mu    sync.RWMutex
	users map[string]*User
}

// NewRegistry returns a registry seeded with the default superuser, who may
// run every category against every key, matching Redis's default `default`
// user before `requirepass` is configured.
func NewRegistry() *Registry {
	r := &Registry{users: make(map[string]*User)}
	r.users["default"] = &User{
		Name:    "default",
		Enabled: true,
		Categories: map[Category]bool{
			CategoryRead: true, CategoryWrite: true, CategoryAdmin: true,
			CategoryKeyspace: true, CategoryConnection: true,
		},
		KeyPatterns: []string{"*"},
	}
	return r
}

// Get returns a user by name, or nil if none is registered.
func (r *Registry) Get(name string) *User {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.users[name]
}

// SetUser creates or replaces a user definition.
func (r *Registry) SetUser(u *User) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.users[u.Name] = u
}

// DeleteUser removes a user, returning whether one existed.
func (r *Registry) DeleteUser(name string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.users[name]; !ok {
		return false
	}
	delete(r.users, name)
	return true
}

// List returns every registered user, in no particular order.
func (r *Registry) List() []*User {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*User, 0, len(r.users))
	for _, u := range r.users {
		out = append(out, u)
	}
	return out
}

// Authenticate checks a password against a named user and returns the user
// on success.
func (r *Registry) Authenticate(name, password string) (*User, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	u, ok := r.users[name]
	if !ok || !u.Enabled || u.Password != password {
		return nil, false
	}
	return u, true
}

// RequiresAuth reports whether the default user has a password configured,
// matching Redis's "no requirepass means no AUTH needed" behavior: a fresh
// registry's default user has an empty password, so new connections start
// pre-authenticated as default until an operator sets one.
func (r *Registry) RequiresAuth() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	def, ok := r.users["default"]
	return ok && def.Password != ""
}

// Package state holds the entity cache: one table per entity kind mapping
// IDs to the latest immutable snapshot. The session read loop is the sole
// writer; readers get copied snapshots under a read lock and never block
// the writer for longer than one map access.
package state

import (
	"sync"

	"github.com/LimeProgramming/defectio"
)

// entity is the shared identity capability every snapshot type implements.
type entity interface {
	EntityID() string
}

// table is a generic per-kind snapshot container. Writes return the
// previous snapshot so the caller can capture before/after pairs in the
// same logical step as the commit.
type table[T entity] struct {
	mu    sync.RWMutex
	items map[string]T
}

func newTable[T entity]() *table[T] {
	return &table[T]{items: make(map[string]T)}
}

func (t *table[T]) get(key string) (T, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	v, ok := t.items[key]
	return v, ok
}

func (t *table[T]) put(v T) (prev T, existed bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	prev, existed = t.items[v.EntityID()]
	t.items[v.EntityID()] = v
	return prev, existed
}

func (t *table[T]) delete(key string) (prev T, existed bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	prev, existed = t.items[key]
	delete(t.items, key)
	return prev, existed
}

// deleteWhere removes every snapshot matching pred and returns the removed
// values.
func (t *table[T]) deleteWhere(pred func(T) bool) []T {
	t.mu.Lock()
	defer t.mu.Unlock()
	var removed []T
	for key, v := range t.items {
		if pred(v) {
			removed = append(removed, v)
			delete(t.items, key)
		}
	}
	return removed
}

func (t *table[T]) reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.items = make(map[string]T)
}

func (t *table[T]) len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.items)
}

// Cache is the session's entity cache. Users, servers, channels, roles,
// members and relationships are unbounded (their cardinality is small);
// messages are bounded per channel with oldest-first eviction.
type Cache struct {
	mu     sync.RWMutex
	selfID string

	users         *table[defectio.User]
	servers       *table[defectio.Server]
	channels      *table[defectio.Channel]
	members       *table[defectio.Member]
	roles         *table[defectio.Role]
	relationships *table[defectio.Relationship]
	messages      *messageStore
}

// New returns an empty cache holding at most maxMessages messages per
// channel.
func New(maxMessages int) *Cache {
	return &Cache{
		users:         newTable[defectio.User](),
		servers:       newTable[defectio.Server](),
		channels:      newTable[defectio.Channel](),
		members:       newTable[defectio.Member](),
		roles:         newTable[defectio.Role](),
		relationships: newTable[defectio.Relationship](),
		messages:      newMessageStore(maxMessages),
	}
}

// Clear drops every snapshot. Used when a session starts fresh.
func (c *Cache) Clear() {
	c.mu.Lock()
	c.selfID = ""
	c.mu.Unlock()

	c.users.reset()
	c.servers.reset()
	c.channels.reset()
	c.members.reset()
	c.roles.reset()
	c.relationships.reset()
	c.messages.reset()
}

func (c *Cache) SetSelfID(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.selfID = id
}

func (c *Cache) SelfID() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.selfID
}

func (c *Cache) User(id string) (defectio.User, bool) { return c.users.get(id) }

func (c *Cache) PutUser(u defectio.User) (defectio.User, bool) { return c.users.put(u) }

func (c *Cache) Server(id string) (defectio.Server, bool) { return c.servers.get(id) }

func (c *Cache) PutServer(s defectio.Server) (defectio.Server, bool) { return c.servers.put(s) }

// DeleteServer removes a server and cascades to its channels, members,
// roles and message history.
func (c *Cache) DeleteServer(id string) (defectio.Server, bool) {
	prev, existed := c.servers.delete(id)

	removed := c.channels.deleteWhere(func(ch defectio.Channel) bool { return ch.ServerID == id })
	for _, ch := range removed {
		c.messages.dropChannel(ch.ID)
	}
	c.members.deleteWhere(func(m defectio.Member) bool { return m.ID.Server == id })
	c.roles.deleteWhere(func(r defectio.Role) bool { return r.ServerID == id })

	return prev, existed
}

func (c *Cache) Channel(id string) (defectio.Channel, bool) { return c.channels.get(id) }

func (c *Cache) PutChannel(ch defectio.Channel) (defectio.Channel, bool) { return c.channels.put(ch) }

// DeleteChannel removes a channel and its message history.
func (c *Cache) DeleteChannel(id string) (defectio.Channel, bool) {
	prev, existed := c.channels.delete(id)
	c.messages.dropChannel(id)
	return prev, existed
}

func (c *Cache) Member(serverID, userID string) (defectio.Member, bool) {
	return c.members.get(serverID + "/" + userID)
}

func (c *Cache) PutMember(m defectio.Member) (defectio.Member, bool) { return c.members.put(m) }

func (c *Cache) DeleteMember(serverID, userID string) (defectio.Member, bool) {
	return c.members.delete(serverID + "/" + userID)
}

func (c *Cache) Role(serverID, roleID string) (defectio.Role, bool) {
	return c.roles.get(serverID + "/" + roleID)
}

func (c *Cache) PutRole(r defectio.Role) (defectio.Role, bool) { return c.roles.put(r) }

func (c *Cache) DeleteRole(serverID, roleID string) (defectio.Role, bool) {
	return c.roles.delete(serverID + "/" + roleID)
}

func (c *Cache) Relationship(userID string) (defectio.Relationship, bool) {
	return c.relationships.get(userID)
}

func (c *Cache) PutRelationship(r defectio.Relationship) (defectio.Relationship, bool) {
	return c.relationships.put(r)
}

func (c *Cache) Message(channelID, messageID string) (defectio.Message, bool) {
	return c.messages.get(channelID, messageID)
}

func (c *Cache) PutMessage(m defectio.Message) (defectio.Message, bool) { return c.messages.put(m) }

func (c *Cache) DeleteMessage(channelID, messageID string) (defectio.Message, bool) {
	return c.messages.delete(channelID, messageID)
}

// MessageCount reports how many messages are cached for one channel.
func (c *Cache) MessageCount(channelID string) int { return c.messages.count(channelID) }

// SeedReady ingests the bulk snapshot of a fresh session. The previous
// contents are dropped first; roles embedded in server payloads are indexed
// into the role table.
func (c *Cache) SeedReady(users []defectio.User, servers []defectio.Server, channels []defectio.Channel, members []defectio.Member) {
	c.Clear()

	for _, u := range users {
		c.users.put(u)
	}
	for _, s := range servers {
		c.servers.put(s)
		for roleID, role := range s.Roles {
			role.ServerID = s.ID
			role.ID = roleID
			c.roles.put(role)
		}
	}
	for _, ch := range channels {
		c.channels.put(ch)
	}
	for _, m := range members {
		c.members.put(m)
	}
}

package defectio

// Event is the closed set of notifications a session publishes to
// subscribers. Every event type is a plain value carrying snapshots (or, for
// the raw variants, IDs plus the sparse wire payload).
//
// Update events come in two forms: a cache-aware form carrying the previous
// and the new snapshot, published only when the entity was cached at the
// time the event arrived, and a raw form carrying only IDs and the patch,
// published for every update regardless of cache contents. Subscribers that
// must see every update listen to the raw form; subscribers that want
// before/after pairs listen to the cache-aware form.
type Event interface {
	EventKind() EventKind
}

// EventKind names one notification type for subscription routing.
type EventKind string

const (
	KindReady               EventKind = "ready"
	KindSessionDisconnected EventKind = "session_disconnected"
	KindSessionReconnected  EventKind = "session_reconnected"

	KindMessageCreated    EventKind = "message_created"
	KindMessageUpdated    EventKind = "message_updated"
	KindMessageUpdatedRaw EventKind = "message_updated_raw"
	KindMessageDeleted    EventKind = "message_deleted"
	KindMessageDeletedRaw EventKind = "message_deleted_raw"

	KindChannelCreated    EventKind = "channel_created"
	KindChannelUpdated    EventKind = "channel_updated"
	KindChannelUpdatedRaw EventKind = "channel_updated_raw"
	KindChannelDeleted    EventKind = "channel_deleted"
	KindChannelDeletedRaw EventKind = "channel_deleted_raw"

	KindGroupJoined EventKind = "group_joined"
	KindGroupLeft   EventKind = "group_left"

	KindTypingStarted EventKind = "typing_started"
	KindTypingStopped EventKind = "typing_stopped"
	KindChannelAcked  EventKind = "channel_acked"

	KindServerUpdated    EventKind = "server_updated"
	KindServerUpdatedRaw EventKind = "server_updated_raw"
	KindServerDeleted    EventKind = "server_deleted"
	KindServerDeletedRaw EventKind = "server_deleted_raw"

	KindMemberJoined     EventKind = "member_joined"
	KindMemberLeft       EventKind = "member_left"
	KindMemberUpdated    EventKind = "member_updated"
	KindMemberUpdatedRaw EventKind = "member_updated_raw"

	KindRoleUpdated    EventKind = "role_updated"
	KindRoleUpdatedRaw EventKind = "role_updated_raw"
	KindRoleDeleted    EventKind = "role_deleted"

	KindUserUpdated        EventKind = "user_updated"
	KindUserUpdatedRaw     EventKind = "user_updated_raw"
	KindRelationshipChange EventKind = "relationship_change"
)

// ReadyEvent fires once the bulk snapshot of a fresh session has been fully
// ingested into the cache. Every ID it references is cache-resolvable at the
// instant the event is observed.
type ReadyEvent struct {
	SelfID   string
	Users    []User
	Servers  []Server
	Channels []Channel
	Members  []Member
}

func (ReadyEvent) EventKind() EventKind { return KindReady }

// SessionDisconnected reports a connection loss. Terminal is true when the
// session will not reconnect (logout or fatal auth failure).
type SessionDisconnected struct {
	Disconnect
	Terminal bool
}

func (SessionDisconnected) EventKind() EventKind { return KindSessionDisconnected }

// SessionReconnected reports a re-established connection. Resumed is true
// when the previous session was continued and the cache was preserved; false
// means a fresh session whose ReadyEvent follows.
type SessionReconnected struct {
	Resumed bool
}

func (SessionReconnected) EventKind() EventKind { return KindSessionReconnected }

type MessageCreated struct {
	Message Message
}

func (MessageCreated) EventKind() EventKind { return KindMessageCreated }

type MessageUpdated struct {
	Before Message
	After  Message
}

func (MessageUpdated) EventKind() EventKind { return KindMessageUpdated }

type MessageUpdatedRaw struct {
	ChannelID string
	MessageID string
	Patch     MessagePatch
	Clear     []string
}

func (MessageUpdatedRaw) EventKind() EventKind { return KindMessageUpdatedRaw }

type MessageDeleted struct {
	Message Message
}

func (MessageDeleted) EventKind() EventKind { return KindMessageDeleted }

type MessageDeletedRaw struct {
	ChannelID string
	MessageID string
}

func (MessageDeletedRaw) EventKind() EventKind { return KindMessageDeletedRaw }

type ChannelCreated struct {
	Channel Channel
}

func (ChannelCreated) EventKind() EventKind { return KindChannelCreated }

type ChannelUpdated struct {
	Before Channel
	After  Channel
}

func (ChannelUpdated) EventKind() EventKind { return KindChannelUpdated }

type ChannelUpdatedRaw struct {
	ChannelID string
	Patch     ChannelPatch
	Clear     []string
}

func (ChannelUpdatedRaw) EventKind() EventKind { return KindChannelUpdatedRaw }

type ChannelDeleted struct {
	Channel Channel
}

func (ChannelDeleted) EventKind() EventKind { return KindChannelDeleted }

type ChannelDeletedRaw struct {
	ChannelID string
}

func (ChannelDeletedRaw) EventKind() EventKind { return KindChannelDeletedRaw }

type GroupJoined struct {
	ChannelID string
	UserID    string
}

func (GroupJoined) EventKind() EventKind { return KindGroupJoined }

type GroupLeft struct {
	ChannelID string
	UserID    string
}

func (GroupLeft) EventKind() EventKind { return KindGroupLeft }

type TypingStarted struct {
	ChannelID string
	UserID    string
}

func (TypingStarted) EventKind() EventKind { return KindTypingStarted }

type TypingStopped struct {
	ChannelID string
	UserID    string
}

func (TypingStopped) EventKind() EventKind { return KindTypingStopped }

// ChannelAcked reports a read-acknowledgement up to MessageID.
type ChannelAcked struct {
	ChannelID string
	UserID    string
	MessageID string
}

func (ChannelAcked) EventKind() EventKind { return KindChannelAcked }

type ServerUpdated struct {
	Before Server
	After  Server
}

func (ServerUpdated) EventKind() EventKind { return KindServerUpdated }

type ServerUpdatedRaw struct {
	ServerID string
	Patch    ServerPatch
	Clear    []string
}

func (ServerUpdatedRaw) EventKind() EventKind { return KindServerUpdatedRaw }

type ServerDeleted struct {
	Server Server
}

func (ServerDeleted) EventKind() EventKind { return KindServerDeleted }

type ServerDeletedRaw struct {
	ServerID string
}

func (ServerDeletedRaw) EventKind() EventKind { return KindServerDeletedRaw }

type MemberJoined struct {
	Member Member
}

func (MemberJoined) EventKind() EventKind { return KindMemberJoined }

// MemberLeft carries the last cached snapshot when one existed.
type MemberLeft struct {
	ServerID string
	UserID   string
	Member   *Member
}

func (MemberLeft) EventKind() EventKind { return KindMemberLeft }

type MemberUpdated struct {
	Before Member
	After  Member
}

func (MemberUpdated) EventKind() EventKind { return KindMemberUpdated }

type MemberUpdatedRaw struct {
	ID    MemberID
	Patch MemberPatch
	Clear []string
}

func (MemberUpdatedRaw) EventKind() EventKind { return KindMemberUpdatedRaw }

type RoleUpdated struct {
	Before Role
	After  Role
}

func (RoleUpdated) EventKind() EventKind { return KindRoleUpdated }

type RoleUpdatedRaw struct {
	ServerID string
	RoleID   string
	Patch    RolePatch
	Clear    []string
}

func (RoleUpdatedRaw) EventKind() EventKind { return KindRoleUpdatedRaw }

type RoleDeleted struct {
	ServerID string
	RoleID   string
	Role     *Role
}

func (RoleDeleted) EventKind() EventKind { return KindRoleDeleted }

type UserUpdated struct {
	Before User
	After  User
}

func (UserUpdated) EventKind() EventKind { return KindUserUpdated }

type UserUpdatedRaw struct {
	UserID string
	Patch  UserPatch
	Clear  []string
}

func (UserUpdatedRaw) EventKind() EventKind { return KindUserUpdatedRaw }

// RelationshipChange reports the new relation to another user.
type RelationshipChange struct {
	UserID string
	Status RelationshipStatus
}

func (RelationshipChange) EventKind() EventKind { return KindRelationshipChange }

package wire

import "github.com/LimeProgramming/defectio"

// Inbound event tags. The set is closed: the dispatcher maps each tag to
// exactly one decode+apply handler and ignores tags outside this list.
const (
	TagAuthenticated = "Authenticated"
	TagError         = "Error"
	TagPong          = "Pong"
	TagReady         = "Ready"
	TagResumed       = "Resumed"

	TagMessage       = "Message"
	TagMessageUpdate = "MessageUpdate"
	TagMessageDelete = "MessageDelete"

	TagChannelCreate      = "ChannelCreate"
	TagChannelUpdate      = "ChannelUpdate"
	TagChannelDelete      = "ChannelDelete"
	TagChannelGroupJoin   = "ChannelGroupJoin"
	TagChannelGroupLeave  = "ChannelGroupLeave"
	TagChannelStartTyping = "ChannelStartTyping"
	TagChannelStopTyping  = "ChannelStopTyping"
	TagChannelAck         = "ChannelAck"

	TagServerUpdate       = "ServerUpdate"
	TagServerDelete       = "ServerDelete"
	TagServerMemberJoin   = "ServerMemberJoin"
	TagServerMemberLeave  = "ServerMemberLeave"
	TagServerMemberUpdate = "ServerMemberUpdate"
	TagServerRoleUpdate   = "ServerRoleUpdate"
	TagServerRoleDelete   = "ServerRoleDelete"

	TagUserUpdate       = "UserUpdate"
	TagUserRelationship = "UserRelationship"
)

// Outbound frame tags.
const (
	TagAuthenticate = "Authenticate"
	TagPing         = "Ping"
	TagBeginTyping  = "BeginTyping"
	TagEndTyping    = "EndTyping"
)

// Authenticate opens a session. Bots authenticate with Token, user accounts
// with the UserID/SessionToken pair. A resume attempt additionally carries
// the previous session's SessionID and the last-seen sequence number.
type Authenticate struct {
	Type         string `json:"type"`
	Token        string `json:"token,omitempty"`
	UserID       string `json:"user_id,omitempty"`
	SessionToken string `json:"session_token,omitempty"`
	SessionID    string `json:"session_id,omitempty"`
	Seq          int64  `json:"seq,omitempty"`
}

// Ping is the heartbeat frame; Data is the sequence number the server must
// echo in its Pong.
type Ping struct {
	Type string `json:"type"`
	Data int64  `json:"data"`
}

// NewPing builds a heartbeat frame for seq.
func NewPing(seq int64) Ping { return Ping{Type: TagPing, Data: seq} }

// Typing is the BeginTyping/EndTyping command frame.
type Typing struct {
	Type    string `json:"type"`
	Channel string `json:"channel"`
}

// Authenticated acknowledges a successful authenticate. The server dictates
// the heartbeat interval here; a zero value means the client falls back to
// its default. SessionID is the resume token for this session.
type Authenticated struct {
	Type                string `json:"type"`
	SessionID           string `json:"session_id,omitempty"`
	HeartbeatIntervalMS int64  `json:"heartbeat_interval_ms,omitempty"`
}

// GatewayError is the server's rejection frame.
type GatewayError struct {
	Type  string `json:"type"`
	Error string `json:"error"`
}

// Pong acknowledges the heartbeat carrying the same sequence number.
type Pong struct {
	Type string `json:"type"`
	Data int64  `json:"data"`
}

// Ready is the bulk snapshot seeding the cache of a fresh session.
type Ready struct {
	Type     string             `json:"type"`
	Users    []defectio.User    `json:"users"`
	Servers  []defectio.Server  `json:"servers"`
	Channels []defectio.Channel `json:"channels"`
	Members  []defectio.Member  `json:"members"`
}

// Resumed acknowledges a successful resume; missed events are replayed as
// ordinary frames after it.
type Resumed struct {
	Type string `json:"type"`
	Seq  int64  `json:"seq,omitempty"`
}

type MessageUpdate struct {
	Type    string                `json:"type"`
	ID      string                `json:"id"`
	Channel string                `json:"channel"`
	Data    defectio.MessagePatch `json:"data"`
	Clear   []string              `json:"clear,omitempty"`
}

type MessageDelete struct {
	Type    string `json:"type"`
	ID      string `json:"id"`
	Channel string `json:"channel"`
}

type ChannelUpdate struct {
	Type  string                `json:"type"`
	ID    string                `json:"id"`
	Data  defectio.ChannelPatch `json:"data"`
	Clear []string              `json:"clear,omitempty"`
}

type ChannelDelete struct {
	Type string `json:"type"`
	ID   string `json:"id"`
}

type ChannelGroupJoin struct {
	Type string `json:"type"`
	ID   string `json:"id"`
	User string `json:"user"`
}

type ChannelGroupLeave struct {
	Type string `json:"type"`
	ID   string `json:"id"`
	User string `json:"user"`
}

type ChannelTyping struct {
	Type string `json:"type"`
	ID   string `json:"id"`
	User string `json:"user"`
}

type ChannelAck struct {
	Type      string `json:"type"`
	ID        string `json:"id"`
	User      string `json:"user"`
	MessageID string `json:"message_id"`
}

type ServerUpdate struct {
	Type  string               `json:"type"`
	ID    string               `json:"id"`
	Data  defectio.ServerPatch `json:"data"`
	Clear []string             `json:"clear,omitempty"`
}

type ServerDelete struct {
	Type string `json:"type"`
	ID   string `json:"id"`
}

// ServerMemberJoin: ID is the server, User the joining user.
type ServerMemberJoin struct {
	Type string `json:"type"`
	ID   string `json:"id"`
	User string `json:"user"`
}

type ServerMemberLeave struct {
	Type string `json:"type"`
	ID   string `json:"id"`
	User string `json:"user"`
}

type ServerMemberUpdate struct {
	Type  string               `json:"type"`
	ID    defectio.MemberID    `json:"id"`
	Data  defectio.MemberPatch `json:"data"`
	Clear []string             `json:"clear,omitempty"`
}

type ServerRoleUpdate struct {
	Type   string             `json:"type"`
	ID     string             `json:"id"`
	RoleID string             `json:"role_id"`
	Data   defectio.RolePatch `json:"data"`
	Clear  []string           `json:"clear,omitempty"`
}

type ServerRoleDelete struct {
	Type   string `json:"type"`
	ID     string `json:"id"`
	RoleID string `json:"role_id"`
}

type UserUpdate struct {
	Type  string             `json:"type"`
	ID    string             `json:"id"`
	Data  defectio.UserPatch `json:"data"`
	Clear []string           `json:"clear,omitempty"`
}

// UserRelationship: ID is the session user, User the other party.
type UserRelationship struct {
	Type   string                      `json:"type"`
	ID     string                      `json:"id"`
	User   string                      `json:"user"`
	Status defectio.RelationshipStatus `json:"status"`
}

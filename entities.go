package defectio

// Entity snapshot types. Snapshots are plain values: the cache stores and
// returns copies, so a snapshot held by a collaborator is never mutated
// behind its back. A later event for the same ID supersedes the cached
// snapshot instead of editing it in place.
//
// Wire field names follow the Revolt API conventions (`_id`,
// `channel_type`, update events carrying `{id, data, clear}`). The same
// tags drive both the JSON and the CBOR codec.

// RelationshipStatus describes how a user relates to the session user.
type RelationshipStatus string

const (
	RelationNone         RelationshipStatus = "None"
	RelationUser         RelationshipStatus = "User"
	RelationFriend       RelationshipStatus = "Friend"
	RelationOutgoing     RelationshipStatus = "Outgoing"
	RelationIncoming     RelationshipStatus = "Incoming"
	RelationBlocked      RelationshipStatus = "Blocked"
	RelationBlockedOther RelationshipStatus = "BlockedOther"
)

// UserStatus is a user's presence line.
type UserStatus struct {
	Text     string `json:"text,omitempty"`
	Presence string `json:"presence,omitempty"`
}

// BotInfo marks a user account as a bot and names its owner.
type BotInfo struct {
	Owner string `json:"owner"`
}

// User is a snapshot of a user account.
type User struct {
	ID           string             `json:"_id"`
	Username     string             `json:"username"`
	Online       bool               `json:"online,omitempty"`
	Status       *UserStatus        `json:"status,omitempty"`
	Relationship RelationshipStatus `json:"relationship,omitempty"`
	Badges       int                `json:"badges,omitempty"`
	Flags        int                `json:"flags,omitempty"`
	Bot          *BotInfo           `json:"bot,omitempty"`
}

func (u User) EntityID() string { return u.ID }

// Relationship is a snapshot of the session user's relation to another user.
type Relationship struct {
	UserID string             `json:"_id"`
	Status RelationshipStatus `json:"status"`
}

func (r Relationship) EntityID() string { return r.UserID }

// MemberID is the composite identity of a server member.
type MemberID struct {
	Server string `json:"server"`
	User   string `json:"user"`
}

// Member is a snapshot of a user's membership in one server.
type Member struct {
	ID       MemberID `json:"_id"`
	Nickname string   `json:"nickname,omitempty"`
	Roles    []string `json:"roles,omitempty"`
}

func (m Member) EntityID() string { return m.ID.Server + "/" + m.ID.User }

// Role is a snapshot of a server role. ServerID and ID are assigned by the
// cache layer; on the wire roles arrive keyed inside their server object.
type Role struct {
	ServerID string `json:"-"`
	ID       string `json:"-"`
	Name     string `json:"name"`
	Colour   string `json:"colour,omitempty"`
	Hoist    bool   `json:"hoist,omitempty"`
	Rank     int    `json:"rank,omitempty"`
}

func (r Role) EntityID() string { return r.ServerID + "/" + r.ID }

// Category groups channels inside a server.
type Category struct {
	ID       string   `json:"id"`
	Title    string   `json:"title"`
	Channels []string `json:"channels,omitempty"`
}

// Server is a snapshot of a server. Roles holds the role set as of the
// snapshot; the canonical live role state is the Role cache table.
type Server struct {
	ID          string          `json:"_id"`
	Owner       string          `json:"owner"`
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	ChannelIDs  []string        `json:"channels,omitempty"`
	Categories  []Category      `json:"categories,omitempty"`
	Roles       map[string]Role `json:"roles,omitempty"`
}

func (s Server) EntityID() string { return s.ID }

// ChannelType discriminates the channel variants carried by one Channel
// snapshot type.
type ChannelType string

const (
	ChannelSavedMessages ChannelType = "SavedMessages"
	ChannelDirectMessage ChannelType = "DirectMessage"
	ChannelGroup         ChannelType = "Group"
	ChannelText          ChannelType = "TextChannel"
	ChannelVoice         ChannelType = "VoiceChannel"
)

// Channel is a snapshot of any channel kind.
type Channel struct {
	ID            string      `json:"_id"`
	Type          ChannelType `json:"channel_type"`
	ServerID      string      `json:"server,omitempty"`
	Name          string      `json:"name,omitempty"`
	Description   string      `json:"description,omitempty"`
	OwnerID       string      `json:"owner,omitempty"`
	Recipients    []string    `json:"recipients,omitempty"`
	LastMessageID string      `json:"last_message,omitempty"`
}

func (c Channel) EntityID() string { return c.ID }

// Message is a snapshot of a message.
type Message struct {
	ID        string   `json:"_id"`
	Nonce     string   `json:"nonce,omitempty"`
	ChannelID string   `json:"channel"`
	AuthorID  string   `json:"author"`
	Content   string   `json:"content"`
	Edited    string   `json:"edited,omitempty"`
	Mentions  []string `json:"mentions,omitempty"`
	Replies   []string `json:"replies,omitempty"`
}

func (m Message) EntityID() string { return m.ChannelID + "/" + m.ID }

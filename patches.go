package defectio

// Partial-update payloads. Update events carry `{id, data, clear}` where
// data is a sparse patch and clear names fields reset to their zero value.
// Each entity kind implements the same apply-partial-update capability as a
// value method returning the superseding snapshot, so applying a patch never
// mutates the snapshot already visible to readers.

// MessagePatch is the data half of a MessageUpdate event.
type MessagePatch struct {
	Content *string `json:"content,omitempty"`
	Edited  *string `json:"edited,omitempty"`
}

// Patched returns the snapshot produced by applying p on top of m.
func (m Message) Patched(p MessagePatch, clear []string) Message {
	next := m
	if p.Content != nil {
		next.Content = *p.Content
	}
	if p.Edited != nil {
		next.Edited = *p.Edited
	}
	return next
}

// ChannelPatch is the data half of a ChannelUpdate event.
type ChannelPatch struct {
	Name        *string `json:"name,omitempty"`
	Description *string `json:"description,omitempty"`
	OwnerID     *string `json:"owner,omitempty"`
}

func (c Channel) Patched(p ChannelPatch, clear []string) Channel {
	next := c
	if p.Name != nil {
		next.Name = *p.Name
	}
	if p.Description != nil {
		next.Description = *p.Description
	}
	if p.OwnerID != nil {
		next.OwnerID = *p.OwnerID
	}
	for _, field := range clear {
		if field == "Description" {
			next.Description = ""
		}
	}
	return next
}

// ServerPatch is the data half of a ServerUpdate event.
type ServerPatch struct {
	Name        *string `json:"name,omitempty"`
	Description *string `json:"description,omitempty"`
	Owner       *string `json:"owner,omitempty"`
}

func (s Server) Patched(p ServerPatch, clear []string) Server {
	next := s
	if p.Name != nil {
		next.Name = *p.Name
	}
	if p.Description != nil {
		next.Description = *p.Description
	}
	if p.Owner != nil {
		next.Owner = *p.Owner
	}
	for _, field := range clear {
		if field == "Description" {
			next.Description = ""
		}
	}
	return next
}

// MemberPatch is the data half of a ServerMemberUpdate event.
type MemberPatch struct {
	Nickname *string   `json:"nickname,omitempty"`
	Roles    *[]string `json:"roles,omitempty"`
}

func (m Member) Patched(p MemberPatch, clear []string) Member {
	next := m
	if p.Nickname != nil {
		next.Nickname = *p.Nickname
	}
	if p.Roles != nil {
		next.Roles = append([]string(nil), (*p.Roles)...)
	}
	for _, field := range clear {
		if field == "Nickname" {
			next.Nickname = ""
		}
	}
	return next
}

// UserPatch is the data half of a UserUpdate event.
type UserPatch struct {
	Username *string     `json:"username,omitempty"`
	Online   *bool       `json:"online,omitempty"`
	Status   *UserStatus `json:"status,omitempty"`
}

func (u User) Patched(p UserPatch, clear []string) User {
	next := u
	if p.Username != nil {
		next.Username = *p.Username
	}
	if p.Online != nil {
		next.Online = *p.Online
	}
	if p.Status != nil {
		status := *p.Status
		next.Status = &status
	}
	for _, field := range clear {
		switch field {
		case "Status", "StatusText":
			next.Status = nil
		}
	}
	return next
}

// RolePatch is the data half of a ServerRoleUpdate event.
type RolePatch struct {
	Name   *string `json:"name,omitempty"`
	Colour *string `json:"colour,omitempty"`
	Hoist  *bool   `json:"hoist,omitempty"`
	Rank   *int    `json:"rank,omitempty"`
}

func (r Role) Patched(p RolePatch, clear []string) Role {
	next := r
	if p.Name != nil {
		next.Name = *p.Name
	}
	if p.Colour != nil {
		next.Colour = *p.Colour
	}
	if p.Hoist != nil {
		next.Hoist = *p.Hoist
	}
	if p.Rank != nil {
		next.Rank = *p.Rank
	}
	for _, field := range clear {
		if field == "Colour" {
			next.Colour = ""
		}
	}
	return next
}

package session

import (
	"github.com/LimeProgramming/defectio"
	"github.com/LimeProgramming/defectio/internal/wire"
)

// handlers is the closed decode+apply table: one handler per inbound event
// tag. Handlers run on the read-loop goroutine (the sole cache writer), so
// read-modify-write against the cache is race-free, and notifications are
// published only after their cache mutation has committed.
//
// Update events follow the dual policy: the raw notification (IDs plus the
// sparse patch) is published unconditionally; the cache-aware notification,
// carrying the previous and the new snapshot, only when the entity was
// cached. Duplicate replays after a resume are harmless: the latest write
// for an ID wins no matter how many times it is applied.
var handlers = map[string]func(*Session, wire.Envelope){
	wire.TagMessage:       (*Session).applyMessage,
	wire.TagMessageUpdate: (*Session).applyMessageUpdate,
	wire.TagMessageDelete: (*Session).applyMessageDelete,

	wire.TagChannelCreate:      (*Session).applyChannelCreate,
	wire.TagChannelUpdate:      (*Session).applyChannelUpdate,
	wire.TagChannelDelete:      (*Session).applyChannelDelete,
	wire.TagChannelGroupJoin:   (*Session).applyGroupJoin,
	wire.TagChannelGroupLeave:  (*Session).applyGroupLeave,
	wire.TagChannelStartTyping: (*Session).applyStartTyping,
	wire.TagChannelStopTyping:  (*Session).applyStopTyping,
	wire.TagChannelAck:         (*Session).applyChannelAck,

	wire.TagServerUpdate:       (*Session).applyServerUpdate,
	wire.TagServerDelete:       (*Session).applyServerDelete,
	wire.TagServerMemberJoin:   (*Session).applyMemberJoin,
	wire.TagServerMemberLeave:  (*Session).applyMemberLeave,
	wire.TagServerMemberUpdate: (*Session).applyMemberUpdate,
	wire.TagServerRoleUpdate:   (*Session).applyRoleUpdate,
	wire.TagServerRoleDelete:   (*Session).applyRoleDelete,

	wire.TagUserUpdate:       (*Session).applyUserUpdate,
	wire.TagUserRelationship: (*Session).applyRelationship,
}

// dispatch routes one inbound frame through the handler table. Unknown tags
// are ignored; a payload that fails to decode is dropped without touching
// the cache.
func (s *Session) dispatch(env wire.Envelope) {
	handler, ok := handlers[env.Type]
	if !ok {
		s.log.WithField("event", env.Type).Debug("Unknown gateway event")
		return
	}
	handler(s, env)
}

// decode unmarshals the frame payload, logging and reporting failures so
// handlers can bail out in one line.
func (s *Session) decode(env wire.Envelope, v interface{}) bool {
	if err := env.Decode(v); err != nil {
		s.log.WithError(err).WithField("event", env.Type).Debug("Dropping undecodable event payload")
		return false
	}
	return true
}

func (s *Session) applyMessage(env wire.Envelope) {
	var m defectio.Message
	if !s.decode(env, &m) {
		return
	}
	s.cache.PutMessage(m)
	s.pub.publish(defectio.MessageCreated{Message: m})
}

func (s *Session) applyMessageUpdate(env wire.Envelope) {
	var p wire.MessageUpdate
	if !s.decode(env, &p) {
		return
	}
	s.pub.publish(defectio.MessageUpdatedRaw{
		ChannelID: p.Channel,
		MessageID: p.ID,
		Patch:     p.Data,
		Clear:     p.Clear,
	})

	prev, ok := s.cache.Message(p.Channel, p.ID)
	if !ok {
		return
	}
	next := prev.Patched(p.Data, p.Clear)
	s.cache.PutMessage(next)
	s.pub.publish(defectio.MessageUpdated{Before: prev, After: next})
}

func (s *Session) applyMessageDelete(env wire.Envelope) {
	var p wire.MessageDelete
	if !s.decode(env, &p) {
		return
	}
	s.pub.publish(defectio.MessageDeletedRaw{ChannelID: p.Channel, MessageID: p.ID})

	if prev, ok := s.cache.DeleteMessage(p.Channel, p.ID); ok {
		s.pub.publish(defectio.MessageDeleted{Message: prev})
	}
}

func (s *Session) applyChannelCreate(env wire.Envelope) {
	var ch defectio.Channel
	if !s.decode(env, &ch) {
		return
	}
	s.cache.PutChannel(ch)
	s.pub.publish(defectio.ChannelCreated{Channel: ch})
}

func (s *Session) applyChannelUpdate(env wire.Envelope) {
	var p wire.ChannelUpdate
	if !s.decode(env, &p) {
		return
	}
	s.pub.publish(defectio.ChannelUpdatedRaw{ChannelID: p.ID, Patch: p.Data, Clear: p.Clear})

	prev, ok := s.cache.Channel(p.ID)
	if !ok {
		return
	}
	next := prev.Patched(p.Data, p.Clear)
	s.cache.PutChannel(next)
	s.pub.publish(defectio.ChannelUpdated{Before: prev, After: next})
}

func (s *Session) applyChannelDelete(env wire.Envelope) {
	var p wire.ChannelDelete
	if !s.decode(env, &p) {
		return
	}
	s.pub.publish(defectio.ChannelDeletedRaw{ChannelID: p.ID})

	if prev, ok := s.cache.DeleteChannel(p.ID); ok {
		s.pub.publish(defectio.ChannelDeleted{Channel: prev})
	}
}

func (s *Session) applyGroupJoin(env wire.Envelope) {
	var p wire.ChannelGroupJoin
	if !s.decode(env, &p) {
		return
	}
	if ch, ok := s.cache.Channel(p.ID); ok {
		next := ch
		next.Recipients = append(append([]string(nil), ch.Recipients...), p.User)
		s.cache.PutChannel(next)
	}
	s.pub.publish(defectio.GroupJoined{ChannelID: p.ID, UserID: p.User})
}

func (s *Session) applyGroupLeave(env wire.Envelope) {
	var p wire.ChannelGroupLeave
	if !s.decode(env, &p) {
		return
	}
	if p.User == s.cache.SelfID() {
		s.cache.DeleteChannel(p.ID)
	} else if ch, ok := s.cache.Channel(p.ID); ok {
		next := ch
		next.Recipients = nil
		for _, r := range ch.Recipients {
			if r != p.User {
				next.Recipients = append(next.Recipients, r)
			}
		}
		s.cache.PutChannel(next)
	}
	s.pub.publish(defectio.GroupLeft{ChannelID: p.ID, UserID: p.User})
}

func (s *Session) applyStartTyping(env wire.Envelope) {
	var p wire.ChannelTyping
	if !s.decode(env, &p) {
		return
	}
	s.pub.publish(defectio.TypingStarted{ChannelID: p.ID, UserID: p.User})
}

func (s *Session) applyStopTyping(env wire.Envelope) {
	var p wire.ChannelTyping
	if !s.decode(env, &p) {
		return
	}
	s.pub.publish(defectio.TypingStopped{ChannelID: p.ID, UserID: p.User})
}

func (s *Session) applyChannelAck(env wire.Envelope) {
	var p wire.ChannelAck
	if !s.decode(env, &p) {
		return
	}
	s.pub.publish(defectio.ChannelAcked{ChannelID: p.ID, UserID: p.User, MessageID: p.MessageID})
}

func (s *Session) applyServerUpdate(env wire.Envelope) {
	var p wire.ServerUpdate
	if !s.decode(env, &p) {
		return
	}
	s.pub.publish(defectio.ServerUpdatedRaw{ServerID: p.ID, Patch: p.Data, Clear: p.Clear})

	prev, ok := s.cache.Server(p.ID)
	if !ok {
		return
	}
	next := prev.Patched(p.Data, p.Clear)
	s.cache.PutServer(next)
	s.pub.publish(defectio.ServerUpdated{Before: prev, After: next})
}

func (s *Session) applyServerDelete(env wire.Envelope) {
	var p wire.ServerDelete
	if !s.decode(env, &p) {
		return
	}
	s.pub.publish(defectio.ServerDeletedRaw{ServerID: p.ID})

	if prev, ok := s.cache.DeleteServer(p.ID); ok {
		s.pub.publish(defectio.ServerDeleted{Server: prev})
	}
}

func (s *Session) applyMemberJoin(env wire.Envelope) {
	var p wire.ServerMemberJoin
	if !s.decode(env, &p) {
		return
	}
	member := defectio.Member{ID: defectio.MemberID{Server: p.ID, User: p.User}}
	s.cache.PutMember(member)
	s.pub.publish(defectio.MemberJoined{Member: member})
}

func (s *Session) applyMemberLeave(env wire.Envelope) {
	var p wire.ServerMemberLeave
	if !s.decode(env, &p) {
		return
	}
	ev := defectio.MemberLeft{ServerID: p.ID, UserID: p.User}
	if prev, ok := s.cache.DeleteMember(p.ID, p.User); ok {
		ev.Member = &prev
	}
	s.pub.publish(ev)
}

func (s *Session) applyMemberUpdate(env wire.Envelope) {
	var p wire.ServerMemberUpdate
	if !s.decode(env, &p) {
		return
	}
	s.pub.publish(defectio.MemberUpdatedRaw{ID: p.ID, Patch: p.Data, Clear: p.Clear})

	prev, ok := s.cache.Member(p.ID.Server, p.ID.User)
	if !ok {
		return
	}
	next := prev.Patched(p.Data, p.Clear)
	s.cache.PutMember(next)
	s.pub.publish(defectio.MemberUpdated{Before: prev, After: next})
}

func (s *Session) applyRoleUpdate(env wire.Envelope) {
	var p wire.ServerRoleUpdate
	if !s.decode(env, &p) {
		return
	}
	s.pub.publish(defectio.RoleUpdatedRaw{ServerID: p.ID, RoleID: p.RoleID, Patch: p.Data, Clear: p.Clear})

	prev, ok := s.cache.Role(p.ID, p.RoleID)
	if !ok {
		// A role update can introduce a role we have never seen; treat a
		// complete patch as a creation so the table converges.
		if p.Data.Name == nil {
			return
		}
		created := defectio.Role{ServerID: p.ID, ID: p.RoleID}.Patched(p.Data, p.Clear)
		s.cache.PutRole(created)
		return
	}
	next := prev.Patched(p.Data, p.Clear)
	s.cache.PutRole(next)
	s.pub.publish(defectio.RoleUpdated{Before: prev, After: next})
}

func (s *Session) applyRoleDelete(env wire.Envelope) {
	var p wire.ServerRoleDelete
	if !s.decode(env, &p) {
		return
	}
	ev := defectio.RoleDeleted{ServerID: p.ID, RoleID: p.RoleID}
	if prev, ok := s.cache.DeleteRole(p.ID, p.RoleID); ok {
		ev.Role = &prev
	}
	s.pub.publish(ev)
}

func (s *Session) applyUserUpdate(env wire.Envelope) {
	var p wire.UserUpdate
	if !s.decode(env, &p) {
		return
	}
	s.pub.publish(defectio.UserUpdatedRaw{UserID: p.ID, Patch: p.Data, Clear: p.Clear})

	prev, ok := s.cache.User(p.ID)
	if !ok {
		return
	}
	next := prev.Patched(p.Data, p.Clear)
	s.cache.PutUser(next)
	s.pub.publish(defectio.UserUpdated{Before: prev, After: next})
}

func (s *Session) applyRelationship(env wire.Envelope) {
	var p wire.UserRelationship
	if !s.decode(env, &p) {
		return
	}
	s.cache.PutRelationship(defectio.Relationship{UserID: p.User, Status: p.Status})

	// Keep the user snapshot's relation field in step when we have one.
	if u, ok := s.cache.User(p.User); ok {
		next := u
		next.Relationship = p.Status
		s.cache.PutUser(next)
	}
	s.pub.publish(defectio.RelationshipChange{UserID: p.User, Status: p.Status})
}

package defectio

import "testing"

func strptr(s string) *string { return &s }

// TestMessagePatched tests that applying a patch returns a superseding
// snapshot and leaves the original untouched.
func TestMessagePatched(t *testing.T) {
	t.Parallel()

	before := Message{ID: "m1", ChannelID: "c1", AuthorID: "u1", Content: "hello"}
	after := before.Patched(MessagePatch{Content: strptr("edited"), Edited: strptr("2021-09-01T00:00:00Z")}, nil)

	if before.Content != "hello" {
		t.Errorf("original snapshot mutated: content = %q", before.Content)
	}
	if after.Content != "edited" {
		t.Errorf("after.Content = %q, want %q", after.Content, "edited")
	}
	if after.Edited == "" {
		t.Error("after.Edited not set")
	}
	if after.ID != before.ID || after.ChannelID != before.ChannelID {
		t.Error("identity fields must carry over")
	}
}

// TestChannelPatchedClear tests the clear list resets fields.
func TestChannelPatchedClear(t *testing.T) {
	t.Parallel()

	ch := Channel{ID: "c1", Type: ChannelText, Name: "general", Description: "the lobby"}
	next := ch.Patched(ChannelPatch{Name: strptr("lounge")}, []string{"Description"})

	if next.Name != "lounge" {
		t.Errorf("Name = %q, want %q", next.Name, "lounge")
	}
	if next.Description != "" {
		t.Errorf("Description = %q, want cleared", next.Description)
	}
}

// TestUserPatchedStatus tests status replacement and clearing.
func TestUserPatchedStatus(t *testing.T) {
	t.Parallel()

	u := User{ID: "u1", Username: "ada"}
	withStatus := u.Patched(UserPatch{Status: &UserStatus{Text: "busy", Presence: "Busy"}}, nil)
	if withStatus.Status == nil || withStatus.Status.Text != "busy" {
		t.Fatalf("status not applied: %+v", withStatus.Status)
	}

	cleared := withStatus.Patched(UserPatch{}, []string{"Status"})
	if cleared.Status != nil {
		t.Errorf("Status = %+v, want nil after clear", cleared.Status)
	}
	if withStatus.Status == nil {
		t.Error("intermediate snapshot mutated by clear")
	}
}

// TestMemberPatchedRolesCopied tests that the roles slice is not shared
// between snapshots.
func TestMemberPatchedRolesCopied(t *testing.T) {
	t.Parallel()

	roles := []string{"r1", "r2"}
	m := Member{ID: MemberID{Server: "s1", User: "u1"}}
	next := m.Patched(MemberPatch{Roles: &roles}, nil)

	roles[0] = "mutated"
	if next.Roles[0] != "r1" {
		t.Error("patched snapshot shares backing array with patch input")
	}
}

// TestDisconnectResumable tests the reason classification.
func TestDisconnectResumable(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		d    Disconnect
		want bool
	}{
		{"connection error", Disconnect{Reason: ReasonConnectionError}, true},
		{"heartbeat timeout", Disconnect{Reason: ReasonHeartbeatTimeout}, true},
		{"protocol violation", Disconnect{Reason: ReasonProtocolViolation}, false},
		{"logout", Disconnect{Reason: ReasonLogout}, false},
		{"server going away", Disconnect{Reason: ReasonServerClose, Code: 1001}, true},
		{"server normal close", Disconnect{Reason: ReasonServerClose, Code: 1000}, false},
		{"server policy close", Disconnect{Reason: ReasonServerClose, Code: 1008}, false},
		{"server application close", Disconnect{Reason: ReasonServerClose, Code: 4001}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.d.Resumable(); got != tt.want {
				t.Errorf("Resumable() = %v, want %v", got, tt.want)
			}
		})
	}
}

// TestStatusString covers the state names used in logs.
func TestStatusString(t *testing.T) {
	t.Parallel()

	want := map[Status]string{
		StatusDisconnected:   "disconnected",
		StatusConnecting:     "connecting",
		StatusAuthenticating: "authenticating",
		StatusConnected:      "connected",
		StatusReconnecting:   "reconnecting",
		StatusClosed:         "closed",
	}
	for st, name := range want {
		if st.String() != name {
			t.Errorf("Status(%d).String() = %q, want %q", st, st.String(), name)
		}
	}
}

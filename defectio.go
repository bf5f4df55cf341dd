package defectio

import "context"

// Status is the session manager's connection state.
type Status int32

const (
	// StatusDisconnected is the initial state before Connect.
	StatusDisconnected Status = iota
	// StatusConnecting means the transport connection is being opened.
	StatusConnecting
	// StatusAuthenticating means the authenticate frame was sent and the
	// session is waiting for the server's verdict.
	StatusAuthenticating
	// StatusConnected is the steady state: events flow, heartbeats run.
	StatusConnected
	// StatusReconnecting means the connection was lost and the session is
	// waiting out its backoff before dialing again.
	StatusReconnecting
	// StatusClosed is terminal: explicit logout or fatal auth rejection.
	// No further reconnect attempts happen after this state.
	StatusClosed
)

func (s Status) String() string {
	switch s {
	case StatusDisconnected:
		return "disconnected"
	case StatusConnecting:
		return "connecting"
	case StatusAuthenticating:
		return "authenticating"
	case StatusConnected:
		return "connected"
	case StatusReconnecting:
		return "reconnecting"
	case StatusClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// Credential authenticates the session. Either BotToken is set, or the
// UserID/SessionToken pair is.
type Credential struct {
	BotToken     string
	UserID       string
	SessionToken string
}

// IsBot reports whether the credential is a bot token.
func (c Credential) IsBot() bool { return c.BotToken != "" }

// Subscription is a cancellable handle to an event subscription. Cancel is
// idempotent; after it returns no further handler invocations start.
type Subscription interface {
	Cancel()
}

// Session is a single gateway session: one connection lifecycle, one entity
// cache, one set of subscribers. Multiple independent sessions may coexist
// in one process.
//
// Cache getters return point-in-time snapshots and never block event
// application. Handlers registered through Subscribe (or On) are invoked in
// receipt order with at most one invocation in flight per subscription.
type Session interface {
	// Connect opens the gateway connection and blocks until the first
	// Ready has been ingested or a fatal error occurs. After a successful
	// Connect the session keeps itself connected (resume, backoff,
	// re-authentication) until Close.
	Connect(ctx context.Context) error

	// Close logs the session out and transitions to the terminal state.
	// Queued outbound frames fail fast. Safe to call more than once.
	Close(ctx context.Context) error

	// Status returns the current connection state.
	Status() Status

	// Subscribe registers a handler for one event kind. Prefer the typed
	// On helper.
	Subscribe(kind EventKind, handler func(Event)) (Subscription, error)

	// SelfID returns the session user's ID, empty before the first Ready.
	SelfID() string

	User(id string) (User, bool)
	Server(id string) (Server, bool)
	Channel(id string) (Channel, bool)
	Member(serverID, userID string) (Member, bool)
	Role(serverID, roleID string) (Role, bool)
	Message(channelID, messageID string) (Message, bool)
	Relationship(userID string) (Relationship, bool)

	// BeginTyping and EndTyping send typing indicator command frames for
	// the given channel over the gateway.
	BeginTyping(ctx context.Context, channelID string) error
	EndTyping(ctx context.Context, channelID string) error
}

// On subscribes a typed handler for the event type E.
//
//	sub, err := defectio.On(sess, func(e defectio.MessageCreated) {
//	    fmt.Println(e.Message.Content)
//	})
//	defer sub.Cancel()
func On[E Event](s Session, handler func(E)) (Subscription, error) {
	var zero E
	return s.Subscribe(zero.EventKind(), func(ev Event) {
		if e, ok := ev.(E); ok {
			handler(e)
		}
	})
}

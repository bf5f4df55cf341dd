// Package session implements the gateway session manager: the state machine
// that connects, authenticates, heartbeats, resumes and reconnects, and the
// event dispatcher that keeps the entity cache consistent while publishing
// typed notifications.
package session

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"github.com/LimeProgramming/defectio"
	"github.com/LimeProgramming/defectio/internal/state"
	"github.com/LimeProgramming/defectio/internal/transport"
	"github.com/LimeProgramming/defectio/internal/wire"
	"github.com/LimeProgramming/defectio/tasks"
)

// Config configures one session.
type Config struct {
	// GatewayURL is the websocket endpoint (ws:// or wss://).
	GatewayURL string
	// Credential authenticates the session (bot token or user session).
	Credential defectio.Credential
	// Encoding selects the wire codec, negotiated once per connection.
	Encoding wire.Encoding
	// MaxMessages bounds the message cache per channel.
	MaxMessages int
	// HeartbeatInterval is used when the server does not dictate one.
	HeartbeatInterval time.Duration
	// BackoffMin and BackoffMax bound the reconnect backoff schedule.
	BackoffMin time.Duration
	BackoffMax time.Duration
	// SubscriberQueue is the per-subscription event queue size.
	SubscriberQueue int
	// SendRate and SendBurst pace outbound gateway frames.
	SendRate  rate.Limit
	SendBurst int
	// Dialer overrides the websocket dialer, mainly for tests.
	Dialer *websocket.Dialer
	// Logger defaults to the logrus standard logger.
	Logger *logrus.Logger
}

// DefaultConfig returns a config with the production defaults: JSON
// encoding, 100 cached messages per channel, 15s heartbeat fallback, 1s-60s
// backoff, 10 frames/s outbound pacing.
func DefaultConfig(gatewayURL string, cred defectio.Credential) *Config {
	return &Config{
		GatewayURL:        gatewayURL,
		Credential:        cred,
		Encoding:          wire.EncodingJSON,
		MaxMessages:       100,
		HeartbeatInterval: 15 * time.Second,
		BackoffMin:        time.Second,
		BackoffMax:        60 * time.Second,
		SubscriberQueue:   64,
		SendRate:          10,
		SendBurst:         20,
	}
}

// Session implements defectio.Session. One goroutine (run) owns the read
// loop and is the sole writer into the cache; the heartbeat ticker touches
// only the atomic counters.
type Session struct {
	cfg   Config
	log   *logrus.Entry
	cache *state.Cache
	pub   *publisher

	ctx    context.Context
	cancel context.CancelFunc

	mu           sync.RWMutex
	status       defectio.Status
	conn         *transport.Conn
	sessionID    string
	resume       bool
	started      bool
	pendingReady *defectio.ReadyEvent

	seq     atomic.Int64
	lastAck atomic.Int64

	runDone chan struct{}
	readyCh chan error

	closeOnce sync.Once
}

// New builds a session from cfg without connecting.
func New(cfg *Config) *Session {
	logger := cfg.Logger
	if logger == nil {
		logger = logrus.StandardLogger()
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Session{
		cfg:     *cfg,
		log:     logger.WithField("gateway", cfg.GatewayURL),
		cache:   state.New(cfg.MaxMessages),
		pub:     newPublisher(cfg.SubscriberQueue),
		ctx:     ctx,
		cancel:  cancel,
		status:  defectio.StatusDisconnected,
		runDone: make(chan struct{}),
		readyCh: make(chan error, 1),
	}
}

// Connect starts the session engine and blocks until the first Ready has
// been ingested or a fatal error occurs. The engine then keeps itself
// connected until Close.
func (s *Session) Connect(ctx context.Context) error {
	s.mu.Lock()
	if s.started {
		s.mu.Unlock()
		return defectio.ErrSessionClosed
	}
	s.started = true
	s.mu.Unlock()

	go s.run()

	select {
	case err := <-s.readyCh:
		return err
	case <-ctx.Done():
		return ctx.Err()
	case <-s.ctx.Done():
		return defectio.ErrSessionClosed
	}
}

// Close logs the session out: cancels the read loop and heartbeats, fails
// queued outbound frames fast, and enters the terminal state exactly once.
func (s *Session) Close(ctx context.Context) error {
	s.closeOnce.Do(func() {
		s.cancel()
	})

	s.mu.RLock()
	started := s.started
	s.mu.RUnlock()
	if !started {
		s.setStatus(defectio.StatusClosed)
		s.pub.close()
		return nil
	}

	select {
	case <-s.runDone:
	case <-ctx.Done():
		return ctx.Err()
	}
	s.pub.close()
	return nil
}

func (s *Session) Status() defectio.Status {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.status
}

func (s *Session) setStatus(st defectio.Status) {
	s.mu.Lock()
	s.status = st
	s.mu.Unlock()
}

func (s *Session) Subscribe(kind defectio.EventKind, handler func(defectio.Event)) (defectio.Subscription, error) {
	return s.pub.subscribe(kind, handler)
}

func (s *Session) SelfID() string { return s.cache.SelfID() }

func (s *Session) User(id string) (defectio.User, bool) { return s.cache.User(id) }

func (s *Session) Server(id string) (defectio.Server, bool) { return s.cache.Server(id) }

func (s *Session) Channel(id string) (defectio.Channel, bool) { return s.cache.Channel(id) }

func (s *Session) Member(serverID, userID string) (defectio.Member, bool) {
	return s.cache.Member(serverID, userID)
}

func (s *Session) Role(serverID, roleID string) (defectio.Role, bool) {
	return s.cache.Role(serverID, roleID)
}

func (s *Session) Message(channelID, messageID string) (defectio.Message, bool) {
	return s.cache.Message(channelID, messageID)
}

func (s *Session) Relationship(userID string) (defectio.Relationship, bool) {
	return s.cache.Relationship(userID)
}

func (s *Session) BeginTyping(ctx context.Context, channelID string) error {
	return s.sendCommand(ctx, wire.Typing{Type: wire.TagBeginTyping, Channel: channelID})
}

func (s *Session) EndTyping(ctx context.Context, channelID string) error {
	return s.sendCommand(ctx, wire.Typing{Type: wire.TagEndTyping, Channel: channelID})
}

func (s *Session) sendCommand(ctx context.Context, v interface{}) error {
	s.mu.RLock()
	conn := s.conn
	st := s.status
	s.mu.RUnlock()

	if st == defectio.StatusClosed {
		return defectio.ErrSessionClosed
	}
	if conn == nil || st != defectio.StatusConnected {
		return defectio.ErrNotConnected
	}
	return conn.Send(ctx, v)
}

// run is the session engine: it loops connect → authenticate → serve until
// the terminal state. First-connect failures are surfaced through readyCh;
// afterwards the loop retries with backoff on its own.
func (s *Session) run() {
	defer close(s.runDone)

	bo := newBackoff(s.cfg.BackoffMin, s.cfg.BackoffMax)
	first := true

	for {
		if s.ctx.Err() != nil {
			s.shutdown()
			return
		}

		s.setStatus(defectio.StatusConnecting)
		conn, err := transport.Dial(s.ctx, s.cfg.GatewayURL, transport.Options{
			Encoding:  s.cfg.Encoding,
			SendRate:  s.cfg.SendRate,
			SendBurst: s.cfg.SendBurst,
			Dialer:    s.cfg.Dialer,
			Logger:    s.log,
		})
		if err != nil {
			if first {
				s.fatal(err)
				return
			}
			s.log.WithError(err).Warn("Gateway dial failed, backing off")
			s.setStatus(defectio.StatusReconnecting)
			if !s.wait(bo.Next()) {
				s.shutdown()
				return
			}
			continue
		}

		next := s.serve(conn, bo, &first)
		conn.Close()

		switch next {
		case verdictRetry:
			s.setStatus(defectio.StatusReconnecting)
			if !s.wait(bo.Next()) {
				s.shutdown()
				return
			}
		case verdictRetryNow:
			// Resume was rejected: dial again immediately as a fresh
			// session, no backoff.
		case verdictStop:
			return
		}
	}
}

type verdict int

const (
	verdictRetry verdict = iota
	verdictRetryNow
	verdictStop
)

// serve drives one connection from authenticate to disconnect and reports
// what the engine should do next.
func (s *Session) serve(conn *transport.Conn, bo *backoff, first *bool) verdict {
	s.mu.Lock()
	s.conn = conn
	resuming := s.resume && s.sessionID != ""
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		s.conn = nil
		s.mu.Unlock()
	}()

	s.setStatus(defectio.StatusAuthenticating)
	if err := conn.Send(s.ctx, s.authFrame(resuming)); err != nil {
		s.log.WithError(err).Warn("Failed to send authenticate frame")
		return verdictRetry
	}

	stopHeartbeat := func() {}
	defer func() { stopHeartbeat() }()

	for {
		select {
		case env, ok := <-conn.Frames():
			if !ok {
				return s.onDisconnect(conn.Reason(), first)
			}

			switch env.Type {
			case wire.TagAuthenticated:
				var auth wire.Authenticated
				if err := env.Decode(&auth); err != nil {
					s.log.WithError(err).Debug("Dropping malformed Authenticated frame")
					continue
				}
				if auth.SessionID != "" {
					s.mu.Lock()
					s.sessionID = auth.SessionID
					s.mu.Unlock()
				}
				stopHeartbeat()
				stopHeartbeat = s.startHeartbeat(conn, auth.HeartbeatIntervalMS)

			case wire.TagError:
				var gerr wire.GatewayError
				if err := env.Decode(&gerr); err != nil {
					s.log.WithError(err).Debug("Dropping malformed Error frame")
					continue
				}
				if s.Status() != defectio.StatusAuthenticating {
					s.log.WithField("error", gerr.Error).Warn("Gateway error frame")
					continue
				}
				if resuming {
					// Resume rejected: fall back to a fresh session.
					s.log.WithField("error", gerr.Error).Info("Resume rejected, starting fresh session")
					s.clearResumeState()
					conn.Close()
					s.drainDisconnect(conn)
					return verdictRetryNow
				}
				s.log.WithField("error", gerr.Error).Error("Authentication rejected")
				conn.Close()
				s.drainDisconnect(conn)
				s.publishDisconnected(defectio.Disconnect{Reason: defectio.ReasonServerClose, Err: defectio.ErrAuthRejected}, true)
				s.fatal(defectio.ErrAuthRejected)
				return verdictStop

			case wire.TagReady:
				if err := s.handleReady(env); err != nil {
					s.log.WithError(err).Debug("Dropping malformed Ready frame")
					continue
				}
				s.enterConnected(bo, first, false)

			case wire.TagResumed:
				s.enterConnected(bo, first, true)

			case wire.TagPong:
				var pong wire.Pong
				if err := env.Decode(&pong); err != nil {
					continue
				}
				s.lastAck.Store(pong.Data)

			default:
				s.dispatch(env)
			}

		case <-conn.Done():
			// Drain frames already queued before acting on the loss so
			// receipt order is preserved.
			for env := range conn.Frames() {
				s.dispatch(env)
			}
			return s.onDisconnect(conn.Reason(), first)

		case <-s.ctx.Done():
			conn.Close()
			s.drainDisconnect(conn)
			s.shutdown()
			return verdictStop
		}
	}
}

func (s *Session) authFrame(resuming bool) wire.Authenticate {
	frame := wire.Authenticate{Type: wire.TagAuthenticate}
	if s.cfg.Credential.IsBot() {
		frame.Token = s.cfg.Credential.BotToken
	} else {
		frame.UserID = s.cfg.Credential.UserID
		frame.SessionToken = s.cfg.Credential.SessionToken
	}
	if resuming {
		s.mu.RLock()
		frame.SessionID = s.sessionID
		s.mu.RUnlock()
		frame.Seq = s.seq.Load()
	}
	return frame
}

// enterConnected is the single place Connected is entered: backoff resets,
// lifecycle notifications fire, and the first Connect call is released.
func (s *Session) enterConnected(bo *backoff, first *bool, resumed bool) {
	s.setStatus(defectio.StatusConnected)
	bo.Reset()

	if !*first {
		s.pub.publish(defectio.SessionReconnected{Resumed: resumed})
	}
	if !resumed {
		s.publishReady()
	}
	if *first {
		*first = false
		s.readyCh <- nil
	}
}

// handleReady ingests the bulk snapshot. The ready notification is prepared
// here but published by enterConnected, strictly after the cache holds the
// full payload.
func (s *Session) handleReady(env wire.Envelope) error {
	var ready wire.Ready
	if err := env.Decode(&ready); err != nil {
		return err
	}

	s.cache.SeedReady(ready.Users, ready.Servers, ready.Channels, ready.Members)
	s.cache.SetSelfID(s.selfIDFrom(ready.Users))

	s.mu.Lock()
	s.resume = true // from here on the session has state worth resuming
	s.pendingReady = &defectio.ReadyEvent{
		SelfID:   s.cache.SelfID(),
		Users:    ready.Users,
		Servers:  ready.Servers,
		Channels: ready.Channels,
		Members:  ready.Members,
	}
	s.mu.Unlock()
	return nil
}

func (s *Session) publishReady() {
	s.mu.Lock()
	ev := s.pendingReady
	s.pendingReady = nil
	s.mu.Unlock()
	if ev != nil {
		s.pub.publish(*ev)
	}
}

// selfIDFrom resolves the session user: user credentials carry the ID,
// bots take the first user of the bulk payload.
func (s *Session) selfIDFrom(users []defectio.User) string {
	if !s.cfg.Credential.IsBot() {
		return s.cfg.Credential.UserID
	}
	for _, u := range users {
		if u.Relationship == defectio.RelationUser {
			return u.ID
		}
	}
	if len(users) > 0 {
		return users[0].ID
	}
	return ""
}

// startHeartbeat schedules pings at the server-dictated interval. At each
// tick, if the previous ping was never acknowledged the connection is
// declared lost (heartbeat timeout) exactly once; a slow-but-eventual ack
// cannot trigger a second transition because the close reason is latched.
func (s *Session) startHeartbeat(conn *transport.Conn, intervalMS int64) func() {
	interval := s.cfg.HeartbeatInterval
	if intervalMS > 0 {
		interval = time.Duration(intervalMS) * time.Millisecond
	}

	// A fresh connection starts with a clean slate: whatever ping was in
	// flight on the previous connection counts as answered.
	s.lastAck.Store(s.seq.Load())

	return tasks.Every(s.ctx, interval, s.log, func() {
		seq := s.seq.Load()
		if seq > 0 && s.lastAck.Load() < seq {
			s.log.WithFields(logrus.Fields{"seq": seq, "acked": s.lastAck.Load()}).
				Warn("Heartbeat ack missing, declaring connection lost")
			conn.CloseWithReason(defectio.Disconnect{Reason: defectio.ReasonHeartbeatTimeout}, websocket.CloseGoingAway)
			return
		}

		next := s.seq.Add(1)
		if err := conn.Send(s.ctx, wire.NewPing(next)); err != nil {
			s.log.WithError(err).Debug("Heartbeat send failed")
		}
	})
}

// onDisconnect classifies a connection loss and decides between resume and
// fresh reconnect. Non-resumable losses clear the cache and drop the resume
// token before the next connect.
func (s *Session) onDisconnect(d defectio.Disconnect, first *bool) verdict {
	if s.ctx.Err() != nil || d.Reason == defectio.ReasonLogout {
		s.shutdown()
		return verdictStop
	}

	s.log.WithFields(logrus.Fields{"reason": d.Reason.String(), "code": d.Code, "resumable": d.Resumable()}).
		Info("Gateway connection lost")
	s.publishDisconnected(d, false)

	if *first {
		// Lost before the first Ready: surface the failure to Connect.
		s.fatal(d)
		return verdictStop
	}

	if !d.Resumable() {
		s.clearResumeState()
	}
	return verdictRetry
}

func (s *Session) clearResumeState() {
	s.mu.Lock()
	s.resume = false
	s.sessionID = ""
	s.mu.Unlock()
	s.seq.Store(0)
	s.lastAck.Store(0)
	s.cache.Clear()
}

func (s *Session) publishDisconnected(d defectio.Disconnect, terminal bool) {
	s.pub.publish(defectio.SessionDisconnected{Disconnect: d, Terminal: terminal})
}

// drainDisconnect waits for the read loop to finish so the connection's
// final state is settled before the engine moves on.
func (s *Session) drainDisconnect(conn *transport.Conn) {
	for range conn.Frames() {
	}
}

// shutdown enters the terminal state exactly once.
func (s *Session) shutdown() {
	s.setStatus(defectio.StatusClosed)
	s.cancel()
	s.log.Info("Session closed")
}

// fatal surfaces a fatal error to the first Connect caller (when still
// waiting) and enters the terminal state.
func (s *Session) fatal(err error) {
	select {
	case s.readyCh <- err:
	default:
	}
	s.setStatus(defectio.StatusClosed)
	s.cancel()
}

// wait sleeps for d, abandoned early on shutdown. Reports whether the
// engine should continue.
func (s *Session) wait(d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return true
	case <-s.ctx.Done():
		return false
	}
}

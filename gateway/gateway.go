// Package gateway constructs gateway sessions. It is the public face of the
// internal session engine.
package gateway

import (
	"github.com/LimeProgramming/defectio"
	"github.com/LimeProgramming/defectio/internal/session"
	"github.com/LimeProgramming/defectio/internal/wire"
)

// Config configures a session. See DefaultConfig for the defaults.
type Config = session.Config

// Encoding selects the wire codec for a connection.
type Encoding = wire.Encoding

const (
	// EncodingJSON carries frames as JSON over text messages.
	EncodingJSON = wire.EncodingJSON
	// EncodingCBOR carries frames as CBOR over binary messages.
	EncodingCBOR = wire.EncodingCBOR
)

// New builds a session from cfg. The session does not connect until
// Connect is called.
//
//	cfg := gateway.DefaultConfig("wss://ws.example.chat", defectio.Credential{BotToken: token})
//	sess := gateway.New(cfg)
//	if err := sess.Connect(ctx); err != nil {
//	    log.Fatal(err)
//	}
func New(cfg *Config) defectio.Session {
	return session.New(cfg)
}

// DefaultConfig returns a config with production defaults: JSON encoding,
// 100 cached messages per channel, 15s heartbeat fallback, 1s-60s reconnect
// backoff.
func DefaultConfig(gatewayURL string, cred defectio.Credential) *Config {
	return session.DefaultConfig(gatewayURL, cred)
}

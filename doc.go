// Package defectio provides a gateway session engine for Revolt-style chat
// services: a persistent duplexed WebSocket connection, typed domain events,
// a local entity cache kept consistent with those events, and rate-limited
// outbound command traffic.
//
// # Architecture
//
// A Session owns one transport connection and drives a fixed lifecycle:
//
//	Disconnected → Connecting → Authenticating → Connected ⇄ Reconnecting
//
// with a terminal Closed state entered on logout or fatal auth rejection.
// One goroutine owns the read loop and is the sole writer into the entity
// cache; cache getters return copied snapshots and never block event
// application. Heartbeats run on an independent timer and touch only
// session counters, never the cache.
//
// # Quick Start
//
//	import (
//	    "github.com/LimeProgramming/defectio"
//	    "github.com/LimeProgramming/defectio/gateway"
//	)
//
//	cfg := gateway.DefaultConfig("wss://ws.example.chat", defectio.Credential{BotToken: token})
//	sess := gateway.New(cfg)
//
//	sub, _ := defectio.On(sess, func(e defectio.MessageCreated) {
//	    log.Printf("%s: %s", e.Message.AuthorID, e.Message.Content)
//	})
//	defer sub.Cancel()
//
//	if err := sess.Connect(ctx); err != nil {
//	    log.Fatal(err)
//	}
//	defer sess.Close(ctx)
//
// # Events
//
// Inbound frames form a closed tagged set; each tag has one decode+apply
// handler that commits the cache mutation and publishes the resulting
// notifications. Update notifications carry the previous and the new
// snapshot. Every update also has a raw variant carrying only IDs and the
// sparse patch, published regardless of cache contents. Subscribe to the
// raw form when you must observe updates for entities the cache never saw.
//
// Events are applied in the exact order received. Replayed duplicates (for
// example after a resume) are harmless: the latest write for an ID wins.
//
// # Wire encoding
//
// The frame encoding is negotiated once per connection and fixed for its
// lifetime: JSON over text frames or CBOR over binary frames.
//
// # Rate limiting
//
// Outbound REST requests flow through per-route quota buckets fed back from
// server response headers; an exhausted bucket delays only its own callers.
// A distinguished global bucket, when exhausted, pauses all routes. Gateway
// command frames are paced by a local token bucket.
package defectio

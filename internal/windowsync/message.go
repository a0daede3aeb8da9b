// Package windowsync mirrors the main window's player state to a detached
// popout window and relays the popout's transport commands back.
//
// Two Channels, one per window, talk over an unreliable Window transport. A
// handshake establishes the connection and a PING/PONG heartbeat detects a
// peer that has gone away without saying so.
package windowsync

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// Source tags every envelope sent by this application.
const Source = "bass-trainer"

var (
	// ErrNotConnected is returned when sending without a connected partner.
	ErrNotConnected = errors.New("window not connected")
	// ErrPartnerUnreachable is returned when the partner window is closed or
	// a send to it failed.
	ErrPartnerUnreachable = errors.New("partner window unreachable")
)

// MessageType is the envelope type.
type MessageType string

const (
	TypeStateUpdate MessageType = "STATE_UPDATE"
	TypeCommand     MessageType = "COMMAND"
	TypeHandshake   MessageType = "HANDSHAKE"
	TypePing        MessageType = "PING"
	TypePong        MessageType = "PONG"
	TypeDisconnect  MessageType = "DISCONNECT"
)

// Envelope is the wire format of every message.
type Envelope struct {
	Type    MessageType     `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
	Source  string          `json:"source"`
}

// Handshake is the HANDSHAKE payload.
type Handshake struct {
	IsPopout bool `json:"isPopout"`
}

// Encode wraps payload in a tagged envelope.
func Encode(t MessageType, payload any) ([]byte, error) {
	env := Envelope{Type: t, Source: Source}
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("encoding %s payload: %w", t, err)
		}
		env.Payload = raw
	}
	return json.Marshal(env)
}

// Decode parses an envelope and rejects foreign ones.
func Decode(data []byte) (Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return env, fmt.Errorf("decoding envelope: %w", err)
	}
	if env.Source != Source {
		return env, fmt.Errorf("foreign source %q", env.Source)
	}
	return env, nil
}

// Timing holds the protocol intervals.
type Timing struct {
	// HandshakeDelay lets the peer's listener attach before the first try.
	HandshakeDelay time.Duration
	// HandshakeRetries are retry offsets from Start, each skipped once
	// connected.
	HandshakeRetries  []time.Duration
	HeartbeatInterval time.Duration
	// HeartbeatTimeout is how long without a PONG before the connection is
	// declared lost.
	HeartbeatTimeout time.Duration
}

// DefaultTiming returns the standard protocol intervals.
func DefaultTiming() Timing {
	return Timing{
		HandshakeDelay:    100 * time.Millisecond,
		HandshakeRetries:  []time.Duration{600 * time.Millisecond, 1200 * time.Millisecond, 2500 * time.Millisecond},
		HeartbeatInterval: 3 * time.Second,
		HeartbeatTimeout:  6 * time.Second,
	}
}

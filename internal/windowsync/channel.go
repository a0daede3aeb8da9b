package windowsync

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/icco/basstrainer/internal/runloop"
	"github.com/sirupsen/logrus"
)

// Window is a handle to the other window.
type Window interface {
	// PostMessage delivers data to the window. Delivery is asynchronous.
	PostMessage(data []byte) error
	// Closed reports whether the window is known to be gone. It is a hint:
	// messages are still posted so a returning window can be reached.
	Closed() bool
}

// Receiver accepts raw messages from a transport. from is the handle to
// reply on.
type Receiver interface {
	Receive(data []byte, origin string, from Window)
}

// Role selects which side of the protocol a Channel plays.
type Role int

const (
	RoleMain Role = iota
	RolePopout
)

func (r Role) String() string {
	if r == RolePopout {
		return "popout"
	}
	return "main"
}

// Channel is one window's end of the sync protocol. All methods, and
// Receive, must run on the channel's loop.
type Channel struct {
	role   Role
	loop   runloop.Loop
	origin string
	timing Timing
	log    *logrus.Entry

	partner   Window
	connected bool
	lastPong  time.Time
	started   bool
	closed    bool

	heartbeat runloop.Timer
	watchdog  runloop.Timer
	handshake []runloop.Timer

	// OnState receives STATE_UPDATE payloads (popout side).
	OnState func(payload json.RawMessage)
	// OnCommand receives COMMAND payloads (main side).
	OnCommand func(payload json.RawMessage)
	// OnConnectionChange is called whenever Connected changes.
	OnConnectionChange func(connected bool)
	// OnPartner is called on the main side when a popout completes a
	// handshake.
	OnPartner func()
}

// Option configures a Channel.
type Option func(*Channel)

// WithTiming overrides DefaultTiming.
func WithTiming(t Timing) Option {
	return func(c *Channel) {
		c.timing = t
	}
}

// New creates a channel that accepts messages only from origin.
func New(role Role, loop runloop.Loop, origin string, opts ...Option) *Channel {
	c := &Channel{
		role:   role,
		loop:   loop,
		origin: origin,
		timing: DefaultTiming(),
		log:    logrus.WithFields(logrus.Fields{"component": "windowsync", "role": role.String()}),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Start begins the protocol. A popout passes the main window handle and
// starts handshaking; main passes nil and learns its partner from the first
// handshake.
func (c *Channel) Start(partner Window) {
	if c.started || c.closed {
		return
	}
	c.started = true
	if partner != nil {
		c.partner = partner
	}

	if c.role == RolePopout {
		c.handshake = append(c.handshake, c.loop.AfterFunc(c.timing.HandshakeDelay, c.sendHandshake))
		for _, d := range c.timing.HandshakeRetries {
			c.handshake = append(c.handshake, c.loop.AfterFunc(d, func() {
				if !c.connected {
					c.log.WithField("after", d).Debug("retrying handshake")
					c.sendHandshake()
				}
			}))
		}
	}
	c.heartbeat = c.loop.AfterFunc(c.timing.HeartbeatInterval, c.beat)
}

// Connected reports whether the partner has answered within the timeout.
func (c *Channel) Connected() bool {
	return c.connected
}

// LastPong is when the partner last answered.
func (c *Channel) LastPong() time.Time {
	return c.lastPong
}

// SendState pushes a state snapshot to the popout.
func (c *Channel) SendState(snapshot any) error {
	if !c.connected {
		return ErrNotConnected
	}
	return c.send(TypeStateUpdate, snapshot)
}

// SendCommand relays a transport command to main. Commands from a
// disconnected popout are rejected.
func (c *Channel) SendCommand(cmd any) error {
	if !c.connected {
		return ErrNotConnected
	}
	return c.send(TypeCommand, cmd)
}

// Close says goodbye to the partner and stops all timers.
func (c *Channel) Close() {
	if c.closed {
		return
	}
	if c.partner != nil {
		if err := c.send(TypeDisconnect, nil); err != nil {
			c.log.WithError(err).Debug("disconnect not delivered")
		}
	}
	c.closed = true
	c.stopTimers()
	c.setConnected(false)
}

// Receive handles one incoming message. Messages from another origin or
// without the application tag are ignored.
func (c *Channel) Receive(data []byte, origin string, from Window) {
	if c.closed {
		return
	}
	if origin != c.origin {
		c.log.WithField("origin", origin).Debug("rejecting message from foreign origin")
		return
	}
	env, err := Decode(data)
	if err != nil {
		c.log.WithError(err).Debug("rejecting message")
		return
	}

	switch env.Type {
	case TypeHandshake:
		c.receiveHandshake(env, from)
	case TypePing:
		if c.role == RoleMain && c.partner == nil {
			// a main window that never saw a handshake stays silent, so a
			// popout left over from a previous session times out and
			// handshakes again
			c.log.Debug("ignoring ping before handshake")
			return
		}
		reply := from
		if reply == nil {
			reply = c.partner
		}
		c.sendTo(reply, TypePong, nil)
	case TypePong:
		c.refresh()
	case TypeStateUpdate:
		if c.OnState != nil {
			c.OnState(env.Payload)
		}
	case TypeCommand:
		if c.role != RoleMain {
			return
		}
		if c.OnCommand != nil {
			c.OnCommand(env.Payload)
		}
	case TypeDisconnect:
		c.disarm(c.watchdog)
		c.watchdog = nil
		c.setConnected(false)
	default:
		c.log.WithField("type", env.Type).Debug("ignoring unknown message type")
	}
}

func (c *Channel) receiveHandshake(env Envelope, from Window) {
	if c.role != RoleMain || from == nil {
		return
	}
	var hs Handshake
	if len(env.Payload) > 0 {
		if err := json.Unmarshal(env.Payload, &hs); err != nil {
			c.log.WithError(err).Debug("bad handshake payload")
			return
		}
	}
	if !hs.IsPopout {
		return
	}

	c.partner = from
	c.refresh()
	c.sendTo(from, TypePong, nil)
	if c.OnPartner != nil {
		c.OnPartner()
	}
}

func (c *Channel) sendHandshake() {
	if c.closed || c.connected {
		return
	}
	if err := c.send(TypeHandshake, Handshake{IsPopout: true}); err != nil {
		c.log.WithError(err).Debug("handshake not delivered")
	}
}

// beat pings the partner and reschedules itself. A popout that lost its
// partner handshakes instead, so a restarted main window picks it up again.
func (c *Channel) beat() {
	if c.closed {
		return
	}
	switch {
	case c.partner == nil:
	case c.role == RolePopout && !c.connected:
		c.sendHandshake()
	default:
		if err := c.send(TypePing, nil); err != nil {
			c.log.WithError(err).Debug("ping not delivered")
		}
	}
	c.heartbeat = c.loop.AfterFunc(c.timing.HeartbeatInterval, c.beat)
}

// refresh records a PONG and re-arms the watchdog.
func (c *Channel) refresh() {
	c.lastPong = c.loop.Now()
	c.disarm(c.watchdog)
	c.watchdog = c.loop.AfterFunc(c.timing.HeartbeatTimeout, c.expire)
	c.setConnected(true)
}

func (c *Channel) expire() {
	c.watchdog = nil
	if c.loop.Now().Sub(c.lastPong) >= c.timing.HeartbeatTimeout {
		c.log.Warn("partner stopped answering")
		c.setConnected(false)
	}
}

func (c *Channel) send(t MessageType, payload any) error {
	return c.sendTo(c.partner, t, payload)
}

// sendTo never fails loudly: errors are logged and the connection drops.
func (c *Channel) sendTo(w Window, t MessageType, payload any) error {
	if w == nil {
		return ErrNotConnected
	}
	if w.Closed() {
		c.setConnected(false)
	}
	data, err := Encode(t, payload)
	if err != nil {
		c.log.WithError(err).Warn("dropping unencodable message")
		return err
	}
	if err := w.PostMessage(data); err != nil {
		c.log.WithError(err).WithField("type", t).Warn("send failed")
		c.setConnected(false)
		return fmt.Errorf("%w: %v", ErrPartnerUnreachable, err)
	}
	return nil
}

func (c *Channel) setConnected(connected bool) {
	if c.connected == connected {
		return
	}
	c.connected = connected
	c.log.WithField("connected", connected).Info("connection changed")
	if c.OnConnectionChange != nil {
		c.OnConnectionChange(connected)
	}
}

func (c *Channel) stopTimers() {
	c.disarm(c.heartbeat)
	c.disarm(c.watchdog)
	for _, t := range c.handshake {
		c.disarm(t)
	}
	c.heartbeat, c.watchdog, c.handshake = nil, nil, nil
}

func (c *Channel) disarm(t runloop.Timer) {
	if t != nil {
		t.Stop()
	}
}

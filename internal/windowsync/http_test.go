package windowsync

import (
	"bytes"
	"context"
	"encoding/json"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/icco/basstrainer/internal/runloop"
)

func TestServerOriginGuard(t *testing.T) {
	loop := runloop.NewManual()
	rec := &recorder{}
	srv := NewServer(loop, rec, testOrigin)

	data, err := Encode(TypePing, nil)
	if err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name   string
		origin string
		want   int
	}{
		{"foreign origin", "https://evil.example", http.StatusForbidden},
		{"missing origin", "", http.StatusForbidden},
		{"same origin", testOrigin, http.StatusAccepted},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/sync", bytes.NewReader(data))
			if tt.origin != "" {
				req.Header.Set("Origin", tt.origin)
			}
			w := httptest.NewRecorder()
			srv.Handler().ServeHTTP(w, req)
			if w.Code != tt.want {
				t.Errorf("status = %d, want %d", w.Code, tt.want)
			}
		})
	}

	loop.Flush()
	if len(rec.types) != 1 || rec.types[0] != TypePing {
		t.Errorf("received %v, want one PING", rec.types)
	}
}

func TestServerHealth(t *testing.T) {
	srv := NewServer(runloop.NewManual(), &recorder{}, testOrigin)

	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	var body map[string]string
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatal(err)
	}
	if body["status"] != "healthy" {
		t.Errorf("body = %v", body)
	}
}

type httpSide struct {
	loop    *runloop.Real
	channel *Channel
	server  *Server
	ts      *httptest.Server
}

func newHTTPSide(ctx context.Context, role Role, timing Timing) *httpSide {
	loop := runloop.New(runloop.DefaultFPS)
	go loop.Run(ctx)

	ch := New(role, loop, testOrigin, WithTiming(timing))
	srv := NewServer(loop, ch, testOrigin)
	ts := httptest.NewServer(srv.Handler())
	srv.SetAddress(ts.URL)
	return &httpSide{loop: loop, channel: ch, server: srv, ts: ts}
}

// newListeningSide serves on a fixed address, so a test can bring the same
// window back after a restart.
func newListeningSide(ctx context.Context, t *testing.T, role Role, timing Timing, addr string) *httpSide {
	loop := runloop.New(runloop.DefaultFPS)
	go loop.Run(ctx)

	ch := New(role, loop, testOrigin, WithTiming(timing))
	srv := NewServer(loop, ch, testOrigin)
	srv.SetAddress("http://" + addr)
	go func() {
		if err := srv.ListenAndServe(addr); err != nil {
			t.Errorf("listen on %s: %v", addr, err)
		}
	}()
	return &httpSide{loop: loop, channel: ch, server: srv}
}

// freeAddr returns a loopback address nothing is listening on.
func freeAddr(t *testing.T) string {
	t.Helper()
	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	addr := l.Addr().String()
	if err := l.Close(); err != nil {
		t.Fatal(err)
	}
	return addr
}

func waitFor(t *testing.T, within time.Duration, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(within)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("%s within %s", what, within)
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func reconnectTiming() Timing {
	return Timing{
		HandshakeDelay:    10 * time.Millisecond,
		HandshakeRetries:  []time.Duration{300 * time.Millisecond, 600 * time.Millisecond, 1000 * time.Millisecond},
		HeartbeatInterval: 200 * time.Millisecond,
		HeartbeatTimeout:  time.Second,
	}
}

func (s *httpSide) connected() bool {
	var c bool
	s.loop.Call(func() { c = s.channel.Connected() })
	return c
}

func (s *httpSide) close() {
	s.loop.Call(s.channel.Close)
	s.server.Shutdown(context.Background())
	if s.ts != nil {
		s.ts.Close()
	}
}

func TestHTTPHandshake(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	timing := DefaultTiming()
	timing.HandshakeDelay = 10 * time.Millisecond
	timing.HandshakeRetries = []time.Duration{50 * time.Millisecond, 100 * time.Millisecond, 200 * time.Millisecond}

	main := newHTTPSide(ctx, RoleMain, timing)
	popout := newHTTPSide(ctx, RolePopout, timing)

	commands := make(chan string, 1)
	main.loop.Call(func() {
		main.channel.OnCommand = func(raw json.RawMessage) {
			var c struct {
				Command string `json:"command"`
			}
			if err := json.Unmarshal(raw, &c); err == nil {
				commands <- c.Command
			}
		}
		main.channel.Start(nil)
	})
	popout.loop.Call(func() {
		popout.channel.Start(popout.server.Window(main.ts.URL))
	})

	deadline := time.Now().Add(5 * time.Second)
	for !(main.connected() && popout.connected()) {
		if time.Now().After(deadline) {
			t.Fatal("handshake over HTTP did not converge")
		}
		time.Sleep(10 * time.Millisecond)
	}

	var sendErr error
	popout.loop.Call(func() {
		sendErr = popout.channel.SendCommand(map[string]string{"command": "PLAY"})
	})
	if sendErr != nil {
		t.Fatal(sendErr)
	}

	select {
	case got := <-commands:
		if got != "PLAY" {
			t.Errorf("command = %q, want PLAY", got)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("command not relayed")
	}

	popout.close()
	deadline = time.Now().Add(5 * time.Second)
	for main.connected() {
		if time.Now().After(deadline) {
			t.Fatal("main did not see DISCONNECT")
		}
		time.Sleep(10 * time.Millisecond)
	}
	main.close()
}

func TestHTTPHandshakeReachesLateMain(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	timing := reconnectTiming()
	addr := freeAddr(t)

	popout := newHTTPSide(ctx, RolePopout, timing)
	defer popout.close()
	popout.loop.Call(func() {
		popout.channel.Start(popout.server.Window("http://" + addr))
	})

	// the first handshake goes out before anything listens
	time.Sleep(100 * time.Millisecond)
	if popout.connected() {
		t.Fatal("connected with nothing listening")
	}

	main := newListeningSide(ctx, t, RoleMain, timing, addr)
	defer main.close()
	main.loop.Call(func() { main.channel.Start(nil) })

	waitFor(t, 3*time.Second, "popout did not reach the late main", func() bool {
		return main.connected() && popout.connected()
	})
}

func TestHTTPPopoutReconnectsAfterMainRestart(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	timing := reconnectTiming()
	addr := freeAddr(t)

	firstCtx, crash := context.WithCancel(ctx)
	first := newListeningSide(firstCtx, t, RoleMain, timing, addr)
	first.loop.Call(func() { first.channel.Start(nil) })

	popout := newHTTPSide(ctx, RolePopout, timing)
	defer popout.close()
	popout.loop.Call(func() {
		popout.channel.Start(popout.server.Window("http://" + addr))
	})
	waitFor(t, 3*time.Second, "first handshake did not converge", func() bool {
		return first.connected() && popout.connected()
	})

	// main goes away without a DISCONNECT
	if err := first.server.Shutdown(context.Background()); err != nil {
		t.Fatal(err)
	}
	crash()
	waitFor(t, 3*time.Second, "popout did not notice main going away", func() bool {
		return !popout.connected()
	})

	second := newListeningSide(ctx, t, RoleMain, timing, addr)
	defer second.close()
	partner := make(chan struct{}, 1)
	second.loop.Call(func() {
		second.channel.OnPartner = func() {
			select {
			case partner <- struct{}{}:
			default:
			}
		}
		second.channel.Start(nil)
	})

	waitFor(t, 3*time.Second, "popout did not reconnect to the restarted main", func() bool {
		return second.connected() && popout.connected()
	})
	select {
	case <-partner:
	default:
		t.Error("restarted main never learned its partner")
	}
}

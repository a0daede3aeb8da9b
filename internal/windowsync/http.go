package windowsync

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/icco/basstrainer/internal/runloop"
	"github.com/sirupsen/logrus"
)

const (
	// HeaderWindowURL carries the sender's own base URL, the handle to reply on.
	HeaderWindowURL = "X-Window-URL"

	maxMessageBytes = 1 << 20
	sendQueue       = 64
)

// Server receives envelopes over HTTP for a window in another process and
// hands them to a Receiver on its loop.
type Server struct {
	loop   runloop.Loop
	recv   Receiver
	origin string
	router *gin.Engine
	log    *logrus.Entry

	mu      sync.Mutex
	self    string
	windows map[string]*HTTPWindow
	srv     *http.Server
}

// NewServer builds the HTTP endpoint. Requests whose Origin header isn't
// origin are refused.
func NewServer(loop runloop.Loop, recv Receiver, origin string) *Server {
	gin.SetMode(gin.ReleaseMode)

	s := &Server{
		loop:    loop,
		recv:    recv,
		origin:  origin,
		router:  gin.New(),
		log:     logrus.WithField("component", "windowsync-http"),
		windows: make(map[string]*HTTPWindow),
	}

	s.router.Use(gin.Recovery(), requestLogger(s.log))
	s.router.GET("/health", s.health)

	api := s.router.Group("/")
	api.Use(originGuard(origin))
	api.POST("/sync", s.handleSync)

	return s
}

// SetAddress sets the base URL this server is reachable at. Outgoing
// messages advertise it so the partner can reply.
func (s *Server) SetAddress(url string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.self = strings.TrimRight(url, "/")
}

// Handler returns the HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

// ListenAndServe serves on addr until Shutdown.
func (s *Server) ListenAndServe(addr string) error {
	s.mu.Lock()
	s.srv = &http.Server{Addr: addr, Handler: s.router, ReadHeaderTimeout: 5 * time.Second}
	srv := s.srv
	s.mu.Unlock()

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("sync server: %w", err)
	}
	return nil
}

// Shutdown stops the server and every window it created.
func (s *Server) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	srv := s.srv
	windows := s.windows
	s.windows = make(map[string]*HTTPWindow)
	s.mu.Unlock()

	for _, w := range windows {
		w.Close()
	}
	if srv == nil {
		return nil
	}
	return srv.Shutdown(ctx)
}

// Window returns the handle for the window served at url, creating it on
// first use.
func (s *Server) Window(url string) *HTTPWindow {
	url = strings.TrimRight(url, "/")

	s.mu.Lock()
	defer s.mu.Unlock()
	if w, ok := s.windows[url]; ok {
		return w
	}
	w := NewHTTPWindow(url, s.self, s.origin)
	s.windows[url] = w
	return w
}

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "healthy",
		"service": "basstrainer",
	})
}

func (s *Server) handleSync(c *gin.Context) {
	body, err := io.ReadAll(http.MaxBytesReader(c.Writer, c.Request.Body, maxMessageBytes))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unreadable body"})
		return
	}

	var from Window
	if reply := c.GetHeader(HeaderWindowURL); reply != "" {
		w := s.Window(reply)
		// the partner just reached us, so it's alive again
		w.unreachable.Store(false)
		from = w
	}
	origin := c.GetHeader("Origin")

	s.loop.Post(func() {
		s.recv.Receive(body, origin, from)
	})
	c.Status(http.StatusAccepted)
}

func originGuard(origin string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.GetHeader("Origin") != origin {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "origin not allowed"})
			return
		}
		c.Next()
	}
}

func requestLogger(log *logrus.Entry) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		log.WithFields(logrus.Fields{
			"method":  c.Request.Method,
			"path":    c.Request.URL.Path,
			"status":  c.Writer.Status(),
			"latency": time.Since(start),
		}).Debug("request")
	}
}

// HTTPWindow posts envelopes to a window served by another process. Posting
// never blocks: messages are queued and sent in order by a background
// goroutine.
type HTTPWindow struct {
	url    string
	self   string
	origin string
	client *http.Client
	log    *logrus.Entry

	queue       chan []byte
	done        chan struct{}
	once        sync.Once
	unreachable atomic.Bool
}

// NewHTTPWindow returns a handle posting to the server at url. self is the
// sender's own base URL.
func NewHTTPWindow(url, self, origin string) *HTTPWindow {
	w := &HTTPWindow{
		url:    strings.TrimRight(url, "/"),
		self:   self,
		origin: origin,
		client: &http.Client{Timeout: 2 * time.Second},
		log:    logrus.WithFields(logrus.Fields{"component": "windowsync-http", "window": url}),
		queue:  make(chan []byte, sendQueue),
		done:   make(chan struct{}),
	}
	go w.run()
	return w
}

// PostMessage queues data for delivery. Messages are queued even while the
// partner is unreachable; only Close stops delivery.
func (w *HTTPWindow) PostMessage(data []byte) error {
	select {
	case <-w.done:
		return ErrPartnerUnreachable
	case w.queue <- data:
		return nil
	default:
		return errors.New("send queue full")
	}
}

// Closed reports whether the handle was closed or the last delivery failed
// to connect. The latter clears as soon as a delivery goes through or the
// partner posts to us.
func (w *HTTPWindow) Closed() bool {
	select {
	case <-w.done:
		return true
	default:
		return w.unreachable.Load()
	}
}

// Close stops the sender goroutine once the queue is drained.
func (w *HTTPWindow) Close() {
	w.once.Do(func() {
		close(w.done)
	})
}

// run delivers queued messages in order. After Close it flushes what was
// already queued, so a final DISCONNECT still goes out.
func (w *HTTPWindow) run() {
	for {
		select {
		case <-w.done:
			for {
				select {
				case data := <-w.queue:
					w.deliver(data)
				default:
					return
				}
			}
		case data := <-w.queue:
			w.deliver(data)
		}
	}
}

func (w *HTTPWindow) deliver(data []byte) {
	req, err := http.NewRequest(http.MethodPost, w.url+"/sync", bytes.NewReader(data))
	if err != nil {
		w.log.WithError(err).Warn("bad request")
		return
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Origin", w.origin)
	if w.self != "" {
		req.Header.Set(HeaderWindowURL, w.self)
	}

	resp, err := w.client.Do(req)
	if err != nil {
		if w.unreachable.Swap(true) {
			w.log.WithError(err).Debug("partner still unreachable")
		} else {
			w.log.WithError(err).Warn("partner unreachable")
		}
		return
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if w.unreachable.Swap(false) {
		w.log.Info("partner reachable again")
	}

	if resp.StatusCode >= 300 {
		w.log.WithField("status", resp.StatusCode).Warn("partner refused message")
	}
}

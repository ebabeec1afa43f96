package web

import (
	"log/slog"
	"net/http"
	"net/url"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"storefront/internal/metrics"
	"storefront/internal/state"
)

const (
	// feedBuffer bounds the changes queued for one connection. A client that
	// falls this far behind is disconnected and must resync from /api/state.
	feedBuffer     = 64
	feedWriteWait  = 10 * time.Second
	feedPongWait   = 60 * time.Second
	feedPingPeriod = feedPongWait * 9 / 10
	feedReadLimit  = 512
)

// checkOrigin accepts same-host and configured trusted origins. Non-browser
// clients send no Origin and are accepted.
func (s *Server) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	u, err := url.Parse(origin)
	if err != nil {
		return false
	}
	return strings.EqualFold(u.Host, r.Host) || slices.Contains(s.opts.TrustedOrigins, u.Host)
}

// handleEvents serves GET /api/events: a websocket carrying one JSON message per
// committed change of the visitor's session. The connection opens with the
// current state of every namespace; clients keep the highest Seq per namespace.
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}

	upgrader := websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 4096,
		CheckOrigin:     s.checkOrigin,
	}
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Debug("feed_upgrade_failed", "error", err)
		return
	}

	if !s.trackFeed() {
		conn.Close()
		return
	}
	defer s.feeds.Done()
	metrics.FeedConnected()
	defer metrics.FeedDisconnected()

	changes := make(chan state.Change, feedBuffer)
	overflow := make(chan struct{})
	var overflowOnce sync.Once
	push := func(c state.Change) {
		select {
		case changes <- c:
		default:
			overflowOnce.Do(func() { close(overflow) })
		}
	}
	unsubscribe := sess.Hub.Subscribe(push)
	defer unsubscribe()

	// Snapshot after subscribing: a change racing the snapshot may arrive
	// twice but is never lost.
	for _, c := range sess.Current() {
		push(c)
	}

	closed := make(chan struct{})
	go func() {
		defer close(closed)
		conn.SetReadLimit(feedReadLimit)
		conn.SetReadDeadline(time.Now().Add(feedPongWait))
		conn.SetPongHandler(func(string) error {
			return conn.SetReadDeadline(time.Now().Add(feedPongWait))
		})
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	s.writeFeed(conn, changes, overflow, closed, sess.Scope)
	conn.Close()
	<-closed
}

// writeFeed is the connection's only writer.
func (s *Server) writeFeed(conn *websocket.Conn, changes <-chan state.Change, overflow, closed <-chan struct{}, scope string) {
	ping := time.NewTicker(feedPingPeriod)
	defer ping.Stop()

	closeWith := func(code int, text string) {
		msg := websocket.FormatCloseMessage(code, text)
		conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(feedWriteWait))
	}

	for {
		select {
		case c := <-changes:
			conn.SetWriteDeadline(time.Now().Add(feedWriteWait))
			if err := conn.WriteJSON(c); err != nil {
				slog.Debug("feed_write_failed", "scope", scope[:12], "error", err)
				return
			}
		case <-ping.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(feedWriteWait)); err != nil {
				return
			}
		case <-overflow:
			slog.Warn("feed_overflow", "scope", scope[:12], "buffer", feedBuffer)
			closeWith(websocket.CloseTryAgainLater, "feed overflow")
			return
		case <-s.closing:
			closeWith(websocket.CloseGoingAway, "server shutting down")
			return
		case <-closed:
			return
		}
	}
}

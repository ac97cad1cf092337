// internal/handlers/ws.go
package handlers

import (
	"context"
	"net/http"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"

	"github.com/duelhouse/wager-service/internal/auth"
	"github.com/duelhouse/wager-service/internal/middleware"
	"github.com/duelhouse/wager-service/internal/notify"
)

// NotificationsWSHandler upgrades to a websocket and streams the caller's
// notifications. The client authenticates with its usual JWT; the server
// only writes, and reads are drained solely to detect disconnect.
func (s *Server) NotificationsWSHandler(w http.ResponseWriter, r *http.Request) {
	token := middleware.BearerOrCookieToken(r)
	if token == "" {
		token = r.URL.Query().Get("token")
	}
	if token == "" {
		http.Error(w, "missing auth token", http.StatusUnauthorized)
		return
	}
	userID, err := auth.AuthenticateJWT(token)
	if err != nil {
		http.Error(w, "invalid auth token", http.StatusForbidden)
		return
	}
	if banned, err := s.Bans.IsBanned(r.Context(), userID); err != nil || banned {
		http.Error(w, "forbidden", http.StatusForbidden)
		return
	}

	c, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: []string{"*"},
	})
	if err != nil {
		s.Log.Warnf("websocket accept error: %v", err)
		return
	}
	defer c.Close(websocket.StatusInternalError, "handler finished")

	middleware.LogWebSocketConnect(s.Log, r.RemoteAddr, r.URL.Path)

	ctx, cancel := context.WithCancel(r.Context())
	conn := &notify.Conn{
		UserID:  userID,
		OutChan: make(chan notify.Message, 16),
		Cancel:  cancel,
	}
	s.Hub.Register(conn)
	defer s.Hub.Unregister(conn)

	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-conn.OutChan:
				if !ok {
					return
				}
				if err := wsjson.Write(ctx, c, msg); err != nil {
					s.Log.Warnf("notification write to user %d failed: %v", userID, err)
					cancel()
					return
				}
			}
		}
	}()

	// Block reading until the client goes away.
	var readErr error
	for {
		if _, _, readErr = c.Read(ctx); readErr != nil {
			break
		}
	}
	cancel()
	middleware.LogWebSocketDisconnect(s.Log, r.RemoteAddr, r.URL.Path, readErr)
	c.Close(websocket.StatusNormalClosure, "bye")
}

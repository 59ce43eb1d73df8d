package httpapi

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/example/ride-booking/internal/booking"
	"github.com/example/ride-booking/internal/debounce"
	"github.com/example/ride-booking/internal/dispatch"
)

const (
	pongWait   = 60 * time.Second
	pingPeriod = pongWait * 9 / 10
)

var upgrader = websocket.Upgrader{ReadBufferSize: 1024, WriteBufferSize: 1024}

// inbound is a client frame. Only "suggest" is understood: it asks for
// autocomplete candidates for one location field.
type inbound struct {
	Type  string `json:"type"`
	Field string `json:"field"`
	Query string `json:"query"`
}

// handleWS serves debounced suggestions and pushes booking events. Each
// field has its own debounce slot, so typing in the pickup box never
// cancels a dropoff lookup.
func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	token := bearerToken(r)
	if token == "" {
		s.writeError(w, r, errMissingToken)
		return
	}
	sess, err := s.sessions.Authenticate(token)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed", "error", err)
		return
	}
	clientID := sess.User().ID
	ws := s.ws.Add(clientID, conn)
	logger := s.logger.With("client_id", clientID)
	logger.Info("websocket connected")

	ctx, cancel := context.WithCancel(context.Background())
	deb := debounce.New(s.debounce)
	defer func() {
		cancel()
		deb.Stop()
		s.ws.Remove(clientID, ws)
		_ = conn.Close()
		logger.Info("websocket closed")
	}()

	go s.keepAlive(ctx, ws)

	conn.SetReadLimit(4096)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error { return conn.SetReadDeadline(time.Now().Add(pongWait)) })

	for {
		var msg inbound
		if err := conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				logger.Warn("websocket read failed", "error", err)
			}
			return
		}
		switch msg.Type {
		case "suggest":
			field := booking.Field(msg.Field)
			if field != booking.Pickup && field != booking.Dropoff {
				_ = ws.Send(dispatch.Message{Type: "error", Error: "field must be pickup or dropoff"})
				continue
			}
			query := msg.Query
			deb.Do(ctx, msg.Field, func(ctx context.Context) {
				out, err := sess.Suggest(ctx, query)
				if ctx.Err() != nil {
					return
				}
				m := dispatch.Message{Type: "suggestions", Field: string(field), Data: out}
				if err != nil {
					m.Error = "could not load suggestions"
				}
				if err := ws.Send(m); err != nil {
					logger.Warn("websocket send failed", "error", err)
				}
			})
		default:
			_ = ws.Send(dispatch.Message{Type: "error", Error: "unknown message type"})
		}
	}
}

func (s *Server) keepAlive(ctx context.Context, ws *dispatch.WSSession) {
	t := time.NewTicker(pingPeriod)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			if err := ws.Ping(); err != nil {
				return
			}
		}
	}
}

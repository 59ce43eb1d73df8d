package dispatch

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/example/ride-booking/internal/models"
)

var ErrNoSession = errors.New("no ws session")

// Message is the envelope of every frame pushed to a client.
type Message struct {
	Type  string `json:"type"`
	Field string `json:"field,omitempty"`
	Data  any    `json:"data,omitempty"`
	Error string `json:"error,omitempty"`
}

const writeWait = 5 * time.Second

// WSSession serializes writes to one client connection.
type WSSession struct {
	conn *websocket.Conn
	mu   sync.Mutex
}

func (s *WSSession) Send(m Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_ = s.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return s.conn.WriteJSON(m)
}

func (s *WSSession) Ping() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait))
}

// WSRegistry holds the live connection of each signed-in client.
type WSRegistry struct {
	mu       sync.RWMutex
	sessions map[string]*WSSession
}

func NewWSRegistry() *WSRegistry { return &WSRegistry{sessions: make(map[string]*WSSession)} }

// Add replaces any earlier connection of clientID.
func (r *WSRegistry) Add(clientID string, conn *websocket.Conn) *WSSession {
	s := &WSSession{conn: conn}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessions[clientID] = s
	return s
}

// Remove drops clientID only if s is still its current session.
func (r *WSRegistry) Remove(clientID string, s *WSSession) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.sessions[clientID] == s {
		delete(r.sessions, clientID)
	}
}

func (r *WSRegistry) Send(clientID string, m Message) error {
	r.mu.RLock()
	s, ok := r.sessions[clientID]
	r.mu.RUnlock()
	if !ok {
		return ErrNoSession
	}
	return s.Send(m)
}

// Notify pushes the event to the booking's client. Offline clients are not
// an error.
func (r *WSRegistry) Notify(_ context.Context, ev models.BookingEvent) error {
	err := r.Send(ev.Booking.ClientID, Message{Type: "booking_" + ev.Type, Data: ev.Booking})
	if errors.Is(err, ErrNoSession) {
		return nil
	}
	return err
}

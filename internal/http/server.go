package httpapi

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/example/ride-booking/internal/bookingstore"
	"github.com/example/ride-booking/internal/dispatch"
	"github.com/example/ride-booking/internal/fare"
	"github.com/example/ride-booking/internal/session"
)

// History is the stored booking history the API reads.
type History interface {
	ListByClient(ctx context.Context, clientID string) ([]bookingstore.Record, error)
	GetByID(ctx context.Context, id string) (bookingstore.Record, error)
}

type Options struct {
	Sessions        *session.Controller
	History         History
	Fares           *fare.Calculator
	WS              *dispatch.WSRegistry
	SuggestDebounce time.Duration
	Logger          *slog.Logger
}

type Server struct {
	sessions *session.Controller
	history  History
	fares    *fare.Calculator
	ws       *dispatch.WSRegistry
	debounce time.Duration
	logger   *slog.Logger
	mux      *mux.Router
}

func NewServer(opts Options) *Server {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Fares == nil {
		opts.Fares = fare.NewCalculator(nil)
	}
	if opts.WS == nil {
		opts.WS = dispatch.NewWSRegistry()
	}
	if opts.SuggestDebounce <= 0 {
		opts.SuggestDebounce = 400 * time.Millisecond
	}
	s := &Server{
		sessions: opts.Sessions,
		history:  opts.History,
		fares:    opts.Fares,
		ws:       opts.WS,
		debounce: opts.SuggestDebounce,
		logger:   opts.Logger,
		mux:      mux.NewRouter(),
	}
	s.registerMiddleware()
	s.routes()
	return s
}

func (s *Server) routes() {
	api := s.mux.PathPrefix("/api/v1").Subrouter()
	api.HandleFunc("/users", s.handleSignup).Methods(http.MethodPost)
	api.HandleFunc("/sessions", s.handleLogin).Methods(http.MethodPost)
	api.HandleFunc("/sessions", s.handleLogout).Methods(http.MethodDelete)
	api.HandleFunc("/vehicles", s.handleVehicles).Methods(http.MethodGet)

	api.HandleFunc("/booking", s.authed(s.handleDraft)).Methods(http.MethodGet)
	api.HandleFunc("/booking", s.authed(s.handleResetDraft)).Methods(http.MethodDelete)
	api.HandleFunc("/booking/{field:pickup|dropoff}", s.authed(s.handleSetLocation)).Methods(http.MethodPut)
	api.HandleFunc("/booking/click", s.authed(s.handleClick)).Methods(http.MethodPost)
	api.HandleFunc("/booking/options", s.authed(s.handleOptions)).Methods(http.MethodPut)
	api.HandleFunc("/booking/route", s.authed(s.handleRoute)).Methods(http.MethodPost)
	api.HandleFunc("/booking/summary", s.authed(s.handleSummary)).Methods(http.MethodGet)

	api.HandleFunc("/bookings", s.authed(s.handleConfirm)).Methods(http.MethodPost)
	api.HandleFunc("/bookings", s.authed(s.handleHistory)).Methods(http.MethodGet)
	api.HandleFunc("/bookings/sync", s.authed(s.handleSync)).Methods(http.MethodPost)
	api.HandleFunc("/bookings/{id}/cancel", s.authed(s.handleCancel)).Methods(http.MethodPost)
	api.HandleFunc("/bookings/{id}/complete", s.authed(s.handleComplete)).Methods(http.MethodPost)
	api.HandleFunc("/bookings/{id}/receipt", s.authed(s.handleReceipt)).Methods(http.MethodGet)
	api.HandleFunc("/suggestions", s.authed(s.handleSuggestions)).Methods(http.MethodGet)

	s.mux.HandleFunc("/ws", s.handleWS).Methods(http.MethodGet)
	s.mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(200); w.Write([]byte("ok")) }).Methods(http.MethodGet)
	s.mux.Handle("/metrics", promhttp.Handler())
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) { s.mux.ServeHTTP(w, r) }

func newID() string { b := make([]byte, 8); _, _ = rand.Read(b); return hex.EncodeToString(b) }

package httpapi

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/example/ride-booking/internal/booking"
	"github.com/example/ride-booking/internal/bookingstore"
	"github.com/example/ride-booking/internal/models"
	"github.com/example/ride-booking/internal/receipt"
	"github.com/example/ride-booking/internal/users"
	"github.com/example/ride-booking/internal/validation"
)

const maxBodyBytes = 1 << 20

type loginRequest struct {
	ID       string `json:"id" validate:"required"`
	Email    string `json:"email" validate:"required"`
	Passcode string `json:"passcode" validate:"required"`
}

type loginResponse struct {
	Token string      `json:"token"`
	User  models.User `json:"user"`
}

type locationRequest struct {
	Label           string   `json:"label"`
	Lat             *float64 `json:"lat"`
	Lon             *float64 `json:"lon"`
	CurrentLocation bool     `json:"current_location"`
}

type clickRequest struct {
	Lat *float64 `json:"lat"`
	Lon *float64 `json:"lon"`
}

type optionsRequest struct {
	Mode       *string `json:"mode"`
	Vehicle    *string `json:"vehicle"`
	PickupTime *string `json:"pickup_time"`
}

type cancelRequest struct {
	Confirm bool `json:"confirm"`
}

type confirmResponse struct {
	Booking models.Booking `json:"booking"`
	Receipt string         `json:"receipt"`
	Warning string         `json:"warning,omitempty"`
}

func (s *Server) handleSignup(w http.ResponseWriter, r *http.Request) {
	var req users.SignupRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	id, err := s.sessions.Signup(r.Context(), req)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"id": id})
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	if err := validation.Struct(req); err != nil {
		s.writeError(w, r, err)
		return
	}
	token, u, err := s.sessions.Login(r.Context(), req.ID, req.Email, req.Passcode)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, loginResponse{Token: token, User: u})
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	token := bearerToken(r)
	if token == "" {
		s.writeError(w, r, errMissingToken)
		return
	}
	if err := s.sessions.Logout(token); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleVehicles(w http.ResponseWriter, r *http.Request) {
	type vehicle struct {
		Name      string  `json:"name"`
		BaseFare  float64 `json:"base_fare"`
		Increment float64 `json:"increment_fare"`
	}
	var out []vehicle
	for _, name := range s.fares.Vehicles() {
		rate, _ := s.fares.Rate(name)
		out = append(out, vehicle{Name: name, BaseFare: rate.Base, Increment: rate.Increment})
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleDraft(w http.ResponseWriter, r *http.Request, sess *booking.Session) {
	writeJSON(w, http.StatusOK, sess.Draft())
}

func (s *Server) handleResetDraft(w http.ResponseWriter, r *http.Request, sess *booking.Session) {
	sess.Reset()
	writeJSON(w, http.StatusOK, sess.Draft())
}

func (s *Server) handleSetLocation(w http.ResponseWriter, r *http.Request, sess *booking.Session) {
	field := booking.Field(mux.Vars(r)["field"])
	var req locationRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	if req.CurrentLocation {
		s.writeDraft(w, r, sess, sess.UseCurrentLocation(r.Context(), field))
		return
	}
	c, err := coordFrom(req.Lat, req.Lon)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	err = sess.SetLocation(r.Context(), field, models.Location{Label: req.Label, Coord: c})
	s.writeDraft(w, r, sess, err)
}

func (s *Server) handleClick(w http.ResponseWriter, r *http.Request, sess *booking.Session) {
	var req clickRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	c, err := coordFrom(req.Lat, req.Lon)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	_, err = sess.Click(r.Context(), c)
	s.writeDraft(w, r, sess, err)
}

func (s *Server) handleOptions(w http.ResponseWriter, r *http.Request, sess *booking.Session) {
	var req optionsRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	opts := booking.Options{Vehicle: req.Vehicle, PickupTime: req.PickupTime}
	if req.Mode != nil {
		mode := models.BookingType(*req.Mode)
		opts.Mode = &mode
	}
	if err := sess.SetOptions(opts); err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sess.Draft())
}

func (s *Server) handleRoute(w http.ResponseWriter, r *http.Request, sess *booking.Session) {
	_, err := sess.ComputeRoute(r.Context())
	s.writeDraft(w, r, sess, err)
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request, sess *booking.Session) {
	sum, err := sess.Summary()
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sum)
}

func (s *Server) handleConfirm(w http.ResponseWriter, r *http.Request, sess *booking.Session) {
	b, err := sess.Confirm(r.Context())
	var pe *bookingstore.PersistenceError
	switch {
	case err == nil:
		writeJSON(w, http.StatusCreated, confirmResponse{Booking: b, Receipt: receipt.String(b)})
	case errors.As(err, &pe) && b.ID != "":
		writeJSON(w, http.StatusCreated, confirmResponse{
			Booking: b,
			Receipt: receipt.String(b),
			Warning: "booking confirmed but not yet saved; retry with POST /api/v1/bookings/sync",
		})
	default:
		s.writeError(w, r, err)
	}
}

func (s *Server) handleCancel(w http.ResponseWriter, r *http.Request, sess *booking.Session) {
	var req cancelRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	if !req.Confirm {
		s.writeError(w, r, validation.New("confirm", "cancellation must be confirmed"))
		return
	}
	b, err := sess.Cancel(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, b)
}

func (s *Server) handleComplete(w http.ResponseWriter, r *http.Request, sess *booking.Session) {
	b, err := sess.Complete(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, b)
}

func (s *Server) handleSync(w http.ResponseWriter, r *http.Request, sess *booking.Session) {
	n, err := sess.Sync(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"synced": n})
}

// handleHistory lists stored bookings, or the current session's bookings
// with ?source=session.
func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request, sess *booking.Session) {
	if r.URL.Query().Get("source") == "session" || s.history == nil {
		writeJSON(w, http.StatusOK, map[string]any{"bookings": sess.Bookings()})
		return
	}
	recs, err := s.history.ListByClient(r.Context(), sess.User().ID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if recs == nil {
		recs = []bookingstore.Record{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"bookings": recs})
}

func (s *Server) handleReceipt(w http.ResponseWriter, r *http.Request, sess *booking.Session) {
	id := mux.Vars(r)["id"]
	b, err := sess.Booking(id)
	if errors.Is(err, booking.ErrBookingNotFound) && s.history != nil {
		var rec bookingstore.Record
		rec, err = s.history.GetByID(r.Context(), id)
		if err == nil && rec.ClientID != sess.User().ID {
			err = bookingstore.ErrNotFound
		}
		b = rec.Booking()
	}
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_ = receipt.Write(w, b)
}

func (s *Server) handleSuggestions(w http.ResponseWriter, r *http.Request, sess *booking.Session) {
	out, err := sess.Suggest(r.Context(), r.URL.Query().Get("q"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

// writeDraft reports the draft after a location change. A failed route
// still returns the draft, since the location itself was accepted.
func (s *Server) writeDraft(w http.ResponseWriter, r *http.Request, sess *booking.Session, err error) {
	if err == nil {
		writeJSON(w, http.StatusOK, sess.Draft())
		return
	}
	status, msg := classify(err)
	if status >= 500 {
		s.logger.Warn("request failed", "path", r.URL.Path, "status", status, "error", err)
	}
	draft := sess.Draft()
	writeJSON(w, status, errorBody{Error: msg, Draft: &draft})
}

type errorBody struct {
	Error string         `json:"error"`
	Field string         `json:"field,omitempty"`
	Draft *booking.Draft `json:"draft,omitempty"`
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status, msg := classify(err)
	if status >= 500 {
		s.logger.Error("request failed", "path", r.URL.Path, "status", status, "error", err)
	}
	body := errorBody{Error: msg}
	var ve *validation.Error
	if errors.As(err, &ve) {
		body.Field = ve.Field
	}
	writeJSON(w, status, body)
}

func coordFrom(lat, lon *float64) (models.Coord, error) {
	switch {
	case lat == nil || lon == nil:
		return models.Coord{}, validation.New("lat", "lat and lon are required")
	case *lat < -90 || *lat > 90:
		return models.Coord{}, validation.New("lat", "must be between -90 and 90")
	case *lon < -180 || *lon > 180:
		return models.Coord{}, validation.New("lon", "must be between -180 and 180")
	}
	return models.Coord{Lat: *lat, Lon: *lon}, nil
}

func decodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return validation.New("", "request body is required")
		}
		return validation.New("", "invalid JSON body: "+err.Error())
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// Package testserver runs an in-process fake of a server's check-in API
// for tests of the sync engine and the CLI.
package testserver

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/marcus/checkin/internal/models"
	"github.com/marcus/checkin/internal/syncclient"
)

// Server is a fake check-in API. All mutators are safe for concurrent use.
type Server struct {
	*httptest.Server
	Token string

	mu           sync.Mutex
	events       map[int64]syncclient.Event
	regforms     map[int64]map[int64]syncclient.Regform
	participants map[int64]map[int64]syncclient.Participant // regform id -> participant id
	regformEvent map[int64]int64
	failures     map[string]int
	raw          map[string]string
	requests     []string
}

// New starts a fake API that accepts the given bearer token.
func New(token string) *Server {
	s := &Server{
		Token:        token,
		events:       make(map[int64]syncclient.Event),
		regforms:     make(map[int64]map[int64]syncclient.Regform),
		participants: make(map[int64]map[int64]syncclient.Participant),
		regformEvent: make(map[int64]int64),
		failures:     make(map[string]int),
		raw:          make(map[string]string),
	}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(s.record)
	r.Use(s.authenticate)
	r.Route("/api/checkin", func(r chi.Router) {
		r.Get("/event/{e}", s.getEvent)
		r.Get("/event/{e}/registrations", s.listRegforms)
		r.Get("/event/{e}/registration/{r}", s.getRegform)
		r.Get("/event/{e}/registration/{r}/registrations", s.listParticipants)
		r.Get("/event/{e}/registration/{r}/{p}", s.getParticipant)
		r.Patch("/event/{e}/registration/{r}/{p}", s.checkIn)
		r.Patch("/event/{e}/registration/{r}/{p}/payment", s.setPaid)
		r.Get("/ticket/{secret}", s.getTicket)
	})

	s.Server = httptest.NewServer(r)
	return s
}

// AddEvent stores or replaces an event.
func (s *Server) AddEvent(e syncclient.Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events[e.ID] = e
	if s.regforms[e.ID] == nil {
		s.regforms[e.ID] = make(map[int64]syncclient.Regform)
	}
}

// RemoveEvent drops an event and everything under it.
func (s *Server) RemoveEvent(id int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for rid := range s.regforms[id] {
		delete(s.participants, rid)
		delete(s.regformEvent, rid)
	}
	delete(s.regforms, id)
	delete(s.events, id)
}

// AddRegform stores or replaces a registration form of an event.
func (s *Server) AddRegform(eventID int64, rf syncclient.Regform) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.regforms[eventID] == nil {
		s.regforms[eventID] = make(map[int64]syncclient.Regform)
	}
	s.regforms[eventID][rf.ID] = rf
	s.regformEvent[rf.ID] = eventID
	if s.participants[rf.ID] == nil {
		s.participants[rf.ID] = make(map[int64]syncclient.Participant)
	}
}

// RemoveRegform drops a registration form and its participants.
func (s *Server) RemoveRegform(eventID, regformID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.regforms[eventID], regformID)
	delete(s.participants, regformID)
	delete(s.regformEvent, regformID)
}

// AddParticipant stores or replaces a registration.
func (s *Server) AddParticipant(regformID int64, p syncclient.Participant) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.participants[regformID] == nil {
		s.participants[regformID] = make(map[int64]syncclient.Participant)
	}
	if p.OccupiedSlots == 0 {
		p.OccupiedSlots = 1
	}
	if p.State == "" {
		p.State = models.StateComplete
	}
	s.participants[regformID][p.ID] = p
}

// RemoveParticipant drops a registration.
func (s *Server) RemoveParticipant(regformID, participantID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.participants[regformID], participantID)
}

// Regform returns the current server-side state of a registration form.
func (s *Server) Regform(eventID, regformID int64) syncclient.Regform {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.regforms[eventID][regformID]
}

// Participant returns the current server-side state of a registration.
func (s *Server) Participant(regformID, participantID int64) syncclient.Participant {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.participants[regformID][participantID]
}

// Fail makes every request matching method and path (relative to the API
// root, e.g. "GET event/42") answer with status until ClearFailures.
func (s *Server) Fail(method, path string, status int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures[method+" "+path] = status
}

// Respond makes every request matching method and path answer 200 with
// the given raw body until ClearFailures.
func (s *Server) Respond(method, path, body string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.raw[method+" "+path] = body
}

// ClearFailures removes all injected failures and raw responses.
func (s *Server) ClearFailures() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures = make(map[string]int)
	s.raw = make(map[string]string)
}

// Requests returns the "METHOD path" lines received so far.
func (s *Server) Requests() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.requests...)
}

// --- middleware ---

func (s *Server) record(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := r.Method + " " + trimAPIPrefix(r.URL.Path)
		s.mu.Lock()
		s.requests = append(s.requests, key)
		status, failing := s.failures[key]
		body, canned := s.raw[key]
		s.mu.Unlock()

		if failing {
			writeError(w, status, http.StatusText(status))
			return
		}
		if canned {
			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte(body))
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer "+s.Token {
			writeError(w, http.StatusUnauthorized, "Invalid token")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// --- handlers ---

func (s *Server) getEvent(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.events[param(r, "e")]
	if !ok {
		writeError(w, http.StatusNotFound, "Event not found")
		return
	}
	writeJSON(w, e)
}

func (s *Server) listRegforms(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	eventID := param(r, "e")
	if _, ok := s.events[eventID]; !ok {
		writeError(w, http.StatusNotFound, "Event not found")
		return
	}
	list := make([]syncclient.Regform, 0, len(s.regforms[eventID]))
	for _, rf := range s.regforms[eventID] {
		list = append(list, rf)
	}
	sort.Slice(list, func(i, j int) bool { return list[i].ID < list[j].ID })
	writeJSON(w, list)
}

func (s *Server) getRegform(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rf, ok := s.regforms[param(r, "e")][param(r, "r")]
	if !ok {
		writeError(w, http.StatusNotFound, "Registration form not found")
		return
	}
	writeJSON(w, rf)
}

func (s *Server) listParticipants(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.regforms[param(r, "e")][param(r, "r")]; !ok {
		writeError(w, http.StatusNotFound, "Registration form not found")
		return
	}
	ps := s.participants[param(r, "r")]
	list := make([]syncclient.Participant, 0, len(ps))
	for _, p := range ps {
		list = append(list, p)
	}
	sort.Slice(list, func(i, j int) bool { return list[i].ID < list[j].ID })
	writeJSON(w, list)
}

// lookup returns the addressed participant; callers hold s.mu
func (s *Server) lookup(w http.ResponseWriter, r *http.Request) (syncclient.Participant, bool) {
	eventID, regformID := param(r, "e"), param(r, "r")
	if _, ok := s.regforms[eventID][regformID]; !ok {
		writeError(w, http.StatusNotFound, "Registration form not found")
		return syncclient.Participant{}, false
	}
	p, ok := s.participants[regformID][param(r, "p")]
	if !ok {
		writeError(w, http.StatusNotFound, "Registration not found")
		return syncclient.Participant{}, false
	}
	return p, true
}

func (s *Server) getParticipant(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p, ok := s.lookup(w, r); ok {
		writeJSON(w, p)
	}
}

func (s *Server) checkIn(w http.ResponseWriter, r *http.Request) {
	var body struct {
		CheckedIn *bool `json:"checked_in"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.CheckedIn == nil {
		writeError(w, http.StatusBadRequest, "checked_in is required")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.lookup(w, r)
	if !ok {
		return
	}

	eventID, regformID := param(r, "e"), param(r, "r")
	if p.CheckedIn != *body.CheckedIn {
		rf := s.regforms[eventID][regformID]
		if *body.CheckedIn {
			now := time.Now().UTC().Truncate(time.Second)
			p.CheckedInDt = &now
			rf.CheckedInCount += p.OccupiedSlots
		} else {
			p.CheckedInDt = nil
			rf.CheckedInCount -= p.OccupiedSlots
		}
		s.regforms[eventID][regformID] = rf
	}
	p.CheckedIn = *body.CheckedIn
	s.participants[regformID][p.ID] = p
	writeJSON(w, p)
}

func (s *Server) setPaid(w http.ResponseWriter, r *http.Request) {
	var body struct {
		IsPaid *bool `json:"is_paid"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.IsPaid == nil {
		writeError(w, http.StatusBadRequest, "is_paid is required")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.lookup(w, r)
	if !ok {
		return
	}

	p.IsPaid = *body.IsPaid
	if p.IsPaid {
		p.State = models.StateComplete
	} else {
		p.State = models.StateUnpaid
	}
	p.FormattedPrice = formatPrice(p.Price, p.Currency)
	s.participants[param(r, "r")][p.ID] = p
	writeJSON(w, p)
}

func (s *Server) getTicket(w http.ResponseWriter, r *http.Request) {
	secret := chi.URLParam(r, "secret")

	s.mu.Lock()
	defer s.mu.Unlock()
	for regformID, ps := range s.participants {
		for _, p := range ps {
			if p.CheckinSecret != secret {
				continue
			}
			p.RegformID = regformID
			p.EventID = s.regformEvent[regformID]
			writeJSON(w, p)
			return
		}
	}
	writeError(w, http.StatusNotFound, "Ticket not found")
}

// --- helpers ---

func param(r *http.Request, name string) int64 {
	id, _ := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	return id
}

func trimAPIPrefix(path string) string {
	const prefix = "/api/checkin/"
	if len(path) >= len(prefix) && path[:len(prefix)] == prefix {
		return path[len(prefix):]
	}
	return path
}

func formatPrice(price float64, currency string) string {
	if currency == "" {
		return fmt.Sprintf("%.2f", price)
	}
	return fmt.Sprintf("%.2f %s", price, currency)
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"message": message})
}

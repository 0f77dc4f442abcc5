package web

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/pkg/errors"

	"peoplepulse/internal/calendar"
	"peoplepulse/internal/config"
	appLog "peoplepulse/internal/log"
	"peoplepulse/internal/model"
)

const dateLayout = "2006-01-02"

// Refresher reloads external sources on demand.
type Refresher interface {
	RefreshOnce(ctx context.Context) error
	LastRun() (time.Time, error)
}

// Server exposes the event store and the calendar views over HTTP.
//
// Navigation and selection state is held server-side, shared by all
// clients, and guarded by viewMu.
type Server struct {
	cfg       *config.Config
	store     *calendar.Store
	refresher Refresher
	loc       *time.Location
	now       func() time.Time
	router    *mux.Router

	viewMu sync.Mutex
	nav    *calendar.Navigator
	sel    *calendar.Selection

	revision    atomic.Uint64
	unsubscribe func()
}

// Option customizes a Server.
type Option func(*Server)

// WithClock overrides time.Now, mostly for tests.
func WithClock(now func() time.Time) Option {
	return func(s *Server) { s.now = now }
}

// WithRefresher enables POST /api/refresh.
func WithRefresher(r Refresher) Option {
	return func(s *Server) { s.refresher = r }
}

// NewServer constructs a Server over store. Close releases its store
// subscription.
func NewServer(cfg *config.Config, store *calendar.Store, opts ...Option) *Server {
	s := &Server{
		cfg:    cfg,
		store:  store,
		now:    time.Now,
		router: mux.NewRouter(),
	}
	for _, opt := range opts {
		opt(s)
	}
	loc, err := cfg.Location()
	if err != nil {
		appLog.Error("failed to load timezone; falling back to local", err, "name", cfg.Timezone)
		loc = time.Local
	}
	s.loc = loc

	today := s.today()
	s.nav = calendar.NewNavigator(today, calendar.ViewMonth, calendar.ParseWeekStart(cfg.WeekStart))
	s.nav.OnPeriodChange(func(start time.Time) {
		appLog.Debug("calendar period changed", "start", start.Format(dateLayout), "view", string(s.nav.View()))
	})
	s.sel = calendar.NewSelection()
	s.sel.OnSelect(func(day time.Time) {
		appLog.Debug("calendar day selected", "date", day.Format(dateLayout))
	})

	s.unsubscribe = store.Subscribe(func(events []model.Event) {
		rev := s.revision.Add(1)
		appLog.Debug("event store changed", "revision", rev, "events", len(events))
	})

	s.registerRoutes()
	return s
}

// Close detaches the server from the store.
func (s *Server) Close() {
	if s.unsubscribe != nil {
		s.unsubscribe()
	}
}

// Handler returns the underlying http.Handler for this server.
func (s *Server) Handler() http.Handler {
	h := http.Handler(s.router)
	if s.basicAuthEnabled() {
		appLog.Info("HTTP basic auth enabled", "listen", "http://"+s.cfg.Listen)
		return s.basicAuthMiddleware(h)
	}
	return h
}

// basicAuthEnabled reports whether HTTP Basic Auth is configured.
func (s *Server) basicAuthEnabled() bool {
	if s.cfg == nil || s.cfg.BasicAuth == nil {
		return false
	}
	return s.cfg.BasicAuth.Username != "" && s.cfg.BasicAuth.Password != ""
}

// basicAuthMiddleware wraps all handlers except /health with HTTP Basic Auth.
func (s *Server) basicAuthMiddleware(next http.Handler) http.Handler {
	username := s.cfg.BasicAuth.Username
	password := s.cfg.BasicAuth.Password

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/health" {
			next.ServeHTTP(w, r)
			return
		}

		u, p, ok := r.BasicAuth()
		if !ok || !secureCompare(u, username) || !secureCompare(p, password) {
			w.Header().Set("WWW-Authenticate", `Basic realm="PeoplePulse", charset="UTF-8"`)
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// secureCompare compares two strings in constant time.
func secureCompare(a, b string) bool {
	if len(a) != len(b) {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}

// ListenAndServe serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Listen,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		appLog.Info("starting HTTP server", "listen", "http://"+s.cfg.Listen)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return errors.Wrap(err, "http shutdown")
	}
	appLog.Info("HTTP server stopped")
	return nil
}

func (s *Server) registerRoutes() {
	r := s.router
	r.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)

	api := r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/events", s.handleListEvents).Methods(http.MethodGet)
	api.HandleFunc("/events", s.handleCreateEvent).Methods(http.MethodPost)
	api.HandleFunc("/events/{id}", s.handleGetEvent).Methods(http.MethodGet)
	api.HandleFunc("/events/{id}", s.handleUpdateEvent).Methods(http.MethodPut)
	api.HandleFunc("/events/{id}", s.handleDeleteEvent).Methods(http.MethodDelete)
	api.HandleFunc("/events/{id}/occurrences", s.handleOccurrences).Methods(http.MethodGet)
	api.HandleFunc("/day", s.handleDay).Methods(http.MethodGet)
	api.HandleFunc("/grid", s.handleGrid).Methods(http.MethodGet)
	api.HandleFunc("/refresh", s.handleRefresh).Methods(http.MethodPost)

	api.HandleFunc("/view", s.handleView).Methods(http.MethodGet)
	api.HandleFunc("/view/next", s.handleViewStep(1)).Methods(http.MethodPost)
	api.HandleFunc("/view/prev", s.handleViewStep(-1)).Methods(http.MethodPost)
	api.HandleFunc("/view/reset", s.handleViewReset).Methods(http.MethodPost)
	api.HandleFunc("/view/mode", s.handleViewMode).Methods(http.MethodPost)
	api.HandleFunc("/view/select", s.handleViewSelect).Methods(http.MethodPost)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok\n"))
}

// GET /api/events?type=Holiday&type=Leave
func (s *Server) handleListEvents(w http.ResponseWriter, r *http.Request) {
	types := typesParam(r)
	etag := fmt.Sprintf(`"rev-%d"`, s.revision.Load())
	if len(types) > 0 {
		etag = fmt.Sprintf(`"rev-%d-%s"`, s.revision.Load(), strings.Join(types, ","))
	}
	if match := r.Header.Get("If-None-Match"); match != "" && match == etag {
		w.WriteHeader(http.StatusNotModified)
		return
	}
	w.Header().Set("ETag", etag)
	writeJSON(w, http.StatusOK, s.store.FilterByType(types...))
}

func (s *Server) handleGetEvent(w http.ResponseWriter, r *http.Request) {
	ev, ok := s.store.Get(mux.Vars(r)["id"])
	if !ok {
		writeError(w, http.StatusNotFound, "event not found")
		return
	}
	writeJSON(w, http.StatusOK, ev)
}

func (s *Server) handleCreateEvent(w http.ResponseWriter, r *http.Request) {
	ev, err := decodeEvent(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if ev.ID == "" {
		ev.ID = uuid.NewString()
	} else if _, exists := s.store.Get(ev.ID); exists {
		writeError(w, http.StatusConflict, "event id already exists")
		return
	}
	if ev.Source == "" {
		ev.Source = model.SourceManual
	}
	if err := model.Validate(ev); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	s.store.Add(ev)
	appLog.Info("event created", "id", ev.ID, "recurrence", string(ev.Recurrence))
	writeJSON(w, http.StatusCreated, ev)
}

func (s *Server) handleUpdateEvent(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	current, ok := s.store.Get(id)
	if !ok {
		writeError(w, http.StatusNotFound, "event not found")
		return
	}
	if current.ReadOnly {
		writeError(w, http.StatusForbidden, "event is read-only")
		return
	}

	ev, err := decodeEvent(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	ev.ID = id
	if ev.Source == "" {
		ev.Source = current.Source
	}
	if err := model.Validate(ev); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if !s.store.Update(ev) {
		writeError(w, http.StatusNotFound, "event not found")
		return
	}
	writeJSON(w, http.StatusOK, ev)
}

func (s *Server) handleDeleteEvent(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	if current, ok := s.store.Get(id); ok && current.ReadOnly {
		writeError(w, http.StatusForbidden, "event is read-only")
		return
	}
	if !s.store.Delete(id) {
		writeError(w, http.StatusNotFound, "event not found")
		return
	}
	appLog.Info("event deleted", "id", id)
	w.WriteHeader(http.StatusNoContent)
}

// GET /api/events/{id}/occurrences?until=2024-12-31&max=50
func (s *Server) handleOccurrences(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	until := calendar.EndOfDay(calendar.EndOfMonth(calendar.AddMonths(s.today(), 3)))
	if raw := q.Get("until"); raw != "" {
		d, err := s.parseDate(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		until = calendar.EndOfDay(d)
	}

	occs, ok := s.store.Occurrences(mux.Vars(r)["id"], until, s.maxOccurrences(q.Get("max")))
	if !ok {
		writeError(w, http.StatusNotFound, "event not found")
		return
	}
	writeJSON(w, http.StatusOK, occs)
}

// GET /api/day?date=2024-03-04&type=Leave
func (s *Server) handleDay(w http.ResponseWriter, r *http.Request) {
	date, err := s.dateParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	occs := s.store.EventsForDate(date, s.maxOccurrences(""), typesParam(r)...)
	if occs == nil {
		occs = []model.Occurrence{}
	}
	writeJSON(w, http.StatusOK, dayResponse{Date: date.Format(dateLayout), Occurrences: occs})
}

// GET /api/grid?date=2024-03-04&view=week&type=Holiday
func (s *Server) handleGrid(w http.ResponseWriter, r *http.Request) {
	date, err := s.dateParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	view, err := calendar.ParseView(r.URL.Query().Get("view"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	g := calendar.BuildGrid(date, view, s.store.Events(), s.gridOptions(typesParam(r)))
	writeJSON(w, http.StatusOK, newGridResponse(g, nil))
}

func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	if s.refresher == nil {
		writeError(w, http.StatusNotImplemented, "no refresh sources configured")
		return
	}
	var resp refreshResponse
	if err := s.refresher.RefreshOnce(r.Context()); err != nil {
		resp.Error = err.Error()
	}
	resp.Events = s.store.Len()
	if at, _ := s.refresher.LastRun(); !at.IsZero() {
		resp.LastRun = at.In(s.loc).Format(time.RFC3339)
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleView(w http.ResponseWriter, r *http.Request) {
	s.writeView(w, typesParam(r))
}

func (s *Server) handleViewStep(dir int) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.viewMu.Lock()
		if dir > 0 {
			s.nav.Next()
		} else {
			s.nav.Prev()
		}
		s.viewMu.Unlock()
		s.writeView(w, typesParam(r))
	}
}

func (s *Server) handleViewReset(w http.ResponseWriter, r *http.Request) {
	s.viewMu.Lock()
	s.nav.Reset(s.today())
	s.viewMu.Unlock()
	s.writeView(w, typesParam(r))
}

// POST /api/view/mode?view=week
func (s *Server) handleViewMode(w http.ResponseWriter, r *http.Request) {
	view, err := calendar.ParseView(r.URL.Query().Get("view"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	s.viewMu.Lock()
	s.nav.SetView(view)
	s.viewMu.Unlock()
	s.writeView(w, typesParam(r))
}

// POST /api/view/select?date=2024-03-04
func (s *Server) handleViewSelect(w http.ResponseWriter, r *http.Request) {
	date, err := s.dateParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	s.viewMu.Lock()
	s.sel.Select(date)
	s.viewMu.Unlock()
	s.writeView(w, typesParam(r))
}

func (s *Server) writeView(w http.ResponseWriter, types []string) {
	events := s.store.Events()

	s.viewMu.Lock()
	g := s.nav.Grid(events, s.gridOptions(types))
	resp := viewResponse{
		Focus:       s.nav.Focus().Format(dateLayout),
		View:        s.nav.View(),
		PeriodStart: s.nav.PeriodStart().Format(dateLayout),
		Grid:        newGridResponse(g, s.sel),
		Expanded:    s.sel.ExpandedOccurrences(g),
	}
	if d, ok := s.sel.Selected(); ok {
		resp.Selected = d.Format(dateLayout)
	}
	s.viewMu.Unlock()

	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) gridOptions(types []string) calendar.GridOptions {
	return calendar.GridOptions{
		WeekStart:      calendar.ParseWeekStart(s.cfg.WeekStart),
		Today:          s.today(),
		MaxOccurrences: s.maxOccurrences(""),
		Types:          types,
	}
}

func (s *Server) today() time.Time {
	return calendar.StartOfDay(s.now().In(s.locOrLocal()))
}

func (s *Server) locOrLocal() *time.Location {
	if s.loc == nil {
		return time.Local
	}
	return s.loc
}

func (s *Server) parseDate(raw string) (time.Time, error) {
	d, err := time.ParseInLocation(dateLayout, raw, s.locOrLocal())
	if err != nil {
		return time.Time{}, errors.Errorf("invalid date %q (want YYYY-MM-DD)", raw)
	}
	return d, nil
}

// dateParam reads ?date=, defaulting to today.
func (s *Server) dateParam(r *http.Request) (time.Time, error) {
	raw := r.URL.Query().Get("date")
	if raw == "" {
		return s.today(), nil
	}
	return s.parseDate(raw)
}

func (s *Server) maxOccurrences(raw string) int {
	def := s.cfg.MaxOccurrences
	if def <= 0 {
		def = calendar.DefaultMaxOccurrences
	}
	n := parseIntDefault(raw, def)
	if n <= 0 || n > def {
		return def
	}
	return n
}

// typesParam accepts repeated ?type= values and comma lists.
func typesParam(r *http.Request) []string {
	var out []string
	for _, v := range r.URL.Query()["type"] {
		for _, t := range strings.Split(v, ",") {
			if t = strings.TrimSpace(t); t != "" {
				out = append(out, t)
			}
		}
	}
	return out
}

func decodeEvent(r *http.Request) (model.Event, error) {
	var ev model.Event
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&ev); err != nil {
		return ev, errors.Wrap(err, "decode event")
	}
	rec, err := model.ParseRecurrence(string(ev.Recurrence))
	if err != nil {
		return ev, err
	}
	ev.Recurrence = rec
	return ev, nil
}

func parseIntDefault(s string, def int) int {
	if s == "" {
		return def
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return n
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		appLog.Error("failed to write JSON response", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	type errResp struct {
		Error string `json:"error"`
	}
	writeJSON(w, status, errResp{Error: msg})
}

// Package messagingapi exposes a page's messaging layer over HTTP: binding
// frames, configuring channels, sending, and streaming what receivers get.
package messagingapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"ClawdCity-Messaging/internal/core/window"
	"ClawdCity-Messaging/internal/inbox"
	"ClawdCity-Messaging/internal/messaging"
)

var (
	ErrFrameIDs     = errors.New("messagingapi: element_id and window_id required")
	ErrElementID    = errors.New("messagingapi: element_id required")
	ErrFrameUnbound = errors.New("messagingapi: sending roles need a bound frame")
)

// Page is the window the server configures channels on.
type Page interface {
	ID() string
	Origin() string
	Proxy(id string) *window.Proxy
}

// ChannelSpec is the request form of a channel configuration.
type ChannelSpec struct {
	ElementID string `json:"element_id"`
	messaging.Settings
	// Reply is what a receive_and_reply channel answers. Nil echoes the
	// received data.
	Reply any `json:"reply,omitempty"`
}

type Option func(*Server)

func WithLogger(l *zap.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.log = l
		}
	}
}

// WithStaticDir serves files from dir for paths outside the API.
func WithStaticDir(dir string) Option {
	return func(s *Server) { s.staticDir = dir }
}

type Server struct {
	page      Page
	messenger *messaging.Messenger
	inbox     *inbox.Inbox
	log       *zap.Logger
	staticDir string

	mu       sync.Mutex
	elements map[string]window.Element
}

func NewServer(page Page, m *messaging.Messenger, in *inbox.Inbox, opts ...Option) *Server {
	s := &Server{
		page:      page,
		messenger: m,
		inbox:     in,
		log:       zap.NewNop(),
		elements:  make(map[string]window.Element),
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Routes builds the HTTP handler.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(cors)

	r.Route("/api", func(r chi.Router) {
		r.Get("/page", s.handlePage)
		r.Post("/frames", s.handleBindFrame)
		r.Get("/channels", s.handleListChannels)
		r.Post("/channels", s.handleConfigure)
		r.Post("/channels/{element}/send", s.handleSend)
		r.Get("/inbox", s.handleInbox)
		r.Get("/inbox/stream", s.handleInboxStream)
	})
	r.Handle("/metrics", promhttp.Handler())
	if s.staticDir != "" {
		r.Handle("/*", http.FileServer(http.Dir(s.staticDir)))
	}
	return r
}

// BindFrame records a frame element whose content window is windowID.
// Binding an element id again replaces the element; its channel must be
// configured again to use the new frame.
func (s *Server) BindFrame(elementID, windowID string) (*window.Frame, error) {
	elementID, windowID = strings.TrimSpace(elementID), strings.TrimSpace(windowID)
	if elementID == "" || windowID == "" {
		return nil, ErrFrameIDs
	}
	frame := window.NewFrame(elementID, s.page.Proxy(windowID))
	s.mu.Lock()
	s.elements[elementID] = frame
	s.mu.Unlock()
	s.log.Info("frame bound", zap.String("element", elementID), zap.String("content_window", windowID))
	return frame, nil
}

// ConfigureChannel configures spec on its element. Receiving-only roles
// get a container element, kept once a configuration on it succeeds;
// sending roles need a frame bound beforehand.
func (s *Server) ConfigureChannel(spec ChannelSpec) (*messaging.Channel, error) {
	if strings.TrimSpace(spec.ElementID) == "" {
		return nil, ErrElementID
	}
	opts, err := spec.Settings.Options()
	if err != nil {
		return nil, err
	}
	role := messaging.BuildOptions(opts...).Role

	element, fresh, err := s.element(spec.ElementID, role)
	if err != nil {
		return nil, err
	}
	switch {
	case role.Replies():
		opts = append(opts, messaging.OnReceiveReply(s.replyHandler(spec.ElementID, role, spec.Reply)))
	case role.Receives():
		opts = append(opts, messaging.OnReceive(s.receiveHandler(spec.ElementID, role)))
	}
	ch, err := s.messenger.Configure(element, opts...)
	if err != nil {
		return nil, err
	}
	if fresh {
		s.mu.Lock()
		if _, ok := s.elements[spec.ElementID]; !ok {
			s.elements[spec.ElementID] = element
		}
		s.mu.Unlock()
	}
	return ch, nil
}

// element looks up id, or makes an unstored container for receiving-only
// roles. fresh reports the latter.
func (s *Server) element(id string, role messaging.Role) (window.Element, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if el, ok := s.elements[id]; ok {
		return el, false, nil
	}
	if role.Sends() {
		return nil, false, fmt.Errorf("%w: %q", ErrFrameUnbound, id)
	}
	return window.NewContainer(id), true, nil
}

func (s *Server) receiveHandler(elementID string, role messaging.Role) messaging.ReceiveFunc {
	return func(ev window.MessageEvent, data any) {
		s.record(inbox.Entry{
			ElementID: elementID,
			Role:      role.String(),
			Origin:    ev.Origin,
			Data:      data,
			At:        ev.ReceivedAt,
		})
	}
}

func (s *Server) replyHandler(elementID string, role messaging.Role, answer any) messaging.ReplyFunc {
	return func(ev window.MessageEvent, data any, reply messaging.Reply) {
		out := answer
		if out == nil {
			out = data
		}
		entry := inbox.Entry{
			ElementID: elementID,
			Role:      role.String(),
			Origin:    ev.Origin,
			Data:      data,
			Reply:     out,
			At:        ev.ReceivedAt,
		}
		if err := reply(out); err != nil {
			entry.ReplyErr = err.Error()
			s.log.Warn("reply failed", zap.String("element", elementID), zap.Error(err))
		} else {
			entry.Replied = true
		}
		s.record(entry)
	}
}

func (s *Server) record(e inbox.Entry) {
	if _, err := s.inbox.Record(e); err != nil {
		s.log.Warn("inbox record failed", zap.String("element", e.ElementID), zap.Error(err))
	}
}

func (s *Server) handlePage(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"window_id": s.page.ID(),
		"origin":    s.page.Origin(),
	})
}

func (s *Server) handleBindFrame(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ElementID string `json:"element_id"`
		WindowID  string `json:"window_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}
	frame, err := s.BindFrame(req.ElementID, req.WindowID)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"element_id": frame.ID(), "window_id": req.WindowID})
}

type channelView struct {
	ElementID string `json:"element_id"`
	Kind      string `json:"kind"`
	Role      string `json:"role"`
	Domain    string `json:"domain,omitempty"`
	Strict    bool   `json:"strict"`
}

func viewOf(ch *messaging.Channel) channelView {
	d := ch.Descriptor()
	return channelView{
		ElementID: ch.Element().ID(),
		Kind:      ch.Element().Kind().String(),
		Role:      d.Role().String(),
		Domain:    d.Domain(),
		Strict:    d.Strict(),
	}
}

func (s *Server) handleConfigure(w http.ResponseWriter, r *http.Request) {
	var spec ChannelSpec
	if err := json.NewDecoder(r.Body).Decode(&spec); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}
	ch, err := s.ConfigureChannel(spec)
	if err != nil {
		writeError(w, statusFor(err), err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"channel": viewOf(ch)})
}

func (s *Server) handleListChannels(w http.ResponseWriter, r *http.Request) {
	ids := s.messenger.Elements()
	views := make([]channelView, 0, len(ids))
	for _, id := range ids {
		ch, err := s.messenger.Channel(id)
		if err != nil {
			continue
		}
		views = append(views, viewOf(ch))
	}
	writeJSON(w, http.StatusOK, map[string]any{"channels": views})
}

func (s *Server) handleSend(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Message any `json:"message"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}
	if err := s.messenger.Send(chi.URLParam(r, "element"), req.Message); err != nil {
		writeError(w, statusFor(err), err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

func (s *Server) handleInbox(w http.ResponseWriter, r *http.Request) {
	elementID := r.URL.Query().Get("element")
	if elementID == "" {
		writeError(w, http.StatusBadRequest, "element query parameter required")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"entries": s.inbox.Recent(elementID)})
}

func (s *Server) handleInboxStream(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "streaming not supported")
		return
	}
	ch, cancel, err := s.inbox.Subscribe(r.URL.Query().Get("element"))
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	defer cancel()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	for {
		select {
		case <-r.Context().Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			if _, err := w.Write([]byte("event: message\ndata: " + string(msg.Payload) + "\n\n")); err != nil {
				return
			}
			flusher.Flush()
		}
	}
}

func statusFor(err error) int {
	switch {
	case messaging.IsConfigError(err), errors.Is(err, ErrElementID):
		return http.StatusBadRequest
	case errors.Is(err, messaging.ErrNotASender):
		return http.StatusConflict
	case errors.Is(err, messaging.ErrUnknownElement), errors.Is(err, ErrFrameUnbound):
		return http.StatusNotFound
	default:
		return http.StatusBadGateway
	}
}

func cors(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		w.Header().Set("Access-Control-Allow-Methods", "GET,POST,OPTIONS")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]any{"error": msg})
}

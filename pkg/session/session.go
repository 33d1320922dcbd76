// Package session provides cookie-identified server-side sessions with a
// flash bag, persisted through a cache.Store (Redis or memory).
//
// Usage (middleware):
//
//	r.Use(session.NewManager(store, session.DefaultOptions()).Middleware())
//
// Usage (handler):
//
//	sess := session.FromCtx(r.Context())
//	sess.Set("user_id", user.ID)
//	sess.Flash("notice", "Saved!")
//
// The middleware saves the session and sets the cookie right before the
// response header is written, so handlers never call Save themselves.
package session

import (
	"bufio"
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/shashiranjanraj/grocerylist/pkg/cache"
	"github.com/shashiranjanraj/grocerylist/pkg/logger"
)

// Options configures the session cookie.
type Options struct {
	CookieName string
	TTL        time.Duration
	HTTPOnly   bool
	Secure     bool
	SameSite   http.SameSite
	Path       string
}

func DefaultOptions() Options {
	return Options{
		CookieName: "grocerylist_session",
		TTL:        2 * time.Hour,
		HTTPOnly:   true,
		SameSite:   http.SameSiteLaxMode,
		Path:       "/",
	}
}

type payload struct {
	Data    map[string]interface{} `json:"data"`
	Flashes map[string][]string    `json:"flashes,omitempty"`
}

// Session is the per-request handle. It is not safe for concurrent use;
// a request owns its session.
type Session struct {
	id      string
	staleID string
	p       payload
	changed bool
}

func newID() string {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		panic(fmt.Sprintf("session: read random: %v", err))
	}
	return hex.EncodeToString(b)
}

func newSession() *Session {
	return &Session{id: newID(), p: payload{Data: map[string]interface{}{}}}
}

func storeKey(id string) string { return "grocerylist:session:" + id }

func (s *Session) ID() string { return s.id }

func (s *Session) Set(key string, value interface{}) {
	s.p.Data[key] = value
	s.changed = true
}

func (s *Session) Get(key string) (interface{}, bool) {
	v, ok := s.p.Data[key]
	return v, ok
}

func (s *Session) GetString(key string) (string, bool) {
	v, ok := s.p.Data[key].(string)
	return v, ok
}

// GetUint also accepts the float64 JSON gives back after a round trip.
func (s *Session) GetUint(key string) (uint, bool) {
	switch n := s.p.Data[key].(type) {
	case uint:
		return n, true
	case int:
		if n >= 0 {
			return uint(n), true
		}
	case float64:
		if n >= 0 {
			return uint(n), true
		}
	}
	return 0, false
}

func (s *Session) Delete(key string) {
	if _, ok := s.p.Data[key]; ok {
		delete(s.p.Data, key)
		s.changed = true
	}
}

// Flash appends msg to the bag of the given type ("notice", "error").
func (s *Session) Flash(typ, msg string) {
	if s.p.Flashes == nil {
		s.p.Flashes = map[string][]string{}
	}
	s.p.Flashes[typ] = append(s.p.Flashes[typ], msg)
	s.changed = true
}

// PeekFlashes returns the messages of one type without consuming them.
func (s *Session) PeekFlashes(typ string) []string {
	return append([]string(nil), s.p.Flashes[typ]...)
}

// Flashes returns and clears every pending flash message.
func (s *Session) Flashes() map[string][]string {
	out := s.p.Flashes
	if len(out) > 0 {
		s.p.Flashes = nil
		s.changed = true
	}
	return out
}

// Regenerate moves the data to a fresh id. Call it on login so a session
// id planted before authentication becomes worthless.
func (s *Session) Regenerate() {
	if s.staleID == "" {
		s.staleID = s.id
	}
	s.id = newID()
	s.changed = true
}

// Invalidate drops all data and issues a new id (logout).
func (s *Session) Invalidate() {
	s.p = payload{Data: map[string]interface{}{}}
	s.Regenerate()
}

type ctxKey struct{}

// WithSession stores s in ctx.
func WithSession(ctx context.Context, s *Session) context.Context {
	return context.WithValue(ctx, ctxKey{}, s)
}

// FromCtx returns the request's session. Outside the middleware it returns
// a detached session that is never persisted.
func FromCtx(ctx context.Context) *Session {
	if s, ok := ctx.Value(ctxKey{}).(*Session); ok {
		return s
	}
	return newSession()
}

// Manager loads and persists sessions.
type Manager struct {
	store cache.Store
	opts  Options
}

func NewManager(store cache.Store, opts Options) *Manager {
	return &Manager{store: store, opts: opts}
}

// Load returns the session named by the request cookie, or a fresh one.
func (m *Manager) Load(r *http.Request) (*Session, error) {
	cookie, err := r.Cookie(m.opts.CookieName)
	if err != nil || cookie.Value == "" {
		return newSession(), nil
	}

	s := &Session{id: cookie.Value}
	hit, err := m.store.Get(r.Context(), storeKey(s.id), &s.p)
	if err != nil {
		return newSession(), fmt.Errorf("session: load: %w", err)
	}
	if !hit {
		// Unknown or expired id: never adopt a client-chosen id.
		return newSession(), nil
	}
	if s.p.Data == nil {
		s.p.Data = map[string]interface{}{}
	}
	return s, nil
}

// Save persists s when it changed and sets the cookie on w.
func (m *Manager) Save(ctx context.Context, w http.ResponseWriter, s *Session) error {
	if !s.changed {
		return nil
	}

	if s.staleID != "" {
		if err := m.store.Del(ctx, storeKey(s.staleID)); err != nil {
			return fmt.Errorf("session: drop stale: %w", err)
		}
		s.staleID = ""
	}
	if err := m.store.Set(ctx, storeKey(s.id), s.p, m.opts.TTL); err != nil {
		return fmt.Errorf("session: save: %w", err)
	}

	http.SetCookie(w, &http.Cookie{
		Name:     m.opts.CookieName,
		Value:    s.id,
		Path:     m.opts.Path,
		MaxAge:   int(m.opts.TTL.Seconds()),
		HttpOnly: m.opts.HTTPOnly,
		Secure:   m.opts.Secure,
		SameSite: m.opts.SameSite,
	})

	s.changed = false
	return nil
}

// Middleware attaches the session to the request context and saves it just
// before the response header goes out.
func (m *Manager) Middleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			s, err := m.Load(r)
			if err != nil {
				logger.WithCtx(r.Context()).Warn("session load failed", "error", err)
			}

			ctx := WithSession(r.Context(), s)
			sw := &saveWriter{ResponseWriter: w, save: func() {
				if err := m.Save(ctx, w, s); err != nil {
					logger.WithCtx(ctx).Error("session save failed", "error", err)
				}
			}}

			next.ServeHTTP(sw, r.WithContext(ctx))
			sw.commit()
		})
	}
}

type saveWriter struct {
	http.ResponseWriter
	save      func()
	committed bool
}

func (w *saveWriter) commit() {
	if !w.committed {
		w.committed = true
		w.save()
	}
}

func (w *saveWriter) WriteHeader(code int) {
	w.commit()
	w.ResponseWriter.WriteHeader(code)
}

func (w *saveWriter) Write(b []byte) (int, error) {
	w.commit()
	return w.ResponseWriter.Write(b)
}

func (w *saveWriter) Unwrap() http.ResponseWriter { return w.ResponseWriter }

func (w *saveWriter) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	hj, ok := w.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, errors.New("session: response writer cannot hijack")
	}
	w.commit()
	return hj.Hijack()
}

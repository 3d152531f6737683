// Package apitest runs an in-process assistant backend for tests.
package apitest

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
)

type user struct {
	name     string
	password string
}

type entry struct {
	ID        int    `json:"id"`
	Prompt    string `json:"prompt"`
	Timestamp string `json:"timestamp"`
}

// Backend mimics the signup/login/ask/history endpoints. The zero value is
// not usable; call NewBackend.
type Backend struct {
	Server *httptest.Server

	mu       sync.Mutex
	users    map[string]user
	history  map[string][]entry
	requests []string
	nextID   int

	askStatus     int
	historyStatus int
	askGate       chan struct{}
	reply         func(message string) string
	now           func() time.Time
}

func NewBackend() *Backend {
	b := &Backend{
		users:   make(map[string]user),
		history: make(map[string][]entry),
		reply:   func(m string) string { return "**Echo:** " + m + "\n" },
		now:     func() time.Time { return time.Date(2026, 1, 2, 15, 4, 5, 0, time.UTC) },
	}
	r := chi.NewRouter()
	r.Use(b.record)
	r.Post("/signup", b.signup)
	r.Post("/login", b.login)
	r.Post("/ask", b.ask)
	r.Get("/history", b.listHistory)
	b.Server = httptest.NewServer(r)
	return b
}

func (b *Backend) URL() string { return b.Server.URL }

func (b *Backend) Close() { b.Server.Close() }

// TokenFor returns the token the backend issues for email.
func TokenFor(email string) string { return "token-" + email }

// AddUser registers an account directly.
func (b *Backend) AddUser(name, email, password string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.users[email] = user{name: name, password: password}
}

// AddHistory appends a history entry for email as if it had been asked at at.
func (b *Backend) AddHistory(email, prompt string, at time.Time) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.nextID++
	token := TokenFor(email)
	b.history[token] = append(b.history[token], entry{
		ID:        b.nextID,
		Prompt:    prompt,
		Timestamp: at.UTC().Format("2006-01-02T15:04:05.000000"),
	})
}

// FailAsk makes /ask answer with status; 0 restores normal behavior.
func (b *Backend) FailAsk(status int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.askStatus = status
}

// FailHistory makes /history answer with status; 0 restores normal behavior.
func (b *Backend) FailHistory(status int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.historyStatus = status
}

// HoldAsk blocks every /ask until the returned release func is called.
func (b *Backend) HoldAsk() (release func()) {
	gate := make(chan struct{})
	b.mu.Lock()
	b.askGate = gate
	b.mu.Unlock()
	var once sync.Once
	return func() { once.Do(func() { close(gate) }) }
}

// SetReply replaces the assistant response builder.
func (b *Backend) SetReply(fn func(message string) string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.reply = fn
}

// Requests returns "METHOD /path" for every request served so far.
func (b *Backend) Requests() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]string(nil), b.requests...)
}

// Count returns how many requests hit the given "METHOD /path".
func (b *Backend) Count(route string) int {
	n := 0
	for _, r := range b.Requests() {
		if r == route {
			n++
		}
	}
	return n
}

func (b *Backend) record(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b.mu.Lock()
		b.requests = append(b.requests, r.Method+" "+r.URL.Path)
		b.mu.Unlock()
		next.ServeHTTP(w, r)
	})
}

func (b *Backend) signup(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name     string `json:"name"`
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Email == "" || req.Password == "" {
		writeJSON(w, http.StatusUnprocessableEntity, map[string]interface{}{
			"detail": []map[string]string{{"msg": "field required"}},
		})
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.users[req.Email]; ok {
		writeJSON(w, http.StatusBadRequest, map[string]string{"detail": "Email already registered"})
		return
	}
	b.users[req.Email] = user{name: req.Name, password: req.Password}
	writeJSON(w, http.StatusCreated, map[string]string{"message": "User created"})
}

func (b *Backend) login(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"detail": "Malformed body"})
		return
	}
	b.mu.Lock()
	u, ok := b.users[req.Email]
	b.mu.Unlock()
	if !ok || u.password != req.Password {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"detail": "Invalid credentials"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"access_token": TokenFor(req.Email), "token_type": "bearer"})
}

func (b *Backend) ask(w http.ResponseWriter, r *http.Request) {
	token, ok := b.authorize(w, r)
	if !ok {
		return
	}
	b.mu.Lock()
	gate, status := b.askGate, b.askStatus
	b.mu.Unlock()
	if gate != nil {
		select {
		case <-gate:
		case <-r.Context().Done():
			return
		}
	}
	if status != 0 {
		writeJSON(w, status, map[string]string{"detail": "assistant unavailable"})
		return
	}
	var req struct {
		Message string `json:"message"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"detail": "Malformed body"})
		return
	}
	b.mu.Lock()
	b.nextID++
	b.history[token] = append(b.history[token], entry{
		ID:        b.nextID,
		Prompt:    req.Message,
		Timestamp: b.now().Format("2006-01-02T15:04:05.000000"),
	})
	reply := b.reply(req.Message)
	b.mu.Unlock()
	writeJSON(w, http.StatusOK, map[string]string{"response": reply})
}

func (b *Backend) listHistory(w http.ResponseWriter, r *http.Request) {
	token, ok := b.authorize(w, r)
	if !ok {
		return
	}
	b.mu.Lock()
	status := b.historyStatus
	out := append([]entry{}, b.history[token]...)
	b.mu.Unlock()
	if status != 0 {
		writeJSON(w, status, map[string]string{"detail": "history unavailable"})
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (b *Backend) authorize(w http.ResponseWriter, r *http.Request) (string, bool) {
	h := r.Header.Get("Authorization")
	token := strings.TrimPrefix(h, "Bearer ")
	if token == "" || token == h {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"detail": "Not authenticated"})
		return "", false
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	for email := range b.users {
		if TokenFor(email) == token {
			return token, true
		}
	}
	writeJSON(w, http.StatusUnauthorized, map[string]string{"detail": "Invalid token"})
	return "", false
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		fmt.Println("apitest: encode:", err)
	}
}

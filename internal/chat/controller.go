// Package chat is the dashboard's chat session: an optimistic transcript,
// the waiting flag, the server-side history list and the guard that keeps
// logged-out users away from the dashboard.
package chat

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"assistant-dashboard/internal/api"
	"assistant-dashboard/internal/history"
	"assistant-dashboard/internal/nav"
	"assistant-dashboard/internal/storage"
)

// NotLoggedInMessage is shown when a message is submitted without a token.
const NotLoggedInMessage = "You are not logged in."

var (
	ErrBlankMessage = errors.New("chat: blank message")
	// ErrWaiting is returned while a previous message is unanswered.
	ErrWaiting = errors.New("chat: waiting for response")
	ErrClosed  = errors.New("chat: closed")
)

// Assistant is the backend surface the dashboard needs.
type Assistant interface {
	Ask(ctx context.Context, token, message string) (string, error)
	History(ctx context.Context, token string) ([]api.HistoryEntry, error)
}

// Session is the token holder consulted on mount and on every request.
type Session interface {
	Get() (string, bool)
	Clear() error
	Expired(now time.Time) bool
}

// State is a snapshot for rendering.
type State struct {
	Transcript    []Turn
	History       []api.HistoryEntry
	HistoryLoaded bool
	Input         string
	Waiting       bool
	Notice        string
}

type Option func(*Controller)

func WithLogger(l *zap.Logger) Option { return func(c *Controller) { c.logger = l } }

// WithRecorder archives every delivered exchange.
func WithRecorder(r storage.Recorder) Option { return func(c *Controller) { c.recorder = r } }

func WithClock(now func() time.Time) Option { return func(c *Controller) { c.now = now } }

type Controller struct {
	assistant Assistant
	session   Session
	nav       nav.Navigator
	logger    *zap.Logger
	recorder  storage.Recorder
	now       func() time.Time

	// ctx is the controller scope; Close cancels it.
	ctx    context.Context
	cancel context.CancelFunc
	tasks  sync.WaitGroup

	transcript *Transcript
	history    *history.List

	mu      sync.Mutex
	input   string
	waiting bool
	notice  string
	closed  bool
	changes chan struct{}
}

func New(assistant Assistant, sess Session, navigator nav.Navigator, opts ...Option) *Controller {
	c := &Controller{
		assistant: assistant,
		session:   sess,
		nav:       navigator,
		logger:    zap.NewNop(),
		now:       time.Now,
		history:   history.NewList(),
		changes:   make(chan struct{}, 1),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.transcript = NewTranscript(c.now)
	c.ctx, c.cancel = context.WithCancel(context.Background())
	return c
}

// Mount is the dashboard guard. Without a usable token it redirects home
// and returns false without touching the network; otherwise it starts the
// initial history fetch.
func (c *Controller) Mount() bool {
	token, ok := c.session.Get()
	if ok && c.session.Expired(c.now()) {
		c.logger.Info("stored token expired, clearing session")
		if err := c.session.Clear(); err != nil {
			c.logger.Warn("failed to clear expired session", zap.Error(err))
		}
		ok = false
	}
	if !ok || token == "" {
		c.nav.Navigate(nav.Home)
		return false
	}
	c.RefreshHistory()
	return true
}

// Logout clears the token, leaves the dashboard and closes the controller.
func (c *Controller) Logout() error {
	err := c.session.Clear()
	if err != nil {
		c.logger.Error("failed to clear session", zap.Error(err))
	}
	c.Close()
	c.nav.Navigate(nav.Home)
	return err
}

func (c *Controller) SetInput(s string) {
	c.mu.Lock()
	c.input = s
	c.mu.Unlock()
}

func (c *Controller) Input() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.input
}

// Submit sends a message. The user turn is appended and the input cleared
// before the request starts; the request runs in the background and the
// returned Exchange resolves when it completes.
func (c *Controller) Submit(message string) (*Exchange, error) {
	if strings.TrimSpace(message) == "" {
		return nil, ErrBlankMessage
	}
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil, ErrClosed
	}
	if c.waiting {
		c.mu.Unlock()
		return nil, ErrWaiting
	}
	user := c.transcript.AppendUser(message)
	c.input = ""
	c.waiting = true
	c.notice = ""
	c.tasks.Add(1)
	c.mu.Unlock()
	c.notify()

	token, _ := c.session.Get()
	ex := newExchange(user)
	go c.runExchange(ex, token, message)
	return ex, nil
}

func (c *Controller) runExchange(ex *Exchange, token, message string) {
	defer c.tasks.Done()

	resp, err := c.assistant.Ask(c.ctx, token, message)

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		c.logger.Debug("dropping response after close", zap.String("turn_id", ex.User.ID))
		if err == nil {
			err = ErrClosed
		}
		ex.finish(Turn{}, err)
		return
	}
	if err != nil {
		c.transcript.SetStatus(ex.User.ID, StatusFailed)
		c.notice = askNotice(err)
		c.waiting = false
		c.mu.Unlock()
		c.notify()
		c.logger.Warn("ask failed", zap.String("turn_id", ex.User.ID), zap.Error(err))
		ex.finish(Turn{}, err)
		return
	}
	reply := c.transcript.AppendAssistant(Sanitize(resp))
	c.transcript.SetStatus(ex.User.ID, StatusDelivered)
	c.waiting = false
	c.mu.Unlock()
	c.notify()

	c.record(ex.User, reply)
	c.RefreshHistory()
	ex.finish(reply, nil)
}

func askNotice(err error) string {
	var nerr *api.NetworkError
	switch {
	case errors.As(err, &nerr):
		return api.ConnectionErrorMessage
	case errors.Is(err, api.ErrMissingToken):
		return NotLoggedInMessage
	default:
		return api.AskFailedMessage
	}
}

func (c *Controller) record(user, reply Turn) {
	if c.recorder == nil {
		return
	}
	err := c.recorder.AppendExchange(storage.Exchange{
		Timestamp:         reply.Time,
		TurnID:            user.ID,
		UserMessage:       user.Content,
		AssistantResponse: reply.Content,
	})
	if err != nil {
		c.logger.Warn("failed to archive exchange", zap.String("turn_id", user.ID), zap.Error(err))
	}
}

// RefreshHistory starts a detached history fetch. Failures are logged and
// the list keeps its previous contents. A fetch that started before a newer
// one completed never overwrites it.
func (c *Controller) RefreshHistory() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.tasks.Add(1)
	c.mu.Unlock()

	token, ok := c.session.Get()
	if !ok {
		c.tasks.Done()
		return
	}
	ticket := c.history.Ticket()
	go func() {
		defer c.tasks.Done()
		entries, err := c.assistant.History(c.ctx, token)
		if err != nil {
			if c.ctx.Err() == nil {
				c.logger.Warn("history refresh failed", zap.Error(err))
			}
			return
		}
		c.mu.Lock()
		if c.closed {
			c.mu.Unlock()
			return
		}
		applied := c.history.ReplaceIf(ticket, entries, c.now())
		c.mu.Unlock()
		if applied {
			c.notify()
		} else {
			c.logger.Debug("discarding stale history response", zap.Uint64("ticket", ticket))
		}
	}()
}

func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return State{
		Transcript:    c.transcript.Turns(),
		History:       c.history.Entries(),
		HistoryLoaded: c.history.Loaded(),
		Input:         c.input,
		Waiting:       c.waiting,
		Notice:        c.notice,
	}
}

// DismissNotice clears the current notice.
func (c *Controller) DismissNotice() {
	c.mu.Lock()
	c.notice = ""
	c.mu.Unlock()
	c.notify()
}

// Changes signals state transitions. Signals coalesce.
func (c *Controller) Changes() <-chan struct{} { return c.changes }

// Close cancels in-flight requests. Completions arriving afterwards leave
// the state untouched.
func (c *Controller) Close() {
	c.mu.Lock()
	c.closed = true
	c.mu.Unlock()
	c.cancel()
}

// Done is closed by Close.
func (c *Controller) Done() <-chan struct{} { return c.ctx.Done() }

// Wait blocks until every background task has returned.
func (c *Controller) Wait() { c.tasks.Wait() }

func (c *Controller) notify() {
	select {
	case c.changes <- struct{}{}:
	default:
	}
}

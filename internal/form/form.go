// Package form holds the state of the signup and login forms: field values,
// submission status and the navigation that follows a successful submit.
package form

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"assistant-dashboard/internal/api"
	"assistant-dashboard/internal/nav"
)

const (
	FieldName     = "name"
	FieldEmail    = "email"
	FieldPassword = "password"
)

const (
	SignupSuccessMessage = "Signup successful! Redirecting to login..."
	LoginSuccessMessage  = "Login successful!"
	SessionSaveMessage   = "Could not save the session. Please try again."

	DefaultRedirectDelay = 2 * time.Second
)

type Status int

const (
	StatusIdle Status = iota
	StatusSubmitting
	StatusSuccess
	StatusError
)

func (s Status) String() string {
	switch s {
	case StatusIdle:
		return "idle"
	case StatusSubmitting:
		return "submitting"
	case StatusSuccess:
		return "success"
	case StatusError:
		return "error"
	default:
		return fmt.Sprintf("Status(%d)", int(s))
	}
}

var (
	// ErrBusy is returned when submit is attempted while submitting or
	// after success.
	ErrBusy = errors.New("form: submit not allowed in current state")
	// ErrClosed is returned once the user navigated away from the form.
	ErrClosed    = errors.New("form: closed")
	ErrNoSuchKey = errors.New("form: unknown field")
)

// MissingFieldError reports a required field left blank; the form state
// does not change and no request is sent.
type MissingFieldError struct {
	Field string
}

func (e *MissingFieldError) Error() string { return fmt.Sprintf("%s is required", e.Field) }

// Signer is the backend call behind the signup form.
type Signer interface {
	Signup(ctx context.Context, name, email, password string) error
}

// Authenticator is the backend call behind the login form.
type Authenticator interface {
	Login(ctx context.Context, email, password string) (string, error)
}

// TokenSetter persists the token obtained at login.
type TokenSetter interface {
	Set(token string) error
}

// State is a snapshot for rendering. Error and Success are never both set.
type State struct {
	Fields  map[string]string
	Status  Status
	Error   string
	Success string
}

type Option func(*Form)

func WithClock(c Clock) Option { return func(f *Form) { f.clock = c } }

func WithRedirectDelay(d time.Duration) Option { return func(f *Form) { f.delay = d } }

func WithLogger(l *zap.Logger) Option { return func(f *Form) { f.logger = l } }

// outcome is what a submit action reports back to the form.
type outcome struct {
	err      error
	fallback string
	success  string
	// after runs outside the lock once the form reached success.
	after func()
}

type Form struct {
	name   string
	fields []string
	action func(ctx context.Context, values map[string]string) outcome

	nav    nav.Navigator
	clock  Clock
	delay  time.Duration
	logger *zap.Logger

	mu      sync.Mutex
	values  map[string]string
	status  Status
	errMsg  string
	okMsg   string
	timer   Timer
	closed  bool
	changes chan struct{}
}

func newForm(name string, fields []string, navigator nav.Navigator, opts []Option) *Form {
	f := &Form{
		name:    name,
		fields:  fields,
		nav:     navigator,
		clock:   RealClock(),
		delay:   DefaultRedirectDelay,
		logger:  zap.NewNop(),
		values:  make(map[string]string, len(fields)),
		changes: make(chan struct{}, 1),
	}
	for _, opt := range opts {
		opt(f)
	}
	for _, k := range fields {
		f.values[k] = ""
	}
	return f
}

// NewSignup builds the signup form. On success it shows the success message
// and navigates to the login view after the redirect delay, never before.
func NewSignup(signer Signer, navigator nav.Navigator, opts ...Option) *Form {
	f := newForm("signup", []string{FieldName, FieldEmail, FieldPassword}, navigator, opts)
	f.action = func(ctx context.Context, v map[string]string) outcome {
		err := signer.Signup(ctx, v[FieldName], v[FieldEmail], v[FieldPassword])
		return outcome{
			err:      err,
			fallback: api.SignupFallbackMessage,
			success:  SignupSuccessMessage,
			after:    f.scheduleRedirect,
		}
	}
	return f
}

// NewLogin builds the login form. On success the token is persisted and the
// dashboard is opened right away.
func NewLogin(auth Authenticator, store TokenSetter, navigator nav.Navigator, opts ...Option) *Form {
	f := newForm("login", []string{FieldEmail, FieldPassword}, navigator, opts)
	f.action = func(ctx context.Context, v map[string]string) outcome {
		token, err := auth.Login(ctx, v[FieldEmail], v[FieldPassword])
		if err != nil {
			return outcome{err: err, fallback: api.LoginFallbackMessage}
		}
		if err := store.Set(token); err != nil {
			return outcome{err: err, fallback: SessionSaveMessage}
		}
		return outcome{
			success: LoginSuccessMessage,
			after:   func() { f.nav.Navigate(nav.Dashboard) },
		}
	}
	return f
}

// Fields lists the field names in display order.
func (f *Form) Fields() []string { return append([]string(nil), f.fields...) }

func (f *Form) Set(field, value string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.values[field]; !ok {
		return fmt.Errorf("%w: %s", ErrNoSuchKey, field)
	}
	f.values[field] = value
	return nil
}

func (f *Form) Value(field string) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.values[field]
}

func (f *Form) State() State {
	f.mu.Lock()
	defer f.mu.Unlock()
	fields := make(map[string]string, len(f.values))
	for k, v := range f.values {
		fields[k] = v
	}
	return State{Fields: fields, Status: f.status, Error: f.errMsg, Success: f.okMsg}
}

// Changes signals every state transition. Signals coalesce.
func (f *Form) Changes() <-chan struct{} { return f.changes }

// Submit runs the form action. It blocks for the duration of the request;
// views call it off their event loop. The returned error is the action's
// error; its user-visible rendering is State().Error.
func (f *Form) Submit(ctx context.Context) error {
	f.mu.Lock()
	if f.closed {
		f.mu.Unlock()
		return ErrClosed
	}
	if f.status == StatusSubmitting || f.status == StatusSuccess {
		f.mu.Unlock()
		return ErrBusy
	}
	for _, k := range f.fields {
		if strings.TrimSpace(f.values[k]) == "" {
			f.mu.Unlock()
			return &MissingFieldError{Field: k}
		}
	}
	values := make(map[string]string, len(f.values))
	for k, v := range f.values {
		values[k] = v
	}
	f.status = StatusSubmitting
	f.errMsg = ""
	f.okMsg = ""
	f.mu.Unlock()
	f.notify()

	out := f.action(ctx, values)

	f.mu.Lock()
	if f.closed {
		f.mu.Unlock()
		f.logger.Debug("form closed before response arrived", zap.String("form", f.name))
		return out.err
	}
	if out.err != nil {
		f.status = StatusError
		f.errMsg = api.UserMessage(out.err, out.fallback)
	} else {
		f.status = StatusSuccess
		f.okMsg = out.success
	}
	f.mu.Unlock()
	f.notify()

	if out.err != nil {
		f.logError(out.err)
		return out.err
	}
	if out.after != nil {
		out.after()
	}
	return nil
}

// Close models navigating away: a pending redirect is cancelled, late
// responses are ignored and the form is reset.
func (f *Form) Close() {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.timer != nil {
		f.timer.Stop()
		f.timer = nil
	}
	f.closed = true
	for k := range f.values {
		f.values[k] = ""
	}
	f.status = StatusIdle
	f.errMsg = ""
	f.okMsg = ""
}

func (f *Form) scheduleRedirect() {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return
	}
	f.timer = f.clock.AfterFunc(f.delay, func() {
		f.mu.Lock()
		closed := f.closed
		f.timer = nil
		f.mu.Unlock()
		if !closed {
			f.nav.Navigate(nav.Login)
		}
	})
}

func (f *Form) notify() {
	select {
	case f.changes <- struct{}{}:
	default:
	}
}

func (f *Form) logError(err error) {
	var nerr *api.NetworkError
	if errors.As(err, &nerr) {
		f.logger.Error("form submit failed", zap.String("form", f.name), zap.Error(err))
		return
	}
	f.logger.Info("form rejected", zap.String("form", f.name), zap.Error(err))
}

package form

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"assistant-dashboard/internal/api"
	"assistant-dashboard/internal/nav"
	"assistant-dashboard/internal/session"
)

// manualClock fires timers only when Advance passes their deadline.
type manualClock struct {
	mu     sync.Mutex
	now    time.Duration
	timers []*manualTimer
}

type manualTimer struct {
	at      time.Duration
	f       func()
	stopped bool
	fired   bool
}

func (t *manualTimer) Stop() bool {
	was := !t.stopped && !t.fired
	t.stopped = true
	return was
}

func (c *manualClock) AfterFunc(d time.Duration, f func()) Timer {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := &manualTimer{at: c.now + d, f: f}
	c.timers = append(c.timers, t)
	return t
}

func (c *manualClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now += d
	var due []*manualTimer
	for _, t := range c.timers {
		if !t.stopped && !t.fired && t.at <= c.now {
			t.fired = true
			due = append(due, t)
		}
	}
	c.mu.Unlock()
	for _, t := range due {
		t.f()
	}
}

type fakeSigner struct {
	err   error
	calls int
	got   [3]string
}

func (s *fakeSigner) Signup(ctx context.Context, name, email, password string) error {
	s.calls++
	s.got = [3]string{name, email, password}
	return s.err
}

type fakeAuth struct {
	token string
	err   error
}

func (a fakeAuth) Login(ctx context.Context, email, password string) (string, error) {
	return a.token, a.err
}

func fill(t *testing.T, f *Form, kv ...string) {
	t.Helper()
	for i := 0; i+1 < len(kv); i += 2 {
		require.NoError(t, f.Set(kv[i], kv[i+1]))
	}
}

func TestSignupSuccessRedirectsAfterDelay(t *testing.T) {
	clock := &manualClock{}
	rec := &nav.Recorder{}
	signer := &fakeSigner{}
	f := NewSignup(signer, rec, WithClock(clock))
	fill(t, f, FieldName, "Ann", FieldEmail, "ann@example.com", FieldPassword, "pw")

	require.NoError(t, f.Submit(context.Background()))

	st := f.State()
	assert.Equal(t, StatusSuccess, st.Status)
	assert.Equal(t, SignupSuccessMessage, st.Success)
	assert.Empty(t, st.Error)
	assert.Equal(t, [3]string{"Ann", "ann@example.com", "pw"}, signer.got)

	assert.Empty(t, rec.Routes(), "must not navigate immediately")
	clock.Advance(DefaultRedirectDelay - time.Millisecond)
	assert.Empty(t, rec.Routes(), "must not navigate before the delay")
	clock.Advance(time.Millisecond)
	assert.Equal(t, []nav.Route{nav.Login}, rec.Routes())
}

func TestSignupCustomDelay(t *testing.T) {
	clock := &manualClock{}
	rec := &nav.Recorder{}
	f := NewSignup(&fakeSigner{}, rec, WithClock(clock), WithRedirectDelay(5*time.Second))
	fill(t, f, FieldName, "a", FieldEmail, "b", FieldPassword, "c")
	require.NoError(t, f.Submit(context.Background()))

	clock.Advance(2 * time.Second)
	assert.Empty(t, rec.Routes())
	clock.Advance(3 * time.Second)
	assert.Equal(t, nav.Login, rec.Last())
}

func TestSignupErrorShowsDetailVerbatim(t *testing.T) {
	rec := &nav.Recorder{}
	f := NewSignup(&fakeSigner{err: &api.ValidationError{Op: "signup", Status: http.StatusBadRequest, Detail: "Email already registered"}}, rec, WithClock(&manualClock{}))
	fill(t, f, FieldName, "a", FieldEmail, "b", FieldPassword, "c")

	err := f.Submit(context.Background())
	require.Error(t, err)

	st := f.State()
	assert.Equal(t, StatusError, st.Status)
	assert.Equal(t, "Email already registered", st.Error)
	assert.Empty(t, st.Success)
	assert.Empty(t, rec.Routes())
}

func TestSignupErrorWithoutDetailUsesFallback(t *testing.T) {
	f := NewSignup(&fakeSigner{err: &api.ValidationError{Op: "signup", Status: http.StatusInternalServerError}}, &nav.Recorder{})
	fill(t, f, FieldName, "a", FieldEmail, "b", FieldPassword, "c")

	_ = f.Submit(context.Background())
	assert.Equal(t, api.SignupFallbackMessage, f.State().Error)
}

func TestSignupNetworkError(t *testing.T) {
	f := NewSignup(&fakeSigner{err: &api.NetworkError{Op: "signup", Err: errors.New("connection refused")}}, &nav.Recorder{})
	fill(t, f, FieldName, "a", FieldEmail, "b", FieldPassword, "c")

	_ = f.Submit(context.Background())
	assert.Equal(t, api.ConnectionErrorMessage, f.State().Error)
}

func TestSubmitRequiresAllFields(t *testing.T) {
	signer := &fakeSigner{}
	f := NewSignup(signer, &nav.Recorder{})
	fill(t, f, FieldName, "Ann", FieldEmail, "   ")

	err := f.Submit(context.Background())

	var missing *MissingFieldError
	require.ErrorAs(t, err, &missing)
	assert.Equal(t, FieldEmail, missing.Field)
	assert.Equal(t, StatusIdle, f.State().Status)
	assert.Zero(t, signer.calls)
}

func TestRetryAfterErrorClearsMessage(t *testing.T) {
	signer := &fakeSigner{err: &api.ValidationError{Status: 400, Detail: "nope"}}
	f := NewSignup(signer, &nav.Recorder{}, WithClock(&manualClock{}))
	fill(t, f, FieldName, "a", FieldEmail, "b", FieldPassword, "c")

	_ = f.Submit(context.Background())
	require.Equal(t, StatusError, f.State().Status)

	signer.err = nil
	require.NoError(t, f.Submit(context.Background()))
	st := f.State()
	assert.Equal(t, StatusSuccess, st.Status)
	assert.Empty(t, st.Error)
	assert.Equal(t, 2, signer.calls)
}

func TestSubmitAfterSuccessIsBusy(t *testing.T) {
	f := NewSignup(&fakeSigner{}, &nav.Recorder{}, WithClock(&manualClock{}))
	fill(t, f, FieldName, "a", FieldEmail, "b", FieldPassword, "c")
	require.NoError(t, f.Submit(context.Background()))

	assert.ErrorIs(t, f.Submit(context.Background()), ErrBusy)
}

type blockingSigner struct {
	started chan struct{}
	release chan struct{}
}

func (b blockingSigner) Signup(ctx context.Context, name, email, password string) error {
	close(b.started)
	<-b.release
	return nil
}

func TestStatusIsSubmittingWhileInFlight(t *testing.T) {
	s := blockingSigner{started: make(chan struct{}), release: make(chan struct{})}
	f := NewSignup(s, &nav.Recorder{}, WithClock(&manualClock{}))
	fill(t, f, FieldName, "a", FieldEmail, "b", FieldPassword, "c")

	done := make(chan error, 1)
	go func() { done <- f.Submit(context.Background()) }()
	<-s.started

	assert.Equal(t, StatusSubmitting, f.State().Status)
	assert.ErrorIs(t, f.Submit(context.Background()), ErrBusy)

	close(s.release)
	require.NoError(t, <-done)
	assert.Equal(t, StatusSuccess, f.State().Status)
}

func TestCloseCancelsPendingRedirect(t *testing.T) {
	clock := &manualClock{}
	rec := &nav.Recorder{}
	f := NewSignup(&fakeSigner{}, rec, WithClock(clock))
	fill(t, f, FieldName, "a", FieldEmail, "b", FieldPassword, "c")
	require.NoError(t, f.Submit(context.Background()))

	f.Close()
	clock.Advance(time.Minute)

	assert.Empty(t, rec.Routes())
	st := f.State()
	assert.Equal(t, StatusIdle, st.Status)
	assert.Empty(t, st.Fields[FieldName])
	assert.ErrorIs(t, f.Submit(context.Background()), ErrClosed)
}

func TestLateResponseAfterCloseIsIgnored(t *testing.T) {
	s := blockingSigner{started: make(chan struct{}), release: make(chan struct{})}
	clock := &manualClock{}
	rec := &nav.Recorder{}
	f := NewSignup(s, rec, WithClock(clock))
	fill(t, f, FieldName, "a", FieldEmail, "b", FieldPassword, "c")

	done := make(chan error, 1)
	go func() { done <- f.Submit(context.Background()) }()
	<-s.started
	f.Close()
	close(s.release)
	require.NoError(t, <-done)

	clock.Advance(time.Minute)
	assert.Equal(t, StatusIdle, f.State().Status)
	assert.Empty(t, f.State().Success)
	assert.Empty(t, rec.Routes())
}

func TestSetUnknownField(t *testing.T) {
	f := NewLogin(fakeAuth{}, session.NewStore(session.NewMemoryRepository()), &nav.Recorder{})
	assert.ErrorIs(t, f.Set(FieldName, "x"), ErrNoSuchKey)
	assert.Equal(t, []string{FieldEmail, FieldPassword}, f.Fields())
}

func TestLoginSuccessStoresTokenAndOpensDashboard(t *testing.T) {
	store := session.NewStore(session.NewMemoryRepository())
	rec := &nav.Recorder{}
	f := NewLogin(fakeAuth{token: "tok"}, store, rec)
	fill(t, f, FieldEmail, "ann@example.com", FieldPassword, "pw")

	require.NoError(t, f.Submit(context.Background()))

	tok, ok := store.Get()
	require.True(t, ok)
	assert.Equal(t, "tok", tok)
	assert.Equal(t, []nav.Route{nav.Dashboard}, rec.Routes())
	assert.Equal(t, LoginSuccessMessage, f.State().Success)
}

func TestLoginFailureKeepsLoggedOut(t *testing.T) {
	store := session.NewStore(session.NewMemoryRepository())
	rec := &nav.Recorder{}
	f := NewLogin(fakeAuth{err: &api.ValidationError{Status: 401}}, store, rec)
	fill(t, f, FieldEmail, "ann@example.com", FieldPassword, "bad")

	require.Error(t, f.Submit(context.Background()))

	_, ok := store.Get()
	assert.False(t, ok)
	assert.Empty(t, rec.Routes())
	assert.Equal(t, api.LoginFallbackMessage, f.State().Error)
}

type failingSetter struct{}

func (failingSetter) Set(string) error { return errors.New("disk full") }

func TestLoginSessionSaveFailure(t *testing.T) {
	rec := &nav.Recorder{}
	f := NewLogin(fakeAuth{token: "tok"}, failingSetter{}, rec)
	fill(t, f, FieldEmail, "a", FieldPassword, "b")

	require.Error(t, f.Submit(context.Background()))
	assert.Equal(t, SessionSaveMessage, f.State().Error)
	assert.Empty(t, rec.Routes())
}

func TestChangesSignal(t *testing.T) {
	f := NewSignup(&fakeSigner{}, &nav.Recorder{}, WithClock(&manualClock{}))
	fill(t, f, FieldName, "a", FieldEmail, "b", FieldPassword, "c")
	require.NoError(t, f.Submit(context.Background()))

	select {
	case <-f.Changes():
	default:
		t.Fatal("expected a change signal")
	}
}

func TestStatusString(t *testing.T) {
	assert.Equal(t, "submitting", StatusSubmitting.String())
	assert.Equal(t, "Status(42)", Status(42).String())
}

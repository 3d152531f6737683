// Package tui is the interactive terminal front end: a navigation header,
// static pages, the signup and login forms, and the chat dashboard.
package tui

import (
	"context"
	"errors"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"

	"assistant-dashboard/internal/chat"
	"assistant-dashboard/internal/form"
	"assistant-dashboard/internal/nav"
	"assistant-dashboard/internal/scheduler"
	"assistant-dashboard/internal/session"
	"assistant-dashboard/internal/storage"
)

const sidebarWidth = 32

// Backend is everything the pages call on the assistant service.
type Backend interface {
	form.Signer
	form.Authenticator
	chat.Assistant
}

type Config struct {
	Backend       Backend
	Session       *session.Store
	Logger        *zap.Logger
	RedirectDelay time.Duration
	// Recorder archives delivered exchanges; nil disables archiving.
	Recorder storage.Recorder
	// SyncSchedule is a cron spec for refreshing the history sidebar while
	// the dashboard is open; empty disables it.
	SyncSchedule string
	Start        nav.Route
}

type routeMsg nav.Route

type chatChangedMsg struct{ ctrl *chat.Controller }

type formDoneMsg struct {
	form *form.Form
	err  error
}

type Model struct {
	cfg    Config
	logger *zap.Logger
	nav    nav.Chan

	route  nav.Route
	width  int
	height int

	// signup and login pages
	form     *form.Form
	inputs   []textinput.Model
	focus    int
	localErr string

	// dashboard
	chat     *chat.Controller
	sched    *scheduler.Scheduler
	input    textinput.Model
	viewport viewport.Model
	spinner  spinner.Model

	pending tea.Cmd
}

func New(cfg Config) Model {
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	if cfg.RedirectDelay <= 0 {
		cfg.RedirectDelay = form.DefaultRedirectDelay
	}
	if cfg.Start == "" {
		cfg.Start = nav.Home
	}
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = mutedStyle

	m := Model{
		cfg:      cfg,
		logger:   cfg.Logger,
		nav:      nav.NewChan(8),
		width:    100,
		height:   30,
		viewport: viewport.New(100-sidebarWidth-2, 20),
		spinner:  sp,
	}
	m, m.pending = m.enter(cfg.Start)
	return m
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(m.pending, waitRoute(m.nav), textinput.Blink)
}

// Route is the page currently shown.
func (m Model) Route() nav.Route { return m.route }

// Shutdown releases the current page. Call it after the program exits.
func (m Model) Shutdown() {
	m.leave()
}

func waitRoute(ch nav.Chan) tea.Cmd {
	return func() tea.Msg { return routeMsg(<-ch) }
}

func waitChat(ctrl *chat.Controller) tea.Cmd {
	return func() tea.Msg {
		select {
		case <-ctrl.Changes():
			return chatChangedMsg{ctrl: ctrl}
		case <-ctrl.Done():
			return nil
		}
	}
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		if msg.Width > 0 && msg.Height > 0 {
			m.width, m.height = msg.Width, msg.Height
			m.resize()
		}
		return m, nil

	case routeMsg:
		var cmd tea.Cmd
		m, cmd = m.enter(nav.Route(msg))
		return m, tea.Batch(cmd, waitRoute(m.nav))

	case formDoneMsg:
		if msg.form != m.form {
			return m, nil
		}
		var missing *form.MissingFieldError
		if errors.As(msg.err, &missing) {
			m.localErr = missing.Error()
		}
		return m, nil

	case chatChangedMsg:
		if msg.ctrl != m.chat {
			return m, nil
		}
		m.refreshViewport()
		return m, waitChat(m.chat)

	case spinner.TickMsg:
		if m.chat == nil || !m.chat.State().Waiting {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC {
			m.leave()
			return m, tea.Quit
		}
		switch m.route {
		case nav.Signup, nav.Login:
			return m.updateForm(msg)
		case nav.Dashboard:
			if m.chat == nil {
				return m.updateStatic(msg)
			}
			return m.updateDashboard(msg)
		default:
			return m.updateStatic(msg)
		}
	}
	return m, nil
}

var shortcuts = map[string]nav.Route{
	"h": nav.Home,
	"a": nav.About,
	"c": nav.Contact,
	"s": nav.Signup,
	"l": nav.Login,
	"d": nav.Dashboard,
}

func (m Model) updateStatic(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q":
		m.leave()
		return m, tea.Quit
	case "esc":
		m.nav.Navigate(nav.Home)
		return m, nil
	}
	if to, ok := shortcuts[msg.String()]; ok {
		m.nav.Navigate(to)
	}
	return m, nil
}

func (m Model) updateForm(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEsc:
		m.nav.Navigate(nav.Home)
		return m, nil
	case tea.KeyTab, tea.KeyDown:
		return m.setFocus(m.focus + 1), nil
	case tea.KeyShiftTab, tea.KeyUp:
		return m.setFocus(m.focus - 1), nil
	case tea.KeyEnter:
		if m.focus < len(m.inputs)-1 {
			return m.setFocus(m.focus + 1), nil
		}
		cmd := m.submitForm()
		return m, cmd
	}
	var cmd tea.Cmd
	m.inputs[m.focus], cmd = m.inputs[m.focus].Update(msg)
	return m, cmd
}

func (m Model) setFocus(i int) Model {
	n := len(m.inputs)
	if n == 0 {
		return m
	}
	i = ((i % n) + n) % n
	for j := range m.inputs {
		if j == i {
			m.inputs[j].Focus()
		} else {
			m.inputs[j].Blur()
		}
	}
	m.focus = i
	return m
}

// submitForm copies the inputs into the form and runs Submit off the event
// loop.
func (m *Model) submitForm() tea.Cmd {
	f := m.form
	for i, name := range f.Fields() {
		if err := f.Set(name, m.inputs[i].Value()); err != nil {
			m.logger.Error("form field mismatch", zap.String("field", name), zap.Error(err))
		}
	}
	m.localErr = ""
	return func() tea.Msg {
		return formDoneMsg{form: f, err: f.Submit(context.Background())}
	}
}

func (m Model) updateDashboard(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEsc:
		m.nav.Navigate(nav.Home)
		return m, nil
	case tea.KeyCtrlX:
		if err := m.chat.Logout(); err != nil {
			m.logger.Warn("logout could not clear session", zap.Error(err))
		}
		return m, nil
	case tea.KeyPgUp, tea.KeyPgDown:
		var cmd tea.Cmd
		m.viewport, cmd = m.viewport.Update(msg)
		return m, cmd
	case tea.KeyEnter:
		if m.chat.State().Waiting {
			return m, nil
		}
		_, err := m.chat.Submit(m.input.Value())
		if err != nil {
			return m, nil
		}
		m.input.SetValue(m.chat.Input())
		m.refreshViewport()
		return m, m.spinner.Tick
	}
	if m.chat.State().Waiting {
		return m, nil
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	m.chat.SetInput(m.input.Value())
	return m, cmd
}

// enter closes the current page and opens the page for route.
func (m Model) enter(route nav.Route) (Model, tea.Cmd) {
	m.leave()
	m.form, m.inputs, m.focus, m.localErr = nil, nil, 0, ""
	m.chat, m.sched = nil, nil
	m.route = route

	fopts := []form.Option{form.WithRedirectDelay(m.cfg.RedirectDelay), form.WithLogger(m.logger)}
	switch route {
	case nav.Signup:
		m.form = form.NewSignup(m.cfg.Backend, m.nav, fopts...)
		m.inputs = []textinput.Model{
			newInput("John Doe", false),
			newInput("you@example.com", false),
			newInput("••••••••", true),
		}
		return m.setFocus(0), textinput.Blink

	case nav.Login:
		m.form = form.NewLogin(m.cfg.Backend, m.cfg.Session, m.nav, fopts...)
		m.inputs = []textinput.Model{
			newInput("you@example.com", false),
			newInput("••••••••", true),
		}
		return m.setFocus(0), textinput.Blink

	case nav.Dashboard:
		opts := []chat.Option{chat.WithLogger(m.logger)}
		if m.cfg.Recorder != nil {
			opts = append(opts, chat.WithRecorder(m.cfg.Recorder))
		}
		ctrl := chat.New(m.cfg.Backend, m.cfg.Session, m.nav, opts...)
		if !ctrl.Mount() {
			ctrl.Close()
			return m, nil
		}
		m.chat = ctrl
		m.sched = m.startSync(ctrl)
		m.input = newInput("Type your prompt here...", false)
		m.input.Focus()
		m.resize()
		m.refreshViewport()
		return m, tea.Batch(waitChat(ctrl), textinput.Blink)
	}
	return m, nil
}

func (m Model) startSync(ctrl *chat.Controller) *scheduler.Scheduler {
	if m.cfg.SyncSchedule == "" {
		return nil
	}
	s := scheduler.New(m.logger)
	s.SetSyncFunction(func(ctx context.Context) error {
		ctrl.RefreshHistory()
		return nil
	})
	if err := s.Start(m.cfg.SyncSchedule); err != nil {
		m.logger.Warn("history sync disabled", zap.String("schedule", m.cfg.SyncSchedule), zap.Error(err))
		s.Stop()
		return nil
	}
	return s
}

func (m Model) leave() {
	if m.form != nil {
		m.form.Close()
	}
	if m.sched != nil {
		m.sched.Stop()
	}
	if m.chat != nil {
		m.chat.Close()
	}
}

func newInput(placeholder string, secret bool) textinput.Model {
	ti := textinput.New()
	ti.Placeholder = placeholder
	ti.CharLimit = 4000
	ti.Width = 40
	if secret {
		ti.EchoMode = textinput.EchoPassword
		ti.EchoCharacter = '•'
	}
	return ti
}

func (m *Model) resize() {
	w := m.width - sidebarWidth - 2
	if w < 20 {
		w = 20
	}
	h := m.height - 8
	if h < 3 {
		h = 3
	}
	m.viewport.Width = w
	m.viewport.Height = h
	m.input.Width = w - 4
}

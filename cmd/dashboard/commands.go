package main

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"assistant-dashboard/internal/analytics"
	"assistant-dashboard/internal/chat"
	"assistant-dashboard/internal/form"
	"assistant-dashboard/internal/nav"
	"assistant-dashboard/internal/session"
)

var errNotLoggedIn = errors.New("not logged in: run `dashboard login <email> <password>` first")

func (a *app) signupCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "signup <name> <email> <password>",
		Short: "Create an account",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			// The redirect fires on a timer goroutine; output stays on this one.
			redirected := make(chan struct{})
			navigator := nav.Func(func(to nav.Route) {
				if to == nav.Login {
					close(redirected)
				}
			})
			f := form.NewSignup(a.client, navigator, form.WithRedirectDelay(a.cfg.SignupRedirectDelay), form.WithLogger(a.logger))
			_ = f.Set(form.FieldName, args[0])
			_ = f.Set(form.FieldEmail, args[1])
			_ = f.Set(form.FieldPassword, args[2])
			if err := submit(cmd, f); err != nil {
				return err
			}
			select {
			case <-redirected:
				fmt.Fprintln(cmd.OutOrStdout(), "Next: dashboard login <email> <password>")
			case <-cmd.Context().Done():
				f.Close()
			}
			return nil
		},
	}
}

func (a *app) loginCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "login <email> <password>",
		Short: "Log in and store the access token",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			f := form.NewLogin(a.client, a.store, nav.Func(func(nav.Route) {}), form.WithLogger(a.logger))
			_ = f.Set(form.FieldEmail, args[0])
			_ = f.Set(form.FieldPassword, args[1])
			return submit(cmd, f)
		},
	}
}

// submit prints the form's success message or returns its user-visible
// error.
func submit(cmd *cobra.Command, f *form.Form) error {
	err := f.Submit(cmd.Context())
	var missing *form.MissingFieldError
	if errors.As(err, &missing) {
		return err
	}
	st := f.State()
	if st.Error != "" {
		return errors.New(st.Error)
	}
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), st.Success)
	return nil
}

func (a *app) logoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget the stored access token",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.store.Clear(); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Logged out.")
			return nil
		},
	}
}

func (a *app) askCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "ask <message>",
		Short: "Send one message to the assistant",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts := []chat.Option{chat.WithLogger(a.logger)}
			if a.recorder != nil {
				opts = append(opts, chat.WithRecorder(a.recorder))
			}
			ctrl := chat.New(a.client, a.store, nav.Func(func(nav.Route) {}), opts...)
			defer func() {
				ctrl.Close()
				ctrl.Wait()
			}()
			if !ctrl.Mount() {
				return errNotLoggedIn
			}

			ex, err := ctrl.Submit(strings.Join(args, " "))
			if err != nil {
				return err
			}
			reply, err := ex.Wait(cmd.Context())
			if err != nil {
				if notice := ctrl.State().Notice; notice != "" {
					return errors.New(notice)
				}
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), reply.Content)
			// Let the history refresh finish before the process exits.
			ctrl.Wait()
			return nil
		},
	}
}

func (a *app) historyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "history",
		Short: "List your past prompts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			token, ok := a.store.Get()
			if !ok || a.store.Expired(time.Now()) {
				return errNotLoggedIn
			}
			entries, err := a.client.History(cmd.Context(), token)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(entries) == 0 {
				fmt.Fprintln(out, "No history yet")
				return nil
			}
			for _, e := range entries {
				fmt.Fprintf(out, "%s  %s\n", e.Timestamp.Local().Format("2006-01-02 15:04:05"), e.Prompt)
			}
			return nil
		},
	}
}

func (a *app) statusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the backend and session state",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Backend: %s\n", a.cfg.BackendURL)
			fmt.Fprintf(out, "Session: %s\n", sessionState(a.store, time.Now()))
			if a.recorder == nil {
				return nil
			}
			exchanges, err := a.recorder.LoadExchanges()
			if err != nil {
				return err
			}
			today := analytics.AnalyzeDay(exchanges, time.Now())
			fmt.Fprintf(out, "Today: %d exchanges\n", today.Exchanges)
			return nil
		},
	}
}

func sessionState(store *session.Store, now time.Time) string {
	token, ok := store.Get()
	switch {
	case !ok:
		return "logged out"
	case session.TokenExpired(token, now):
		return "token expired"
	default:
		return "logged in"
	}
}

func (a *app) exchangesCmd() *cobra.Command {
	var list bool
	cmd := &cobra.Command{
		Use:   "exchanges",
		Short: "Summarize the local exchange archive by day",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if a.recorder == nil {
				return errors.New("exchange archive disabled: set EXCHANGE_LOG_PATH")
			}
			exchanges, err := a.recorder.LoadExchanges()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(exchanges) == 0 {
				fmt.Fprintln(out, "No exchanges recorded")
				return nil
			}
			if list {
				for _, ex := range exchanges {
					printExchange(out, ex.Timestamp, ex.UserMessage, ex.AssistantResponse)
				}
				return nil
			}
			for _, d := range analytics.ByDay(exchanges, time.Local) {
				fmt.Fprintf(out, "%s  %d exchanges, avg reply %d chars\n", d.Date, d.Exchanges, d.AvgResponseChars())
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&list, "list", false, "print every exchange instead of the daily summary")
	return cmd
}

func printExchange(out io.Writer, at time.Time, prompt, reply string) {
	fmt.Fprintf(out, "[%s]\nYou: %s\nAI: %s\n\n", at.Local().Format("2006-01-02 15:04:05"), prompt, reply)
}

package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"assistant-dashboard/internal/chat"
	"assistant-dashboard/internal/form"
	"assistant-dashboard/internal/nav"
)

const (
	noHistoryText   = "No history yet"
	welcomeHintText = `Select "Send" to start a new chat or view history on the left.`
	thinkingText    = "AI is thinking..."
	failedMarker    = "not delivered"
)

var fieldLabels = map[string]string{
	form.FieldName:     "Full Name",
	form.FieldEmail:    "Email",
	form.FieldPassword: "Password",
}

func (m Model) View() string {
	var body string
	switch m.route {
	case nav.Signup:
		body = m.formView("Create your account")
	case nav.Login:
		body = m.formView("Log in")
	case nav.Dashboard:
		if m.chat == nil {
			body = mutedStyle.Render("Redirecting...")
		} else {
			body = m.dashboardView()
		}
	case nav.About:
		body = titleStyle.Render("About") + "\n" +
			"A terminal client for your AI assistant. Sign up, log in and chat;\n" +
			"every prompt you send is kept in your history."
	case nav.Contact:
		body = titleStyle.Render("Contact") + "\n" +
			"Questions or feedback? Reach the team that runs your assistant backend."
	default:
		body = titleStyle.Render("Welcome") + "\n" +
			"Sign up or log in to start chatting with the assistant."
	}
	return lipgloss.JoinVertical(lipgloss.Left, m.headerView(), "", body, "", m.helpView())
}

func (m Model) headerView() string {
	var links []string
	for _, l := range nav.HeaderLinks() {
		style := linkStyle
		if l.Route == m.route {
			style = activeLinkStyle
		}
		links = append(links, style.Render(l.Label))
	}
	return headerStyle.Render("AI Assistant  " + strings.Join(links, ""))
}

func (m Model) helpView() string {
	switch m.route {
	case nav.Signup, nav.Login:
		return mutedStyle.Render("tab: next field • enter: submit • esc: home • ctrl+c: quit")
	case nav.Dashboard:
		return mutedStyle.Render("enter: send • pgup/pgdn: scroll • ctrl+x: logout • esc: home • ctrl+c: quit")
	default:
		return mutedStyle.Render("h: home • a: about • c: contact • s: signup • l: login • d: dashboard • q: quit")
	}
}

func (m Model) formView(title string) string {
	if m.form == nil {
		return ""
	}
	st := m.form.State()
	var b strings.Builder
	b.WriteString(titleStyle.Render(title))
	b.WriteString("\n")

	switch {
	case m.localErr != "":
		b.WriteString(errorStyle.Render(m.localErr) + "\n\n")
	case st.Error != "":
		b.WriteString(errorStyle.Render(st.Error) + "\n\n")
	case st.Success != "":
		b.WriteString(successStyle.Render(st.Success) + "\n\n")
	}

	for i, name := range m.form.Fields() {
		b.WriteString(labelStyle.Render(fieldLabels[name]))
		b.WriteString("\n")
		b.WriteString(m.inputs[i].View())
		b.WriteString("\n\n")
	}
	if st.Status == form.StatusSubmitting {
		b.WriteString(mutedStyle.Render("Submitting..."))
	}
	return b.String()
}

func (m Model) dashboardView() string {
	st := m.chat.State()

	sidebar := sidebarStyle.Width(sidebarWidth).Height(m.viewport.Height + 4).Render(historyView(st))

	var input string
	if st.Waiting {
		input = m.spinner.View() + " " + mutedStyle.Render(thinkingText)
	} else {
		input = m.input.View()
	}
	var notice string
	if st.Notice != "" {
		notice = errorStyle.Render(st.Notice)
	}
	main := lipgloss.JoinVertical(lipgloss.Left,
		titleStyle.Render("AI Assistant Dashboard"),
		m.viewport.View(),
		notice,
		input,
	)
	return lipgloss.JoinHorizontal(lipgloss.Top, sidebar, " ", main)
}

func historyView(st chat.State) string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("History"))
	b.WriteString("\n")
	if len(st.History) == 0 {
		b.WriteString(mutedStyle.Render(noHistoryText))
		return b.String()
	}
	for _, h := range st.History {
		b.WriteString(truncate(h.Prompt, sidebarWidth-2))
		b.WriteString("\n")
		if !h.Timestamp.IsZero() {
			b.WriteString(mutedStyle.Render(h.Timestamp.Local().Format("2006-01-02 15:04:05")))
			b.WriteString("\n")
		}
		b.WriteString("\n")
	}
	return b.String()
}

// transcriptView renders the chat turns, newest last.
func transcriptView(st chat.State, width int) string {
	if len(st.Transcript) == 0 {
		if len(st.History) > 0 {
			return mutedStyle.Render(welcomeHintText)
		}
		return ""
	}
	bubbleWidth := width * 3 / 4
	if bubbleWidth < 10 {
		bubbleWidth = 10
	}
	var rows []string
	for _, t := range st.Transcript {
		switch t.Role {
		case chat.RoleUser:
			text := labelStyle.Render("You:") + " " + t.Content
			row := bubble(userBubbleStyle, text, bubbleWidth)
			if t.Status == chat.StatusFailed {
				row += "\n" + failedStyle.Render(failedMarker)
			}
			rows = append(rows, lipgloss.PlaceHorizontal(width, lipgloss.Right, row))
		default:
			text := labelStyle.Render("AI:") + " " + t.Content
			rows = append(rows, bubble(assistantBubbleStyle, text, bubbleWidth))
		}
	}
	return strings.Join(rows, "\n")
}

// bubble wraps text that does not fit in width.
func bubble(style lipgloss.Style, text string, width int) string {
	if lipgloss.Width(text) > width {
		style = style.Width(width)
	}
	return style.Render(text)
}

func (m *Model) refreshViewport() {
	if m.chat == nil {
		return
	}
	m.viewport.SetContent(transcriptView(m.chat.State(), m.viewport.Width))
	m.viewport.GotoBottom()
}

func truncate(s string, n int) string {
	s = strings.ReplaceAll(s, "\n", " ")
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	if n <= 1 {
		return string(r[:n])
	}
	return fmt.Sprintf("%s…", string(r[:n-1]))
}

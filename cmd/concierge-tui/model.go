package main

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/rs/zerolog/log"

	envelopex "github.com/tanpawarit/vehicle-ai-concierge/agent/envelope"
	"github.com/tanpawarit/vehicle-ai-concierge/client/resolver"
	"github.com/tanpawarit/vehicle-ai-concierge/client/session"
	"github.com/tanpawarit/vehicle-ai-concierge/client/transport"
)

const turnTimeout = 90 * time.Second

type chip struct {
	id    string
	kind  envelopex.Kind
	label string
}

type model struct {
	client *transport.Client
	sess   *session.Session

	lines   []string
	chips   []chip
	status  string
	isError bool
	pending bool

	width  int
	height int

	input    textinput.Model
	timeline viewport.Model
	spinner  spinner.Model

	theme uiTheme
}

type turnDoneMsg struct {
	env envelopex.Envelope
	err error
}

type startersMsg struct {
	starters []string
	err      error
}

type resetDoneMsg struct {
	err error
}

func newModel(client *transport.Client, sess *session.Session) model {
	input := textinput.New()
	input.Prompt = "❯ "
	input.CharLimit = 2000
	input.Placeholder = "Ask about Buick models, parts, dealers or a quote. /help for commands."
	input.Focus()

	sp := spinner.New()
	sp.Spinner = spinner.Points
	sp.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("#05ffa1"))

	timeline := viewport.New(0, 0)
	timeline.MouseWheelEnabled = true
	timeline.MouseWheelDelta = 4

	return model{
		client:   client,
		sess:     sess,
		status:   "connecting...",
		input:    input,
		timeline: timeline,
		spinner:  sp,
		theme:    newTheme(),
	}
}

func (m model) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, textinput.Blink, m.startersCmd())
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.resize()
		m.renderTimeline()
	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		cmds = append(cmds, cmd)
	case tea.MouseMsg:
		var cmd tea.Cmd
		m.timeline, cmd = m.timeline.Update(msg)
		cmds = append(cmds, cmd)
	case startersMsg:
		if msg.err != nil {
			m.setError("starters unavailable", msg.err)
			break
		}
		m.setStatus("ready")
		if len(msg.starters) > 0 {
			m.lines = append(m.lines, m.theme.muted.Render("Try asking:"))
			for _, s := range msg.starters {
				m.lines = append(m.lines, m.theme.muted.Render("  · "+s))
			}
			m.renderTimeline()
		}
	case turnDoneMsg:
		m.pending = false
		m.handleTurn(msg)
		m.renderTimeline()
	case resetDoneMsg:
		if msg.err != nil {
			m.setError("reset failed", msg.err)
			break
		}
		m.sess.Reset()
		m.lines = nil
		m.chips = nil
		m.setStatus("conversation reset")
		m.renderTimeline()
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c":
			return m, tea.Quit
		case "esc":
			if m.sess.Panel().IsOpen() {
				m.sess.Close(session.CloseOverlay)
				return m, nil
			}
		case "enter":
			line := m.input.Value()
			m.input.SetValue("")
			return m, m.execute(line)
		case "pgup", "pgdown":
			var cmd tea.Cmd
			m.timeline, cmd = m.timeline.Update(msg)
			return m, cmd
		}
		var cmd tea.Cmd
		m.input, cmd = m.input.Update(msg)
		cmds = append(cmds, cmd)
	}
	return m, tea.Batch(cmds...)
}

func (m *model) execute(line string) tea.Cmd {
	c, err := parseCommand(line)
	if err != nil {
		m.setError(err.Error(), nil)
		return nil
	}

	switch c.kind {
	case cmdSend:
		if c.text == "" {
			return nil
		}
		return m.submit(c.text, func(ctx context.Context) (envelopex.Envelope, error) {
			return m.client.SubmitTurn(ctx, c.text)
		})
	case cmdEdit:
		m.sess.Close(session.CloseImageEditSubmitted)
		return m.submit(envelopex.ComposeImageEdit(c.imageURL, c.instruction), func(ctx context.Context) (envelopex.Envelope, error) {
			return m.client.SubmitImageEdit(ctx, c.imageURL, c.instruction)
		})
	case cmdOpen:
		if c.index > len(m.chips) {
			m.setError(fmt.Sprintf("no item %d to open", c.index), nil)
			return nil
		}
		if _, err := m.sess.OpenByID(m.chips[c.index-1].id); err != nil {
			m.setError("item expired", err)
		}
		return nil
	case cmdClose:
		m.sess.Close(session.CloseExplicit)
		return nil
	case cmdReset:
		m.setStatus("resetting...")
		return m.resetCmd()
	case cmdStarters:
		return m.startersCmd()
	case cmdQuit:
		return tea.Quit
	case cmdHelp:
		m.lines = append(m.lines, m.theme.muted.Render(helpText))
		m.renderTimeline()
		return nil
	}
	return nil
}

func (m *model) submit(shown string, call func(context.Context) (envelopex.Envelope, error)) tea.Cmd {
	if m.pending || m.client.InFlight() {
		m.setStatus("still waiting for the previous reply")
		return nil
	}
	m.pending = true
	m.lines = append(m.lines, m.theme.user.Render("you ")+shown)
	m.setStatus("thinking")
	m.renderTimeline()
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), turnTimeout)
		defer cancel()
		env, err := call(ctx)
		return turnDoneMsg{env: env, err: err}
	}
}

func (m *model) handleTurn(msg turnDoneMsg) {
	switch {
	case errors.Is(msg.err, transport.ErrTurnInFlight):
		m.setStatus("still waiting for the previous reply")
		return
	case errors.Is(msg.err, transport.ErrRejected):
		m.setError("message rejected", msg.err)
		return
	case msg.err != nil:
		m.lines = append(m.lines, m.theme.assistant.Render("concierge ")+transport.ApologyText)
		m.setError("turn not delivered", msg.err)
		return
	}

	batch := resolver.Resolve(msg.env)
	text := batch.Text
	if strings.TrimSpace(text) == "" || envelopex.LooksLikeRawJSON(text) {
		text = envelopex.FallbackText
	}
	m.lines = append(m.lines, m.theme.assistant.Render("concierge ")+text)
	m.setStatus("ready")
	if batch.TextOnly() {
		return
	}

	rendered, err := m.sess.Render(batch)
	if err != nil {
		m.setError("could not render items", err)
		return
	}
	for _, sec := range rendered {
		m.lines = append(m.lines, m.theme.section.Render(sectionTitle(sec.Section)))
		for i, e := range sec.Entries {
			m.chips = append(m.chips, chip{id: e.ID, kind: e.Kind, label: chipLabel(sec.Items[i])})
			m.lines = append(m.lines, fmt.Sprintf("  %s %s",
				m.theme.chipIndex.Render(fmt.Sprintf("[%d]", len(m.chips))),
				m.chips[len(m.chips)-1].label))
		}
		m.lines = append(m.lines, galleryLines(sec.Section)...)
	}
}

func (m model) startersCmd() tea.Cmd {
	client := m.client
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
		defer cancel()
		starters, err := client.Starters(ctx)
		return startersMsg{starters: starters, err: err}
	}
}

func (m model) resetCmd() tea.Cmd {
	client := m.client
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return resetDoneMsg{err: client.Reset(ctx)}
	}
}

func (m *model) setStatus(s string) {
	m.status = s
	m.isError = false
}

// setError shows a short status. The underlying error only goes to the log.
func (m *model) setError(s string, err error) {
	if err != nil {
		log.Error().Err(err).Str("status", s).Msg("concierge-tui")
	}
	m.status = s
	m.isError = true
}

func (m *model) resize() {
	w := max(m.width-4, 20)
	h := max(m.height-9, 5)
	m.timeline.Width = w
	m.timeline.Height = h
	m.input.Width = w - 4
}

func (m *model) renderTimeline() {
	wrap := lipgloss.NewStyle().Width(max(m.timeline.Width, 20))
	m.timeline.SetContent(wrap.Render(strings.Join(m.lines, "\n")))
	m.timeline.GotoBottom()
}

const helpText = `commands:
  /open <n>              show details for item n
  /close                 close the detail panel (esc also closes it)
  /edit <url> <prompt>   edit an image
  /starters              suggest questions
  /reset                 start over
  /quit`

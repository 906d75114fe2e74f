// Package console is the interactive terminal front end of the studio.
package console

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/ashureev/agent-studio/internal/domain"
	"github.com/ashureev/agent-studio/internal/studio"
)

type studioEventMsg struct{ ev studio.Event }

type opDoneMsg struct {
	status string
	err    error
}

// Model is the bubbletea model of the console.
type Model struct {
	ctx         context.Context
	studio      *studio.Studio
	events      <-chan studio.Event
	unsubscribe func()

	input      textinput.Model
	transcript viewport.Model
	theme      theme

	width, height int
	status        string
	statusErr     bool
	inflight      int
	tools         []string
	showHelp      bool
}

// New creates a console bound to s. Close releases the event subscription.
func New(ctx context.Context, s *studio.Studio) Model {
	input := textinput.New()
	input.Prompt = "› "
	input.CharLimit = 4000
	input.Placeholder = "Ask the agent, or /help"
	input.Focus()

	events, cancel := s.Subscribe(256)
	return Model{
		ctx:         ctx,
		studio:      s,
		events:      events,
		unsubscribe: cancel,
		input:       input,
		transcript:  viewport.New(0, 0),
		theme:       newTheme(),
		status:      "loading accounts and agents...",
	}
}

// Close releases the event subscription.
func (m Model) Close() {
	if m.unsubscribe != nil {
		m.unsubscribe()
	}
}

// Run starts the console and blocks until the operator quits.
func Run(ctx context.Context, s *studio.Studio) error {
	m := New(ctx, s)
	defer m.Close()
	_, err := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(ctx)).Run()
	if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
		return nil
	}
	return err
}

func waitEvent(ch <-chan studio.Event) tea.Cmd {
	if ch == nil {
		return nil
	}
	return func() tea.Msg {
		ev, ok := <-ch
		if !ok {
			return nil
		}
		return studioEventMsg{ev: ev}
	}
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, waitEvent(m.events), m.bootstrapCmd())
}

func (m Model) bootstrapCmd() tea.Cmd {
	ctx, s := m.ctx, m.studio
	return func() tea.Msg {
		accounts, err := s.LoadAccounts(ctx)
		if err != nil {
			return opDoneMsg{err: fmt.Errorf("load accounts: %w", err)}
		}
		agents, err := s.LoadCustomAgents(ctx)
		if err != nil {
			return opDoneMsg{err: fmt.Errorf("load custom agents: %w", err)}
		}
		s.LoadTools(ctx)
		return opDoneMsg{status: fmt.Sprintf("ready · %d accounts · %d custom agents", len(accounts), len(agents))}
	}
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd
	switch msg := msg.(type) {
	case studioEventMsg:
		if msg.ev.Type == studio.EventThreadRestored && msg.ev.Error != "" {
			m.status, m.statusErr = "chat failed: "+msg.ev.Error, true
		}
		m.renderTranscript()
		cmds = append(cmds, waitEvent(m.events))
	case opDoneMsg:
		if m.inflight > 0 {
			m.inflight--
		}
		if msg.err != nil {
			m.status, m.statusErr = msg.err.Error(), true
		} else if msg.status != "" {
			m.status, m.statusErr = msg.status, false
		}
		m.renderTranscript()
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.resize()
		m.renderTranscript()
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c":
			return m, tea.Quit
		case "enter":
			line := m.input.Value()
			m.input.SetValue("")
			if cmd := m.submit(line); cmd != nil {
				cmds = append(cmds, cmd)
			}
			return m, tea.Batch(cmds...)
		case "pgup", "pgdown":
			var cmd tea.Cmd
			m.transcript, cmd = m.transcript.Update(msg)
			return m, cmd
		}
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	cmds = append(cmds, cmd)
	return m, tea.Batch(cmds...)
}

// submit handles one line of input.
func (m *Model) submit(line string) tea.Cmd {
	line = strings.TrimSpace(line)
	if line == "" {
		return nil
	}
	cmd, isCommand, err := ParseCommand(line)
	if err != nil {
		m.status, m.statusErr = err.Error(), true
		return nil
	}
	m.showHelp = false
	if !isCommand {
		s, tools := m.studio, m.tools
		return m.async("waiting for the agent...", func(ctx context.Context) (string, error) {
			res, err := s.SendChat(ctx, line, studio.ChatOptions{Tools: tools})
			if err != nil {
				return "", err
			}
			return fmt.Sprintf("reply received · %d tool runs · %d proposed actions", len(res.Tools), len(res.ProposedActions)), nil
		})
	}
	return m.execute(cmd)
}

func (m *Model) execute(cmd Command) tea.Cmd {
	s := m.studio
	switch cmd.Name {
	case "quit":
		return tea.Quit
	case "help":
		m.showHelp = true
		m.status, m.statusErr = "commands", false
		return nil
	case "tools":
		m.tools = parseTools(cmd.Args)
		if len(m.tools) == 0 {
			m.status, m.statusErr = "tool selection cleared", false
		} else {
			m.status, m.statusErr = "tools for next messages: "+strings.Join(m.tools, ", "), false
		}
		return nil
	case "agent":
		t, err := domain.ParseAgentType(cmd.Args[0])
		if err != nil {
			m.status, m.statusErr = err.Error(), true
			return nil
		}
		m.setResult("agent "+string(t), s.SelectAgentType(t))
		return nil
	case "backend":
		m.setResult("backend "+cmd.Args[0], s.SelectBackend(domain.Backend(cmd.Args[0])))
		return nil
	case "clear":
		return m.async("", func(ctx context.Context) (string, error) {
			s.ResetChat(ctx)
			return "thread cleared", nil
		})
	case "custom":
		id := cmd.Args[0]
		return m.async("loading agent...", func(ctx context.Context) (string, error) {
			return "custom agent " + id, s.SelectCustomAgent(ctx, id)
		})
	case "account":
		id := cmd.Args[0]
		return m.async("loading account...", func(ctx context.Context) (string, error) {
			return "account " + id, s.SelectAccount(ctx, id)
		})
	case "quick":
		idx, err := parseQuick(cmd.Args[0])
		if err != nil {
			m.status, m.statusErr = err.Error(), true
			return nil
		}
		return m.async("waiting for the agent...", func(ctx context.Context) (string, error) {
			_, err := s.QuickPrompt(ctx, idx)
			return "reply received", err
		})
	case "approve":
		mode, err := parseApproveMode(cmd.Args)
		if err != nil {
			m.status, m.statusErr = err.Error(), true
			return nil
		}
		id := cmd.Args[0]
		return m.async("triggering "+id+"...", func(ctx context.Context) (string, error) {
			out, err := s.TriggerAction(ctx, id, mode)
			if err != nil {
				return "", err
			}
			if out.PRURL != "" {
				return "PR opened: " + out.PRURL, nil
			}
			return fmt.Sprintf("%s %s: %s", out.ActionID, out.Status, out.Message), nil
		})
	case "train":
		req := domain.TrainingRequest{}
		if len(cmd.Args) == 1 {
			req.BaseModelID = cmd.Args[0]
		}
		return m.async("launching training...", func(ctx context.Context) (string, error) {
			job, err := s.StartTraining(ctx, req)
			if err != nil {
				return "", err
			}
			return "training job " + job.JobID + " " + string(job.Status), nil
		})
	case "jobs":
		return m.async("refreshing jobs...", func(ctx context.Context) (string, error) {
			if err := s.RefreshTrainingJobs(ctx); err != nil {
				return "", err
			}
			return fmt.Sprintf("%d training jobs", len(s.TrainingJobs())), nil
		})
	}
	m.status, m.statusErr = errUnknownCommand.Error(), true
	return nil
}

func (m *Model) setResult(status string, err error) {
	if err != nil {
		m.status, m.statusErr = err.Error(), true
		return
	}
	m.status, m.statusErr = status, false
	m.renderTranscript()
}

// async runs fn off the UI goroutine and reports through opDoneMsg.
func (m *Model) async(pending string, fn func(ctx context.Context) (string, error)) tea.Cmd {
	m.inflight++
	if pending != "" {
		m.status, m.statusErr = pending, false
	}
	ctx := m.ctx
	return func() tea.Msg {
		status, err := fn(ctx)
		return opDoneMsg{status: status, err: err}
	}
}

func (m *Model) resize() {
	w := max(40, m.width-4)
	m.input.Width = max(20, w-4)
	m.transcript.Width = w
	m.transcript.Height = max(5, m.height-10)
}

func (m *Model) renderTranscript() {
	atBottom := m.transcript.AtBottom()
	m.transcript.SetContent(renderThread(m.theme, m.studio.Thread(), m.transcript.Width-2))
	if atBottom || m.transcript.TotalLineCount() <= m.transcript.Height {
		m.transcript.GotoBottom()
	}
}

func (m Model) View() string {
	st := m.studio.Snapshot()
	body := m.transcript.View()
	if m.showHelp {
		body = m.theme.helpText.Render(HelpText)
	}

	statusStyle := m.theme.status
	if m.statusErr {
		statusStyle = m.theme.errorStatus
	}
	status := m.status
	if m.inflight > 0 && !m.statusErr {
		status = "⟳ " + status
	}

	parts := []string{
		renderHeader(m.theme, st, m.tools),
		m.theme.panel.Width(max(40, m.width-4)).Render(body),
	}
	if side := renderActions(m.theme, st); side != "" {
		parts = append(parts, side)
	}
	parts = append(parts, m.input.View(), statusStyle.Render(status))
	return lipgloss.JoinVertical(lipgloss.Left, parts...)
}

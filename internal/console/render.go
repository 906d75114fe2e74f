package console

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/ashureev/agent-studio/internal/domain"
	"github.com/ashureev/agent-studio/internal/studio"
)

type theme struct {
	header      lipgloss.Style
	panel       lipgloss.Style
	status      lipgloss.Style
	errorStatus lipgloss.Style
	helpText    lipgloss.Style
	toolLine    lipgloss.Style
	roles       map[domain.Role]lipgloss.Style
}

func newTheme() theme {
	amber := lipgloss.Color("#ff9900")
	teal := lipgloss.Color("#2dd4bf")
	slate := lipgloss.Color("#94a3b8")
	red := lipgloss.Color("#f87171")

	return theme{
		header: lipgloss.NewStyle().
			Bold(true).
			Foreground(amber).
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(amber).
			Padding(0, 1),
		panel: lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(slate).
			Padding(0, 1),
		status:      lipgloss.NewStyle().Foreground(teal).Bold(true),
		errorStatus: lipgloss.NewStyle().Foreground(red).Bold(true),
		helpText:    lipgloss.NewStyle().Foreground(slate),
		toolLine:    lipgloss.NewStyle().Foreground(slate).Italic(true),
		roles: map[domain.Role]lipgloss.Style{
			domain.RoleUser:      lipgloss.NewStyle().Foreground(teal).Bold(true),
			domain.RoleAssistant: lipgloss.NewStyle().Foreground(amber).Bold(true),
			domain.RoleSystem:    lipgloss.NewStyle().Foreground(slate).Bold(true),
		},
	}
}

func roleLabel(r domain.Role) string {
	switch r {
	case domain.RoleUser:
		return "you"
	case domain.RoleAssistant:
		return "agent"
	default:
		return "notice"
	}
}

// renderThread formats a thread for the transcript viewport.
func renderThread(th theme, msgs []domain.Message, width int) string {
	if len(msgs) == 0 {
		return th.helpText.Render("No messages yet. Ask the agent about the selected account, or type /help.")
	}
	if width < 24 {
		width = 24
	}
	wrap := lipgloss.NewStyle().Width(width)

	var b strings.Builder
	for _, m := range msgs {
		style, ok := th.roles[m.Role]
		if !ok {
			style = th.roles[domain.RoleSystem]
		}
		fmt.Fprintf(&b, "%s %s\n", style.Render(roleLabel(m.Role)), th.helpText.Render(m.Timestamp.Format("15:04:05")))
		b.WriteString(wrap.Render(m.Content))
		b.WriteString("\n")
		for _, run := range m.ToolRuns {
			line := fmt.Sprintf("  %s: %s", run.Tool, run.EffectiveStatus())
			if run.Error != "" {
				line += " (" + run.Error + ")"
			}
			b.WriteString(th.toolLine.Render(line))
			b.WriteString("\n")
		}
		b.WriteString("\n")
	}
	return strings.TrimRight(b.String(), "\n")
}

// renderHeader summarizes the selection.
func renderHeader(th theme, st studio.State, tools []string) string {
	agent := string(st.AgentType)
	if st.AgentType == domain.AgentCustom && st.CustomAgentID != "" {
		agent = "custom " + st.CustomAgentID
		for _, a := range st.CustomAgents {
			if a.AgentID == st.CustomAgentID && a.Name != "" {
				agent = "custom " + a.Name
				break
			}
		}
	}
	account := st.AccountID
	if account == "" {
		account = "none"
	}
	line := fmt.Sprintf("Agent Studio · %s · account %s · %s", agent, account, st.Backend)
	if len(tools) > 0 {
		line += " · tools " + strings.Join(tools, ",")
	}
	return th.header.Render(line)
}

// renderActions lists proposed actions and active training jobs.
func renderActions(th theme, st studio.State) string {
	var lines []string
	for _, a := range st.ProposedActions {
		lines = append(lines, fmt.Sprintf("[%s] %s (%s risk, %+.2f USD/mo)", a.ID, a.Title, a.Risk, a.EstCostDeltaUSDMonth))
	}
	for _, j := range st.TrainingJobs {
		lines = append(lines, fmt.Sprintf("training %s: %s", j.JobID, j.Status))
	}
	if st.SyncSummary != "" {
		lines = append(lines, st.SyncSummary)
	}
	if len(lines) == 0 {
		return ""
	}
	return th.helpText.Render(strings.Join(lines, "\n"))
}

package console

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/ashureev/agent-studio/internal/domain"
)

// Command is a parsed slash command.
type Command struct {
	Name string
	Args []string
}

var errUnknownCommand = errors.New("unknown command, try /help")

var commandArity = map[string][2]int{
	"agent":   {1, 1},
	"custom":  {1, 1},
	"account": {1, 1},
	"backend": {1, 1},
	"tools":   {0, 1},
	"quick":   {1, 1},
	"approve": {1, 2},
	"train":   {0, 1},
	"jobs":    {0, 0},
	"clear":   {0, 0},
	"help":    {0, 0},
	"quit":    {0, 0},
}

// HelpText lists the slash commands.
const HelpText = `/agent <WellArchitectedAgent|CostAgent|AIWorkflowAgent|Custom>
/custom <agent-id>        chat with a custom agent
/account <account-id>     switch account under test
/backend <langgraph|agentcore>
/tools [a,b|off]          read-only tools for the next messages
/quick <1-3>              send a quick prompt
/approve <action-id> [pr|direct]
/train [base-model-id]    launch training for the custom agent
/jobs                     refresh training jobs
/clear                    reset the visible thread
/quit`

// ParseCommand parses a line starting with "/". ok is false for plain chat text.
func ParseCommand(line string) (cmd Command, ok bool, err error) {
	line = strings.TrimSpace(line)
	if !strings.HasPrefix(line, "/") {
		return Command{}, false, nil
	}
	fields := strings.Fields(strings.TrimPrefix(line, "/"))
	if len(fields) == 0 {
		return Command{}, true, errUnknownCommand
	}
	name := strings.ToLower(fields[0])
	arity, known := commandArity[name]
	if !known {
		return Command{}, true, errUnknownCommand
	}
	args := fields[1:]
	if len(args) < arity[0] || len(args) > arity[1] {
		return Command{}, true, fmt.Errorf("usage error for /%s, try /help", name)
	}
	return Command{Name: name, Args: args}, true, nil
}

// parseTools reads the /tools argument. "off" or no argument clears the selection.
func parseTools(args []string) []string {
	if len(args) == 0 || strings.EqualFold(args[0], "off") {
		return nil
	}
	var out []string
	for _, t := range strings.Split(args[0], ",") {
		if t = strings.TrimSpace(t); t != "" {
			out = append(out, t)
		}
	}
	return out
}

// parseQuick converts the 1-based index used on screen.
func parseQuick(arg string) (int, error) {
	n, err := strconv.Atoi(arg)
	if err != nil || n < 1 || n > len(domain.QuickPrompts) {
		return 0, fmt.Errorf("quick prompt must be 1-%d", len(domain.QuickPrompts))
	}
	return n - 1, nil
}

func parseApproveMode(args []string) (domain.ActionMode, error) {
	if len(args) < 2 {
		return domain.ModePR, nil
	}
	return domain.ParseActionMode(args[1])
}

package command

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"mvdan.cc/sh/v3/shell"

	"github.com/starford/taskwise/internal/apperr"
	"github.com/starford/taskwise/internal/extract"
	"github.com/starford/taskwise/internal/status"
)

// Syntax describes one command of the textual grammar.
type Syntax struct {
	Name    string
	Usage   string
	Summary string
}

// Grammar is the command reference shared by the parser and the model prompt.
var Grammar = []Syntax{
	{"task:add", `task:add "<notebook>" "<title>" [high|medium|low] [YYYY-MM-DD]`, "create a task"},
	{"task:list", `task:list ["<notebook>"] [todo|in_progress|done|archived]`, "list tasks"},
	{"task:move", `task:move <task_id> <todo|in_progress|done|archived>`, "change a task's status"},
	{"task:delete", `task:delete <task_id>`, "delete a task"},
	{"task:search", `task:search "<query>"`, "full-text search over tasks"},
	{"notebook:create", `notebook:create "<name>" [default]`, "create a notebook, optionally as the default"},
	{"notebook:default", `notebook:default "<name>"`, "make a notebook the default"},
	{"notebook:list", `notebook:list`, "list notebooks with task counts"},
	{"stats", `stats ["<notebook>"]`, "status counts for one notebook or all"},
}

// Reference renders Grammar one usage line per command.
func Reference() string {
	var b strings.Builder
	for _, s := range Grammar {
		fmt.Fprintf(&b, "%-72s # %s\n", s.Usage, s.Summary)
	}
	return b.String()
}

// IsCommand reports whether line starts with a known command name.
func IsCommand(line string) bool {
	fields := strings.Fields(strings.TrimSpace(line))
	if len(fields) == 0 {
		return false
	}
	name := strings.ToLower(fields[0])
	for _, s := range Grammar {
		if name == s.Name {
			return true
		}
	}
	return false
}

// ParseCommand parses one grammar line. Arguments follow shell quoting rules.
func ParseCommand(line string) (Action, error) {
	args := tokenize(line)
	if len(args) == 0 {
		return nil, fmt.Errorf("%w: empty command", apperr.ErrInvalid)
	}
	name, args := strings.ToLower(args[0]), args[1:]
	switch name {
	case "task:add":
		return parseTaskAdd(args)
	case "task:list":
		return parseTaskList(args)
	case "task:move":
		if len(args) < 2 {
			return nil, usageError(name)
		}
		id, err := parseID(args[0])
		if err != nil {
			return nil, err
		}
		return MoveTask{TaskID: id, Status: strings.Join(args[1:], " ")}, nil
	case "task:delete":
		if len(args) != 1 {
			return nil, usageError(name)
		}
		id, err := parseID(args[0])
		if err != nil {
			return nil, err
		}
		return DeleteTask{TaskID: id}, nil
	case "task:search":
		if len(args) == 0 {
			return nil, usageError(name)
		}
		return SearchTasks{Query: strings.Join(args, " ")}, nil
	case "notebook:create":
		if len(args) == 0 {
			return nil, usageError(name)
		}
		a := CreateNotebook{}
		if n := len(args); n > 1 && strings.EqualFold(args[n-1], "default") {
			a.Default, args = true, args[:n-1]
		}
		a.Name = strings.Join(args, " ")
		return a, nil
	case "notebook:default":
		if len(args) == 0 {
			return nil, usageError(name)
		}
		return SetDefaultNotebook{Name: strings.Join(args, " ")}, nil
	case "notebook:list":
		return ListNotebooks{}, nil
	case "stats":
		return ShowStats{Notebook: strings.Join(args, " ")}, nil
	}
	return nil, fmt.Errorf("%w: unknown command %q", apperr.ErrInvalid, name)
}

func parseTaskAdd(args []string) (Action, error) {
	if len(args) < 2 {
		return nil, usageError("task:add")
	}
	a := CreateTask{Notebook: args[0], Title: args[1]}
	for _, opt := range args[2:] {
		if p, ok := extract.NormalizePriority(opt); ok && a.Priority == "" {
			a.Priority = string(p)
			continue
		}
		if _, ok := extract.ParseDate(opt, time.Now()); ok && a.DueDate == "" {
			a.DueDate = opt
			continue
		}
		return nil, fmt.Errorf("%w: task:add: unexpected argument %q", apperr.ErrInvalid, opt)
	}
	return a, nil
}

func parseTaskList(args []string) (Action, error) {
	var a ListTasks
	switch len(args) {
	case 0:
	case 1:
		if _, ok := status.Normalize(args[0]); ok {
			a.Status = args[0]
		} else {
			a.Notebook = args[0]
		}
	case 2:
		a.Notebook, a.Status = args[0], args[1]
	default:
		return nil, usageError("task:list")
	}
	return a, nil
}

func parseID(s string) (ID, error) {
	n, err := strconv.ParseInt(strings.TrimPrefix(s, "#"), 10, 64)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("%w: task id %q is not a positive number", apperr.ErrInvalid, s)
	}
	return ID(n), nil
}

func usageError(name string) error {
	for _, s := range Grammar {
		if s.Name == name {
			return fmt.Errorf("%w: usage: %s", apperr.ErrInvalid, s.Usage)
		}
	}
	return fmt.Errorf("%w: %s", apperr.ErrInvalid, name)
}

// tokenize splits line with shell quoting. Variables are left unexpanded so
// titles such as "pay $50" survive. Unbalanced quotes fall back to plain
// whitespace splitting with quote characters trimmed.
func tokenize(line string) []string {
	line = strings.Trim(strings.TrimSpace(line), "`")
	line = strings.TrimSpace(strings.TrimPrefix(line, "$ "))
	fields, err := shell.Fields(escapeComments(line), func(name string) string { return "$" + name })
	if err == nil {
		return fields
	}
	var out []string
	for _, f := range strings.Fields(line) {
		if f = strings.Trim(f, `"'`); f != "" {
			out = append(out, f)
		}
	}
	return out
}

// escapeComments backslash-escapes an unquoted '#' that starts a word, which
// the shell would otherwise read as a comment ("task:move #85 done").
func escapeComments(line string) string {
	var b strings.Builder
	var quote rune
	prev := ' '
	for _, r := range line {
		switch {
		case quote != 0:
			if r == quote {
				quote = 0
			}
		case r == '"' || r == '\'':
			quote = r
		case r == '#' && (prev == ' ' || prev == '\t'):
			b.WriteRune('\\')
		}
		b.WriteRune(r)
		prev = r
	}
	return b.String()
}

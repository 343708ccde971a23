package llm

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/starford/taskwise/internal/command"
)

const rolePrompt = `You are the command interpreter of a notebook and task manager.
Translate the user's request into commands from the grammar below. Prefer doing
something reasonable over refusing; when unsure, list tasks.`

const statusHints = `Status words map to four statuses:
- todo: to do, pending, open, backlog, not started, new
- in_progress: in progress, doing, started, wip, working, active, ongoing
- done: complete, completed, finished, closed, resolved, fixed, shipped
- archived: archive, shelved, retired`

const examples = `Examples:
"add buy milk to groceries with high priority" -> {"commands": ["task:add \"groceries\" \"buy milk\" high"], "explanation": "Added buy milk to groceries."}
"mark 12 as done" -> {"commands": ["task:move 12 done"], "explanation": "Task 12 is done."}
"show archived tasks in work" -> {"commands": ["task:list \"work\" archived"], "explanation": "Listing archived tasks in work."}
"plan a product launch" -> {"commands": [], "actions": [{"type": "generate_import_json", "notebook": "launch", "tasks": [{"title": "write announcement", "priority": "high"}]}], "explanation": "Drafted a launch plan."}`

const contract = `Reply with a single JSON object and nothing else:
{"commands": ["<grammar line>", ...], "explanation": "<one sentence for the user>"}
Optionally add "actions": a list of objects whose "type" is one of create_task,
move_task, create_notebook, set_default_notebook, list_tasks, search_tasks,
generate_import_json, delete_task, list_notebooks or stats. Quote notebook names
and titles.`

// BuildSystemPrompt renders the instructions, grammar and inventory for c.
func BuildSystemPrompt(c Context) (string, error) {
	inventory, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encode context: %w", err)
	}

	var b strings.Builder
	b.WriteString(rolePrompt)
	b.WriteString("\n\nCommand grammar:\n")
	b.WriteString(command.Reference())
	b.WriteString("\n")
	b.WriteString(statusHints)
	b.WriteString("\n\n")
	b.WriteString(examples)
	b.WriteString("\n\nCurrent notebooks and matched tasks:\n")
	b.Write(inventory)
	b.WriteString("\n\n")
	if len(c.Matches) > 0 && c.TargetStatus != "" {
		ids := make([]string, 0, len(c.Matches))
		for _, m := range c.Matches {
			ids = append(ids, fmt.Sprintf("#%d", m.TaskID))
		}
		fmt.Fprintf(&b, "These tasks will move to %s before your commands run: %s. Do not repeat those moves.\n\n",
			c.TargetStatus, strings.Join(ids, ", "))
	}
	b.WriteString(contract)
	return b.String(), nil
}

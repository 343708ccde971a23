package mcpserver

import "github.com/starford/taskwise/internal/command"

const guideIntro = `# taskwise Command Guide

Requests to the ask tool may be plain English ("move tappy-tf-shared to
archived", "show statistics for infra"). The run_command tool accepts one line
of the grammar below. Arguments follow shell quoting: quote notebook names and
titles that contain spaces.

## Grammar

` + "```" + `
`

const guideRules = "```" + `

## Rules

1. **Statuses** are todo, in_progress, done and archived. Synonyms such as
   "pending", "wip", "finished" or "shelved" are accepted and normalised.
2. **Priorities** are high, medium and low.
3. **Due dates** use ` + "`" + `YYYY-MM-DD` + "`" + `; "today" and "tomorrow" are also understood.
4. **Task ids** may be written with or without a leading ` + "`" + `#` + "`" + `.
5. **Unknown notebooks or tasks** fail only the command that names them.

## Import documents

Drop a JSON document into the imports directory to create many tasks at once:

` + "```" + `json
{
  "notebook": "launch",
  "tasks": [
    {"title": "Write announcement", "priority": "high", "due_date": "2026-04-01"},
    {"title": "Update pricing page", "status": "in_progress", "tags": ["web"]}
  ]
}
` + "```" + `

Markdown files work too: YAML frontmatter names the notebook and a checklist
(` + "`" + `- [ ] title` + "`" + `, ` + "`" + `- [x] title` + "`" + `) lists the tasks.
`

// CommandGuide describes the command grammar and import format for MCP
// clients.
func CommandGuide() string {
	return guideIntro + command.Reference() + guideRules
}

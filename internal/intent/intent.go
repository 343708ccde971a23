// Package intent classifies requests that can be answered without the
// language model.
package intent

import (
	"regexp"
	"strings"

	"github.com/starford/taskwise/internal/extract"
	"github.com/starford/taskwise/internal/models"
	"github.com/starford/taskwise/internal/status"
)

// Kind tags an Intent.
type Kind int

const (
	KindStats Kind = iota + 1
	KindPriorityList
	KindDeadlineList
	KindCreateTask
	KindStatusList
	KindNotebookList
	KindMoveTask
)

var kindNames = map[Kind]string{
	KindStats:        "stats",
	KindPriorityList: "priority_list",
	KindDeadlineList: "deadline_list",
	KindCreateTask:   "create_task",
	KindStatusList:   "status_list",
	KindNotebookList: "notebook_list",
	KindMoveTask:     "move_task",
}

func (k Kind) String() string {
	if n, ok := kindNames[k]; ok {
		return n
	}
	return "unknown"
}

// Deadline selects a due-date listing.
type Deadline string

const (
	DeadlineUpcoming Deadline = "upcoming"
	DeadlineDue      Deadline = "due"
	DeadlineOverdue  Deadline = "overdue"
)

// Intent is a classified request with the slots its kind uses.
type Intent struct {
	Kind   Kind
	Prompt string

	// KindMoveTask and KindStatusList.
	TargetStatus   models.Status
	ExplicitStatus bool
	SearchTerm     string

	// KindPriorityList and KindCreateTask.
	Priority models.Priority

	// KindCreateTask.
	Title string

	// KindDeadlineList.
	Deadline Deadline
}

var (
	statsRe       = regexp.MustCompile(`\b(?:show|display|get|give)\s+(?:me\s+)?(?:the\s+)?(?:task\s+)?stat(?:s|istics)\b`)
	priorityRe    = regexp.MustCompile(`\b(high|medium|low)[\s-]+priority\b`)
	deadlineRe    = regexp.MustCompile(`\b(upcoming|due|overdue)\s+(?:tasks|deadlines|items)\b`)
	createRe      = regexp.MustCompile(`^\s*(?:please\s+)?(?:can you\s+|could you\s+)?(?:create|add|make)\b`)
	createTaskRe  = regexp.MustCompile(`\b(?:create|add|make)\b.*\b(?:task|todo)s?\b`)
	statusListRe  = regexp.MustCompile(`\b(todo|to-do|in[\s_-]?progress|done|completed|archived)\s+tasks\b`)
	notebookRe    = regexp.MustCompile(`\b(?:list|show|display)\s+(?:all\s+)?(?:of\s+)?(?:my\s+|the\s+)?notebooks\b`)
	movementVerbs = regexp.MustCompile(`\b(?:move|mark|set|change|update|put)\b`)
	moveRe        = regexp.MustCompile(`\bmove\b`)
	changeRe      = regexp.MustCompile(`\b(?:change|set|update)\b`)
	changeToRe    = regexp.MustCompile(`\b(?:status|to)\b`)
	markRe        = regexp.MustCompile(`\bmark\b.*\b(?:as|to)\b`)
)

type rule struct {
	kind    Kind
	match   func(p string) bool
	exclude func(p string) bool
	build   func(prompt, p string) Intent
}

// rules are tried in order; the first match wins.
var rules = []rule{
	{
		kind:  KindStats,
		match: statsRe.MatchString,
	},
	{
		kind:    KindPriorityList,
		match:   priorityRe.MatchString,
		exclude: creationOrMovement,
		build: func(_, p string) Intent {
			pr, _ := extract.NormalizePriority(priorityRe.FindStringSubmatch(p)[1])
			return Intent{Priority: pr}
		},
	},
	{
		kind:    KindDeadlineList,
		match:   deadlineRe.MatchString,
		exclude: creationOrMovement,
		build: func(_, p string) Intent {
			return Intent{Deadline: Deadline(deadlineRe.FindStringSubmatch(p)[1])}
		},
	},
	{
		kind:  KindCreateTask,
		match: func(p string) bool { return createRe.MatchString(p) && createTaskRe.MatchString(p) },
		build: func(prompt, _ string) Intent {
			pr, _ := extract.Priority(prompt)
			return Intent{Title: extract.Title(prompt), Priority: pr}
		},
	},
	{
		kind:    KindStatusList,
		match:   statusListRe.MatchString,
		exclude: movementVerbs.MatchString,
		build: func(_, p string) Intent {
			st, _ := status.Normalize(statusListRe.FindStringSubmatch(p)[1])
			return Intent{TargetStatus: st, ExplicitStatus: true}
		},
	},
	{
		kind:  KindNotebookList,
		match: notebookRe.MatchString,
	},
	{
		kind: KindMoveTask,
		match: func(p string) bool {
			return moveRe.MatchString(p) ||
				(changeRe.MatchString(p) && changeToRe.MatchString(p)) ||
				markRe.MatchString(p)
		},
		build: func(prompt, _ string) Intent {
			in := Intent{SearchTerm: extract.SearchTerm(prompt)}
			in.TargetStatus, _ = status.ExtractTarget(prompt)
			_, in.ExplicitStatus = status.ExtractExplicit(prompt)
			return in
		},
	},
}

func creationOrMovement(p string) bool {
	return createRe.MatchString(p) || movementVerbs.MatchString(p)
}

// Classify matches prompt against the rule table. It reports false when no
// rule applies and the request needs the language model.
func Classify(prompt string) (Intent, bool) {
	p := strings.ToLower(strings.TrimSpace(prompt))
	if p == "" {
		return Intent{}, false
	}
	for _, r := range rules {
		if !r.match(p) || (r.exclude != nil && r.exclude(p)) {
			continue
		}
		var in Intent
		if r.build != nil {
			in = r.build(prompt, p)
		}
		in.Kind = r.kind
		in.Prompt = prompt
		return in, true
	}
	return Intent{}, false
}

// Package matcher selects the tasks a request refers to.
package matcher

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/starford/taskwise/internal/apperr"
	"github.com/starford/taskwise/internal/extract"
	"github.com/starford/taskwise/internal/models"
)

// Mode is the way several search terms combine.
type Mode int

const (
	// ModeSingle is a lone term.
	ModeSingle Mode = iota
	// ModeAnd requires every term to match.
	ModeAnd
	// ModeOr requires any term to match.
	ModeOr
)

func (m Mode) String() string {
	switch m {
	case ModeAnd:
		return "and"
	case ModeOr:
		return "or"
	}
	return "single"
}

// Reader is the part of the task store the matcher needs.
type Reader interface {
	ListNotebooks() ([]models.Notebook, error)
	DefaultNotebook() (*models.Notebook, error)
	ListTasks(notebookID int64) ([]models.Task, error)
	AllTasks() ([]models.Task, error)
}

var (
	orRe        = regexp.MustCompile(`\bor\b`)
	andRe       = regexp.MustCompile(`\band\b`)
	relatedToRe = regexp.MustCompile(`related to\s+(.+?)\s+(and|or)\s+(.+)$`)
	destRe      = regexp.MustCompile(`^(.+)\s(?:to|into|as)\s+.*$`)
)

// ResolveMode decides how terms combine from the original prompt. A
// "related to T1 and|or T2" phrase re-extracts its own sub-terms, which are
// returned in place of terms.
func ResolveMode(prompt string, terms []string) (Mode, []string) {
	p := strings.ToLower(strings.TrimSpace(prompt))
	if m := relatedToRe.FindStringSubmatch(p); m != nil {
		tail := m[3]
		if d := destRe.FindStringSubmatch(tail); d != nil {
			tail = d[1]
		}
		sub := extract.SearchTerms(m[1] + " " + m[2] + " " + tail)
		if len(sub) > 1 {
			if m[2] == "or" {
				return ModeOr, sub
			}
			return ModeAnd, sub
		}
	}
	if len(terms) <= 1 {
		return ModeSingle, terms
	}
	switch {
	case orRe.MatchString(p):
		return ModeOr, terms
	case andRe.MatchString(p):
		return ModeAnd, terms
	}
	return ModeOr, terms
}

// TaskMatchesTerm reports whether a single term selects task: the wildcard,
// the numeric id, a case-insensitive substring of title, description, a tag
// or the notebook name, or the exact status.
func TaskMatchesTerm(task models.Task, term string) bool {
	term = strings.ToLower(strings.TrimSpace(term))
	if term == "" {
		return false
	}
	if term == extract.Wildcard {
		return true
	}
	if id, err := strconv.ParseInt(strings.TrimPrefix(term, "#"), 10, 64); err == nil && id == task.ID {
		return true
	}
	if term == string(task.Status) {
		return true
	}
	if strings.Contains(strings.ToLower(task.Title), term) ||
		strings.Contains(strings.ToLower(task.Description), term) ||
		strings.Contains(strings.ToLower(task.NotebookName), term) {
		return true
	}
	for _, tag := range task.Tags {
		if strings.Contains(strings.ToLower(tag), term) {
			return true
		}
	}
	return false
}

// TaskMatchesAnyTerm reports whether any term selects task.
func TaskMatchesAnyTerm(task models.Task, terms []string) bool {
	for _, term := range terms {
		if TaskMatchesTerm(task, term) {
			return true
		}
	}
	return false
}

func taskMatchesAllTerms(task models.Task, terms []string) bool {
	for _, term := range terms {
		if !TaskMatchesTerm(task, term) {
			return false
		}
	}
	return len(terms) > 0
}

// Match filters corpus by terms combined per the prompt. Corpus order is
// kept.
//
// AND is not strict: when no task satisfies every term the result widens
// to tasks matching any term. "move the auth and billing tasks" then still
// finds one task per topic, but a caller asking for the intersection gets
// the union instead of an empty set when the intersection is empty.
func Match(corpus []models.Task, terms []string, prompt string) []models.Task {
	mode, terms := ResolveMode(prompt, terms)
	if len(terms) == 0 {
		return nil
	}
	if mode == ModeAnd {
		if out := filter(corpus, func(t models.Task) bool { return taskMatchesAllTerms(t, terms) }); len(out) > 0 {
			return out
		}
	}
	return filter(corpus, func(t models.Task) bool { return TaskMatchesAnyTerm(t, terms) })
}

// FindAllTasks returns the default notebook's tasks, or every task when no
// notebook is the default.
func FindAllTasks(r Reader) ([]models.Task, error) {
	def, err := r.DefaultNotebook()
	switch {
	case errors.Is(err, apperr.ErrNotFound):
		return r.AllTasks()
	case err != nil:
		return nil, fmt.Errorf("default notebook: %w", err)
	}
	return r.ListTasks(def.ID)
}

// Corpus returns the tasks terms are matched against: the FindAllTasks scope
// when every term is the wildcard, otherwise every task in every notebook.
func Corpus(r Reader, terms []string) ([]models.Task, error) {
	wildcard := len(terms) > 0
	for _, t := range terms {
		if t != extract.Wildcard {
			wildcard = false
			break
		}
	}
	if wildcard {
		return FindAllTasks(r)
	}
	return r.AllTasks()
}

// Resolve extracts terms from prompt and returns the matching tasks.
func Resolve(r Reader, prompt string) ([]models.Task, error) {
	terms := extract.SearchTerms(extract.SearchTerm(prompt))
	if len(terms) == 0 {
		return nil, nil
	}
	corpus, err := Corpus(r, terms)
	if err != nil {
		return nil, err
	}
	return Match(corpus, terms, prompt), nil
}

func filter(in []models.Task, keep func(models.Task) bool) []models.Task {
	var out []models.Task
	for _, t := range in {
		if keep(t) {
			out = append(out, t)
		}
	}
	return out
}

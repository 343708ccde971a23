// Package status canonicalizes free-text status phrases into the four
// canonical task statuses.
package status

import (
	"sort"
	"strings"

	"github.com/starford/taskwise/internal/models"
)

// Table is an immutable variant -> status lookup.
type Table struct {
	byVariant map[string]models.Status
	// scannable variants sorted longest first, for substring scans.
	variants []string
}

// ambiguous variants are exact-match only; they are too common as ordinary
// words to be picked out of free text.
var ambiguous = map[string]bool{
	"new": true, "open": true, "td": true, "tod": true, "tbd": true, "don": true,
	"dne": true, "arch": true, "active": true, "working": true, "started": true,
	"finish": true, "fixed": true, "shipped": true, "retired": true,
	"shelved": true, "queued": true, "closed": true, "progress": true,
}

var synonyms = map[models.Status][]string{
	models.StatusTodo: {
		"todo", "to do", "to-do", "to_do", "todos", "pending", "open", "backlog",
		"not started", "not-started", "new", "queued", "tbd", "td", "tod", "toodo",
	},
	models.StatusInProgress: {
		"in_progress", "in progress", "in-progress", "inprogress", "in_prog",
		"in prog", "in-prog", "progress", "doing", "started", "wip", "working",
		"active", "ongoing", "underway", "under way",
		"in porgress", "in prgress", "in progres", "in progrss", "in progess",
		"in pogress", "in proress", "in prgrs", "n prgrs", "n progress",
		"inprogres", "in-porgress", "porgress", "prgress", "progres",
	},
	models.StatusDone: {
		"done", "complete", "completed", "finished", "finish", "closed",
		"resolved", "fixed", "shipped", "don", "dne", "compelte", "complet",
		"completd", "finsihed",
	},
	models.StatusArchived: {
		"archived", "archive", "archieved", "archvied", "archivd", "arhived",
		"archve", "arch", "shelved", "retired",
	},
}

// NewTable builds the lookup from the synonym lists.
func NewTable() *Table {
	t := &Table{byVariant: make(map[string]models.Status)}
	for st, vs := range synonyms {
		for _, v := range vs {
			t.byVariant[v] = st
		}
	}
	for v := range t.byVariant {
		if !ambiguous[v] {
			t.variants = append(t.variants, v)
		}
	}
	sort.Slice(t.variants, func(i, j int) bool {
		if len(t.variants[i]) != len(t.variants[j]) {
			return len(t.variants[i]) > len(t.variants[j])
		}
		return t.variants[i] < t.variants[j]
	})
	return t
}

var defaultTable = NewTable()

// Lookup returns the canonical status for an exact (already normalized) variant.
func (t *Table) Lookup(variant string) (models.Status, bool) {
	st, ok := t.byVariant[variant]
	return st, ok
}

// Variants returns the variants safe to scan for in free text, longest first.
func (t *Table) Variants() []string {
	out := make([]string, len(t.variants))
	copy(out, t.variants)
	return out
}

// Normalize maps a status phrase to its canonical status. It is idempotent:
// canonical names map to themselves.
func Normalize(s string) (models.Status, bool) {
	key := normalizeKey(s)
	if key == "" {
		return "", false
	}
	if st, ok := defaultTable.Lookup(key); ok {
		return st, true
	}
	// "in__progress", "IN - PROGRESS" and friends.
	spaced := strings.Join(strings.FieldsFunc(key, func(r rune) bool {
		return r == '_' || r == '-' || r == ' '
	}), " ")
	if st, ok := defaultTable.Lookup(spaced); ok {
		return st, true
	}
	if st, ok := defaultTable.Lookup(strings.ReplaceAll(spaced, " ", "")); ok {
		return st, true
	}
	return "", false
}

func normalizeKey(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	s = strings.Trim(s, ` "'.,!?;:()[]`+"`")
	return strings.Join(strings.Fields(s), " ")
}

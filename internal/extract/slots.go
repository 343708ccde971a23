package extract

import (
	"regexp"
	"strings"
	"time"

	"github.com/starford/taskwise/internal/models"
)

const datePhrase = `\d{4}-\d{2}-\d{2}|today|tomorrow|next week|(?:next\s+)?(?:monday|tuesday|wednesday|thursday|friday|saturday|sunday)`

var weekdays = map[string]time.Weekday{
	"sunday": time.Sunday, "monday": time.Monday, "tuesday": time.Tuesday,
	"wednesday": time.Wednesday, "thursday": time.Thursday, "friday": time.Friday,
	"saturday": time.Saturday,
}

var (
	doubleQuotedRe = regexp.MustCompile(`["“]([^"”]+)["”]`)
	singleQuotedRe = regexp.MustCompile(`(?:^|\s)['‘]([^'’]+)['’](?:\s|$|[.,!?])`)

	createLeadRe   = regexp.MustCompile(`(?i)^\s*(?:please\s+)?(?:can you\s+|could you\s+)?(?:create|add|make|new)\s+(?:me\s+)?(?:a\s+|an\s+)?(?:new\s+)?(?:task|todo|item)s?\b\s*(?:called|named|titled|to|for|:|-)?\s*`)
	createBareRe   = regexp.MustCompile(`(?i)^\s*(?:please\s+)?(?:create|add)\s+`)
	priorityRe     = regexp.MustCompile(`(?i)\b(high|medium|low)[\s-]+priority\b|\bpriority\s*(?:of|:|=|is|to)?\s*(high|medium|low)\b`)
	priorityCutRe  = regexp.MustCompile(`(?i)\s*,?\s*\b(?:with\s+|as\s+)?(?:a\s+)?(?:(?:high|medium|low)[\s-]+priority|priority\s*(?:of|:|=|is)?\s*(?:high|medium|low))\b`)
	dueRe          = regexp.MustCompile(`(?i)\b(?:due|deadline|by)\s+(?:on\s+|by\s+|date\s+)?(` + datePhrase + `)\b`)
	dueCutRe       = regexp.MustCompile(`(?i)\s*,?\s*\b(?:with\s+(?:a\s+)?)?(?:due|deadline|by)\s+(?:on\s+|by\s+|date\s+)?(?:` + datePhrase + `)\b`)
	notebookTailRe = regexp.MustCompile(`(?i)\s+(?:in|to|into|under)\s+(?:the\s+|my\s+)?\S+(?:\s+\S+)?\s+notebook\s*$`)
)

// Title returns the task title for a creation request: quoted text wins,
// otherwise the request with creation boilerplate, priority, due date and
// the trailing notebook phrase removed. Case is preserved.
func Title(prompt string, notebooks ...string) string {
	if m := doubleQuotedRe.FindStringSubmatch(prompt); m != nil {
		return strings.TrimSpace(m[1])
	}
	if m := singleQuotedRe.FindStringSubmatch(prompt); m != nil {
		return strings.TrimSpace(m[1])
	}
	t := priorityCutRe.ReplaceAllString(prompt, "")
	t = dueCutRe.ReplaceAllString(t, "")
	t = strings.TrimRight(strings.TrimSpace(t), ".!?,")
	t = notebookTailRe.ReplaceAllString(t, "")
	for _, name := range notebooks {
		if name == "" {
			continue
		}
		re := regexp.MustCompile(`(?i)\s+(?:in|to|into|under)\s+(?:the\s+|my\s+)?` + regexp.QuoteMeta(name) + `\s*$`)
		t = re.ReplaceAllString(t, "")
	}
	if lead := createLeadRe.FindString(t); lead != "" {
		t = t[len(lead):]
	} else if lead := createBareRe.FindString(t); lead != "" {
		t = t[len(lead):]
	}
	return strings.Trim(strings.TrimSpace(t), ".,:;-")
}

// Notebook returns the first notebook, in enumeration order, whose name
// appears in the prompt, or fallback when none does.
func Notebook(prompt string, notebooks []models.Notebook, fallback string) string {
	p := strings.ToLower(prompt)
	for _, nb := range notebooks {
		if nb.Name != "" && strings.Contains(p, strings.ToLower(nb.Name)) {
			return nb.Name
		}
	}
	return fallback
}

// Priority extracts "<level> priority" or "priority <level>" phrases.
func Priority(prompt string) (models.Priority, bool) {
	m := priorityRe.FindStringSubmatch(prompt)
	if m == nil {
		return models.PriorityNone, false
	}
	level := m[1]
	if level == "" {
		level = m[2]
	}
	return NormalizePriority(level)
}

// NormalizePriority maps loose priority spellings onto the canonical levels.
func NormalizePriority(s string) (models.Priority, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "h", "high", "urgent", "critical", "p0", "p1":
		return models.PriorityHigh, true
	case "m", "med", "medium", "normal", "p2":
		return models.PriorityMedium, true
	case "l", "low", "minor", "p3":
		return models.PriorityLow, true
	}
	return models.PriorityNone, false
}

// DueDate extracts a "due <date>" phrase relative to now.
func DueDate(prompt string, now time.Time) (*time.Time, bool) {
	m := dueRe.FindStringSubmatch(prompt)
	if m == nil {
		return nil, false
	}
	return ParseDate(m[1], now)
}

// ParseDate accepts YYYY-MM-DD, RFC3339, the words today, tomorrow and
// "next week", and weekday names ("friday", "next friday"), which mean the
// first such day after today. Dates are returned at midnight UTC.
func ParseDate(s string, now time.Time) (*time.Time, bool) {
	s = strings.ToLower(strings.TrimSpace(s))
	day := func(t time.Time) *time.Time {
		d := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
		return &d
	}
	switch s {
	case "":
		return nil, false
	case "today":
		return day(now), true
	case "tomorrow":
		return day(now.AddDate(0, 0, 1)), true
	case "next week":
		return day(now.AddDate(0, 0, 7)), true
	}
	if wd, ok := weekdays[strings.TrimSpace(strings.TrimPrefix(s, "next "))]; ok {
		ahead := (int(wd) - int(now.Weekday()) + 7) % 7
		if ahead == 0 {
			ahead = 7
		}
		return day(now.AddDate(0, 0, ahead)), true
	}
	if t, err := time.Parse("2006-01-02", s); err == nil {
		return &t, true
	}
	if t, err := time.Parse(time.RFC3339, strings.ToUpper(s)); err == nil {
		return day(t.UTC()), true
	}
	return nil, false
}

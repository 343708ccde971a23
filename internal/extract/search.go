// Package extract pulls search terms, task references and task-creation slots
// out of free-form requests.
package extract

import (
	"regexp"
	"strconv"
	"strings"
)

// Wildcard is the search term that matches every task in scope.
const Wildcard = "*"

// qualifiers narrow a quantifier: "all tasks related to x", "everything in work".
const qualifiers = `(?:related|about|with|containing|matching|in|from|for|that|which|named|called|tagged|under|within|inside|where|regarding)`

var (
	qualifiedAllRe = regexp.MustCompile(`\b(?:all|every)\s+(?:of\s+)?(?:the\s+|my\s+)?tasks?\b(\s+` + qualifiers + `\b)?`)
	moveAllRe      = regexp.MustCompile(`^(?:please\s+)?(?:move|mark|set|change|update)\s+(?:all|everything)\s+(?:to|into|as)\b`)
	everythingRe   = regexp.MustCompile(`\beverything\b(\s+` + qualifiers + `\b)?`)

	relatedRe  = regexp.MustCompile(`related to\s+(.+)$`)
	statusOfRe = regexp.MustCompile(`status of\s+(?:all\s+)?(?:the\s+)?(?:tasks?\s+)?(?:about\s+|for\s+|related to\s+|called\s+|named\s+)?(.+)$`)
	taskIDRe   = regexp.MustCompile(`\btask\s+(?:id\s*)?#?(\d+)\s+in\s+(?:the\s+)?(.+?)(?:\s+notebook)?(?:\s+(?:to|into|as)\s+.*)?$`)
	moveRe     = regexp.MustCompile(`\b(?:move|change|update|set)\s+(?:the\s+)?(?:status\s+of\s+)?(?:all\s+)?(?:the\s+|my\s+)?(?:tasks?\s+)?(?:about\s+|for\s+|called\s+|named\s+|titled\s+)?(.+)$`)
	markRe     = regexp.MustCompile(`\bmark\s+(?:all\s+)?(?:the\s+|my\s+)?(?:tasks?\s+)?(?:about\s+|for\s+|called\s+|named\s+)?(.+)$`)

	destinationRe = regexp.MustCompile(`^(.+)\s(?:to|into|as)\s+.*$`)
	connectorRe   = regexp.MustCompile(`\s+(?:and|or)\s+`)
)

// searchRules are tried in order; each returns the raw phrase naming the tasks.
var searchRules = []func(p string) (string, bool){
	func(p string) (string, bool) { return phraseBeforeDestination(relatedRe, p) },
	func(p string) (string, bool) { return phraseBeforeDestination(statusOfRe, p) },
	func(p string) (string, bool) {
		if m := taskIDRe.FindStringSubmatch(p); m != nil {
			return m[1], true
		}
		return "", false
	},
	func(p string) (string, bool) { return phraseBeforeDestination(moveRe, p) },
	func(p string) (string, bool) { return phraseBeforeDestination(markRe, p) },
}

// edgeStopWords are dropped from the start and end of a phrase only, so that
// interior words of a task title survive ("fix the bug").
var edgeStopWords = map[string]bool{
	"task": true, "tasks": true, "status": true, "statuses": true, "the": true,
	"my": true, "please": true, "move": true, "change": true, "update": true,
	"set": true, "mark": true, "put": true, "bump": true, "about": true,
	"regarding": true, "named": true, "called": true, "titled": true,
	"item": true, "items": true, "of": true, "all": true, "every": true,
}

// leadingQualifiers are dropped from the start of a phrase left over from a
// narrowed quantifier ("every task in the backlog", "everything about auth").
var leadingQualifiers = map[string]bool{
	"everything": true, "in": true, "from": true, "under": true, "within": true,
	"inside": true, "with": true, "for": true, "containing": true,
	"matching": true, "tagged": true,
}

// IsUniversal reports whether the prompt quantifies over every task
// ("all tasks", "every task", "move everything to done") without narrowing it.
func IsUniversal(prompt string) bool {
	p := strings.ToLower(strings.TrimSpace(prompt))
	if moveAllRe.MatchString(p) {
		return true
	}
	if m := qualifiedAllRe.FindStringSubmatch(p); m != nil {
		return m[1] == ""
	}
	if m := everythingRe.FindStringSubmatch(p); m != nil {
		return m[1] == ""
	}
	return false
}

// SearchTerm returns the cleaned phrase naming the tasks a request refers to,
// or Wildcard for universal requests.
func SearchTerm(prompt string) string {
	p := strings.ToLower(strings.TrimSpace(prompt))
	if p == "" {
		return ""
	}
	if IsUniversal(p) {
		return Wildcard
	}
	for _, rule := range searchRules {
		if phrase, ok := rule(p); ok {
			if cleaned := Clean(phrase); cleaned != "" {
				return cleaned
			}
		}
	}
	return Clean(stripVocabulary(p))
}

// SearchTerms splits a cleaned phrase on " and " / " or " into ordered atoms.
func SearchTerms(cleaned string) []string {
	cleaned = strings.TrimSpace(cleaned)
	switch strings.ToLower(cleaned) {
	case "", Wildcard, "all", "every", "everything":
		if cleaned == "" {
			return nil
		}
		return []string{Wildcard}
	}
	cleaned = strings.ReplaceAll(cleaned, ", ", " and ")
	var out []string
	for _, part := range connectorRe.Split(cleaned, -1) {
		if atom := Clean(part); atom != "" {
			out = append(out, atom)
		}
	}
	return out
}

// Clean removes edge stop words, "related to", quotes and stray punctuation
// and collapses whitespace. Hyphens inside names are kept.
func Clean(s string) string {
	s = strings.ToLower(s)
	s = strings.ReplaceAll(s, "related to", " ")
	s = strings.ReplaceAll(s, ", ", " and ")
	s = strings.Map(func(r rune) rune {
		switch r {
		case '"', '\'', '`', '“', '”', '‘', '’', '(', ')', '[', ']', ';', '!', '?':
			return ' '
		}
		return r
	}, s)
	words := strings.Fields(s)
	for i := range words {
		words[i] = strings.Trim(words[i], ".,:")
	}
	words = dropEmpty(words)
	for len(words) > 1 && (edgeStopWords[words[0]] || leadingQualifiers[words[0]]) {
		words = words[1:]
	}
	for len(words) > 1 && edgeStopWords[words[len(words)-1]] {
		words = words[:len(words)-1]
	}
	if len(words) == 1 && edgeStopWords[words[0]] && words[0] != "all" && words[0] != "every" {
		return ""
	}
	for len(words) > 0 && (words[0] == "and" || words[0] == "or") {
		words = words[1:]
	}
	for len(words) > 0 && (words[len(words)-1] == "and" || words[len(words)-1] == "or") {
		words = words[:len(words)-1]
	}
	return strings.Join(words, " ")
}

// TaskRef extracts "task ID N in NOTEBOOK" references.
func TaskRef(prompt string) (int64, string, bool) {
	m := taskIDRe.FindStringSubmatch(strings.ToLower(strings.TrimSpace(prompt)))
	if m == nil {
		return 0, "", false
	}
	id, err := strconv.ParseInt(m[1], 10, 64)
	if err != nil {
		return 0, "", false
	}
	return id, strings.TrimSpace(m[2]), true
}

func phraseBeforeDestination(re *regexp.Regexp, p string) (string, bool) {
	m := re.FindStringSubmatch(p)
	if m == nil {
		return "", false
	}
	phrase := m[1]
	if d := destinationRe.FindStringSubmatch(phrase); d != nil {
		phrase = d[1]
	}
	return phrase, strings.TrimSpace(phrase) != ""
}

var vocabulary = map[string]bool{
	"move": true, "change": true, "update": true, "set": true, "mark": true,
	"to": true, "into": true, "as": true, "status": true, "task": true,
	"tasks": true, "the": true, "my": true, "please": true, "of": true,
	"todo": true, "done": true, "archived": true, "archive": true,
	"in_progress": true, "progress": true, "complete": true, "completed": true,
	"pending": true, "in-progress": true,
}

func stripVocabulary(p string) string {
	var kept []string
	for _, w := range strings.Fields(p) {
		if !vocabulary[strings.Trim(w, ".,!?")] {
			kept = append(kept, w)
		}
	}
	// "in progress" leaves a dangling "in".
	if n := len(kept); n > 0 && kept[n-1] == "in" {
		kept = kept[:n-1]
	}
	return strings.Join(kept, " ")
}

func dropEmpty(in []string) []string {
	out := in[:0]
	for _, s := range in {
		if s != "" {
			out = append(out, s)
		}
	}
	return out
}

package status

import (
	"regexp"
	"strings"

	"github.com/starford/taskwise/internal/models"
)

// targetRule is one step of target-status extraction. Rules run in order and
// the first one that yields a status wins.
type targetRule struct {
	name  string
	apply func(prompt string) (models.Status, bool)
}

var (
	relatedToRe   = regexp.MustCompile(`related to .+\s(?:to|into|as)\s+(.+)$`)
	setStatusRe   = regexp.MustCompile(`set (?:the )?status of (?:all )?(?:the )?(?:tasks?|items?)\b.*\s(?:to|as)\s+(.+)$`)
	trailingToRe  = regexp.MustCompile(`^.*\s(?:to|into|as)\s+(.+?)[\s.!?]*$`)
	asAnywhereRe  = regexp.MustCompile(`\bas\s+([a-z_][a-z_\- ]*)`)
	progressRe    = regexp.MustCompile(`\b(?:in[\s_-]*)?p(?:ro|or|r|o)g(?:re|er|r|e)s{1,2}\b`)
	truncatedTail = regexp.MustCompile(`\s(?:to|into|as)\s+([a-z_\- ]+?)\s*(?:\.{2,}|…|[.,!?;:-])+\s*$`)
)

var targetRules = []targetRule{
	{"related-to", func(p string) (models.Status, bool) { return fromSubmatch(relatedToRe, p) }},
	{"set-status-of", func(p string) (models.Status, bool) { return fromSubmatch(setStatusRe, p) }},
	{"trailing-to", func(p string) (models.Status, bool) { return fromSubmatch(trailingToRe, p) }},
	{"as-anywhere", fromAsPhrase},
	{"variant-scan", scanVariants},
	{"fuzzy-progress", func(p string) (models.Status, bool) {
		if progressRe.MatchString(p) {
			return models.StatusInProgress, true
		}
		return "", false
	}},
	{"truncated-tail", fromTruncatedTail},
}

// ExtractTarget infers the status a prompt asks tasks to move to. It prefers
// a plausible guess over failure and reports false only when nothing in the
// text resembles a status.
func ExtractTarget(prompt string) (models.Status, bool) {
	p := strings.ToLower(strings.TrimSpace(prompt))
	if p == "" {
		return "", false
	}
	for _, r := range targetRules {
		if st, ok := r.apply(p); ok {
			return st, true
		}
	}
	return "", false
}

// ExtractExplicit is ExtractTarget restricted to phrases where the prompt
// names a destination ("to done", "as archived"), without free-text scans.
func ExtractExplicit(prompt string) (models.Status, bool) {
	p := strings.ToLower(strings.TrimSpace(prompt))
	for _, r := range targetRules[:4] {
		if st, ok := r.apply(p); ok {
			return st, true
		}
	}
	return "", false
}

func fromSubmatch(re *regexp.Regexp, p string) (models.Status, bool) {
	m := re.FindStringSubmatch(p)
	if m == nil {
		return "", false
	}
	return fromTail(m[1])
}

// fromTail normalizes a destination phrase, then its leading one to three words
// ("done now" -> done, "in progress please" -> in_progress).
func fromTail(tail string) (models.Status, bool) {
	if st, ok := Normalize(tail); ok {
		return st, true
	}
	words := strings.Fields(strings.Trim(tail, " .!?,;:"))
	for n := min(3, len(words)); n >= 1; n-- {
		if st, ok := Normalize(strings.Join(words[:n], " ")); ok {
			return st, true
		}
	}
	return "", false
}

func fromAsPhrase(p string) (models.Status, bool) {
	for _, m := range asAnywhereRe.FindAllStringSubmatch(p, -1) {
		if st, ok := fromTail(m[1]); ok {
			return st, true
		}
	}
	return "", false
}

func scanVariants(p string) (models.Status, bool) {
	for _, v := range defaultTable.variants {
		if containsWord(p, v) {
			st, _ := defaultTable.Lookup(v)
			return st, true
		}
	}
	return "", false
}

func fromTruncatedTail(p string) (models.Status, bool) {
	m := truncatedTail.FindStringSubmatch(p)
	if m == nil {
		return "", false
	}
	stub := strings.TrimSpace(m[1])
	if len(stub) < 2 {
		return "", false
	}
	var found models.Status
	for v, st := range defaultTable.byVariant {
		if !strings.HasPrefix(v, stub) {
			continue
		}
		if found != "" && found != st {
			return "", false
		}
		found = st
	}
	return found, found != ""
}

// containsWord reports whether w occurs in s delimited by non-word characters.
func containsWord(s, w string) bool {
	for off := 0; ; {
		i := strings.Index(s[off:], w)
		if i < 0 {
			return false
		}
		start := off + i
		end := start + len(w)
		if (start == 0 || !isWordByte(s[start-1])) && (end == len(s) || !isWordByte(s[end])) {
			return true
		}
		off = start + 1
	}
}

func isWordByte(b byte) bool {
	return b == '_' || b >= 'a' && b <= 'z' || b >= '0' && b <= '9'
}

// Package parser reads markdown task files: YAML frontmatter with optional
// notebook defaults, and a body that is either a checklist of tasks or the
// description of a single task.
package parser

import (
	"bytes"
	"fmt"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/starford/taskwise/internal/models"
)

var (
	checkboxRe = regexp.MustCompile(`^\s*[-*]\s+\[([ xX~/-])\]\s+(.+?)\s*$`)
	tagRe      = regexp.MustCompile(`(?:^|\s)#([A-Za-z][A-Za-z0-9_/-]*)`)
)

// frontmatter is the recognised YAML header of a task file.
type frontmatter struct {
	Notebook    string   `yaml:"notebook"`
	Title       string   `yaml:"title"`
	Status      string   `yaml:"status"`
	Priority    string   `yaml:"priority"`
	Due         string   `yaml:"due"`
	DueDate     string   `yaml:"due_date"`
	Tags        []string `yaml:"tags"`
	Description string   `yaml:"description"`
}

// Parse converts a markdown task file into an import document. Checklist
// items ("- [ ] title", "- [x] title") each become a task and inherit the
// frontmatter priority, due date and tags; without a checklist the file is a
// single task titled by frontmatter or its first H1 heading.
func Parse(data []byte) (*models.ImportDocument, error) {
	fm, body, err := splitFrontmatter(data)
	if err != nil {
		return nil, err
	}
	due := fm.DueDate
	if due == "" {
		due = fm.Due
	}
	doc := &models.ImportDocument{Notebook: strings.TrimSpace(fm.Notebook)}

	for _, line := range strings.Split(body, "\n") {
		m := checkboxRe.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		title, inline := stripTags(m[2])
		doc.Tasks = append(doc.Tasks, models.ImportTask{
			Title:    title,
			Status:   checkboxStatus(m[1]),
			Priority: fm.Priority,
			DueDate:  due,
			Tags:     mergeTags(fm.Tags, inline),
		})
	}
	if len(doc.Tasks) > 0 {
		return doc, nil
	}

	title := deriveTitle(fm, body)
	if title == "" {
		return nil, fmt.Errorf("parser: task file has no title and no checklist")
	}
	description := strings.TrimSpace(fm.Description)
	if description == "" {
		description = strings.TrimSpace(dropHeading(body))
	}
	doc.Tasks = []models.ImportTask{{
		Title:       title,
		Description: description,
		Status:      fm.Status,
		Priority:    fm.Priority,
		DueDate:     due,
		Tags:        mergeTags(fm.Tags, extractTags(body)),
	}}
	return doc, nil
}

// splitFrontmatter separates YAML frontmatter (between leading --- lines)
// from the body. Content without frontmatter is all body; malformed YAML is
// an error because the file would otherwise import into the wrong notebook.
func splitFrontmatter(data []byte) (frontmatter, string, error) {
	const delim = "---"
	var fm frontmatter
	trimmed := bytes.TrimLeft(data, "\n\r")
	if !bytes.HasPrefix(trimmed, []byte(delim)) {
		return fm, string(data), nil
	}
	rest := trimmed[len(delim):]
	idx := bytes.Index(rest, []byte("\n"+delim))
	if idx < 0 {
		return fm, string(data), nil
	}
	body := strings.TrimLeft(string(rest[idx+1+len(delim):]), "\n\r")
	if err := yaml.Unmarshal(rest[:idx], &fm); err != nil {
		return fm, "", fmt.Errorf("parser: frontmatter: %w", err)
	}
	return fm, body, nil
}

func checkboxStatus(mark string) string {
	switch mark {
	case "x", "X":
		return string(models.StatusDone)
	case "~", "/":
		return string(models.StatusInProgress)
	case "-":
		return string(models.StatusArchived)
	}
	return string(models.StatusTodo)
}

// stripTags removes inline #tags from a checklist title and returns them.
func stripTags(s string) (string, []string) {
	tags := extractTags(s)
	if len(tags) == 0 {
		return s, nil
	}
	return strings.Join(strings.Fields(tagRe.ReplaceAllString(s, " ")), " "), tags
}

func extractTags(s string) []string {
	var out []string
	for _, m := range tagRe.FindAllStringSubmatch(s, -1) {
		out = append(out, m[1])
	}
	return out
}

// mergeTags concatenates frontmatter and inline tags, dropping duplicates.
func mergeTags(a, b []string) []string {
	seen := make(map[string]struct{}, len(a)+len(b))
	var out []string
	for _, t := range append(append([]string{}, a...), b...) {
		t = strings.TrimSpace(t)
		if t == "" {
			continue
		}
		if _, dup := seen[t]; dup {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	return out
}

// deriveTitle returns the frontmatter title, else the first H1 heading.
func deriveTitle(fm frontmatter, body string) string {
	if t := strings.TrimSpace(fm.Title); t != "" {
		return t
	}
	for _, line := range strings.Split(body, "\n") {
		if trimmed := strings.TrimSpace(line); strings.HasPrefix(trimmed, "# ") {
			return strings.TrimSpace(trimmed[2:])
		}
	}
	return ""
}

func dropHeading(body string) string {
	lines := strings.Split(body, "\n")
	for i, line := range lines {
		if strings.HasPrefix(strings.TrimSpace(line), "# ") {
			return strings.Join(append(lines[:i:i], lines[i+1:]...), "\n")
		}
	}
	return body
}

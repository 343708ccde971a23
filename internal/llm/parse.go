package llm

import (
	"encoding/json"
	"regexp"
	"strings"

	"github.com/tailscale/hujson"

	"github.com/starford/taskwise/internal/command"
)

// DefaultCommand runs when nothing executable can be recovered from a reply.
const DefaultCommand = "task:list"

const (
	defaultExplanation  = "Executed the interpreted commands."
	fallbackExplanation = "Could not understand the model reply, listing tasks instead."
)

// ParsedResponse is the executable part of a model reply.
type ParsedResponse struct {
	Commands    []string          `json:"commands"`
	Actions     []json.RawMessage `json:"actions,omitempty"`
	Explanation string            `json:"explanation"`
}

var (
	backtickSpanRe = regexp.MustCompile("`([^`\n]+)`")
	listMarkerRe   = regexp.MustCompile(`^(?:[-*+]|\d+[.)])\s+`)
)

// ParseResponse extracts commands from model output. It accepts strict JSON,
// JSON with comments or trailing commas, JSON missing its braces or wrapped
// in prose, and finally bare command lines. It never fails: when nothing is
// recoverable the result holds DefaultCommand.
func ParseResponse(content string) ParsedResponse {
	if resp, ok := parseJSON(stripFences(content)); ok {
		return resp
	}
	return scanCommands(content)
}

func stripFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[i+1:]
	} else {
		s = strings.TrimPrefix(s, "```")
	}
	s = strings.TrimSpace(s)
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}

func parseJSON(s string) (ParsedResponse, bool) {
	candidates := []string{s}
	if !strings.HasPrefix(s, "{") {
		candidates = append(candidates, "{"+s+"}")
	}
	if i, j := strings.IndexByte(s, '{'), strings.LastIndexByte(s, '}'); i >= 0 && j > i {
		candidates = append(candidates, s[i:j+1])
	}

	for _, c := range candidates {
		fields, ok := decodeObject(c)
		if !ok || !hasAnyKey(fields, "commands", "actions", "explanation") {
			continue
		}
		return fromFields(fields), true
	}
	return ParsedResponse{}, false
}

func decodeObject(s string) (map[string]json.RawMessage, bool) {
	std, err := hujson.Standardize([]byte(s))
	if err != nil {
		return nil, false
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(std, &fields); err != nil || fields == nil {
		return nil, false
	}
	return fields, true
}

// fromFields backfills missing or mistyped keys. Objects found in
// "commands" are treated as structured actions.
func fromFields(fields map[string]json.RawMessage) ParsedResponse {
	resp := ParsedResponse{Commands: []string{}}

	var items []json.RawMessage
	if raw, ok := fields["commands"]; ok {
		if err := json.Unmarshal(raw, &items); err != nil {
			items = []json.RawMessage{raw}
		}
	}
	for _, item := range items {
		var line string
		if json.Unmarshal(item, &line) == nil {
			if line = strings.TrimSpace(line); line != "" {
				resp.Commands = append(resp.Commands, line)
			}
			continue
		}
		if isObject(item) {
			resp.Actions = append(resp.Actions, item)
		}
	}

	var actions []json.RawMessage
	if raw, ok := fields["actions"]; ok && json.Unmarshal(raw, &actions) == nil {
		for _, a := range actions {
			if isObject(a) {
				resp.Actions = append(resp.Actions, a)
			}
		}
	}

	var explanation string
	if raw, ok := fields["explanation"]; ok && json.Unmarshal(raw, &explanation) == nil {
		resp.Explanation = strings.TrimSpace(explanation)
	}
	if resp.Explanation == "" {
		resp.Explanation = defaultExplanation
	}
	return resp
}

func hasAnyKey(fields map[string]json.RawMessage, keys ...string) bool {
	for _, k := range keys {
		if _, ok := fields[k]; ok {
			return true
		}
	}
	return false
}

func isObject(raw json.RawMessage) bool {
	var obj map[string]json.RawMessage
	return json.Unmarshal(raw, &obj) == nil && obj != nil
}

// scanCommands recovers grammar lines from fenced blocks, back-quoted spans
// and bare lines. Remaining prose outside fences, with code spans unwrapped,
// becomes the explanation.
func scanCommands(content string) ParsedResponse {
	resp := ParsedResponse{Commands: []string{}}
	seen := make(map[string]bool)
	add := func(line string) {
		line = strings.TrimSpace(strings.Trim(strings.TrimSpace(line), "`"))
		line = strings.TrimPrefix(line, "$ ")
		if line != "" && !seen[line] {
			seen[line] = true
			resp.Commands = append(resp.Commands, line)
		}
	}

	var prose []string
	inFence := false
	for _, raw := range strings.Split(content, "\n") {
		line := strings.TrimSpace(raw)
		if strings.HasPrefix(line, "```") {
			inFence = !inFence
			continue
		}
		candidate := strings.TrimPrefix(listMarkerRe.ReplaceAllString(line, ""), "$ ")
		if command.IsCommand(strings.Trim(candidate, "`")) {
			add(candidate)
			continue
		}
		if inFence || line == "" {
			continue
		}
		rest := backtickSpanRe.ReplaceAllStringFunc(line, func(span string) string {
			inner := strings.Trim(span, "`")
			if command.IsCommand(inner) {
				add(inner)
				return ""
			}
			return inner
		})
		if rest = strings.Join(strings.Fields(rest), " "); rest != "" {
			prose = append(prose, rest)
		}
	}

	resp.Explanation = strings.Join(prose, " ")
	if len(resp.Commands) == 0 {
		resp.Commands = []string{DefaultCommand}
		if resp.Explanation == "" {
			resp.Explanation = fallbackExplanation
		}
	}
	if resp.Explanation == "" {
		resp.Explanation = defaultExplanation
	}
	return resp
}

package extract

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/jwoolab/depositwatch/internal/model"
)

// field selects which notification text a token comes from.
type field int

const (
	fromTitle field = iota
	fromBody
)

// splitMode selects how the text is tokenized.
type splitMode int

const (
	// bySpace splits the text on runs of whitespace and picks a token
	// by position.
	bySpace splitMode = iota

	// byLine splits the text on newlines and picks a trimmed line by
	// position.
	byLine

	// byPattern applies a regexp and takes the first capture group.
	byPattern
)

// tokenRef locates one token within a notification.
type tokenRef struct {
	field   field
	mode    splitMode
	index   int
	pattern *regexp.Regexp
}

// rule recovers the amount and name tokens for one source app.
type rule struct {
	amount tokenRef
	name   tokenRef
}

// Extract parses one notification into an observation using the rule
// registered for sourceApp. It is total: an unknown source app or text
// that does not fit the rule yields a zero observation, never an error.
// It runs inside the live stream loop, so it must not panic on any input.
func Extract(sourceApp, title, body string) model.Observation {
	r, ok := rules[sourceApp]
	if !ok {
		return model.Observation{}
	}

	return model.Observation{
		Amount:    parseAmount(r.amount.extract(title, body)),
		PayerName: strings.TrimSpace(r.name.extract(title, body)),
	}
}

// Supported returns whether sourceApp has a registered extraction rule.
func Supported(sourceApp string) bool {
	_, ok := rules[sourceApp]
	return ok
}

// extract pulls the referenced token out of the notification text.
// Returns "" when the text does not have the expected shape.
func (t tokenRef) extract(title, body string) string {
	text := title
	if t.field == fromBody {
		text = body
	}

	switch t.mode {
	case bySpace:
		tokens := strings.Fields(text)
		if t.index < 0 || t.index >= len(tokens) {
			return ""
		}
		return tokens[t.index]

	case byLine:
		lines := strings.Split(text, "\n")
		if t.index < 0 || t.index >= len(lines) {
			return ""
		}
		return strings.TrimSpace(lines[t.index])

	case byPattern:
		m := t.pattern.FindStringSubmatch(text)
		if len(m) < 2 {
			return ""
		}
		return m[1]
	}

	return ""
}

// parseAmount cleans a raw amount token (thousands separators, the 원
// currency suffix) and converts it to a whole-won integer. Anything
// that is not a clean positive integer after cleaning yields 0.
func parseAmount(token string) int {
	s := strings.TrimSpace(token)
	s = strings.TrimSuffix(s, "원")
	s = strings.ReplaceAll(s, ",", "")
	if s == "" {
		return 0
	}

	n, err := strconv.Atoi(s)
	if err != nil || n < 0 {
		return 0
	}
	return n
}

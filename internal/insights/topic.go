package insights

import (
	"regexp"
	"strings"
)

var titlePrefix = regexp.MustCompile(`(?i)^(quiz|assignment|exam)\s+\d+\s*:`)

// ExtractTopicFromTitle strips a leading "Quiz 3:" style prefix and
// lower-cases the rest. It reports false when nothing is left.
func ExtractTopicFromTitle(title string) (string, bool) {
	topic := strings.TrimSpace(titlePrefix.ReplaceAllString(strings.TrimSpace(title), ""))
	if topic == "" {
		return "", false
	}
	return strings.ToLower(topic), true
}

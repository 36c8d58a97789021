package prompt

import (
	"regexp"
	"strings"
)

var fencePattern = regexp.MustCompile("(?s)```(?:json|JSON)?\\s*(.*?)```")

// ExtractJSON returns the JSON object embedded in a model reply. Models
// sometimes wrap the object in a code fence or add a sentence around it even
// when asked not to.
func ExtractJSON(content string) (string, bool) {
	s := strings.TrimSpace(content)
	if m := fencePattern.FindStringSubmatch(s); m != nil {
		s = strings.TrimSpace(m[1])
	}
	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start < 0 || end <= start {
		return "", false
	}
	return s[start : end+1], true
}

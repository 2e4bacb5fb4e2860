package shell

import "strings"

// MissingLines returns the lines of want that do not occur verbatim as a
// line of content, in order and without repeats. Blank lines are ignored.
// A trailing carriage return on a content line is not part of the line.
func MissingLines(content string, want []string) []string {
	have := make(map[string]bool)
	for _, line := range strings.Split(content, "\n") {
		have[strings.TrimSuffix(line, "\r")] = true
	}

	var missing []string
	for _, line := range want {
		if strings.TrimSpace(line) == "" || have[line] {
			continue
		}
		have[line] = true
		missing = append(missing, line)
	}
	return missing
}

// AppendMissingLines appends every line of want missing from content and
// returns the result. Content that already holds every line is returned
// unchanged, so applying it twice equals applying it once.
func AppendMissingLines(content string, want []string) string {
	missing := MissingLines(content, want)
	if len(missing) == 0 {
		return content
	}

	var b strings.Builder
	b.WriteString(content)
	if content != "" && !strings.HasSuffix(content, "\n") {
		b.WriteByte('\n')
	}
	for _, line := range missing {
		b.WriteString(line)
		b.WriteByte('\n')
	}
	return b.String()
}

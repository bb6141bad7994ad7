package blocklist

import (
	"bytes"
	"strings"
)

// Parse splits a newline-delimited list into domains. Each line is one
// candidate: a single trailing '\r' is dropped so CRLF lists behave like LF
// lists, empty lines are skipped, and tokens are lowercased. No other
// trimming happens. Duplicates are removed keeping first-seen order.
//
// Parse returns ErrEmptyList when nothing usable remains.
func Parse(body []byte) ([]string, error) {
	lines := bytes.Split(body, []byte{'\n'})

	seen := make(map[string]struct{}, len(lines))
	out := make([]string, 0, len(lines))

	for _, line := range lines {
		line = bytes.TrimSuffix(line, []byte{'\r'})
		if len(line) == 0 {
			continue
		}
		name := strings.ToLower(string(line))
		if _, dup := seen[name]; dup {
			continue
		}
		seen[name] = struct{}{}
		out = append(out, name)
	}

	if len(out) == 0 {
		return nil, ErrEmptyList
	}
	return out, nil
}

package progress

import (
	"bytes"
	"errors"
)

const delimiter = "---"

// ErrInvalidHeader marks a record whose header block is missing or malformed.
var ErrInvalidHeader = errors.New("invalid progress header")

// SplitFrontmatter separates a leading --- delimited header from the body.
// ok is false when the content has no complete header block, in which case
// body is the full content.
func SplitFrontmatter(data []byte) (header, body []byte, ok bool) {
	data = bytes.TrimPrefix(data, []byte("\xef\xbb\xbf"))
	first, rest, found := cutLine(data)
	if !found || !isDelimiter(first) {
		return nil, data, false
	}
	remaining := rest
	for len(remaining) > 0 {
		line, next, more := cutLine(remaining)
		if isDelimiter(line) {
			consumed := len(rest) - len(remaining)
			return rest[:consumed], next, true
		}
		if !more {
			break
		}
		remaining = next
	}
	return nil, data, false
}

// StripFrontmatter returns the body of content with any header block removed.
func StripFrontmatter(data []byte) string {
	_, body, _ := SplitFrontmatter(data)
	return string(body)
}

func cutLine(data []byte) (line, rest []byte, found bool) {
	idx := bytes.IndexByte(data, '\n')
	if idx < 0 {
		return data, nil, false
	}
	return data[:idx], data[idx+1:], true
}

func isDelimiter(line []byte) bool {
	return string(bytes.TrimRight(line, " \t\r")) == delimiter
}

package progress

import (
	"bytes"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Header field names.
const (
	FieldCompletion     = "completion"
	FieldStatus         = "status"
	FieldLastSync       = "last_sync"
	FieldLastCommentURL = "last_comment_url"
	FieldIssueState     = "issue_state"
	FieldCompletedAt    = "completed_at"
)

// StatusCompleted is written when a completion sync succeeds.
const StatusCompleted = "completed"

// Record is a parsed Progress Record. Body holds the prose after the header
// exactly as it appeared on disk.
type Record struct {
	header *yaml.Node
	Body   string
}

// Load reads and parses the record at path.
func Load(path string) (*Record, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	rec, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return rec, nil
}

// LoadValid is Load that also rejects records whose known fields hold
// malformed values. Callers that are about to cause side effects use it.
func LoadValid(path string) (*Record, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if err := Validate(data); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return Parse(data)
}

// Parse decodes a record. The content must begin with a header block whose
// YAML is a mapping (an empty block is allowed).
func Parse(data []byte) (*Record, error) {
	header, body, ok := SplitFrontmatter(data)
	if !ok {
		return nil, fmt.Errorf("%w: missing --- delimited header block", ErrInvalidHeader)
	}
	mapping := &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
	if len(bytes.TrimSpace(header)) > 0 {
		var doc yaml.Node
		if err := yaml.Unmarshal(header, &doc); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidHeader, err)
		}
		switch {
		case doc.Kind == 0:
			// comment-only header
		case doc.Kind == yaml.DocumentNode && len(doc.Content) == 1 && doc.Content[0].Kind == yaml.MappingNode:
			mapping = doc.Content[0]
		default:
			return nil, fmt.Errorf("%w: header is not a key/value mapping", ErrInvalidHeader)
		}
	}
	if err := checkKeys(mapping); err != nil {
		return nil, err
	}
	return &Record{header: mapping, Body: string(body)}, nil
}

func checkKeys(mapping *yaml.Node) error {
	seen := make(map[string]struct{}, len(mapping.Content)/2)
	for i := 0; i+1 < len(mapping.Content); i += 2 {
		key := mapping.Content[i]
		if key.Kind != yaml.ScalarNode {
			return fmt.Errorf("%w: non-scalar key at line %d", ErrInvalidHeader, key.Line)
		}
		if _, dup := seen[key.Value]; dup {
			return fmt.Errorf("%w: duplicate key %q", ErrInvalidHeader, key.Value)
		}
		seen[key.Value] = struct{}{}
	}
	return nil
}

// Get returns the scalar value of a header field. Null and empty values
// report as absent.
func (r *Record) Get(key string) (string, bool) {
	node := r.lookup(key)
	if node == nil || node.Kind != yaml.ScalarNode {
		return "", false
	}
	value := strings.TrimSpace(node.Value)
	if node.Tag == "!!null" || value == "" || value == "~" || value == "null" {
		return "", false
	}
	return value, true
}

// Set writes a plain scalar header field, appending it when absent.
func (r *Record) Set(key, value string) {
	if node := r.lookup(key); node != nil {
		*node = yaml.Node{Kind: yaml.ScalarNode, Value: value}
		return
	}
	r.header.Content = append(r.header.Content,
		&yaml.Node{Kind: yaml.ScalarNode, Value: key},
		&yaml.Node{Kind: yaml.ScalarNode, Value: value},
	)
}

// SetTime writes a timestamp field in the canonical RFC3339 UTC form.
func (r *Record) SetTime(key string, ts time.Time) {
	r.Set(key, FormatTime(ts))
}

func (r *Record) lookup(key string) *yaml.Node {
	for i := 0; i+1 < len(r.header.Content); i += 2 {
		if r.header.Content[i].Value == key {
			return r.header.Content[i+1]
		}
	}
	return nil
}

// Keys lists header field names in file order.
func (r *Record) Keys() []string {
	keys := make([]string, 0, len(r.header.Content)/2)
	for i := 0; i+1 < len(r.header.Content); i += 2 {
		keys = append(keys, r.header.Content[i].Value)
	}
	return keys
}

// Completion returns the completion percentage. Both 40 and "40%" parse.
func (r *Record) Completion() (int, bool, error) {
	raw, ok := r.Get(FieldCompletion)
	if !ok {
		return 0, false, nil
	}
	value, err := ParseCompletion(raw)
	if err != nil {
		return 0, false, err
	}
	return value, true, nil
}

// SetCompletion writes the percentage, keeping the percent-string form when
// the record already used it.
func (r *Record) SetCompletion(value int) {
	if raw, ok := r.Get(FieldCompletion); ok && strings.HasSuffix(raw, "%") {
		r.Set(FieldCompletion, strconv.Itoa(value)+"%")
		return
	}
	r.Set(FieldCompletion, strconv.Itoa(value))
}

// Status returns the free-text status field.
func (r *Record) Status() string {
	value, _ := r.Get(FieldStatus)
	return value
}

// IssueState returns the mirrored remote state (open/closed).
func (r *Record) IssueState() string {
	value, _ := r.Get(FieldIssueState)
	return value
}

// LastCommentURL returns the URL of the last posted comment.
func (r *Record) LastCommentURL() string {
	value, _ := r.Get(FieldLastCommentURL)
	return value
}

// LastSync returns the last successful sync instant.
func (r *Record) LastSync() (time.Time, bool, error) {
	return r.timeField(FieldLastSync)
}

// CompletedAt returns the completion stamp.
func (r *Record) CompletedAt() (time.Time, bool, error) {
	return r.timeField(FieldCompletedAt)
}

func (r *Record) timeField(key string) (time.Time, bool, error) {
	raw, ok := r.Get(key)
	if !ok {
		return time.Time{}, false, nil
	}
	ts, err := ParseTime(raw)
	if err != nil {
		return time.Time{}, false, fmt.Errorf("%s: %w", key, err)
	}
	return ts, true, nil
}

// Render encodes the record back to bytes: header block then body.
func (r *Record) Render() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteString(delimiter + "\n")
	if len(r.header.Content) > 0 {
		enc := yaml.NewEncoder(&buf)
		enc.SetIndent(2)
		if err := enc.Encode(r.header); err != nil {
			return nil, fmt.Errorf("encode header: %w", err)
		}
		if err := enc.Close(); err != nil {
			return nil, fmt.Errorf("encode header: %w", err)
		}
	}
	buf.WriteString(delimiter + "\n")
	buf.WriteString(r.Body)
	return buf.Bytes(), nil
}

// Validate reports whether data is a structurally valid record: a parseable
// header mapping whose known fields hold well-formed values.
func Validate(data []byte) error {
	rec, err := Parse(data)
	if err != nil {
		return err
	}
	if _, _, err := rec.Completion(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidHeader, err)
	}
	if _, _, err := rec.LastSync(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidHeader, err)
	}
	if _, _, err := rec.CompletedAt(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidHeader, err)
	}
	return nil
}

// ParseCompletion parses a 0-100 percentage with an optional % suffix.
func ParseCompletion(raw string) (int, error) {
	trimmed := strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(raw), "%"))
	value, err := strconv.Atoi(trimmed)
	if err != nil {
		return 0, fmt.Errorf("completion %q is not a number", raw)
	}
	if value < 0 || value > 100 {
		return 0, fmt.Errorf("completion %d outside 0-100", value)
	}
	return value, nil
}

// FormatTime renders ts in the canonical header form.
func FormatTime(ts time.Time) string {
	return ts.UTC().Truncate(time.Second).Format(time.RFC3339)
}

// ParseTime accepts RFC3339 timestamps, with or without fractional seconds.
func ParseTime(raw string) (time.Time, error) {
	ts, err := time.Parse(time.RFC3339Nano, strings.TrimSpace(raw))
	if err != nil {
		return time.Time{}, fmt.Errorf("timestamp %q is not RFC3339", raw)
	}
	return ts, nil
}

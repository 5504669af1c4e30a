package logging

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"
)

const (
	consoleTimeLayout = "2006-01-02 15:04:05"
	maxInfoValueLen   = 160
)

// field is one flattened attribute; group names are folded into the key.
type field struct {
	key   string
	value slog.Value
}

// consoleHandler renders one header line per record followed by an indented
// key=value line. Run identity (component, epic, issue, stage) moves into the
// header; noisy keys only show at debug level.
type consoleHandler struct {
	mu     *sync.Mutex
	out    io.Writer
	level  slog.Leveler
	source bool
	prefix string
	preset []field
}

func newConsoleHandler(w io.Writer, level slog.Leveler, source bool) *consoleHandler {
	return &consoleHandler{mu: &sync.Mutex{}, out: w, level: level, source: source}
}

func (h *consoleHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level.Level()
}

func (h *consoleHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	next := *h
	next.preset = appendFields(append([]field(nil), h.preset...), h.prefix, attrs)
	return &next
}

func (h *consoleHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	next := *h
	next.prefix = h.prefix + name + "."
	return &next
}

func (h *consoleHandler) Handle(_ context.Context, record slog.Record) error {
	fields := append([]field(nil), h.preset...)
	record.Attrs(func(attr slog.Attr) bool {
		fields = appendFields(fields, h.prefix, []slog.Attr{attr})
		return true
	})
	fields = lastWins(fields)

	var component, epic, issue, stage string
	rest := fields[:0]
	for _, f := range fields {
		switch f.key {
		case FieldComponent:
			component = f.value.String()
		case FieldEpic:
			epic = f.value.String()
		case FieldIssue:
			issue = f.value.String()
		case FieldStage:
			stage = f.value.String()
		default:
			rest = append(rest, f)
		}
	}

	ts := record.Time
	if ts.IsZero() {
		ts = time.Now()
	}
	var b strings.Builder
	b.WriteString(ts.Local().Format(consoleTimeLayout))
	fmt.Fprintf(&b, " %-5s", record.Level.String())
	if component != "" {
		b.WriteString(" ")
		b.WriteString(component)
	}
	if subject := runSubject(epic, issue, stage); subject != "" {
		b.WriteString(" ")
		b.WriteString(subject)
	}
	b.WriteString(" » ")
	if msg := strings.TrimSpace(record.Message); msg != "" {
		b.WriteString(msg)
	} else {
		b.WriteString("(no message)")
	}
	if src := record.Source(); h.source && src != nil && src.File != "" {
		fmt.Fprintf(&b, " (%s:%d)", filepath.Base(src.File), src.Line)
	}
	b.WriteByte('\n')

	shown, hidden := visibleFields(rest, record.Level < slog.LevelInfo)
	if len(shown) > 0 || hidden > 0 {
		b.WriteString("   ")
		for _, f := range shown {
			b.WriteByte(' ')
			b.WriteString(f)
		}
		if hidden > 0 {
			fmt.Fprintf(&b, " +%d hidden", hidden)
		}
		b.WriteByte('\n')
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	_, err := io.WriteString(h.out, b.String())
	return err
}

// runSubject renders "auth-epic #42 (gather)", omitting absent parts.
func runSubject(epic, issue, stage string) string {
	parts := make([]string, 0, 3)
	if epic = strings.TrimSpace(epic); epic != "" {
		parts = append(parts, epic)
	}
	if issue = strings.TrimSpace(issue); issue != "" {
		parts = append(parts, "#"+issue)
	}
	if stage = strings.TrimSpace(stage); stage != "" {
		parts = append(parts, "("+stage+")")
	}
	return strings.Join(parts, " ")
}

func appendFields(dst []field, prefix string, attrs []slog.Attr) []field {
	for _, attr := range attrs {
		if attr.Equal(slog.Attr{}) {
			continue
		}
		value := attr.Value.Resolve()
		if value.Kind() == slog.KindGroup {
			nested := prefix
			if attr.Key != "" {
				nested += attr.Key + "."
			}
			dst = appendFields(dst, nested, value.Group())
			continue
		}
		key := prefix + attr.Key
		if attr.Key == "" {
			key = strings.TrimSuffix(prefix, ".")
		}
		if key == "" {
			continue
		}
		dst = append(dst, field{key: key, value: value})
	}
	return dst
}

// lastWins keeps the first position of each key with its latest value.
func lastWins(fields []field) []field {
	index := make(map[string]int, len(fields))
	out := make([]field, 0, len(fields))
	for _, f := range fields {
		if i, ok := index[f.key]; ok {
			out[i].value = f.value
			continue
		}
		index[f.key] = len(out)
		out = append(out, f)
	}
	return out
}

// Leading keys, in display order. Everything else follows in record order.
var consoleKeyRank = map[string]int{
	FieldEventType: 1,
	"status":       2,
	"completion":   3,
	"comment_url":  4,
	"comment_size": 5,
	"truncated":    6,
	"error":        7,
	FieldErrorHint: 8,
	FieldImpact:    9,
}

var consoleLabels = map[string]string{
	FieldEventType: "event",
	FieldErrorHint: "hint",
	"comment_url":  "comment",
	"comment_size": "size",
}

// visibleFields formats fields as key=value pairs and counts the ones withheld
// below debug level.
func visibleFields(fields []field, debug bool) ([]string, int) {
	sorted := append([]field(nil), fields...)
	sort.SliceStable(sorted, func(i, j int) bool {
		return rankOf(sorted[i].key) < rankOf(sorted[j].key)
	})

	shown := make([]string, 0, len(sorted))
	hidden := 0
	for _, f := range sorted {
		value := consoleValue(f.value)
		if !debug && (debugOnly(f.key) || tooLong(f.key, value)) {
			hidden++
			continue
		}
		label := f.key
		if alias, ok := consoleLabels[f.key]; ok {
			label = alias
		}
		shown = append(shown, label+"="+value)
	}
	return shown, hidden
}

func rankOf(key string) int {
	if rank, ok := consoleKeyRank[key]; ok {
		return rank
	}
	return len(consoleKeyRank) + 1
}

func debugOnly(key string) bool {
	switch key {
	case FieldRunID, "args", "stdout", "stderr":
		return true
	}
	return strings.HasSuffix(key, "_raw")
}

func tooLong(key, value string) bool {
	switch key {
	case "error", FieldErrorHint, FieldImpact:
		return false
	}
	return len(value) > maxInfoValueLen
}

func consoleValue(v slog.Value) string {
	switch v.Kind() {
	case slog.KindBool:
		if v.Bool() {
			return "yes"
		}
		return "no"
	case slog.KindTime:
		return v.Time().Local().Format(consoleTimeLayout)
	case slog.KindDuration:
		return v.Duration().Round(time.Millisecond).String()
	case slog.KindAny:
		if err, ok := v.Any().(error); ok {
			return quoteSpaced(err.Error())
		}
	}
	return quoteSpaced(v.String())
}

func quoteSpaced(s string) string {
	if s == "" || strings.ContainsAny(s, " \t\n\"=") {
		return strconv.Quote(s)
	}
	return s
}

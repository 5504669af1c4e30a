package prompt

import (
	"bytes"
	"os"
	"strings"
	"testing"
)

func TestTerminalConfirm(t *testing.T) {
	tests := []struct {
		input string
		want  bool
	}{
		{"y\n", true},
		{"YES\n", true},
		{"n\n", false},
		{"\n", false},
		{"", false},
		{"sure\n", false},
	}
	for _, tt := range tests {
		var out bytes.Buffer
		term := &Terminal{In: strings.NewReader(tt.input), Out: &out}
		got, err := term.Confirm("Continue anyway?")
		if err != nil {
			t.Fatalf("Confirm(%q) error: %v", tt.input, err)
		}
		if got != tt.want {
			t.Fatalf("Confirm(%q) = %v, want %v", tt.input, got, tt.want)
		}
		if out.String() != "Continue anyway? [y/N]: " {
			t.Fatalf("unexpected prompt %q", out.String())
		}
	}
}

func TestIsInteractive(t *testing.T) {
	if IsInteractive(strings.NewReader("y")) {
		t.Fatal("expected non-file reader to be non-interactive")
	}
	f, err := os.CreateTemp(t.TempDir(), "stdin")
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	if IsInteractive(f) {
		t.Fatal("expected regular file to be non-interactive")
	}
}

package telegram

import (
	"strings"
	"testing"

	logx "kostbot/pkg/logx"
)

func TestParseRecipient(t *testing.T) {
	t.Parallel()

	if id, err := parseRecipient(" -1001234567890 "); err != nil || id != -1001234567890 {
		t.Fatalf("group id: %d, %v", id, err)
	}
	if _, err := parseRecipient(""); err == nil {
		t.Fatalf("empty recipient accepted")
	}
	if _, err := parseRecipient("@channel"); err == nil {
		t.Fatalf("non-numeric recipient accepted")
	}
}

func TestSplitTextShortMessage(t *testing.T) {
	t.Parallel()

	got := splitText("hello", 4000)
	if len(got) != 1 || got[0] != "hello" {
		t.Fatalf("short message split: %v", got)
	}
}

func TestSplitTextPrefersNewlines(t *testing.T) {
	t.Parallel()

	lines := make([]string, 40)
	for i := range lines {
		lines[i] = strings.Repeat("x", 10)
	}
	text := strings.Join(lines, "\n")

	chunks := splitText(text, 100)
	if len(chunks) < 2 {
		t.Fatalf("long message not split: %d chunks", len(chunks))
	}
	for i, c := range chunks {
		if len([]rune(c)) > 100 {
			t.Fatalf("chunk %d over limit: %d runes", i, len([]rune(c)))
		}
		// Newline-preferring split never cuts inside a line of x's.
		for _, part := range strings.Split(c, "\n") {
			if part != "" && part != strings.Repeat("x", 10) {
				t.Fatalf("chunk %d cut mid-line: %q", i, part)
			}
		}
	}
}

func TestNewRejectsEmptyToken(t *testing.T) {
	t.Parallel()

	if _, err := New(Config{Token: "  "}, logx.Nop()); err == nil {
		t.Fatalf("empty token accepted")
	}
}

package app

import (
	"context"
	"strings"
	"testing"
	"unicode/utf8"

	"seminargo/internal/domain"
)

func TestClip_KeepsRuneBoundaries(t *testing.T) {
	cases := []struct {
		in   string
		n    int
		want string
	}{
		{"short", 500, "short"},
		{"abcdef", 3, "abc…"},
		// "ü" is 2 bytes; a cut at byte 2 would split it
		{"aüüü", 2, "a…"},
		{"aüüü", 3, "aü…"},
		{"€€€", 5, "€…"},
	}
	for _, c := range cases {
		got := clip(c.in, c.n)
		if got != c.want {
			t.Errorf("clip(%q, %d) = %q, want %q", c.in, c.n, got, c.want)
		}
		if !utf8.ValidString(got) {
			t.Errorf("clip(%q, %d) produced invalid UTF-8: %q", c.in, c.n, got)
		}
	}
}

func TestAddChange_ClipsLongValuesSafely(t *testing.T) {
	st := &fakeState{}
	l := NewRunLog(st, 1)

	// 200 three-byte runes = 600 bytes; byte 500 falls mid-rune
	long := strings.Repeat("€", 200)
	l.AddChange(context.Background(), "7", domain.FieldChange{Field: "texts", Old: long, New: "{}"})

	if len(st.log) != 1 {
		t.Fatalf("expected one flushed entry, got %d", len(st.log))
	}
	old := st.log[0].Old
	if !utf8.ValidString(old) {
		t.Fatalf("clipped value is invalid UTF-8: %q", old)
	}
	if !strings.HasSuffix(old, "…") || len(old) > 500+len("…") {
		t.Fatalf("value not clipped as expected: len=%d", len(old))
	}
}

package notification

import (
	"strings"
	"testing"
	"unicode/utf8"
)

func TestClip(t *testing.T) {
	short := "pasta de imagens não encontrada"
	if got := clip(short); got != short {
		t.Errorf("Expected short text unchanged, got %q", got)
	}

	long := strings.Repeat("ç", maxMessageRunes+10)
	got := clip(long)
	if !strings.HasSuffix(got, "...") || utf8.RuneCountInString(got) != maxMessageRunes+3 {
		t.Errorf("Unexpected clip result length %d", utf8.RuneCountInString(got))
	}
	if !utf8.ValidString(got) {
		t.Error("clip split a multi-byte rune")
	}
}

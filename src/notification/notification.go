package notification

import "unicode/utf8"

const maxMessageRunes = 600

// clip shortens long messages (full error chains) so the dialog stays readable.
func clip(text string) string {
	if utf8.RuneCountInString(text) <= maxMessageRunes {
		return text
	}
	r := []rune(text)
	return string(r[:maxMessageRunes]) + "..."
}
